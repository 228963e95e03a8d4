// Package sentiment talks to the external inference/session service. The
// service computes every sentiment label; this client only moves payloads and
// hands the loosely decoded responses to the result normalizer.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"sentiboard/internal/entry"
	"sentiboard/internal/result"
)

// ErrUnauthorized is returned for 401/403 responses so callers can
// distinguish a bad token from a service failure.
var ErrUnauthorized = errors.New("sentiment: unauthorized")

// Analyzer is the operation surface the analysis runner depends on.
type Analyzer interface {
	AnalyzeSingle(ctx context.Context, text string) (result.Raw, error)
	AnalyzeBatch(ctx context.Context, texts []string) (result.Raw, error)
	AnalyzeAndSave(ctx context.Context, texts []string) (result.Raw, error)
	AnalyzeCSVBatch(ctx context.Context, entries []entry.Entry) (result.Raw, error)
	AnalyzeWithProducts(ctx context.Context, texts []string, productIDs []int64) (result.Raw, error)
	GetHistory(ctx context.Context) ([]result.Session, error)
}

// Client is the HTTP implementation of Analyzer.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a client for the given base URL. The bearer token is read from
// the named environment variable; an empty name or unset variable leaves the
// client anonymous (only the unauthenticated operations will succeed).
func New(baseURL, tokenEnv string, timeout time.Duration) *Client {
	token := ""
	if tokenEnv != "" {
		token = os.Getenv(tokenEnv)
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsAuthenticated reports whether a bearer token is available.
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// AnalyzeSingle classifies one text. Anonymous.
func (c *Client) AnalyzeSingle(ctx context.Context, text string) (result.Raw, error) {
	return c.post(ctx, "/sentiment/analyze", map[string]any{"text": text}, false)
}

// AnalyzeBatch classifies several texts without persisting anything.
func (c *Client) AnalyzeBatch(ctx context.Context, texts []string) (result.Raw, error) {
	return c.post(ctx, "/sentiment/analyze/batch", map[string]any{"texts": texts}, false)
}

// AnalyzeAndSave classifies texts and stores them as a session on the
// service. Requires authentication.
func (c *Client) AnalyzeAndSave(ctx context.Context, texts []string) (result.Raw, error) {
	return c.post(ctx, "/sesion/analizar", map[string]any{"comentarios": texts}, true)
}

// AnalyzeCSVBatch submits full rows so the service can keep the per-entry
// product and category association. Requires authentication.
func (c *Client) AnalyzeCSVBatch(ctx context.Context, entries []entry.Entry) (result.Raw, error) {
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			"texto":     e.Text,
			"producto":  e.Product,
			"categoria": e.Category,
		})
	}
	return c.post(ctx, "/sesion/analizar-csv-batch", map[string]any{"entradas": rows}, true)
}

// AnalyzeWithProducts classifies texts against a pre-selected product list
// from the catalog. Requires authentication.
func (c *Client) AnalyzeWithProducts(ctx context.Context, texts []string, productIDs []int64) (result.Raw, error) {
	body := map[string]any{
		"comentarios": texts,
		"productoIds": productIDs,
	}
	return c.post(ctx, "/sesion/analizar-con-lista-productos", body, true)
}

// GetHistory fetches the user's stored sessions, newest first.
func (c *Client) GetHistory(ctx context.Context) ([]result.Session, error) {
	data, err := c.do(ctx, "GET", "/sesion/historial", nil, true)
	if err != nil {
		return nil, err
	}

	var list []result.Raw
	if err := json.Unmarshal(data, &list); err != nil {
		// Some deployments wrap the list in an envelope.
		var envelope struct {
			Sesiones []result.Raw `json:"sesiones"`
		}
		if err2 := json.Unmarshal(data, &envelope); err2 != nil {
			return nil, fmt.Errorf("decoding history: %w", err)
		}
		list = envelope.Sesiones
	}

	sessions := make([]result.Session, 0, len(list))
	for _, raw := range list {
		sessions = append(sessions, result.SessionFromRaw(raw))
	}
	return sessions, nil
}

func (c *Client) post(ctx context.Context, path string, body any, auth bool) (result.Raw, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	respBody, err := c.do(ctx, "POST", path, data, auth)
	if err != nil {
		return nil, err
	}

	var raw result.Raw
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, auth bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if c.token == "" {
			return nil, ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentiment service error: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sentiment service returned %d: %s", resp.StatusCode, string(respBody))
	}

	return io.ReadAll(resp.Body)
}
