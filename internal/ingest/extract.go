package ingest

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// minExtractedLen guards against boilerplate-only pages.
const minExtractedLen = 100

// Extractor fetches a page and pulls its readable text.
type Extractor struct {
	client *http.Client
}

// NewExtractor creates an extractor with the given request timeout.
func NewExtractor(timeout time.Duration) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Extract returns the readable text of the page at pageURL, or empty when
// the page is unreachable or yields nothing usable. Ingestion is best-effort;
// failures are not errors.
func (e *Extractor) Extract(pageURL string) string {
	if pageURL == "" {
		return ""
	}
	req, err := http.NewRequest("GET", pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "sentiboard/1.0 (review collector)")

	resp, err := e.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minExtractedLen {
		return ""
	}
	return text
}
