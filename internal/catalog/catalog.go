// Package catalog reads the category/product taxonomy from the backend. It
// feeds the legacy pre-selection flow: pick a category, pick products, then
// analyze against those product IDs.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// ErrUnauthorized is returned for 401/403 responses.
var ErrUnauthorized = errors.New("catalog: unauthorized")

// Category is one taxonomy category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
}

// Product is one catalog product.
type Product struct {
	ID         int64  `json:"id"`
	Name       string `json:"nombre"`
	CategoryID int64  `json:"categoriaId"`
}

// Reader is the lookup surface consumed by the CLI and the server.
type Reader interface {
	GetCategories(ctx context.Context) ([]Category, error)
	GetProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error)
}

// Client is the HTTP implementation of Reader.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a catalog client. Both operations require a bearer token, read
// from the named environment variable.
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

// GetCategories lists all taxonomy categories.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.get(ctx, "/categoria", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetProductsByCategory lists the products under one category.
func (c *Client) GetProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	params := url.Values{"categoriaId": {strconv.FormatInt(categoryID, 10)}}
	var products []Product
	if err := c.get(ctx, "/producto/por-categoria", params, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.token == "" {
		return ErrUnauthorized
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog service error: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("catalog service returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
