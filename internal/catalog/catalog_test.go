package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(srv.URL, "", 5*time.Second)
	c.token = "tok"
	return c
}

func TestGetCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categoria" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`[{"id": 1, "nombre": "Electronica"}, {"id": 2, "nombre": "Ropa"}]`))
	})

	categories, err := c.GetCategories(context.Background())
	if err != nil {
		t.Fatalf("GetCategories: %v", err)
	}
	if len(categories) != 2 || categories[0].Name != "Electronica" {
		t.Errorf("categories = %+v", categories)
	}
}

func TestGetProductsByCategory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/producto/por-categoria" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("categoriaId"); got != "7" {
			t.Errorf("categoriaId = %q", got)
		}
		w.Write([]byte(`[{"id": 10, "nombre": "iPhone", "categoriaId": 7}]`))
	})

	products, err := c.GetProductsByCategory(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetProductsByCategory: %v", err)
	}
	if len(products) != 1 || products[0].ID != 10 || products[0].Name != "iPhone" {
		t.Errorf("products = %+v", products)
	}
}

func TestRequiresToken(t *testing.T) {
	c := New("http://unused", "", time.Second)
	if _, err := c.GetCategories(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v", err)
	}
}

func TestUnauthorizedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	if _, err := c.GetCategories(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v", err)
	}
}
