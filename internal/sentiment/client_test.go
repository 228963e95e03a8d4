package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentiboard/internal/entry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(srv.URL, "", 5*time.Second)
	c.token = token
	return c, srv
}

func TestAnalyzeSingle(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sentiment/analyze" || r.Method != "POST" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "me gusta" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"prevision": "positivo", "probabilidad": 0.9}`))
	}, "")

	raw, err := c.AnalyzeSingle(context.Background(), "me gusta")
	if err != nil {
		t.Fatalf("AnalyzeSingle: %v", err)
	}
	if raw["prevision"] != "positivo" {
		t.Errorf("raw = %v", raw)
	}
}

func TestAnalyzeBatchSendsTexts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Texts []string `json:"texts"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Texts) != 2 {
			t.Errorf("texts = %v", body.Texts)
		}
		w.Write([]byte(`{"results": []}`))
	}, "")

	if _, err := c.AnalyzeBatch(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
}

func TestAuthenticatedCallsSendBearer(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"sessionId": "s1"}`))
	}, "tok-123")

	if _, err := c.AnalyzeAndSave(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("AnalyzeAndSave: %v", err)
	}
}

func TestAuthRequiredWithoutToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the server without a token")
	}, "")

	_, err := c.AnalyzeAndSave(context.Background(), []string{"a"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v", err)
	}
}

func TestUnauthorizedStatusMapsToSentinel(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "expired")

	_, err := c.AnalyzeAndSave(context.Background(), []string{"a"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyzeCSVBatchSendsFullRows(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sesion/analizar-csv-batch" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Entradas []map[string]string `json:"entradas"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Entradas) != 1 {
			t.Fatalf("entradas = %v", body.Entradas)
		}
		row := body.Entradas[0]
		if row["texto"] != "bueno" || row["producto"] != "iPhone" || row["categoria"] != "Electronica" {
			t.Errorf("row = %v", row)
		}
		w.Write([]byte(`{"sessionId": "s2", "comentarios": []}`))
	}, "tok")

	entries := []entry.Entry{{Text: "bueno", Product: "iPhone", Category: "Electronica"}}
	if _, err := c.AnalyzeCSVBatch(context.Background(), entries); err != nil {
		t.Fatalf("AnalyzeCSVBatch: %v", err)
	}
}

func TestAnalyzeWithProducts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Comentarios []string `json:"comentarios"`
			ProductoIDs []int64  `json:"productoIds"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.ProductoIDs) != 2 || body.ProductoIDs[0] != 7 {
			t.Errorf("productoIds = %v", body.ProductoIDs)
		}
		w.Write([]byte(`{"sessionId": "s3"}`))
	}, "tok")

	_, err := c.AnalyzeWithProducts(context.Background(), []string{"a"}, []int64{7, 9})
	if err != nil {
		t.Fatalf("AnalyzeWithProducts: %v", err)
	}
}

func TestGetHistoryPlainList(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"sessionId": "s1", "total": 3, "positivos": 2, "negativos": 1},
			{"sessionId": "s2", "total": 1, "neutrales": 1}
		]`))
	}, "tok")

	sessions, err := c.GetHistory(context.Background())
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(sessions) != 2 || sessions[0].SessionID != "s1" || sessions[0].Positives != 2 {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestGetHistoryEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sesiones": [{"sessionId": "s9", "total": 4}]}`))
	}, "tok")

	sessions, err := c.GetHistory(context.Background())
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "s9" {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestServerErrorIsReported(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, "")

	if _, err := c.AnalyzeSingle(context.Background(), "x"); err == nil {
		t.Error("expected an error for a 500 response")
	}
}
