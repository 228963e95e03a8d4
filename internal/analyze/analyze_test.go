package analyze

import (
	"context"
	"errors"
	"testing"

	"sentiboard/internal/entry"
	"sentiboard/internal/result"
)

// mockClient records which operation was invoked and replies with canned
// payloads.
type mockClient struct {
	called string
	fail   error
}

func (m *mockClient) AnalyzeSingle(ctx context.Context, text string) (result.Raw, error) {
	m.called = "single"
	return result.Raw{"sentiment": "positivo", "score": 0.9}, m.fail
}

func (m *mockClient) AnalyzeBatch(ctx context.Context, texts []string) (result.Raw, error) {
	m.called = "batch"
	return result.Raw{"results": []any{}}, m.fail
}

func (m *mockClient) AnalyzeAndSave(ctx context.Context, texts []string) (result.Raw, error) {
	m.called = "save"
	return result.Raw{"sessionId": "s-save", "comentarios": []any{}}, m.fail
}

func (m *mockClient) AnalyzeCSVBatch(ctx context.Context, entries []entry.Entry) (result.Raw, error) {
	m.called = "csv"
	return result.Raw{"sessionId": "s-csv", "comentarios": []any{}}, m.fail
}

func (m *mockClient) AnalyzeWithProducts(ctx context.Context, texts []string, ids []int64) (result.Raw, error) {
	m.called = "products"
	return result.Raw{"sessionId": "s-prod", "comentarios": []any{}}, m.fail
}

func (m *mockClient) GetHistory(ctx context.Context) ([]result.Session, error) {
	return nil, nil
}

type mockStore struct {
	saved []*result.Batch
	fail  error
}

func (m *mockStore) SaveBatch(b *result.Batch) error {
	m.saved = append(m.saved, b)
	return m.fail
}

func untagged(n int) []entry.Entry {
	out := make([]entry.Entry, n)
	for i := range out {
		out[i] = entry.Entry{Text: "texto"}
	}
	return out
}

func tagged() []entry.Entry {
	return []entry.Entry{
		{Text: "a"},
		{Text: "b", Product: "iPhone", Category: "Electronica"},
	}
}

func TestRouteDecisionTable(t *testing.T) {
	cases := []struct {
		name    string
		entries []entry.Entry
		rc      Config
		want    Op
	}{
		{"single wins over everything", tagged(), Config{Single: true, Authenticated: true}, OpAnalyzeSingle},
		{"authenticated with metadata", tagged(), Config{Authenticated: true}, OpAnalyzeCSVBatch},
		{"authenticated with product ids", untagged(2), Config{Authenticated: true, ProductIDs: []int64{1}}, OpAnalyzeWithProducts},
		{"authenticated plain batch", untagged(2), Config{Authenticated: true}, OpAnalyzeAndSave},
		{"anonymous batch", untagged(2), Config{}, OpAnalyzeBatch},
		{"demo forces anonymous batch", tagged(), Config{Authenticated: true, Demo: true}, OpAnalyzeBatch},
		{"metadata wins over product ids", tagged(), Config{Authenticated: true, ProductIDs: []int64{1}}, OpAnalyzeCSVBatch},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Route(c.entries, c.rc)
			if err != nil {
				t.Fatalf("Route: %v", err)
			}
			if got != c.want {
				t.Errorf("Route = %v, want %v", got, c.want)
			}
		})
	}
}

func TestRouteEmptyWorkingSet(t *testing.T) {
	if _, err := Route(nil, Config{}); !errors.Is(err, ErrNoEntries) {
		t.Errorf("err = %v", err)
	}
}

func TestRunSingle(t *testing.T) {
	client := &mockClient{}
	r := &Runner{Client: client}

	res, err := r.Run(context.Background(), untagged(1), Config{Single: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.called != "single" || res.IsBatch() {
		t.Errorf("called=%s result=%+v", client.called, res)
	}
	if res.Single.Sentiment != "positivo" {
		t.Errorf("single = %+v", res.Single)
	}
}

func TestRunCachesPersistedBatch(t *testing.T) {
	client := &mockClient{}
	store := &mockStore{}
	r := &Runner{Client: client, Store: store}

	res, err := r.Run(context.Background(), tagged(), Config{Authenticated: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.called != "csv" {
		t.Errorf("called = %s", client.called)
	}
	if len(store.saved) != 1 || store.saved[0].SessionID != "s-csv" {
		t.Errorf("store = %+v", store.saved)
	}
	if !res.Batch.SessionSaved {
		t.Errorf("batch = %+v", res.Batch)
	}
}

func TestRunDoesNotCacheAnonymousBatch(t *testing.T) {
	store := &mockStore{}
	r := &Runner{Client: &mockClient{}, Store: store}

	if _, err := r.Run(context.Background(), untagged(2), Config{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("anonymous batch cached: %+v", store.saved)
	}
}

func TestRunCacheFailureIsNotFatal(t *testing.T) {
	store := &mockStore{fail: errors.New("disk full")}
	r := &Runner{Client: &mockClient{}, Store: store}

	res, err := r.Run(context.Background(), untagged(2), Config{Authenticated: true})
	if err != nil {
		t.Fatalf("Run returned cache failure: %v", err)
	}
	if res.Batch.SessionID != "s-save" {
		t.Errorf("batch = %+v", res.Batch)
	}
}

func TestRunPropagatesClientError(t *testing.T) {
	client := &mockClient{fail: errors.New("service down")}
	r := &Runner{Client: client}

	if _, err := r.Run(context.Background(), untagged(2), Config{}); err == nil {
		t.Error("expected error from failing client")
	}
}
