// Package result converts the backend's heterogeneous response shapes into
// one canonical analysis model. The external services answer with different
// field names depending on which operation produced the payload; everything
// downstream (stats, server pages, CLI output) consumes only this package's
// types.
package result

import "strings"

// Label is a canonical sentiment classification.
type Label string

const (
	LabelPositive Label = "positivo"
	LabelNegative Label = "negativo"
	LabelNeutral  Label = "neutral"
)

// Classify maps a raw sentiment label to its canonical value. Casing and
// locale spellings are folded; ok is false for labels outside the three
// canonical buckets.
func Classify(raw string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positivo", "positive", "pos":
		return LabelPositive, true
	case "negativo", "negative", "neg":
		return LabelNegative, true
	case "neutral", "neutro", "neu":
		return LabelNeutral, true
	}
	return "", false
}

// Canonical returns the canonical spelling for a recognized label and the
// raw label unchanged otherwise, so unknown values stay visible in the UI.
func Canonical(raw string) string {
	if l, ok := Classify(raw); ok {
		return string(l)
	}
	return strings.TrimSpace(raw)
}

// Single is the canonical result of a one-text analysis.
type Single struct {
	Text      string
	Sentiment string
	Score     float64
}

// Item is one analyzed comment inside a batch.
type Item struct {
	Text      string
	Sentiment string
	Score     float64
	Product   string
}

// Stats are batch-level aggregates. They come from the server when it
// supplies them and are tallied from items otherwise.
type Stats struct {
	AvgScore  float64
	Positives int
	Negatives int
	Neutrals  int
}

// ProductCount is a per-product breakdown record.
type ProductCount struct {
	Name      string
	Positives int
	Negatives int
	Neutrals  int
}

// Batch is the canonical result of any batch-shaped operation, including a
// historical session replayed without a network call.
type Batch struct {
	TotalAnalyzed    int
	SessionSaved     bool
	SessionID        string
	IsHistorical     bool
	Items            []Item
	Stats            *Stats
	DetectedProducts []ProductCount
}

// Result is the canonical analysis outcome: exactly one of Single or Batch
// is set.
type Result struct {
	Single *Single
	Batch  *Batch
}

// IsBatch reports whether the result holds a batch.
func (r *Result) IsBatch() bool {
	return r != nil && r.Batch != nil
}

// Session is a persisted analysis session as reported by the history
// endpoint (or the local cache).
type Session struct {
	SessionID string
	Date      string
	Total     int
	Positives int
	Negatives int
	Neutrals  int
	AvgScore  float64
	Comments  []Item
}
