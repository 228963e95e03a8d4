// Package analyze decides which backend operation a working set maps to and
// drives the call end to end: route, submit, normalize, cache.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sentiboard/internal/entry"
	"sentiboard/internal/result"
	"sentiboard/internal/sentiment"
)

// ErrNoEntries is returned when routing is attempted on an empty working set.
var ErrNoEntries = errors.New("analyze: no entries to analyze")

// Op identifies one backend operation.
type Op int

const (
	OpAnalyzeSingle Op = iota
	OpAnalyzeCSVBatch
	OpAnalyzeWithProducts
	OpAnalyzeAndSave
	OpAnalyzeBatch
)

func (o Op) String() string {
	switch o {
	case OpAnalyzeSingle:
		return "analyze-single"
	case OpAnalyzeCSVBatch:
		return "analyze-csv-batch"
	case OpAnalyzeWithProducts:
		return "analyze-with-products"
	case OpAnalyzeAndSave:
		return "analyze-and-save"
	case OpAnalyzeBatch:
		return "analyze-batch"
	}
	return "unknown"
}

// Config is the routing context for one submission.
type Config struct {
	Single        bool
	Authenticated bool
	Demo          bool
	ProductIDs    []int64
}

// Route picks the backend operation for a working set. The rules are ordered;
// the first match wins:
//  1. single mode submits one text for a quick check
//  2. an authenticated batch with any tagged entry keeps its metadata
//  3. an authenticated untagged batch with pre-selected products uses them
//  4. an authenticated untagged batch is saved as a plain session
//  5. everything else runs the anonymous batch, never persisted
func Route(entries []entry.Entry, rc Config) (Op, error) {
	if len(entries) == 0 {
		return 0, ErrNoEntries
	}
	if rc.Single {
		return OpAnalyzeSingle, nil
	}
	if rc.Authenticated && !rc.Demo {
		for _, e := range entries {
			if e.HasMetadata() {
				return OpAnalyzeCSVBatch, nil
			}
		}
		if len(rc.ProductIDs) > 0 {
			return OpAnalyzeWithProducts, nil
		}
		return OpAnalyzeAndSave, nil
	}
	return OpAnalyzeBatch, nil
}

// Store caches persisted sessions locally so history survives offline.
type Store interface {
	SaveBatch(b *result.Batch) error
}

// Runner executes a routed analysis against the sentiment service.
type Runner struct {
	Client sentiment.Analyzer
	Store  Store
}

// Run routes the entries, performs the backend call and returns the
// normalized result. Batches that the service persisted are mirrored into
// the local store; a cache failure is logged, not returned, because the
// analysis itself succeeded.
func (r *Runner) Run(ctx context.Context, entries []entry.Entry, rc Config) (*result.Result, error) {
	op, err := Route(entries, rc)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}

	var res *result.Result
	switch op {
	case OpAnalyzeSingle:
		raw, err := r.Client.AnalyzeSingle(ctx, texts[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = result.NormalizeSingle(texts[0], raw)

	case OpAnalyzeCSVBatch:
		raw, err := r.Client.AnalyzeCSVBatch(ctx, entries)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = result.NormalizeSessionBatch(raw)

	case OpAnalyzeWithProducts:
		raw, err := r.Client.AnalyzeWithProducts(ctx, texts, rc.ProductIDs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = result.NormalizeSessionBatch(raw)

	case OpAnalyzeAndSave:
		raw, err := r.Client.AnalyzeAndSave(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = result.NormalizeSessionBatch(raw)

	case OpAnalyzeBatch:
		raw, err := r.Client.AnalyzeBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = result.NormalizeAnonBatch(texts, raw)
	}

	if r.Store != nil && res.IsBatch() && res.Batch.SessionSaved {
		if err := r.Store.SaveBatch(res.Batch); err != nil {
			log.Printf("caching session %s locally: %v", res.Batch.SessionID, err)
		}
	}
	return res, nil
}
