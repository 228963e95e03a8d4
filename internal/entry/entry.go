// Package entry holds the working set of texts queued for analysis and the
// facet model derived from it. Everything here is pure computation; entries
// are never mutated after extraction.
package entry

import (
	"strings"

	"sentiboard/internal/csvio"
)

// Entry is one unit of text to be analyzed. Product and Category are empty
// when the entry carries no metadata (manually typed lines never do).
type Entry struct {
	Text     string
	Product  string
	Category string
}

// HasMetadata reports whether the entry carries a product or category tag.
func (e Entry) HasMetadata() bool {
	return e.Product != "" || e.Category != ""
}

// Facets are the distinct non-empty category and product values observed
// across a working set, in first-seen order.
type Facets struct {
	Categories []string
	Products   []string
}

// Empty reports whether no entry carried any metadata. When true the filter
// step is skippable and callers may route straight to analysis.
func (f Facets) Empty() bool {
	return len(f.Categories) == 0 && len(f.Products) == 0
}

// Extract builds the working set from parsed CSV rows plus free-typed manual
// lines. Rows come first, manual entries are appended, so incremental
// "add to batch" keeps input order. Blank manual lines are dropped.
func Extract(rows []csvio.Row, manualLines []string) ([]Entry, Facets) {
	entries := make([]Entry, 0, len(rows)+len(manualLines))
	for _, r := range rows {
		entries = append(entries, Entry{
			Text:     r.Texto,
			Product:  r.Producto,
			Category: r.Categoria,
		})
	}
	for _, line := range manualLines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		entries = append(entries, Entry{Text: text})
	}
	return entries, DeriveFacets(entries)
}

// SplitLines turns a free-typed block into manual lines, dropping blanks.
func SplitLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}

// DeriveFacets recomputes the facet sets for a working set. It must be
// called whenever the entry collection changes; facets are never stored.
func DeriveFacets(entries []Entry) Facets {
	var f Facets
	seenCat := make(map[string]struct{})
	seenProd := make(map[string]struct{})
	for _, e := range entries {
		if e.Category != "" {
			if _, ok := seenCat[e.Category]; !ok {
				seenCat[e.Category] = struct{}{}
				f.Categories = append(f.Categories, e.Category)
			}
		}
		if e.Product != "" {
			if _, ok := seenProd[e.Product]; !ok {
				seenProd[e.Product] = struct{}{}
				f.Products = append(f.Products, e.Product)
			}
		}
	}
	return f
}
