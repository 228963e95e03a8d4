package entry

// Selection is the user's inclusion choice over facets. Both maps hold only
// values from the current Facets; a missing key means excluded.
type Selection struct {
	Categories map[string]bool
	Products   map[string]bool
}

// AllSelected returns the default selection: every facet included.
func AllSelected(f Facets) Selection {
	sel := Selection{
		Categories: make(map[string]bool, len(f.Categories)),
		Products:   make(map[string]bool, len(f.Products)),
	}
	for _, c := range f.Categories {
		sel.Categories[c] = true
	}
	for _, p := range f.Products {
		sel.Products[p] = true
	}
	return sel
}

// NoneSelected returns a selection with every facet excluded.
func NoneSelected() Selection {
	return Selection{
		Categories: make(map[string]bool),
		Products:   make(map[string]bool),
	}
}

// ToggleCategory flips one category's inclusion.
func (s Selection) ToggleCategory(cat string) {
	s.Categories[cat] = !s.Categories[cat]
}

// ToggleProduct flips one product's inclusion.
func (s Selection) ToggleProduct(prod string) {
	s.Products[prod] = !s.Products[prod]
}

// includes applies the per-entry rule: entries without metadata always pass;
// an entry whose category is deselected is excluded; otherwise an entry
// whose product is deselected is excluded.
func (s Selection) includes(e Entry) bool {
	if !e.HasMetadata() {
		return true
	}
	if e.Category != "" && !s.Categories[e.Category] {
		return false
	}
	if e.Product != "" && !s.Products[e.Product] {
		return false
	}
	return true
}

// Apply returns the entries that pass the selection, preserving input order.
// The input slice is never mutated.
func Apply(entries []Entry, sel Selection) []Entry {
	var out []Entry
	for _, e := range entries {
		if sel.includes(e) {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries carry the given category value.
// Used for the per-facet counts shown next to filter checkboxes.
func CountCategory(entries []Entry, cat string) int {
	n := 0
	for _, e := range entries {
		if e.Category == cat {
			n++
		}
	}
	return n
}

// CountProduct returns how many entries carry the given product value.
func CountProduct(entries []Entry, prod string) int {
	n := 0
	for _, e := range entries {
		if e.Product == prod {
			n++
		}
	}
	return n
}
