package csvio

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultMaxRows caps how many data rows are read after the header. Extra
// rows are silently ignored; large review dumps are expected and not an
// error.
const DefaultMaxRows = 500

var (
	// ErrEmptyFile means the input had no non-blank lines.
	ErrEmptyFile = errors.New("csv: empty file")
	// ErrMissingTextColumn means the header has no "texto" column.
	ErrMissingTextColumn = errors.New("csv: missing required column \"texto\"")
	// ErrNoValidRows means no data row survived cleaning.
	ErrNoValidRows = errors.New("csv: no valid rows")
)

// Row is one parsed data row. Producto and Categoria are empty when the
// column is absent or the cell is blank.
type Row struct {
	Texto     string
	Producto  string
	Categoria string
}

// Table is the result of parsing a review CSV.
type Table struct {
	Rows []Row
}

// Parse turns raw CSV bytes into a Table. The dialect is loose: column order
// is free, quoting is optional, and a comma splits fields only outside an
// odd-parity run of double quotes. Content that is not valid UTF-8 is
// re-decoded as ISO-8859-1 before parsing.
func Parse(raw []byte) (*Table, error) {
	return ParseLimit(raw, DefaultMaxRows)
}

// ParseLimit is Parse with a custom row cap.
func ParseLimit(raw []byte, maxRows int) (*Table, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	text := decode(raw)

	var lines []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	header := splitFields(lines[0])
	for i, h := range header {
		header[i] = strings.ToLower(strings.Trim(strings.TrimSpace(h), `"`))
	}

	textoIdx := indexOf(header, "texto")
	if textoIdx < 0 {
		return nil, ErrMissingTextColumn
	}
	productoIdx := indexOf(header, "producto")
	categoriaIdx := indexOf(header, "categoria")
	if categoriaIdx < 0 {
		categoriaIdx = indexOf(header, "categoría")
	}

	limit := len(lines)
	if limit > maxRows+1 {
		limit = maxRows + 1
	}

	var rows []Row
	for i := 1; i < limit; i++ {
		values := splitFields(lines[i])

		texto := cleanValue(at(values, textoIdx))
		if texto == "" {
			continue
		}
		rows = append(rows, Row{
			Texto:     texto,
			Producto:  cleanValue(at(values, productoIdx)),
			Categoria: cleanValue(at(values, categoriaIdx)),
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoValidRows
	}
	return &Table{Rows: rows}, nil
}

// decode interprets raw bytes as UTF-8, falling back to ISO-8859-1. The
// fallback is total over bytes, so decoding itself can never fail.
func decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// ISO-8859-1 maps every byte; keep the raw text as a last resort.
		return string(raw)
	}
	return string(out)
}

// splitFields splits a line on commas that sit outside quotes. Quote parity
// is tracked per line: a comma inside an odd number of double quotes is part
// of the field.
func splitFields(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())
	return fields
}

// cleanValue trims a field, removes a matching pair of wrapping quotes, and
// collapses doubled quotes to a literal quote.
func cleanValue(val string) string {
	v := strings.TrimSpace(val)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = v[1 : len(v)-1]
	}
	return strings.ReplaceAll(v, `""`, `"`)
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func at(values []string, idx int) string {
	if idx < 0 || idx >= len(values) {
		return ""
	}
	return values[idx]
}
