package csvio

import (
	"errors"
	"strings"
	"testing"
)

func TestParseThreeColumnFile(t *testing.T) {
	raw := "texto,producto,categoria\n" +
		"Excelente calidad,iPhone,Electronica\n" +
		"Muy caro,iPhone,Electronica\n" +
		"\"Normal, nada especial\",Nike Air,Ropa\n"

	table, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	if table.Rows[2].Texto != "Normal, nada especial" {
		t.Errorf("quoted comma not preserved: %q", table.Rows[2].Texto)
	}
	if table.Rows[2].Producto != "Nike Air" || table.Rows[2].Categoria != "Ropa" {
		t.Errorf("row 3 metadata wrong: %+v", table.Rows[2])
	}
}

func TestParseColumnOrderIsFree(t *testing.T) {
	raw := "categoria,texto,producto\nRopa,Comodas,Nike Air\n"
	table, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := table.Rows[0]
	if r.Texto != "Comodas" || r.Producto != "Nike Air" || r.Categoria != "Ropa" {
		t.Errorf("columns mapped by header name failed: %+v", r)
	}
}

func TestParseOptionalColumnsAbsent(t *testing.T) {
	table, err := Parse([]byte("texto\nSolo un comentario\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := table.Rows[0]
	if r.Producto != "" || r.Categoria != "" {
		t.Errorf("expected empty metadata, got %+v", r)
	}
}

func TestParseAccentedCategoryHeader(t *testing.T) {
	table, err := Parse([]byte("texto,categoría\nBuen servicio,Hogar\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Rows[0].Categoria != "Hogar" {
		t.Errorf("expected categoría header to map, got %+v", table.Rows[0])
	}
}

func TestParseMissingTextColumn(t *testing.T) {
	cases := []string{
		"producto,categoria\niPhone,Electronica\n",
		"TEXT,producto\nhello,iPhone\n",
	}
	for _, raw := range cases {
		if _, err := Parse([]byte(raw)); !errors.Is(err, ErrMissingTextColumn) {
			t.Errorf("Parse(%q) = %v, want ErrMissingTextColumn", raw, err)
		}
	}
}

func TestParseHeaderCaseInsensitive(t *testing.T) {
	table, err := Parse([]byte("TEXTO,Producto\nGran producto,iPad\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Rows[0].Producto != "iPad" {
		t.Errorf("expected upper-case headers to match, got %+v", table.Rows[0])
	}
}

func TestParseEmptyFile(t *testing.T) {
	for _, raw := range []string{"", "\n\n", "   \n\t\n"} {
		if _, err := Parse([]byte(raw)); !errors.Is(err, ErrEmptyFile) {
			t.Errorf("Parse(%q) = %v, want ErrEmptyFile", raw, err)
		}
	}
}

func TestParseHeaderOnly(t *testing.T) {
	if _, err := Parse([]byte("texto,producto,categoria\n")); !errors.Is(err, ErrNoValidRows) {
		t.Errorf("expected ErrNoValidRows, got %v", err)
	}
}

func TestParseSkipsRowsWithoutText(t *testing.T) {
	raw := "texto,producto\n,iPhone\nBuen equipo,iPhone\n\"\",iPad\n"
	table, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0].Texto != "Buen equipo" {
		t.Errorf("expected only the non-empty row, got %+v", table.Rows)
	}
}

func TestParseDoubledQuotes(t *testing.T) {
	raw := "texto\n\"Great, \"\"awesome\"\" product\"\n"
	table, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Rows[0].Texto; got != `Great, "awesome" product` {
		t.Errorf("doubled quotes not collapsed: %q", got)
	}
}

func TestParseCRLFLines(t *testing.T) {
	raw := "texto,producto\r\nUno,A\r\nDos,B\r\n"
	table, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(table.Rows))
	}
}

func TestParseRowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("texto\n")
	for i := 0; i < DefaultMaxRows+50; i++ {
		b.WriteString("comentario\n")
	}
	table, err := Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != DefaultMaxRows {
		t.Errorf("expected cap at %d rows, got %d", DefaultMaxRows, len(table.Rows))
	}
}

func TestParseLatin1Fallback(t *testing.T) {
	// "categoría" value with a Latin-1 encoded í (0xED), invalid as UTF-8.
	raw := []byte("texto,categoria\nPel\xedcula excelente,Cine\n")
	table, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Rows[0].Texto != "Película excelente" {
		t.Errorf("Latin-1 fallback failed: %q", table.Rows[0].Texto)
	}
}
