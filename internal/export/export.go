// Package export writes analysis results to portable formats: a CSV of the
// analyzed items and a markdown report the server renders as HTML.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sentiboard/internal/result"
	"sentiboard/internal/stats"
)

// WriteItemsCSV writes the batch items as CSV with a fixed header.
func WriteItemsCSV(w io.Writer, b *result.Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"texto", "sentimiento", "score", "producto"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, item := range b.Items {
		record := []string{
			item.Text,
			item.Sentiment,
			strconv.FormatFloat(item.Score, 'f', 4, 64),
			item.Product,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing item: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProductsCSV writes the per-product breakdown as CSV.
func WriteProductsCSV(w io.Writer, products []stats.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"producto", "total", "positivos", "negativos", "neutrales"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range products {
		record := []string{
			p.Name,
			strconv.Itoa(p.Total),
			strconv.Itoa(p.Positives),
			strconv.Itoa(p.Negatives),
			strconv.Itoa(p.Neutrals),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing product: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarkdownReport renders one batch as a markdown document.
func MarkdownReport(b *result.Batch, sum stats.Summary) string {
	var sb strings.Builder

	sb.WriteString("# Informe de análisis de sentimiento\n\n")
	if b.SessionID != "" {
		fmt.Fprintf(&sb, "Sesión: `%s`\n\n", b.SessionID)
	}
	if b.IsHistorical {
		sb.WriteString("Sesión histórica recuperada de la caché.\n\n")
	}

	o := sum.Overall
	sb.WriteString("## Resumen\n\n")
	fmt.Fprintf(&sb, "- Comentarios analizados: %d\n", o.Total)
	fmt.Fprintf(&sb, "- Positivos: %d (%.1f%%)\n", o.Positives, o.PositivePct)
	fmt.Fprintf(&sb, "- Negativos: %d (%.1f%%)\n", o.Negatives, o.NegativePct)
	fmt.Fprintf(&sb, "- Neutrales: %d (%.1f%%)\n", o.Neutrals, o.NeutralPct)
	if o.Unclassified > 0 {
		fmt.Fprintf(&sb, "- Sin clasificar: %d\n", o.Unclassified)
	}
	fmt.Fprintf(&sb, "- Score medio: %.2f\n\n", o.AvgScore)

	if len(sum.ByProduct) > 0 {
		sb.WriteString("## Por producto\n\n")
		sb.WriteString("| Producto | Total | Positivos | Negativos | Neutrales |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, p := range sum.ByProduct {
			fmt.Fprintf(&sb, "| %s | %d | %d | %d | %d |\n",
				p.Name, p.Total, p.Positives, p.Negatives, p.Neutrals)
		}
		sb.WriteString("\n")
	}

	if len(b.Items) > 0 {
		sb.WriteString("## Comentarios\n\n")
		for _, item := range b.Items {
			label := item.Sentiment
			if label == "" {
				label = "sin clasificar"
			}
			fmt.Fprintf(&sb, "- **%s** (%.2f): %s\n", label, item.Score, item.Text)
		}
	}

	return sb.String()
}
