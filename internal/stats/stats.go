// Package stats turns a canonical batch result into the figures shown on the
// results page: overall distribution, per-product breakdown, and history
// trends.
package stats

import (
	"math"

	"sentiboard/internal/result"
)

// Overall is the batch-level distribution. Unclassified counts labels outside
// the three canonical buckets; they are excluded from the percentage base so
// the three shares still describe classified comments only.
type Overall struct {
	Total        int
	Positives    int
	Negatives    int
	Neutrals     int
	Unclassified int
	PositivePct  float64
	NegativePct  float64
	NeutralPct   float64
	AvgScore     float64
}

// Product is the per-product slice of a breakdown.
type Product struct {
	Name        string
	Total       int
	Positives   int
	Negatives   int
	Neutrals    int
	PositivePct float64
	NegativePct float64
}

// Summary is everything the results page needs from one batch.
type Summary struct {
	Overall   Overall
	ByProduct []Product
}

// Aggregate computes a summary for a batch. Server-declared stats win over a
// local tally; the per-product table prefers the server's detected products
// and falls back to grouping items by their product tag.
func Aggregate(b *result.Batch) Summary {
	if b == nil {
		return Summary{}
	}
	return Summary{
		Overall:   overall(b),
		ByProduct: byProduct(b),
	}
}

func overall(b *result.Batch) Overall {
	o := Overall{Total: b.TotalAnalyzed}

	if b.Stats != nil {
		o.Positives = b.Stats.Positives
		o.Negatives = b.Stats.Negatives
		o.Neutrals = b.Stats.Neutrals
		o.AvgScore = b.Stats.AvgScore
	} else {
		var scoreSum float64
		for _, item := range b.Items {
			scoreSum += item.Score
			bump(&o, item.Sentiment)
		}
		if len(b.Items) > 0 {
			o.AvgScore = scoreSum / float64(len(b.Items))
		}
	}

	classified := o.Positives + o.Negatives + o.Neutrals
	if o.Total < classified {
		o.Total = classified
	}
	o.Unclassified = o.Total - classified

	o.PositivePct = percent(o.Positives, classified)
	o.NegativePct = percent(o.Negatives, classified)
	o.NeutralPct = percent(o.Neutrals, classified)
	return o
}

func bump(o *Overall, sentiment string) {
	switch l, ok := result.Classify(sentiment); {
	case !ok:
	case l == result.LabelPositive:
		o.Positives++
	case l == result.LabelNegative:
		o.Negatives++
	case l == result.LabelNeutral:
		o.Neutrals++
	}
}

func byProduct(b *result.Batch) []Product {
	if len(b.DetectedProducts) > 0 {
		out := make([]Product, 0, len(b.DetectedProducts))
		for _, pc := range b.DetectedProducts {
			out = append(out, fromCounts(pc.Name, pc.Positives, pc.Negatives, pc.Neutrals))
		}
		return out
	}
	return groupItems(b.Items)
}

// groupItems buckets items by product tag in first-seen order. Untagged
// items land in a Desconocido bucket.
func groupItems(items []result.Item) []Product {
	if len(items) == 0 {
		return nil
	}
	index := make(map[string]int)
	var out []Product
	for _, item := range items {
		name := item.Product
		if name == "" {
			name = "Desconocido"
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Product{Name: name})
		}
		p := &out[i]
		p.Total++
		switch l, ok := result.Classify(item.Sentiment); {
		case !ok:
		case l == result.LabelPositive:
			p.Positives++
		case l == result.LabelNegative:
			p.Negatives++
		case l == result.LabelNeutral:
			p.Neutrals++
		}
	}
	for i := range out {
		classified := out[i].Positives + out[i].Negatives + out[i].Neutrals
		out[i].PositivePct = percent(out[i].Positives, classified)
		out[i].NegativePct = percent(out[i].Negatives, classified)
	}
	return out
}

func fromCounts(name string, positives, negatives, neutrals int) Product {
	total := positives + negatives + neutrals
	return Product{
		Name:        name,
		Total:       total,
		Positives:   positives,
		Negatives:   negatives,
		Neutrals:    neutrals,
		PositivePct: percent(positives, total),
		NegativePct: percent(negatives, total),
	}
}

// percent computes count/total as a percentage rounded to one decimal. A
// zero total yields zero rather than a division error.
func percent(count, total int) float64 {
	if total < 1 {
		total = 1
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// TrendPoint is one session on the history chart.
type TrendPoint struct {
	SessionID   string
	Date        string
	Total       int
	PositivePct float64
	NegativePct float64
	AvgScore    float64
}

// Trend maps stored sessions to chart points, keeping input order (the
// history endpoints return newest first).
func Trend(sessions []result.Session) []TrendPoint {
	points := make([]TrendPoint, 0, len(sessions))
	for _, s := range sessions {
		classified := s.Positives + s.Negatives + s.Neutrals
		points = append(points, TrendPoint{
			SessionID:   s.SessionID,
			Date:        s.Date,
			Total:       s.Total,
			PositivePct: percent(s.Positives, classified),
			NegativePct: percent(s.Negatives, classified),
			AvgScore:    s.AvgScore,
		})
	}
	return points
}
