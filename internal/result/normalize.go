package result

// Raw is a loosely decoded JSON object from one of the external services.
type Raw = map[string]any

// The services are not consistent about field names: the same count can
// arrive under several aliases depending on which endpoint produced the
// payload. Each field gets one ordered fallback table, consulted left to
// right; absence always resolves to a zero value, never an error.
var (
	productNameAliases = []string{"nombreProducto", "producto", "name"}
	positivesAliases   = []string{"positivosEnSesion", "conteoPositivos", "positivosSesion", "positivos"}
	negativesAliases   = []string{"negativosEnSesion", "conteoNegativos", "negativosSesion", "negativos"}
	neutralsAliases    = []string{"neutralesEnSesion", "conteoNeutrales", "neutralesSesion", "neutrales"}

	itemTextAliases      = []string{"text", "texto", "comentario"}
	itemSentimentAliases = []string{"sentiment", "sentimiento", "prevision"}
	itemScoreAliases     = []string{"score", "probabilidad"}
	itemProductAliases   = []string{"productoAsociado", "producto"}

	sessionIDAliases   = []string{"sessionId", "sesionId", "id"}
	sessionDateAliases = []string{"date", "fecha"}
	totalAliases       = []string{"total", "totalComentarios", "totalAnalyzed"}
	avgScoreAliases    = []string{"avgScore", "scorePromedio"}
)

func stringField(m Raw, aliases []string) string {
	for _, key := range aliases {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func floatField(m Raw, aliases []string) (float64, bool) {
	for _, key := range aliases {
		if v, ok := m[key]; ok {
			switch n := v.(type) {
			case float64:
				return n, true
			case int:
				return float64(n), true
			}
		}
	}
	return 0, false
}

func intField(m Raw, aliases []string) (int, bool) {
	f, ok := floatField(m, aliases)
	return int(f), ok
}

func rawList(m Raw, key string) []Raw {
	list, ok := m[key].([]any)
	if !ok {
		return nil
	}
	var out []Raw
	for _, el := range list {
		if obj, ok := el.(Raw); ok {
			out = append(out, obj)
		}
	}
	return out
}

// NormalizeSingle converts a one-text inference response.
func NormalizeSingle(text string, raw Raw) *Result {
	score, _ := floatField(raw, itemScoreAliases)
	return &Result{Single: &Single{
		Text:      text,
		Sentiment: Canonical(stringField(raw, itemSentimentAliases)),
		Score:     score,
	}}
}

// NormalizeAnonBatch converts the unauthenticated batch response, which only
// carries per-text results in submission order. Texts are zipped back in.
func NormalizeAnonBatch(texts []string, raw Raw) *Result {
	results := rawList(raw, "results")
	items := make([]Item, 0, len(texts))
	for i, text := range texts {
		item := Item{Text: text}
		if i < len(results) {
			item.Sentiment = Canonical(stringField(results[i], itemSentimentAliases))
			item.Score, _ = floatField(results[i], itemScoreAliases)
		}
		items = append(items, item)
	}

	return &Result{Batch: &Batch{
		TotalAnalyzed: len(items),
		Items:         items,
		Stats:         tallyStats(items),
	}}
}

// NormalizeSessionBatch converts any of the persisted-session batch
// responses (plain save, CSV batch, pre-selected products). Server-supplied
// aggregates win; when absent the items are tallied instead.
func NormalizeSessionBatch(raw Raw) *Result {
	items := normalizeItems(rawList(raw, "comentarios"))

	total, ok := intField(raw, totalAliases)
	if !ok {
		total = len(items)
	}

	b := &Batch{
		TotalAnalyzed:    total,
		SessionSaved:     true,
		SessionID:        stringField(raw, sessionIDAliases),
		Items:            items,
		Stats:            serverStats(raw),
		DetectedProducts: normalizeProducts(rawList(raw, "productosDetectados")),
	}
	if b.Stats == nil {
		b.Stats = tallyStats(items)
	}
	return &Result{Batch: b}
}

// SessionFromRaw decodes one history record.
func SessionFromRaw(raw Raw) Session {
	total, _ := intField(raw, totalAliases)
	positives, _ := intField(raw, positivesAliases)
	negatives, _ := intField(raw, negativesAliases)
	neutrals, _ := intField(raw, neutralsAliases)
	avg, _ := floatField(raw, avgScoreAliases)

	return Session{
		SessionID: stringField(raw, sessionIDAliases),
		Date:      stringField(raw, sessionDateAliases),
		Total:     total,
		Positives: positives,
		Negatives: negatives,
		Neutrals:  neutrals,
		AvgScore:  avg,
		Comments:  normalizeItems(rawList(raw, "comentarios")),
	}
}

// FromHistory reconstructs a past session as a fresh-looking batch result.
// No network operation is involved; the replayed batch keeps the session's
// own totals even when the comment list is empty.
func FromHistory(s Session) *Result {
	return &Result{Batch: &Batch{
		TotalAnalyzed: s.Total,
		SessionSaved:  true,
		SessionID:     s.SessionID,
		IsHistorical:  true,
		Items:         s.Comments,
		Stats: &Stats{
			AvgScore:  s.AvgScore,
			Positives: s.Positives,
			Negatives: s.Negatives,
			Neutrals:  s.Neutrals,
		},
	}}
}

func normalizeItems(list []Raw) []Item {
	items := make([]Item, 0, len(list))
	for _, raw := range list {
		score, _ := floatField(raw, itemScoreAliases)
		items = append(items, Item{
			Text:      stringField(raw, itemTextAliases),
			Sentiment: Canonical(stringField(raw, itemSentimentAliases)),
			Score:     score,
			Product:   stringField(raw, itemProductAliases),
		})
	}
	return items
}

func normalizeProducts(list []Raw) []ProductCount {
	var out []ProductCount
	for _, raw := range list {
		name := stringField(raw, productNameAliases)
		if name == "" {
			name = "Desconocido"
		}
		positives, _ := intField(raw, positivesAliases)
		negatives, _ := intField(raw, negativesAliases)
		neutrals, _ := intField(raw, neutralsAliases)
		out = append(out, ProductCount{
			Name:      name,
			Positives: positives,
			Negatives: negatives,
			Neutrals:  neutrals,
		})
	}
	return out
}

// serverStats extracts server-declared aggregates, or nil when the response
// carried none of the three counts.
func serverStats(raw Raw) *Stats {
	positives, okP := intField(raw, positivesAliases)
	negatives, okN := intField(raw, negativesAliases)
	neutrals, okU := intField(raw, neutralsAliases)
	if !okP && !okN && !okU {
		return nil
	}
	avg, _ := floatField(raw, avgScoreAliases)
	return &Stats{
		AvgScore:  avg,
		Positives: positives,
		Negatives: negatives,
		Neutrals:  neutrals,
	}
}

// tallyStats derives aggregates from items. Labels outside the canonical
// three are left out of every count; they surface through the aggregator's
// unclassified bucket instead of being folded into neutral.
func tallyStats(items []Item) *Stats {
	s := &Stats{}
	var scoreSum float64
	for _, item := range items {
		scoreSum += item.Score
		switch l, ok := Classify(item.Sentiment); {
		case !ok:
		case l == LabelPositive:
			s.Positives++
		case l == LabelNegative:
			s.Negatives++
		case l == LabelNeutral:
			s.Neutrals++
		}
	}
	if len(items) > 0 {
		s.AvgScore = scoreSum / float64(len(items))
	}
	return s
}
