package approval

// InsightFunc derives human readable statements from a record and the
// approval probability, in a fixed order.
type InsightFunc func(r Record, probability float64) []string

// Insights produces the risk factors and recommendations attached to every
// prediction. Both lists fall back to a single default message.
type Insights struct {
	RiskFunc           InsightFunc
	RecommendationFunc InsightFunc
	NoRisks            string
	NoRecommendations  string
}

// Risks lists the triggered risk factors, never empty.
func (in Insights) Risks(r Record, probability float64) []string {
	return orDefault(in.RiskFunc, r, probability, in.NoRisks)
}

// Recommendations lists the triggered recommendations, never empty.
func (in Insights) Recommendations(r Record, probability float64) []string {
	return orDefault(in.RecommendationFunc, r, probability, in.NoRecommendations)
}

func orDefault(fn InsightFunc, r Record, probability float64, fallback string) []string {
	var out []string
	if fn != nil {
		out = fn(r, probability)
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}
