package query

import "strings"

// AcademicRelevanceThreshold is the score below which a query is considered
// to lack scholarly vocabulary.
const AcademicRelevanceThreshold = 0.3

// academicSuggestion is emitted for queries scoring below the threshold.
const academicSuggestion = `add academic terms such as "methodology" or "empirical" to target scholarly results`

// academicVocabulary is recognized scholarly vocabulary. Multi-word entries
// are matched as substrings of the lowercased query.
var academicVocabulary = []string{
	"methodology", "empirical", "systematic review", "meta-analysis",
	"framework", "quantitative", "qualitative", "hypothesis", "hypotheses",
	"literature review", "theoretical", "experiment", "experimental",
	"longitudinal", "peer-reviewed", "statistical", "survey", "evaluation",
	"case study", "randomized", "evidence-based", "taxonomy", "benchmark",
}

// ScoreAcademicRelevance scores the presence of scholarly vocabulary in a
// query. The score starts at a small base for any non-empty query and grows
// with each recognized term, capped at 1.
func ScoreAcademicRelevance(query string) float64 {
	lower := strings.ToLower(query)
	if strings.TrimSpace(lower) == "" {
		return 0
	}

	score := 0.15
	for _, term := range academicVocabulary {
		if strings.Contains(lower, term) {
			score += 0.2
		}
	}
	return clamp01(score)
}
