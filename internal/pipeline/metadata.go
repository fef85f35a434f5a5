package pipeline

import (
	"strings"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// defaultSatisfactionEstimate is used when no feedback history informs the
// estimate.
const defaultSatisfactionEstimate = 0.5

// buildMetadata summarizes a completed search for the response envelope.
func buildMetadata(queryString string, results []domain.RankedResult, satisfaction float64) *SearchMetadata {
	if satisfaction <= 0 {
		satisfaction = defaultSatisfactionEstimate
	}
	return &SearchMetadata{
		QueryComplexity:          queryComplexity(queryString),
		ResultDiversity:          resultDiversity(results),
		UserSatisfactionEstimate: satisfaction,
		AverageResultQuality:     averageQuality(results),
	}
}

// queryComplexity maps term and operator counts to [0,1]. A single bare
// term scores near zero; a multi-term boolean query with grouping scores
// high.
func queryComplexity(queryString string) float64 {
	fields := strings.Fields(queryString)
	terms := 0
	operators := 0
	for _, f := range fields {
		switch f {
		case "AND", "OR", "NOT":
			operators++
		default:
			terms++
		}
	}

	score := 0.1*float64(terms) + 0.05*float64(operators)
	if strings.ContainsAny(queryString, "()") {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// resultDiversity is the ratio of distinct journals and first authors to
// result count. Identical sources across the set score low.
func resultDiversity(results []domain.RankedResult) float64 {
	if len(results) == 0 {
		return 0
	}

	journals := make(map[string]struct{})
	authors := make(map[string]struct{})
	for i := range results {
		if j := domain.NormalizeKeyword(results[i].Result.Journal); j != "" {
			journals[j] = struct{}{}
		}
		if len(results[i].Result.Authors) > 0 {
			authors[domain.NormalizeKeyword(results[i].Result.Authors[0])] = struct{}{}
		}
	}

	distinct := float64(len(journals)+len(authors)) / 2
	return distinct / float64(len(results))
}

func averageQuality(results []domain.RankedResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for i := range results {
		sum += results[i].QualityScore
	}
	return sum / float64(len(results))
}
