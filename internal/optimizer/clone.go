package optimizer

import "github.com/inkwell-ai/scholar-discovery/internal/domain"

// Clone functions for the cached value types. Each produces a fully
// independent copy, including nested slices, so cache reads are safe to
// mutate.

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneResult(r domain.ScholarResult) domain.ScholarResult {
	r.Authors = cloneStrings(r.Authors)
	r.Keywords = cloneStrings(r.Keywords)
	return r
}

// CloneRankedResults deep-copies a ranked result list.
func CloneRankedResults(in []domain.RankedResult) []domain.RankedResult {
	if in == nil {
		return nil
	}
	out := make([]domain.RankedResult, len(in))
	for i, r := range in {
		r.Result = cloneResult(r.Result)
		out[i] = r
	}
	return out
}

func cloneContent(c domain.ExtractedContent) domain.ExtractedContent {
	c.Keywords = cloneStrings(c.Keywords)
	c.KeyPhrases = cloneStrings(c.KeyPhrases)
	c.Topics = cloneStrings(c.Topics)
	return c
}

// CloneContents deep-copies an extracted content list.
func CloneContents(in []domain.ExtractedContent) []domain.ExtractedContent {
	if in == nil {
		return nil
	}
	out := make([]domain.ExtractedContent, len(in))
	for i, c := range in {
		out[i] = cloneContent(c)
	}
	return out
}

// CloneQueries deep-copies a generated query list.
func CloneQueries(in []domain.SearchQuery) []domain.SearchQuery {
	if in == nil {
		return nil
	}
	out := make([]domain.SearchQuery, len(in))
	for i, q := range in {
		q.Sources = CloneContents(q.Sources)
		q.Keywords = cloneStrings(q.Keywords)
		q.Topics = cloneStrings(q.Topics)
		q.Optimization.Suggestions = cloneStrings(q.Optimization.Suggestions)
		q.Optimization.AlternativeQueries = cloneStrings(q.Optimization.AlternativeQueries)
		out[i] = q
	}
	return out
}
