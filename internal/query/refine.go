package query

import (
	"context"
	"strings"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// maxRefinedVariants caps the refined query variants per refinement.
const maxRefinedVariants = 5

// RefinementTag labels how a refined variant differs from the original.
type RefinementTag string

// Refinement variant tags.
const (
	RefinementBroadened         RefinementTag = "broadened"
	RefinementNarrowed          RefinementTag = "narrowed"
	RefinementAcademicEnhanced  RefinementTag = "academic_enhanced"
	RefinementOperatorOptimized RefinementTag = "operator_optimized"
)

// ExpectedResults is the expected direction of the result count change.
type ExpectedResults string

// Expected result count directions.
const (
	ExpectFewer   ExpectedResults = "fewer"
	ExpectSimilar ExpectedResults = "similar"
	ExpectMore    ExpectedResults = "more"
)

// ChangeKind classifies one structural edit in a refined variant.
type ChangeKind string

// Change kinds.
const (
	ChangeAdded     ChangeKind = "added"
	ChangeRemoved   ChangeKind = "removed"
	ChangeReplaced  ChangeKind = "replaced"
	ChangeReordered ChangeKind = "reordered"
)

// QueryChange is one structural edit applied to produce a refined variant.
type QueryChange struct {
	// Kind classifies the edit.
	Kind ChangeKind

	// Element is the term or operator the edit touched.
	Element string

	// Reasoning explains why the edit helps.
	Reasoning string
}

// Recommendation is a prioritized optimization with a before/after pair.
// Lower priority values rank higher.
type Recommendation struct {
	// Priority ranks the recommendation; 1 is most important.
	Priority int

	// Description says what to change and why.
	Description string

	// Before is the query as given.
	Before string

	// After is the recommended replacement query.
	After string
}

// RefinedQuery is one alternative formulation of the original query.
type RefinedQuery struct {
	// Query is the refined query string.
	Query string

	// Tag labels the kind of refinement applied.
	Tag RefinementTag

	// Confidence estimates how likely the variant improves results, in [0,1].
	Confidence float64

	// ExpectedResults is the expected direction of the result count change.
	ExpectedResults ExpectedResults

	// Changes is the structured edit log producing this variant.
	Changes []QueryChange
}

// Refinement is the full analysis of a query against its source content.
type Refinement struct {
	// Breadth is the breadth analysis of the original query.
	Breadth BreadthAnalysis

	// Alternatives are the five alternative term pools.
	Alternatives AlternativeTerms

	// Validation reports structural issues with the original query.
	Validation ValidationResult

	// Recommendations are prioritized optimizations with before/after pairs.
	Recommendations []Recommendation

	// Variants are up to five refined query formulations.
	Variants []RefinedQuery
}

// Refine analyzes a query against its source content and produces breadth
// analysis, alternative terms, validation results, prioritized
// recommendations, and refined query variants. The original query is never
// mutated; every variant is a new value.
func (g *Generator) Refine(ctx context.Context, query string, contents []domain.ExtractedContent) (*Refinement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewValidationError("query", "query must not be empty")
	}

	terms := tokenizeQuery(query)
	termTexts := make([]string, len(terms))
	for i, t := range terms {
		termTexts[i] = t.text
	}

	ref := &Refinement{
		Breadth:      AnalyzeBreadth(query),
		Alternatives: GenerateAlternativeTerms(termTexts, contents),
		Validation:   Validate(query),
	}

	ref.Variants = g.buildVariants(query, ref)
	ref.Recommendations = buildRecommendations(query, ref)

	g.logger.Debug().
		Str("classification", string(ref.Breadth.Classification)).
		Int("variants", len(ref.Variants)).
		Int("recommendations", len(ref.Recommendations)).
		Msg("query refined")

	return ref, nil
}

// buildVariants assembles up to maxRefinedVariants refined formulations from
// the alternative term pools and the query's structure.
func (g *Generator) buildVariants(query string, ref *Refinement) []RefinedQuery {
	var variants []RefinedQuery
	add := func(v RefinedQuery) {
		if len(variants) < maxRefinedVariants {
			variants = append(variants, v)
		}
	}

	if term := firstTerm(ref.Alternatives.Broader, ref.Alternatives.Synonyms); term != "" {
		confidence := 0.6
		if ref.Breadth.Classification == BreadthTooNarrow {
			confidence = 0.75
		}
		add(RefinedQuery{
			Query:           query + " OR " + quote(term),
			Tag:             RefinementBroadened,
			Confidence:      confidence,
			ExpectedResults: ExpectMore,
			Changes: []QueryChange{{
				Kind:      ChangeAdded,
				Element:   term,
				Reasoning: "a broader alternative joined with OR widens matching",
			}},
		})
	}

	if term := firstTerm(ref.Alternatives.Narrower, ref.Alternatives.Related); term != "" {
		confidence := 0.6
		if ref.Breadth.Classification == BreadthTooBroad {
			confidence = 0.75
		}
		add(RefinedQuery{
			Query:           query + " AND " + quote(term),
			Tag:             RefinementNarrowed,
			Confidence:      confidence,
			ExpectedResults: ExpectFewer,
			Changes: []QueryChange{{
				Kind:      ChangeAdded,
				Element:   term,
				Reasoning: "a qualifying term joined with AND focuses the query",
			}},
		})
	}

	if academicTerm := firstTerm(ref.Alternatives.Academic, nil); academicTerm != "" || ScoreAcademicRelevance(query) < AcademicRelevanceThreshold {
		if academicTerm == "" {
			academicTerm = "methodology"
		}
		add(RefinedQuery{
			Query:           query + " AND " + quote(academicTerm),
			Tag:             RefinementAcademicEnhanced,
			Confidence:      0.65,
			ExpectedResults: ExpectFewer,
			Changes: []QueryChange{{
				Kind:      ChangeAdded,
				Element:   academicTerm,
				Reasoning: "scholarly vocabulary targets academic literature",
			}},
		})
	}

	if isBareTermList(query) {
		terms := tokenizeQuery(query)
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = quote(t.text)
		}
		add(RefinedQuery{
			Query:           strings.Join(quoted, " AND "),
			Tag:             RefinementOperatorOptimized,
			Confidence:      0.7,
			ExpectedResults: ExpectFewer,
			Changes: []QueryChange{{
				Kind:      ChangeReplaced,
				Element:   "AND",
				Reasoning: "explicit boolean operators replace implicit term listing",
			}},
		})
	}

	// A synonym substitution keeps breadth roughly unchanged.
	if len(ref.Alternatives.Synonyms) > 0 {
		terms := tokenizeQuery(query)
		if len(terms) > 0 {
			original := terms[0].text
			synonym := ref.Alternatives.Synonyms[0]
			replaced := strings.Replace(query, original, synonym, 1)
			if replaced != query {
				add(RefinedQuery{
					Query:           replaced,
					Tag:             RefinementBroadened,
					Confidence:      0.55,
					ExpectedResults: ExpectSimilar,
					Changes: []QueryChange{{
						Kind:      ChangeReplaced,
						Element:   original,
						Reasoning: "a synonym phrasing reaches differently indexed papers",
					}},
				})
			}
		}
	}

	return variants
}

// buildRecommendations derives prioritized optimizations from the breadth
// classification, academic relevance, and validation results, pairing each
// with a concrete variant as the after query.
func buildRecommendations(query string, ref *Refinement) []Recommendation {
	var recs []Recommendation
	add := func(description string, tag RefinementTag) {
		after := query
		for _, v := range ref.Variants {
			if v.Tag == tag {
				after = v.Query
				break
			}
		}
		recs = append(recs, Recommendation{
			Priority:    len(recs) + 1,
			Description: description,
			Before:      query,
			After:       after,
		})
	}

	switch ref.Breadth.Classification {
	case BreadthTooNarrow:
		add("broaden the query with a related or more general term", RefinementBroadened)
	case BreadthTooBroad:
		add("narrow the query with a qualifying term", RefinementNarrowed)
	}

	if ScoreAcademicRelevance(query) < AcademicRelevanceThreshold {
		add("add scholarly vocabulary to target academic literature", RefinementAcademicEnhanced)
	}

	if isBareTermList(query) {
		add("structure the query with explicit boolean operators", RefinementOperatorOptimized)
	}

	for _, r := range ref.Validation.Recommendations {
		// The bare-term-list case already produced an operator recommendation.
		if strings.Contains(r, "boolean operators") {
			continue
		}
		add(r, RefinementOperatorOptimized)
	}

	return recs
}

// firstTerm returns the first term of the primary pool, falling back to the
// secondary pool.
func firstTerm(primary, secondary []string) string {
	if len(primary) > 0 {
		return primary[0]
	}
	if len(secondary) > 0 {
		return secondary[0]
	}
	return ""
}
