package query

import (
	"fmt"
	"strings"
)

// BreadthClass buckets a breadth score into an actionable classification.
type BreadthClass string

// Breadth classifications.
const (
	// BreadthTooNarrow marks queries likely to return too few results.
	BreadthTooNarrow BreadthClass = "too_narrow"

	// BreadthOptimal marks queries in the useful middle range.
	BreadthOptimal BreadthClass = "optimal"

	// BreadthTooBroad marks queries likely to drown relevant results.
	BreadthTooBroad BreadthClass = "too_broad"
)

// Classification thresholds on the breadth score.
const (
	narrowThreshold = 0.4
	broadThreshold  = 0.6
)

// BreadthAnalysis is the result of analyzing a query's breadth.
type BreadthAnalysis struct {
	// Score estimates how broad the query is, in [0,1].
	Score float64

	// Classification buckets the score.
	Classification BreadthClass

	// Reasoning explains the classification.
	Reasoning string

	// Suggestions are actionable changes for non-optimal queries.
	Suggestions []string
}

// genericTerms are common low-signal terms that widen a query.
var genericTerms = map[string]struct{}{
	"data": {}, "analysis": {}, "research": {}, "study": {}, "studies": {},
	"system": {}, "systems": {}, "model": {}, "models": {}, "method": {},
	"methods": {}, "approach": {}, "approaches": {}, "information": {},
	"technology": {}, "science": {}, "theory": {}, "process": {},
	"design": {}, "development": {}, "application": {}, "applications": {},
	"review": {}, "overview": {}, "general": {}, "new": {}, "modern": {},
}

// AnalyzeBreadth estimates how broad a query is. The score grows with the
// number of terms and with the share of generic terms, and shrinks with
// quoted multi-word exact phrases.
func AnalyzeBreadth(query string) BreadthAnalysis {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		return BreadthAnalysis{
			Score:          0,
			Classification: BreadthTooNarrow,
			Reasoning:      "the query contains no searchable terms",
			Suggestions:    []string{"add at least one keyword or topic term"},
		}
	}

	var generic, quotedPhrases int
	for _, t := range terms {
		if _, ok := genericTerms[strings.ToLower(t.text)]; ok {
			generic++
		}
		if t.quoted && strings.Contains(t.text, " ") {
			quotedPhrases++
		}
	}

	n := float64(len(terms))
	score := 0.1 + 0.07*n
	score += 0.2 * float64(generic) / n
	score -= 0.15 * float64(quotedPhrases) / n
	score = clamp01(score)

	analysis := BreadthAnalysis{Score: score}
	switch {
	case score < narrowThreshold:
		analysis.Classification = BreadthTooNarrow
		analysis.Reasoning = fmt.Sprintf(
			"the query has only %d term(s), %d of them quoted exact phrases, which restricts matching",
			len(terms), quotedPhrases)
		analysis.Suggestions = []string{
			"add a broader related term joined with OR",
			"relax an exact phrase by removing its quotes",
		}
	case score > broadThreshold:
		analysis.Classification = BreadthTooBroad
		analysis.Reasoning = fmt.Sprintf(
			"the query has %d terms, %d of them generic, which widens matching",
			len(terms), generic)
		analysis.Suggestions = []string{
			"add a qualifying term to focus the query",
			"quote key multi-word phrases for exact matching",
			"remove generic terms that do not discriminate",
		}
	default:
		analysis.Classification = BreadthOptimal
		analysis.Reasoning = fmt.Sprintf(
			"the query balances %d specific and generic terms", len(terms))
	}
	return analysis
}

// queryTerm is one searchable unit of a query, with quoting preserved.
type queryTerm struct {
	text   string
	quoted bool
}

// booleanOperators are skipped during tokenization.
var booleanOperators = map[string]struct{}{
	"AND": {}, "OR": {}, "NOT": {},
}

// tokenizeQuery splits a query into terms. A quoted phrase counts as a
// single term; boolean operators and parentheses are structural, not terms.
func tokenizeQuery(query string) []queryTerm {
	var terms []queryTerm
	var current strings.Builder
	inQuotes := false

	flush := func(quoted bool) {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text == "" {
			return
		}
		if _, op := booleanOperators[text]; op && !quoted {
			return
		}
		terms = append(terms, queryTerm{text: text, quoted: quoted})
	}

	for _, r := range query {
		switch {
		case r == '"':
			if inQuotes {
				flush(true)
			} else {
				flush(false)
			}
			inQuotes = !inQuotes
		case !inQuotes && (r == ' ' || r == '(' || r == ')' || r == '\t' || r == '\n'):
			flush(false)
		default:
			current.WriteRune(r)
		}
	}
	flush(inQuotes)

	return terms
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
