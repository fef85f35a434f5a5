package query

import (
	"strings"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// Pool caps for alternative term generation.
const (
	maxSynonyms      = 10
	maxRelated       = 10
	maxBroader       = 8
	maxNarrower      = 8
	maxAcademicTerms = 6
)

// AlternativeTerms holds the five independent pools of alternative search
// terms derived for a query. Each pool is deduplicated case-insensitively
// within itself; cross-pool duplicate suppression is best-effort only.
type AlternativeTerms struct {
	// Synonyms are interchangeable phrasings of the query terms.
	Synonyms []string

	// Related are terms co-occurring with the query terms in the source content.
	Related []string

	// Broader are generalizations of the query terms.
	Broader []string

	// Narrower are specializations of the query terms.
	Narrower []string

	// Academic are scholarly reformulations of the query terms.
	Academic []string
}

// synonymTable maps normalized terms to known interchangeable phrasings.
var synonymTable = map[string][]string{
	"machine learning":            {"statistical learning", "automated learning"},
	"nlp":                         {"natural language processing", "computational linguistics"},
	"natural language processing": {"nlp", "computational linguistics"},
	"deep learning":               {"neural network learning", "representation learning"},
	"ai":                          {"artificial intelligence"},
	"artificial intelligence":     {"ai", "machine intelligence"},
	"neural networks":             {"artificial neural networks", "connectionist models"},
	"evaluation":                  {"assessment", "appraisal"},
	"analysis":                    {"examination", "assessment"},
	"method":                      {"technique", "procedure"},
	"methods":                     {"techniques", "procedures"},
	"model":                       {"framework", "formalism"},
	"data":                        {"dataset", "observations"},
	"classification":              {"categorization", "labeling"},
	"prediction":                  {"forecasting", "estimation"},
	"optimization":                {"optimisation", "tuning"},
}

// broaderTable maps normalized terms to their generalizations.
var broaderTable = map[string][]string{
	"machine learning":            {"artificial intelligence", "computer science"},
	"deep learning":               {"machine learning"},
	"neural networks":             {"machine learning"},
	"nlp":                         {"artificial intelligence", "linguistics"},
	"natural language processing": {"artificial intelligence", "linguistics"},
	"reinforcement learning":      {"machine learning"},
	"computer vision":             {"artificial intelligence"},
	"sentiment analysis":          {"natural language processing"},
	"text mining":                 {"data mining"},
	"data mining":                 {"data science"},
}

// narrowerTable maps normalized terms to their specializations.
var narrowerTable = map[string][]string{
	"machine learning":            {"supervised learning", "reinforcement learning", "transfer learning"},
	"artificial intelligence":     {"machine learning", "knowledge representation"},
	"deep learning":               {"convolutional neural networks", "transformers"},
	"nlp":                         {"named entity recognition", "machine translation"},
	"natural language processing": {"named entity recognition", "machine translation"},
	"neural networks":             {"recurrent neural networks", "graph neural networks"},
	"data mining":                 {"association rule mining", "anomaly detection"},
	"optimization":                {"convex optimization", "gradient descent"},
}

// GenerateAlternativeTerms derives the five alternative term pools for the
// given query terms. Related terms are drawn from terms co-occurring in the
// source content; the remaining pools come from curated tables plus
// morphological heuristics.
func GenerateAlternativeTerms(terms []string, contents []domain.ExtractedContent) AlternativeTerms {
	base := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		base[domain.NormalizeKeyword(t)] = struct{}{}
	}

	return AlternativeTerms{
		Synonyms: collectPool(terms, base, maxSynonyms, synonymsFor),
		Related:  relatedTerms(base, contents),
		Broader:  collectPool(terms, base, maxBroader, broaderFor),
		Narrower: collectPool(terms, base, maxNarrower, narrowerFor),
		Academic: collectPool(terms, base, maxAcademicTerms, academicVariantsFor),
	}
}

// collectPool runs the per-term expansion over all query terms, excluding
// the original terms and deduplicating case-insensitively, up to cap.
func collectPool(terms []string, base map[string]struct{}, cap int, expand func(string) []string) []string {
	seen := make(map[string]struct{})
	var pool []string
	for _, t := range terms {
		for _, candidate := range expand(t) {
			norm := domain.NormalizeKeyword(candidate)
			if norm == "" {
				continue
			}
			if _, orig := base[norm]; orig {
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			pool = append(pool, candidate)
			if len(pool) >= cap {
				return pool
			}
		}
	}
	return pool
}

func synonymsFor(term string) []string {
	norm := domain.NormalizeKeyword(term)
	out := append([]string(nil), synonymTable[norm]...)

	// Morphological fallback: swap singular and plural forms.
	switch {
	case strings.HasSuffix(norm, "ies"):
		out = append(out, strings.TrimSuffix(norm, "ies")+"y")
	case strings.HasSuffix(norm, "s") && !strings.HasSuffix(norm, "ss"):
		out = append(out, strings.TrimSuffix(norm, "s"))
	case norm != "":
		out = append(out, norm+"s")
	}
	return out
}

func broaderFor(term string) []string {
	norm := domain.NormalizeKeyword(term)
	out := append([]string(nil), broaderTable[norm]...)

	// A multi-word term generalizes to its head noun.
	if words := strings.Fields(norm); len(words) > 1 {
		out = append(out, words[len(words)-1])
	}
	return out
}

func narrowerFor(term string) []string {
	norm := domain.NormalizeKeyword(term)
	out := append([]string(nil), narrowerTable[norm]...)
	if norm != "" {
		out = append(out, norm+" techniques", norm+" applications")
	}
	return out
}

func academicVariantsFor(term string) []string {
	norm := domain.NormalizeKeyword(term)
	if norm == "" {
		return nil
	}
	return []string{
		norm + " methodology",
		"empirical study of " + norm,
		"systematic review of " + norm,
	}
}

// relatedTerms collects terms that co-occur with the query terms in the
// source content: keywords, key phrases, and topics not already in the query.
func relatedTerms(base map[string]struct{}, contents []domain.ExtractedContent) []string {
	seen := make(map[string]struct{})
	var pool []string
	add := func(candidate string) bool {
		norm := domain.NormalizeKeyword(candidate)
		if norm == "" {
			return false
		}
		if _, orig := base[norm]; orig {
			return false
		}
		if _, dup := seen[norm]; dup {
			return false
		}
		seen[norm] = struct{}{}
		pool = append(pool, strings.TrimSpace(candidate))
		return true
	}

	for i := range contents {
		for _, group := range [][]string{contents[i].Keywords, contents[i].KeyPhrases, contents[i].Topics} {
			for _, candidate := range group {
				if len(pool) >= maxRelated {
					return pool
				}
				add(candidate)
			}
		}
	}
	return pool
}
