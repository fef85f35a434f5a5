// Package ranking scores search results against the content and queries
// that produced them, and assigns stable 1-based ranks.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// Weights combines the three sub-scores into the overall score. The weights
// are fixed configuration, not tunable at call time.
type Weights struct {
	Relevance  float64
	Quality    float64
	Confidence float64
}

// DefaultWeights is the standard sub-score weighting.
var DefaultWeights = Weights{
	Relevance:  0.5,
	Quality:    0.3,
	Confidence: 0.2,
}

// citationSaturation is the citation count at which the log-scaled citation
// score reaches 1.
const citationSaturation = 1000

// recencyHorizonYears is the paper age at which the recency score reaches 0.
const recencyHorizonYears = 25

// journalQualityMarkers are venue-name fragments treated as quality signals.
var journalQualityMarkers = []string{
	"nature", "science", "ieee", "acm", "springer", "elsevier",
	"journal of", "proceedings of", "transactions on", "neurips", "icml",
}

// Scorer computes relevance, quality, and confidence sub-scores for raw
// search results and ranks them. Safe for concurrent use.
type Scorer struct {
	weights Weights
	logger  zerolog.Logger
	now     func() time.Time
}

// NewScorer creates a scorer with the given weights. Zero-valued weights
// fall back to DefaultWeights.
func NewScorer(weights Weights, logger zerolog.Logger) *Scorer {
	if weights == (Weights{}) {
		weights = DefaultWeights
	}
	return &Scorer{
		weights: weights,
		logger:  logger.With().Str("component", "ranking-scorer").Logger(),
		now:     time.Now,
	}
}

// Rank scores each result against the originating content and queries, sorts
// descending by overall score, and assigns 1-based ranks. The sort is stable:
// equal overall scores preserve the input order.
func (s *Scorer) Rank(results []domain.ScholarResult, contents []domain.ExtractedContent, queries []domain.SearchQuery) []domain.RankedResult {
	ranked := make([]domain.RankedResult, 0, len(results))
	if len(results) == 0 {
		return ranked
	}

	terms := collectTerms(contents, queries)

	for i := range results {
		breakdown := s.score(&results[i], terms)

		relevance := 0.3*breakdown.TextSimilarity +
			0.3*breakdown.KeywordOverlap +
			0.2*breakdown.TopicOverlap +
			0.2*breakdown.SemanticSimilarity
		quality := 0.3*breakdown.CitationScore +
			0.25*breakdown.RecencyScore +
			0.15*breakdown.AuthorAuthority +
			0.15*breakdown.JournalQuality +
			0.15*breakdown.MetadataCompleteness
		confidence := 0.4*breakdown.MetadataCompleteness +
			0.3*breakdown.SourceReliability +
			0.3*breakdown.ExtractionQuality

		ranked = append(ranked, domain.RankedResult{
			Result:          results[i],
			RelevanceScore:  relevance,
			QualityScore:    quality,
			ConfidenceScore: confidence,
			OverallScore: s.weights.Relevance*relevance +
				s.weights.Quality*quality +
				s.weights.Confidence*confidence,
			Breakdown: breakdown,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallScore > ranked[j].OverallScore
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	s.logger.Debug().
		Int("results", len(ranked)).
		Float64("top_score", ranked[0].OverallScore).
		Msg("results ranked")

	return ranked
}

// queryTerms is the search context a result is scored against.
type queryTerms struct {
	keywords []string
	topics   []string
	text     string
}

func collectTerms(contents []domain.ExtractedContent, queries []domain.SearchQuery) queryTerms {
	var terms queryTerms
	seenKeyword := make(map[string]struct{})
	seenTopic := make(map[string]struct{})

	addKeyword := func(k string) {
		norm := domain.NormalizeKeyword(k)
		if norm == "" {
			return
		}
		if _, ok := seenKeyword[norm]; ok {
			return
		}
		seenKeyword[norm] = struct{}{}
		terms.keywords = append(terms.keywords, norm)
	}
	addTopic := func(t string) {
		norm := domain.NormalizeKeyword(t)
		if norm == "" {
			return
		}
		if _, ok := seenTopic[norm]; ok {
			return
		}
		seenTopic[norm] = struct{}{}
		terms.topics = append(terms.topics, norm)
	}

	var textParts []string
	for i := range contents {
		for _, k := range contents[i].Keywords {
			addKeyword(k)
		}
		for _, t := range contents[i].Topics {
			addTopic(t)
		}
		if contents[i].Content != "" {
			textParts = append(textParts, contents[i].Content)
		}
	}
	for i := range queries {
		for _, k := range queries[i].Keywords {
			addKeyword(k)
		}
		for _, t := range queries[i].Topics {
			addTopic(t)
		}
	}
	terms.text = strings.Join(textParts, " ")
	return terms
}

func (s *Scorer) score(r *domain.ScholarResult, terms queryTerms) domain.ScoringBreakdown {
	resultText := strings.ToLower(r.Title + " " + r.Abstract)

	return domain.ScoringBreakdown{
		TextSimilarity:       tokenOverlap(terms.text, resultText),
		KeywordOverlap:       termCoverage(terms.keywords, r, resultText),
		TopicOverlap:         termCoverage(terms.topics, r, resultText),
		SemanticSimilarity:   cosineSimilarity(terms.text+" "+strings.Join(terms.keywords, " "), resultText),
		CitationScore:        citationScore(r.Citations),
		RecencyScore:         s.recencyScore(r.Year),
		AuthorAuthority:      authorAuthority(r.Authors),
		JournalQuality:       journalQuality(r.Journal),
		MetadataCompleteness: metadataCompleteness(r),
		SourceReliability:    sourceReliability(r),
		ExtractionQuality:    extractionQuality(r),
	}
}

// termCoverage is the fraction of the given terms found in the result's
// title, abstract, or keyword list.
func termCoverage(terms []string, r *domain.ScholarResult, resultText string) float64 {
	if len(terms) == 0 {
		return 0
	}

	keywords := make(map[string]struct{}, len(r.Keywords))
	for _, k := range r.Keywords {
		keywords[domain.NormalizeKeyword(k)] = struct{}{}
	}

	var hits int
	for _, term := range terms {
		if _, ok := keywords[term]; ok {
			hits++
			continue
		}
		if strings.Contains(resultText, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// tokenOverlap is the Jaccard similarity of the two texts' token sets.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var shared int
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(setA)+len(setB)-shared)
}

// cosineSimilarity compares term-frequency vectors of the two texts. It is a
// cheap bag-of-words stand-in for semantic similarity.
func cosineSimilarity(a, b string) float64 {
	freqA := tokenFrequencies(a)
	freqB := tokenFrequencies(b)
	if len(freqA) == 0 || len(freqB) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for tok, fa := range freqA {
		normA += fa * fa
		if fb, ok := freqB[tok]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range freqB {
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func citationScore(citations int) float64 {
	if citations <= 0 {
		return 0
	}
	score := math.Log10(1+float64(citations)) / math.Log10(1+citationSaturation)
	if score > 1 {
		return 1
	}
	return score
}

func (s *Scorer) recencyScore(year int) float64 {
	if year <= 0 {
		return 0
	}
	age := s.now().Year() - year
	if age < 0 {
		age = 0
	}
	score := 1 - float64(age)/recencyHorizonYears
	if score < 0 {
		return 0
	}
	return score
}

// authorAuthority is a structural heuristic: named authors with full names
// signal a better-curated record, and collaboration adds a small boost.
func authorAuthority(authors []string) float64 {
	if len(authors) == 0 {
		return 0
	}

	score := 0.4
	score += 0.05 * math.Min(float64(len(authors)), 6)
	for _, a := range authors {
		if len(strings.Fields(a)) >= 2 {
			score += 0.2
			break
		}
	}
	if score > 1 {
		return 1
	}
	return score
}

func journalQuality(journal string) float64 {
	if strings.TrimSpace(journal) == "" {
		return 0
	}

	score := 0.5
	lower := strings.ToLower(journal)
	for _, marker := range journalQualityMarkers {
		if strings.Contains(lower, marker) {
			score += 0.3
			break
		}
	}
	return score
}

func metadataCompleteness(r *domain.ScholarResult) float64 {
	var present, total float64
	for _, ok := range []bool{
		r.Title != "",
		len(r.Authors) > 0,
		r.Journal != "",
		r.Year > 0,
		r.DOI != "",
		r.URL != "",
		r.Abstract != "",
		len(r.Keywords) > 0,
	} {
		total++
		if ok {
			present++
		}
	}
	return present / total
}

// sourceReliability reflects how verifiable the record is: a DOI makes the
// entry resolvable against the registry.
func sourceReliability(r *domain.ScholarResult) float64 {
	if r.DOI != "" {
		return 0.9
	}
	return 0.7
}

func extractionQuality(r *domain.ScholarResult) float64 {
	if r.Confidence > 0 {
		return r.Confidence
	}
	return 0.5
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, `.,;:"'()[]{}!?`)
		if len(tok) < 3 {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

func tokenFrequencies(text string) map[string]float64 {
	freq := make(map[string]float64)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, `.,;:"'()[]{}!?`)
		if len(tok) < 3 {
			continue
		}
		freq[tok]++
	}
	return freq
}
