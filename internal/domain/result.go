package domain

import "strings"

// ScholarResult is a single candidate paper as returned by the external
// scholarly index. It is treated as read-only external data.
type ScholarResult struct {
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Journal        string   `json:"journal"`
	Year           int      `json:"year"`
	Citations      int      `json:"citations"`
	DOI            string   `json:"doi"`
	URL            string   `json:"url"`
	Abstract       string   `json:"abstract"`
	Keywords       []string `json:"keywords"`
	Confidence     float64  `json:"confidence"`
	RelevanceScore float64  `json:"relevance_score"`
}

// Identity returns the dedup/feedback identity of the result: the lowercased
// DOI when present, otherwise the normalized title.
func (r *ScholarResult) Identity() string {
	if doi := strings.TrimSpace(r.DOI); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}
	return "title:" + NormalizeKeyword(r.Title)
}

// ScoringBreakdown exposes each sub-metric that contributed to a result's
// overall score.
type ScoringBreakdown struct {
	TextSimilarity       float64 `json:"text_similarity"`
	KeywordOverlap       float64 `json:"keyword_overlap"`
	TopicOverlap         float64 `json:"topic_overlap"`
	SemanticSimilarity   float64 `json:"semantic_similarity"`
	CitationScore        float64 `json:"citation_score"`
	RecencyScore         float64 `json:"recency_score"`
	AuthorAuthority      float64 `json:"author_authority"`
	JournalQuality       float64 `json:"journal_quality"`
	MetadataCompleteness float64 `json:"metadata_completeness"`
	SourceReliability    float64 `json:"source_reliability"`
	ExtractionQuality    float64 `json:"extraction_quality"`
}

// RankedResult augments a ScholarResult with computed sub-scores and a
// 1-based rank. Downstream stages may reorder ranked results but must not
// fabricate new entries.
type RankedResult struct {
	Result ScholarResult `json:"result"`

	RelevanceScore  float64 `json:"relevance_score"`
	QualityScore    float64 `json:"quality_score"`
	ConfidenceScore float64 `json:"confidence_score"`
	OverallScore    float64 `json:"overall_score"`

	// Rank is 1-based; ties are broken by stable input order.
	Rank int `json:"rank"`

	Breakdown ScoringBreakdown `json:"scoring_breakdown"`
}
