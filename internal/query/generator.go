package query

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// MergeStrategy selects how terms from multiple content sources are combined.
type MergeStrategy string

// Merge strategies.
const (
	// MergeUnion keeps the deduplicated superset of all sources' terms, capped.
	MergeUnion MergeStrategy = "union"

	// MergeIntersection keeps only terms present in every source.
	MergeIntersection MergeStrategy = "intersection"

	// MergeWeighted draws terms proportionally to each source's confidence.
	MergeWeighted MergeStrategy = "weighted"
)

const (
	// DefaultMaxKeywords is the default keyword cap per query.
	DefaultMaxKeywords = 5

	// DefaultMaxTopics is the default topic cap per query.
	DefaultMaxTopics = 3

	// unionCapFactor widens the keyword cap for union merges, which keep
	// a superset of the individual sources' terms.
	unionCapFactor = 2
)

// Options controls query generation for one request.
type Options struct {
	// MaxKeywords caps the keywords included per query.
	MaxKeywords int

	// MaxTopics caps the topics included per query.
	MaxTopics int

	// MergeStrategy selects how multi-source terms are merged.
	// Defaults to MergeUnion.
	MergeStrategy MergeStrategy

	// OptimizeForAcademic appends an academic vocabulary alternative when
	// the generated query scores low on scholarly relevance.
	OptimizeForAcademic bool

	// IncludeAlternatives additionally emits one basic query per source
	// alongside the combined query.
	IncludeAlternatives bool
}

// Key returns the canonical string form of the options after defaulting.
// Option sets that generate the same queries share the same key, so cache
// entries keyed on it are never served across differing options.
func (o Options) Key() string {
	o = o.withDefaults()
	return strings.Join([]string{
		strconv.Itoa(o.MaxKeywords),
		strconv.Itoa(o.MaxTopics),
		string(o.MergeStrategy),
		strconv.FormatBool(o.OptimizeForAcademic),
		strconv.FormatBool(o.IncludeAlternatives),
	}, ":")
}

func (o Options) withDefaults() Options {
	if o.MaxKeywords <= 0 {
		o.MaxKeywords = DefaultMaxKeywords
	}
	if o.MaxTopics <= 0 {
		o.MaxTopics = DefaultMaxTopics
	}
	if o.MergeStrategy == "" {
		o.MergeStrategy = MergeUnion
	}
	return o
}

// Generator converts extracted content into search queries with breadth and
// academic-relevance analysis attached. Safe for concurrent use.
type Generator struct {
	defaults Options
	logger   zerolog.Logger
}

// NewGenerator creates a query generator. The given options act as defaults
// for calls that pass a zero-valued Options.
func NewGenerator(defaults Options, logger zerolog.Logger) *Generator {
	return &Generator{
		defaults: defaults.withDefaults(),
		logger:   logger.With().Str("component", "query-generator").Logger(),
	}
}

// Generate converts one or more content sources into an ordered list of
// search queries. A single source yields one basic query; multiple sources
// yield a combined query built with the configured merge strategy, plus one
// basic query per source when IncludeAlternatives is set.
func (g *Generator) Generate(ctx context.Context, contents []domain.ExtractedContent, opts Options) ([]domain.SearchQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, domain.NewValidationError("contents", "at least one content source is required")
	}
	for i := range contents {
		if !contents[i].HasTerms() {
			return nil, domain.NewValidationError("contents",
				fmt.Sprintf("source %q has neither keywords nor topics", contents[i].SourceID))
		}
	}

	opts = g.resolve(opts)

	if len(contents) == 1 {
		q := g.buildBasicQuery(contents[0], opts)
		return []domain.SearchQuery{q}, nil
	}

	combined, err := g.buildCombinedQuery(contents, opts)
	if err != nil {
		return nil, err
	}

	queries := []domain.SearchQuery{combined}
	if opts.IncludeAlternatives {
		for i := range contents {
			queries = append(queries, g.buildBasicQuery(contents[i], opts))
		}
	}

	g.logger.Debug().
		Int("sources", len(contents)).
		Int("queries", len(queries)).
		Str("strategy", string(opts.MergeStrategy)).
		Msg("queries generated")

	return queries, nil
}

// Combine merges existing queries into one combined query. A single query is
// returned unchanged; an empty input is a validation error.
func (g *Generator) Combine(ctx context.Context, queries []domain.SearchQuery, opts Options) (domain.SearchQuery, error) {
	switch len(queries) {
	case 0:
		return domain.SearchQuery{}, domain.NewValidationError("queries", "at least one query is required")
	case 1:
		return queries[0], nil
	}

	var contents []domain.ExtractedContent
	for _, q := range queries {
		contents = append(contents, q.Sources...)
	}
	if len(contents) == 0 {
		return domain.SearchQuery{}, domain.NewValidationError("queries", "queries carry no content sources to merge")
	}

	return g.buildCombinedQuery(contents, g.resolve(opts))
}

func (g *Generator) resolve(opts Options) Options {
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = g.defaults.MaxKeywords
	}
	if opts.MaxTopics <= 0 {
		opts.MaxTopics = g.defaults.MaxTopics
	}
	if opts.MergeStrategy == "" {
		opts.MergeStrategy = g.defaults.MergeStrategy
	}
	return opts
}

func (g *Generator) buildBasicQuery(content domain.ExtractedContent, opts Options) domain.SearchQuery {
	keywords := capTerms(dedupTerms(content.Keywords), opts.MaxKeywords)
	topics := capTerms(dedupTerms(content.Topics), opts.MaxTopics)

	return g.newQuery(
		buildQueryString(keywords, topics),
		[]domain.ExtractedContent{content},
		domain.QueryTypeBasic,
		content.Confidence,
		keywords, topics, opts,
	)
}

func (g *Generator) buildCombinedQuery(contents []domain.ExtractedContent, opts Options) (domain.SearchQuery, error) {
	var keywords []string
	switch opts.MergeStrategy {
	case MergeUnion:
		keywords = mergeUnion(contents, opts.MaxKeywords*unionCapFactor)
	case MergeIntersection:
		keywords = mergeIntersection(contents)
	case MergeWeighted:
		keywords = mergeWeighted(contents, opts.MaxKeywords)
	default:
		return domain.SearchQuery{}, domain.NewValidationError("merge_strategy",
			fmt.Sprintf("unknown merge strategy %q", opts.MergeStrategy))
	}

	topics := mergeTopics(contents, opts.MaxTopics)

	if len(keywords) == 0 && len(topics) == 0 {
		return domain.SearchQuery{}, domain.NewValidationError("contents",
			fmt.Sprintf("merge strategy %q produced no terms", opts.MergeStrategy))
	}

	var confidence float64
	for i := range contents {
		confidence += contents[i].Confidence
	}
	confidence /= float64(len(contents))

	q := g.newQuery(
		buildQueryString(keywords, topics),
		contents,
		domain.QueryTypeCombined,
		confidence,
		keywords, topics, opts,
	)
	return q, nil
}

// newQuery assembles a SearchQuery with its optimization record populated.
func (g *Generator) newQuery(queryString string, sources []domain.ExtractedContent, queryType domain.QueryType, confidence float64, keywords, topics []string, opts Options) domain.SearchQuery {
	breadth := AnalyzeBreadth(queryString)
	academic := ScoreAcademicRelevance(queryString)

	suggestions := append([]string(nil), breadth.Suggestions...)
	if academic < AcademicRelevanceThreshold {
		suggestions = append(suggestions, academicSuggestion)
	}

	return domain.SearchQuery{
		ID:         uuid.New(),
		Query:      queryString,
		Sources:    sources,
		QueryType:  queryType,
		Confidence: confidence,
		Keywords:   keywords,
		Topics:     topics,
		Optimization: domain.QueryOptimization{
			BreadthScore:       breadth.Score,
			SpecificityScore:   1 - breadth.Score,
			AcademicRelevance:  academic,
			Suggestions:        suggestions,
			AlternativeQueries: g.alternativeQueries(keywords, topics, academic, opts),
		},
		CreatedAt: time.Now(),
	}
}

// alternativeQueries emits ready-to-run variants of the generated query: a
// disjunctive form when the query carries several keywords, and an
// academically enriched form when the base query scores low.
func (g *Generator) alternativeQueries(keywords, topics []string, academic float64, opts Options) []string {
	var alts []string
	if len(keywords) >= 2 {
		alts = append(alts, buildDisjunctiveQueryString(keywords, topics))
	}
	if opts.OptimizeForAcademic && academic < AcademicRelevanceThreshold {
		base := buildQueryString(keywords, topics)
		alts = append(alts, base+` AND "methodology"`)
	}
	return alts
}

// buildQueryString joins quoted keywords with AND and appends the topics as
// a parenthesized OR group.
func buildQueryString(keywords, topics []string) string {
	var b strings.Builder
	for i, k := range keywords {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(quote(k))
	}
	if len(topics) > 0 {
		if b.Len() > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(topicGroup(topics))
	}
	return b.String()
}

// buildDisjunctiveQueryString joins quoted keywords with OR, keeping the
// topic group conjunctive.
func buildDisjunctiveQueryString(keywords, topics []string) string {
	var b strings.Builder
	b.WriteString("(")
	for i, k := range keywords {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString(quote(k))
	}
	b.WriteString(")")
	if len(topics) > 0 {
		b.WriteString(" AND ")
		b.WriteString(topicGroup(topics))
	}
	return b.String()
}

func topicGroup(topics []string) string {
	quoted := make([]string, len(topics))
	for i, t := range topics {
		quoted[i] = quote(t)
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}

func quote(term string) string {
	return `"` + strings.TrimSpace(term) + `"`
}

// mergeUnion collects each source's terms in order, deduplicated, up to cap.
func mergeUnion(contents []domain.ExtractedContent, cap int) []string {
	seen := make(map[string]struct{})
	var merged []string
	for i := range contents {
		for _, k := range contents[i].Keywords {
			norm := domain.NormalizeKeyword(k)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			merged = append(merged, strings.TrimSpace(k))
			if len(merged) >= cap {
				return merged
			}
		}
	}
	return merged
}

// mergeIntersection keeps the first source's terms that appear in every
// other source, compared case-insensitively.
func mergeIntersection(contents []domain.ExtractedContent) []string {
	if len(contents) == 0 {
		return nil
	}

	rest := make([]map[string]struct{}, 0, len(contents)-1)
	for i := 1; i < len(contents); i++ {
		set := make(map[string]struct{}, len(contents[i].Keywords))
		for _, k := range contents[i].Keywords {
			set[domain.NormalizeKeyword(k)] = struct{}{}
		}
		rest = append(rest, set)
	}

	var merged []string
	for _, k := range dedupTerms(contents[0].Keywords) {
		norm := domain.NormalizeKeyword(k)
		inAll := true
		for _, set := range rest {
			if _, ok := set[norm]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			merged = append(merged, k)
		}
	}
	return merged
}

// mergeWeighted allocates keyword slots proportionally to each source's
// confidence, guaranteeing every source at least one slot, then fills any
// remainder in source order.
func mergeWeighted(contents []domain.ExtractedContent, maxTerms int) []string {
	var sum float64
	for i := range contents {
		sum += math.Max(contents[i].Confidence, 0.05)
	}

	seen := make(map[string]struct{})
	var merged []string
	add := func(term string) bool {
		norm := domain.NormalizeKeyword(term)
		if norm == "" {
			return false
		}
		if _, ok := seen[norm]; ok {
			return false
		}
		seen[norm] = struct{}{}
		merged = append(merged, strings.TrimSpace(term))
		return true
	}

	for i := range contents {
		conf := math.Max(contents[i].Confidence, 0.05)
		slots := int(math.Round(conf / sum * float64(maxTerms)))
		if slots < 1 {
			slots = 1
		}
		taken := 0
		for _, k := range contents[i].Keywords {
			if taken >= slots || len(merged) >= maxTerms {
				break
			}
			if add(k) {
				taken++
			}
		}
	}

	// Fill leftover slots in source order.
	for i := range contents {
		if len(merged) >= maxTerms {
			break
		}
		for _, k := range contents[i].Keywords {
			if len(merged) >= maxTerms {
				break
			}
			add(k)
		}
	}
	return merged
}

func mergeTopics(contents []domain.ExtractedContent, cap int) []string {
	seen := make(map[string]struct{})
	var merged []string
	for i := range contents {
		for _, t := range contents[i].Topics {
			norm := domain.NormalizeKeyword(t)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			merged = append(merged, strings.TrimSpace(t))
			if len(merged) >= cap {
				return merged
			}
		}
	}
	return merged
}

func dedupTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		norm := domain.NormalizeKeyword(t)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, strings.TrimSpace(t))
	}
	return out
}

func capTerms(terms []string, n int) []string {
	if len(terms) <= n {
		return terms
	}
	return terms[:n]
}
