package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueryType distinguishes queries built from one source from merged queries.
type QueryType string

// Query types.
const (
	// QueryTypeBasic is a query derived from a single content source.
	QueryTypeBasic QueryType = "basic"

	// QueryTypeCombined is a query merged from multiple content sources.
	QueryTypeCombined QueryType = "combined"
)

// QueryOptimization holds breadth/specificity analysis attached to a query.
type QueryOptimization struct {
	// BreadthScore estimates how broad the query is, in [0,1].
	BreadthScore float64

	// SpecificityScore is the complement estimate of how narrow the query is.
	SpecificityScore float64

	// AcademicRelevance scores the presence of scholarly vocabulary, in [0,1].
	AcademicRelevance float64

	// Suggestions are free-text, actionable optimization hints.
	Suggestions []string

	// AlternativeQueries are ready-to-run alternative query strings.
	AlternativeQueries []string
}

// SearchQuery is a generated search artifact. It is never mutated after
// creation; refinement produces new values instead.
type SearchQuery struct {
	// ID uniquely identifies the query.
	ID uuid.UUID

	// Query is the query string sent to the external index.
	Query string

	// Sources are the content units the query was derived from.
	Sources []ExtractedContent

	// QueryType is basic or combined.
	QueryType QueryType

	// Confidence is the generation confidence in [0,1].
	Confidence float64

	// Keywords are the keyword terms included in the query.
	Keywords []string

	// Topics are the topic terms included in the query.
	Topics []string

	// Optimization carries breadth/specificity analysis for the query.
	Optimization QueryOptimization

	// CreatedAt records when the query was generated.
	CreatedAt time.Time
}
