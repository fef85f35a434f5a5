package domain

import (
	"strings"
	"time"
)

// SourceType identifies the origin of a piece of extracted content.
type SourceType string

// Content source types.
const (
	// SourceTypeNote is content extracted from a user's standalone note.
	SourceTypeNote SourceType = "note"

	// SourceTypeDraft is content extracted from draft document text.
	SourceTypeDraft SourceType = "draft"

	// SourceTypeSelection is content extracted from a highlighted selection.
	SourceTypeSelection SourceType = "selection"

	// SourceTypeReference is content extracted from an existing reference entry.
	SourceTypeReference SourceType = "reference"
)

// IsValid returns true if the source type is one of the known origins.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeNote, SourceTypeDraft, SourceTypeSelection, SourceTypeReference:
		return true
	}
	return false
}

// ExtractedContent is one unit of source material provided by the caller.
// It is immutable once produced: the pipeline reads it but never mutates it.
type ExtractedContent struct {
	// SourceType identifies the origin of the content.
	SourceType SourceType

	// SourceID is the caller's identifier for the underlying source.
	SourceID string

	// Title is the human-readable title of the source, if any.
	Title string

	// Content is the normalized text of the source material.
	Content string

	// Keywords are derived search terms, ordered by salience and deduplicated.
	Keywords []string

	// KeyPhrases are longer derived phrases from the content.
	KeyPhrases []string

	// Topics are coarse subject labels derived from the content.
	Topics []string

	// Confidence is the extraction confidence in [0,1].
	Confidence float64

	// ExtractedAt records when the extraction was produced.
	ExtractedAt time.Time
}

// HasTerms returns true if the content carries at least one keyword or topic.
// Content without either cannot seed a search query.
func (c *ExtractedContent) HasTerms() bool {
	return len(c.Keywords) > 0 || len(c.Topics) > 0
}

// Terms returns the content's keywords followed by its topics, with
// case-insensitive duplicates removed while preserving order.
func (c *ExtractedContent) Terms() []string {
	seen := make(map[string]struct{}, len(c.Keywords)+len(c.Topics))
	terms := make([]string, 0, len(c.Keywords)+len(c.Topics))

	appendTerm := func(t string) {
		norm := NormalizeKeyword(t)
		if norm == "" {
			return
		}
		if _, ok := seen[norm]; ok {
			return
		}
		seen[norm] = struct{}{}
		terms = append(terms, strings.TrimSpace(t))
	}

	for _, k := range c.Keywords {
		appendTerm(k)
	}
	for _, t := range c.Topics {
		appendTerm(t)
	}
	return terms
}
