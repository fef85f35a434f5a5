package domain

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters (spaces, tabs, newlines).
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeKeyword normalizes a term string by:
// - Converting to lowercase
// - Trimming leading/trailing whitespace
// - Collapsing multiple whitespace characters into a single space
//
// Normalized forms are used for deduplication of keywords, topics, result
// identities, and feedback aggregation keys.
func NormalizeKeyword(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")

	return s
}

// ComputeContentHash computes a deterministic SHA-256 hash over the given
// parts joined with a separator. It is the key function for all optimizer
// caches: identical semantic inputs always map to the same key.
func ComputeContentHash(parts ...string) string {
	raw := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", hash)
}
