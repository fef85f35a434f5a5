package query

import (
	"strings"
)

// Query length bounds.
const (
	minQueryLength = 3
	maxQueryLength = 200
)

// ValidationResult reports structural issues with a query string.
type ValidationResult struct {
	// Valid is false when the query has at least one blocking issue.
	Valid bool

	// Issues are blocking problems with the query.
	Issues []string

	// Recommendations are non-blocking improvements.
	Recommendations []string
}

// Validate checks a query string for structural problems. Queries shorter
// than 3 or longer than 200 characters are invalid; a bare term list gets a
// boolean operator recommendation.
func Validate(query string) ValidationResult {
	trimmed := strings.TrimSpace(query)
	result := ValidationResult{Valid: true}

	if len(trimmed) < minQueryLength {
		result.Valid = false
		result.Issues = append(result.Issues,
			"query is too short to produce meaningful results (minimum 3 characters)")
	}
	if len(trimmed) > maxQueryLength {
		result.Valid = false
		result.Issues = append(result.Issues,
			"query exceeds 200 characters and may be truncated by the index")
	}
	if strings.Count(trimmed, `"`)%2 != 0 {
		result.Valid = false
		result.Issues = append(result.Issues, "query has an unbalanced quotation mark")
	}

	if result.Valid && isBareTermList(trimmed) {
		result.Recommendations = append(result.Recommendations,
			"join terms with boolean operators (AND, OR) to control matching")
	}

	return result
}

// isBareTermList reports whether the query is several terms with no boolean
// operators between them.
func isBareTermList(query string) bool {
	if strings.Contains(query, " AND ") || strings.Contains(query, " OR ") || strings.Contains(query, " NOT ") {
		return false
	}
	return len(tokenizeQuery(query)) >= 2
}
