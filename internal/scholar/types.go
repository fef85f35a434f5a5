package scholar

import (
	"strconv"
	"strings"
)

// Sort orders accepted by the external index.
const (
	SortByRelevance = "relevance"
	SortByDate      = "date"
)

// SearchFilters narrows a search against the external index.
// The zero value applies no filtering.
type SearchFilters struct {
	// YearFrom includes only papers published in or after this year.
	YearFrom int

	// YearTo includes only papers published in or before this year.
	YearTo int

	// SortBy orders results by relevance (default) or date.
	SortBy string

	// MaxResults caps the number of results returned. Zero uses the
	// client's configured default.
	MaxResults int
}

// Key returns a deterministic string form of the filters for cache keying.
func (f SearchFilters) Key() string {
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = SortByRelevance
	}
	return strings.Join([]string{
		strconv.Itoa(f.YearFrom),
		strconv.Itoa(f.YearTo),
		sortBy,
		strconv.Itoa(f.MaxResults),
	}, ":")
}

// Quota reports the remaining request quota in the limiter's sliding windows.
type Quota struct {
	RemainingMinute int `json:"remaining_minute"`
	RemainingHour   int `json:"remaining_hour"`
}
