package dedup

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// DefaultAuthorThreshold is the author overlap above which two results with
// matching normalized titles are confirmed as duplicates.
const DefaultAuthorThreshold = 0.5

// Config holds the duplicate detector's thresholds.
type Config struct {
	// AuthorThreshold confirms title collisions; below it, two results with
	// the same normalized title but disjoint author lists stay separate.
	AuthorThreshold float64
}

// Detector groups near-identical results and collapses each group into its
// highest-scored member with merged supplementary metadata.
type Detector struct {
	cfg    Config
	logger zerolog.Logger
}

// NewDetector creates a duplicate detector.
func NewDetector(cfg Config, logger zerolog.Logger) *Detector {
	if cfg.AuthorThreshold <= 0 {
		cfg.AuthorThreshold = DefaultAuthorThreshold
	}
	return &Detector{
		cfg:    cfg,
		logger: logger.With().Str("component", "dedup-detector").Logger(),
	}
}

// Deduplicate collapses duplicate groups in the ranked results. Results
// sharing a DOI always group; results sharing a normalized title group when
// their author lists overlap above the threshold or either list is empty.
// Each group emits only its highest-scored member, carrying the union of the
// group's keywords and any metadata the primary was missing. When no groups
// are found the input is returned unchanged. The output never has more
// entries than the input.
func (d *Detector) Deduplicate(results []domain.RankedResult) []domain.RankedResult {
	if len(results) <= 1 {
		return results
	}

	groups := d.groupResults(results)

	merged := false
	for _, g := range groups {
		if len(g) > 1 {
			merged = true
			break
		}
	}
	if !merged {
		return results
	}

	out := make([]domain.RankedResult, 0, len(groups))
	var collapsed int
	for _, g := range groups {
		out = append(out, mergeGroup(results, g))
		collapsed += len(g) - 1
	}
	for i := range out {
		out[i].Rank = i + 1
	}

	d.logger.Debug().
		Int("input", len(results)).
		Int("output", len(out)).
		Int("duplicates_merged", collapsed).
		Msg("duplicates collapsed")

	return out
}

// groupResults partitions result indices into duplicate groups, preserving
// input order of each group's first member.
func (d *Detector) groupResults(results []domain.RankedResult) [][]int {
	var groups [][]int
	byDOI := make(map[string]int)
	byTitle := make(map[string][]int)

	for i := range results {
		r := &results[i].Result

		doi := strings.ToLower(strings.TrimSpace(r.DOI))
		title := domain.NormalizeKeyword(r.Title)

		groupIdx := -1
		if doi != "" {
			if g, ok := byDOI[doi]; ok {
				groupIdx = g
			}
		}
		if groupIdx < 0 && title != "" {
			for _, g := range byTitle[title] {
				first := &results[groups[g][0]].Result
				if d.sameWork(r, first) {
					groupIdx = g
					break
				}
			}
		}

		if groupIdx < 0 {
			groupIdx = len(groups)
			groups = append(groups, nil)
			if title != "" {
				byTitle[title] = append(byTitle[title], groupIdx)
			}
		}
		if doi != "" {
			byDOI[doi] = groupIdx
		}
		groups[groupIdx] = append(groups[groupIdx], i)
	}

	return groups
}

// sameWork confirms a normalized-title collision. Author lists that overlap
// above the threshold, or the absence of authors on either side, confirm;
// clearly disjoint author lists refute.
func (d *Detector) sameWork(a, b *domain.ScholarResult) bool {
	if len(a.Authors) == 0 || len(b.Authors) == 0 {
		return true
	}
	return AuthorOverlap(a.Authors, b.Authors) >= d.cfg.AuthorThreshold
}

// mergeGroup collapses one group into its highest-scored member, merging
// keyword supersets and filling metadata gaps from the other members.
func mergeGroup(results []domain.RankedResult, group []int) domain.RankedResult {
	best := group[0]
	for _, idx := range group[1:] {
		if results[idx].OverallScore > results[best].OverallScore {
			best = idx
		}
	}

	primary := results[best]
	if len(group) == 1 {
		return primary
	}

	seen := make(map[string]struct{}, len(primary.Result.Keywords))
	keywords := make([]string, 0, len(primary.Result.Keywords))
	addKeyword := func(k string) {
		norm := domain.NormalizeKeyword(k)
		if norm == "" {
			return
		}
		if _, ok := seen[norm]; ok {
			return
		}
		seen[norm] = struct{}{}
		keywords = append(keywords, strings.TrimSpace(k))
	}
	for _, k := range primary.Result.Keywords {
		addKeyword(k)
	}

	for _, idx := range group {
		if idx == best {
			continue
		}
		other := &results[idx].Result
		for _, k := range other.Keywords {
			addKeyword(k)
		}
		if primary.Result.DOI == "" {
			primary.Result.DOI = other.DOI
		}
		if primary.Result.Abstract == "" {
			primary.Result.Abstract = other.Abstract
		}
		if primary.Result.Journal == "" {
			primary.Result.Journal = other.Journal
		}
		if primary.Result.URL == "" {
			primary.Result.URL = other.URL
		}
		if primary.Result.Year == 0 {
			primary.Result.Year = other.Year
		}
		if primary.Result.Citations < other.Citations {
			primary.Result.Citations = other.Citations
		}
	}
	primary.Result.Keywords = keywords

	return primary
}
