package feedback

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/dedup"
	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// Learner aggregation constants.
const (
	// MinPatternEvents is the minimum accept/reject history needed before a
	// pattern influences ranking.
	MinPatternEvents = 3

	// confidenceSaturation is the event count at which learning confidence
	// reaches 1.
	confidenceSaturation = 50

	// preferredAuthorBoost through rejectedKeywordPenalty adjust a result's
	// overall score during feedback-based re-ranking.
	preferredAuthorBoost   = 0.10
	preferredJournalBoost  = 0.05
	yearRangeBoost         = 0.05
	citationRangeBoost     = 0.05
	topicWeightFactor      = 0.10
	rejectedAuthorPenalty  = 0.15
	rejectedJournalPenalty = 0.10
	rejectedKeywordPenalty = 0.05
)

// Learner derives per-user preference patterns from the feedback history and
// applies them as a boost/penalty re-ranking. Patterns are recomputed on
// demand, never kept continuously in memory.
type Learner struct {
	store  Store
	logger zerolog.Logger
}

// NewLearner creates a feedback learner backed by the given store.
func NewLearner(store Store, logger zerolog.Logger) *Learner {
	return &Learner{
		store:  store,
		logger: logger.With().Str("component", "feedback-learner").Logger(),
	}
}

// Pattern aggregates the user's accepted vs rejected results into a
// preference pattern. A user with no accept/reject history yields a pattern
// with SampleSize 0, which ApplyRanking treats as a no-op.
func (l *Learner) Pattern(ctx context.Context, userID string) (*domain.UserPreferencePattern, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user id is required")
	}

	events, err := l.store.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("loading feedback history: %w", err)
	}

	pattern := &domain.UserPreferencePattern{
		UserID:       userID,
		TopicWeights: make(map[string]float64),
	}

	authorCounts := make(map[string]int)
	journalCounts := make(map[string]int)
	rejectedAuthorCounts := make(map[string]int)
	rejectedJournalCounts := make(map[string]int)
	rejectedKeywordCounts := make(map[string]int)
	topicCounts := make(map[string]int)

	var positives int
	for i := range events {
		e := &events[i]
		switch {
		case e.Action.IsPositive():
			positives++
			pattern.SampleSize++
			for _, a := range e.Result.Authors {
				if name := dedup.NormalizeName(a); name != "" {
					authorCounts[name]++
				}
			}
			if j := domain.NormalizeKeyword(e.Result.Journal); j != "" {
				journalCounts[j]++
			}
			for _, k := range e.Result.Keywords {
				if norm := domain.NormalizeKeyword(k); norm != "" {
					topicCounts[norm]++
				}
			}
			extendRange(&pattern.YearRange, e.Result.Year)
			extendRange(&pattern.CitationRange, e.Result.Citations)
		case e.Action.IsNegative():
			pattern.SampleSize++
			for _, a := range e.Result.Authors {
				if name := dedup.NormalizeName(a); name != "" {
					rejectedAuthorCounts[name]++
				}
			}
			if j := domain.NormalizeKeyword(e.Result.Journal); j != "" {
				rejectedJournalCounts[j]++
			}
			for _, k := range e.Result.Keywords {
				if norm := domain.NormalizeKeyword(k); norm != "" {
					rejectedKeywordCounts[norm]++
				}
			}
		}
	}

	pattern.PreferredAuthors = sortedKeys(authorCounts)
	pattern.PreferredJournals = sortedKeys(journalCounts)

	// Anything both accepted and rejected stays out of the rejection lists.
	pattern.RejectedAuthors = sortedKeysExcluding(rejectedAuthorCounts, authorCounts)
	pattern.RejectedJournals = sortedKeysExcluding(rejectedJournalCounts, journalCounts)
	pattern.RejectedKeywords = sortedKeysExcluding(rejectedKeywordCounts, topicCounts)

	if positives > 0 {
		for topic, count := range topicCounts {
			pattern.TopicWeights[topic] = float64(count) / float64(positives)
		}
	}

	pattern.QualityThreshold = 0.4
	pattern.RelevanceThreshold = 0.3

	l.logger.Debug().
		Str("user_id", userID).
		Int("sample_size", pattern.SampleSize).
		Int("preferred_authors", len(pattern.PreferredAuthors)).
		Msg("preference pattern computed")

	return pattern, nil
}

// ApplyRanking re-scores ranked results using the pattern as a boost or
// penalty on the existing overall score, then re-sorts and re-ranks. It
// never adds or removes entries. Patterns with too little history leave the
// input untouched.
func (l *Learner) ApplyRanking(results []domain.RankedResult, pattern *domain.UserPreferencePattern) []domain.RankedResult {
	if pattern == nil || pattern.SampleSize < MinPatternEvents || len(results) == 0 {
		return results
	}

	adjusted := make([]domain.RankedResult, len(results))
	copy(adjusted, results)

	for i := range adjusted {
		delta := l.scoreAdjustment(&adjusted[i].Result, pattern)
		adjusted[i].OverallScore = clamp01(adjusted[i].OverallScore + delta)
	}

	sort.SliceStable(adjusted, func(i, j int) bool {
		return adjusted[i].OverallScore > adjusted[j].OverallScore
	})
	for i := range adjusted {
		adjusted[i].Rank = i + 1
	}

	return adjusted
}

// scoreAdjustment computes the boost/penalty delta for one result.
func (l *Learner) scoreAdjustment(r *domain.ScholarResult, pattern *domain.UserPreferencePattern) float64 {
	var delta float64

	if matchesAuthor(r.Authors, pattern.PreferredAuthors) {
		delta += preferredAuthorBoost
	}
	if matchesAuthor(r.Authors, pattern.RejectedAuthors) {
		delta -= rejectedAuthorPenalty
	}

	journal := domain.NormalizeKeyword(r.Journal)
	if journal != "" {
		if containsString(pattern.PreferredJournals, journal) {
			delta += preferredJournalBoost
		}
		if containsString(pattern.RejectedJournals, journal) {
			delta -= rejectedJournalPenalty
		}
	}

	var topicWeight float64
	for _, k := range r.Keywords {
		norm := domain.NormalizeKeyword(k)
		if w, ok := pattern.TopicWeights[norm]; ok {
			topicWeight += w
		}
		if containsString(pattern.RejectedKeywords, norm) {
			delta -= rejectedKeywordPenalty
		}
	}
	delta += math.Min(topicWeight, 1) * topicWeightFactor

	if r.Year > 0 && !isZeroRange(pattern.YearRange) && pattern.YearRange.Contains(r.Year) {
		delta += yearRangeBoost
	}
	if !isZeroRange(pattern.CitationRange) && pattern.CitationRange.Contains(r.Citations) {
		delta += citationRangeBoost
	}

	return delta
}

// Metrics summarizes a user's feedback history for observability.
func (l *Learner) Metrics(ctx context.Context, userID string) (*domain.LearningMetrics, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user id is required")
	}

	events, err := l.store.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("loading feedback history: %w", err)
	}

	metrics := &domain.LearningMetrics{}
	var rated []bool // chronological accept(true)/reject(false)
	for i := range events {
		switch {
		case events[i].Action.IsPositive():
			metrics.PositiveFeedback++
			rated = append(rated, true)
		case events[i].Action.IsNegative():
			metrics.NegativeFeedback++
			rated = append(rated, false)
		}
	}
	metrics.TotalFeedback = len(events)

	if n := metrics.PositiveFeedback + metrics.NegativeFeedback; n > 0 {
		metrics.AverageRating = float64(metrics.PositiveFeedback) / float64(n)
		metrics.ImprovementTrend = improvementTrend(rated)
		metrics.ConfidenceLevel = math.Min(float64(n)/confidenceSaturation, 1)
	}

	return metrics, nil
}

// improvementTrend compares the acceptance rate of the newer half of the
// history against the older half. Positive values mean the user accepts more
// of what they see over time.
func improvementTrend(rated []bool) float64 {
	if len(rated) < 4 {
		return 0
	}

	half := len(rated) / 2
	older := acceptanceRate(rated[:half])
	newer := acceptanceRate(rated[half:])
	return newer - older
}

func acceptanceRate(rated []bool) float64 {
	if len(rated) == 0 {
		return 0
	}
	var accepted int
	for _, ok := range rated {
		if ok {
			accepted++
		}
	}
	return float64(accepted) / float64(len(rated))
}

func matchesAuthor(authors []string, patternAuthors []string) bool {
	if len(authors) == 0 || len(patternAuthors) == 0 {
		return false
	}
	for _, a := range authors {
		name := dedup.NormalizeName(a)
		for _, p := range patternAuthors {
			if name == p {
				return true
			}
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func extendRange(r *domain.IntRange, v int) {
	if v == 0 {
		return
	}
	if r.Min == 0 || v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

func isZeroRange(r domain.IntRange) bool {
	return r.Min == 0 && r.Max == 0
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysExcluding(counts map[string]int, excluded map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		if _, ok := excluded[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
