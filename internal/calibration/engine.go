package calibration

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/caselabel/internal/model"
)

// DefaultConflictThreshold is the mean Jaccard below which raters are in conflict
const DefaultConflictThreshold = 0.5

// Engine computes inter-rater agreement. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	ConflictThreshold float64
}

// NewEngine creates an engine. Thresholds outside [0,1] fall back to the default.
func NewEngine(conflictThreshold float64) *Engine {
	if math.IsNaN(conflictThreshold) || conflictThreshold < 0 || conflictThreshold > 1 {
		conflictThreshold = DefaultConflictThreshold
	}
	return &Engine{ConflictThreshold: conflictThreshold}
}

// Jaccard returns |A ∩ B| / |A ∪ B| over the distinct values of a and b.
// Two empty sets are identical, so their similarity is 1.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	intersection := 0
	for key := range setA {
		if _, ok := setB[key]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

// ComputeAgreement compares the primary categories of every pair of raters.
// A rater with several labels is represented by the last one, since a
// correction is filed as a new label.
func (e *Engine) ComputeAgreement(labels []model.Label) model.AgreementMetrics {
	sets := latestPerRater(labels)

	metrics := model.AgreementMetrics{
		Raters:             len(sets),
		DisputedCategories: []string{},
	}
	if len(sets) < 2 {
		return metrics
	}

	var total float64
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			total += Jaccard(sets[i], sets[j])
			metrics.Pairs++
		}
	}

	metrics.JaccardSimilarity = total / float64(metrics.Pairs)
	metrics.HasConflict = metrics.JaccardSimilarity < e.ConflictThreshold
	metrics.AgreementPercent = int(math.Round(metrics.JaccardSimilarity * 100))
	metrics.DisputedCategories = disputed(sets)

	return metrics
}

// PoolStatistics aggregates agreement over calibration cases. Cases without
// the calibration flag are ignored. CasesWithMultipleLabels counts cases with
// two or more distinct raters; a rater's correction replaces their earlier
// label, so two labels from one rater do not count. Only those cases
// contribute to the average.
func (e *Engine) PoolStatistics(cases []model.CaseLabels) model.PoolStatistics {
	stats := model.PoolStatistics{
		Cases: []model.CaseAgreement{},
	}

	var total float64
	for _, c := range cases {
		if !c.Case.IsCalibration {
			continue
		}
		stats.TotalCalibrationCases++

		metrics := e.ComputeAgreement(c.Labels)
		if !metrics.Comparable() {
			continue
		}

		stats.CasesWithMultipleLabels++
		total += metrics.JaccardSimilarity
		if metrics.HasConflict {
			stats.ConflictCount++
		}
		stats.Cases = append(stats.Cases, model.CaseAgreement{
			CaseID:  c.Case.ID,
			Metrics: metrics,
		})
	}

	if stats.CasesWithMultipleLabels > 0 {
		stats.AverageAgreement = total / float64(stats.CasesWithMultipleLabels)
	}

	return stats
}

// latestPerRater returns one primary key list per rater, in order of first
// appearance. Labels without a rater id count as separate anonymous raters.
func latestPerRater(labels []model.Label) [][]string {
	index := make(map[string]int)
	var sets [][]string

	for i, label := range labels {
		rater := strings.TrimSpace(label.RaterID)
		if rater == "" {
			rater = "\x00anonymous-" + strconv.Itoa(i)
		}

		keys := label.PrimaryKeys()
		if pos, ok := index[rater]; ok {
			sets[pos] = keys
			continue
		}
		index[rater] = len(sets)
		sets = append(sets, keys)
	}

	return sets
}

// disputed lists keys chosen by at least one rater but not by all of them
func disputed(sets [][]string) []string {
	counts := make(map[string]int)
	for _, keys := range sets {
		for key := range toSet(keys) {
			counts[key]++
		}
	}

	out := []string{}
	for key, n := range counts {
		if n < len(sets) {
			out = append(out, key)
		}
	}
	sort.Strings(out)

	return out
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}
