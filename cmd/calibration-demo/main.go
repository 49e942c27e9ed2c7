// Demo program for rater conflict detection on a small calibration pool
package main

import (
	"fmt"
	"strings"

	"github.com/ppiankov/caselabel/internal/calibration"
	"github.com/ppiankov/caselabel/internal/model"
)

func label(caseID, rater string, keys ...string) model.Label {
	primaries := make([]model.PrimaryCategory, len(keys))
	for i, k := range keys {
		primaries[i] = model.PrimaryCategory{Key: k, Rank: i + 1}
	}
	return model.Label{
		CaseID:         caseID,
		RaterID:        rater,
		LabelCandidate: model.LabelCandidate{PrimaryCategories: primaries},
	}
}

func main() {
	fmt.Println("=== Rater Agreement Demo ===")
	fmt.Println()

	pool := []model.CaseLabels{
		{
			Case: model.LabellingCase{ID: "sleepless", Text: "I lie awake every night replaying work.", IsCalibration: true},
			Labels: []model.Label{
				label("sleepless", "alice", "sleep", "stress"),
				label("sleepless", "bob", "stress", "sleep"),
			},
		},
		{
			Case: model.LabellingCase{ID: "breakup", Text: "Since we split up I can't get out of bed.", IsCalibration: true},
			Labels: []model.Label{
				label("breakup", "alice", "depression", "relationships"),
				label("breakup", "bob", "grief"),
				label("breakup", "carol", "depression"),
			},
		},
		{
			Case: model.LabellingCase{ID: "single", Text: "My chest tightens before every meeting.", IsCalibration: true},
			Labels: []model.Label{
				label("single", "alice", "anxiety"),
			},
		},
	}

	engine := calibration.NewEngine(calibration.DefaultConflictThreshold)

	for _, cl := range pool {
		fmt.Printf("Case: %s\n", cl.Case.ID)
		fmt.Println(strings.Repeat("-", 60))

		m := engine.ComputeAgreement(cl.Labels)
		switch {
		case !m.Comparable():
			fmt.Printf("  - Only %d rater(s), nothing to compare\n", m.Raters)
		case m.HasConflict:
			fmt.Printf("  ⚠️  CONFLICT DETECTED\n")
			fmt.Printf("     - Raters: %d (%d pairs)\n", m.Raters, m.Pairs)
			fmt.Printf("     - Agreement: %d%%\n", m.AgreementPercent)
			fmt.Printf("     - Disputed: %s\n", strings.Join(m.DisputedCategories, ", "))
		default:
			fmt.Printf("  ✓ Raters agree (%d%%)\n", m.AgreementPercent)
		}
		fmt.Println()
	}

	stats := engine.PoolStatistics(pool)
	fmt.Println("=== Pool ===")
	fmt.Printf("Calibration cases: %d\n", stats.TotalCalibrationCases)
	fmt.Printf("Multi-rater cases: %d\n", stats.CasesWithMultipleLabels)
	fmt.Printf("Average agreement: %.0f%%\n", stats.AverageAgreement*100)
	fmt.Printf("Conflicts:         %d\n", stats.ConflictCount)
}
