package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/caselabel/internal/calibration"
)

var (
	calibrateJSON      bool
	calibrateThreshold float64
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Report inter-rater agreement on the calibration pool",
	Long: `Calibrate compares the primary categories chosen by different raters on
every calibration case with two or more raters. Agreement is the mean
pairwise Jaccard similarity; a case is in conflict when it falls below the
threshold. When a rater labelled a case more than once, the latest label counts.

Example:
  caselabel calibrate
  caselabel calibrate --threshold 0.6 --json`,
	Args: cobra.NoArgs,
	RunE: runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	calibrateCmd.Flags().BoolVar(&calibrateJSON, "json", false, "print statistics as JSON")
	calibrateCmd.Flags().Float64Var(&calibrateThreshold, "threshold", -1, "conflict threshold (default: calibration.conflict_threshold)")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	threshold := cfg.Calibration.ConflictThreshold
	if calibrateThreshold >= 0 {
		threshold = calibrateThreshold
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	pool, err := s.CalibrationPool(cmdContext(cmd))
	if err != nil {
		return err
	}

	stats := calibration.NewEngine(threshold).PoolStatistics(pool)

	out := cmd.OutOrStdout()
	if calibrateJSON {
		return printJSON(out, stats)
	}

	fmt.Fprintf(out, "Calibration cases:       %d\n", stats.TotalCalibrationCases)
	fmt.Fprintf(out, "With multiple raters:    %d\n", stats.CasesWithMultipleLabels)
	fmt.Fprintf(out, "Average agreement:       %.0f%%\n", stats.AverageAgreement*100)
	fmt.Fprintf(out, "Conflicts (< %.2f):      %d\n", threshold, stats.ConflictCount)

	if len(stats.Cases) > 0 {
		fmt.Fprintln(out)
		for _, c := range stats.Cases {
			marker := " "
			if c.Metrics.HasConflict {
				marker = "!"
			}
			disputed := ""
			if len(c.Metrics.DisputedCategories) > 0 {
				disputed = "  disputed: " + strings.Join(c.Metrics.DisputedCategories, ", ")
			}
			fmt.Fprintf(out, "%s %-36s %3d%%  raters=%d%s\n", marker, c.CaseID, c.Metrics.AgreementPercent, c.Metrics.Raters, disputed)
		}
	}

	return nil
}
