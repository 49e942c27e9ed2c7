package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/caselabel/internal/calibration"
	"github.com/ppiankov/caselabel/internal/model"
	"github.com/ppiankov/caselabel/internal/pipeline"
	"github.com/ppiankov/caselabel/internal/store"
	"github.com/ppiankov/caselabel/internal/validate"
)

var (
	caseFile        string
	caseCalibration bool
	caseSource      string

	listStatus      string
	listCalibration bool
	listLimit       int

	labelCase  string
	labelRater string
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage labelling cases",
}

var caseAddCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add a case",
	Long: `Add stores a new case in state NEW.

Example:
  caselabel case add "I keep fighting with my partner about money"
  caselabel case add --file case.txt --calibration`,
	RunE: runCaseAdd,
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cases",
	Args:  cobra.NoArgs,
	RunE:  runCaseList,
}

var caseShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a case with its labels and rater agreement",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaseShow,
}

var caseReviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Flag a case for review",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaseReview,
}

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Manage labels",
}

var labelAddCmd = &cobra.Command{
	Use:   "add <label.json|->",
	Short: "Validate a label and attach it to a case",
	Long: `Add validates a label against its case and stores it. Labels are never
changed once stored; to correct a label, add a new one. The first valid label
moves the case from NEW to LABELED.

Example:
  caselabel label add label.json --case 5f0c... --rater alice
  caselabel suggest --file case.txt | caselabel label add - --case 5f0c... --rater alice`,
	Args: cobra.ExactArgs(1),
	RunE: runLabelAdd,
}

func init() {
	rootCmd.AddCommand(caseCmd)
	caseCmd.AddCommand(caseAddCmd, caseListCmd, caseShowCmd, caseReviewCmd)

	caseAddCmd.Flags().StringVarP(&caseFile, "file", "f", "", "read case text from file ('-' for stdin)")
	caseAddCmd.Flags().BoolVar(&caseCalibration, "calibration", false, "add the case to the calibration pool")
	caseAddCmd.Flags().StringVar(&caseSource, "source", string(model.CaseSourceManual), "case source (MANUAL, IMPORTED, AI)")

	caseListCmd.Flags().StringVar(&listStatus, "status", "", "only cases in this status (NEW, LABELED, REVIEW)")
	caseListCmd.Flags().BoolVar(&listCalibration, "calibration", false, "only calibration cases")
	caseListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of cases")

	rootCmd.AddCommand(labelCmd)
	labelCmd.AddCommand(labelAddCmd)

	labelAddCmd.Flags().StringVar(&labelCase, "case", "", "case id (overrides caseId in the document)")
	labelAddCmd.Flags().StringVar(&labelRater, "rater", "", "rater id (overrides raterId in the document)")
}

func runCaseAdd(cmd *cobra.Command, args []string) error {
	text, err := textArg(cmd, args, caseFile)
	if err != nil {
		return err
	}

	source := model.CaseSource(strings.ToUpper(caseSource))
	switch source {
	case model.CaseSourceManual, model.CaseSourceImported, model.CaseSourceAI:
	default:
		return fmt.Errorf("unknown case source %q", caseSource)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	c := &model.LabellingCase{Text: text, IsCalibration: caseCalibration, Source: source}
	if err := s.CreateCase(cmdContext(cmd), c); err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), c)
}

func runCaseList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	cases, err := s.ListCases(cmdContext(cmd), store.CaseFilter{
		Status:          model.CaseStatus(strings.ToUpper(listStatus)),
		CalibrationOnly: listCalibration,
		Limit:           listLimit,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCALIBRATION\tSOURCE\tTEXT")
	for _, c := range cases {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", c.ID, c.Status, c.IsCalibration, c.Source, preview(c.Text, 60))
	}
	return tw.Flush()
}

func runCaseShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx := cmdContext(cmd)
	c, err := s.GetCase(ctx, args[0])
	if err != nil {
		return err
	}
	labels, err := s.LabelsForCase(ctx, c.ID)
	if err != nil {
		return err
	}

	out := struct {
		model.CaseLabels
		Agreement model.AgreementMetrics `json:"agreement"`
	}{
		CaseLabels: model.CaseLabels{Case: *c, Labels: labels},
		Agreement:  calibration.NewEngine(cfg.Calibration.ConflictThreshold).ComputeAgreement(labels),
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runCaseReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.SetStatus(cmdContext(cmd), args[0], model.CaseStatusReview); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Case %s flagged for review\n", args[0])
	return nil
}

func runLabelAdd(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	label, err := decodeLabelOrSuggestion(data)
	if err != nil {
		return err
	}
	if labelCase != "" {
		label.CaseID = labelCase
	}
	if labelRater != "" {
		label.RaterID = labelRater
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	schema, err := loadSchema(cfg)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	wf := pipeline.NewWorkflow(s, validate.NewValidator(schema), logger)
	stored, err := wf.SubmitLabel(cmdContext(cmd), label)

	var verr *pipeline.ValidationError
	if errors.As(err, &verr) {
		if perr := printJSON(cmd.OutOrStdout(), verr.Result); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), stored)
}

// decodeLabelOrSuggestion accepts a label document or the output of
// "caselabel suggest", whose uncertainty flag is named uncertainSuggested
func decodeLabelOrSuggestion(data []byte) (model.Label, error) {
	label, err := decodeLabel(data)
	if err == nil {
		return label, nil
	}

	suggestion, serr := decodeSuggestion(data)
	if serr != nil {
		return model.Label{}, err
	}
	return model.Label{
		LabelCandidate: suggestion.LabelCandidate,
		Uncertain:      suggestion.Uncertain,
		Rationale:      suggestion.Rationale,
	}, nil
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
