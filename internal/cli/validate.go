package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/caselabel/internal/validate"
)

var (
	validateTextLength int
	validateTextFile   string
)

var validateCmd = &cobra.Command{
	Use:   "validate <label.json|->",
	Short: "Check a label against the taxonomy without storing it",
	Long: `Validate reads a label in the persisted JSON shape and reports every
structural problem, tagged by field:

- 1 to 3 primary categories, known, unique, ranked 1..N
- subcategories and intensity valid for the category they are listed under
- related topics known, unique, not primary, at most 5
- at most 5 evidence snippets inside the case text

Evidence offsets need the case text length, given directly or via the text.

Example:
  caselabel validate label.json --text-length 240
  caselabel validate label.json --text-file case.txt
  cat label.json | caselabel validate - --text-length 240`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().IntVar(&validateTextLength, "text-length", -1, "case text length in characters")
	validateCmd.Flags().StringVar(&validateTextFile, "text-file", "", "file holding the case text")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	schema, err := loadSchema(cfg)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	label, err := decodeLabel(data)
	if err != nil {
		return err
	}

	textLength := validateTextLength
	if validateTextFile != "" {
		text, err := readInput(cmd, validateTextFile)
		if err != nil {
			return err
		}
		textLength = validate.TextLength(string(text))
	}
	if textLength < 0 {
		return fmt.Errorf("case text length is required (use --text-length or --text-file)")
	}

	result := validate.NewValidator(schema).Validate(label.LabelCandidate, textLength)
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("label is invalid: %d error(s)", len(result.Errors))
	}
	return nil
}
