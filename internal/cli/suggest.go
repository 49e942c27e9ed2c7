package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/caselabel/internal/model"
	"github.com/ppiankov/caselabel/internal/pipeline"
	"github.com/ppiankov/caselabel/internal/validate"
)

var (
	suggestFile     string
	suggestProvider string
	suggestModel    string
	suggestNoCache  bool

	generateFocus       string
	generateSave        bool
	generateCalibration bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [case text...]",
	Short: "Ask the generative model for a label suggestion",
	Long: `Suggest sends the case text and the taxonomy reference to the configured
provider and prints a schema-valid suggestion. When the provider is missing,
slow or returns garbage the empty suggestion is printed instead; suggest never
fails because of the model.

Example:
  caselabel suggest "I have not slept properly since the layoffs started"
  caselabel suggest --file case.txt --provider ollama --model llama3.1
  OPENAI_API_KEY=sk-... caselabel suggest --provider openai --file case.txt`,
	RunE: runSuggest,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic case text",
	Long: `Generate asks the provider for a realistic first-person request for
therapy. A focus topic steers the problem described; unknown topics are
ignored. On failure a fixed fallback text is printed.

Example:
  caselabel generate --focus grief
  caselabel generate --focus anxiety --save --calibration`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(generateCmd)

	for _, cmd := range []*cobra.Command{suggestCmd, generateCmd} {
		cmd.Flags().StringVar(&suggestProvider, "provider", "", "LLM provider (openai, anthropic, ollama); overrides llm.provider")
		cmd.Flags().StringVar(&suggestModel, "model", "", "LLM model name; overrides llm.model")
	}

	suggestCmd.Flags().StringVarP(&suggestFile, "file", "f", "", "read case text from file ('-' for stdin)")
	suggestCmd.Flags().BoolVar(&suggestNoCache, "no-cache", false, "always call the provider")

	generateCmd.Flags().StringVar(&generateFocus, "focus", "", "topic id the case should be about")
	generateCmd.Flags().BoolVar(&generateSave, "save", false, "store the text as a new case")
	generateCmd.Flags().BoolVar(&generateCalibration, "calibration", false, "mark the saved case for calibration")
}

// pipelineFromFlags loads config, applies provider flags and builds the pipeline
func pipelineFromFlags() (*model.Config, *pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if suggestProvider != "" && suggestProvider != cfg.LLM.Provider {
		cfg.LLM.Provider = suggestProvider
		cfg.LLM.APIKey = viper.GetString("llm.api_key")
		applyCredentials(cfg)
	}
	if suggestModel != "" {
		cfg.LLM.Model = suggestModel
	}
	if suggestNoCache {
		cfg.Suggest.CacheEnabled = false
	}

	schema, err := loadSchema(cfg)
	if err != nil {
		return nil, nil, err
	}

	p := newPipeline(cfg, schema)
	if !p.Enabled() {
		logger.Warn("no LLM provider configured, output will be the fallback")
	}
	return cfg, p, nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	text, err := textArg(cmd, args, suggestFile)
	if err != nil {
		return err
	}

	_, p, err := pipelineFromFlags()
	if err != nil {
		return err
	}

	start := time.Now()
	suggestion := p.Suggest(cmdContext(cmd), text)
	logger.Debug("suggestion ready",
		zap.Int("categories", len(suggestion.PrimaryCategories)),
		zap.Bool("uncertain", suggestion.Uncertain),
		zap.Duration("elapsed", time.Since(start)))

	return printJSON(cmd.OutOrStdout(), suggestion)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, p, err := pipelineFromFlags()
	if err != nil {
		return err
	}

	ctx := cmdContext(cmd)
	if !generateSave {
		return printJSON(cmd.OutOrStdout(), p.GenerateCaseText(ctx, generateFocus))
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	wf := pipeline.NewWorkflow(s, validate.NewValidator(p.Schema()), logger)
	c, err := wf.SeedCase(ctx, p, generateFocus, generateCalibration)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), c)
}
