package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/caselabel/internal/model"
	"github.com/ppiankov/caselabel/internal/store"
	"github.com/ppiankov/caselabel/internal/worker"
)

var (
	batchConcurrency int
	batchOutput      string
	batchTimeout     time.Duration
	batchPending     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Suggest labels for many cases in parallel",
	Long: `Batch suggests labels for every case in a file, or for every NEW case in
the store with --pending. Input files hold one case per line, either plain
text or a JSON object with "id" and "text". Results are written as JSON lines
in input order.

Example:
  caselabel batch cases.txt --concurrency 8 --output suggestions.jsonl
  caselabel batch --pending --timeout 20m`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "number of workers (default: concurrency.workers)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write JSON lines to this file instead of stdout")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&batchPending, "pending", false, "suggest for NEW cases in the store")
	batchCmd.Flags().StringVar(&suggestProvider, "provider", "", "LLM provider (openai, anthropic, ollama); overrides llm.provider")
	batchCmd.Flags().StringVar(&suggestModel, "model", "", "LLM model name; overrides llm.model")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchPending == (len(args) == 1) {
		return fmt.Errorf("pass either an input file or --pending")
	}

	cfg, p, err := pipelineFromFlags()
	if err != nil {
		return err
	}

	var cases []model.LabellingCase
	if batchPending {
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		cases, err = s.ListCases(cmdContext(cmd), store.CaseFilter{Status: model.CaseStatusNew})
		_ = s.Close()
		if err != nil {
			return err
		}
	} else {
		cases, err = worker.ReadCasesFromFile(args[0])
		if err != nil {
			return err
		}
	}

	workers := batchConcurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}

	logger.Info("starting batch",
		zap.Int("cases", len(cases)),
		zap.Int("workers", workers),
		zap.Duration("timeout", batchTimeout))

	ctx, cancel := context.WithTimeout(cmdContext(cmd), batchTimeout)
	defer cancel()

	start := time.Now()
	results := worker.NewBatchProcessor(p, workers).ProcessCases(ctx, cases)

	out := cmd.OutOrStdout()
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	suggested, failed, err := writeResults(out, results)
	if err != nil {
		return err
	}

	logger.Info("batch finished",
		zap.Int("suggested", suggested),
		zap.Int("empty", len(results)-suggested-failed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	if failed > 0 {
		return fmt.Errorf("%d of %d cases were not processed", failed, len(results))
	}
	return nil
}

// writeResults writes one JSON line per result and counts outcomes
func writeResults(w io.Writer, results []*worker.SuggestResult) (suggested, failed int, err error) {
	enc := json.NewEncoder(w)
	for _, r := range results {
		line := struct {
			*worker.SuggestResult
			Error string `json:"error,omitempty"`
		}{SuggestResult: r}

		switch {
		case r.Error != nil:
			failed++
			line.Error = r.Error.Error()
		case !r.Suggestion.IsEmpty():
			suggested++
		}

		if err := enc.Encode(line); err != nil {
			return suggested, failed, fmt.Errorf("write result: %w", err)
		}
	}
	return suggested, failed, nil
}
