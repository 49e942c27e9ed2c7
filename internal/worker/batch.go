package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/caselabel/internal/model"
)

// Suggester produces a label suggestion for case text
type Suggester interface {
	Suggest(ctx context.Context, caseText string) model.Suggestion
}

// SuggestJob asks for a suggestion for one case
type SuggestJob struct {
	Index     int
	Case      model.LabellingCase
	Suggester Suggester
}

// Execute runs the suggestion. Suggesters fail open, so only a cancelled
// context is reported as an error.
func (j *SuggestJob) Execute(ctx context.Context) Result {
	suggestion := j.Suggester.Suggest(ctx, j.Case.Text)
	return &SuggestResult{
		Index:      j.Index,
		CaseID:     j.Case.ID,
		Suggestion: suggestion,
		Error:      ctx.Err(),
	}
}

// SuggestResult is the outcome of a SuggestJob
type SuggestResult struct {
	Index      int              `json:"-"`
	CaseID     string           `json:"caseId"`
	Suggestion model.Suggestion `json:"suggestion"`
	Error      error            `json:"-"`
}

// GetError returns the job error
func (r *SuggestResult) GetError() error {
	return r.Error
}

// BatchProcessor suggests labels for many cases concurrently
type BatchProcessor struct {
	suggester   Suggester
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(suggester Suggester, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		suggester:   suggester,
		concurrency: concurrency,
	}
}

// ProcessCases suggests labels for every case. Results come back in input order.
func (b *BatchProcessor) ProcessCases(ctx context.Context, cases []model.LabellingCase) []*SuggestResult {
	if len(cases) == 0 {
		return []*SuggestResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	jobs := make([]Job, len(cases))
	for i, c := range cases {
		jobs[i] = &SuggestJob{Index: i, Case: c, Suggester: b.suggester}
	}

	results := make([]*SuggestResult, len(cases))
	for _, result := range pool.Run(jobs) {
		r := result.(*SuggestResult)
		results[r.Index] = r
	}

	// Cases skipped after cancellation still get an entry
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = &SuggestResult{
				Index:      i,
				CaseID:     cases[i].ID,
				Suggestion: model.EmptySuggestion(),
				Error:      err,
			}
		}
	}

	return results
}

// ProcessFile reads cases from a file and suggests labels for them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*SuggestResult, error) {
	cases, err := ReadCasesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}

	return b.ProcessCases(ctx, cases), nil
}

// ReadCasesFromFile reads one case per line. A line holding a JSON object is
// decoded as a case ({"id": ..., "text": ...}); any other line is the case
// text itself. Blank lines and lines starting with '#' are skipped, and
// repeated texts are kept once.
func ReadCasesFromFile(filePath string) ([]model.LabellingCase, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var cases []model.LabellingCase
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		c := model.LabellingCase{Text: line}
		if strings.HasPrefix(line, "{") {
			if err := json.Unmarshal([]byte(line), &c); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			c.Text = strings.TrimSpace(c.Text)
		}
		if c.Text == "" {
			continue
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("line-%d", lineNo)
		}
		if c.Status == "" {
			c.Status = model.CaseStatusNew
		}

		if seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		cases = append(cases, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return cases, nil
}
