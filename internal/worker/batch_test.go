package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/caselabel/internal/model"
)

// mockSuggester labels every case with the first word of its text
type mockSuggester struct {
	calls int32
	delay time.Duration
}

func (m *mockSuggester) Suggest(ctx context.Context, caseText string) model.Suggestion {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return model.EmptySuggestion()
		}
	}

	s := model.EmptySuggestion()
	s.Uncertain = false
	s.PrimaryCategories = []model.PrimaryCategory{{Key: strings.Fields(caseText)[0], Rank: 1, Confidence: 0.9}}
	return s
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessCases(t *testing.T) {
	suggester := &mockSuggester{delay: time.Millisecond}
	processor := NewBatchProcessor(suggester, 3)

	var cases []model.LabellingCase
	for _, text := range []string{"grief after a loss", "anxiety at work", "sleep problems", "anger issues", "stress everywhere"} {
		cases = append(cases, model.LabellingCase{ID: text, Text: text})
	}

	results := processor.ProcessCases(context.Background(), cases)

	if len(results) != len(cases) {
		t.Fatalf("expected %d results, got %d", len(cases), len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.CaseID, res.Error)
		}
		if res.CaseID != cases[i].ID {
			t.Errorf("expected results in input order, got %s at %d", res.CaseID, i)
		}
		want := strings.Fields(cases[i].Text)[0]
		if res.Suggestion.IsEmpty() || res.Suggestion.PrimaryCategories[0].Key != want {
			t.Errorf("expected suggestion %s for %s, got %+v", want, res.CaseID, res.Suggestion.PrimaryCategories)
		}
	}
	if atomic.LoadInt32(&suggester.calls) != int32(len(cases)) {
		t.Errorf("expected %d calls, got %d", len(cases), suggester.calls)
	}
}

func TestBatchProcessor_ProcessCases_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockSuggester{}, 2)

	results := processor.ProcessCases(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestBatchProcessor_ProcessCases_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockSuggester{delay: time.Second}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []model.LabellingCase{
		{ID: "a", Text: "grief"},
		{ID: "b", Text: "anger"},
	}
	results := processor.ProcessCases(ctx, cases)

	if len(results) != 2 {
		t.Fatalf("expected an entry per case, got %d", len(results))
	}
	for _, res := range results {
		if !errors.Is(res.GetError(), context.Canceled) {
			t.Errorf("expected context.Canceled for %s, got %v", res.CaseID, res.GetError())
		}
		if !res.Suggestion.IsEmpty() {
			t.Errorf("expected empty suggestion for %s", res.CaseID)
		}
	}
}

func TestReadCasesFromFile(t *testing.T) {
	path := writeTemp(t, `I keep worrying about everything at work
# comment

{"id": "case-7", "text": "  My father died last spring  ", "isCalibration": true}
I keep worrying about everything at work
{"id": "blank", "text": "   "}
`)

	cases, err := ReadCasesFromFile(path)
	if err != nil {
		t.Fatalf("ReadCasesFromFile failed: %v", err)
	}

	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].ID != "line-1" || cases[0].Text != "I keep worrying about everything at work" {
		t.Errorf("unexpected plain case: %+v", cases[0])
	}
	if cases[0].Status != model.CaseStatusNew {
		t.Errorf("expected NEW status, got %s", cases[0].Status)
	}
	if cases[1].ID != "case-7" || cases[1].Text != "My father died last spring" || !cases[1].IsCalibration {
		t.Errorf("unexpected JSON case: %+v", cases[1])
	}
}

func TestReadCasesFromFile_BadJSON(t *testing.T) {
	path := writeTemp(t, "{\"id\": \n")

	if _, err := ReadCasesFromFile(path); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line error, got %v", err)
	}
}

func TestReadCasesFromFile_NonExistent(t *testing.T) {
	if _, err := ReadCasesFromFile("non_existent_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "grief again\nanxiety again\n# skip\n\nsleep again\n")

	processor := NewBatchProcessor(&mockSuggester{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	if _, err := processor.ProcessFile(context.Background(), "no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestSuggestResult_GetError(t *testing.T) {
	r1 := &SuggestResult{CaseID: "a"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("cancelled")
	r2 := &SuggestResult{CaseID: "a", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
