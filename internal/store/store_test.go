package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/caselabel/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "caselabel.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLabel(caseID, rater string, keys ...string) *model.Label {
	l := &model.Label{CaseID: caseID, RaterID: rater, SchemaVersion: "2024.1", Rationale: "because"}
	l.Subcategories = map[string][]string{}
	l.Intensity = map[string][]string{}
	for i, key := range keys {
		l.PrimaryCategories = append(l.PrimaryCategories, model.PrimaryCategory{Key: key, Rank: i + 1, Confidence: 0.7})
	}
	return l
}

func TestCreateAndGetCase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &model.LabellingCase{Text: "  I can't sleep at night.  ", IsCalibration: true}
	if err := s.CreateCase(ctx, c); err != nil {
		t.Fatalf("CreateCase failed: %v", err)
	}

	if c.ID == "" || c.Status != model.CaseStatusNew || c.Source != model.CaseSourceManual || c.CreatedAt.IsZero() {
		t.Errorf("Expected defaults to be filled, got %+v", c)
	}

	got, err := s.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCase failed: %v", err)
	}
	if diff := cmp.Diff(*c, *got); diff != "" {
		t.Errorf("Stored case mismatch (-want +got):\n%s", diff)
	}
	if got.Text != "I can't sleep at night." {
		t.Errorf("Expected trimmed text, got %q", got.Text)
	}
}

func TestCreateCase_EmptyText(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateCase(context.Background(), &model.LabellingCase{Text: "   "}); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestGetCase_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetCase(context.Background(), "nope"); !errors.Is(err, model.ErrCaseNotFound) {
		t.Errorf("Expected ErrCaseNotFound, got %v", err)
	}
}

func TestAddLabel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &model.LabellingCase{Text: "Everything feels pointless lately."}
	if err := s.CreateCase(ctx, c); err != nil {
		t.Fatal(err)
	}

	first := testLabel(c.ID, "alice", "depression")
	first.Subcategories["depression"] = []string{"hopelessness"}
	first.EvidenceSnippets = []model.EvidenceSnippet{{Start: 0, End: 10}}
	if err := s.AddLabel(ctx, first); err != nil {
		t.Fatalf("AddLabel failed: %v", err)
	}
	second := testLabel(c.ID, "bob", "depression", "anxiety")
	second.Uncertain = true
	if err := s.AddLabel(ctx, second); err != nil {
		t.Fatalf("AddLabel failed: %v", err)
	}

	got, err := s.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.CaseStatusLabeled {
		t.Errorf("Expected LABELED, got %s", got.Status)
	}

	labels, err := s.LabelsForCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("LabelsForCase failed: %v", err)
	}
	if diff := cmp.Diff([]model.Label{*first, *second}, labels); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}

func TestAddLabel_UnknownCase(t *testing.T) {
	s := openTestStore(t)
	if err := s.AddLabel(context.Background(), testLabel("missing", "alice", "grief")); !errors.Is(err, model.ErrCaseNotFound) {
		t.Errorf("Expected ErrCaseNotFound, got %v", err)
	}
}

func TestAddLabel_KeepsReviewStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &model.LabellingCase{Text: "My boss shouts at me every day."}
	_ = s.CreateCase(ctx, c)
	if err := s.SetStatus(ctx, c.ID, model.CaseStatusReview); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	if err := s.AddLabel(ctx, testLabel(c.ID, "alice", "stress")); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetCase(ctx, c.ID)
	if got.Status != model.CaseStatusReview {
		t.Errorf("Expected REVIEW to be kept, got %s", got.Status)
	}
}

func TestSetStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetStatus(ctx, "missing", model.CaseStatusReview); !errors.Is(err, model.ErrCaseNotFound) {
		t.Errorf("Expected ErrCaseNotFound, got %v", err)
	}

	c := &model.LabellingCase{Text: "text"}
	_ = s.CreateCase(ctx, c)
	if err := s.SetStatus(ctx, c.ID, "ARCHIVED"); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestListCases(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	inputs := []*model.LabellingCase{
		{Text: "first", CreatedAt: base},
		{Text: "second", IsCalibration: true, CreatedAt: base.Add(time.Second)},
		{Text: "third", IsCalibration: true, CreatedAt: base.Add(2 * time.Second), Status: model.CaseStatusReview},
	}
	for _, c := range inputs {
		if err := s.CreateCase(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	texts := func(cases []model.LabellingCase) []string {
		out := []string{}
		for _, c := range cases {
			out = append(out, c.Text)
		}
		return out
	}

	tests := []struct {
		name   string
		filter CaseFilter
		want   []string
	}{
		{"all", CaseFilter{}, []string{"first", "second", "third"}},
		{"calibration", CaseFilter{CalibrationOnly: true}, []string{"second", "third"}},
		{"status", CaseFilter{Status: model.CaseStatusNew}, []string{"first", "second"}},
		{"limit", CaseFilter{Limit: 1}, []string{"first"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListCases(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListCases failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, texts(got)); diff != "" {
				t.Errorf("Cases mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCalibrationPool(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	regular := &model.LabellingCase{Text: "regular"}
	calibration := &model.LabellingCase{Text: "calibration", IsCalibration: true}
	_ = s.CreateCase(ctx, regular)
	_ = s.CreateCase(ctx, calibration)

	_ = s.AddLabel(ctx, testLabel(regular.ID, "alice", "grief"))
	_ = s.AddLabel(ctx, testLabel(calibration.ID, "alice", "grief"))
	_ = s.AddLabel(ctx, testLabel(calibration.ID, "bob", "anger"))

	pool, err := s.CalibrationPool(ctx)
	if err != nil {
		t.Fatalf("CalibrationPool failed: %v", err)
	}

	if len(pool) != 1 {
		t.Fatalf("Expected 1 calibration case, got %d", len(pool))
	}
	if pool[0].Case.ID != calibration.ID || len(pool[0].Labels) != 2 {
		t.Errorf("Unexpected pool entry: %+v", pool[0])
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.CreateCase(context.Background(), &model.LabellingCase{Text: "in memory"}); err != nil {
		t.Errorf("CreateCase failed: %v", err)
	}
}
