package taxonomy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuild_Idempotent(t *testing.T) {
	a := Build(DefaultVersion)
	b := Build(DefaultVersion)

	if diff := cmp.Diff(a.Topics(), b.Topics()); diff != "" {
		t.Errorf("topics differ between builds (-first +second):\n%s", diff)
	}
	for _, topic := range a.Topics() {
		if diff := cmp.Diff(a.Intensity(topic.ID), b.Intensity(topic.ID)); diff != "" {
			t.Errorf("intensity for %s differs (-first +second):\n%s", topic.ID, diff)
		}
	}
	if diff := cmp.Diff(a.ValidTopicIDs(), b.ValidTopicIDs()); diff != "" {
		t.Errorf("topic ids differ:\n%s", diff)
	}
	if a.Reference() != b.Reference() {
		t.Error("expected identical reference rendering")
	}
}

func TestSchema_LookupSets(t *testing.T) {
	s := Build("test")

	if !s.ValidTopicIDs().Has("depression") {
		t.Error("expected depression to be a valid topic")
	}
	if !s.ValidSubtopicIDs("depression").Has("chronic_sadness") {
		t.Error("expected chronic_sadness under depression")
	}
	if s.ValidSubtopicIDs("anxiety").Has("chronic_sadness") {
		t.Error("chronic_sadness must not be valid under anxiety")
	}
	if !s.ValidIntensityIDs("anxiety").Has("anxiety_avoidance") {
		t.Error("expected anxiety_avoidance intensity under anxiety")
	}

	tests := []struct {
		name string
		set  IDSet
	}{
		{"unknown topic subtopics", s.ValidSubtopicIDs("bogus")},
		{"unknown topic intensity", s.ValidIntensityIDs("bogus")},
		{"empty topic subtopics", s.ValidSubtopicIDs("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set == nil {
				t.Fatal("expected empty set, got nil")
			}
			if len(tt.set) != 0 {
				t.Errorf("expected empty set, got %v", tt.set.Sorted())
			}
		})
	}
}

func TestSchema_ReturnsCopies(t *testing.T) {
	s := Build("test")

	ids := s.ValidTopicIDs()
	delete(ids, "depression")
	if !s.HasTopic("depression") {
		t.Error("mutating a returned set must not affect the schema")
	}

	topics := s.Topics()
	topics[0].Subtopics[0].ID = "mutated"
	if s.Topics()[0].Subtopics[0].ID == "mutated" {
		t.Error("mutating returned topics must not affect the schema")
	}
}

func TestBuild_IntensityTopicAssigned(t *testing.T) {
	s := Build("test")
	for _, st := range s.Intensity("grief") {
		if st.TopicID != "grief" {
			t.Errorf("expected topic grief for %s, got %q", st.ID, st.TopicID)
		}
	}
}

func TestBuild_SkipsOrphanIntensity(t *testing.T) {
	def := Definition{
		Topics: []TopicNode{{ID: "a", Subtopics: []SubtopicNode{{ID: "a1"}, {ID: "a1"}}}},
		Intensity: map[string][]IntensityStatement{
			"a":       {{ID: "a_high"}},
			"missing": {{ID: "missing_high"}},
		},
	}
	s := def.Build("v1")

	if len(s.Topics()[0].Subtopics) != 1 {
		t.Errorf("expected duplicate subtopic to collapse, got %d", len(s.Topics()[0].Subtopics))
	}
	if len(s.Intensity("missing")) != 0 {
		t.Error("expected intensity for unknown topic to be dropped")
	}
	if !s.HasIntensity("a", "a_high") {
		t.Error("expected a_high intensity under a")
	}
}

func TestSchema_Reference(t *testing.T) {
	s := Build("ref-test")
	ref := s.Reference()

	for _, want := range []string{"ref-test", "- depression", "chronic_sadness", "depression_daily_functioning", "- life_transitions"} {
		if !strings.Contains(ref, want) {
			t.Errorf("expected reference to contain %q", want)
		}
	}
}

func TestDefinition_Check(t *testing.T) {
	if err := DefaultDefinition().Check(); err != nil {
		t.Fatalf("built-in catalogue should be valid: %v", err)
	}

	tests := []struct {
		name    string
		def     Definition
		wantErr string
	}{
		{
			name:    "duplicate topic",
			def:     Definition{Topics: []TopicNode{{ID: "a"}, {ID: "a"}}},
			wantErr: "duplicate topic",
		},
		{
			name:    "duplicate subtopic",
			def:     Definition{Topics: []TopicNode{{ID: "a", Subtopics: []SubtopicNode{{ID: "x"}, {ID: "x"}}}}},
			wantErr: "duplicate subtopic",
		},
		{
			name: "orphan intensity",
			def: Definition{
				Topics:    []TopicNode{{ID: "a"}},
				Intensity: map[string][]IntensityStatement{"b": {{ID: "b1"}}},
			},
			wantErr: "unknown topic",
		},
		{
			name: "mismatched intensity topic",
			def: Definition{
				Topics:    []TopicNode{{ID: "a"}, {ID: "b"}},
				Intensity: map[string][]IntensityStatement{"a": {{ID: "x", TopicID: "b"}}},
			},
			wantErr: "declares topic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Check()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadDefinition(t *testing.T) {
	content := `topics:
  - id: mood
    label_key: taxonomy.topics.mood
    subtopics:
      - id: low_mood
        weight: 1
intensity:
  mood:
    - id: mood_severe
      weight: 0.9
`
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	def, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("LoadDefinition failed: %v", err)
	}

	s := def.Build("custom")
	if !s.HasSubtopic("mood", "low_mood") {
		t.Error("expected low_mood under mood")
	}
	if !s.HasIntensity("mood", "mood_severe") {
		t.Error("expected mood_severe under mood")
	}
}

func TestLoadDefinition_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	if err := os.WriteFile(path, []byte("topics:\n  - id: a\n  - id: a\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDefinition(path); err == nil {
		t.Error("expected error for duplicate topics")
	}
}

func TestRegistry(t *testing.T) {
	v1 := Build("v1")
	v2 := Build("v2")
	r := NewRegistry(v1, v2)

	if r.Latest() != v2 {
		t.Error("expected v2 to be latest")
	}
	if got, ok := r.Get("v1"); !ok || got != v1 {
		t.Error("expected to find v1")
	}
	if err := r.Register(Build("v1")); err == nil {
		t.Error("expected error when re-registering v1")
	}
	if _, ok := r.Get("v3"); ok {
		t.Error("did not expect v3")
	}
}
