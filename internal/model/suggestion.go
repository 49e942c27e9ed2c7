package model

// Suggestion is a schema-valid label proposal derived from generative output.
// It is advisory only: a rater still has to submit it as a Label.
type Suggestion struct {
	LabelCandidate

	Uncertain bool   `json:"uncertainSuggested"`
	Rationale string `json:"rationale"`
}

// EmptySuggestion returns the canonical "no suggestion" value
func EmptySuggestion() Suggestion {
	return Suggestion{
		LabelCandidate: LabelCandidate{
			PrimaryCategories: []PrimaryCategory{},
			Subcategories:     map[string][]string{},
			Intensity:         map[string][]string{},
			RelatedTopics:     []RelatedTopic{},
			EvidenceSnippets:  []EvidenceSnippet{},
		},
		Uncertain: true,
		Rationale: "",
	}
}

// IsEmpty reports whether the suggestion selects no category
func (s Suggestion) IsEmpty() bool {
	return len(s.PrimaryCategories) == 0
}
