package model

import "time"

// Strength describes how often a related topic co-occurs with the primaries
type Strength string

const (
	StrengthOften     Strength = "OFTEN"
	StrengthSometimes Strength = "SOMETIMES"
)

// Valid reports whether s is a known strength
func (s Strength) Valid() bool {
	return s == StrengthOften || s == StrengthSometimes
}

// Label limits shared by the validator and the normalizer
const (
	MaxPrimaryCategories = 3
	MaxRelatedTopics     = 5
	MaxEvidenceSnippets  = 5
)

// PrimaryCategory is one of up to three ranked top-level topics
type PrimaryCategory struct {
	Key        string  `json:"key"`
	Rank       int     `json:"rank"`
	Confidence float64 `json:"confidence"`
}

// RelatedTopic is a topic noted as co-occurring without being selected
type RelatedTopic struct {
	Key      string   `json:"key"`
	Strength Strength `json:"strength"`
}

// EvidenceSnippet is a half-open character span [Start, End) of the case text
type EvidenceSnippet struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// LabelCandidate is an unvalidated label, produced by a rater or the normalizer.
// Subcategories and Intensity map a selected primary key to child ids.
type LabelCandidate struct {
	PrimaryCategories []PrimaryCategory   `json:"primaryCategories"`
	Subcategories     map[string][]string `json:"subcategories"`
	Intensity         map[string][]string `json:"intensity"`
	RelatedTopics     []RelatedTopic      `json:"relatedTopics"`
	EvidenceSnippets  []EvidenceSnippet   `json:"evidenceSnippets"`
}

// PrimaryKeys returns the primary category keys in input order
func (c LabelCandidate) PrimaryKeys() []string {
	keys := make([]string, len(c.PrimaryCategories))
	for i, pc := range c.PrimaryCategories {
		keys[i] = pc.Key
	}
	return keys
}

// Label is a validated candidate attached to a case by a rater.
// Labels are never mutated; a correction is a new Label.
type Label struct {
	ID      string `json:"id,omitempty"`
	CaseID  string `json:"caseId"`
	RaterID string `json:"raterId"`

	LabelCandidate

	Uncertain     bool      `json:"uncertain"`
	Rationale     string    `json:"rationale"`
	SchemaVersion string    `json:"schemaVersion,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}
