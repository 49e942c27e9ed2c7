package model

import (
	"errors"
	"time"
)

// ErrCaseNotFound is returned by stores for an unknown case id
var ErrCaseNotFound = errors.New("case not found")

// CaseStatus is the lifecycle state of a labelling case
type CaseStatus string

const (
	CaseStatusNew     CaseStatus = "NEW"     // Created, no valid label yet
	CaseStatusLabeled CaseStatus = "LABELED" // At least one valid label attached
	CaseStatusReview  CaseStatus = "REVIEW"  // Flagged by a reviewer
)

// CaseSource records how a case entered the pool
type CaseSource string

const (
	CaseSourceManual   CaseSource = "MANUAL"
	CaseSourceImported CaseSource = "IMPORTED"
	CaseSourceAI       CaseSource = "AI"
)

// LabellingCase is a piece of client-style text waiting to be labelled
type LabellingCase struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Status        CaseStatus `json:"status"`
	IsCalibration bool       `json:"isCalibration"`
	Source        CaseSource `json:"source,omitempty"`
	FocusTopicID  string     `json:"focusTopicId,omitempty"` // Topic an AI-seeded case was generated for
	CreatedAt     time.Time  `json:"createdAt,omitempty"`
}

// CaseLabels pairs a case with every label attached to it
type CaseLabels struct {
	Case   LabellingCase `json:"case"`
	Labels []Label       `json:"labels"`
}

// GeneratedCase is AI-seeded case text
type GeneratedCase struct {
	Text         string `json:"text"`
	FocusTopicID string `json:"focusTopicId,omitempty"`
	Fallback     bool   `json:"fallback"` // True when the fixed fallback text was substituted
}
