package validate

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/ppiankov/caselabel/internal/model"
	"github.com/ppiankov/caselabel/internal/taxonomy"
)

// Field tags used in FieldError.Field
const (
	FieldPrimaryCategories = "primaryCategories"
	FieldSubcategories     = "subcategories"
	FieldIntensity         = "intensity"
	FieldRelatedTopics     = "relatedTopics"
	FieldEvidenceSnippets  = "evidenceSnippets"
)

// FieldError points at the offending part of a candidate
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Result is the outcome of validating one candidate
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

// ErrorsFor returns the errors tagged with the given field
func (r Result) ErrorsFor(field string) []FieldError {
	var out []FieldError
	for _, e := range r.Errors {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

// Validator checks label candidates against a taxonomy schema.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	schema *taxonomy.Schema
}

// NewValidator creates a validator bound to a schema
func NewValidator(schema *taxonomy.Schema) *Validator {
	return &Validator{schema: schema}
}

// Schema returns the schema the validator checks against
func (v *Validator) Schema() *taxonomy.Schema {
	return v.schema
}

// TextLength returns the length of text in the unit evidence offsets use
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}

// Validate checks a candidate. textLength bounds the evidence snippets.
//
// A broken primary selection skips the subcategory, intensity and related
// topic checks, since those are all keyed by the primaries. Evidence is
// always checked.
func (v *Validator) Validate(c model.LabelCandidate, textLength int) Result {
	var errs []FieldError

	primaryErrs := v.validatePrimary(c.PrimaryCategories)
	errs = append(errs, primaryErrs...)

	if len(primaryErrs) == 0 {
		selected := make(map[string]bool, len(c.PrimaryCategories))
		for _, pc := range c.PrimaryCategories {
			selected[pc.Key] = true
		}

		errs = append(errs, validateChildren(FieldSubcategories, "subcategory", c.Subcategories, selected, v.schema.HasSubtopic)...)
		errs = append(errs, validateChildren(FieldIntensity, "intensity statement", c.Intensity, selected, v.schema.HasIntensity)...)
		errs = append(errs, v.validateRelated(c.RelatedTopics, selected)...)
	}

	errs = append(errs, validateEvidence(c.EvidenceSnippets, textLength)...)

	if errs == nil {
		errs = []FieldError{}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func (v *Validator) validatePrimary(categories []model.PrimaryCategory) []FieldError {
	var errs []FieldError
	fail := func(format string, args ...any) {
		errs = append(errs, FieldError{Field: FieldPrimaryCategories, Message: fmt.Sprintf(format, args...)})
	}

	n := len(categories)
	if n == 0 {
		fail("at least one primary category is required")
		return errs
	}
	if n > model.MaxPrimaryCategories {
		fail("at most %d primary categories allowed, got %d", model.MaxPrimaryCategories, n)
	}

	keys := make(map[string]bool, n)
	ranks := make(map[int]bool, n)
	minRank, maxRank := math.MaxInt, math.MinInt
	duplicateRank := false

	for i, pc := range categories {
		switch {
		case pc.Key == "":
			fail("primary category %d has an empty key", i+1)
		case !v.schema.HasTopic(pc.Key):
			fail("unknown category %q", pc.Key)
		case keys[pc.Key]:
			fail("duplicate category %q", pc.Key)
		}
		keys[pc.Key] = true

		if math.IsNaN(pc.Confidence) || pc.Confidence < 0 || pc.Confidence > 1 {
			fail("confidence for %q must be between 0 and 1", pc.Key)
		}

		if ranks[pc.Rank] {
			fail("duplicate rank %d", pc.Rank)
			duplicateRank = true
		}
		ranks[pc.Rank] = true
		minRank = min(minRank, pc.Rank)
		maxRank = max(maxRank, pc.Rank)
	}

	if minRank != 1 {
		fail("ranks must start at 1")
	} else if !duplicateRank && maxRank != n {
		fail("ranks must be contiguous from 1 to %d", n)
	}

	return errs
}

// validateChildren checks a topic-keyed map of child ids. Keys are visited in
// sorted order so the error list is deterministic.
func validateChildren(field, kind string, children map[string][]string, selected map[string]bool, valid func(topicID, id string) bool) []FieldError {
	var errs []FieldError

	topics := make([]string, 0, len(children))
	for topicID := range children {
		topics = append(topics, topicID)
	}
	sort.Strings(topics)

	for _, topicID := range topics {
		if !selected[topicID] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("category %q is not among the selected primary categories", topicID),
			})
			continue
		}
		for _, id := range children[topicID] {
			if !valid(topicID, id) {
				errs = append(errs, FieldError{
					Field:   field,
					Message: fmt.Sprintf("%q is not a valid %s of %q", id, kind, topicID),
				})
			}
		}
	}

	return errs
}

func (v *Validator) validateRelated(related []model.RelatedTopic, selected map[string]bool) []FieldError {
	var errs []FieldError
	fail := func(format string, args ...any) {
		errs = append(errs, FieldError{Field: FieldRelatedTopics, Message: fmt.Sprintf(format, args...)})
	}

	if len(related) > model.MaxRelatedTopics {
		fail("at most %d related topics allowed, got %d", model.MaxRelatedTopics, len(related))
	}

	seen := make(map[string]bool, len(related))
	for _, rt := range related {
		switch {
		case !v.schema.HasTopic(rt.Key):
			fail("unknown related topic %q", rt.Key)
		case seen[rt.Key]:
			fail("duplicate related topic %q", rt.Key)
		case selected[rt.Key]:
			fail("related topic %q overlaps a selected primary category", rt.Key)
		}
		seen[rt.Key] = true

		if !rt.Strength.Valid() {
			fail("invalid strength %q for related topic %q", rt.Strength, rt.Key)
		}
	}

	return errs
}

func validateEvidence(snippets []model.EvidenceSnippet, textLength int) []FieldError {
	var errs []FieldError
	fail := func(format string, args ...any) {
		errs = append(errs, FieldError{Field: FieldEvidenceSnippets, Message: fmt.Sprintf(format, args...)})
	}

	if len(snippets) > model.MaxEvidenceSnippets {
		fail("at most %d evidence snippets allowed, got %d", model.MaxEvidenceSnippets, len(snippets))
	}

	for i, s := range snippets {
		if s.Start < 0 {
			fail("snippet %d: start must not be negative", i+1)
		}
		if s.End <= s.Start {
			fail("snippet %d: end must be greater than start", i+1)
		}
		if s.End > textLength {
			fail("snippet %d: end %d exceeds text length %d", i+1, s.End, textLength)
		}
	}

	return errs
}
