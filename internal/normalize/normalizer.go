// Package normalize turns untrusted generative output into a schema-valid
// label suggestion. It never fails: anything it cannot use is dropped.
package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/ppiankov/caselabel/internal/model"
	"github.com/ppiankov/caselabel/internal/taxonomy"
)

const (
	// DefaultConfidence replaces missing or non-numeric confidences
	DefaultConfidence = 0.5

	// DefaultMaxRationaleLength bounds the rationale, in characters
	DefaultMaxRationaleLength = 500
)

// Normalizer sanitizes suggestions against a schema. Safe for concurrent use.
type Normalizer struct {
	schema             *taxonomy.Schema
	maxRationaleLength int
}

// NewNormalizer creates a normalizer bound to a schema
func NewNormalizer(schema *taxonomy.Schema) *Normalizer {
	return &Normalizer{schema: schema, maxRationaleLength: DefaultMaxRationaleLength}
}

// WithMaxRationaleLength returns a copy using a different rationale bound
func (n *Normalizer) WithMaxRationaleLength(limit int) *Normalizer {
	cp := *n
	if limit > 0 {
		cp.maxRationaleLength = limit
	}
	return &cp
}

// Normalize converts raw generative output into a Suggestion.
//
// Ranks supplied by the source are ignored and recomputed from the order of
// the surviving categories. Confidence is clamped to [0,1].
func (n *Normalizer) Normalize(raw Raw) model.Suggestion {
	if !raw.IsObject() {
		return model.EmptySuggestion()
	}

	out := model.EmptySuggestion()
	out.PrimaryCategories = n.primaryCategories(raw.Field("main", "primaryCategories"))

	selected := make(map[string]bool, len(out.PrimaryCategories))
	for _, pc := range out.PrimaryCategories {
		selected[pc.Key] = true
	}

	out.Subcategories = filterChildren(raw.Field("subcategories"), selected, n.schema.HasSubtopic)
	out.Intensity = filterChildren(raw.Field("intensity"), selected, n.schema.HasIntensity)
	out.RelatedTopics = n.relatedTopics(raw.Field("related", "relatedTopics"), selected)

	if uncertain, ok := raw.Field("uncertain", "uncertainSuggested").Bool(); ok {
		out.Uncertain = uncertain
	} else {
		out.Uncertain = deriveUncertain(out.PrimaryCategories)
	}

	if rationale, ok := raw.Field("rationale").String(); ok {
		out.Rationale = truncate(stripMarkup(rationale), n.maxRationaleLength)
	}

	return out
}

func (n *Normalizer) primaryCategories(raw Raw) []model.PrimaryCategory {
	out := []model.PrimaryCategory{}
	seen := make(map[string]bool)

	for _, entry := range raw.List() {
		if len(out) == model.MaxPrimaryCategories {
			break
		}
		key := entry.Key()
		if !n.schema.HasTopic(key) || seen[key] {
			continue
		}
		seen[key] = true

		confidence := DefaultConfidence
		if c, ok := entry.Field("confidence").Number(); ok {
			confidence = clamp(c, 0, 1)
		}

		out = append(out, model.PrimaryCategory{
			Key:        key,
			Rank:       len(out) + 1,
			Confidence: confidence,
		})
	}

	return out
}

// filterChildren keeps entries for selected topics and, within them, only
// ids valid for that topic. Entries left empty are dropped.
func filterChildren(raw Raw, selected map[string]bool, valid func(topicID, id string) bool) map[string][]string {
	out := map[string][]string{}

	for topicID, children := range raw.Entries() {
		if !selected[topicID] {
			continue
		}
		seen := make(map[string]bool)
		var ids []string
		for _, child := range children.List() {
			id, ok := child.String()
			if !ok {
				continue
			}
			id = strings.TrimSpace(id)
			if seen[id] || !valid(topicID, id) {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			out[topicID] = ids
		}
	}

	return out
}

func (n *Normalizer) relatedTopics(raw Raw, selected map[string]bool) []model.RelatedTopic {
	out := []model.RelatedTopic{}
	seen := make(map[string]bool)

	for _, entry := range raw.List() {
		if len(out) == model.MaxRelatedTopics {
			break
		}
		key := entry.Key()
		if !n.schema.HasTopic(key) || selected[key] || seen[key] {
			continue
		}
		seen[key] = true

		strength := model.StrengthOften
		if s, ok := entry.Field("strength").String(); ok && strings.EqualFold(strings.TrimSpace(s), string(model.StrengthSometimes)) {
			strength = model.StrengthSometimes
		}

		out = append(out, model.RelatedTopic{Key: key, Strength: strength})
	}

	return out
}

func deriveUncertain(categories []model.PrimaryCategory) bool {
	if len(categories) == 0 {
		return true
	}
	for _, pc := range categories {
		if pc.Confidence < 0.5 {
			return true
		}
	}
	return false
}

// stripMarkup drops tags from model output, keeping only the text content.
// Script and style bodies are dropped and block boundaries become spaces.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	skip := 0
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if rawTextElements[tag] {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
				continue
			}
			if !inlineElements[tag] {
				b.WriteByte(' ')
			}
		}
	}
}

var rawTextElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "template": true,
}

var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "em": true, "i": true, "mark": true,
	"small": true, "span": true, "strong": true, "sub": true, "sup": true, "u": true,
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
