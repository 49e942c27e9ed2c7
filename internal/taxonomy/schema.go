// Package taxonomy defines the versioned catalogue of topics, subtopics and
// intensity statements that every label is checked against.
//
// A Schema is built once from a Definition and never mutated afterwards.
// Historical labels are interpreted against the schema version that was
// active when they were created, so a changed catalogue must be built under
// a new version string instead of replacing an existing one.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"
)

// SubtopicNode is a topic-scoped refinement of a primary category
type SubtopicNode struct {
	ID       string  `json:"id" yaml:"id"`
	LabelKey string  `json:"labelKey" yaml:"label_key"`
	Weight   float64 `json:"weight" yaml:"weight"`
}

// TopicNode is a top-level problem category
type TopicNode struct {
	ID        string         `json:"id" yaml:"id"`
	LabelKey  string         `json:"labelKey" yaml:"label_key"`
	Subtopics []SubtopicNode `json:"subtopics" yaml:"subtopics"`
}

// IntensityStatement describes how strongly a topic shows up in a case
type IntensityStatement struct {
	ID       string  `json:"id" yaml:"id"`
	TopicID  string  `json:"topicId" yaml:"topic_id"`
	LabelKey string  `json:"labelKey" yaml:"label_key"`
	Weight   float64 `json:"weight" yaml:"weight"`
}

// IDSet is a set of taxonomy ids
type IDSet map[string]struct{}

// Has reports whether id is in the set
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Schema is an immutable snapshot of a Definition under a version string.
// All accessors return copies; a Schema is safe for concurrent use.
type Schema struct {
	version   string
	topics    []TopicNode
	intensity map[string][]IntensityStatement

	topicIDs     IDSet
	subtopicIDs  map[string]IDSet
	intensityIDs map[string]IDSet
}

// Build snapshots the built-in definition under the given version
func Build(version string) *Schema {
	return DefaultDefinition().Build(version)
}

// Build snapshots the definition under the given version. Topics keep their
// declared order. Intensity statements are grouped by their owning topic and
// statements for topics not present in the definition are ignored.
func (d Definition) Build(version string) *Schema {
	s := &Schema{
		version:      version,
		topics:       make([]TopicNode, 0, len(d.Topics)),
		intensity:    make(map[string][]IntensityStatement),
		topicIDs:     make(IDSet),
		subtopicIDs:  make(map[string]IDSet),
		intensityIDs: make(map[string]IDSet),
	}

	for _, t := range d.Topics {
		if s.topicIDs.Has(t.ID) {
			continue
		}
		node := TopicNode{ID: t.ID, LabelKey: t.LabelKey, Subtopics: make([]SubtopicNode, 0, len(t.Subtopics))}
		subs := make(IDSet)
		for _, st := range t.Subtopics {
			if subs.Has(st.ID) {
				continue
			}
			subs[st.ID] = struct{}{}
			node.Subtopics = append(node.Subtopics, st)
		}
		s.topics = append(s.topics, node)
		s.topicIDs[t.ID] = struct{}{}
		s.subtopicIDs[t.ID] = subs
	}

	for _, topicID := range sortedKeys(d.Intensity) {
		if !s.topicIDs.Has(topicID) {
			continue
		}
		ids := make(IDSet)
		statements := make([]IntensityStatement, 0, len(d.Intensity[topicID]))
		for _, st := range d.Intensity[topicID] {
			if ids.Has(st.ID) {
				continue
			}
			st.TopicID = topicID
			ids[st.ID] = struct{}{}
			statements = append(statements, st)
		}
		s.intensity[topicID] = statements
		s.intensityIDs[topicID] = ids
	}

	return s
}

// Version returns the schema version
func (s *Schema) Version() string {
	return s.version
}

// Topics returns the topics in declared order
func (s *Schema) Topics() []TopicNode {
	out := make([]TopicNode, len(s.topics))
	for i, t := range s.topics {
		out[i] = TopicNode{ID: t.ID, LabelKey: t.LabelKey, Subtopics: append([]SubtopicNode(nil), t.Subtopics...)}
	}
	return out
}

// Intensity returns the intensity statements owned by a topic
func (s *Schema) Intensity(topicID string) []IntensityStatement {
	return append([]IntensityStatement(nil), s.intensity[topicID]...)
}

// ValidTopicIDs returns the set of topic ids
func (s *Schema) ValidTopicIDs() IDSet {
	return copySet(s.topicIDs)
}

// ValidSubtopicIDs returns the subtopic ids of a topic, empty if the topic is unknown
func (s *Schema) ValidSubtopicIDs(topicID string) IDSet {
	return copySet(s.subtopicIDs[topicID])
}

// ValidIntensityIDs returns the intensity ids of a topic, empty if the topic is unknown
func (s *Schema) ValidIntensityIDs(topicID string) IDSet {
	return copySet(s.intensityIDs[topicID])
}

// HasTopic reports whether id is a topic of the schema
func (s *Schema) HasTopic(id string) bool {
	return s.topicIDs.Has(id)
}

// HasSubtopic reports whether id is a subtopic of the given topic
func (s *Schema) HasSubtopic(topicID, id string) bool {
	return s.subtopicIDs[topicID].Has(id)
}

// HasIntensity reports whether id is an intensity statement of the given topic
func (s *Schema) HasIntensity(topicID, id string) bool {
	return s.intensityIDs[topicID].Has(id)
}

// Reference renders the catalogue as a plain-text listing of every valid id.
// It is embedded in generative prompts so the model sees exactly the keys the
// validator accepts.
func (s *Schema) Reference() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Taxonomy version: %s\n", s.version)
	for _, t := range s.topics {
		fmt.Fprintf(&b, "\n- %s\n", t.ID)
		subs := make([]string, len(t.Subtopics))
		for i, st := range t.Subtopics {
			subs[i] = st.ID
		}
		if len(subs) > 0 {
			fmt.Fprintf(&b, "  subcategories: %s\n", strings.Join(subs, ", "))
		}
		if statements := s.intensity[t.ID]; len(statements) > 0 {
			ids := make([]string, len(statements))
			for i, st := range statements {
				ids[i] = st.ID
			}
			fmt.Fprintf(&b, "  intensity: %s\n", strings.Join(ids, ", "))
		}
	}
	return b.String()
}

func copySet(s IDSet) IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
