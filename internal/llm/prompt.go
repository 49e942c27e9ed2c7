package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/caselabel/internal/taxonomy"
)

// SuggestSystemPrompt frames the labelling task
const SuggestSystemPrompt = `You are an experienced clinical intake coordinator. You read short descriptions written by people looking for a therapist and label them against a fixed taxonomy. You answer with exactly one JSON object and nothing else.`

// CaseTextSystemPrompt frames synthetic case generation
const CaseTextSystemPrompt = `You write realistic, anonymous first-person messages from people looking for a therapist. You never include names, places or contact details. You answer with the message text only.`

// BuildSuggestPrompt constructs the labelling prompt. The taxonomy reference is
// rendered from the schema so the model only sees keys the validator accepts.
func BuildSuggestPrompt(schema *taxonomy.Schema, caseText string) string {
	var b strings.Builder

	b.WriteString(`Label the case below.

CRITICAL RULES:
1. You MUST ONLY use ids from this taxonomy reference:
`)
	b.WriteString(indent(schema.Reference(), "   "))
	b.WriteString(`
2. Choose 1 to 3 primary categories, most relevant first.
3. Subcategories and intensity ids must belong to the category they are listed under.
4. Related topics are categories that often co-occur but are NOT among the primary categories.
5. If the text is too vague to label, return an empty "main" list and set "uncertain" to true.

Answer with one JSON object of this shape:
{
  "main": [{"key": "<topic id>", "confidence": <0..1>}],
  "subcategories": {"<topic id>": ["<subtopic id>"]},
  "intensity": {"<topic id>": ["<intensity id>"]},
  "related": [{"key": "<topic id>", "strength": "OFTEN" | "SOMETIMES"}],
  "uncertain": <true|false>,
  "rationale": "<one or two sentences>"
}

Case:
"""
`)
	b.WriteString(caseText)
	b.WriteString("\n\"\"\"\n")

	return b.String()
}

// BuildCaseTextPrompt constructs the prompt for a synthetic case. An empty
// focusTopicID lets the model pick any topic of the schema.
func BuildCaseTextPrompt(schema *taxonomy.Schema, focusTopicID string) string {
	var b strings.Builder

	b.WriteString("Write one message of 3 to 6 sentences from a person describing why they want to see a therapist.\n")
	if focusTopicID != "" {
		fmt.Fprintf(&b, "The main problem should clearly be: %s.\n", focusTopicID)
		if subs := schema.ValidSubtopicIDs(focusTopicID).Sorted(); len(subs) > 0 {
			fmt.Fprintf(&b, "It may touch on one of: %s.\n", strings.Join(subs, ", "))
		}
	} else {
		fmt.Fprintf(&b, "Pick the problem from: %s.\n", strings.Join(schema.ValidTopicIDs().Sorted(), ", "))
	}
	b.WriteString("Write in plain everyday language. Do not name the category explicitly.\n")

	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
