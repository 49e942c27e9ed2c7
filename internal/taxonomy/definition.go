package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultVersion is the version string of the built-in catalogue
const DefaultVersion = "2024.1"

// Definition is the raw catalogue a Schema is built from
type Definition struct {
	Topics    []TopicNode                     `yaml:"topics"`
	Intensity map[string][]IntensityStatement `yaml:"intensity"`
}

// Check reports structural problems that Build would otherwise silently skip:
// duplicate topic, subtopic or intensity ids and intensity statements filed
// under unknown topics.
func (d Definition) Check() error {
	topics := make(map[string]bool)
	for i, t := range d.Topics {
		if t.ID == "" {
			return fmt.Errorf("topic %d: empty id", i)
		}
		if topics[t.ID] {
			return fmt.Errorf("duplicate topic %q", t.ID)
		}
		topics[t.ID] = true

		subs := make(map[string]bool)
		for _, st := range t.Subtopics {
			if st.ID == "" {
				return fmt.Errorf("topic %q: empty subtopic id", t.ID)
			}
			if subs[st.ID] {
				return fmt.Errorf("topic %q: duplicate subtopic %q", t.ID, st.ID)
			}
			subs[st.ID] = true
		}
	}

	for topicID, statements := range d.Intensity {
		if !topics[topicID] {
			return fmt.Errorf("intensity statements for unknown topic %q", topicID)
		}
		ids := make(map[string]bool)
		for _, st := range statements {
			if st.ID == "" {
				return fmt.Errorf("topic %q: empty intensity id", topicID)
			}
			if ids[st.ID] {
				return fmt.Errorf("topic %q: duplicate intensity statement %q", topicID, st.ID)
			}
			if st.TopicID != "" && st.TopicID != topicID {
				return fmt.Errorf("intensity statement %q declares topic %q but is filed under %q", st.ID, st.TopicID, topicID)
			}
			ids[st.ID] = true
		}
	}

	return nil
}

// LoadDefinition reads a YAML catalogue from disk
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read taxonomy: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := def.Check(); err != nil {
		return Definition{}, fmt.Errorf("invalid taxonomy %s: %w", path, err)
	}
	return def, nil
}

// DefaultDefinition returns a fresh copy of the built-in catalogue
func DefaultDefinition() Definition {
	return Definition{
		Topics: []TopicNode{
			topic("depression",
				sub("chronic_sadness", 1.0),
				sub("loss_of_interest", 0.9),
				sub("hopelessness", 1.0),
				sub("low_energy", 0.7),
				sub("postpartum", 0.8),
			),
			topic("anxiety",
				sub("generalized_worry", 1.0),
				sub("panic_attacks", 1.0),
				sub("social_anxiety", 0.9),
				sub("health_anxiety", 0.8),
				sub("phobias", 0.7),
			),
			topic("stress",
				sub("work_stress", 1.0),
				sub("burnout", 1.0),
				sub("financial_stress", 0.8),
				sub("caregiver_stress", 0.8),
			),
			topic("trauma",
				sub("ptsd_symptoms", 1.0),
				sub("childhood_trauma", 1.0),
				sub("violence_or_abuse", 1.0),
				sub("accident_or_disaster", 0.8),
			),
			topic("relationships",
				sub("couple_conflict", 1.0),
				sub("breakup_divorce", 0.9),
				sub("family_conflict", 0.9),
				sub("loneliness", 0.8),
				sub("attachment_issues", 0.7),
			),
			topic("grief",
				sub("loss_of_loved_one", 1.0),
				sub("pregnancy_loss", 1.0),
				sub("pet_loss", 0.6),
				sub("anticipatory_grief", 0.7),
			),
			topic("addiction",
				sub("alcohol", 1.0),
				sub("drugs", 1.0),
				sub("gambling", 0.9),
				sub("digital_media", 0.7),
			),
			topic("self_esteem",
				sub("self_criticism", 1.0),
				sub("body_image", 0.8),
				sub("perfectionism", 0.8),
				sub("identity", 0.7),
			),
			topic("eating",
				sub("restrictive_eating", 1.0),
				sub("binge_eating", 1.0),
				sub("emotional_eating", 0.7),
			),
			topic("sleep",
				sub("insomnia", 1.0),
				sub("nightmares", 0.8),
				sub("irregular_rhythm", 0.6),
			),
			topic("anger",
				sub("outbursts", 1.0),
				sub("irritability", 0.8),
				sub("resentment", 0.6),
			),
			topic("life_transitions",
				sub("relocation", 0.8),
				sub("parenthood", 0.9),
				sub("career_change", 0.8),
				sub("retirement", 0.7),
			),
		},
		Intensity: map[string][]IntensityStatement{
			"depression": {
				intensity("depression_daily_functioning", 1.0),
				intensity("depression_most_days", 0.8),
				intensity("depression_suicidal_thoughts", 1.0),
			},
			"anxiety": {
				intensity("anxiety_avoidance", 0.9),
				intensity("anxiety_physical_symptoms", 0.8),
				intensity("anxiety_constant", 1.0),
			},
			"stress": {
				intensity("stress_overwhelmed", 0.9),
				intensity("stress_physical_toll", 0.8),
			},
			"trauma": {
				intensity("trauma_flashbacks", 1.0),
				intensity("trauma_hypervigilance", 0.9),
			},
			"relationships": {
				intensity("relationships_daily_conflict", 0.9),
				intensity("relationships_considering_separation", 1.0),
			},
			"grief": {
				intensity("grief_unable_to_function", 1.0),
				intensity("grief_prolonged", 0.8),
			},
			"addiction": {
				intensity("addiction_loss_of_control", 1.0),
				intensity("addiction_consequences", 0.9),
			},
			"self_esteem": {
				intensity("self_esteem_pervasive", 0.8),
			},
			"eating": {
				intensity("eating_medical_risk", 1.0),
				intensity("eating_preoccupation", 0.8),
			},
			"sleep": {
				intensity("sleep_most_nights", 0.9),
			},
			"anger": {
				intensity("anger_harm_risk", 1.0),
				intensity("anger_relationship_damage", 0.8),
			},
			"life_transitions": {
				intensity("life_transitions_overwhelming", 0.8),
			},
		},
	}
}

func topic(id string, subtopics ...SubtopicNode) TopicNode {
	return TopicNode{ID: id, LabelKey: "taxonomy.topics." + id, Subtopics: subtopics}
}

func sub(id string, weight float64) SubtopicNode {
	return SubtopicNode{ID: id, LabelKey: "taxonomy.subtopics." + id, Weight: weight}
}

func intensity(id string, weight float64) IntensityStatement {
	return IntensityStatement{ID: id, LabelKey: "taxonomy.intensity." + id, Weight: weight}
}
