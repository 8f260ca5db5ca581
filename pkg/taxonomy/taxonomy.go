// Package taxonomy defines the fixed topic vocabulary the inference engine
// scores messages against. A taxonomy is supplied as TOML configuration;
// declaration order doubles as the priority total order used for
// deterministic tie-breaks (earlier wins).
package taxonomy

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Topic declares one vocabulary entry: a stable id and the signal phrases
// that evidence it in message text. Single-word signals match on word
// boundaries; multi-word signals match as substrings.
type Topic struct {
	ID      string   `toml:"id"`
	Signals []string `toml:"signals"`
}

// Definition is a complete topic vocabulary.
type Definition struct {
	Topics []Topic `toml:"topics"`
}

// Load reads and validates a taxonomy definition from a TOML file.
func Load(path string) (*Definition, error) {
	var def Definition
	if _, err := toml.DecodeFile(path, &def); err != nil {
		return nil, fmt.Errorf("failed to decode taxonomy file: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy %s: %w", path, err)
	}

	return &def, nil
}

// Validate checks structural invariants: at least one topic, unique
// non-empty ids, and at least one non-empty signal per topic.
func (d *Definition) Validate() error {
	if len(d.Topics) == 0 {
		return fmt.Errorf("taxonomy declares no topics")
	}

	seen := make(map[string]struct{}, len(d.Topics))
	for _, t := range d.Topics {
		if t.ID == "" {
			return fmt.Errorf("topic with empty id")
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate topic id %q", t.ID)
		}
		seen[t.ID] = struct{}{}

		if len(t.Signals) == 0 {
			return fmt.Errorf("topic %q declares no signals", t.ID)
		}
		for _, s := range t.Signals {
			if s == "" {
				return fmt.Errorf("topic %q declares an empty signal", t.ID)
			}
		}
	}

	return nil
}

// Get returns the topic with the given id.
func (d *Definition) Get(id string) (Topic, bool) {
	for _, t := range d.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// Priority returns the tie-break rank of a topic id: its declaration index,
// lower meaning preferred. Unknown ids rank after all declared topics.
func (d *Definition) Priority(id string) int {
	for i, t := range d.Topics {
		if t.ID == id {
			return i
		}
	}
	return len(d.Topics)
}

// IDs returns all topic ids in declaration order.
func (d *Definition) IDs() []string {
	ids := make([]string, len(d.Topics))
	for i, t := range d.Topics {
		ids[i] = t.ID
	}
	return ids
}

// Default returns the built-in university-domain taxonomy. `drift init`
// writes this to disk as a starting point for customization.
func Default() *Definition {
	return &Definition{
		Topics: []Topic{
			{
				ID: "admission",
				Signals: []string{
					"admission", "admissions", "apply", "application",
					"enroll", "enrollment", "requirements", "deadline",
					"entrance exam", "acceptance",
				},
			},
			{
				ID: "financial",
				Signals: []string{
					"tuition", "fee", "fees", "scholarship", "scholarships",
					"financial aid", "cost", "payment", "loan", "grant",
					"bursary",
				},
			},
			{
				ID: "housing",
				Signals: []string{
					"housing", "dormitory", "dorm", "dorms", "residence",
					"accommodation", "rent", "roommate", "campus housing",
				},
			},
			{
				ID: "academics",
				Signals: []string{
					"course", "courses", "class", "classes", "major",
					"curriculum", "credit", "professor", "lecture", "exam",
					"degree", "faculty",
				},
			},
			{
				ID: "campus_life",
				Signals: []string{
					"club", "clubs", "sports", "activities", "events",
					"cafeteria", "dining", "gym", "society", "student life",
				},
			},
		},
	}
}
