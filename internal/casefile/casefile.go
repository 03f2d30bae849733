// Package casefile holds the static data of the bamboo grove case: suspects, scene clues, evidence and the verdict.
package casefile

import (
	_ "embed"
	"log/slog"
	"strings"

	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed case.yaml
var caseDefinition []byte

var ErrInvalidCase = errors.NewSentinel("invalid case")

// Clue is a spot in the scene the player can investigate.
type Clue struct {
	Key        string `yaml:"key"`
	Result     string `yaml:"result"`
	EvidenceID string `yaml:"evidence"`
}

// Verdict is the ground truth an accusation is graded against.
type Verdict struct {
	Killer         SuspectID `yaml:"killer"`
	MethodKeywords []string  `yaml:"method_keywords"`
	MotiveKeywords []string  `yaml:"motive_keywords"`
	Truth          string    `yaml:"truth"`
	Hint           string    `yaml:"hint"`
}

// Investigation holds the texts for revisited and unknown spots.
type Investigation struct {
	Repeat  []string `yaml:"repeat"`
	Unknown string   `yaml:"unknown"`
}

// Dialogue holds fixed lines used around the interrogation.
type Dialogue struct {
	// Opening is the player text recorded with the initial statement.
	Opening string `yaml:"opening"`
	// Presented is a format string taking the evidence name.
	Presented string `yaml:"presented"`
	// Confused is said when the model fails to react to presented evidence.
	Confused string `yaml:"confused"`
}

type document struct {
	Title         string            `yaml:"title"`
	Scene         string            `yaml:"scene"`
	Evidence      []models.Evidence `yaml:"evidence"`
	Clues         []Clue            `yaml:"clues"`
	Investigation Investigation     `yaml:"investigation"`
	Dialogue      Dialogue          `yaml:"dialogue"`
	Suspects      []*Suspect        `yaml:"suspects"`
	Verdict       Verdict           `yaml:"verdict"`
}

// Case is the read-only registry of everything static about the case.
type Case struct {
	Title         string
	Scene         string
	Investigation Investigation
	Dialogue      Dialogue
	Verdict       Verdict

	suspects map[SuspectID]*Suspect
	clues    []Clue
	evidence []models.Evidence
}

// Load parses the embedded case.
func Load() (*Case, error) {
	return Parse(caseDefinition)
}

// Parse decodes and validates a case document.
func Parse(data []byte) (*Case, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse case")
	}
	c := &Case{
		Title:         doc.Title,
		Scene:         doc.Scene,
		Investigation: doc.Investigation,
		Dialogue:      doc.Dialogue,
		Verdict:       doc.Verdict,
		suspects:      make(map[SuspectID]*Suspect, len(doc.Suspects)),
		clues:         doc.Clues,
		evidence:      doc.Evidence,
	}
	for _, s := range doc.Suspects {
		if _, ok := ParseSuspectID(string(s.ID)); !ok {
			return nil, errors.Wrap(ErrInvalidCase, "unknown suspect", slog.String("suspect", string(s.ID)))
		}
		if _, ok := c.suspects[s.ID]; ok {
			return nil, errors.Wrap(ErrInvalidCase, "duplicate suspect", slog.String("suspect", string(s.ID)))
		}
		c.suspects[s.ID] = s
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Case) validate() error {
	for _, id := range SuspectIDs {
		s, ok := c.suspects[id]
		if !ok {
			return errors.Wrap(ErrInvalidCase, "missing suspect", slog.String("suspect", string(id)))
		}
		if s.Statement == "" || len(s.Fallback) == 0 {
			return errors.Wrap(ErrInvalidCase, "suspect needs a statement and fallback lines",
				slog.String("suspect", string(id)))
		}
	}
	seen := make(map[string]bool, len(c.evidence))
	for _, e := range c.evidence {
		if e.ID == "" || seen[e.ID] {
			return errors.Wrap(ErrInvalidCase, "evidence ids must be unique and non-empty", slog.String("evidence", e.ID))
		}
		seen[e.ID] = true
	}
	keys := make(map[string]bool, len(c.clues))
	for _, clue := range c.clues {
		if keys[clue.Key] {
			return errors.Wrap(ErrInvalidCase, "duplicate clue", slog.String("clue", clue.Key))
		}
		keys[clue.Key] = true
		if clue.EvidenceID != "" && !seen[clue.EvidenceID] {
			return errors.Wrap(ErrInvalidCase, "clue yields unknown evidence",
				slog.String("clue", clue.Key), slog.String("evidence", clue.EvidenceID))
		}
	}
	if _, ok := c.suspects[c.Verdict.Killer]; !ok {
		return errors.Wrap(ErrInvalidCase, "unknown killer", slog.String("killer", string(c.Verdict.Killer)))
	}
	if len(c.Verdict.MethodKeywords) == 0 || len(c.Verdict.MotiveKeywords) == 0 {
		return errors.Wrap(ErrInvalidCase, "verdict needs method and motive keywords")
	}
	if len(c.Investigation.Repeat) == 0 {
		return errors.Wrap(ErrInvalidCase, "missing repeat investigation texts")
	}
	if !strings.Contains(c.Dialogue.Presented, "%s") {
		return errors.Wrap(ErrInvalidCase, "presented evidence line must take the evidence name")
	}
	return nil
}

// Suspect looks up a suspect.
func (c *Case) Suspect(id SuspectID) (*Suspect, bool) {
	s, ok := c.suspects[id]
	return s, ok
}

// Suspects returns all suspects in presentation order.
func (c *Case) Suspects() []*Suspect {
	res := make([]*Suspect, 0, len(SuspectIDs))
	for _, id := range SuspectIDs {
		res = append(res, c.suspects[id])
	}
	return res
}

// Clue looks up a clue by its label.
func (c *Case) Clue(key string) (Clue, bool) {
	for _, clue := range c.clues {
		if clue.Key == key {
			return clue, true
		}
	}
	return Clue{}, false
}

// Clues returns the clues in scene order.
func (c *Case) Clues() []Clue {
	return append([]Clue(nil), c.clues...)
}

// Evidence looks up an evidence catalog entry.
func (c *Case) Evidence(id string) (models.Evidence, bool) {
	for _, e := range c.evidence {
		if e.ID == id {
			return e, true
		}
	}
	return models.Evidence{}, false
}
