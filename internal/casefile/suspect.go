package casefile

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/myrjola/misttheater/internal/errors"
	"gopkg.in/yaml.v3"
)

// SuspectID identifies one of the four people questioned about the killing.
type SuspectID string

const (
	Onitake    SuspectID = "onitake"
	Hana       SuspectID = "hana"
	Spirit     SuspectID = "spirit"
	Woodcutter SuspectID = "woodcutter"
)

// SuspectIDs lists every suspect in presentation order.
var SuspectIDs = []SuspectID{Onitake, Hana, Spirit, Woodcutter}

// ParseSuspectID returns the SuspectID for s if it names a known suspect.
func ParseSuspectID(s string) (SuspectID, bool) {
	for _, id := range SuspectIDs {
		if string(id) == s {
			return id, true
		}
	}
	return "", false
}

func (id SuspectID) String() string {
	return string(id)
}

// Pattern is a regular expression compiled while the case is decoded.
type Pattern struct {
	re *regexp.Regexp
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Pattern) UnmarshalYAML(value *yaml.Node) error {
	var expr string
	if err := value.Decode(&expr); err != nil {
		return errors.Wrap(err, "decode pattern")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return errors.Wrap(err, "compile pattern", slog.String("pattern", expr), slog.Int("line", value.Line))
	}
	p.re = re
	return nil
}

// MatchString reports whether s contains a match of the pattern.
func (p Pattern) MatchString(s string) bool {
	return p.re != nil && p.re.MatchString(s)
}

func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

// Reaction is how a suspect takes being shown a piece of evidence.
type Reaction struct {
	Evidence string `yaml:"evidence"`
	Hint     string `yaml:"hint"`
	Stress   int    `yaml:"stress"`
}

// KeywordRule raises stress when the player's message matches Pattern.
type KeywordRule struct {
	Pattern Pattern `yaml:"pattern"`
	Stress  int     `yaml:"stress"`
}

// ResponseRule is a canned line used when the dialogue model is unavailable.
type ResponseRule struct {
	Pattern Pattern `yaml:"pattern"`
	Line    string  `yaml:"line"`
}

// Suspect is the complete configuration of one suspect.
type Suspect struct {
	ID              SuspectID      `yaml:"id"`
	Name            string         `yaml:"name"`
	Image           string         `yaml:"image"`
	Persona         string         `yaml:"persona"`
	VoiceStyle      string         `yaml:"voice_style"`
	Voice           string         `yaml:"voice"`
	Statement       string         `yaml:"statement"`
	Truth           string         `yaml:"truth"`
	Motive          string         `yaml:"motive"`
	Guidance        string         `yaml:"guidance"`
	Reactions       []Reaction     `yaml:"reactions"`
	DefaultReaction string         `yaml:"default_reaction"`
	StressKeywords  []KeywordRule  `yaml:"stress_keywords"`
	Responses       []ResponseRule `yaml:"responses"`
	Fallback        []string       `yaml:"fallback"`
}

// Reaction returns the reaction to evidenceID, or the default reaction with no stress.
func (s *Suspect) Reaction(evidenceID string) Reaction {
	for _, r := range s.Reactions {
		if r.Evidence == evidenceID {
			return r
		}
	}
	return Reaction{Evidence: evidenceID, Hint: s.DefaultReaction, Stress: 0}
}

// KeywordStress returns the stress of the first keyword rule matching text, or 0.
func (s *Suspect) KeywordStress(text string) int {
	text = strings.ToLower(text)
	for _, rule := range s.StressKeywords {
		if rule.Pattern.MatchString(text) {
			return rule.Stress
		}
	}
	return 0
}

// CannedResponse returns the line of the first response rule matching text.
func (s *Suspect) CannedResponse(text string) (string, bool) {
	text = strings.ToLower(text)
	for _, rule := range s.Responses {
		if rule.Pattern.MatchString(text) {
			return rule.Line, true
		}
	}
	return "", false
}
