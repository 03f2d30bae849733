// Package accusation grades the player's final theory of the case.
package accusation

import (
	"log/slog"
	"strings"

	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/errors"
)

var ErrIncomplete = errors.NewSentinel("killer, method and motive are all required")

// Submission is what the player accuses.
type Submission struct {
	Killer string `json:"killer"`
	Method string `json:"method"`
	Motive string `json:"motive"`
}

// Hint is shown after a wrong accusation.
type Hint struct {
	Killer         string   `json:"killer"`
	MethodKeywords []string `json:"methodKeywords"`
	MotiveKeywords []string `json:"motiveKeywords"`
	Summary        string   `json:"summary"`
}

// Result echoes the submission with either the truth or a hint.
type Result struct {
	Correct     bool       `json:"correct"`
	Submission  Submission `json:"submission"`
	KillerName  string     `json:"killerName"`
	MethodMatch bool       `json:"methodMatch"`
	MotiveMatch bool       `json:"motiveMatch"`
	Truth       string     `json:"truth,omitempty"`
	Hint        *Hint      `json:"hint,omitempty"`
}

// Evaluate grades sub. The accusation is correct when the killer is right and either the method or the motive
// mentions one of the expected keywords, ignoring case.
func Evaluate(c *casefile.Case, sub Submission) (Result, error) {
	sub = Submission{
		Killer: strings.TrimSpace(sub.Killer),
		Method: strings.TrimSpace(sub.Method),
		Motive: strings.TrimSpace(sub.Motive),
	}
	if sub.Killer == "" || sub.Method == "" || sub.Motive == "" {
		return Result{}, errors.Wrap(ErrIncomplete, "validate accusation",
			slog.Bool("killer", sub.Killer != ""), slog.Bool("method", sub.Method != ""),
			slog.Bool("motive", sub.Motive != ""))
	}

	verdict := c.Verdict
	res := Result{
		Submission:  sub,
		KillerName:  sub.Killer,
		MethodMatch: containsAny(sub.Method, verdict.MethodKeywords),
		MotiveMatch: containsAny(sub.Motive, verdict.MotiveKeywords),
	}
	if accused, ok := c.Suspect(casefile.SuspectID(sub.Killer)); ok {
		res.KillerName = accused.Name
	}
	res.Correct = sub.Killer == string(verdict.Killer) && (res.MethodMatch || res.MotiveMatch)

	if res.Correct {
		res.Truth = verdict.Truth
		return res, nil
	}
	killer, _ := c.Suspect(verdict.Killer)
	res.Hint = &Hint{
		Killer:         killer.Name,
		MethodKeywords: verdict.MethodKeywords,
		MotiveKeywords: verdict.MotiveKeywords,
		Summary:        verdict.Hint,
	}
	return res, nil
}

func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
