// Package prompt builds the system instructions that put the dialogue model in character.
package prompt

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/interrogation"
	"github.com/myrjola/misttheater/internal/models"
)

//go:embed system.tmpl
var systemTemplate string

var tmpl = template.Must(template.New("system").Option("missingkey=error").Parse(systemTemplate))

type data struct {
	Title     string
	Suspect   *casefile.Suspect
	Stress    int
	MaxStress int
	Emotion   string
	Evidence  *models.Evidence
	Reaction  casefile.Reaction
}

// Build returns the system prompt for suspect at the given stress level. Evidence is nil unless the player presented
// something this turn. The result depends on nothing but the arguments.
func Build(title string, suspect *casefile.Suspect, stress int, evidence *models.Evidence) string {
	d := data{
		Title:     title,
		Suspect:   suspect,
		Stress:    stress,
		MaxStress: interrogation.MaxDisplayStress,
		Emotion:   interrogation.EmotionFor(stress).Label(),
		Evidence:  evidence,
	}
	if evidence != nil {
		d.Reaction = suspect.Reaction(evidence.ID)
	}
	var sb strings.Builder
	// The template is parsed at init and only reads fields that always exist.
	if err := tmpl.Execute(&sb, d); err != nil {
		panic(err)
	}
	return sb.String()
}
