package models

import "time"

// Evidence is a discoverable item that can be shown to a suspect to provoke a reaction.
type Evidence struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image,omitempty" yaml:"image"`
}

// Turn is one exchange in an interrogation.
type Turn struct {
	Player    string    `json:"player"`
	NPC       string    `json:"npc"`
	Evidence  *Evidence `json:"evidence,omitempty"`
	IsInitial bool      `json:"isInitial"`
}

// InvestigationRecord is appended for every scene investigation, repeats included.
type InvestigationRecord struct {
	ClueKey      string    `json:"clueKey"`
	Result       string    `json:"result"`
	EvidenceName string    `json:"evidenceName,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsRepeat     bool      `json:"isRepeat"`
}
