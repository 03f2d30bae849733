package game

import "github.com/myrjola/misttheater/internal/models"

// Ledger is the evidence discovered in a play session, in discovery order and unique by id.
type Ledger struct {
	items []models.Evidence
	index map[string]int
}

// NewLedger returns a ledger holding items. Later duplicates are dropped.
func NewLedger(items ...models.Evidence) *Ledger {
	l := &Ledger{index: make(map[string]int, len(items))}
	for _, e := range items {
		l.Add(e)
	}
	return l
}

// Add records e and reports whether it was new. Items without an id are ignored.
func (l *Ledger) Add(e models.Evidence) bool {
	if e.ID == "" {
		return false
	}
	if _, ok := l.index[e.ID]; ok {
		return false
	}
	l.index[e.ID] = len(l.items)
	l.items = append(l.items, e)
	return true
}

func (l *Ledger) Get(id string) (models.Evidence, bool) {
	i, ok := l.index[id]
	if !ok {
		return models.Evidence{}, false
	}
	return l.items[i], true
}

func (l *Ledger) Len() int {
	return len(l.items)
}

// Items returns a copy of the evidence in discovery order.
func (l *Ledger) Items() []models.Evidence {
	return append([]models.Evidence{}, l.items...)
}
