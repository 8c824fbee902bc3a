package discovery

import (
	"encoding/json"

	"github.com/mosaicnetworks/hastings/src/peers"
)

// Memento is an immutable snapshot of a Step. Only the Originator creates
// them, and nothing hands out a reference to the snapshot itself.
type Memento struct {
	step *Step
}

func newMemento(s *Step) *Memento {
	return &Memento{step: s.Clone()}
}

// Self returns the self identity captured by the memento.
func (m *Memento) Self() *peers.Peer {
	return m.step.Self.Clone()
}

// Step returns a fresh deep copy of the captured step.
func (m *Memento) Step() *Step {
	return m.step.Clone()
}

// MarshalJSON ...
func (m *Memento) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.step)
}
