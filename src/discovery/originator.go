package discovery

import (
	"errors"
	"sync"

	"github.com/mosaicnetworks/hastings/src/peers"
)

// ErrNoCandidate is returned by Commit when nothing was proposed.
var ErrNoCandidate = errors.New("no candidate step to commit")

// Originator holds the accepted step and the candidate step under evaluation.
// Only the walk mutates it; the accessors hand out deep copies.
type Originator struct {
	sync.RWMutex
	self      *peers.Peer
	accepted  *Step
	candidate *Step
}

// NewOriginator starts from a copy of initial.
func NewOriginator(initial *Step) *Originator {
	return &Originator{
		self:     initial.Self.Clone(),
		accepted: initial.Clone(),
	}
}

// Accepted returns a copy of the accepted step.
func (o *Originator) Accepted() *Step {
	o.RLock()
	defer o.RUnlock()
	return o.accepted.Clone()
}

// Candidate returns a copy of the candidate step, or nil if there is none.
func (o *Originator) Candidate() *Step {
	o.RLock()
	defer o.RUnlock()
	return o.candidate.Clone()
}

// Snapshot captures the accepted step.
func (o *Originator) Snapshot() *Memento {
	o.RLock()
	defer o.RUnlock()
	return newMemento(o.accepted)
}

// Restore replaces the accepted step with a copy of the memento's step and
// drops any candidate.
func (o *Originator) Restore(m *Memento) {
	o.Lock()
	defer o.Unlock()
	o.accepted = m.Step()
	o.candidate = nil
}

// Propose stages a candidate step over the given peers, all NotContacted. The
// accepted step is left alone. The returned step is the live candidate, whose
// neighbours the walk resolves in place.
func (o *Originator) Propose(neighbours []*peers.Peer) *Step {
	o.Lock()
	defer o.Unlock()
	o.candidate = NewStep(o.self, neighbours)
	return o.candidate
}

// Commit pushes a snapshot of the accepted step onto ct and promotes the
// candidate to accepted.
func (o *Originator) Commit(ct *CareTaker) error {
	o.Lock()
	defer o.Unlock()

	if o.candidate == nil {
		return ErrNoCandidate
	}

	ct.Add(newMemento(o.accepted))
	o.accepted = o.candidate.Clone()
	o.candidate = nil

	return nil
}
