package discovery

import (
	"encoding/json"
	"sync/atomic"

	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/peers"
)

// NeighbourState is the liveness state of a Neighbour within one step.
type NeighbourState uint32

const (
	// NotContacted is the initial state.
	NotContacted NeighbourState = iota
	// Contacted means a probe was dispatched and is awaiting resolution.
	Contacted
	// Responsive means the probe was answered before its deadline.
	Responsive
	// Unresponsive means the probe deadline passed without an answer.
	Unresponsive
)

// String ...
func (s NeighbourState) String() string {
	switch s {
	case NotContacted:
		return "NotContacted"
	case Contacted:
		return "Contacted"
	case Responsive:
		return "Responsive"
	case Unresponsive:
		return "Unresponsive"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s is Responsive or Unresponsive.
func (s NeighbourState) Terminal() bool {
	return s == Responsive || s == Unresponsive
}

// Neighbour is the discovery state of one peer within a step. Its state only
// moves forward, NotContacted -> Contacted -> Responsive|Unresponsive, and every
// transition is a compare-and-set, so concurrent resolutions settle once.
type Neighbour struct {
	peer          *peers.Peer
	state         uint32
	correlationID atomic.Value // correlation.ID
}

// NewNeighbour returns a NotContacted neighbour for p.
func NewNeighbour(p *peers.Peer) *Neighbour {
	n := &Neighbour{peer: p}
	n.correlationID.Store(correlation.ID(""))
	return n
}

// Peer returns the neighbour's peer.
func (n *Neighbour) Peer() *peers.Peer {
	return n.peer
}

// State returns the current state.
func (n *Neighbour) State() NeighbourState {
	return NeighbourState(atomic.LoadUint32(&n.state))
}

// CorrelationID returns the ID of the outstanding probe, or the empty ID when
// no probe is outstanding.
func (n *Neighbour) CorrelationID() correlation.ID {
	return n.correlationID.Load().(correlation.ID)
}

// Contact assigns id to the neighbour and moves it to Contacted. It returns
// false, leaving the neighbour untouched, unless it was NotContacted.
func (n *Neighbour) Contact(id correlation.ID) bool {
	if n.State() != NotContacted {
		return false
	}
	n.correlationID.Store(id)
	if !n.transition(NotContacted, Contacted) {
		n.correlationID.Store(correlation.ID(""))
		return false
	}
	return true
}

// MarkResponsive moves a Contacted neighbour to Responsive. On any other state
// it does nothing and returns false.
func (n *Neighbour) MarkResponsive() bool {
	return n.settle(Responsive)
}

// MarkUnresponsive moves a Contacted neighbour to Unresponsive. On any other
// state it does nothing and returns false.
func (n *Neighbour) MarkUnresponsive() bool {
	return n.settle(Unresponsive)
}

func (n *Neighbour) settle(to NeighbourState) bool {
	if !n.transition(Contacted, to) {
		return false
	}
	n.correlationID.Store(correlation.ID(""))
	return true
}

func (n *Neighbour) transition(from, to NeighbourState) bool {
	return atomic.CompareAndSwapUint32(&n.state, uint32(from), uint32(to))
}

// Clone returns a copy that shares nothing mutable with n.
func (n *Neighbour) Clone() *Neighbour {
	c := &Neighbour{
		peer:  n.peer.Clone(),
		state: uint32(n.State()),
	}
	c.correlationID.Store(n.CorrelationID())
	return c
}

// Equal compares peer identity and state.
func (n *Neighbour) Equal(other *Neighbour) bool {
	return n.peer.Equals(other.peer) && n.State() == other.State()
}

type jsonNeighbour struct {
	Peer          *peers.Peer
	State         string
	CorrelationID string `json:",omitempty"`
}

// MarshalJSON ...
func (n *Neighbour) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonNeighbour{
		Peer:          n.peer,
		State:         n.State().String(),
		CorrelationID: n.CorrelationID().String(),
	})
}
