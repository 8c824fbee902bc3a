package discovery

import (
	"github.com/mosaicnetworks/hastings/src/peers"
)

// Step is a position of the walk: this node plus a set of neighbours.
type Step struct {
	Self       *peers.Peer
	Neighbours []*Neighbour
}

// NewStep returns a step whose neighbours are all NotContacted.
func NewStep(self *peers.Peer, neighbours []*peers.Peer) *Step {
	s := &Step{
		Self:       self,
		Neighbours: make([]*Neighbour, 0, len(neighbours)),
	}
	for _, p := range neighbours {
		s.Neighbours = append(s.Neighbours, NewNeighbour(p))
	}
	return s
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	c := &Step{
		Self:       s.Self.Clone(),
		Neighbours: make([]*Neighbour, len(s.Neighbours)),
	}
	for i, n := range s.Neighbours {
		c.Neighbours[i] = n.Clone()
	}
	return c
}

// Len returns the number of neighbours.
func (s *Step) Len() int {
	return len(s.Neighbours)
}

// HasValidCandidate reports whether every neighbour is Responsive. A step
// without neighbours is never valid.
func (s *Step) HasValidCandidate() bool {
	if len(s.Neighbours) == 0 {
		return false
	}
	for _, n := range s.Neighbours {
		if n.State() != Responsive {
			return false
		}
	}
	return true
}

// Terminal reports whether every neighbour reached Responsive or
// Unresponsive.
func (s *Step) Terminal() bool {
	for _, n := range s.Neighbours {
		if !n.State().Terminal() {
			return false
		}
	}
	return true
}

// Peers returns the neighbours' peers in order.
func (s *Step) Peers() []*peers.Peer {
	res := make([]*peers.Peer, len(s.Neighbours))
	for i, n := range s.Neighbours {
		res[i] = n.Peer()
	}
	return res
}

// ResponsivePeers returns the peers of the Responsive neighbours.
func (s *Step) ResponsivePeers() []*peers.Peer {
	res := []*peers.Peer{}
	for _, n := range s.Neighbours {
		if n.State() == Responsive {
			res = append(res, n.Peer())
		}
	}
	return res
}

// Equal reports whether both steps have the same self identity and the same
// neighbours, in the same order and states.
func (s *Step) Equal(other *Step) bool {
	if s == nil || other == nil {
		return s == other
	}
	if !s.Self.Equals(other.Self) || len(s.Neighbours) != len(other.Neighbours) {
		return false
	}
	for i, n := range s.Neighbours {
		if !n.Equal(other.Neighbours[i]) {
			return false
		}
	}
	return true
}
