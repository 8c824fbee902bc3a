package discovery

import (
	"sync/atomic"

	"github.com/mosaicnetworks/hastings/src/correlation"
)

// round is the evaluation of one candidate step. It joins exactly N
// resolutions, one per neighbour, and closes done when the last one lands.
// byID is filled before the round is published and read-only afterwards.
type round struct {
	step      *Step
	byID      map[correlation.ID]*Neighbour
	order     []correlation.ID
	remaining int32
	done      chan struct{}
}

func newRound(step *Step) *round {
	r := &round{
		step:      step,
		byID:      make(map[correlation.ID]*Neighbour, step.Len()),
		remaining: int32(step.Len()),
		done:      make(chan struct{}),
	}

	for _, n := range step.Neighbours {
		id := correlation.NewID()
		n.Contact(id)
		r.byID[id] = n
		r.order = append(r.order, id)
	}

	if r.remaining == 0 {
		close(r.done)
	}

	return r
}

func (r *round) neighbour(id correlation.ID) (*Neighbour, bool) {
	n, ok := r.byID[id]
	return n, ok
}

// resolve settles n. Only the first resolution of a neighbour counts.
func (r *round) resolve(n *Neighbour, responsive bool) bool {
	var ok bool
	if responsive {
		ok = n.MarkResponsive()
	} else {
		ok = n.MarkUnresponsive()
	}

	if ok && atomic.AddInt32(&r.remaining, -1) == 0 {
		close(r.done)
	}

	return ok
}

// ids returns the correlation IDs of the round, in neighbour order.
func (r *round) ids() []correlation.ID {
	return r.order
}
