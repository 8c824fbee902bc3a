package discovery

import (
	"sync"
	"sync/atomic"
)

// CareTaker is a bounded LIFO history of Mementos. Once the history exceeds
// its maximum depth the oldest mementos are dropped.
//
// Writers are serialized by a mutex; readers load an immutable slice and
// never block.
type CareTaker struct {
	writeLock sync.Mutex
	maxDepth  int
	history   atomic.Value // []*Memento, oldest first, never mutated
}

// NewCareTaker creates an empty history. A maxDepth of zero or less means
// unbounded.
func NewCareTaker(maxDepth int) *CareTaker {
	ct := &CareTaker{maxDepth: maxDepth}
	ct.history.Store([]*Memento{})
	return ct
}

func (ct *CareTaker) load() []*Memento {
	return ct.history.Load().([]*Memento)
}

// Add pushes m onto the history.
func (ct *CareTaker) Add(m *Memento) {
	ct.writeLock.Lock()
	defer ct.writeLock.Unlock()

	old := ct.load()
	start := 0
	if ct.maxDepth > 0 && len(old)+1 > ct.maxDepth {
		start = len(old) + 1 - ct.maxDepth
	}

	next := make([]*Memento, 0, len(old)-start+1)
	next = append(next, old[start:]...)
	next = append(next, m)

	ct.history.Store(next)
}

// Get pops the most recent memento. It returns false when the history is
// empty.
func (ct *CareTaker) Get() (*Memento, bool) {
	ct.writeLock.Lock()
	defer ct.writeLock.Unlock()

	old := ct.load()
	if len(old) == 0 {
		return nil, false
	}

	m := old[len(old)-1]

	next := make([]*Memento, len(old)-1)
	copy(next, old[:len(old)-1])
	ct.history.Store(next)

	return m, true
}

// Len returns the number of mementos held.
func (ct *CareTaker) Len() int {
	return len(ct.load())
}

// History returns the mementos, oldest first. The slice is the caller's.
func (ct *CareTaker) History() []*Memento {
	h := ct.load()
	res := make([]*Memento, len(h))
	copy(res, h)
	return res
}
