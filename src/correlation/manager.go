package correlation

import (
	"errors"
	"sync"
	"time"

	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by AddPending once the Manager is closed.
var ErrClosed = errors.New("correlation manager closed")

type pendingRequest struct {
	Request
	timer Timer
}

// Manager keeps the set of requests awaiting a reply and owns their deadline
// timers. A request leaves the set exactly once: matched, cancelled, expired,
// or discarded by Close.
type Manager struct {
	sync.Mutex

	pending  map[ID]*pendingRequest
	clock    Clock
	onExpire ExpiryHandler
	closed   bool

	logger *logrus.Entry
}

// NewManager creates a Manager that schedules deadlines on clock and reports
// expired requests to onExpire. onExpire may be nil.
func NewManager(clock Clock, onExpire ExpiryHandler, logger *logrus.Entry) *Manager {
	if clock == nil {
		clock = NewRealClock()
	}

	if logger == nil {
		l := logrus.New()
		l.Level = logrus.DebugLevel
		logger = logrus.NewEntry(l)
	}

	return &Manager{
		pending:  make(map[ID]*pendingRequest),
		clock:    clock,
		onExpire: onExpire,
		logger:   logger.WithField("component", "correlation"),
	}
}

// AddPending registers a request under id. The expiry callback fires once the
// clock reaches deadline; a deadline that is already due fires on the next
// clock turn, never from within AddPending.
func (m *Manager) AddPending(id ID, recipient *peers.Peer, deadline time.Time) error {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return ErrClosed
	}

	if _, ok := m.pending[id]; ok {
		return common.NewStoreErr("PendingRequest", common.KeyAlreadyExists, id.String())
	}

	p := &pendingRequest{
		Request: Request{
			ID:        id,
			Recipient: recipient,
			Deadline:  deadline,
		},
	}
	m.pending[id] = p

	delay := deadline.Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}
	p.timer = m.clock.AfterFunc(delay, func() { m.expire(id) })

	return nil
}

// TryMatch resolves the request registered under id. It returns true, and
// removes the request, only if the request is pending and its deadline has
// not passed. Unknown, expired, and already-resolved IDs return false.
func (m *Manager) TryMatch(id ID) bool {
	m.Lock()
	defer m.Unlock()

	p, ok := m.pending[id]
	if !ok {
		return false
	}

	// past its deadline; the expiry callback is already on its way
	if m.clock.Now().After(p.Deadline) {
		return false
	}

	delete(m.pending, id)
	p.timer.Stop()

	return true
}

// Cancel removes the request registered under id without invoking the expiry
// callback. It returns false if there was nothing to cancel.
func (m *Manager) Cancel(id ID) bool {
	m.Lock()
	defer m.Unlock()

	p, ok := m.pending[id]
	if !ok {
		return false
	}

	delete(m.pending, id)
	p.timer.Stop()

	return true
}

// Len returns the number of pending requests.
func (m *Manager) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.pending)
}

// Close stops every outstanding timer and discards the pending requests
// without invoking the expiry callback. Subsequent calls to AddPending fail
// with ErrClosed. Close is idempotent.
func (m *Manager) Close() {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	for id, p := range m.pending {
		p.timer.Stop()
		delete(m.pending, id)
	}
}

func (m *Manager) expire(id ID) {
	m.Lock()
	p, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	handler := m.onExpire
	m.Unlock()

	if !ok {
		return
	}

	m.logger.WithFields(logrus.Fields{
		"id":        id,
		"recipient": p.Recipient,
	}).Debug("Request expired")

	if handler != nil {
		handler(p.Request)
	}
}
