package discovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/mosaicnetworks/hastings/src/store"
	"github.com/mosaicnetworks/hastings/src/telemetry"
	"github.com/sirupsen/logrus"
)

var (
	// ErrWalkShutdown is returned by Tick once Shutdown was called.
	ErrWalkShutdown = errors.New("walk is shut down")

	// ErrEmptyPool is returned by Tick when there was no peer to sample from.
	ErrEmptyPool = errors.New("no peers to sample from")
)

// Stats is a point-in-time view of the walk counters.
type Stats struct {
	Ticks           uint64
	Commits         uint64
	Rollbacks       uint64
	Errors          uint64
	Probes          uint64
	Responses       uint64
	Timeouts        uint64
	Unmatched       uint64
	HistoryDepth    int
	PendingRequests int
}

type counters struct {
	ticks     uint64
	commits   uint64
	rollbacks uint64
	errors    uint64
	probes    uint64
	responses uint64
	timeouts  uint64
	unmatched uint64
}

// Walk is the discovery orchestrator. Ticks run one at a time; responses and
// expiries arrive concurrently and only ever touch the neighbours of the
// active round.
type Walk struct {
	conf   *Config
	self   *peers.Peer
	client PeerClient
	store  store.Store
	clock  correlation.Clock

	manager    *correlation.Manager
	originator *Originator
	caretaker  *CareTaker
	seed       *Step

	active atomic.Pointer[round]

	// tickLock serializes ticks and guards rand and discovered
	tickLock   sync.Mutex
	rand       *rand.Rand
	discovered int

	eventsLock   sync.RWMutex
	events       chan LifecycleEvent
	eventsClosed bool

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	stats counters

	logger *logrus.Entry
}

// NewWalk creates a walk for self, positioned on the bootstrap step. peerStore
// may be nil, in which case nothing is persisted.
func NewWalk(self *peers.Peer, client PeerClient, peerStore store.Store, conf *Config) *Walk {
	if conf == nil {
		conf = DefaultConfig()
	}

	logger := conf.logger().WithField("component", "walk")

	w := &Walk{
		conf:       conf,
		self:       self,
		client:     client,
		store:      peerStore,
		clock:      conf.clock(),
		caretaker:  NewCareTaker(conf.MaxHistoryDepth),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		events:     make(chan LifecycleEvent, conf.EventBuffer),
		shutdownCh: make(chan struct{}),
		logger:     logger,
	}

	w.seed = NewStep(self, w.excludeSelf(mergePeers(nil, conf.BootstrapPeers)))
	w.originator = NewOriginator(w.seed)
	w.manager = correlation.NewManager(w.clock, w.onExpire, logger)

	return w
}

// Run ticks until ctx is cancelled or the walk is shut down, pausing
// TickInterval between ticks. Failed ticks are logged and do not stop the
// loop.
func (w *Walk) Run(ctx context.Context) error {
	w.logger.WithFields(logrus.Fields{
		"sample_size":   w.conf.SampleSize,
		"step_timeout":  w.conf.StepTimeout,
		"tick_interval": w.conf.TickInterval,
		"bootstrap":     w.seed.Len(),
	}).Info("Starting discovery walk")

	for {
		err := w.Tick(ctx)
		switch {
		case errors.Is(err, ErrWalkShutdown):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.shutdownCh:
			return nil
		case <-w.clock.After(w.conf.TickInterval):
		}
	}
}

// Tick evaluates one candidate step: sample, propose, dispatch, await and
// then commit or walk back. Errors and panics inside the tick are logged and
// answered with a walk back. A tick cut short by ctx or Shutdown leaves the
// accepted step untouched.
func (w *Walk) Tick(ctx context.Context) (err error) {
	w.tickLock.Lock()
	defer w.tickLock.Unlock()

	if w.isShutdown() {
		return ErrWalkShutdown
	}

	atomic.AddUint64(&w.stats.ticks, 1)
	start := w.clock.Now()
	outcome := "rolled_back"

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}

		switch {
		case err == nil:
		case errors.Is(err, ErrWalkShutdown),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			outcome = "aborted"
		default:
			outcome = "error"
			atomic.AddUint64(&w.stats.errors, 1)
			if errors.Is(err, ErrEmptyPool) {
				w.logger.Warn("No peers to sample from, walking back")
			} else {
				w.logger.WithError(err).Error("Tick failed, walking back")
			}
			w.walkBack()
		}

		telemetry.Ticks.WithLabelValues(outcome).Inc()
		telemetry.TickDuration.Observe(w.clock.Now().Sub(start).Seconds())
		telemetry.HistoryDepth.Set(float64(w.caretaker.Len()))
	}()

	committed, err := w.evaluate(ctx)
	if committed {
		outcome = "committed"
	}

	return err
}

func (w *Walk) evaluate(ctx context.Context) (bool, error) {
	sample := w.sample(w.samplePool(ctx))
	if len(sample) == 0 {
		return false, ErrEmptyPool
	}

	candidate := w.originator.Propose(sample)

	r := newRound(candidate)
	w.active.Store(r)
	defer w.retire(r)

	if err := w.dispatch(r); err != nil {
		return false, err
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return false, ctx.Err()
	case <-w.shutdownCh:
		return false, ErrWalkShutdown
	}

	if !candidate.HasValidCandidate() {
		w.logger.WithFields(logrus.Fields{
			"responsive": len(candidate.ResponsivePeers()),
			"candidates": candidate.Len(),
		}).Debug("Candidate rejected")
		w.walkBack()
		return false, nil
	}

	if err := w.originator.Commit(w.caretaker); err != nil {
		return false, err
	}

	w.committed()

	return true, nil
}

// dispatch registers and sends one probe per candidate neighbour.
func (w *Walk) dispatch(r *round) error {
	for _, id := range r.ids() {
		n, _ := r.neighbour(id)

		deadline := w.clock.Now().Add(w.conf.StepTimeout)
		if err := w.manager.AddPending(id, n.Peer(), deadline); err != nil {
			if errors.Is(err, correlation.ErrClosed) {
				return ErrWalkShutdown
			}
			return fmt.Errorf("registering probe to %s: %w", n.Peer(), err)
		}

		w.client.SendProbe(n.Peer(), id)

		atomic.AddUint64(&w.stats.probes, 1)
		telemetry.Probes.WithLabelValues("sent").Inc()
	}

	telemetry.PendingRequests.Set(float64(w.manager.Len()))

	return nil
}

// retire detaches r from the walk and drops whatever it still has pending.
// Late responses and expiries for r become no-ops.
func (w *Walk) retire(r *round) {
	w.active.CompareAndSwap(r, nil)
	for _, id := range r.ids() {
		w.manager.Cancel(id)
	}
	telemetry.PendingRequests.Set(float64(w.manager.Len()))
}

func (w *Walk) committed() {
	accepted := w.originator.Accepted()

	atomic.AddUint64(&w.stats.commits, 1)

	w.logger.WithFields(logrus.Fields{
		"neighbours": accepted.Len(),
		"history":    w.caretaker.Len(),
	}).Info("Step committed")

	w.persist(accepted.ResponsivePeers())

	w.emit(StepCommitted, accepted)
}

// persist records the sighting of every peer once the burn-in window is over.
func (w *Walk) persist(ps []*peers.Peer) {
	if w.store == nil {
		return
	}

	now := w.clock.Now()
	for _, p := range ps {
		w.discovered++
		if w.discovered <= w.conf.BurnIn {
			continue
		}
		if err := store.RecordSighting(w.store, p, now); err != nil {
			w.logger.WithError(err).WithField("peer", p).Warn("Failed to persist peer")
		}
	}
}

// WalkBack restores the most recent memento, or the bootstrap step when the
// history is empty.
func (w *Walk) WalkBack() {
	w.tickLock.Lock()
	defer w.tickLock.Unlock()
	w.walkBack()
}

func (w *Walk) walkBack() {
	m, ok := w.caretaker.Get()
	if !ok {
		w.logger.Warn("History empty, restoring bootstrap step")
		m = newMemento(w.seed)
	}

	w.originator.Restore(m)

	atomic.AddUint64(&w.stats.rollbacks, 1)

	w.emit(StepRolledBack, w.originator.Accepted())
}

// HandleResponse matches an inbound probe reply against the active round. It
// returns false, changing nothing, for a reply that is unknown, late, already
// resolved, or sent by a peer other than the one probed.
func (w *Walk) HandleResponse(resp Response) bool {
	logger := w.logger.WithFields(logrus.Fields{
		"id":     resp.CorrelationID,
		"sender": resp.Sender,
	})

	r := w.active.Load()
	if r == nil {
		return w.unmatched(logger, "no active round")
	}

	n, ok := r.neighbour(resp.CorrelationID)
	if !ok {
		return w.unmatched(logger, "unknown correlation id")
	}

	if resp.Sender != nil && !n.Peer().Equals(resp.Sender) {
		return w.unmatched(logger, "unexpected sender")
	}

	if !w.manager.TryMatch(resp.CorrelationID) {
		return w.unmatched(logger, "already resolved")
	}

	r.resolve(n, true)

	atomic.AddUint64(&w.stats.responses, 1)
	telemetry.Probes.WithLabelValues("responsive").Inc()

	return true
}

func (w *Walk) unmatched(logger *logrus.Entry, reason string) bool {
	atomic.AddUint64(&w.stats.unmatched, 1)
	telemetry.Probes.WithLabelValues("unmatched").Inc()
	logger.WithField("reason", reason).Debug("Dropping unmatched response")
	return false
}

func (w *Walk) onExpire(req correlation.Request) {
	r := w.active.Load()
	if r == nil {
		return
	}

	n, ok := r.neighbour(req.ID)
	if !ok {
		return
	}

	if r.resolve(n, false) {
		atomic.AddUint64(&w.stats.timeouts, 1)
		telemetry.Probes.WithLabelValues("unresponsive").Inc()
		w.logger.WithField("peer", req.Recipient).Debug("Probe timed out")
	}
}

// samplePool returns the peers the next candidate is drawn from: the
// responsive neighbours of the accepted step, or the bootstrap pool when there
// are none, plus the neighbours reported by one of them.
func (w *Walk) samplePool(ctx context.Context) []*peers.Peer {
	pool := w.excludeSelf(w.originator.Accepted().ResponsivePeers())
	if len(pool) == 0 {
		pool = w.bootstrapPool()
	}

	if len(pool) > 0 {
		pool = w.exchange(ctx, pool)
	}

	return pool
}

func (w *Walk) bootstrapPool() []*peers.Peer {
	pool := w.seed.Peers()

	if w.conf.Bootstrap && w.store != nil {
		known, err := store.KnownPeers(w.store)
		if err != nil {
			w.logger.WithError(err).Warn("Failed to load known peers")
		} else {
			pool = mergePeers(pool, w.excludeSelf(known))
		}
	}

	return pool
}

// exchange asks a random member of pool for its neighbours and merges the ones
// not already in pool. Any failure leaves pool as it is. The request is bounded
// by StepTimeout and abandoned on Shutdown.
func (w *Walk) exchange(ctx context.Context, pool []*peers.Peer) []*peers.Peer {
	target := pool[w.rand.Intn(len(pool))]

	ctx, cancel := context.WithTimeout(ctx, w.conf.StepTimeout)
	defer cancel()

	go func() {
		select {
		case <-w.shutdownCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	more, err := w.client.RequestNeighbours(ctx, target)
	if err != nil {
		w.logger.WithError(err).WithField("peer", target).Debug("Neighbour exchange failed")
		return pool
	}

	known := peers.NewPeerSet(pool)
	fresh := 0
	for _, p := range more {
		if p != nil && !known.Contains(p) {
			fresh++
		}
	}

	w.logger.WithFields(logrus.Fields{
		"peer":  target,
		"fresh": fresh,
	}).Debug("Neighbour exchange")

	return mergePeers(pool, w.excludeSelf(more))
}

// sample draws up to SampleSize peers from pool without replacement.
func (w *Walk) sample(pool []*peers.Peer) []*peers.Peer {
	res := make([]*peers.Peer, len(pool))
	copy(res, pool)

	w.rand.Shuffle(len(res), func(i, j int) {
		res[i], res[j] = res[j], res[i]
	})

	if len(res) > w.conf.SampleSize {
		res = res[:w.conf.SampleSize]
	}

	return res
}

func (w *Walk) excludeSelf(ps []*peers.Peer) []*peers.Peer {
	return peers.NewPeerSet(ps).WithRemovedPeer(w.self).Peers
}

// mergePeers appends the peers of more that are not in pool yet.
func mergePeers(pool, more []*peers.Peer) []*peers.Peer {
	return peers.NewPeerSet(pool).WithNewPeers(more...).Peers
}

func (w *Walk) emit(t EventType, s *Step) {
	w.eventsLock.RLock()
	defer w.eventsLock.RUnlock()

	if w.eventsClosed {
		return
	}

	select {
	case w.events <- LifecycleEvent{Type: t, Step: s}:
	default:
		w.logger.WithField("event", t).Warn("Lifecycle event dropped, channel full")
	}
}

// Events returns the lifecycle events channel. It is closed by Shutdown.
func (w *Walk) Events() <-chan LifecycleEvent {
	return w.events
}

// Self returns this node's peer.
func (w *Walk) Self() *peers.Peer {
	return w.self
}

// CurrentStep returns a copy of the accepted step.
func (w *Walk) CurrentStep() *Step {
	return w.originator.Accepted()
}

// CandidateStep returns a copy of the candidate step, or nil.
func (w *Walk) CandidateStep() *Step {
	return w.originator.Candidate()
}

// History returns the mementos, oldest first.
func (w *Walk) History() []*Memento {
	return w.caretaker.History()
}

// Stats returns the walk counters.
func (w *Walk) Stats() Stats {
	return Stats{
		Ticks:           atomic.LoadUint64(&w.stats.ticks),
		Commits:         atomic.LoadUint64(&w.stats.commits),
		Rollbacks:       atomic.LoadUint64(&w.stats.rollbacks),
		Errors:          atomic.LoadUint64(&w.stats.errors),
		Probes:          atomic.LoadUint64(&w.stats.probes),
		Responses:       atomic.LoadUint64(&w.stats.responses),
		Timeouts:        atomic.LoadUint64(&w.stats.timeouts),
		Unmatched:       atomic.LoadUint64(&w.stats.unmatched),
		HistoryDepth:    w.caretaker.Len(),
		PendingRequests: w.manager.Len(),
	}
}

func (w *Walk) isShutdown() bool {
	select {
	case <-w.shutdownCh:
		return true
	default:
		return false
	}
}

// Shutdown stops the walk: a tick in progress is abandoned, every pending
// request is dropped, and the events channel is closed. In-flight probes are
// not recalled; their replies are ignored. Shutdown is idempotent.
func (w *Walk) Shutdown() {
	w.shutdownOnce.Do(func() {
		w.logger.Debug("Shutting down discovery walk")

		close(w.shutdownCh)
		w.manager.Close()

		// wait for the tick in progress to unwind
		w.tickLock.Lock()
		w.active.Store(nil)
		w.tickLock.Unlock()

		w.eventsLock.Lock()
		w.eventsClosed = true
		close(w.events)
		w.eventsLock.Unlock()
	})
}
