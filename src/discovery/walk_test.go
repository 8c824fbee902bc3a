package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/mosaicnetworks/hastings/src/store"
)

const testTimeout = 5 * time.Second

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type probe struct {
	recipient *peers.Peer
	id        correlation.ID
}

// fakeClient records probes. When echo is set it answers every probe on the
// spot.
type fakeClient struct {
	sync.Mutex
	walk       *Walk
	echo       bool
	panicking  bool
	probes     chan probe
	neighbours map[string][]*peers.Peer
	exchanges  int

	// when set, RequestNeighbours signals started and blocks until its
	// context is done
	blockExchange   bool
	exchangeStarted chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		probes:          make(chan probe, 1000),
		neighbours:      make(map[string][]*peers.Peer),
		exchangeStarted: make(chan struct{}, 1),
	}
}

func (c *fakeClient) SendProbe(recipient *peers.Peer, id correlation.ID) {
	if c.panicking {
		panic("boom")
	}
	if c.echo {
		c.walk.HandleResponse(Response{CorrelationID: id, Sender: recipient})
	}
	c.probes <- probe{recipient: recipient, id: id}
}

func (c *fakeClient) RequestNeighbours(ctx context.Context, target *peers.Peer) ([]*peers.Peer, error) {
	c.Lock()
	c.exchanges++
	block := c.blockExchange
	ns, ok := c.neighbours[target.PubKeyString()]
	c.Unlock()

	if block {
		c.exchangeStarted <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if !ok {
		return nil, errors.New("unknown peer")
	}
	return ns, nil
}

func testConfig(t *testing.T, clock correlation.Clock, seeds []*peers.Peer) *Config {
	conf := DefaultConfig()
	conf.StepTimeout = time.Second
	conf.TickInterval = 10 * time.Second
	conf.BootstrapPeers = seeds
	conf.Clock = clock
	conf.Logger = common.NewTestEntry(t, common.TestLogLevel)
	return conf
}

func newTestWalk(t *testing.T, seeds []*peers.Peer, conf func(*Config)) (*Walk, *correlation.ManualClock, *fakeClient) {
	clock := correlation.NewManualClock(epoch)
	client := newFakeClient()
	c := testConfig(t, clock, seeds)
	if conf != nil {
		conf(c)
	}
	w := NewWalk(testSelf(), client, nil, c)
	client.walk = w
	t.Cleanup(w.Shutdown)
	return w, clock, client
}

func startTick(w *Walk) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Tick(context.Background())
	}()
	return errCh
}

func collectProbes(t *testing.T, c *fakeClient, n int) []probe {
	res := make([]probe, 0, n)
	for len(res) < n {
		select {
		case p := <-c.probes:
			res = append(res, p)
		case <-time.After(testTimeout):
			t.Fatalf("timeout waiting for probes, got %d of %d", len(res), n)
		}
	}
	return res
}

func waitTick(t *testing.T, errCh <-chan error) error {
	select {
	case err := <-errCh:
		return err
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for tick")
		return nil
	}
}

func nextEvent(t *testing.T, w *Walk) LifecycleEvent {
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for lifecycle event")
		return LifecycleEvent{}
	}
}

func respond(t *testing.T, w *Walk, ps []probe) {
	for _, p := range ps {
		if !w.HandleResponse(Response{CorrelationID: p.id, Sender: p.recipient}) {
			t.Fatalf("response to %s should match", p.recipient)
		}
	}
}

// commitOnce runs a tick in which every seed answers.
func commitOnce(t *testing.T, w *Walk, c *fakeClient, n int) {
	errCh := startTick(w)
	respond(t, w, collectProbes(t, c, n))
	if err := waitTick(t, errCh); err != nil {
		t.Fatal(err)
	}
	if ev := nextEvent(t, w); ev.Type != StepCommitted {
		t.Fatalf("event should be StepCommitted, not %v", ev.Type)
	}
}

func TestWalkAllRespond(t *testing.T) {
	seeds := testPeers(5)
	w, _, c := newTestWalk(t, seeds, nil)

	errCh := startTick(w)
	ps := collectProbes(t, c, 5)

	candidate := w.CandidateStep()
	if candidate == nil || candidate.Len() != 5 {
		t.Fatal("candidate should hold 5 neighbours while probes are in flight")
	}
	for _, n := range candidate.Neighbours {
		if n.State() != Contacted {
			t.Fatalf("candidate neighbour should be Contacted, not %v", n.State())
		}
	}

	respond(t, w, ps)

	if err := waitTick(t, errCh); err != nil {
		t.Fatal(err)
	}

	current := w.CurrentStep()
	if !current.HasValidCandidate() {
		t.Fatal("committed step should be valid")
	}
	if current.Len() != 5 {
		t.Fatalf("committed step should hold 5 neighbours, not %d", current.Len())
	}

	h := w.History()
	if len(h) != 1 {
		t.Fatalf("history should grow by exactly 1, has %d", len(h))
	}
	if !h[0].Step().Equal(NewStep(testSelf(), seeds)) {
		t.Fatal("history should hold the bootstrap step")
	}

	ev := nextEvent(t, w)
	if ev.Type != StepCommitted || !ev.Step.Equal(current) {
		t.Fatal("walk should emit StepCommitted with the new step")
	}

	stats := w.Stats()
	if stats.Commits != 1 || stats.Probes != 5 || stats.Responses != 5 || stats.PendingRequests != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestWalkAllExpire(t *testing.T) {
	seeds := testPeers(5)
	w, clock, c := newTestWalk(t, seeds, nil)

	commitOnce(t, w, c, 5)

	previous := w.History()[0]

	errCh := startTick(w)
	collectProbes(t, c, 5)

	clock.Advance(time.Second)

	if err := waitTick(t, errCh); err != nil {
		t.Fatal(err)
	}

	current := w.CurrentStep()
	if current.HasValidCandidate() {
		t.Fatal("step should not be valid after rollback to the bootstrap step")
	}
	if !current.Self.Equals(previous.Self()) {
		t.Fatal("walk back should restore the previous memento's identity")
	}
	if !current.Equal(previous.Step()) {
		t.Fatal("walk back should restore the previous memento")
	}
	if len(w.History()) != 0 {
		t.Fatalf("history should be empty, has %d", len(w.History()))
	}

	if ev := nextEvent(t, w); ev.Type != StepRolledBack {
		t.Fatalf("event should be StepRolledBack, not %v", ev.Type)
	}

	stats := w.Stats()
	if stats.Timeouts != 5 || stats.Rollbacks != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestWalkMixedIsRejected(t *testing.T) {
	seeds := testPeers(5)
	w, clock, c := newTestWalk(t, seeds, nil)

	commitOnce(t, w, c, 5)
	committed := w.CurrentStep()

	errCh := startTick(w)
	ps := collectProbes(t, c, 5)

	respond(t, w, ps[:3])

	candidate := w.CandidateStep()
	if len(candidate.ResponsivePeers()) != 3 {
		t.Fatalf("candidate should have 3 responsive neighbours, not %d", len(candidate.ResponsivePeers()))
	}

	clock.Advance(time.Second)

	if err := waitTick(t, errCh); err != nil {
		t.Fatal(err)
	}

	if w.CurrentStep().Equal(committed) {
		t.Fatal("a partially responsive candidate should not be committed")
	}
	if !w.CurrentStep().Equal(NewStep(testSelf(), seeds)) {
		t.Fatal("walk should roll back to the bootstrap step")
	}

	stats := w.Stats()
	if stats.Commits != 1 || stats.Rollbacks != 1 || stats.Timeouts != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestWalkBackEmptyHistory(t *testing.T) {
	seeds := testPeers(5)
	w, _, _ := newTestWalk(t, seeds, nil)

	w.WalkBack()

	if !w.CurrentStep().Equal(NewStep(testSelf(), seeds)) {
		t.Fatal("walk back with empty history should restore the bootstrap step")
	}

	if ev := nextEvent(t, w); ev.Type != StepRolledBack {
		t.Fatalf("event should be StepRolledBack, not %v", ev.Type)
	}
}

func TestWalkFirstTickExpiresToBootstrap(t *testing.T) {
	seeds := testPeers(3)
	w, clock, c := newTestWalk(t, seeds, func(conf *Config) {
		conf.SampleSize = 3
	})

	errCh := startTick(w)
	collectProbes(t, c, 3)
	clock.Advance(time.Second)

	if err := waitTick(t, errCh); err != nil {
		t.Fatal(err)
	}

	if !w.CurrentStep().Equal(NewStep(testSelf(), seeds)) {
		t.Fatal("walk should stay on the bootstrap step")
	}
}

func TestHandleResponseIdempotent(t *testing.T) {
	w, clock, c := newTestWalk(t, testPeers(2), func(conf *Config) {
		conf.SampleSize = 2
	})

	errCh := startTick(w)
	ps := collectProbes(t, c, 2)

	resp := Response{CorrelationID: ps[0].id, Sender: ps[0].recipient}
	if !w.HandleResponse(resp) {
		t.Fatal("first response should match")
	}
	if w.HandleResponse(resp) {
		t.Fatal("second response should not match")
	}

	if w.Stats().Responses != 1 || w.Stats().Unmatched != 1 {
		t.Fatalf("unexpected stats %+v", w.Stats())
	}

	clock.Advance(time.Second)
	waitTick(t, errCh)

	// late reply to the expired probe
	if w.HandleResponse(Response{CorrelationID: ps[1].id, Sender: ps[1].recipient}) {
		t.Fatal("late response should not match")
	}
}

func TestHandleResponseWrongSender(t *testing.T) {
	seeds := testPeers(2)
	w, _, c := newTestWalk(t, seeds, func(conf *Config) {
		conf.SampleSize = 1
	})

	errCh := startTick(w)
	ps := collectProbes(t, c, 1)

	var other *peers.Peer
	for _, s := range seeds {
		if !s.Equals(ps[0].recipient) {
			other = s
		}
	}

	if w.HandleResponse(Response{CorrelationID: ps[0].id, Sender: other}) {
		t.Fatal("response from the wrong sender should not match")
	}

	if w.HandleResponse(Response{CorrelationID: correlation.NewID(), Sender: ps[0].recipient}) {
		t.Fatal("response with an unknown id should not match")
	}

	respond(t, w, ps)

	if err := waitTick(t, errCh); err != nil {
		t.Fatal(err)
	}

	if w.Stats().Commits != 1 {
		t.Fatal("walk should commit after the right sender answered")
	}
}

func TestTickEmptyPool(t *testing.T) {
	w, _, _ := newTestWalk(t, nil, nil)

	if err := w.Tick(context.Background()); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("Tick should return ErrEmptyPool, not %v", err)
	}

	if w.Stats().Rollbacks != 1 {
		t.Fatal("an empty pool should walk back")
	}
}

func TestTickExcludesSelf(t *testing.T) {
	seeds := append(testPeers(2), testSelf())
	w, _, c := newTestWalk(t, seeds, nil)

	errCh := startTick(w)
	ps := collectProbes(t, c, 2)
	respond(t, w, ps)

	if err := waitTick(t, errCh); err != nil {
		t.Fatal(err)
	}

	for _, p := range w.CurrentStep().Peers() {
		if p.Equals(testSelf()) {
			t.Fatal("walk should never probe itself")
		}
	}
}

func TestTickRecoversPanic(t *testing.T) {
	w, _, c := newTestWalk(t, testPeers(3), nil)
	c.panicking = true

	err := w.Tick(context.Background())
	if err == nil {
		t.Fatal("Tick should report the panic")
	}

	stats := w.Stats()
	if stats.Errors != 1 || stats.Rollbacks != 1 {
		t.Fatalf("panic should count as an error and walk back, got %+v", stats)
	}
	if stats.PendingRequests != 0 {
		t.Fatalf("aborted tick should cancel its pending requests, %d left", stats.PendingRequests)
	}
}

func TestTickCancelled(t *testing.T) {
	seeds := testPeers(3)
	w, clock, c := newTestWalk(t, seeds, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Tick(ctx)
	}()

	collectProbes(t, c, 3)
	cancel()

	if err := waitTick(t, errCh); !errors.Is(err, context.Canceled) {
		t.Fatalf("Tick should return context.Canceled, not %v", err)
	}

	if w.Stats().PendingRequests != 0 {
		t.Fatal("cancelled tick should drop its pending requests")
	}
	if w.Stats().Rollbacks != 0 {
		t.Fatal("cancelled tick should not walk back")
	}
	if clock.Pending() != 0 {
		t.Fatalf("cancelled tick should stop its timers, %d left", clock.Pending())
	}
	if !w.CurrentStep().Equal(NewStep(testSelf(), seeds)) {
		t.Fatal("cancelled tick should leave the accepted step alone")
	}
}

func TestShutdownDuringTick(t *testing.T) {
	w, _, c := newTestWalk(t, testPeers(3), nil)

	errCh := startTick(w)
	ps := collectProbes(t, c, 3)

	w.Shutdown()

	if err := waitTick(t, errCh); !errors.Is(err, ErrWalkShutdown) {
		t.Fatalf("Tick should return ErrWalkShutdown, not %v", err)
	}

	// callbacks against a torn-down walk are harmless
	if w.HandleResponse(Response{CorrelationID: ps[0].id, Sender: ps[0].recipient}) {
		t.Fatal("response after shutdown should not match")
	}

	if err := w.Tick(context.Background()); !errors.Is(err, ErrWalkShutdown) {
		t.Fatalf("Tick after shutdown should return ErrWalkShutdown, not %v", err)
	}

	if _, ok := <-w.Events(); ok {
		t.Fatal("events channel should be closed")
	}

	w.Shutdown()
}

func TestEventsDroppedWhenFull(t *testing.T) {
	w, _, _ := newTestWalk(t, testPeers(1), func(conf *Config) {
		conf.EventBuffer = 1
	})

	w.WalkBack()
	w.WalkBack()
	w.WalkBack()

	if w.Stats().Rollbacks != 3 {
		t.Fatal("walk should not stall on a full events channel")
	}

	if len(w.Events()) != 1 {
		t.Fatalf("events channel should hold 1 event, not %d", len(w.Events()))
	}
}

func TestBurnInPersistence(t *testing.T) {
	clock := correlation.NewManualClock(epoch)
	client := newFakeClient()
	client.echo = true
	peerStore := store.NewInmemStore()

	conf := testConfig(t, clock, testPeers(5))
	conf.BurnIn = 2

	w := NewWalk(testSelf(), client, peerStore, conf)
	client.walk = w
	defer w.Shutdown()

	if err := w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	records, err := peerStore.Peers()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("store should hold 3 peers after a burn-in of 2, not %d", len(records))
	}

	if err := w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	records, _ = peerStore.Peers()
	if len(records) != 5 {
		t.Fatalf("store should hold 5 peers after burn-in, not %d", len(records))
	}
}

func TestBootstrapFromStore(t *testing.T) {
	clock := correlation.NewManualClock(epoch)
	client := newFakeClient()
	client.echo = true
	peerStore := store.NewInmemStore()

	known := testPeers(4)
	for _, p := range known {
		if err := store.RecordSighting(peerStore, p, epoch); err != nil {
			t.Fatal(err)
		}
	}

	conf := testConfig(t, clock, nil)
	conf.Bootstrap = true

	w := NewWalk(testSelf(), client, peerStore, conf)
	client.walk = w
	defer w.Shutdown()

	if err := w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	if w.CurrentStep().Len() != 4 {
		t.Fatalf("walk should sample the 4 stored peers, got %d", w.CurrentStep().Len())
	}
}

func TestNeighbourExchange(t *testing.T) {
	ps := testPeers(6)
	w, _, c := newTestWalk(t, ps[:1], func(conf *Config) {
		conf.SampleSize = 4
	})
	c.echo = true
	c.neighbours[ps[0].PubKeyString()] = append(ps[1:], testSelf())

	if err := w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	if c.exchanges != 1 {
		t.Fatalf("walk should ask for neighbours once, asked %d times", c.exchanges)
	}

	current := w.CurrentStep()
	if current.Len() != 4 {
		t.Fatalf("step should hold 4 neighbours after the exchange, not %d", current.Len())
	}
	for _, p := range current.Peers() {
		if p.Equals(testSelf()) {
			t.Fatal("exchange should not bring self into the pool")
		}
	}
}

func TestNeighbourExchangeEveryTick(t *testing.T) {
	all := testPeers(10)
	seeds, outsiders := all[:5], all[5:]

	w, _, c := newTestWalk(t, seeds, nil)
	c.echo = true
	for _, p := range seeds {
		c.neighbours[p.PubKeyString()] = outsiders
	}
	for _, p := range outsiders {
		c.neighbours[p.PubKeyString()] = seeds
	}

	seedSet := peers.NewPeerSet(seeds)

	for i := 0; i < 10; i++ {
		if err := w.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}

		for _, p := range w.CurrentStep().Peers() {
			if !seedSet.Contains(p) {
				if c.exchanges != i+1 {
					t.Fatalf("walk should exchange once per tick, %d exchanges in %d ticks", c.exchanges, i+1)
				}
				return
			}
		}
	}

	t.Fatal("peers learnt from neighbours should reach a committed step")
}

func TestSampleFromLargePool(t *testing.T) {
	seeds := testPeers(8)
	w, _, c := newTestWalk(t, seeds, nil)
	c.echo = true

	if err := w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	current := w.CurrentStep()
	if current.Len() != 5 {
		t.Fatalf("step should hold SampleSize neighbours, not %d", current.Len())
	}

	if n := peers.NewPeerSet(current.Peers()).Len(); n != 5 {
		t.Fatalf("sampled neighbours should be distinct, got %d unique", n)
	}

	seedSet := peers.NewPeerSet(seeds)
	for _, p := range current.Peers() {
		if !seedSet.Contains(p) {
			t.Fatalf("%s was not in the pool", p)
		}
	}
}

func TestShutdownDuringExchange(t *testing.T) {
	w, _, c := newTestWalk(t, testPeers(3), func(conf *Config) {
		conf.StepTimeout = time.Minute
	})
	c.blockExchange = true

	errCh := startTick(w)

	select {
	case <-c.exchangeStarted:
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for the neighbour exchange")
	}

	done := make(chan struct{})
	go func() {
		w.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("Shutdown should not wait for the exchange to time out")
	}

	if err := waitTick(t, errCh); !errors.Is(err, ErrWalkShutdown) {
		t.Fatalf("Tick should return ErrWalkShutdown, not %v", err)
	}
}

func TestRun(t *testing.T) {
	w, clock, c := newTestWalk(t, testPeers(5), nil)
	c.echo = true

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- w.Run(ctx)
	}()

	if ev := nextEvent(t, w); ev.Type != StepCommitted {
		t.Fatalf("event should be StepCommitted, not %v", ev.Type)
	}

	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)

	if ev := nextEvent(t, w); ev.Type != StepCommitted {
		t.Fatalf("event should be StepCommitted, not %v", ev.Type)
	}

	cancel()

	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run should return context.Canceled, not %v", err)
		}
	case <-time.After(testTimeout):
		t.Fatal("Run should stop on cancel")
	}

	if len(w.History()) != 2 {
		t.Fatalf("history should hold 2 mementos, not %d", len(w.History()))
	}
}
