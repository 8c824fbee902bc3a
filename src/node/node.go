package node

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/discovery"
	"github.com/mosaicnetworks/hastings/src/net"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/mosaicnetworks/hastings/src/store"
	"github.com/sirupsen/logrus"
)

// Node defines a Hastings node
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	validator *Validator
	self      *peers.Peer

	walk *discovery.Walk

	trans net.Transport
	netCh <-chan net.RPC

	store store.Store

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	start        time.Time
	pingRequests uint64
	pingErrors   uint64
}

// NewNode is a factory method that returns a Node instance. peerStore may be
// nil.
func NewNode(conf *Config,
	validator *Validator,
	trans net.Transport,
	peerStore store.Store,
) *Node {

	logger := conf.Logger.WithField("this_id", validator.ID())

	node := &Node{
		validator:  validator,
		conf:       conf,
		logger:     logger,
		self:       validator.Peer(trans.AdvertiseAddr()),
		trans:      trans,
		netCh:      trans.Consumer(),
		store:      peerStore,
		shutdownCh: make(chan struct{}),
		start:      time.Now(),
	}

	node.walk = discovery.NewWalk(node.self, node, peerStore, conf.walkConfig(logger))

	return node
}

// RunAsync calls Run as a separate thread
func (n *Node) RunAsync(ctx context.Context) {
	n.logger.Debug("runasync")

	go n.Run(ctx)
}

// Run serves inbound RPCs and runs the discovery walk until ctx is cancelled
// or the node is shut down.
func (n *Node) Run(ctx context.Context) error {
	// The transport layer listens for incoming connections
	go n.trans.Listen()

	go n.doBackgroundWork()
	go n.watchEvents()

	err := n.walk.Run(ctx)

	n.logger.WithError(err).Debug("Walk stopped")

	return err
}

func (n *Node) doBackgroundWork() {
	for {
		select {
		case rpc := <-n.netCh:
			n.processRPC(rpc)
		case <-n.shutdownCh:
			return
		}
	}
}

// watchEvents drains the walk's lifecycle events until the walk closes the
// channel.
func (n *Node) watchEvents() {
	for ev := range n.walk.Events() {
		n.logger.WithFields(logrus.Fields{
			"event":      ev.Type.String(),
			"neighbours": ev.Step.Len(),
		}).Debug("Walk event")

		if ev.Type == discovery.StepCommitted {
			n.logStats()
		}
	}
}

// SendProbe implements discovery.PeerClient. The Ping runs in the
// background; only a successful reply from the expected peer reaches the walk.
func (n *Node) SendProbe(recipient *peers.Peer, id correlation.ID) {
	ok := n.goFunc(func() {
		atomic.AddUint64(&n.pingRequests, 1)

		resp, err := n.requestPing(recipient.NetAddr, id)
		if err != nil {
			atomic.AddUint64(&n.pingErrors, 1)
			n.logger.WithError(err).WithField("peer", recipient).Debug("requestPing()")
			return
		}

		if resp.FromID != recipient.ID() {
			atomic.AddUint64(&n.pingErrors, 1)
			n.logger.WithFields(logrus.Fields{
				"peer":    recipient,
				"from_id": resp.FromID,
			}).Debug("Ping answered by unexpected peer")
			return
		}

		n.walk.HandleResponse(discovery.Response{
			CorrelationID: resp.CorrelationID,
			Sender:        recipient,
		})
	})

	if !ok {
		n.logger.WithField("peer", recipient).Warn("Too many routines, dropping probe")
	}
}

// RequestNeighbours implements discovery.PeerClient.
func (n *Node) RequestNeighbours(ctx context.Context, target *peers.Peer) ([]*peers.Peer, error) {
	type result struct {
		resp net.NeighboursResponse
		err  error
	}

	resCh := make(chan result, 1)
	go func() {
		resp, err := n.requestNeighbours(target.NetAddr)
		resCh <- result{resp, err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, res.err
		}
		return res.resp.Peers, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown shuts down the node. It is safe to call more than once, and from
// several goroutines; every call returns after the node is shut down.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")

		//Exit any non-shutdown state immediately
		n.setState(Shutdown)

		close(n.shutdownCh)

		n.walk.Shutdown()

		//Stop and wait for concurrent operations
		n.waitRoutines()

		//transport and store should only be closed once all concurrent operations
		//are finished otherwise they will panic trying to use close objects
		n.trans.Close()

		if n.store != nil {
			n.store.Close()
		}
	})
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	ws := n.walk.Stats()
	step := n.walk.CurrentStep()

	u := func(i uint64) string {
		return strconv.FormatUint(i, 10)
	}

	s := map[string]string{
		"id":               fmt.Sprint(n.validator.ID()),
		"moniker":          n.validator.Moniker,
		"state":            n.getState().String(),
		"time_elapsed":     strconv.FormatFloat(time.Since(n.start).Seconds(), 'f', 2, 64),
		"ticks":            u(ws.Ticks),
		"commits":          u(ws.Commits),
		"rollbacks":        u(ws.Rollbacks),
		"errors":           u(ws.Errors),
		"probes":           u(ws.Probes),
		"responses":        u(ws.Responses),
		"timeouts":         u(ws.Timeouts),
		"unmatched":        u(ws.Unmatched),
		"history_depth":    strconv.Itoa(ws.HistoryDepth),
		"pending_requests": strconv.Itoa(ws.PendingRequests),
		"neighbours":       strconv.Itoa(step.Len()),
		"responsive":       strconv.Itoa(len(step.ResponsivePeers())),
		"ping_rate":        strconv.FormatFloat(n.PingRate(), 'f', 2, 64),
	}
	return s
}

func (n *Node) logStats() {
	stats := n.GetStats()

	n.logger.WithFields(logrus.Fields{
		"ticks":         stats["ticks"],
		"commits":       stats["commits"],
		"rollbacks":     stats["rollbacks"],
		"neighbours":    stats["neighbours"],
		"history_depth": stats["history_depth"],
		"ping_rate":     stats["ping_rate"],
		"state":         stats["state"],
		"moniker":       stats["moniker"],
	}).Debug("Stats")
}

// PingRate returns the fraction of Pings that were answered.
func (n *Node) PingRate() float64 {
	requests := atomic.LoadUint64(&n.pingRequests)
	if requests == 0 {
		return 1
	}
	errors := atomic.LoadUint64(&n.pingErrors)
	return 1 - float64(errors)/float64(requests)
}

// ID returns the validator ID
func (n *Node) ID() uint32 {
	return n.validator.ID()
}

// Self returns the peer this node advertises.
func (n *Node) Self() *peers.Peer {
	return n.self
}

// GetPeers returns the neighbours of the accepted step
func (n *Node) GetPeers() []*peers.Peer {
	return n.walk.CurrentStep().Peers()
}

// GetStep returns the accepted step
func (n *Node) GetStep() *discovery.Step {
	return n.walk.CurrentStep()
}

// GetCandidate returns the step under evaluation, or nil
func (n *Node) GetCandidate() *discovery.Step {
	return n.walk.CandidateStep()
}

// GetHistory returns the mementos the walk can step back to
func (n *Node) GetHistory() []*discovery.Memento {
	return n.walk.History()
}

// GetKnownPeers returns the peers persisted in the store
func (n *Node) GetKnownPeers() ([]*store.PeerRecord, error) {
	if n.store == nil {
		return []*store.PeerRecord{}, nil
	}
	return n.store.Peers()
}
