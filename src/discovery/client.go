package discovery

import (
	"context"

	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/peers"
)

// PeerClient sends probes on behalf of the walk.
type PeerClient interface {
	// SendProbe sends a probe carrying id to recipient and returns without
	// waiting for the reply. Delivery failures are not reported; they surface
	// as expiry.
	SendProbe(recipient *peers.Peer, id correlation.ID)

	// RequestNeighbours asks target for the responsive neighbours of its
	// accepted step.
	RequestNeighbours(ctx context.Context, target *peers.Peer) ([]*peers.Peer, error)
}

// Response is an inbound probe reply.
type Response struct {
	CorrelationID correlation.ID
	Sender        *peers.Peer
}
