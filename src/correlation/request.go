package correlation

import (
	"time"

	"github.com/mosaicnetworks/hastings/src/peers"
)

// Request is an outgoing request awaiting a reply.
type Request struct {
	ID        ID
	Recipient *peers.Peer
	Deadline  time.Time
}

// ExpiryHandler is invoked, outside of any Manager lock, with every Request
// whose deadline passed before it was matched or cancelled.
type ExpiryHandler func(Request)
