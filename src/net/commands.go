package net

import (
	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/peers"
)

// PingRequest is the liveness probe sent by the discovery walk. From lets the
// receiver learn about the sender.
type PingRequest struct {
	FromID        uint32
	From          *peers.Peer
	CorrelationID correlation.ID
}

// PingResponse echoes the correlation ID of the PingRequest it answers.
type PingResponse struct {
	FromID        uint32
	CorrelationID correlation.ID
}

// NeighboursRequest asks a node for its current neighbours.
type NeighboursRequest struct {
	FromID uint32
}

// NeighboursResponse lists the responsive neighbours of the responder's
// accepted step.
type NeighboursResponse struct {
	FromID uint32
	Peers  []*peers.Peer
}
