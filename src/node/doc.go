// Package node binds the discovery walk to a network transport.
//
// A Node plays both sides of the walk's probes. Outbound, it implements
// discovery.PeerClient: SendProbe sends a Ping RPC from a background routine
// and, when the reply comes back, hands it to the walk as a discovery.Response.
// A Ping that fails for any reason is simply dropped; the walk sees it as an
// expired probe. Inbound, it consumes the transport's RPC channel and answers
// Ping requests by echoing their correlation ID, and Neighbours requests with
// the responsive neighbours of the accepted step.
//
// The node's lifecycle is a small state machine (Walking, Shutdown) held in
// an atomic word, and every background routine it launches is tracked so that
// Shutdown can wait for them before closing the transport and the store.
package node
