// Package net implements the transports Hastings nodes use to talk to each
// other.
//
// A Transport carries two request/response RPCs:
//
// - Ping: the liveness probe of the discovery walk. The request carries a
// correlation ID which the response echoes back.
//
// - Neighbours: asks a node for the responsive neighbours of its accepted
// step, used to enrich a sampling pool that is too small.
//
// There are two implementations:
//
// - Inmem: in-memory transport used only for testing
//
// - TCP: communicating over plain TCP
//
// To use a TCP transport, set the following configuration options in the
// Config object (cf config package):
//
// - BindAddr: the IP:PORT of the TCP socket that Hastings binds to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other nodes. If
// BindAddr is a local address not reachable by other peers, it is useful to
// set AdvertiseAddr to the reachable public address.
package net
