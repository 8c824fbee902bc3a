// Package peers defines the identity of a Hastings peer and implements
// functions to manage collections of peers.
//
// A peer is identified by its public key. The network address is where it can
// currently be reached and the moniker is a non-unique, user-friendly name.
// The 32-bit ID derived from the public key is a compact handle used on the
// wire and in logs.
//
// Upon starting up, a node looks for a peers.json file in its data directory.
// The peers it lists are the bootstrap (seed) peers from which the discovery
// walk starts, and to which it falls back when it has walked all the way back.
// Seeds can also be given on the command line as pubkey@address, where address
// is host:port or a multiaddr such as /ip4/10.0.0.1/tcp/1337.
package peers
