// Package hastings assembles a complete node from a config.Config.
//
// Init loads or creates the node's key, reads the bootstrap peers (peers.json
// and seeds), opens the peer store (in-memory or Badger), binds the TCP
// transport, creates the node and, unless disabled, the HTTP service. Run
// starts them under a single errgroup so that a failure in one stops the
// others.
package hastings
