// Package service implements a HTTP API service to expose the walk of a node.
//
// The service exposes the following endpoints:
//
// GET /stats: returns a map of statistics about the node and its walk.
//
// GET /step: returns the accepted step, ie. the node's current neighbours and
// their states.
//
// GET /candidate: returns the step being evaluated, or null.
//
// GET /history: returns the steps the walk can go back to, oldest first.
//
// GET /peers: returns the neighbours of the accepted step.
//
// GET /knownpeers: returns the peers recorded in the store.
//
// GET /metrics: Prometheus metrics.
package service
