// Package discovery implements the peer-discovery random walk.
//
// A node never knows the whole network. Instead it holds a Step: itself plus a
// fixed-size set of Neighbours it believes to be alive. On every tick the Walk
// samples a new candidate set from the Responsive neighbours of the accepted
// step (or from the bootstrap peers when there are none), probes every
// candidate concurrently, and waits until each probe has either been answered
// or has missed its deadline.
//
// If every candidate answered, the candidate becomes the accepted step and the
// previous accepted step is pushed onto the CareTaker as a Memento. Otherwise
// the walk steps back: the most recent Memento is popped and restored, or, if
// the history is empty, the bootstrap step is restored.
//
// Probe replies are matched to their requests through a correlation.Manager.
// A reply and a deadline can race; the Manager and the compare-and-set
// transitions of Neighbour guarantee that exactly one of them wins.
//
// The acceptance rule is strict: a single unresponsive candidate rejects the
// whole step. On a network with a few flaky peers this can keep a node walking
// back for a long time.
package discovery
