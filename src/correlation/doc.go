// Package correlation matches asynchronous replies to the requests that
// caused them.
//
// Every outgoing request that expects a reply is registered with a Manager
// under a fresh correlation ID, together with a deadline. From then on exactly
// one of two things happens to it:
//
// - a reply carrying the same ID arrives before the deadline, and TryMatch
// removes the request and returns true;
//
// - the deadline passes first, the Manager removes the request and hands it to
// the ExpiryHandler it was created with.
//
// Both paths go through the same lookup-and-remove under a single lock, so a
// reply racing with its own deadline resolves the request exactly once. The
// Manager owns the deadline timers; they are created through a Clock, which is
// either the RealClock or a ManualClock that tests advance by hand.
package correlation
