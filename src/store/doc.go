// Package store persists the peers discovered by the random walk so that a
// restarted node can bootstrap from more than its configured seeds.
//
// Two implementations are provided: InmemStore, which forgets everything on
// exit, and BadgerStore, which keeps peer records in a Badger key-value
// database on disk.
package store
