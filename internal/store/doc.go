// Package store holds the latest known value of every portfolio resource.
//
// Each resource starts unloaded and is only ever replaced as a whole. Writes
// from the refresh scheduler and from pushed frames go through the same
// Write call: last writer wins, and every write bumps the resource version.
//
// Subscribers are notified synchronously after each write, in write order.
// A subscriber must not call Write from its callback.
package store
