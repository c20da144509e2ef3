// Package live wires the portfolio client together.
//
// A Client owns one store and the three producers that feed it: the
// connection manager (pushed frames, decoded by the router), the refresh
// scheduler (periodic REST snapshots) and, when enabled, the snapshot
// recorder that appends every change to PostgreSQL. Callers observe the
// store through Subscribe and the channel through OnStatusChange.
package live
