// Package writer records store changes to PostgreSQL.
//
// SnapshotWriter subscribes to the store, queues every change without
// blocking the writer that produced it, and appends batches of rows to
// resource_snapshots. Rows are insert-only. Each process run gets its own
// session_id so histories from different runs can be told apart.
package writer
