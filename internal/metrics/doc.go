// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Channel state, connection attempts and received frames
//   - Snapshot fetch outcomes and latencies
//   - Store writes by resource and source
//   - Recorder batch sizes, latencies and queue depth
package metrics
