// Package model defines shared data types used across the portfolio sync client.
//
// Values mirror the JSON bodies served by the portfolio backend. Field names
// are English; JSON tags keep the backend's Portuguese keys.
//
// Conventions:
//   - Money and quantities: float64, as reported by the backend
//   - Timestamps: Timestamp (accepts RFC 3339 and zone-less ISO 8601)
//   - A resource value is always replaced whole, never patched
package model
