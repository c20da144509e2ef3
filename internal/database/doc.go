// Package database opens the PostgreSQL pool used by the snapshot recorder
// and creates the resource_snapshots table it appends to.
package database
