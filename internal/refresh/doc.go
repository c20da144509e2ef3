// Package refresh implements the Refresh Scheduler component.
//
// The Refresh Scheduler:
//   - Pulls every resource once at startup, then once per interval
//   - Fetches the resources of a round concurrently, with a bounded fan-out
//   - Writes each successful result to the store as soon as it arrives
//   - Lets rounds overlap; a slow round never delays the next tick
package refresh
