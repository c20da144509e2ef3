// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single duplex WebSocket channel to the portfolio backend
//   - Tracks the channel state (disconnected, connecting, connected)
//   - Reconnects after a fixed delay, keeping at most one retry pending
//   - Forwards inbound frames to the router without interpreting them
package connection
