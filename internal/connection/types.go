package connection

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rickgao/portfolio-sync/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrAlreadyStarted  = errors.New("already started")
	ErrChannelClosed   = errors.New("channel closed by peer")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a frame from the Connection Manager to the router.
type RawMessage struct {
	Data       []byte    // Raw frame bytes
	Conn       uint64    // Generation of the connection that received it
	ReceivedAt time.Time // Local timestamp when the client read the frame
}

// Status is a point-in-time view of the manager.
type Status struct {
	State        model.ConnectionState
	RetryPending bool   // A reconnect timer is armed
	Attempts     int64  // Dial attempts since Start
	Reconnects   int64  // Successful opens after the first one
	LastError    error  // Cause of the most recent disconnect
	Conn         uint64 // Current connection generation
}

// MarshalJSON renders the state by name and the last error as text.
func (s Status) MarshalJSON() ([]byte, error) {
	var lastErr string
	if s.LastError != nil {
		lastErr = s.LastError.Error()
	}
	return json.Marshal(struct {
		State        string `json:"state"`
		RetryPending bool   `json:"retry_pending"`
		Attempts     int64  `json:"attempts"`
		Reconnects   int64  `json:"reconnects"`
		LastError    string `json:"last_error,omitempty"`
		Conn         uint64 `json:"conn"`
	}{
		State:        s.State.String(),
		RetryPending: s.RetryPending,
		Attempts:     s.Attempts,
		Reconnects:   s.Reconnects,
		LastError:    lastErr,
		Conn:         s.Conn,
	})
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Channel URL (e.g., ws://localhost:8000/ws)
	Token            string        // Optional bearer token sent on the handshake
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingInterval     time.Duration // How often we ping the server
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Client            ClientConfig  // Settings for every connection the manager opens
	RetryDelay        time.Duration // Fixed wait before reconnecting
	MessageBufferSize int           // Buffer size for output frame channel
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:            DefaultClientConfig(),
		RetryDelay:        3 * time.Second,
		MessageBufferSize: 1024,
	}
}
