package router

import (
	"encoding/json"
	"errors"

	"github.com/rickgao/portfolio-sync/internal/model"
)

// ErrProtocolViolation marks a frame that could not be interpreted. The
// frame is dropped; the channel stays open.
var ErrProtocolViolation = errors.New("protocol violation")

// Sink receives decoded resource values. *store.Store satisfies it.
type Sink interface {
	Write(r model.Resource, value any, source model.Source) (uint64, error)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(r model.Resource, value any, source model.Source) (uint64, error)

func (f SinkFunc) Write(r model.Resource, value any, source model.Source) (uint64, error) {
	return f(r, value, source)
}

// Result of routing one frame.
type Result string

const (
	ResultApplied   Result = "applied"   // Decoded and written to the sink
	ResultIgnored   Result = "ignored"   // Control frame without a type
	ResultUnknown   Result = "unknown"   // Type names no tracked resource
	ResultViolation Result = "violation" // Not JSON, or data does not decode
	ResultRejected  Result = "rejected"  // Sink refused the value
)

// frameEnvelope is the outer shape of every pushed frame.
//
//	{"type": "carteira", "data": {...}, "timestamp": "2025-03-01T10:00:00"}
//
// The server also echoes client text as {"message": "Connected", "data": ...},
// which has no type.
type frameEnvelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}
