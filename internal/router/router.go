package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/portfolio-sync/internal/api"
	"github.com/rickgao/portfolio-sync/internal/connection"
	"github.com/rickgao/portfolio-sync/internal/metrics"
	"github.com/rickgao/portfolio-sync/internal/model"
)

// Router parses pushed frames and writes their values to a Sink.
type Router interface {
	// Start begins routing frames from the input channel.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router.
	Stop(ctx context.Context) error

	// Stats returns current router statistics.
	Stats() RouterStats
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64 `json:"messages_received"`
	MessagesRouted   int64 `json:"messages_routed"`
	Ignored          int64 `json:"ignored"`
	ParseErrors      int64 `json:"parse_errors"` // Protocol violations
	UnknownMessages  int64 `json:"unknown_messages"`
	WriteErrors      int64 `json:"write_errors"`
}

// router is the internal implementation.
type router struct {
	logger *slog.Logger

	// Input from Connection Manager
	input <-chan connection.RawMessage

	// Output
	sink Sink

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.RWMutex
	received        int64
	routed          int64
	ignored         int64
	parseErrors     int64
	unknownMessages int64
	writeErrors     int64
}

// NewRouter creates a new Message Router.
func NewRouter(input <-chan connection.RawMessage, sink Sink, logger *slog.Logger) Router {
	return newRouter(input, sink, logger)
}

func newRouter(input <-chan connection.RawMessage, sink Sink, logger *slog.Logger) *router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		logger: logger,
		input:  input,
		sink:   sink,
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started")

	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		Ignored:          r.ignored,
		ParseErrors:      r.parseErrors,
		UnknownMessages:  r.unknownMessages,
		WriteErrors:      r.writeErrors,
	}
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(raw)
		}
	}
}

// route handles a single frame and records the outcome.
func (r *router) route(raw connection.RawMessage) (Result, error) {
	res, err := r.handle(raw)

	r.mu.Lock()
	r.received++
	switch res {
	case ResultApplied:
		r.routed++
	case ResultIgnored:
		r.ignored++
	case ResultUnknown:
		r.unknownMessages++
	case ResultViolation:
		r.parseErrors++
	case ResultRejected:
		r.writeErrors++
	}
	r.mu.Unlock()

	metrics.FramesReceived.WithLabelValues(string(res)).Inc()

	switch res {
	case ResultViolation:
		r.logger.Warn("dropping malformed frame",
			"conn", raw.Conn,
			"size", len(raw.Data),
			"error", err,
		)
	case ResultRejected:
		r.logger.Error("frame value rejected", "conn", raw.Conn, "error", err)
	case ResultUnknown:
		r.logger.Debug("skipping frame type", "conn", raw.Conn, "error", err)
	}

	return res, err
}

func (r *router) handle(raw connection.RawMessage) (Result, error) {
	res, resource, value, err := Decode(raw.Data)
	if res != ResultApplied {
		return res, err
	}

	if _, err := r.sink.Write(resource, value, model.SourcePush); err != nil {
		return ResultRejected, err
	}
	return ResultApplied, nil
}

// Decode parses a frame into a resource value without writing it anywhere.
// A ResultApplied outcome means resource and value are set.
func Decode(data []byte) (Result, model.Resource, any, error) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ResultViolation, 0, nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}

	if env.Type == "" {
		return ResultIgnored, 0, nil, nil
	}

	resource, ok := model.ParseResource(env.Type)
	if !ok {
		return ResultUnknown, 0, nil, fmt.Errorf("unknown frame type %q", env.Type)
	}

	value, err := api.DecodeResource(resource, env.Data)
	if err != nil {
		return ResultViolation, resource, nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}

	return ResultApplied, resource, value, nil
}
