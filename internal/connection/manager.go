package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/portfolio-sync/internal/metrics"
	"github.com/rickgao/portfolio-sync/internal/model"
)

// Manager owns the duplex channel and its reconnect policy.
type Manager interface {
	// Start begins connecting in the background. It does not wait for the
	// channel to open.
	Start(ctx context.Context) error

	// Stop cancels any pending retry, closes the channel and waits for the
	// manager's goroutines, bounded by ctx.
	Stop(ctx context.Context) error

	// Messages returns the channel of inbound frames for the router. It is
	// closed once Stop has completed.
	Messages() <-chan RawMessage

	// Status returns the current state and counters.
	Status() Status

	// OnStatusChange registers fn to be told when the channel goes live
	// (true) or drops (false). Must be called before Start.
	OnStatusChange(fn func(connected bool))
}

// manager implements the Manager interface.
//
// Every connection gets a generation number. Events carry the generation of
// the connection that produced them and are ignored once a newer connection
// exists, so a late close from an old socket cannot tear down a live one.
type manager struct {
	cfg       ManagerConfig
	logger    *slog.Logger
	newClient func(ClientConfig, *slog.Logger) Client

	// Output to router
	frames chan RawMessage

	onStatus func(connected bool)
	notifyMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	state         model.ConnectionState
	client        Client
	gen           uint64
	retryTimer    *time.Timer
	retrySeq      uint64
	started       bool
	stopped       bool
	everConnected bool
	attempts      int64
	reconnects    int64
	lastErr       error
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, logger *slog.Logger) Manager {
	return newManager(cfg, logger)
}

func newManager(cfg ManagerConfig, logger *slog.Logger) *manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = DefaultManagerConfig().MessageBufferSize
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultManagerConfig().RetryDelay
	}

	return &manager{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
		frames:    make(chan RawMessage, cfg.MessageBufferSize),
		state:     model.Disconnected,
	}
}

// Start begins the connection manager.
func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.stopped {
		return ErrAlreadyStarted
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.connect()

	m.logger.Info("connection manager started",
		"url", m.cfg.Client.URL,
		"retry_delay", m.cfg.RetryDelay,
	)

	return nil
}

// Stop gracefully shuts down.
func (m *manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.stopRetryLocked()
	client := m.client
	m.client = nil
	wasConnected := m.state == model.Connected
	m.setStateLocked(model.Disconnected)
	m.mu.Unlock()

	m.logger.Info("stopping connection manager")

	if m.cancel != nil {
		m.cancel()
	}
	if client != nil {
		client.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, frame channel left open")
		return ctx.Err()
	}

	close(m.frames)
	if wasConnected {
		m.emitStatus(false)
	}

	m.logger.Info("connection manager stopped")
	return nil
}

// Messages returns the output channel for the router.
func (m *manager) Messages() <-chan RawMessage {
	return m.frames
}

// Status returns current state and counters.
func (m *manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		State:        m.state,
		RetryPending: m.retryTimer != nil,
		Attempts:     m.attempts,
		Reconnects:   m.reconnects,
		LastError:    m.lastErr,
		Conn:         m.gen,
	}
}

// OnStatusChange registers the live/offline listener.
func (m *manager) OnStatusChange(fn func(connected bool)) {
	m.notifyMu.Lock()
	m.onStatus = fn
	m.notifyMu.Unlock()
}

// connect dials a new connection and, once open, reads from it until it
// fails. Runs under wg.
func (m *manager) connect() {
	defer m.wg.Done()

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	m.attempts++
	m.setStateLocked(model.Connecting)
	client := m.newClient(m.cfg.Client, m.logger.With("conn", gen))
	m.client = client
	m.mu.Unlock()

	m.logger.Debug("connecting", "conn", gen, "url", m.cfg.Client.URL)

	if err := client.Connect(m.ctx); err != nil {
		metrics.ConnectAttempts.WithLabelValues("failure").Inc()
		m.handleDisconnect(gen, err)
		return
	}
	metrics.ConnectAttempts.WithLabelValues("success").Inc()

	if !m.handleOpen(gen) {
		client.Close()
		return
	}

	m.readLoop(gen, client)
}

// handleOpen moves to Connected and clears any pending retry. It returns
// false if the connection was superseded or the manager stopped while
// dialing.
func (m *manager) handleOpen(gen uint64) bool {
	m.mu.Lock()
	if m.stopped || gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.stopRetryLocked()
	if m.everConnected {
		m.reconnects++
	}
	m.everConnected = true
	m.lastErr = nil
	m.setStateLocked(model.Connected)
	m.mu.Unlock()

	m.logger.Info("channel connected", "conn", gen)
	m.emitStatus(true)
	return true
}

// handleDisconnect moves to Disconnected and arms a retry unless one is
// already pending. Safe to call repeatedly for the same connection.
// Listeners hear false only when the channel was Connected.
func (m *manager) handleDisconnect(gen uint64, err error) {
	m.mu.Lock()
	if m.stopped || gen != m.gen {
		m.mu.Unlock()
		return
	}
	prev := m.state
	client := m.client
	m.client = nil
	m.lastErr = err
	m.setStateLocked(model.Disconnected)
	m.scheduleRetryLocked()
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}

	// Only a live channel dropping is a status change. Failed dials while
	// retrying leave listeners alone.
	if prev != model.Connected {
		m.logger.Debug("channel still down",
			"conn", gen,
			"error", err,
			"retry_in", m.cfg.RetryDelay,
		)
		return
	}

	m.logger.Warn("channel disconnected",
		"conn", gen,
		"error", err,
		"retry_in", m.cfg.RetryDelay,
	)
	m.emitStatus(false)
}

// scheduleRetryLocked arms the retry timer if none is pending.
func (m *manager) scheduleRetryLocked() {
	if m.retryTimer != nil {
		return
	}
	m.retrySeq++
	seq := m.retrySeq
	m.retryTimer = time.AfterFunc(m.cfg.RetryDelay, func() {
		m.retryTick(seq)
	})
}

// stopRetryLocked cancels the pending retry, if any.
func (m *manager) stopRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

// retryTick fires when the retry delay elapses.
func (m *manager) retryTick(seq uint64) {
	m.mu.Lock()
	if seq != m.retrySeq || m.retryTimer == nil {
		// Cancelled or replaced after the timer fired.
		m.mu.Unlock()
		return
	}
	m.retryTimer = nil
	if m.stopped || m.ctx.Err() != nil || m.state != model.Disconnected {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("attempting reconnection")
	go m.connect()
}

// readLoop forwards frames from client until it reports an error.
func (m *manager) readLoop(gen uint64, client Client) {
	for {
		select {
		case <-m.ctx.Done():
			return

		case err := <-client.Errors():
			// Frames read before the failure are still delivered.
			m.drain(gen, client)
			m.handleDisconnect(gen, err)
			return

		case msg, ok := <-client.Messages():
			if !ok {
				m.handleDisconnect(gen, ErrNotConnected)
				return
			}
			m.forward(gen, msg)
		}
	}
}

func (m *manager) drain(gen uint64, client Client) {
	for {
		select {
		case msg := <-client.Messages():
			m.forward(gen, msg)
		default:
			return
		}
	}
}

// forward hands a frame to the router without blocking.
func (m *manager) forward(gen uint64, msg TimestampedMessage) {
	raw := RawMessage{
		Data:       msg.Data,
		Conn:       gen,
		ReceivedAt: msg.ReceivedAt,
	}

	select {
	case m.frames <- raw:
	default:
		m.logger.Warn("frame buffer full, dropping", "conn", gen)
	}
}

func (m *manager) setStateLocked(s model.ConnectionState) {
	m.state = s
	metrics.ConnectionState.Set(float64(s))
}

func (m *manager) emitStatus(connected bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	if m.onStatus != nil {
		m.onStatus(connected)
	}
}
