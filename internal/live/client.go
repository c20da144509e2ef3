package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/portfolio-sync/internal/api"
	"github.com/rickgao/portfolio-sync/internal/config"
	"github.com/rickgao/portfolio-sync/internal/connection"
	"github.com/rickgao/portfolio-sync/internal/database"
	"github.com/rickgao/portfolio-sync/internal/model"
	"github.com/rickgao/portfolio-sync/internal/refresh"
	"github.com/rickgao/portfolio-sync/internal/router"
	"github.com/rickgao/portfolio-sync/internal/snapshot"
	"github.com/rickgao/portfolio-sync/internal/store"
	"github.com/rickgao/portfolio-sync/internal/writer"
)

// Errors
var (
	ErrAlreadyStarted = errors.New("client already started")
	ErrNotStarted     = errors.New("client not started")
)

// Status summarizes every component for the health endpoint.
type Status struct {
	Connection connection.Status  `json:"connection"`
	Router     router.RouterStats `json:"router"`
	Rounds     int64              `json:"refresh_rounds"`
	Versions   map[string]uint64  `json:"versions"`
	Recorder   *writer.Stats      `json:"recorder,omitempty"`
}

// Client is the live portfolio client.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger

	api       *api.Client
	store     *store.Store
	manager   connection.Manager
	router    router.Router
	scheduler *refresh.Scheduler

	// Recorder, only when enabled.
	pool        *pgxpool.Pool
	recorder    *writer.SnapshotWriter
	unsubscribe func()

	listenersMu sync.Mutex
	listeners   []func(connected bool)

	mu      sync.Mutex
	started bool
	stopped bool
}

// New builds a client from a validated config. Nothing connects until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	wsURL, err := connection.EndpointURL(cfg.API.Origin, cfg.Connection.Path)
	if err != nil {
		return nil, fmt.Errorf("channel endpoint: %w", err)
	}

	apiClient := api.NewClient(
		api.BaseURLFromOrigin(cfg.API.Origin),
		cfg.API.Token,
		api.WithLogger(logger.With("component", "api")),
		api.WithTimeout(cfg.API.Timeout),
	)

	fetcher := snapshot.NewFetcher(apiClient, snapshot.Options{
		TransactionsLimit:     cfg.Resources.TransactionsLimit,
		AlertsLimit:           cfg.Resources.AlertsLimit,
		IncludeResolvedAlerts: cfg.Resources.IncludeResolvedAlerts,
	}, logger.With("component", "fetcher"))

	st := store.New(logger.With("component", "store"))

	mgr := connection.NewManager(connection.ManagerConfig{
		Client: connection.ClientConfig{
			URL:              wsURL,
			Token:            cfg.API.Token,
			HandshakeTimeout: cfg.Connection.HandshakeTimeout,
			PingInterval:     cfg.Connection.PingInterval,
			PingTimeout:      cfg.Connection.PingTimeout,
			WriteTimeout:     cfg.Connection.WriteTimeout,
			BufferSize:       cfg.Connection.BufferSize,
		},
		RetryDelay: cfg.Connection.RetryDelay,
	}, logger.With("component", "connection"))

	c := &Client{
		cfg:     cfg,
		logger:  logger,
		api:     apiClient,
		store:   st,
		manager: mgr,
		router:  router.NewRouter(mgr.Messages(), st, logger.With("component", "router")),
		scheduler: refresh.New(refresh.Config{
			Interval:    cfg.Refresh.Interval,
			Concurrency: cfg.Refresh.Concurrency,
			Timeout:     cfg.Refresh.Timeout,
		}, fetcher, st, logger.With("component", "refresh")),
	}
	mgr.OnStatusChange(c.emitStatus)

	return c, nil
}

// Start brings up the recorder (if enabled), the router, the channel and the
// refresh scheduler. The channel dials in the background and the first
// refresh round starts immediately, so neither waits for the other.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	if c.cfg.Recorder.Enabled {
		if err := c.startRecorder(ctx); err != nil {
			return err
		}
	}

	if err := c.router.Start(ctx); err != nil {
		return fmt.Errorf("start router: %w", err)
	}
	if err := c.manager.Start(ctx); err != nil {
		return fmt.Errorf("start connection manager: %w", err)
	}
	if err := c.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start refresh scheduler: %w", err)
	}

	c.logger.Info("live client started",
		"instance_id", c.cfg.Instance.ID,
		"origin", c.cfg.API.Origin,
		"recorder", c.recorder != nil,
	)
	return nil
}

func (c *Client) startRecorder(ctx context.Context) error {
	db := c.cfg.Recorder.Database
	c.logger.Info("connecting to recorder database",
		"host", db.Host,
		"port", db.Port,
		"database", db.Name,
	)

	pool, err := database.Connect(ctx, db)
	if err != nil {
		return fmt.Errorf("connect recorder database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return err
	}

	rec := writer.NewSnapshotWriter(
		writer.ConfigFromRecorder(c.cfg.Instance.ID, c.cfg.Recorder),
		pool,
		c.logger.With("component", "recorder"),
	)
	if err := rec.Start(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("start recorder: %w", err)
	}

	c.pool = pool
	c.recorder = rec
	c.unsubscribe = c.store.Subscribe(rec.Observe)
	return nil
}

// Stop tears everything down in reverse order, bounded by ctx. It is safe to
// call more than once.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return ErrNotStarted
	}
	if c.stopped {
		return nil
	}
	c.stopped = true

	var errs []error
	if err := c.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop refresh scheduler: %w", err))
	}
	if err := c.manager.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop connection manager: %w", err))
	}
	if err := c.router.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop router: %w", err))
	}

	if c.recorder != nil {
		c.unsubscribe()
		if err := c.recorder.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop recorder: %w", err))
		}
		c.pool.Close()
	}

	c.logger.Info("live client stopped")
	return errors.Join(errs...)
}

// Subscribe registers fn for every store change. See store.Store.Subscribe.
func (c *Client) Subscribe(fn func(store.Change)) func() {
	return c.store.Subscribe(fn)
}

// OnStatusChange registers fn to be told when the channel goes live or drops.
func (c *Client) OnStatusChange(fn func(connected bool)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Client) emitStatus(connected bool) {
	c.listenersMu.Lock()
	listeners := slices.Clone(c.listeners)
	c.listenersMu.Unlock()

	c.logger.Info("channel status", "connected", connected)
	for _, fn := range listeners {
		fn(connected)
	}
}

// Store returns the resource store.
func (c *Client) Store() *store.Store {
	return c.store
}

// API returns the REST client.
func (c *Client) API() *api.Client {
	return c.api
}

// Status returns a point-in-time summary of every component.
func (c *Client) Status() Status {
	s := Status{
		Connection: c.manager.Status(),
		Router:     c.router.Stats(),
		Rounds:     c.scheduler.Rounds(),
		Versions:   make(map[string]uint64, len(model.AllResources)),
	}
	for _, r := range model.AllResources {
		s.Versions[r.String()] = c.store.Version(r)
	}
	if c.recorder != nil {
		stats := c.recorder.Stats()
		s.Recorder = &stats
	}
	return s
}

// Ping checks the recorder database. It returns nil when recording is off.
func (c *Client) Ping(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Ping(ctx)
}

// ResolveAlert resolves an alert and then re-pulls the alert list so the
// store reflects the change without waiting for the next round.
func (c *Client) ResolveAlert(ctx context.Context, id int64) (*api.ResolveAlertResponse, error) {
	resp, err := c.api.ResolveAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if res := c.scheduler.RefreshResource(ctx, model.Alerts); !res.OK() {
		c.logger.Warn("alert refresh after resolve failed", "alert_id", id, "error", res.Failure)
	}
	return resp, nil
}
