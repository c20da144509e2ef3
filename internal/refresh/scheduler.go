package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/portfolio-sync/internal/metrics"
	"github.com/rickgao/portfolio-sync/internal/model"
	"github.com/rickgao/portfolio-sync/internal/snapshot"
)

// ErrStopped is reported for results that arrive after Stop.
var ErrStopped = errors.New("scheduler stopped")

// Fetcher retrieves one resource snapshot.
type Fetcher interface {
	Fetch(ctx context.Context, r model.Resource) snapshot.Result
}

// Sink receives fetched values. *store.Store satisfies it.
type Sink interface {
	Write(r model.Resource, value any, source model.Source) (uint64, error)
}

// Config holds scheduler configuration.
type Config struct {
	Interval    time.Duration // Time between rounds (default: 5s)
	Concurrency int           // Max concurrent fetches per round (default: 5)
	Timeout     time.Duration // Per-fetch timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		Concurrency: len(model.AllResources),
		Timeout:     10 * time.Second,
	}
}

// RoundStats summarizes one refresh round.
type RoundStats struct {
	Fetched  int
	Failed   int
	Skipped  int // Successful fetches discarded after cancellation
	Duration time.Duration
	Failures []*snapshot.Failure
}

// Scheduler periodically refreshes every resource into a Sink.
type Scheduler struct {
	cfg       Config
	fetcher   Fetcher
	sink      Sink
	resources []model.Resource
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// stopMu orders writes against Stop: once stopped is set under the
	// write lock, no further result reaches the sink.
	stopMu  sync.RWMutex
	stopped bool

	rounds atomic.Int64
}

// New creates a new Scheduler that refreshes every resource.
func New(cfg Config, fetcher Fetcher, sink Sink, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Scheduler{
		cfg:       cfg,
		fetcher:   fetcher,
		sink:      sink,
		resources: model.AllResources,
		logger:    logger,
	}
}

// Start runs the scheduler in the background until Stop or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run(s.ctx)
	}()

	s.logger.Info("refresh scheduler started",
		"interval", s.cfg.Interval,
		"concurrency", s.cfg.Concurrency,
	)

	return nil
}

// Stop cancels the scheduler and waits for in-flight rounds, bounded by ctx.
// No result is written after Stop returns, even if the wait times out.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopMu.Lock()
	s.stopped = true
	s.stopMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("refresh scheduler stopped", "rounds", s.rounds.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rounds returns the number of completed rounds.
func (s *Scheduler) Rounds() int64 {
	return s.rounds.Load()
}

// Run performs a round immediately and then one per interval until ctx is
// done. It returns once every round it started has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	var rounds sync.WaitGroup
	defer rounds.Wait()

	launch := func() {
		rounds.Add(1)
		go func() {
			defer rounds.Done()
			s.Refresh(ctx)
		}()
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	launch()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			launch()
		}
	}
}

// Refresh performs one round: every resource is fetched concurrently and
// each successful result is written as it arrives. Failed fetches leave the
// stored value untouched.
func (s *Scheduler) Refresh(ctx context.Context) RoundStats {
	start := time.Now()

	var mu sync.Mutex
	var stats RoundStats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, r := range s.resources {
		g.Go(func() error {
			res := s.fetch(gctx, r)

			var err error
			if res.OK() {
				err = s.write(ctx, res)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case !res.OK():
				stats.Failed++
				stats.Failures = append(stats.Failures, res.Failure)
			case err == nil:
				stats.Fetched++
			case errors.Is(err, ErrStopped) || ctx.Err() != nil:
				stats.Skipped++
			default:
				stats.Failed++
				stats.Failures = append(stats.Failures, &snapshot.Failure{Resource: r, Cause: err})
			}
			return nil
		})
	}
	g.Wait()

	stats.Duration = time.Since(start)
	s.rounds.Add(1)
	metrics.RefreshRounds.Inc()

	s.logger.Debug("refresh round complete",
		"fetched", stats.Fetched,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
	)

	return stats
}

func (s *Scheduler) fetch(ctx context.Context, r model.Resource) snapshot.Result {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.fetcher.Fetch(ctx, r)
}

// write stores a successful result unless the scheduler or the round has
// been cancelled.
func (s *Scheduler) write(ctx context.Context, res snapshot.Result) error {
	s.stopMu.RLock()
	defer s.stopMu.RUnlock()

	if s.stopped {
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.sink.Write(res.Resource, res.Value, model.SourceSnapshot); err != nil {
		s.logger.Error("failed to store snapshot",
			"resource", res.Resource,
			"error", err,
		)
		return err
	}
	return nil
}

// RefreshResource fetches and writes a single resource.
func (s *Scheduler) RefreshResource(ctx context.Context, r model.Resource) snapshot.Result {
	res := s.fetch(ctx, r)
	if !res.OK() {
		return res
	}
	if err := s.write(ctx, res); err != nil {
		res.Value = nil
		res.Failure = &snapshot.Failure{Resource: r, Cause: err}
	}
	return res
}

func (s *Scheduler) isStopped() bool {
	s.stopMu.RLock()
	defer s.stopMu.RUnlock()
	return s.stopped
}
