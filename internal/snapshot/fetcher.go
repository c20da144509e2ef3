package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/portfolio-sync/internal/api"
	"github.com/rickgao/portfolio-sync/internal/metrics"
	"github.com/rickgao/portfolio-sync/internal/model"
)

// Failure describes a fetch that produced no value.
type Failure struct {
	Resource model.Resource
	Cause    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("fetch %s: %v", f.Resource, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Result is the outcome of one fetch. Exactly one of Value or Failure is set.
type Result struct {
	Resource model.Resource
	Value    any
	Failure  *Failure
	Duration time.Duration
}

// OK reports whether the fetch produced a value.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Options controls the query parameters of list resources.
type Options struct {
	TransactionsLimit     int  // default: 10
	AlertsLimit           int  // default: 10
	IncludeResolvedAlerts bool // false = only open alerts
}

// DefaultOptions returns the limits the dashboard uses.
func DefaultOptions() Options {
	return Options{
		TransactionsLimit: 10,
		AlertsLimit:       10,
	}
}

// Fetcher retrieves resource snapshots.
type Fetcher struct {
	client *api.Client
	opts   Options
	logger *slog.Logger
}

// NewFetcher creates a Fetcher backed by client.
func NewFetcher(client *api.Client, opts Options, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// Fetch retrieves the current value of r.
func (f *Fetcher) Fetch(ctx context.Context, r model.Resource) (res Result) {
	start := time.Now()
	res.Resource = r

	defer func() {
		if p := recover(); p != nil {
			res.Value = nil
			res.Failure = &Failure{Resource: r, Cause: fmt.Errorf("panic: %v", p)}
		}
		res.Duration = time.Since(start)

		metrics.FetchDuration.WithLabelValues(r.String()).Observe(res.Duration.Seconds())
		if res.Failure != nil {
			metrics.FetchFailures.WithLabelValues(r.String()).Inc()
			f.logger.Warn("snapshot fetch failed",
				"resource", r,
				"duration", res.Duration,
				"error", res.Failure.Cause,
			)
		}
	}()

	v, err := f.fetch(ctx, r)
	if err != nil {
		res.Failure = &Failure{Resource: r, Cause: err}
		return res
	}
	res.Value = v
	return res
}

func (f *Fetcher) fetch(ctx context.Context, r model.Resource) (any, error) {
	switch r {
	case model.Balance:
		return f.client.GetBalance(ctx)
	case model.Allocation:
		return f.client.GetAllocation(ctx)
	case model.Holdings:
		return f.client.GetHoldings(ctx)
	case model.Transactions:
		return f.client.GetTransactions(ctx, f.opts.TransactionsLimit)
	case model.Alerts:
		opts := api.GetAlertsOptions{Limit: f.opts.AlertsLimit}
		if !f.opts.IncludeResolvedAlerts {
			resolved := false
			opts.Resolved = &resolved
		}
		return f.client.GetAlerts(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %d", api.ErrUnknownPayload, int(r))
	}
}

// FetchAll fetches every resource sequentially.
func (f *Fetcher) FetchAll(ctx context.Context) []Result {
	results := make([]Result, 0, len(model.AllResources))
	for _, r := range model.AllResources {
		results = append(results, f.Fetch(ctx, r))
	}
	return results
}
