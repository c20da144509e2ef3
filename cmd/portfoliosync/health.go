package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/portfolio-sync/internal/api"
	"github.com/rickgao/portfolio-sync/internal/live"
	"github.com/rickgao/portfolio-sync/internal/metrics"
	"github.com/rickgao/portfolio-sync/internal/model"
	"github.com/rickgao/portfolio-sync/internal/store"
)

// syncClient is the part of live.Client the health handler reads.
type syncClient interface {
	Status() live.Status
	Ping(ctx context.Context) error
	Store() *store.Store
}

// createHealthHandler creates the HTTP handler for health checks, the state
// dump and Prometheus metrics.
func createHealthHandler(client syncClient, metricsPath string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		st := client.Status()
		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		health.Components["connection"] = st.Connection
		if st.Connection.State != model.Connected {
			// Snapshots keep the store fresh while the channel is down.
			health.Status = "degraded"
		}

		health.Components["versions"] = st.Versions
		health.Components["refresh_rounds"] = st.Rounds
		health.Components["router"] = st.Router

		if st.Recorder != nil {
			if err := client.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["recorder"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["recorder"] = st.Recorder
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Debug("write health response", "error", err)
		}
	})

	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		entries := client.Store().Snapshot()

		state := make(map[string]store.Entry, len(entries))
		for _, e := range entries {
			state[e.Resource.String()] = e
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"loaded":    len(entries),
			"resources": state,
		})
	})

	mux.Handle(metricsPath, metrics.Handler())

	return mux
}

// logServiceStatus logs the backend's status summary once. Failures are
// logged and otherwise ignored; the sync does not depend on /status.
func logServiceStatus(ctx context.Context, client *api.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := client.GetStatus(ctx)
	if err != nil {
		logger.Warn("backend status unavailable", "error", err)
		return
	}
	logger.Info("backend status",
		"total_value", status.Wallet.Total,
		"available", status.Wallet.Available,
		"assets", status.Stats.Assets,
		"positions", status.Stats.Positions,
		"open_alerts", status.Stats.OpenAlerts,
	)
}
