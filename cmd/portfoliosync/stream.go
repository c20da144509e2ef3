package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/portfolio-sync/internal/connection"
	"github.com/rickgao/portfolio-sync/internal/model"
	"github.com/rickgao/portfolio-sync/internal/router"
)

var streamVerbose bool

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Connect to the push channel and print decoded frames",
	Long: `stream opens the /ws channel with the normal reconnect policy and prints
every frame the router decodes. Nothing is stored.`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().BoolVarP(&streamVerbose, "verbose", "v", false, "print full values as JSON")
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log, os.Stderr)

	wsURL, err := connection.EndpointURL(cfg.API.Origin, cfg.Connection.Path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	mgrCfg := connection.DefaultManagerConfig()
	mgrCfg.Client.URL = wsURL
	mgrCfg.Client.Token = cfg.API.Token
	mgrCfg.Client.PingInterval = cfg.Connection.PingInterval
	mgrCfg.Client.PingTimeout = cfg.Connection.PingTimeout
	mgrCfg.RetryDelay = cfg.Connection.RetryDelay

	mgr := connection.NewManager(mgrCfg, logger)
	mgr.OnStatusChange(func(connected bool) {
		logger.Info("channel status", "url", wsURL, "connected", connected)
	})

	printer := &framePrinter{out: cmd.OutOrStdout(), verbose: streamVerbose}
	rtr := router.NewRouter(mgr.Messages(), router.SinkFunc(printer.Write), logger)

	if err := rtr.Start(ctx); err != nil {
		return err
	}
	if err := mgr.Start(ctx); err != nil {
		return err
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := rtr.Stats()
				logger.Info("stats",
					"state", mgr.Status().State,
					"received", st.MessagesReceived,
					"routed", st.MessagesRouted,
					"ignored", st.Ignored,
					"parse_errors", st.ParseErrors,
					"unknown", st.UnknownMessages,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "url", wsURL)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	mgr.Stop(shutdownCtx)
	rtr.Stop(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}

// framePrinter is a router sink that prints instead of storing.
type framePrinter struct {
	out     io.Writer
	verbose bool
	seq     atomic.Uint64
}

func (p *framePrinter) Write(r model.Resource, value any, source model.Source) (uint64, error) {
	n := p.seq.Add(1)

	if p.verbose {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return 0, err
		}
		fmt.Fprintf(p.out, "[%s #%d] %s\n", r.WireName(), n, data)
		return n, nil
	}

	fmt.Fprintf(p.out, "[%s #%d] %s\n", r.WireName(), n, summarize(value))
	return n, nil
}

// summarize renders a one-line description of a decoded value.
func summarize(value any) string {
	switch v := value.(type) {
	case model.Wallet:
		return fmt.Sprintf("available=%.2f total=%.2f", v.Available, v.Total)
	case []model.AllocationEntry:
		return fmt.Sprintf("entries=%d", len(v))
	case []model.Position:
		return fmt.Sprintf("positions=%d", len(v))
	case []model.Transaction:
		return fmt.Sprintf("transactions=%d", len(v))
	case []model.Alert:
		return fmt.Sprintf("alerts=%d", len(v))
	default:
		return fmt.Sprintf("%T", value)
	}
}
