// portfoliosync keeps a live copy of a portfolio backend's state: it pulls
// every resource over REST on a fixed interval and applies updates pushed
// over the /ws channel in between.
//
// Usage:
//
//	portfoliosync run --config config.yaml
//	portfoliosync status --origin http://localhost:8000
//	portfoliosync resolve-alert 42
//	portfoliosync stream
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/portfolio-sync/internal/config"
	"github.com/rickgao/portfolio-sync/internal/version"
)

var (
	configPath string
	originFlag string

	rootCmd = &cobra.Command{
		Use:           "portfoliosync",
		Short:         "Keep a live copy of a portfolio backend's state",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&originFlag, "origin", "", "backend origin, overrides api.origin")

	rootCmd.AddCommand(runCmd, statusCmd, resolveAlertCmd, streamCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config (or starts from defaults), applies --origin and
// validates the result.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath == "" {
		cfg = config.Default(config.DefaultOrigin)
	} else {
		var err error
		cfg, err = config.LoadWithDefaults(configPath)
		if err != nil {
			return nil, err
		}
	}

	if originFlag != "" {
		cfg.API.Origin = originFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// setupLogger builds the process logger and installs it as the slog default,
// so packages that fall back to slog.Default log with the same level and format.
func setupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	logger := newLogger(cfg, w)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
