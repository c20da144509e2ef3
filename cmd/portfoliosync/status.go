package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rickgao/portfolio-sync/internal/api"
	"github.com/rickgao/portfolio-sync/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the backend's status summary and diversification targets",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newAPIClient(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
	defer cancel()

	status, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}
	targets, err := client.GetDiversificationTargets(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Origin:        %s\n", cfg.API.Origin)
	fmt.Fprintf(out, "Total value:   %.2f\n", status.Wallet.Total)
	fmt.Fprintf(out, "Available:     %.2f\n", status.Wallet.Available)
	fmt.Fprintf(out, "Assets:        %d\n", status.Stats.Assets)
	fmt.Fprintf(out, "Positions:     %d\n", status.Stats.Positions)
	fmt.Fprintf(out, "Transactions:  %d\n", status.Stats.Transactions)
	fmt.Fprintf(out, "Open alerts:   %d\n", status.Stats.OpenAlerts)

	if len(targets) == 0 {
		fmt.Fprintln(out, "\nNo diversification targets configured.")
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET TYPE\tTARGET %\tTOLERANCE %")
	for _, t := range targets {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\n", t.AssetType, t.TargetPercentage, t.Tolerance)
	}
	return tw.Flush()
}

// newAPIClient builds a REST client for one-shot commands.
func newAPIClient(cfg *config.Config) *api.Client {
	return api.NewClient(
		api.BaseURLFromOrigin(cfg.API.Origin),
		cfg.API.Token,
		api.WithLogger(setupLogger(cfg.Log, os.Stderr)),
		api.WithTimeout(cfg.API.Timeout),
	)
}
