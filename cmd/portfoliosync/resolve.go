package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var resolveAlertCmd = &cobra.Command{
	Use:   "resolve-alert <id>",
	Short: "Mark an alert as resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolveAlert,
}

func runResolveAlert(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid alert id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
	defer cancel()

	resp, err := newAPIClient(cfg).ResolveAlert(ctx, id)
	if err != nil {
		return err
	}

	msg := resp.Message
	if msg == "" {
		msg = "resolved"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "alert %d: %s\n", id, msg)
	return nil
}
