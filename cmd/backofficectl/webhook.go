package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/devstudio/backoffice/internal/bootstrap"
	"github.com/devstudio/backoffice/internal/infrastructure/payments"
)

func replayWebhookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay-webhook <event.json|->",
		Short: "Process a stored Stripe event again",
		Long: `Process a Stripe event body again, e.g. one exported from the Stripe
dashboard after a failed delivery. The signature is not checked, so only
use event bodies you fetched from Stripe yourself. Any earlier record of
the event is forgotten first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			evt, err := payments.ParseEvent(raw)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			app, err := bootstrap.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			outcome, err := app.Services.Payments.ReplayEvent(ctx, evt)
			if err != nil {
				return fmt.Errorf("replay of %s failed: %w", evt.ID, err)
			}
			// Events queued by the replay are delivered before exiting.
			if err := app.Services.Outbox.ProcessOutbox(ctx); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
