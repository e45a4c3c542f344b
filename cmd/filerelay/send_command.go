package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"filerelay/internal/config"
	"filerelay/internal/daemonrun"
	"filerelay/internal/dispatch"
	"filerelay/internal/journal"
	"filerelay/internal/logging"
	"filerelay/internal/notifications"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "send <route> <file>",
		Short: "Send one file through an outbound route now",
		Long: "Send packs the file and submits it through the route's destination party, " +
			"journals the transfer, and applies the route's post_send_action on success.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			routeKey, path := args[0], args[1]
			return ctx.withJournal(func(cfg *config.Config, store *journal.Store) error {
				if _, ok := cfg.OutboundRoutes[routeKey]; !ok {
					return fmt.Errorf("unknown outbound route %q", routeKey)
				}
				abs, err := filepath.Abs(path)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", path, err)
				}

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}
				tr, err := daemonrun.OpenTransport(cfg, logger)
				if err != nil {
					return fmt.Errorf("open transport: %w", err)
				}
				defer tr.Close()

				d := dispatch.New(cfg, tr.Submitter,
					dispatch.WithLogger(logger),
					dispatch.WithRecorder(store),
					dispatch.WithNotifier(notifications.NewService(cfg)),
				)
				if err := d.DispatchFile(cmd.Context(), routeKey, abs); err != nil {
					return fmt.Errorf("send %s: %w", filepath.Base(abs), err)
				}
				route := cfg.OutboundRoutes[routeKey]
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %s (reference %s)\n",
					filepath.Base(abs), route.DestinationParty, route.TheirReference)
				return nil
			})
		},
	}
}
