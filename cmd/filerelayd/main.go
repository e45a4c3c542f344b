// Command filerelayd runs the filerelay daemon with the default
// configuration search path. It is the entry point for service managers;
// operators usually run "filerelay daemon run" instead.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"filerelay/internal/config"
	"filerelay/internal/daemonrun"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatalf("filerelayd: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var configPath, logLevel string

	cmd := &cobra.Command{
		Use:           "filerelayd",
		Short:         "Run the filerelay daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, logLevel)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	return cmd
}

func run(ctx context.Context, configPath, logLevel string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return err
	}
	err = daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: logLevel})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
