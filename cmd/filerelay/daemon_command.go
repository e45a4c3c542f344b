package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filerelay/internal/daemonrun"
	"filerelay/internal/ipc"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control the filerelay daemon",
	}

	var logLevel string
	var development bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running and its transfer counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialDaemon()
			if errors.Is(err, errDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return fmt.Errorf("daemon status: %w", err)
			}
			colorize := shouldColorize(stdout)
			fmt.Fprintln(stdout, renderCheckLine("Daemon", status.Running, fmt.Sprintf("pid %d since %s", status.PID, status.StartedAt), colorize))
			fmt.Fprintln(stdout, renderField("Party", status.Party))
			fmt.Fprintln(stdout, renderField("Transport", status.Transport))
			fmt.Fprintln(stdout, renderField("Routes", fmt.Sprintf("%d outbound, %d inbound", status.OutboundRoutes, status.InboundRoutes)))
			fmt.Fprintln(stdout, renderField("Components", strings.Join(status.Components, ", ")))
			fmt.Fprintln(stdout, renderField("Journal", status.JournalPath))
			fmt.Fprintln(stdout, renderField("Log", status.LogPath))

			if len(status.TransferCounts) == 0 {
				fmt.Fprintln(stdout, "No transfers recorded")
				return nil
			}
			statuses := make([]string, 0, len(status.TransferCounts))
			for name := range status.TransferCounts {
				statuses = append(statuses, name)
			}
			sort.Strings(statuses)
			rows := make([][]string, 0, len(statuses))
			for _, name := range statuses {
				rows = append(rows, []string{name, fmt.Sprintf("%d", status.TransferCounts[name])})
			}
			fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}, colorize))
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialDaemon()
			if errors.Is(err, errDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			_, err = client.Stop()
			client.Close()
			if err != nil {
				return fmt.Errorf("daemon stop: %w", err)
			}
			fmt.Fprintln(stdout, "Stopping daemon...")
			if !waitForSocketRemoval(ctx.socketPath(), 10*time.Second) {
				return errors.New("daemon acknowledged stop but is still running after 10s")
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	daemonCmd.AddCommand(runCmd, statusCmd, stopCmd)
	return daemonCmd
}

var errDaemonNotRunning = errors.New("daemon is not running")

func (c *commandContext) socketPath() string {
	cfg, err := c.ensureConfig()
	if err != nil {
		return ""
	}
	return cfg.SocketPath()
}

func (c *commandContext) dialDaemon() (*ipc.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	socket := cfg.SocketPath()
	client, err := ipc.Dial(socket)
	switch {
	case err == nil:
		return client, nil
	case errors.Is(err, syscall.ENOENT), os.IsNotExist(err), errors.Is(err, syscall.ECONNREFUSED):
		return nil, errDaemonNotRunning
	default:
		return nil, fmt.Errorf("connect to daemon at %s: %w", socket, err)
	}
}

func waitForSocketRemoval(path string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
