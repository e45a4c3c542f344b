package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"filerelay/internal/config"
	"filerelay/internal/daemon"
	"filerelay/internal/dispatch"
	"filerelay/internal/ipc"
	"filerelay/internal/journal"
	"filerelay/internal/logging"
	"filerelay/internal/notifications"
	"filerelay/internal/preflight"
	"filerelay/internal/receiver"
	"filerelay/internal/routing"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Transport   []TransportOption
}

// Run starts the filerelay daemon and blocks until it is signalled or a
// component fails.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("filerelayd-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update filerelayd.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "filerelayd-*.log", Exclude: []string{logPath}},
	)

	logPreflight(signalCtx, logger, cfg)

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open transfer journal", logging.Error(err))
		return err
	}
	defer store.Close()

	tr, err := OpenTransport(cfg, logger, opts.Transport...)
	if err != nil {
		return fmt.Errorf("open transport: %w", err)
	}
	defer tr.Close()

	rt := newRuntime(cfg, logger, store, tr)
	if len(rt.components) == 0 {
		return errors.New("no outbound or inbound routes configured")
	}

	d, err := daemon.New(cfg, logger, rt.components...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	stopCtx, requestStop := context.WithCancel(signalCtx)
	defer requestStop()

	pidPath := filepath.Join(cfg.Paths.StateDir, "filerelayd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ctl := &controller{
		cfg:       cfg,
		daemon:    d,
		store:     store,
		notifier:  rt.notifier,
		transport: tr.Kind,
		logPath:   logPath,
		pid:       os.Getpid(),
		stop:      requestStop,
	}
	if srv, err := ipc.NewServer(signalCtx, cfg.SocketPath(), ctl, logger); err != nil {
		logging.WarnWithContext(logger, "control socket unavailable", "ipc_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "filerelay daemon status and stop will not reach this process"),
		)
	} else {
		srv.Serve()
		defer srv.Close()
	}

	logger.Info("filerelay daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("transport", tr.Kind),
		logging.String(logging.FieldParty, cfg.Node.Party),
		logging.Int("outbound_routes", len(cfg.OutboundRoutes)),
		logging.Int("inbound_routes", len(cfg.InboundRoutes)),
		logging.String("journal", store.Path()),
	)

	select {
	case <-stopCtx.Done():
	case <-d.Done():
	}
	logger.Info("filerelay daemon shutting down")
	return d.Err()
}

// runtime holds the components a daemon run supervises.
type runtime struct {
	dispatcher *dispatch.Dispatcher
	notifier   notifications.Service
	components []daemon.Component
}

func newRuntime(cfg *config.Config, logger *slog.Logger, store *journal.Store, tr *Transport) *runtime {
	notifier := notifications.NewService(cfg)
	rt := &runtime{notifier: notifier}

	if len(cfg.InboundRoutes) > 0 {
		handler := &journalingHandler{
			receiver: receiver.New(routing.New(cfg), receiver.WithLogger(logger)),
			store:    store,
			notifier: notifier,
			logger:   logger,
		}
		acceptor := tr.Acceptor
		rt.components = append(rt.components, daemon.Component{
			Name: "acceptor",
			Run: func(ctx context.Context) error {
				return acceptor.Serve(ctx, handler)
			},
		})
	}

	if len(cfg.OutboundRoutes) > 0 {
		rt.dispatcher = dispatch.New(cfg, tr.Submitter,
			dispatch.WithLogger(logger),
			dispatch.WithRecorder(store),
			dispatch.WithNotifier(notifier),
		)
		rt.components = append(rt.components, daemon.Component{
			Name: "dispatcher",
			Run:  rt.dispatcher.Run,
		})
	}

	return rt
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run filerelay preflight for the full report"),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "filerelayd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
