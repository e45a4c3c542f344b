package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"filerelay/internal/config"
	"filerelay/internal/logging"
)

// ErrAlreadyRunning reports that another daemon holds the instance lock.
var ErrAlreadyRunning = errors.New("another filerelay daemon instance is already running")

// Component is a long-running service supervised by the daemon. Run must
// return once ctx is cancelled.
type Component struct {
	Name string
	Run  func(ctx context.Context) error
}

// Daemon owns the instance lock and the lifetime of its components.
type Daemon struct {
	logger     *slog.Logger
	components []Component

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
	startedAt time.Time

	errMu sync.Mutex
	err   error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	StartedAt    time.Time
	Components   []string
	LockFilePath string
}

// New constructs a daemon that will run components once started.
func New(cfg *config.Config, logger *slog.Logger, components ...Component) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	for _, c := range components {
		if c.Name == "" || c.Run == nil {
			return nil, errors.New("daemon components require a name and run func")
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		logger:     logging.NewComponentLogger(logger, "daemon"),
		components: components,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches every component.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.err = nil
	d.startedAt = time.Now()
	d.running.Store(true)

	for _, c := range d.components {
		d.wg.Add(1)
		go d.supervise(runCtx, c)
	}
	go func() {
		d.wg.Wait()
		close(d.done)
	}()

	d.logger.Info("filerelay daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("components", len(d.components)),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) supervise(ctx context.Context, c Component) {
	defer d.wg.Done()
	err := c.Run(ctx)
	if err == nil || (ctx.Err() != nil && errors.Is(err, context.Canceled)) {
		d.logger.Debug("component stopped", logging.String(logging.FieldComponent, c.Name))
		return
	}

	logging.ErrorWithContext(d.logger, "component failed; stopping daemon", "component_failed",
		logging.String(logging.FieldComponent, c.Name),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the component's configuration and retry"),
	)
	d.errMu.Lock()
	if d.err == nil {
		d.err = fmt.Errorf("%s: %w", c.Name, err)
	}
	d.errMu.Unlock()
	d.cancel()
}

// Done is closed once every component has returned.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Err returns the first component failure, if any.
func (d *Daemon) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

// Stop cancels the components, waits for them, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("filerelay daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// LockPath returns the instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	names := make([]string, 0, len(d.components))
	for _, c := range d.components {
		names = append(names, c.Name)
	}
	status := Status{
		Running:      d.running.Load(),
		Components:   names,
		LockFilePath: d.lockPath,
	}
	if status.Running {
		status.StartedAt = d.startedAt
	}
	return status
}
