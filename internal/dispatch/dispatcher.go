package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"filerelay/internal/archive"
	"filerelay/internal/config"
	"filerelay/internal/journal"
	"filerelay/internal/logging"
	"filerelay/internal/postsend"
	"filerelay/internal/transfer"
)

// Recorder persists the outcome of each dispatch. *journal.Store satisfies it.
type Recorder interface {
	RecordOutbound(ctx context.Context, t *journal.Transfer) error
	MarkSubmitted(ctx context.Context, transferID, attachmentID string) error
	MarkCompleted(ctx context.Context, direction journal.Direction, transferID string) error
	MarkFailed(ctx context.Context, direction journal.Direction, transferID string, cause error) (journal.Status, error)
}

// Notifier receives transfer outcomes. notifications.Service satisfies it.
type Notifier interface {
	NotifyTransferSent(ctx context.Context, route, party, filename string) error
	NotifyTransferFailed(ctx context.Context, direction, filename string, err error) error
}

// attachmentIdentifier is implemented by handles that know the ID the
// transport assigned to the uploaded container.
type attachmentIdentifier interface {
	AttachmentID() string
}

// Dispatcher watches outbound search directories and submits matching files.
type Dispatcher struct {
	cfg       *config.Config
	submitter transfer.Submitter
	executor  *postsend.Executor
	recorder  Recorder
	notifier  Notifier
	logger    *slog.Logger

	maxFileSize int64
	timeout     time.Duration

	readyOnce sync.Once
	ready     chan struct{}
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder journals every dispatch.
func WithRecorder(recorder Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

// WithNotifier publishes failed and completed dispatches.
func WithNotifier(notifier Notifier) Option {
	return func(d *Dispatcher) {
		d.notifier = notifier
	}
}

// WithExecutor overrides the post-send action executor.
func WithExecutor(executor *postsend.Executor) Option {
	return func(d *Dispatcher) {
		if executor != nil {
			d.executor = executor
		}
	}
}

// New constructs a dispatcher for the outbound routes in cfg.
func New(cfg *config.Config, submitter transfer.Submitter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:         cfg,
		submitter:   submitter,
		executor:    postsend.NewExecutor(nil),
		logger:      logging.NewNop(),
		maxFileSize: cfg.Dispatch.MaxFileSize,
		ready:       make(chan struct{}),
	}
	if d.maxFileSize <= 0 {
		d.maxFileSize = config.DefaultMaxFileSize
	}
	if cfg.Transport.TimeoutSeconds > 0 {
		d.timeout = time.Duration(cfg.Transport.TimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "dispatcher")
	return d
}

// Ready is closed once every search directory is being watched.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

// Run registers the watches and serves filesystem events until ctx is
// cancelled. It returns nil on cancellation and a *StartupError when the
// watches cannot be established.
func (d *Dispatcher) Run(ctx context.Context) error {
	reg, err := buildRegistry(d.cfg)
	if err != nil {
		return err
	}
	if err := reg.ensureDirs(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &StartupError{Op: "create watcher", Err: err}
	}
	defer watcher.Close()

	for _, dir := range reg.dirs {
		if err := watcher.Add(dir); err != nil {
			return &StartupError{Op: "watch", Path: dir, Err: err}
		}
		d.logger.Info("watching directory",
			logging.String(logging.FieldPath, dir),
			logging.Int("routes", len(reg.byDir[dir])),
			logging.String(logging.FieldEventType, "watch_registered"),
		)
	}
	d.readyOnce.Do(func() { close(d.ready) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			d.handleEvent(ctx, reg, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(d.logger, "watcher reported an error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_queued_events if events overflow"),
				logging.String(logging.FieldImpact, "some created files may not have been dispatched"),
			)
		}
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, reg *registry, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}
	routes := reg.routesFor(event.Name)
	if len(routes) == 0 {
		return
	}
	name := filepath.Base(event.Name)

	var matched []registration
	for _, entry := range routes {
		if entry.pattern.MatchString(name) {
			matched = append(matched, entry)
			continue
		}
		d.logger.Debug("file ignored; pattern did not match",
			logging.String(logging.FieldRoute, entry.key),
			logging.String("file", name),
			logging.String("pattern", entry.route.SearchPattern),
		)
	}
	if len(matched) == 0 {
		return
	}

	container, size, ok := d.pack(event.Name)
	if !ok {
		return
	}
	for _, entry := range matched {
		_ = d.dispatch(ctx, entry, event.Name, container, size)
	}
}

// pack reads the created file into a container, skipping directories and
// files over the size threshold.
func (d *Dispatcher) pack(path string) (archive.Container, int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		logging.WarnWithContext(d.logger, "created file vanished before dispatch", "dispatch_skipped",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file was not sent"),
		)
		return archive.Container{}, 0, false
	}
	if info.IsDir() {
		return archive.Container{}, 0, false
	}
	if info.Size() > d.maxFileSize {
		logging.WarnWithContext(d.logger, "file exceeds size limit; skipped", "dispatch_oversize",
			logging.String(logging.FieldPath, path),
			logging.Int64("size_bytes", info.Size()),
			logging.Int64("max_file_size", d.maxFileSize),
			logging.String(logging.FieldErrorHint, "raise dispatch.max_file_size or split the file"),
			logging.String(logging.FieldImpact, "file was not sent and remains in place"),
		)
		return archive.Container{}, 0, false
	}

	container, err := archive.PackFile(path)
	if err != nil {
		logging.ErrorWithContext(d.logger, "pack failed", "dispatch_pack_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
		)
		return archive.Container{}, 0, false
	}
	return container, info.Size(), true
}

// DispatchFile sends path through the named outbound route immediately,
// applying the same size limit and post-send action as the watch loop.
func (d *Dispatcher) DispatchFile(ctx context.Context, routeKey, path string) error {
	reg, err := buildRegistry(d.cfg)
	if err != nil {
		return err
	}
	entry, err := reg.route(routeKey)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > d.maxFileSize {
		return fmt.Errorf("%s is %d bytes, over the %d byte limit", path, info.Size(), d.maxFileSize)
	}
	container, err := archive.PackFile(path)
	if err != nil {
		return err
	}
	return d.dispatch(ctx, entry, path, container, info.Size())
}

func (d *Dispatcher) dispatch(ctx context.Context, entry registration, path string, container archive.Container, size int64) error {
	route := entry.route
	filename := filepath.Base(path)
	transferID := uuid.NewString()

	ctx = logging.WithRoute(ctx, entry.key)
	ctx = logging.WithTransferID(ctx, transferID)
	logger := logging.WithContext(ctx, d.logger)

	if d.recorder != nil {
		record := &journal.Transfer{
			TransferID:     transferID,
			RouteKey:       entry.key,
			Party:          route.DestinationParty,
			MyReference:    route.MyReference,
			TheirReference: route.TheirReference,
			Filename:       filename,
			SourcePath:     path,
			SizeBytes:      size,
		}
		if err := d.recorder.RecordOutbound(ctx, record); err != nil {
			logging.WarnWithContext(logger, "journal write failed", "journal_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "transfer proceeds without a journal entry"),
			)
		}
	}

	logger.Info("dispatching file",
		logging.String("file", filename),
		logging.String(logging.FieldParty, route.DestinationParty),
		logging.Int64("size_bytes", size),
		logging.String(logging.FieldEventType, "dispatch_started"),
	)

	err := d.submit(ctx, logger, transferID, transfer.Request{
		TransferID:       transferID,
		DestinationParty: route.DestinationParty,
		TheirReference:   route.TheirReference,
		MyReference:      route.MyReference,
		Filename:         filename,
		Container:        container,
	})
	if err != nil {
		subErr := &transfer.SubmissionError{
			Route:    entry.key,
			Party:    route.DestinationParty,
			Filename: filename,
			Err:      err,
		}
		status := journal.FailureStatus(subErr)
		if d.recorder != nil {
			if recorded, jerr := d.recorder.MarkFailed(ctx, journal.DirectionOutbound, transferID, subErr); jerr == nil {
				status = recorded
			}
		}
		logging.ErrorWithContext(logger, "transfer failed", "dispatch_failed",
			logging.Error(subErr),
			logging.String("status", string(status)),
			logging.String(logging.FieldErrorHint, "check the peer is reachable and its inbound routes include "+route.TheirReference),
		)
		if d.notifier != nil {
			if nerr := d.notifier.NotifyTransferFailed(ctx, string(journal.DirectionOutbound), filename, subErr); nerr != nil {
				logger.Debug("failure notification not delivered", logging.Error(nerr))
			}
		}
		return subErr
	}

	if d.recorder != nil {
		if jerr := d.recorder.MarkCompleted(ctx, journal.DirectionOutbound, transferID); jerr != nil {
			logger.Debug("journal completion update failed", logging.Error(jerr))
		}
	}
	logger.Info("transfer accepted",
		logging.String("file", filename),
		logging.String(logging.FieldParty, route.DestinationParty),
		logging.String(logging.FieldEventType, "dispatch_completed"),
	)
	if d.notifier != nil {
		if nerr := d.notifier.NotifyTransferSent(ctx, entry.key, route.DestinationParty, filename); nerr != nil {
			logger.Debug("completion notification not delivered", logging.Error(nerr))
		}
	}

	if err := d.executor.Apply(route.PostSendAction, path); err != nil {
		var actionErr *postsend.ActionError
		if errors.As(err, &actionErr) {
			logging.WarnWithContext(logger, "post-send action failed", "postsend_failed",
				logging.String("action", string(route.PostSendAction)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the search directory"),
				logging.String(logging.FieldImpact, "transfer stands; source file was left in place"),
			)
		}
		return err
	}
	if route.PostSendAction == config.PostSendDeleteSource {
		logger.Debug("source removed", logging.String(logging.FieldPath, path))
	}
	return nil
}

// submit hands the request to the transport, follows progress, and waits for
// the peer's verdict.
func (d *Dispatcher) submit(ctx context.Context, logger *slog.Logger, transferID string, req transfer.Request) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	handle, err := d.submitter.Submit(ctx, req)
	if err != nil {
		return err
	}
	if d.recorder != nil {
		attachmentID := ""
		if ident, ok := handle.(attachmentIdentifier); ok {
			attachmentID = ident.AttachmentID()
		}
		if jerr := d.recorder.MarkSubmitted(ctx, transferID, attachmentID); jerr != nil {
			logger.Debug("journal submit update failed", logging.Error(jerr))
		}
	}

	done := make(chan struct{})
	stop := make(chan struct{})
	if progress := handle.Progress(); progress != nil {
		go func() {
			defer close(done)
			sampler := logging.NewProgressSampler(25)
			for {
				select {
				case event, ok := <-progress:
					if !ok {
						return
					}
					if sampler.ShouldLog(string(event.Stage), event.Percent) {
						logger.Debug("transfer progress",
							logging.String("stage", string(event.Stage)),
							logging.Float64("percent", event.Percent),
							logging.String("message", event.Message),
						)
					}
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		close(done)
	}

	err = handle.Await(ctx)
	close(stop)
	<-done
	return err
}
