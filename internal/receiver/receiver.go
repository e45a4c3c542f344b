package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"filerelay/internal/archive"
	"filerelay/internal/fileutil"
	"filerelay/internal/logging"
	"filerelay/internal/routing"
	"filerelay/internal/transfer"
)

// Result lists what a transfer wrote.
type Result struct {
	Directory string
	Files     []fileutil.WriteResult
	Skipped   int
}

// Bytes totals the size of the written files.
func (r Result) Bytes() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Bytes
	}
	return total
}

// Receiver routes container entries to the directory their manifest
// reference resolves to. It holds no mutable state and may serve concurrent
// transfers.
type Receiver struct {
	router *routing.Router
	fs     afero.Fs
	logger *slog.Logger
}

// Option customizes a Receiver.
type Option func(*Receiver)

// WithFs sets the filesystem entries are written to.
func WithFs(fs afero.Fs) Option {
	return func(r *Receiver) {
		if fs != nil {
			r.fs = fs
		}
	}
}

// WithLogger sets the receiver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Receiver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a receiver resolving destinations through router.
func New(router *routing.Router, opts ...Option) *Receiver {
	r := &Receiver{
		router: router,
		fs:     afero.NewOsFs(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "receiver")
	return r
}

// HandleTransfer implements transfer.Handler.
func (r *Receiver) HandleTransfer(ctx context.Context, manifest transfer.Manifest, container archive.Container) error {
	_, err := r.Handle(ctx, manifest, container)
	return err
}

// Handle writes every file entry of container into the directory resolved
// from manifest.RecipientReference.
func (r *Receiver) Handle(ctx context.Context, manifest transfer.Manifest, container archive.Container) (Result, error) {
	ctx = logging.WithTransferID(ctx, manifest.TransferID)
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldParty, manifest.Sender),
		logging.String(logging.FieldReference, manifest.RecipientReference),
	)

	dir, err := r.router.Ensure(manifest.RecipientReference)
	if err != nil {
		var unknown *routing.UnknownReferenceError
		if errors.As(err, &unknown) {
			logging.WarnWithContext(logger, "transfer rejected; unknown reference", "receive_rejected",
				logging.String("filename", manifest.Filename),
				logging.String(logging.FieldErrorHint, "add an inbound route whose my_reference matches"),
				logging.String(logging.FieldImpact, "no files were written"),
			)
		}
		return Result{}, err
	}

	result := Result{Directory: dir}
	reader, err := archive.Unpack(container)
	if err != nil {
		return result, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}
		if entry.IsDir() {
			result.Skipped++
			continue
		}

		written, err := r.writeEntry(dir, entry)
		if err != nil {
			logging.ErrorWithContext(logger, "entry write failed; remaining entries skipped", "receive_entry_failed",
				logging.String("entry", entry.Name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the sender's archive and destination permissions"),
			)
			return result, err
		}
		result.Files = append(result.Files, written)
		logger.Info("file received",
			logging.String(logging.FieldPath, written.Path),
			logging.Int64("bytes", written.Bytes),
			logging.String(logging.FieldEventType, "file_received"),
		)
	}

	return result, nil
}

func (r *Receiver) writeEntry(dir string, entry *archive.Entry) (fileutil.WriteResult, error) {
	name := norm.NFC.String(entry.Name)
	target, err := routing.JoinFs(r.fs, dir, name)
	if err != nil {
		return fileutil.WriteResult{}, err
	}

	rc, err := entry.Open()
	if err != nil {
		return fileutil.WriteResult{}, fmt.Errorf("open entry %q: %w", entry.Name, err)
	}
	defer rc.Close()

	return fileutil.WriteAtomic(r.fs, target, rc, 0o644)
}
