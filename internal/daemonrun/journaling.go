package daemonrun

import (
	"context"
	"log/slog"

	"filerelay/internal/archive"
	"filerelay/internal/journal"
	"filerelay/internal/logging"
	"filerelay/internal/notifications"
	"filerelay/internal/receiver"
	"filerelay/internal/transfer"
)

// journalingHandler records each inbound transfer around the receiver.
type journalingHandler struct {
	receiver *receiver.Receiver
	store    *journal.Store
	notifier notifications.Service
	logger   *slog.Logger
}

func (h *journalingHandler) HandleTransfer(ctx context.Context, manifest transfer.Manifest, container archive.Container) error {
	record := &journal.Transfer{
		TransferID:     manifest.TransferID,
		Party:          manifest.Sender,
		MyReference:    manifest.RecipientReference,
		TheirReference: manifest.SenderReference,
		Filename:       transfer.CleanFilename(manifest.Filename),
		SizeBytes:      int64(container.Len()),
		AttachmentID:   manifest.AttachmentID,
	}
	if record.Filename == "" {
		record.Filename = "(unnamed)"
	}
	if err := h.store.RecordInbound(ctx, record); err != nil {
		h.journalWarning(ctx, "record inbound transfer", err)
	}

	result, err := h.receiver.Handle(ctx, manifest, container)
	if err != nil {
		if _, markErr := h.store.MarkFailed(ctx, journal.DirectionInbound, record.TransferID, err); markErr != nil {
			h.journalWarning(ctx, "mark inbound transfer failed", markErr)
		}
		if h.notifier != nil {
			h.notify(ctx, h.notifier.NotifyTransferFailed(ctx, string(journal.DirectionInbound), record.Filename, err))
		}
		return err
	}

	record.Status = journal.StatusCompleted
	record.DestinationPath = result.Directory
	record.SizeBytes = result.Bytes()
	if len(result.Files) == 1 {
		record.DestinationPath = result.Files[0].Path
		record.SHA256 = result.Files[0].SHA256
	}
	if err := h.store.RecordInbound(ctx, record); err != nil {
		h.journalWarning(ctx, "complete inbound transfer", err)
	}
	if h.notifier != nil {
		h.notify(ctx, h.notifier.NotifyTransferReceived(ctx, record.Party, record.MyReference, record.Filename))
	}
	return nil
}

func (h *journalingHandler) notify(ctx context.Context, err error) {
	if err != nil {
		logging.WithContext(ctx, h.logger).Debug("notification not delivered", logging.Error(err))
	}
}

func (h *journalingHandler) journalWarning(ctx context.Context, op string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, h.logger), "journal update failed", "journal_write_failed",
		logging.String("op", op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "transfer history is incomplete; delivery is unaffected"),
	)
}
