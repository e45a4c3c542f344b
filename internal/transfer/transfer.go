package transfer

import (
	"context"
	"strings"

	"filerelay/internal/archive"
)

// Manifest describes a transfer independently of the archived bytes it
// accompanies. RecipientReference selects the inbound route on the receiving
// node.
type Manifest struct {
	TransferID         string `json:"transferId"`
	Sender             string `json:"sender"`
	Recipient          string `json:"recipient"`
	Filename           string `json:"filename"`
	SenderReference    string `json:"senderReference"`
	RecipientReference string `json:"recipientReference"`
	AttachmentID       string `json:"attachmentId,omitempty"`
}

// Request is what the dispatcher asks a Submitter to deliver.
type Request struct {
	TransferID       string
	DestinationParty string
	TheirReference   string
	MyReference      string
	Filename         string
	Container        archive.Container
}

// Manifest builds the manifest a transport carries for the request.
func (r Request) Manifest(sender string) Manifest {
	return Manifest{
		TransferID:         r.TransferID,
		Sender:             sender,
		Recipient:          r.DestinationParty,
		Filename:           r.Filename,
		SenderReference:    r.MyReference,
		RecipientReference: r.TheirReference,
	}
}

// Stage names a step of an in-flight submission.
type Stage string

const (
	StageGenerating Stage = "generating"
	StageUploading  Stage = "uploading"
	StageSending    Stage = "sending"
	StageDone       Stage = "done"
)

// Progress is a best-effort notification about an in-flight submission.
type Progress struct {
	Stage   Stage
	Percent float64
	Message string
}

// Handle tracks one submitted transfer. Progress is closed when the transfer
// settles; callers may ignore it. Await blocks until the peer accepted or
// refused the transfer.
type Handle interface {
	Progress() <-chan Progress
	Await(ctx context.Context) error
}

// Submitter carries a packed file to another party.
type Submitter interface {
	Submit(ctx context.Context, req Request) (Handle, error)
}

// Handler consumes an inbound transfer once its attachment is fully available.
type Handler interface {
	HandleTransfer(ctx context.Context, manifest Manifest, container archive.Container) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, manifest Manifest, container archive.Container) error

// HandleTransfer calls f.
func (f HandlerFunc) HandleTransfer(ctx context.Context, manifest Manifest, container archive.Container) error {
	return f(ctx, manifest, container)
}

// Acceptor delivers inbound transfers to a Handler until ctx is cancelled.
type Acceptor interface {
	Serve(ctx context.Context, h Handler) error
}

// CleanFilename reduces a manifest filename to a single path element.
func CleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
