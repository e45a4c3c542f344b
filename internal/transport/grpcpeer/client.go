package grpcpeer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"filerelay/internal/attachments"
	"filerelay/internal/transfer"
)

// DialOptions configures outbound connections.
type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
	// Extra is appended to the default dial options.
	Extra []grpc.DialOption
}

// Client implements transfer.Submitter by calling the recipient's Transfer
// service directly. Connections are opened on first use per party and reused.
type Client struct {
	party string
	peers map[string]string
	opts  DialOptions

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewClient returns a submitter sending as party to the addresses in peers.
func NewClient(party string, peers map[string]string, opts DialOptions) *Client {
	copied := make(map[string]string, len(peers))
	for name, addr := range peers {
		copied[name] = addr
	}
	return &Client{
		party: party,
		peers: copied,
		opts:  opts,
		conns: map[string]*grpc.ClientConn{},
	}
}

// Close closes every open peer connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for name, cc := range c.conns {
		if err := cc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.conns, name)
	}
	return firstErr
}

func (c *Client) conn(party string) (*grpc.ClientConn, error) {
	addr, ok := c.peers[party]
	if !ok || strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("%w: %q", transfer.ErrUnknownParty, party)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok := c.conns[party]; ok {
		return cc, nil
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if c.opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(c.opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(c.opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, c.opts.Extra...)

	cc, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s at %s: %w", party, addr, err)
	}
	c.conns[party] = cc
	return cc, nil
}

type handle struct {
	*transfer.Tracker
	attachmentID string
}

// AttachmentID returns the content ID of the uploaded container.
func (h *handle) AttachmentID() string { return h.attachmentID }

// Submit implements transfer.Submitter. The upload and manifest calls run on
// a background goroutine; Await reports their outcome.
func (c *Client) Submit(ctx context.Context, req transfer.Request) (transfer.Handle, error) {
	cc, err := c.conn(req.DestinationParty)
	if err != nil {
		return nil, err
	}
	data := req.Container.Bytes()
	id, err := attachments.ID(data)
	if err != nil {
		return nil, fmt.Errorf("compute attachment id: %w", err)
	}

	manifest := req.Manifest(c.party)
	manifest.AttachmentID = id.String()
	payload, err := manifestToStruct(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	h := &handle{Tracker: transfer.NewTracker(8), attachmentID: manifest.AttachmentID}
	client := NewTransferClient(cc)
	go func() {
		h.Report(transfer.StageGenerating, 0, "manifest built")
		h.Report(transfer.StageUploading, 0, fmt.Sprintf("%d bytes", len(data)))
		reply, err := client.UploadAttachment(ctx, wrapperspb.Bytes(data))
		if err != nil {
			h.Finish(mapRPC(err))
			return
		}
		if reply.GetValue() != manifest.AttachmentID {
			h.Finish(fmt.Errorf("peer stored attachment as %s, expected %s", reply.GetValue(), manifest.AttachmentID))
			return
		}
		h.Report(transfer.StageSending, 50, "attachment stored")
		if _, err := client.SubmitTransfer(ctx, payload); err != nil {
			h.Finish(mapRPC(err))
			return
		}
		h.Report(transfer.StageDone, 100, "")
		h.Finish(nil)
	}()
	return h, nil
}

// mapRPC turns refusals on the transfer's merits into transfer.ErrRejected
// and leaves transport failures as they are.
func mapRPC(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound, codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied, codes.DataLoss:
		return fmt.Errorf("%w: %s", transfer.ErrRejected, st.Message())
	default:
		return err
	}
}
