package grpcpeer

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"filerelay/internal/archive"
	"filerelay/internal/attachments"
	"filerelay/internal/logging"
	"filerelay/internal/routing"
	"filerelay/internal/transfer"
)

// Acceptor serves the Transfer service and hands each inbound transfer to a
// transfer.Handler.
type Acceptor struct {
	addr        string
	listener    net.Listener
	store       *attachments.Store
	party       string
	maxMsgBytes int
	logger      *slog.Logger
}

// AcceptorOption customizes an Acceptor.
type AcceptorOption func(*Acceptor)

// WithListener serves on lis instead of listening on the configured address.
func WithListener(lis net.Listener) AcceptorOption {
	return func(a *Acceptor) { a.listener = lis }
}

// WithParty rejects manifests addressed to any other party.
func WithParty(party string) AcceptorOption {
	return func(a *Acceptor) { a.party = party }
}

// WithMaxMessageBytes caps the size of a single request.
func WithMaxMessageBytes(n int) AcceptorOption {
	return func(a *Acceptor) {
		if n > 0 {
			a.maxMsgBytes = n
		}
	}
}

// WithAcceptorLogger sets the acceptor's logger.
func WithAcceptorLogger(logger *slog.Logger) AcceptorOption {
	return func(a *Acceptor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAcceptor returns an acceptor listening on addr and keeping uploaded
// containers in store.
func NewAcceptor(addr string, store *attachments.Store, opts ...AcceptorOption) *Acceptor {
	a := &Acceptor{
		addr:   addr,
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "grpc-acceptor")
	return a
}

// Serve implements transfer.Acceptor. It returns nil once ctx is cancelled
// and in-flight calls have drained.
func (a *Acceptor) Serve(ctx context.Context, h transfer.Handler) error {
	if h == nil {
		return errors.New("grpcpeer: handler is required")
	}
	lis := a.listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", a.addr)
		if err != nil {
			return err
		}
	}

	var serverOpts []grpc.ServerOption
	if a.maxMsgBytes > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(a.maxMsgBytes))
	}
	srv := grpc.NewServer(serverOpts...)
	RegisterTransferServer(srv, &server{
		store:   a.store,
		handler: h,
		party:   a.party,
		logger:  a.logger,
	})

	a.logger.Info("accepting transfers",
		logging.String("addr", lis.Addr().String()),
		logging.String(logging.FieldEventType, "acceptor_started"),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	select {
	case <-ctx.Done():
		srv.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

type server struct {
	UnimplementedTransferServer
	store   *attachments.Store
	handler transfer.Handler
	party   string
	logger  *slog.Logger
}

func (s *server) UploadAttachment(_ context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	data := in.GetValue()
	if len(data) == 0 {
		return nil, status.Error(codes.InvalidArgument, "empty attachment")
	}
	id, err := s.store.Put(data)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return wrapperspb.String(id.String()), nil
}

func (s *server) SubmitTransfer(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	manifest, err := manifestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if s.party != "" && manifest.Recipient != "" && manifest.Recipient != s.party {
		return nil, status.Errorf(codes.FailedPrecondition, "transfer addressed to %q, this node is %q", manifest.Recipient, s.party)
	}
	id, err := attachments.ParseID(manifest.AttachmentID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	data, err := s.store.Get(id)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	ctx = logging.WithTransferID(ctx, manifest.TransferID)
	if err := s.handler.HandleTransfer(ctx, manifest, archive.FromBytes(data)); err != nil {
		logging.WithContext(ctx, s.logger).Debug("handler refused transfer", logging.Error(err))
		return nil, mapHandlerErr(err)
	}
	return wrapperspb.String(manifest.TransferID), nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, attachments.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, attachments.ErrInvalidID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, attachments.ErrMismatch):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func mapHandlerErr(err error) error {
	var (
		unknown *routing.UnknownReferenceError
		escape  *routing.PathEscapeError
	)
	switch {
	case errors.As(err, &unknown):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &escape):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
