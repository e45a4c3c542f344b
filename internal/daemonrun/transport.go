package daemonrun

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/afero"

	"filerelay/internal/attachments"
	"filerelay/internal/config"
	"filerelay/internal/transfer"
	"filerelay/internal/transport/amqppeer"
	"filerelay/internal/transport/grpcpeer"
)

// Transport bundles the submitter and acceptor for the configured kind.
type Transport struct {
	Kind      string
	Submitter transfer.Submitter
	Acceptor  transfer.Acceptor

	closers []func() error
}

// TransportOption customizes OpenTransport.
type TransportOption func(*transportOptions)

type transportOptions struct {
	listener net.Listener
	fs       afero.Fs
}

// WithListener makes the gRPC acceptor serve on lis instead of the
// configured listen address.
func WithListener(lis net.Listener) TransportOption {
	return func(o *transportOptions) {
		o.listener = lis
	}
}

// WithAttachmentFs sets the filesystem backing the inbound attachment store.
func WithAttachmentFs(fs afero.Fs) TransportOption {
	return func(o *transportOptions) {
		o.fs = fs
	}
}

// OpenTransport constructs the transport selected by cfg.Transport.Kind.
// Connections are opened lazily on first submit or serve.
func OpenTransport(cfg *config.Config, logger *slog.Logger, opts ...TransportOption) (*Transport, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.RequireParty(); err != nil {
		return nil, err
	}
	var o transportOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch cfg.Transport.Kind {
	case config.TransportGRPC, "":
		store, err := attachments.NewStore(o.fs, cfg.AttachmentsDir())
		if err != nil {
			return nil, fmt.Errorf("open attachment store: %w", err)
		}
		client := grpcpeer.NewClient(cfg.Node.Party, cfg.Transport.Peers, grpcpeer.DialOptions{
			MaxMsgBytes: cfg.Transport.MaxMessageBytes,
		})
		acceptorOpts := []grpcpeer.AcceptorOption{
			grpcpeer.WithParty(cfg.Node.Party),
			grpcpeer.WithMaxMessageBytes(cfg.Transport.MaxMessageBytes),
			grpcpeer.WithAcceptorLogger(logger),
		}
		if o.listener != nil {
			acceptorOpts = append(acceptorOpts, grpcpeer.WithListener(o.listener))
		}
		return &Transport{
			Kind:      config.TransportGRPC,
			Submitter: client,
			Acceptor:  grpcpeer.NewAcceptor(cfg.Node.ListenAddr, store, acceptorOpts...),
			closers:   []func() error{client.Close},
		}, nil

	case config.TransportAMQP:
		amqpCfg := amqppeer.Config{
			URL:      cfg.Transport.AMQPURL,
			Exchange: cfg.Transport.AMQPExchange,
			Party:    cfg.Node.Party,
		}
		publisher := amqppeer.NewPublisher(amqpCfg)
		return &Transport{
			Kind:      config.TransportAMQP,
			Submitter: publisher,
			Acceptor:  amqppeer.NewConsumer(amqpCfg, logger),
			closers:   []func() error{publisher.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported transport kind %q", cfg.Transport.Kind)
	}
}

// Close releases outbound connections.
func (t *Transport) Close() error {
	if t == nil {
		return nil
	}
	var errs []error
	for _, c := range t.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
