package amqppeer

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"filerelay/internal/transfer"
)

const exchangeKind = "direct"

// Config identifies the broker and this node.
type Config struct {
	URL      string
	Exchange string
	Party    string
}

// QueueName returns the queue a party consumes.
func QueueName(exchange, party string) string {
	return exchange + "." + party
}

// Publisher implements transfer.Submitter by publishing to the broker.
type Publisher struct {
	cfg Config

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewPublisher returns a publisher; the connection is opened on first use.
func NewPublisher(cfg Config) *Publisher {
	return &Publisher{cfg: cfg}
}

// Close closes the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

type handle struct {
	*transfer.Tracker
	attachmentID string
}

func (h *handle) AttachmentID() string { return h.attachmentID }

// Submit implements transfer.Submitter. Await returns once the broker has
// confirmed or refused the message; an unroutable message (no queue for the
// party) is refused.
func (p *Publisher) Submit(ctx context.Context, req transfer.Request) (transfer.Handle, error) {
	body, env, err := encodeEnvelope(req.Manifest(p.cfg.Party), req.Container, time.Now())
	if err != nil {
		return nil, err
	}

	ch, err := p.channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(p.cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))

	h := &handle{Tracker: transfer.NewTracker(4), attachmentID: env.Data.Manifest.AttachmentID}
	h.Report(transfer.StageGenerating, 0, "envelope built")

	err = ch.PublishWithContext(ctx, p.cfg.Exchange, req.DestinationParty, true, false, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: env.Meta.CorrelationID,
		Type:          env.Meta.Type,
		Timestamp:     env.Meta.Time,
		AppId:         p.cfg.Party,
	})
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("publish: %w", err)
	}
	h.Report(transfer.StageSending, 50, "awaiting broker confirm")

	go func() {
		defer ch.Close()
		awaitConfirm(ctx, h.Tracker, req.DestinationParty, confirms, returns)
	}()
	return h, nil
}

// awaitConfirm settles t from the broker's answer to a single mandatory
// publish. The broker sends basic.return before the ack for an unroutable
// message, but both may already be buffered when the select runs, so a
// pending return is drained before an ack is trusted.
func awaitConfirm(ctx context.Context, t *transfer.Tracker, party string, confirms <-chan amqp.Confirmation, returns <-chan amqp.Return) {
	var returned *amqp.Return
	for {
		select {
		case ret, ok := <-returns:
			if ok {
				returned = &ret
			}
			returns = nil
		case confirm, ok := <-confirms:
			if returned == nil && returns != nil {
				select {
				case ret, ok := <-returns:
					if ok {
						returned = &ret
					}
				default:
				}
			}
			switch {
			case !ok:
				t.Finish(fmt.Errorf("broker channel closed before confirm"))
			case returned != nil:
				t.Finish(fmt.Errorf("%w: no queue for party %q (%s)", transfer.ErrRejected, party, returned.ReplyText))
			case !confirm.Ack:
				t.Finish(fmt.Errorf("%w: broker nacked message", transfer.ErrRejected))
			default:
				t.Report(transfer.StageDone, 100, "")
				t.Finish(nil)
			}
			return
		case <-ctx.Done():
			t.Finish(ctx.Err())
			return
		}
	}
}
