package amqppeer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"filerelay/internal/logging"
	"filerelay/internal/transfer"
)

// DeadLetterExchange names the fanout exchange that receives deliveries this
// node rejects, such as transfers for an unknown reference.
func DeadLetterExchange(exchange string) string {
	return exchange + ".rejected"
}

// DeadLetterQueueName returns the queue holding queue's rejected deliveries.
func DeadLetterQueueName(queue string) string {
	return queue + ".rejected"
}

func queueArgs(exchange string) amqp.Table {
	return amqp.Table{"x-dead-letter-exchange": DeadLetterExchange(exchange)}
}

// declareDeadLetter sets up the dead-letter exchange and a durable queue that
// keeps rejected transfers for inspection.
func declareDeadLetter(ch *amqp.Channel, exchange, queue string) error {
	dlx := DeadLetterExchange(exchange)
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}
	dlq := DeadLetterQueueName(queue)
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(dlq, "", dlx, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}
	return nil
}

// Consumer implements transfer.Acceptor over the node's broker queue.
type Consumer struct {
	cfg    Config
	logger *slog.Logger
}

// NewConsumer returns a consumer for cfg.Party's queue.
func NewConsumer(cfg Config, logger *slog.Logger) *Consumer {
	return &Consumer{cfg: cfg, logger: logging.NewComponentLogger(logger, "amqp-consumer")}
}

// Serve implements transfer.Acceptor. It returns nil when ctx is cancelled
// and an error when the broker connection is lost.
func (c *Consumer) Serve(ctx context.Context, h transfer.Handler) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	queue := QueueName(c.cfg.Exchange, c.cfg.Party)
	if err := ch.ExchangeDeclare(c.cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if err := declareDeadLetter(ch, c.cfg.Exchange, queue); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, queueArgs(c.cfg.Exchange)); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, c.cfg.Party, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	c.logger.Info("consuming transfers",
		logging.String("queue", queue),
		logging.String(logging.FieldEventType, "acceptor_started"),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("broker connection closed")
			}
			return fmt.Errorf("broker connection closed: %w", amqpErr)
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, h, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, h transfer.Handler, d amqp.Delivery) {
	manifest, container, err := decodeEnvelope(d.Body)
	if err != nil {
		logging.WarnWithContext(c.logger, "discarding undecodable delivery", "delivery_poison",
			logging.String("message_id", d.MessageId),
			logging.Error(err),
			logging.String(logging.FieldImpact, "message moved to the dead-letter queue"),
		)
		_ = d.Reject(false)
		return
	}
	ctx = logging.WithTransferID(ctx, manifest.TransferID)
	if err := h.HandleTransfer(ctx, manifest, container); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "transfer rejected", "delivery_rejected",
			logging.String(logging.FieldReference, manifest.RecipientReference),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the dead-letter queue and fix inbound_routes"),
			logging.String(logging.FieldImpact, "message moved to the dead-letter queue"),
		)
		_ = d.Reject(false)
		return
	}
	_ = d.Ack(false)
}
