package rmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bashkirtsevich/rabbitrpc/rpcerrors"
)

// MessageHandler processes one delivery body and returns the bytes to send
// back to the caller, or nil if no reply should be sent. A non-nil error
// either rejects the message without requeue (InvalidMessageError, or any
// error on a redelivered message) or rejects with requeue (a transient
// error on first delivery).
type MessageHandler func(body []byte) ([]byte, error)

// Consumer consumes from a single durable request queue and invokes one
// handler per delivery, inline, with prefetch=1.
type Consumer struct {
	channel *amqp.Channel
	queue   string
	conn    *Connection
}

// NewConsumer declares a durable request queue (plus a matching dead-letter
// queue so a message that poisons the handler twice lands somewhere instead
// of vanishing) and sets prefetch_count=1.
func NewConsumer(conn *Connection, queueName string) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	dlqName := queueName + ".dlq"
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}

	queue, err := ch.QueueDeclare(queueName, true, false, false, false, args)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare request queue: %w", err)
	}

	return &Consumer{channel: ch, queue: queue.Name, conn: conn}, nil
}

// Run begins consuming and blocks, invoking handler for each delivery, until
// ctx is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery, handler MessageHandler) {
	reply, err := handler(delivery.Body)
	if err != nil {
		var invalid *rpcerrors.InvalidMessageError
		switch {
		case errors.As(err, &invalid):
			delivery.Nack(false, false)
		case delivery.Redelivered:
			delivery.Nack(false, false)
		default:
			delivery.Nack(false, true)
		}
		return
	}

	if reply != nil && delivery.ReplyTo != "" {
		pubErr := c.channel.PublishWithContext(ctx, "", delivery.ReplyTo, false, false, amqp.Publishing{
			ContentType:   "application/json",
			Body:          reply,
			CorrelationId: delivery.CorrelationId,
			DeliveryMode:  amqp.Persistent,
		})
		if pubErr != nil {
			// Publishing the reply failed; requeue so a retry has a chance
			// of reaching a caller.
			delivery.Nack(false, true)
			return
		}
	}

	delivery.Ack(false)
}

// Close stops accepting new deliveries and closes the channel and the
// connection it was opened on.
func (c *Consumer) Close() error {
	var err error
	if c.channel != nil {
		err = c.channel.Close()
	}
	if c.conn != nil {
		if connErr := c.conn.Close(); err == nil {
			err = connErr
		}
	}
	return err
}
