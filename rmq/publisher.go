package rmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bashkirtsevich/rabbitrpc/rpcerrors"
)

// ClientShutdownError is handed to any Send waiter still outstanding when
// the Producer is stopped.
type ClientShutdownError struct{}

func (e *ClientShutdownError) Error() string {
	return "rpc client is shutting down"
}

type pendingReply struct {
	body []byte
	err  error
}

// amqpPublisher is the slice of *amqp.Channel that Send and Stop actually
// call. Narrowing Producer to this interface, rather than the concrete
// channel type, lets tests exercise Send's real timeout path against a
// fake that never delivers a reply, without a broker.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Producer is the client side of the request/reply transport: it owns one
// connection, one channel, and one exclusive auto-delete reply queue, and
// demultiplexes incoming replies onto outstanding Send calls by
// correlation id.
type Producer struct {
	channel     amqpPublisher
	replyQueue  string
	exchange    string
	cancelTag   string

	mu        sync.Mutex
	pending   map[string]chan pendingReply
	stopped   bool

	dropped int64 // replies whose correlation id matched nothing outstanding
}

// NewProducer opens a channel on conn, declares an exclusive, auto-delete,
// server-named reply queue, and starts the background reply router. The
// exchange argument is the exchange every Send publishes to (commonly "",
// the default exchange, for direct-to-queue delivery).
func NewProducer(ctx context.Context, conn *Connection, exchange string) (*Producer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}

	deliveries, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to register reply consumer: %w", err)
	}

	p := &Producer{
		channel:    ch,
		replyQueue: replyQueue.Name,
		exchange:   exchange,
		pending:    make(map[string]chan pendingReply),
	}

	go p.routeReplies(deliveries)

	return p, nil
}

// ReplyQueueName returns the server-assigned name of this producer's
// exclusive reply queue.
func (p *Producer) ReplyQueueName() string {
	return p.replyQueue
}

// DroppedReplies reports how many reply deliveries arrived with a
// correlation id that matched no outstanding Send. Mismatches are discarded
// silently per the wire contract; this counter exists purely for
// observability.
func (p *Producer) DroppedReplies() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// routeReplies is the single goroutine that owns demuxing replies onto
// outstanding Send calls. It runs for the lifetime of the Producer.
func (p *Producer) routeReplies(deliveries <-chan amqp.Delivery) {
	for delivery := range deliveries {
		p.mu.Lock()
		ch, ok := p.pending[delivery.CorrelationId]
		if ok {
			delete(p.pending, delivery.CorrelationId)
		} else {
			p.dropped++
		}
		p.mu.Unlock()

		if ok {
			// Buffered by one slot (see Send), so this never blocks even if
			// the waiter already gave up on a timeout.
			ch <- pendingReply{body: delivery.Body}
		}
	}
}

// Send publishes body to queueName with a fresh correlation id and this
// producer's reply queue as reply_to, then blocks until a matching reply
// arrives, ctx is cancelled, or timeout elapses — whichever is first.
func (p *Producer) Send(ctx context.Context, body []byte, queueName string, timeout time.Duration) ([]byte, error) {
	correlationID := uuid.NewString()

	replyCh := make(chan pendingReply, 1)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, &ClientShutdownError{}
	}
	p.pending[correlationID] = replyCh
	p.mu.Unlock()

	deregister := func() {
		p.mu.Lock()
		delete(p.pending, correlationID)
		p.mu.Unlock()
	}

	publishCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.channel.PublishWithContext(publishCtx, p.exchange, queueName, false, false, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		CorrelationId: correlationID,
		ReplyTo:       p.replyQueue,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now(),
	})
	if err != nil {
		deregister()
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply.body, reply.err
	case <-ctx.Done():
		deregister()
		return nil, ctx.Err()
	case <-timer.C:
		deregister()
		return nil, &rpcerrors.ReplyTimeoutError{CorrelationID: correlationID}
	}
}

// Stop releases any still-outstanding Send calls with a shutdown error and
// closes the channel.
func (p *Producer) Stop() error {
	p.mu.Lock()
	p.stopped = true
	for id, ch := range p.pending {
		ch <- pendingReply{err: &ClientShutdownError{}}
		delete(p.pending, id)
	}
	p.mu.Unlock()

	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
