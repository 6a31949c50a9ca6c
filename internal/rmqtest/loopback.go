// Package rmqtest provides an in-process fake transport with the same
// Send shape rpcclient.Client expects from a real rmq.Producer, so
// dispatcher/client tests can run without a broker.
package rmqtest

import (
	"context"
	"time"
)

// Loopback wires a client's Send calls directly into a server handler
// function (the same signature as rmq.MessageHandler / a Dispatcher's
// Handle method), invoked synchronously — there is no queueing, no
// network, and no concurrency to reason about.
type Loopback struct {
	handler func(body []byte) ([]byte, error)
	sends   int
}

// NewLoopback wraps handler as a transport.
func NewLoopback(handler func(body []byte) ([]byte, error)) *Loopback {
	return &Loopback{handler: handler}
}

// Send invokes the handler directly. queueName is ignored (there is only
// ever one handler) and so is timeout; ctx is checked once before the
// handler runs, so an already-cancelled ctx returns its error without
// invoking the handler.
func (l *Loopback) Send(ctx context.Context, body []byte, queueName string, timeout time.Duration) ([]byte, error) {
	l.sends++

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return l.handler(body)
}

// SendCount reports how many times Send has been called, for tests that
// assert on call volume.
func (l *Loopback) SendCount() int {
	return l.sends
}
