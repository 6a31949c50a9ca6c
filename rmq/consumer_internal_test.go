package rmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bashkirtsevich/rabbitrpc/rpcerrors"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error { f.acked = true; return nil }

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func TestHandleDelivery_InvalidMessageNacksWithoutRequeue(t *testing.T) {
	ack := &fakeAcknowledger{}
	delivery := amqp.Delivery{Acknowledger: ack, Body: []byte("garbage")}

	c := &Consumer{}
	c.handleDelivery(context.Background(), delivery, func([]byte) ([]byte, error) {
		return nil, &rpcerrors.InvalidMessageError{Cause: errors.New("truncated frame")}
	})

	if !ack.nacked || ack.requeue {
		t.Errorf("expected nack without requeue, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
}

func TestHandleDelivery_TransientErrorOnRedeliveryNacksWithoutRequeue(t *testing.T) {
	ack := &fakeAcknowledger{}
	delivery := amqp.Delivery{Acknowledger: ack, Redelivered: true}

	c := &Consumer{}
	c.handleDelivery(context.Background(), delivery, func([]byte) ([]byte, error) {
		return nil, errors.New("boom")
	})

	if !ack.nacked || ack.requeue {
		t.Errorf("expected nack without requeue on redelivery, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
}

func TestHandleDelivery_TransientErrorOnFirstDeliveryRequeues(t *testing.T) {
	ack := &fakeAcknowledger{}
	delivery := amqp.Delivery{Acknowledger: ack}

	c := &Consumer{}
	c.handleDelivery(context.Background(), delivery, func([]byte) ([]byte, error) {
		return nil, errors.New("boom")
	})

	if !ack.nacked || !ack.requeue {
		t.Errorf("expected nack with requeue on first delivery, got nacked=%v requeue=%v", ack.nacked, ack.requeue)
	}
}

func TestHandleDelivery_SuccessWithNoReplyToAcks(t *testing.T) {
	ack := &fakeAcknowledger{}
	delivery := amqp.Delivery{Acknowledger: ack}

	c := &Consumer{}
	c.handleDelivery(context.Background(), delivery, func([]byte) ([]byte, error) {
		return []byte("ok"), nil
	})

	if !ack.acked {
		t.Error("expected the delivery to be acked")
	}
}
