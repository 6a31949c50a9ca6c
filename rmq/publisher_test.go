package rmq_test

import (
	"context"
	"testing"
	"time"

	"github.com/bashkirtsevich/rabbitrpc/rmq"
)

func TestProducer_Send_RoundTrip(t *testing.T) {
	t.Skip("Requires a RabbitMQ instance")

	config := rmq.Config{
		Host:     "localhost",
		Port:     5672,
		Username: "guest",
		Password: "guest",
		VHost:    "/",
	}

	conn, err := rmq.NewConnection(config)
	if err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	producer, err := rmq.NewProducer(ctx, conn, "")
	if err != nil {
		t.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Stop()

	if producer.ReplyQueueName() == "" {
		t.Error("expected a server-assigned reply queue name")
	}

	if _, err := producer.Send(ctx, []byte("ping"), "nonexistent-queue", 100*time.Millisecond); err == nil {
		t.Error("expected a timeout waiting for a reply nobody sends")
	}
}

func TestProducer_DroppedReplies_StartsAtZero(t *testing.T) {
	p := &rmq.Producer{}
	if got := p.DroppedReplies(); got != 0 {
		t.Errorf("expected 0 dropped replies on a fresh producer, got %d", got)
	}
}
