package rmq_test

import (
	"context"
	"testing"
	"time"

	"github.com/bashkirtsevich/rabbitrpc/rmq"
)

func TestConsumer_Run(t *testing.T) {
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

	consumer, err := rmq.NewConsumer(conn, "test-queue")
	if err != nil {
		t.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	handler := func(body []byte) ([]byte, error) {
		return body, nil
	}

	if err := consumer.Run(ctx, handler); err != nil {
		t.Errorf("Run returned an error: %v", err)
	}
}
