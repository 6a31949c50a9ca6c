package rpcclient

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bashkirtsevich/rabbitrpc/auth"
	"github.com/bashkirtsevich/rabbitrpc/rmq"
)

// ClientConfig is the environment-driven configuration for an RPC client
// process, mirroring rpcserver.ServerConfig's getEnv/getEnvInt convention.
type ClientConfig struct {
	Connection   rmq.Config
	QueueName    string
	Exchange     string
	ReplyTimeout time.Duration
}

// ClientConfigFromEnv builds a ClientConfig from RABBITRPC_* environment
// variables, falling back to sane local-broker defaults.
func ClientConfigFromEnv() ClientConfig {
	return ClientConfig{
		Connection: rmq.Config{
			Host:     getEnv("RABBITRPC_HOST", "localhost"),
			Port:     getEnvInt("RABBITRPC_PORT", 5672),
			Username: getEnv("RABBITRPC_USERNAME", "guest"),
			Password: getEnv("RABBITRPC_PASSWORD", "guest"),
			VHost:    getEnv("RABBITRPC_VHOST", "/"),
			TLS:      tlsConfigFromEnv(),
		},
		QueueName:    getEnv("RABBITRPC_QUEUE", "rpc_requests"),
		Exchange:     os.Getenv("RABBITRPC_EXCHANGE"),
		ReplyTimeout: getEnvDuration("RABBITRPC_REPLY_TIMEOUT", 10*time.Second),
	}
}

// tlsConfigFromEnv builds an rmq.TLSConfig from RABBITRPC_TLS_* variables,
// returning nil when TLS isn't requested so Config.TLS stays unset and
// NewConnection dials plain amqp://.
func tlsConfigFromEnv() *rmq.TLSConfig {
	if !getEnvBool("RABBITRPC_TLS_ENABLED", false) {
		return nil
	}
	return &rmq.TLSConfig{
		Enabled:            true,
		InsecureSkipVerify: getEnvBool("RABBITRPC_TLS_INSECURE_SKIP_VERIFY", false),
		CACertPath:         os.Getenv("RABBITRPC_TLS_CA_CERT_PATH"),
		ServerName:         os.Getenv("RABBITRPC_TLS_SERVER_NAME"),
	}
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Dial opens a connection and producer for cfg and wraps them in a Client.
// The caller owns the returned Client's lifetime; Stop() tears down the
// underlying producer along with it.
func Dial(ctx context.Context, cfg ClientConfig, authPlugin auth.ClientPlugin) (*Client, error) {
	conn, err := rmq.NewConnection(cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	producer, err := rmq.NewProducer(ctx, conn, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to start producer: %w", err)
	}

	return New(producer, cfg.QueueName, cfg.ReplyTimeout, authPlugin), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
