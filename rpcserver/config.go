package rpcserver

import (
	"os"
	"strconv"
	"time"

	"github.com/bashkirtsevich/rabbitrpc/rmq"
)

// ServerConfig is the environment-driven configuration for a dispatcher
// process, following the same getEnv/getEnvInt convention the rest of the
// ecosystem's services use for their own config structs.
type ServerConfig struct {
	Connection rmq.Config
	QueueName  string

	// AuthPluginName, if non-empty, is looked up in the auth registry at
	// Boot time. AuthPluginConfig is passed to its Start method.
	AuthPluginName   string
	AuthPluginConfig map[string]interface{}
}

// ServerConfigFromEnv builds a ServerConfig from RABBITRPC_* environment
// variables, falling back to sane local-broker defaults.
func ServerConfigFromEnv() ServerConfig {
	return ServerConfig{
		Connection: rmq.Config{
			Host:     getEnv("RABBITRPC_HOST", "localhost"),
			Port:     getEnvInt("RABBITRPC_PORT", 5672),
			Username: getEnv("RABBITRPC_USERNAME", "guest"),
			Password: getEnv("RABBITRPC_PASSWORD", "guest"),
			VHost:    getEnv("RABBITRPC_VHOST", "/"),
			TLS:      tlsConfigFromEnv(),
		},
		QueueName:      getEnv("RABBITRPC_QUEUE", "rpc_requests"),
		AuthPluginName: os.Getenv("RABBITRPC_AUTH_PLUGIN"),
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
