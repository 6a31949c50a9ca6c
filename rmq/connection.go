package rmq

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection wraps the single AMQP connection a Producer or Consumer opens
// its channel against. Every RPC role (server dispatcher, client) dials
// exactly one of these.
type Connection struct {
	conn *amqp.Connection
}

// Config describes how to reach the broker carrying the request/reply
// queues for one RPC role. TLS is optional; a nil or disabled TLS leaves
// the connection on plain amqp://.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	VHost    string
	TLS      *TLSConfig
}

// TLSConfig controls whether NewConnection dials amqps:// and, if so, how
// it verifies the broker's certificate.
type TLSConfig struct {
	// Enabled switches the dial from amqp:// to amqps://.
	Enabled bool
	// InsecureSkipVerify disables certificate verification. Insecure;
	// development/testing only.
	InsecureSkipVerify bool
	// CACertPath, if set, is a PEM file used instead of the system trust
	// store to verify the broker's certificate.
	CACertPath string
	// ServerName overrides the hostname used for certificate verification,
	// for when the dial host and the certificate's subject differ (e.g. a
	// cluster-internal address fronted by a public cert).
	ServerName string
}

// NewConnection dials the broker described by config. With config.TLS nil
// or Disabled this is a plain amqp:// dial; otherwise it builds a
// crypto/tls.Config from the TLS block and dials amqps://.
func NewConnection(config Config) (*Connection, error) {
	if config.TLS == nil || !config.TLS.Enabled {
		url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
			config.Username, config.Password, config.Host, config.Port, config.VHost)

		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		return &Connection{conn: conn}, nil
	}

	tlsConfig, err := buildTLSConfig(config.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to build TLS config: %w", err)
	}

	url := fmt.Sprintf("amqps://%s:%s@%s:%d%s",
		config.Username, config.Password, config.Host, config.Port, config.VHost)

	conn, err := amqp.DialTLS(url, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ with TLS: %w", err)
	}
	return &Connection{conn: conn}, nil
}

// buildTLSConfig turns a TLSConfig into the crypto/tls.Config amqp.DialTLS
// wants, loading a custom CA bundle if one is configured.
func buildTLSConfig(config *TLSConfig) (*tls.Config, error) {
	if config == nil {
		return &tls.Config{}, nil
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: config.InsecureSkipVerify,
	}

	if config.ServerName != "" {
		tlsConfig.ServerName = config.ServerName
	}

	if config.CACertPath != "" {
		caCert, err := os.ReadFile(config.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate from %s: %w", config.CACertPath, err)
		}

		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
			return nil, fmt.Errorf("failed to parse CA certificate from %s", config.CACertPath)
		}

		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}

// Close closes the underlying AMQP connection, tolerating an already-closed
// or zero-value Connection.
func (c *Connection) Close() error {
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

// Channel opens a new channel on the connection. Producer and Consumer each
// own exactly one.
func (c *Connection) Channel() (*amqp.Channel, error) {
	return c.conn.Channel()
}

// NotifyClose relays the underlying connection's close notification, so a
// Producer or Consumer can detect a dropped broker connection and surface
// it as a ConnectionError rather than hanging.
func (c *Connection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.conn.NotifyClose(receiver)
}
