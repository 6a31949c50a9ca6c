// Package rpcclient implements the client side: a Client that fetches the
// server's definition table and exposes a single universal call path that
// every generated or hand-written stub routes through.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bashkirtsevich/rabbitrpc/auth"
	"github.com/bashkirtsevich/rabbitrpc/codec"
	"github.com/bashkirtsevich/rabbitrpc/logging"
	"github.com/bashkirtsevich/rabbitrpc/registry"
	"github.com/bashkirtsevich/rabbitrpc/rpcerrors"
)

// transport is the minimal shape Client needs from its underlying sender —
// satisfied by both *rmq.Producer and the in-process internal/rmqtest
// fake, so dispatcher/client tests don't need a real broker.
type transport interface {
	Send(ctx context.Context, body []byte, queueName string, timeout time.Duration) ([]byte, error)
}

type stoppable interface {
	Stop() error
}

// Client holds a transport, the server's advertised queue name, and the
// last-fetched definition table (the "virtual module map" from the design
// notes).
type Client struct {
	transport    transport
	queueName    string
	replyTimeout time.Duration
	authPlugin   auth.ClientPlugin
	codec        codec.JSON
	log          interface {
		Info(msg string, args ...interface{})
	}

	metrics *logging.CallMetrics

	mu      sync.RWMutex
	modules registry.DefinitionTable
	hash    uint64
}

// New wraps an already-connected transport. queueName is the server's
// request queue; replyTimeout bounds every Call.
func New(t transport, queueName string, replyTimeout time.Duration, authPlugin auth.ClientPlugin) *Client {
	return &Client{
		transport:    t,
		queueName:    queueName,
		replyTimeout: replyTimeout,
		authPlugin:   authPlugin,
		log:          logging.Get("rpcclient"),
		metrics:      logging.NewCallMetrics("rpcclient"),
		modules:      registry.DefinitionTable{},
	}
}

type definitionsPayload struct {
	Definitions registry.DefinitionTable `json:"definitions"`
	Hash        uint64                   `json:"hash"`
}

// Refresh fetches the current definition table from the server via the
// provide_definitions built-in and replaces the client's virtual module
// map. Safe to call again later if the server's hash changes.
func (c *Client) Refresh(ctx context.Context) error {
	result, err := c.Call(ctx, "", registry.CallProvideDefinitions, nil, nil)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("rpcclient: failed to re-marshal provide_definitions result: %w", err)
	}

	var payload definitionsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("rpcclient: failed to decode definition table: %w", err)
	}

	c.mu.Lock()
	c.modules = payload.Definitions
	c.hash = payload.Hash
	c.mu.Unlock()

	return nil
}

// CurrentHash returns the hash of the last definition table fetched by
// Refresh, without contacting the server.
func (c *Client) CurrentHash() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hash
}

// ModuleNames returns the modules known from the last Refresh.
func (c *Client) ModuleNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	return names
}

// Describe returns the descriptor for one procedure from the last
// Refresh, for stub generation or introspection.
func (c *Client) Describe(module, name string) (registry.ProcedureDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	calls, ok := c.modules[module]
	if !ok {
		return registry.ProcedureDescriptor{}, false
	}
	desc, ok := calls[name]
	return desc, ok
}

// Call is the universal proxy handler every stub routes through: it
// attaches credentials (if a client auth plugin is configured), encodes
// the request, sends it, and decodes either a result or a reconstructed
// server-side error.
func (c *Client) Call(ctx context.Context, module, name string, varargs []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	var credentials interface{}
	if c.authPlugin != nil {
		creds, err := c.authPlugin.ProvideCredentials()
		if err != nil {
			return nil, &rpcerrors.ClientAuthenticationPluginError{Reason: err.Error()}
		}
		credentials = creds
	}

	internal := registry.IsReservedCall(name)

	var args *codec.RequestArgs
	if len(varargs) > 0 || len(kwargs) > 0 {
		args = &codec.RequestArgs{Varargs: varargs, Kwargs: kwargs}
	}

	var modulePtr *string
	if !internal {
		modulePtr = &module
	}

	req := codec.Request{
		CallName:    name,
		Module:      modulePtr,
		Internal:    internal,
		Args:        args,
		Credentials: credentials,
	}

	body, err := c.codec.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: failed to encode request: %w", err)
	}

	start := time.Now()
	ctx, span := logging.StartCallSpan(ctx, "rpcclient", name, module)
	defer span.End()

	replyBody, err := c.transport.Send(ctx, body, c.queueName, c.replyTimeout)
	if err != nil {
		span.RecordError(err)
		c.metrics.RecordCall(ctx, name, "transport_error", time.Since(start))
		return nil, err
	}

	var reply codec.Reply
	dec := json.NewDecoder(bytes.NewReader(replyBody))
	if internal {
		// Built-in replies carry the 64-bit definitions hash, which a plain
		// float64 decode would round.
		dec.UseNumber()
	}
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("rpcclient: failed to decode reply: %w", err)
	}

	if reply.Error != nil {
		wireBytes, err := json.Marshal(reply.Result)
		if err != nil {
			return nil, fmt.Errorf("rpcclient: failed to re-marshal error result: %w", err)
		}
		var wire codec.WireError
		if err := json.Unmarshal(wireBytes, &wire); err != nil {
			return nil, fmt.Errorf("rpcclient: failed to decode error result: %w", err)
		}
		reconstructed := rpcerrors.FromWire(wire, reply.Error.Traceback)
		span.RecordError(reconstructed)
		c.metrics.RecordCall(ctx, name, wire.Kind, time.Since(start))
		return nil, reconstructed
	}

	c.metrics.RecordCall(ctx, name, "ok", time.Since(start))
	c.log.Info("call succeeded", "call", module+"."+name)
	return reply.Result, nil
}

// GenerateStub returns a closure over Call fixed to one (module, name)
// pair — the shape a code generator (or a hand-written wrapper) builds a
// typed method around.
func GenerateStub(c *Client, module, name string) func(ctx context.Context, varargs []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	return func(ctx context.Context, varargs []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return c.Call(ctx, module, name, varargs, kwargs)
	}
}

// Stop releases the underlying transport, if it supports it, and clears
// the virtual module map so stale aliases don't outlive the connection.
func (c *Client) Stop() error {
	c.mu.Lock()
	c.modules = registry.DefinitionTable{}
	c.hash = 0
	c.mu.Unlock()

	if s, ok := c.transport.(stoppable); ok {
		return s.Stop()
	}
	return nil
}
