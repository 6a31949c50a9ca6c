// Package rpcserver implements the server-side dispatch pipeline: decode
// a request, validate its shape, authenticate it, resolve and invoke the
// registered procedure, and encode whatever happened back into a reply.
package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bashkirtsevich/rabbitrpc/auth"
	"github.com/bashkirtsevich/rabbitrpc/codec"
	"github.com/bashkirtsevich/rabbitrpc/internal/argmerge"
	"github.com/bashkirtsevich/rabbitrpc/logging"
	"github.com/bashkirtsevich/rabbitrpc/registry"
	"github.com/bashkirtsevich/rabbitrpc/rmq"
	"github.com/bashkirtsevich/rabbitrpc/rpcerrors"
)

// Dispatcher owns the registry, an optional authentication plugin, and the
// transport consumer it drives. One Dispatcher serves one request queue.
type Dispatcher struct {
	registry   *registry.Registry
	authPlugin auth.ServerPlugin
	codec      codec.JSON
	consumer   *rmq.Consumer
	log        *slog.Logger
	metrics    *logging.CallMetrics
}

// Boot wires a Dispatcher: opens the transport connection, declares the
// request queue, and instantiates the configured authentication plugin (if
// any). Boot logs a warning and proceeds unauthenticated when no plugin is
// configured, exactly as the run loop this is modeled on does.
func Boot(cfg ServerConfig, reg *registry.Registry) (*Dispatcher, error) {
	logger := logging.Get("rpcserver")

	conn, err := rmq.NewConnection(cfg.Connection)
	if err != nil {
		return nil, &rpcerrors.ConnectionError{Cause: err}
	}

	consumer, err := rmq.NewConsumer(conn, cfg.QueueName)
	if err != nil {
		return nil, &rpcerrors.ConnectionError{Cause: err}
	}

	d := &Dispatcher{
		registry: reg,
		consumer: consumer,
		log:      logger,
		metrics:  logging.NewCallMetrics("rpcserver"),
	}

	if cfg.AuthPluginName == "" {
		logger.Warn("no authentication plugin configured, serving requests unauthenticated")
		return d, nil
	}

	plugin, err := auth.NewServerPlugin(cfg.AuthPluginName)
	if err != nil {
		return nil, err
	}
	if err := plugin.Start(cfg.AuthPluginConfig); err != nil {
		return nil, &rpcerrors.ServerAuthenticationPluginError{Name: cfg.AuthPluginName, Reason: err.Error()}
	}
	d.authPlugin = plugin

	return d, nil
}

// NewStandalone builds a Dispatcher around an existing registry without
// opening any transport connection. Handle works immediately; Run and
// Close are only meaningful once a consumer is attached, which callers
// that need the real broker get from Boot instead. This is what lets an
// in-process fake transport (internal/rmqtest) drive a Dispatcher's
// Handle directly in tests.
func NewStandalone(reg *registry.Registry, authPlugin auth.ServerPlugin) *Dispatcher {
	return &Dispatcher{
		registry:   reg,
		authPlugin: authPlugin,
		log:        logging.Get("rpcserver"),
		metrics:    logging.NewCallMetrics("rpcserver"),
	}
}

// Run drives the transport consumer until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.consumer.Run(ctx, d.Handle)
}

// Close releases the underlying transport consumer.
func (d *Dispatcher) Close() error {
	return d.consumer.Close()
}

// Handle implements the full per-delivery pipeline: decode, validate
// structure, authenticate, run, encode. Only a failure to decode the request
// or to encode the reply returns a Go error (signaling the consumer to
// reject without requeue and send no reply) — every other failure is captured in the reply envelope itself, with
// Result carrying the error-typed value and Error carrying its traceback, so
// a failed reply's error field is never non-null without an error-typed
// result alongside it. Exported so in-process fakes (see internal/rmqtest)
// can drive a Dispatcher without a real broker.
func (d *Dispatcher) Handle(body []byte) ([]byte, error) {
	var req codec.Request
	if err := d.codec.Decode(body, &req); err != nil {
		return nil, &rpcerrors.InvalidMessageError{Cause: err}
	}

	// A second decode into raw key/value pairs is what lets validateStructure
	// tell "key absent" from "key present with a null value" — a distinction
	// the typed struct above, decoded once, can't preserve.
	var raw map[string]json.RawMessage
	if err := d.codec.Decode(body, &raw); err != nil {
		return nil, &rpcerrors.InvalidMessageError{Cause: err}
	}

	start := time.Now()
	ctx, span := logging.StartCallSpan(context.Background(), "rpcserver", req.CallName, moduleLogValue(req.Module))
	result, callErr := d.dispatch(raw, req)

	reply := codec.Reply{Call: req}
	outcome := "ok"
	if callErr != nil {
		wire := rpcerrors.ToWire(callErr)
		reply.Result = wire
		reply.Error = &codec.ReplyError{Traceback: rpcerrors.Traceback(rpcerrors.WithStack(callErr))}
		outcome = wire.Kind
		span.RecordError(callErr)
		d.log.Error("RPC call failed", "call", req.CallName, "module", moduleLogValue(req.Module), "kind", wire.Kind, "message", wire.Message)
	} else {
		reply.Result = result
		d.log.Info("served RPC call", "call", req.CallName, "module", moduleLogValue(req.Module))
	}
	span.End()
	d.metrics.RecordCall(ctx, req.CallName, outcome, time.Since(start))

	out, err := d.codec.Encode(reply)
	if err != nil {
		return nil, &rpcerrors.InvalidMessageError{Cause: fmt.Errorf("failed to encode reply: %w", err)}
	}
	return out, nil
}

func moduleLogValue(module *string) string {
	if module == nil {
		return ""
	}
	return *module
}

// validateStructure implements validate_structure: the required-key and
// args-shape checks that run before validate_call, plus the
// credentials-absent check for when an auth plugin is configured.
func (d *Dispatcher) validateStructure(raw map[string]json.RawMessage, req codec.Request) error {
	var missing []string
	for _, key := range [...]string{"call_name", "args", "internal", "module"} {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &rpcerrors.CallFormatError{Reason: fmt.Sprintf("missing required field(s): %v", missing)}
	}

	if req.Args != nil {
		var argsRaw map[string]json.RawMessage
		if err := json.Unmarshal(raw["args"], &argsRaw); err != nil {
			return &rpcerrors.CallFormatError{Reason: "args must be an object when non-null"}
		}
		if _, ok := argsRaw["varargs"]; !ok {
			return &rpcerrors.CallFormatError{Reason: "args missing varargs key"}
		}
		if _, ok := argsRaw["kwargs"]; !ok {
			return &rpcerrors.CallFormatError{Reason: "args missing kwargs key"}
		}
	}

	if d.authPlugin != nil {
		_, present := raw["credentials"]
		if !present || req.Credentials == nil {
			return &rpcerrors.AuthenticationError{Reason: "server requires credentials and none were provided"}
		}
	}

	return nil
}

// dispatch runs validate_structure -> validate_call -> authenticate ->
// run_call for a request, returning the user-facing result or an
// RPCServerError that belongs in the reply envelope.
func (d *Dispatcher) dispatch(raw map[string]json.RawMessage, req codec.Request) (interface{}, error) {
	if err := d.validateStructure(raw, req); err != nil {
		return nil, err
	}

	if req.Internal {
		if !isBuiltin(req.CallName) {
			return nil, &rpcerrors.CallError{Call: req.CallName, Cause: fmt.Errorf("unknown internal call %q", req.CallName)}
		}
		return d.runBuiltin(req)
	}

	if req.CallName == "" {
		return nil, &rpcerrors.CallFormatError{Reason: "missing call name"}
	}
	if req.Module == nil || *req.Module == "" {
		return nil, &rpcerrors.CallFormatError{Reason: "missing module name"}
	}
	module := *req.Module

	if !d.registry.ModuleRuntimeLoaded(module) {
		return nil, &rpcerrors.ModuleError{Module: module}
	}

	descriptor, fn, ok := d.registry.Lookup(module, req.CallName)
	if !ok {
		return nil, &rpcerrors.CallError{Module: module, Call: req.CallName, Cause: fmt.Errorf("no such call %q in module %q", req.CallName, module)}
	}

	if d.authPlugin != nil {
		ok, reason := d.authPlugin.Authenticate(req.Credentials)
		if !ok {
			return nil, &rpcerrors.AuthenticationError{Reason: reason}
		}
	}

	return d.runCall(req, module, descriptor, fn)
}

func (d *Dispatcher) runCall(req codec.Request, module string, descriptor registry.ProcedureDescriptor, fn registry.CallableFunc) (interface{}, error) {
	var varargs []interface{}
	var kwargs map[string]interface{}
	if req.Args != nil {
		varargs = req.Args.Varargs
		kwargs = req.Args.Kwargs
	}

	merged := argmerge.Merge(descriptor.Args.Kw, registry.CallArgs{
		Varargs: varargs,
		Kwargs:  kwargs,
	})

	result, err := fn(merged)
	if err != nil {
		return nil, &rpcerrors.CallError{Module: module, Call: req.CallName, Cause: err}
	}
	return result, nil
}
