// Package rpcerrors defines the error hierarchy shared by server and
// client, and the tagged wire form that carries a server-side failure
// across the transport to be reconstructed on the other end.
package rpcerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies an error's place in the hierarchy, both for local
// errors.As-style dispatch and as the wire "kind" tag.
type Kind string

const (
	KindCallError                     Kind = "CallError"
	KindCallFormatError               Kind = "CallFormatError"
	KindModuleError                   Kind = "ModuleError"
	KindAuthenticationError           Kind = "AuthenticationError"
	KindConnectionError               Kind = "ConnectionError"
	KindReplyTimeoutError             Kind = "ReplyTimeoutError"
	KindInvalidMessageError           Kind = "InvalidMessageError"
	KindServerAuthPluginError         Kind = "ServerAuthenticationPluginError"
	KindClientAuthPluginError         Kind = "ClientAuthenticationPluginError"
)

// RPCServerError is satisfied by every error the dispatcher can produce
// while handling a single call.
type RPCServerError interface {
	error
	Kind() Kind
}

// RPCClientError is satisfied by the client-side error kinds in this
// package (ConnectionError, ReplyTimeoutError), as opposed to an error
// reconstructed from a server reply.
type RPCClientError interface {
	error
	Kind() Kind
}

// CallError means the named call does not exist (in its module, or among
// the internal calls), or the registered callable itself returned an
// error — the RPC equivalent of the target function raising.
type CallError struct {
	Module  string
	Call    string
	Cause   error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s.%s failed: %v", e.Module, e.Call, e.Cause)
}
func (e *CallError) Unwrap() error { return e.Cause }
func (e *CallError) Kind() Kind    { return KindCallError }

// CallFormatError means the request envelope itself was malformed: missing
// required keys, an empty module/call name, or an args object without
// both varargs and kwargs keys.
type CallFormatError struct {
	Reason string
}

func (e *CallFormatError) Error() string { return "malformed call: " + e.Reason }
func (e *CallFormatError) Kind() Kind    { return KindCallFormatError }

// ModuleError means the named module is not loaded in this server process.
type ModuleError struct {
	Module string
}

func (e *ModuleError) Error() string { return fmt.Sprintf("module %q is not loaded", e.Module) }
func (e *ModuleError) Kind() Kind    { return KindModuleError }

// AuthenticationError means the configured plugin rejected the supplied
// credentials, or none were supplied when a plugin is configured.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string { return "authentication failed: " + e.Reason }
func (e *AuthenticationError) Kind() Kind    { return KindAuthenticationError }

// ConnectionError wraps a broker connectivity failure. rpcserver.Boot
// returns it when dialing the broker or setting up the request queue fails.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connection error: %v", e.Cause) }
func (e *ConnectionError) Unwrap() error { return e.Cause }
func (e *ConnectionError) Kind() Kind    { return KindConnectionError }

// ReplyTimeoutError means a Send never got a matching reply before its
// deadline.
type ReplyTimeoutError struct {
	CorrelationID string
}

func (e *ReplyTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for reply to correlation id %s", e.CorrelationID)
}
func (e *ReplyTimeoutError) Kind() Kind { return KindReplyTimeoutError }

// InvalidMessageError means a delivery's body could not even be decoded.
type InvalidMessageError struct {
	Cause error
}

func (e *InvalidMessageError) Error() string { return fmt.Sprintf("invalid message: %v", e.Cause) }
func (e *InvalidMessageError) Unwrap() error { return e.Cause }
func (e *InvalidMessageError) Kind() Kind    { return KindInvalidMessageError }

// ServerAuthenticationPluginError means plugin registration itself failed
// (name already registered, nil factory) on the server side.
type ServerAuthenticationPluginError struct {
	Name   string
	Reason string
}

func (e *ServerAuthenticationPluginError) Error() string {
	return fmt.Sprintf("server auth plugin %q: %s", e.Name, e.Reason)
}
func (e *ServerAuthenticationPluginError) Kind() Kind { return KindServerAuthPluginError }

// ClientAuthenticationPluginError is the client-side analogue.
type ClientAuthenticationPluginError struct {
	Name   string
	Reason string
}

func (e *ClientAuthenticationPluginError) Error() string {
	return fmt.Sprintf("client auth plugin %q: %s", e.Name, e.Reason)
}
func (e *ClientAuthenticationPluginError) Kind() Kind { return KindClientAuthPluginError }

// WithStack annotates err with a stack trace captured at the point of the
// WithStack call, so Traceback can render something useful regardless of
// where the error originated.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}
