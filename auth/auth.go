// Package auth defines the pluggable authentication interfaces the core
// dispatcher and client consume, plus the registries that wire a named
// plugin implementation in at startup.
package auth

import (
	"sync"

	"github.com/bashkirtsevich/rabbitrpc/rpcerrors"
)

// ServerPlugin authenticates incoming call credentials. Start is called
// once at boot with plugin-specific configuration; Authenticate is called
// once per request.
type ServerPlugin interface {
	Start(cfg map[string]interface{}) error
	Authenticate(credentials interface{}) (ok bool, reason string)
	About() map[string]interface{}
}

// ClientPlugin supplies the credentials attached to every outgoing call.
type ClientPlugin interface {
	ProvideCredentials() (interface{}, error)
}

var (
	serverMu       sync.Mutex
	serverPlugins  = map[string]func() ServerPlugin{}

	clientMu      sync.Mutex
	clientPlugins = map[string]func() ClientPlugin{}
)

// RegisterServerPlugin installs a named server plugin factory. Calling it
// twice for the same name, or with a nil factory, is a startup error.
func RegisterServerPlugin(name string, factory func() ServerPlugin) error {
	if factory == nil {
		return &rpcerrors.ServerAuthenticationPluginError{Name: name, Reason: "factory must not be nil"}
	}

	serverMu.Lock()
	defer serverMu.Unlock()

	if _, exists := serverPlugins[name]; exists {
		return &rpcerrors.ServerAuthenticationPluginError{Name: name, Reason: "already registered"}
	}
	serverPlugins[name] = factory
	return nil
}

// NewServerPlugin instantiates a registered server plugin by name.
func NewServerPlugin(name string) (ServerPlugin, error) {
	serverMu.Lock()
	factory, ok := serverPlugins[name]
	serverMu.Unlock()

	if !ok {
		return nil, &rpcerrors.ServerAuthenticationPluginError{Name: name, Reason: "not registered"}
	}
	return factory(), nil
}

// RegisterClientPlugin installs a named client plugin factory.
func RegisterClientPlugin(name string, factory func() ClientPlugin) error {
	if factory == nil {
		return &rpcerrors.ClientAuthenticationPluginError{Name: name, Reason: "factory must not be nil"}
	}

	clientMu.Lock()
	defer clientMu.Unlock()

	if _, exists := clientPlugins[name]; exists {
		return &rpcerrors.ClientAuthenticationPluginError{Name: name, Reason: "already registered"}
	}
	clientPlugins[name] = factory
	return nil
}

// NewClientPlugin instantiates a registered client plugin by name.
func NewClientPlugin(name string) (ClientPlugin, error) {
	clientMu.Lock()
	factory, ok := clientPlugins[name]
	clientMu.Unlock()

	if !ok {
		return nil, &rpcerrors.ClientAuthenticationPluginError{Name: name, Reason: "not registered"}
	}
	return factory(), nil
}
