package rpcserver

import "github.com/bashkirtsevich/rabbitrpc/registry"

// DefaultRegistry is the process-global registry used by MustRegister.
// Programs that want isolated registries (tests, multiple dispatchers in
// one process) should build their own registry.Registry and call
// Register directly instead.
var DefaultRegistry = registry.New()

// MustRegister registers a procedure against DefaultRegistry and panics on
// failure. Intended for package init() blocks, where a misregistration is
// a programmer error that should fail the process at startup rather than
// surface as a runtime error deep in request handling.
func MustRegister(shortModule, fullModule, callName string, sig registry.Signature, doc string, fn registry.CallableFunc) {
	if err := DefaultRegistry.Register(shortModule, fullModule, callName, sig, doc, fn); err != nil {
		panic(err)
	}
}
