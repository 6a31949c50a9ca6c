package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Reserved internal call names. Clients must never be able to shadow these
// with a user procedure, in any module.
const (
	CallProvideDefinitions        = "provide_definitions"
	CallCurrentHash               = "current_hash"
	CallAuthenticationProviderInfo = "authentication_provider_info"
)

func isReservedName(name string) bool {
	return IsReservedCall(name)
}

// IsReservedCall reports whether name is one of the built-in internal calls
// that bypass the module map entirely. Exported so callers on the client
// side can decide whether a request envelope should set internal: true
// without duplicating this list.
func IsReservedCall(name string) bool {
	switch name {
	case CallProvideDefinitions, CallCurrentHash, CallAuthenticationProviderInfo:
		return true
	default:
		return false
	}
}

type entry struct {
	descriptor ProcedureDescriptor
	fn         CallableFunc
}

// Registry owns the server-side definition table and the short->full
// module map as sibling fields, protected by one lock. There is no
// host-runtime module table to lean on in Go, so "a module is loaded" is
// tracked explicitly: true from the first successful Register under that
// short name onward (nothing removes a module once registered).
type Registry struct {
	mu sync.RWMutex

	definitions DefinitionTable
	moduleMap   map[string]string
	procedures  map[string]map[string]entry
	hash        uint64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		definitions: DefinitionTable{},
		moduleMap:   map[string]string{},
		procedures:  map[string]map[string]entry{},
	}
}

// Register installs a procedure under (shortModule, callName), replacing
// any prior descriptor for the same pair (last-writer-wins), updates the
// module map, and recomputes the definitions hash. Safe to call before the
// dispatcher starts serving, and safe to call concurrently with Lookup /
// Snapshot while it's already serving.
func (r *Registry) Register(shortModule, fullModule, callName string, sig Signature, doc string, fn CallableFunc) error {
	if isReservedName(callName) {
		return fmt.Errorf("registry: %q is a reserved internal call name", callName)
	}
	if shortModule == "" {
		return fmt.Errorf("registry: module name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("registry: callable for %s.%s must not be nil", shortModule, callName)
	}

	descriptor := ProcedureDescriptor{
		Args:   Capture(sig),
		Doc:    doc,
		Module: fullModule,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.definitions[shortModule]; !ok {
		r.definitions[shortModule] = map[string]ProcedureDescriptor{}
	}
	r.definitions[shortModule][callName] = descriptor

	if _, ok := r.procedures[shortModule]; !ok {
		r.procedures[shortModule] = map[string]entry{}
	}
	r.procedures[shortModule][callName] = entry{descriptor: descriptor, fn: fn}

	r.moduleMap[shortModule] = fullModule

	return r.recomputeHashLocked()
}

// Lookup resolves (shortModule, callName) to its descriptor and callable.
func (r *Registry) Lookup(shortModule, callName string) (ProcedureDescriptor, CallableFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	module, ok := r.procedures[shortModule]
	if !ok {
		return ProcedureDescriptor{}, nil, false
	}

	e, ok := module[callName]
	if !ok {
		return ProcedureDescriptor{}, nil, false
	}

	return e.descriptor, e.fn, true
}

// ModuleInDefinitions reports whether shortModule has at least one
// registered call.
func (r *Registry) ModuleInDefinitions(shortModule string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.definitions[shortModule]
	return ok
}

// ModuleRuntimeLoaded is the Go stand-in for "full module is loaded in the
// process" — Go has no runtime module table, so a module counts as loaded
// once at least one procedure has been registered under it.
func (r *Registry) ModuleRuntimeLoaded(shortModule string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.procedures[shortModule]
	return ok
}

// FullModule resolves a short module name via the module map.
func (r *Registry) FullModule(shortModule string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	full, ok := r.moduleMap[shortModule]
	return full, ok
}

// Snapshot returns a deep-enough copy of the current definition table and
// its hash, suitable for handing to provide_definitions.
func (r *Registry) Snapshot() (DefinitionTable, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(DefinitionTable, len(r.definitions))
	for module, calls := range r.definitions {
		copied := make(map[string]ProcedureDescriptor, len(calls))
		for name, desc := range calls {
			copied[name] = desc
		}
		out[module] = copied
	}

	return out, r.hash
}

// Hash returns the current definitions hash without copying the table.
func (r *Registry) Hash() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hash
}

// recomputeHashLocked must be called with r.mu held for writing.
func (r *Registry) recomputeHashLocked() error {
	canonical, err := json.Marshal(r.definitions)
	if err != nil {
		return fmt.Errorf("registry: failed to canonicalize definitions: %w", err)
	}
	r.hash = xxhash.Sum64(canonical)
	return nil
}
