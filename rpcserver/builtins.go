package rpcserver

import (
	"github.com/bashkirtsevich/rabbitrpc/codec"
	"github.com/bashkirtsevich/rabbitrpc/registry"
)

func isBuiltin(call string) bool {
	return registry.IsReservedCall(call)
}

// runBuiltin resolves one of the three reserved internal calls directly,
// bypassing the module map entirely (I4) — these exist independently of
// whatever user modules happen to be registered.
func (d *Dispatcher) runBuiltin(req codec.Request) (interface{}, error) {
	switch req.CallName {
	case registry.CallProvideDefinitions:
		table, hash := d.registry.Snapshot()
		return map[string]interface{}{
			"definitions": table,
			"hash":        hash,
		}, nil

	case registry.CallCurrentHash:
		return d.registry.Hash(), nil

	case registry.CallAuthenticationProviderInfo:
		if d.authPlugin == nil {
			return map[string]interface{}{"enabled": false}, nil
		}
		info := d.authPlugin.About()
		if info == nil {
			info = map[string]interface{}{}
		}
		info["enabled"] = true
		return info, nil
	}

	panic("unreachable: runBuiltin called with non-builtin call " + req.CallName)
}
