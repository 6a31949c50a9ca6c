// Package argmerge overlays a request's keyword arguments onto a
// procedure's registered keyword defaults — the one piece of run_call's
// argument reconstruction worth testing in isolation, since it carries a
// deliberate behavioral fix over the system it's modeled on.
package argmerge

import "github.com/bashkirtsevich/rabbitrpc/registry"

// Merge overlays incoming keyword arguments onto a procedure's registered
// defaults. A key present in incoming with a JSON null value is treated as
// "explicitly omitted" and falls back to its default; any other value,
// including an empty string, zero, false, or an empty list, overrides the
// default as given. Positional/varargs values pass through unchanged —
// only keyword defaults are ever merged.
func Merge(defaults map[string]interface{}, incoming registry.CallArgs) registry.CallArgs {
	merged := make(map[string]interface{}, len(defaults)+len(incoming.Kwargs))

	for name, def := range defaults {
		merged[name] = def
	}

	for name, value := range incoming.Kwargs {
		if value == nil {
			continue
		}
		merged[name] = value
	}

	return registry.CallArgs{
		Varargs: incoming.Varargs,
		Kwargs:  merged,
	}
}
