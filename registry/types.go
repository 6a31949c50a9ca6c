// Package registry captures callable procedure signatures into
// transport-neutral descriptors, groups them by module, and maintains a
// stable content hash over the registered set.
package registry

// KwParam is a single keyword parameter with a default value, used only
// when declaring a Signature at registration time. Order matters here (it
// drives the advertised stub signature) even though the stored descriptor
// keeps kw parameters in a map, where order doesn't.
type KwParam struct {
	Name    string
	Default interface{}
}

// ArgumentDescriptor is the wire-transmissible shape of a procedure's
// parameter list. A procedure that takes no parameters at all is the
// NoArgs sentinel rather than a descriptor with all-empty slots.
type ArgumentDescriptor struct {
	NoArgs      bool                   `json:"no_args,omitempty"`
	Positional  []string               `json:"positional"`
	Kw          map[string]interface{} `json:"kw"`
	VarargsName *string                `json:"varargs_name"`
	KwargsName  *string                `json:"kwargs_name"`
}

// ProcedureDescriptor is everything a client needs to render a local stub
// for a remote procedure.
type ProcedureDescriptor struct {
	Args   ArgumentDescriptor `json:"args"`
	Doc    string             `json:"doc"`
	Module string             `json:"module"`
}

// DefinitionTable maps short module name -> call name -> descriptor.
type DefinitionTable map[string]map[string]ProcedureDescriptor

// Signature is the explicit, caller-supplied description of a procedure's
// parameter list. Go functions carry neither default values nor
// *args/**kwargs, and reflection over a func value can't recover parameter
// names either, so a Signature is declared alongside the callable at
// registration time instead of inferred from it.
type Signature struct {
	Positional  []string
	Kw          []KwParam
	VarargsName string // "" means no catch-all positional parameter
	KwargsName  string // "" means no catch-all keyword parameter
}

// CallArgs is the reconstructed argument list a registered procedure is
// invoked with: positional/varargs values in order, followed by keyword
// values (including keyword defaults already overlaid by the dispatcher).
type CallArgs struct {
	Varargs []interface{}
	Kwargs  map[string]interface{}
}

// CallableFunc is the uniform shape every registered procedure has in Go,
// standing in for "reconstruct an argument list and invoke it dynamically".
type CallableFunc func(args CallArgs) (interface{}, error)
