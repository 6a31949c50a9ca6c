// Package codec wires procedure requests, replies, and definition tables
// to the bytes that cross the wire. It knows nothing about registry or
// rpcerrors types directly — it encodes and decodes whatever is handed to
// it, keeping the dependency graph one-directional.
package codec

import "encoding/json"

// JSON is the wire codec for the whole RPC framework: request envelopes,
// reply envelopes, and definition tables all travel as JSON.
type JSON struct{}

// Encode marshals v to its canonical JSON form. Go's encoding/json sorts
// map keys on marshal, so any map-keyed value (like a definition table)
// gets a deterministic encoding for free.
func (JSON) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals data into v.
func (JSON) Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// RequestArgs is the nested { varargs, kwargs } object a request carries
// when the call takes any arguments at all; a no-argument call carries a
// null Args instead.
type RequestArgs struct {
	Varargs []interface{}          `json:"varargs"`
	Kwargs  map[string]interface{} `json:"kwargs"`
}

// Request is the wire shape of an RPC call. Field names and nesting are
// part of the contract — callers on both ends decode the same shape.
type Request struct {
	CallName    string       `json:"call_name"`
	Module      *string      `json:"module"`
	Internal    bool         `json:"internal"`
	Args        *RequestArgs `json:"args"`
	Credentials interface{}  `json:"credentials"`
}

// Reply is the wire shape of an RPC response. Call echoes the request
// envelope verbatim. On success Result carries the procedure's return
// value and Error is null. On failure Result carries the error-typed
// value (a WireError) and Error carries the traceback, per the invariant
// that a non-null error field always accompanies an error-typed result.
type Reply struct {
	Call   Request     `json:"call"`
	Result interface{} `json:"result"`
	Error  *ReplyError `json:"error"`
}

// ReplyError is the non-null marker on a failed reply. The error kind and
// message travel in Reply.Result as a WireError; this carries only the
// formatted traceback, matching the source's `error: { traceback }` shape.
type ReplyError struct {
	Traceback string `json:"traceback"`
}

// WireError is the tagged, wire-transmissible shape of a server-side
// failure. It is intentionally a plain struct, not a Go error — errors
// don't serialize, and the receiving side reconstructs a local error from
// this. It travels as a Reply's Result when a call fails.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
