package rpcerrors

import (
	"fmt"
	"strings"

	"github.com/bashkirtsevich/rabbitrpc/codec"
)

// ToWire builds the tagged, serializable form of a server-side error —
// the value a failed call's reply carries as its Result.
func ToWire(err error) codec.WireError {
	if err == nil {
		return codec.WireError{}
	}

	kind := "CallError"
	if rpcErr, ok := err.(interface{ Kind() Kind }); ok {
		kind = string(rpcErr.Kind())
	}

	return codec.WireError{Kind: kind, Message: err.Error()}
}

// Traceback renders err's captured stack trace, if it has one. Errors
// passed through WithStack (or produced by pkg/errors directly) satisfy
// fmt.Formatter, whose "%+v" verb renders the trace; anything else yields
// an empty string rather than a faked trace.
func Traceback(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := err.(fmt.Formatter); ok {
		return fmt.Sprintf("%+v", err)
	}
	return ""
}

// FromWire reconstructs a local error from a Wire struct and its
// accompanying traceback, preserving Kind and the server's message text so
// the client sees the same classification the server did. CallFormatError
// and AuthenticationError are rebuilt as their typed values and do not
// carry the traceback; for every other kind the traceback, if present, is
// appended to the message rather than dropped, since the client has no
// structured slot for it beyond logging.
func FromWire(w codec.WireError, traceback string) error {
	switch Kind(w.Kind) {
	case KindCallError:
		return &wireError{kind: KindCallError, message: w.Message, traceback: traceback}
	case KindCallFormatError:
		return &CallFormatError{Reason: strings.TrimPrefix(w.Message, "malformed call: ")}
	case KindModuleError:
		return &wireError{kind: KindModuleError, message: w.Message, traceback: traceback}
	case KindAuthenticationError:
		return &AuthenticationError{Reason: strings.TrimPrefix(w.Message, "authentication failed: ")}
	default:
		return &wireError{kind: Kind(w.Kind), message: w.Message, traceback: traceback}
	}
}

// wireError is the generic reconstruction used when the specific Go type
// doesn't matter to the caller beyond Kind()/Error() — most client call
// sites only branch on Kind().
type wireError struct {
	kind      Kind
	message   string
	traceback string
}

func (e *wireError) Error() string {
	if e.traceback == "" {
		return e.message
	}
	return e.message + "\n" + e.traceback
}
func (e *wireError) Kind() Kind { return e.kind }
