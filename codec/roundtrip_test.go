package codec_test

import (
	"encoding/json"
	"testing"

	"github.com/bashkirtsevich/rabbitrpc/codec"
)

func strPtr(s string) *string { return &s }

func TestJSON_RequestRoundTrip(t *testing.T) {
	c := codec.JSON{}

	req := codec.Request{
		CallName: "add",
		Module:   strPtr("math"),
		Internal: false,
		Args: &codec.RequestArgs{
			Varargs: []interface{}{float64(1), float64(2)},
			Kwargs:  map[string]interface{}{"verbose": true},
		},
	}

	data, err := c.Encode(req)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var decoded codec.Request
	if err := c.Decode(data, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Module == nil || *decoded.Module != "math" || decoded.CallName != req.CallName {
		t.Fatalf("round trip mismatch: got %+v", decoded)
	}
	if decoded.Args == nil || len(decoded.Args.Varargs) != 2 || decoded.Args.Varargs[0] != float64(1) {
		t.Fatalf("unexpected args after round trip: %+v", decoded.Args)
	}
	if decoded.Args.Kwargs["verbose"] != true {
		t.Fatalf("unexpected kwargs after round trip: %v", decoded.Args.Kwargs)
	}
}

func TestJSON_RequestRoundTrip_RequiredKeysAlwaysPresent(t *testing.T) {
	c := codec.JSON{}

	req := codec.Request{CallName: "current_hash", Internal: true}

	data, err := c.Encode(req)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{"call_name", "args", "internal", "module"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected key %q to be present even when unset, got %s", key, data)
		}
	}
}

func TestJSON_ReplyRoundTrip_Success(t *testing.T) {
	c := codec.JSON{}

	reply := codec.Reply{Call: codec.Request{CallName: "add", Module: strPtr("math")}, Result: float64(3)}

	data, err := c.Encode(reply)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var decoded codec.Reply
	if err := c.Decode(data, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Result != float64(3) {
		t.Fatalf("expected result 3, got %v", decoded.Result)
	}
	if decoded.Error != nil {
		t.Fatalf("expected no error, got %+v", decoded.Error)
	}
}

func TestJSON_ReplyRoundTrip_Error(t *testing.T) {
	c := codec.JSON{}

	reply := codec.Reply{
		Call:   codec.Request{CallName: "add", Module: strPtr("math")},
		Result: codec.WireError{Kind: "CallError", Message: "boom"},
		Error:  &codec.ReplyError{Traceback: "trace..."},
	}

	data, err := c.Encode(reply)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var decoded codec.Reply
	if err := c.Decode(data, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Error == nil || decoded.Error.Traceback != "trace..." {
		t.Fatalf("unexpected decoded error: %+v", decoded.Error)
	}

	resultBytes, err := json.Marshal(decoded.Result)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var wire codec.WireError
	if err := json.Unmarshal(resultBytes, &wire); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if wire.Kind != "CallError" || wire.Message != "boom" {
		t.Fatalf("unexpected decoded result: %+v", wire)
	}
}

func TestJSON_DefinitionTableEncodingIsDeterministic(t *testing.T) {
	c := codec.JSON{}

	table := map[string]map[string]interface{}{
		"zeta":  {"b": 1, "a": 2},
		"alpha": {"c": 3},
	}

	first, err := c.Encode(table)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, err := c.Encode(table)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if string(first) != string(second) {
		t.Fatal("expected repeated encodes of the same map to be byte-identical")
	}
}
