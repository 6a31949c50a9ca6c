package registry

import "testing"

func TestCapture_NoArgs(t *testing.T) {
	desc := Capture(Signature{})

	if !desc.NoArgs {
		t.Fatal("expected NoArgs to be set for an empty signature")
	}
	if desc.Positional != nil || desc.Kw != nil || desc.VarargsName != nil || desc.KwargsName != nil {
		t.Fatal("expected all other slots to be empty when NoArgs is set")
	}
}

func TestCapture_Positional(t *testing.T) {
	desc := Capture(Signature{Positional: []string{"a", "b"}})

	if desc.NoArgs {
		t.Fatal("did not expect NoArgs")
	}
	if len(desc.Positional) != 2 || desc.Positional[0] != "a" || desc.Positional[1] != "b" {
		t.Fatalf("unexpected positional slots: %v", desc.Positional)
	}
}

func TestCapture_KeywordDefaults(t *testing.T) {
	desc := Capture(Signature{
		Kw: []KwParam{
			{Name: "retries", Default: float64(3)},
			{Name: "verbose", Default: false},
		},
	})

	if len(desc.Kw) != 2 {
		t.Fatalf("expected 2 kw entries, got %d", len(desc.Kw))
	}
	if desc.Kw["retries"] != float64(3) {
		t.Errorf("unexpected default for retries: %v", desc.Kw["retries"])
	}
	if desc.Kw["verbose"] != false {
		t.Errorf("unexpected default for verbose: %v", desc.Kw["verbose"])
	}
}

func TestCapture_VarargsAndKwargs(t *testing.T) {
	desc := Capture(Signature{VarargsName: "args", KwargsName: "opts"})

	if desc.VarargsName == nil || *desc.VarargsName != "args" {
		t.Fatalf("expected varargs name 'args', got %v", desc.VarargsName)
	}
	if desc.KwargsName == nil || *desc.KwargsName != "opts" {
		t.Fatalf("expected kwargs name 'opts', got %v", desc.KwargsName)
	}
}

func TestCapture_MutatingCallerSliceDoesNotAffectDescriptor(t *testing.T) {
	positional := []string{"a"}
	desc := Capture(Signature{Positional: positional})

	positional[0] = "mutated"

	if desc.Positional[0] != "a" {
		t.Fatal("expected Capture to copy the positional slice")
	}
}
