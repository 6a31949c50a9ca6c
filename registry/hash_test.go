package registry

import "testing"

func noop(CallArgs) (interface{}, error) { return nil, nil }

// TestHash_StableRegardlessOfRegistrationOrder locks in I1/P2: two
// registries populated with the same procedures in different orders must
// converge on the same definitions hash.
func TestHash_StableRegardlessOfRegistrationOrder(t *testing.T) {
	forward := New()
	if err := forward.Register("math", "demo.math", "add", Signature{Positional: []string{"a", "b"}}, "adds two numbers", noop); err != nil {
		t.Fatal(err)
	}
	if err := forward.Register("math", "demo.math", "sub", Signature{Positional: []string{"a", "b"}}, "subtracts two numbers", noop); err != nil {
		t.Fatal(err)
	}
	if err := forward.Register("greeter", "demo.greeter", "hello", Signature{Kw: []KwParam{{Name: "name", Default: "world"}}}, "greets someone", noop); err != nil {
		t.Fatal(err)
	}

	backward := New()
	if err := backward.Register("greeter", "demo.greeter", "hello", Signature{Kw: []KwParam{{Name: "name", Default: "world"}}}, "greets someone", noop); err != nil {
		t.Fatal(err)
	}
	if err := backward.Register("math", "demo.math", "sub", Signature{Positional: []string{"a", "b"}}, "subtracts two numbers", noop); err != nil {
		t.Fatal(err)
	}
	if err := backward.Register("math", "demo.math", "add", Signature{Positional: []string{"a", "b"}}, "adds two numbers", noop); err != nil {
		t.Fatal(err)
	}

	if forward.Hash() != backward.Hash() {
		t.Fatalf("expected matching hashes regardless of registration order, got %d vs %d", forward.Hash(), backward.Hash())
	}
}

func TestHash_ChangesWhenDefinitionsChange(t *testing.T) {
	r := New()
	before := r.Hash()

	if err := r.Register("math", "demo.math", "add", Signature{Positional: []string{"a", "b"}}, "adds two numbers", noop); err != nil {
		t.Fatal(err)
	}

	if r.Hash() == before {
		t.Fatal("expected hash to change after registering a procedure")
	}
}

func TestRegister_RejectsReservedNames(t *testing.T) {
	r := New()
	if err := r.Register("math", "demo.math", CallProvideDefinitions, Signature{}, "", noop); err == nil {
		t.Fatal("expected an error when registering a reserved call name")
	}
}

func TestRegister_LastWriterWins(t *testing.T) {
	r := New()
	if err := r.Register("math", "demo.math", "add", Signature{Positional: []string{"a", "b"}}, "first", noop); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("math", "demo.math", "add", Signature{Positional: []string{"a", "b", "c"}}, "second", noop); err != nil {
		t.Fatal(err)
	}

	desc, _, ok := r.Lookup("math", "add")
	if !ok {
		t.Fatal("expected add to be registered")
	}
	if desc.Doc != "second" {
		t.Fatalf("expected last registration to win, got doc %q", desc.Doc)
	}
	if len(desc.Args.Positional) != 3 {
		t.Fatalf("expected 3 positional args from the second registration, got %d", len(desc.Args.Positional))
	}
}

func TestModuleRuntimeLoaded(t *testing.T) {
	r := New()
	if r.ModuleRuntimeLoaded("math") {
		t.Fatal("expected math to not be loaded yet")
	}
	if err := r.Register("math", "demo.math", "add", Signature{}, "", noop); err != nil {
		t.Fatal(err)
	}
	if !r.ModuleRuntimeLoaded("math") {
		t.Fatal("expected math to be loaded after registration")
	}
}

func TestSnapshot_IsIndependentOfLaterMutation(t *testing.T) {
	r := New()
	if err := r.Register("math", "demo.math", "add", Signature{}, "", noop); err != nil {
		t.Fatal(err)
	}

	snap, hash := r.Snapshot()

	if err := r.Register("math", "demo.math", "sub", Signature{}, "", noop); err != nil {
		t.Fatal(err)
	}

	if _, ok := snap["math"]["sub"]; ok {
		t.Fatal("expected snapshot to not see procedures registered after it was taken")
	}
	if hash == r.Hash() {
		t.Fatal("expected hash to have advanced after the later registration")
	}
}
