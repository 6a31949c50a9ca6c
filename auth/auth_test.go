package auth_test

import (
	"testing"

	"github.com/bashkirtsevich/rabbitrpc/auth"
)

type noopServerPlugin struct{}

func (noopServerPlugin) Start(map[string]interface{}) error                { return nil }
func (noopServerPlugin) Authenticate(interface{}) (bool, string)           { return true, "" }
func (noopServerPlugin) About() map[string]interface{}                     { return nil }

func TestRegisterServerPlugin_RejectsDuplicateName(t *testing.T) {
	name := "test-duplicate-server-plugin"

	if err := auth.RegisterServerPlugin(name, func() auth.ServerPlugin { return noopServerPlugin{} }); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}

	err := auth.RegisterServerPlugin(name, func() auth.ServerPlugin { return noopServerPlugin{} })
	if err == nil {
		t.Fatal("expected an error registering a duplicate plugin name")
	}
}

func TestRegisterServerPlugin_RejectsNilFactory(t *testing.T) {
	if err := auth.RegisterServerPlugin("test-nil-factory", nil); err == nil {
		t.Fatal("expected an error for a nil factory")
	}
}

func TestNewServerPlugin_UnknownNameErrors(t *testing.T) {
	if _, err := auth.NewServerPlugin("does-not-exist"); err == nil {
		t.Fatal("expected an error looking up an unregistered plugin")
	}
}
