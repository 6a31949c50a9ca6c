package statictoken_test

import (
	"testing"

	"github.com/bashkirtsevich/rabbitrpc/auth/statictoken"
)

func TestServer_AuthenticatesMatchingToken(t *testing.T) {
	server := statictoken.NewServer()
	if err := server.Start(map[string]interface{}{"token": "s3cret"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ok, reason := server.Authenticate("s3cret")
	if !ok {
		t.Fatalf("expected matching token to authenticate, reason: %s", reason)
	}
}

func TestServer_RejectsWrongToken(t *testing.T) {
	server := statictoken.NewServer()
	if err := server.Start(map[string]interface{}{"token": "s3cret"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ok, reason := server.Authenticate("wrong")
	if ok {
		t.Fatal("expected mismatched token to be rejected")
	}
	if reason == "" {
		t.Fatal("expected a non-empty rejection reason")
	}
}

func TestServer_StartRequiresToken(t *testing.T) {
	server := statictoken.NewServer()
	if err := server.Start(map[string]interface{}{}); err == nil {
		t.Fatal("expected Start to fail without a token")
	}
}

func TestClient_ProvidesConfiguredToken(t *testing.T) {
	client := statictoken.NewClient("s3cret")

	creds, err := client.ProvideCredentials()
	if err != nil {
		t.Fatalf("ProvideCredentials failed: %v", err)
	}
	if creds != "s3cret" {
		t.Fatalf("expected token s3cret, got %v", creds)
	}
}
