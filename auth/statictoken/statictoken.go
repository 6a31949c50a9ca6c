// Package statictoken is a reference auth plugin: the server holds one
// shared-secret token and accepts any credential equal to it, the client
// always presents the token it was configured with.
package statictoken

import (
	"fmt"

	"github.com/bashkirtsevich/rabbitrpc/auth"
)

const PluginName = "statictoken"

// Server is the server-side half. Start reads the "token" config key; a
// missing or empty token is a startup error, not a silent always-reject.
type Server struct {
	token string
}

func NewServer() auth.ServerPlugin { return &Server{} }

func (s *Server) Start(cfg map[string]interface{}) error {
	token, _ := cfg["token"].(string)
	if token == "" {
		return fmt.Errorf("statictoken: config key %q is required", "token")
	}
	s.token = token
	return nil
}

func (s *Server) Authenticate(credentials interface{}) (bool, string) {
	presented, ok := credentials.(string)
	if !ok {
		return false, "credentials must be a string token"
	}
	if presented != s.token {
		return false, "token mismatch"
	}
	return true, ""
}

func (s *Server) About() map[string]interface{} {
	return map[string]interface{}{"name": PluginName, "scheme": "shared-secret"}
}

// Client is the client-side half: it always presents the same configured
// token.
type Client struct {
	Token string
}

func NewClient(token string) auth.ClientPlugin {
	return &Client{Token: token}
}

func (c *Client) ProvideCredentials() (interface{}, error) {
	return c.Token, nil
}

// init registers the server plugin by name for config-driven boot
// (auth.NewServerPlugin(statictoken.PluginName) + Start(cfg)). The client
// side needs a token value at construction time, which the no-args
// registry factory can't supply, so callers wire it in directly with
// NewClient(token) rather than going through auth.NewClientPlugin.
func init() {
	_ = auth.RegisterServerPlugin(PluginName, NewServer)
}
