// Package api provides the HTTP API server for tracking messages and
// inspecting conversation topic state.
package api

import (
	"fmt"
	"net/http"
)

// Config is the API server configuration.
type Config struct {
	// Host is the interface to bind (e.g. "localhost").
	Host string

	// Port is the TCP port to listen on.
	Port uint

	// MCPHandler, when non-nil, is mounted at /mcp.
	MCPHandler http.Handler
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
