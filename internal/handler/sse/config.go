package sse

import "time"

// Config holds the tunables for one SSE connection.
type Config struct {
	// KeepAliveInterval is how often keep-alive comments are written
	// while the provider is quiet.
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default SSE configuration. 10 seconds stays
// under the idle timeout of most proxies.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
	}
}
