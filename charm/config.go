// ABOUTME: Connection settings for the Charm KV backend
// ABOUTME: Values come from the partneros YAML config; defaults point at the 2389 server

package charm

import (
	"os"
	"time"

	"github.com/charmbracelet/charm/kv"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName is the Charm KV database name.
	AppName = "partneros"
)

// Config holds charm connection settings.
type Config struct {
	// Host is the charm server hostname.
	Host string `yaml:"host"`

	// AutoSync pushes to the server after every write.
	AutoSync bool `yaml:"auto_sync"`

	// StaleThreshold is how old local data may get before a sync is forced.
	StaleThreshold time.Duration `yaml:"stale_threshold"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

// withDefaults fills zero fields and exports CHARM_HOST for the kv library.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.Host == "" {
		out.Host = DefaultCharmHost
	}
	if out.StaleThreshold == 0 {
		out.StaleThreshold = kv.DefaultStaleThreshold
	}
	_ = os.Setenv("CHARM_HOST", out.Host)
	return &out
}
