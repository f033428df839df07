package config

import (
	"strings"
	"time"
)

// BackendConfig holds connection settings for one remote ML backend
type BackendConfig struct {
	BaseURL        string        `yaml:"baseUrl"`
	APIKey         string        `yaml:"-"` // never read from file, env only
	Enabled        bool          `yaml:"enabled"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	MaxInFlight    int           `yaml:"maxInFlight"`
	HealthPath     string        `yaml:"healthPath"`
}

// BackendsConfig groups the four backends
type BackendsConfig struct {
	Prediction BackendConfig `yaml:"prediction"`
	Clustering BackendConfig `yaml:"clustering"`
	Chat       BackendConfig `yaml:"chat"`
	Synthetic  BackendConfig `yaml:"synthetic"`
}

func defaultBackend() BackendConfig {
	return BackendConfig{
		Enabled:        true,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    30 * time.Second,
		MaxInFlight:    16,
		HealthPath:     "/health",
	}
}

// IsEnabled returns true if the backend is switched on and has somewhere to call
func (c BackendConfig) IsEnabled() bool {
	return c.Enabled && c.BaseURL != ""
}

// Endpoint returns the full URL for a backend path
func (c BackendConfig) Endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// applyBackendEnv overlays PREFIX_URL, PREFIX_API_KEY, PREFIX_ENABLED, PREFIX_CONNECT_TIMEOUT,
// PREFIX_READ_TIMEOUT and PREFIX_MAX_IN_FLIGHT onto c
func applyBackendEnv(c *BackendConfig, prefix string) {
	c.BaseURL = getEnv(prefix+"_URL", c.BaseURL)
	c.APIKey = getEnv(prefix+"_API_KEY", c.APIKey)
	c.Enabled = getEnvBool(prefix+"_ENABLED", c.Enabled)
	c.ConnectTimeout = getEnvDuration(prefix+"_CONNECT_TIMEOUT", c.ConnectTimeout)
	c.ReadTimeout = getEnvDuration(prefix+"_READ_TIMEOUT", c.ReadTimeout)
	c.MaxInFlight = getEnvInt(prefix+"_MAX_IN_FLIGHT", c.MaxInFlight)
	c.HealthPath = getEnv(prefix+"_HEALTH_PATH", c.HealthPath)
}
