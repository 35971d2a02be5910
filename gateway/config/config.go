// Package config loads the gateway's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RouteConfig declares one proxied surface. Scopes are JWT scope strings
// required when auth is enabled.
type RouteConfig struct {
	Name         string   `yaml:"name"`
	Prefix       string   `yaml:"prefix"`
	RequireAuth  bool     `yaml:"requireAuth"`
	Scopes       []string `yaml:"scopes"`
	RateLimitKey string   `yaml:"rateLimitKey"`
}

type RateLimitConfig struct {
	ID                string  `yaml:"id"`
	RequestsPerMinute float64 `yaml:"requestsPerMinute"`
	Burst             int     `yaml:"burst"`
}

type ObservabilityConfig struct {
	ServiceName   string `yaml:"serviceName"`
	Metrics       bool   `yaml:"metrics"`
	LogRequests   bool   `yaml:"logRequests"`
	MetricsPrefix string `yaml:"metricsPrefix"`
}

type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	HMACSecret string        `yaml:"hmacSecret"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	ScopeClaim string        `yaml:"scopeClaim"`
	ClockSkew  time.Duration `yaml:"clockSkew"`
}

type Config struct {
	ListenAddress string              `yaml:"listen"`
	NodeEndpoint  string              `yaml:"nodeEndpoint"`
	ReadTimeout   time.Duration       `yaml:"readTimeout"`
	WriteTimeout  time.Duration       `yaml:"writeTimeout"`
	IdleTimeout   time.Duration       `yaml:"idleTimeout"`
	Routes        []RouteConfig       `yaml:"routes"`
	RateLimits    []RateLimitConfig   `yaml:"rateLimits"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
}

// Default returns the configuration used when no file is supplied: the three
// standard surfaces in front of a local node.
func Default() *Config {
	return &Config{
		ListenAddress: ":8545",
		NodeEndpoint:  "http://127.0.0.1:8080",
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   60 * time.Second,
		Routes: []RouteConfig{
			{Name: "admin", Prefix: "/v1/admin", RequireAuth: true, Scopes: []string{"relief.admin"}, RateLimitKey: "admin"},
			{Name: "spend", Prefix: "/v1/spend", RequireAuth: true, Scopes: []string{"relief.spend"}, RateLimitKey: "spend"},
			{Name: "query", Prefix: "/v1/query", RequireAuth: false, RateLimitKey: "query"},
		},
		RateLimits: []RateLimitConfig{
			{ID: "admin", RequestsPerMinute: 120, Burst: 20},
			{ID: "spend", RequestsPerMinute: 600, Burst: 60},
			{ID: "query", RequestsPerMinute: 1200, Burst: 120},
		},
		Observability: ObservabilityConfig{ServiceName: "relief-gateway", Metrics: true},
	}
}

// Load reads a config file, falling back to defaults for missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gateway config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("gateway config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errors.New("gateway config: listen address required")
	}
	if _, err := url.Parse(c.NodeEndpoint); err != nil || strings.TrimSpace(c.NodeEndpoint) == "" {
		return fmt.Errorf("gateway config: invalid node endpoint %q", c.NodeEndpoint)
	}
	seen := make(map[string]struct{}, len(c.Routes))
	for _, route := range c.Routes {
		if !strings.HasPrefix(route.Prefix, "/") {
			return fmt.Errorf("gateway config: route %q prefix must start with /", route.Name)
		}
		if _, dup := seen[route.Prefix]; dup {
			return fmt.Errorf("gateway config: duplicate route prefix %q", route.Prefix)
		}
		seen[route.Prefix] = struct{}{}
	}
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.HMACSecret) == "" {
		return errors.New("gateway config: auth enabled without hmacSecret")
	}
	return nil
}
