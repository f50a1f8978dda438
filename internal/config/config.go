// Package config loads, validates, and watches the gateway
// configuration.
package config

import (
	"time"

	"github.com/owasp-blt/blt-gateway/internal/cache"
	"github.com/owasp-blt/blt-gateway/internal/email"
	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/upstream"
)

// GatewayConfig is the root configuration document.
type GatewayConfig struct {
	Server    ServerConfig            `yaml:"server"`
	Admin     AdminConfig             `yaml:"admin"`
	Upstream  upstream.Config         `yaml:"upstream"`
	Cache     cache.Config            `yaml:"cache"`
	Auth      AuthConfig              `yaml:"auth"`
	Email     email.Config            `yaml:"email"`
	CORS      CORSConfig              `yaml:"cors"`
	RateLimit RateLimitConfig         `yaml:"rateLimit"`
	Logging   observability.LogConfig `yaml:"logging"`
}

// ServerConfig holds the public listener settings.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// AdminConfig holds the admin/status listener settings.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	TokenSecret string        `yaml:"tokenSecret"`
	TokenIssuer string        `yaml:"tokenIssuer"`
	TokenTTL    time.Duration `yaml:"tokenTTL"`
	VerifyBase  string        `yaml:"verifyBase"`
}

// CORSConfig holds cross-origin settings for the public listener.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
	AllowedMethods []string `yaml:"allowedMethods"`
	AllowedHeaders []string `yaml:"allowedHeaders"`
	MaxAge         int      `yaml:"maxAge"`
}

// RateLimitConfig holds per-client rate limit settings.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	Rate    float64 `yaml:"rate"`
	Burst   int     `yaml:"burst"`
}

// Default returns a configuration with sane defaults applied.
func Default() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Admin: AdminConfig{
			Enabled: true,
			Address: ":9090",
		},
		Upstream: upstream.Config{
			BaseURL: "https://blt.owasp.org/api/v1",
			Timeout: 10 * time.Second,
		},
		Cache: cache.Config{
			Enabled: true,
			Type:    cache.TypeMemory,
			TTL:     time.Minute,
		},
		Auth: AuthConfig{
			TokenIssuer: "blt-gateway",
			TokenTTL:    24 * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         86400,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    50,
			Burst:   100,
		},
		Logging: observability.LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyDefaults fills zero-valued fields after unmarshalling.
func (c *GatewayConfig) applyDefaults() {
	def := Default()
	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Admin.Address == "" {
		c.Admin.Address = def.Admin.Address
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = def.Upstream.BaseURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = def.Upstream.Timeout
	}
	if c.Cache.Type == "" {
		c.Cache.Type = def.Cache.Type
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Auth.TokenIssuer == "" {
		c.Auth.TokenIssuer = def.Auth.TokenIssuer
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = def.Auth.TokenTTL
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = def.CORS.AllowedOrigins
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = def.CORS.AllowedMethods
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = def.CORS.AllowedHeaders
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = def.CORS.MaxAge
	}
	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = def.RateLimit.Rate
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}
}
