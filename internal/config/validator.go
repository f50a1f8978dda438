package config

import (
	"strings"

	"github.com/owasp-blt/blt-gateway/internal/cache"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

// ValidateConfig checks a configuration for inconsistencies that would
// make the gateway misbehave at runtime.
func ValidateConfig(cfg *GatewayConfig) error {
	if cfg == nil {
		return util.NewConfigError("", "configuration is nil")
	}

	if !strings.Contains(cfg.Server.Address, ":") {
		return util.NewConfigError("server.address", "must be host:port or :port")
	}
	if cfg.Admin.Enabled && !strings.Contains(cfg.Admin.Address, ":") {
		return util.NewConfigError("admin.address", "must be host:port or :port")
	}
	if cfg.Admin.Enabled && cfg.Admin.Address == cfg.Server.Address {
		return util.NewConfigError("admin.address", "must differ from server.address")
	}

	if cfg.Upstream.BaseURL == "" {
		return util.NewConfigError("upstream.baseURL", "must not be empty")
	}
	if !strings.HasPrefix(cfg.Upstream.BaseURL, "http://") &&
		!strings.HasPrefix(cfg.Upstream.BaseURL, "https://") {
		return util.NewConfigError("upstream.baseURL", "must be an http(s) URL")
	}

	if cfg.Cache.Enabled {
		switch cfg.Cache.Type {
		case cache.TypeMemory:
		case cache.TypeRedis:
			if cfg.Cache.Redis.Address == "" {
				return util.NewConfigError("cache.redis.address", "required for redis cache")
			}
		default:
			return util.NewConfigError("cache.type", "must be memory or redis")
		}
	}

	if cfg.Auth.TokenSecret != "" && len(cfg.Auth.TokenSecret) < 32 {
		return util.NewConfigError("auth.tokenSecret", "must be at least 32 characters")
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Rate <= 0 {
			return util.NewConfigError("rateLimit.rate", "must be positive")
		}
		if cfg.RateLimit.Burst <= 0 {
			return util.NewConfigError("rateLimit.burst", "must be positive")
		}
	}

	if cfg.Email.Enabled {
		if cfg.Email.BaseURL == "" {
			return util.NewConfigError("email.baseURL", "required when email is enabled")
		}
		if cfg.Email.From == "" {
			return util.NewConfigError("email.from", "required when email is enabled")
		}
	}

	return nil
}
