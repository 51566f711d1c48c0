package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads the YAML file at configPath (if any), applies environment
// overrides and validates the result. An empty path means environment only.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

var (
	EnvTenantID      = "AZURE_TENANT_ID"
	EnvClientID      = "AZURE_CLIENT_ID"
	EnvClientSecret  = "AZURE_CLIENT_SECRET"
	EnvRedirectURI   = "AZURE_REDIRECT_URI"
	EnvSessionSecret = "SESSION_SECRET"
	EnvPort          = "PORT"
	EnvRedisPassword = "RELAY_REDIS_PASSWORD"
	EnvRedisUsername = "RELAY_REDIS_USERNAME"
)

func applyEnvironmentOverrides(config *Config) error {
	if tenantID := os.Getenv(EnvTenantID); tenantID != "" {
		config.Provider.TenantID = tenantID
	}

	if clientID := os.Getenv(EnvClientID); clientID != "" {
		config.Provider.ClientID = clientID
	}

	if clientSecret := os.Getenv(EnvClientSecret); clientSecret != "" {
		config.Provider.ClientSecret = clientSecret
	}

	if redirectURI := os.Getenv(EnvRedirectURI); redirectURI != "" {
		config.Provider.RedirectURI = redirectURI
	}

	if secret := os.Getenv(EnvSessionSecret); secret != "" {
		config.Sessions.Secret = secret
	}

	if portStr := os.Getenv(EnvPort); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid %s: %q is not a number", EnvPort, portStr)
		}
		config.Server.Port = port
	}

	if redisPassword := os.Getenv(EnvRedisPassword); redisPassword != "" {
		if config.Redis == nil {
			config.Redis = &RedisConfig{}
		}
		config.Redis.Password = redisPassword
	}

	if redisUsername := os.Getenv(EnvRedisUsername); redisUsername != "" {
		if config.Redis == nil {
			config.Redis = &RedisConfig{}
		}
		config.Redis.Username = redisUsername
	}

	return nil
}

func validateConfig(config *Config) error {
	err := config.validateServerConfig()
	if err != nil {
		return err
	}

	err = config.validateProviderConfig()
	if err != nil {
		return err
	}

	err = config.validateLogConfig()
	if err != nil {
		return err
	}

	err = config.validateCORSConfig()
	if err != nil {
		return err
	}

	err = config.validateSessionConfig()
	if err != nil {
		return err
	}

	if config.Sessions.Store == "redis" {
		err = config.validateRedisConfig()
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateServerConfig() error {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerConfig.Port
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.Debug != nil && c.Server.Debug.Enabled {
		if c.Server.Debug.Host == "" {
			c.Server.Debug.Host = DefaultDebugConfig.Host
		}
		if c.Server.Debug.Port <= 0 || c.Server.Debug.Port >= 65535 {
			c.Server.Debug.Port = DefaultDebugConfig.Port
		}
	}

	return nil
}

func (c *Config) validateProviderConfig() error {
	if c.Provider.TenantID == "" {
		return fmt.Errorf("provider tenant id is required")
	}

	if c.Provider.ClientID == "" {
		return fmt.Errorf("provider client id is required")
	}

	if c.Provider.ClientSecret == "" {
		return fmt.Errorf("provider client secret is required")
	}

	if err := validateURL(c.Provider.RedirectURI, "redirect_url"); err != nil {
		return err
	}

	if c.Provider.AuthorityURL == "" {
		c.Provider.AuthorityURL = DefaultProviderConfig.AuthorityURL
	} else if err := validateURL(c.Provider.AuthorityURL, "authority_url"); err != nil {
		return err
	}
	c.Provider.AuthorityURL = strings.TrimRight(c.Provider.AuthorityURL, "/")

	if c.Provider.ProfileURL == "" {
		c.Provider.ProfileURL = DefaultProviderConfig.ProfileURL
	} else if err := validateURL(c.Provider.ProfileURL, "profile_url"); err != nil {
		return err
	}

	if len(c.Provider.Scopes) == 0 {
		c.Provider.Scopes = DefaultProviderConfig.Scopes
	}

	if c.Provider.ResponseMode == "" {
		c.Provider.ResponseMode = DefaultProviderConfig.ResponseMode
	} else {
		switch c.Provider.ResponseMode {
		case "query", "fragment", "form_post":
		default:
			return fmt.Errorf("invalid response mode: %s, options are query, fragment or form_post", c.Provider.ResponseMode)
		}
	}

	if c.Provider.HTTPTimeout < 0 {
		return fmt.Errorf("provider.http_timeout cannot be negative")
	}

	if c.Provider.VerifyIDToken {
		if c.Provider.IssuerURL == "" {
			c.Provider.IssuerURL = fmt.Sprintf("%s/%s/v2.0", c.Provider.AuthorityURL, c.Provider.TenantID)
		} else if err := validateURL(c.Provider.IssuerURL, "issuer_url"); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateLogConfig() error {
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogConfig.Format
	} else {
		switch c.Log.Format {
		case "text", "json":
		default:
			return fmt.Errorf("invalid log format: %s, options are text or json", c.Log.Format)
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogConfig.Level
	} else {
		switch c.Log.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level: %s, options are debug, info, warn, error", c.Log.Level)
		}
	}

	return nil
}

func (c *Config) validateCORSConfig() error {
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = DefaultCORSConfig.AllowedOrigins
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = DefaultCORSConfig.AllowedMethods
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = DefaultCORSConfig.AllowedHeaders
	}
	if c.CORS.MaxAgeSeconds == 0 {
		c.CORS.MaxAgeSeconds = DefaultCORSConfig.MaxAgeSeconds
	}
	if c.CORS.AllowCredentials == nil {
		allow := true
		c.CORS.AllowCredentials = &allow
	}

	return nil
}

func (c *Config) validateSessionConfig() error {
	if c.Sessions.Store == "" {
		c.Sessions.Store = DefaultSessionConfig.Store
	} else {
		switch c.Sessions.Store {
		case "memory", "redis":
		default:
			return fmt.Errorf("invalid session store: %s, options are 'memory' or 'redis'", c.Sessions.Store)
		}
	}

	if c.Sessions.Secret == "" {
		return fmt.Errorf("session secret is required")
	}

	if c.Sessions.Name == "" {
		c.Sessions.Name = DefaultSessionConfig.Name
	}

	if c.Sessions.Lifetime == 0 {
		c.Sessions.Lifetime = DefaultSessionConfig.Lifetime
	} else if c.Sessions.Lifetime < 0 {
		return fmt.Errorf("sessions.lifetime cannot be negative")
	}

	return nil
}

func (c *Config) validateRedisConfig() error {
	if c.Redis == nil {
		return fmt.Errorf("redis configuration must be set to use redis for sessions")
	}

	if c.Redis.Sentinel != nil {
		if c.Redis.Sentinel.MasterName == "" {
			return fmt.Errorf("sentinel master_name is required")
		}
		if len(c.Redis.Sentinel.SentinelAddresses) == 0 {
			return fmt.Errorf("at least one sentinel address is required")
		}
	} else {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required")
		}

		if _, _, err := net.SplitHostPort(c.Redis.Address); err != nil {
			return fmt.Errorf("invalid redis address format (expected host:port): %w", err)
		}
	}

	const maxRedisDB = 15
	if c.Redis.SessionIndex < 0 {
		return fmt.Errorf("redis session_index must be non-negative, got %d", c.Redis.SessionIndex)
	}

	if c.Redis.SessionIndex > maxRedisDB {
		return fmt.Errorf("redis session_index %d exceeds typical maximum of %d", c.Redis.SessionIndex, maxRedisDB)
	}

	return nil
}
