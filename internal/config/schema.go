package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
	Sessions SessionConfig  `yaml:"sessions"`
	Redis    *RedisConfig   `yaml:"redis"`
}

type ServerConfig struct {
	Port  int                `yaml:"port"`
	Debug *ServerDebugConfig `yaml:"debug"`
}

var DefaultServerConfig = ServerConfig{
	Port: 8000,
}

type ServerDebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

var DefaultDebugConfig = ServerDebugConfig{
	Enabled: false,
	Host:    "localhost",
	Port:    5123,
}

// ProviderConfig describes the single identity provider the relay talks to.
// Endpoints default to the Microsoft identity platform v2 endpoints for TenantID.
type ProviderConfig struct {
	TenantID      string        `yaml:"tenant_id"`
	ClientID      string        `yaml:"client_id"`
	ClientSecret  string        `yaml:"client_secret"`
	RedirectURI   string        `yaml:"redirect_url"`
	Scopes        []string      `yaml:"scopes"`
	ResponseMode  string        `yaml:"response_mode"`
	AuthorityURL  string        `yaml:"authority_url"`
	ProfileURL    string        `yaml:"profile_url"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	VerifyIDToken bool          `yaml:"verify_id_token"`
	IssuerURL     string        `yaml:"issuer_url"`
}

var DefaultProviderConfig = ProviderConfig{
	Scopes:       []string{"openid", "profile", "email"},
	ResponseMode: "query",
	AuthorityURL: "https://login.microsoftonline.com",
	ProfileURL:   "https://graph.microsoft.com/v1.0/me",
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	StackTraces bool   `yaml:"stack_traces"`
}

var DefaultLogConfig = LogConfig{
	Level:  "info",
	Format: "text",
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	AllowCredentials *bool    `yaml:"allow_credentials"`
	MaxAgeSeconds    int      `yaml:"max_age_seconds"`
}

var DefaultCORSConfig = CORSConfig{
	AllowedOrigins: []string{"http://localhost:5173"},
	AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	AllowedHeaders: []string{"*"},
	MaxAgeSeconds:  300,
}

type SessionConfig struct {
	Store    string        `yaml:"store"`
	Lifetime time.Duration `yaml:"lifetime"`
	Name     string        `yaml:"name"`
	Secure   bool          `yaml:"secure"`
	Secret   string        `yaml:"secret"`
}

// DefaultSessionConfig keeps the development posture: cookies are not marked Secure.
var DefaultSessionConfig = SessionConfig{
	Store:    "memory",
	Lifetime: 24 * time.Hour,
	Name:     "relay_session",
	Secure:   false,
}

type RedisConfig struct {
	Address      string               `yaml:"address"`
	Username     string               `yaml:"username"`
	Password     string               `yaml:"password"`
	Sentinel     *RedisSentinelConfig `yaml:"sentinel"`
	SessionIndex int                  `yaml:"session_index"`
}

type RedisSentinelConfig struct {
	MasterName        string   `yaml:"master_name"`
	SentinelAddresses []string `yaml:"addresses"`
	SentinelPassword  string   `yaml:"password"`
	SentinelUsername  string   `yaml:"username"`
}
