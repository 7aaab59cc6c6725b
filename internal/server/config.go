// Package server provides configuration helpers that define runtime defaults
// and validation for the livechat gateway.
package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"

	"github.com/Tyrowin/livechat/internal/coordinator"
)

// Config holds the gateway settings. Every field can be set from the
// environment.
type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=3001"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=65536"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256"`
	InboxSize       int           `env:"INBOX_SIZE,default=256"`
	RenamePolicy    string        `env:"RENAME_POLICY,default=announce-join"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	PingInterval    time.Duration `env:"PING_INTERVAL,default=25s"`
	PongTimeout     time.Duration `env:"PONG_TIMEOUT,default=60s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            3001,
		AllowedOrigins:  "*",
		MaxMessageSize:  64 * 1024,
		SendBufferSize:  256,
		InboxSize:       256,
		RenamePolicy:    string(coordinator.AnnounceJoin),
		LogLevel:        "INFO",
		ShutdownTimeout: 10 * time.Second,
		PingInterval:    25 * time.Second,
		PongTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}

// LoadConfig reads the configuration from the environment and fills any
// unusable value with its default.
func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if _, err := coordinator.ParseRenamePolicy(cfg.RenamePolicy); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	sanitized := sanitizeConfig(cfg)
	return &sanitized, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Origins splits AllowedOrigins on commas.
func (c Config) Origins() []string {
	return parseOrigins(c.AllowedOrigins)
}

func sanitizeConfig(cfg Config) Config {
	defaults := NewConfig()

	if cfg.Port <= 0 {
		cfg.Port = defaults.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaults.InboxSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaults.PongTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	// Pings must go out before the peer's read deadline expires.
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = cfg.PongTimeout * 9 / 10
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	return cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
