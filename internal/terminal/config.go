// Package terminal is a command-line chat client: it validates the display
// name, keeps the session's WebSocket, de-duplicates messages by id and
// renders them for a terminal.
package terminal

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment.
type Config struct {
	ServerURL string `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:3001/ws"`
	// CHAT_ORIGIN is sent as the Origin header, for servers that restrict origins.
	Origin string `envconfig:"CHAT_ORIGIN"`
	// CHAT_NAME skips the interactive name prompt.
	Name string `envconfig:"CHAT_NAME"`
	// CHAT_COLOURS enables coloured output.
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}
