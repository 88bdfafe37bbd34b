// Package config reads process configuration from the environment. An
// optional .env file in the working directory is loaded first; variables
// already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT"`
}

// Client configures the towerman CLI and its session.
type Client struct {
	ServerURL         string        `env:"TOWERMAN_SERVER_URL" envDefault:"https://towerman.app"`
	SocketURL         string        `env:"TOWERMAN_SOCKET_URL" envDefault:"wss://towerman.app"`
	PingInterval      time.Duration `env:"TOWERMAN_PING_INTERVAL" envDefault:"5s"`
	HandshakeInterval time.Duration `env:"TOWERMAN_HANDSHAKE_INTERVAL" envDefault:"200ms"`
	HandshakeAttempts int           `env:"TOWERMAN_HANDSHAKE_ATTEMPTS" envDefault:"5"`
	HandshakeTimeout  time.Duration `env:"TOWERMAN_HANDSHAKE_TIMEOUT" envDefault:"3s"`
	WriteTimeout      time.Duration `env:"TOWERMAN_WRITE_TIMEOUT" envDefault:"3s"`
	ErrorTTL          time.Duration `env:"TOWERMAN_ERROR_TTL" envDefault:"2500ms"`
	HTTPTimeout       time.Duration `env:"TOWERMAN_HTTP_TIMEOUT" envDefault:"15s"`
	Log               Log
}

// Relay configures the reference backend.
type Relay struct {
	Addr         string        `env:"RELAY_ADDR" envDefault:":8080"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	ReadTimeout  time.Duration `env:"RELAY_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"RELAY_WRITE_TIMEOUT" envDefault:"3s"`
	// OriginPatterns lists extra origins allowed to open the stream.
	OriginPatterns []string `env:"RELAY_ORIGIN_PATTERNS" envSeparator:","`
	Log            Log
}

func LoadClient() (*Client, error) {
	cfg, err := load[Client]()
	if err != nil {
		return nil, err
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	return cfg, nil
}

func LoadRelay() (*Relay, error) {
	cfg, err := load[Relay]()
	if err != nil {
		return nil, err
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	return cfg, nil
}

func load[T any]() (*T, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := env.ParseAs[T]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
