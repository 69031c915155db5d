package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig   `yaml:"server"`
	Provider       ProviderConfig `yaml:"provider"`
	Session        SessionConfig  `yaml:"session"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// AuthToken gates the HTTP endpoints when non-empty. Usually set via
	// the ROCKETFINDER_TOKEN environment variable rather than the file.
	AuthToken string `yaml:"auth_token"`
	// MaxConnections limits simultaneous WebSocket connections; 0 means
	// unlimited.
	MaxConnections int `yaml:"max_connections"`
}

type ProviderConfig struct {
	// BaseURL of the FrameX API.
	BaseURL string `yaml:"base_url"`
	// Video is the default video searched when a start command names none.
	Video string `yaml:"video"`
	// Timeout bounds each metadata request to the provider.
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	// QueueSize bounds each user's backlog of unprocessed events.
	QueueSize int `yaml:"queue_size"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Provider: ProviderConfig{
			BaseURL: "https://framex.with-madrid.dev/api",
			Video:   "Falcon Heavy Test Flight (Hosted Webcast)-wbSwFU6tY1c",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			QueueSize: 16,
		},
	}
}

// Load reads the YAML config at path on top of the defaults. A missing
// file is not an error: the defaults already describe a working setup
// against the public FrameX instance. Environment variables API_BASE,
// VIDEO_NAME, and ROCKETFINDER_TOKEN override their file counterparts.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to the env overrides
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("API_BASE"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("VIDEO_NAME"); v != "" {
		cfg.Provider.Video = v
	}
	if v := os.Getenv("ROCKETFINDER_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}

	return cfg, nil
}
