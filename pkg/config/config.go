// Package config loads bridge configuration from an optional YAML file and
// the environment. Environment variables override file values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full bridge configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"` // listen address
	Port int    `yaml:"port"` // listen port
}

// ElevenLabsConfig configures the Conversational AI upstream.
type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`  // required
	AgentID string `yaml:"agent_id"` // required
	BaseURL string `yaml:"base_url"` // empty selects the production endpoint
}

// Load reads the configuration. filename may be empty or name a missing
// file; the environment alone can supply everything required.
func Load(filename string) (*Config, error) {
	var config Config

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err == nil {
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnv(&config)
	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(config *Config) {
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		config.ElevenLabs.APIKey = v
	}
	if v := os.Getenv("ELEVENLABS_AGENT_ID"); v != "" {
		config.ElevenLabs.AgentID = v
	}
	if v := os.Getenv("ELEVENLABS_BASE_URL"); v != "" {
		config.ElevenLabs.BaseURL = v
	}
	if v := os.Getenv("HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
}

func validate(config *Config) error {
	if config.ElevenLabs.APIKey == "" {
		return fmt.Errorf("ElevenLabs API key is required (ELEVENLABS_API_KEY)")
	}
	if config.ElevenLabs.AgentID == "" {
		return fmt.Errorf("ElevenLabs agent ID is required (ELEVENLABS_AGENT_ID)")
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("listen port out of range: %d", config.Server.Port)
	}
	return nil
}
