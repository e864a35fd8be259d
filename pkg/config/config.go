// Package config loads the service configuration and command files of the
// GMP dispatcher. Both accept YAML or JSON, chosen by file extension.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/gmp/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration.
type Config struct {
	LogLevel          string        `mapstructure:"log_level"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
	DestinationPrefix string        `mapstructure:"destination_prefix"`
	// Handlers are APPLY handler paths registered at startup.
	Handlers []string    `mapstructure:"handlers"`
	Redis    RedisConfig `mapstructure:"redis"`
	HTTP     HTTPConfig  `mapstructure:"http"`
}

// RedisConfig locates the Redis server carrying handler traffic.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the configuration used for missing fields.
func Default() Config {
	return Config{
		LogLevel:          "info",
		DefaultTimeout:    5 * time.Second,
		DestinationPrefix: "GMP.SC.",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "gmp:",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads the configuration file at path on top of Default. A missing
// file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := readFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if _, err := cfg.HandlerPaths(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// HandlerPaths parses Handlers.
func (c Config) HandlerPaths() ([]domain.ConfigPath, error) {
	paths := make([]domain.ConfigPath, 0, len(c.Handlers))
	for _, h := range c.Handlers {
		p, err := domain.ParseConfigPath(h)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// readFile parses a YAML or JSON document into a generic map.
func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

func decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
