// Package config loads the service configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration of the fieldmerge services.
type Config struct {
	Schema SchemaConfig `yaml:"schema"`
	Server ServerConfig `yaml:"server"`
	GRPC   GRPCConfig   `yaml:"grpc"`
	Otel   OtelConfig   `yaml:"otel"`
	Log    LogConfig    `yaml:"log"`
}

type SchemaConfig struct {
	Root string `yaml:"root"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	Timeout      time.Duration `yaml:"timeout"`
	Pretty       bool          `yaml:"pretty"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
	CORSOrigins  []string      `yaml:"corsOrigins"`
	CacheSize    int           `yaml:"cacheSize"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type OtelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Schema: SchemaConfig{Root: "."},
		Server: ServerConfig{
			Addr:         ":8080",
			Timeout:      30 * time.Second,
			MaxBodyBytes: 1 << 20,
			CacheSize:    1024,
		},
		Otel: OtelConfig{Service: "fieldmerge"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads path over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a YAML document from r over Default.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports values the services cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Schema.Root == "" {
		errs = append(errs, errors.New("schema.root must not be empty"))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, fmt.Errorf("server.timeout must not be negative, got %s", c.Server.Timeout))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.maxBodyBytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if c.Server.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("server.cacheSize must not be negative, got %d", c.Server.CacheSize))
	}
	return errors.Join(errs...)
}
