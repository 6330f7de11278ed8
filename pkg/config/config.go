package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort    = 5005
	DefaultTimeout = 60 * time.Second
)

type Config struct {
	Backend BackendConfig `yaml:"backend" envPrefix:"BACKEND_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	UI      UIConfig      `yaml:"ui" envPrefix:"UI_"`
}

type BackendConfig struct {
	// URL overrides the scheme/host/port triple when set.
	URL          string        `yaml:"url" env:"URL"`
	Scheme       string        `yaml:"scheme" env:"SCHEME"`
	Host         string        `yaml:"host" env:"HOST"`
	Port         int           `yaml:"port" env:"PORT"`
	ChatEndpoint string        `yaml:"chat_endpoint" env:"CHAT_ENDPOINT"`
	LoadEndpoint string        `yaml:"load_endpoint" env:"LOAD_ENDPOINT"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type LogConfig struct {
	File       string `yaml:"file" env:"FILE"`
	Level      string `yaml:"level" env:"LEVEL"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

type ServerConfig struct {
	Addr      string  `yaml:"addr" env:"ADDR"`
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int     `yaml:"burst" env:"BURST"`
}

type UIConfig struct {
	Color           bool   `yaml:"color" env:"COLOR"`
	Spinner         bool   `yaml:"spinner" env:"SPINNER"`
	AcceptExtension string `yaml:"accept_extension" env:"ACCEPT_EXTENSION"`
}

// BaseURL returns the backend root URL, built from host and port unless an
// explicit URL is configured.
func (b BackendConfig) BaseURL() string {
	if b.URL != "" {
		return b.URL
	}
	return b.URLForHost(b.Host)
}

// URLForHost builds the backend root URL for the given host, keeping the
// configured scheme and port. Any port already present on host is dropped.
func (b BackendConfig) URLForHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return fmt.Sprintf("%s://%s", b.Scheme, net.JoinHostPort(host, strconv.Itoa(b.Port)))
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"ragchat.yaml",
			"ragchat.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragchat/config.yaml"),
			"/etc/ragchat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := newConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := mergeWithEnv(config); err != nil {
		return nil, err
	}

	applyDefaults(config)

	return config, nil
}

func getDefaultConfig() (*Config, error) {
	config := newConfig()
	applyDefaults(config)
	if err := mergeWithEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// newConfig seeds the boolean options whose zero value is not the default,
// so a YAML file that omits them keeps them on.
func newConfig() *Config {
	config := &Config{}
	config.UI.Color = true
	config.UI.Spinner = true
	return config
}

func applyDefaults(config *Config) {
	if config.Backend.Scheme == "" {
		config.Backend.Scheme = "http"
	}
	if config.Backend.Host == "" {
		config.Backend.Host = "localhost"
	}
	if config.Backend.Port == 0 {
		config.Backend.Port = DefaultPort
	}
	if config.Backend.ChatEndpoint == "" {
		config.Backend.ChatEndpoint = "/chat"
	}
	if config.Backend.LoadEndpoint == "" {
		config.Backend.LoadEndpoint = "/load_documents"
	}
	if config.Backend.Timeout == 0 {
		config.Backend.Timeout = DefaultTimeout
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.MaxSizeMB == 0 {
		config.Log.MaxSizeMB = 10
	}
	if config.Log.MaxBackups == 0 {
		config.Log.MaxBackups = 3
	}
	if config.Log.MaxAgeDays == 0 {
		config.Log.MaxAgeDays = 28
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.RateLimit == 0 {
		config.Server.RateLimit = 2.0
	}
	if config.Server.Burst == 0 {
		config.Server.Burst = 5
	}

	if config.UI.AcceptExtension == "" {
		config.UI.AcceptExtension = ".jsonl"
	}
}

// mergeWithEnv loads an optional .env file and applies RAGCHAT_* variables on
// top of the file values.
func mergeWithEnv(config *Config) error {
	_ = godotenv.Load()

	if err := env.ParseWithOptions(config, env.Options{Prefix: "RAGCHAT_"}); err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	return nil
}
