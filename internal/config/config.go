package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/taskdeck/internal/taskapi"
)

// Config holds everything taskdeck needs to reach and poll the backend.
type Config struct {
	APIURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	PollInterval time.Duration
	LogFile      string
	Endpoints    taskapi.Endpoints
}

const (
	defaultConfigPath   = "~/.config/taskdeck/config.toml"
	defaultLogFile      = "~/.local/state/taskdeck/taskdeck.log"
	defaultAPIURL       = "http://127.0.0.1:8000"
	defaultTimeout      = 10 * time.Second
	defaultMaxRetries   = 3
	defaultRetryDelay   = time.Second
	defaultPollInterval = 5 * time.Second
	defaultDotEnv       = ".env"
)

// Environment variables that override the file.
const (
	EnvAPIURL     = "TASKDECK_API_URL"
	EnvTimeoutMS  = "TASKDECK_TIMEOUT_MS"
	EnvMaxRetries = "TASKDECK_MAX_RETRIES"
	EnvRetryDelay = "TASKDECK_RETRY_DELAY_MS"
)

type fileConfig struct {
	APIURL       string `toml:"api_url"`
	TimeoutMS    int    `toml:"timeout_ms"`
	MaxRetries   int    `toml:"max_retries"`
	RetryDelayMS int    `toml:"retry_delay_ms"`
	PollSeconds  int    `toml:"poll_seconds"`
	LogFile      string `toml:"log_file"`
	Endpoints    struct {
		Health  string `toml:"health"`
		Chat    string `toml:"chat"`
		Tasks   string `toml:"tasks"`
		Search  string `toml:"search"`
		Summary string `toml:"summary"`
		Ask     string `toml:"ask"`
	} `toml:"endpoints"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:       defaultAPIURL,
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		RetryDelay:   defaultRetryDelay,
		PollInterval: defaultPollInterval,
		LogFile:      mustExpand(defaultLogFile),
		Endpoints:    taskapi.DefaultEndpoints(),
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config file at path (or the default location), then applies
// environment overrides. A .env file in the working directory seeds variables
// that are not already set. A missing config file is not an error.
func Load(path string) (Config, error) {
	return load(path, defaultDotEnv)
}

func load(path, dotEnv string) (Config, error) {
	if err := loadDotEnv(dotEnv); err != nil {
		return Config{}, err
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw fileConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.apply(raw)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(raw fileConfig) {
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		c.APIURL = v
	}
	if raw.TimeoutMS > 0 {
		c.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}
	if raw.MaxRetries > 0 {
		c.MaxRetries = raw.MaxRetries
	}
	if raw.RetryDelayMS > 0 {
		c.RetryDelay = time.Duration(raw.RetryDelayMS) * time.Millisecond
	}
	if raw.PollSeconds > 0 {
		c.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	c.Endpoints = taskapi.Endpoints{
		Health:  raw.Endpoints.Health,
		Chat:    raw.Endpoints.Chat,
		Tasks:   raw.Endpoints.Tasks,
		Search:  raw.Endpoints.Search,
		Summary: raw.Endpoints.Summary,
		Ask:     raw.Endpoints.Ask,
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	if v := get(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	ints := []struct {
		key   string
		apply func(int)
	}{
		{EnvTimeoutMS, func(n int) { c.Timeout = time.Duration(n) * time.Millisecond }},
		{EnvMaxRetries, func(n int) { c.MaxRetries = n }},
		{EnvRetryDelay, func(n int) { c.RetryDelay = time.Duration(n) * time.Millisecond }},
	}
	for _, entry := range ints {
		v := get(entry.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", entry.key, err)
		}
		if n > 0 {
			entry.apply(n)
		}
	}
	return nil
}

// Policy converts the retry settings into a client policy.
func (c Config) Policy() taskapi.Policy {
	return taskapi.Policy{
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.RetryDelay,
	}
}

// LogPath returns the taskdeck log file, falling back to the default.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return mustExpand(defaultLogFile)
	}
	return c.LogFile
}

func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
