// Package config loads and validates techwiki YAML configuration.
// It applies defaults so callers can rely on fully populated values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAddr     = "TECHWIKI_ADDR"
	EnvInsecure = "TECHWIKI_INSECURE"
	EnvLogLevel = "TECHWIKI_LOG_LEVEL"
	EnvTimeout  = "TECHWIKI_TIMEOUT"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// ClientConfig holds settings for talking to the knowledge-base API.
type ClientConfig struct {
	Addr      string        `yaml:"addr"`
	Insecure  bool          `yaml:"insecure"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// UIConfig holds interactive shell settings.
type UIConfig struct {
	NavBreakpoint int `yaml:"nav_breakpoint"`
}

// ServerConfig holds settings for the development backend.
type ServerConfig struct {
	Bind        string `yaml:"bind"`
	Port        int    `yaml:"port"`
	DBPath      string `yaml:"db_path"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// Config mirrors the techwiki.yaml schema.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Client ClientConfig `yaml:"client"`
	UI     UIConfig     `yaml:"ui"`
	Server ServerConfig `yaml:"server"`
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	applyDefaults(&c)
	return c
}

// Load reads a YAML config file, applies defaults, and validates it.
// It returns a fully populated Config or a descriptive error.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, errors.New("config path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	c.Client.Addr = strings.TrimSpace(c.Client.Addr)
	c.Server.DBPath = strings.TrimSpace(c.Server.DBPath)
	c.Log.File = strings.TrimSpace(c.Log.File)
	return c, nil
}

// Resolve is what every subcommand starts from: the file at path (defaults
// when path is empty), then the environment on top.
func Resolve(path, envFile string) (Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&c, envFile); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyEnv loads envFile (when it exists) into the process environment and
// then overrides c with any TECHWIKI_* variables that are set.
// Variables already present in the environment win over the file.
func ApplyEnv(c *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		c.Client.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvInsecure)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInsecure, err)
		}
		c.Client.Insecure = b
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Client.Timeout = d
	}
	return validate(c)
}

// applyDefaults populates zero-values with sane defaults.
// The default backend address is the development server port.
func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Client.Addr == "" {
		c.Client.Addr = "http://127.0.0.1:5000"
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = 20 * time.Second
	}
	if c.Client.UserAgent == "" {
		c.Client.UserAgent = "techwiki"
	}
	if c.UI.NavBreakpoint == 0 {
		c.UI.NavBreakpoint = 100
	}
	if c.Server.Bind == "" {
		c.Server.Bind = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "./data/techwiki.db"
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 16
	}
}

// validate performs basic sanity checks for required fields and ranges.
// It does not mutate the config.
func validate(c *Config) error {
	if strings.TrimSpace(c.Log.Level) == "" {
		return errors.New("log.level is required")
	}
	if strings.TrimSpace(c.Client.Addr) == "" {
		return errors.New("client.addr is required")
	}
	if c.Client.Timeout < 0 {
		return errors.New("client.timeout is invalid")
	}
	if c.UI.NavBreakpoint < 1 {
		return errors.New("ui.nav_breakpoint is invalid")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port is invalid")
	}
	if c.Server.MaxUploadMB < 1 || c.Server.MaxUploadMB > 1024 {
		return errors.New("server.max_upload_mb is invalid")
	}
	if c.Server.DBPath == "" {
		return errors.New("server.db_path is required")
	}
	return nil
}
