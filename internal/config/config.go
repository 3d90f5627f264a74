package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justyntemme/booklist/internal/googlebooks"
)

// Config holds runtime settings. Values come from defaults, then an optional
// YAML file, then BOOKLIST_* environment variables.
type Config struct {
	Books   BooksConfig   `yaml:"books"`
	Server  ServerConfig  `yaml:"server"`
	DataDir string        `yaml:"data_dir"`
	Log     LogConfig     `yaml:"log"`
	Network NetworkConfig `yaml:"network"`
}

type BooksConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type NetworkConfig struct {
	// ProbeAddress is dialed before each search; "off" disables the check
	ProbeAddress string `yaml:"probe_address"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Books: BooksConfig{
			BaseURL:        googlebooks.DefaultBaseURL,
			ConnectTimeout: googlebooks.DefaultConnectTimeout,
			ReadTimeout:    googlebooks.DefaultReadTimeout,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		DataDir: "./data",
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (if non-empty) over the defaults and applies the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabasePath is the history database location inside DataDir
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "booklist.db")
}

// ProbeDisabled reports whether the connectivity check is turned off
func (c *Config) ProbeDisabled() bool {
	return c.Network.ProbeAddress == "off"
}

func (c *Config) applyEnv() error {
	c.Books.APIKey = getEnv("BOOKLIST_API_KEY", c.Books.APIKey)
	c.Books.BaseURL = getEnv("BOOKLIST_BASE_URL", c.Books.BaseURL)
	c.Server.Addr = getEnv("BOOKLIST_ADDR", c.Server.Addr)
	c.Server.JWTSecret = getEnv("BOOKLIST_JWT_SECRET", c.Server.JWTSecret)
	c.DataDir = getEnv("BOOKLIST_DATA_DIR", c.DataDir)
	c.Log.Level = getEnv("BOOKLIST_LOG_LEVEL", c.Log.Level)
	c.Network.ProbeAddress = getEnv("BOOKLIST_PROBE_ADDRESS", c.Network.ProbeAddress)

	if port := os.Getenv("BOOKLIST_PORT"); port != "" {
		c.Server.Addr = ":" + port
	}

	var err error
	if c.Books.ConnectTimeout, err = getEnvDuration("BOOKLIST_CONNECT_TIMEOUT", c.Books.ConnectTimeout); err != nil {
		return err
	}
	if c.Books.ReadTimeout, err = getEnvDuration("BOOKLIST_READ_TIMEOUT", c.Books.ReadTimeout); err != nil {
		return err
	}
	if c.Server.TokenTTL, err = getEnvDuration("BOOKLIST_TOKEN_TTL", c.Server.TokenTTL); err != nil {
		return err
	}
	if v := os.Getenv("BOOKLIST_LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BOOKLIST_LOG_PRETTY: %w", err)
		}
		c.Log.Pretty = pretty
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
