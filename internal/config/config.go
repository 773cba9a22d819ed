// Package config loads pbetool settings from defaults, a YAML file, a .env
// file and PBE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/illarion/pbetool/internal/crypto"
)

const (
	DefaultPath     = "pbetool.yaml"
	DefaultEnvFile  = ".env"
	DefaultStore    = ".pbetool"
	StoreTypeBolt   = "bolt"
	StoreTypeRedis  = "redis"
	DefaultService  = "pbetool"
	DefaultRedisKey = "pbetool"

	// IterationLimitCap bounds the derived decryption limit of the server.
	IterationLimitCap = 1000000
)

type Config struct {
	Format     string        `yaml:"format"`
	Iterations int           `yaml:"iterations"`
	Store      StoreConfig   `yaml:"store"`
	Keyring    KeyringConfig `yaml:"keyring"`
	Server     ServerConfig  `yaml:"server"`
	Log        LogConfig     `yaml:"log"`
	CLI        CLIConfig     `yaml:"cli"`
}

type StoreConfig struct {
	Type  string      `yaml:"type"`
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type KeyringConfig struct {
	Service string `yaml:"service"`
	Account string `yaml:"account"` // empty: use the store ID
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// MaxIterations caps the count a pbkdf2v envelope may request.
	// Zero derives it from Iterations, see IterationLimit.
	MaxIterations int `yaml:"max_iterations"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type CLIConfig struct {
	// Strict makes an unknown command exit with status 2 instead of 0.
	Strict bool `yaml:"strict"`
}

func Default() *Config {
	return &Config{
		Format:     string(crypto.DefaultFormat),
		Iterations: crypto.DefaultIterations,
		Store: StoreConfig{
			Type: StoreTypeBolt,
			Path: DefaultStore,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: DefaultRedisKey,
			},
		},
		Keyring: KeyringConfig{
			Service: DefaultService,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. An empty path falls back to PBE_CONFIG and
// then DefaultPath; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = PathFromEnv()
	}
	if path == "" {
		path = DefaultPath
	}

	if err := cfg.loadFromFile(path); err != nil {
		return nil, err
	}

	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, err
	}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PathFromEnv returns the config file path named by PBE_CONFIG, if any.
func PathFromEnv() string {
	return os.Getenv("PBE_CONFIG")
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadDotEnv never overrides variables already set in the environment.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a number", name, v)
	}
	*dst = n
	return nil
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a boolean", name, v)
	}
	*dst = b
	return nil
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("PBE_FORMAT"); v != "" {
		c.Format = v
	}
	if err := envInt("PBE_ITERATIONS", &c.Iterations); err != nil {
		return err
	}

	if v := os.Getenv("PBE_STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("PBE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PBE_REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("PBE_REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if err := envInt("PBE_REDIS_DB", &c.Store.Redis.DB); err != nil {
		return err
	}
	if v := os.Getenv("PBE_REDIS_PREFIX"); v != "" {
		c.Store.Redis.Prefix = v
	}

	if v := os.Getenv("PBE_KEYRING_SERVICE"); v != "" {
		c.Keyring.Service = v
	}
	if v := os.Getenv("PBE_KEYRING_ACCOUNT"); v != "" {
		c.Keyring.Account = v
	}

	if v := os.Getenv("PBE_HOST"); v != "" {
		c.Server.Host = v
	}
	if err := envInt("PBE_PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := envInt("PBE_MAX_ITERATIONS", &c.Server.MaxIterations); err != nil {
		return err
	}

	if v := os.Getenv("PBE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PBE_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	return envBool("PBE_STRICT", &c.CLI.Strict)
}

func (c *Config) Validate() error {
	if _, err := crypto.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}

	if c.Iterations < 1 || c.Iterations > crypto.MaxIterations {
		return fmt.Errorf("iterations must be between 1 and %d", crypto.MaxIterations)
	}

	switch c.Store.Type {
	case StoreTypeBolt:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required when store type is '%s'", StoreTypeBolt)
		}
	case StoreTypeRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required when store type is '%s'", StoreTypeRedis)
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be '%s' or '%s')", c.Store.Type, StoreTypeBolt, StoreTypeRedis)
	}

	if c.Keyring.Service == "" {
		return fmt.Errorf("keyring service is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if m := c.Server.MaxIterations; m != 0 && (m < c.Iterations || m > crypto.MaxIterations) {
		return fmt.Errorf("server max_iterations must be between %d and %d", c.Iterations, crypto.MaxIterations)
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", c.Log.Format)
	}

	return nil
}

// CryptoFormat returns the configured envelope format. Call after Validate.
func (c *Config) CryptoFormat() crypto.Format {
	f, err := crypto.ParseFormat(c.Format)
	if err != nil {
		return crypto.DefaultFormat
	}
	return f
}

// IterationLimit returns the highest pbkdf2v iteration count the server
// decrypts: Server.MaxIterations if set, else ten times Iterations capped at
// IterationLimitCap. It is never below Iterations.
func (c *Config) IterationLimit() int {
	if c.Server.MaxIterations > 0 {
		return c.Server.MaxIterations
	}
	limit := min(10*c.Iterations, IterationLimitCap)
	return max(limit, c.Iterations)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
