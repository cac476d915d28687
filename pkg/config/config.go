// Package config loads the tool's settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/namecheap-portfolio/pkg/client"
	"github.com/Sternrassler/namecheap-portfolio/pkg/logging"
	"github.com/Sternrassler/namecheap-portfolio/pkg/pagination"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// DefaultEnvFile is the .env file read when none is given explicitly.
const DefaultEnvFile = ".env"

// Config holds all configuration for the tool.
type Config struct {
	Namecheap NamecheapConfig
	Redis     RedisConfig
	App       AppConfig
}

// NamecheapConfig holds registrar API settings.
type NamecheapConfig struct {
	APIUser  string
	APIKey   string
	UserName string
	ClientIP string
	Sandbox  bool
	Endpoint string
	PageSize int
	Timeout  time.Duration
	MaxPages int
}

// RedisConfig holds the optional call budget store. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AppConfig holds logging and metrics output settings.
type AppConfig struct {
	LogLevel        logging.LogLevel
	LogPretty       bool
	MetricsTextfile string
}

// Load reads envFile (if it exists) into the environment without overriding
// variables that are already set, then builds and validates the Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
			log.Debug().Str("file", envFile).Msg("No .env file found, using environment variables")
		}
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv() (*Config, error) {
	config := &Config{}

	sandbox, err := strconv.ParseBool(getEnv("NAMECHEAP_SANDBOX", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid NAMECHEAP_SANDBOX: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("NAMECHEAP_PAGE_SIZE", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid NAMECHEAP_PAGE_SIZE: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("NAMECHEAP_TIMEOUT", client.DefaultTimeout.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid NAMECHEAP_TIMEOUT: %w", err)
	}

	maxPages, err := strconv.Atoi(getEnv("NAMECHEAP_MAX_PAGES", strconv.Itoa(pagination.DefaultConfig().MaxPages)))
	if err != nil {
		return nil, fmt.Errorf("invalid NAMECHEAP_MAX_PAGES: %w", err)
	}

	apiUser := getEnv("NAMECHEAP_API_USER", "")
	config.Namecheap = NamecheapConfig{
		APIUser:  apiUser,
		APIKey:   getEnv("NAMECHEAP_API_KEY", ""),
		UserName: getEnv("NAMECHEAP_USERNAME", apiUser),
		ClientIP: getEnv("NAMECHEAP_CLIENT_IP", ""),
		Sandbox:  sandbox,
		Endpoint: getEnv("NAMECHEAP_ENDPOINT", ""),
		PageSize: pageSize,
		Timeout:  timeout,
		MaxPages: maxPages,
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	level, err := logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	pretty, err := strconv.ParseBool(getEnv("LOG_PRETTY", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_PRETTY: %w", err)
	}

	config.App = AppConfig{
		LogLevel:        level,
		LogPretty:       pretty,
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var problems []string

	if err := c.validateNamecheap(); err != nil {
		problems = append(problems, fmt.Sprintf("namecheap: %v", err))
	}
	if c.Redis.DB < 0 {
		problems = append(problems, "redis: REDIS_DB must be >= 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateNamecheap() error {
	nc := c.Namecheap
	if nc.APIUser == "" {
		return fmt.Errorf("NAMECHEAP_API_USER is required")
	}
	if nc.APIKey == "" {
		return fmt.Errorf("NAMECHEAP_API_KEY is required")
	}
	if nc.ClientIP == "" {
		return fmt.Errorf("NAMECHEAP_CLIENT_IP is required")
	}
	if net.ParseIP(nc.ClientIP) == nil {
		return fmt.Errorf("NAMECHEAP_CLIENT_IP %q is not an IP address", nc.ClientIP)
	}
	if nc.PageSize != 0 && (nc.PageSize < 10 || nc.PageSize > 100) {
		return fmt.Errorf("NAMECHEAP_PAGE_SIZE must be 0 or between 10 and 100")
	}
	if nc.Timeout <= 0 {
		return fmt.Errorf("NAMECHEAP_TIMEOUT must be greater than 0")
	}
	if nc.MaxPages < 0 {
		return fmt.Errorf("NAMECHEAP_MAX_PAGES must be >= 0")
	}
	return nil
}

// EndpointURL returns the explicit endpoint, or the sandbox or production
// endpoint depending on Sandbox.
func (c *Config) EndpointURL() string {
	switch {
	case c.Namecheap.Endpoint != "":
		return c.Namecheap.Endpoint
	case c.Namecheap.Sandbox:
		return client.SandboxEndpoint
	default:
		return client.DefaultEndpoint
	}
}

// Credentials returns the registrar credentials.
func (c *Config) Credentials() client.Credentials {
	return client.Credentials{
		APIUser:  c.Namecheap.APIUser,
		APIKey:   c.Namecheap.APIKey,
		UserName: c.Namecheap.UserName,
		ClientIP: c.Namecheap.ClientIP,
	}
}

// ClientConfig returns the page fetcher configuration. The caller sets Gate.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.Credentials())
	cfg.Endpoint = c.EndpointURL()
	cfg.PageSize = c.Namecheap.PageSize
	cfg.Timeout = c.Namecheap.Timeout
	return cfg
}

// PaginationConfig returns the listing walk configuration.
func (c *Config) PaginationConfig() pagination.Config {
	cfg := pagination.DefaultConfig()
	cfg.MaxPages = c.Namecheap.MaxPages
	return cfg
}

// RedisEnabled reports whether a call budget store is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
