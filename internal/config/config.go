// Package config provides configuration management for Solclone.
//
// This package handles loading configuration from multiple sources:
//   - YAML configuration files
//   - Environment variables (with SC_ prefix)
//   - .env files
//   - Default values
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./configs/config.yaml, ~/.solclone/config.yaml, /etc/solclone/config.yaml)
//  3. .env files
//  4. Environment variables (SC_ prefix)
//
// # Usage Example
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Source org: %s\n", cfg.Source.URL)
//
// # Environment Variables
//
// Environment variables override all other configuration sources.
// Use SC_ prefix and underscores for nested keys:
//   - SC_SOURCE_URL=https://source.example.com
//   - SC_DESTINATION_TOKEN=abcdef
//   - SC_SERVER_PORT=8095
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for Solclone.
// It contains all configuration sections for the source and destination
// organizations, deployment behavior, the job API server, logging, and security.
type Config struct {
	// Source is the organization items are cloned from
	Source PortalConfig `mapstructure:"source"`

	// Destination is the organization items are cloned into
	Destination PortalConfig `mapstructure:"destination"`

	// Deploy contains deployment behavior settings
	Deploy DeployConfig `mapstructure:"deploy"`

	// Server contains job API server configuration
	Server ServerConfig `mapstructure:"server"`

	// Logging contains logging settings
	Logging LoggingConfig `mapstructure:"logging"`

	// Security contains security and rate limiting settings
	Security SecurityConfig `mapstructure:"security"`
}

// PortalConfig contains connection settings for one organization.
type PortalConfig struct {
	// URL is the organization URL (e.g. https://myorg.maps.arcgis.com)
	URL string `mapstructure:"url"`

	// Username for the organization account
	Username string `mapstructure:"username"`

	// Token is the access token used for every request
	Token string `mapstructure:"token"`

	// RateLimit is the maximum requests per second against the organization
	RateLimit float64 `mapstructure:"rate_limit"`

	// Timeout for individual API requests
	Timeout time.Duration `mapstructure:"timeout"`
}

// DeployConfig contains deployment behavior settings.
type DeployConfig struct {
	// SolutionName labels the destination folder created for a run
	SolutionName string `mapstructure:"solution_name"`

	// Folder is an existing destination folder id; when empty a new
	// folder is created per run
	Folder string `mapstructure:"folder"`
}

// ServerConfig contains job API server configuration.
type ServerConfig struct {
	// Host is the server bind address (default: localhost)
	Host string `mapstructure:"host"`

	// Port is the server listen port (default: 8095)
	Port int `mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading requests
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration for writing responses
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ShutdownTimeout is the maximum duration for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Debug enables debug logging
	Debug bool `mapstructure:"debug"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format"`

	// Output is the log output destination (stdout, file)
	Output string `mapstructure:"output"`
}

// SecurityConfig contains security and rate limiting settings.
type SecurityConfig struct {
	// RateLimit is the maximum API requests per second per client
	RateLimit int `mapstructure:"rate_limit"`

	// AllowedOrigins are the CORS allowed origins
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AuthEnabled enables JWT authentication on the job API
	AuthEnabled bool `mapstructure:"auth_enabled"`

	// JWTSecret is the secret key for signing JWT tokens
	JWTSecret string `mapstructure:"jwt_secret"`

	// JWTExpiration is the JWT token expiration duration (default: 24h)
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`
}

var cfg *Config

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for config.yaml in standard locations.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SC_ prefix)
//  2. .env file
//  3. Configuration file
//  4. Default values
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.solclone")
		v.AddConfigPath("/etc/solclone")
	}

	if err := v.ReadInConfig(); err != nil {
		// If config file was explicitly specified, fail on any error
		// If searching multiple paths, only fail on errors other than ConfigFileNotFoundError
		if cfgFile != "" {
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // Ignore error if .env file doesn't exist

	v.SetEnvPrefix("SC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", "https://www.arcgis.com")
	v.SetDefault("source.rate_limit", 20.0)
	v.SetDefault("source.timeout", "60s")

	v.SetDefault("destination.url", "https://www.arcgis.com")
	v.SetDefault("destination.rate_limit", 20.0)
	v.SetDefault("destination.timeout", "60s")

	v.SetDefault("deploy.solution_name", "Solution")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8095)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("security.rate_limit", 100)
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.auth_enabled", false)
	v.SetDefault("security.jwt_secret", "change-me-in-production")
	v.SetDefault("security.jwt_expiration", "24h")
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Source.URL == "" {
		return fmt.Errorf("source url is required")
	}

	if cfg.Destination.URL == "" {
		return fmt.Errorf("destination url is required")
	}

	if cfg.Source.RateLimit <= 0 {
		return fmt.Errorf("invalid source rate limit: %v", cfg.Source.RateLimit)
	}

	if cfg.Destination.RateLimit <= 0 {
		return fmt.Errorf("invalid destination rate limit: %v", cfg.Destination.RateLimit)
	}

	return nil
}

// Get returns the most recently loaded configuration.
func Get() *Config {
	return cfg
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
