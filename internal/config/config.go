package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Tracker  TrackerConfig
	Registry RegistryConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port               string
	Host               string
	ReadTimeout        int
	WriteTimeout       int
	IdleTimeout        int
	CORSAllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver      string
	DSN         string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// GitHubConfig holds source-control API configuration
type GitHubConfig struct {
	APIURL  string
	Token   string
	Timeout int
}

// TrackerConfig holds deployment tracker timing
type TrackerConfig struct {
	// CompletionDelayMS of zero selects the tracker's default delay
	CompletionDelayMS int
	CompletionTimeout int
}

// RegistryConfig caps how many apps and repositories are held in memory
type RegistryConfig struct {
	MaxApps  int
	MaxRepos int
}

// AuthConfig holds API authentication configuration.
// An empty JWTSecret disables authentication.
type AuthConfig struct {
	JWTSecret string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	LoadDotEnv()

	config := &Config{
		Server: ServerConfig{
			Port:               getEnv("SERVER_PORT", "8080"),
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:        getEnvAsInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:       getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:        getEnvAsInt("SERVER_IDLE_TIMEOUT", 120),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", ",", []string{"*"}),
		},
		Database: DatabaseFromEnv(),
		GitHub:   GitHubFromEnv(),
		Tracker: TrackerConfig{
			CompletionDelayMS: getEnvAsInt("DEPLOY_COMPLETION_DELAY_MS", 3000),
			CompletionTimeout: getEnvAsInt("DEPLOY_COMPLETION_TIMEOUT", 10),
		},
		Registry: RegistryConfig{
			MaxApps:  getEnvAsInt("REGISTRY_MAX_APPS", 1000),
			MaxRepos: getEnvAsInt("REGISTRY_MAX_REPOS", 256),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		Log: LogFromEnv(),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads a .env file from the working directory when one exists
func LoadDotEnv() {
	_ = godotenv.Load()
}

// DatabaseFromEnv reads the database section alone
func DatabaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Driver:      getEnv("DB_DRIVER", DriverPostgres),
		DSN:         getEnv("DB_DSN", ""),
		MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
		MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
		AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
	}
}

// GitHubFromEnv reads the GitHub section alone
func GitHubFromEnv() GitHubConfig {
	return GitHubConfig{
		APIURL:  getEnv("GITHUB_API_URL", "https://api.github.com/"),
		Token:   getEnv("GITHUB_TOKEN", ""),
		Timeout: getEnvAsInt("GITHUB_TIMEOUT", 30),
	}
}

// LogFromEnv reads the logging section alone
func LogFromEnv() LogConfig {
	return LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required when DB_DRIVER=%s", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (must be %s or %s)", c.Database.Driver, DriverPostgres, DriverMemory)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.Tracker.CompletionDelayMS < 0 {
		return fmt.Errorf("DEPLOY_COMPLETION_DELAY_MS must not be negative")
	}
	if c.Tracker.CompletionTimeout <= 0 {
		return fmt.Errorf("DEPLOY_COMPLETION_TIMEOUT must be positive")
	}
	if c.Registry.MaxApps <= 0 || c.Registry.MaxRepos <= 0 {
		return fmt.Errorf("REGISTRY_MAX_APPS and REGISTRY_MAX_REPOS must be positive")
	}
	if c.GitHub.APIURL == "" {
		return fmt.Errorf("GITHUB_API_URL is required")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q (must be text or json)", c.Log.Format)
	}
	return nil
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// CompletionDelay is the simulated deployment pipeline duration
func (c *TrackerConfig) CompletionDelay() time.Duration {
	return time.Duration(c.CompletionDelayMS) * time.Millisecond
}

// CompletionWriteTimeout bounds the delayed backend write
func (c *TrackerConfig) CompletionWriteTimeout() time.Duration {
	return time.Duration(c.CompletionTimeout) * time.Second
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getEnvAsBool gets an environment variable as boolean with a fallback value
func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getEnvAsSlice gets an environment variable as slice with a fallback value
func getEnvAsSlice(key, separator string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, separator)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return fallback
}
