package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Dispatch DispatchConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// DispatchConfig holds the form platform's event webhook settings. An empty
// endpoint disables deferred-event delivery.
type DispatchConfig struct {
	EndpointURL string

	// SigningSecretName resolves through the secret manager to the HMAC key
	// used to sign event payloads. Empty disables signing.
	SigningSecretName string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int

	// ConfirmationURL is where the browser lands after an approved return,
	// typically the form platform's confirmation page.
	ConfirmationURL string

	// Per-IP rate limit on the public callback endpoints.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds Paystation merchant configuration.
type GatewayConfig struct {
	// EndpointURL is the gateway's initiation endpoint.
	EndpointURL string

	// AccountID is the Paystation ID assigned to the merchant.
	AccountID string

	// GatewayID is the default gateway id; feeds and mapped fields override it.
	GatewayID string

	// Currency is the ISO 4217 code sent with every initiation.
	Currency string

	// TestMode flags transactions as test traffic.
	TestMode bool

	// PostbackSecretName resolves through the secret manager to the shared
	// key the gateway appends to postback deliveries.
	PostbackSecretName string

	Timeout time.Duration
}

// SecretsConfig selects and configures the secret manager backend.
type SecretsConfig struct {
	// Backend is "env", "aws" or "vault".
	Backend string

	// EnvPrefix namespaces environment-backed secrets.
	EnvPrefix string

	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	VaultAddress   string
	VaultToken     string
	VaultMountPath string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:        getEnvAsInt("METRICS_PORT", 9090),
			ConfirmationURL:    getEnv("CONFIRMATION_URL", ""),
			RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "paystation_forms"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			EndpointURL:        getEnv("PAYSTATION_ENDPOINT_URL", "https://www.paystation.co.nz/direct/paystation.dll"),
			AccountID:          getEnv("PAYSTATION_ACCOUNT_ID", ""),
			GatewayID:          getEnv("PAYSTATION_GATEWAY_ID", ""),
			Currency:           getEnv("PAYSTATION_CURRENCY", "NZD"),
			TestMode:           getEnvAsBool("PAYSTATION_TEST_MODE", false),
			PostbackSecretName: getEnv("PAYSTATION_POSTBACK_SECRET_NAME", "paystation/postback-secret"),
			Timeout:            time.Duration(getEnvAsInt("PAYSTATION_TIMEOUT", 30)) * time.Second,
		},
		Dispatch: DispatchConfig{
			EndpointURL:       getEnv("DISPATCH_ENDPOINT_URL", ""),
			SigningSecretName: getEnv("DISPATCH_SIGNING_SECRET_NAME", ""),
		},
		Secrets: SecretsConfig{
			Backend:        getEnv("SECRETS_BACKEND", "env"),
			EnvPrefix:      getEnv("SECRETS_ENV_PREFIX", "SECRET"),
			AWSRegion:      getEnv("AWS_REGION", "ap-southeast-2"),
			AWSProfile:     getEnv("AWS_PROFILE", ""),
			AWSEndpoint:    getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:   getEnv("VAULT_ADDR", ""),
			VaultToken:     getEnv("VAULT_TOKEN", ""),
			VaultMountPath: getEnv("VAULT_MOUNT_PATH", "secret"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Gateway.AccountID == "" {
		return nil, fmt.Errorf("PAYSTATION_ACCOUNT_ID is required")
	}
	if cfg.Gateway.GatewayID == "" {
		return nil, fmt.Errorf("PAYSTATION_GATEWAY_ID is required")
	}
	switch cfg.Secrets.Backend {
	case "env", "aws":
	case "vault":
		if cfg.Secrets.VaultAddress == "" {
			return nil, fmt.Errorf("VAULT_ADDR is required for the vault secrets backend")
		}
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Secrets.Backend)
	}

	return cfg, nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
