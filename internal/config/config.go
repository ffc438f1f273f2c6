// Package config provides configuration management for the wallet flow tracker.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Lookup    LookupConfig
	Pipeline  PipelineConfig
	Logging   LoggingConfig
}

// ServerConfig holds reporting API server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration (wallet registry)
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration (flow/PnL history)
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration (address-kind cache)
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// LookupConfig holds contract-lookup collaborator configuration
type LookupConfig struct {
	// RPCEndpoint is the JSON-RPC node used for code-presence checks.
	RPCEndpoint string
	// EtherscanAPIKey enables the rate-limited fallback lookup.
	EtherscanAPIKey string
	// EtherscanRPS caps fallback requests per second.
	EtherscanRPS int
	// CacheTTL bounds how long Contract/ExternalWallet kinds stay cached.
	CacheTTL time.Duration
	// Timeout bounds a single lookup call.
	Timeout time.Duration
}

// PipelineConfig holds classification and PnL pipeline tuning
type PipelineConfig struct {
	// InternalBalanceEpsilonUSD is the tolerance for the internal-balance-zero
	// invariant check.
	InternalBalanceEpsilonUSD string
	// SwapValueTolerance is the relative tolerance when pairing swap legs.
	SwapValueTolerance float64
	// SwapAbsoluteToleranceUSD applies when one leg has no USD value.
	SwapAbsoluteToleranceUSD string
	// TopPerformers is how many top/bottom positions reports carry.
	TopPerformers int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "flow_tracker"),
				User:           getEnv("POSTGRES_USER", "tracker"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "flow_tracker"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Lookup: LookupConfig{
			RPCEndpoint:     getEnv("ETHEREUM_RPC_PRIMARY", ""),
			EtherscanAPIKey: getEnv("ETHERSCAN_API_KEY", ""),
			EtherscanRPS:    getEnvAsInt("ETHERSCAN_RPS", 4),
			CacheTTL:        getEnvAsDuration("LOOKUP_CACHE_TTL", 24*time.Hour),
			Timeout:         getEnvAsDuration("LOOKUP_TIMEOUT", 10*time.Second),
		},
		Pipeline: PipelineConfig{
			InternalBalanceEpsilonUSD: getEnv("INTERNAL_BALANCE_EPSILON_USD", "0.01"),
			SwapValueTolerance:        getEnvAsFloat("SWAP_VALUE_TOLERANCE", 0.15),
			SwapAbsoluteToleranceUSD:  getEnv("SWAP_ABSOLUTE_TOLERANCE_USD", "10"),
			TopPerformers:             getEnvAsInt("TOP_PERFORMERS", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if config.Database.Postgres.MaxConnections <= 0 {
		return nil, fmt.Errorf("POSTGRES_MAX_CONNECTIONS must be positive")
	}

	return config, nil
}

// PostgresURL returns the migration-style connection URL.
func (c *PostgresConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
