package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/registry"
)

// Config holds the configuration for the bridge service
type Config struct {
	Port                 string
	StacksAPIURL         string
	ContractAddress      string
	ContractName         string
	EtnRPCURL            string
	EtnChainID           int64
	PrivateKey           string
	MongoURI             string
	MongoDatabase        string
	StoreBackend         string
	FeeBps               int
	ConfirmationInterval time.Duration
	ConfirmationAttempts int
	ExecutionTimeout     time.Duration
	MonitorEnabled       bool
	MonitorInterval      time.Duration
	CircuitBreaker       CircuitBreakerConfig
	LoggerConfig         LoggerConfig
	Assets               []registry.Entry
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	port, err := GetEnvPort()
	if err != nil {
		return nil, err
	}

	stacksAPIURL, err := GetEnvStacksAPIURL()
	if err != nil {
		return nil, err
	}

	etnRPCURL, err := GetEnvEtnRPCURL()
	if err != nil {
		return nil, err
	}

	etnChainID, err := GetEnvEtnChainID()
	if err != nil {
		return nil, err
	}

	feeBps, err := GetEnvFeeBps()
	if err != nil {
		return nil, err
	}

	confirmationInterval, err := GetEnvConfirmationInterval()
	if err != nil {
		return nil, err
	}

	confirmationAttempts, err := GetEnvConfirmationAttempts()
	if err != nil {
		return nil, err
	}

	executionTimeout, err := GetEnvExecutionTimeout()
	if err != nil {
		return nil, err
	}

	monitorInterval, err := GetEnvMonitorInterval()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                 port,
		StacksAPIURL:         stacksAPIURL,
		ContractAddress:      getEnvDefault("STACKS_CONTRACT_ADDRESS", DefaultContractAddress),
		ContractName:         getEnvDefault("STACKS_CONTRACT_NAME", DefaultContractName),
		EtnRPCURL:            etnRPCURL,
		EtnChainID:           etnChainID,
		PrivateKey:           os.Getenv("ETN_PRIVATE_KEY"),
		MongoURI:             getEnvDefault("MONGO_URI", DefaultMongoURI),
		MongoDatabase:        getEnvDefault("MONGO_DATABASE", DefaultMongoDatabase),
		StoreBackend:         getEnvDefault("STORE_BACKEND", DefaultStoreBackend),
		FeeBps:               feeBps,
		ConfirmationInterval: confirmationInterval,
		ConfirmationAttempts: confirmationAttempts,
		ExecutionTimeout:     executionTimeout,
		MonitorEnabled:       os.Getenv("MONITOR_ENABLED") == "true",
		MonitorInterval:      monitorInterval,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
		Assets: GetEnvAssets(),
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.PrivateKey == "" {
		return fmt.Errorf("ETN_PRIVATE_KEY environment variable is required")
	}
	if cfg.StoreBackend != "mongo" && cfg.StoreBackend != "memory" {
		return fmt.Errorf("invalid STORE_BACKEND value: %s, must be 'mongo' or 'memory'", cfg.StoreBackend)
	}
	if len(cfg.Assets) == 0 {
		return fmt.Errorf("at least one asset registry entry is required")
	}
	return nil
}
