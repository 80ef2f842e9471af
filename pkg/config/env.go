package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/registry"
)

const (
	// DefaultPort defines the default port for the HTTP server
	DefaultPort = "4000"

	// DefaultStacksAPIURL defines the default Stacks indexer endpoint
	DefaultStacksAPIURL = "https://api.testnet.hiro.so"

	// DefaultContractAddress is the escrow contract deployer address
	DefaultContractAddress = "ST23JSMGR5933QJ329PKPNNQJV6QG8Z9D33QBYDNX"

	// DefaultContractName is the escrow contract name
	DefaultContractName = "escrow-swap-v2"

	// DefaultEtnRPCURL defines the default Electroneum RPC endpoint
	DefaultEtnRPCURL = "https://rpc.ankr.com/electroneum_testnet"

	// DefaultEtnChainID is the Electroneum testnet chain ID
	DefaultEtnChainID = 5201420

	// DefaultMongoURI defines the default order store connection string
	DefaultMongoURI = "mongodb://localhost:27017"

	// DefaultMongoDatabase defines the default order store database name
	DefaultMongoDatabase = "bridge"

	// DefaultStoreBackend selects the order store implementation
	DefaultStoreBackend = "mongo"

	// DefaultFeeBps is the protocol fee withheld from every swap, in basis points
	DefaultFeeBps = 50

	// DefaultConfirmationInterval defines the poll interval for source-chain confirmation in seconds
	DefaultConfirmationInterval = 5

	// DefaultConfirmationAttempts defines the maximum confirmation poll attempts
	DefaultConfirmationAttempts = 30

	// DefaultExecutionTimeout bounds a single destination-chain submission plus receipt wait
	DefaultExecutionTimeout = "3m"

	// DefaultMonitorInterval defines the order-count monitor poll interval in seconds
	DefaultMonitorInterval = 30

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker in seconds
	DefaultCircuitBreakerWindow = 5

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker in seconds
	DefaultCircuitBreakerReset = 15
)

// GetEnvPort returns the HTTP server port from environment variables
func GetEnvPort() (string, error) {
	port := os.Getenv("PORT")
	if port == "" {
		return DefaultPort, nil
	}

	// Validate port format
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid PORT value: %s, must be a valid integer", port)
	}
	return port, nil
}

// GetEnvStacksAPIURL returns the Stacks indexer endpoint from environment variables
func GetEnvStacksAPIURL() (string, error) {
	apiURL := os.Getenv("STACKS_API_URL")
	if apiURL == "" {
		return DefaultStacksAPIURL, nil
	}

	// Validate URL format
	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return "", fmt.Errorf("invalid STACKS_API_URL value: %s, must be a valid URL", apiURL)
	}
	return apiURL, nil
}

// GetEnvEtnRPCURL returns the Electroneum RPC endpoint from environment variables
func GetEnvEtnRPCURL() (string, error) {
	rpcURL := os.Getenv("ETN_RPC_URL")
	if rpcURL == "" {
		return DefaultEtnRPCURL, nil
	}

	if _, err := url.ParseRequestURI(rpcURL); err != nil {
		return "", fmt.Errorf("invalid ETN_RPC_URL value: %s, must be a valid URL", rpcURL)
	}
	return rpcURL, nil
}

// GetEnvEtnChainID returns the Electroneum chain ID from environment variables
func GetEnvEtnChainID() (int64, error) {
	chainID := os.Getenv("ETN_CHAIN_ID")
	if chainID == "" {
		return DefaultEtnChainID, nil
	}

	id, err := strconv.ParseInt(chainID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ETN_CHAIN_ID value: %s, must be an integer", chainID)
	}
	if id <= 0 {
		return 0, fmt.Errorf("ETN_CHAIN_ID must be greater than 0")
	}
	return id, nil
}

// GetEnvFeeBps returns the protocol fee in basis points from environment variables
func GetEnvFeeBps() (int, error) {
	feeBps := os.Getenv("FEE_BPS")
	if feeBps == "" {
		return DefaultFeeBps, nil
	}

	bps, err := strconv.Atoi(feeBps)
	if err != nil {
		return 0, fmt.Errorf("invalid FEE_BPS value: %s, must be an integer", feeBps)
	}
	if bps < 0 || bps >= 10000 {
		return 0, fmt.Errorf("FEE_BPS must be between 0 and 9999")
	}
	return bps, nil
}

// GetEnvConfirmationInterval returns the confirmation poll interval from environment variables
func GetEnvConfirmationInterval() (time.Duration, error) {
	interval := os.Getenv("CONFIRMATION_INTERVAL")
	if interval == "" {
		return time.Duration(DefaultConfirmationInterval) * time.Second, nil
	}

	// use atoi
	seconds, err := strconv.Atoi(interval)
	if err != nil {
		return 0, fmt.Errorf("invalid CONFIRMATION_INTERVAL value: %s, must be an integer", interval)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("CONFIRMATION_INTERVAL must be greater than 0")
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetEnvConfirmationAttempts returns the maximum confirmation attempts from environment variables
func GetEnvConfirmationAttempts() (int, error) {
	attempts := os.Getenv("CONFIRMATION_ATTEMPTS")
	if attempts == "" {
		return DefaultConfirmationAttempts, nil
	}

	count, err := strconv.Atoi(attempts)
	if err != nil {
		return 0, fmt.Errorf("invalid CONFIRMATION_ATTEMPTS value: %s, must be an integer", attempts)
	}
	if count <= 0 {
		return 0, fmt.Errorf("CONFIRMATION_ATTEMPTS must be greater than 0")
	}
	return count, nil
}

// GetEnvExecutionTimeout returns the destination execution timeout from environment variables
func GetEnvExecutionTimeout() (time.Duration, error) {
	timeout := os.Getenv("EXECUTION_TIMEOUT")
	if timeout == "" {
		timeout = DefaultExecutionTimeout
	}

	// Validate duration format
	parsed, err := time.ParseDuration(timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid EXECUTION_TIMEOUT value: %s, must be a valid duration string", timeout)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("EXECUTION_TIMEOUT must be greater than 0")
	}
	return parsed, nil
}

// GetEnvMonitorInterval returns the order-count monitor interval from environment variables
func GetEnvMonitorInterval() (time.Duration, error) {
	interval := os.Getenv("MONITOR_INTERVAL")
	if interval == "" {
		return time.Duration(DefaultMonitorInterval) * time.Second, nil
	}

	seconds, err := strconv.Atoi(interval)
	if err != nil {
		return 0, fmt.Errorf("invalid MONITOR_INTERVAL value: %s, must be an integer", interval)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("MONITOR_INTERVAL must be greater than 0")
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	enabled := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if enabled == "" {
		return DefaultCircuitBreakerEnabled, nil
	}

	if enabled == "true" {
		return true, nil
	} else if enabled == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid CIRCUIT_BREAKER_ENABLED value: %s, must be 'true' or 'false'", enabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	window := os.Getenv("CIRCUIT_BREAKER_WINDOW")
	if window == "" {
		return DefaultCircuitBreakerWindow * time.Second, nil
	}

	// Validate duration format
	parsed, err := time.ParseDuration(window)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_WINDOW value: %s, must be a valid duration string", window)
	}
	return parsed, nil
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	reset := os.Getenv("CIRCUIT_BREAKER_RESET")
	if reset == "" {
		return DefaultCircuitBreakerReset * time.Second, nil
	}

	// Validate duration format
	parsed, err := time.ParseDuration(reset)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_RESET value: %s, must be a valid duration string", reset)
	}
	return parsed, nil
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(level) {
	case "":
		return logger.InfoLevel, nil
	case "debug":
		return logger.DebugLevel, nil
	case "info":
		return logger.InfoLevel, nil
	case "notice":
		return logger.NoticeLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL value: %s, must be 'debug', 'info', 'notice' or 'error'", level)
}

// GetEnvLogColoring returns whether log coloring is enabled from environment variables
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" {
		return false, nil
	}

	if coloring == "true" {
		return true, nil
	} else if coloring == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be 'true' or 'false'", coloring)
}

// GetEnvAssets returns the destination asset registry entries, starting from
// the baked-in testnet set with per-asset address overrides from environment
// variables of the form ASSET_<SYMBOL>_ADDRESS.
func GetEnvAssets() []registry.Entry {
	entries := registry.ElectroneumTestnet()
	for i, entry := range entries {
		envVarName := fmt.Sprintf("ASSET_%s_ADDRESS", strings.ToUpper(entry.Symbol))
		if val := os.Getenv(envVarName); val != "" && common.IsHexAddress(val) {
			entries[i].Address = val
		}
	}
	return entries
}

// getEnvDefault returns the environment variable value or a default
func getEnvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
