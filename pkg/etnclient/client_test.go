package etnclient

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stxbridge/bridger/pkg/circuitbreaker"
	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.ElectroneumTestnet())
	require.NoError(t, err)
	return reg
}

// offlineClient builds a client with no RPC connection, for paths that must
// fail before any network call.
func offlineClient(t *testing.T, breaker *circuitbreaker.CircuitBreaker) *Client {
	t.Helper()
	return &Client{
		registry:    testRegistry(t),
		breaker:     breaker,
		execTimeout: time.Second,
		logger:      &logger.EmptyLogger{},
		decimals:    newDecimalsCache(time.Minute),
	}
}

func TestExecuteSwapLocalChecks(t *testing.T) {
	t.Run("unknown token fails before any network call", func(t *testing.T) {
		c := offlineClient(t, nil)
		_, err := c.ExecuteSwap(context.Background(), "DOGE", "0x1111111111111111111111111111111111111111", "1.5")
		var unsupported *UnsupportedAssetError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "DOGE", unsupported.Token)
	})

	t.Run("token lookup is case-insensitive", func(t *testing.T) {
		c := offlineClient(t, nil)
		// A known token gets past the registry check; the address check
		// rejects the call next, still without touching the network.
		_, err := c.ExecuteSwap(context.Background(), "susdc", "not-an-address", "1.5")
		var exec *ExecutionError
		require.ErrorAs(t, err, &exec)
		assert.Equal(t, "validate", exec.Stage)
	})

	t.Run("invalid destination address is rejected", func(t *testing.T) {
		c := offlineClient(t, nil)
		_, err := c.ExecuteSwap(context.Background(), "sUSDC", "not-an-address", "1.5")
		var exec *ExecutionError
		require.ErrorAs(t, err, &exec)
		assert.Equal(t, "validate", exec.Stage)
	})

	t.Run("malformed amount is rejected", func(t *testing.T) {
		c := offlineClient(t, nil)
		_, err := c.ExecuteSwap(context.Background(), "sUSDC", "0x1111111111111111111111111111111111111111", "abc")
		var exec *ExecutionError
		require.ErrorAs(t, err, &exec)
		assert.Equal(t, "validate", exec.Stage)
	})

	t.Run("open circuit breaker refuses to send", func(t *testing.T) {
		breaker := circuitbreaker.NewCircuitBreaker(true, 1, time.Minute, time.Hour, nil)
		breaker.RecordFailure() // trips immediately at threshold 1

		c := offlineClient(t, breaker)
		_, err := c.ExecuteSwap(context.Background(), "sUSDC", "0x1111111111111111111111111111111111111111", "1.5")
		var exec *ExecutionError
		require.ErrorAs(t, err, &exec)
		assert.Equal(t, "circuit", exec.Stage)
	})
}

func TestTokenBalance(t *testing.T) {
	t.Run("unknown asset fails before any network call", func(t *testing.T) {
		c := offlineClient(t, nil)
		_, _, err := c.TokenBalance(context.Background(), "DOGE")
		var unsupported *UnsupportedAssetError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "DOGE", unsupported.Token)
	})
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		display  string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{name: "whole number", display: "10", decimals: 18, want: "10000000000000000000"},
		{name: "fee-adjusted amount is exact", display: "4.975", decimals: 18, want: "4975000000000000000"},
		{name: "six decimal token", display: "4.975", decimals: 6, want: "4975000"},
		{name: "full precision", display: "0.000000000000000001", decimals: 18, want: "1"},
		{name: "too many decimal places", display: "0.1234567", decimals: 6, wantErr: true},
		{name: "zero rejected", display: "0", decimals: 18, wantErr: true},
		{name: "negative rejected", display: "-1", decimals: 18, wantErr: true},
		{name: "garbage rejected", display: "1.2.3", decimals: 18, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnits(tt.display, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, ok := new(big.Int).SetString(tt.want, 10)
			require.True(t, ok)
			assert.Zero(t, got.Cmp(want))
		})
	}
}

func TestDecimalsCache(t *testing.T) {
	t.Run("set then get", func(t *testing.T) {
		c := newDecimalsCache(time.Minute)
		c.Set("0xABCD", 18)
		got, ok := c.Get("0xabcd") // address match is case-insensitive
		require.True(t, ok)
		assert.Equal(t, uint8(18), got)
	})

	t.Run("expired entry misses", func(t *testing.T) {
		c := newDecimalsCache(time.Nanosecond)
		c.Set("0xabcd", 18)
		time.Sleep(time.Millisecond)
		_, ok := c.Get("0xabcd")
		assert.False(t, ok)
	})
}
