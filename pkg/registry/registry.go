// Package registry holds the static mapping from symbolic asset names to
// their on-chain addresses and decimal precision on the destination chain.
package registry

import (
	"fmt"
	"strings"
)

// NativeMarker is the address used for the chain's native asset.
const NativeMarker = "0x0000000000000000000000000000000000000000"

// Entry describes one bridgeable asset on the destination chain.
type Entry struct {
	Symbol   string
	Address  string
	Decimals uint8
	Name     string
}

// Native reports whether the entry denotes the chain's native asset.
func (e Entry) Native() bool {
	return strings.EqualFold(e.Address, NativeMarker)
}

// Registry is the immutable symbol → entry mapping, loaded at startup.
type Registry struct {
	entries map[string]Entry
}

// New builds a registry from a list of entries. Symbols are matched
// case-insensitively; duplicate symbols are rejected.
func New(entries []Entry) (*Registry, error) {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		key := strings.ToUpper(e.Symbol)
		if _, exists := m[key]; exists {
			return nil, fmt.Errorf("duplicate asset symbol: %s", e.Symbol)
		}
		m[key] = e
	}
	return &Registry{entries: m}, nil
}

// Lookup resolves a symbolic asset name.
func (r *Registry) Lookup(symbol string) (Entry, bool) {
	e, ok := r.entries[strings.ToUpper(symbol)]
	return e, ok
}

// Symbols returns the registered symbols, for logs and the status endpoint.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Symbol)
	}
	return out
}

// ElectroneumTestnet returns the default asset set for the Electroneum
// testnet deployment.
func ElectroneumTestnet() []Entry {
	return []Entry{
		{Symbol: "ETN", Address: NativeMarker, Decimals: 18, Name: "Electroneum"},
		{Symbol: "sUSDC", Address: "0x38334FE9b4e7D2A7e92372B446a9820E8eF3Df3d", Decimals: 18, Name: "Stacks USDC"},
		{Symbol: "sUSDT", Address: "0x09cF09d871b26984f052E7631EaCBA9df089E3dA", Decimals: 18, Name: "Stacks USDT"},
		{Symbol: "sBNB", Address: "0x9F1DA3Fe5C5C7bEd3793FCC71B4B9eB461251d30", Decimals: 18, Name: "Stacks BNB"},
		{Symbol: "sETH", Address: "0xA50B70C81F2CccDa119809274EB205c453A23fb5", Decimals: 18, Name: "Stacks ETH"},
	}
}
