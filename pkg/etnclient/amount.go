package etnclient

import (
	"fmt"
	"math/big"
)

// ParseUnits converts a decimal display amount like "4.975" to on-chain
// integer units at the given precision. The conversion is exact: an amount
// with more fractional digits than the asset supports is rejected rather
// than rounded.
func ParseUnits(display string, decimals uint8) (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(display)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", display)
	}
	if rat.Sign() <= 0 {
		return nil, fmt.Errorf("amount %q must be positive", display)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	if !scaled.IsInt() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", display, decimals)
	}
	return scaled.Num(), nil
}
