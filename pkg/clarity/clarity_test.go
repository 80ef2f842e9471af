package clarity

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePrimitives(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"uint", NewUInt(5000000), "u5000000"},
		{"uint_zero", NewUInt(0), "u0"},
		{"int_positive", Int{Val: big.NewInt(42)}, "42"},
		{"int_negative", Int{Val: big.NewInt(-42)}, "-42"},
		{"bool_true", Bool{Val: true}, "true"},
		{"bool_false", Bool{Val: false}, "false"},
		{"buffer", Buffer{Val: []byte{0xde, 0xad}}, "0xdead"},
		{"string_ascii", StringASCII{Val: "electroneum"}, `"electroneum"`},
		{"string_utf8", StringUTF8{Val: "sUSDC"}, `u"sUSDC"`},
		{"optional_none", Optional{}, "none"},
		{"optional_some", Optional{Val: NewUInt(7)}, "(some u7)"},
		{"response_ok", Response{Ok: true, Val: NewUInt(3)}, "(ok u3)"},
		{"response_err", Response{Ok: false, Val: NewUInt(1)}, "(err u1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.value)
			require.NoError(t, err)

			decoded, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decoded.String())
		})
	}
}

func TestDecodeTuple(t *testing.T) {
	payload := Tuple{Val: map[string]Value{
		"order-id":            NewUInt(7),
		"stx-amount":          NewUInt(5000000),
		"expected-amount":     NewUInt(5000000),
		"destination-chain":   StringASCII{Val: "electroneum"},
		"destination-address": StringASCII{Val: "0x7c4EabAF4A320fd5B28Fb2cf49B2cB352e1A05Bb"},
		"destination-token":   StringASCII{Val: "sUSDC"},
	}}

	hexStr, err := EncodeHex(payload)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hexStr, "0x"))

	decoded, err := DecodeHex(hexStr)
	require.NoError(t, err)

	tuple, ok := decoded.(Tuple)
	require.True(t, ok, "expected a tuple, got %T", decoded)

	orderID, ok := tuple.UintField("order-id")
	require.True(t, ok)
	assert.Equal(t, uint64(7), orderID)

	chain, ok := tuple.StringField("destination-chain")
	require.True(t, ok)
	assert.Equal(t, "electroneum", chain)

	token, ok := tuple.StringField("destination-token")
	require.True(t, ok)
	assert.Equal(t, "sUSDC", token)

	// missing field
	_, ok = tuple.UintField("no-such-key")
	assert.False(t, ok)
}

func TestTupleFieldCoercion(t *testing.T) {
	tuple := Tuple{Val: map[string]Value{
		"amount-as-string": StringASCII{Val: "5000000"},
		"id-as-uint":       NewUInt(7),
		"junk":             Bool{Val: true},
	}}

	// digit strings coerce to uint
	n, ok := tuple.UintField("amount-as-string")
	require.True(t, ok)
	assert.Equal(t, uint64(5000000), n)

	// uints coerce to their decimal string
	s, ok := tuple.StringField("id-as-uint")
	require.True(t, ok)
	assert.Equal(t, "7", s)

	_, ok = tuple.UintField("junk")
	assert.False(t, ok)
	_, ok = tuple.StringField("junk")
	assert.False(t, ok)
}

func TestDecodeIdempotent(t *testing.T) {
	payload := Tuple{Val: map[string]Value{
		"order-id":        NewUInt(7),
		"expected-amount": NewUInt(5000000),
	}}
	b, err := Encode(payload)
	require.NoError(t, err)

	first, err := Decode(b)
	require.NoError(t, err)
	second, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodePrincipal(t *testing.T) {
	// standard principal: tag, version, 20-byte hash160
	raw := append([]byte{0x05, 26}, make([]byte, 20)...)
	v, err := Decode(raw)
	require.NoError(t, err)

	p, ok := v.(Principal)
	require.True(t, ok)
	// version 26 is the testnet single-sig prefix
	assert.True(t, strings.HasPrefix(p.Val, "ST"), "got %s", p.Val)

	// encoding is deterministic and sensitive to the hash
	hash := make([]byte, 20)
	hash[19] = 0x01
	other, err := Decode(append([]byte{0x05, 26}, hash...))
	require.NoError(t, err)
	assert.NotEqual(t, p.Val, other.(Principal).Val)

	// contract principal carries its name
	contract := append([]byte{0x06, 26}, make([]byte, 20)...)
	contract = append(contract, byte(len("escrow-swap-v2")))
	contract = append(contract, "escrow-swap-v2"...)
	v, err = Decode(contract)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(v.(Principal).Val, ".escrow-swap-v2"))
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"unknown_tag", []byte{0xff}},
		{"truncated_uint", []byte{0x01, 0x00}},
		{"truncated_string", []byte{0x0d, 0x00, 0x00, 0x00, 0x10, 'a'}},
		{"trailing_bytes", append([]byte{0x03}, 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestDecodeHexRejectsGarbage(t *testing.T) {
	_, err := DecodeHex("0xzz")
	assert.Error(t, err)
}
