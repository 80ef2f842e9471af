package clarity

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// Encode serializes a Clarity value to its wire format. It is the inverse of
// Decode and is used to build arguments for read-only contract calls.
func Encode(v Value) ([]byte, error) {
	var out []byte
	return appendValue(out, v)
}

// EncodeHex serializes a Clarity value and returns the 0x-prefixed hex form
// expected by the Stacks API.
func EncodeHex(v Value) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

// NewUInt builds a uint value from a uint64.
func NewUInt(n uint64) UInt {
	return UInt{Val: new(big.Int).SetUint64(n)}
}

func appendValue(out []byte, v Value) ([]byte, error) {
	switch e := v.(type) {
	case Int:
		out = append(out, tagInt)
		return append128(out, e.Val, true)
	case UInt:
		out = append(out, tagUInt)
		return append128(out, e.Val, false)
	case Buffer:
		out = append(out, tagBuffer)
		out = appendUint32(out, uint32(len(e.Val)))
		return append(out, e.Val...), nil
	case Bool:
		if e.Val {
			return append(out, tagBoolTrue), nil
		}
		return append(out, tagBoolFalse), nil
	case Response:
		if e.Ok {
			out = append(out, tagResponseOk)
		} else {
			out = append(out, tagResponseErr)
		}
		return appendValue(out, e.Val)
	case Optional:
		if e.Val == nil {
			return append(out, tagOptionalNone), nil
		}
		out = append(out, tagOptionalSome)
		return appendValue(out, e.Val)
	case List:
		out = append(out, tagList)
		out = appendUint32(out, uint32(len(e.Val)))
		var err error
		for _, item := range e.Val {
			if out, err = appendValue(out, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case Tuple:
		out = append(out, tagTuple)
		out = appendUint32(out, uint32(len(e.Val)))
		var err error
		for k, item := range e.Val {
			if len(k) > 0xff {
				return nil, fmt.Errorf("tuple key too long: %q", k)
			}
			out = append(out, byte(len(k)))
			out = append(out, k...)
			if out, err = appendValue(out, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case StringASCII:
		out = append(out, tagStringASCII)
		out = appendUint32(out, uint32(len(e.Val)))
		return append(out, e.Val...), nil
	case StringUTF8:
		out = append(out, tagStringUTF8)
		out = appendUint32(out, uint32(len(e.Val)))
		return append(out, e.Val...), nil
	}
	return nil, fmt.Errorf("cannot encode value of type %T", v)
}

func appendUint32(out []byte, n uint32) []byte {
	return append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func append128(out []byte, n *big.Int, signed bool) ([]byte, error) {
	v := new(big.Int).Set(n)
	if v.Sign() < 0 {
		if !signed {
			return nil, fmt.Errorf("negative value for uint: %s", n)
		}
		v.Add(v, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	if v.BitLen() > 128 {
		return nil, fmt.Errorf("value does not fit in 128 bits: %s", n)
	}
	b := v.Bytes()
	pad := make([]byte, 16-len(b))
	out = append(out, pad...)
	return append(out, b...), nil
}
