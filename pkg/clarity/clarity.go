// Package clarity decodes serialized Clarity values, the binary encoding used
// by Stacks smart contract logs and read-only call results.
package clarity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Type tags of the Clarity wire format.
const (
	tagInt               = 0x00
	tagUInt              = 0x01
	tagBuffer            = 0x02
	tagBoolTrue          = 0x03
	tagBoolFalse         = 0x04
	tagStandardPrincipal = 0x05
	tagContractPrincipal = 0x06
	tagResponseOk        = 0x07
	tagResponseErr       = 0x08
	tagOptionalNone      = 0x09
	tagOptionalSome      = 0x0a
	tagList              = 0x0b
	tagTuple             = 0x0c
	tagStringASCII       = 0x0d
	tagStringUTF8        = 0x0e
)

// Value is a decoded Clarity value.
type Value interface {
	// String renders the value the way the Stacks tooling does, for logs.
	String() string
}

// Int is a 128-bit signed integer.
type Int struct{ Val *big.Int }

// UInt is a 128-bit unsigned integer.
type UInt struct{ Val *big.Int }

// Buffer is a raw byte buffer.
type Buffer struct{ Val []byte }

// Bool is a boolean.
type Bool struct{ Val bool }

// Principal is a standard or contract principal, rendered in c32check form.
type Principal struct{ Val string }

// Response wraps an ok/err result value.
type Response struct {
	Ok  bool
	Val Value
}

// Optional wraps an optional value; Val is nil for none.
type Optional struct{ Val Value }

// List is an ordered sequence of values.
type List struct{ Val []Value }

// Tuple is a named collection of values.
type Tuple struct{ Val map[string]Value }

// StringASCII is an ASCII string.
type StringASCII struct{ Val string }

// StringUTF8 is a UTF-8 string.
type StringUTF8 struct{ Val string }

func (v Int) String() string       { return v.Val.String() }
func (v UInt) String() string      { return "u" + v.Val.String() }
func (v Buffer) String() string    { return "0x" + hex.EncodeToString(v.Val) }
func (v Bool) String() string      { return fmt.Sprintf("%t", v.Val) }
func (v Principal) String() string { return v.Val }
func (v Response) String() string {
	if v.Ok {
		return fmt.Sprintf("(ok %s)", v.Val)
	}
	return fmt.Sprintf("(err %s)", v.Val)
}
func (v Optional) String() string {
	if v.Val == nil {
		return "none"
	}
	return fmt.Sprintf("(some %s)", v.Val)
}
func (v List) String() string {
	parts := make([]string, len(v.Val))
	for i, e := range v.Val {
		parts[i] = e.String()
	}
	return "(list " + strings.Join(parts, " ") + ")"
}
func (v Tuple) String() string {
	parts := make([]string, 0, len(v.Val))
	for k, e := range v.Val {
		parts = append(parts, fmt.Sprintf("(%s %s)", k, e))
	}
	return "(tuple " + strings.Join(parts, " ") + ")"
}
func (v StringASCII) String() string { return fmt.Sprintf("%q", v.Val) }
func (v StringUTF8) String() string  { return fmt.Sprintf("u%q", v.Val) }

// UintField extracts an unsigned integer field from a tuple. Digit-only
// string fields are accepted too, since some contracts log amounts as strings.
func (v Tuple) UintField(name string) (uint64, bool) {
	entry, ok := v.Val[name]
	if !ok {
		return 0, false
	}
	switch e := entry.(type) {
	case UInt:
		if !e.Val.IsUint64() {
			return 0, false
		}
		return e.Val.Uint64(), true
	case Int:
		if e.Val.Sign() < 0 || !e.Val.IsUint64() {
			return 0, false
		}
		return e.Val.Uint64(), true
	case StringASCII:
		n, ok := new(big.Int).SetString(e.Val, 10)
		if !ok || n.Sign() < 0 || !n.IsUint64() {
			return 0, false
		}
		return n.Uint64(), true
	}
	return 0, false
}

// StringField extracts a string-valued field from a tuple. Principals decode
// to their c32check form, integers to their decimal form.
func (v Tuple) StringField(name string) (string, bool) {
	entry, ok := v.Val[name]
	if !ok {
		return "", false
	}
	switch e := entry.(type) {
	case StringASCII:
		return e.Val, true
	case StringUTF8:
		return e.Val, true
	case Principal:
		return e.Val, true
	case UInt:
		return e.Val.String(), true
	case Int:
		return e.Val.String(), true
	}
	return "", false
}

// DecodeHex decodes a 0x-prefixed hex encoding of a serialized Clarity value.
func DecodeHex(s string) (Value, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex encoding: %w", err)
	}
	return Decode(b)
}

// Decode decodes a serialized Clarity value. Trailing bytes are rejected.
func Decode(b []byte) (Value, error) {
	r := &reader{buf: b}
	v, err := r.value()
	if err != nil {
		return nil, err
	}
	if r.pos != len(r.buf) {
		return nil, fmt.Errorf("trailing bytes after value: %d unread", len(r.buf)-r.pos)
	}
	return v, nil
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("truncated value: need %d bytes at offset %d", n, r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint32be() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (r *reader) value() (Value, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagInt:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(b)
		// two's complement for negative 128-bit values
		if b[0]&0x80 != 0 {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), 128))
		}
		return Int{Val: n}, nil

	case tagUInt:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		return UInt{Val: new(big.Int).SetBytes(b)}, nil

	case tagBuffer:
		n, err := r.uint32be()
		if err != nil {
			return nil, err
		}
		b, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		copy(out, b)
		return Buffer{Val: out}, nil

	case tagBoolTrue:
		return Bool{Val: true}, nil
	case tagBoolFalse:
		return Bool{Val: false}, nil

	case tagStandardPrincipal:
		addr, err := r.principal()
		if err != nil {
			return nil, err
		}
		return Principal{Val: addr}, nil

	case tagContractPrincipal:
		addr, err := r.principal()
		if err != nil {
			return nil, err
		}
		nameLen, err := r.byte()
		if err != nil {
			return nil, err
		}
		name, err := r.take(int(nameLen))
		if err != nil {
			return nil, err
		}
		return Principal{Val: addr + "." + string(name)}, nil

	case tagResponseOk, tagResponseErr:
		inner, err := r.value()
		if err != nil {
			return nil, err
		}
		return Response{Ok: tag == tagResponseOk, Val: inner}, nil

	case tagOptionalNone:
		return Optional{}, nil

	case tagOptionalSome:
		inner, err := r.value()
		if err != nil {
			return nil, err
		}
		return Optional{Val: inner}, nil

	case tagList:
		n, err := r.uint32be()
		if err != nil {
			return nil, err
		}
		items := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			item, err := r.value()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return List{Val: items}, nil

	case tagTuple:
		n, err := r.uint32be()
		if err != nil {
			return nil, err
		}
		entries := make(map[string]Value, n)
		for i := uint32(0); i < n; i++ {
			keyLen, err := r.byte()
			if err != nil {
				return nil, err
			}
			key, err := r.take(int(keyLen))
			if err != nil {
				return nil, err
			}
			val, err := r.value()
			if err != nil {
				return nil, err
			}
			entries[string(key)] = val
		}
		return Tuple{Val: entries}, nil

	case tagStringASCII:
		n, err := r.uint32be()
		if err != nil {
			return nil, err
		}
		b, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		return StringASCII{Val: string(b)}, nil

	case tagStringUTF8:
		n, err := r.uint32be()
		if err != nil {
			return nil, err
		}
		b, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		return StringUTF8{Val: string(b)}, nil
	}

	return nil, fmt.Errorf("unknown clarity type tag 0x%02x at offset %d", tag, r.pos-1)
}

// principal reads a version byte and hash160 and renders the c32check address.
func (r *reader) principal() (string, error) {
	version, err := r.byte()
	if err != nil {
		return "", err
	}
	hash, err := r.take(20)
	if err != nil {
		return "", err
	}
	return c32Address(version, hash), nil
}

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// c32Address renders a principal as a c32check address string, e.g. "SP…"
// for mainnet single-sig (version 22) or "ST…" for testnet (version 26).
func c32Address(version byte, hash160 []byte) string {
	sum := checksum(version, hash160)
	payload := make([]byte, 0, len(hash160)+4)
	payload = append(payload, hash160...)
	payload = append(payload, sum...)
	return "S" + string(c32Alphabet[version&0x1f]) + c32Encode(payload)
}

func checksum(version byte, hash160 []byte) []byte {
	h1 := sha256.Sum256(append([]byte{version}, hash160...))
	h2 := sha256.Sum256(h1[:])
	return h2[:4]
}

// c32Encode encodes bytes in Crockford-style base32, preserving leading zero
// bytes as leading '0' characters.
func c32Encode(b []byte) string {
	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(b)
	base := big.NewInt(32)
	mod := new(big.Int)
	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, c32Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, '0')
	}

	// digits were produced least-significant first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
