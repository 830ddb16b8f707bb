// Package value holds the remote store's value type as seen by the local mirror.
//
// A Value is either null (missing remotely), an integer, or a binary-safe string.
// Values are comparable, so they can be used directly as map keys and compared with ==.
package value

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInteger
)

// Value is a single remote value. The zero value is Null.
type Value struct {
	kind Kind
	s    string
	n    int64
}

func Null() Value               { return Value{} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value      { return Value{kind: KindString, s: string(b)} }
func Int(n int64) Value         { return Value{kind: KindInteger, n: n} }
func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsInteger() bool { return v.kind == KindInteger }

// String renders the value the way the remote store would return it.
// Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.n, 10)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Bytes returns a fresh copy of the value's textual form.
func (v Value) Bytes() []byte { return []byte(v.String()) }

// Int64 returns the integer form. Strings are parsed; null reports false.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.n, true
	case KindString:
		n, err := strconv.ParseInt(v.s, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Len is the length of the textual form.
func (v Value) Len() int { return len(v.String()) }

// FromAny converts a reply element as returned by go-redis (nil, string, []byte, int64).
// Anything else is rendered with strconv where possible and falls back to null.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case []byte:
		return Bytes(t)
	case int64:
		return Int(t)
	case int:
		return Int(int64(t))
	case Value:
		return t
	default:
		return Null()
	}
}

// StableHash is reproducible across processes and independent of in-memory representation:
// 0 for null, the hash of the 8-byte little-endian encoding for integers, and the hash of
// the content bytes otherwise. Detailed keyspace events carry this hash instead of the value.
func StableHash(v Value) uint64 {
	switch v.kind {
	case KindNull:
		return 0
	case KindInteger:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v.n))
		return xxhash.Sum64(b[:])
	default:
		return xxhash.Sum64String(v.s)
	}
}
