package querystring

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindUndefined marks an absent value. It is the Kind of the zero Value,
	// and it contributes nothing to the encoded output.
	KindUndefined Kind = iota

	// KindNull marks an explicit null.
	KindNull

	KindString
	KindInt
	KindUint
	KindFloat
	KindBool

	// KindBytes is an opaque byte sequence, encoded as a scalar.
	KindBytes

	// KindDate is a point in time, converted by Options.SerializeDate.
	KindDate

	// KindSequence is an ordered list of values.
	KindSequence

	// KindMapping is a list of key/value pairs in insertion order.
	KindMapping
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindString:    "string",
	KindInt:       "int",
	KindUint:      "uint",
	KindFloat:     "float",
	KindBool:      "bool",
	KindBytes:     "bytes",
	KindDate:      "date",
	KindSequence:  "sequence",
	KindMapping:   "mapping",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is the closed set of inputs the encoder understands. Values are built
// with the constructors in this file, or converted from arbitrary Go values
// with ValueOf.
type Value struct {
	kind  Kind
	str   string
	num   uint64 // int, uint and bool payloads
	flt   float64
	bytes []byte
	time  time.Time
	items []Value
	pairs []Pair
}

// Pair is one key/value entry of a mapping.
type Pair struct {
	Key   string
	Value Value
}

// KV returns a Pair, converting v with ValueOf.
func KV(key string, v any) Pair {
	return Pair{Key: key, Value: ValueOf(v)}
}

func Undefined() Value { return Value{} }
func Null() Value { return Value{kind: KindNull} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Int(i int64) Value { return Value{kind: KindInt, num: uint64(i)} }
func Uint(u uint64) Value { return Value{kind: KindUint, num: u} }
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: b} }
func Date(t time.Time) Value { return Value{kind: KindDate, time: t} }
func Sequence(items ...Value) Value {
	return Value{kind: KindSequence, items: items}
}

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Mapping returns a mapping holding pairs in order. When a key repeats, the
// later value replaces the earlier one at its original position.
func Mapping(pairs ...Pair) Value {
	out := make([]Pair, 0, len(pairs))
	var seen map[string]int
	for _, p := range pairs {
		if i, ok := seen[p.Key]; ok {
			out[i].Value = p.Value
			continue
		}
		if seen == nil {
			seen = make(map[string]int, len(pairs))
		}
		seen[p.Key] = len(out)
		out = append(out, p)
	}
	return Value{kind: KindMapping, pairs: out}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is encoded as a single leaf token.
func (v Value) IsScalar() bool {
	switch v.kind {
	case KindString, KindInt, KindUint, KindFloat, KindBool, KindBytes:
		return true
	}
	return false
}

// IsContainer reports whether v is a sequence or a mapping.
func (v Value) IsContainer() bool {
	return v.kind == KindSequence || v.kind == KindMapping
}

func (v Value) Int() int64 { return int64(v.num) }
func (v Value) Uint() uint64 { return v.num }
func (v Value) Float() float64 { return v.flt }
func (v Value) Bool() bool { return v.num != 0 }
func (v Value) Bytes() []byte { return v.bytes }
func (v Value) Time() time.Time { return v.time }
func (v Value) Items() []Value { return v.items }
func (v Value) Pairs() []Pair { return v.pairs }

// Len returns the number of own keys of a container, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.items)
	case KindMapping:
		return len(v.pairs)
	}
	return 0
}

// Keys returns the own keys of a container: mapping keys in insertion order,
// or sequence indices in ascending order. Scalars have no keys.
func (v Value) Keys() []string {
	switch v.kind {
	case KindSequence:
		keys := make([]string, len(v.items))
		for i := range v.items {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	case KindMapping:
		keys := make([]string, len(v.pairs))
		for i, p := range v.pairs {
			keys[i] = p.Key
		}
		return keys
	}
	return nil
}

// Get returns the child stored under key. Sequence children are addressed by
// their decimal index. A missing key yields an undefined Value.
func (v Value) Get(key string) Value {
	switch v.kind {
	case KindSequence:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(v.items) || strconv.Itoa(i) != key {
			return Value{}
		}
		return v.items[i]
	case KindMapping:
		for _, p := range v.pairs {
			if p.Key == key {
				return p.Value
			}
		}
	}
	return Value{}
}

// String returns the string form of a scalar, matching how the value is
// rendered in a query string. Dates use RFC 3339 with milliseconds in UTC.
// Containers, null and undefined return their Kind name.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(int64(v.num), 10)
	case KindUint:
		return strconv.FormatUint(v.num, 10)
	case KindFloat:
		return formatFloat(v.flt)
	case KindBool:
		return strconv.FormatBool(v.num != 0)
	case KindBytes:
		return string(v.bytes)
	case KindDate:
		return isoDate(v.time)
	}
	return v.kind.String()
}

// formatFloat renders floats the way browsers do: NaN and the infinities by
// name, negative zero as "0", and exponent notation below 1e-6 and from 1e21
// on, with no padding in the exponent.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs < 1e-6 || abs >= 1e21 {
		// 'e' pads the exponent to two digits: 1e-07
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func isoDate(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
