package querystring

import (
	"bytes"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// compile-time check for msgpack Custom[En|De]coder conformance
var _ msgpack.CustomEncoder = Value{}
var _ msgpack.CustomDecoder = (*Value)(nil)

// FromMsgpack decodes one msgpack document into a Value. Unlike decoding into
// map[string]any, maps keep the key order they have on the wire, so the query
// string lists keys in the order the producer wrote them.
//
// Integers decode as Int unless they exceed the int64 range, non-string map
// keys are converted with fmt.Sprint, and both the msgpack timestamp and the
// Fluent EventTime extensions decode as a Date.
func FromMsgpack(b []byte) (Value, error) {
	var v Value
	if err := v.DecodeMsgpack(msgpack.NewDecoder(bytes.NewReader(b))); err != nil {
		return Value{}, err
	}
	return v, nil
}

// EncodeMsgpack serializes v. Undefined entries of a mapping are omitted,
// and an undefined value elsewhere is written as nil. Dates use the msgpack
// timestamp extension.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindUndefined, KindNull:
		return enc.EncodeNil()
	case KindString:
		return enc.EncodeString(v.str)
	case KindInt:
		return enc.EncodeInt(int64(v.num))
	case KindUint:
		return enc.EncodeUint(v.num)
	case KindFloat:
		return enc.EncodeFloat64(v.flt)
	case KindBool:
		return enc.EncodeBool(v.num != 0)
	case KindBytes:
		return enc.EncodeBytes(v.bytes)
	case KindDate:
		return enc.EncodeTime(v.time)

	case KindSequence:
		if err := enc.EncodeArrayLen(len(v.items)); err != nil {
			return fmt.Errorf("failed to encode sequence length: %w", err)
		}
		for i, item := range v.items {
			if err := item.EncodeMsgpack(enc); err != nil {
				return fmt.Errorf("failed to encode sequence item %d: %w", i, err)
			}
		}
		return nil

	case KindMapping:
		n := 0
		for _, p := range v.pairs {
			if p.Value.kind != KindUndefined {
				n++
			}
		}
		if err := enc.EncodeMapLen(n); err != nil {
			return fmt.Errorf("failed to encode mapping length: %w", err)
		}
		for _, p := range v.pairs {
			if p.Value.kind == KindUndefined {
				continue
			}
			if err := enc.EncodeString(p.Key); err != nil {
				return fmt.Errorf("failed to encode mapping key %q: %w", p.Key, err)
			}
			if err := p.Value.EncodeMsgpack(enc); err != nil {
				return fmt.Errorf("failed to encode mapping value for key %q: %w", p.Key, err)
			}
		}
		return nil
	}

	return fmt.Errorf("unknown Value kind: %d", v.kind)
}

// DecodeMsgpack deserializes one msgpack value into v.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	val, err := decodeValue(dec, 0)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeValue(dec *msgpack.Decoder, depth int) (Value, error) {
	if depth > defaultMaxDepth {
		return Value{}, fmt.Errorf("failed to decode msgpack: %w", ErrMaxDepth)
	}

	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, fmt.Errorf("failed to read type code: %w", err)
	}

	switch {
	case c == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return Value{}, err
		}
		return Null(), nil

	case c == msgpcode.False || c == msgpcode.True:
		b, err := dec.DecodeBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil

	case c == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return Value{}, err
		}
		if u > math.MaxInt64 {
			return Uint(u), nil
		}
		return Int(int64(u)), nil

	case msgpcode.IsFixedNum(c),
		c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32,
		c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32, c == msgpcode.Int64:
		i, err := dec.DecodeInt64()
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil

	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil

	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil

	case msgpcode.IsBin(c):
		b, err := dec.DecodeBytes()
		if err != nil {
			return Value{}, err
		}
		return Bytes(b), nil

	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, fmt.Errorf("failed to decode array length: %w", err)
		}
		items := make([]Value, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			item, err := decodeValue(dec, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("failed to decode array item %d: %w", i, err)
			}
			items = append(items, item)
		}
		return Sequence(items...), nil

	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return Value{}, fmt.Errorf("failed to decode map length: %w", err)
		}
		pairs := make([]Pair, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			key, err := decodeKey(dec)
			if err != nil {
				return Value{}, fmt.Errorf("failed to decode map key %d: %w", i, err)
			}
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("failed to decode map value for key %q: %w", key, err)
			}
			pairs = append(pairs, Pair{Key: key, Value: val})
		}
		return Mapping(pairs...), nil

	case msgpcode.IsExt(c):
		id, n, err := dec.DecodeExtHeader()
		if err != nil {
			return Value{}, fmt.Errorf("failed to decode extension header: %w", err)
		}
		// time extensions carry 4, 8 or 12 bytes; refuse anything else
		// before allocating for it
		if n != 4 && n != 8 && n != 12 {
			return Value{}, fmt.Errorf("unsupported msgpack extension %d with length %d", id, n)
		}
		buf := make([]byte, n)
		if err = dec.ReadFull(buf); err != nil {
			return Value{}, fmt.Errorf("failed to decode extension payload: %w", err)
		}
		t, err := extTime(id, buf)
		if err != nil {
			return Value{}, err
		}
		return Date(t), nil
	}

	return Value{}, fmt.Errorf("unsupported msgpack type code: %#x", c)
}

func decodeKey(dec *msgpack.Decoder) (string, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return "", err
	}
	if msgpcode.IsString(c) {
		return dec.DecodeString()
	}
	k, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return "", err
	}
	return fmt.Sprint(k), nil
}
