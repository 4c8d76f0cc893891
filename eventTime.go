package querystring

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Fluent does not use the predefined (type -1) msgpack Time serialization
// format for sub-second precision, but instead defines a unique serialization
// format, assinging extension type 0. FromMsgpack accepts both, so that Fluent
// records can be turned into query strings with their timestamps intact.
//
// +-------+----+----+----+----+----+----+----+----+----+
// |     1 |  2 |  3 |  4 |  5 |  6 |  7 |  8 |  9 | 10 |
// +-------+----+----+----+----+----+----+----+----+----+
// |    D7 | 00 | second from epoch |     nanosecond    |
// +-------+----+----+----+----+----+----+----+----+----+
// |fixext8|type| 32bits integer BE | 32bits integer BE |
// +-------+----+----+----+----+----+----+----+----+----+
//
//   ref: https://github.com/fluent/fluent/wiki/Forward-Protocol-Specification-v1#time-ext-format
//

type EventTime time.Time

// compile-time check for msgpack Custom[En|De]coder conformance
var _ msgpack.CustomEncoder = (*EventTime)(nil)
var _ msgpack.CustomDecoder = (*EventTime)(nil)

const (
	EventTimeExtType = 0
	EventTimeLen     = 8

	// msgpack's own timestamp extension
	timestampExtType = -1
)

// EncodeMsgpack serializes *EventTime values to the custom msgpack format
// defined by the Fluent Forward protocol.
func (t *EventTime) EncodeMsgpack(enc *msgpack.Encoder) error {
	err := enc.EncodeExtHeader(EventTimeExtType, EventTimeLen)
	if err != nil {
		return fmt.Errorf("failed to encode EventTime header: %w", err)
	}

	var buf [EventTimeLen]byte
	t.putPayload(buf[:])
	if _, err = enc.Writer().Write(buf[:]); err != nil {
		return fmt.Errorf("failed to encode EventTime payload: %w", err)
	}

	return nil
}

// DecodeMsgpack deserializes *EventTime values from the custom msgpack format
// defined by the Fluent Forward protocol.
func (t *EventTime) DecodeMsgpack(dec *msgpack.Decoder) error {
	id, n, err := dec.DecodeExtHeader()
	if err != nil {
		return fmt.Errorf("failed to decode EventTime header: %w", err)
	}
	if id != EventTimeExtType || n != EventTimeLen {
		return fmt.Errorf("failed to decode EventTime: ext type %d of length %d, expected type 0 of length 8", id, n)
	}

	buf := make([]byte, n)
	if err = dec.ReadFull(buf); err != nil {
		return fmt.Errorf("failed to decode EventTime payload: %w", err)
	}

	*t = EventTime(eventTimePayload(buf))
	return nil
}

// putPayload writes seconds and nanoseconds, both as big-endian uint32.
// NB: 64bit -> 32bit => constrained to 1970-2106
func (t *EventTime) putPayload(b []byte) {
	utc := time.Time(*t).UTC()
	binary.BigEndian.PutUint32(b[0:4], uint32(utc.Unix()))
	binary.BigEndian.PutUint32(b[4:8], uint32(utc.Nanosecond()))
}

func eventTimePayload(b []byte) time.Time {
	secs := int64(binary.BigEndian.Uint32(b[0:4]))
	nsecs := int64(binary.BigEndian.Uint32(b[4:8]))
	return time.Unix(secs, nsecs).UTC()
}

// extTime decodes the payload of a time extension: msgpack timestamp 32, 64
// and 96, or a Fluent EventTime.
func extTime(id int8, b []byte) (time.Time, error) {
	switch {
	case id == EventTimeExtType && len(b) == EventTimeLen:
		return eventTimePayload(b), nil

	case id == timestampExtType && len(b) == 4:
		return time.Unix(int64(binary.BigEndian.Uint32(b)), 0).UTC(), nil

	case id == timestampExtType && len(b) == 8:
		v := binary.BigEndian.Uint64(b)
		nsecs := int64(v >> 34)
		secs := int64(v & 0x00000003ffffffff)
		return time.Unix(secs, nsecs).UTC(), nil

	case id == timestampExtType && len(b) == 12:
		nsecs := int64(binary.BigEndian.Uint32(b[0:4]))
		secs := int64(binary.BigEndian.Uint64(b[4:12]))
		return time.Unix(secs, nsecs).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unsupported msgpack extension: type %d, length %d", id, len(b))
}
