package querystring

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
)

// encoderPool defines a shared *encoder pool, used to minimize heap
// allocations across Stringify calls made with one resolved config.
type encoderPool struct {
	p   sync.Pool
	cfg *config
}

func newEncoderPool(cfg *config) *encoderPool {
	ep := &encoderPool{cfg: cfg}
	ep.p = sync.Pool{
		New: func() any {
			return &encoder{
				Buffer: bytes.NewBuffer(make([]byte, 0, cfg.newBufferCap)),
				cfg:    cfg,
				p:      ep,
			}
		},
	}
	return ep
}

// get returns an empty encoder.
func (p *encoderPool) get() *encoder {
	return p.p.Get().(*encoder)
}

// put resets an encoder and returns it to the shared pool.
func (p *encoderPool) put(e *encoder) {

	// drop if the buffer got too large
	if e.Buffer.Cap() > p.cfg.maxBufferCap {
		return
	}

	// reset for the next usage
	e.Buffer.Reset()
	e.tokens = 0

	p.p.Put(e)
}

// encoder accumulates the delimited tokens of one Stringify call.
type encoder struct {
	*bytes.Buffer
	cfg    *config
	p      *encoderPool
	tokens int
}

// free returns the encoder to the shared pool after eagerly resetting it.
func (e *encoder) free() {
	e.p.put(e)
}

// writeToken appends one token, preceded by the delimiter unless it is the
// first.
func (e *encoder) writeToken(parts ...string) {
	if e.tokens > 0 {
		e.WriteString(e.cfg.delimiter)
	}
	for _, s := range parts {
		e.WriteString(s)
	}
	e.tokens++
}

// keys returns the key set to iterate for container v: the filter list
// verbatim when one is configured, else the own keys, sorted when a
// comparator is configured.
func (e *encoder) keys(v Value) []string {
	if e.cfg.hasFilterKeys {
		return e.cfg.filterKeys
	}
	keys := v.Keys()
	if e.cfg.sort != nil {
		slices.SortStableFunc(keys, e.cfg.sort)
	}
	return keys
}

// encode writes the tokens for v, found at keyPath, depth levels below the
// top-level container.
func (e *encoder) encode(v Value, keyPath string, depth int) error {
	if depth > e.cfg.maxDepth {
		return fmt.Errorf("key %q at depth %d: %w", keyPath, depth, ErrMaxDepth)
	}

	c := e.cfg

	// rule: the filter sees every value first, at every depth
	if c.filterFunc != nil {
		v = c.filterFunc(keyPath, v)
	}

	if v.kind == KindDate {
		v = String(c.serializeDate(v.time))
	}

	switch v.kind {
	case KindUndefined:
		return nil

	case KindNull:
		if c.strictNullHandling {
			key := keyPath
			if c.encoder != nil && !c.encodeValuesOnly {
				key = c.encoder(keyPath, KeyToken)
			}
			e.writeToken(key)
			return nil
		}
		e.writeLeaf(keyPath, "")
		return nil

	case KindString, KindInt, KindUint, KindFloat, KindBool, KindBytes:
		e.writeLeaf(keyPath, v.String())
		return nil

	case KindSequence, KindMapping:
		for _, key := range e.keys(v) {
			child := v.Get(key)

			// rule: skipping tests the raw child, before any filtering
			if c.skipNulls && child.kind == KindNull {
				continue
			}

			var childPath string
			switch {
			case v.kind == KindSequence:
				childPath = c.arrayFormat.prefix(keyPath, key)
			case c.allowDots:
				childPath = keyPath + "." + key
			default:
				childPath = keyPath + "[" + key + "]"
			}

			if err := e.encode(child, childPath, depth+1); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("key %q: unknown Value kind: %d", keyPath, v.kind)
	}
}

func (e *encoder) writeLeaf(keyPath, value string) {
	c := e.cfg
	if c.encoder == nil {
		e.writeToken(c.formatter(keyPath), "=", c.formatter(value))
		return
	}
	key := keyPath
	if !c.encodeValuesOnly {
		key = c.encoder(keyPath, KeyToken)
	}
	e.writeToken(c.formatter(key), "=", c.formatter(c.encoder(value, ValueToken)))
}
