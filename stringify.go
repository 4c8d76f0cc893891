package querystring

import (
	"fmt"
	"slices"
)

// Stringifier encodes values into query strings with one resolved set of
// Options. It is immutable and safe for concurrent use; reusing one avoids
// resolving the options and reallocating buffers on every call.
type Stringifier struct {
	cfg  *config
	pool *encoderPool
}

// NewStringifier resolves opts and returns a Stringifier. A nil opts selects
// DefaultOptions. Unresolvable options yield a *ConfigurationError.
func NewStringifier(opts *Options) (*Stringifier, error) {
	cfg, err := opts.resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve querystring.Options: %w", err)
	}

	s := &Stringifier{cfg: cfg, pool: newEncoderPool(cfg)}
	s.debug("starting Stringifier with the resolved options: %+v", *cfg)

	return s, nil
}

// Stringify encodes v, converted with ValueOf, using opts. It is shorthand for
// NewStringifier followed by (*Stringifier).Stringify.
//
//	s, err := querystring.Stringify(map[string]any{"a": []string{"b", "c"}}, nil)
//	// s == "a%5B0%5D=b&a%5B1%5D=c"
func Stringify(v any, opts *Options) (string, error) {
	s, err := NewStringifier(opts)
	if err != nil {
		return "", err
	}
	return s.Stringify(v)
}

// Stringify encodes v, converted with ValueOf. Input that is not a sequence or
// a mapping (after the top-level filter runs) encodes to "". The only error
// is ErrMaxDepth, for input nested deeper than Options.MaxDepth.
func (s *Stringifier) Stringify(v any) (string, error) {
	val := ValueOf(v)
	c := s.cfg

	// rule: a filter func sees the whole input once, with an empty key path
	if c.filterFunc != nil {
		val = c.filterFunc("", val)
	}

	if !val.IsContainer() {
		return "", nil
	}

	// the explicit key list is authoritative; only own keys get sorted
	var keys []string
	if c.hasFilterKeys {
		keys = c.filterKeys
	} else {
		keys = val.Keys()
		if c.sort != nil {
			slices.SortStableFunc(keys, c.sort)
		}
	}

	enc := s.pool.get()
	defer enc.free()

	for _, key := range keys {
		child := val.Get(key)
		if c.skipNulls && child.kind == KindNull {
			continue
		}
		if err := enc.encode(child, key, 1); err != nil {
			s.debug("failed to Stringify: %v", err)
			return "", err
		}
	}

	if enc.Len() == 0 {
		return "", nil
	}
	if c.addQueryPrefix {
		return "?" + enc.String(), nil
	}
	return enc.String(), nil
}

func (s *Stringifier) debug(format string, args ...any) {
	if !s.cfg.verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}
