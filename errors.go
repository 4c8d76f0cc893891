package querystring

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoderNotCallable reports an encoder option that is not a function.
	ErrEncoderNotCallable = errors.New("encoder has to be a function")

	// ErrUnknownFormat reports a Format other than RFC3986 or RFC1738.
	ErrUnknownFormat = errors.New("unknown format option provided")

	// ErrUnknownArrayFormat reports an ArrayFormat other than indices,
	// brackets or repeat.
	ErrUnknownArrayFormat = errors.New("unknown arrayFormat option provided")

	// ErrMaxDepth reports input nested deeper than Options.MaxDepth, which
	// also catches cyclic values.
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")
)

// ConfigurationError is returned before any encoding starts when an option
// cannot be resolved.
type ConfigurationError struct {
	Option string
	Value  any
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s option %#v: %v", e.Option, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
