package querystring

import (
	"time"
)

// Filter restricts or rewrites what gets encoded. It is either a FilterFunc or
// a KeyFilter.
type Filter interface {
	filter()
}

// FilterFunc is called with the key path and the value found there, at every
// depth, before any other handling; the top-level call gets the key path "".
// The returned value is encoded in place of v. Returning Undefined() drops
// the branch.
type FilterFunc func(keyPath string, v Value) Value

// KeyFilter lists the keys to encode, in order, for every container at every
// depth. The order is authoritative: Options.Sort is never applied to it. For
// sequences the keys are decimal indices.
type KeyFilter []string

func (FilterFunc) filter() {}
func (KeyFilter) filter()  {}

// Options are used to customize a Stringifier.
//
// NB: The struct pointer options approach is used to be consistent with the
// approach used in the standard library for `HandlerOptions`. A nil *Options
// means all defaults.
type Options struct {
	// Delimiter separates tokens. The default is "&". An empty Delimiter also
	// selects "&", so tokens cannot be joined with no separator at all.
	Delimiter string

	// Encode controls whether keys and values pass through Encoder. A nil
	// Encode means true.
	Encode *bool

	// Encoder encodes every token when encoding is enabled. The default is
	// Escape.
	Encoder TokenEncoder

	// EncodeValuesOnly emits keys raw while still encoding values.
	EncodeValuesOnly bool

	// StrictNullHandling renders a null as its bare key ("a") instead of a
	// key with an empty value ("a=").
	StrictNullHandling bool

	// SkipNulls omits keys holding null, at every depth.
	SkipNulls bool

	// SerializeDate converts dates before any other handling. The default is
	// ISO 8601 in UTC with millisecond precision.
	SerializeDate func(time.Time) string

	// ArrayFormat names the prefix strategy for sequence elements. When empty,
	// Indices is consulted, and the default is ArrayIndices.
	ArrayFormat ArrayFormat

	// Indices is the legacy selector used only when ArrayFormat is empty:
	// true selects ArrayIndices, false selects ArrayRepeat.
	Indices *bool

	// AllowDots composes mapping keys as "a.b" instead of "a[b]".
	AllowDots bool

	// Sort orders the own keys of every container. It returns a negative
	// number when a < b, a positive number when a > b and zero otherwise.
	Sort func(a, b string) int

	// Filter is a FilterFunc or a KeyFilter.
	Filter Filter

	// Format selects the final formatter. The default is RFC3986.
	Format Format

	// AddQueryPrefix prepends "?" to a non-empty result.
	AddQueryPrefix bool

	// MaxDepth bounds the nesting depth the encoder descends into before it
	// gives up with ErrMaxDepth. Values < 1 select the default of 1024.
	MaxDepth int

	// NewBufferCap sets the capacity, in bytes, for newly created encoder
	// buffers. The minimum value is 64 bytes. The default is 1KiB (1<<10).
	NewBufferCap int

	// MaxBufferCap sets the maximum buffer capacity, in bytes, beyond which an
	// encoder will not be returned to the shared pool, to prevent rare,
	// unusually large buffers from staying resident in memory. The minimum
	// value is NewBufferCap. The default is 8KiB (1<<13).
	MaxBufferCap int

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const (
	defaultDelimiter    = "&"
	defaultMaxDepth     = 1 << 10
	minBufferCap        = 64
	defaultNewBufferCap = 1024
	defaultMaxBufferCap = 8192
)

// Flag returns a pointer to b, for the optional boolean options.
func Flag(b bool) *bool { return &b }

// DefaultOptions returns *Options with all default values.
func DefaultOptions() *Options {
	return &Options{
		Delimiter:     defaultDelimiter,
		Encode:        Flag(true),
		Encoder:       Escape,
		SerializeDate: isoDate,
		ArrayFormat:   ArrayIndices,
		Format:        RFC3986,
		MaxDepth:      defaultMaxDepth,
		NewBufferCap:  defaultNewBufferCap,
		MaxBufferCap:  defaultMaxBufferCap,
	}
}

// config is the immutable record the encoder runs against. It is built once
// per Stringifier by Options.resolve.
type config struct {
	delimiter          string
	encoder            TokenEncoder // nil when encoding is disabled
	encodeValuesOnly   bool
	strictNullHandling bool
	skipNulls          bool
	serializeDate      func(time.Time) string
	arrayFormat        ArrayFormat
	allowDots          bool
	sort               func(a, b string) int
	filterFunc         FilterFunc
	filterKeys         []string
	hasFilterKeys      bool
	formatter          func(string) string
	addQueryPrefix     bool
	maxDepth           int
	newBufferCap       int
	maxBufferCap       int
	verbose            bool
}

// resolve validates o and fills in defaults. It never modifies o.
func (o *Options) resolve() (*config, error) {
	if o == nil {
		o = DefaultOptions()
	}

	c := &config{
		delimiter:          o.Delimiter,
		encoder:            o.Encoder,
		encodeValuesOnly:   o.EncodeValuesOnly,
		strictNullHandling: o.StrictNullHandling,
		skipNulls:          o.SkipNulls,
		serializeDate:      o.SerializeDate,
		allowDots:          o.AllowDots,
		sort:               o.Sort,
		addQueryPrefix:     o.AddQueryPrefix,
		maxDepth:           o.MaxDepth,
		verbose:            o.Verbose,
	}

	// validate the formatter
	format := o.Format
	if len(format) == 0 {
		format = RFC3986
	}
	formatter, ok := formatters[format]
	if !ok {
		return nil, &ConfigurationError{Option: "Format", Value: string(o.Format), Err: ErrUnknownFormat}
	}
	c.formatter = formatter

	// a named strategy must be valid; the legacy flag is sugar resolved here
	af, err := resolveArrayFormat(o.ArrayFormat, o.Indices)
	if err != nil {
		return nil, err
	}
	c.arrayFormat = af

	if len(c.delimiter) == 0 {
		c.delimiter = defaultDelimiter
	}

	// encoding is on unless explicitly disabled
	if o.Encode != nil && !*o.Encode {
		c.encoder = nil
	} else if c.encoder == nil {
		c.encoder = Escape
	}

	if c.serializeDate == nil {
		c.serializeDate = isoDate
	}

	switch f := o.Filter.(type) {
	case FilterFunc:
		c.filterFunc = f
	case KeyFilter:
		if f != nil {
			c.filterKeys = append([]string(nil), f...)
			c.hasFilterKeys = true
		}
	}

	if c.maxDepth < 1 {
		c.maxDepth = defaultMaxDepth
	}

	c.newBufferCap = max(o.NewBufferCap, minBufferCap)
	if o.NewBufferCap == 0 {
		c.newBufferCap = defaultNewBufferCap
	}
	c.maxBufferCap = o.MaxBufferCap
	if c.maxBufferCap == 0 {
		c.maxBufferCap = defaultMaxBufferCap
	}
	c.maxBufferCap = max(c.newBufferCap, c.maxBufferCap)

	return c, nil
}
