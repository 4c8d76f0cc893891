/*
Package querystring flattens nested data into a URL query string:

	querystring.Stringify(map[string]any{"a": map[string]any{"b": "c"}}, nil)
	// "a%5Bb%5D=c", i.e. a[b]=c

The stack is split into three parts:

  - `querystring.Value` - a closed set of input variants (null, scalars,
    dates, ordered sequences and insertion-ordered mappings), built directly,
    converted from Go values with `ValueOf`, or decoded from msgpack with
    `FromMsgpack`
  - `querystring.Stringifier` - resolves `Options` once and encodes values
    depth-first into pooled buffers; it is safe for concurrent use
  - `querystring.Handler` - a `slog.Handler` that writes each log record as a
    query string line

Options mirror the widely used JavaScript qs library: delimiter, encoding,
values-only encoding, strict null handling, null skipping, date
serialization, the indices/brackets/repeat array formats, dot notation,
key sorting, filtering, RFC 3986/RFC 1738 formatting and the leading "?".
They can also be loaded from loosely typed records (`OptionsFromMap`) or YAML
files (`LoadOptions`).

Examples of behaviour carried over from qs:

  - filtering and null skipping apply at every depth, not only the top level
  - a key filter list is authoritative: its order is never re-sorted
  - empty containers, and input that is not a container, encode to ""
  - null encodes as "a=" by default, as "a" with strict null handling
*/
package querystring
