package querystring

import (
	"fmt"
	"math"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadOptions reads Options from a YAML file, using the option names accepted
// by OptionsFromMap:
//
//	delimiter: ";"
//	arrayFormat: brackets
//	format: RFC1738
//	skipNulls: true
//	serializeDate: "2006-01-02"
func LoadOptions(path string) (*Options, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load options file: %w", err)
	}
	return OptionsFromMap(k.Raw())
}

// OptionsFromMap builds Options from a loosely typed record, such as decoded
// JSON or YAML, or options assembled at runtime. Keys are the camelCase option
// names: delimiter, encode, encoder, encodeValuesOnly, strictNullHandling,
// skipNulls, serializeDate, arrayFormat, indices, allowDots, sort, filter,
// format, addQueryPrefix, maxDepth and verbose.
//
// A value of the wrong type is ignored and the default applies, with one
// exception: an encoder that is present but not a function is a
// *ConfigurationError wrapping ErrEncoderNotCallable. The arrayFormat and
// format names are validated when the Options are resolved.
//
// Beyond the Go types of the Options fields, serializeDate also accepts a
// time layout string, and filter accepts a []any of strings.
func OptionsFromMap(m map[string]any) (*Options, error) {
	o := &Options{}

	if s, ok := m["delimiter"].(string); ok {
		o.Delimiter = s
	}
	if b, ok := m["encode"].(bool); ok {
		o.Encode = Flag(b)
	}

	if enc, ok := m["encoder"]; ok && enc != nil {
		switch f := enc.(type) {
		case TokenEncoder:
			o.Encoder = f
		case func(string, TokenKind) string:
			o.Encoder = f
		case func(string) string:
			o.Encoder = func(token string, _ TokenKind) string { return f(token) }
		default:
			return nil, &ConfigurationError{Option: "encoder", Value: enc, Err: ErrEncoderNotCallable}
		}
	}

	setBool(m, "encodeValuesOnly", &o.EncodeValuesOnly)
	setBool(m, "strictNullHandling", &o.StrictNullHandling)
	setBool(m, "skipNulls", &o.SkipNulls)
	setBool(m, "allowDots", &o.AllowDots)
	setBool(m, "addQueryPrefix", &o.AddQueryPrefix)
	setBool(m, "verbose", &o.Verbose)

	switch f := m["serializeDate"].(type) {
	case func(time.Time) string:
		o.SerializeDate = f
	case string:
		if f != "" {
			o.SerializeDate = func(t time.Time) string { return t.Format(f) }
		}
	}

	switch f := m["arrayFormat"].(type) {
	case string:
		o.ArrayFormat = ArrayFormat(f)
	case ArrayFormat:
		o.ArrayFormat = f
	}

	// presence alone matters for the legacy selector
	if b, ok := m["indices"].(bool); ok {
		o.Indices = Flag(b)
	}

	if f, ok := m["sort"].(func(a, b string) int); ok {
		o.Sort = f
	}

	switch f := m["filter"].(type) {
	case FilterFunc:
		o.Filter = f
	case func(string, Value) Value:
		o.Filter = FilterFunc(f)
	case KeyFilter:
		o.Filter = f
	case []string:
		o.Filter = KeyFilter(f)
	case []any:
		keys := make(KeyFilter, 0, len(f))
		for _, k := range f {
			keys = append(keys, fmt.Sprint(k))
		}
		o.Filter = keys
	}

	switch f := m["format"].(type) {
	case string:
		o.Format = Format(f)
	case Format:
		o.Format = f
	}

	if n, ok := toInt(m["maxDepth"]); ok {
		o.MaxDepth = n
	}

	return o, nil
}

func setBool(m map[string]any, key string, dst *bool) {
	if b, ok := m[key].(bool); ok {
		*dst = b
	}
}

// toInt accepts the integer representations decoders commonly produce.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
