package querystring

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

func raw() *Options { return &Options{Encode: Flag(false)} }

func TestStringify(t *testing.T) {
	date := time.Date(2020, time.January, 2, 3, 4, 5, 6_000_000, time.UTC)

	tests := []struct {
		name   string
		input  any
		opts   *Options
		expect string
	}{
		{"simple pair", Mapping(KV("a", "b")), nil, "a=b"},
		{"indices by default", Mapping(KV("a", []string{"b", "c"})), raw(), "a[0]=b&a[1]=c"},
		{"indices encoded", Mapping(KV("a", []string{"b", "c"})), nil, "a%5B0%5D=b&a%5B1%5D=c"},
		{"brackets", Mapping(KV("a", []string{"b", "c"})), &Options{Encode: Flag(false), ArrayFormat: ArrayBrackets}, "a[]=b&a[]=c"},
		{"repeat", Mapping(KV("a", []string{"b", "c"})), &Options{Encode: Flag(false), ArrayFormat: ArrayRepeat}, "a=b&a=c"},
		{"legacy indices true", Mapping(KV("a", []string{"b", "c"})), &Options{Encode: Flag(false), Indices: Flag(true)}, "a[0]=b&a[1]=c"},
		{"legacy indices false", Mapping(KV("a", []string{"b", "c"})), &Options{Encode: Flag(false), Indices: Flag(false)}, "a=b&a=c"},
		{"named format wins over legacy flag", Mapping(KV("a", []string{"b"})), &Options{Encode: Flag(false), Indices: Flag(false), ArrayFormat: ArrayBrackets}, "a[]=b"},
		{"null", Mapping(KV("a", nil)), nil, "a="},
		{"strict null", Mapping(KV("a", nil)), &Options{StrictNullHandling: true}, "a"},
		{"skip nulls", Mapping(KV("a", nil)), &Options{SkipNulls: true}, ""},
		{"skip nulls keeps siblings", Mapping(KV("a", nil), KV("b", "c")), &Options{SkipNulls: true}, "b=c"},
		{"nested brackets", Mapping(KV("a", Mapping(KV("b", "c")))), raw(), "a[b]=c"},
		{"nested dots", Mapping(KV("a", Mapping(KV("b", "c")))), &Options{AllowDots: true}, "a.b=c"},
		{"dots leave sequences alone", Mapping(KV("a", Mapping(KV("b", []int{1})))), &Options{Encode: Flag(false), AllowDots: true}, "a.b[0]=1"},
		{"sort", Mapping(KV("b", 1), KV("a", 2)), &Options{Sort: strings.Compare}, "a=2&b=1"},
		{"insertion order without sort", Mapping(KV("b", 1), KV("a", 2)), nil, "b=1&a=2"},
		{"key filter order is not sorted", Mapping(KV("a", 2), KV("b", 1)), &Options{Sort: strings.Compare, Filter: KeyFilter{"b", "a"}}, "b=1&a=2"},
		{"key filter subsets", Mapping(KV("a", 1), KV("b", 2), KV("c", 3)), &Options{Filter: KeyFilter{"c", "a"}}, "c=3&a=1"},
		{"empty key filter", Mapping(KV("a", 1)), &Options{Filter: KeyFilter{}}, ""},
		{"rfc3986 space", Mapping(KV("a", "b c")), nil, "a=b%20c"},
		{"rfc1738 space", Mapping(KV("a", "b c")), &Options{Format: RFC1738}, "a=b+c"},
		{"empty mapping", Mapping(), nil, ""},
		{"empty sequence", Sequence(), nil, ""},
		{"empty nested containers", Mapping(KV("a", Sequence()), KV("b", Mapping())), nil, ""},
		{"query prefix", Mapping(KV("a", "b")), &Options{AddQueryPrefix: true}, "?a=b"},
		{"query prefix on empty output", Mapping(), &Options{AddQueryPrefix: true}, ""},
		{"custom delimiter", Mapping(KV("a", "b"), KV("c", "d")), &Options{Delimiter: ";"}, "a=b;c=d"},
		{"values only", Mapping(KV("a", Mapping(KV("b", "c d")))), &Options{EncodeValuesOnly: true}, "a[b]=c%20d"},
		{"encoding disabled", Mapping(KV("a b", "c&d")), raw(), "a b=c&d"},
		{"scalars", Mapping(KV("i", -1), KV("u", uint8(2)), KV("f", 1.5), KV("t", true), KV("b", []byte("hi"))), nil, "i=-1&u=2&f=1.5&t=true&b=hi"},
		{"unicode", Mapping(KV("a", "ü€")), nil, "a=%C3%BC%E2%82%AC"},
		{"default date", Mapping(KV("d", date)), raw(), "d=2020-01-02T03:04:05.006Z"},
		{"default date encoded", Mapping(KV("d", date)), nil, "d=2020-01-02T03%3A04%3A05.006Z"},
		{"custom date", Mapping(KV("d", date)), &Options{SerializeDate: func(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }}, "d=1577934245"},
		{"top level sequence", Sequence(String("a"), String("b")), nil, "0=a&1=b"},
		{"top level string", "abc", nil, ""},
		{"top level number", 42, nil, ""},
		{"top level null", nil, nil, ""},
		{"top level date", date, nil, ""},
		{"undefined contributes nothing", Mapping(KV("a", Undefined()), KV("b", "c")), nil, "b=c"},
		{"go map sorted keys", map[string]any{"b": "1", "a": "2"}, nil, "a=2&b=1"},
		{"go struct", struct {
			Q    string   `query:"q"`
			Tags []string `query:"tags"`
		}{"go", []string{"x", "y"}}, &Options{EncodeValuesOnly: true, ArrayFormat: ArrayBrackets}, "q=go&tags[]=x&tags[]=y"},
	}

	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stringify(tt.input, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Errorf("failed: %s, expected: %q, got: %q", tt.name, tt.expect, got)
			}
		})
	}
}

func TestStringify_CustomEncoder(t *testing.T) {
	upper := func(token string, _ TokenKind) string { return strings.ToUpper(token) }
	input := Mapping(KV("a", "b"), KV("n", nil))

	got, err := Stringify(input, &Options{Encoder: upper})
	if err != nil {
		t.Fatal(err)
	}
	if got != "A=B&N=" {
		t.Fatalf("expected keys and values encoded, got: %q", got)
	}

	got, err = Stringify(input, &Options{Encoder: upper, EncodeValuesOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != "a=B&n=" {
		t.Fatalf("expected only values encoded, got: %q", got)
	}

	got, err = Stringify(input, &Options{Encoder: upper, StrictNullHandling: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != "A=B&N" {
		t.Fatalf("expected strict null key to be encoded, got: %q", got)
	}

	got, err = Stringify(input, &Options{Encoder: upper, Encode: Flag(false)})
	if err != nil {
		t.Fatal(err)
	}
	if got != "a=b&n=" {
		t.Fatalf("expected encoder to be ignored when encoding is disabled, got: %q", got)
	}
}

func TestStringify_EncoderSeesTokenKind(t *testing.T) {
	var kinds []string
	enc := func(token string, kind TokenKind) string {
		kinds = append(kinds, kind.String()+":"+token)
		return token
	}
	if _, err := Stringify(Mapping(KV("a", "b")), &Options{Encoder: enc}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(kinds, ",") != "key:a,value:b" {
		t.Fatalf("unexpected encoder calls: %v", kinds)
	}
}

func TestStringify_FilterFunc(t *testing.T) {
	var seen []string
	filter := FilterFunc(func(keyPath string, v Value) Value {
		seen = append(seen, keyPath)
		switch keyPath {
		case "a[b]":
			return String("x")
		case "c":
			return Undefined()
		case "d":
			return Date(time.Date(2001, time.February, 3, 0, 0, 0, 0, time.UTC))
		}
		return v
	})

	input := Mapping(
		KV("a", Mapping(KV("b", "c"), KV("e", "f"))),
		KV("c", "dropped"),
		KV("d", "replaced"),
	)
	got, err := Stringify(input, &Options{Encode: Flag(false), Filter: filter})
	if err != nil {
		t.Fatal(err)
	}

	expect := "a[b]=x&a[e]=f&d=2001-02-03T00:00:00.000Z"
	if got != expect {
		t.Fatalf("expected: %q, got: %q", expect, got)
	}

	// the top-level value is offered first, with an empty key path
	if len(seen) == 0 || seen[0] != "" {
		t.Fatalf("expected the top-level filter call first, got: %q", seen)
	}
}

func TestStringify_FilterFuncReplacesInput(t *testing.T) {
	tests := []struct {
		name    string
		replace Value
		expect  string
	}{
		{"scalar", String("a"), ""},
		{"undefined", Undefined(), ""},
		{"null", Null(), ""},
		{"other mapping", Mapping(KV("x", "y")), "x=y"},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			filter := FilterFunc(func(keyPath string, v Value) Value {
				if keyPath == "" {
					return tt.replace
				}
				return v
			})
			got, err := Stringify(Mapping(KV("a", "b")), &Options{Filter: filter})
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.expect {
				t.Errorf("expected: %q, got: %q", tt.expect, got)
			}
		})
	}
}

func TestStringify_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		opts   *Options
		option string
		expect error
	}{
		{"unknown format", &Options{Format: "RFC0000"}, "Format", ErrUnknownFormat},
		{"lowercase format", &Options{Format: "rfc1738"}, "Format", ErrUnknownFormat},
		{"unknown array format", &Options{ArrayFormat: "comma"}, "ArrayFormat", ErrUnknownArrayFormat},
		{"unknown array format with legacy flag", &Options{ArrayFormat: "comma", Indices: Flag(true)}, "ArrayFormat", ErrUnknownArrayFormat},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stringify(Mapping(KV("a", "b")), tt.opts)
			if !errors.Is(err, tt.expect) {
				t.Fatalf("expected: %v, got: %v", tt.expect, err)
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected a *ConfigurationError, got: %T", err)
			}
			if ce.Option != tt.option {
				t.Errorf("expected option: %s, got: %s", tt.option, ce.Option)
			}
			if got != "" {
				t.Errorf("expected no output, got: %q", got)
			}
		})
	}
}

func TestStringify_Deterministic(t *testing.T) {
	input := map[string]any{
		"z": map[string]any{"y": []any{1, nil, "x"}, "a": true},
		"m": "n",
		"b": []map[string]int{{"k": 1}, {"j": 2}},
	}
	first, err := Stringify(input, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		got, err := Stringify(input, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("run %d differs: %q != %q", i, got, first)
		}
	}
}

func TestStringifier_Reuse(t *testing.T) {
	s, err := NewStringifier(&Options{Encode: Flag(false), AddQueryPrefix: true})
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		input  Value
		expect string
	}{
		{Mapping(KV("a", "b")), "?a=b"},
		{Mapping(), ""},
		{Mapping(KV("c", []int{1, 2})), "?c[0]=1&c[1]=2"},
	} {
		got, err := s.Stringify(tt.input)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.expect {
			t.Fatalf("expected: %q, got: %q", tt.expect, got)
		}
	}
}
