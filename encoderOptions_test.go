package querystring

import (
	"errors"
	"testing"
	"time"
)

func TestResolveOptions_Defaults(t *testing.T) {
	for name, opts := range map[string]*Options{
		"nil":     nil,
		"empty":   {},
		"default": DefaultOptions(),
	} {
		t.Run(name, func(t *testing.T) {
			c, err := opts.resolve()
			if err != nil {
				t.Fatal(err)
			}
			if c.delimiter != "&" {
				t.Errorf("expected default delimiter, got: %q", c.delimiter)
			}
			if c.encoder == nil {
				t.Error("expected encoding to be on by default")
			}
			if c.arrayFormat != ArrayIndices {
				t.Errorf("expected indices, got: %s", c.arrayFormat)
			}
			if c.maxDepth != defaultMaxDepth {
				t.Errorf("expected default max depth, got: %d", c.maxDepth)
			}
			if c.newBufferCap != defaultNewBufferCap || c.maxBufferCap != defaultMaxBufferCap {
				t.Errorf("unexpected buffer caps: %d, %d", c.newBufferCap, c.maxBufferCap)
			}
			if c.filterFunc != nil || c.hasFilterKeys || c.sort != nil {
				t.Error("expected no filter and no comparator by default")
			}
			if got := c.serializeDate(time.Date(2021, 3, 4, 5, 6, 7, 0, time.FixedZone("x", 3600))); got != "2021-03-04T04:06:07.000Z" {
				t.Errorf("unexpected default date: %q", got)
			}
			if got := c.formatter("a%20b"); got != "a%20b" {
				t.Errorf("expected RFC3986 by default, got: %q", got)
			}
		})
	}
}

func TestResolveOptions_EmptyDelimiterSelectsDefault(t *testing.T) {
	got, err := Stringify(Mapping(KV("a", 1), KV("b", 2)), &Options{Delimiter: ""})
	if err != nil {
		t.Fatal(err)
	}
	if got != "a=1&b=2" {
		t.Fatalf("expected an empty delimiter to fall back to '&', got: %q", got)
	}
}

func TestResolveOptions_EncodeDisabled(t *testing.T) {
	custom := func(s string, _ TokenKind) string { return s + "!" }
	c, err := (&Options{Encode: Flag(false), Encoder: custom}).resolve()
	if err != nil {
		t.Fatal(err)
	}
	if c.encoder != nil {
		t.Fatal("expected no encoder when encoding is disabled")
	}

	c, err = (&Options{Encode: Flag(true), Encoder: custom}).resolve()
	if err != nil {
		t.Fatal(err)
	}
	if got := c.encoder("a", ValueToken); got != "a!" {
		t.Fatalf("expected the custom encoder, got: %q", got)
	}
}

func TestResolveOptions_BufferCaps(t *testing.T) {
	tests := []struct {
		name                 string
		newCap, maxCap       int
		expectNew, expectMax int
	}{
		{"defaults", 0, 0, defaultNewBufferCap, defaultMaxBufferCap},
		{"minimum new cap", 8, 0, minBufferCap, defaultMaxBufferCap},
		{"max follows new", 16384, 0, 16384, 16384},
		{"max below new", 2048, 1024, 2048, 2048},
		{"custom", 128, 4096, 128, 4096},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			c, err := (&Options{NewBufferCap: tt.newCap, MaxBufferCap: tt.maxCap}).resolve()
			if err != nil {
				t.Fatal(err)
			}
			if c.newBufferCap != tt.expectNew || c.maxBufferCap != tt.expectMax {
				t.Errorf("expected: %d/%d, got: %d/%d", tt.expectNew, tt.expectMax, c.newBufferCap, c.maxBufferCap)
			}
		})
	}
}

func TestResolveOptions_ArrayFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  ArrayFormat
		indices *bool
		expect  ArrayFormat
		err     error
	}{
		{"default", "", nil, ArrayIndices, nil},
		{"brackets", ArrayBrackets, nil, ArrayBrackets, nil},
		{"repeat", ArrayRepeat, nil, ArrayRepeat, nil},
		{"legacy true", "", Flag(true), ArrayIndices, nil},
		{"legacy false", "", Flag(false), ArrayRepeat, nil},
		{"name wins", ArrayBrackets, Flag(false), ArrayBrackets, nil},
		{"unknown", "comma", nil, "", ErrUnknownArrayFormat},
		{"case sensitive", "Indices", nil, "", ErrUnknownArrayFormat},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			c, err := (&Options{ArrayFormat: tt.format, Indices: tt.indices}).resolve()
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected: %v, got: %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if c.arrayFormat != tt.expect {
				t.Errorf("expected: %s, got: %s", tt.expect, c.arrayFormat)
			}
		})
	}
}

func TestResolveOptions_Format(t *testing.T) {
	c, err := (&Options{Format: RFC1738}).resolve()
	if err != nil {
		t.Fatal(err)
	}
	if got := c.formatter("a%20b%2Bc"); got != "a+b%2Bc" {
		t.Fatalf("unexpected RFC1738 output: %q", got)
	}

	_, err = (&Options{Format: "RFC3987"}).resolve()
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a *ConfigurationError, got: %v", err)
	}
	if ce.Option != "Format" || ce.Value != "RFC3987" || !errors.Is(ce, ErrUnknownFormat) {
		t.Fatalf("unexpected error: %+v", ce)
	}
	if ce.Error() != `invalid Format option "RFC3987": unknown format option provided` {
		t.Fatalf("unexpected message: %s", ce.Error())
	}
}

func TestResolveOptions_Filter(t *testing.T) {
	c, err := (&Options{Filter: KeyFilter(nil)}).resolve()
	if err != nil {
		t.Fatal(err)
	}
	if c.hasFilterKeys {
		t.Fatal("expected a nil key list to mean no filter")
	}

	c, err = (&Options{Filter: KeyFilter{}}).resolve()
	if err != nil {
		t.Fatal(err)
	}
	if !c.hasFilterKeys || len(c.filterKeys) != 0 {
		t.Fatal("expected an empty key list to filter out everything")
	}

	c, err = (&Options{Filter: FilterFunc(func(_ string, v Value) Value { return v })}).resolve()
	if err != nil {
		t.Fatal(err)
	}
	if c.filterFunc == nil || c.hasFilterKeys {
		t.Fatal("expected a filter func")
	}
}

func TestResolveOptions_DoesNotModifyOptions(t *testing.T) {
	opts := &Options{}
	if _, err := opts.resolve(); err != nil {
		t.Fatal(err)
	}
	if opts.Delimiter != "" || opts.Encoder != nil || opts.ArrayFormat != "" || opts.MaxDepth != 0 {
		t.Fatalf("resolve modified the options: %+v", opts)
	}
}
