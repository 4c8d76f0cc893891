package querystring

import "testing"

func TestArrayFormat_Prefix(t *testing.T) {
	tests := []struct {
		format ArrayFormat
		expect string
	}{
		{ArrayIndices, "a[3]"},
		{ArrayBrackets, "a[]"},
		{ArrayRepeat, "a"},
	}
	for _, tt := range tests {
		if got := tt.format.prefix("a", "3"); got != tt.expect {
			t.Errorf("%s: expected: %q, got: %q", tt.format, tt.expect, got)
		}
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, expect string
	}{
		{"abcXYZ019-._~", "abcXYZ019-._~"},
		{"a b", "a%20b"},
		{"a+b", "a%2Bb"},
		{"a[b]", "a%5Bb%5D"},
		{"&=?#/%", "%26%3D%3F%23%2F%25"},
		{"ü", "%C3%BC"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Escape(tt.in, ValueToken); got != tt.expect {
			t.Errorf("Escape(%q): expected: %q, got: %q", tt.in, tt.expect, got)
		}
	}
}

func TestFormatters(t *testing.T) {
	if got := formatters[RFC3986]("a%20b"); got != "a%20b" {
		t.Errorf("RFC3986 should leave output untouched, got: %q", got)
	}
	if got := formatters[RFC1738]("a%20b%20c"); got != "a+b+c" {
		t.Errorf("RFC1738 should turn %%20 into '+', got: %q", got)
	}
	if KeyToken.String() != "key" || ValueToken.String() != "value" {
		t.Error("unexpected TokenKind names")
	}
}
