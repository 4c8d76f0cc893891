package querystring

import (
	"net/url"
	"strings"
)

// Format names the final formatter applied to every emitted key and value.
type Format string

const (
	// RFC3986 leaves percent-encoded output untouched. This is the default.
	RFC3986 Format = "RFC3986"

	// RFC1738 renders encoded spaces (%20) as '+', as in HTML form bodies.
	RFC1738 Format = "RFC1738"
)

var formatters = map[Format]func(string) string{
	RFC3986: func(s string) string { return s },
	RFC1738: func(s string) string { return strings.ReplaceAll(s, "%20", "+") },
}

// TokenKind tells a TokenEncoder whether it is encoding a key or a value.
type TokenKind int

const (
	KeyToken TokenKind = iota
	ValueToken
)

func (k TokenKind) String() string {
	if k == KeyToken {
		return "key"
	}
	return "value"
}

// TokenEncoder encodes a single key or value token.
type TokenEncoder func(token string, kind TokenKind) string

// Escape is the default TokenEncoder. It percent-encodes the UTF-8 bytes of
// token, leaving only the RFC 3986 unreserved characters (A-Z a-z 0-9 - . _ ~)
// as they are. Spaces become %20; the RFC1738 format turns them into '+'.
func Escape(token string, _ TokenKind) string {
	// QueryEscape escapes a literal '+', so any '+' left is a space
	return strings.ReplaceAll(url.QueryEscape(token), "+", "%20")
}
