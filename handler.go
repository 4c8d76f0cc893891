package querystring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"
)

type ccKey struct{}

// ContextKey is used to extract a log value from context.Context. The value
// must be be `slog.Attr`.
//
//		Example:
//	 	ctx := context.WithValue(ctx, querystring.ContextKey,
//	 		slog.Group("req",
//	 			slog.String("method", r.Method),
//	 			slog.String("url", r.URL.String()),
//	 		)
//	 	)
//
// These attrs are added to the top scope of the record.
var ContextKey *ccKey = &ccKey{}

// scope holds the attrs of one group opened with WithGroup. The root scope
// has no key.
type scope struct {
	key   string
	attrs []Pair
}

// Handler is a slog.Handler that writes each record as one query string line,
// for sinks that collect logs as URL-encoded beacons or form posts.
//
//	// Example of basic usage
//	h, err := querystring.NewHandler(os.Stdout, nil)
//	if err != nil {
//	   log.Fatalln(err)
//	}
//
//	logger := slog.New(h)
//	logger.WithGroup("req").Info("unrecognized user", "user_id", 42)
//	// time=...&level=INFO&msg=unrecognized%20user&req.user_id=42
type Handler struct {
	*HandlerOptions
	s      *Stringifier
	mu     *sync.Mutex
	w      io.Writer
	scopes []scope
}

// NewHandler returns a Handler writing to w. Invalid HandlerOptions.Encoding
// options are reported as a *ConfigurationError.
func NewHandler(w io.Writer, opts *HandlerOptions) (*Handler, error) {
	if opts == nil {
		opts = DefaultHandlerOptions()
	}

	s, err := NewStringifier(opts.resolve())
	if err != nil {
		return nil, fmt.Errorf("failed to create querystring.NewHandler: %w", err)
	}

	return &Handler{
		HandlerOptions: opts,
		s:              s,
		mu:             &sync.Mutex{},
		w:              w,
		scopes:         make([]scope, 1), // 1 for the root scope
	}, nil
}

// deepCopy creates a copy of the Handler that can be independently modified
// moving forward without impacting the parent handler it derives from.
func (h *Handler) deepCopy() *Handler {
	h2 := *h
	h2.scopes = make([]scope, len(h.scopes))
	for i, s := range h.scopes {
		h2.scopes[i] = scope{key: s.key, attrs: slices.Clone(s.attrs)}
	}
	return &h2
}

func (h *Handler) debug(format string, args ...any) {
	if !h.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}

// Enabled reports whether the handler handles records at the given level. The
// handler ignores records whose level is lower.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

// Handle writes the Record as one line. The time, level, source (when
// AddSource is set) and message come first, followed by any attr stored under
// ContextKey, the attrs added with WithAttrs, and finally the record attrs,
// nested under the groups opened with WithGroup.
//
// The usual slog rules apply: a zero record time is omitted, attrs are
// resolved, empty attrs and empty groups are dropped, and the attrs of a group
// with an empty key are inlined into the parent.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {

	top := make([]Pair, 0, 4+len(h.scopes[0].attrs))

	// rule: ignore record time if zero
	if !r.Time.IsZero() {
		top = append(top, Pair{Key: slog.TimeKey, Value: Date(r.Time)})
	}
	top = append(top, Pair{Key: slog.LevelKey, Value: String(r.Level.String())})

	// rule: ignore source if no program counter
	if h.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		top = append(top, Pair{Key: slog.SourceKey, Value: String(fmt.Sprintf("%s:%d", f.File, f.Line))})
	}

	top = append(top, Pair{Key: slog.MessageKey, Value: String(r.Message)})

	// slog.Attrs passed in via the ctx also go to the top scope
	if ctxAttr, ok := ctx.Value(ContextKey).(slog.Attr); ok {
		top = appendAttr(top, ctxAttr)
	}

	// fold the scopes from the deepest outwards; record attrs land in the
	// deepest one, and empty groups vanish
	var inner []Pair
	last := len(h.scopes) - 1
	for i := last; i >= 0; i-- {
		pairs := slices.Clone(h.scopes[i].attrs)
		if i == last {
			r.Attrs(func(a slog.Attr) bool {
				pairs = appendAttr(pairs, a)
				return true
			})
		} else if len(inner) > 0 {
			pairs = append(pairs, Pair{Key: h.scopes[i+1].key, Value: Mapping(inner...)})
		}
		inner = pairs
	}
	top = append(top, inner...)

	line, err := h.s.Stringify(Mapping(top...))
	if err != nil {
		return fmt.Errorf("failed to Handle slog record: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err = io.WriteString(h.w, line+"\n"); err != nil {
		h.debug("failed to write record: %v", err)
		return fmt.Errorf("failed to write slog record: %w", err)
	}

	return nil
}

// appendAttr converts attr and appends it to pairs.
func appendAttr(pairs []Pair, attr slog.Attr) []Pair {

	// rule: must first resolve, and then ignore if empty
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return pairs
	}

	k, v := attr.Key, attr.Value

	if v.Kind() != slog.KindGroup {
		// rule: ignore non-group attrs with empty keys
		if len(k) == 0 {
			return pairs
		}
		return append(pairs, Pair{Key: k, Value: slogValue(v)})
	}

	gAttrs := v.Group()

	// rule: inline attrs if key is empty
	if len(k) == 0 {
		for _, a := range gAttrs {
			pairs = appendAttr(pairs, a)
		}
		return pairs
	}

	var sub []Pair
	for _, a := range gAttrs {
		sub = appendAttr(sub, a)
	}

	// rule: ignore empty groups entirely
	if len(sub) == 0 {
		return pairs
	}
	return append(pairs, Pair{Key: k, Value: Mapping(sub...)})
}

func slogValue(v slog.Value) Value {
	switch v.Kind() {
	case slog.KindAny:
		return ValueOf(v.Any())
	case slog.KindBool:
		return Bool(v.Bool())
	case slog.KindDuration:
		return String(v.Duration().String())
	case slog.KindFloat64:
		return Float(v.Float64())
	case slog.KindInt64:
		return Int(v.Int64())
	case slog.KindString:
		return String(v.String())
	case slog.KindTime:
		return Date(v.Time())
	case slog.KindUint64:
		return Uint(v.Uint64())
	}
	return String(v.String())
}

// WithAttrs returns a new Handler whose attributes consist of both the
// receiver's attributes and the arguments.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {

	// rule: skip if no attrs
	if len(attrs) == 0 {
		return h
	}

	var added []Pair
	for _, a := range attrs {
		added = appendAttr(added, a)
	}

	// if none added, don't copy
	if len(added) == 0 {
		return h
	}

	h2 := h.deepCopy()
	idx := len(h2.scopes) - 1
	h2.scopes[idx].attrs = append(h2.scopes[idx].attrs, added...)

	return h2
}

// WithGroup returns a new Handler with the given group appended to the
// receiver's existing groups.
//
// The new scope ends at the end of the log event. That is,
//
//	logger.WithGroup("s").LogAttrs(level, msg, slog.Int("a", 1), slog.Int("b", 2))
//
//	behaves like
//
//	logger.LogAttrs(level, msg, slog.Group("s", slog.Int("a", 1), slog.Int("b", 2)))
//
// If the name is empty, WithGroup returns the receiver, which results in the
// nested attributes being inlined into the parent scope.
func (h *Handler) WithGroup(name string) slog.Handler {

	// rule: ignore if name is empty (true for any attr)
	if len(name) == 0 {
		return h
	}

	h2 := h.deepCopy()
	h2.scopes = append(h2.scopes, scope{key: name})

	return h2
}
