package querystring

import (
	"log/slog"
	"time"
)

// HandlerOptions are used to customize the query string slog.Handler.
//
// NB: The struct pointer options approach is used to be consistent with the
// approach used in the standard library for `HandlerOptions`.
type HandlerOptions struct {

	// Level reports the minimum record level that will be logged. The handler
	// discards records with lower levels. If Level is nil, the handler assumes
	// LevelInfo. The handler calls Level.Level for each record processed; to
	// adjust the minimum level dynamically, use a LevelVar.
	Level slog.Leveler

	// TimeFormat controls how time values, including the record time, are
	// rendered when Encoding does not set its own SerializeDate. The default
	// is time.RFC3339Nano.
	TimeFormat string

	// AddSource causes the handler to compute the source code position of the
	// log statement and add a SourceKey attribute to the output.
	AddSource bool

	// Encoding holds the Options records are stringified with. The default is
	// DefaultOptions with AllowDots set, so groups render as "req.method=GET".
	Encoding *Options

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const defaultTimeFormat = time.RFC3339Nano

// DefaultHandlerOptions returns *HandlerOptions with all default values.
func DefaultHandlerOptions() *HandlerOptions {
	return &HandlerOptions{
		Level:      slog.LevelInfo,
		TimeFormat: defaultTimeFormat,
	}
}

// resolve ensures that all options have valid values, and returns the
// encoding options with the time format applied.
func (o *HandlerOptions) resolve() *Options {

	// set default log level if not provided
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}

	// set time format if missing
	if len(o.TimeFormat) == 0 {
		o.TimeFormat = defaultTimeFormat
	}

	var enc Options
	if o.Encoding != nil {
		enc = *o.Encoding
	} else {
		enc = *DefaultOptions()
		enc.AllowDots = true
	}
	if enc.SerializeDate == nil {
		layout := o.TimeFormat
		enc.SerializeDate = func(t time.Time) string { return t.Format(layout) }
	}
	enc.Verbose = enc.Verbose || o.Verbose

	return &enc
}
