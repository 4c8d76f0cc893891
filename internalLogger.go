package querystring

import (
	"log"
	"os"
	"sync/atomic"
)

var internalLogger atomic.Value

func init() {
	internalLogger.Store(log.New(os.Stderr, "[querystring] ", log.LstdFlags))
}

// InternalLogger returns the Logger used to write out internal logs: debug
// output of a Verbose Stringifier or Handler, and values that ValueOf had to
// coerce or drop.
func InternalLogger() *log.Logger { return internalLogger.Load().(*log.Logger) }

// SetInternalLogger makes l the internal logger.
func SetInternalLogger(l *log.Logger) {
	internalLogger.Store(l)
}
