package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled gates high-volume events such as per-sample scroll traces.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("REEL_TRACE") != "")
}

// TraceEnabled reports whether REEL_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides the env setting, e.g. from a -trace flag.
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
