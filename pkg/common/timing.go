package common

import (
	"time"
)

// StartTimer begins a debug-only timing measurement. The returned function
// stops the timer and logs the elapsed duration through LogDebug, so it is a
// no-op cost-wise unless VerboseMode is enabled. Typical use:
//
//	defer common.StartTimer("bps apply")()
func StartTimer(label string) func() {
	start := time.Now()
	return func() {
		LogDebug("%s took %s", label, time.Since(start))
	}
}
