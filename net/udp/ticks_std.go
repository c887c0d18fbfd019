//go:build !linux

package udp

import (
	"time"
)

var ticksStart = time.Now()

// TicksUS returns microseconds since process start using the runtime's
// monotonic reading, independent of wall clock adjustments.
func TicksUS() int64 {
	return time.Since(ticksStart).Microseconds()
}
