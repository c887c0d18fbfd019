//go:build linux

package udp

import (
	"golang.org/x/sys/unix"
)

// TicksUS reads CLOCK_MONOTONIC in microseconds. The value is independent of
// wall clock adjustments and only meaningful as a difference between reads.
func TicksUS() int64 {
	var ts unix.Timespec
	err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	if err != nil {
		panic("unix.ClockGettime failed: " + err.Error())
	}
	return ts.Sec*1_000_000 + ts.Nsec/1_000
}
