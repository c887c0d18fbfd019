// Package rtc provides real-time clock devices: a precision-normalizing
// adapter for hardware with coarse subsecond resolution, a system-clock
// backed device for hosted use, and a Linux /dev/rtc driver.
package rtc

import (
	"example.com/rtc-timekeeper/base/timebase"
)

// RawDevice is a hardware driver whose Subsecond field is in native units of
// its own precision.
type RawDevice interface {
	Read() (timebase.DateTime, error)
	Write(timebase.DateTime) error
	EpochYear() int
	Precision() timebase.Precision
}

// Adapter exposes a RawDevice as a timebase.Device, rescaling the Subsecond
// field between native units and microseconds in both directions.
type Adapter struct {
	Raw RawDevice
}

var _ timebase.Device = (*Adapter)(nil)

func (a *Adapter) Read() (timebase.DateTime, error) {
	dt, err := a.Raw.Read()
	if err != nil {
		return timebase.DateTime{}, err
	}
	dt.Subsecond *= int64(a.Raw.Precision())
	return dt, nil
}

func (a *Adapter) Write(dt timebase.DateTime) error {
	dt.Subsecond /= int64(a.Raw.Precision())
	return a.Raw.Write(dt)
}

func (a *Adapter) EpochYear() int {
	return a.Raw.EpochYear()
}
