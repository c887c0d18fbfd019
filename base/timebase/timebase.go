// Package timebase defines the datetime record exchanged with RTC hardware
// and the device interface the clock keeper is built against.
package timebase

import (
	"fmt"

	"example.com/rtc-timekeeper/base/calendar"
)

// DateTime is the 8-field record an RTC chip holds. Subsecond is always in
// microseconds inside the timekeeper; adapters rescale coarser hardware.
type DateTime struct {
	Year      int
	Month     int // 1 (January) to 12 (December)
	Day       int
	Weekday   calendar.Weekday
	Hour      int
	Minute    int
	Second    int
	Subsecond int64 // microseconds, 0 to 999999
}

// Validate checks field ranges and that Weekday agrees with the date.
func (dt DateTime) Validate() error {
	wd, err := calendar.DayOfWeek(dt.Year, dt.Month, dt.Day)
	if err != nil {
		return err
	}
	if dt.Weekday != wd {
		return fmt.Errorf("weekday %d does not match %d-%02d-%02d (%d)", dt.Weekday, dt.Year, dt.Month, dt.Day, wd)
	}
	if dt.Hour < 0 || dt.Hour > 23 {
		return fmt.Errorf("hour %d out of range", dt.Hour)
	}
	if dt.Minute < 0 || dt.Minute > 59 {
		return fmt.Errorf("minute %d out of range", dt.Minute)
	}
	if dt.Second < 0 || dt.Second > 59 {
		return fmt.Errorf("second %d out of range", dt.Second)
	}
	if dt.Subsecond < 0 || dt.Subsecond > 999999 {
		return fmt.Errorf("subsecond %d out of range", dt.Subsecond)
	}
	return nil
}

// Precision is the unit of the Subsecond field as a hardware device reports
// it, expressed as its size in microseconds.
type Precision int64

const (
	PrecisionSecond      Precision = 1000000
	PrecisionMillisecond Precision = 1000
	PrecisionMicrosecond Precision = 1
)

// Device is a real-time clock. Read and Write move whole DateTime records;
// EpochYear reports the calendar year of the device's raw zero time, which
// must be 1900, 1970 or 2000.
type Device interface {
	Read() (DateTime, error)
	Write(DateTime) error
	EpochYear() int
}
