package rtc

import (
	"time"

	"go.uber.org/zap"

	"example.com/rtc-timekeeper/base/calendar"
	"example.com/rtc-timekeeper/base/timebase"
)

// Reads this close to a second rollover wait it out, so that the second and
// subsecond fields of one record always belong to the same second.
const rolloverGuard = 2 * time.Millisecond

// SystemRTC emulates an RTC chip on top of the system clock. Writes do not
// touch the system clock; they are kept as an offset applied to every
// subsequent read, so the device can be stepped freely without privileges.
type SystemRTC struct {
	Log    *zap.Logger
	offset time.Duration
}

var _ timebase.Device = (*SystemRTC)(nil)
var _ RawDevice = (*SystemRTC)(nil)

func (c *SystemRTC) EpochYear() int {
	return 1970
}

func (c *SystemRTC) Precision() timebase.Precision {
	return timebase.PrecisionMicrosecond
}

func (c *SystemRTC) Read() (timebase.DateTime, error) {
	now := time.Now().UTC().Add(c.offset)
	if time.Duration(now.Nanosecond()) > time.Second-rolloverGuard {
		time.Sleep(rolloverGuard)
		now = time.Now().UTC().Add(c.offset)
	}
	return timebase.DateTime{
		Year:      now.Year(),
		Month:     int(now.Month()),
		Day:       now.Day(),
		Weekday:   calendar.Weekday((int(now.Weekday()) + 6) % 7),
		Hour:      now.Hour(),
		Minute:    now.Minute(),
		Second:    now.Second(),
		Subsecond: int64(now.Nanosecond() / 1000),
	}, nil
}

func (c *SystemRTC) Write(dt timebase.DateTime) error {
	target := time.Date(dt.Year, time.Month(dt.Month), dt.Day,
		dt.Hour, dt.Minute, dt.Second, int(dt.Subsecond)*1000, time.UTC)
	c.offset = target.Sub(time.Now().UTC())
	if c.Log != nil {
		c.Log.Debug("system RTC stepped", zap.Duration("offset", c.offset))
	}
	return nil
}
