//go:build linux

package rtc

import (
	"fmt"

	"golang.org/x/sys/unix"

	"example.com/rtc-timekeeper/base/calendar"
	"example.com/rtc-timekeeper/base/timebase"
)

// CharDevice drives a Linux RTC character device such as /dev/rtc0 through
// the RTC_RD_TIME and RTC_SET_TIME ioctls. The hardware holds whole seconds
// only, so its precision is one second and Subsecond is always 0.
type CharDevice struct {
	fd int
}

var _ RawDevice = (*CharDevice)(nil)

// OpenCharDevice opens an RTC character device for reading and setting.
func OpenCharDevice(path string) (*CharDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &CharDevice{fd: fd}, nil
}

func (d *CharDevice) Close() error {
	return unix.Close(d.fd)
}

func (d *CharDevice) EpochYear() int {
	return 1970
}

func (d *CharDevice) Precision() timebase.Precision {
	return timebase.PrecisionSecond
}

func (d *CharDevice) Read() (timebase.DateTime, error) {
	rt, err := unix.IoctlGetRTCTime(d.fd)
	if err != nil {
		return timebase.DateTime{}, fmt.Errorf("RTC_RD_TIME: %w", err)
	}
	year := int(rt.Year) + 1900
	month := int(rt.Mon) + 1
	day := int(rt.Mday)
	wd, err := calendar.DayOfWeek(year, month, day)
	if err != nil {
		return timebase.DateTime{}, err
	}
	return timebase.DateTime{
		Year:    year,
		Month:   month,
		Day:     day,
		Weekday: wd,
		Hour:    int(rt.Hour),
		Minute:  int(rt.Min),
		Second:  int(rt.Sec),
	}, nil
}

func (d *CharDevice) Write(dt timebase.DateTime) error {
	rt := unix.RTCTime{
		Sec:  int32(dt.Second),
		Min:  int32(dt.Minute),
		Hour: int32(dt.Hour),
		Mday: int32(dt.Day),
		Mon:  int32(dt.Month - 1),
		Year: int32(dt.Year - 1900),
	}
	if err := unix.IoctlSetRTCTime(d.fd, &rt); err != nil {
		return fmt.Errorf("RTC_SET_TIME: %w", err)
	}
	return nil
}
