package clock

import (
	"example.com/rtc-timekeeper/base/calendar"
	"example.com/rtc-timekeeper/base/epoch"
	"example.com/rtc-timekeeper/base/timebase"
)

const secsPerDay = 86400

// composeSeconds converts a calendar breakdown to whole seconds since the
// given epoch's origin. The Subsecond field is ignored.
func composeSeconds(dt timebase.DateTime, e epoch.Epoch) (int64, error) {
	if err := dt.Validate(); err != nil {
		return 0, err
	}
	if dt.Year < e.Year() {
		return 0, errBeforeEpoch
	}
	var days int64
	for y := e.Year(); y < dt.Year; y++ {
		days += 365
		if calendar.IsLeapYear(y) {
			days++
		}
	}
	for m := calendar.January; m < dt.Month; m++ {
		dim, err := calendar.DaysInMonth(dt.Year, m)
		if err != nil {
			return 0, err
		}
		days += int64(dim)
	}
	days += int64(dt.Day - 1)
	return days*secsPerDay + int64(dt.Hour)*3600 + int64(dt.Minute)*60 + int64(dt.Second), nil
}

// breakSeconds converts whole seconds since the given epoch's origin back to
// a calendar breakdown with a derived weekday and Subsecond 0.
func breakSeconds(secs int64, e epoch.Epoch) (timebase.DateTime, error) {
	if secs < 0 {
		return timebase.DateTime{}, errBeforeEpoch
	}
	days := secs / secsPerDay
	rem := secs % secsPerDay

	year := e.Year()
	for {
		ydays := int64(365)
		if calendar.IsLeapYear(year) {
			ydays = 366
		}
		if days < ydays {
			break
		}
		days -= ydays
		year++
	}
	month := calendar.January
	for {
		dim, err := calendar.DaysInMonth(year, month)
		if err != nil {
			return timebase.DateTime{}, err
		}
		if days < int64(dim) {
			break
		}
		days -= int64(dim)
		month++
	}
	day := int(days) + 1

	wd, err := calendar.DayOfWeek(year, month, day)
	if err != nil {
		return timebase.DateTime{}, err
	}
	return timebase.DateTime{
		Year:    year,
		Month:   month,
		Day:     day,
		Weekday: wd,
		Hour:    int(rem / 3600),
		Minute:  int(rem % 3600 / 60),
		Second:  int(rem % 60),
	}, nil
}
