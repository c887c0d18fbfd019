// Package dst resolves Daylight Saving Time rules of the form "last Sunday
// of March at 02:00" to the UTC offset bias active on a given date.
package dst

import (
	"errors"
	"fmt"

	"example.com/rtc-timekeeper/base/calendar"
	"example.com/rtc-timekeeper/base/timebase"
)

// Switch marks one end of the DST period within a year.
type Switch struct {
	Month   int // 1 (January) to 12 (December)
	Week    int // calendar.WeekFirst to calendar.WeekLast
	Weekday calendar.Weekday
	Hour    int // 0 to 23
}

// Rule is a complete DST configuration. Bias is in seconds.
type Rule struct {
	Start Switch
	End   Switch
	Bias  int
}

var (
	errBias       = errors.New("bias must be one of 30, 60, 90 or 120 minutes")
	errWraparound = errors.New("rules crossing a year boundary (start month after end month) are not supported")
)

// Resolver evaluates whether DST is in effect. The switch hours are computed
// once per year and cached; the zero value has no rule and always resolves
// to bias 0.
type Resolver struct {
	rule    Rule
	enabled bool

	cacheYear  int
	cacheStart int // hours since start of the switch month
	cacheEnd   int
}

// ValidateSwitch checks the field ranges of a single switch rule.
func ValidateSwitch(s Switch) error {
	return validateSwitch(s)
}

func validateSwitch(s Switch) error {
	if s.Month < calendar.January || s.Month > calendar.December {
		return fmt.Errorf("month %d out of range", s.Month)
	}
	if s.Week < calendar.WeekFirst || s.Week > calendar.WeekLast {
		return fmt.Errorf("week %d out of range", s.Week)
	}
	if s.Weekday < calendar.Monday || s.Weekday > calendar.Sunday {
		return fmt.Errorf("weekday %d out of range", s.Weekday)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("hour %d out of range", s.Hour)
	}
	return nil
}

// SetRule configures the DST period. A biasMinutes of 0 disables DST
// entirely, discarding both switch rules; otherwise both switches must be
// valid and biasMinutes one of 30, 60, 90 or 120.
func (r *Resolver) SetRule(start, end Switch, biasMinutes int) error {
	if biasMinutes == 0 {
		r.Disable()
		return nil
	}
	if err := validateSwitch(start); err != nil {
		return fmt.Errorf("invalid DST start: %w", err)
	}
	if err := validateSwitch(end); err != nil {
		return fmt.Errorf("invalid DST end: %w", err)
	}
	switch biasMinutes {
	case 30, 60, 90, 120:
	default:
		return fmt.Errorf("%w: got %d", errBias, biasMinutes)
	}
	if start.Month > end.Month {
		return errWraparound
	}

	r.rule = Rule{Start: start, End: end, Bias: biasMinutes * 60}
	r.enabled = true
	r.cacheYear = 0
	return nil
}

// Disable clears the rule and the cached switch hours.
func (r *Resolver) Disable() {
	r.rule = Rule{}
	r.enabled = false
	r.cacheYear = 0
}

func (r *Resolver) Enabled() bool {
	return r.enabled
}

// Rule returns the configured rule; ok is false when DST is disabled.
func (r *Resolver) Rule() (rule Rule, ok bool) {
	return r.rule, r.enabled
}

// Bias returns the active DST offset in seconds for the given date: the
// configured bias inside the DST period, 0 outside it or when disabled.
func (r *Resolver) Bias(dt timebase.DateTime) (int, error) {
	if !r.enabled {
		return 0, nil
	}

	if r.cacheYear != dt.Year {
		startDay, err := calendar.WeekdayInMonth(dt.Year, r.rule.Start.Month, r.rule.Start.Week, r.rule.Start.Weekday)
		if err != nil {
			return 0, err
		}
		endDay, err := calendar.WeekdayInMonth(dt.Year, r.rule.End.Month, r.rule.End.Week, r.rule.End.Weekday)
		if err != nil {
			return 0, err
		}
		r.cacheStart = startDay*24 + r.rule.Start.Hour
		r.cacheEnd = endDay*24 + r.rule.End.Hour
		r.cacheYear = dt.Year
	}

	hours := dt.Day*24 + dt.Hour
	switch {
	case r.rule.Start.Month < dt.Month && dt.Month < r.rule.End.Month:
		return r.rule.Bias, nil
	case dt.Month == r.rule.Start.Month && hours >= r.cacheStart:
		return r.rule.Bias, nil
	case dt.Month == r.rule.End.Month && hours < r.cacheEnd:
		return r.rule.Bias, nil
	}
	return 0, nil
}
