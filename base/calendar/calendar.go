// Package calendar provides the date arithmetic the timekeeper is built on:
// day-of-week via Zeller's congruence, month lengths under the Gregorian leap
// rule, Monday-based week partitioning of a month, and resolution of rules
// like "last Sunday of March" to a day of the month.
package calendar

import (
	"errors"
	"fmt"
)

const (
	January = 1 + iota
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// Weekday is zero-based with Monday as day 0.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Week ordinals within a month. WeekLast selects the final occurrence and
// clamps, so it is safe for months with four, five or six week buckets.
const (
	WeekFirst = 1 + iota
	WeekSecond
	WeekThird
	WeekFourth
	WeekFifth
	WeekLast
)

// Span is one Monday-to-Sunday bucket of a month. The first and last bucket
// of a month may cover fewer than seven days.
type Span struct {
	First int
	Last  int
}

var (
	errYearRange    = errors.New("year must be 1 or greater")
	errMonthRange   = errors.New("month must be in range 1 (January) to 12 (December)")
	errWeekRange    = errors.New("week must be in range 1 (first) to 6 (last)")
	errWeekdayRange = errors.New("weekday must be in range 0 (Monday) to 6 (Sunday)")

	// ErrNoSuchDay is returned when the requested weekday does not occur
	// within the selected week bucket.
	ErrNoSuchDay = errors.New("weekday does not exist in the selected week")
)

// Zeller's congruence yields 0 for Saturday; remap to Monday-based days.
var zellerWeekdays = [7]Weekday{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear reports whether year is a leap year under the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%400 == 0 || (year%4 == 0 && year%100 != 0)
}

func checkYearMonth(year, month int) error {
	if year < 1 {
		return fmt.Errorf("%w: got %d", errYearRange, year)
	}
	if month < January || month > December {
		return fmt.Errorf("%w: got %d", errMonthRange, month)
	}
	return nil
}

// DayOfWeek computes the weekday of a calendar date using Zeller's congruence.
func DayOfWeek(year, month, day int) (Weekday, error) {
	if err := checkYearMonth(year, month); err != nil {
		return 0, err
	}
	days, err := DaysInMonth(year, month)
	if err != nil {
		return 0, err
	}
	if day < 1 || day > days {
		return 0, fmt.Errorf("day %d is outside the %d days of %d-%02d", day, days, year, month)
	}

	// Zeller counts January and February as months 13 and 14 of the
	// previous year.
	if month <= February {
		month += 12
		year--
	}
	y := year % 100
	c := year / 100
	w := (day + 13*(month+1)/5 + y + y/4 + c/4 + 5*c) % 7

	return zellerWeekdays[w], nil
}

// DaysInMonth returns the number of days in the given month, accounting for
// leap years in February.
func DaysInMonth(year, month int) (int, error) {
	if err := checkYearMonth(year, month); err != nil {
		return 0, err
	}
	if month == February && IsLeapYear(year) {
		return monthDays[February-1] + 1, nil
	}
	return monthDays[month-1], nil
}

// WeeksInMonth partitions a month into Monday-to-Sunday buckets. The first
// bucket runs from day 1 to the month's first Sunday, the last bucket absorbs
// the remaining days, and every bucket in between is a full week. A month has
// four to six buckets; May 2021 for example yields
// [(1,2) (3,9) (10,16) (17,23) (24,30) (31,31)].
func WeeksInMonth(year, month int) ([]Span, error) {
	wd, err := DayOfWeek(year, month, 1)
	if err != nil {
		return nil, err
	}
	days, err := DaysInMonth(year, month)
	if err != nil {
		return nil, err
	}

	firstSunday := 7 - int(wd)
	weeks := []Span{{First: 1, Last: firstSunday}}
	for i := 0; i < 5; i++ {
		last := firstSunday + (i+1)*7
		if days <= last {
			weeks = append(weeks, Span{First: weeks[i].Last + 1, Last: days})
			break
		}
		weeks = append(weeks, Span{First: weeks[i].Last + 1, Last: last})
	}
	return weeks, nil
}

// WeekdayInMonth returns the day of the month of the ordinal-th occurrence of
// weekday. If ordinal exceeds the number of occurrences, the day of the last
// occurrence is returned; this realizes "last Sunday of March" style rules
// without an error path.
func WeekdayInMonth(year, month, ordinal int, weekday Weekday) (int, error) {
	if err := checkYearMonth(year, month); err != nil {
		return 0, err
	}
	if ordinal < WeekFirst || ordinal > WeekLast {
		return 0, fmt.Errorf("%w: got %d", errWeekRange, ordinal)
	}
	if weekday < Monday || weekday > Sunday {
		return 0, fmt.Errorf("%w: got %d", errWeekdayRange, weekday)
	}

	first, err := DayOfWeek(year, month, 1)
	if err != nil {
		return 0, err
	}
	days, err := DaysInMonth(year, month)
	if err != nil {
		return 0, err
	}

	day := 1 + (int(weekday-first)+7)%7
	n := 1 + (days-day)/7
	if ordinal > n {
		ordinal = n
	}
	return day + (ordinal-1)*7, nil
}

// DayFromWeekAndWeekday resolves (week bucket, weekday) to a day of the month
// using the WeeksInMonth partition. A week past the final bucket selects the
// final bucket, and a weekday past the end of the month clamps to the
// preceding full week, so "last Sunday" queries always succeed. A weekday
// missing from a partial bucket yields ErrNoSuchDay.
func DayFromWeekAndWeekday(year, month, week int, weekday Weekday) (int, error) {
	if week < WeekFirst || week > WeekLast {
		return 0, fmt.Errorf("%w: got %d", errWeekRange, week)
	}
	if weekday < Monday || weekday > Sunday {
		return 0, fmt.Errorf("%w: got %d", errWeekdayRange, weekday)
	}
	weeks, err := WeeksInMonth(year, month)
	if err != nil {
		return 0, err
	}

	days := weeks[len(weeks)-1].Last
	span := weeks[len(weeks)-1]
	if week <= len(weeks) {
		span = weeks[week-1]
	}
	day := span.First + int(weekday)

	// Past the end of the month: step back one full week so the last
	// occurrence is returned.
	if day > days {
		return weeks[len(weeks)-2].First + int(weekday), nil
	}
	if day > span.Last {
		return 0, ErrNoSuchDay
	}
	if week == WeekFirst {
		if weeks[0].First+int(Sunday-weekday) > weeks[0].Last {
			return weeks[1].First + int(weekday), nil
		}
		return int(weekday) - (int(Sunday) - weeks[0].Last), nil
	}
	return day, nil
}
