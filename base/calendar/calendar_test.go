package calendar_test

import (
	"errors"
	"testing"

	"example.com/rtc-timekeeper/base/calendar"
)

func TestDayOfWeek(t *testing.T) {
	cases := []struct {
		year, month, day int
		want             calendar.Weekday
	}{
		{2013, calendar.March, 1, calendar.Friday},
		{2024, calendar.February, 29, calendar.Thursday},
		{2021, calendar.May, 1, calendar.Saturday},
		{2021, calendar.May, 31, calendar.Monday},
		{2000, calendar.January, 1, calendar.Saturday},
		{1970, calendar.January, 1, calendar.Thursday},
		{1900, calendar.January, 1, calendar.Monday},
		{2022, calendar.February, 22, calendar.Tuesday},
	}
	for _, c := range cases {
		got, err := calendar.DayOfWeek(c.year, c.month, c.day)
		if err != nil {
			t.Fatalf("DayOfWeek(%d, %d, %d) failed: %v", c.year, c.month, c.day, err)
		}
		if got != c.want {
			t.Errorf("DayOfWeek(%d, %d, %d) = %d, want %d", c.year, c.month, c.day, got, c.want)
		}
	}
}

func TestDayOfWeekInvalid(t *testing.T) {
	if _, err := calendar.DayOfWeek(2021, 13, 1); err == nil {
		t.Errorf("month 13 must be rejected")
	}
	if _, err := calendar.DayOfWeek(2021, calendar.February, 29); err == nil {
		t.Errorf("2021-02-29 must be rejected, 2021 is not a leap year")
	}
	if _, err := calendar.DayOfWeek(0, calendar.January, 1); err == nil {
		t.Errorf("year 0 must be rejected")
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year, month int
		want        int
	}{
		{2021, calendar.January, 31},
		{2021, calendar.February, 28},
		{2020, calendar.February, 29},
		{1900, calendar.February, 28}, // divisible by 100 but not 400
		{2000, calendar.February, 29}, // divisible by 400
		{2021, calendar.April, 30},
		{2021, calendar.December, 31},
	}
	for _, c := range cases {
		got, err := calendar.DaysInMonth(c.year, c.month)
		if err != nil {
			t.Fatalf("DaysInMonth(%d, %d) failed: %v", c.year, c.month, err)
		}
		if got != c.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", c.year, c.month, got, c.want)
		}
	}
}

func TestWeeksInMonth(t *testing.T) {
	weeks, err := calendar.WeeksInMonth(2021, calendar.May)
	if err != nil {
		t.Fatalf("WeeksInMonth failed: %v", err)
	}
	want := []calendar.Span{{1, 2}, {3, 9}, {10, 16}, {17, 23}, {24, 30}, {31, 31}}
	if len(weeks) != len(want) {
		t.Fatalf("WeeksInMonth(2021, May) returned %d buckets, want %d", len(weeks), len(want))
	}
	for i := range want {
		if weeks[i] != want[i] {
			t.Errorf("bucket %d = %v, want %v", i, weeks[i], want[i])
		}
	}

	// February of a non-leap year starting on a Monday is the only month
	// with exactly four buckets.
	weeks, err = calendar.WeeksInMonth(2021, calendar.February)
	if err != nil {
		t.Fatalf("WeeksInMonth failed: %v", err)
	}
	if len(weeks) != 4 {
		t.Errorf("WeeksInMonth(2021, February) returned %d buckets, want 4", len(weeks))
	}
	if weeks[len(weeks)-1].Last != 28 {
		t.Errorf("last bucket ends on day %d, want 28", weeks[len(weeks)-1].Last)
	}
}

func TestWeekdayInMonth(t *testing.T) {
	cases := []struct {
		year, month, ordinal int
		weekday              calendar.Weekday
		want                 int
	}{
		{2021, calendar.March, calendar.WeekSecond, calendar.Sunday, 14},
		{2021, calendar.October, calendar.WeekLast, calendar.Sunday, 31},
		{2021, calendar.March, calendar.WeekLast, calendar.Sunday, 28},
		{2024, calendar.February, calendar.WeekFirst, calendar.Thursday, 1},
		{2024, calendar.February, calendar.WeekLast, calendar.Thursday, 29},
		{2022, calendar.February, calendar.WeekFifth, calendar.Tuesday, 22}, // clamped
	}
	for _, c := range cases {
		got, err := calendar.WeekdayInMonth(c.year, c.month, c.ordinal, c.weekday)
		if err != nil {
			t.Fatalf("WeekdayInMonth(%d, %d, %d, %d) failed: %v", c.year, c.month, c.ordinal, c.weekday, err)
		}
		if got != c.want {
			t.Errorf("WeekdayInMonth(%d, %d, %d, %d) = %d, want %d", c.year, c.month, c.ordinal, c.weekday, got, c.want)
		}
	}
}

func TestWeekdayInMonthRoundTrip(t *testing.T) {
	for month := calendar.January; month <= calendar.December; month++ {
		for wd := calendar.Monday; wd <= calendar.Sunday; wd++ {
			for ordinal := calendar.WeekFirst; ordinal <= calendar.WeekFourth; ordinal++ {
				day, err := calendar.WeekdayInMonth(2023, month, ordinal, wd)
				if err != nil {
					t.Fatalf("WeekdayInMonth(2023, %d, %d, %d) failed: %v", month, ordinal, wd, err)
				}
				got, err := calendar.DayOfWeek(2023, month, day)
				if err != nil {
					t.Fatalf("DayOfWeek(2023, %d, %d) failed: %v", month, day, err)
				}
				if got != wd {
					t.Errorf("2023-%02d-%02d is weekday %d, requested %d", month, day, got, wd)
				}
			}
		}
	}
}

func TestDayFromWeekAndWeekday(t *testing.T) {
	cases := []struct {
		year, month, week int
		weekday           calendar.Weekday
		want              int
	}{
		{2013, calendar.March, calendar.WeekFirst, calendar.Monday, 4},
		{2013, calendar.March, calendar.WeekLast, calendar.Sunday, 31},
		{2020, calendar.February, calendar.WeekLast, calendar.Saturday, 29},
		{2022, calendar.February, calendar.WeekFifth, calendar.Tuesday, 22},
		{2024, calendar.February, calendar.WeekFifth, calendar.Thursday, 29},
		{2021, calendar.March, calendar.WeekLast, calendar.Sunday, 28},
		{2021, calendar.October, calendar.WeekLast, calendar.Sunday, 31},
	}
	for _, c := range cases {
		got, err := calendar.DayFromWeekAndWeekday(c.year, c.month, c.week, c.weekday)
		if err != nil {
			t.Fatalf("DayFromWeekAndWeekday(%d, %d, %d, %d) failed: %v", c.year, c.month, c.week, c.weekday, err)
		}
		if got != c.want {
			t.Errorf("DayFromWeekAndWeekday(%d, %d, %d, %d) = %d, want %d", c.year, c.month, c.week, c.weekday, got, c.want)
		}
	}
}

func TestDayFromWeekAndWeekdayInvalid(t *testing.T) {
	if _, err := calendar.DayFromWeekAndWeekday(2021, 13, calendar.WeekFirst, calendar.Monday); err == nil {
		t.Errorf("month 13 must be rejected")
	}
	if _, err := calendar.DayFromWeekAndWeekday(2021, calendar.March, 0, calendar.Monday); err == nil {
		t.Errorf("week 0 must be rejected")
	}
	if _, err := calendar.DayFromWeekAndWeekday(2021, calendar.March, calendar.WeekFirst, 8); err == nil {
		t.Errorf("weekday 8 must be rejected")
	}
}

func TestDayFromWeekAndWeekdayMissing(t *testing.T) {
	// March 2013 starts on a Friday, so its first bucket covers only days
	// 1-3; a first-week query for Thursday overruns the bucket.
	_, err := calendar.DayFromWeekAndWeekday(2013, calendar.March, calendar.WeekFirst, calendar.Thursday)
	if !errors.Is(err, calendar.ErrNoSuchDay) {
		t.Errorf("got %v, want ErrNoSuchDay", err)
	}
}
