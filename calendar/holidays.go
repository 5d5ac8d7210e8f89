package calendar

import (
	"time"
)

// specialClosures are the unscheduled full-day NYSE closings since 1990.
var specialClosures = map[time.Time]string{
	day(1994, time.April, 27):     "Nixon funeral",
	day(2001, time.September, 11): "September 11",
	day(2001, time.September, 12): "September 11",
	day(2001, time.September, 13): "September 11",
	day(2001, time.September, 14): "September 11",
	day(2004, time.June, 11):      "Reagan funeral",
	day(2007, time.January, 2):    "Ford national day of mourning",
	day(2012, time.October, 29):   "Hurricane Sandy",
	day(2012, time.October, 30):   "Hurricane Sandy",
	day(2018, time.December, 5):   "Bush national day of mourning",
	day(2025, time.January, 9):    "Carter national day of mourning",
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// nyseHolidays returns the regular NYSE holidays of year, keyed by the
// observed date.
func nyseHolidays(year int) map[time.Time]string {
	h := make(map[time.Time]string, 10)

	// A New Year's Day falling on Saturday is not moved to Friday.
	ny := day(year, time.January, 1)
	switch ny.Weekday() {
	case time.Saturday:
	case time.Sunday:
		h[ny.AddDate(0, 0, 1)] = "New Year's Day"
	default:
		h[ny] = "New Year's Day"
	}

	if year >= 1998 {
		h[nthWeekday(year, time.January, time.Monday, 3)] = "Martin Luther King Jr. Day"
	}
	h[nthWeekday(year, time.February, time.Monday, 3)] = "Washington's Birthday"
	h[easter(year).AddDate(0, 0, -2)] = "Good Friday"
	h[lastWeekday(year, time.May, time.Monday)] = "Memorial Day"
	if year >= 2022 {
		h[observed(day(year, time.June, 19))] = "Juneteenth"
	}
	h[observed(day(year, time.July, 4))] = "Independence Day"
	h[nthWeekday(year, time.September, time.Monday, 1)] = "Labor Day"
	h[nthWeekday(year, time.November, time.Thursday, 4)] = "Thanksgiving Day"
	h[observed(day(year, time.December, 25))] = "Christmas Day"

	return h
}

// observed moves a Saturday holiday to Friday and a Sunday holiday to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := day(year, month, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := day(year, month+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easter returns Easter Sunday of the Gregorian calendar.
func easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	dd := (h+l-7*m+114)%31 + 1
	return day(year, time.Month(month), dd)
}
