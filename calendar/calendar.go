package calendar

import (
	"fmt"
	"sort"
	"time"

	"szakszon.com/divgap"
)

// MinLookbackDays is the smallest window, in calendar days, searched for
// a previous trading day.
const MinLookbackDays = 15

// firstYear is the first year with precomputed holidays.
const firstYear = 1990

type exchange struct {
	Name     string
	Timezone string
}

// exchanges are the supported MICs. All of them follow the NYSE holiday
// schedule.
var exchanges = map[string]exchange{
	"XNYS": {Name: "New York Stock Exchange", Timezone: "America/New_York"},
	"XNAS": {Name: "Nasdaq", Timezone: "America/New_York"},
	"XASE": {Name: "NYSE American", Timezone: "America/New_York"},
	"ARCX": {Name: "NYSE Arca", Timezone: "America/New_York"},
	"BATS": {Name: "Cboe BZX", Timezone: "America/New_York"},
	"IEXG": {Name: "Investors Exchange", Timezone: "America/New_York"},
}

// Supported returns the supported MICs in alphabetical order.
func Supported() []string {
	mics := make([]string, 0, len(exchanges))
	for mic := range exchanges {
		mics = append(mics, mic)
	}
	sort.Strings(mics)
	return mics
}

type UnknownExchangeError struct {
	MIC string
}

func (e *UnknownExchangeError) Error() string {
	return fmt.Sprintf("unknown exchange: %q", e.MIC)
}

type NoTradingDayFoundError struct {
	MIC      string
	Date     time.Time
	Lookback int
}

func (e *NoTradingDayFoundError) Error() string {
	return fmt.Sprintf("%s: no trading day in the %d days before %s",
		e.MIC,
		e.Lookback,
		e.Date.Format(divgap.DateFormat),
	)
}

// Calendar is the trading calendar of one exchange. It is read-only
// after New returns.
type Calendar struct {
	mic      string
	name     string
	location *time.Location
	closures map[time.Time]string
	years    map[int]map[time.Time]string
}

// New builds the calendar of mic. Extra closures are merged into the
// historical special closures.
func New(
	mic string,
	extra map[time.Time]string,
) (*Calendar, error) {
	ex, ok := exchanges[mic]
	if !ok {
		return nil, &UnknownExchangeError{MIC: mic}
	}

	loc, err := time.LoadLocation(ex.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location %s: %w", ex.Timezone, err)
	}

	closures := make(map[time.Time]string, len(specialClosures)+len(extra))
	for d, reason := range specialClosures {
		closures[d] = reason
	}
	for d, reason := range extra {
		closures[divgap.Date(d)] = reason
	}

	c := &Calendar{
		mic:      mic,
		name:     ex.Name,
		location: loc,
		closures: closures,
		years:    make(map[int]map[time.Time]string),
	}
	c.warm(firstYear, time.Now().Year()+1)
	return c, nil
}

func (c *Calendar) MIC() string {
	return c.mic
}

func (c *Calendar) Name() string {
	return c.name
}

func (c *Calendar) Location() *time.Location {
	return c.location
}

// Holiday returns the reason the exchange is closed on a weekday d.
func (c *Calendar) Holiday(d time.Time) (string, bool) {
	d = divgap.Date(d)
	if reason, ok := c.closures[d]; ok {
		return reason, true
	}
	reason, ok := c.holidays(d.Year())[d]
	return reason, ok
}

func (c *Calendar) IsTradingDay(d time.Time) bool {
	d = divgap.Date(d)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, closed := c.Holiday(d)
	return !closed
}

// TradingDays returns the trading days in [from, to) in ascending order.
func (c *Calendar) TradingDays(from, to time.Time) []time.Time {
	from = divgap.Date(from)
	to = divgap.Date(to)

	days := make([]time.Time, 0)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// PreviousTradingDay returns the latest trading day strictly before d,
// searching back lookback calendar days. Lookbacks below MinLookbackDays
// are raised to it.
func (c *Calendar) PreviousTradingDay(
	d time.Time,
	lookback int,
) (time.Time, error) {
	if lookback < MinLookbackDays {
		lookback = MinLookbackDays
	}
	d = divgap.Date(d)

	days := c.TradingDays(d.AddDate(0, 0, -lookback), d)
	if len(days) == 0 {
		return time.Time{}, &NoTradingDayFoundError{
			MIC:      c.mic,
			Date:     d,
			Lookback: lookback,
		}
	}
	return days[len(days)-1], nil
}

// holidays returns the regular holidays of year. Years outside the warmed
// range are computed on every call so the calendar is never written after
// New.
func (c *Calendar) holidays(year int) map[time.Time]string {
	if h, ok := c.years[year]; ok {
		return h
	}
	return nyseHolidays(year)
}

// warm precomputes the holidays of the years in [from, to].
func (c *Calendar) warm(from, to int) {
	for y := from; y <= to; y++ {
		if _, ok := c.years[y]; !ok {
			c.years[y] = nyseHolidays(y)
		}
	}
}
