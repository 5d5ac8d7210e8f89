// Package gapfill measures how long a stock takes to recover its
// pre-dividend close.
package gapfill

import (
	"errors"
	"time"

	"szakszon.com/divgap"
	"szakszon.com/divgap/series"
)

var ErrNonPositivePrice = errors.New("non-positive reference price")

// ReferencePrice returns the bar of the trading day before the ex-dividend
// date. Its close is the yield denominator and the fill target.
func ReferencePrice(
	d *divgap.Dividend,
	s *series.Series,
) (*divgap.Price, bool) {
	return s.BarBefore(d.ExDate)
}

// Fill is the first bar after the record date whose high reached the
// reference price. TradingDays counts the bars after the record date up
// to and including that bar.
type Fill struct {
	Date        time.Time
	TradingDays int
	Bar         *divgap.Price
}

// FindFill scans the bars after recordDate in date order and returns the
// first one with High >= ref.
func FindFill(
	s *series.Series,
	recordDate time.Time,
	ref float64,
) (Fill, bool) {
	n := 0
	for p := range s.BarsAfter(recordDate) {
		n++
		if p.High >= ref {
			return Fill{Date: p.Date, TradingDays: n, Bar: p}, true
		}
	}
	return Fill{}, false
}

// DividendYield returns cash as a percentage of ref.
func DividendYield(cash, ref float64) (float64, error) {
	if ref <= 0 {
		return 0, ErrNonPositivePrice
	}
	return cash / ref * 100, nil
}

// EstimatedAnnualYield scales the yield of one payment by the number of
// payments per year.
func EstimatedAnnualYield(cash, ref float64, frequency int) (float64, error) {
	y, err := DividendYield(cash, ref)
	if err != nil {
		return 0, err
	}
	return y * float64(frequency), nil
}

// CalendarDaysToFill returns the calendar days from the ex-dividend date
// to the fill date.
func CalendarDaysToFill(fill *time.Time, exDate time.Time) *int {
	if fill == nil {
		return nil
	}
	days := divgap.DaysBetween(exDate, *fill)
	return &days
}

// AverageDailyYield spreads the yield over the calendar days to fill. It
// is undefined for missing, zero or negative day counts.
func AverageDailyYield(yield float64, days *int) *float64 {
	if days == nil || *days <= 0 {
		return nil
	}
	v := yield / float64(*days)
	return &v
}
