package divgap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 {
	return &v
}

func TestDividendRecord(t *testing.T) {
	r := &DividendRecord{
		Ticker:         "ABC",
		CashAmount:     float(0.5),
		ExDividendDate: "2023-03-10",
		RecordDate:     "2023-03-09",
		Frequency:      4,
	}
	d, err := r.Dividend()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.March, 10, 0, 0, 0, 0, time.UTC), d.ExDate)
	assert.True(t, d.PayDate.IsZero())
	assert.Equal(t, r, NewDividendRecord(d))

	tests := []struct {
		name   string
		modify func(r *DividendRecord)
	}{
		{"missing ticker", func(r *DividendRecord) { r.Ticker = "" }},
		{"missing cash amount", func(r *DividendRecord) { r.CashAmount = nil }},
		{"negative cash amount", func(r *DividendRecord) { r.CashAmount = float(-0.1) }},
		{"missing ex-dividend date", func(r *DividendRecord) { r.ExDividendDate = "" }},
		{"malformed record date", func(r *DividendRecord) { r.RecordDate = "03/09/2023" }},
		{"malformed pay date", func(r *DividendRecord) { r.PayDate = "2023-02-30" }},
		{"negative frequency", func(r *DividendRecord) { r.Frequency = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *r
			tt.modify(&c)
			_, err := c.Dividend()
			assert.Error(t, err)
		})
	}
}

func TestPriceRecord(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ts := time.Date(2023, time.March, 10, 2, 0, 0, 0, time.UTC)
	p := &Price{
		Symbol:    "ABC",
		Date:      DateIn(ts, loc),
		Timestamp: ts,
		Open:      1,
		High:      2,
		Low:       0.5,
		Close:     1.5,
	}
	got, err := NewPriceRecord(p).Price("ABC", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.March, 9, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, p, got)

	r := NewPriceRecord(p)
	r.Close = nil
	_, err = r.Price("ABC", loc)
	assert.Error(t, err)

	r = NewPriceRecord(p)
	*r.Low = 3
	_, err = r.Price("ABC", loc)
	assert.ErrorIs(t, err, ErrHighBelowLow)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2023, time.March, 10, 0, 0, 0, 0, time.UTC)
	b := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 5, DaysBetween(a, b))
	assert.Equal(t, -5, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))

	// Across the daylight saving change, in local dates.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	c := time.Date(2023, time.March, 11, 23, 0, 0, 0, loc)
	d := time.Date(2023, time.March, 13, 1, 0, 0, 0, loc)
	assert.Equal(t, 2, DaysBetween(c, d))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2023-03-10", FormatDate(d))

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	assert.Equal(t, "", FormatDate(d))

	_, err = ParseDate("2023-13-01")
	assert.Error(t, err)
}
