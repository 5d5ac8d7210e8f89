package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"szakszon.com/divgap"
)

func date(s string) time.Time {
	t, err := time.Parse(divgap.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func filledRow() *divgap.GapFill {
	fill := date("2023-03-15")
	trading, calendar := 4, 5
	avg := 0.2
	return &divgap.GapFill{
		Symbol:             "ABC",
		ExDate:             date("2023-03-10"),
		RecordDate:         date("2023-03-09"),
		CashAmount:         0.5,
		ReferenceDate:      date("2023-03-09"),
		ReferenceClose:     50,
		DividendYield:      1,
		FillDate:           &fill,
		TradingDaysToFill:  &trading,
		CalendarDaysToFill: &calendar,
		AverageDailyYield:  &avg,
	}
}

func openRow() *divgap.GapFill {
	return &divgap.GapFill{
		Symbol:         "XYZ",
		ExDate:         date("2023-06-01"),
		RecordDate:     date("2023-06-02"),
		CashAmount:     0.123,
		ReferenceDate:  date("2023-05-31"),
		ReferenceClose: 12.3,
		DividendYield:  0.123 / 12.3 * 100,
	}
}

func TestWriteCSV(t *testing.T) {
	r := New()
	r.Append(filledRow(), nil, openRow())

	b := &bytes.Buffer{}
	require.NoError(t, r.WriteCSV(b))

	want := "Ticker,Ex-Dividend Date,Dividend Yield (%),Fill Gap Date," +
		"Trading Days to Fill Gap,Calendar Days to Fill Gap,Average Daily Yield (%)\n" +
		"ABC,2023-03-10,1.00,2023-03-15,4,5,0.2000\n" +
		"XYZ,2023-06-01,1.00,,,,\n"
	assert.Equal(t, want, b.String())
}

func TestWriteIsIdempotent(t *testing.T) {
	build := func() []byte {
		r := New()
		r.Append(openRow(), filledRow())
		b := &bytes.Buffer{}
		require.NoError(t, r.Write(b, FormatCSV))
		return b.Bytes()
	}
	assert.Equal(t, build(), build())
}

func TestAppendPreservesOrder(t *testing.T) {
	r := New()
	r.Append(openRow())
	r.Append(filledRow(), openRow())

	require.Equal(t, 3, r.Len())
	assert.Equal(t, "XYZ", r.Rows()[0].Symbol)
	assert.Equal(t, "ABC", r.Rows()[1].Symbol)
	assert.Equal(t, "XYZ", r.Rows()[2].Symbol)
}

func TestWriteJSON(t *testing.T) {
	r := New()
	r.Append(filledRow(), openRow())

	b := &bytes.Buffer{}
	require.NoError(t, r.WriteJSON(b))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(b.Bytes(), &rows))
	require.Len(t, rows, 2)

	assert.Equal(t, "ABC", rows[0]["ticker"])
	assert.Equal(t, "2023-03-15", rows[0]["fill_gap_date"])
	assert.Equal(t, 4.0, rows[0]["trading_days_to_fill_gap"])

	assert.Contains(t, rows[1], "fill_gap_date")
	assert.Nil(t, rows[1]["fill_gap_date"])
	assert.Nil(t, rows[1]["average_daily_yield_pct"])
}

func TestWriteTable(t *testing.T) {
	r := New()
	r.Append(filledRow(), openRow())

	b := &bytes.Buffer{}
	require.NoError(t, r.WriteTable(b))

	out := b.String()
	assert.Contains(t, out, "Ex-Dividend Date")
	assert.Contains(t, out, "1.00%")
	assert.Contains(t, out, "0.2000%")
	assert.Contains(t, out, "Dividends: 2, gap filled: 1")
}

func TestMarkdown(t *testing.T) {
	r := New()
	r.Append(filledRow(), openRow())

	md := r.Markdown()
	assert.Contains(t, md, "| ABC | 2023-03-10 | 1.00 | 2023-03-15 | 4 | 5 | 0.2000 |")
	assert.Contains(t, md, "| XYZ | 2023-06-01 | 1.00 |  |  |  |  |")

	b := &bytes.Buffer{}
	require.NoError(t, r.WriteMarkdown(b, "notty"))
	assert.Contains(t, b.String(), "ABC")
	assert.Contains(t, b.String(), "2023-03-15")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestHeaderIsACopy(t *testing.T) {
	h := Header()
	h[0] = "x"
	assert.Equal(t, "Ticker", Header()[0])
}
