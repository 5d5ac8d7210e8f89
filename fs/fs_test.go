package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"szakszon.com/divgap"
)

func newYork(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func writeFile(t *testing.T, p, content string) {
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestDividends(t *testing.T) {
	dir := t.TempDir()
	db := NewDB(Dir(dir))

	writeFile(t, filepath.Join(dir, "dividend_data_ABC.json"), `[
    {
        "ticker": "ABC",
        "cash_amount": 0.5,
        "currency": "USD",
        "declaration_date": "2023-02-20",
        "dividend_type": "CD",
        "ex_dividend_date": "2023-03-10",
        "frequency": 4,
        "pay_date": "2023-03-31",
        "record_date": "2023-03-09"
    },
    {"ticker": "ABC", "cash_amount": -1, "ex_dividend_date": "2022-12-09", "record_date": "2022-12-12", "frequency": 4},
    {"ticker": "ABC", "cash_amount": 0.4, "ex_dividend_date": "2022-09-31", "record_date": "2022-09-12", "frequency": 4},
    {"ticker": "ABC", "cash_amount": "0.4", "ex_dividend_date": "2022-06-09", "record_date": "2022-06-10", "frequency": 4},
    {"ticker": "ABC", "ex_dividend_date": "2022-03-09", "record_date": "2022-03-10", "frequency": 4},
    {"ticker": "ABC", "cash_amount": 0, "ex_dividend_date": "2021-12-09", "record_date": "2021-12-10", "frequency": 4}
]`)

	out, err := db.Dividends(context.Background(), &divgap.DBDividendsInput{Symbol: "ABC"})
	require.NoError(t, err)
	require.Len(t, out.Dividends, 2)

	d := out.Dividends[0]
	assert.Equal(t, "ABC", d.Symbol)
	assert.Equal(t, 0.5, d.CashAmount)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, 4, d.Frequency)
	assert.Equal(t, "CD", d.Type)
	assert.Equal(t, time.Date(2023, time.March, 10, 0, 0, 0, 0, time.UTC), d.ExDate)
	assert.Equal(t, time.Date(2023, time.March, 9, 0, 0, 0, 0, time.UTC), d.RecordDate)
	assert.Equal(t, time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC), d.PayDate)

	assert.Equal(t, 0.0, out.Dividends[1].CashAmount)

	require.Len(t, out.Invalid, 4)
	indexes := make([]int, 0)
	for _, r := range out.Invalid {
		indexes = append(indexes, r.Index)
		assert.Equal(t, "ABC", r.Symbol)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, indexes)
}

func TestMissingFiles(t *testing.T) {
	db := NewDB(Dir(t.TempDir()))
	ctx := context.Background()

	dout, err := db.Dividends(ctx, &divgap.DBDividendsInput{Symbol: "NONE"})
	require.NoError(t, err)
	assert.Empty(t, dout.Dividends)

	pout, err := db.Prices(ctx, &divgap.DBPricesInput{Symbol: "NONE"})
	require.NoError(t, err)
	assert.Empty(t, pout.Prices)

	tout, err := db.Tickers(ctx, &divgap.DBTickersInput{})
	require.NoError(t, err)
	assert.Empty(t, tout.Tickers)
}

func TestMalformedFile(t *testing.T) {
	dir := t.TempDir()
	db := NewDB(Dir(dir))

	writeFile(t, filepath.Join(dir, "daily_price_ABC.json"), `{"timestamp": 1}`)
	_, err := db.Prices(context.Background(), &divgap.DBPricesInput{Symbol: "ABC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open bracket")

	writeFile(t, filepath.Join(dir, "daily_price_ABC.json"), `[{"timestamp": 1},`)
	_, err = db.Prices(context.Background(), &divgap.DBPricesInput{Symbol: "ABC"})
	require.Error(t, err)
}

func TestPricesUseExchangeLocalDate(t *testing.T) {
	dir := t.TempDir()
	db := NewDB(Dir(dir), Location(newYork(t)))

	// 2023-03-09T05:00:00Z is midnight in New York, the usual daily
	// aggregate timestamp. 2023-03-10T02:00:00Z is still 2023-03-09 there.
	writeFile(t, filepath.Join(dir, "daily_price_ABC.json"), `[
    {"timestamp": 1678338000000, "open": 49.9, "high": 50.3, "low": 49.8, "close": 50.0, "volume": 1000},
    {"timestamp": 1678413600000, "open": 49.9, "high": 50.3, "low": 49.8, "close": 51.0},
    {"timestamp": 1678424400000, "open": 49.6, "high": 49.4, "low": 49.5, "close": 49.5},
    {"timestamp": 1678424400000, "open": 49.6, "high": 49.8, "close": 49.5},
    {"timestamp": 0, "open": 1, "high": 1, "low": 1, "close": 1}
]`)

	out, err := db.Prices(context.Background(), &divgap.DBPricesInput{Symbol: "ABC"})
	require.NoError(t, err)
	require.Len(t, out.Prices, 2)

	day := time.Date(2023, time.March, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, out.Prices[0].Date)
	assert.Equal(t, day, out.Prices[1].Date)
	assert.Equal(t, 1000.0, out.Prices[0].Volume)
	assert.Equal(t, "ABC", out.Prices[0].Symbol)

	require.Len(t, out.Invalid, 3)
	assert.ErrorIs(t, out.Invalid[0], divgap.ErrHighBelowLow)
	assert.Equal(t, 3, out.Invalid[1].Index)
	assert.Equal(t, 4, out.Invalid[2].Index)
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	db := NewDB(Dir(dir), Location(newYork(t)))
	ctx := context.Background()

	ts := time.Date(2023, time.March, 9, 5, 0, 0, 0, time.UTC)
	prices := []*divgap.Price{{
		Symbol:    "ABC",
		Date:      time.Date(2023, time.March, 9, 0, 0, 0, 0, time.UTC),
		Timestamp: ts,
		Open:      1,
		High:      2,
		Low:       0.5,
		Close:     1.5,
		Volume:    10,
	}}
	pout, err := db.SavePrices(ctx, &divgap.DBSavePricesInput{Symbol: "ABC", Prices: prices})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "daily_price_ABC.json"), pout.Path)

	loaded, err := db.Prices(ctx, &divgap.DBPricesInput{Symbol: "ABC"})
	require.NoError(t, err)
	require.Len(t, loaded.Prices, 1)
	assert.Equal(t, prices[0].Date, loaded.Prices[0].Date)
	assert.True(t, ts.Equal(loaded.Prices[0].Timestamp))
	assert.Equal(t, 1.5, loaded.Prices[0].Close)

	dividends := []*divgap.Dividend{{
		Symbol:     "ABC",
		ExDate:     time.Date(2023, time.March, 10, 0, 0, 0, 0, time.UTC),
		RecordDate: time.Date(2023, time.March, 9, 0, 0, 0, 0, time.UTC),
		CashAmount: 0.5,
		Frequency:  4,
		Currency:   "USD",
	}}
	_, err = db.SaveDividends(ctx, &divgap.DBSaveDividendsInput{Symbol: "ABC", Dividends: dividends})
	require.NoError(t, err)
	_, err = db.SaveDividends(ctx, &divgap.DBSaveDividendsInput{Symbol: "XYZ"})
	require.NoError(t, err)

	dout, err := db.Dividends(ctx, &divgap.DBDividendsInput{Symbol: "ABC"})
	require.NoError(t, err)
	assert.Equal(t, dividends, dout.Dividends)
	assert.Empty(t, dout.Invalid)

	symbols, err := db.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC", "XYZ"}, symbols)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestTickers(t *testing.T) {
	db := NewDB(Dir(t.TempDir()))
	ctx := context.Background()

	tickers := []*divgap.Ticker{
		{Symbol: "ABC", Name: "ABC Corp", PrimaryExchange: "XNYS", Active: true, Market: "stocks"},
		{Symbol: "XYZ", Name: "XYZ Inc", PrimaryExchange: "XNAS", Active: true},
	}
	_, err := db.SaveTickers(ctx, &divgap.DBSaveTickersInput{Tickers: tickers})
	require.NoError(t, err)

	out, err := db.Tickers(ctx, &divgap.DBTickersInput{})
	require.NoError(t, err)
	assert.Equal(t, tickers, out.Tickers)
}
