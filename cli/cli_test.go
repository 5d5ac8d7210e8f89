package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"szakszon.com/divgap"
	"szakszon.com/divgap/calendar"
	"szakszon.com/divgap/fetcher"
	"szakszon.com/divgap/fs"
	"szakszon.com/divgap/gapfill"
	"szakszon.com/divgap/metrics"
	"szakszon.com/divgap/report"
)

func date(s string) time.Time {
	t, err := time.Parse(divgap.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newYork(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// seed stores the ABC example: a 0.50 dividend going ex on 2023-03-10
// whose gap closes on 2023-03-15.
func seed(t *testing.T, db *fs.DB) {
	ctx := context.Background()
	_, err := db.SaveDividends(ctx, &divgap.DBSaveDividendsInput{
		Symbol: "ABC",
		Dividends: []*divgap.Dividend{{
			Symbol:     "ABC",
			ExDate:     date("2023-03-10"),
			RecordDate: date("2023-03-09"),
			CashAmount: 0.50,
			Currency:   "USD",
			Frequency:  4,
			Type:       "CD",
		}},
	})
	require.NoError(t, err)

	loc := newYork(t)
	bars := []struct {
		d           string
		high, close float64
	}{
		{"2023-03-08", 50.40, 50.20},
		{"2023-03-09", 50.30, 50.00},
		{"2023-03-10", 49.80, 49.50},
		{"2023-03-13", 49.70, 49.40},
		{"2023-03-14", 49.95, 49.90},
		{"2023-03-15", 50.10, 50.05},
		{"2023-03-16", 50.50, 50.40},
	}
	prices := make([]*divgap.Price, 0, len(bars))
	for _, b := range bars {
		d := date(b.d)
		prices = append(prices, &divgap.Price{
			Symbol:    "ABC",
			Date:      d,
			Timestamp: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc),
			Open:      b.close,
			High:      b.high,
			Low:       b.close,
			Close:     b.close,
			Volume:    1000,
		})
	}
	_, err = db.SavePrices(ctx, &divgap.DBSavePricesInput{Symbol: "ABC", Prices: prices})
	require.NoError(t, err)
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	db := fs.NewDB(fs.Dir(dir), fs.Location(newYork(t)))
	seed(t, db)

	out := filepath.Join(dir, "out", report.DefaultFile)
	stdout := &bytes.Buffer{}
	cmd := NewCommand("analyze", nil,
		DB(db),
		Writer(stdout),
		Output(out),
	)
	require.NoError(t, cmd.Execute(context.Background()))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	want := "Ticker,Ex-Dividend Date,Dividend Yield (%),Fill Gap Date," +
		"Trading Days to Fill Gap,Calendar Days to Fill Gap,Average Daily Yield (%)\n" +
		"ABC,2023-03-10,1.00,2023-03-15,4,5,0.2000\n"
	assert.Equal(t, want, string(b))
	assert.Contains(t, stdout.String(), out)

	// A second run produces the same bytes.
	require.NoError(t, cmd.Execute(context.Background()))
	again, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, b, again)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAnalyzeToWriter(t *testing.T) {
	dir := t.TempDir()
	db := fs.NewDB(fs.Dir(dir), fs.Location(newYork(t)))
	seed(t, db)

	stdout := &bytes.Buffer{}
	cmd := NewCommand("analyze", []string{"abc", "zzz"},
		DB(db),
		Writer(stdout),
		Output("-"),
		Format(report.FormatTable),
	)
	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, stdout.String(), "2023-03-15")
	assert.Contains(t, stdout.String(), "Dividends: 1, gap filled: 1")
}

func TestAnalyzeUsesPrimaryExchange(t *testing.T) {
	ctx := context.Background()
	cache := calendar.NewCache(calendar.ExtraClosures("XNAS", map[time.Time]string{
		date("2023-03-09"): "Test closure",
	}))

	run := func(t *testing.T, primary string) *metrics.Metrics {
		db := fs.NewDB(fs.Dir(t.TempDir()), fs.Location(newYork(t)))
		seed(t, db)
		_, err := db.SaveTickers(ctx, &divgap.DBSaveTickersInput{
			Tickers: []*divgap.Ticker{{Symbol: "ABC", PrimaryExchange: primary, Active: true}},
		})
		require.NoError(t, err)

		m := metrics.New()
		cmd := NewCommand("analyze", nil,
			DB(db),
			Output("-"),
			Analyzer(gapfill.NewAnalyzer(
				gapfill.Calendars(cache, "XNYS"),
				gapfill.Metrics(m),
			)),
		)
		require.NoError(t, cmd.Execute(ctx))
		return m
	}

	m := run(t, "XNAS")
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.Anomalies.WithLabelValues(gapfill.AnomalyReferenceDayMismatch)))
	// The end of the run is recorded by the caller.
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastRun))

	// Exchanges without a calendar fall back to the analyzer's.
	m = run(t, "OTC")
	assert.Equal(t, 0.0, testutil.ToFloat64(
		m.Anomalies.WithLabelValues(gapfill.AnomalyReferenceDayMismatch)))
}

func TestAnalyzeEmptyDir(t *testing.T) {
	cmd := NewCommand("analyze", nil, DB(fs.NewDB(fs.Dir(t.TempDir()))))
	assert.Error(t, cmd.Execute(context.Background()))
}

func TestInvalidCommand(t *testing.T) {
	err := NewCommand("stats", nil).Execute(context.Background())
	assert.EqualError(t, err, "invalid command: stats")
}

func TestNotConfigured(t *testing.T) {
	for _, name := range []string{"exchanges", "tickers", "dividends", "prices"} {
		err := NewCommand(name, []string{"ABC"}).Execute(context.Background())
		assert.ErrorIs(t, err, fetcher.ErrNotConfigured, name)
	}
}

type dividendService struct{}

func (dividendService) Fetch(
	ctx context.Context,
	in *divgap.DividendFetchInput,
) (*divgap.DividendFetchOutput, error) {
	if in.Symbol == "BAD" {
		return nil, errors.New("not found")
	}
	return &divgap.DividendFetchOutput{Dividends: []*divgap.Dividend{{
		Symbol:     in.Symbol,
		ExDate:     date("2023-03-10"),
		RecordDate: date("2023-03-13"),
		CashAmount: 0.5,
		Frequency:  4,
	}}}, nil
}

func TestDividendsPartialFailure(t *testing.T) {
	db := fs.NewDB(fs.Dir(t.TempDir()))
	f := fetcher.NewFetcher(
		fetcher.DividendService(dividendService{}),
		fetcher.DB(db),
		fetcher.MinAnnualYield(0),
	)
	stdout := &bytes.Buffer{}

	cmd := NewCommand("dividends", []string{"abc", "bad"},
		DB(db),
		Fetcher(f),
		Writer(stdout),
	)
	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, stdout.String(), "dividends saved: 1, skipped: 0")

	symbols, err := db.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC"}, symbols)

	cmd = NewCommand("dividends", []string{"bad"}, DB(db), Fetcher(f))
	assert.Error(t, cmd.Execute(context.Background()))
}

func TestDividendsFromSavedTickers(t *testing.T) {
	db := fs.NewDB(fs.Dir(t.TempDir()))
	f := fetcher.NewFetcher(
		fetcher.DividendService(dividendService{}),
		fetcher.DB(db),
		fetcher.MinAnnualYield(0),
	)

	cmd := NewCommand("dividends", nil, DB(db), Fetcher(f))
	assert.Error(t, cmd.Execute(context.Background()))

	_, err := db.SaveTickers(context.Background(), &divgap.DBSaveTickersInput{
		Tickers: []*divgap.Ticker{{Symbol: "XYZ", Name: "XYZ Corp", Active: true}},
	})
	require.NoError(t, err)
	require.NoError(t, cmd.Execute(context.Background()))

	symbols, err := db.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"XYZ"}, symbols)
}

type exchangeService struct{}

func (exchangeService) Fetch(
	ctx context.Context,
	in *divgap.ExchangeFetchInput,
) (*divgap.ExchangeFetchOutput, error) {
	return &divgap.ExchangeFetchOutput{Exchanges: []*divgap.Exchange{{
		ID:           10,
		Type:         "exchange",
		Name:         "New York Stock Exchange",
		Acronym:      "NYSE",
		MIC:          "XNYS",
		OperatingMIC: "XNYS",
	}}}, nil
}

type tickerService struct{}

func (tickerService) Fetch(
	ctx context.Context,
	in *divgap.TickerFetchInput,
) (*divgap.TickerFetchOutput, error) {
	return &divgap.TickerFetchOutput{Tickers: []*divgap.Ticker{
		{Symbol: in.Exchange + "1"},
		{Symbol: in.Exchange + "2"},
	}}, nil
}

func TestExchanges(t *testing.T) {
	stdout := &bytes.Buffer{}
	f := fetcher.NewFetcher(fetcher.ExchangeService(exchangeService{}))
	cmd := NewCommand("exchanges", nil, Fetcher(f), Writer(stdout))
	require.NoError(t, cmd.Execute(context.Background()))
	assert.Contains(t, stdout.String(), "Operating MIC")
	assert.Contains(t, stdout.String(), "New York Stock Exchange")
}

func TestTickersMajor(t *testing.T) {
	db := fs.NewDB(fs.Dir(t.TempDir()))
	f := fetcher.NewFetcher(
		fetcher.TickerService(tickerService{}),
		fetcher.DB(db),
	)
	stdout := &bytes.Buffer{}
	cmd := NewCommand("tickers", nil, Fetcher(f), Major(true), Writer(stdout))
	require.NoError(t, cmd.Execute(context.Background()))
	assert.Equal(t, "Total tickers: 6\n", stdout.String())

	out, err := db.Tickers(context.Background(), &divgap.DBTickersInput{})
	require.NoError(t, err)
	assert.Len(t, out.Tickers, 6)
}
