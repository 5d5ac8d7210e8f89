// Package fetcher pulls tickers, dividends and daily prices from the
// market data services into the flat-file store, one ticker at a time.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"szakszon.com/divgap"
	"szakszon.com/divgap/calendar"
	"szakszon.com/divgap/gapfill"
	"szakszon.com/divgap/metrics"
)

// MajorExchanges are the MICs of the main US stock exchanges.
var MajorExchanges = []string{"XNYS", "XNAS", "XASE"}

type options struct {
	exchangeService   divgap.ExchangeService
	tickerService     divgap.TickerService
	dividendService   divgap.DividendService
	priceService      divgap.PriceService
	dailyPriceService divgap.DailyPriceService
	currencyService   divgap.CurrencyService
	db                divgap.DB
	calendars         *calendar.Cache
	exchange          string
	currency          string
	minAnnualYield    float64
	dividendsFrom     time.Time
	years             int
	now               func() time.Time
	logger            zerolog.Logger
	metrics           *metrics.Metrics
}

type Option func(o options) options

func ExchangeService(s divgap.ExchangeService) Option {
	return func(o options) options {
		o.exchangeService = s
		return o
	}
}

func TickerService(s divgap.TickerService) Option {
	return func(o options) options {
		o.tickerService = s
		return o
	}
}

func DividendService(s divgap.DividendService) Option {
	return func(o options) options {
		o.dividendService = s
		return o
	}
}

func PriceService(s divgap.PriceService) Option {
	return func(o options) options {
		o.priceService = s
		return o
	}
}

func DailyPriceService(s divgap.DailyPriceService) Option {
	return func(o options) options {
		o.dailyPriceService = s
		return o
	}
}

// CurrencyService enables the conversion of dividend amounts to the price
// currency.
func CurrencyService(s divgap.CurrencyService) Option {
	return func(o options) options {
		o.currencyService = s
		return o
	}
}

func DB(db divgap.DB) Option {
	return func(o options) options {
		o.db = db
		return o
	}
}

func Calendars(c *calendar.Cache, mic string) Option {
	return func(o options) options {
		o.calendars = c
		o.exchange = mic
		return o
	}
}

// MinAnnualYield is the estimated annual yield, in percent, a ticker's
// latest dividend must reach for its dividends to be saved. Zero disables
// the screening.
func MinAnnualYield(v float64) Option {
	return func(o options) options {
		o.minAnnualYield = v
		return o
	}
}

// DividendsFrom drops dividends with a record date before d. The latest
// dividend is always kept.
func DividendsFrom(d time.Time) Option {
	return func(o options) options {
		o.dividendsFrom = d
		return o
	}
}

// Years is the number of full calendar years of prices fetched before the
// current one.
func Years(n int) Option {
	return func(o options) options {
		o.years = n
		return o
	}
}

func Now(now func() time.Time) Option {
	return func(o options) options {
		o.now = now
		return o
	}
}

func Logger(l zerolog.Logger) Option {
	return func(o options) options {
		o.logger = l
		return o
	}
}

func Metrics(m *metrics.Metrics) Option {
	return func(o options) options {
		o.metrics = m
		return o
	}
}

var defaultOptions = options{
	exchange:       "XNYS",
	currency:       "USD",
	minAnnualYield: 8,
	dividendsFrom:  time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC),
	years:          5,
	now:            time.Now,
	logger:         zerolog.Nop(),
}

type Fetcher struct {
	opts options
}

func NewFetcher(os ...Option) *Fetcher {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}
	if opts.calendars == nil {
		opts.calendars = calendar.NewCache(calendar.Logger(opts.logger))
	}
	return &Fetcher{
		opts: opts,
	}
}

type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

var ErrNotConfigured = errors.New("service not configured")

// Output lists the symbols written to the store and those left out by
// the screening or for lack of data.
type Output struct {
	Saved   []string
	Skipped []string
}

func newOutput() *Output {
	return &Output{
		Saved:   make([]string, 0),
		Skipped: make([]string, 0),
	}
}

// Exchanges lists the US stock exchanges.
func (f *Fetcher) Exchanges(ctx context.Context) ([]*divgap.Exchange, error) {
	if f.opts.exchangeService == nil {
		return nil, fmt.Errorf("exchanges: %w", ErrNotConfigured)
	}
	out, err := f.opts.exchangeService.Fetch(ctx, &divgap.ExchangeFetchInput{
		AssetClass: "stocks",
		Locale:     "us",
	})
	if err != nil {
		return nil, err
	}
	return out.Exchanges, nil
}

// Tickers saves the active tickers of mics. With no mics every US stock
// exchange with a MIC is listed. Failed exchanges are reported in the
// returned error and do not stop the others.
func (f *Fetcher) Tickers(
	ctx context.Context,
	mics []string,
) ([]*divgap.Ticker, error) {
	if f.opts.tickerService == nil {
		return nil, fmt.Errorf("tickers: %w", ErrNotConfigured)
	}

	if len(mics) == 0 {
		exchanges, err := f.Exchanges(ctx)
		if err != nil {
			return nil, fmt.Errorf("exchanges: %w", err)
		}
		for _, e := range exchanges {
			if e.MIC != "" {
				mics = append(mics, e.MIC)
			}
		}
		f.opts.logger.Info().Msgf("Found %d exchanges to process", len(mics))
	}

	var errs *multierror.Error
	seen := make(map[string]struct{})
	tickers := make([]*divgap.Ticker, 0)

LOOP:
	for i, mic := range mics {
		select {
		case <-ctx.Done():
			errs = multierror.Append(errs, ctx.Err())
			break LOOP
		default:
			// noop
		}

		f.opts.logger.Info().Msgf("Processing exchange %s (%d/%d)", mic, i+1, len(mics))
		out, err := f.opts.tickerService.Fetch(ctx, &divgap.TickerFetchInput{
			Exchange: mic,
			Market:   "stocks",
			Active:   true,
		})
		if err != nil {
			f.opts.metrics.FetchError("tickers")
			errs = multierror.Append(errs, &FetchError{Symbol: mic, Err: err})
			continue
		}

		n := 0
		for _, t := range out.Tickers {
			if _, ok := seen[t.Symbol]; ok {
				continue
			}
			seen[t.Symbol] = struct{}{}
			tickers = append(tickers, t)
			n++
		}
		f.opts.logger.Info().Msgf("Found %d tickers in %s", n, mic)
	}

	if f.opts.db != nil && len(tickers) > 0 {
		out, err := f.opts.db.SaveTickers(ctx, &divgap.DBSaveTickersInput{
			Tickers: tickers,
		})
		if err != nil {
			return tickers, multierror.Append(errs, err)
		}
		f.opts.logger.Info().Msgf("Total tickers saved: %d to %s", len(tickers), out.Path)
	}

	return tickers, errs.ErrorOrNil()
}

// Dividends fetches, screens and saves the dividends of every symbol.
func (f *Fetcher) Dividends(
	ctx context.Context,
	symbols []string,
) (*Output, error) {
	if f.opts.dividendService == nil || f.opts.db == nil {
		return nil, fmt.Errorf("dividends: %w", ErrNotConfigured)
	}
	return f.each(ctx, symbols, "dividends", f.dividends)
}

// Prices fetches and saves the unadjusted daily bars of every symbol from
// January 1st of the first configured year until today.
func (f *Fetcher) Prices(
	ctx context.Context,
	symbols []string,
) (*Output, error) {
	if f.opts.priceService == nil || f.opts.db == nil {
		return nil, fmt.Errorf("prices: %w", ErrNotConfigured)
	}
	return f.each(ctx, symbols, "prices", f.prices)
}

func (f *Fetcher) each(
	ctx context.Context,
	symbols []string,
	kind string,
	fetch func(ctx context.Context, symbol string) (bool, error),
) (*Output, error) {
	out := newOutput()
	var errs *multierror.Error

LOOP:
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			errs = multierror.Append(errs, ctx.Err())
			break LOOP
		default:
			// noop
		}

		saved, err := fetch(ctx, symbol)
		if err != nil {
			f.opts.metrics.FetchError(kind)
			f.opts.logger.Error().
				Str("symbol", symbol).
				Err(err).
				Msgf("Error processing %s", kind)
			errs = multierror.Append(errs, &FetchError{Symbol: symbol, Err: err})
			continue
		}
		if saved {
			out.Saved = append(out.Saved, symbol)
		} else {
			out.Skipped = append(out.Skipped, symbol)
		}
	}

	return out, errs.ErrorOrNil()
}

func (f *Fetcher) dividends(ctx context.Context, symbol string) (bool, error) {
	log := f.opts.logger.With().Str("symbol", symbol).Logger()
	log.Info().Msgf("Analyzing dividend yield for %s...", symbol)

	fetched, err := f.opts.dividendService.Fetch(ctx, &divgap.DividendFetchInput{
		Symbol: symbol,
		Limit:  1000,
	})
	if err != nil {
		return false, err
	}
	for _, r := range fetched.Invalid {
		log.Warn().
			Int("index", r.Index).
			Str("skip", "data-integrity").
			Err(r.Err).
			Msg("invalid dividend")
	}
	if len(fetched.Dividends) == 0 {
		log.Info().Msgf("No dividend data found for %s", symbol)
		return false, nil
	}

	latest := fetched.Dividends[0]
	if f.opts.minAnnualYield > 0 {
		ok, err := f.screen(ctx, latest)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	dividends := make([]*divgap.Dividend, 0, len(fetched.Dividends))
	dividends = append(dividends, latest)
	for _, d := range fetched.Dividends[1:] {
		if d.RecordDate.Before(f.opts.dividendsFrom) {
			log.Debug().Msgf("Dividend record date %s is before %s",
				d.RecordDate.Format(divgap.DateFormat),
				f.opts.dividendsFrom.Format(divgap.DateFormat),
			)
			break
		}
		dividends = append(dividends, d)
	}

	if f.opts.currencyService != nil {
		if err := f.convert(ctx, dividends); err != nil {
			return false, err
		}
	}

	saved, err := f.opts.db.SaveDividends(ctx, &divgap.DBSaveDividendsInput{
		Symbol:    symbol,
		Dividends: dividends,
	})
	if err != nil {
		return false, err
	}

	log.Info().Msgf("%s: %d dividends saved to %s", symbol, len(dividends), saved.Path)
	return true, nil
}

// screen estimates the annual yield of the latest dividend from the close
// of the trading day before its record date.
func (f *Fetcher) screen(
	ctx context.Context,
	latest *divgap.Dividend,
) (bool, error) {
	if f.opts.dailyPriceService == nil {
		return false, fmt.Errorf("daily price: %w", ErrNotConfigured)
	}
	log := f.opts.logger.With().Str("symbol", latest.Symbol).Logger()

	day, err := f.opts.calendars.PreviousTradingDay(latest.RecordDate, f.opts.exchange)
	if err != nil {
		return false, fmt.Errorf("previous trading day: %w", err)
	}

	daily, err := f.opts.dailyPriceService.Fetch(ctx, &divgap.DailyPriceFetchInput{
		Symbol:   latest.Symbol,
		Date:     day,
		Adjusted: true,
	})
	if err != nil {
		return false, err
	}

	annual, err := gapfill.EstimatedAnnualYield(
		latest.CashAmount,
		daily.Price.Close,
		latest.Frequency,
	)
	if err != nil {
		return false, fmt.Errorf("estimated annual yield: %w", err)
	}

	log.Info().Msgf("Latest dividend amount: $%v", latest.CashAmount)
	log.Info().Msgf("Stock price on %s: $%.2f", day.Format(divgap.DateFormat), daily.Price.Close)
	log.Info().Msgf("Estimated annual yield: %.2f%%", annual)

	if annual < f.opts.minAnnualYield {
		log.Info().Msgf("Annual yield is too low (%.2f%%), skipping %s", annual, latest.Symbol)
		return false, nil
	}
	return true, nil
}

func (f *Fetcher) convert(ctx context.Context, dividends []*divgap.Dividend) error {
	for _, d := range dividends {
		if d.Currency == "" || d.Currency == f.opts.currency {
			continue
		}
		out, err := f.opts.currencyService.Convert(ctx, &divgap.CurrencyConvertInput{
			From:   d.Currency,
			To:     f.opts.currency,
			Amount: d.CashAmount,
			Date:   d.ExDate,
		})
		if err != nil {
			return fmt.Errorf("convert %s: %w", d.ExDate.Format(divgap.DateFormat), err)
		}
		f.opts.logger.Debug().
			Str("symbol", d.Symbol).
			Str("from", d.Currency).
			Float64("rate", out.Rate).
			Msg("dividend converted")
		d.CashAmount = out.Amount
		d.Currency = f.opts.currency
	}
	return nil
}

func (f *Fetcher) prices(ctx context.Context, symbol string) (bool, error) {
	now := f.opts.now()
	from := time.Date(now.Year()-f.opts.years, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := divgap.Date(now)

	fetched, err := f.opts.priceService.Fetch(ctx, &divgap.PriceFetchInput{
		Symbol: symbol,
		From:   from,
		To:     to,
	})
	if err != nil {
		return false, err
	}
	for _, r := range fetched.Invalid {
		f.opts.logger.Warn().
			Str("symbol", symbol).
			Int("index", r.Index).
			Str("skip", "data-integrity").
			Err(r.Err).
			Msg("invalid price")
	}
	if len(fetched.Prices) == 0 {
		f.opts.logger.Info().Msgf("No daily price data found for %s", symbol)
		return false, nil
	}

	saved, err := f.opts.db.SavePrices(ctx, &divgap.DBSavePricesInput{
		Symbol: symbol,
		Prices: fetched.Prices,
	})
	if err != nil {
		return false, err
	}

	f.opts.logger.Info().Msgf("Daily price data for %s saved to: %s", symbol, saved.Path)
	return true, nil
}
