package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"szakszon.com/divgap/calendar"
	"szakszon.com/divgap/config"
	"szakszon.com/divgap/fetcher"
	"szakszon.com/divgap/fs"
	"szakszon.com/divgap/metrics"
	"szakszon.com/divgap/polygon"
	"szakszon.com/divgap/xrates"
)

// app holds what every subcommand shares for one run.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	calendars *calendar.Cache
	db        *fs.DB
}

func newApp() (*app, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir = *dataDirFlag
		case "exchange":
			cfg.Exchange = *exchangeFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).
		Level(level).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()

	closures, err := cfg.ClosureDates()
	if err != nil {
		return nil, err
	}
	calOpts := []calendar.Option{
		calendar.Lookback(cfg.LookbackDays),
		calendar.Logger(logger),
	}
	for mic, days := range closures {
		calOpts = append(calOpts, calendar.ExtraClosures(mic, days))
	}
	calendars := calendar.NewCache(calOpts...)
	if err := calendars.Preload(cfg.Exchange); err != nil {
		return nil, err
	}
	loc, err := calendars.Location(cfg.Exchange)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics.New(),
		calendars: calendars,
		db: fs.NewDB(
			fs.Dir(cfg.DataDir),
			fs.Location(loc),
			fs.Logger(logger),
		),
	}, nil
}

func (a *app) polygon() (*polygon.Polygon, error) {
	if a.cfg.Polygon.APIKey == "" {
		return nil, fmt.Errorf("%s is not set", config.EnvAPIKey)
	}
	return polygon.NewPolygon(
		polygon.BaseURL(a.cfg.Polygon.BaseURL),
		polygon.APIKey(a.cfg.Polygon.APIKey),
		polygon.RateLimiter(a.cfg.RateLimiter()),
		polygon.Timeout(a.cfg.Polygon.Timeout),
		polygon.Logger(a.logger),
	), nil
}

// fetcher wires the Polygon services into a fetcher. Later options
// override the configured ones.
func (a *app) fetcher(os ...fetcher.Option) (*fetcher.Fetcher, error) {
	p, err := a.polygon()
	if err != nil {
		return nil, err
	}
	from, err := a.cfg.DividendsFrom()
	if err != nil {
		return nil, err
	}

	opts := []fetcher.Option{
		fetcher.ExchangeService(p.NewExchangeService()),
		fetcher.TickerService(p.NewTickerService()),
		fetcher.DividendService(p.NewDividendService()),
		fetcher.PriceService(p.NewPriceService()),
		fetcher.DailyPriceService(p.NewDailyPriceService()),
		fetcher.DB(a.db),
		fetcher.Calendars(a.calendars, a.cfg.Exchange),
		fetcher.MinAnnualYield(a.cfg.Screening.MinAnnualYield),
		fetcher.DividendsFrom(from),
		fetcher.Years(a.cfg.Screening.PriceYears),
		fetcher.Logger(a.logger),
		fetcher.Metrics(a.metrics),
	}
	return fetcher.NewFetcher(append(opts, os...)...), nil
}

func (a *app) currencyService() fetcher.Option {
	return fetcher.CurrencyService(xrates.NewCurrencyService(
		xrates.Logger(a.logger),
	))
}

// close records the end of the run and writes the metrics textfile when
// one was requested.
func (a *app) close() {
	a.metrics.Done(time.Now())
	if *metricsFileFlag == "" {
		return
	}
	if err := a.metrics.WriteTextfile(*metricsFileFlag); err != nil {
		a.logger.Error().Err(err).Msg("metrics")
	}
}
