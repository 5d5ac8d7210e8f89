package gapfill

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"szakszon.com/divgap"
	"szakszon.com/divgap/calendar"
	"szakszon.com/divgap/metrics"
	"szakszon.com/divgap/series"
)

const (
	ReasonAlignment     = "alignment"
	ReasonDataIntegrity = "data-integrity"
)

const (
	AnomalyExDateAfterRecordDate = "ex-date-after-record-date"
	AnomalyNonPositiveDays       = "non-positive-calendar-days"
	AnomalyReferenceDayMismatch  = "reference-day-mismatch"
	AnomalyCalendar              = "calendar"
)

var (
	ErrNoPrecedingBar = errors.New("no bar before ex-dividend date")
	ErrMissingDate    = errors.New("missing ex-dividend or record date")
)

// Skip is a dividend that produced no report row.
type Skip struct {
	Symbol string
	ExDate time.Time
	Reason string
	Err    error
}

func (s *Skip) Error() string {
	return fmt.Sprintf("%s %s: skipped (%s): %s",
		s.Symbol,
		divgap.FormatDate(s.ExDate),
		s.Reason,
		s.Err,
	)
}

func (s *Skip) Unwrap() error {
	return s.Err
}

// Anomaly flags a report row computed from suspicious input.
type Anomaly struct {
	Symbol string
	ExDate time.Time
	Kind   string
	Detail string
}

func (a *Anomaly) String() string {
	return fmt.Sprintf("%s %s: %s: %s",
		a.Symbol,
		divgap.FormatDate(a.ExDate),
		a.Kind,
		a.Detail,
	)
}

type Result struct {
	Symbol    string
	Rows      []*divgap.GapFill
	Skips     []*Skip
	Anomalies []*Anomaly
}

type options struct {
	logger         zerolog.Logger
	calendars      *calendar.Cache
	exchange       string
	strictCalendar bool
	metrics        *metrics.Metrics
}

type Option func(o options) options

func Logger(l zerolog.Logger) Option {
	return func(o options) options {
		o.logger = l
		return o
	}
}

// Calendars enables the reference day cross-check against the trading
// calendar of mic.
func Calendars(c *calendar.Cache, mic string) Option {
	return func(o options) options {
		o.calendars = c
		o.exchange = mic
		return o
	}
}

// StrictCalendar makes calendar resolution failures abort the analysis of
// the ticker instead of being reported as anomalies.
func StrictCalendar(v bool) Option {
	return func(o options) options {
		o.strictCalendar = v
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
	logger:   zerolog.Nop(),
	exchange: "XNYS",
}

type Analyzer struct {
	opts options
}

func NewAnalyzer(os ...Option) *Analyzer {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}
	return &Analyzer{
		opts: opts,
	}
}

// Exchange returns a copy of a that resolves trading days on the calendar
// of mic.
func (a *Analyzer) Exchange(mic string) *Analyzer {
	opts := a.opts
	opts.exchange = mic
	return &Analyzer{
		opts: opts,
	}
}

// Analyze computes one row per dividend in input order. Dividends that
// cannot be aligned or carry invalid data are skipped. The error is
// non-nil only for calendar failures in strict mode.
func (a *Analyzer) Analyze(
	symbol string,
	dividends []*divgap.Dividend,
	s *series.Series,
) (*Result, error) {
	res := &Result{
		Symbol:    symbol,
		Rows:      make([]*divgap.GapFill, 0, len(dividends)),
		Skips:     make([]*Skip, 0),
		Anomalies: make([]*Anomaly, 0),
	}

	for _, d := range dividends {
		row, skip, anomalies, err := a.analyze(symbol, d, s)
		if err != nil {
			return nil, err
		}
		for _, an := range anomalies {
			a.opts.metrics.Anomaly(an.Kind)
			a.opts.logger.Warn().
				Str("symbol", symbol).
				Str("ex_date", divgap.FormatDate(an.ExDate)).
				Str("anomaly", an.Kind).
				Msg(an.Detail)
		}
		res.Anomalies = append(res.Anomalies, anomalies...)

		if skip != nil {
			a.opts.metrics.Skipped(skip.Reason)
			a.opts.logger.Warn().
				Str("symbol", symbol).
				Str("ex_date", divgap.FormatDate(skip.ExDate)).
				Str("skip", skip.Reason).
				Err(skip.Err).
				Msg("dividend skipped")
			res.Skips = append(res.Skips, skip)
			continue
		}

		a.opts.metrics.Analyzed(row.Filled())
		res.Rows = append(res.Rows, row)
	}

	a.opts.logger.Debug().
		Str("symbol", symbol).
		Int("rows", len(res.Rows)).
		Int("skips", len(res.Skips)).
		Int("anomalies", len(res.Anomalies)).
		Msg("analyzed")

	return res, nil
}

func (a *Analyzer) analyze(
	symbol string,
	d *divgap.Dividend,
	s *series.Series,
) (*divgap.GapFill, *Skip, []*Anomaly, error) {
	if d == nil || d.ExDate.IsZero() || d.RecordDate.IsZero() {
		skip := &Skip{Symbol: symbol, Reason: ReasonDataIntegrity, Err: ErrMissingDate}
		if d != nil {
			skip.ExDate = d.ExDate
		}
		return nil, skip, nil, nil
	}

	anomalies := make([]*Anomaly, 0)
	anomaly := func(kind, format string, v ...interface{}) {
		anomalies = append(anomalies, &Anomaly{
			Symbol: symbol,
			ExDate: d.ExDate,
			Kind:   kind,
			Detail: fmt.Sprintf(format, v...),
		})
	}

	ref, ok := ReferencePrice(d, s)
	if !ok {
		return nil, &Skip{
			Symbol: symbol,
			ExDate: d.ExDate,
			Reason: ReasonAlignment,
			Err:    ErrNoPrecedingBar,
		}, nil, nil
	}

	yield, err := DividendYield(d.CashAmount, ref.Close)
	if err != nil {
		return nil, &Skip{
			Symbol: symbol,
			ExDate: d.ExDate,
			Reason: ReasonDataIntegrity,
			Err:    fmt.Errorf("%s: %w", ref.Date.Format(divgap.DateFormat), err),
		}, nil, nil
	}

	if a.opts.calendars != nil {
		prev, err := a.opts.calendars.PreviousTradingDay(d.ExDate, a.opts.exchange)
		switch {
		case err != nil && a.opts.strictCalendar:
			return nil, nil, nil, fmt.Errorf("%s: previous trading day of %s: %w",
				symbol, d.ExDate.Format(divgap.DateFormat), err)
		case err != nil:
			anomaly(AnomalyCalendar, "%s", err)
		case !prev.Equal(ref.Date):
			anomaly(AnomalyReferenceDayMismatch,
				"reference bar %s, previous trading day %s",
				ref.Date.Format(divgap.DateFormat),
				prev.Format(divgap.DateFormat),
			)
		}
	}

	if d.ExDate.After(d.RecordDate) {
		anomaly(AnomalyExDateAfterRecordDate,
			"ex-dividend date after record date %s",
			d.RecordDate.Format(divgap.DateFormat),
		)
	}

	row := &divgap.GapFill{
		Symbol:         symbol,
		ExDate:         d.ExDate,
		RecordDate:     d.RecordDate,
		CashAmount:     d.CashAmount,
		ReferenceDate:  ref.Date,
		ReferenceClose: ref.Close,
		DividendYield:  yield,
	}

	fill, ok := FindFill(s, d.RecordDate, ref.Close)
	if !ok {
		return row, nil, anomalies, nil
	}

	fillDate := fill.Date
	tradingDays := fill.TradingDays
	row.FillDate = &fillDate
	row.TradingDaysToFill = &tradingDays
	row.CalendarDaysToFill = CalendarDaysToFill(row.FillDate, d.ExDate)
	row.AverageDailyYield = AverageDailyYield(yield, row.CalendarDaysToFill)

	if *row.CalendarDaysToFill <= 0 {
		anomaly(AnomalyNonPositiveDays,
			"%d calendar days from ex-dividend date to fill %s",
			*row.CalendarDaysToFill,
			fillDate.Format(divgap.DateFormat),
		)
	}

	return row, nil, anomalies, nil
}
