// Package fs stores tickers, dividends and daily prices as JSON files in a
// data directory.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"szakszon.com/divgap"
)

const (
	dividendPrefix = "dividend_data_"
	pricePrefix    = "daily_price_"
	tickersFile    = "tickers.json"
)

type options struct {
	dir      string
	location *time.Location
	logger   zerolog.Logger
}

type Option func(o options) options

func Dir(dir string) Option {
	return func(o options) options {
		o.dir = dir
		return o
	}
}

// Location is the zone used to turn bar timestamps into trading dates.
func Location(loc *time.Location) Option {
	return func(o options) options {
		o.location = loc
		return o
	}
}

func Logger(l zerolog.Logger) Option {
	return func(o options) options {
		o.logger = l
		return o
	}
}

var defaultOptions = options{
	dir:      "data",
	location: time.UTC,
	logger:   zerolog.Nop(),
}

func NewDB(os ...Option) *DB {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}
	return &DB{
		opts: opts,
	}
}

type DB struct {
	opts options
}

var _ divgap.DB = (*DB)(nil)

func (db *DB) Dir() string {
	return db.opts.dir
}

func (db *DB) DividendsPath(symbol string) string {
	return filepath.Join(db.opts.dir, dividendPrefix+symbol+".json")
}

func (db *DB) PricesPath(symbol string) string {
	return filepath.Join(db.opts.dir, pricePrefix+symbol+".json")
}

func (db *DB) TickersPath() string {
	return filepath.Join(db.opts.dir, tickersFile)
}

// Symbols lists the tickers that have a dividend file.
func (db *DB) Symbols(ctx context.Context) ([]string, error) {
	pattern := filepath.Join(db.opts.dir, dividendPrefix+"*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	symbols := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		symbol := strings.TrimSuffix(strings.TrimPrefix(name, dividendPrefix), ".json")
		if symbol == "" || strings.Contains(symbol, ".tmp") {
			continue
		}
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (db *DB) Tickers(
	ctx context.Context,
	in *divgap.DBTickersInput,
) (*divgap.DBTickersOutput, error) {
	p := db.TickersPath()
	tickers := make([]*divgap.Ticker, 0)

	err := readArray(p, func(i int, dec *json.Decoder) error {
		var v tickerRecord
		if err := dec.Decode(&v); err != nil {
			return err
		}
		tickers = append(tickers, v.toTicker())
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &divgap.DBTickersOutput{
		Tickers: tickers,
	}, nil
}

func (db *DB) SaveTickers(
	ctx context.Context,
	in *divgap.DBSaveTickersInput,
) (*divgap.DBSaveTickersOutput, error) {
	records := make([]*tickerRecord, 0, len(in.Tickers))
	for _, t := range in.Tickers {
		records = append(records, newTickerRecord(t))
	}

	p := db.TickersPath()
	if err := db.save(p, records); err != nil {
		return nil, err
	}
	return &divgap.DBSaveTickersOutput{Path: p}, nil
}

// Dividends reads the dividend file of a ticker. A missing file yields no
// dividends. Records failing validation are reported in Invalid.
func (db *DB) Dividends(
	ctx context.Context,
	in *divgap.DBDividendsInput,
) (*divgap.DBDividendsOutput, error) {
	p := db.DividendsPath(in.Symbol)
	out := &divgap.DBDividendsOutput{
		Dividends: make([]*divgap.Dividend, 0),
		Invalid:   make([]*divgap.InvalidRecord, 0),
	}

	err := readArray(p, func(i int, dec *json.Decoder) error {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		d, err := parseDividend(raw)
		if err != nil {
			out.Invalid = append(out.Invalid, &divgap.InvalidRecord{
				Symbol: in.Symbol,
				Index:  i,
				Err:    err,
			})
			return nil
		}
		out.Dividends = append(out.Dividends, d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.logInvalid(in.Symbol, p, out.Invalid)
	return out, nil
}

func (db *DB) SaveDividends(
	ctx context.Context,
	in *divgap.DBSaveDividendsInput,
) (*divgap.DBSaveDividendsOutput, error) {
	records := make([]*divgap.DividendRecord, 0, len(in.Dividends))
	for _, d := range in.Dividends {
		records = append(records, divgap.NewDividendRecord(d))
	}

	p := db.DividendsPath(in.Symbol)
	if err := db.save(p, records); err != nil {
		return nil, err
	}
	return &divgap.DBSaveDividendsOutput{Path: p}, nil
}

// Prices reads the daily price file of a ticker. A missing file yields no
// prices. Records failing validation are reported in Invalid.
func (db *DB) Prices(
	ctx context.Context,
	in *divgap.DBPricesInput,
) (*divgap.DBPricesOutput, error) {
	p := db.PricesPath(in.Symbol)
	out := &divgap.DBPricesOutput{
		Prices:  make([]*divgap.Price, 0),
		Invalid: make([]*divgap.InvalidRecord, 0),
	}

	err := readArray(p, func(i int, dec *json.Decoder) error {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		price, err := parsePrice(raw, in.Symbol, db.opts.location)
		if err != nil {
			out.Invalid = append(out.Invalid, &divgap.InvalidRecord{
				Symbol: in.Symbol,
				Index:  i,
				Err:    err,
			})
			return nil
		}
		out.Prices = append(out.Prices, price)
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.logInvalid(in.Symbol, p, out.Invalid)
	return out, nil
}

func (db *DB) SavePrices(
	ctx context.Context,
	in *divgap.DBSavePricesInput,
) (*divgap.DBSavePricesOutput, error) {
	records := make([]*divgap.PriceRecord, 0, len(in.Prices))
	for _, price := range in.Prices {
		records = append(records, divgap.NewPriceRecord(price))
	}

	p := db.PricesPath(in.Symbol)
	if err := db.save(p, records); err != nil {
		return nil, err
	}
	return &divgap.DBSavePricesOutput{Path: p}, nil
}

func (db *DB) logInvalid(
	symbol string,
	path string,
	invalid []*divgap.InvalidRecord,
) {
	for _, r := range invalid {
		db.opts.logger.Warn().
			Str("symbol", symbol).
			Str("file", path).
			Int("index", r.Index).
			Str("skip", "data-integrity").
			Err(r.Err).
			Msg("invalid record")
	}
}

// readArray decodes the JSON array in file p one element at a time.
func readArray(
	p string,
	decode func(i int, dec *json.Decoder) error,
) error {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	if err := decodeArray(f, decode); err != nil {
		return fmt.Errorf("parse %s: %w", p, err)
	}
	return nil
}

func decodeArray(
	r io.Reader,
	decode func(i int, dec *json.Decoder) error,
) error {
	dec := json.NewDecoder(r)
	// read open bracket
	t, err := dec.Token()
	if err != nil {
		return fmt.Errorf("open bracket: %w", err)
	}
	if delim, ok := t.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("open bracket: unexpected %v", t)
	}

	// while the array contains values
	for i := 0; dec.More(); i++ {
		if err := decode(i, dec); err != nil {
			return fmt.Errorf("decode %d: %w", i, err)
		}
	}

	// read closing bracket
	_, err = dec.Token()
	if err != nil {
		return fmt.Errorf("closing bracket: %w", err)
	}

	return nil
}

// Elements are unmarshaled one by one so a type mismatch rejects the
// record, not the file.
func parseDividend(raw json.RawMessage) (*divgap.Dividend, error) {
	var v divgap.DividendRecord
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v.Dividend()
}

func parsePrice(
	raw json.RawMessage,
	symbol string,
	loc *time.Location,
) (*divgap.Price, error) {
	var v divgap.PriceRecord
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v.Price(symbol, loc)
}

func (db *DB) save(p string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := saveJSONTmp(filepath.Dir(p), filepath.Base(p)+".tmp", v)
	if err != nil {
		return fmt.Errorf("save temp %s: %w", p, err)
	}
	defer os.Remove(tmp)

	if err = os.Rename(tmp, p); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, p, err)
	}

	db.opts.logger.Debug().Str("file", p).Msg("saved")
	return nil
}

func saveJSONTmp(dir, pattern string, v interface{}) (string, error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "    ")
	if err = enc.Encode(v); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), nil
}

type tickerRecord struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	Market          string `json:"market,omitempty"`
	Locale          string `json:"locale,omitempty"`
	PrimaryExchange string `json:"primary_exchange"`
	Type            string `json:"type,omitempty"`
	Active          bool   `json:"active"`
	CurrencyName    string `json:"currency_name,omitempty"`
}

func newTickerRecord(t *divgap.Ticker) *tickerRecord {
	return &tickerRecord{
		Ticker:          t.Symbol,
		Name:            t.Name,
		Market:          t.Market,
		Locale:          t.Locale,
		PrimaryExchange: t.PrimaryExchange,
		Type:            t.Type,
		Active:          t.Active,
		CurrencyName:    t.CurrencyName,
	}
}

func (r *tickerRecord) toTicker() *divgap.Ticker {
	return &divgap.Ticker{
		Symbol:          r.Ticker,
		Name:            r.Name,
		Market:          r.Market,
		Locale:          r.Locale,
		PrimaryExchange: r.PrimaryExchange,
		Type:            r.Type,
		Active:          r.Active,
		CurrencyName:    r.CurrencyName,
	}
}
