package divgap

import (
	"context"
	"fmt"
	"time"
)

type DB interface {
	Symbols(ctx context.Context) ([]string, error)

	Tickers(
		ctx context.Context,
		in *DBTickersInput,
	) (*DBTickersOutput, error)
	SaveTickers(
		ctx context.Context,
		in *DBSaveTickersInput,
	) (*DBSaveTickersOutput, error)

	Dividends(
		ctx context.Context,
		in *DBDividendsInput,
	) (*DBDividendsOutput, error)
	SaveDividends(
		ctx context.Context,
		in *DBSaveDividendsInput,
	) (*DBSaveDividendsOutput, error)

	Prices(
		ctx context.Context,
		in *DBPricesInput,
	) (*DBPricesOutput, error)
	SavePrices(
		ctx context.Context,
		in *DBSavePricesInput,
	) (*DBSavePricesOutput, error)
}

type DBTickersInput struct{}

type DBTickersOutput struct {
	Tickers []*Ticker
}

type DBSaveTickersInput struct {
	Tickers []*Ticker
}

type DBSaveTickersOutput struct {
	Path string
}

type DBDividendsInput struct {
	Symbol string
}

// DBDividendsOutput keeps the order of the stored file.
type DBDividendsOutput struct {
	Dividends []*Dividend
	Invalid   []*InvalidRecord
}

type DBSaveDividendsInput struct {
	Symbol    string
	Dividends []*Dividend
}

type DBSaveDividendsOutput struct {
	Path string
}

type DBPricesInput struct {
	Symbol string
}

// DBPricesOutput keeps the order of the stored file.
type DBPricesOutput struct {
	Prices  []*Price
	Invalid []*InvalidRecord
}

type DBSavePricesInput struct {
	Symbol string
	Prices []*Price
}

type DBSavePricesOutput struct {
	Path string
}

// Price is a daily OHLC bar. Date is the exchange-local calendar day of
// Timestamp, stored at midnight UTC.
type Price struct {
	Symbol    string
	Date      time.Time
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

func (p *Price) String() string {
	return fmt.Sprintf("%v: %v",
		p.Date.Format(DateFormat),
		p.Close,
	)
}

type Dividend struct {
	Symbol          string
	ExDate          time.Time
	RecordDate      time.Time
	DeclarationDate time.Time
	PayDate         time.Time
	CashAmount      float64
	Currency        string
	Frequency       int
	Type            string
}

func (d *Dividend) String() string {
	return fmt.Sprintf("%v: %v",
		d.ExDate.Format(DateFormat),
		d.CashAmount,
	)
}

// InvalidRecord reports an input record rejected at the boundary.
// Index is the position of the record in its source array.
type InvalidRecord struct {
	Symbol string
	Index  int
	Err    error
}

func (r *InvalidRecord) Error() string {
	return fmt.Sprintf("%s: record %d: %s", r.Symbol, r.Index, r.Err)
}

func (r *InvalidRecord) Unwrap() error {
	return r.Err
}
