package divgap

import (
	"context"
	"time"
)

type Command interface {
	Execute(ctx context.Context) error
}

type ExchangeService interface {
	Fetch(
		ctx context.Context,
		in *ExchangeFetchInput,
	) (*ExchangeFetchOutput, error)
}

type ExchangeFetchInput struct {
	AssetClass string
	Locale     string
}

type ExchangeFetchOutput struct {
	Exchanges []*Exchange
}

type Exchange struct {
	ID           int
	Type         string
	AssetClass   string
	Locale       string
	Name         string
	Acronym      string
	MIC          string
	OperatingMIC string
}

type TickerService interface {
	Fetch(
		ctx context.Context,
		in *TickerFetchInput,
	) (*TickerFetchOutput, error)
}

type TickerFetchInput struct {
	Exchange string
	Market   string
	Active   bool
}

type TickerFetchOutput struct {
	Tickers []*Ticker
}

type Ticker struct {
	Symbol          string
	Name            string
	Market          string
	Locale          string
	PrimaryExchange string
	Type            string
	Active          bool
	CurrencyName    string
}

type DividendService interface {
	Fetch(
		ctx context.Context,
		in *DividendFetchInput,
	) (*DividendFetchOutput, error)
}

type DividendFetchInput struct {
	Symbol string
	Limit  int
}

// DividendFetchOutput holds the dividends ordered by ex-dividend date,
// most recent first.
type DividendFetchOutput struct {
	Dividends []*Dividend
	Invalid   []*InvalidRecord
}

type PriceService interface {
	Fetch(
		ctx context.Context,
		in *PriceFetchInput,
	) (*PriceFetchOutput, error)
}

type PriceFetchInput struct {
	Symbol string
	From   time.Time
	To     time.Time
}

// PriceFetchOutput holds daily bars in ascending date order.
type PriceFetchOutput struct {
	Prices  []*Price
	Invalid []*InvalidRecord
}

type DailyPriceService interface {
	Fetch(
		ctx context.Context,
		in *DailyPriceFetchInput,
	) (*DailyPriceFetchOutput, error)
}

type DailyPriceFetchInput struct {
	Symbol   string
	Date     time.Time
	Adjusted bool
}

type DailyPriceFetchOutput struct {
	Price *Price
}

type CurrencyService interface {
	Convert(
		ctx context.Context,
		in *CurrencyConvertInput,
	) (*CurrencyConvertOutput, error)
}

type CurrencyConvertInput struct {
	From   string
	To     string
	Amount float64
	Date   time.Time
}

type CurrencyConvertOutput struct {
	Amount float64
	Rate   float64
}
