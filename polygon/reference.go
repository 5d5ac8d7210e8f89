package polygon

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"szakszon.com/divgap"
)

func (c *Polygon) exchangesURL(in *divgap.ExchangeFetchInput) string {
	q := url.Values{}
	q.Set("asset_class", in.AssetClass)
	q.Set("locale", in.Locale)
	return c.url("/v3/reference/exchanges", q)
}

func (c *Polygon) tickersURL(in *divgap.TickerFetchInput) string {
	q := url.Values{}
	q.Set("market", in.Market)
	q.Set("exchange", in.Exchange)
	q.Set("active", strconv.FormatBool(in.Active))
	q.Set("limit", "1000")
	return c.url("/v3/reference/tickers", q)
}

func (c *Polygon) NewExchangeService() divgap.ExchangeService {
	return &exchangeService{
		Polygon: c,
	}
}

type exchangeService struct {
	*Polygon
}

func (s *exchangeService) Fetch(
	ctx context.Context,
	in *divgap.ExchangeFetchInput,
) (*divgap.ExchangeFetchOutput, error) {
	q := *in
	if q.AssetClass == "" {
		q.AssetClass = "stocks"
	}
	if q.Locale == "" {
		q.Locale = "us"
	}

	var p page[*exchange]
	if err := s.getJSON(ctx, s.exchangesURL(&q), &p); err != nil {
		return nil, fmt.Errorf("exchanges: %w", err)
	}

	out := &divgap.ExchangeFetchOutput{
		Exchanges: make([]*divgap.Exchange, 0, len(p.Results)),
	}
	for _, v := range p.Results {
		if v == nil {
			continue
		}
		out.Exchanges = append(out.Exchanges, &divgap.Exchange{
			ID:           v.ID,
			Type:         v.Type,
			AssetClass:   v.AssetClass,
			Locale:       v.Locale,
			Name:         v.Name,
			Acronym:      v.Acronym,
			MIC:          v.MIC,
			OperatingMIC: v.OperatingMIC,
		})
	}
	return out, nil
}

type exchange struct {
	ID           int    `json:"id"`
	Type         string `json:"type"`
	AssetClass   string `json:"asset_class"`
	Locale       string `json:"locale"`
	Name         string `json:"name"`
	Acronym      string `json:"acronym"`
	MIC          string `json:"mic"`
	OperatingMIC string `json:"operating_mic"`
}

func (c *Polygon) NewTickerService() divgap.TickerService {
	return &tickerService{
		Polygon: c,
	}
}

type tickerService struct {
	*Polygon
}

func (s *tickerService) Fetch(
	ctx context.Context,
	in *divgap.TickerFetchInput,
) (*divgap.TickerFetchOutput, error) {
	q := *in
	if q.Market == "" {
		q.Market = "stocks"
	}

	results, err := paginate[*ticker](ctx, s.Polygon, s.tickersURL(&q))
	if err != nil {
		return nil, fmt.Errorf("tickers %s: %w", in.Exchange, err)
	}

	out := &divgap.TickerFetchOutput{
		Tickers: make([]*divgap.Ticker, 0, len(results)),
	}
	for _, v := range results {
		if v == nil || divgap.Validate(v) != nil {
			continue
		}
		out.Tickers = append(out.Tickers, &divgap.Ticker{
			Symbol:          v.Ticker,
			Name:            v.Name,
			Market:          v.Market,
			Locale:          v.Locale,
			PrimaryExchange: v.PrimaryExchange,
			Type:            v.Type,
			Active:          v.Active,
			CurrencyName:    v.CurrencyName,
		})
	}
	sort.SliceStable(out.Tickers, func(i, j int) bool {
		return out.Tickers[i].Symbol < out.Tickers[j].Symbol
	})
	return out, nil
}

type ticker struct {
	Ticker          string `json:"ticker" validate:"required"`
	Name            string `json:"name"`
	Market          string `json:"market"`
	Locale          string `json:"locale"`
	PrimaryExchange string `json:"primary_exchange"`
	Type            string `json:"type"`
	Active          bool   `json:"active"`
	CurrencyName    string `json:"currency_name"`
}
