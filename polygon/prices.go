package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"szakszon.com/divgap"
)

var newYork *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	newYork = loc
}

func (c *Polygon) aggsURL(
	symbol string,
	from time.Time,
	to time.Time,
) string {
	q := url.Values{}
	q.Set("adjusted", "false")
	q.Set("sort", "asc")
	q.Set("limit", "50000")
	return c.url("/v2/aggs/ticker/"+url.PathEscape(symbol)+
		"/range/1/day/"+
		from.Format(divgap.DateFormat)+"/"+
		to.Format(divgap.DateFormat), q)
}

func (c *Polygon) openCloseURL(
	symbol string,
	date time.Time,
	adjusted bool,
) string {
	q := url.Values{}
	q.Set("adjusted", strconv.FormatBool(adjusted))
	return c.url("/v1/open-close/"+url.PathEscape(symbol)+"/"+
		date.Format(divgap.DateFormat), q)
}

func (c *Polygon) NewPriceService() divgap.PriceService {
	return &priceService{
		Polygon: c,
	}
}

type priceService struct {
	*Polygon
}

// Fetch returns unadjusted daily bars in ascending order.
func (s *priceService) Fetch(
	ctx context.Context,
	in *divgap.PriceFetchInput,
) (*divgap.PriceFetchOutput, error) {
	to := in.To
	if to.IsZero() {
		to = divgap.DateIn(time.Now(), newYork)
	}

	results, err := paginate[*agg](ctx, s.Polygon, s.aggsURL(in.Symbol, in.From, to))
	if err != nil {
		return nil, fmt.Errorf("aggs %s: %w", in.Symbol, err)
	}

	out := &divgap.PriceFetchOutput{
		Prices:  make([]*divgap.Price, 0, len(results)),
		Invalid: make([]*divgap.InvalidRecord, 0),
	}
	for i, v := range results {
		if v == nil {
			continue
		}
		if err := divgap.Validate(v); err != nil {
			out.Invalid = append(out.Invalid, &divgap.InvalidRecord{
				Symbol: in.Symbol,
				Index:  i,
				Err:    err,
			})
			continue
		}
		ts := time.UnixMilli(*v.Timestamp).UTC()
		out.Prices = append(out.Prices, &divgap.Price{
			Symbol:    in.Symbol,
			Date:      divgap.DateIn(ts, newYork),
			Timestamp: ts,
			Open:      *v.Open,
			High:      *v.High,
			Low:       *v.Low,
			Close:     *v.Close,
			Volume:    v.Volume,
		})
	}

	s.opts.logger.Debug().
		Str("symbol", in.Symbol).
		Int("prices", len(out.Prices)).
		Msg("prices fetched")

	return out, nil
}

type agg struct {
	Timestamp    *int64   `json:"t" validate:"required,gt=0"`
	Open         *float64 `json:"o" validate:"required,gte=0"`
	High         *float64 `json:"h" validate:"required,gte=0"`
	Low          *float64 `json:"l" validate:"required,gte=0"`
	Close        *float64 `json:"c" validate:"required,gte=0"`
	Volume       float64  `json:"v" validate:"gte=0"`
	VWAP         float64  `json:"vw"`
	Transactions int64    `json:"n"`
}

func (c *Polygon) NewDailyPriceService() divgap.DailyPriceService {
	return &dailyPriceService{
		Polygon: c,
	}
}

type dailyPriceService struct {
	*Polygon
}

func (s *dailyPriceService) Fetch(
	ctx context.Context,
	in *divgap.DailyPriceFetchInput,
) (*divgap.DailyPriceFetchOutput, error) {
	var v openClose
	u := s.openCloseURL(in.Symbol, in.Date, in.Adjusted)
	if err := s.getJSON(ctx, u, &v); err != nil {
		return nil, fmt.Errorf("open-close %s %s: %w",
			in.Symbol, in.Date.Format(divgap.DateFormat), err)
	}
	if err := divgap.Validate(&v); err != nil {
		return nil, fmt.Errorf("open-close %s %s: %w",
			in.Symbol, in.Date.Format(divgap.DateFormat), err)
	}

	date, err := divgap.ParseDate(v.From)
	if err != nil {
		return nil, err
	}
	return &divgap.DailyPriceFetchOutput{
		Price: &divgap.Price{
			Symbol:    in.Symbol,
			Date:      date,
			Timestamp: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, newYork).UTC(),
			Open:      *v.Open,
			High:      *v.High,
			Low:       *v.Low,
			Close:     *v.Close,
			Volume:    v.Volume,
		},
	}, nil
}

type openClose struct {
	Status string   `json:"status"`
	From   string   `json:"from" validate:"required,datetime=2006-01-02"`
	Symbol string   `json:"symbol"`
	Open   *float64 `json:"open" validate:"required,gte=0"`
	High   *float64 `json:"high" validate:"required,gte=0"`
	Low    *float64 `json:"low" validate:"required,gte=0"`
	Close  *float64 `json:"close" validate:"required,gte=0"`
	Volume float64  `json:"volume"`
}
