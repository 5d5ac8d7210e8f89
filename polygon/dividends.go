package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"szakszon.com/divgap"
)

func (c *Polygon) dividendsURL(in *divgap.DividendFetchInput) string {
	limit := in.Limit
	if limit <= 0 || 1000 < limit {
		limit = 1000
	}
	q := url.Values{}
	q.Set("ticker", in.Symbol)
	q.Set("order", "desc")
	q.Set("sort", "ex_dividend_date")
	q.Set("limit", strconv.Itoa(limit))
	return c.url("/v3/reference/dividends", q)
}

func (c *Polygon) NewDividendService() divgap.DividendService {
	return &dividendService{
		Polygon: c,
	}
}

type dividendService struct {
	*Polygon
}

// Fetch returns the dividends of a ticker, most recent first. Records
// failing validation are returned in Invalid.
func (s *dividendService) Fetch(
	ctx context.Context,
	in *divgap.DividendFetchInput,
) (*divgap.DividendFetchOutput, error) {
	results, err := paginate[*divgap.DividendRecord](ctx, s.Polygon, s.dividendsURL(in))
	if err != nil {
		return nil, fmt.Errorf("dividends %s: %w", in.Symbol, err)
	}

	out := &divgap.DividendFetchOutput{
		Dividends: make([]*divgap.Dividend, 0, len(results)),
		Invalid:   make([]*divgap.InvalidRecord, 0),
	}
	for i, v := range results {
		if v == nil {
			continue
		}
		d, err := v.Dividend()
		if err != nil {
			out.Invalid = append(out.Invalid, &divgap.InvalidRecord{
				Symbol: in.Symbol,
				Index:  i,
				Err:    err,
			})
			continue
		}
		out.Dividends = append(out.Dividends, d)
	}

	s.opts.logger.Debug().
		Str("symbol", in.Symbol).
		Int("dividends", len(out.Dividends)).
		Int("invalid", len(out.Invalid)).
		Msg("dividends fetched")

	return out, nil
}
