// Package xrates converts amounts with the historical rates published on
// x-rates.com.
package xrates

// https://www.x-rates.com/historical/?from=CAD&amount=1&date=2011-05-03

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"szakszon.com/divgap"
	"szakszon.com/divgap/httprate"
)

const DefaultBaseURL = "https://www.x-rates.com"

type currencyService struct {
	client *httprate.RLClient
	rates  *cache.Cache
	opts   options
}

func NewCurrencyService(os ...Option) divgap.CurrencyService {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}

	return &currencyService{
		client: httprate.NewRLClient(opts.timeout, opts.rateLimiter, opts.logger),
		rates:  cache.New(cache.NoExpiration, 0),
		opts:   opts,
	}
}

func (cc *currencyService) Convert(
	ctx context.Context,
	in *divgap.CurrencyConvertInput,
) (*divgap.CurrencyConvertOutput, error) {
	from := strings.ToUpper(in.From)
	to := strings.ToUpper(in.To)
	if from == to || from == "" {
		return &divgap.CurrencyConvertOutput{
			Amount: in.Amount,
			Rate:   1,
		}, nil
	}

	r, err := cc.rate(ctx, from, to, in.Date)
	if err != nil {
		return nil, fmt.Errorf("rate %s/%s %s: %w",
			from, to, in.Date.Format(divgap.DateFormat), err)
	}

	return &divgap.CurrencyConvertOutput{
		Amount: in.Amount * r,
		Rate:   r,
	}, nil
}

func (cc *currencyService) rate(
	ctx context.Context,
	from string,
	to string,
	date time.Time,
) (float64, error) {
	key := from + to + date.Format(divgap.DateFormat)
	if v, ok := cc.rates.Get(key); ok {
		return v.(float64), nil
	}

	u := cc.ratesURL(from, 1, date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", cc.opts.userAgent)

	resp, err := cc.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || 299 < resp.StatusCode {
		return 0, fmt.Errorf("http error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	r, err := cc.parseRate(from, to, string(body))
	if err != nil {
		return 0, err
	}

	cc.opts.logger.Debug().
		Str("from", from).
		Str("to", to).
		Time("date", date).
		Float64("rate", r).
		Msg("currency rate")

	cc.rates.Set(key, r, cache.NoExpiration)
	return r, nil
}

func (cc *currencyService) ratesURL(
	from string,
	amount float64,
	date time.Time,
) string {
	return cc.opts.baseURL + "/historical/" +
		"?from=" + from +
		"&amount=" + strconv.FormatFloat(amount, 'f', -1, 64) +
		"&date=" + date.Format(divgap.DateFormat)
}

func (cc *currencyService) parseRate(
	from string,
	to string,
	s string,
) (float64, error) {
	// <a href='https://www.x-rates.com/graph/?from=CAD&amp;to=USD'>0.829220</a>
	re := regexp.MustCompile(
		`<a[^>]+from=` + regexp.QuoteMeta(from) +
			`&amp;to=` + regexp.QuoteMeta(to) + `[^>]*>([0-9\.]+)</a>`)
	matches := re.FindStringSubmatch(s)
	if len(matches) < 2 {
		return 0, fmt.Errorf("no rate")
	}

	return strconv.ParseFloat(matches[1], 64)
}

const defaultUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var defaultOptions = options{
	baseURL:     DefaultBaseURL,
	rateLimiter: rate.NewLimiter(rate.Every(1*time.Second), 1),
	userAgent:   defaultUA,
	timeout:     30 * time.Second,
	logger:      zerolog.Nop(),
}

type options struct {
	baseURL     string
	rateLimiter *rate.Limiter
	userAgent   string
	timeout     time.Duration
	logger      zerolog.Logger
}

type Option func(o options) options

func BaseURL(v string) Option {
	return func(o options) options {
		o.baseURL = strings.TrimRight(v, "/")
		return o
	}
}

func RateLimiter(l *rate.Limiter) Option {
	return func(o options) options {
		o.rateLimiter = l
		return o
	}
}

func UserAgent(v string) Option {
	return func(o options) options {
		o.userAgent = v
		return o
	}
}

func Timeout(d time.Duration) Option {
	return func(o options) options {
		o.timeout = d
		return o
	}
}

func Logger(l zerolog.Logger) Option {
	return func(o options) options {
		o.logger = l
		return o
	}
}
