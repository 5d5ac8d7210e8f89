// Package polygon implements the market data services on the Polygon.io
// REST API.
package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"szakszon.com/divgap/httprate"
)

const DefaultBaseURL = "https://api.polygon.io"

type options struct {
	baseURL     string
	apiKey      string
	rateLimiter *rate.Limiter
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

func APIKey(v string) Option {
	return func(o options) options {
		o.apiKey = v
		return o
	}
}

func RateLimiter(l *rate.Limiter) Option {
	return func(o options) options {
		o.rateLimiter = l
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

// The free tier allows five requests per minute.
var defaultOptions = options{
	baseURL:     DefaultBaseURL,
	rateLimiter: rate.NewLimiter(rate.Every(12*time.Second), 1),
	timeout:     30 * time.Second,
	logger:      zerolog.Nop(),
}

type Polygon struct {
	opts       options
	httpClient *httprate.RLClient
}

func NewPolygon(os ...Option) *Polygon {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}

	httpClient := httprate.NewRLClient(opts.timeout, opts.rateLimiter, opts.logger)
	if opts.apiKey != "" {
		httpClient.Header.Set("Authorization", "Bearer "+opts.apiKey)
	}
	httpClient.Header.Set("Accept", "application/json")

	return &Polygon{
		opts:       opts,
		httpClient: httpClient,
	}
}

func (c *Polygon) url(path string, q url.Values) string {
	u := c.opts.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http error: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http error: %d", e.StatusCode)
}

type errorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// getJSON decodes the response of a GET request into v.
func (c *Polygon) getJSON(
	ctx context.Context,
	u string,
	v interface{},
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || 299 < resp.StatusCode {
		se := &StatusError{StatusCode: resp.StatusCode, URL: u}
		var er errorResponse
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &er) == nil {
			se.Message = er.Error
			if se.Message == "" {
				se.Message = er.Message
			}
		}
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

type page[T any] struct {
	Status  string `json:"status"`
	Results []T    `json:"results"`
	NextURL string `json:"next_url"`
}

// paginate collects the results of u and every page linked by next_url.
func paginate[T any](
	ctx context.Context,
	c *Polygon,
	u string,
) ([]T, error) {
	results := make([]T, 0)
	for u != "" {
		var p page[T]
		if err := c.getJSON(ctx, u, &p); err != nil {
			return nil, err
		}
		results = append(results, p.Results...)

		if p.NextURL != "" && p.NextURL == u {
			return nil, fmt.Errorf("next_url loop: %s", u)
		}
		u = p.NextURL
	}
	return results, nil
}
