// Package httprate throttles outgoing HTTP requests.
package httprate

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RLClient waits for the rate limiter before every request. Header values
// are added to requests that do not set them.
type RLClient struct {
	Client      *http.Client
	Ratelimiter *rate.Limiter
	Header      http.Header
	Logger      zerolog.Logger
}

func NewRLClient(
	timeout time.Duration,
	limiter *rate.Limiter,
	logger zerolog.Logger,
) *RLClient {
	return &RLClient{
		Client: &http.Client{
			Timeout: timeout,
		},
		Ratelimiter: limiter,
		Header:      make(http.Header),
		Logger:      logger,
	}
}

func (c *RLClient) Do(req *http.Request) (*http.Response, error) {
	if c.Ratelimiter != nil {
		start := time.Now()
		if err := c.Ratelimiter.Wait(req.Context()); err != nil {
			return nil, err
		}
		if waited := time.Since(start); waited > time.Second {
			c.Logger.Debug().
				Dur("waited", waited).
				Msg("rate limited")
		}
	}

	for k, vs := range c.Header {
		if req.Header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}

	c.Logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("http")

	return resp, nil
}
