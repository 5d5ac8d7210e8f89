package calendar

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

type options struct {
	lookback int
	extra    map[string]map[time.Time]string
	logger   zerolog.Logger
}

type Option func(o options) options

// Lookback sets the window searched for a previous trading day.
func Lookback(days int) Option {
	return func(o options) options {
		o.lookback = days
		return o
	}
}

// ExtraClosures adds full-day closures to the calendar of mic.
func ExtraClosures(mic string, closures map[time.Time]string) Option {
	return func(o options) options {
		extra := make(map[string]map[time.Time]string, len(o.extra)+1)
		for k, v := range o.extra {
			extra[k] = v
		}
		m := make(map[time.Time]string, len(extra[mic])+len(closures))
		for d, reason := range extra[mic] {
			m[d] = reason
		}
		for d, reason := range closures {
			m[d] = reason
		}
		extra[mic] = m
		o.extra = extra
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
	lookback: MinLookbackDays,
	logger:   zerolog.Nop(),
}

// Cache holds one Calendar per MIC. Calendars are built on first use and
// never evicted.
type Cache struct {
	opts      options
	calendars *cache.Cache
	mu        sync.Mutex
}

func NewCache(os ...Option) *Cache {
	opts := defaultOptions
	for _, o := range os {
		opts = o(opts)
	}
	if opts.lookback < MinLookbackDays {
		opts.lookback = MinLookbackDays
	}
	return &Cache{
		opts:      opts,
		calendars: cache.New(cache.NoExpiration, 0),
	}
}

// Calendar returns the calendar of mic, building it at most once.
func (c *Cache) Calendar(mic string) (*Calendar, error) {
	if v, ok := c.calendars.Get(mic); ok {
		return v.(*Calendar), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.calendars.Get(mic); ok {
		return v.(*Calendar), nil
	}

	cal, err := New(mic, c.opts.extra[mic])
	if err != nil {
		return nil, err
	}
	c.calendars.Set(mic, cal, cache.NoExpiration)

	c.opts.logger.Debug().
		Str("mic", mic).
		Int("closures", len(c.opts.extra[mic])).
		Msg("calendar loaded")

	return cal, nil
}

// Preload builds the calendars of mics.
func (c *Cache) Preload(mics ...string) error {
	for _, mic := range mics {
		if _, err := c.Calendar(mic); err != nil {
			return fmt.Errorf("preload %s: %w", mic, err)
		}
	}
	return nil
}

// PreviousTradingDay returns the most recent trading day of mic strictly
// before d.
func (c *Cache) PreviousTradingDay(
	d time.Time,
	mic string,
) (time.Time, error) {
	cal, err := c.Calendar(mic)
	if err != nil {
		return time.Time{}, err
	}
	return cal.PreviousTradingDay(d, c.opts.lookback)
}

func (c *Cache) Location(mic string) (*time.Location, error) {
	cal, err := c.Calendar(mic)
	if err != nil {
		return nil, err
	}
	return cal.Location(), nil
}

func (c *Cache) Lookback() int {
	return c.opts.lookback
}
