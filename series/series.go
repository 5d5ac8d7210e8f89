// Package series indexes the daily bars of one ticker by date.
package series

import (
	"iter"
	"sort"
	"time"

	"szakszon.com/divgap"
)

// Series is an ascending, date-unique sequence of daily bars. It is
// immutable once built.
type Series struct {
	bars    []*divgap.Price
	dropped []*divgap.Price
}

// New builds a series from bars in any order. When several bars share a
// date the first one in input order is kept and the others are dropped.
func New(prices []*divgap.Price) *Series {
	bars := make([]*divgap.Price, 0, len(prices))
	for _, p := range prices {
		if p != nil {
			bars = append(bars, p)
		}
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	s := &Series{
		bars: bars[:0],
	}
	for _, p := range bars {
		n := len(s.bars)
		if n > 0 && s.bars[n-1].Date.Equal(p.Date) {
			s.dropped = append(s.dropped, p)
			continue
		}
		s.bars = append(s.bars, p)
	}
	return s
}

func (s *Series) Len() int {
	return len(s.bars)
}

// Values returns a copy of the bars in ascending date order.
func (s *Series) Values() []*divgap.Price {
	bars := make([]*divgap.Price, len(s.bars))
	copy(bars, s.bars)
	return bars
}

// Dropped returns the bars removed as same-date duplicates.
func (s *Series) Dropped() []*divgap.Price {
	return s.dropped
}

// search returns the index of the first bar dated on or after d.
func (s *Series) search(d time.Time) int {
	return sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Date.Before(d)
	})
}

// Bar returns the bar dated d.
func (s *Series) Bar(d time.Time) (*divgap.Price, bool) {
	d = divgap.Date(d)
	i := s.search(d)
	if i < len(s.bars) && s.bars[i].Date.Equal(d) {
		return s.bars[i], true
	}
	return nil, false
}

// BarBefore returns the bar with the greatest date strictly before d.
func (s *Series) BarBefore(d time.Time) (*divgap.Price, bool) {
	i := s.search(divgap.Date(d))
	if i == 0 {
		return nil, false
	}
	return s.bars[i-1], true
}

// BarsAfter yields the bars dated strictly after d in ascending order.
func (s *Series) BarsAfter(d time.Time) iter.Seq[*divgap.Price] {
	d = divgap.Date(d)
	return func(yield func(*divgap.Price) bool) {
		i := sort.Search(len(s.bars), func(i int) bool {
			return s.bars[i].Date.After(d)
		})
		for ; i < len(s.bars); i++ {
			if !yield(s.bars[i]) {
				return
			}
		}
	}
}
