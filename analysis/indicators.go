// Package analysis computes rolling technical indicators from observed
// prices. Indicators report a warm flag alongside the value; until a window
// is full the indicator is not meaningful and renders as N/A.
package analysis

import (
	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/shopspring/decimal"
)

const (
	maShortWindow = 50
	maLongWindow  = 200
	rsiWindow     = 14
)

// Tracker accumulates prices for one symbol and exposes its indicators.
type Tracker struct {
	maShort *movingaverage.MovingAverage
	maLong  *movingaverage.MovingAverage
	gains   *movingaverage.MovingAverage
	losses  *movingaverage.MovingAverage

	last    float64
	hasLast bool
	diffs   int
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		maShort: movingaverage.New(maShortWindow),
		maLong:  movingaverage.New(maLongWindow),
		gains:   movingaverage.New(rsiWindow),
		losses:  movingaverage.New(rsiWindow),
	}
}

// Observe feeds one price into every window.
func (t *Tracker) Observe(price float64) {
	t.maShort.Add(price)
	t.maLong.Add(price)

	if t.hasLast {
		delta := price - t.last
		if delta > 0 {
			t.gains.Add(delta)
			t.losses.Add(0)
		} else {
			t.gains.Add(0)
			t.losses.Add(-delta)
		}
		if t.diffs < rsiWindow {
			t.diffs++
		}
	}
	t.last = price
	t.hasLast = true
}

// MA50 returns the 50 sample moving average. The flag is false until the
// window is full.
func (t *Tracker) MA50() (float64, bool) {
	if t.maShort.Count() < maShortWindow {
		return 0, false
	}
	return t.maShort.Avg(), true
}

// MA200 returns the 200 sample moving average.
func (t *Tracker) MA200() (float64, bool) {
	if t.maLong.Count() < maLongWindow {
		return 0, false
	}
	return t.maLong.Avg(), true
}

// RSI returns the 14 period relative strength index computed from simple
// rolling means of gains and losses. A window with no losses reads 100.
func (t *Tracker) RSI() (float64, bool) {
	if t.diffs < rsiWindow {
		return 0, false
	}
	avgLoss := t.losses.Avg()
	if avgLoss == 0 {
		return 100, true
	}
	rs := t.gains.Avg() / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// Set tracks indicators for many symbols.
type Set struct {
	trackers map[string]*Tracker
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{trackers: map[string]*Tracker{}}
}

// Observe feeds one price into the symbol's tracker, creating it on first
// sight.
func (s *Set) Observe(symbol string, price float64) {
	t, ok := s.trackers[symbol]
	if !ok {
		t = NewTracker()
		s.trackers[symbol] = t
	}
	t.Observe(price)
}

// Tracker returns the tracker for symbol, if any prices were observed.
func (s *Set) Tracker(symbol string) (*Tracker, bool) {
	t, ok := s.trackers[symbol]
	return t, ok
}

// Remove drops the tracker for symbol.
func (s *Set) Remove(symbol string) {
	delete(s.trackers, symbol)
}

// Format renders an indicator value with two decimal places, or N/A when the
// window is not warm yet.
func Format(v float64, warm bool) string {
	if !warm {
		return "N/A"
	}
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
