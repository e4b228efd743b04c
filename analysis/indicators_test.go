package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerColdStart(t *testing.T) {
	tr := NewTracker()
	_, warm := tr.MA50()
	assert.False(t, warm)
	_, warm = tr.MA200()
	assert.False(t, warm)
	_, warm = tr.RSI()
	assert.False(t, warm)

	tr.Observe(100)
	_, warm = tr.RSI()
	assert.False(t, warm)
}

func TestTrackerMA50(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 49; i++ {
		tr.Observe(100)
	}
	_, warm := tr.MA50()
	assert.False(t, warm)

	tr.Observe(150)
	got, warm := tr.MA50()
	require.True(t, warm)
	assert.InDelta(t, 101.0, got, 1e-9)

	_, warm = tr.MA200()
	assert.False(t, warm)
}

func TestTrackerMA200(t *testing.T) {
	tr := NewTracker()
	for i := 1; i <= 200; i++ {
		tr.Observe(float64(i))
	}
	got, warm := tr.MA200()
	require.True(t, warm)
	assert.InDelta(t, 100.5, got, 1e-9)

	// window slides
	tr.Observe(201)
	got, warm = tr.MA200()
	require.True(t, warm)
	assert.InDelta(t, 101.5, got, 1e-9)
}

func TestTrackerRSI(t *testing.T) {
	tr := NewTracker()
	// 14 diffs need 15 observations
	tr.Observe(100)
	for i := 0; i < 13; i++ {
		tr.Observe(100)
	}
	_, warm := tr.RSI()
	assert.False(t, warm)

	tr.Observe(100)
	_, warm = tr.RSI()
	assert.True(t, warm)
}

func TestTrackerRSIAllGains(t *testing.T) {
	tr := NewTracker()
	for i := 0; i <= rsiWindow; i++ {
		tr.Observe(100 + float64(i))
	}
	got, warm := tr.RSI()
	require.True(t, warm)
	assert.Equal(t, 100.0, got)
}

func TestTrackerRSIBalanced(t *testing.T) {
	tr := NewTracker()
	// alternating +1/-1 moves: average gain equals average loss, RSI 50
	price := 100.0
	tr.Observe(price)
	for i := 0; i < rsiWindow; i++ {
		if i%2 == 0 {
			price++
		} else {
			price--
		}
		tr.Observe(price)
	}
	got, warm := tr.RSI()
	require.True(t, warm)
	assert.InDelta(t, 50.0, got, 1e-9)
}

func TestSet(t *testing.T) {
	s := NewSet()
	_, ok := s.Tracker("AAPL")
	assert.False(t, ok)

	s.Observe("AAPL", 189.50)
	s.Observe("AAPL", 189.55)
	s.Observe("MSFT", 410.00)

	tr, ok := s.Tracker("AAPL")
	require.True(t, ok)
	assert.True(t, tr.hasLast)

	s.Remove("AAPL")
	_, ok = s.Tracker("AAPL")
	assert.False(t, ok)
	_, ok = s.Tracker("MSFT")
	assert.True(t, ok)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "N/A", Format(42, false))
	assert.Equal(t, "189.50", Format(189.5, true))
	assert.Equal(t, "50.00", Format(50.004, true))
}
