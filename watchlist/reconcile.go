package watchlist

import (
	"time"

	"github.com/watchdeck/watchdeck/stream"
)

// Engine reconciles raw push frames into Store mutations. Diagnostic and
// malformed frames are filtered here so the Store only ever holds renderable
// records.
type Engine struct {
	store  *Store
	logger stream.Logger
	now    func() time.Time
}

// NewEngine wires an Engine to the given store. A nil logger falls back to
// the stream package default.
func NewEngine(store *Store, logger stream.Logger) *Engine {
	if logger == nil {
		logger = stream.DefaultLogger()
	}
	return &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ApplyQuote filters and stores an incoming quote. Quotes marked as test
// traffic are logged and dropped before validation. Invalid quotes (empty
// symbol, or bid and ask both zero) are dropped with a warning. Returns
// whether the quote was stored and whether it was the first for its symbol.
func (e *Engine) ApplyQuote(q stream.Quote) (stored, first bool) {
	if q.Test() {
		e.logger.Infof("watchdeck: test quote received: %s", q.Message)
		return false, false
	}
	rec := QuoteRecord{
		BidPrice:    q.BidPrice,
		AskPrice:    q.AskPrice,
		Timestamp:   q.Timestamp,
		MarketHours: q.MarketHours,
		ReceivedAt:  e.now(),
	}
	stored, first = e.store.UpsertQuote(q.Symbol, rec)
	if !stored {
		e.logger.Warnf("watchdeck: dropping invalid quote for %q (bid=%v ask=%v)",
			q.Symbol, q.BidPrice, q.AskPrice)
	}
	return stored, first
}

// ApplyTrade stores an incoming trade.
func (e *Engine) ApplyTrade(t stream.Trade) bool {
	stored := e.store.UpsertTrade(t.Symbol, TradeRecord{
		Price:      t.Price,
		Size:       t.Size,
		ReceivedAt: e.now(),
	})
	if !stored {
		e.logger.Warnf("watchdeck: dropping trade with empty symbol")
	}
	return stored
}

// ApplyWatchlist replaces the membership set with the server's snapshot.
func (e *Engine) ApplyWatchlist(tickers []string) Delta {
	d := e.store.ReplaceWatchlist(tickers)
	if !d.Empty() {
		e.logger.Infof("watchdeck: watchlist updated: %d added, %d removed",
			len(d.Added), len(d.Removed))
	}
	return d
}

// ApplyStatus replaces the market status.
func (e *Engine) ApplyStatus(st stream.MarketStatus) {
	e.store.SetMarketStatus(MarketStatus{
		IsOpen:    st.IsOpen,
		NextOpen:  st.NextOpen,
		NextClose: st.NextClose,
	})
}
