// Package watchlist owns the canonical client-side view of the watched
// symbols and their latest market data. All mutations flow through the Store;
// the Engine translates raw push frames into Store mutations.
package watchlist

import (
	"strings"
	"time"
)

// ConnState describes the state of the push channel.
type ConnState int

const (
	Connecting ConnState = iota
	Connected
	Disconnected
	Errored
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	case Errored:
		return "Error"
	}
	return "Unknown"
}

// QuoteRecord is the latest quote held for a watched symbol.
type QuoteRecord struct {
	BidPrice    float64
	AskPrice    float64
	Timestamp   time.Time
	MarketHours string
	// ReceivedAt is stamped from the local clock and is always present
	ReceivedAt time.Time
}

// TradeRecord is the latest trade held for a watched symbol.
type TradeRecord struct {
	Price      float64
	Size       uint32
	ReceivedAt time.Time
}

// MarketStatus is the current market session. Replaced wholesale on each
// status push, last-write-wins.
type MarketStatus struct {
	IsOpen    bool
	NextOpen  string
	NextClose string
}

// Delta is the symmetric difference produced by a watchlist replacement.
type Delta struct {
	Added   []string
	Removed []string
}

// Empty reports whether the replacement changed nothing.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Store holds the watchlist membership set and the latest quote and trade per
// watched symbol. It is not synchronized: all mutations must happen on a
// single run loop, and every mutation entry point completes without
// suspension, so readers can never observe a partial write.
type Store struct {
	tickers []string
	members map[string]struct{}
	quotes  map[string]QuoteRecord
	trades  map[string]TradeRecord

	status    MarketStatus
	hasStatus bool

	connState ConnState
}

// NewStore returns an empty Store in the Connecting state.
func NewStore() *Store {
	return &Store{
		members: map[string]struct{}{},
		quotes:  map[string]QuoteRecord{},
		trades:  map[string]TradeRecord{},
	}
}

// NormalizeTicker uppercases and trims a symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ReplaceWatchlist replaces the membership set wholesale with the given
// symbols (normalized, deduplicated, order preserved) and returns the
// symmetric difference against the previous set. Quote and trade records of
// removed symbols are purged. Replacing with the same sequence twice yields
// an empty delta.
func (s *Store) ReplaceWatchlist(tickers []string) Delta {
	next := make([]string, 0, len(tickers))
	nextMembers := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		t = NormalizeTicker(t)
		if t == "" {
			continue
		}
		if _, ok := nextMembers[t]; ok {
			continue
		}
		nextMembers[t] = struct{}{}
		next = append(next, t)
	}

	var d Delta
	for _, t := range next {
		if _, ok := s.members[t]; !ok {
			d.Added = append(d.Added, t)
		}
	}
	for _, t := range s.tickers {
		if _, ok := nextMembers[t]; !ok {
			d.Removed = append(d.Removed, t)
			delete(s.quotes, t)
			delete(s.trades, t)
		}
	}

	s.tickers = next
	s.members = nextMembers
	return d
}

// UpsertQuote overwrites the quote record for symbol. The write is dropped
// when the symbol is empty or bid and ask are both exactly zero. The first
// return reports whether the record was stored, the second whether it was the
// first quote for the symbol.
func (s *Store) UpsertQuote(symbol string, q QuoteRecord) (stored, first bool) {
	symbol = NormalizeTicker(symbol)
	if symbol == "" {
		return false, false
	}
	if q.BidPrice == 0 && q.AskPrice == 0 {
		return false, false
	}
	_, existed := s.quotes[symbol]
	s.quotes[symbol] = q
	return true, !existed
}

// UpsertTrade overwrites the trade record for symbol. The only gate is a
// non-empty symbol.
func (s *Store) UpsertTrade(symbol string, tr TradeRecord) bool {
	symbol = NormalizeTicker(symbol)
	if symbol == "" {
		return false
	}
	s.trades[symbol] = tr
	return true
}

// SetMarketStatus replaces the market status wholesale.
func (s *Store) SetMarketStatus(status MarketStatus) {
	s.status = status
	s.hasStatus = true
}

// SetConnState records a connection state transition and reports whether the
// state actually changed.
func (s *Store) SetConnState(state ConnState) bool {
	if s.connState == state {
		return false
	}
	s.connState = state
	return true
}

// RemoveTicker purges the quote and trade records for symbol. It is
// idempotent: removing an absent symbol is a no-op. Membership is left
// untouched; the server's echoed snapshot removes the entry itself.
func (s *Store) RemoveTicker(symbol string) bool {
	symbol = NormalizeTicker(symbol)
	_, hadQuote := s.quotes[symbol]
	_, hadTrade := s.trades[symbol]
	delete(s.quotes, symbol)
	delete(s.trades, symbol)
	return hadQuote || hadTrade
}

// Watchlist returns a copy of the ordered membership set.
func (s *Store) Watchlist() []string {
	out := make([]string, len(s.tickers))
	copy(out, s.tickers)
	return out
}

// Contains reports whether symbol is currently watched.
func (s *Store) Contains(symbol string) bool {
	_, ok := s.members[NormalizeTicker(symbol)]
	return ok
}

// Len returns the number of watched symbols.
func (s *Store) Len() int {
	return len(s.tickers)
}

// Quote returns the quote record for symbol, if any.
func (s *Store) Quote(symbol string) (QuoteRecord, bool) {
	q, ok := s.quotes[NormalizeTicker(symbol)]
	return q, ok
}

// Trade returns the trade record for symbol, if any.
func (s *Store) Trade(symbol string) (TradeRecord, bool) {
	tr, ok := s.trades[NormalizeTicker(symbol)]
	return tr, ok
}

// MarketStatus returns the current market status and whether one has been
// received yet.
func (s *Store) MarketStatus() (MarketStatus, bool) {
	return s.status, s.hasStatus
}

// ConnState returns the current connection state.
func (s *Store) ConnState() ConnState {
	return s.connState
}
