package main

import (
	"github.com/watchdeck/watchdeck/assets"
	"github.com/watchdeck/watchdeck/stream"
)

// QuoteMsg carries a quote pushed by the server.
type QuoteMsg struct {
	Quote stream.Quote
}

// TradeMsg carries a trade pushed by the server.
type TradeMsg struct {
	Trade stream.Trade
}

// WatchlistMsg carries a full watchlist snapshot pushed by the server.
type WatchlistMsg struct {
	Tickers []string
}

// MarketStatusMsg carries a market session update.
type MarketStatusMsg struct {
	Status stream.MarketStatus
}

// ServerErrorMsg carries an application-level error frame from the server.
type ServerErrorMsg struct {
	Err error
}

// ConnOpenedMsg signals that the push channel finished its handshake.
type ConnOpenedMsg struct{}

// ConnClosedMsg signals that an established push channel dropped.
type ConnClosedMsg struct{}

// ConnErrorMsg signals a transport-level connection failure.
type ConnErrorMsg struct {
	Err error
}

// HandshakeTimeoutMsg signals that the server never completed the handshake.
type HandshakeTimeoutMsg struct{}

// tickerChangeMsg reports the outcome of an add or remove request.
type tickerChangeMsg struct {
	ticker string
	remove bool
	err    error
}

// glowExpiredMsg ends a detail card glow. Stale sequences are ignored so a
// newer update keeps its full glow duration.
type glowExpiredMsg struct {
	symbol string
	seq    uint64
}

// flashExpiredMsg ends a row flash. Same staleness rule as glowExpiredMsg.
type flashExpiredMsg struct {
	symbol string
	seq    uint64
}

// bannerHideMsg hides the banner unconditionally. Banner timers are never
// cancelled, so a newer banner can be taken down by an older banner's timer.
type bannerHideMsg struct{}

// loadTimeoutMsg fires when no snapshot arrived within the startup window.
type loadTimeoutMsg struct{}

// assetsPageMsg carries one fetched page of the asset catalog.
type assetsPageMsg struct {
	page *assets.Page
	err  error
}
