package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchdeck/watchdeck/assets"
	"github.com/watchdeck/watchdeck/stream"
)

type mockClient struct {
	added   []string
	removed []string
	err     error
}

func (c *mockClient) AddTicker(ticker string) error {
	c.added = append(c.added, ticker)
	return c.err
}

func (c *mockClient) RemoveTicker(ticker string) error {
	c.removed = append(c.removed, ticker)
	return c.err
}

type mockCatalog struct {
	lastParams assets.ListParams
	page       *assets.Page
	err        error
}

func (c *mockCatalog) ListAssets(params assets.ListParams) (*assets.Page, error) {
	c.lastParams = params
	return c.page, c.err
}

func newTestModel() (Model, *mockClient, *mockCatalog) {
	client := &mockClient{}
	catalog := &mockCatalog{}
	return NewModel(client, catalog), client, catalog
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	m, _, _ := newTestModel()

	assert.Equal(t, StateLoading, m.state)
	assert.NotNil(t, m.store)
	assert.NotNil(t, m.engine)
	assert.NotNil(t, m.indicators)
	assert.Equal(t, bannerNone, m.bannerKind)
}

// findTickerChange resolves a command to its watchlist change message. The
// command may be a batch that also carries a banner hide tick, so each leg
// runs on its own goroutine and the tick is left to expire on its own.
func findTickerChange(t *testing.T, cmd tea.Cmd) tickerChangeMsg {
	t.Helper()
	msg := cmd()
	if change, ok := msg.(tickerChangeMsg); ok {
		return change
	}
	batch, ok := msg.(tea.BatchMsg)
	require.True(t, ok, "expected a tickerChangeMsg or a batch, got %T", msg)
	results := make(chan tickerChangeMsg, len(batch))
	for _, c := range batch {
		if c == nil {
			continue
		}
		go func(c tea.Cmd) {
			if change, ok := c().(tickerChangeMsg); ok {
				results <- change
			}
		}(c)
	}
	select {
	case change := <-results:
		return change
	case <-time.After(time.Second):
		require.Fail(t, "no tickerChangeMsg produced in time")
		return tickerChangeMsg{}
	}
}

func TestConnectShowsContent(t *testing.T) {
	m, _, _ := newTestModel()

	// the server opens the connection but has not pushed anything yet
	m, _ = update(t, m, ConnOpenedMsg{})
	assert.Equal(t, StateDashboard, m.state)
	assert.NotContains(t, m.View(), "Loading watchlist")
	assert.Equal(t, bannerInfo, m.bannerKind)
	assert.Contains(t, m.bannerText, "Connected to real-time stock data stream")

	// the snapshot that follows reconciles membership without another swap
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})
	assert.Equal(t, StateDashboard, m.state)
	assert.Equal(t, []string{"AAPL"}, m.store.Watchlist())
}

func TestLoadingShowsContentExactlyOnce(t *testing.T) {
	m, _, _ := newTestModel()

	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})
	assert.Equal(t, StateDashboard, m.state)
	assert.Equal(t, []string{"AAPL"}, m.store.Watchlist())

	// later snapshots reconcile membership without touching the view state
	m.state = StateBrowser
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL", "MSFT"}})
	assert.Equal(t, StateBrowser, m.state)
	assert.Equal(t, []string{"AAPL", "MSFT"}, m.store.Watchlist())
}

func TestLoadTimeout(t *testing.T) {
	m, _, _ := newTestModel()

	m, _ = update(t, m, loadTimeoutMsg{})
	assert.Equal(t, StateDashboard, m.state)
	assert.Equal(t, bannerError, m.bannerKind)

	// a no-op once content is up
	m.bannerKind = bannerNone
	m, _ = update(t, m, loadTimeoutMsg{})
	assert.Equal(t, bannerNone, m.bannerKind)
}

func TestSubmitTickerDuplicateNeverReachesServer(t *testing.T) {
	m, client, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})

	m.tickerInput.SetValue("aapl")
	m, _ = update(t, m, keyMsg("enter"))

	assert.Empty(t, client.added)
	assert.Equal(t, bannerError, m.bannerKind)
	assert.Contains(t, m.bannerText, "AAPL")
	assert.Empty(t, m.tickerInput.Value())
}

func TestSubmitTickerSendsRequest(t *testing.T) {
	m, client, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: nil})

	m.tickerInput.SetValue(" msft ")
	m, cmd := update(t, m, keyMsg("enter"))
	require.NotNil(t, cmd)

	assert.Equal(t, bannerInfo, m.bannerKind)
	assert.Contains(t, m.bannerText, "Adding MSFT to watchlist...")

	change := findTickerChange(t, cmd)
	assert.Equal(t, "MSFT", change.ticker)
	assert.NoError(t, change.err)
	assert.Equal(t, []string{"MSFT"}, client.added)
}

func TestSubmitTickerEmptyIgnored(t *testing.T) {
	m, client, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: nil})

	m, cmd := update(t, m, keyMsg("enter"))
	assert.Nil(t, cmd)
	assert.Empty(t, client.added)
}

func TestTickerChangeErrorShowsBanner(t *testing.T) {
	m, _, _ := newTestModel()

	m, _ = update(t, m, tickerChangeMsg{ticker: "AAPL", err: errors.New("ticker not in watchlist")})
	assert.Equal(t, bannerError, m.bannerKind)
	assert.Contains(t, m.bannerText, "ticker not in watchlist")
}

func TestQuoteUpdatesStoreAndFlashes(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})

	m, cmd := update(t, m, QuoteMsg{Quote: stream.Quote{
		Symbol:   "AAPL",
		BidPrice: 189.50,
		AskPrice: 189.55,
	}})
	require.NotNil(t, cmd)
	assert.True(t, m.flashing["AAPL"])

	quote, ok := m.store.Quote("AAPL")
	require.True(t, ok)
	assert.Equal(t, 189.50, quote.BidPrice)
}

func TestFlashRestartIgnoresStaleExpiry(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})

	quote := stream.Quote{Symbol: "AAPL", BidPrice: 1, AskPrice: 2}
	m, _ = update(t, m, QuoteMsg{Quote: quote})
	firstSeq := m.flashSeq["AAPL"]
	m, _ = update(t, m, QuoteMsg{Quote: quote})
	secondSeq := m.flashSeq["AAPL"]
	require.NotEqual(t, firstSeq, secondSeq)

	// the superseded timer fires and changes nothing
	m, _ = update(t, m, flashExpiredMsg{symbol: "AAPL", seq: firstSeq})
	assert.True(t, m.flashing["AAPL"])

	m, _ = update(t, m, flashExpiredMsg{symbol: "AAPL", seq: secondSeq})
	assert.False(t, m.flashing["AAPL"])
}

func TestDetailGlow(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})
	m.detailSymbol = "AAPL"
	m.state = StateDetail

	m, _ = update(t, m, QuoteMsg{Quote: stream.Quote{Symbol: "AAPL", BidPrice: 1, AskPrice: 2}})
	assert.True(t, m.glowing["AAPL"])
	seq := m.glowSeq["AAPL"]

	m, _ = update(t, m, glowExpiredMsg{symbol: "AAPL", seq: seq})
	assert.False(t, m.glowing["AAPL"])
}

func TestTestQuoteLeavesModelUntouched(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})

	m, cmd := update(t, m, QuoteMsg{Quote: stream.Quote{
		Symbol:   "AAPL",
		BidPrice: 189.50,
		AskPrice: 189.55,
		Type:     "test",
		Message:  "connectivity check",
	}})
	assert.Nil(t, cmd)
	assert.False(t, m.flashing["AAPL"])
	_, ok := m.store.Quote("AAPL")
	assert.False(t, ok)
}

func TestQuoteRowShowsServerTimeAndAfterHours(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})

	ts := time.Date(2026, 1, 2, 13, 4, 5, 0, time.Local)
	m, _ = update(t, m, QuoteMsg{Quote: stream.Quote{
		Symbol:      "AAPL",
		BidPrice:    10,
		AskPrice:    11,
		Timestamp:   ts,
		MarketHours: "closed",
	}})

	rows := m.quoteTable.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, FormatClock(ts)+" (After Hours)", rows[0][5])

	// without a server time the receipt time stands in
	m, _ = update(t, m, QuoteMsg{Quote: stream.Quote{
		Symbol:      "AAPL",
		BidPrice:    10,
		AskPrice:    11,
		MarketHours: "open",
	}})
	rows = m.quoteTable.Rows()
	rec, ok := m.store.Quote("AAPL")
	require.True(t, ok)
	assert.Equal(t, FormatClock(rec.ReceivedAt), rows[0][5])
}

func TestTradeUpdatesStore(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})

	m, cmd := update(t, m, TradeMsg{Trade: stream.Trade{Symbol: "AAPL", Price: 189.52, Size: 100}})
	require.NotNil(t, cmd)

	trade, ok := m.store.Trade("AAPL")
	require.True(t, ok)
	assert.Equal(t, 189.52, trade.Price)
}

func TestBannerHideIsUnconditional(t *testing.T) {
	m, _, _ := newTestModel()

	m, _ = update(t, m, ServerErrorMsg{Err: errors.New("invalid ticker symbol")})
	assert.Equal(t, bannerError, m.bannerKind)

	// an older banner's timer takes down the newer banner too
	m, _ = update(t, m, bannerHideMsg{})
	assert.Equal(t, bannerNone, m.bannerKind)
	assert.Empty(t, m.bannerText)
}

func TestConnectionSignals(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: nil})

	m, _ = update(t, m, ConnOpenedMsg{})
	assert.Contains(t, m.View(), "Connected")
	assert.Equal(t, bannerInfo, m.bannerKind)

	m, _ = update(t, m, ConnClosedMsg{})
	assert.Equal(t, bannerError, m.bannerKind)
	assert.Contains(t, m.bannerText, "Connection lost")

	// repeated close signals do not re-banner
	m.bannerKind = bannerNone
	m, _ = update(t, m, ConnClosedMsg{})
	assert.Equal(t, bannerNone, m.bannerKind)

	m, _ = update(t, m, ConnErrorMsg{Err: errors.New("dial refused")})
	assert.Contains(t, m.bannerText, "dial refused")

	m, _ = update(t, m, HandshakeTimeoutMsg{})
	assert.Contains(t, m.bannerText, "handshake timed out")
}

func TestRemoveSelectedPurgesAndRequests(t *testing.T) {
	m, client, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})
	m, _ = update(t, m, QuoteMsg{Quote: stream.Quote{Symbol: "AAPL", BidPrice: 1, AskPrice: 2}})

	m, _ = update(t, m, keyMsg("tab"))
	require.True(t, m.tableFocused)

	m, cmd := update(t, m, keyMsg("d"))
	require.NotNil(t, cmd)

	_, ok := m.store.Quote("AAPL")
	assert.False(t, ok)

	msg := cmd()
	change, ok := msg.(tickerChangeMsg)
	require.True(t, ok)
	assert.True(t, change.remove)
	assert.Equal(t, []string{"AAPL"}, client.removed)
}

func TestSnapshotRemovalClosesDetail(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL", "MSFT"}})
	m.detailSymbol = "AAPL"
	m.state = StateDetail

	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"MSFT"}})
	assert.Equal(t, StateDashboard, m.state)
	assert.Empty(t, m.detailSymbol)
}

func TestBrowserFetchAndPaging(t *testing.T) {
	m, _, catalog := newTestModel()
	catalog.page = &assets.Page{
		Draw:            1,
		RecordsTotal:    100,
		RecordsFiltered: 100,
		Assets: []assets.Asset{
			{Symbol: "AAPL", Name: "Apple Inc. Common Stock", Exchange: "NASDAQ"},
		},
	}
	m, _ = update(t, m, WatchlistMsg{Tickers: nil})

	m, _ = update(t, m, keyMsg("tab"))
	m, cmd := update(t, m, keyMsg("b"))
	assert.Equal(t, StateBrowser, m.state)
	require.NotNil(t, cmd)

	// run the batched fetch command and feed its result back
	msg := drainCmd(t, cmd)
	require.NotNil(t, msg)
	m, _ = update(t, m, msg)
	assert.Equal(t, 100, m.assetTotal)
	require.Len(t, m.assetTable.Rows(), 1)
	assert.Equal(t, "AAPL", m.assetTable.Rows()[0][0])
	assert.Equal(t, 1, catalog.lastParams.Draw)
	assert.Equal(t, browserPageSize, catalog.lastParams.Length)

	// next page
	catalog.page = &assets.Page{Draw: 2, RecordsFiltered: 100}
	m.searchInput.Blur()
	m, cmd = update(t, m, keyMsg("right"))
	require.NotNil(t, cmd)
	assert.Equal(t, browserPageSize, m.assetStart)
	drainCmd(t, cmd)
	assert.Equal(t, browserPageSize, catalog.lastParams.Start)
}

func TestBrowserStalePageIgnored(t *testing.T) {
	m, _, _ := newTestModel()
	m.state = StateBrowser
	m.assetDraw = 2
	m.assetTotal = 7

	m, _ = update(t, m, assetsPageMsg{page: &assets.Page{Draw: 1, RecordsFiltered: 99}})
	assert.Equal(t, 7, m.assetTotal)
}

func TestBrowserErrorShown(t *testing.T) {
	m, _, _ := newTestModel()
	m.state = StateBrowser

	m, _ = update(t, m, assetsPageMsg{err: errors.New("catalog unreachable")})
	assert.Contains(t, m.View(), "catalog unreachable")
}

func TestViewLoading(t *testing.T) {
	m, _, _ := newTestModel()
	assert.Contains(t, m.View(), "Loading watchlist")
}

func TestViewEmptyWatchlist(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: nil})

	view := m.View()
	assert.Contains(t, view, "No stocks in watchlist")
}

func TestViewMarketStatus(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: nil})

	assert.Contains(t, m.View(), "Market status unknown")

	m, _ = update(t, m, MarketStatusMsg{Status: stream.MarketStatus{
		IsOpen:   false,
		NextOpen: "2025-11-06 09:30 AM EST",
	}})
	view := m.View()
	assert.Contains(t, view, "Market is CLOSED")
	assert.Contains(t, view, "Opens at: 2025-11-06 09:30 AM EST")

	m, _ = update(t, m, MarketStatusMsg{Status: stream.MarketStatus{
		IsOpen:    true,
		NextClose: "2025-11-05 04:00 PM EST",
	}})
	view = m.View()
	assert.Contains(t, view, "Market is OPEN")
	assert.Contains(t, view, "Closes at: 2025-11-05 04:00 PM EST")
}

func TestViewDetailPlaceholders(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})
	m.detailSymbol = "AAPL"
	m.state = StateDetail

	view := m.View()
	assert.Contains(t, view, "AAPL")
	assert.Contains(t, view, placeholder)
	assert.Contains(t, view, "N/A")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$189.50", FormatPrice(189.5))
	assert.Equal(t, "$0.99", FormatPrice(0.99))
	assert.Equal(t, placeholder, FormatPrice(0))
}

// drainCmd runs a command, flattening one level of batching, and returns the
// first model-directed message it produces.
func drainCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			inner := c()
			if inner == nil {
				continue
			}
			if _, isBlink := inner.(tea.BatchMsg); isBlink {
				continue
			}
			if page, ok := inner.(assetsPageMsg); ok {
				return page
			}
		}
		return nil
	}
	return msg
}

func TestViewStringsDoNotPanic(t *testing.T) {
	m, _, _ := newTestModel()
	m, _ = update(t, m, WatchlistMsg{Tickers: []string{"AAPL"}})
	for _, state := range []int{StateDashboard, StateBrowser, StateDetail} {
		m.state = state
		m.detailSymbol = "AAPL"
		assert.True(t, strings.Contains(m.View(), "Watchdeck"))
	}
}
