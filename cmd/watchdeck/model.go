package main

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchdeck/watchdeck/analysis"
	"github.com/watchdeck/watchdeck/assets"
	"github.com/watchdeck/watchdeck/stream"
	"github.com/watchdeck/watchdeck/watchlist"
)

// Application states.
const (
	StateLoading = iota
	StateDashboard
	StateBrowser
	StateDetail
)

// Banner kinds.
const (
	bannerNone = iota
	bannerError
	bannerInfo
)

// Timing rules for transient visuals.
const (
	glowDuration    = 300 * time.Millisecond
	flashDuration   = 500 * time.Millisecond
	errorBannerTime = 5 * time.Second
	infoBannerTime  = 3 * time.Second
	loadTimeout     = 10 * time.Second
	browserPageSize = 10
)

// watchlistClient is the slice of the stream client the model drives.
type watchlistClient interface {
	AddTicker(ticker string) error
	RemoveTicker(ticker string) error
}

// Model is the main Bubble Tea model for the watchlist dashboard.
type Model struct {
	state int

	store      *watchlist.Store
	engine     *watchlist.Engine
	indicators *analysis.Set

	client  watchlistClient
	catalog assets.Client

	tickerInput  textinput.Model
	quoteTable   table.Model
	tableFocused bool

	// flashSeq holds the live flash sequence per symbol; an expiry message
	// with a stale sequence is ignored so each update restarts the timer.
	flashSeq map[string]uint64
	flashing map[string]bool
	glowSeq  map[string]uint64
	glowing  map[string]bool
	nextSeq  uint64

	bannerKind int
	bannerText string

	detailSymbol string

	searchInput textinput.Model
	assetTable  table.Model
	assetDraw   int
	assetStart  int
	assetTotal  int
	assetErr    error

	width  int
	height int
}

// NewModel creates a new Model in the loading state.
func NewModel(client watchlistClient, catalog assets.Client) Model {
	store := watchlist.NewStore()
	return Model{
		state:       StateLoading,
		store:       store,
		engine:      watchlist.NewEngine(store, nil),
		indicators:  analysis.NewSet(),
		client:      client,
		catalog:     catalog,
		tickerInput: NewTickerInput(),
		quoteTable:  NewQuoteTable(),
		flashSeq:    map[string]uint64{},
		flashing:    map[string]bool{},
		glowSeq:     map[string]uint64{},
		glowing:     map[string]bool{},
		searchInput: NewSearchInput(),
		assetTable:  NewAssetTable(),
	}
}

// NewModelWithLogger creates a Model whose reconciliation logs through the
// given logger.
func NewModelWithLogger(client watchlistClient, catalog assets.Client, logger stream.Logger) Model {
	m := NewModel(client, catalog)
	m.engine = watchlist.NewEngine(m.store, logger)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.Tick(loadTimeout, func(time.Time) tea.Msg { return loadTimeoutMsg{} }),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			// only quit when no text input has focus
			if !m.tickerInput.Focused() && !m.searchInput.Focused() {
				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.quoteTable.SetWidth(msg.Width)
		m.quoteTable.SetHeight(msg.Height - 10)
		m.assetTable.SetWidth(msg.Width)
		m.assetTable.SetHeight(msg.Height - 8)
		return m, nil

	case WatchlistMsg:
		return m.handleWatchlist(msg)
	case QuoteMsg:
		return m.handleQuote(msg)
	case TradeMsg:
		return m.handleTrade(msg)
	case MarketStatusMsg:
		m.engine.ApplyStatus(msg.Status)
		return m, nil
	case ServerErrorMsg:
		return m.showBanner(bannerError, msg.Err.Error())

	case ConnOpenedMsg:
		changed := m.store.SetConnState(watchlist.Connected)
		var cmds []tea.Cmd
		if m.state == StateLoading {
			m.state = StateDashboard
			m.tickerInput.Focus()
			cmds = append(cmds, textinput.Blink)
		}
		if changed {
			cmds = append(cmds, m.setBanner(bannerInfo, "Connected to real-time stock data stream"))
		}
		return m, tea.Batch(cmds...)
	case ConnClosedMsg:
		if m.store.SetConnState(watchlist.Disconnected) {
			return m.showBanner(bannerError, "Connection lost. Reconnecting...")
		}
		return m, nil
	case ConnErrorMsg:
		if m.store.SetConnState(watchlist.Errored) {
			return m.showBanner(bannerError, "Connection error: "+msg.Err.Error())
		}
		return m, nil
	case HandshakeTimeoutMsg:
		m.store.SetConnState(watchlist.Errored)
		return m.showBanner(bannerError, "Server handshake timed out")

	case tickerChangeMsg:
		if msg.err != nil {
			return m.showBanner(bannerError, "Could not update watchlist: "+msg.err.Error())
		}
		if msg.remove {
			return m.showBanner(bannerInfo, "Removed "+msg.ticker)
		}
		return m, nil

	case glowExpiredMsg:
		if m.glowSeq[msg.symbol] == msg.seq {
			delete(m.glowing, msg.symbol)
		}
		return m, nil
	case flashExpiredMsg:
		if m.flashSeq[msg.symbol] == msg.seq {
			delete(m.flashing, msg.symbol)
			m.quoteTable = UpdateQuoteRows(m.quoteTable, m.store, m.flashing)
		}
		return m, nil

	case bannerHideMsg:
		m.bannerKind = bannerNone
		m.bannerText = ""
		return m, nil

	case loadTimeoutMsg:
		if m.state == StateLoading {
			m.state = StateDashboard
			m.tickerInput.Focus()
			return m.showBanner(bannerError, "Still waiting for data from the server")
		}
		return m, nil

	case assetsPageMsg:
		return m.handleAssetsPage(msg)
	}

	switch m.state {
	case StateDashboard:
		return m.updateDashboard(msg)
	case StateBrowser:
		return m.updateBrowser(msg)
	case StateDetail:
		return m.updateDetail(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateBrowser:
		m.state = StateDashboard
		m.searchInput.Blur()
		if !m.tableFocused {
			m.tickerInput.Focus()
			return m, textinput.Blink
		}
	case StateDetail:
		m.detailSymbol = ""
		m.state = StateDashboard
	}
	return m, nil
}

// handleWatchlist applies a snapshot from the server. If a snapshot lands
// before the connection-opened signal it also ends the loading screen; later
// snapshots just reconcile membership.
func (m Model) handleWatchlist(msg WatchlistMsg) (tea.Model, tea.Cmd) {
	delta := m.engine.ApplyWatchlist(msg.Tickers)
	for _, sym := range delta.Removed {
		m.indicators.Remove(sym)
		delete(m.flashing, sym)
		delete(m.glowing, sym)
		if m.detailSymbol == sym {
			m.detailSymbol = ""
			if m.state == StateDetail {
				m.state = StateDashboard
			}
		}
	}
	m.quoteTable = UpdateQuoteRows(m.quoteTable, m.store, m.flashing)

	if m.state == StateLoading {
		m.state = StateDashboard
		m.tickerInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handleQuote(msg QuoteMsg) (tea.Model, tea.Cmd) {
	stored, _ := m.engine.ApplyQuote(msg.Quote)
	if !stored {
		return m, nil
	}
	sym := watchlist.NormalizeTicker(msg.Quote.Symbol)
	if mid := (msg.Quote.BidPrice + msg.Quote.AskPrice) / 2; mid > 0 {
		m.indicators.Observe(sym, mid)
	}
	m.quoteTable = UpdateQuoteRows(m.quoteTable, m.store, m.flashing)
	return m, m.startFlash(sym)
}

func (m Model) handleTrade(msg TradeMsg) (tea.Model, tea.Cmd) {
	if !m.engine.ApplyTrade(msg.Trade) {
		return m, nil
	}
	sym := watchlist.NormalizeTicker(msg.Trade.Symbol)
	m.indicators.Observe(sym, msg.Trade.Price)
	m.quoteTable = UpdateQuoteRows(m.quoteTable, m.store, m.flashing)
	return m, m.startFlash(sym)
}

// startFlash restarts the row flash and detail glow timers for symbol.
func (m *Model) startFlash(symbol string) tea.Cmd {
	m.nextSeq++
	seq := m.nextSeq
	m.flashSeq[symbol] = seq
	m.flashing[symbol] = true
	m.quoteTable = UpdateQuoteRows(m.quoteTable, m.store, m.flashing)
	cmds := []tea.Cmd{
		tea.Tick(flashDuration, func(time.Time) tea.Msg {
			return flashExpiredMsg{symbol: symbol, seq: seq}
		}),
	}

	if m.detailSymbol == symbol {
		m.glowSeq[symbol] = seq
		m.glowing[symbol] = true
		cmds = append(cmds, tea.Tick(glowDuration, func(time.Time) tea.Msg {
			return glowExpiredMsg{symbol: symbol, seq: seq}
		}))
	}
	return tea.Batch(cmds...)
}

// setBanner replaces the banner and schedules a hide. Hide timers are never
// cancelled.
func (m *Model) setBanner(kind int, text string) tea.Cmd {
	m.bannerKind = kind
	m.bannerText = text
	d := infoBannerTime
	if kind == bannerError {
		d = errorBannerTime
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return bannerHideMsg{} })
}

func (m Model) showBanner(kind int, text string) (tea.Model, tea.Cmd) {
	cmd := m.setBanner(kind, text)
	return m, cmd
}

func (m Model) updateDashboard(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab":
			m.tableFocused = !m.tableFocused
			if m.tableFocused {
				m.tickerInput.Blur()
				m.quoteTable.Focus()
			} else {
				m.quoteTable.Blur()
				m.tickerInput.Focus()
				return m, textinput.Blink
			}
			return m, nil
		case "enter":
			if m.tableFocused {
				return m.openDetail()
			}
			return m.submitTicker()
		case "d":
			if m.tableFocused {
				return m.removeSelected()
			}
		case "b":
			if m.tableFocused {
				return m.openBrowser()
			}
		}
	}

	var cmd tea.Cmd
	if m.tableFocused {
		m.quoteTable, cmd = m.quoteTable.Update(msg)
	} else {
		m.tickerInput, cmd = m.tickerInput.Update(msg)
	}
	return m, cmd
}

// submitTicker validates the typed symbol and sends an add request. A symbol
// already on the watchlist never reaches the server.
func (m Model) submitTicker() (tea.Model, tea.Cmd) {
	ticker := watchlist.NormalizeTicker(m.tickerInput.Value())
	if ticker == "" {
		return m, nil
	}
	m.tickerInput.Reset()
	if m.store.Contains(ticker) {
		return m.showBanner(bannerError, ticker+" is already in your watchlist")
	}
	banner := m.setBanner(bannerInfo, "Adding "+ticker+" to watchlist...")
	return m, tea.Batch(addTickerCmd(m.client, ticker), banner)
}

// selectedTicker resolves the highlighted row back to its symbol. The row
// cells are display text, so the cursor indexes into the membership set
// instead.
func (m Model) selectedTicker() (string, bool) {
	tickers := m.store.Watchlist()
	cursor := m.quoteTable.Cursor()
	if cursor < 0 || cursor >= len(tickers) {
		return "", false
	}
	return tickers[cursor], true
}

func (m Model) openDetail() (tea.Model, tea.Cmd) {
	ticker, ok := m.selectedTicker()
	if !ok {
		return m, nil
	}
	m.detailSymbol = ticker
	m.state = StateDetail
	return m, nil
}

// removeSelected optimistically purges the symbol's records and asks the
// server to drop it. Membership is reconciled by the echoed snapshot.
func (m Model) removeSelected() (tea.Model, tea.Cmd) {
	ticker, ok := m.selectedTicker()
	if !ok {
		return m, nil
	}
	m.store.RemoveTicker(ticker)
	m.indicators.Remove(ticker)
	delete(m.flashing, ticker)
	delete(m.glowing, ticker)
	m.quoteTable = UpdateQuoteRows(m.quoteTable, m.store, m.flashing)
	return m, removeTickerCmd(m.client, ticker)
}

func (m Model) openBrowser() (tea.Model, tea.Cmd) {
	m.state = StateBrowser
	m.assetStart = 0
	m.searchInput.Reset()
	m.searchInput.Focus()
	return m, tea.Batch(textinput.Blink, m.fetchAssets())
}

func (m Model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m Model) updateBrowser(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab":
			if m.searchInput.Focused() {
				m.searchInput.Blur()
				m.assetTable.Focus()
			} else {
				m.assetTable.Blur()
				m.searchInput.Focus()
				return m, textinput.Blink
			}
			return m, nil
		case "enter":
			if m.searchInput.Focused() {
				m.assetStart = 0
				return m, m.fetchAssets()
			}
			return m.addSelectedAsset()
		case "right", "n":
			if !m.searchInput.Focused() && m.assetStart+browserPageSize < m.assetTotal {
				m.assetStart += browserPageSize
				return m, m.fetchAssets()
			}
			return m, nil
		case "left", "p":
			if !m.searchInput.Focused() && m.assetStart > 0 {
				m.assetStart -= browserPageSize
				if m.assetStart < 0 {
					m.assetStart = 0
				}
				return m, m.fetchAssets()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.searchInput.Focused() {
		m.searchInput, cmd = m.searchInput.Update(msg)
	} else {
		m.assetTable, cmd = m.assetTable.Update(msg)
	}
	return m, cmd
}

// fetchAssets requests the current catalog page. The draw counter makes
// stale responses detectable.
func (m *Model) fetchAssets() tea.Cmd {
	m.assetDraw++
	params := assets.ListParams{
		Draw:   m.assetDraw,
		Start:  m.assetStart,
		Length: browserPageSize,
		Search: m.searchInput.Value(),
	}
	catalog := m.catalog
	return func() tea.Msg {
		page, err := catalog.ListAssets(params)
		return assetsPageMsg{page: page, err: err}
	}
}

func (m Model) handleAssetsPage(msg assetsPageMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.assetErr = msg.err
		return m, nil
	}
	// out-of-order response for a superseded request
	if msg.page.Draw != m.assetDraw {
		return m, nil
	}
	m.assetErr = nil
	m.assetTotal = msg.page.RecordsFiltered
	m.assetTable = UpdateAssetRows(m.assetTable, msg.page.Assets)
	return m, nil
}

func (m Model) addSelectedAsset() (tea.Model, tea.Cmd) {
	row := m.assetTable.SelectedRow()
	if row == nil {
		return m, nil
	}
	ticker := row[0]
	m.state = StateDashboard
	m.searchInput.Blur()
	if m.store.Contains(ticker) {
		return m.showBanner(bannerError, ticker+" is already in your watchlist")
	}
	banner := m.setBanner(bannerInfo, "Adding "+ticker+" to watchlist...")
	return m, tea.Batch(addTickerCmd(m.client, ticker), banner)
}

func addTickerCmd(client watchlistClient, ticker string) tea.Cmd {
	return func() tea.Msg {
		return tickerChangeMsg{ticker: ticker, err: client.AddTicker(ticker)}
	}
}

func removeTickerCmd(client watchlistClient, ticker string) tea.Cmd {
	return func() tea.Msg {
		return tickerChangeMsg{ticker: ticker, remove: true, err: client.RemoveTicker(ticker)}
	}
}
