package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/watchdeck/watchdeck/analysis"
	"github.com/watchdeck/watchdeck/assets"
	"github.com/watchdeck/watchdeck/watchlist"
)

// NewTickerInput creates the add-ticker text input.
func NewTickerInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "AAPL"
	ti.CharLimit = 10
	ti.Width = 20
	ti.Prompt = "Add ticker: "

	return ti
}

// NewSearchInput creates the asset browser search input.
func NewSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "search symbol or name"
	ti.CharLimit = 60
	ti.Width = 40
	ti.Prompt = "Search: "

	return ti
}

// NewQuoteTable creates the watchlist table.
func NewQuoteTable() table.Model {
	columns := []table.Column{
		{Title: "Symbol", Width: 10},
		{Title: "Bid", Width: 12},
		{Title: "Ask", Width: 12},
		{Title: "Last Trade", Width: 12},
		{Title: "Size", Width: 8},
		{Title: "Updated", Width: 24},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// NewAssetTable creates the asset browser table.
func NewAssetTable() table.Model {
	columns := []table.Column{
		{Title: "Symbol", Width: 10},
		{Title: "Name", Width: 44},
		{Title: "Exchange", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(browserPageSize),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdateQuoteRows rebuilds the watchlist table from the store. Flashing rows
// get the flash highlight on their symbol cell.
func UpdateQuoteRows(t table.Model, store *watchlist.Store, flashing map[string]bool) table.Model {
	tickers := store.Watchlist()
	rows := make([]table.Row, 0, len(tickers))

	for _, sym := range tickers {
		quote, hasQuote := store.Quote(sym)
		trade, hasTrade := store.Trade(sym)

		bid, ask, last, size, updated := placeholder, placeholder, placeholder, placeholder, placeholder
		if hasQuote {
			bid = FormatPrice(quote.BidPrice)
			ask = FormatPrice(quote.AskPrice)
			// the server's quote time wins over our receipt time
			when := quote.Timestamp
			if when.IsZero() {
				when = quote.ReceivedAt
			}
			updated = FormatClock(when)
		}
		if hasTrade {
			last = FormatPrice(trade.Price)
			size = fmt.Sprintf("%d", trade.Size)
			if !hasQuote || trade.ReceivedAt.After(quote.ReceivedAt) {
				updated = FormatClock(trade.ReceivedAt)
			}
		}
		if hasQuote && quote.MarketHours == "closed" {
			updated += " (After Hours)"
		}

		name := sym
		if flashing[sym] {
			name = sym + " ●"
		}

		rows = append(rows, table.Row{name, bid, ask, last, size, updated})
	}

	t.SetRows(rows)

	return t
}

// UpdateAssetRows rebuilds the asset browser table from a catalog page.
func UpdateAssetRows(t table.Model, rows []assets.Asset) table.Model {
	tableRows := make([]table.Row, 0, len(rows))
	for _, a := range rows {
		tableRows = append(tableRows, table.Row{a.Symbol, a.Name, a.Exchange})
	}
	t.SetRows(tableRows)
	t.SetCursor(0)

	return t
}

// FormatClock renders a local wall-clock time, N/A for the zero time.
func FormatClock(ts time.Time) string {
	if ts.IsZero() {
		return "N/A"
	}
	return ts.Local().Format("15:04:05")
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("Watchdeck"))
	s.WriteString("  ")
	s.WriteString(connStyles[m.store.ConnState()].Render(m.store.ConnState().String()))
	s.WriteString("\n")
	s.WriteString(m.marketStatusLine())
	s.WriteString("\n")

	if m.bannerKind != bannerNone {
		style := InfoBannerStyle
		if m.bannerKind == bannerError {
			style = ErrorBannerStyle
		}
		s.WriteString(style.Render(m.bannerText))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	switch m.state {
	case StateLoading:
		s.WriteString("Loading watchlist...\n")
	case StateDashboard:
		s.WriteString(m.viewDashboard())
	case StateBrowser:
		s.WriteString(m.viewBrowser())
	case StateDetail:
		s.WriteString(m.viewDetail())
	}

	return s.String()
}

func (m Model) marketStatusLine() string {
	status, ok := m.store.MarketStatus()
	if !ok {
		return HelpStyle.Render("Market status unknown")
	}
	if status.IsOpen {
		next := status.NextClose
		if next == "" {
			next = "N/A"
		}
		return MarketOpenStyle.Render("Market is OPEN") + "  Closes at: " + next
	}
	next := status.NextOpen
	if next == "" {
		next = "N/A"
	}
	return MarketClosedStyle.Render("Market is CLOSED") + "  Opens at: " + next
}

func (m Model) viewDashboard() string {
	var s strings.Builder

	s.WriteString(m.tickerInput.View())
	s.WriteString("\n\n")

	if m.store.Len() == 0 {
		s.WriteString("No stocks in watchlist. Add some tickers to get started!\n")
	} else {
		s.WriteString(m.quoteTable.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("Enter: add/open | Tab: switch focus | d: remove | b: browse assets | q: quit"))
	return s.String()
}

func (m Model) viewDetail() string {
	var s strings.Builder

	sym := m.detailSymbol
	quote, hasQuote := m.store.Quote(sym)
	trade, hasTrade := m.store.Trade(sym)

	var card strings.Builder
	card.WriteString(TitleStyle.Render(sym))
	card.WriteString("\n\n")
	if hasQuote {
		card.WriteString(fmt.Sprintf("Bid: %s   Ask: %s\n", FormatPrice(quote.BidPrice), FormatPrice(quote.AskPrice)))
		card.WriteString("Session: " + quote.MarketHours + "\n")
	} else {
		card.WriteString(fmt.Sprintf("Bid: %s   Ask: %s\n", placeholder, placeholder))
	}
	if hasTrade {
		card.WriteString(fmt.Sprintf("Last trade: %s x %d\n", FormatPrice(trade.Price), trade.Size))
	} else {
		card.WriteString("Last trade: " + placeholder + "\n")
	}

	card.WriteString("\n")
	ma50, ma200, rsi := "N/A", "N/A", "N/A"
	if tr, ok := m.indicators.Tracker(sym); ok {
		ma50 = analysis.Format(tr.MA50())
		ma200 = analysis.Format(tr.MA200())
		rsi = analysis.Format(tr.RSI())
	}
	card.WriteString(fmt.Sprintf("MA(50): %s   MA(200): %s   RSI(14): %s\n", ma50, ma200, rsi))

	frame := CardStyle
	if m.glowing[sym] {
		frame = GlowStyle
	}
	s.WriteString(frame.Render(card.String()))
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Esc: back | q: quit"))
	return s.String()
}

func (m Model) viewBrowser() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("Asset Browser"))
	s.WriteString("\n\n")
	s.WriteString(m.searchInput.View())
	s.WriteString("\n\n")

	if m.assetErr != nil {
		s.WriteString(ErrorBannerStyle.Render("Could not load assets: " + m.assetErr.Error()))
		s.WriteString("\n\n")
	}

	s.WriteString(m.assetTable.View())
	s.WriteString("\n")

	first := m.assetStart + 1
	last := m.assetStart + len(m.assetTable.Rows())
	if last < first {
		first = 0
		last = 0
	}
	s.WriteString(HelpStyle.Render(fmt.Sprintf("Showing %d-%d of %d", first, last, m.assetTotal)))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("Enter: search/add | Tab: switch focus | left/right: page | Esc: back"))
	return s.String()
}
