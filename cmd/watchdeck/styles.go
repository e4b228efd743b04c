package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/watchdeck/watchdeck/watchlist"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorBannerStyle for error banners.
	ErrorBannerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("124")).
				Padding(0, 1)

	// InfoBannerStyle for informational banners.
	InfoBannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	// CardStyle frames the detail card.
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	// GlowStyle frames the detail card right after an update.
	GlowStyle = CardStyle.
			BorderForeground(lipgloss.Color("45"))

	// MarketOpenStyle and MarketClosedStyle color the session line.
	MarketOpenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	MarketClosedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

var connStyles = map[watchlist.ConnState]lipgloss.Style{
	watchlist.Connecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	watchlist.Connected:    lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
	watchlist.Disconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	watchlist.Errored:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

const placeholder = "—"

// FormatPrice renders a price as dollars with two decimal places. Zero means
// no data and renders as the placeholder.
func FormatPrice(v float64) string {
	if v == 0 {
		return placeholder
	}
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}
