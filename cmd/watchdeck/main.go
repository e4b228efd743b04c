package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/watchdeck/watchdeck/assets"
	"github.com/watchdeck/watchdeck/stream"
)

func main() {
	streamURL := flag.String("stream-url", "", "websocket URL of the quote stream (default WATCHDECK_STREAM_URL)")
	apiURL := flag.String("api-url", "", "base URL of the asset catalog API (default WATCHDECK_API_URL)")
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	logger, closeLogger, err := buildLogger(*logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "watchdeck:", err)
		os.Exit(1)
	}
	defer closeLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The program is created after the client, so callbacks go through an
	// indirection that drops messages until it is set.
	var p *tea.Program
	send := func(msg tea.Msg) {
		if p != nil {
			p.Send(msg)
		}
	}

	opts := []stream.Option{
		stream.WithLogger(logger),
		stream.WithConnectCallback(func() { send(ConnOpenedMsg{}) }),
		stream.WithDisconnectCallback(func() { send(ConnClosedMsg{}) }),
		stream.WithErrorCallback(func(err error) { send(ConnErrorMsg{Err: err}) }),
		stream.WithHandshakeTimeoutCallback(func() { send(HandshakeTimeoutMsg{}) }),
		stream.WithQuotes(func(q stream.Quote) { send(QuoteMsg{Quote: q}) }),
		stream.WithTrades(func(t stream.Trade) { send(TradeMsg{Trade: t}) }),
		stream.WithWatchlist(func(tickers []string) { send(WatchlistMsg{Tickers: tickers}) }),
		stream.WithMarketStatus(func(st stream.MarketStatus) { send(MarketStatusMsg{Status: st}) }),
		stream.WithServerErrors(func(err error) { send(ServerErrorMsg{Err: err}) }),
	}
	if *streamURL != "" {
		opts = append(opts, stream.WithBaseURL(*streamURL))
	}
	client := stream.NewClient(opts...)

	catalog := assets.NewClient(assets.ClientOpts{BaseURL: *apiURL})

	m := NewModelWithLogger(client, catalog, logger)
	p = tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		if err := client.Connect(ctx); err != nil {
			send(ConnErrorMsg{Err: err})
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "watchdeck:", err)
		os.Exit(1)
	}
}

// buildLogger returns a quiet logger unless a log file was requested. The
// terminal belongs to the dashboard, so logs never go to stdout or stderr.
func buildLogger(path string) (stream.Logger, func(), error) {
	if path == "" {
		return stream.DefaultLogger(), func() {}, nil
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	zl, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return stream.NewZapLogger(zl.Sugar()), func() { _ = zl.Sync() }, nil
}
