package stream

import (
	"context"
	"net/url"
	"os"
	"time"
)

// Option is a configuration option for the Client.
type Option interface {
	apply(*options)
}

type options struct {
	logger         Logger
	baseURL        string
	reconnectLimit int
	reconnectWait  time.Duration
	processorCount int
	bufferSize     int

	connectCallback          func()
	disconnectCallback       func()
	errorCallback            func(error)
	handshakeTimeoutCallback func()

	quoteHandler        func(Quote)
	tradeHandler        func(Trade)
	watchlistHandler    func([]string)
	marketStatusHandler func(MarketStatus)
	serverErrorHandler  func(error)

	// for testing only
	connCreator func(ctx context.Context, u url.URL) (conn, error)
}

type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(o *options) {
	fo.f(o)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// defaultOptions are the default options for a client.
// Don't change this in a backward incompatible way!
func defaultOptions() *options {
	baseURL := "ws://localhost:8000/ws/watchlist"
	if s := os.Getenv("WATCHDECK_STREAM_URL"); s != "" {
		baseURL = s
	}

	return &options{
		logger:              DefaultLogger(),
		baseURL:             baseURL,
		reconnectLimit:      20,
		reconnectWait:       150 * time.Millisecond,
		processorCount:      1,
		bufferSize:          4096,
		quoteHandler:        func(_ Quote) {},
		tradeHandler:        func(_ Trade) {},
		watchlistHandler:    func(_ []string) {},
		marketStatusHandler: func(_ MarketStatus) {},
		serverErrorHandler:  func(_ error) {},
		connCreator:         newNhooyrWebsocketConn,
	}
}

func (o *options) apply(opts ...Option) {
	for _, opt := range opts {
		opt.apply(o)
	}
}

// WithLogger configures the logger
func WithLogger(logger Logger) Option {
	return newFuncOption(func(o *options) {
		o.logger = logger
	})
}

// WithBaseURL configures the base URL
func WithBaseURL(url string) Option {
	return newFuncOption(func(o *options) {
		o.baseURL = url
	})
}

// WithReconnectSettings configures how many consecutive connection errors
// should be accepted and the initial delay between retries (the delay grows
// with an exponential backoff). limit = 0 means the client will try
// restarting indefinitely.
func WithReconnectSettings(limit int, initialWait time.Duration) Option {
	return newFuncOption(func(o *options) {
		o.reconnectLimit = limit
		o.reconnectWait = initialWait
	})
}

// WithProcessors configures how many goroutines should process incoming
// messages. Increasing this past 1 means that the order of processing is not
// necessarily the same as the order of arrival from the server.
func WithProcessors(count int) Option {
	return newFuncOption(func(o *options) {
		o.processorCount = count
	})
}

// WithBufferSize sets the size for the buffer that is used for messages
// received from the server
func WithBufferSize(size int) Option {
	return newFuncOption(func(o *options) {
		o.bufferSize = size
	})
}

// WithConnectCallback runs the callback function after each successful
// connection setup, including reconnects.
func WithConnectCallback(callback func()) Option {
	return newFuncOption(func(o *options) {
		o.connectCallback = callback
	})
}

// WithDisconnectCallback runs the callback function after the streaming
// connection is lost or closed.
func WithDisconnectCallback(callback func()) Option {
	return newFuncOption(func(o *options) {
		o.disconnectCallback = callback
	})
}

// WithErrorCallback runs the callback function when a transport error occurs.
// The connection may still be reestablished afterwards.
func WithErrorCallback(callback func(error)) Option {
	return newFuncOption(func(o *options) {
		o.errorCallback = callback
	})
}

// WithHandshakeTimeoutCallback runs the callback function when the server
// does not complete the handshake within the handshake timeout.
func WithHandshakeTimeoutCallback(callback func()) Option {
	return newFuncOption(func(o *options) {
		o.handshakeTimeoutCallback = callback
	})
}

// WithQuotes configures the handler for inbound quote pushes
func WithQuotes(handler func(Quote)) Option {
	return newFuncOption(func(o *options) {
		o.quoteHandler = handler
	})
}

// WithTrades configures the handler for inbound trade pushes
func WithTrades(handler func(Trade)) Option {
	return newFuncOption(func(o *options) {
		o.tradeHandler = handler
	})
}

// WithWatchlist configures the handler for authoritative watchlist snapshots
func WithWatchlist(handler func(tickers []string)) Option {
	return newFuncOption(func(o *options) {
		o.watchlistHandler = handler
	})
}

// WithMarketStatus configures the handler for market status pushes
func WithMarketStatus(handler func(MarketStatus)) Option {
	return newFuncOption(func(o *options) {
		o.marketStatusHandler = handler
	})
}

// WithServerErrors configures the handler for error frames that do not
// acknowledge a pending watchlist change. These should be surfaced to the
// user but never mutate any state.
func WithServerErrors(handler func(error)) Option {
	return newFuncOption(func(o *options) {
		o.serverErrorHandler = handler
	})
}

func withConnCreator(connCreator func(ctx context.Context, u url.URL) (conn, error)) Option {
	return newFuncOption(func(o *options) {
		o.connCreator = connCreator
	})
}
