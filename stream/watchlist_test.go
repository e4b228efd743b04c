package stream

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedClient(t *testing.T, connection *mockConn, opts ...Option) Client {
	connCreator := func(_ context.Context, _ url.URL) (conn, error) {
		return connection, nil
	}

	c := NewClient(append(opts,
		WithReconnectSettings(1, 0),
		withConnCreator(connCreator))...)

	connection.readCh <- welcomeFrame(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, c.Connect(ctx))
	// drain the snapshot request sent during the handshake
	expectWrite(t, connection)

	return c
}

func TestAddTickerAcknowledged(t *testing.T) {
	connection := newMockConn()
	defer connection.close()

	snapshots := make(chan []string, 1)
	c := connectedClient(t, connection, WithWatchlist(func(tickers []string) {
		snapshots <- tickers
	}))

	res := make(chan error, 1)
	go func() {
		res <- c.AddTicker("aapl")
	}()

	request := expectWrite(t, connection)
	assert.Equal(t, "add_ticker", request["action"])
	assert.Equal(t, "AAPL", request["ticker"])

	// server echoes the authoritative snapshot
	connection.readCh <- serializeToMsgpack(t, []map[string]interface{}{
		{
			"T":       "watchlist",
			"tickers": []string{"AAPL"},
		},
	})

	require.NoError(t, <-res)
	select {
	case tickers := <-snapshots:
		assert.Equal(t, []string{"AAPL"}, tickers)
	case <-time.After(time.Second):
		require.Fail(t, "watchlist snapshot not delivered in time")
	}
}

func TestRemoveTickerRejected(t *testing.T) {
	connection := newMockConn()
	defer connection.close()

	c := connectedClient(t, connection)

	res := make(chan error, 1)
	go func() {
		res <- c.RemoveTicker("AAPL")
	}()

	request := expectWrite(t, connection)
	assert.Equal(t, "remove_ticker", request["action"])

	// server rejects the change
	connection.readCh <- serializeToMsgpack(t, []map[string]interface{}{
		{
			"T":   "error",
			"msg": "ticker not in watchlist",
		},
	})

	err := <-res
	require.Error(t, err)
	assert.EqualError(t, err, "ticker not in watchlist")
}

func TestWatchlistChangeBeforeConnect(t *testing.T) {
	c := NewClient()

	err := c.AddTicker("AAPL")

	require.Error(t, err)
	require.ErrorIs(t, err, ErrChangeBeforeConnect)
}

func TestWatchlistChangeEmptyTicker(t *testing.T) {
	c := &client{
		connectCalled: true,
		actions:       make(chan []byte, 1),
		logger:        DefaultLogger(),
		handler:       &deckMsgHandler{},
	}

	require.ErrorIs(t, c.AddTicker("  "), ErrEmptyTicker)
}

func TestWatchlistChangeAlreadyInProgress(t *testing.T) {
	c := &client{
		connectCalled: true,
		actions:       make(chan []byte, 1),
		logger:        DefaultLogger(),
		handler:       &deckMsgHandler{},
		pendingChange: &changeRequest{result: make(chan error, 1)},
	}

	require.ErrorIs(t, c.AddTicker("AAPL"), ErrChangeAlreadyInProgress)
}

func TestWatchlistChangeTimeout(t *testing.T) {
	ta := timeAfter
	defer func() {
		timeAfter = ta
	}()
	timeAfter = func(_ time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	c := &client{
		connectCalled: true,
		actions:       make(chan []byte, 1),
		logger:        DefaultLogger(),
		handler:       &deckMsgHandler{},
	}

	require.ErrorIs(t, c.AddTicker("AAPL"), ErrChangeTimeout)
	assert.Nil(t, c.pendingChange)
}
