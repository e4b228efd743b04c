package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/watchdeck/watchdeck/internal/ctxtime"
)

// Client is a client that connects to a watchdeck push server and handles
// communication both ways.
//
// After constructing, Connect() must be called before any watchlist changes
// are requested. Connect keeps the connection alive and reestablishes it until
// a configured number of consecutive failures has been exceeded. After every
// successful handshake, including reconnects, the client requests a full-state
// snapshot so it does not wait passively for the next periodic push.
//
// Terminated() returns a channel that the client sends an error to when it has
// terminated. A client can not be reused once it has terminated.
//
// AddTicker and RemoveTicker send the corresponding action to the server and
// block until the server echoes an authoritative watchlist snapshot (which is
// also delivered to the watchlist handler) or a timeout expires. Watchlist
// changes can not be requested concurrently.
type Client interface {
	// Connect establishes a connection and reestablishes it when errors occur
	// as long as the configured number of retries has not been exceeded.
	//
	// It blocks until the connection has been established for the first time
	// (or it failed to do so).
	//
	// Should only be called once!
	Connect(ctx context.Context) error
	// Terminated returns a channel that the client sends an error to when it
	// has terminated. The channel is also closed upon termination.
	Terminated() <-chan error
	// AddTicker asks the server to add ticker to the watchlist.
	AddTicker(ticker string) error
	// RemoveTicker asks the server to remove ticker from the watchlist.
	RemoveTicker(ticker string) error
}

type client struct {
	logger Logger

	baseURL string

	reconnectLimit int
	reconnectWait  time.Duration
	processorCount int
	bufferSize     int
	connectOnce    sync.Once
	connectCalled  bool
	hasTerminated  bool
	terminatedChan chan error
	conn           conn
	in             chan []byte
	actions        chan []byte

	handler *deckMsgHandler

	connectCallback          func()
	disconnectCallback       func()
	errorCallback            func(error)
	handshakeTimeoutCallback func()

	pendingChangeMutex sync.Mutex
	pendingChange      *changeRequest

	connCreator func(ctx context.Context, u url.URL) (conn, error)
}

var _ Client = (*client)(nil)

// NewClient returns a new Client whose default configuration is modified by opts.
func NewClient(opts ...Option) Client {
	c := &client{
		terminatedChan: make(chan error, 1),
		actions:        make(chan []byte, 1),
		handler:        &deckMsgHandler{},
	}
	o := defaultOptions()
	o.apply(opts...)
	c.configure(*o)
	return c
}

func (c *client) configure(o options) {
	c.logger = o.logger
	c.baseURL = o.baseURL
	c.reconnectLimit = o.reconnectLimit
	c.reconnectWait = o.reconnectWait
	c.processorCount = o.processorCount
	c.bufferSize = o.bufferSize
	c.connectCallback = o.connectCallback
	c.disconnectCallback = o.disconnectCallback
	c.errorCallback = o.errorCallback
	c.handshakeTimeoutCallback = o.handshakeTimeoutCallback
	c.handler.quoteHandler = o.quoteHandler
	c.handler.tradeHandler = o.tradeHandler
	c.handler.watchlistHandler = o.watchlistHandler
	c.handler.marketStatusHandler = o.marketStatusHandler
	c.handler.serverErrorHandler = o.serverErrorHandler
	c.connCreator = o.connCreator
}

func (c *client) constructURL() (url.URL, error) {
	scheme := "wss"
	ub, err := url.Parse(c.baseURL)
	if err != nil {
		return url.URL{}, err
	}
	switch ub.Scheme {
	case "http", "ws":
		scheme = "ws"
	}

	return url.URL{Scheme: scheme, Host: ub.Host, Path: ub.Path}, nil
}

func (c *client) Connect(ctx context.Context) error {
	u, err := c.constructURL()
	if err != nil {
		return err
	}
	return c.connect(ctx, u)
}

func (c *client) connect(ctx context.Context, u url.URL) error {
	err := ErrConnectCalledMultipleTimes
	c.connectOnce.Do(func() {
		err = c.connectAndMaintainConnection(ctx, u)
		if err != nil {
			c.terminatedChan <- err
			close(c.terminatedChan)
		}
		c.connectCalled = true
	})
	return err
}

func (c *client) connectAndMaintainConnection(ctx context.Context, u url.URL) error {
	initialResultCh := make(chan error)
	go c.maintainConnection(ctx, u, initialResultCh)
	return <-initialResultCh
}

func (c *client) Terminated() <-chan error {
	return c.terminatedChan
}

// maintainConnection initializes a connection to u, starts the necessary
// goroutines and recreates them if there was an error as long as
// reconnectLimit consecutive connection initialization errors don't occur. It
// sends the first connection initialization's result to initialResultCh.
func (c *client) maintainConnection(ctx context.Context, u url.URL, initialResultCh chan<- error) {
	var connError error
	failedAttemptsInARow := 0
	connectedAtLeastOnce := false

	reconnectBackoff := backoff.NewExponentialBackOff()
	reconnectBackoff.InitialInterval = c.reconnectWait

	defer func() {
		// If there is a pending watchlist change we should terminate that
		c.pendingChangeMutex.Lock()
		defer c.pendingChangeMutex.Unlock()
		if c.pendingChange != nil {
			c.pendingChange.result <- ErrChangeInterrupted
		}
		c.pendingChange = nil
		c.hasTerminated = true
		// if we haven't connected at least once then Connect should close the channel
		if connectedAtLeastOnce {
			close(c.terminatedChan)
		}
	}()

	sendError := func(err error) {
		if !connectedAtLeastOnce {
			initialResultCh <- err
		} else {
			c.terminatedChan <- err
		}
	}

	for {
		select {
		case <-ctx.Done():
			if !connectedAtLeastOnce {
				c.logger.Warnf("watchdeck stream: cancelled before connection could be established, last error: %v", connError)
				err := fmt.Errorf("cancelled before connection could be established, last error: %w", connError)
				initialResultCh <- err
			} else {
				c.terminatedChan <- nil
			}
			return
		default:
			if c.reconnectLimit != 0 && failedAttemptsInARow >= c.reconnectLimit {
				c.logger.Errorf("watchdeck stream: max reconnect limit has been reached, last error: %v", connError)
				e := fmt.Errorf("max reconnect limit has been reached, last error: %w", connError)
				sendError(e)
				return
			}
			if failedAttemptsInARow > 0 {
				if err := ctxtime.Sleep(ctx, reconnectBackoff.NextBackOff()); err != nil {
					continue
				}
			}
			failedAttemptsInARow++
			c.logger.Infof("watchdeck stream: connecting to %s, attempt %d/%d ...", u.String(), failedAttemptsInARow, c.reconnectLimit)
			conn, err := c.connCreator(ctx, u)
			if err != nil {
				connError = err
				c.notifyError(err)
				c.logger.Warnf("watchdeck stream: failed to connect, error: %v", err)
				continue
			}
			c.conn = conn

			c.logger.Infof("watchdeck stream: established connection")
			if err := c.initialize(ctx); err != nil {
				connError = err
				c.conn.close()
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					c.logger.Warnf("watchdeck stream: handshake timed out")
					if c.handshakeTimeoutCallback != nil {
						c.handshakeTimeoutCallback()
					}
				} else {
					c.notifyError(err)
				}
				c.logger.Warnf("watchdeck stream: connection setup failed, error: %v", err)
				continue
			}
			c.logger.Infof("watchdeck stream: finished connection setup")
			connError = nil
			if !connectedAtLeastOnce {
				initialResultCh <- nil
				connectedAtLeastOnce = true
			}
			failedAttemptsInARow = 0
			reconnectBackoff.Reset()

			if c.connectCallback != nil {
				c.connectCallback()
			}

			c.in = make(chan []byte, c.bufferSize)
			wg := sync.WaitGroup{}
			wg.Add(c.processorCount + 3)
			closeCh := make(chan struct{})
			for i := 0; i < c.processorCount; i++ {
				go c.messageProcessor(ctx, &wg)
			}
			go c.connPinger(ctx, &wg, closeCh)
			go c.connReader(ctx, &wg, closeCh)
			go c.connWriter(ctx, &wg, closeCh)
			wg.Wait()
			if ctx.Err() != nil {
				c.logger.Infof("watchdeck stream: disconnected")
			} else {
				c.logger.Warnf("watchdeck stream: connection lost")
			}
			if c.disconnectCallback != nil {
				c.disconnectCallback()
			}
		}
	}
}

func (c *client) notifyError(err error) {
	if c.errorCallback != nil {
		c.errorCallback(err)
	}
}

var newPingTicker = func() ticker {
	return &timeTicker{ticker: time.NewTicker(pingPeriod)}
}

// connPinger periodically calls c.conn.Ping to ensure the connection is still alive
func (c *client) connPinger(ctx context.Context, wg *sync.WaitGroup, closeCh <-chan struct{}) {
	pingTicker := newPingTicker()
	defer func() {
		pingTicker.Stop()
		c.conn.close()
		wg.Done()
	}()

	for {
		select {
		case <-closeCh:
			return
		case <-ctx.Done():
			return
		case <-pingTicker.C():
			if err := c.conn.ping(ctx); err != nil {
				if ctx.Err() == nil {
					c.logger.Errorf("watchdeck stream: ping failed, error: %v", err)
				}
				return
			}
		}
	}
}

// connReader reads from c.conn and sends those messages to c.in.
// It is also responsible for closing closeCh that terminates the other worker
// goroutines and also for closing c.in which terminates messageProcessors.
func (c *client) connReader(
	ctx context.Context,
	wg *sync.WaitGroup,
	closeCh chan<- struct{},
) {
	defer func() {
		close(closeCh)
		c.conn.close()
		close(c.in)
		wg.Done()
	}()

	for {
		msg, err := c.conn.readMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Errorf("watchdeck stream: reading from conn failed, error: %v", err)
			}
			return
		}

		c.in <- msg
	}
}

// connWriter handles writing outbound action messages from c.actions to c.conn
func (c *client) connWriter(ctx context.Context, wg *sync.WaitGroup, closeCh <-chan struct{}) {
	defer func() {
		c.conn.close()
		wg.Done()
	}()

	// We need to make sure that a pending watchlist change is handled
	// Goal: make sure the message is in c.actions
	c.pendingChangeMutex.Lock()
	if c.pendingChange != nil {
		select {
		case <-c.actions:
		default:
		}
		c.actions <- c.pendingChange.msg
	}
	c.pendingChangeMutex.Unlock()

	for {
		select {
		case <-closeCh:
			return
		case <-ctx.Done():
			return
		case msg := <-c.actions:
			if err := c.conn.writeMessage(ctx, msg); err != nil {
				if ctx.Err() == nil {
					c.logger.Errorf("watchdeck stream: writing to conn failed, error: %v", err)
				}
				return
			}
		}
	}
}

// messageProcessor reads from c.in (while it's open) and processes the messages
func (c *client) messageProcessor(
	ctx context.Context,
	wg *sync.WaitGroup,
) {
	defer func() {
		wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.in:
			if !ok {
				return
			}
			err := c.handleMessage(msg)
			if err != nil {
				c.logger.Errorf("watchdeck stream: could not handle message, error: %v", err)
			}
		}
	}
}
