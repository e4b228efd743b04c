package stream

import (
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

type changeRequest struct {
	msg    []byte
	result chan error
}

func (c *client) AddTicker(ticker string) error {
	return c.handleWatchlistChange("add_ticker", ticker)
}

func (c *client) RemoveTicker(ticker string) error {
	return c.handleWatchlistChange("remove_ticker", ticker)
}

var timeAfter = time.After

func (c *client) handleWatchlistChange(action, ticker string) error {
	if !c.connectCalled {
		return ErrChangeBeforeConnect
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return ErrEmptyTicker
	}

	msg, err := msgpack.Marshal(map[string]string{
		"action": action,
		"ticker": ticker,
	})
	if err != nil {
		return err
	}

	request := changeRequest{
		result: make(chan error),
		msg:    msg,
	}

	if err := c.setChangeRequest(&request); err != nil {
		return err
	}

	select {
	case err := <-request.result:
		return err
	case <-timeAfter(3 * time.Second):
		c.pendingChangeMutex.Lock()
		defer c.pendingChangeMutex.Unlock()
		c.pendingChange = nil
		// Drain c.actions to avoid a stuck size 1 channel when the connection is lost.
		select {
		case <-c.actions:
			c.logger.Warnf("watchdeck stream: removed watchlist change request due to timeout")
		default:
		}
	}

	return ErrChangeTimeout
}

func (c *client) setChangeRequest(request *changeRequest) error {
	c.pendingChangeMutex.Lock()
	defer c.pendingChangeMutex.Unlock()
	if c.hasTerminated {
		return ErrChangeAfterTerminated
	}
	if c.pendingChange != nil {
		return ErrChangeAlreadyInProgress
	}
	c.pendingChange = request
	c.actions <- request.msg
	return nil
}
