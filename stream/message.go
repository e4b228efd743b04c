package stream

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	msgTypeSuccess      = "success"
	msgTypeWatchlist    = "watchlist"
	msgTypeQuote        = "quote"
	msgTypeTrade        = "trade"
	msgTypeMarketStatus = "market_status"
	msgTypeError        = "error"
)

func (c *client) handleMessage(b []byte) error {
	d := msgpack.GetDecoder()
	defer msgpack.PutDecoder(d)

	reader := bytes.NewReader(b)
	d.Reset(reader)

	arrLen, err := d.DecodeArrayLen()
	if err != nil || arrLen < 1 {
		return err
	}

	for i := 0; i < arrLen; i++ {
		var n int
		n, err = d.DecodeMapLen()
		if err != nil {
			return err
		}
		if n < 1 {
			continue
		}

		key, err := d.DecodeString()
		if err != nil {
			return err
		}
		if key != "T" {
			return fmt.Errorf("first key is not T but: %s", key)
		}
		T, err := d.DecodeString()
		if err != nil {
			return err
		}
		n-- // T already processed

		switch T {
		case msgTypeQuote:
			err = c.handler.handleQuote(d, n)
		case msgTypeTrade:
			err = c.handler.handleTrade(d, n)
		case msgTypeWatchlist:
			err = c.handleWatchlistMessage(d, n)
		case msgTypeMarketStatus:
			err = c.handler.handleMarketStatus(d, n)
		case msgTypeError:
			err = c.handleErrorMessage(d, n)
		default:
			err = c.handleOther(d, n)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

type deckMsgHandler struct {
	mu                  sync.RWMutex
	quoteHandler        func(quote Quote)
	tradeHandler        func(trade Trade)
	watchlistHandler    func(tickers []string)
	marketStatusHandler func(status MarketStatus)
	serverErrorHandler  func(err error)
}

func (h *deckMsgHandler) handleQuote(d *msgpack.Decoder, n int) error {
	quote := Quote{}
	for i := 0; i < n; i++ {
		key, err := d.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "type":
			quote.Type, err = d.DecodeString()
		case "data":
			err = decodeQuoteData(d, &quote)
		default:
			err = d.Skip()
		}
		if err != nil {
			return err
		}
	}
	h.mu.RLock()
	quoteHandler := h.quoteHandler
	h.mu.RUnlock()
	quoteHandler(quote)
	return nil
}

func decodeQuoteData(d *msgpack.Decoder, quote *Quote) error {
	n, err := d.DecodeMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key, err := d.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "symbol":
			quote.Symbol, err = d.DecodeString()
		case "bid_price":
			quote.BidPrice, err = d.DecodeFloat64()
		case "ask_price":
			quote.AskPrice, err = d.DecodeFloat64()
		case "timestamp":
			quote.Timestamp, err = d.DecodeTime()
		case "market_hours":
			quote.MarketHours, err = d.DecodeString()
		case "message":
			quote.Message, err = d.DecodeString()
		default:
			err = d.Skip()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *deckMsgHandler) handleTrade(d *msgpack.Decoder, n int) error {
	trade := Trade{}
	for i := 0; i < n; i++ {
		key, err := d.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "symbol":
			trade.Symbol, err = d.DecodeString()
		case "data":
			err = decodeTradeData(d, &trade)
		default:
			err = d.Skip()
		}
		if err != nil {
			return err
		}
	}
	h.mu.RLock()
	tradeHandler := h.tradeHandler
	h.mu.RUnlock()
	tradeHandler(trade)
	return nil
}

func decodeTradeData(d *msgpack.Decoder, trade *Trade) error {
	n, err := d.DecodeMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key, err := d.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "price":
			trade.Price, err = d.DecodeFloat64()
		case "size":
			trade.Size, err = d.DecodeUint32()
		default:
			err = d.Skip()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *deckMsgHandler) handleMarketStatus(d *msgpack.Decoder, n int) error {
	status := MarketStatus{}
	for i := 0; i < n; i++ {
		key, err := d.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "is_open":
			status.IsOpen, err = d.DecodeBool()
		case "next_open":
			status.NextOpen, err = d.DecodeString()
		case "next_close":
			status.NextClose, err = d.DecodeString()
		default:
			err = d.Skip()
		}
		if err != nil {
			return err
		}
	}
	h.mu.RLock()
	statusHandler := h.marketStatusHandler
	h.mu.RUnlock()
	statusHandler(status)
	return nil
}

// watchlistMsgHandler resolves a pending change request (the snapshot is the
// server's acknowledgement) and always forwards the authoritative ticker set.
var watchlistMsgHandler = func(c *client, tickers []string) error {
	c.pendingChangeMutex.Lock()
	if c.pendingChange != nil {
		c.pendingChange.result <- nil
		c.pendingChange = nil
	}
	c.pendingChangeMutex.Unlock()

	c.handler.mu.RLock()
	watchlistHandler := c.handler.watchlistHandler
	c.handler.mu.RUnlock()
	watchlistHandler(tickers)
	return nil
}

func (c *client) handleWatchlistMessage(d *msgpack.Decoder, n int) error {
	var tickers []string
	for i := 0; i < n; i++ {
		key, err := d.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "tickers":
			tickers, err = decodeStringSlice(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return err
		}
	}

	return watchlistMsgHandler(c, tickers)
}

var errMessageHandler = func(c *client, e errorMessage) error {
	c.pendingChangeMutex.Lock()
	if c.pendingChange != nil {
		c.pendingChange.result <- e
		c.pendingChange = nil
		c.pendingChangeMutex.Unlock()
		return nil
	}
	c.pendingChangeMutex.Unlock()

	c.logger.Warnf("watchdeck stream: got error from server: %s", e.msg)
	c.handler.mu.RLock()
	serverErrorHandler := c.handler.serverErrorHandler
	c.handler.mu.RUnlock()
	serverErrorHandler(e)
	return nil
}

func (c *client) handleErrorMessage(d *msgpack.Decoder, n int) error {
	e := errorMessage{}
	for i := 0; i < n; i++ {
		key, err := d.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "msg":
			e.msg, err = d.DecodeString()
		case "code":
			e.code, err = d.DecodeInt()
		default:
			err = d.Skip()
		}
		if err != nil {
			return err
		}
	}

	return errMessageHandler(c, e)
}

func (c *client) handleOther(d *msgpack.Decoder, n int) error {
	for i := 0; i < n; i++ {
		// key
		if err := d.Skip(); err != nil {
			return err
		}
		// value
		if err := d.Skip(); err != nil {
			return err
		}
	}
	return nil
}

func decodeStringSlice(d *msgpack.Decoder) ([]string, error) {
	var length int
	var err error
	if length, err = d.DecodeArrayLen(); err != nil {
		return nil, err
	}
	if length < 0 {
		return []string{}, nil
	}
	res := make([]string, length)
	for i := 0; i < length; i++ {
		if s, err := d.DecodeString(); err != nil {
			return nil, err
		} else {
			res[i] = s
		}
	}
	return res, nil
}
