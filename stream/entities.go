package stream

import "time"

// Quote is a quote push for a single symbol.
type Quote struct {
	// Symbol the quote belongs to
	Symbol string
	// BidPrice is the latest bid price
	BidPrice float64
	// AskPrice is the latest ask price
	AskPrice float64
	// Timestamp is the server-supplied quote time (may be zero)
	Timestamp time.Time
	// MarketHours is "open" or "closed"
	MarketHours string
	// Type distinguishes real quotes ("quote") from server diagnostics ("test")
	Type string
	// Message carries the diagnostic text of test quotes
	Message string
}

const quoteTypeTest = "test"

// Test reports whether the quote is a server diagnostic rather than market data.
func (q Quote) Test() bool {
	return q.Type == quoteTypeTest
}

// Trade is a trade push for a single symbol.
type Trade struct {
	// Symbol the trade belongs to
	Symbol string
	// Price is the trade price
	Price float64
	// Size is the trade size
	Size uint32
}

// MarketStatus describes the current market session. NextOpen and NextClose
// are preformatted by the server and rendered verbatim.
type MarketStatus struct {
	IsOpen    bool
	NextOpen  string
	NextClose string
}

// errorMessage is an error received from the server
type errorMessage struct {
	msg  string
	code int
}

var _ error = errorMessage{}

func (e errorMessage) Error() string {
	return e.msg
}
