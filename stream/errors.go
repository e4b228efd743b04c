package stream

import "errors"

var (
	// ErrConnectCalledMultipleTimes is returned when Connect has been called multiple times on a single client
	ErrConnectCalledMultipleTimes = errors.New("tried to call Connect multiple times")
	// ErrNoConnected is returned when the client did not receive the welcome
	// message from the server
	ErrNoConnected = errors.New("did not receive connected message")
	// ErrEmptyTicker is returned when a watchlist change is attempted with a blank symbol
	ErrEmptyTicker = errors.New("ticker symbol is empty")
	// ErrChangeBeforeConnect is returned when the client attempts to change the
	// watchlist before calling Connect
	ErrChangeBeforeConnect = errors.New("watchlist change attempted before calling Connect")
	// ErrChangeAfterTerminated is returned when the client attempts to change the
	// watchlist after the client has been terminated
	ErrChangeAfterTerminated = errors.New("watchlist change after client termination")
	// ErrChangeAlreadyInProgress is returned when a watchlist change is called
	// concurrently with another
	ErrChangeAlreadyInProgress = errors.New("watchlist change already in progress")
	// ErrChangeInterrupted is returned when a watchlist change was in progress
	// when the client terminated
	ErrChangeInterrupted = errors.New("watchlist change interrupted by client termination")
	// ErrChangeTimeout is returned when the server does not echo an authoritative
	// watchlist snapshot after a change request.
	ErrChangeTimeout = errors.New("watchlist change timeout")
)
