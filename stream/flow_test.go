package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestInitializeSucceeds(t *testing.T) {
	conn := newMockConn()
	defer conn.close()
	c := client{conn: conn, logger: DefaultLogger(), handler: &deckMsgHandler{}}

	res := make(chan error, 1)

	go func() {
		// client connects to the server
		res <- c.initialize(context.Background())
	}()
	// server welcomes the client
	conn.readCh <- serializeToMsgpack(t, []map[string]interface{}{
		{
			"T":   "success",
			"msg": "connected",
		},
	})
	// client asks for a full-state snapshot
	snapshotRequest := expectWrite(t, conn)

	require.NoError(t, <-res)
	assert.Equal(t, "request_all_data", snapshotRequest["action"])
}

func TestInitializeConnectFails(t *testing.T) {
	conn := newMockConn()
	defer conn.close()
	c := client{conn: conn, logger: DefaultLogger(), handler: &deckMsgHandler{}}

	res := make(chan error, 1)

	go func() {
		// client connects to the server
		res <- c.initialize(context.Background())
	}()
	// server doesn't send proper response
	conn.readCh <- serializeToMsgpack(t, []map[string]interface{}{
		{
			"not": "correct",
		},
	})

	err := <-res
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoConnected)
}

func TestInitializeTimeout(t *testing.T) {
	conn := newMockConn()
	defer conn.close()
	c := client{conn: conn, logger: DefaultLogger(), handler: &deckMsgHandler{}}
	ht := handshakeTimeout
	defer func() {
		handshakeTimeout = ht
	}()
	handshakeTimeout = 10 * time.Millisecond

	// server never sends the welcome message
	err := c.initialize(context.Background())

	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func expectWrite(t *testing.T, mockConn *mockConn) map[string]interface{} {
	var a map[string]interface{}
	data := <-mockConn.writeCh
	err := msgpack.Unmarshal(data, &a)
	require.NoError(t, err)
	return a
}

func serializeToMsgpack(t *testing.T, v interface{}) []byte {
	m, err := msgpack.Marshal(v)
	require.NoError(t, err)
	return m
}
