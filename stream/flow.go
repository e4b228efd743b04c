package stream

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// handshakeTimeout is a hard limit on the whole handshake, not a retry budget.
var handshakeTimeout = 10 * time.Second

// initialize performs the initial flow:
// 1. wait to be welcomed by the server
// 2. request a full-state snapshot
//
// The snapshot request is sent after every successful handshake, so a
// reconnect repopulates the client without waiting for the next periodic push.
func (c *client) initialize(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	if err := c.readConnected(ctxWithTimeout); err != nil {
		return err
	}

	return c.writeSnapshotRequest(ctxWithTimeout)
}

func (c *client) readConnected(ctx context.Context) error {
	b, err := c.conn.readMessage(ctx)
	if err != nil {
		return err
	}
	var resps []struct {
		T   string `msgpack:"T"`
		Msg string `msgpack:"msg"`
	}
	if err := msgpack.Unmarshal(b, &resps); err != nil {
		return err
	}
	if len(resps) != 1 {
		return ErrNoConnected
	}
	if resps[0].T != msgTypeSuccess || resps[0].Msg != "connected" {
		return ErrNoConnected
	}
	return nil
}

func (c *client) writeSnapshotRequest(ctx context.Context) error {
	msg, err := msgpack.Marshal(map[string]string{
		"action": "request_all_data",
	})
	if err != nil {
		return err
	}

	return c.conn.writeMessage(ctx, msg)
}
