// Package testutil provides test helpers for exercising the prediction feed end to end.
package testutil

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cory-johannsen/stylewatch/internal/feed"
)

// FeedClient is a websocket subscriber to the prediction feed for integration testing.
type FeedClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// NewFeedClient dials the feed at url and returns a test client. An http:// or https://
// url is rewritten to its websocket scheme.
//
// Precondition: url must address a listening feed endpoint.
// Postcondition: Returns a connected FeedClient or fails the test.
func NewFeedClient(t *testing.T, url string) *FeedClient {
	t.Helper()
	start := time.Now()

	if strings.HasPrefix(url, "http") {
		url = "ws" + strings.TrimPrefix(url, "http")
	}
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", url, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("feed client connected to %s [%s]", url, time.Since(start))
	return &FeedClient{conn: conn, t: t}
}

// Next reads and decodes one feed message.
//
// Postcondition: Returns the decoded message, or fails the test on timeout or bad JSON.
func (c *FeedClient) Next(timeout time.Duration) feed.Message {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("reading feed message: %v", err)
	}
	var msg feed.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.t.Fatalf("decoding feed message %q: %v", data, err)
	}
	return msg
}

// ReadUntil reads messages until match returns true or the timeout elapses.
//
// Precondition: match must be non-nil.
// Postcondition: Returns the matching message, or fails the test on timeout.
func (c *FeedClient) ReadUntil(match func(feed.Message) bool, timeout time.Duration) feed.Message {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	var seen int
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("no matching feed message after %d messages", seen)
		}
		msg := c.Next(remaining)
		seen++
		if match(msg) {
			return msg
		}
	}
}

// Close closes the underlying connection.
func (c *FeedClient) Close() {
	c.conn.Close()
}
