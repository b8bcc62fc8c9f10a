// Package realtime maintains the push-notification channel: one websocket
// connection, one per-user topic subscription, tolerant decoding of inbound
// balance messages.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Status is the channel connection lifecycle.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusSubscribed   Status = "subscription_active"
)

const (
	eventSubscribe = "subscribe"
	eventMessage   = "message"
)

// frame is the JSON envelope exchanged over the socket.
type frame struct {
	Event   string          `json:"event"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Channel manages a single push connection. Connect and Disconnect are both
// idempotent; there is no automatic reconnection, the consumer re-invokes
// Connect after a drop.
type Channel struct {
	url    string
	dialer Dialer

	// OnBalance receives every recognized balance push, in arrival order.
	// Set before Connect.
	OnBalance func(value int64)

	// OnDisconnect fires when the transport drops out from under us. It does
	// not fire on an explicit Disconnect. Optional.
	OnDisconnect func(err error)

	mu     sync.Mutex
	conn   Conn
	status Status
	userID int64
	done   chan struct{}
}

// NewChannel creates a disconnected channel for the given websocket URL.
func NewChannel(url string, dialer Dialer) *Channel {
	return &Channel{
		url:    url,
		dialer: dialer,
		status: StatusDisconnected,
	}
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SubscribedUserID returns the user whose topic is active, or 0.
func (c *Channel) SubscribedUserID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Connect dials the transport and subscribes to the user's points topic.
// Calling it while already connected or subscribed is a no-op.
func (c *Channel) Connect(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusConnected || c.status == StatusSubscribed {
		log.WithField("userId", userID).Debug("Realtime channel already connected")
		return nil
	}

	c.status = StatusConnecting
	conn, err := c.dialer.DialContext(ctx, c.url)
	if err != nil {
		c.status = StatusDisconnected
		return fmt.Errorf("realtime dial: %w", err)
	}
	c.conn = conn
	c.status = StatusConnected

	topic := Topic(userID)
	if err := conn.WriteJSON(frame{Event: eventSubscribe, Topic: topic}); err != nil {
		conn.Close()
		c.conn = nil
		c.status = StatusDisconnected
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	c.status = StatusSubscribed
	c.userID = userID
	c.done = make(chan struct{})

	log.WithFields(log.Fields{
		"userId": userID,
		"topic":  topic,
	}).Info("Realtime channel subscribed")

	go c.readLoop(conn, topic, c.done)
	return nil
}

// Disconnect deactivates the transport. Calling it while already
// disconnected is a no-op.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	close(c.done)
	c.conn.Close()
	c.conn = nil
	c.status = StatusDisconnected
	c.userID = 0
	log.Info("Realtime channel disconnected")
}

// readLoop pumps inbound frames until the connection dies or Disconnect is
// called. Decode failures are logged and discarded; they never kill the
// connection.
func (c *Channel) readLoop(conn Conn, topic string, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				// Explicit teardown, not a transport failure.
				return
			default:
			}
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.status = StatusDisconnected
				c.userID = 0
			}
			c.mu.Unlock()
			log.WithError(err).Warn("Realtime channel connection lost")
			if c.OnDisconnect != nil {
				c.OnDisconnect(err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.WithError(err).Warn("Discarding undecodable realtime frame")
			continue
		}
		if f.Topic != topic {
			log.WithField("topic", f.Topic).Debug("Ignoring frame for foreign topic")
			continue
		}
		if f.Event != eventMessage {
			continue
		}

		value, ok := decodeBalance(f.Payload)
		if !ok {
			log.WithField("payload", string(f.Payload)).
				Warn("Discarding points message with unrecognized payload")
			continue
		}
		if c.OnBalance != nil {
			c.OnBalance(value)
		}
	}
}

// Topic returns the per-user points topic.
func Topic(userID int64) string {
	return fmt.Sprintf("points/%d", userID)
}

// decodeBalance extracts the balance from a push payload. The field has
// shifted names across backend revisions, so both are accepted; anything
// else is unrecognized and gets discarded by the caller.
func decodeBalance(payload []byte) (int64, bool) {
	var body struct {
		PointsBalance *int64 `json:"pointsBalance"`
		Balance       *int64 `json:"balance"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return 0, false
	}
	switch {
	case body.PointsBalance != nil:
		return *body.PointsBalance, true
	case body.Balance != nil:
		return *body.Balance, true
	default:
		return 0, false
	}
}
