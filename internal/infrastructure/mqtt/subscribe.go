package mqtt

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Subscribe registers a handler for messages on an exact topic.
//
// The subscription moves through three states:
//  1. Requested: the handler joins the pending queue and the SUBSCRIBE
//     packet is handed to the session.
//  2. Pending: the packet is in flight, awaiting the broker's SUBACK.
//  3. Active: the acknowledgement arrived; the handler is promoted into the
//     topic-keyed routing table and starts receiving messages.
//
// Messages that arrive before the acknowledgement is processed are dropped
// as unrecognized; messages after it are delivered exactly once. There are
// no wildcard patterns: dispatch is by exact string match only.
//
// The handler runs synchronously on the session's dispatch thread for every
// matching message. It must not block; a slow handler stalls all later
// messages and acknowledgements on this connection.
//
// Parameters:
//   - topic: The exact topic to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//   - handler: Callback function invoked for each message
//
// Returns:
//   - error: nil once the subscription is active, or a wrapped error if the
//     send fails, the broker rejects it, or the acknowledgement times out
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// The paho callback stays nil so matching messages reach the default
	// handler and routing stays in the active table. Sending inside the
	// lock guarantees the pending entry is visible before the dispatch
	// sweep can observe the acknowledgement.
	entry := &pendingSubscription{topic: topic, qos: qos, handler: handler}
	c.subMu.Lock()
	entry.token = c.paho.Subscribe(topic, qos, nil)
	c.pending = append(c.pending, entry)
	c.subMu.Unlock()

	if !entry.token.WaitTimeout(c.ackTimeout) {
		c.removePending(entry)
		return fmt.Errorf("%w: no acknowledgement for %s within %s", ErrSubscribeFailed, topic, c.ackTimeout)
	}
	if err := entry.token.Error(); err != nil {
		c.removePending(entry)
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	// Promote now rather than on the next inbound message, so the caller
	// observes an active subscription when Subscribe returns.
	c.subMu.Lock()
	c.promoteLocked()
	c.subMu.Unlock()

	return nil
}

// SubscribeJSON registers a handler receiving decoded JSON payloads.
//
// The raw payload is checked for valid UTF-8 and unmarshalled into T before
// the handler runs. Decode failures are reported as handler errors carrying
// the topic and the raw payload, so the dispatcher's log line identifies the
// offending publisher.
//
// Example:
//
//	err := mqtt.SubscribeJSON(client, topics.ZoneSet("12", "volume"), 1,
//	    func(topic string, level uint8) error {
//	        return enqueue(topic, level)
//	    })
func SubscribeJSON[T any](c *Client, topic string, qos byte, handler func(topic string, value T) error) error {
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	return c.Subscribe(topic, qos, func(topic string, payload []byte) error {
		if !utf8.Valid(payload) {
			return fmt.Errorf("%w: %s: payload is not valid UTF-8", ErrPayloadDecode, topic)
		}
		var value T
		if err := json.Unmarshal(payload, &value); err != nil {
			return fmt.Errorf("%w: %s: payload %q: %w", ErrPayloadDecode, topic, payload, err)
		}
		return handler(topic, value)
	})
}

// Unsubscribe always fails.
//
// Subscriptions have no removal transition: they stay active until the
// process exits. Failing loudly here beats a silent no-op that would leave
// a caller believing messages stopped flowing.
func (c *Client) Unsubscribe(topic string) error {
	return fmt.Errorf("%w: %s", ErrUnsubscribeUnsupported, topic)
}

// SubscriptionCount returns the number of active (acknowledged) subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.promoteLocked()
	return len(c.active)
}

// PendingCount returns the number of subscriptions awaiting acknowledgement.
func (c *Client) PendingCount() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.promoteLocked()
	return len(c.pending)
}

// HasSubscription checks whether an active subscription exists for the topic.
//
// Note: This checks only the exact topic string; there is no pattern matching.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.promoteLocked()
	_, exists := c.active[topic]
	return exists
}
