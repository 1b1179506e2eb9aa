package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with the gateway's subscription correlation
// and publish helpers.
//
// It owns a single broker session for the life of the process. Every inbound
// publish funnels through one default handler and is dispatched by exact
// topic match against the active subscription table; a subscription only
// enters that table once its SUBACK has been observed, so a handler is never
// invoked for a message that raced its own acknowledgement.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Registered handlers run sequentially on the session's dispatch thread
//     and must not block; a slow handler delays every later message.
type Client struct {
	paho   pahomqtt.Client
	topics Topics
	logger Logger

	// ackTimeout bounds publish/subscribe acknowledgement waits.
	ackTimeout time.Duration

	// pending holds subscriptions in send order until their acknowledgement
	// arrives; active maps exact topic strings to promoted handlers.
	subMu   sync.Mutex
	pending []*pendingSubscription
	active  map[string]MessageHandler

	connected bool
	connMu    sync.RWMutex

	// lost delivers the first connection-loss error; the session never
	// reconnects, so one value is all a consumer can act on.
	lost     chan error
	lostOnce sync.Once
}

// Logger is the subset of the logging package this client needs.
// A nil logger silently discards all client logging.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessageHandler is the callback signature for received messages.
//
// Handlers run synchronously on the session's dispatch thread in publish
// order. They must not block on device I/O; hand work to a queue instead.
//
// Parameters:
//   - topic: The topic the message was received on
//   - payload: The raw message payload
//
// Returns:
//   - error: Logged by the dispatcher; the message is dropped either way
type MessageHandler func(topic string, payload []byte) error

// pendingSubscription is a subscription whose SUBACK has not been observed.
// The token completes when the acknowledgement arrives.
type pendingSubscription struct {
	topic   string
	qos     byte
	handler MessageHandler
	token   pahomqtt.Token
}

// Connect establishes the single broker session for this process.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, credentials, TLS)
//  2. Registers the last will on the connected topic (DisconnectedPayload)
//  3. Installs the default inbound handler driving topic dispatch
//  4. Blocks until CONNACK, a connection error, or the connect timeout
//
// There is no reconnect logic: a later connection loss is logged and
// reported once on ConnectionLost(), and the process is expected to exit.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - logger: structured logger; may be nil
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the initial connection fails within the timeout
func Connect(cfg config.MQTTConfig, logger Logger) (*Client, error) {
	c := &Client{
		topics:     NewTopics(cfg.TopicBase),
		logger:     logger,
		ackTimeout: defaultAckTimeout,
		active:     make(map[string]MessageHandler),
		lost:       make(chan error, 1),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics)

	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(msg.Topic(), msg.Payload())
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: no acknowledgement from %s within %s",
			ErrConnectionFailed, cfg.Broker, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

// Topics returns the topic builders rooted at the configured base.
func (c *Client) Topics() Topics {
	return c.topics
}

// ConnectionLost delivers the error that terminated the broker session.
// At most one value is ever sent; the channel is never closed.
func (c *Client) ConnectionLost() <-chan error {
	return c.lost
}

// handleConnectionLost records the loss and reports it exactly once.
func (c *Client) handleConnectionLost(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.logError("broker connection lost", "error", err)

	c.lostOnce.Do(func() {
		c.lost <- err
	})
}

// dispatch routes one inbound message by exact topic match.
//
// The promotion sweep runs first so that a message delivered after its
// subscription's acknowledgement always finds the handler active, even when
// the goroutine that issued Subscribe has not woken yet. A message with no
// active handler is logged and dropped, never buffered.
func (c *Client) dispatch(topic string, payload []byte) {
	c.subMu.Lock()
	c.promoteLocked()
	handler := c.active[topic]
	c.subMu.Unlock()

	if handler == nil {
		c.logWarn("message on unrecognized topic dropped", "topic", topic)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logError("message handler panic recovered", "topic", topic, "panic", r)
		}
	}()

	if err := handler(topic, payload); err != nil {
		c.logWarn("message handler failed, message dropped", "topic", topic, "error", err)
	}
}

// promoteLocked moves acknowledged pending subscriptions into the active
// table. Callers must hold subMu.
//
// Entries whose token completed with an error are discarded here; the
// Subscribe call that created them reports the failure to its caller. An
// entry acknowledged while an older one is still pending is promoted anyway
// and logged as a correlation warning.
func (c *Client) promoteLocked() {
	remaining := c.pending[:0]
	for _, entry := range c.pending {
		if entry.token == nil {
			remaining = append(remaining, entry)
			continue
		}
		select {
		case <-entry.token.Done():
		default:
			remaining = append(remaining, entry)
			continue
		}
		if entry.token.Error() != nil {
			continue
		}
		if len(remaining) > 0 {
			c.logWarn("subscription acknowledged out of order",
				"topic", entry.topic,
				"still_pending", remaining[0].topic,
			)
		}
		c.active[entry.topic] = entry.handler
		c.logDebug("subscription active", "topic", entry.topic, "qos", entry.qos)
	}
	c.pending = remaining
}

// removePending drops a pending entry after its subscribe attempt failed.
func (c *Client) removePending(entry *pendingSubscription) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for i, e := range c.pending {
		if e == entry {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Publishes DisconnectedPayload (retained) so the connected topic
//     reflects a graceful shutdown rather than waiting on the will
//  2. Disconnects with a quiesce period for pending operations
//
// Returns:
//   - error: Always nil; a client that never connected is not an error
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.paho.Publish(c.topics.Connected(), QoSAtLeastOnce, true, []byte(DisconnectedPayload))
		token.WaitTimeout(c.ackTimeout)
	}

	c.paho.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.paho != nil && c.paho.IsConnected()
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Client) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
