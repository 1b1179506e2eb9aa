package mqtt

import (
	"crypto/tls"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for the initial CONNACK.
	defaultConnectTimeout = 10 * time.Second

	// defaultAckTimeout is the maximum time to wait for publish and subscribe
	// acknowledgements.
	defaultAckTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho MQTT options from gateway config.
//
// This configures:
//   - Broker URL (tcp://, ssl:// or ws:// as given in config)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Clean session mode
//   - TLS configuration for ssl:// and tls:// brokers
//
// Auto-reconnect and connect-retry are deliberately disabled. The session's
// correlation state (pending and active subscriptions) is only valid for the
// connection it was built on; rather than resubscribe behind the caller's
// back, a lost connection is surfaced and the process terminates.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	// Authentication (if credentials provided)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	// Connection timeout
	opts.SetConnectTimeout(defaultConnectTimeout)

	// Keepalive - broker sends PINGs to detect dead connections
	opts.SetKeepAlive(defaultKeepAlive)

	// Handlers must run in arrival order: subscription promotion relies on
	// acknowledgements being observed before the messages that follow them.
	opts.SetOrderMatters(true)

	if strings.HasPrefix(cfg.Broker, "ssl://") || strings.HasPrefix(cfg.Broker, "tls://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The will is published by the broker if the client disconnects unexpectedly
// (crash, network failure, etc.), flipping the retained connected topic to
// DisconnectedPayload so consumers see the gateway go dark.
//
// Topic: {base}connected
// QoS: 1 (guaranteed delivery)
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics) {
	opts.SetWill(topics.Connected(), DisconnectedPayload, QoSAtLeastOnce, true)
}
