// Package mqtt provides the broker session for the whole-house audio gateway.
//
// This package manages:
//   - A single connection to the broker for the life of the process
//   - Subscription correlation: a handler becomes routable only after its
//     SUBACK is observed, and dispatch is by exact topic match
//   - Publish helpers with acknowledgement timeouts (raw, string, JSON)
//   - Last Will and Testament on the connected topic for offline detection
//   - Topic builders for the gateway's topic scheme
//
// # Architecture
//
// The gateway sits between MQTT and the amplifier's serial protocol. This
// package owns the MQTT half: other packages hand it exact topics and
// handlers, and it guarantees ordered, at-most-once dispatch per message.
//
//	MQTT Broker ↔ mqtt.Client ↔ bridge worker ↔ amplifier driver
//
// # Subscription lifecycle
//
// Subscribe drives each registration through Requested (queued, packet
// sent), Pending (awaiting SUBACK) and Active (in the routing table).
// Messages arriving before the acknowledgement is processed are logged and
// dropped; messages after it are delivered exactly once. There is no
// unsubscribe: subscriptions live until the process exits, and Unsubscribe
// fails loudly to keep that contract visible.
//
// There is also no reconnect logic. The correlation state is only
// meaningful for the connection it was built on, so a connection loss is
// reported once via ConnectionLost() and the process is expected to exit.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.ZoneSet("12", "volume"), mqtt.QoSAtLeastOnce,
//	    func(topic string, payload []byte) error {
//	        return enqueueChange(topic, payload)
//	    })
//
//	// Retained state update
//	client.Publish(topics.ZoneStatus("12", "volume"), []byte("22"), mqtt.QoSAtLeastOnce, true)
//
// # Security Considerations
//
//   - TLS is driven by the broker URL scheme (ssl:// or tls://)
//   - Credentials are passed through to the broker's ACL; never log them
//   - Payloads are not encrypted beyond TLS transport
package mqtt
