package mqtt

import (
	"encoding/json"
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "mwha/status/zone/12/volume")
//   - payload: The message payload (bare JSON scalars for state topics, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Retained Messages:
//   - When true, broker stores the last message for each topic
//   - New subscribers immediately receive the retained message
//   - Use for state topics (zone attributes, connected, metadata)
//   - Don't use for commands
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	topic := client.Topics().ZoneStatus("12", "volume")
//	err := client.Publish(topic, []byte("22"), mqtt.QoSAtLeastOnce, true)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.paho.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(c.ackTimeout) {
		return fmt.Errorf("%w: no acknowledgement for %s within %s", ErrPublishFailed, topic, c.ackTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}

	return nil
}

// PublishString is a convenience method that publishes a string payload.
//
// This is equivalent to calling Publish with []byte(payload).
func (c *Client) PublishString(topic, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishJSON marshals value and publishes the resulting JSON payload.
//
// State topics carry bare scalars (true, 22, "Kitchen"), which is exactly
// what encoding/json produces for bools, numbers and strings.
func (c *Client) PublishJSON(topic string, value any, qos byte, retained bool) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encoding payload for %s: %w", ErrPublishFailed, topic, err)
	}
	return c.Publish(topic, payload, qos, retained)
}
