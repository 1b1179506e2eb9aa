package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial connection attempt fails
	// or times out. The session makes no reconnection attempts: a lost
	// connection is terminal for the process.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish operation fails or its
	// acknowledgement does not arrive in time.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails or its
	// acknowledgement does not arrive in time.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeUnsupported is returned by Unsubscribe unconditionally.
	// Subscriptions live for the whole process; there is no removal state
	// transition, and pretending otherwise would hide a programming error.
	ErrUnsubscribeUnsupported = errors.New("mqtt: unsubscribe is not supported")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty or invalid topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrPayloadDecode is returned by decoded subscription handlers when an
	// inbound payload is not valid UTF-8 or fails structured decoding.
	ErrPayloadDecode = errors.New("mqtt: payload decode failed")
)
