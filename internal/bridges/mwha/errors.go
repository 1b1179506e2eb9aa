package mwha

import "errors"

// Addressing errors.
var (
	// ErrAmpOutOfRange indicates an amplifier number outside the chain limits.
	ErrAmpOutOfRange = errors.New("mwha: amp number out of range")

	// ErrZoneOutOfRange indicates a zone number outside the per-amp limits.
	ErrZoneOutOfRange = errors.New("mwha: zone number out of range")

	// ErrInvalidZoneID indicates a zone id string that is not decimal.
	ErrInvalidZoneID = errors.New("mwha: invalid zone id")

	// ErrInvalidSourceID indicates a source id outside 1-6 or not decimal.
	ErrInvalidSourceID = errors.New("mwha: invalid source id")
)

// Attribute errors.
var (
	// ErrValueOutOfRange indicates an attribute value the device would reject.
	ErrValueOutOfRange = errors.New("mwha: attribute value out of range")

	// ErrReadOnlyAttribute indicates a set attempt on a report-only attribute.
	ErrReadOnlyAttribute = errors.New("mwha: attribute is read-only")
)

// Protocol errors.
var (
	// ErrEchoMismatch indicates the device echoed different bytes than were
	// sent. The link is desynchronised and needs a resync before further use.
	ErrEchoMismatch = errors.New("mwha: command echo mismatch")

	// ErrCommandError indicates the device answered with its literal
	// "Command Error." frame.
	ErrCommandError = errors.New("mwha: device reported command error")

	// ErrMalformedResponse indicates a response frame that does not parse.
	ErrMalformedResponse = errors.New("mwha: malformed response frame")
)

// Transport errors.
var (
	// ErrReadTimeout indicates no byte arrived within the configured
	// read timeout.
	ErrReadTimeout = errors.New("mwha: read timed out")

	// ErrBaudDetectFailed indicates no candidate baud rate produced a
	// clean probe echo.
	ErrBaudDetectFailed = errors.New("mwha: baud rate detection failed")

	// ErrUnsupportedBaud indicates a rate the device does not speak.
	ErrUnsupportedBaud = errors.New("mwha: unsupported baud rate")
)

// Bridge errors.
var (
	// ErrInvalidOptions indicates missing or inconsistent bridge options.
	ErrInvalidOptions = errors.New("mwha: invalid bridge options")
)
