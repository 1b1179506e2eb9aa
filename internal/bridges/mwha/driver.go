package mwha

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/logging"
)

// endOfFrame terminates every unit the device sends: the command echo
// and each response line.
var endOfFrame = []byte("\r\n#")

// commandErrorBody is the frame body the device sends for a command
// it rejects, leading CRLF included.
var commandErrorBody = []byte("\r\nCommand Error.")

// Driver speaks the amplifier's command protocol over a Port.
//
// The device echoes every command before answering, which gives a
// cheap framing check: a mismatched echo means the link lost its
// command/response boundary and must be resynchronised before any
// further traffic.
//
// A Driver is not safe for concurrent use. After startup the
// synchronisation worker is its only caller.
type Driver struct {
	port   Port
	logger *logging.Logger
}

// NewDriver wraps an open port and resynchronises the link so the
// first real command starts from a clean boundary.
//
// Returns:
//   - *Driver: Ready driver
//   - error: Resync failure; the caller keeps ownership of the port
func NewDriver(port Port, logger *logging.Logger) (*Driver, error) {
	d := &Driver{port: port, logger: logger}
	if err := d.Resync(); err != nil {
		return nil, fmt.Errorf("initial resync: %w", err)
	}
	return d, nil
}

// Resync re-establishes the command/response boundary.
//
// A junk command with a random marker is sent; the stream is then
// scanned byte by byte until the device's echo of that marker and the
// matching "Command Error." response appear, discarding whatever
// stale bytes preceded them.
func (d *Driver) Resync() error {
	marker := resyncMarker()
	d.logDebug("resynchronising link", "marker", marker)

	expect := []byte(marker + "\r\n#\r\nCommand Error.\r\n#")

	if _, err := d.port.Write([]byte(marker + "\r")); err != nil {
		return fmt.Errorf("write resync marker: %w", err)
	}

	var buf []byte
	b := make([]byte, 1)
	for {
		n, err := d.port.Read(b)
		if err != nil {
			return fmt.Errorf("resync read: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("resync read: %w", ErrReadTimeout)
		}
		buf = append(buf, b[0])
		if bytes.HasSuffix(buf, expect) {
			return nil
		}
	}
}

// resyncMarker builds a junk command no real traffic can contain, so
// its echo unambiguously locates our own command in the stream.
func resyncMarker() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "resync" + suffix[:8]
}

// readFrame accumulates bytes until the end-of-frame marker and
// returns the body with the marker stripped. The device's literal
// "Command Error." body is surfaced as ErrCommandError.
func (d *Driver) readFrame() ([]byte, error) {
	var buf []byte
	b := make([]byte, 1)
	for {
		n, err := d.port.Read(b)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrReadTimeout
		}
		buf = append(buf, b[0])
		if bytes.HasSuffix(buf, endOfFrame) {
			body := buf[:len(buf)-len(endOfFrame)]
			if bytes.Equal(body, commandErrorBody) {
				return nil, ErrCommandError
			}
			return body, nil
		}
	}
}

// exec writes one command, verifies the device's echo and reads the
// expected number of response frames.
//
// On an echo mismatch exec fails without reading further; the stream
// position is unknown and only a resync can recover it.
func (d *Driver) exec(cmd string, responses int) ([][]byte, error) {
	d.logDebug("sending command", "command", cmd)

	if _, err := d.port.Write(append([]byte(cmd), '\r')); err != nil {
		return nil, fmt.Errorf("write %q: %w", cmd, err)
	}

	echo, err := d.readFrame()
	if err != nil {
		return nil, fmt.Errorf("read echo of %q: %w", cmd, err)
	}
	if !bytes.Equal(echo, []byte(cmd)) {
		return nil, fmt.Errorf("%w: sent %q, device echoed %q", ErrEchoMismatch, cmd, echo)
	}

	frames := make([][]byte, 0, responses)
	for i := 0; i < responses; i++ {
		frame, err := d.readFrame()
		if err != nil {
			return nil, fmt.Errorf("read response %d/%d of %q: %w", i+1, responses, cmd, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// ZoneEnquiry reads the full attribute set of every zone the id
// covers: one zone, a whole amp (six zones at once), or the whole
// chain amp by amp.
//
// Returns:
//   - []ZoneStatus: One status per zone, in device order
//   - error: Transport, framing or parse failure; the first bad frame
//     fails the whole call
func (d *Driver) ZoneEnquiry(id ZoneID) ([]ZoneStatus, error) {
	if id.IsSystem() {
		statuses := make([]ZoneStatus, 0, MaxAmps*MaxZonesPerAmp)
		for _, amp := range id.Amps() {
			sts, err := d.ZoneEnquiry(amp)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, sts...)
		}
		return statuses, nil
	}

	responses := 1
	if id.IsAmp() {
		responses = MaxZonesPerAmp
	}

	frames, err := d.exec("?"+id.String(), responses)
	if err != nil {
		return nil, fmt.Errorf("enquire zone %s: %w", id, err)
	}

	statuses := make([]ZoneStatus, 0, len(frames))
	for _, frame := range frames {
		st, err := parseZoneStatus(frame)
		if err != nil {
			return nil, fmt.Errorf("enquire zone %s: %w", id, err)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// parseZoneStatus decodes one enquiry response: '>' followed by
// eleven two-digit decimal pairs, the zone id first and then the ten
// attributes in wire order.
func parseZoneStatus(frame []byte) (ZoneStatus, error) {
	if len(frame) == 0 || frame[0] != '>' {
		return ZoneStatus{}, fmt.Errorf("%w: missing '>' prefix in %q", ErrMalformedResponse, frame)
	}

	digits := frame[1:]
	wantDigits := 2 * (NumAttributes + 1)
	if len(digits) != wantDigits {
		return ZoneStatus{}, fmt.Errorf("%w: expected %d digits, got %d in %q", ErrMalformedResponse, wantDigits, len(digits), frame)
	}

	values := make([]uint8, 0, NumAttributes+1)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 10, 8)
		if err != nil {
			return ZoneStatus{}, fmt.Errorf("%w: %q is not a decimal pair in %q", ErrMalformedResponse, digits[i:i+2], frame)
		}
		values = append(values, uint8(v))
	}

	zone, err := DecodeZoneID(values[0])
	if err != nil {
		return ZoneStatus{}, fmt.Errorf("response zone id: %w", err)
	}

	st := ZoneStatus{Zone: zone}
	for i, k := range AttributeKinds() {
		st.Attributes[k] = Attribute{Kind: k, Value: values[i+1]}
	}
	return st, nil
}

// SetZoneAttribute writes one attribute value to every zone the id
// covers. System fans out as one broadcast command per amp (zone
// digit 0), matching how the device applies chain-wide settings.
//
// Returns:
//   - error: ErrValueOutOfRange, ErrReadOnlyAttribute, or a
//     transport/framing failure
func (d *Driver) SetZoneAttribute(id ZoneID, attr Attribute) error {
	if err := attr.Validate(); err != nil {
		return err
	}
	code := attr.Kind.commandCode()
	if code == "" {
		return fmt.Errorf("%w: %s", ErrReadOnlyAttribute, attr.Kind)
	}

	if id.IsSystem() {
		for _, amp := range id.Amps() {
			if err := d.SetZoneAttribute(amp, attr); err != nil {
				return err
			}
		}
		return nil
	}

	cmd := fmt.Sprintf("<%s%s%02d", id, code, attr.Value)
	if _, err := d.exec(cmd, 0); err != nil {
		return fmt.Errorf("set %s on zone %s: %w", attr, id, err)
	}

	d.logDebug("attribute written", "zone", id.String(), "attribute", attr.String())
	return nil
}

// Close releases the underlying port.
func (d *Driver) Close() error {
	return d.port.Close()
}

func (d *Driver) logDebug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
