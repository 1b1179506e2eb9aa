package mwha

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/logging"
)

// BaudRates lists the rates the amplifier can negotiate, slowest
// first. Detection probes them in this order.
var BaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400}

// baudProbe is a harmless junk command; the device echoes it verbatim
// only when the local rate matches its own.
var baudProbe = []byte("baudrate detect\r")

// MaxBaudRate returns the fastest rate the device supports.
func MaxBaudRate() int {
	return BaudRates[len(BaudRates)-1]
}

func validBaud(rate int) error {
	for _, r := range BaudRates {
		if r == rate {
			return nil
		}
	}
	return fmt.Errorf("%w: %d is not one of %v", ErrUnsupportedBaud, rate, BaudRates)
}

// serialLink is the subset of the underlying serial port the
// negotiation logic touches; tests drive it without hardware.
type serialLink interface {
	io.ReadWriteCloser
	SetMode(mode *serial.Mode) error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// SerialPort owns the local serial device attached to the amplifier
// chain: 8N1 framing, read timeouts, baud negotiation and the
// optional rate restore when the port closes.
type SerialPort struct {
	link        serialLink
	logger      *logging.Logger
	readTimeout time.Duration
	baud        int
	restore     int // rate to restore on close, 0 = none
}

// SerialOptions configures OpenSerialPort.
type SerialOptions struct {
	// Device is the serial device path, e.g. /dev/ttyUSB0.
	Device string

	// Baud is the rate the device currently speaks; 0 probes all
	// supported rates.
	Baud int

	// AdjustBaud switches the device to this rate after detection;
	// 0 leaves the rate alone.
	AdjustBaud int

	// ResetBaud restores the pre-adjustment rate when the port
	// closes. Only meaningful together with AdjustBaud.
	ResetBaud bool

	// ReadTimeout bounds every single read.
	ReadTimeout time.Duration

	Logger *logging.Logger
}

// OpenSerialPort opens the device and negotiates the baud rate.
//
// With Baud == 0 the rate is detected by probing; an explicit rate is
// trusted as-is. A non-zero AdjustBaud different from the negotiated
// rate is applied with the device's rate-switch command.
//
// Returns:
//   - *SerialPort: Ready port at the negotiated rate
//   - error: Open, detection or adjustment failure
func OpenSerialPort(opts SerialOptions) (*SerialPort, error) {
	initial := opts.Baud
	if initial == 0 {
		initial = BaudRates[0]
	}
	if err := validBaud(initial); err != nil {
		return nil, err
	}

	link, err := serial.Open(opts.Device, serialMode(initial))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Device, err)
	}

	port := &SerialPort{
		link:        link,
		logger:      opts.Logger,
		readTimeout: opts.ReadTimeout,
		baud:        initial,
	}

	if err := port.setup(opts); err != nil {
		_ = link.Close()
		return nil, err
	}
	return port, nil
}

func serialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

func (p *SerialPort) setup(opts SerialOptions) error {
	if err := p.link.SetReadTimeout(p.readTimeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}

	if opts.Baud == 0 {
		if err := p.detectBaud(); err != nil {
			return err
		}
	}

	if opts.AdjustBaud != 0 && opts.AdjustBaud != p.baud {
		previous := p.baud
		if err := p.AdjustBaud(opts.AdjustBaud); err != nil {
			return err
		}
		if opts.ResetBaud {
			p.restore = previous
		}
	}
	return nil
}

// detectBaud probes each supported rate until the device echoes the
// probe cleanly. A read timeout or a garbled echo means "wrong rate,
// try the next one"; any other I/O error aborts detection.
func (p *SerialPort) detectBaud() error {
	for _, rate := range BaudRates {
		ok, err := p.probeBaud(rate)
		if err != nil {
			return fmt.Errorf("probe %d baud: %w", rate, err)
		}
		if ok {
			p.logDebug("baud rate detected", "baud", rate)
			return nil
		}
	}
	return fmt.Errorf("%w: no rate in %v echoed the probe", ErrBaudDetectFailed, BaudRates)
}

func (p *SerialPort) probeBaud(rate int) (bool, error) {
	if err := p.setRate(rate); err != nil {
		return false, err
	}
	if err := p.clearBuffers(); err != nil {
		return false, err
	}
	if _, err := p.link.Write(baudProbe); err != nil {
		return false, fmt.Errorf("write probe: %w", err)
	}

	echo := make([]byte, len(baudProbe))
	if _, err := io.ReadFull(p, echo); err != nil {
		if errors.Is(err, ErrReadTimeout) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(echo, baudProbe), nil
}

// AdjustBaud switches the device and then the local port to a new
// rate. The device switches the moment it sees the CR, so its echo
// arrives at the new rate and cannot be verified; buffers are cleared
// instead.
//
// Parameters:
//   - rate: Target rate, must be a supported one
func (p *SerialPort) AdjustBaud(rate int) error {
	if err := validBaud(rate); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(p.link, "<%d\r", rate); err != nil {
		return fmt.Errorf("write baud command: %w", err)
	}
	if err := p.setRate(rate); err != nil {
		return err
	}
	if err := p.clearBuffers(); err != nil {
		return err
	}

	p.logDebug("baud rate adjusted", "baud", rate)
	return nil
}

func (p *SerialPort) setRate(rate int) error {
	if err := p.link.SetMode(serialMode(rate)); err != nil {
		return fmt.Errorf("set %d baud: %w", rate, err)
	}
	p.baud = rate
	return nil
}

func (p *SerialPort) clearBuffers() error {
	if err := p.link.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	if err := p.link.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("reset output buffer: %w", err)
	}
	return nil
}

// Baud returns the rate the local port currently runs at.
func (p *SerialPort) Baud() int {
	return p.baud
}

// Read reads from the device. The underlying port signals an elapsed
// read timeout with a zero-byte read; that is normalised to
// ErrReadTimeout.
func (p *SerialPort) Read(buf []byte) (int, error) {
	n, err := p.link.Read(buf)
	if err != nil {
		return n, err
	}
	if n == 0 && len(buf) > 0 {
		return 0, fmt.Errorf("%w after %s", ErrReadTimeout, p.readTimeout)
	}
	return n, nil
}

// Write sends bytes to the device.
func (p *SerialPort) Write(buf []byte) (int, error) {
	return p.link.Write(buf)
}

// Close restores the pre-adjustment baud rate if one was recorded,
// then closes the device. A failed restore is logged and does not
// block the close.
func (p *SerialPort) Close() error {
	if p.restore != 0 && p.restore != p.baud {
		if err := p.AdjustBaud(p.restore); err != nil {
			p.logError("failed to restore baud rate", "baud", p.restore, "error", err)
		}
	}
	return p.link.Close()
}

func (p *SerialPort) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *SerialPort) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
