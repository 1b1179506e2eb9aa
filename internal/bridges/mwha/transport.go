package mwha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Port is the byte link the driver talks over. Implementations must
// report a read that produced no data within their configured timeout
// as ErrReadTimeout, so the driver can tell "no data yet" apart from
// a broken link.
type Port interface {
	io.ReadWriteCloser
}

// TCPPort reaches an amplifier chain exposed through a TCP serial
// bridge (ser2net or similar). Baud negotiation is not available over
// TCP; the bridge owns the physical port settings.
type TCPPort struct {
	conn        net.Conn
	readTimeout time.Duration
}

// DialTCP connects to a remote serial bridge.
//
// Parameters:
//   - ctx:         Cancels the dial
//   - address:     host:port of the bridge
//   - readTimeout: Per-read deadline
//
// Returns:
//   - *TCPPort: Connected port
//   - error: Dial failure
func DialTCP(ctx context.Context, address string, readTimeout time.Duration) (*TCPPort, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &TCPPort{conn: conn, readTimeout: readTimeout}, nil
}

// Read reads with the configured per-read deadline. Deadline expiry
// is reported as ErrReadTimeout.
func (p *TCPPort) Read(buf []byte) (int, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(p.readTimeout)); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}

	n, err := p.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, fmt.Errorf("%w after %s", ErrReadTimeout, p.readTimeout)
		}
		return n, err
	}
	return n, nil
}

// Write sends bytes to the bridge.
func (p *TCPPort) Write(buf []byte) (int, error) {
	return p.conn.Write(buf)
}

// Close closes the connection.
func (p *TCPPort) Close() error {
	return p.conn.Close()
}
