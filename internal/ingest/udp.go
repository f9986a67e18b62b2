package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/banshee-data/hillas.stream/internal/pipeline"
)

const (
	maxDatagram  = 65536
	readDeadline = 100 * time.Millisecond
)

// UDPSource receives one JSON event per datagram.
type UDPSource struct {
	dec  *Decoder
	conn *net.UDPConn
	buf  []byte
}

// ListenUDP binds address. rcvBuf sets the socket receive buffer when
// positive.
func ListenUDP(address string, rcvBuf int, dec *Decoder) (*UDPSource, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	if rcvBuf > 0 {
		if err := conn.SetReadBuffer(rcvBuf); err != nil {
			opsf("failed to set UDP receive buffer to %d: %v", rcvBuf, err)
		}
	}
	diagf("UDP source listening on %s", conn.LocalAddr())
	return &UDPSource{dec: dec, conn: conn, buf: make([]byte, maxDatagram)}, nil
}

// Addr returns the bound address.
func (s *UDPSource) Addr() net.Addr { return s.conn.LocalAddr() }

// Close releases the socket. A subsequent Next returns io.EOF.
func (s *UDPSource) Close() error { return s.conn.Close() }

// Next implements pipeline.Source. It blocks until a valid event arrives,
// ctx is done or the socket is closed.
func (s *UDPSource) Next(ctx context.Context) (pipeline.RawEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pipeline.RawEvent{}, err
		}
		s.conn.SetReadDeadline(time.Now().Add(readDeadline))

		n, from, err := s.conn.ReadFromUDP(s.buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return pipeline.RawEvent{}, io.EOF
			}
			return pipeline.RawEvent{}, fmt.Errorf("UDP read: %w", err)
		}

		ev, err := s.dec.Decode(s.buf[:n])
		if err != nil {
			opsf("datagram from %v skipped: %v", from, err)
			continue
		}
		tracef("datagram from %v: event %d", from, ev.EventID)
		return ev, nil
	}
}
