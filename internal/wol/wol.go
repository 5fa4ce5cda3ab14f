// Package wol sends Wake-on-LAN magic packets over UDP broadcast.
package wol

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"pv_informant/internal/logger"
	"pv_informant/internal/models"
)

const (
	DefaultBroadcast = "255.255.255.255"
	DefaultPort      = 9
	DefaultPacing    = 10 * time.Millisecond

	packetLen = 6 + 16*6
)

// BuildPacket returns the 102-byte magic packet for mac: six 0xFF bytes
// followed by the 6-byte hardware address repeated 16 times.
func BuildPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil || len(hw) != 6 {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidAddress, mac)
	}
	pkt := make([]byte, 0, packetLen)
	for range 6 {
		pkt = append(pkt, 0xFF)
	}
	for range 16 {
		pkt = append(pkt, hw...)
	}
	return pkt, nil
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Sender delivers magic packets to a broadcast address. Consecutive packets
// are spaced by the pacing interval so a burst of wakes does not flood the
// segment.
type Sender struct {
	addr   string
	pacing time.Duration
	dial   dialFunc
	log    *logger.Logger

	mu   sync.Mutex
	last time.Time
}

// NewSender builds a sender for broadcast:port. Zero values fall back to the
// defaults.
func NewSender(broadcast string, port int, pacing time.Duration, log *logger.Logger) *Sender {
	if broadcast == "" {
		broadcast = DefaultBroadcast
	}
	if port == 0 {
		port = DefaultPort
	}
	if log == nil {
		log = logger.Nop()
	}
	d := &net.Dialer{}
	return &Sender{
		addr:   net.JoinHostPort(broadcast, strconv.Itoa(port)),
		pacing: pacing,
		dial:   d.DialContext,
		log:    log,
	}
}

// SendWake sends one magic packet for address. Calls are serialized.
func (s *Sender) SendWake(ctx context.Context, address string) error {
	pkt, err := BuildPacket(address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return err
	}
	defer func() { s.last = time.Now() }()

	conn, err := s.dial(ctx, "udp", s.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	n, err := conn.Write(pkt)
	if err != nil {
		return fmt.Errorf("write magic packet to %s: %w", s.addr, err)
	}
	if n != len(pkt) {
		return fmt.Errorf("short write to %s: %d of %d bytes", s.addr, n, len(pkt))
	}

	s.log.Debugw("magic_packet_sent", "address", address, "target", s.addr)
	return nil
}

func (s *Sender) wait(ctx context.Context) error {
	if s.pacing <= 0 || s.last.IsZero() {
		return ctx.Err()
	}
	remaining := s.pacing - time.Since(s.last)
	if remaining <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
