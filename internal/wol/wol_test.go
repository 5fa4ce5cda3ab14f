package wol

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"pv_informant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPacket(t *testing.T) {
	pkt, err := BuildPacket("AA-BB-CC-DD-EE-FF")
	require.NoError(t, err)
	require.Len(t, pkt, 102)

	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), pkt[:6])
	mac := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	for i := range 16 {
		off := 6 + i*6
		assert.Equal(t, mac, pkt[off:off+6], "repetition %d", i)
	}
}

func TestBuildPacket_RejectsBadAddress(t *testing.T) {
	for _, in := range []string{"", "zz:zz:zz:zz:zz:zz", "00:00:5e:00:53:01:02:03"} {
		_, err := BuildPacket(in)
		assert.ErrorIs(t, err, models.ErrInvalidAddress, in)
	}
}

func listenUDP(t *testing.T) (net.PacketConn, int) {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return pc, pc.LocalAddr().(*net.UDPAddr).Port
}

func TestSender_DeliversPacket(t *testing.T) {
	pc, port := listenUDP(t)
	s := NewSender("127.0.0.1", port, 0, nil)

	require.NoError(t, s.SendWake(context.Background(), "aa:bb:cc:dd:ee:ff"))

	buf := make([]byte, 256)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)

	want, _ := BuildPacket("aa:bb:cc:dd:ee:ff")
	assert.Equal(t, want, buf[:n])
}

func TestSender_PacesConsecutivePackets(t *testing.T) {
	_, port := listenUDP(t)
	const pacing = 40 * time.Millisecond
	s := NewSender("127.0.0.1", port, pacing, nil)

	start := time.Now()
	for range 3 {
		require.NoError(t, s.SendWake(context.Background(), "aa:bb:cc:dd:ee:ff"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 2*pacing)
}

func TestSender_CanceledWhileWaiting(t *testing.T) {
	_, port := listenUDP(t)
	s := NewSender("127.0.0.1", port, time.Hour, nil)
	require.NoError(t, s.SendWake(context.Background(), "aa:bb:cc:dd:ee:ff"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.SendWake(ctx, "aa:bb:cc:dd:ee:ff")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSender_DialError(t *testing.T) {
	s := NewSender("", 0, 0, nil)
	assert.Equal(t, "255.255.255.255:9", s.addr)

	boom := errors.New("network unreachable")
	s.dial = func(context.Context, string, string) (net.Conn, error) { return nil, boom }

	err := s.SendWake(context.Background(), "aa:bb:cc:dd:ee:ff")
	assert.ErrorIs(t, err, boom)
}

func TestSender_InvalidAddressSendsNothing(t *testing.T) {
	s := NewSender("127.0.0.1", 9, 0, nil)
	called := false
	s.dial = func(context.Context, string, string) (net.Conn, error) {
		called = true
		return nil, errors.New("unexpected")
	}
	err := s.SendWake(context.Background(), "not-a-mac")
	assert.ErrorIs(t, err, models.ErrInvalidAddress)
	assert.False(t, called)
}
