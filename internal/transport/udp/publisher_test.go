// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"sculptor/internal/meter"
	"sculptor/internal/monitor"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testFrame(seq uint32) monitor.Frame {
	return monitor.Frame{
		Seq:       seq,
		Left:      meter.Reading{Level: 0.5, Peak: 0.75},
		Right:     meter.Reading{Level: 0.25, Peak: 0.5},
		Placement: meter.Placement{Position: 0.33, Intensity: 0.75},
	}
}

func TestPackDecode(t *testing.T) {
	p := &Publisher{packetBuffer: new(bytes.Buffer)}
	now := time.Unix(1700000000, 123)
	values := testFrame(1).Values()

	packet := p.pack(42, now, values)
	if len(packet) != headerSize+6*4 {
		t.Fatalf("packet length = %d, want %d", len(packet), headerSize+24)
	}

	got, err := Decode(packet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Seq != 42 || !got.Timestamp.Equal(now) {
		t.Errorf("header = %d %v", got.Seq, got.Timestamp)
	}
	if len(got.Values) != 6 {
		t.Fatalf("values = %v", got.Values)
	}
	for i, v := range values {
		if got.Values[i] != v {
			t.Errorf("value %d = %v, want %v", i, got.Values[i], v)
		}
	}
}

func TestDecodeShort(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Header only, values missing", []byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2}},
		{"Truncated header", []byte{0, 0, 0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrShortPacket) {
				t.Errorf("err = %v, want ErrShortPacket", err)
			}
		})
	}
}

func TestPublisherSendsLatestFrame(t *testing.T) {
	server := listen(t)

	sender, err := NewSender(server.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	pub, err := NewPublisher(5*time.Millisecond, sender)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	pub.Send(testFrame(1))
	pub.Send(testFrame(2))
	pub.Start()
	pub.Start() // no-op
	defer pub.Close()

	buf := make([]byte, 1500)
	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := server.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	got, err := Decode(buf[:n])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Seq != 1 {
		t.Errorf("first packet Seq = %d, want 1", got.Seq)
	}
	if got.Values[0] != 0.5 || got.Values[3] != 0.5 {
		t.Errorf("values = %v", got.Values)
	}

	// Nothing pending: no further packets.
	server.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, _, err := server.ReadFromUDP(buf); err == nil {
		t.Error("publisher resent a frame it had already sent")
	}
}

func TestPublisherStopClose(t *testing.T) {
	server := listen(t)
	sender, err := NewSender(server.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	pub, err := NewPublisher(0, sender)
	if err != nil {
		t.Fatal(err)
	}
	if pub.interval != DefaultInterval {
		t.Errorf("interval = %s, want %s", pub.interval, DefaultInterval)
	}

	if err := pub.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
	pub.Start()
	if err := pub.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Errorf("Stop after Close: %v", err)
	}
	if err := sender.Send([]byte{1}); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send after Close = %v, want ErrSenderClosed", err)
	}
}

func TestNewPublisherNilSender(t *testing.T) {
	if _, err := NewPublisher(time.Millisecond, nil); err == nil {
		t.Error("expected error for nil sender")
	}
}

func TestNewSenderBadAddress(t *testing.T) {
	if _, err := NewSender("not an address"); err == nil {
		t.Error("expected resolve error")
	}
}
