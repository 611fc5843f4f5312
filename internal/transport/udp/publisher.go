// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"sculptor/internal/log"
	"sculptor/internal/monitor"
	"sculptor/internal/transport"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 33 * time.Millisecond

/*
Packet layout (BigEndian):

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |  Value Count  |         Values          |
|      (uint32)     |   (int64, unix ns)    |    (uint16)   |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+

Values are monitor.Frame.Values(): left level, left peak, right level,
right peak, placement position, placement intensity. Receivers should read
Count values so fields can be appended later.
*/
const headerSize = 4 + 8 + 2

// ErrShortPacket is returned by Decode for truncated datagrams.
var ErrShortPacket = errors.New("short packet")

// Packet is a decoded datagram.
type Packet struct {
	Seq       uint32
	Timestamp time.Time
	Values    []float32
}

// Decode parses one datagram.
func Decode(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	p := Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))),
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	body := b[headerSize:]
	if len(body) < n*4 {
		return Packet{}, fmt.Errorf("%w: %d values announced, %d bytes present", ErrShortPacket, n, len(body))
	}
	p.Values = make([]float32, n)
	for i := range p.Values {
		p.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(body[i*4:]))
	}
	return p, nil
}

// Publisher sends the latest meter frame at a fixed rate, independent of
// how often frames arrive. Frames that arrive between sends overwrite each
// other.
type Publisher struct {
	sender   *Sender
	interval time.Duration
	log      log.Logger

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	frameMu sync.Mutex
	latest  monitor.Frame
	pending bool

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewPublisher returns a stopped publisher writing through sender.
func NewPublisher(interval time.Duration, sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("UDP sender cannot be nil")
	}

	l := log.With("transport/udp")
	if interval <= 0 {
		interval = DefaultInterval
		l.Warnf("invalid interval, defaulting to %s", interval)
	}

	return &Publisher{
		sender:       sender,
		interval:     interval,
		log:          l,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, headerSize+64)),
	}, nil
}

// Send stores frame for the next tick. Never blocks on the network.
func (p *Publisher) Send(frame monitor.Frame) error {
	p.frameMu.Lock()
	p.latest = frame
	p.pending = true
	p.frameMu.Unlock()
	return nil
}

// Start launches the send loop. Calling Start on a running publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.log.Warnf("Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.Debugf("publishing every %s", p.interval)
		for {
			select {
			case now := <-ticker.C:
				p.publish(now)
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop ends the send loop and waits for it. Safe to call more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// publish sends the pending frame, if any.
func (p *Publisher) publish(now time.Time) {
	p.frameMu.Lock()
	frame, pending := p.latest, p.pending
	p.pending = false
	p.frameMu.Unlock()

	if !pending {
		return
	}

	p.sequenceNum++
	packet := p.pack(p.sequenceNum, now, frame.Values())
	if err := p.sender.Send(packet); err != nil {
		p.log.Debugf("packet %d: %v", p.sequenceNum, err)
		return
	}
	p.log.Debugf("sent packet %d (%d bytes)", p.sequenceNum, len(packet))
}

// pack encodes one datagram into the reusable buffer.
func (p *Publisher) pack(seq uint32, now time.Time, values [6]float32) []byte {
	p.packetBuffer.Reset()
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(p.packetBuffer, binary.BigEndian, seq)
	_ = binary.Write(p.packetBuffer, binary.BigEndian, now.UnixNano())
	_ = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(values)))
	_ = binary.Write(p.packetBuffer, binary.BigEndian, values[:])
	return p.packetBuffer.Bytes()
}

// Close stops the loop and closes the sender.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ transport.Transport = (*Publisher)(nil)
