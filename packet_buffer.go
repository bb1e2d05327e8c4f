package astisdt

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astikit"
)

// Packet sizes the auto detection looks for: plain, with a 4 bytes prefix and with 16 bytes of
// Reed-Solomon parity
var packetSizes = []int{MpegTsPacketSize, 192, 204}

// packetBuffer reads packets of a fixed size
type packetBuffer struct {
	b          []byte
	packetSize int
	r          *bufio.Reader
}

// newPacketBuffer creates a new packet buffer. The packet size is auto detected when it is 0.
func newPacketBuffer(r io.Reader, packetSize int) (pb *packetBuffer, err error) {
	// Init
	pb = &packetBuffer{
		packetSize: packetSize,
		r:          bufio.NewReaderSize(r, 2*packetSizes[len(packetSizes)-1]+1),
	}

	// Packet size is not set
	if pb.packetSize == 0 {
		// Auto detect packet size
		if pb.packetSize, err = autoDetectPacketSize(pb.r); err != nil {
			err = fmt.Errorf("astisdt: auto detecting packet size failed: %w", err)
			return
		}
	}
	pb.b = make([]byte, pb.packetSize)
	return
}

// autoDetectPacketSize looks for the packet size based on the first bytes without consuming them.
// Packet size is the distance between 2 sync bytes, the first one being the first byte of the
// reader. A single packet is assumed to be a plain 188 bytes one.
func autoDetectPacketSize(r *bufio.Reader) (packetSize int, err error) {
	// Peek first bytes
	l := packetSizes[len(packetSizes)-1] + 1
	var b []byte
	if b, err = r.Peek(l); err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("astisdt: peeking first %d bytes failed: %w", l, err)
		return
	}
	err = nil

	// Packet must start with a sync byte
	if len(b) == 0 || b[0] != syncByte {
		err = ErrPacketMustStartWithASyncByte
		return
	}

	// Look for sync bytes
	for _, s := range packetSizes {
		if len(b) > s && b[s] == syncByte {
			packetSize = s
			return
		}
	}

	// Single packet
	if len(b) == MpegTsPacketSize {
		packetSize = MpegTsPacketSize
		return
	}
	err = fmt.Errorf("astisdt: no sync byte found at any of the %v offsets", packetSizes)
	return
}

// next fetches the next packet from the buffer. The packet is only valid until the next call.
func (pb *packetBuffer) next() (p *Packet, err error) {
	// Read
	if _, err = io.ReadFull(pb.r, pb.b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrNoMorePackets
		} else {
			err = fmt.Errorf("astisdt: reading %d bytes failed: %w", pb.packetSize, err)
		}
		return
	}

	// Reed-Solomon parity bytes are trailing
	bs := pb.b
	if pb.packetSize == 204 {
		bs = bs[:MpegTsPacketSize]
	}

	// Parse packet
	if p, err = parsePacket(astikit.NewBytesIterator(bs)); err != nil {
		err = fmt.Errorf("astisdt: building packet failed: %w", err)
		return
	}
	return
}

// rewind rewinds the reader if possible, otherwise n = -1
func rewind(r io.Reader) (n int64, err error) {
	if s, ok := r.(io.Seeker); ok {
		if n, err = s.Seek(0, io.SeekStart); err != nil {
			err = fmt.Errorf("astisdt: seeking to 0 failed: %w", err)
			return
		}
		return
	}
	n = -1
	return
}
