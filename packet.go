package astisdt

import (
	"fmt"

	"github.com/asticode/go-astikit"
)

// Packet sizes
const (
	MpegTsPacketSize       = 188
	mpegTsPacketHeaderSize = 4
)

// Sync byte
const syncByte = '\x47'

// PIDs
const (
	PIDSDT  uint16 = 0x11 // Also carries the BAT
	PIDNull uint16 = 0x1fff
)

// Scrambling Controls
const (
	ScramblingControlNotScrambled         = 0
	ScramblingControlReservedForFutureUse = 1
	ScramblingControlScrambledWithEvenKey = 2
	ScramblingControlScrambledWithOddKey  = 3
)

// Packet represents a transport stream packet. Only what's needed to reassemble sections is
// parsed out of the adaptation field.
// https://en.wikipedia.org/wiki/MPEG_transport_stream
type Packet struct {
	DiscontinuityIndicator bool // Set if current TS packet is in a discontinuity state with respect to either the continuity counter or the program clock reference
	Header                 PacketHeader
	Payload                []byte // This is only the payload content
}

// PacketHeader represents a packet header
type PacketHeader struct {
	ContinuityCounter          uint8 // Sequence number of payload packets (0x00 to 0x0F) within each stream (except PID 8191)
	HasAdaptationField         bool
	HasPayload                 bool
	PayloadUnitStartIndicator  bool   // Set when a PES, PSI, or DVB-MIP packet begins immediately following the header.
	PID                        uint16 // Packet Identifier, describing the payload data.
	TransportErrorIndicator    bool   // Set when a demodulator can't correct errors from FEC data; indicating the packet is corrupt.
	TransportPriority          bool   // Set when the current packet has a higher priority than other packets with the same PID.
	TransportScramblingControl uint8
}

// parsePacket parses a packet. The payload points to the buffer.
func parsePacket(i *astikit.BytesIterator) (p *Packet, err error) {
	// Get next byte
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astisdt: getting next byte failed: %w", err)
		return
	}

	// Packet must start with a sync byte
	if b != syncByte {
		err = ErrPacketMustStartWithASyncByte
		return
	}

	// In case packet size is bigger than 188 bytes, we don't care for the first bytes
	i.Seek(i.Len() - MpegTsPacketSize + 1)

	// Get header
	var bs []byte
	if bs, err = i.NextBytesNoCopy(mpegTsPacketHeaderSize - 1); err != nil {
		err = fmt.Errorf("astisdt: fetching next bytes failed: %w", err)
		return
	}

	// Create packet
	p = &Packet{Header: parsePacketHeader(bs)}

	// Parse adaptation field
	if p.Header.HasAdaptationField {
		if p.DiscontinuityIndicator, err = parsePacketAdaptationField(i); err != nil {
			err = fmt.Errorf("astisdt: parsing packet adaptation field failed: %w", err)
			return
		}
	}

	// Build payload
	if p.Header.HasPayload {
		if p.Payload, err = i.NextBytesNoCopy(i.Len() - i.Offset()); err != nil {
			err = fmt.Errorf("astisdt: fetching payload failed: %w", err)
			return
		}
	}
	return
}

func parsePacketHeader(bs []byte) PacketHeader {
	return PacketHeader{
		ContinuityCounter:          bs[2] & 0xf,
		HasAdaptationField:         bs[2]&0x20 > 0,
		HasPayload:                 bs[2]&0x10 > 0,
		PayloadUnitStartIndicator:  bs[0]&0x40 > 0,
		PID:                        uint16(bs[0]&0x1f)<<8 | uint16(bs[1]),
		TransportErrorIndicator:    bs[0]&0x80 > 0,
		TransportPriority:          bs[0]&0x20 > 0,
		TransportScramblingControl: bs[2] >> 6 & 0x3,
	}
}

// parsePacketAdaptationField skips the adaptation field and returns its discontinuity indicator
func parsePacketAdaptationField(i *astikit.BytesIterator) (discontinuity bool, err error) {
	// Get length
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astisdt: fetching next byte failed: %w", err)
		return
	}
	l := int(b)
	if l == 0 {
		return
	}

	// Check length
	if left := i.Len() - i.Offset(); l > left {
		err = fmt.Errorf("astisdt: adaptation field length %d exceeds the %d byte(s) left: %w", l, left, ErrMalformedPacket)
		return
	}

	// Get flags
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astisdt: fetching next byte failed: %w", err)
		return
	}
	discontinuity = b&0x80 > 0

	// Skip the rest
	i.Skip(l - 1)
	return
}
