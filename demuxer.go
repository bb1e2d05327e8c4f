package astisdt

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astikit"
)

// Demuxer extracts the sections carried by a single PID of a transport stream, SDT's PID by
// default. Sections are returned whole, headers and CRC32 included, ready for a SectionFilter.
// https://en.wikipedia.org/wiki/MPEG_transport_stream
// http://seidl.cs.vsb.cz/download/dvb/DVB_Poster.pdf
type Demuxer struct {
	a             *sectionAssembler
	ctx           context.Context
	l             astikit.CompleteLogger
	optPacketSize int
	packetBuffer  *packetBuffer
	pid           uint16
	r             io.Reader
	sections      [][]byte
}

// NewDemuxer creates a new demuxer based on a reader
func NewDemuxer(ctx context.Context, r io.Reader, opts ...func(*Demuxer)) (d *Demuxer) {
	// Init
	d = &Demuxer{
		a:   newSectionAssembler(),
		ctx: ctx,
		l:   newLogger(nil),
		pid: PIDSDT,
		r:   r,
	}

	// Apply options
	for _, opt := range opts {
		opt(d)
	}
	return
}

// DemuxerOptLogger returns the option to set the logger
func DemuxerOptLogger(l astikit.StdLogger) func(*Demuxer) {
	return func(d *Demuxer) {
		d.l = newLogger(l)
	}
}

// DemuxerOptPacketSize returns the option to set the packet size. It is auto detected otherwise.
func DemuxerOptPacketSize(packetSize int) func(*Demuxer) {
	return func(d *Demuxer) {
		d.optPacketSize = packetSize
	}
}

// DemuxerOptPID returns the option to set the PID sections are extracted from
func DemuxerOptPID(pid uint16) func(*Demuxer) {
	return func(d *Demuxer) {
		d.pid = pid
	}
}

// NextPacket retrieves the next packet. It is only valid until the next call.
func (dmx *Demuxer) NextPacket() (p *Packet, err error) {
	// Check ctx error
	if err = dmx.ctx.Err(); err != nil {
		return
	}

	// Create packet buffer if not exists
	if dmx.packetBuffer == nil {
		if dmx.packetBuffer, err = newPacketBuffer(dmx.r, dmx.optPacketSize); err != nil {
			err = fmt.Errorf("astisdt: creating packet buffer failed: %w", err)
			return
		}
	}

	// Fetch next packet from buffer
	if p, err = dmx.packetBuffer.next(); err != nil {
		if !errors.Is(err, ErrNoMorePackets) {
			err = fmt.Errorf("astisdt: fetching next packet from buffer failed: %w", err)
		}
		return
	}
	return
}

// NextSection retrieves the next complete section of the PID. ErrNoMorePackets is returned once
// the reader is exhausted. Sections left incomplete are dropped.
func (dmx *Demuxer) NextSection() (s []byte, err error) {
	for {
		// Check sections buffer
		if len(dmx.sections) > 0 {
			s = dmx.sections[0]
			dmx.sections = dmx.sections[1:]
			return
		}

		// Get next packet
		var p *Packet
		if p, err = dmx.NextPacket(); err != nil {
			if !errors.Is(err, ErrNoMorePackets) {
				err = fmt.Errorf("astisdt: fetching next packet failed: %w", err)
			}
			return
		}

		// Other PID
		if p.Header.PID != dmx.pid {
			continue
		}

		// Add packet
		var discontinuity bool
		dmx.sections, discontinuity = dmx.a.add(p)
		if discontinuity {
			dmx.l.Debugf("astisdt: continuity counter discontinuity on pid %d, dropping incomplete section", dmx.pid)
		}
	}
}

// Rewind rewinds the demuxer reader
func (dmx *Demuxer) Rewind() (n int64, err error) {
	dmx.a = newSectionAssembler()
	dmx.packetBuffer = nil
	dmx.sections = nil
	if n, err = rewind(dmx.r); err != nil {
		err = fmt.Errorf("astisdt: rewinding reader failed: %w", err)
		return
	}
	return
}
