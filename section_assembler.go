package astisdt

// sectionAssembler rebuilds the sections carried by the packets of a single PID.
// Sections may start anywhere in a payload, span several packets and several of them may be
// packed in one payload.
// Page: 59 | Chapter: 2.4.4.1 | Link: https://www.itu.int/rec/T-REC-H.222.0
type sectionAssembler struct {
	buf     []byte // Bytes of sections not complete yet, it always starts with a table id
	hasLast bool
	lastCC  uint8
	synced  bool // Whether buf is aligned on a section start
}

func newSectionAssembler() *sectionAssembler {
	return &sectionAssembler{}
}

// reset drops the bytes gathered so far. buf may be shared with sections already returned so it
// can't be reused.
func (a *sectionAssembler) reset() {
	a.buf = nil
	a.synced = false
}

// add adds a packet and returns the sections it completes. Returned sections don't point to the
// packet.
func (a *sectionAssembler) add(p *Packet) (ss [][]byte, discontinuity bool) {
	// Throw away packet if error indicator
	if p.Header.TransportErrorIndicator {
		a.reset()
		a.hasLast = false
		return
	}

	// Packets without payload don't increment the continuity counter
	if !p.Header.HasPayload || p.Header.TransportScramblingControl != ScramblingControlNotScrambled {
		return
	}

	// Throw away packet if it's the same as the previous one
	if a.hasLast && !p.DiscontinuityIndicator && p.Header.ContinuityCounter == a.lastCC {
		return
	}

	// Empty buffer if we detect a discontinuity
	if a.hasLast && !p.DiscontinuityIndicator && p.Header.ContinuityCounter != (a.lastCC+1)%16 {
		discontinuity = a.synced
		a.reset()
	}
	a.hasLast = true
	a.lastCC = p.Header.ContinuityCounter

	// No new section starts in this packet
	payload := p.Payload
	if !p.Header.PayloadUnitStartIndicator {
		if a.synced {
			a.buf = append(a.buf, payload...)
			ss = a.split()
		}
		return
	}

	// Get pointer field
	if len(payload) == 0 {
		a.reset()
		return
	}
	pointer := int(payload[0])
	payload = payload[1:]
	if pointer > len(payload) {
		a.reset()
		return
	}

	// End of the previous section
	if a.synced {
		a.buf = append(a.buf, payload[:pointer]...)
		ss = a.split()
	}

	// A new section starts
	a.reset()
	a.synced = true
	a.buf = append(a.buf, payload[pointer:]...)
	ss = append(ss, a.split()...)
	return
}

// split extracts the complete sections at the start of the buffer
func (a *sectionAssembler) split() (ss [][]byte) {
	for len(a.buf) > 0 {
		// Stuffing: the rest of the payload is not part of any section
		if PSITableID(a.buf[0]) == PSITableIDNull {
			a.reset()
			return
		}

		// Section header is not complete yet
		if len(a.buf) < sectionHeaderLength {
			return
		}

		// Section is not complete yet
		l := sectionHeaderLength + (int(a.buf[1]&0xf)<<8 | int(a.buf[2]))
		if len(a.buf) < l {
			return
		}

		// Split
		ss = append(ss, a.buf[:l:l])
		a.buf = a.buf[l:]
	}
	return
}
