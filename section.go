package astisdt

import (
	"fmt"

	"github.com/asticode/go-astikit"
)

const (
	sectionHeaderLength       = 3
	sectionSyntaxHeaderLength = 5
	sectionCRC32Length        = 4
)

// SectionHeader represents a section header
type SectionHeader struct {
	PrivateBit             bool       // Other tables than PAT, PMT and CAT set this to 1
	SectionLength          uint16     // The number of bytes that follow for the syntax section (with CRC value) and table data
	SectionSyntaxIndicator bool       // A flag that indicates if the syntax section follows the section length
	TableID                PSITableID // Table Identifier, that defines the structure of the syntax section and other contained data
}

// SectionSyntaxHeader represents a section syntax header
type SectionSyntaxHeader struct {
	CurrentNextIndicator bool   // Indicates if data is current in effect or is for future use
	LastSectionNumber    uint8  // This indicates which table is the last table in the sequence of tables
	SectionNumber        uint8  // This is an index indicating which table this is in a related sequence of tables
	TableIDExtension     uint16 // The SDT uses this for the transport stream id
	VersionNumber        uint8  // Incremented when data is changed and wrapped around on overflow for values greater than 32
}

// SectionHook is called for every section handed to the router
type SectionHook func(h SectionHeader, sh SectionSyntaxHeader, crc32 uint32)

type sectionKey struct {
	sectionNumber    uint8
	tableID          PSITableID
	tableIDExtension uint16
}

// SectionFilter splits complete SDT sections (headers and CRC32 included), checks their CRC32,
// skips the ones already delivered and routes their body.
// It is not safe for concurrent use.
type SectionFilter struct {
	h        SectionHook
	l        astikit.CompleteLogger
	r        *Router
	skipCRC  bool
	versions map[sectionKey]uint8
}

// NewSectionFilter creates a new section filter
func NewSectionFilter(r *Router, opts ...func(*SectionFilter)) (f *SectionFilter) {
	// Init
	f = &SectionFilter{
		l:        newLogger(nil),
		r:        r,
		versions: make(map[sectionKey]uint8),
	}

	// Apply options
	for _, opt := range opts {
		opt(f)
	}
	return
}

// SectionFilterOptLogger returns the option to set the logger
func SectionFilterOptLogger(l astikit.StdLogger) func(*SectionFilter) {
	return func(f *SectionFilter) {
		f.l = newLogger(l)
	}
}

// SectionFilterOptSkipCRC32 returns the option to skip the CRC32 check
func SectionFilterOptSkipCRC32(skip bool) func(*SectionFilter) {
	return func(f *SectionFilter) {
		f.skipCRC = skip
	}
}

// SectionFilterOptHook returns the option to set a hook called for every routed section
func SectionFilterOptHook(h SectionHook) func(*SectionFilter) {
	return func(f *SectionFilter) {
		f.h = h
	}
}

// Reset forgets about delivered sections
func (f *SectionFilter) Reset() {
	f.versions = make(map[sectionKey]uint8)
}

// Consume processes every section found in bs until either its end or stuffing bytes are met
func (f *SectionFilter) Consume(bs []byte) (err error) {
	i := astikit.NewBytesIterator(bs)
	for i.HasBytesLeft() {
		var stop bool
		if stop, err = f.consumeSection(i); err != nil {
			err = fmt.Errorf("astisdt: consuming section at offset %d failed: %w", i.Offset(), err)
			return
		}
		if stop {
			break
		}
	}
	return
}

func (f *SectionFilter) consumeSection(i *astikit.BytesIterator) (stop bool, err error) {
	// Init
	offsetStart := i.Offset()

	// Get next byte
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astisdt: fetching next byte failed: %w", err)
		return
	}

	// Stuffing
	h := SectionHeader{TableID: PSITableID(b)}
	if h.TableID == PSITableIDNull {
		stop = true
		return
	}

	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytesNoCopy(2); err != nil {
		err = fmt.Errorf("astisdt: fetching next bytes failed: %w", err)
		return
	}

	// Section header
	h.SectionSyntaxIndicator = bs[0]&0x80 > 0
	h.PrivateBit = bs[0]&0x40 > 0
	h.SectionLength = uint16(bs[0]&0xf)<<8 | uint16(bs[1])

	// Check section length
	if int(h.SectionLength) < sectionSyntaxHeaderLength+sectionCRC32Length {
		err = fmt.Errorf("astisdt: section length %d is too small: %w", h.SectionLength, ErrMalformedSection)
		return
	}

	// Get section
	offsetEnd := i.Offset() + int(h.SectionLength)
	if offsetEnd > i.Len() {
		err = newNotEnoughDataError(offsetEnd-offsetStart, i.Len()-offsetStart)
		return
	}
	i.Seek(offsetStart)
	var section []byte
	if section, err = i.NextBytesNoCopy(offsetEnd - offsetStart); err != nil {
		err = fmt.Errorf("astisdt: fetching next bytes failed: %w", err)
		return
	}

	// Syntax header
	shb := section[sectionHeaderLength:]
	sh := SectionSyntaxHeader{
		CurrentNextIndicator: shb[2]&0x1 > 0,
		LastSectionNumber:    shb[4],
		SectionNumber:        shb[3],
		TableIDExtension:     uint16(shb[0])<<8 | uint16(shb[1]),
		VersionNumber:        shb[2] & 0x3f >> 1,
	}

	// CRC32
	crcOffset := len(section) - sectionCRC32Length
	crc := uint32(section[crcOffset])<<24 | uint32(section[crcOffset+1])<<16 | uint32(section[crcOffset+2])<<8 | uint32(section[crcOffset+3])
	if !f.skipCRC {
		if c := computeCRC32(section[:crcOffset]); c != crc {
			err = fmt.Errorf("astisdt: table CRC32 %x != computed CRC32 %x: %w", crc, c, ErrCRC32Mismatch)
			return
		}
	}

	// Sections not applicable yet are ignored
	if !sh.CurrentNextIndicator {
		return
	}

	// Dedup
	k := sectionKey{
		sectionNumber:    sh.SectionNumber,
		tableID:          h.TableID,
		tableIDExtension: sh.TableIDExtension,
	}
	if v, ok := f.versions[k]; ok && v == sh.VersionNumber {
		f.l.Debugf("astisdt: skipping already delivered section %d version %d of table 0x%.2x/%d", sh.SectionNumber, sh.VersionNumber, uint8(h.TableID), sh.TableIDExtension)
		return
	}
	f.versions[k] = sh.VersionNumber

	// Hook
	if f.h != nil {
		f.h(h, sh, crc)
	}

	// Route
	if err = f.r.Route(h.TableID, section[sectionHeaderLength+sectionSyntaxHeaderLength:crcOffset]); err != nil {
		err = fmt.Errorf("astisdt: routing section failed: %w", err)
		return
	}
	return
}
