package astisdt

import (
	"fmt"
	"strings"

	"github.com/asticode/go-astikit"
)

// RunningStatus represents a running status
// Page: 40 | Chapter: 5.2.3 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type RunningStatus uint8

// Running statuses. 6 and 7 are reserved for future use.
const (
	RunningStatusUndefined           RunningStatus = 0
	RunningStatusNotRunning          RunningStatus = 1
	RunningStatusStartsInAFewSeconds RunningStatus = 2
	RunningStatusPausing             RunningStatus = 3
	RunningStatusRunning             RunningStatus = 4
	RunningStatusServiceOffAir       RunningStatus = 5
)

// IsReserved checks whether the running status is reserved for future use
func (s RunningStatus) IsReserved() bool {
	return s > RunningStatusServiceOffAir
}

// String implements the Stringer interface
func (s RunningStatus) String() string {
	switch s {
	case RunningStatusUndefined:
		return "undefined"
	case RunningStatusNotRunning:
		return "not running"
	case RunningStatusStartsInAFewSeconds:
		return "starts in a few seconds"
	case RunningStatusPausing:
		return "pausing"
	case RunningStatusRunning:
		return "running"
	case RunningStatusServiceOffAir:
		return "service off-air"
	}
	return fmt.Sprintf("reserved (%d)", uint8(s))
}

// Service fixed fields length: service id (16), reserved (6), EIT schedule flag (1),
// EIT present/following flag (1), running status (3), free CA mode (1), descriptors loop length (12)
const sdtServiceHeaderLength = 5

// SDT section fixed fields length: original network id (16), reserved (8)
const sdtSectionHeaderLength = 3

// Service represents one entry of the SDT service loop. It points to the section buffer.
type Service struct {
	data []byte
}

// ServiceID returns the service id, which is the program number in the PMT
func (s *Service) ServiceID() uint16 {
	return uint16(s.data[0])<<8 | uint16(s.data[1])
}

// HasEITSchedule indicates that EIT schedule information for the service is present in the
// current TS
func (s *Service) HasEITSchedule() bool {
	return s.data[2]&0x2 > 0
}

// HasEITPresentFollowing indicates that EIT present/following information for the service is
// present in the current TS
func (s *Service) HasEITPresentFollowing() bool {
	return s.data[2]&0x1 > 0
}

// RunningStatus returns the running status. Only 3 bits are read so it is always <= 7.
func (s *Service) RunningStatus() RunningStatus {
	return RunningStatus(s.data[3] >> 5)
}

// HasFreeCAMode indicates that access to one or more streams may be controlled by a CA system
func (s *Service) HasFreeCAMode() bool {
	return s.data[3]&0x10 > 0
}

// DescriptorsLoopLength returns the declared length of the descriptors loop
func (s *Service) DescriptorsLoopLength() int {
	return serviceDescriptorsLoopLength(s.data)
}

// Descriptors returns an iterator over the service descriptors
func (s *Service) Descriptors() *DescriptorIterator {
	return newDescriptorIterator(s.data[sdtServiceHeaderLength : sdtServiceHeaderLength+s.DescriptorsLoopLength()])
}

// Bytes returns the raw bytes of the service entry
func (s *Service) Bytes() []byte {
	return s.data
}

// String implements the Stringer interface
func (s *Service) String() string {
	return fmt.Sprintf("service %d: eit schedule %v, eit present/following %v, running status %s, free CA mode %v, descriptors %s",
		s.ServiceID(), s.HasEITSchedule(), s.HasEITPresentFollowing(), s.RunningStatus(), s.HasFreeCAMode(),
		descriptorsToString(s.Descriptors()))
}

func serviceDescriptorsLoopLength(bs []byte) int {
	return int(bs[3]&0xf)<<8 | int(bs[4])
}

// ServiceIterator walks the SDT service loop without copying it.
// It can't be rewound: call SDTSection.Services again to iterate again.
type ServiceIterator struct {
	err error
	i   *astikit.BytesIterator
}

func newServiceIterator(bs []byte) *ServiceIterator {
	return &ServiceIterator{i: astikit.NewBytesIterator(bs)}
}

// Next returns the next service or ErrNoMoreServices once the loop is exhausted.
// A service entry overflowing the section makes the whole section malformed: the same error is
// then returned on every call.
func (it *ServiceIterator) Next() (s *Service, err error) {
	// Sticky error
	if it.err != nil {
		err = it.err
		return
	}

	// No more services
	if !it.i.HasBytesLeft() {
		err = ErrNoMoreServices
		return
	}

	// Check fixed fields
	offset := it.i.Offset()
	if left := it.i.Len() - offset; left < sdtServiceHeaderLength {
		it.err = fmt.Errorf("astisdt: %d byte(s) left, service header needs %d: %w", left, sdtServiceHeaderLength, ErrMalformedSection)
		err = it.err
		return
	}

	// Get fixed fields
	var bs []byte
	if bs, err = it.i.NextBytesNoCopy(sdtServiceHeaderLength); err != nil {
		err = fmt.Errorf("astisdt: fetching next bytes failed: %w", err)
		return
	}

	// Check descriptors loop
	size := sdtServiceHeaderLength + serviceDescriptorsLoopLength(bs)
	if left := it.i.Len() - offset; size > left {
		it.err = fmt.Errorf("astisdt: service size %d exceeds the %d byte(s) left: %w", size, left, ErrMalformedSection)
		err = it.err
		return
	}

	// Get service
	it.i.Seek(offset)
	if bs, err = it.i.NextBytesNoCopy(size); err != nil {
		err = fmt.Errorf("astisdt: fetching next bytes failed: %w", err)
		return
	}
	s = &Service{data: bs[:size:size]}
	return
}

// All returns every remaining service
func (it *ServiceIterator) All() (ss []*Service, err error) {
	for {
		var s *Service
		if s, err = it.Next(); err != nil {
			if err == ErrNoMoreServices {
				err = nil
			}
			return
		}
		ss = append(ss, s)
	}
}

// SDTSection represents the body of an SDT section, table header and CRC32 excluded.
// It points to the buffer it was created from: every view it returns is invalidated once the
// buffer is reused.
// Page: 39 | Chapter: 5.2.3 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type SDTSection struct {
	data []byte
}

// NewSDTSection creates a new SDT section view. Data must be more than 3 bytes long.
func NewSDTSection(data []byte) (*SDTSection, error) {
	if len(data) <= sdtSectionHeaderLength {
		return nil, fmt.Errorf("astisdt: section is %d byte(s) long, it must be more than %d: %w", len(data), sdtSectionHeaderLength, ErrSectionTooShort)
	}
	return &SDTSection{data: data}, nil
}

// Bytes returns the underlying buffer holding the section data
func (s *SDTSection) Bytes() []byte {
	return s.data
}

// OriginalNetworkID returns the network id of the originating delivery system
func (s *SDTSection) OriginalNetworkID() uint16 {
	return uint16(s.data[0])<<8 | uint16(s.data[1])
}

// Services returns a new iterator over the section services
func (s *SDTSection) Services() *ServiceIterator {
	return newServiceIterator(s.data[sdtSectionHeaderLength:])
}

// String implements the Stringer interface
func (s *SDTSection) String() string {
	var ss []string
	it := s.Services()
	for {
		sv, err := it.Next()
		if err != nil {
			if err != ErrNoMoreServices {
				ss = append(ss, fmt.Sprintf("<%s>", err))
			}
			break
		}
		ss = append(ss, sv.String())
	}
	return fmt.Sprintf("sdt: original network id %d, services [%s]", s.OriginalNetworkID(), strings.Join(ss, "; "))
}
