package astisdt

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrCRC32Mismatch                = errors.New("astisdt: crc32 mismatch")
	ErrDescriptorTagMismatch        = errors.New("astisdt: descriptor tag mismatch")
	ErrMalformedDescriptorLoop      = errors.New("astisdt: malformed descriptor loop")
	ErrMalformedPacket              = errors.New("astisdt: malformed packet")
	ErrMalformedSection             = errors.New("astisdt: malformed section")
	ErrNoMoreDescriptors            = errors.New("astisdt: no more descriptors")
	ErrNoMorePackets                = errors.New("astisdt: no more packets")
	ErrNoMoreServices               = errors.New("astisdt: no more services")
	ErrPacketMustStartWithASyncByte = errors.New("astisdt: packet must start with a sync byte")
	ErrSectionTooShort              = errors.New("astisdt: section too short")
)

// NotEnoughDataError is returned when a length-prefixed field declares more bytes than
// what's left in the buffer
type NotEnoughDataError struct {
	Available int
	Expected  int
}

func newNotEnoughDataError(expected, available int) *NotEnoughDataError {
	return &NotEnoughDataError{
		Available: available,
		Expected:  expected,
	}
}

// Error implements the error interface
func (e *NotEnoughDataError) Error() string {
	return fmt.Sprintf("astisdt: not enough data: expected %d bytes, %d available", e.Expected, e.Available)
}

// UnsupportedEncodingError is returned when a text encoding has no decode path
type UnsupportedEncodingError struct {
	Encoding TextEncoding
}

// Error implements the error interface
func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("astisdt: unsupported encoding %s", e.Encoding)
}

// DecodeFailureError is returned in strict mode when bytes are invalid in their resolved encoding
type DecodeFailureError struct {
	Encoding TextEncoding
	Reason   string
}

// Error implements the error interface
func (e *DecodeFailureError) Error() string {
	return fmt.Sprintf("astisdt: decoding %s failed: %s", e.Encoding, e.Reason)
}
