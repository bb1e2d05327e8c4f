package astisdt

import (
	"errors"
	"fmt"
)

// TextEncodingKind is the character set selected by a text field's leading bytes
// Page: 131 | Annex A | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type TextEncodingKind uint8

// Text encoding kinds
const (
	TextEncodingKindReserved1 TextEncodingKind = iota
	TextEncodingKindReserved2
	TextEncodingKindISO88591
	TextEncodingKindISO88592
	TextEncodingKindISO88593
	TextEncodingKindISO88594
	TextEncodingKindISO88595
	TextEncodingKindISO88596
	TextEncodingKindISO88597
	TextEncodingKindISO88598
	TextEncodingKindISO88599
	TextEncodingKindISO885910
	TextEncodingKindISO885911
	TextEncodingKindISO885913
	TextEncodingKindISO885914
	TextEncodingKindISO885915
	TextEncodingKindISO10646
	TextEncodingKindKSX10012004
	TextEncodingKindGB23121980
	TextEncodingKindBig5
	TextEncodingKindUTF8
	TextEncodingKindEncodingTypeID
)

var textEncodingKindNames = map[TextEncodingKind]string{
	TextEncodingKindReserved1:      "reserved",
	TextEncodingKindReserved2:      "reserved",
	TextEncodingKindISO88591:       "ISO 8859-1",
	TextEncodingKindISO88592:       "ISO 8859-2",
	TextEncodingKindISO88593:       "ISO 8859-3",
	TextEncodingKindISO88594:       "ISO 8859-4",
	TextEncodingKindISO88595:       "ISO 8859-5",
	TextEncodingKindISO88596:       "ISO 8859-6",
	TextEncodingKindISO88597:       "ISO 8859-7",
	TextEncodingKindISO88598:       "ISO 8859-8",
	TextEncodingKindISO88599:       "ISO 8859-9",
	TextEncodingKindISO885910:      "ISO 8859-10",
	TextEncodingKindISO885911:      "ISO 8859-11",
	TextEncodingKindISO885913:      "ISO 8859-13",
	TextEncodingKindISO885914:      "ISO 8859-14",
	TextEncodingKindISO885915:      "ISO 8859-15",
	TextEncodingKindISO10646:       "ISO/IEC 10646",
	TextEncodingKindKSX10012004:    "KS X 1001-2004",
	TextEncodingKindGB23121980:     "GB-2312-1980",
	TextEncodingKindBig5:           "Big5",
	TextEncodingKindUTF8:           "UTF-8",
	TextEncodingKindEncodingTypeID: "encoding_type_id",
}

// String implements the Stringer interface
func (k TextEncodingKind) String() string {
	if n, ok := textEncodingKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("unknown text encoding kind %d", uint8(k))
}

// TextEncoding represents the encoding of a text field.
// Selector holds the raw selector byte for TextEncodingKindReserved1 and
// TextEncodingKindEncodingTypeID, and both selector bytes (first one in the high byte) for
// TextEncodingKindReserved2. It is 0 otherwise.
type TextEncoding struct {
	Kind     TextEncodingKind
	Selector uint16
}

// String implements the Stringer interface
func (e TextEncoding) String() string {
	switch e.Kind {
	case TextEncodingKindReserved1, TextEncodingKindEncodingTypeID:
		return fmt.Sprintf("%s (0x%.2x)", e.Kind, e.Selector)
	case TextEncodingKindReserved2:
		return fmt.Sprintf("%s (0x%.4x)", e.Kind, e.Selector)
	}
	return e.Kind.String()
}

// Encodings selected by the first byte of a text field when it is in the 0x01..0x0b range
var textEncodingKindsBySelector = map[byte]TextEncodingKind{
	0x01: TextEncodingKindISO88595,
	0x02: TextEncodingKindISO88596,
	0x03: TextEncodingKindISO88597,
	0x04: TextEncodingKindISO88598,
	0x05: TextEncodingKindISO88599,
	0x06: TextEncodingKindISO885910,
	0x07: TextEncodingKindISO885911,
	0x09: TextEncodingKindISO885913,
	0x0a: TextEncodingKindISO885914,
	0x0b: TextEncodingKindISO885915,
	0x11: TextEncodingKindISO10646,
	0x12: TextEncodingKindKSX10012004,
	0x13: TextEncodingKindGB23121980,
	0x14: TextEncodingKindBig5,
	0x15: TextEncodingKindUTF8,
}

// Encodings selected by the 2 bytes following a 0x10 selector. The first one is always 0x00.
var textEncodingKindsByISO8859Part = map[byte]TextEncodingKind{
	0x01: TextEncodingKindISO88591,
	0x02: TextEncodingKindISO88592,
	0x03: TextEncodingKindISO88593,
	0x04: TextEncodingKindISO88594,
	0x05: TextEncodingKindISO88595,
	0x06: TextEncodingKindISO88596,
	0x07: TextEncodingKindISO88597,
	0x08: TextEncodingKindISO88598,
	0x09: TextEncodingKindISO88599,
	0x0a: TextEncodingKindISO885910,
	0x0b: TextEncodingKindISO885911,
	0x0d: TextEncodingKindISO885913,
	0x0e: TextEncodingKindISO885914,
	0x0f: TextEncodingKindISO885915,
}

// resolveTextEncoding resolves the encoding of a text field based on its leading bytes.
// It never fails: missing bytes after a multi-byte selector are read as 0.
func resolveTextEncoding(data []byte) TextEncoding {
	if len(data) == 0 {
		return TextEncoding{Kind: TextEncodingKindReserved1}
	}
	b := data[0]
	switch {
	case b >= 0x20:
		return TextEncoding{Kind: TextEncodingKindISO88591}
	case b == 0x10:
		var b1, b2 byte
		if len(data) > 1 {
			b1 = data[1]
		}
		if len(data) > 2 {
			b2 = data[2]
		}
		if k, ok := textEncodingKindsByISO8859Part[b2]; ok && b1 == 0x00 {
			return TextEncoding{Kind: k}
		}
		return TextEncoding{Kind: TextEncodingKindReserved2, Selector: uint16(b1)<<8 | uint16(b2)}
	case b == 0x1f:
		var id byte
		if len(data) > 1 {
			id = data[1]
		}
		return TextEncoding{Kind: TextEncodingKindEncodingTypeID, Selector: uint16(id)}
	}
	if k, ok := textEncodingKindsBySelector[b]; ok {
		return TextEncoding{Kind: k}
	}
	// 0x00, 0x08, 0x0c..0x0f and 0x16..0x1e
	return TextEncoding{Kind: TextEncodingKindReserved1, Selector: uint16(b)}
}

// textPrefixLength returns the number of selector bytes preceding the text payload
func textPrefixLength(data []byte) (int, error) {
	var l int
	switch b := data[0]; {
	case b >= 0x20:
		return 0, nil
	case b == 0x10:
		l = 3
	case b == 0x1f:
		l = 2
	default:
		l = 1
	}
	if len(data) < l {
		return 0, newNotEnoughDataError(l, len(data))
	}
	return l, nil
}

// DecodeMode defines how invalid byte sequences are handled while decoding text
type DecodeMode int

// Decode modes
const (
	// DecodeModeStrict fails on any byte sequence that is invalid in the resolved encoding
	DecodeModeStrict DecodeMode = iota
	// DecodeModeReplace substitutes U+FFFD for invalid byte sequences
	DecodeModeReplace
)

// String implements the Stringer interface
func (m DecodeMode) String() string {
	switch m {
	case DecodeModeStrict:
		return "strict"
	case DecodeModeReplace:
		return "replace"
	}
	return fmt.Sprintf("unknown decode mode %d", int(m))
}

// Text represents a text field whose first byte(s) select its character set.
// It points to the section buffer it was read from: nothing is copied until Decode is called,
// and it must not be used once the buffer is reused.
// Page: 131 | Annex A | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type Text struct {
	data []byte
}

// NewText creates a new text field. Empty data is rejected since the first byte is always an
// encoding selector.
func NewText(data []byte) (Text, error) {
	if len(data) == 0 {
		return Text{}, newNotEnoughDataError(1, 0)
	}
	return Text{data: data}, nil
}

// Bytes returns the raw bytes of the field, selector included
func (t Text) Bytes() []byte {
	return t.data
}

// Encoding returns the encoding selected by the field's leading bytes
func (t Text) Encoding() TextEncoding {
	return resolveTextEncoding(t.data)
}

// Decode decodes the field payload into a string
func (t Text) Decode(m DecodeMode) (s string, err error) {
	if len(t.data) == 0 {
		err = newNotEnoughDataError(1, 0)
		return
	}

	// Get payload offset
	var offset int
	if offset, err = textPrefixLength(t.data); err != nil {
		return
	}

	// Decode
	e := t.Encoding()
	if s, err = decodeText(e, t.data[offset:], m); err != nil {
		err = fmt.Errorf("astisdt: decoding %s text failed: %w", e, err)
		return
	}
	return
}

// String implements the Stringer interface. Invalid byte sequences are replaced and
// undecodable fields are rendered as a marker so that it never fails.
func (t Text) String() string {
	s, err := t.Decode(DecodeModeReplace)
	if err != nil {
		var eu *UnsupportedEncodingError
		if errors.As(err, &eu) {
			return fmt.Sprintf("<unsupported encoding %s>", eu.Encoding)
		}
		return fmt.Sprintf("<%s>", err)
	}
	return s
}
