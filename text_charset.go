package astisdt

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Single byte character sets. ISO 8859-11 has no backend.
var charmaps = map[TextEncodingKind]*charmap.Charmap{
	TextEncodingKindISO88591:  charmap.ISO8859_1,
	TextEncodingKindISO88592:  charmap.ISO8859_2,
	TextEncodingKindISO88593:  charmap.ISO8859_3,
	TextEncodingKindISO88594:  charmap.ISO8859_4,
	TextEncodingKindISO88595:  charmap.ISO8859_5,
	TextEncodingKindISO88596:  charmap.ISO8859_6,
	TextEncodingKindISO88597:  charmap.ISO8859_7,
	TextEncodingKindISO88598:  charmap.ISO8859_8,
	TextEncodingKindISO88599:  charmap.ISO8859_9,
	TextEncodingKindISO885910: charmap.ISO8859_10,
	TextEncodingKindISO885913: charmap.ISO8859_13,
	TextEncodingKindISO885914: charmap.ISO8859_14,
	TextEncodingKindISO885915: charmap.ISO8859_15,
}

// Multi byte character sets that can't represent U+FFFD: finding one in the output means
// the input was invalid
var multiByteEncodings = map[TextEncodingKind]encoding.Encoding{
	TextEncodingKindKSX10012004: korean.EUCKR,
	TextEncodingKindGB23121980:  simplifiedchinese.GBK,
	TextEncodingKindBig5:        traditionalchinese.Big5,
}

var ucs2 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// decodeText decodes a text payload, selector bytes excluded
func decodeText(e TextEncoding, b []byte, m DecodeMode) (string, error) {
	if cm, ok := charmaps[e.Kind]; ok {
		return decodeCharmap(e, cm, b, m)
	}
	if enc, ok := multiByteEncodings[e.Kind]; ok {
		return decodeMultiByte(e, enc, b, m)
	}
	switch e.Kind {
	case TextEncodingKindISO10646:
		return decodeUCS2(e, b, m)
	case TextEncodingKindUTF8:
		return decodeUTF8(e, b, m)
	}
	return "", &UnsupportedEncodingError{Encoding: e}
}

func decodeCharmap(e TextEncoding, cm *charmap.Charmap, b []byte, m DecodeMode) (string, error) {
	var buf strings.Builder
	buf.Grow(len(b))
	for idx, c := range b {
		r := cm.DecodeByte(c)
		if r == utf8.RuneError && m == DecodeModeStrict {
			return "", &DecodeFailureError{
				Encoding: e,
				Reason:   fmt.Sprintf("byte 0x%.2x at offset %d is undefined", c, idx),
			}
		}
		buf.WriteRune(r)
	}
	return buf.String(), nil
}

// EUC encoded character sets. Their decoders also accept the UHC and GBK extensions.
var eucKinds = map[TextEncodingKind]bool{
	TextEncodingKindKSX10012004: true,
	TextEncodingKindGB23121980:  true,
}

// checkEUC checks that every byte is either ASCII or part of a pair whose bytes are both in
// 0xa1..0xfe
func checkEUC(e TextEncoding, b []byte) error {
	for idx := 0; idx < len(b); idx++ {
		if b[idx] < 0x80 {
			continue
		}
		if b[idx] < 0xa1 || b[idx] > 0xfe || idx+1 >= len(b) || b[idx+1] < 0xa1 || b[idx+1] > 0xfe {
			return &DecodeFailureError{
				Encoding: e,
				Reason:   fmt.Sprintf("invalid byte sequence at offset %d", idx),
			}
		}
		idx++
	}
	return nil
}

func decodeMultiByte(e TextEncoding, enc encoding.Encoding, b []byte, m DecodeMode) (string, error) {
	if m == DecodeModeStrict && eucKinds[e.Kind] {
		if err := checkEUC(e, b); err != nil {
			return "", err
		}
	}
	s, err := enc.NewDecoder().String(string(b))
	if err != nil {
		return "", &DecodeFailureError{Encoding: e, Reason: err.Error()}
	}
	if m == DecodeModeStrict {
		if idx := strings.IndexRune(s, utf8.RuneError); idx >= 0 {
			return "", &DecodeFailureError{
				Encoding: e,
				Reason:   fmt.Sprintf("invalid byte sequence before decoded offset %d", idx),
			}
		}
	}
	return s, nil
}

func decodeUCS2(e TextEncoding, b []byte, m DecodeMode) (string, error) {
	if m == DecodeModeReplace {
		s, err := ucs2.NewDecoder().String(string(b))
		if err != nil {
			return "", &DecodeFailureError{Encoding: e, Reason: err.Error()}
		}
		return s, nil
	}

	// Strict mode
	if len(b)%2 != 0 {
		return "", &DecodeFailureError{
			Encoding: e,
			Reason:   fmt.Sprintf("odd number of bytes %d", len(b)),
		}
	}
	us := make([]uint16, 0, len(b)/2)
	for idx := 0; idx < len(b); idx += 2 {
		us = append(us, uint16(b[idx])<<8|uint16(b[idx+1]))
	}
	for idx := 0; idx < len(us); idx++ {
		switch u := us[idx]; {
		case u >= 0xd800 && u < 0xdc00:
			if idx+1 >= len(us) || us[idx+1] < 0xdc00 || us[idx+1] > 0xdfff {
				return "", &DecodeFailureError{
					Encoding: e,
					Reason:   fmt.Sprintf("unpaired surrogate 0x%.4x at offset %d", u, idx*2),
				}
			}
			idx++
		case u >= 0xdc00 && u <= 0xdfff:
			return "", &DecodeFailureError{
				Encoding: e,
				Reason:   fmt.Sprintf("unpaired surrogate 0x%.4x at offset %d", u, idx*2),
			}
		}
	}
	return string(utf16.Decode(us)), nil
}

func decodeUTF8(e TextEncoding, b []byte, m DecodeMode) (string, error) {
	if m == DecodeModeReplace {
		s, err := unicode.UTF8.NewDecoder().String(string(b))
		if err != nil {
			return "", &DecodeFailureError{Encoding: e, Reason: err.Error()}
		}
		return s, nil
	}

	// Strict mode
	for idx := 0; idx < len(b); {
		r, size := utf8.DecodeRune(b[idx:])
		if r == utf8.RuneError && size <= 1 {
			return "", &DecodeFailureError{
				Encoding: e,
				Reason:   fmt.Sprintf("invalid utf-8 sequence at offset %d", idx),
			}
		}
		idx += size
	}
	return string(b), nil
}
