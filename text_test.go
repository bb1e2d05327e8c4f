package astisdt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTextEncoding(t *testing.T) {
	// Latin-1 range
	for b := 0x20; b <= 0xff; b++ {
		assert.Equal(t, TextEncoding{Kind: TextEncodingKindISO88591}, resolveTextEncoding([]byte{byte(b)}))
	}

	// Fixed encodings
	for b, k := range map[byte]TextEncodingKind{
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
	} {
		assert.Equal(t, TextEncoding{Kind: k}, resolveTextEncoding([]byte{b, 0x41}), "selector 0x%.2x", b)
	}

	// Reserved
	reserved := []byte{0x00, 0x08, 0x0c, 0x0d, 0x0e, 0x0f}
	for b := byte(0x16); b <= 0x1e; b++ {
		reserved = append(reserved, b)
	}
	for _, b := range reserved {
		assert.Equal(t, TextEncoding{Kind: TextEncodingKindReserved1, Selector: uint16(b)}, resolveTextEncoding([]byte{b}), "selector 0x%.2x", b)
	}

	// Multi-byte selector
	for b, k := range textEncodingKindsByISO8859Part {
		assert.Equal(t, TextEncoding{Kind: k}, resolveTextEncoding([]byte{0x10, 0x00, b}))
	}
	assert.Equal(t, TextEncoding{Kind: TextEncodingKindReserved2}, resolveTextEncoding([]byte{0x10, 0x00, 0x00}))
	assert.Equal(t, TextEncoding{Kind: TextEncodingKindReserved2, Selector: 0x000c}, resolveTextEncoding([]byte{0x10, 0x00, 0x0c}))
	assert.Equal(t, TextEncoding{Kind: TextEncodingKindReserved2, Selector: 0x0101}, resolveTextEncoding([]byte{0x10, 0x01, 0x01}))
	assert.Equal(t, TextEncoding{Kind: TextEncodingKindReserved2, Selector: 0x0010}, resolveTextEncoding([]byte{0x10, 0x00, 0x10}))

	// Encoding type id
	assert.Equal(t, TextEncoding{Kind: TextEncodingKindEncodingTypeID, Selector: 0x02}, resolveTextEncoding([]byte{0x1f, 0x02, 0x41}))
}

func TestTextEncodingString(t *testing.T) {
	assert.Equal(t, "ISO 8859-5", TextEncoding{Kind: TextEncodingKindISO88595}.String())
	assert.Equal(t, "reserved (0x0c)", TextEncoding{Kind: TextEncodingKindReserved1, Selector: 0x0c}.String())
	assert.Equal(t, "reserved (0x0101)", TextEncoding{Kind: TextEncodingKindReserved2, Selector: 0x0101}.String())
	assert.Equal(t, "encoding_type_id (0x02)", TextEncoding{Kind: TextEncodingKindEncodingTypeID, Selector: 0x02}.String())
}

func TestNewText(t *testing.T) {
	_, err := NewText(nil)
	var ed *NotEnoughDataError
	require.ErrorAs(t, err, &ed)
	assert.Equal(t, &NotEnoughDataError{Expected: 1, Available: 0}, ed)

	txt, err := NewText([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), txt.Bytes())
}

func TestTextDecodeLatin1(t *testing.T) {
	for b := 0x20; b <= 0xff; b++ {
		txt, err := NewText([]byte{byte(b), byte(b)})
		require.NoError(t, err)
		for _, m := range []DecodeMode{DecodeModeStrict, DecodeModeReplace} {
			s, err := txt.Decode(m)
			require.NoError(t, err)
			assert.Equal(t, string([]rune{rune(b), rune(b)}), s)
		}
	}
}

func TestTextDecode(t *testing.T) {
	for _, v := range []struct {
		name     string
		data     []byte
		expected string
	}{
		{name: "ISO 8859-5", data: []byte{0x01, 0xb0, 0xb1}, expected: "АБ"},
		{name: "ISO 8859-7", data: []byte{0x03, 0xe1}, expected: "α"},
		{name: "ISO 8859-9", data: []byte{0x05, 0xdd}, expected: "İ"},
		{name: "ISO 8859-15", data: []byte{0x0b, 0xa4}, expected: "€"},
		{name: "ISO 8859-2 through multi-byte selector", data: []byte{0x10, 0x00, 0x02, 0xa3}, expected: "Ł"},
		{name: "ISO 8859-1 through multi-byte selector", data: []byte{0x10, 0x00, 0x01, 0xe9}, expected: "é"},
		{name: "UCS-2", data: []byte{0x11, 0x00, 0x41, 0x4e, 0x2d}, expected: "A中"},
		{name: "KS X 1001", data: []byte{0x12, 0xb0, 0xa1}, expected: "가"},
		{name: "GB-2312", data: []byte{0x13, 0xd6, 0xd0}, expected: "中"},
		{name: "Big5", data: []byte{0x14, 0xa4, 0xa4}, expected: "中"},
		{name: "UTF-8", data: append([]byte{0x15}, "Süd €"...), expected: "Süd €"},
		{name: "empty payload", data: []byte{0x15}, expected: ""},
	} {
		t.Run(v.name, func(t *testing.T) {
			txt, err := NewText(v.data)
			require.NoError(t, err)
			for _, m := range []DecodeMode{DecodeModeStrict, DecodeModeReplace} {
				s, err := txt.Decode(m)
				require.NoError(t, err, "mode %s", m)
				assert.Equal(t, v.expected, s, "mode %s", m)
			}
			assert.Equal(t, v.expected, txt.String())
		})
	}
}

func TestTextDecodeUTF8RoundTrip(t *testing.T) {
	for _, s := range []string{"BBC ONE", "Télé Matin", "Первый канал", "日本テレビ", "😀"} {
		txt, err := NewText(append([]byte{0x15}, s...))
		require.NoError(t, err)
		d, err := txt.Decode(DecodeModeStrict)
		require.NoError(t, err)
		assert.Equal(t, s, d)
	}
}

func TestTextDecodeInvalid(t *testing.T) {
	for _, v := range []struct {
		name     string
		data     []byte
		replaced string
		prefix   string
	}{
		{name: "UTF-8", data: []byte{0x15, 'a', 0xff, 'b'}, replaced: "a�b"},
		{name: "UTF-8 overlong lead byte", data: []byte{0x15, 'a', 0xc0, 'b'}, replaced: "a�b"},
		{name: "ISO 8859-3 undefined byte", data: []byte{0x10, 0x00, 0x03, 'a', 0xa5}, replaced: "a�"},
		{name: "UCS-2 odd length", data: []byte{0x11, 0x00, 0x41, 0x00}, prefix: "A"},
		{name: "UCS-2 unpaired surrogate", data: []byte{0x11, 0x00, 0x41, 0xdc, 0x00}, prefix: "A"},
		{name: "Big5", data: []byte{0x14, 'a', 0xa4}, prefix: "a"},
	} {
		t.Run(v.name, func(t *testing.T) {
			txt, err := NewText(v.data)
			require.NoError(t, err)

			_, err = txt.Decode(DecodeModeStrict)
			var ed *DecodeFailureError
			assert.ErrorAs(t, err, &ed)

			s, err := txt.Decode(DecodeModeReplace)
			require.NoError(t, err)
			if v.replaced != "" {
				assert.Equal(t, v.replaced, s)
			} else {
				assert.True(t, strings.HasPrefix(s, v.prefix))
				assert.Contains(t, s, "\uFFFD")
			}
		})
	}
}

func TestTextDecodeEUC(t *testing.T) {
	for _, v := range []struct {
		data     []byte
		expected string
		valid    bool
	}{
		{data: []byte{0x13, 'a', 0xb0, 0xa1}, expected: "a啊", valid: true},
		{data: []byte{0x12, 'a', 0xb0, 0xa1}, expected: "a가", valid: true},
		{data: []byte{0x13, 0x81, 0x40}, expected: "丂"},
		{data: []byte{0x12, 0x81, 0x41}, expected: "갂"},
		{data: []byte{0x13, 0xb0, 0x40}, expected: ""},
		{data: []byte{0x12, 'a', 0xb0}, expected: "a"},
	} {
		txt, err := NewText(v.data)
		require.NoError(t, err)
		s, err := txt.Decode(DecodeModeStrict)
		if v.valid {
			require.NoError(t, err)
			assert.Equal(t, v.expected, s)
		} else {
			var ed *DecodeFailureError
			assert.ErrorAs(t, err, &ed)
		}

		// Replace mode accepts the extensions
		s, err = txt.Decode(DecodeModeReplace)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(s, v.expected))
	}
}

func TestTextDecodeUnsupported(t *testing.T) {
	for _, data := range [][]byte{
		{0x07, 0xa1},
		{0x08, 'a'},
		{0x00, 'a'},
		{0x1e, 'a'},
		{0x10, 0x00, 0x0c, 'a'},
		{0x10, 0x01, 0x01, 'a'},
		{0x1f, 0x01, 'a'},
	} {
		txt, err := NewText(data)
		require.NoError(t, err)
		for _, m := range []DecodeMode{DecodeModeStrict, DecodeModeReplace} {
			_, err = txt.Decode(m)
			var eu *UnsupportedEncodingError
			require.ErrorAs(t, err, &eu, "data %x", data)
			assert.Equal(t, txt.Encoding(), eu.Encoding)
		}
		assert.Equal(t, "<unsupported encoding "+txt.Encoding().String()+">", txt.String())
	}
}

func TestTextDecodeNotEnoughData(t *testing.T) {
	for n := 1; n < 3; n++ {
		data := []byte{0x10, 0x00}[:n]
		txt, err := NewText(data)
		require.NoError(t, err)
		for _, m := range []DecodeMode{DecodeModeStrict, DecodeModeReplace} {
			_, err = txt.Decode(m)
			var ed *NotEnoughDataError
			require.ErrorAs(t, err, &ed)
			assert.Equal(t, &NotEnoughDataError{Expected: 3, Available: n}, ed)
		}
	}

	txt, err := NewText([]byte{0x1f})
	require.NoError(t, err)
	_, err = txt.Decode(DecodeModeReplace)
	var ed *NotEnoughDataError
	require.ErrorAs(t, err, &ed)
	assert.Equal(t, &NotEnoughDataError{Expected: 2, Available: 1}, ed)
	assert.Contains(t, txt.String(), "not enough data")
}
