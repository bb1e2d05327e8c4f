package astisdt

const (
	crc32Polynomial = uint32(0x04c11db7)
	crc32Init       = uint32(0xffffffff)
)

// CRC-32/MPEG-2: not reflected, no final xor
var tableCRC32 = newTableCRC32()

func newTableCRC32() (t [256]uint32) {
	for i := range t {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 > 0 {
				c = c<<1 ^ crc32Polynomial
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return
}

func computeCRC32(bs []byte) uint32 {
	return updateCRC32(crc32Init, bs)
}

func updateCRC32(iCrc uint32, bs []byte) uint32 {
	for _, b := range bs {
		iCrc = (iCrc << 8) ^ tableCRC32[((iCrc>>24)^uint32(b))&0xff]
	}
	return iCrc
}
