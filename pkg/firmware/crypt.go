package firmware

import "math/bits"

// Checksum16 is the unsigned 16 bit wraparound sum of b.
func Checksum16(b []byte) uint16 {
	var cs uint16
	for _, v := range b {
		cs += uint16(v)
	}
	return cs
}

func ror8(b byte, n int) byte {
	return bits.RotateLeft8(b, -n)
}

// Encrypt applies the loader's byte transform to b in place. The operation
// depends on the position modulo 8 and has no inverse here.
func Encrypt(b []byte) {
	for i, v := range b {
		switch i % 8 {
		case 0:
			b[i] = ^ror8(v+0x88, 1)
		case 1:
			b[i] = ror8(v+0xC7, 1)
		case 2:
			b[i] = ^ror8(v+0x26, 3)
		case 3:
			b[i] = ^ror8(v+0xA5, 5)
		case 4:
			b[i] = ror8(v+0x6C, 2)
		case 5:
			b[i] = ror8(v+0xEB, 6)
		case 6:
			b[i] = ^ror8(v+0x0A, 6)
		case 7:
			b[i] = ror8(-v+0x66, 4)
		}
	}
}
