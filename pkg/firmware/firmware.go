package firmware

import (
	"errors"
	"fmt"
	"os"
)

const (
	// ImageSize is the size of a complete IAW 5AM flash image.
	ImageSize = 0x50000

	BodyOffset     = 0x4000
	ChecksumLength = 0x4BFFE
	EncodedSize    = ImageSize - 0x3FF8
)

var (
	ErrInvalidImageSize = errors.New("invalid image size")

	header = [8]byte{0xC2, 0x07, 0x16, 0x33, 0x6F, 0xEB, 0xB0, 0x1D}
)

// Image is the upload form of a raw flash image.
type Image struct {
	Encoded  []byte
	Checksum uint16
}

// Header returns the magic bytes prefixed to every image before encryption.
func Header() []byte {
	h := header
	return h[:]
}

// Load reads a raw image from disk and rejects anything that is not
// exactly ImageSize bytes.
func Load(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bin file: %w", err)
	}
	if err := checkSize(data); err != nil {
		return nil, err
	}
	return data, nil
}

func checkSize(raw []byte) error {
	if len(raw) != ImageSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidImageSize, len(raw), ImageSize)
	}
	return nil
}

// Encode prepares raw for upload: magic header, body from BodyOffset,
// everything encrypted, plus the checksum the programming routine expects.
func Encode(raw []byte) (*Image, error) {
	if err := checkSize(raw); err != nil {
		return nil, err
	}
	enc := make([]byte, len(header)+len(raw)-BodyOffset)
	copy(enc, header[:])
	copy(enc[len(header):], raw[BodyOffset:])
	if len(enc) != EncodedSize {
		return nil, fmt.Errorf("%w: encoded %d bytes, want %d", ErrInvalidImageSize, len(enc), EncodedSize)
	}
	Encrypt(enc)
	return &Image{
		Encoded:  enc,
		Checksum: Checksum16(raw[BodyOffset : BodyOffset+ChecksumLength]),
	}, nil
}
