package firmware

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestChecksum16Split(t *testing.T) {
	data := make([]byte, 0x1234)
	for i := range data {
		data[i] = byte(i*13 + 5)
	}
	whole := Checksum16(data)
	for _, k := range []int{0, 1, 0x100, 0x1000, len(data)} {
		if got := Checksum16(data[:k]) + Checksum16(data[k:]); got != whole {
			t.Fatalf("split at %d: 0x%04X != 0x%04X", k, got, whole)
		}
	}
}

func TestChecksum16Wraparound(t *testing.T) {
	if got := Checksum16(bytes.Repeat([]byte{0xFF}, ChecksumLength)); got != 0x3E02 {
		t.Errorf("Checksum16() = 0x%04X, want 0x3E02", got)
	}
}

func TestEncrypt(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"zeros", make([]byte, 8), []byte{0xBB, 0xE3, 0x3B, 0xD2, 0x1B, 0xAF, 0xD7, 0x66}},
		{"cycle continues past a group", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, []byte{0x3B, 0xE4, 0xDA, 0xB2, 0x5C, 0xC7, 0xBB, 0xE5, 0x37, 0xE8}},
		{"header", Header(), []byte{0xDA, 0x67, 0x78, 0x39, 0xF6, 0x5B, 0x15, 0x94}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := append([]byte{}, tt.in...)
			Encrypt(got)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encrypt() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestEncryptDeterministic(t *testing.T) {
	in := make([]byte, 1000)
	for i := range in {
		in[i] = byte(i)
	}
	a := append([]byte{}, in...)
	b := append([]byte{}, in...)
	Encrypt(a)
	Encrypt(b)
	if !bytes.Equal(a, b) {
		t.Fatal("Encrypt() is not deterministic")
	}
}

func testImage() []byte {
	raw := make([]byte, ImageSize)
	for i := range raw {
		raw[i] = byte(i*7 + 3)
	}
	return raw
}

func TestEncode(t *testing.T) {
	raw := testImage()
	img, err := Encode(raw)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(img.Encoded) != 0x4C008 {
		t.Fatalf("len(Encoded) = 0x%X, want 0x4C008", len(img.Encoded))
	}
	if img.Checksum != 0x9E0F {
		t.Errorf("Checksum = 0x%04X, want 0x9E0F", img.Checksum)
	}

	want := append(Header(), raw[BodyOffset:]...)
	Encrypt(want)
	if !bytes.Equal(img.Encoded, want) {
		t.Error("Encoded does not match header + body encrypted")
	}
	hdr := Header()
	Encrypt(hdr)
	if !bytes.Equal(img.Encoded[:8], hdr) {
		t.Errorf("encoded header = % X, want % X", img.Encoded[:8], hdr)
	}
	if raw[0] != 3 || raw[BodyOffset] != byte((BodyOffset*7+3)&0xFF) {
		t.Error("Encode() modified its input")
	}
}

func TestEncodeInvalidSize(t *testing.T) {
	for _, n := range []int{0, 1, ImageSize - 1, ImageSize + 1, 512 * 1024} {
		if _, err := Encode(make([]byte, n)); !errors.Is(err, ErrInvalidImageSize) {
			t.Errorf("Encode(%d bytes) error = %v, want ErrInvalidImageSize", n, err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.bin")
	bad := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(good, testImage(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, make([]byte, 256*1024), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := Load(good)
	if err != nil || len(data) != ImageSize {
		t.Fatalf("Load(good) = %d bytes, %v", len(data), err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrInvalidImageSize) {
		t.Errorf("Load(bad) error = %v, want ErrInvalidImageSize", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.bin")); err == nil {
		t.Error("Load(missing) succeeded")
	}
}
