package virtual

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/roffe/gokline"
	"github.com/roffe/gokline/pkg/kwp2000"
)

func frame(b ...byte) []byte {
	return kwp2000.Frame(b)
}

func exchange(t *testing.T, e *ECU, req []byte) []byte {
	t.Helper()
	if _, err := e.Write(req); err != nil {
		t.Fatal(err)
	}
	resp, err := e.ReadAvailable(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(resp, req) {
		t.Fatalf("response % X does not start with the echo", resp)
	}
	return resp[len(req):]
}

func TestStartCommunication(t *testing.T) {
	e := New(nil)
	got := exchange(t, e, frame(0x81, 0x10, 0xF1, 0x81))
	want := frame(0x80, 0xF1, 0x10, 0x03, 0xC1, 0xEF, 0x8F)
	if !bytes.Equal(got, want) {
		t.Errorf("reply = % X, want % X", got, want)
	}
}

func TestEchoOnly(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *ECU)
		req   []byte
	}{
		{"bad checksum", nil, []byte{0x81, 0x10, 0xF1, 0x81, 0x00}},
		{"length mismatch", nil, frame(0x82, 0x10, 0xF1, 0x81)},
		{"baud mismatch", func(e *ECU) { e.SetBaudRate(gokline.ReadBaudRate) }, frame(0x81, 0x10, 0xF1, 0x81)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(nil)
			if tt.setup != nil {
				tt.setup(e)
			}
			if got := exchange(t, e, tt.req); len(got) != 0 {
				t.Errorf("unexpected reply % X", got)
			}
		})
	}
}

func TestLockedServices(t *testing.T) {
	e := New(nil)
	got := exchange(t, e, frame(0x87, 0x10, 0x01, 0x36, 0x11, 0x00, 0xFE, 0x02, 0x01, 0x00))
	want := frame(0x80, 0xF1, 0x10, 0x03, 0x7F, 0x36, kwp2000.SECURITY_ACCESS_DENIED)
	if !bytes.Equal(got, want) {
		t.Errorf("reply = % X, want % X", got, want)
	}
}

func TestBreakResets(t *testing.T) {
	e := New(func(c uint32) uint32 { return c })
	exchange(t, e, frame(0x82, 0x10, 0x01, 0x27, 0x01))
	exchange(t, e, frame(0x86, 0x10, 0x01, 0x27, 0x02, 0x01, 0x39, 0xF7, 0xB3))
	if !e.authenticated {
		t.Fatal("key not accepted")
	}
	if err := e.Break(0); err != nil {
		t.Fatal(err)
	}
	if e.authenticated || e.ecuBaud != gokline.InitBaudRate {
		t.Error("break did not reset the session")
	}
	b, _ := e.ReadAvailable(context.Background(), 0)
	if !bytes.Equal(b, []byte{0x55}) {
		t.Errorf("after break = % X", b)
	}
}

func TestClosed(t *testing.T) {
	e := New(nil)
	e.Close()
	if _, err := e.Write(frame(0x81, 0x10, 0xF1, 0x81)); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() error = %v", err)
	}
	if _, err := e.ReadAvailable(context.Background(), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadAvailable() error = %v", err)
	}
}
