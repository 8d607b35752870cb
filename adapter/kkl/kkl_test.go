package kkl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

type fakePort struct {
	serial.Port
	chunks  [][]byte
	written bytes.Buffer
	timeout time.Duration
	mode    *serial.Mode
	breaks  []time.Duration
	modes   int
	readErr error
}

func (f *fakePort) Read(p []byte) (int, error) {
	if len(f.chunks) == 0 {
		return 0, f.readErr
	}
	n := copy(p, f.chunks[0])
	if n < len(f.chunks[0]) {
		f.chunks[0] = f.chunks[0][n:]
	} else {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) { return f.written.Write(p) }

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.timeout = t
	return nil
}

func (f *fakePort) SetMode(m *serial.Mode) error {
	f.modes++
	f.mode = m
	return nil
}

func (f *fakePort) Break(d time.Duration) error {
	f.breaks = append(f.breaks, d)
	return nil
}

func (f *fakePort) Close() error { return nil }

func testKKL(p *fakePort) *KKL {
	l := log.New()
	l.Out = io.Discard
	return New(p, &serial.Mode{BaudRate: 10400, DataBits: 8}, l)
}

func TestReadAvailable(t *testing.T) {
	big := bytes.Repeat([]byte{0xAA}, 700)
	p := &fakePort{chunks: [][]byte{{0x81, 0x10}, {0xF1, 0x81, 0x03}, big}}
	k := testKKL(p)
	got, err := k.ReadAvailable(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte{0x81, 0x10, 0xF1, 0x81, 0x03}, big...)
	if !bytes.Equal(got, want) {
		t.Errorf("ReadAvailable() returned %d bytes, want %d", len(got), len(want))
	}
	if p.timeout != 50*time.Millisecond {
		t.Errorf("read timeout = %s", p.timeout)
	}
	got, err = k.ReadAvailable(context.Background(), time.Millisecond)
	if err != nil || len(got) != 0 {
		t.Errorf("idle line ReadAvailable() = % X, %v", got, err)
	}
}

func TestReadAvailableBounded(t *testing.T) {
	var chunks [][]byte
	for i := 0; i < 40; i++ {
		chunks = append(chunks, make([]byte, 512))
	}
	k := testKKL(&fakePort{chunks: chunks})
	got, err := k.ReadAvailable(context.Background(), time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != maxRead {
		t.Errorf("read %d bytes, want %d", len(got), maxRead)
	}
}

func TestReadAvailableErrors(t *testing.T) {
	k := testKKL(&fakePort{readErr: errors.New("device gone")})
	if _, err := k.ReadAvailable(context.Background(), time.Millisecond); err == nil {
		t.Error("expected read error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	k = testKKL(&fakePort{chunks: [][]byte{{0x01}}})
	if _, err := k.ReadAvailable(ctx, time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadAvailable() error = %v, want context.Canceled", err)
	}
}

func TestSetBaudRateAndBreak(t *testing.T) {
	p := &fakePort{}
	k := testKKL(p)
	if err := k.SetBaudRate(10400); err != nil || p.modes != 0 {
		t.Errorf("unchanged rate touched the port: modes=%d err=%v", p.modes, err)
	}
	if err := k.SetBaudRate(64200); err != nil {
		t.Fatal(err)
	}
	if p.modes != 1 || p.mode.BaudRate != 64200 || p.mode.DataBits != 8 {
		t.Errorf("mode = %+v after %d changes", p.mode, p.modes)
	}
	if err := k.Break(26 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if len(p.breaks) != 1 || p.breaks[0] != 26*time.Millisecond {
		t.Errorf("breaks = %v", p.breaks)
	}
	if n, err := k.Write([]byte{0x81, 0x10}); n != 2 || err != nil || p.written.Len() != 2 {
		t.Errorf("Write() = %d, %v", n, err)
	}
}
