// Package virtual implements an in-memory IAW 5AM ECU behind a KKL cable.
// It echoes every write like the real cable does and answers the subset of
// KWP2000 the dump and flash sequences use.
package virtual

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/roffe/gokline"
	"github.com/roffe/gokline/pkg/kwp2000"
)

const (
	flashSize = 0x50000
	blockSize = 0x4000
)

var ErrClosed = errors.New("virtual port closed")

type KeyFunc func(challenge uint32) uint32

type Opts func(e *ECU)

// OptFlash sets the flash contents served by memory reads.
func OptFlash(b []byte) Opts {
	return func(e *ECU) {
		copy(e.Flash, b)
	}
}

// OptChallengeFailures makes the ECU answer the first n challenge requests
// with a negative response.
func OptChallengeFailures(n int) Opts {
	return func(e *ECU) {
		e.challengeFailures = n
	}
}

func OptChallenge(c uint32) Opts {
	return func(e *ECU) {
		e.challenge = c
	}
}

// OptShortReads truncates memory read replies by n bytes.
func OptShortReads(n int) Opts {
	return func(e *ECU) {
		e.shortReads = n
	}
}

func OptHardwareVersion(v string) Opts {
	return func(e *ECU) {
		e.hwVersion = v
	}
}

type ECU struct {
	mu sync.Mutex

	Flash  []byte
	Upload bytes.Buffer
	// Frames holds every frame written by the tester, trailer included.
	Frames [][]byte
	// ProgrammedChecksum is the checksum sent with the programming routine.
	ProgrammedChecksum uint16
	Erased             bool
	Programmed         bool
	WriterID           []byte
	WriteDate          []byte

	key               KeyFunc
	pending           []byte
	testerBaud        int
	ecuBaud           int
	nextBaud          int
	authenticated     bool
	challenge         uint32
	challengeFailures int
	challengeRequests int
	shortReads        int
	downloading       bool
	block             int
	hwVersion         string
	closed            bool
}

// New returns a powered on ECU. key must match the tester's key derivation.
func New(key KeyFunc, opts ...Opts) *ECU {
	e := &ECU{
		Flash:      make([]byte, flashSize),
		key:        key,
		testerBaud: gokline.InitBaudRate,
		ecuBaud:    gokline.InitBaudRate,
		challenge:  0x0139F7B3,
		hwVersion:  "IAW5AM.HF1",
		block:      -1,
	}
	for i := range e.Flash {
		e.Flash[i] = byte(i)
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *ECU) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	frame := append([]byte{}, p...)
	e.Frames = append(e.Frames, frame)
	e.pending = append(e.pending, frame...)

	if e.testerBaud != e.ecuBaud {
		return len(p), nil
	}
	data, ok := parse(frame)
	if !ok {
		return len(p), nil
	}
	e.pending = append(e.pending, e.handle(data)...)
	if e.nextBaud != 0 {
		e.ecuBaud, e.nextBaud = e.nextBaud, 0
	}
	return len(p), nil
}

func (e *ECU) ReadAvailable(ctx context.Context, idle time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	out := e.pending
	e.pending = nil
	return out, nil
}

// Break resets the ECU to its power on session.
func (e *ECU) Break(d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.ecuBaud = gokline.InitBaudRate
	e.authenticated = false
	e.block = -1
	e.pending = append(e.pending, 0x55)
	return nil
}

func (e *ECU) SetBaudRate(rate int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.testerBaud = rate
	return nil
}

func (e *ECU) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// parse strips header and trailer from a tester frame.
func parse(frame []byte) ([]byte, bool) {
	if len(frame) < 5 || kwp2000.Checksum(frame[:len(frame)-1]) != frame[len(frame)-1] {
		return nil, false
	}
	body := frame[:len(frame)-1]
	n := int(body[0] & kwp2000.MaxShortLength)
	start := 3
	if n == 0 {
		n = int(body[3])
		start = 4
	}
	if len(body) != start+n {
		return nil, false
	}
	return body[start:], true
}

// reply frames data the way the ECU does, always with a length byte.
func reply(data ...byte) []byte {
	out := append([]byte{0x80, kwp2000.AddrTester, kwp2000.AddrECU, byte(len(data))}, data...)
	return append(out, kwp2000.Checksum(out))
}

func negative(sid, code byte) []byte {
	return reply(kwp2000.NEGATIVE_RESPONSE, sid, code)
}

func (e *ECU) handle(data []byte) []byte {
	sid := data[0]
	var arg byte
	if len(data) > 1 {
		arg = data[1]
	}
	switch sid {
	case kwp2000.START_COMMUNICATION:
		return reply(sid+kwp2000.POSITIVE_RESPONSE_OFFSET, 0xEF, 0x8F)
	case kwp2000.START_DIAGNOSTIC_SESSION:
		return e.diagnosticSession(arg, data)
	case kwp2000.READ_ECU_IDENTIFICATION:
		ident := append([]byte{sid + kwp2000.POSITIVE_RESPONSE_OFFSET, 0x80}, make([]byte, 10)...)
		hw := make([]byte, 11)
		copy(hw, e.hwVersion)
		return reply(append(ident, hw...)...)
	case kwp2000.ACCESS_TIMING_PARAMETERS:
		return reply(sid+kwp2000.POSITIVE_RESPONSE_OFFSET, arg)
	case kwp2000.SECURITY_ACCESS:
		return e.securityAccess(data)
	}

	if !e.authenticated {
		return negative(sid, kwp2000.SECURITY_ACCESS_DENIED)
	}

	switch sid {
	case kwp2000.WRITE_DATA_BY_LOCAL_IDENTIFIER:
		switch {
		case arg == 0x98:
			e.WriterID = append([]byte{}, data[2:]...)
		case arg == 0x99:
			e.WriteDate = append([]byte{}, data[2:]...)
		}
		return reply(sid+kwp2000.POSITIVE_RESPONSE_OFFSET, arg)
	case kwp2000.START_ROUTINE_BY_LOCAL_IDENTIFIER:
		return e.routine(data)
	case kwp2000.REQUEST_DOWNLOAD:
		if !e.Erased || e.WriterID == nil || e.WriteDate == nil {
			return negative(sid, kwp2000.DOWNLOAD_NOT_ACCEPTED)
		}
		e.Upload.Reset()
		e.downloading = true
		return reply(kwp2000.REQUEST_DOWNLOAD_POSITIVE_RESPONSE, 0xFE)
	case kwp2000.TRANSFER_DATA:
		return e.transferData(data)
	case kwp2000.REQUEST_TRANSFER_EXIT:
		e.downloading = false
		return reply(sid + kwp2000.POSITIVE_RESPONSE_OFFSET)
	}
	return negative(sid, kwp2000.SERVICE_NOT_SUPPORTED)
}

func (e *ECU) diagnosticSession(mode byte, data []byte) []byte {
	resp := reply(kwp2000.START_DIAGNOSTIC_SESSION+kwp2000.POSITIVE_RESPONSE_OFFSET, mode)
	if len(data) == 4 {
		switch data[3] {
		case 0x09:
			e.nextBaud = gokline.ReadBaudRate
		case 0x03:
			e.nextBaud = gokline.WriteBaudRate
		}
	}
	return resp
}

func (e *ECU) securityAccess(data []byte) []byte {
	if len(data) < 2 {
		return negative(kwp2000.SECURITY_ACCESS, kwp2000.SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT)
	}
	switch data[1] {
	case 0x01:
		e.challengeRequests++
		if e.challengeRequests <= e.challengeFailures {
			// padded to the length of a real challenge
			return reply(kwp2000.NEGATIVE_RESPONSE, kwp2000.SECURITY_ACCESS, kwp2000.REQUIRED_TIME_DELAY_NOT_EXPIRED, 0x00, 0x00, 0x00)
		}
		seed := make([]byte, 4)
		binary.BigEndian.PutUint32(seed, e.challenge)
		return reply(kwp2000.SECURITY_ACCESS_POSITIVE_RESPONSE, 0x01, seed[0], seed[1], seed[2], seed[3])
	case 0x02:
		if len(data) != 6 || e.key == nil || binary.BigEndian.Uint32(data[2:6]) != e.key(e.challenge) {
			return negative(kwp2000.SECURITY_ACCESS, kwp2000.INVALID_KEY)
		}
		e.authenticated = true
		return reply(kwp2000.SECURITY_ACCESS_POSITIVE_RESPONSE, 0x02, 0x34)
	}
	return negative(kwp2000.SECURITY_ACCESS, kwp2000.SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT)
}

func (e *ECU) routine(data []byte) []byte {
	sid := data[0]
	if len(data) < 3 {
		return negative(sid, kwp2000.SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT)
	}
	switch {
	case data[1] == 0x02 && data[2] == 0x01:
		for i := blockSize; i < len(e.Flash); i++ {
			e.Flash[i] = 0xFF
		}
		e.Erased = true
		// unframed erase status chatter
		return []byte{0x55, 0xAA, 0x01, 0x55, 0xAA, 0x02}
	case data[1] == 0x03 && len(data) == 5:
		e.ProgrammedChecksum = uint16(data[3])<<8 | uint16(data[4])
	case data[1] == 0x04:
		e.Programmed = true
	}
	return reply(sid+kwp2000.POSITIVE_RESPONSE_OFFSET, data[1])
}

func (e *ECU) transferData(data []byte) []byte {
	if e.downloading {
		e.Upload.Write(data[1:])
		return reply(kwp2000.TRANSFER_DATA_POSITIVE_RESPONSE)
	}
	switch {
	case len(data) == 7 && data[1] == 0x11:
		e.block = int(data[6])
		return reply(kwp2000.TRANSFER_DATA_POSITIVE_RESPONSE, 0x11)
	case len(data) == 6 && data[1] == 0x21 && e.block >= 0:
		offset := int(binary.BigEndian.Uint16(data[3:5])) - blockSize
		length := int(data[5])
		addr := e.block*blockSize + offset
		if offset < 0 || addr+length > len(e.Flash) {
			return negative(kwp2000.TRANSFER_DATA, kwp2000.REQUEST_OUT_OF_RANGE)
		}
		out := append([]byte{kwp2000.TRANSFER_DATA_POSITIVE_RESPONSE}, data[1:]...)
		out = append(out, e.Flash[addr:addr+length]...)
		if e.shortReads > 0 && e.shortReads < len(out) {
			out = out[:len(out)-e.shortReads]
		}
		return reply(out...)
	}
	return negative(kwp2000.TRANSFER_DATA, kwp2000.CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR)
}
