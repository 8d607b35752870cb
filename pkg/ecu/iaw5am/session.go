package iaw5am

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roffe/gokline"
	"github.com/roffe/gokline/pkg/kwp2000"
)

const (
	breakLow  = 26 * time.Millisecond
	breakHigh = 25 * time.Millisecond

	hwVersionOffset = 22
	hwVersionLength = 11
)

// FastInit wakes the ECU by holding the K-line low, releasing it, and
// flushing whatever the ECU answered with. The link drops back to the
// initial baud rate.
func (c *Client) FastInit(ctx context.Context) error {
	if err := c.t.SetBaudRate(gokline.InitBaudRate); err != nil {
		return &gokline.TransportError{Op: "set baud rate", Err: err}
	}
	c.session.BaudRate = gokline.InitBaudRate
	c.session.Authenticated = false
	if err := c.t.Break(breakLow); err != nil {
		return &gokline.TransportError{Op: "break", Err: err}
	}
	if err := sleep(ctx, breakHigh); err != nil {
		return err
	}
	b, err := c.read(ctx)
	if err != nil {
		return err
	}
	c.log.Debugf("fast init flushed % X", b)
	c.setState(LineInitialized)
	return nil
}

// Connect runs fast init and the fixed handshake at the initial baud rate
// and returns the hardware version the ECU identifies with.
func (c *Client) Connect(ctx context.Context) (string, error) {
	if err := c.FastInit(ctx); err != nil {
		return "", gokline.Step("fast init", err)
	}
	if _, err := c.Exchange(ctx, msgStartCommunication); err != nil {
		return "", gokline.Step("start communication", err)
	}
	if _, err := c.Exchange(ctx, msgDiagnosticSession); err != nil {
		return "", gokline.Step("start diagnostic session", err)
	}
	c.setState(DiagnosticOpen)
	resp, err := c.Exchange(ctx, msgIdentification)
	if err != nil {
		return "", gokline.Step("read identification", err)
	}
	var hw string
	if len(resp) >= hwVersionOffset+hwVersionLength {
		hw = string(bytes.TrimRight(resp[hwVersionOffset:hwVersionOffset+hwVersionLength], "\x00 "))
	}
	c.session.HardwareVersion = hw
	c.log.Infof("Hardware Version: %s", hw)
	return hw, nil
}

// OpenExtendedSession switches the ECU into the given diagnostic sub-mode,
// 0x09 before dumping and 0x03 before erasing.
func (c *Client) OpenExtendedSession(ctx context.Context, mode byte) error {
	if _, err := c.Exchange(ctx, msgExtendedSession(mode)); err != nil {
		return gokline.Step(fmt.Sprintf("extended diagnostic session 0x%02X", mode), err)
	}
	c.session.Mode = mode
	c.setState(ExtendedDiagOpen)
	return nil
}

// SetBaudRate moves the tester side of the link to rate. There is no
// confirmation from the ECU, a mismatch shows up on the next exchange.
func (c *Client) SetBaudRate(rate int) error {
	if err := c.t.SetBaudRate(rate); err != nil {
		return gokline.Step("set baud rate", &gokline.TransportError{Op: "set baud rate", Err: err})
	}
	c.session.BaudRate = rate
	c.log.Infof("baud rate changed to %d", rate)
	c.setState(BaudRaised)
	return nil
}

// Exchange sends req with its checksum trailer and reads the response. The
// cable echoes the request, so the returned buffer starts with it and
// protocol offsets are relative to that.
func (c *Client) Exchange(ctx context.Context, req []byte) ([]byte, error) {
	n, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, &gokline.TimeoutError{Timeout: c.cfg.Timeout, Type: "response"}
	}
	if _, err := kwp2000.Validate(n, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Send writes req with its checksum trailer without waiting for an answer
// and returns the number of bytes written.
func (c *Client) Send(ctx context.Context, req []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	frame := kwp2000.Frame(req)
	c.log.Debugf("-> % X", frame)
	n, err := c.t.Write(frame)
	if err != nil {
		return n, &gokline.TransportError{Op: "write", Err: err}
	}
	if n != len(frame) {
		return n, &gokline.TransportError{Op: "write", Err: fmt.Errorf("wrote %d of %d bytes", n, len(frame))}
	}
	return n, nil
}

// Drain waits d and then discards everything the ECU sent meanwhile, reading
// until the line is quiet.
func (c *Client) Drain(ctx context.Context, d time.Duration) error {
	if err := sleep(ctx, d); err != nil {
		return err
	}
	var n int
	for {
		b, err := c.read(ctx)
		if err != nil {
			return err
		}
		if len(b) == 0 {
			break
		}
		n += len(b)
	}
	c.log.Debugf("discarded %d bytes", n)
	return nil
}

func (c *Client) read(ctx context.Context) ([]byte, error) {
	b, err := c.t.ReadAvailable(ctx, c.cfg.Timeout)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &gokline.TransportError{Op: "read", Err: err}
	}
	if len(b) > 0 {
		c.log.Debugf("<- % X", b)
	}
	return b, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
