// Package kkl drives a KKL (FTDI/CH340 K-line) USB cable through the OS
// serial layer.
package kkl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roffe/gokline"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// maxRead bounds a single ReadAvailable call. The longest exchange is an
// echoed 260 byte transfer frame plus its reply, erase chatter is drained
// in one go as well.
const maxRead = 8192

var ErrNoPorts = errors.New("no serial ports found")

type KKL struct {
	port serial.Port
	mode *serial.Mode
	buf  []byte
	log  log.FieldLogger
}

// Open opens portName at the initial K-line baud rate, 8N1.
func Open(portName string, l log.FieldLogger) (*KKL, error) {
	mode := &serial.Mode{
		BaudRate: gokline.InitBaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, &gokline.TransportError{Op: "open", Err: fmt.Errorf("failed to open com port %q: %w", portName, err)}
	}
	if l == nil {
		l = log.StandardLogger()
	}
	portInfo(l, portName)
	k := New(p, mode, l)
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, &gokline.TransportError{Op: "reset input buffer", Err: err}
	}
	p.ResetOutputBuffer()
	return k, nil
}

// New wraps an already opened port. mode must be the mode the port was
// opened with.
func New(p serial.Port, mode *serial.Mode, l log.FieldLogger) *KKL {
	if l == nil {
		l = log.StandardLogger()
	}
	return &KKL{
		port: p,
		mode: mode,
		buf:  make([]byte, 512),
		log:  l,
	}
}

func (k *KKL) Write(p []byte) (int, error) {
	n, err := k.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("error writing to port: %w", err)
	}
	return n, nil
}

// ReadAvailable collects bytes until the line has been quiet for idle.
func (k *KKL) ReadAvailable(ctx context.Context, idle time.Duration) ([]byte, error) {
	if err := k.port.SetReadTimeout(idle); err != nil {
		return nil, err
	}
	var out []byte
	for len(out) < maxRead {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := k.port.Read(k.buf)
		if err != nil {
			return out, fmt.Errorf("error reading from port: %w", err)
		}
		if n == 0 {
			break
		}
		out = append(out, k.buf[:n]...)
	}
	return out, nil
}

func (k *KKL) Break(d time.Duration) error {
	return k.port.Break(d)
}

func (k *KKL) SetBaudRate(rate int) error {
	if k.mode.BaudRate == rate {
		return nil
	}
	k.mode.BaudRate = rate
	if err := k.port.SetMode(k.mode); err != nil {
		return fmt.Errorf("failed to set baud rate %d: %w", rate, err)
	}
	return nil
}

func (k *KKL) Close() error {
	return k.port.Close()
}

// Ports lists the serial ports present on the system.
func Ports() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, ErrNoPorts
	}
	return ports, nil
}

func portInfo(l log.FieldLogger, portName string) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		l.Debugf("failed to enumerate ports: %v", err)
		return
	}
	for _, port := range ports {
		if port.Name == portName {
			l.Infof("Using port: %s", port.Name)
			if port.IsUSB {
				l.Infof("   USB ID     %s:%s", port.VID, port.PID)
				l.Infof("   USB serial %s", port.SerialNumber)
			}
		}
	}
}

var _ gokline.Transport = (*KKL)(nil)
