package gokline

import (
	"context"
	"time"
)

// Transport is a byte oriented K-line link. The KKL cable echoes every
// byte written, so a read following a write returns the request first.
type Transport interface {
	Write(p []byte) (int, error)
	// ReadAvailable collects bytes until the line has been idle for idle
	// and returns whatever arrived, which may be nothing.
	ReadAvailable(ctx context.Context, idle time.Duration) ([]byte, error)
	// Break holds the line low for d and releases it.
	Break(d time.Duration) error
	SetBaudRate(rate int) error
	Close() error
}

const (
	InitBaudRate  = 10400
	ReadBaudRate  = 64200
	WriteBaudRate = 38400
)
