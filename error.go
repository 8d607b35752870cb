package gokline

import (
	"errors"
	"fmt"
	"time"

	"github.com/roffe/gokline/pkg/firmware"
	"github.com/roffe/gokline/pkg/kwp2000"
)

var (
	ErrTransport        = errors.New("transport error")
	ErrTimeout          = errors.New("timeout")
	ErrShortRead        = kwp2000.ErrShortRead
	ErrChecksumMismatch = kwp2000.ErrChecksumMismatch
	ErrPartialBlock     = errors.New("partial block")
	ErrAuthRejected     = errors.New("security access rejected")
	ErrAuthExhausted    = errors.New("could not retrieve challenge")
	ErrInvalidImageSize = firmware.ErrInvalidImageSize
	ErrNilTransport     = errors.New("transport is nil")
)

// TransportError wraps a failure reported by the OS serial layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

type TimeoutError struct {
	Timeout time.Duration
	Type    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout (%dms)", e.Type, e.Timeout.Milliseconds())
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// StepError names the protocol step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Step wraps err with the name of the failing step, nil stays nil.
func Step(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}
