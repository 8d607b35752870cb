package gokline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/roffe/gokline/pkg/kwp2000"
)

func TestErrorChains(t *testing.T) {
	cause := errors.New("input/output error")
	tests := []struct {
		name string
		err  error
		is   []error
		not  []error
	}{
		{
			name: "transport",
			err:  Step("start communication", &TransportError{Op: "write", Err: cause}),
			is:   []error{ErrTransport, cause},
			not:  []error{ErrTimeout},
		},
		{
			name: "timeout",
			err:  Step("read identification", &TimeoutError{Timeout: 50 * time.Millisecond, Type: "response"}),
			is:   []error{ErrTimeout},
			not:  []error{ErrTransport},
		},
		{
			name: "checksum",
			err:  Step("request block 7", &kwp2000.ChecksumError{Want: 0x12, Got: 0x13}),
			is:   []error{ErrChecksumMismatch},
			not:  []error{ErrShortRead},
		},
		{
			name: "partial block",
			err:  Step("read block 7 offset 0x0120", fmt.Errorf("%w: got 40 bytes", ErrPartialBlock)),
			is:   []error{ErrPartialBlock},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, target := range tt.is {
				if !errors.Is(tt.err, target) {
					t.Errorf("%v is not %v", tt.err, target)
				}
			}
			for _, target := range tt.not {
				if errors.Is(tt.err, target) {
					t.Errorf("%v unexpectedly is %v", tt.err, target)
				}
			}
			var step *StepError
			if !errors.As(tt.err, &step) || step.Step == "" {
				t.Errorf("%v carries no step", tt.err)
			}
		})
	}
}

func TestStepNil(t *testing.T) {
	if err := Step("anything", nil); err != nil {
		t.Errorf("Step(nil) = %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	err := Step("read block 7 offset 0x0120", &TimeoutError{Timeout: 50 * time.Millisecond, Type: "response"})
	if got, want := err.Error(), "read block 7 offset 0x0120: response timeout (50ms)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
