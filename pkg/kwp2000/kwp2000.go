package kwp2000

import "fmt"

const (
	START_DIAGNOSTIC_SESSION           = 0x10
	READ_ECU_IDENTIFICATION            = 0x1A
	SECURITY_ACCESS                    = 0x27
	START_ROUTINE_BY_LOCAL_IDENTIFIER  = 0x31
	REQUEST_DOWNLOAD                   = 0x34
	TRANSFER_DATA                      = 0x36
	REQUEST_TRANSFER_EXIT              = 0x37
	WRITE_DATA_BY_LOCAL_IDENTIFIER     = 0x3B
	START_COMMUNICATION                = 0x81
	ACCESS_TIMING_PARAMETERS           = 0x83
	NEGATIVE_RESPONSE                  = 0x7F
	POSITIVE_RESPONSE_OFFSET           = 0x40
	SECURITY_ACCESS_POSITIVE_RESPONSE  = SECURITY_ACCESS + POSITIVE_RESPONSE_OFFSET
	TRANSFER_DATA_POSITIVE_RESPONSE    = TRANSFER_DATA + POSITIVE_RESPONSE_OFFSET
	REQUEST_DOWNLOAD_POSITIVE_RESPONSE = REQUEST_DOWNLOAD + POSITIVE_RESPONSE_OFFSET
)

const (
	AddrECU     = 0x10
	AddrTester  = 0xF1
	AddrSession = 0x01

	// MaxShortLength is the largest data length encoded in the format byte.
	MaxShortLength = 0x3F
	MaxLength      = 0xFF
)

// Message lays out a KWP2000 request: format byte, target, source and data.
// Data longer than MaxShortLength moves the length into a separate byte
// following the source address.
func Message(source byte, data ...byte) ([]byte, error) {
	n := len(data)
	switch {
	case n == 0:
		return nil, fmt.Errorf("empty message")
	case n > MaxLength:
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLong, n)
	case n <= MaxShortLength:
		out := make([]byte, 0, 3+n)
		out = append(out, 0x80|byte(n), AddrECU, source)
		return append(out, data...), nil
	default:
		out := make([]byte, 0, 4+n)
		out = append(out, 0x80, AddrECU, source, byte(n))
		return append(out, data...), nil
	}
}

// MustMessage is Message for fixed protocol constants.
func MustMessage(source byte, data ...byte) []byte {
	m, err := Message(source, data...)
	if err != nil {
		panic(err)
	}
	return m
}
