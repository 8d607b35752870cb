package kwp2000

// Checksum is the unsigned 8 bit wraparound sum of b.
func Checksum(b []byte) byte {
	var cs byte
	for _, v := range b {
		cs += v
	}
	return cs
}

// Frame returns a copy of payload with its checksum trailer appended.
func Frame(payload []byte) []byte {
	out := make([]byte, len(payload)+1)
	copy(out, payload)
	out[len(payload)] = Checksum(payload)
	return out
}

// Validate checks the trailer of a response that starts with echoedLen
// bytes of echoed request. It returns the device payload without echo and
// trailer.
func Validate(echoedLen int, response []byte) ([]byte, error) {
	if echoedLen < 0 || len(response) <= echoedLen {
		return nil, ErrShortRead
	}
	end := len(response) - 1
	payload := response[echoedLen:end]
	if cs := Checksum(payload); cs != response[end] {
		return nil, &ChecksumError{Want: cs, Got: response[end]}
	}
	return payload, nil
}
