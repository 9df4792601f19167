package dali

import (
	"bytes"
	"fmt"
)

// Frame delimiters. The gateway speaks ASCII-hex between a start-of-header
// and end-of-transmission-block byte.
const (
	soh byte = 0x01
	etb byte = 0x17
)

// maxPayloadLen bounds a single message payload. The largest legitimate
// message is a firmware block write; anything beyond this is garbage.
const maxPayloadLen = 255

// Checksum computes the frame checksum: the one's complement of the
// truncated 8-bit sum of the payload bytes.
func Checksum(payload []byte) uint8 {
	var sum uint8
	for _, b := range payload {
		sum += b
	}
	return ^sum
}

const hexDigits = "0123456789ABCDEF"

// EncodeFrame wraps a binary payload into a wire frame: SOH, the payload
// and checksum as uppercase ASCII-hex, ETB.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrLengthMismatch)
	}
	if len(payload) > maxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(payload))
	}

	out := make([]byte, 0, 2*len(payload)+4)
	out = append(out, soh)
	for _, b := range payload {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0F])
	}
	sum := Checksum(payload)
	out = append(out, hexDigits[sum>>4], hexDigits[sum&0x0F])
	out = append(out, etb)
	return out, nil
}

// hexNibble accepts uppercase and lowercase digits; the gateway emits
// uppercase but tolerance costs nothing on receive.
func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// DecodeFrame parses one complete wire frame (SOH through ETB) and returns
// the verified payload. The input must be exactly one frame.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < 6 || frame[0] != soh || frame[len(frame)-1] != etb {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedFrame, len(frame))
	}

	hex := frame[1 : len(frame)-1]
	if len(hex)%2 != 0 {
		return nil, fmt.Errorf("%w: odd hex length %d", ErrMalformedHex, len(hex))
	}

	raw := make([]byte, len(hex)/2)
	for i := 0; i < len(raw); i++ {
		hi, ok1 := hexNibble(hex[2*i])
		lo, ok2 := hexNibble(hex[2*i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: byte %d", ErrMalformedHex, i)
		}
		raw[i] = hi<<4 | lo
	}

	payload, sum := raw[:len(raw)-1], raw[len(raw)-1]
	if got := Checksum(payload); got != sum {
		return nil, fmt.Errorf("%w: want 0x%02X, got 0x%02X", ErrChecksumMismatch, sum, got)
	}
	return payload, nil
}

// frameBuffer reassembles frames from a TCP byte stream. Bytes outside a
// SOH..ETB window are discarded, so a torn frame or line noise only costs
// the affected frame.
type frameBuffer struct {
	buf bytes.Buffer
}

// Append adds raw stream bytes to the buffer.
func (fb *frameBuffer) Append(data []byte) {
	fb.buf.Write(data)
}

// Next extracts the next complete frame from the buffer, or nil if none is
// buffered yet. Leading garbage before the next SOH is dropped.
func (fb *frameBuffer) Next() []byte {
	data := fb.buf.Bytes()

	start := bytes.IndexByte(data, soh)
	if start < 0 {
		fb.buf.Reset()
		return nil
	}
	if start > 0 {
		fb.buf.Next(start)
		data = fb.buf.Bytes()
	}

	end := bytes.IndexByte(data, etb)
	if end < 0 {
		// Unbounded junk after a stray SOH would grow forever.
		if fb.buf.Len() > 4*maxPayloadLen {
			fb.buf.Reset()
		}
		return nil
	}

	frame := make([]byte, end+1)
	copy(frame, data[:end+1])
	fb.buf.Next(end + 1)
	return frame
}
