package dali

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrTimeout          = errors.New("dali: request timeout")
	ErrConnectionLost   = errors.New("dali: connection lost")
	ErrConnectionClosed = errors.New("dali: connection closed")
	ErrNotConnected     = errors.New("dali: not connected")
	ErrAlreadyConnected = errors.New("dali: already connected")
	ErrChecksumMismatch = errors.New("dali: checksum mismatch")
	ErrMalformedHex     = errors.New("dali: malformed hex payload")
	ErrTruncatedFrame   = errors.New("dali: truncated frame")
	ErrUnknownType      = errors.New("dali: unknown message type")
	ErrLengthMismatch   = errors.New("dali: payload length mismatch")
	ErrInvalidAddress   = errors.New("dali: invalid address")
	ErrInvalidLevel     = errors.New("dali: invalid level")
	ErrInvalidFadeTime  = errors.New("dali: invalid fade time")
	ErrFrameTooLong     = errors.New("dali: frame too long")
)

// ConfigAckError reports a rejected configuration change (type 0x09 with a
// non-zero status). It is not retried.
type ConfigAckError struct {
	Item   uint8
	Status ConfigAckStatus
}

func (e *ConfigAckError) Error() string {
	return fmt.Sprintf("dali: config change rejected: item=%d, status=%s", e.Item, e.Status)
}

func (e *ConfigAckError) Is(target error) bool {
	t, ok := target.(*ConfigAckError)
	if !ok {
		return false
	}
	return e.Item == t.Item && e.Status == t.Status
}

// FirmwareError reports a failed firmware block write (type 0xFF with a
// non-zero status).
type FirmwareError struct {
	Block  uint16
	Status uint8
}

func (e *FirmwareError) Error() string {
	return fmt.Sprintf("dali: firmware write failed: block=%d, status=%d", e.Block, e.Status)
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsConnectionLost returns true if the error indicates the TCP session
// dropped while a request was in flight.
func IsConnectionLost(err error) bool {
	return errors.Is(err, ErrConnectionLost)
}

// IsDecodeError returns true for any frame or payload decode failure.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrMalformedHex) ||
		errors.Is(err, ErrTruncatedFrame) ||
		errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrLengthMismatch)
}
