package dali

import "fmt"

// Message is a classified gateway message. The concrete type mirrors the
// message type byte.
type Message interface {
	Type() MessageType
}

// SendLegacy transmits a DALI frame without differentiated confirmation.
// Replies come back as spontaneous receive messages.
type SendLegacy struct {
	Frame []byte // DALI frame bytes, most significant first
	Bits  uint8
}

func (SendLegacy) Type() MessageType { return TypeSendLegacy }

// SendDiff transmits a DALI frame with differentiated confirmation: the
// gateway answers with RecvAnswerDiff or RecvNoAnswerDiff.
type SendDiff struct {
	Priority  uint8
	Frame     []byte
	Bits      uint8
	SendTwice bool
	Sequence  bool
}

func (SendDiff) Type() MessageType { return TypeSendDiff }

// ContinuousSend repeats a DALI frame at a fixed period until replaced.
type ContinuousSend struct {
	Priority uint8
	Frame    []byte
	Bits     uint8
	Period   uint8
}

func (ContinuousSend) Type() MessageType { return TypeContinuousSend }

// ConfigQuery asks for a gateway configuration item.
type ConfigQuery struct {
	Item uint8
}

func (ConfigQuery) Type() MessageType { return TypeConfigQuery }

// ChangeConfig writes a gateway configuration item.
type ChangeConfig struct {
	Item  uint8
	Value uint16
}

func (ChangeConfig) Type() MessageType { return TypeChangeConfig }

// SequenceEnd aborts an open transaction sequence on the gateway.
type SequenceEnd struct{}

func (SequenceEnd) Type() MessageType { return TypeSequenceEnd }

// FirmwareWrite uploads one firmware block.
type FirmwareWrite struct {
	Block uint16
	Data  []byte
}

func (FirmwareWrite) Type() MessageType { return TypeFirmwareWrite }

// RecvAnswerSpont is a bus frame the gateway observed together with its
// backward answer. Answer == nil with AnswerBits == 0 means the answer
// collided on the bus.
type RecvAnswerSpont struct {
	Frame      []byte
	Bits       uint8
	Answer     []byte
	AnswerBits uint8
}

func (RecvAnswerSpont) Type() MessageType { return TypeRecvAnswerSpont }

// Collision reports whether the backward answer was corrupted by collision.
func (m RecvAnswerSpont) Collision() bool { return m.AnswerBits == 0 }

// RecvNoAnswerSpont is a bus frame observed without a backward answer.
// Bits == 0 marks a bus-level framing error, which is a reportable outcome
// rather than a decode failure.
type RecvNoAnswerSpont struct {
	Frame []byte
	Bits  uint8
}

func (RecvNoAnswerSpont) Type() MessageType { return TypeRecvNoAnswerSpont }

// FramingError reports whether the observed traffic was unreadable.
func (m RecvNoAnswerSpont) FramingError() bool { return m.Bits == 0 }

// SpecialEvent is a gateway status notification.
type SpecialEvent struct {
	Code SpecialEventCode
}

func (SpecialEvent) Type() MessageType { return TypeSpecialEvent }

// ConfigResponse carries a queried configuration item value.
type ConfigResponse struct {
	Item  uint8
	Value uint16
}

func (ConfigResponse) Type() MessageType { return TypeConfigResponse }

// ConfigAck confirms or rejects a configuration change.
type ConfigAck struct {
	Item   uint8
	Status ConfigAckStatus
}

func (ConfigAck) Type() MessageType { return TypeConfigAck }

// RecvAnswerDiff confirms a differentiated send that drew an answer.
// AnswerBits == 0 means the answer collided.
type RecvAnswerDiff struct {
	Command    []byte
	Bits       uint8
	Answer     []byte
	AnswerBits uint8
}

func (RecvAnswerDiff) Type() MessageType { return TypeRecvAnswerDiff }

// Collision reports whether the backward answer was corrupted by collision.
func (m RecvAnswerDiff) Collision() bool { return m.AnswerBits == 0 }

// RecvNoAnswerDiff confirms a differentiated send that drew no answer,
// echoing the transmitted command.
type RecvNoAnswerDiff struct {
	Command []byte
	Bits    uint8
}

func (RecvNoAnswerDiff) Type() MessageType { return TypeRecvNoAnswerDiff }

// FirmwareAck confirms or rejects a firmware block write.
type FirmwareAck struct {
	Status uint8
}

func (FirmwareAck) Type() MessageType { return TypeFirmwareAck }

// Marshal serializes an outbound message into a frame payload.
func Marshal(m Message) ([]byte, error) {
	switch v := m.(type) {
	case SendLegacy:
		if err := checkFrameBits(v.Frame, v.Bits); err != nil {
			return nil, err
		}
		p := make([]byte, 0, 2+len(v.Frame))
		p = append(p, byte(TypeSendLegacy), v.Bits)
		return append(p, v.Frame...), nil

	case SendDiff:
		if err := checkFrameBits(v.Frame, v.Bits); err != nil {
			return nil, err
		}
		var flags uint8
		if v.SendTwice {
			flags |= FlagSendTwice
		}
		if v.Sequence {
			flags |= FlagSequence
		}
		p := make([]byte, 0, 4+len(v.Frame))
		p = append(p, byte(TypeSendDiff), v.Priority, v.Bits)
		p = append(p, v.Frame...)
		return append(p, flags), nil

	case ContinuousSend:
		if err := checkFrameBits(v.Frame, v.Bits); err != nil {
			return nil, err
		}
		p := make([]byte, 0, 4+len(v.Frame))
		p = append(p, byte(TypeContinuousSend), v.Priority, v.Bits)
		p = append(p, v.Frame...)
		return append(p, v.Period), nil

	case ConfigQuery:
		return []byte{byte(TypeConfigQuery), v.Item}, nil

	case ChangeConfig:
		return []byte{byte(TypeChangeConfig), v.Item, byte(v.Value >> 8), byte(v.Value)}, nil

	case SequenceEnd:
		return []byte{byte(TypeSequenceEnd)}, nil

	case FirmwareWrite:
		p := make([]byte, 0, 3+len(v.Data))
		p = append(p, byte(TypeFirmwareWrite), byte(v.Block>>8), byte(v.Block))
		return append(p, v.Data...), nil

	default:
		return nil, fmt.Errorf("%w: cannot marshal %s", ErrUnknownType, m.Type())
	}
}

func checkFrameBits(frame []byte, bits uint8) error {
	if bits == 0 {
		return fmt.Errorf("%w: zero-length frame", ErrLengthMismatch)
	}
	if want := bitsToBytes(bits); want != len(frame) {
		return fmt.Errorf("%w: %d bits need %d bytes, got %d", ErrLengthMismatch, bits, want, len(frame))
	}
	return nil
}

// Classify parses a decoded frame payload into its message variant. Length
// fields must be consistent with the payload extent.
func Classify(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrLengthMismatch)
	}

	t := MessageType(payload[0])
	body := payload[1:]

	switch t {
	case TypeRecvAnswerSpont:
		if len(body) < 2 {
			return nil, lengthErr(t, len(payload))
		}
		bits := body[0]
		n := bitsToBytes(bits)
		if len(body) < 1+n+1 {
			return nil, lengthErr(t, len(payload))
		}
		ansBits := body[1+n]
		ansN := bitsToBytes(ansBits)
		if len(body) != 1+n+1+ansN {
			return nil, lengthErr(t, len(payload))
		}
		m := RecvAnswerSpont{Bits: bits, AnswerBits: ansBits}
		m.Frame = cloneBytes(body[1 : 1+n])
		if ansN > 0 {
			m.Answer = cloneBytes(body[2+n:])
		}
		return m, nil

	case TypeRecvNoAnswerSpont:
		if len(body) < 1 {
			return nil, lengthErr(t, len(payload))
		}
		bits := body[0]
		if len(body) != 1+bitsToBytes(bits) {
			return nil, lengthErr(t, len(payload))
		}
		return RecvNoAnswerSpont{Frame: cloneBytes(body[1:]), Bits: bits}, nil

	case TypeSpecialEvent:
		if len(body) != 1 {
			return nil, lengthErr(t, len(payload))
		}
		return SpecialEvent{Code: SpecialEventCode(body[0])}, nil

	case TypeConfigResponse:
		if len(body) != 3 {
			return nil, lengthErr(t, len(payload))
		}
		return ConfigResponse{Item: body[0], Value: uint16(body[1])<<8 | uint16(body[2])}, nil

	case TypeConfigAck:
		if len(body) != 2 {
			return nil, lengthErr(t, len(payload))
		}
		return ConfigAck{Item: body[0], Status: ConfigAckStatus(body[1])}, nil

	case TypeRecvAnswerDiff:
		if len(body) < 2 {
			return nil, lengthErr(t, len(payload))
		}
		bits, ansBits := body[0], body[1]
		n, ansN := bitsToBytes(bits), bitsToBytes(ansBits)
		if len(body) != 2+n+ansN {
			return nil, lengthErr(t, len(payload))
		}
		m := RecvAnswerDiff{Bits: bits, AnswerBits: ansBits}
		m.Command = cloneBytes(body[2 : 2+n])
		if ansN > 0 {
			m.Answer = cloneBytes(body[2+n:])
		}
		return m, nil

	case TypeRecvNoAnswerDiff:
		if len(body) < 1 {
			return nil, lengthErr(t, len(payload))
		}
		bits := body[0]
		if len(body) != 1+bitsToBytes(bits) {
			return nil, lengthErr(t, len(payload))
		}
		return RecvNoAnswerDiff{Command: cloneBytes(body[1:]), Bits: bits}, nil

	case TypeFirmwareAck:
		if len(body) != 1 {
			return nil, lengthErr(t, len(payload))
		}
		return FirmwareAck{Status: body[0]}, nil

	case TypeSendLegacy:
		if len(body) < 1 {
			return nil, lengthErr(t, len(payload))
		}
		bits := body[0]
		if len(body) != 1+bitsToBytes(bits) {
			return nil, lengthErr(t, len(payload))
		}
		return SendLegacy{Frame: cloneBytes(body[1:]), Bits: bits}, nil

	case TypeSendDiff:
		if len(body) < 3 {
			return nil, lengthErr(t, len(payload))
		}
		bits := body[1]
		n := bitsToBytes(bits)
		if len(body) != 2+n+1 {
			return nil, lengthErr(t, len(payload))
		}
		flags := body[2+n]
		return SendDiff{
			Priority:  body[0],
			Frame:     cloneBytes(body[2 : 2+n]),
			Bits:      bits,
			SendTwice: flags&FlagSendTwice != 0,
			Sequence:  flags&FlagSequence != 0,
		}, nil

	case TypeContinuousSend:
		if len(body) < 3 {
			return nil, lengthErr(t, len(payload))
		}
		bits := body[1]
		n := bitsToBytes(bits)
		if len(body) != 2+n+1 {
			return nil, lengthErr(t, len(payload))
		}
		return ContinuousSend{
			Priority: body[0],
			Frame:    cloneBytes(body[2 : 2+n]),
			Bits:     bits,
			Period:   body[2+n],
		}, nil

	case TypeConfigQuery:
		if len(body) != 1 {
			return nil, lengthErr(t, len(payload))
		}
		return ConfigQuery{Item: body[0]}, nil

	case TypeChangeConfig:
		if len(body) != 3 {
			return nil, lengthErr(t, len(payload))
		}
		return ChangeConfig{Item: body[0], Value: uint16(body[1])<<8 | uint16(body[2])}, nil

	case TypeSequenceEnd:
		if len(body) != 0 {
			return nil, lengthErr(t, len(payload))
		}
		return SequenceEnd{}, nil

	case TypeFirmwareWrite:
		if len(body) < 2 {
			return nil, lengthErr(t, len(payload))
		}
		return FirmwareWrite{
			Block: uint16(body[0])<<8 | uint16(body[1]),
			Data:  cloneBytes(body[2:]),
		}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownType, payload[0])
	}
}

func lengthErr(t MessageType, n int) error {
	return fmt.Errorf("%w: %s with %d payload bytes", ErrLengthMismatch, t, n)
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
