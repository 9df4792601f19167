package dali

import "fmt"

// Default TCP ports. The gateway exposes one port per DALI bus.
const (
	DefaultPortBus1 = 23
	DefaultPortBus2 = 24
)

// MessageType is the first byte of a decoded frame payload.
type MessageType uint8

// Message types sent to the gateway (master -> converter).
const (
	TypeSendLegacy     MessageType = 0x01
	TypeConfigQuery    MessageType = 0x06
	TypeChangeConfig   MessageType = 0x08
	TypeSequenceEnd    MessageType = 0x0A
	TypeSendDiff       MessageType = 0x0B
	TypeContinuousSend MessageType = 0x0C
	TypeFirmwareWrite  MessageType = 0xFE
)

// Message types received from the gateway (converter -> master).
const (
	TypeRecvAnswerSpont   MessageType = 0x03
	TypeRecvNoAnswerSpont MessageType = 0x04
	TypeSpecialEvent      MessageType = 0x05
	TypeConfigResponse    MessageType = 0x07
	TypeConfigAck         MessageType = 0x09
	TypeRecvAnswerDiff    MessageType = 0x0D
	TypeRecvNoAnswerDiff  MessageType = 0x0E
	TypeFirmwareAck       MessageType = 0xFF
)

func (t MessageType) String() string {
	names := map[MessageType]string{
		TypeSendLegacy:        "send-legacy",
		TypeConfigQuery:       "config-query",
		TypeChangeConfig:      "change-config",
		TypeSequenceEnd:       "sequence-end",
		TypeSendDiff:          "send-diff",
		TypeContinuousSend:    "continuous-send",
		TypeFirmwareWrite:     "firmware-write",
		TypeRecvAnswerSpont:   "recv-answer-spontaneous",
		TypeRecvNoAnswerSpont: "recv-no-answer-spontaneous",
		TypeSpecialEvent:      "special-event",
		TypeConfigResponse:    "config-response",
		TypeConfigAck:         "config-ack",
		TypeRecvAnswerDiff:    "recv-answer-differentiated",
		TypeRecvNoAnswerDiff:  "recv-no-answer-differentiated",
		TypeFirmwareAck:       "firmware-ack",
	}
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("message-type(0x%02X)", uint8(t))
}

// Flags carried in the trailing parameter byte of a send-diff message.
const (
	FlagSendTwice uint8 = 0x01
	FlagSequence  uint8 = 0x02
)

// SpecialEventCode identifies a gateway status event (type 0x05).
type SpecialEventCode uint8

const (
	SpecialValidPower      SpecialEventCode = 0
	SpecialPowerLoss       SpecialEventCode = 1
	SpecialMainsVoltage    SpecialEventCode = 2
	SpecialDefectiveSupply SpecialEventCode = 3
	SpecialBufferFull      SpecialEventCode = 4
	SpecialChecksumError   SpecialEventCode = 5
	SpecialInvalidCommand  SpecialEventCode = 6
)

func (c SpecialEventCode) String() string {
	names := map[SpecialEventCode]string{
		SpecialValidPower:      "valid-dali-power",
		SpecialPowerLoss:       "dali-power-loss",
		SpecialMainsVoltage:    "mains-voltage-on-bus",
		SpecialDefectiveSupply: "defective-power-supply",
		SpecialBufferFull:      "message-buffer-full",
		SpecialChecksumError:   "checksum-error",
		SpecialInvalidCommand:  "invalid-command",
	}
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("special-event(%d)", uint8(c))
}

// Fault reports whether the code indicates a bus power or hardware fault.
func (c SpecialEventCode) Fault() bool {
	return c == SpecialPowerLoss || c == SpecialMainsVoltage || c == SpecialDefectiveSupply
}

// ConfigAckStatus is the status byte of a config-ack message (type 0x09).
type ConfigAckStatus uint8

const (
	ConfigAckOK         ConfigAckStatus = 0
	ConfigAckReadOnly   ConfigAckStatus = 1
	ConfigAckOutOfRange ConfigAckStatus = 2
)

func (s ConfigAckStatus) String() string {
	switch s {
	case ConfigAckOK:
		return "ok"
	case ConfigAckReadOnly:
		return "read-only"
	case ConfigAckOutOfRange:
		return "out-of-range"
	default:
		return fmt.Sprintf("config-ack-status(%d)", uint8(s))
	}
}

// Gateway configuration item numbers.
const (
	ConfigItemFirmwareVersion uint8 = 0x02
)

// EventCode is a raw DALI-2 input notification event code (IEC 62386-301).
type EventCode uint8

const (
	EventButtonPressed   EventCode = 0x00
	EventButtonReleased  EventCode = 0x01
	EventShortPress      EventCode = 0x02
	EventDoublePress     EventCode = 0x03
	EventLongPressStart  EventCode = 0x04
	EventLongPressRepeat EventCode = 0x05
	EventLongPressStop   EventCode = 0x06
	EventButtonStuck     EventCode = 0x07
	EventButtonFree      EventCode = 0x08

	// EventTriplePress is emitted by the gesture reconstructor only; input
	// devices have no wire code for it.
	EventTriplePress EventCode = 0x09
)

func (c EventCode) String() string {
	names := map[EventCode]string{
		EventButtonPressed:   "button_pressed",
		EventButtonReleased:  "button_released",
		EventShortPress:      "short_press",
		EventDoublePress:     "double_press",
		EventLongPressStart:  "long_press_start",
		EventLongPressRepeat: "long_press_repeat",
		EventLongPressStop:   "long_press_stop",
		EventButtonStuck:     "button_stuck",
		EventButtonFree:      "button_free",
		EventTriplePress:     "triple_press",
	}
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("event-code(0x%02X)", uint8(c))
}

// DALI standard command opcodes (IEC 62386-102).
const (
	CmdOff                     uint8 = 0x00
	CmdRecallMaxLevel          uint8 = 0x05
	CmdSetFadeTime             uint8 = 0x2F
	CmdQueryControlGearPresent uint8 = 0x90
	CmdQueryActualLevel        uint8 = 0xA0
	CmdDTR0                    uint8 = 0xA3
	CmdQueryDeviceType         uint8 = 0xFC
)

// Broadcast is the DALI broadcast addressing byte.
const Broadcast uint8 = 0xFF

// AddressKind is the addressing mode of a DALI-2 input notification.
type AddressKind uint8

const (
	AddressShort AddressKind = iota
	AddressGroup
	AddressBroadcast
)

func (k AddressKind) String() string {
	switch k {
	case AddressShort:
		return "short"
	case AddressGroup:
		return "group"
	case AddressBroadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("address-kind(%d)", uint8(k))
	}
}

// InputNotification is a decoded 24-bit DALI-2 input device frame.
//
// The addressing byte carries the address in its upper seven bits; group
// frames use the 10xxxxx0 pattern and 0xFF is broadcast. The instance byte
// keeps its upper three bits as the instance-type field, the lower five are
// the instance number.
type InputNotification struct {
	Kind         AddressKind
	Address      uint8
	Instance     uint8
	InstanceType uint8
	Code         EventCode
}

// DecodeInputNotification parses a 3-byte DALI-2 input notification frame.
func DecodeInputNotification(frame []byte) (InputNotification, error) {
	if len(frame) != 3 {
		return InputNotification{}, fmt.Errorf("%w: input notification needs 3 bytes, got %d", ErrLengthMismatch, len(frame))
	}

	n := InputNotification{
		Instance:     frame[1] & 0x1F,
		InstanceType: frame[1] >> 5,
		Code:         EventCode(frame[2]),
	}

	addr := frame[0]
	switch {
	case addr == 0xFF:
		n.Kind = AddressBroadcast
	case addr>>6 == 0b10 && addr&0x01 == 0:
		n.Kind = AddressGroup
		n.Address = (addr >> 1) & 0x0F
	default:
		n.Kind = AddressShort
		n.Address = (addr >> 1) & 0x7F
	}

	return n, nil
}

// Key returns the identity this notification belongs to.
func (n InputNotification) Key() ButtonKey {
	return ButtonKey{Kind: n.Kind, Address: n.Address, Instance: n.Instance}
}

func (n InputNotification) String() string {
	if n.Kind == AddressBroadcast {
		return fmt.Sprintf("input(broadcast, instance=%d, %s)", n.Instance, n.Code)
	}
	return fmt.Sprintf("input(%s=%d, instance=%d, %s)", n.Kind, n.Address, n.Instance, n.Code)
}

// ButtonKey identifies one button on the bus.
type ButtonKey struct {
	Kind     AddressKind
	Address  uint8
	Instance uint8
}

func (k ButtonKey) String() string {
	return fmt.Sprintf("%s:%d/%d", k.Kind, k.Address, k.Instance)
}

// bitsToBytes rounds a bit-length field up to whole bytes.
func bitsToBytes(bits uint8) int {
	return (int(bits) + 7) / 8
}
