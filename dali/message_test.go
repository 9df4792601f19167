package dali

import (
	"bytes"
	"errors"
	"testing"
)

func TestClassifyInputNotification(t *testing.T) {
	// 24-bit input notification observed on the bus: short address 0x50,
	// instance 0, event code 0x02.
	payload := []byte{0x04, 0x18, 0xA1, 0xE0, 0x02}

	msg, err := Classify(payload)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	m, ok := msg.(RecvNoAnswerSpont)
	if !ok {
		t.Fatalf("Classify() = %T, want RecvNoAnswerSpont", msg)
	}
	if m.Bits != 24 {
		t.Fatalf("Bits = %d, want 24", m.Bits)
	}

	n, err := DecodeInputNotification(m.Frame)
	if err != nil {
		t.Fatalf("DecodeInputNotification() error = %v", err)
	}
	if n.Kind != AddressShort {
		t.Errorf("Kind = %v, want short", n.Kind)
	}
	if n.Address != 0x50 {
		t.Errorf("Address = 0x%02X, want 0x50", n.Address)
	}
	if n.Instance != 0 {
		t.Errorf("Instance = %d, want 0", n.Instance)
	}
	if n.Code != EventCode(0x02) {
		t.Errorf("Code = 0x%02X, want 0x02", uint8(n.Code))
	}
}

func TestDecodeInputNotificationAddressing(t *testing.T) {
	tests := []struct {
		name     string
		frame    []byte
		kind     AddressKind
		address  uint8
		instance uint8
	}{
		{"short address 0", []byte{0x01, 0x00, 0x00}, AddressShort, 0, 0},
		{"short address 5", []byte{0x0B, 0x02, 0x01}, AddressShort, 5, 2},
		{"group address 3", []byte{0x86, 0x01, 0x00}, AddressGroup, 3, 1},
		{"broadcast", []byte{0xFF, 0x00, 0x00}, AddressBroadcast, 0, 0},
		{"instance type masked", []byte{0x0B, 0xE4, 0x01}, AddressShort, 5, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := DecodeInputNotification(tt.frame)
			if err != nil {
				t.Fatalf("DecodeInputNotification() error = %v", err)
			}
			if n.Kind != tt.kind || n.Address != tt.address || n.Instance != tt.instance {
				t.Errorf("got %v/%d/%d, want %v/%d/%d",
					n.Kind, n.Address, n.Instance, tt.kind, tt.address, tt.instance)
			}
		})
	}
}

func TestClassifyCollision(t *testing.T) {
	// Differentiated confirmation with a zero-length answer: the answer
	// collided on the bus, a valid outcome.
	msg, err := Classify([]byte{0x0D, 0x10, 0x00, 0xFF, 0x90})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	m, ok := msg.(RecvAnswerDiff)
	if !ok {
		t.Fatalf("Classify() = %T, want RecvAnswerDiff", msg)
	}
	if !m.Collision() {
		t.Error("Collision() = false, want true")
	}
	if !bytes.Equal(m.Command, []byte{0xFF, 0x90}) {
		t.Errorf("Command = % X, want FF 90", m.Command)
	}
}

func TestClassifyAnswer(t *testing.T) {
	msg, err := Classify([]byte{0x0D, 0x10, 0x08, 0xA1, 0xA0, 0xFE})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	m := msg.(RecvAnswerDiff)
	if m.Collision() {
		t.Error("Collision() = true, want false")
	}
	if !bytes.Equal(m.Answer, []byte{0xFE}) {
		t.Errorf("Answer = % X, want FE", m.Answer)
	}
}

func TestClassifyBusFramingError(t *testing.T) {
	// RecvNoAnswerSpont with declared length zero is a documented bus
	// framing error outcome, not a decode failure.
	msg, err := Classify([]byte{0x04, 0x00})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	m, ok := msg.(RecvNoAnswerSpont)
	if !ok {
		t.Fatalf("Classify() = %T, want RecvNoAnswerSpont", msg)
	}
	if !m.FramingError() {
		t.Error("FramingError() = false, want true")
	}
}

func TestClassifySpontaneousAnswer(t *testing.T) {
	msg, err := Classify([]byte{0x03, 0x10, 0xA1, 0xA0, 0x08, 0x64})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	m := msg.(RecvAnswerSpont)
	if m.Bits != 16 || !bytes.Equal(m.Frame, []byte{0xA1, 0xA0}) {
		t.Errorf("Frame = % X (bits %d), want A1 A0 (16)", m.Frame, m.Bits)
	}
	if !bytes.Equal(m.Answer, []byte{0x64}) {
		t.Errorf("Answer = % X, want 64", m.Answer)
	}
}

func TestClassifySpecialEvent(t *testing.T) {
	msg, err := Classify([]byte{0x05, 0x01})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	m := msg.(SpecialEvent)
	if m.Code != SpecialPowerLoss {
		t.Errorf("Code = %v, want power loss", m.Code)
	}
	if !m.Code.Fault() {
		t.Error("Fault() = false, want true")
	}
}

func TestClassifyConfig(t *testing.T) {
	msg, err := Classify([]byte{0x07, 0x02, 0x01, 0x2A})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if m := msg.(ConfigResponse); m.Item != 2 || m.Value != 0x012A {
		t.Errorf("got item %d value 0x%04X, want 2/0x012A", m.Item, m.Value)
	}

	msg, err = Classify([]byte{0x09, 0x05, 0x01})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if m := msg.(ConfigAck); m.Item != 5 || m.Status != ConfigAckReadOnly {
		t.Errorf("got item %d status %v, want 5/read-only", m.Item, m.Status)
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    error
	}{
		{"empty", nil, ErrLengthMismatch},
		{"unknown type", []byte{0x42, 0x00}, ErrUnknownType},
		{"answer length overruns payload", []byte{0x0D, 0x10, 0x08, 0xFF, 0x90}, ErrLengthMismatch},
		{"frame shorter than declared", []byte{0x04, 0x18, 0xA1}, ErrLengthMismatch},
		{"frame longer than declared", []byte{0x04, 0x08, 0xA1, 0xE0}, ErrLengthMismatch},
		{"special event truncated", []byte{0x05}, ErrLengthMismatch},
		{"config response truncated", []byte{0x07, 0x02}, ErrLengthMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.payload)
			if !errors.Is(err, tt.want) {
				t.Errorf("Classify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMarshalSendDiff(t *testing.T) {
	payload, err := Marshal(SendDiff{
		Frame:     []byte{0xFF, 0x90},
		Bits:      16,
		SendTwice: true,
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := []byte{0x0B, 0x00, 0x10, 0xFF, 0x90, 0x01}
	if !bytes.Equal(payload, want) {
		t.Fatalf("Marshal() = % X, want % X", payload, want)
	}

	// The same command inside a sequence carries the sequence flag too.
	payload, err = Marshal(SendDiff{
		Frame:     []byte{0xFF, 0x90},
		Bits:      16,
		SendTwice: true,
		Sequence:  true,
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if payload[len(payload)-1] != FlagSendTwice|FlagSequence {
		t.Fatalf("flags = 0x%02X, want 0x%02X", payload[len(payload)-1], FlagSendTwice|FlagSequence)
	}
}

func TestMarshalClassifyRoundTrip(t *testing.T) {
	msgs := []Message{
		SendLegacy{Frame: []byte{0xFF, 0x00}, Bits: 16},
		SendDiff{Frame: []byte{0xA1, 0x90}, Bits: 16, SendTwice: true},
		ContinuousSend{Priority: 1, Frame: []byte{0xFE, 0x80}, Bits: 16, Period: 10},
		ConfigQuery{Item: 2},
		ChangeConfig{Item: 5, Value: 0x0102},
		SequenceEnd{},
		FirmwareWrite{Block: 0x0102, Data: []byte{0xDE, 0xAD}},
	}
	for _, msg := range msgs {
		payload, err := Marshal(msg)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", msg.Type(), err)
		}
		got, err := Classify(payload)
		if err != nil {
			t.Fatalf("Classify(%v) error = %v", msg.Type(), err)
		}
		if got.Type() != msg.Type() {
			t.Errorf("round trip type = %v, want %v", got.Type(), msg.Type())
		}
	}
}

func TestMarshalFrameBitsMismatch(t *testing.T) {
	_, err := Marshal(SendDiff{Frame: []byte{0xFF}, Bits: 16})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("Marshal() error = %v, want length mismatch", err)
	}
}
