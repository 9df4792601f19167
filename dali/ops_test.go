package dali

import (
	"context"
	"errors"
	"testing"
	"time"
)

// respondToQueries answers every written differentiated send with its
// echo, and with a single-byte answer for addresses in answering.
func respondToQueries(t *testing.T, ft *fakeTransport, answering map[uint8]uint8, n int) {
	t.Helper()
	go func() {
		for i := 0; i < n; i++ {
			payload := ft.awaitWrite(t)
			msg, err := Classify(payload)
			if err != nil {
				t.Errorf("Classify(written) error = %v", err)
				return
			}
			sent, ok := msg.(SendDiff)
			if !ok {
				t.Errorf("client wrote %T, want SendDiff", msg)
				return
			}
			addr := sent.Frame[0] >> 1
			if answer, ok := answering[addr]; ok {
				ft.inject(t, append(append([]byte{0x0D, sent.Bits, 0x08}, sent.Frame...), answer))
			} else {
				ft.inject(t, append([]byte{0x0E, sent.Bits}, sent.Frame...))
			}
		}
	}()
}

func TestSetLevelFrame(t *testing.T) {
	c, ft := newTestClient(t)

	go func() {
		payload := ft.awaitWrite(t)
		msg, _ := Classify(payload)
		sent := msg.(SendDiff)
		// Direct arc power: address in the upper seven bits, bit 0 clear.
		if sent.Frame[0] != 0x0A || sent.Frame[1] != 0x80 {
			t.Errorf("frame = % X, want 0A 80", sent.Frame)
		}
		ft.inject(t, append([]byte{0x0E, sent.Bits}, sent.Frame...))
	}()

	if err := c.SetLevel(context.Background(), 5, 128); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
}

func TestSetLevelValidation(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.SetLevel(context.Background(), 64, 100); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("address 64 error = %v, want invalid address", err)
	}
	if err := c.SetLevel(context.Background(), 0, 255); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("level 255 error = %v, want invalid level", err)
	}
}

func TestBroadcastFrames(t *testing.T) {
	c, ft := newTestClient(t)

	go func() {
		payload := ft.awaitWrite(t)
		msg, _ := Classify(payload)
		sent := msg.(SendDiff)
		if sent.Frame[0] != 0xFF || sent.Frame[1] != CmdOff {
			t.Errorf("frame = % X, want FF 00", sent.Frame)
		}
		ft.inject(t, append([]byte{0x0E, sent.Bits}, sent.Frame...))
	}()

	if err := c.BroadcastOff(context.Background()); err != nil {
		t.Fatalf("BroadcastOff() error = %v", err)
	}
}

func TestSetFadeTimeValidation(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.SetFadeTime(context.Background(), 3, 16); !errors.Is(err, ErrInvalidFadeTime) {
		t.Errorf("fade code 16 error = %v, want invalid fade time", err)
	}
}

func TestScanControlGear(t *testing.T) {
	c, ft := newTestClient(t)

	answering := map[uint8]uint8{1: 0xFF, 3: 0xFF}
	respondToQueries(t, ft, answering, 4)

	found, err := c.ScanControlGear(context.Background(),
		WithAddressRange(0, 3), WithScanDelay(0))
	if err != nil {
		t.Fatalf("ScanControlGear() error = %v", err)
	}
	if len(found) != 2 || found[0].Address != 1 || found[1].Address != 3 {
		t.Fatalf("found = %+v, want addresses 1 and 3", found)
	}
}

func TestScanInputDevices(t *testing.T) {
	c, ft := newTestClient(t)

	// Address 0 has gear (one query), address 1 has an input device
	// answering the device type query (two queries).
	go func() {
		for i := 0; i < 3; i++ {
			payload := ft.awaitWrite(t)
			msg, err := Classify(payload)
			if err != nil {
				t.Errorf("Classify(written) error = %v", err)
				return
			}
			sent := msg.(SendDiff)
			addr, opcode := sent.Frame[0]>>1, sent.Frame[1]
			switch {
			case addr == 0 && opcode == CmdQueryControlGearPresent:
				ft.inject(t, append(append([]byte{0x0D, sent.Bits, 0x08}, sent.Frame...), 0xFF))
			case addr == 1 && opcode == CmdQueryDeviceType:
				ft.inject(t, append(append([]byte{0x0D, sent.Bits, 0x08}, sent.Frame...), 0x03))
			default:
				ft.inject(t, append([]byte{0x0E, sent.Bits}, sent.Frame...))
			}
		}
	}()

	found, err := c.ScanInputDevices(context.Background(),
		WithAddressRange(0, 1), WithScanDelay(0))
	if err != nil {
		t.Fatalf("ScanInputDevices() error = %v", err)
	}
	if len(found) != 1 || found[0].Address != 1 || found[0].DeviceType != 0x03 {
		t.Fatalf("found = %+v, want device type 3 at address 1", found)
	}
}

func TestKeepAliveFiresWhenIdle(t *testing.T) {
	ft := newFakeTransport()
	c := NewClientWithTransport(ft,
		WithTimeout(150*time.Millisecond),
		WithKeepAliveInterval(200*time.Millisecond),
		WithLogger(testLogger()),
	)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	payload := ft.awaitWrite(t)
	if len(payload) != 2 || payload[0] != 0x06 || payload[1] != ConfigItemFirmwareVersion {
		t.Fatalf("keep-alive payload = % X, want firmware version query", payload)
	}
	ft.inject(t, []byte{0x07, ConfigItemFirmwareVersion, 0x04, 0x0B})

	// Wait for the request to finish so the counter is updated.
	deadline := time.Now().Add(time.Second)
	for c.Metrics().KeepAlivesSent.Value() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("keep-alive never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
