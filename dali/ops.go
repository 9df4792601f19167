package dali

import (
	"context"
	"fmt"
	"time"
)

// Forward frame addressing: a short address occupies the upper seven bits
// of the address byte, bit 0 selects direct arc power (0) or command (1).

func dapcAddress(addr uint8) uint8    { return addr << 1 }
func commandAddress(addr uint8) uint8 { return addr<<1 | 1 }

func checkShortAddress(addr uint8) error {
	if addr > 63 {
		return fmt.Errorf("%w: short address %d", ErrInvalidAddress, addr)
	}
	return nil
}

// SetLevel sends a direct arc power command to a short address.
func (c *Client) SetLevel(ctx context.Context, addr, level uint8) error {
	if err := checkShortAddress(addr); err != nil {
		return err
	}
	if level > 254 {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	_, err := c.SendFrame(ctx, Command{Frame: []byte{dapcAddress(addr), level}, Bits: 16})
	return err
}

// SetLevelBroadcast sends a direct arc power command to all gear.
func (c *Client) SetLevelBroadcast(ctx context.Context, level uint8) error {
	if level > 254 {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	_, err := c.SendFrame(ctx, Command{Frame: []byte{Broadcast &^ 1, level}, Bits: 16})
	return err
}

// Off turns a short address off.
func (c *Client) Off(ctx context.Context, addr uint8) error {
	return c.SendCommand(ctx, addr, CmdOff, false)
}

// On recalls the maximum level on a short address.
func (c *Client) On(ctx context.Context, addr uint8) error {
	return c.SendCommand(ctx, addr, CmdRecallMaxLevel, false)
}

// BroadcastOff turns all gear off.
func (c *Client) BroadcastOff(ctx context.Context) error {
	_, err := c.SendFrame(ctx, Command{Frame: []byte{Broadcast, CmdOff}, Bits: 16})
	return err
}

// BroadcastOn recalls the maximum level on all gear.
func (c *Client) BroadcastOn(ctx context.Context) error {
	_, err := c.SendFrame(ctx, Command{Frame: []byte{Broadcast, CmdRecallMaxLevel}, Bits: 16})
	return err
}

// SendCommand sends a standard command opcode to a short address.
// Configuration commands the standard requires twice set sendTwice.
func (c *Client) SendCommand(ctx context.Context, addr, opcode uint8, sendTwice bool) error {
	if err := checkShortAddress(addr); err != nil {
		return err
	}
	_, err := c.SendFrame(ctx, Command{
		Frame:     []byte{commandAddress(addr), opcode},
		Bits:      16,
		SendTwice: sendTwice,
	})
	return err
}

// Query sends a query opcode to a short address. The confirmation reports
// whether the gear answered; a collision is a valid outcome.
func (c *Client) Query(ctx context.Context, addr, opcode uint8) (Confirmation, error) {
	if err := checkShortAddress(addr); err != nil {
		return Confirmation{}, err
	}
	return c.SendFrame(ctx, Command{
		Frame:        []byte{commandAddress(addr), opcode},
		Bits:         16,
		ExpectAnswer: true,
	})
}

// QueryActualLevel reads the current arc power level of a short address.
// ok is false when the gear did not answer.
func (c *Client) QueryActualLevel(ctx context.Context, addr uint8) (level uint8, ok bool, err error) {
	conf, err := c.Query(ctx, addr, CmdQueryActualLevel)
	if err != nil {
		return 0, false, err
	}
	level, ok = conf.AnswerByte()
	return level, ok, nil
}

// QueryControlGearPresent reports whether gear answers at a short address.
func (c *Client) QueryControlGearPresent(ctx context.Context, addr uint8) (bool, error) {
	conf, err := c.Query(ctx, addr, CmdQueryControlGearPresent)
	if err != nil {
		return false, err
	}
	return conf.Answered && !conf.Collision, nil
}

// QueryDeviceType reads the device type of a short address. ok is false
// when nothing answered.
func (c *Client) QueryDeviceType(ctx context.Context, addr uint8) (devType uint8, ok bool, err error) {
	conf, err := c.Query(ctx, addr, CmdQueryDeviceType)
	if err != nil {
		return 0, false, err
	}
	devType, ok = conf.AnswerByte()
	return devType, ok, nil
}

// SetFadeTime programs the fade time register of a short address: DTR0
// carries the code, then the twice-sent SET FADE TIME latches it. Both
// frames go out as one sequence so nothing interleaves between them.
func (c *Client) SetFadeTime(ctx context.Context, addr, fadeCode uint8) error {
	if err := checkShortAddress(addr); err != nil {
		return err
	}
	if fadeCode > 15 {
		return fmt.Errorf("%w: fade code %d", ErrInvalidFadeTime, fadeCode)
	}
	_, err := c.SendSequence(ctx, []Command{
		{Frame: []byte{CmdDTR0, fadeCode}, Bits: 16},
		{Frame: []byte{commandAddress(addr), CmdSetFadeTime}, Bits: 16, SendTwice: true},
	})
	return err
}

// ScanResult is one discovered device.
type ScanResult struct {
	Address uint8
	// DeviceType is set for input device scans.
	DeviceType uint8
}

// ScanControlGear walks the short address range and reports addresses where
// control gear answers. Results come back sorted by address.
func (c *Client) ScanControlGear(ctx context.Context, opts ...ScanOption) ([]ScanResult, error) {
	options := defaultScanOptions()
	for _, opt := range opts {
		opt(options)
	}

	var found []ScanResult
	for addr := options.Low; ; addr++ {
		present, err := c.QueryControlGearPresent(ctx, addr)
		if err != nil && !IsTimeout(err) {
			return found, err
		}
		if present {
			found = append(found, ScanResult{Address: addr})
		}
		if addr == options.High {
			break
		}
		if err := scanPause(ctx, options.Delay); err != nil {
			return found, err
		}
	}
	c.logger.Info("control gear scan done", "found", len(found))
	return found, nil
}

// ScanInputDevices walks the short address range and reports addresses
// where no gear answers but a device type query does.
func (c *Client) ScanInputDevices(ctx context.Context, opts ...ScanOption) ([]ScanResult, error) {
	options := defaultScanOptions()
	for _, opt := range opts {
		opt(options)
	}

	var found []ScanResult
	for addr := options.Low; ; addr++ {
		present, err := c.QueryControlGearPresent(ctx, addr)
		if err != nil && !IsTimeout(err) {
			return found, err
		}
		if !present {
			devType, ok, err := c.QueryDeviceType(ctx, addr)
			if err != nil && !IsTimeout(err) {
				return found, err
			}
			if ok {
				found = append(found, ScanResult{Address: addr, DeviceType: devType})
			}
		}
		if addr == options.High {
			break
		}
		if err := scanPause(ctx, options.Delay); err != nil {
			return found, err
		}
	}
	c.logger.Info("input device scan done", "found", len(found))
	return found, nil
}

func scanPause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
