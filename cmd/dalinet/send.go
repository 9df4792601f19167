package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sendAddr      int
	sendBroadcast bool
	sendOn        bool
	sendOff       bool
	sendLevel     int
	sendFadeTime  int
	sendOpcode    string
	sendTwice     bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a DALI command to gear",
	Long: `Send transmits a forward frame and waits for the gateway's
confirmation.

Convenience flags cover the common cases; --command sends an arbitrary
opcode. Configuration commands the standard requires twice need --twice.

Examples:
  # Recall maximum level / turn off
  dalinet send -H 192.168.1.50 -a 5 --on
  dalinet send -H 192.168.1.50 --broadcast --off

  # Direct arc power
  dalinet send -H 192.168.1.50 -a 5 --level 128

  # Fade time code 4 (about 2 seconds)
  dalinet send -H 192.168.1.50 -a 5 --fade-time 4

  # Raw opcode
  dalinet send -H 192.168.1.50 -a 5 -c 0x05`,

	RunE: runSend,
}

func init() {
	sendCmd.Flags().IntVarP(&sendAddr, "address", "a", -1, "Target short address (0-63)")
	sendCmd.Flags().BoolVar(&sendBroadcast, "broadcast", false, "Address all gear")
	sendCmd.Flags().BoolVar(&sendOn, "on", false, "Recall maximum level")
	sendCmd.Flags().BoolVar(&sendOff, "off", false, "Turn off")
	sendCmd.Flags().IntVarP(&sendLevel, "level", "l", -1, "Direct arc power level (0-254)")
	sendCmd.Flags().IntVar(&sendFadeTime, "fade-time", -1, "Program fade time code (0-15)")
	sendCmd.Flags().StringVarP(&sendOpcode, "command", "c", "", "Raw command opcode (e.g. 0x05)")
	sendCmd.Flags().BoolVar(&sendTwice, "twice", false, "Transmit the command twice")
}

func runSend(cmd *cobra.Command, args []string) error {
	if !sendBroadcast && (sendAddr < 0 || sendAddr > 63) {
		return fmt.Errorf("a short address (0-63) or --broadcast is required")
	}

	ctx := context.Background()
	client, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	addr := uint8(sendAddr)

	switch {
	case sendOn && sendBroadcast:
		err = client.BroadcastOn(ctx)
	case sendOn:
		err = client.On(ctx, addr)
	case sendOff && sendBroadcast:
		err = client.BroadcastOff(ctx)
	case sendOff:
		err = client.Off(ctx, addr)
	case sendLevel >= 0 && sendBroadcast:
		err = client.SetLevelBroadcast(ctx, uint8(sendLevel))
	case sendLevel >= 0:
		err = client.SetLevel(ctx, addr, uint8(sendLevel))
	case sendFadeTime >= 0:
		if sendBroadcast {
			return fmt.Errorf("--fade-time needs a short address")
		}
		err = client.SetFadeTime(ctx, addr, uint8(sendFadeTime))
	case sendOpcode != "":
		opcode, perr := parseByte(sendOpcode)
		if perr != nil {
			return fmt.Errorf("parse opcode: %w", perr)
		}
		if sendBroadcast {
			return fmt.Errorf("--command needs a short address")
		}
		err = client.SendCommand(ctx, addr, opcode, sendTwice)
	default:
		return fmt.Errorf("nothing to send: use --on, --off, --level, --fade-time, or --command")
	}
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	fmt.Println("OK")
	return nil
}
