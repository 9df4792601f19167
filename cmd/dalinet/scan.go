package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxgrid/dalinet/dali"
)

var (
	scanInputs bool
	scanLow    uint8
	scanHigh   uint8
	scanDelay  time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the bus for control gear or input devices",
	Long: `Scan walks the short address range and queries each address.

By default it looks for control gear (QUERY CONTROL GEAR PRESENT). With
--inputs it reports addresses where no gear answers but a device type
query does, which is how DALI-2 buttons and sensors show up.

Examples:
  # Find all control gear
  dalinet scan -H 192.168.1.50

  # Find input devices in the lower half of the address range
  dalinet scan -H 192.168.1.50 --inputs --high 31`,

	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanInputs, "inputs", false, "Scan for input devices instead of control gear")
	scanCmd.Flags().Uint8Var(&scanLow, "low", 0, "Low short address bound")
	scanCmd.Flags().Uint8Var(&scanHigh, "high", 63, "High short address bound")
	scanCmd.Flags().DurationVar(&scanDelay, "delay", 100*time.Millisecond, "Pause between consecutive queries")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := []dali.ScanOption{
		dali.WithAddressRange(scanLow, scanHigh),
		dali.WithScanDelay(scanDelay),
	}

	var (
		found []dali.ScanResult
		kind  string
	)
	if scanInputs {
		fmt.Fprintln(os.Stderr, "Scanning for input devices...")
		found, err = client.ScanInputDevices(ctx, opts...)
		kind = "input device"
	} else {
		fmt.Fprintln(os.Stderr, "Scanning for control gear...")
		found, err = client.ScanControlGear(ctx, opts...)
		kind = "control gear"
	}
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if len(found) == 0 {
		fmt.Printf("No %s found\n", kind)
		return nil
	}

	f := NewFormatter(outputFmt)
	if outputFmt == "json" {
		return f.PrintScanJSON(found, scanInputs)
	}

	headers := []string{"ADDRESS"}
	if scanInputs {
		headers = append(headers, "DEVICE TYPE")
	}
	rows := make([][]string, 0, len(found))
	for _, r := range found {
		row := []string{strconv.Itoa(int(r.Address))}
		if scanInputs {
			row = append(row, fmt.Sprintf("0x%02X", r.DeviceType))
		}
		rows = append(rows, row)
	}
	f.PrintTable(headers, rows)
	fmt.Printf("\nFound %d %s(s)\n", len(found), kind)
	return nil
}
