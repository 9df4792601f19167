package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show gateway firmware version and health",
	Long: `Info queries the gateway's firmware version and prints the client's
view of bus health and traffic counters.

Examples:
  dalinet info -H 192.168.1.50
  dalinet info -H 192.168.1.50 -o json`,

	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	version, err := client.FirmwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("firmware version: %w", err)
	}

	health := client.Health().Snapshot()
	stats := client.Metrics().Snapshot()

	busPower := "ok"
	if !health.BusPowerOK {
		busPower = "fault"
	}
	lastEvent := "none"
	if health.HasSpecialEvent {
		lastEvent = fmt.Sprintf("%s (%s)",
			health.LastSpecialEvent, health.LastSpecialEventAt.Format("15:04:05"))
	}

	f := NewFormatter(outputFmt)
	if outputFmt == "json" {
		return f.PrintJSON(map[string]interface{}{
			"gateway":          fmt.Sprintf("%s:%d", host, port),
			"firmware_version": version,
			"bus_power_ok":     health.BusPowerOK,
			"last_event":       lastEvent,
			"last_round_trip":  health.LastRoundTrip.String(),
			"requests_sent":    stats.RequestsSent,
			"requests_ok":      stats.RequestsSucceeded,
			"timeouts":         stats.RequestsTimedOut,
			"frames_received":  stats.FramesReceived,
			"frames_malformed": stats.FramesMalformed,
		})
	}

	pairs := map[string]interface{}{
		"Gateway":          fmt.Sprintf("%s:%d", host, port),
		"Firmware Version": version,
		"Bus Power":        busPower,
		"Last Event":       lastEvent,
		"Last Round Trip":  health.LastRoundTrip,
		"Requests Sent":    stats.RequestsSent,
		"Requests OK":      stats.RequestsSucceeded,
		"Timeouts":         stats.RequestsTimedOut,
		"Frames Received":  stats.FramesReceived,
		"Frames Malformed": stats.FramesMalformed,
	}
	order := []string{
		"Gateway", "Firmware Version", "Bus Power", "Last Event",
		"Last Round Trip", "Requests Sent", "Requests OK", "Timeouts",
		"Frames Received", "Frames Malformed",
	}
	f.PrintKeyValue(pairs, order)
	return nil
}
