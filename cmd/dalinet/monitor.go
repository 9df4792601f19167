package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxgrid/dalinet/dali"
)

var (
	monitorGestures bool
	monitorDuration time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch spontaneous bus traffic live",
	Long: `Monitor prints spontaneous messages from the gateway as they arrive:
input device notifications, collisions, bus framing errors, and special
events.

With --gestures it prints reconstructed button gestures instead of raw
notifications: presses, releases, short/double/triple presses, long press
start/repeat/stop, and stuck buttons.

Runs until interrupted or until --duration elapses.

Examples:
  # Raw bus traffic
  dalinet monitor -H 192.168.1.50

  # Button gestures for 30 seconds, as JSON lines
  dalinet monitor -H 192.168.1.50 --gestures --duration 30s -o json`,

	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorGestures, "gestures", false, "Print reconstructed button gestures")
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if monitorDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, monitorDuration)
		defer cancel()
	}

	client, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if monitorGestures {
		fmt.Fprintln(os.Stderr, "Watching button gestures (Ctrl-C to stop)...")
		return monitorGestureStream(ctx, client)
	}
	fmt.Fprintln(os.Stderr, "Watching bus traffic (Ctrl-C to stop)...")
	return monitorEventStream(ctx, client)
}

func monitorGestureStream(ctx context.Context, client *dali.Client) error {
	f := NewFormatter(outputFmt)
	for {
		select {
		case <-ctx.Done():
			return nil
		case g, ok := <-client.Gestures():
			if !ok {
				return nil
			}
			if outputFmt == "json" {
				f.PrintJSON(map[string]interface{}{
					"time":     g.Time.Format(time.RFC3339Nano),
					"button":   g.Key.String(),
					"kind":     g.Key.Kind.String(),
					"address":  g.Key.Address,
					"instance": g.Key.Instance,
					"gesture":  g.Code.String(),
				})
				continue
			}
			fmt.Printf("%s  %-16s %s\n",
				g.Time.Format("15:04:05.000"), g.Key, g.Code)
		}
	}
}

func monitorEventStream(ctx context.Context, client *dali.Client) error {
	f := NewFormatter(outputFmt)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-client.Events():
			if !ok {
				return nil
			}
			printEvent(f, ev)
		}
	}
}

func printEvent(f *Formatter, ev dali.Event) {
	if outputFmt == "json" {
		out := map[string]interface{}{
			"time": ev.Time.Format(time.RFC3339Nano),
			"type": ev.Message.Type().String(),
		}
		if ev.Input != nil {
			out["input"] = map[string]interface{}{
				"kind":     ev.Input.Kind.String(),
				"address":  ev.Input.Address,
				"instance": ev.Input.Instance,
				"code":     ev.Input.Code.String(),
			}
		}
		if se, ok := ev.Message.(dali.SpecialEvent); ok {
			out["event"] = se.Code.String()
		}
		f.PrintJSON(out)
		return
	}

	ts := ev.Time.Format("15:04:05.000")
	switch m := ev.Message.(type) {
	case dali.SpecialEvent:
		fmt.Printf("%s  special event: %s\n", ts, m.Code)
	case dali.RecvAnswerSpont:
		if m.Collision() {
			fmt.Printf("%s  collision\n", ts)
			return
		}
		if ev.Input != nil {
			fmt.Printf("%s  %s\n", ts, ev.Input)
			return
		}
		fmt.Printf("%s  answer % X -> % X\n", ts, m.Frame, m.Answer)
	case dali.RecvNoAnswerSpont:
		if m.FramingError() {
			fmt.Printf("%s  bus framing error\n", ts)
			return
		}
		if ev.Input != nil {
			fmt.Printf("%s  %s\n", ts, ev.Input)
			return
		}
		fmt.Printf("%s  frame % X (%d bits)\n", ts, m.Frame, m.Bits)
	default:
		fmt.Printf("%s  %s\n", ts, ev.Message.Type())
	}
}
