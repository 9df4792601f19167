package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luxgrid/dalinet/internal/bridge"
)

var (
	bridgeBroker   string
	bridgeClientID string
	bridgeUsername string
	bridgePassword string
	bridgePrefix   string
	bridgeQoS      int
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Publish bus events and button gestures to MQTT",
	Long: `Bridge connects to the gateway and an MQTT broker, then publishes
every spontaneous bus event and reconstructed button gesture as JSON.

Topics:
  <prefix>/status                          retained online/offline marker
  <prefix>/gesture/<kind>/<addr>/<inst>    button gestures
  <prefix>/event/<type>                    raw spontaneous messages

Runs until interrupted.

Examples:
  dalinet bridge -H 192.168.1.50 --broker tcp://mqtt.local:1883
  dalinet bridge -H 192.168.1.50 --broker tcp://mqtt.local:1883 \
    --topic-prefix home/dali --username dali --password secret`,

	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeBroker, "broker", "", "MQTT broker URL (e.g. tcp://host:1883)")
	bridgeCmd.Flags().StringVar(&bridgeClientID, "client-id", "dalinet-bridge", "MQTT client identifier")
	bridgeCmd.Flags().StringVar(&bridgeUsername, "username", "", "MQTT username")
	bridgeCmd.Flags().StringVar(&bridgePassword, "password", "", "MQTT password")
	bridgeCmd.Flags().StringVar(&bridgePrefix, "topic-prefix", "dalinet", "Topic prefix for published messages")
	bridgeCmd.Flags().IntVar(&bridgeQoS, "qos", 0, "MQTT quality of service (0-2)")

	viper.BindPFlag("broker", bridgeCmd.Flags().Lookup("broker"))
	viper.BindPFlag("topic-prefix", bridgeCmd.Flags().Lookup("topic-prefix"))
}

func runBridge(cmd *cobra.Command, args []string) error {
	if bridgeBroker == "" {
		bridgeBroker = viper.GetString("broker")
	}
	if bridgeBroker == "" {
		return fmt.Errorf("broker URL required (flag --broker, config, or DALINET_BROKER)")
	}
	if bridgeQoS < 0 || bridgeQoS > 2 {
		return fmt.Errorf("qos must be 0, 1, or 2")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	b := bridge.New(bridge.Config{
		BrokerURL:   bridgeBroker,
		ClientID:    bridgeClientID,
		Username:    bridgeUsername,
		Password:    bridgePassword,
		TopicPrefix: bridgePrefix,
		QoS:         byte(bridgeQoS),
	}, client, logger)

	if err := b.Start(); err != nil {
		return err
	}
	defer b.Close()

	fmt.Fprintln(os.Stderr, "Bridge running (Ctrl-C to stop)...")
	<-ctx.Done()
	return nil
}
