package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luxgrid/dalinet/dali"
)

var (
	cfgFile     string
	host        string
	port        int
	timeout     time.Duration
	retries     int
	keepAlive   time.Duration
	outputFmt   string
	verbose     bool
	shortTimer  time.Duration
	doubleTimer time.Duration
	stuckTimer  time.Duration

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dalinet",
	Short: "A client CLI for Foxtron DALInet/DALI2net gateways",
	Long: `dalinet talks to Foxtron DALI-to-Ethernet gateways over their
ASCII-over-TCP protocol.

It supports bus scanning, raw DALI commands and queries, live monitoring of
spontaneous bus traffic and reconstructed button gestures, gateway
configuration, and an MQTT bridge mode for home automation setups.

Examples:
  # Scan for control gear on bus 1
  dalinet scan -H 192.168.1.50

  # Turn a light on and set a level
  dalinet send -H 192.168.1.50 -a 5 --on
  dalinet send -H 192.168.1.50 -a 5 --level 128

  # Query the actual level
  dalinet query -H 192.168.1.50 -a 5 -c 0xA0

  # Watch button gestures
  dalinet monitor -H 192.168.1.50 --gestures`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := slog.LevelInfo
		if verbose {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dalinet.yaml)")
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "", "Gateway IP address or hostname")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", dali.DefaultPortBus1, "Gateway TCP port (23 = bus 1, 24 = bus 2)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", time.Second, "Confirmation timeout per transmission")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 1, "Number of identical re-sends after a timeout")
	rootCmd.PersistentFlags().DurationVar(&keepAlive, "keep-alive", 20*time.Second, "Idle keep-alive interval (0 disables)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().DurationVar(&shortTimer, "short-timer", 400*time.Millisecond, "Press shorter than this is a short press")
	rootCmd.PersistentFlags().DurationVar(&doubleTimer, "double-timer", 500*time.Millisecond, "Multi-press window after a short press")
	rootCmd.PersistentFlags().DurationVar(&stuckTimer, "stuck-timer", 5*time.Second, "Hold longer than this is a stuck button")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("retries", rootCmd.PersistentFlags().Lookup("retries"))
	viper.BindPFlag("keep-alive", rootCmd.PersistentFlags().Lookup("keep-alive"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("short-timer", rootCmd.PersistentFlags().Lookup("short-timer"))
	viper.BindPFlag("double-timer", rootCmd.PersistentFlags().Lookup("double-timer"))
	viper.BindPFlag("stuck-timer", rootCmd.PersistentFlags().Lookup("stuck-timer"))

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".dalinet")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DALINET")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// createClient creates a gateway client with current configuration
func createClient() *dali.Client {
	return dali.NewClient(fmt.Sprintf("%s:%d", host, port),
		dali.WithTimeout(timeout),
		dali.WithRetries(retries),
		dali.WithKeepAliveInterval(keepAlive),
		dali.WithButtonTimers(dali.ButtonTimers{
			Short:  shortTimer,
			Double: doubleTimer,
			Stuck:  stuckTimer,
		}),
		dali.WithLogger(logger),
	)
}

// connectClient creates and connects a client in one step
func connectClient(ctx context.Context) (*dali.Client, error) {
	if host == "" {
		host = viper.GetString("host")
	}
	if host == "" {
		return nil, fmt.Errorf("gateway host required (flag --host, config, or DALINET_HOST)")
	}
	client := createClient()
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s:%d: %w", host, port, err)
	}
	return client, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dalinet version 1.0.0")
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
