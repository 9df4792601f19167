package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luxgrid/dalinet/dali"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or write gateway configuration items",
	Long: `Config accesses the gateway's numbered configuration items.

Items are 16-bit values addressed by a one-byte index; consult the
gateway manual for the item map. Item 2 is the firmware version.

Examples:
  dalinet config get -H 192.168.1.50 2
  dalinet config set -H 192.168.1.50 5 1`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <item>",
	Short: "Query a configuration item",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <item> <value>",
	Short: "Change a configuration item",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	item, err := parseByte(args[0])
	if err != nil {
		return fmt.Errorf("parse item: %w", err)
	}

	ctx := context.Background()
	client, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	value, err := client.QueryConfigItem(ctx, item)
	if err != nil {
		return fmt.Errorf("query item %d: %w", item, err)
	}

	fmt.Printf("item %d = %d (0x%04X)\n", item, value, value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	item, err := parseByte(args[0])
	if err != nil {
		return fmt.Errorf("parse item: %w", err)
	}
	value, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		return fmt.Errorf("parse value: %w", err)
	}

	ctx := context.Background()
	client, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ChangeConfigItem(ctx, item, uint16(value)); err != nil {
		var ack *dali.ConfigAckError
		if errors.As(err, &ack) {
			return fmt.Errorf("gateway rejected change: %s", ack.Status)
		}
		return fmt.Errorf("change item %d: %w", item, err)
	}

	fmt.Printf("item %d set to %d\n", item, value)
	return nil
}
