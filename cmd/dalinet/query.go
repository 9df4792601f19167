package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryAddr   int
	queryOpcode string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Send a DALI query and print the answer",
	Long: `Query transmits a query opcode and reports the backward answer.

Three outcomes are possible: an answer byte, no answer (nothing at the
address, or the query is a yes/no query answered "no"), or a collision
(several devices answered at once, which for yes/no queries means "yes,
more than one").

Examples:
  # Actual level of address 5
  dalinet query -H 192.168.1.50 -a 5 -c 0xA0

  # Control gear present?
  dalinet query -H 192.168.1.50 -a 5 -c 0x90`,

	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryAddr, "address", "a", -1, "Target short address (0-63)")
	queryCmd.Flags().StringVarP(&queryOpcode, "command", "c", "", "Query opcode (e.g. 0xA0)")
	queryCmd.MarkFlagRequired("address")
	queryCmd.MarkFlagRequired("command")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryAddr < 0 || queryAddr > 63 {
		return fmt.Errorf("short address must be 0-63")
	}
	opcode, err := parseByte(queryOpcode)
	if err != nil {
		return fmt.Errorf("parse opcode: %w", err)
	}

	ctx := context.Background()
	client, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	conf, err := client.Query(ctx, uint8(queryAddr), opcode)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	switch {
	case conf.Collision:
		fmt.Println("collision (multiple answers)")
	case !conf.Answered:
		fmt.Println("no answer")
	default:
		answer, _ := conf.AnswerByte()
		fmt.Printf("answer: %d (0x%02X)\n", answer, answer)
	}
	return nil
}

// parseByte accepts decimal and 0x-prefixed hex byte values.
func parseByte(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}
