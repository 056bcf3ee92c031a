package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crispcore/gocrisp/internal/crisp"
)

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <hex-packet>",
		Short: "Parse a CRISP datagram and print its header fields",
		Long:  "parse decodes the header and framing of a CRISP datagram without verifying or decrypting it. Use unprotect to verify and recover plaintext.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("decode hex packet: %w", err)
			}

			view, err := crisp.Parse(raw)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			out, err := formatParsedView(view, outputFormat)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
