package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crispcore/gocrisp/internal/crisp"
)

func unprotectCmd() *cobra.Command {
	var (
		packetHex string
		kencHex   string
		kmacHex   string
		backend   string
	)

	cmd := &cobra.Command{
		Use:   "unprotect",
		Short: "Verify and decrypt a CRISP datagram",
		Long:  "unprotect verifies the ICV and, if the suite enables encryption, decrypts the datagram, printing the recovered plaintext. No replay window is tracked across invocations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			packet, err := hex.DecodeString(packetHex)
			if err != nil {
				return fmt.Errorf("decode --packet-hex: %w", err)
			}
			kenc, err := hex.DecodeString(kencHex)
			if err != nil {
				return fmt.Errorf("decode --kenc-hex: %w", err)
			}
			kmac, err := hex.DecodeString(kmacHex)
			if err != nil {
				return fmt.Errorf("decode --kmac-hex: %w", err)
			}

			crypto, err := newBackend(backend)
			if err != nil {
				return err
			}

			out := make([]byte, len(packet))
			result, err := crisp.Unprotect(crisp.UnprotectParams{
				Packet: packet,
				Kenc:   kenc,
				Kmac:   kmac,
				Crypto: crypto,
			}, out)
			if err != nil {
				return fmt.Errorf("unprotect: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seq_num=%d suite=%s plaintext=%q\n",
				result.SeqNum, result.CS, string(result.Plaintext))
			return nil
		},
	}

	cmd.Flags().StringVar(&packetHex, "packet-hex", "", "hex-encoded CRISP datagram")
	cmd.Flags().StringVar(&kencHex, "kenc-hex", "", "hex-encoded encryption key")
	cmd.Flags().StringVar(&kmacHex, "kmac-hex", "", "hex-encoded MAC key")
	cmd.Flags().StringVar(&backend, "backend", "dummy", "crypto backend: dummy, aesref")

	_ = cmd.MarkFlagRequired("packet-hex")

	return cmd
}
