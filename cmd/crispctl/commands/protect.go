package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crispcore/gocrisp/internal/crisp"
)

func protectCmd() *cobra.Command {
	var (
		suiteName string
		seqNum    uint64
		payload   string
		keyIDHex  string
		kencHex   string
		kmacHex   string
		backend   string
	)

	cmd := &cobra.Command{
		Use:   "protect",
		Short: "Build a protected CRISP datagram",
		Long:  "protect encodes payload under the given suite, sequence number, and keys, producing a hex-encoded CRISP datagram ready to send.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			suite, err := parseSuiteName(suiteName)
			if err != nil {
				return err
			}

			keyID, err := hex.DecodeString(keyIDHex)
			if err != nil {
				return fmt.Errorf("decode --key-id-hex: %w", err)
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

			packet := make([]byte, crisp.MaxMessageSize)
			n, err := crisp.Protect(crisp.ProtectParams{
				CS:           suite,
				KeyIDPresent: len(keyID) > 0,
				KeyID:        keyID,
				SeqNum:       seqNum,
				Payload:      []byte(payload),
				Kenc:         kenc,
				Kmac:         kmac,
				Crypto:       crypto,
			}, packet)
			if err != nil {
				return fmt.Errorf("protect: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(packet[:n]))
			return nil
		},
	}

	cmd.Flags().StringVar(&suiteName, "suite", "CS1", "cipher suite: CS1, CS2, CS3, CS4")
	cmd.Flags().Uint64Var(&seqNum, "seqnum", 0, "48-bit sequence number")
	cmd.Flags().StringVar(&payload, "payload", "", "plaintext payload")
	cmd.Flags().StringVar(&keyIDHex, "key-id-hex", "", "hex-encoded KeyId (omit for no KeyId)")
	cmd.Flags().StringVar(&kencHex, "kenc-hex", "", "hex-encoded encryption key")
	cmd.Flags().StringVar(&kmacHex, "kmac-hex", "", "hex-encoded MAC key")
	cmd.Flags().StringVar(&backend, "backend", "dummy", "crypto backend: dummy, aesref")

	return cmd
}
