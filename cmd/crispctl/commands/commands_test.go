package commands

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// execCmd runs cmd with args and returns its combined stdout output.
func execCmd(t *testing.T, cmd *cobra.Command, args []string) string {
	t.Helper()

	var buf bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&buf)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) error: %v", args, err)
	}
	return buf.String()
}

func TestProtectParseUnprotectRoundTrip(t *testing.T) {
	kenc := hex.EncodeToString([]byte("roundtrip-kenc-material"))
	kmac := hex.EncodeToString([]byte("roundtrip-kmac-material"))

	protectOut := execCmd(t, protectCmd(), []string{
		"--suite", "CS1",
		"--seqnum", "7",
		"--payload", "hello crispctl",
		"--kenc-hex", kenc,
		"--kmac-hex", kmac,
		"--backend", "dummy",
	})
	packetHex := strings.TrimSpace(protectOut)
	if packetHex == "" {
		t.Fatal("protect produced empty output")
	}

	parseOut := execCmd(t, parseCmd(), []string{packetHex})
	if !strings.Contains(parseOut, "CS1") {
		t.Errorf("parse output missing suite name: %q", parseOut)
	}
	if !strings.Contains(parseOut, "7") {
		t.Errorf("parse output missing seq_num: %q", parseOut)
	}

	unprotectOut := execCmd(t, unprotectCmd(), []string{
		"--packet-hex", packetHex,
		"--kenc-hex", kenc,
		"--kmac-hex", kmac,
		"--backend", "dummy",
	})
	if !strings.Contains(unprotectOut, "hello crispctl") {
		t.Errorf("unprotect output missing plaintext: %q", unprotectOut)
	}
}

func TestProtectRejectsUnknownSuite(t *testing.T) {
	cmd := protectCmd()
	cmd.SetArgs([]string{"--suite", "CS9"})
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute() with unknown suite returned nil error")
	}
}

func TestUnprotectRejectsUnknownBackend(t *testing.T) {
	cmd := unprotectCmd()
	cmd.SetArgs([]string{"--packet-hex", "00", "--backend", "rot13"})
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute() with unknown backend returned nil error")
	}
}

func TestVersionCmdPrintsVersion(t *testing.T) {
	out := execCmd(t, versionCmd(), nil)
	if !strings.Contains(out, "crispctl") {
		t.Errorf("version output missing binary name: %q", out)
	}
}
