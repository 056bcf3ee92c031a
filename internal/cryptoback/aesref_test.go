package cryptoback_test

import (
	"bytes"
	"testing"

	"github.com/crispcore/gocrisp/internal/cryptoback"
)

func TestAESRefBackendCTRRoundTrip(t *testing.T) {
	t.Parallel()

	backend := cryptoback.AESRefBackend{}
	key := bytes.Repeat([]byte{0x42}, 16)
	plaintext := []byte("just over one block")

	ciphertext := make([]byte, len(plaintext))
	if err := backend.CTR(key, 7, plaintext, ciphertext); err != nil {
		t.Fatalf("CTR encrypt error: %v", err)
	}

	recovered := make([]byte, len(ciphertext))
	if err := backend.CTR(key, 7, ciphertext, recovered); err != nil {
		t.Fatalf("CTR decrypt error: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("recovered = %q, want %q", recovered, plaintext)
	}
}

func TestAESRefBackendCMACTruncation(t *testing.T) {
	t.Parallel()

	backend := cryptoback.AESRefBackend{}
	key := bytes.Repeat([]byte{0x11}, 16)
	data := []byte("multi-block cbc-mac input spanning more than sixteen bytes")

	icv4 := make([]byte, 4)
	icv8 := make([]byte, 8)
	if err := backend.CMAC(key, data, icv4); err != nil {
		t.Fatalf("CMAC error: %v", err)
	}
	if err := backend.CMAC(key, data, icv8); err != nil {
		t.Fatalf("CMAC error: %v", err)
	}
	if !bytes.Equal(icv4, icv8[:4]) {
		t.Fatalf("4-byte tag %x is not a prefix of 8-byte tag %x", icv4, icv8)
	}
}

func TestAESRefBackendDeriveKencKmacFillsLongOutputs(t *testing.T) {
	t.Parallel()

	backend := cryptoback.AESRefBackend{}
	master := bytes.Repeat([]byte{0x77}, 16)
	salt := []byte("salt")

	kenc := make([]byte, 32)
	kmac := make([]byte, 32)
	if err := backend.DeriveKencKmac(master, salt, kenc, kmac); err != nil {
		t.Fatalf("DeriveKencKmac error: %v", err)
	}
	if bytes.Equal(kenc[:16], kenc[16:]) {
		t.Fatal("derived key repeats its first block verbatim in its second block")
	}
	if bytes.Equal(kenc, kmac) {
		t.Fatal("derived kenc and kmac are identical")
	}
}
