package crisp_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/crispcore/gocrisp/internal/crisp"
)

func TestValidateKeyID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keyID   []byte
		wantErr error
	}{
		{name: "short form ok", keyID: []byte{0x05}, wantErr: nil},
		{name: "short form zero byte ok", keyID: []byte{0x00}, wantErr: nil},
		{name: "long form exact length", keyID: append([]byte{0x83}, make([]byte, 3)...), wantErr: nil},
		{name: "long form max length", keyID: append([]byte{0xFF}, make([]byte, 127)...), wantErr: nil},
		{name: "empty", keyID: []byte{}, wantErr: crisp.ErrInvalidSize},
		{name: "unused marker rejected", keyID: []byte{0x80}, wantErr: crisp.ErrInvalidFormat},
		{name: "short form wrong length", keyID: []byte{0x05, 0x06}, wantErr: crisp.ErrInvalidFormat},
		{name: "long form length mismatch", keyID: append([]byte{0x83}, make([]byte, 2)...), wantErr: crisp.ErrInvalidFormat},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := crisp.ValidateKeyID(tt.keyID)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateKeyID(%x) unexpected error: %v", tt.keyID, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateKeyID(%x) error = %v, want %v", tt.keyID, err, tt.wantErr)
			}
		})
	}
}

func TestKeyIDRoundTripThroughBuildAndParse(t *testing.T) {
	t.Parallel()

	longKeyID := append([]byte{0x82}, []byte{0xAA, 0xBB}...)

	packet := make([]byte, 64)
	n, err := crisp.Build(crisp.BuildParams{
		Version:      crisp.Version2024,
		CS:           crisp.SuiteCS2,
		KeyIDPresent: true,
		SeqNum:       1,
		KeyID:        longKeyID,
		Crypto:       &fixedCMACCapability{},
	}, packet)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	view, err := crisp.Parse(packet[:n])
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !view.KeyIDPresent {
		t.Fatal("view.KeyIDPresent = false, want true")
	}
	if !bytes.Equal(view.KeyID, longKeyID) {
		t.Fatalf("view.KeyID = %x, want %x", view.KeyID, longKeyID)
	}
}

// fixedCMACCapability is a minimal CryptoCapability used by codec tests that
// only exercise the CMAC path (null-encryption suites).
type fixedCMACCapability struct{}

func (fixedCMACCapability) CMAC(_, _, icv []byte) error {
	for i := range icv {
		icv[i] = byte(0xC0 + i)
	}
	return nil
}

func (fixedCMACCapability) CTR(_ []byte, _ uint32, in, out []byte) error {
	copy(out, in)
	return nil
}

func (fixedCMACCapability) DeriveKencKmac(_, _, kenc, kmac []byte) error {
	for i := range kenc {
		kenc[i] = byte(i)
	}
	for i := range kmac {
		kmac[i] = byte(i)
	}
	return nil
}
