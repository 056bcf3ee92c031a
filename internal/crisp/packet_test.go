package crisp_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/crispcore/gocrisp/internal/crisp"
	"github.com/crispcore/gocrisp/internal/cryptoback"
)

func TestBuildParseRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cs      crisp.Suite
		payload []byte
	}{
		{name: "CS1 encrypted with payload", cs: crisp.SuiteCS1, payload: []byte("hello, crisp")},
		{name: "CS2 null-cipher with payload", cs: crisp.SuiteCS2, payload: []byte("hello, crisp")},
		{name: "CS3 encrypted empty payload", cs: crisp.SuiteCS3, payload: nil},
		{name: "CS4 null-cipher empty payload", cs: crisp.SuiteCS4, payload: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := &cryptoback.DummyBackend{Seed: 99}
			kenc := []byte("encryption-key-material")
			kmac := []byte("mac-key-material")

			packet := make([]byte, crisp.MaxMessageSize)
			n, err := crisp.Protect(crisp.ProtectParams{
				CS:      tt.cs,
				SeqNum:  12345,
				Payload: tt.payload,
				Kenc:    kenc,
				Kmac:    kmac,
				Crypto:  backend,
			}, packet)
			if err != nil {
				t.Fatalf("Protect() error: %v", err)
			}

			view, err := crisp.Parse(packet[:n])
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if view.CS != tt.cs {
				t.Fatalf("view.CS = %v, want %v", view.CS, tt.cs)
			}
			if view.SeqNum != 12345 {
				t.Fatalf("view.SeqNum = %d, want 12345", view.SeqNum)
			}
			if view.KeyIDPresent {
				t.Fatal("view.KeyIDPresent = true, want false for an omitted key id")
			}

			out := make([]byte, len(tt.payload))
			result, err := crisp.Unprotect(crisp.UnprotectParams{
				Packet: packet[:n],
				Kenc:   kenc,
				Kmac:   kmac,
				Crypto: backend,
			}, out)
			if err != nil {
				t.Fatalf("Unprotect() error: %v", err)
			}
			if !bytes.Equal(result.Plaintext, tt.payload) {
				t.Fatalf("recovered plaintext = %q, want %q", result.Plaintext, tt.payload)
			}
		})
	}
}

func TestParseRejectsOversizedPacket(t *testing.T) {
	t.Parallel()

	packet := make([]byte, crisp.MaxMessageSize+1)
	_, err := crisp.Parse(packet)
	if !errors.Is(err, crisp.ErrInvalidSize) {
		t.Fatalf("Parse() error = %v, want ErrInvalidSize", err)
	}
}

func TestParseRejectsShortPacket(t *testing.T) {
	t.Parallel()

	_, err := crisp.Parse(make([]byte, 10))
	if !errors.Is(err, crisp.ErrInvalidSize) {
		t.Fatalf("Parse() error = %v, want ErrInvalidSize", err)
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()

	packet := make([]byte, 14)
	packet[0] = 0x00
	packet[1] = 0x01 // version 1, but only 0 is defined
	packet[2] = byte(crisp.SuiteCS2)
	packet[3] = crisp.KeyIDUnusedMarker

	_, err := crisp.Parse(packet)
	if !errors.Is(err, crisp.ErrInvalidFormat) {
		t.Fatalf("Parse() error = %v, want ErrInvalidFormat", err)
	}
}

func TestParseRejectsUnsupportedSuite(t *testing.T) {
	t.Parallel()

	packet := make([]byte, 14)
	packet[2] = 0x09 // not a defined CS value
	packet[3] = crisp.KeyIDUnusedMarker

	_, err := crisp.Parse(packet)
	if !errors.Is(err, crisp.ErrUnsupportedSuite) {
		t.Fatalf("Parse() error = %v, want ErrUnsupportedSuite", err)
	}
}

func TestUnprotectDetectsFlippedICV(t *testing.T) {
	t.Parallel()

	backend := &cryptoback.DummyBackend{Seed: 11}
	kenc := []byte("kenc")
	kmac := []byte("kmac")

	packet := make([]byte, crisp.MaxMessageSize)
	n, err := crisp.Protect(crisp.ProtectParams{
		CS:      crisp.SuiteCS1,
		SeqNum:  1,
		Payload: []byte("payload"),
		Kenc:    kenc,
		Kmac:    kmac,
		Crypto:  backend,
	}, packet)
	if err != nil {
		t.Fatalf("Protect() error: %v", err)
	}

	tampered := append([]byte{}, packet[:n]...)
	tampered[len(tampered)-1] ^= 0xFF

	out := make([]byte, len("payload"))
	if _, err := crisp.Unprotect(crisp.UnprotectParams{
		Packet: tampered,
		Kenc:   kenc,
		Kmac:   kmac,
		Crypto: backend,
	}, out); !errors.Is(err, crisp.ErrCrypto) {
		t.Fatalf("Unprotect() error = %v, want ErrCrypto", err)
	}

	// An unmodified retry with the same keys must still succeed — a prior
	// failed verification must not have mutated shared state.
	if _, err := crisp.Unprotect(crisp.UnprotectParams{
		Packet: packet[:n],
		Kenc:   kenc,
		Kmac:   kmac,
		Crypto: backend,
	}, out); err != nil {
		t.Fatalf("Unprotect() retry error: %v", err)
	}
}

func TestBuildRejectsBufferTooSmall(t *testing.T) {
	t.Parallel()

	backend := &cryptoback.DummyBackend{}
	_, err := crisp.Build(crisp.BuildParams{
		Version: crisp.Version2024,
		CS:      crisp.SuiteCS2,
		SeqNum:  1,
		Payload: []byte("too long for this buffer"),
		Crypto:  backend,
	}, make([]byte, 4))
	if !errors.Is(err, crisp.ErrBufferTooSmall) {
		t.Fatalf("Build() error = %v, want ErrBufferTooSmall", err)
	}
}

func TestBuildRejectsSeqNumOutOfRange(t *testing.T) {
	t.Parallel()

	backend := &cryptoback.DummyBackend{}
	_, err := crisp.Build(crisp.BuildParams{
		Version: crisp.Version2024,
		CS:      crisp.SuiteCS2,
		SeqNum:  crisp.SeqNumMax + 1,
		Crypto:  backend,
	}, make([]byte, 64))
	if !errors.Is(err, crisp.ErrOutOfRange) {
		t.Fatalf("Build() error = %v, want ErrOutOfRange", err)
	}
}
