package cryptoback

import (
	"fmt"

	"github.com/crispcore/gocrisp/internal/crisp"
)

// dummyDefaultSeed is used whenever a DummyBackend's Seed is zero.
const dummyDefaultSeed uint64 = 0xC0DEC0DE12345678

// DummyBackend is a deterministic, non-cryptographic crisp.CryptoCapability
// fixture. It exists for protocol conformance testing only — its CMAC and
// CTR operations are reversible mixing functions, not real cryptographic
// primitives, and must never be used to protect real traffic.
type DummyBackend struct {
	// Seed perturbs the backend's mixing state. Zero selects a fixed
	// default so that two DummyBackend zero values produce identical
	// output, which conformance tests rely on.
	Seed uint64
}

var _ crisp.CryptoCapability = (*DummyBackend)(nil)

func (b *DummyBackend) seed() uint64 {
	if b == nil || b.Seed == 0 {
		return dummyDefaultSeed
	}
	return b.Seed
}

func mix64(state uint64, value byte) uint64 {
	state ^= uint64(value)
	state *= 0x100000001B3
	state ^= state >> 29
	return state
}

// CMAC computes a deterministic mixing tag over key||data, truncated to
// len(icv) bytes.
func (b *DummyBackend) CMAC(key, data, icv []byte) error {
	state := b.seed() ^ 0x9E3779B97F4A7C15
	for _, kb := range key {
		state = mix64(state, kb)
	}
	for _, db := range data {
		state = mix64(state, db)
	}
	for i := range icv {
		state = mix64(state, byte(i))
		icv[i] = byte(state >> (uint(i%8) * 8))
	}
	return nil
}

// CTR XORs in with a deterministic keystream derived from key and iv32.
// It is its own inverse: calling CTR again on the output with the same
// key and iv32 recovers in.
func (b *DummyBackend) CTR(key []byte, iv32 uint32, in, out []byte) error {
	if len(in) != len(out) {
		return fmt.Errorf("dummy ctr: in/out length mismatch: %w", crisp.ErrInvalidSize)
	}
	if len(key) == 0 {
		return fmt.Errorf("dummy ctr: empty key: %w", crisp.ErrInvalidArgument)
	}

	offset := int(iv32 & 0xFF)
	for i := range in {
		ivByte := byte((iv32 >> (uint(i%4) * 8)) & 0xFF)
		keyByte := key[(i+offset)%len(key)]
		stream := keyByte ^ ivByte ^ (byte(0xA5) + byte(i))
		out[i] = in[i] ^ stream
	}
	return nil
}

// DeriveKencKmac derives kenc and kmac from masterKey and salt using the
// same mixing construction as CMAC, with the mixing state threaded from
// the kenc loop into the kmac loop exactly as the reference implementation
// does.
func (b *DummyBackend) DeriveKencKmac(masterKey, salt, kenc, kmac []byte) error {
	state := b.seed() ^ 0xA24BAED4963EE407
	for _, mb := range masterKey {
		state = mix64(state, mb)
	}
	for _, sb := range salt {
		state = mix64(state, sb)
	}

	for i := range kenc {
		state = mix64(state, byte(i)^0x3C)
		kenc[i] = byte(state >> (uint(i%8) * 8))
	}
	for i := range kmac {
		state = mix64(state, byte(i)^0xC3)
		kmac[i] = byte(state >> (uint(i%8) * 8))
	}
	return nil
}
