package cryptoback

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/crispcore/gocrisp/internal/crisp"
)

// AESRefBackend implements crisp.CryptoCapability with AES-CTR for the CTR
// hook and an AES CBC-MAC for the CMAC hook, structured after the CBC-MAC
// chaining and CTR-keystream pattern in RFC 3610 CCM constructions. It is a
// real cipher, unlike DummyBackend, but it is not MAGMA and not GOST
// R 71252-2024 compliant — it exists so cmd/crispd and cmd/crispctl have a
// non-trivial backend to run demos and integration tests against.
type AESRefBackend struct{}

var _ crisp.CryptoCapability = AESRefBackend{}

// CTR encrypts/decrypts in into out with AES-CTR under key. The 16-byte
// block-cipher IV is built by placing iv32 big-endian in the last four
// bytes and zeroing the rest, mirroring the "IV32 = low 32 bits of SeqNum"
// convention the wire format defines for the suite's own CTR hook.
func (AESRefBackend) CTR(key []byte, iv32 uint32, in, out []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("aesref ctr: %w: %v", crisp.ErrCrypto, err)
	}
	if len(out) < len(in) {
		return fmt.Errorf("aesref ctr: output shorter than input: %w", crisp.ErrInvalidSize)
	}

	var iv [aes.BlockSize]byte
	iv[12] = byte(iv32 >> 24)
	iv[13] = byte(iv32 >> 16)
	iv[14] = byte(iv32 >> 8)
	iv[15] = byte(iv32)

	stream := cipher.NewCTR(block, iv[:])
	stream.XORKeyStream(out[:len(in)], in)
	return nil
}

// CMAC computes an AES CBC-MAC over data under key, zero-padding the final
// partial block, and writes the first len(icv) bytes of the last ciphertext
// block into icv.
func (AESRefBackend) CMAC(key, data, icv []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("aesref cmac: %w: %v", crisp.ErrCrypto, err)
	}
	if len(icv) > aes.BlockSize {
		return fmt.Errorf("aesref cmac: icv longer than block size: %w", crisp.ErrOutOfRange)
	}

	tag := cbcMAC(block, data)
	copy(icv, tag[:len(icv)])
	return nil
}

// DeriveKencKmac derives kenc and kmac from masterKey and salt by running
// an AES CBC-MAC under masterKey over salt concatenated with a block
// counter, expanding as many blocks as each output needs — a simple,
// feedback-free key-derivation-by-PRF construction in the same spirit as
// the CBC-MAC chaining above.
func (AESRefBackend) DeriveKencKmac(masterKey, salt, kenc, kmac []byte) error {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return fmt.Errorf("aesref derive: %w: %v", crisp.ErrCrypto, err)
	}

	fill := func(label byte, out []byte) {
		counter := byte(0)
		for len(out) > 0 {
			input := append(append([]byte{}, salt...), label, counter)
			block16 := cbcMAC(block, input)
			n := copy(out, block16[:])
			out = out[n:]
			counter++
		}
	}
	fill(0x01, kenc)
	fill(0x02, kmac)
	return nil
}

// cbcMAC computes an AES CBC-MAC over data with a zero IV, zero-padding the
// final partial block.
func cbcMAC(block cipher.Block, data []byte) [aes.BlockSize]byte {
	var mac [aes.BlockSize]byte
	var buf [aes.BlockSize]byte

	for len(data) > 0 {
		n := copy(buf[:], data)
		for i := n; i < aes.BlockSize; i++ {
			buf[i] = 0
		}
		for i := range mac {
			buf[i] ^= mac[i]
		}
		block.Encrypt(mac[:], buf[:])
		if n < len(data) {
			data = data[n:]
		} else {
			data = nil
		}
	}
	return mac
}
