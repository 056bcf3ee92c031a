package crisp

// CryptoCapability is the cryptographic backend surface the CRISP core
// calls through. All cryptographic work — MAC computation, CTR keystream
// encryption, and key derivation — is delegated to an implementation of
// this interface; the core never reaches for a cipher directly, matching
// the "no cipher implementation here" boundary the protocol draws around
// MAGMA.
//
// Implementations live in internal/cryptoback. A nil CMAC is treated the
// same as a missing capability: Build and Unprotect always require it. CTR
// is required only when the selected suite has encryption enabled and there
// is a non-empty payload to transform.
type CryptoCapability interface {
	// CMAC authenticates data under key, writing the result into icv.
	// len(icv) determines the truncation length requested by the suite
	// (4 or 8 bytes).
	CMAC(key, data, icv []byte) error

	// CTR encrypts or decrypts in into out under key using iv32 as the
	// 32-bit IV (the low 32 bits of SeqNum). len(out) must equal len(in).
	CTR(key []byte, iv32 uint32, in, out []byte) error

	// DeriveKencKmac derives encryption and MAC keys from masterKey and
	// salt, writing them into kenc and kmac respectively.
	DeriveKencKmac(masterKey, salt, kenc, kmac []byte) error
}
