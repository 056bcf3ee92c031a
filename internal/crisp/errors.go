package crisp

import "errors"

// Sentinel errors returned by this package. Wrapping with fmt.Errorf("...: %w", ...)
// preserves errors.Is compatibility against these values throughout the codec,
// protect/unprotect, and resolver layers.
var (
	// ErrInvalidArgument indicates a caller-supplied argument violated a
	// precondition (nil pointer paired with a non-zero length, mismatched
	// spans, a missing required capability callback).
	ErrInvalidArgument = errors.New("crisp: invalid argument")

	// ErrBufferTooSmall indicates a caller-supplied output buffer cannot
	// hold the result.
	ErrBufferTooSmall = errors.New("crisp: buffer too small")

	// ErrInvalidSize indicates a packet or field length violates a fixed
	// size bound (too long, too short, or a field that runs past the end of
	// the packet).
	ErrInvalidSize = errors.New("crisp: invalid size")

	// ErrInvalidFormat indicates a packet declares an unsupported version,
	// carries a malformed KeyId, or has an ICV length that does not match
	// its suite. UnprotectResolve also returns it for a KeyId-unused packet
	// its resolver does not allow.
	ErrInvalidFormat = errors.New("crisp: invalid format")

	// ErrUnsupportedSuite indicates an unknown CS value.
	ErrUnsupportedSuite = errors.New("crisp: unsupported suite")

	// ErrReplay indicates a sequence number was rejected by the anti-replay
	// window (too old, or already seen).
	ErrReplay = errors.New("crisp: replayed sequence number")

	// ErrOutOfRange indicates a value exceeds the protocol's numeric range
	// (SeqNum > 2^48-1, a replay window size outside [1,256], checked-size
	// arithmetic overflow).
	ErrOutOfRange = errors.New("crisp: value out of range")

	// ErrCrypto indicates ICV verification failed or a crypto capability
	// call itself reported failure.
	ErrCrypto = errors.New("crisp: cryptographic verification failed")
)
