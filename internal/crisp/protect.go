package crisp

import (
	"crypto/subtle"
	"fmt"
)

// internalMaxICVSize bounds the scratch buffer used while verifying an
// ICV; no defined suite exceeds it, but the check is kept as a defensive
// guard against a future suite with a larger tag.
const internalMaxICVSize = 8

// UnprotectParams holds the input to Unprotect.
type UnprotectParams struct {
	Packet       []byte
	Kenc         []byte
	Kmac         []byte
	Crypto       CryptoCapability
	ReplayWindow *ReplayWindow
}

// UnprotectResult holds the metadata and recovered plaintext from a
// successful Unprotect call.
type UnprotectResult struct {
	ExternalKeyIDFlag bool
	Version           uint16
	CS                Suite
	KeyIDPresent      bool
	KeyID             []byte
	SeqNum            uint64
	Plaintext         []byte
}

// secureZero overwrites buf with zeros using a plain loop. It does not
// defeat compiler dead-store elimination the way a volatile write does in
// C — Go gives no portable equivalent — but it keeps key
// material and derived ICVs from lingering in reused buffers past their
// use.
func secureZero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// Unprotect verifies and, for encrypting suites, decrypts a CRISP wire
// packet. The ICV is checked in constant time; if a ReplayWindow is
// supplied, the sequence number is checked and recorded before decryption.
//
// On any error the output plaintext buffer is left unmodified: parse
// failures, ICV mismatch (ErrCrypto), a replayed sequence number
// (ErrReplay), and an undersized output buffer (ErrBufferTooSmall) all
// return before touching outPlaintext.
func Unprotect(params UnprotectParams, outPlaintext []byte) (UnprotectResult, error) {
	var result UnprotectResult

	if params.Crypto == nil {
		return result, fmt.Errorf("missing crypto capability: %w", ErrInvalidArgument)
	}

	view, err := Parse(params.Packet)
	if err != nil {
		return result, err
	}

	suiteParams, err := GetSuiteParams(view.CS)
	if err != nil {
		return result, err
	}
	if len(view.ICV) != suiteParams.ICVSize {
		return result, fmt.Errorf("icv length %d does not match suite %s: %w", len(view.ICV), view.CS, ErrInvalidFormat)
	}
	if suiteParams.ICVSize > internalMaxICVSize {
		return result, fmt.Errorf("suite %s icv size %d exceeds internal maximum: %w", view.CS, suiteParams.ICVSize, ErrOutOfRange)
	}

	cmacInputSize := len(params.Packet) - len(view.ICV)
	cmacInput := params.Packet[:cmacInputSize]

	var expectedICVStorage [internalMaxICVSize]byte
	expectedICV := expectedICVStorage[:suiteParams.ICVSize]
	defer secureZero(expectedICVStorage[:])

	if err := params.Crypto.CMAC(params.Kmac, cmacInput, expectedICV); err != nil {
		return result, err
	}
	if subtle.ConstantTimeCompare(expectedICV, view.ICV) != 1 {
		return result, ErrCrypto
	}

	if len(outPlaintext) < len(view.Payload) {
		return result, fmt.Errorf("output buffer holds %d bytes, need %d: %w", len(outPlaintext), len(view.Payload), ErrBufferTooSmall)
	}

	if params.ReplayWindow != nil {
		accepted, err := params.ReplayWindow.CheckAndUpdate(view.SeqNum)
		if err != nil {
			return result, err
		}
		if !accepted {
			return result, ErrReplay
		}
	}

	plaintext := outPlaintext[:len(view.Payload)]
	if len(view.Payload) > 0 {
		if suiteParams.EncryptionEnabled {
			iv32 := uint32(view.SeqNum & 0xFFFFFFFF)
			if err := params.Crypto.CTR(params.Kenc, iv32, view.Payload, plaintext); err != nil {
				return result, err
			}
		} else {
			copy(plaintext, view.Payload)
		}
	}

	result.ExternalKeyIDFlag = view.ExternalKeyIDFlag
	result.Version = view.Version
	result.CS = view.CS
	result.KeyIDPresent = view.KeyIDPresent
	result.KeyID = view.KeyID
	result.SeqNum = view.SeqNum
	result.Plaintext = plaintext
	return result, nil
}
