package crisp

import "fmt"

// MessageView is a parsed CRISP message, its fields referencing the
// original packet's backing array rather than copies.
type MessageView struct {
	ExternalKeyIDFlag bool
	Version           uint16
	CS                Suite
	KeyIDPresent      bool
	KeyID             []byte
	SeqNum            uint64
	Payload           []byte
	ICV               []byte
}

// BuildParams holds the input to Build.
type BuildParams struct {
	ExternalKeyIDFlag bool
	Version           uint16
	CS                Suite
	KeyIDPresent      bool
	SeqNum            uint64
	KeyID             []byte
	Payload           []byte
	Kenc              []byte
	Kmac              []byte
	Crypto            CryptoCapability
}

// checkedAddSize adds a and b, reporting ErrOutOfRange instead of wrapping
// on overflow. Packet sizes are bounded by MaxMessageSize in practice, but
// the check is kept to mirror the protocol's own arithmetic discipline.
func checkedAddSize(a, b int) (int, error) {
	const maxSize = int(^uint(0) >> 1)
	if a > maxSize-b {
		return 0, ErrOutOfRange
	}
	return a + b, nil
}

func readBE48(b []byte) uint64 {
	var v uint64
	for i := 0; i < seqNumSize; i++ {
		v = (v << 8) | uint64(b[i])
	}
	return v
}

func writeBE48(v uint64, out []byte) {
	for i := 0; i < seqNumSize; i++ {
		out[seqNumSize-1-i] = byte(v & 0xFF)
		v >>= 8
	}
}

// Parse decodes packet into a MessageView. It enforces the maximum packet
// length, Version==0, KeyId encoding rules, the 48-bit big-endian SeqNum
// encoding, and the suite-specific ICV length.
func Parse(packet []byte) (MessageView, error) {
	var view MessageView

	if len(packet) > MaxMessageSize {
		return view, fmt.Errorf("packet size %d exceeds maximum: %w", len(packet), ErrInvalidSize)
	}

	const minPossibleSize = headerPrefixSize + 1 + seqNumSize + 4
	if len(packet) < minPossibleSize {
		return view, fmt.Errorf("packet size %d below minimum %d: %w", len(packet), minPossibleSize, ErrInvalidSize)
	}

	first16 := uint16(packet[0])<<8 | uint16(packet[1])
	externalKeyIDFlag := first16&0x8000 != 0
	version := first16 & 0x7FFF
	if version != Version2024 {
		return view, fmt.Errorf("unsupported version %d: %w", version, ErrInvalidFormat)
	}

	cs := Suite(packet[2])
	suiteParams, err := GetSuiteParams(cs)
	if err != nil {
		return view, err
	}

	const keyIDOffset = headerPrefixSize
	keyIDPresent, keyID, keyIDSize, err := decodeKeyID(packet, keyIDOffset)
	if err != nil {
		return view, err
	}

	seqNumOffset, err := checkedAddSize(keyIDOffset, keyIDSize)
	if err != nil {
		return view, err
	}

	payloadOffset, err := checkedAddSize(seqNumOffset, seqNumSize)
	if err != nil {
		return view, err
	}
	if payloadOffset > len(packet) {
		return view, fmt.Errorf("seqnum extends past packet end: %w", ErrInvalidSize)
	}

	payloadPlusICVSize := len(packet) - payloadOffset
	if payloadPlusICVSize < suiteParams.ICVSize {
		return view, fmt.Errorf("packet too short for suite %s icv: %w", cs, ErrInvalidSize)
	}

	seqNum := readBE48(packet[seqNumOffset:])
	if seqNum > SeqNumMax {
		return view, fmt.Errorf("seqnum %d exceeds 48-bit range: %w", seqNum, ErrOutOfRange)
	}

	payloadSize := payloadPlusICVSize - suiteParams.ICVSize
	payload := packet[payloadOffset : payloadOffset+payloadSize]
	icv := packet[payloadOffset+payloadSize : payloadOffset+payloadSize+suiteParams.ICVSize]

	view.ExternalKeyIDFlag = externalKeyIDFlag
	view.Version = version
	view.CS = cs
	view.KeyIDPresent = keyIDPresent
	view.KeyID = keyID
	view.SeqNum = seqNum
	view.Payload = payload
	view.ICV = icv
	return view, nil
}

// Build serializes params into outPacket, returning the number of bytes
// written. outPacket must be at least as large as the serialized message;
// ErrBufferTooSmall is returned otherwise. The CTR transform (when the
// suite has encryption enabled and the payload is non-empty) runs with
// IV32 = low 32 bits of SeqNum; the ICV is a CMAC over everything preceding
// it in the packet.
func Build(params BuildParams, outPacket []byte) (int, error) {
	if (len(params.Payload) > 0 && params.Payload == nil) ||
		(len(params.Kenc) > 0 && params.Kenc == nil) ||
		(len(params.Kmac) > 0 && params.Kmac == nil) {
		return 0, ErrInvalidArgument
	}
	if params.Version != Version2024 {
		return 0, fmt.Errorf("unsupported version %d: %w", params.Version, ErrOutOfRange)
	}
	if params.SeqNum > SeqNumMax {
		return 0, fmt.Errorf("seqnum %d exceeds 48-bit range: %w", params.SeqNum, ErrOutOfRange)
	}

	suiteParams, err := GetSuiteParams(params.CS)
	if err != nil {
		return 0, err
	}

	encodedKeyIDSize := 1
	if params.KeyIDPresent {
		if err := ValidateKeyID(params.KeyID); err != nil {
			return 0, err
		}
		encodedKeyIDSize = len(params.KeyID)
	} else if len(params.KeyID) != 0 {
		return 0, fmt.Errorf("key id bytes given without KeyIDPresent: %w", ErrInvalidArgument)
	}

	if params.Crypto == nil {
		return 0, fmt.Errorf("missing crypto capability: %w", ErrInvalidArgument)
	}

	totalSize := headerPrefixSize
	if totalSize, err = checkedAddSize(totalSize, encodedKeyIDSize); err != nil {
		return 0, err
	}
	if totalSize, err = checkedAddSize(totalSize, seqNumSize); err != nil {
		return 0, err
	}
	if totalSize, err = checkedAddSize(totalSize, len(params.Payload)); err != nil {
		return 0, err
	}
	if totalSize, err = checkedAddSize(totalSize, suiteParams.ICVSize); err != nil {
		return 0, err
	}

	if totalSize > MaxMessageSize {
		return 0, fmt.Errorf("built message size %d exceeds maximum: %w", totalSize, ErrInvalidSize)
	}
	if len(outPacket) < totalSize {
		return 0, fmt.Errorf("output buffer holds %d bytes, need %d: %w", len(outPacket), totalSize, ErrBufferTooSmall)
	}

	first16 := uint16(params.Version & 0x7FFF)
	if params.ExternalKeyIDFlag {
		first16 |= 0x8000
	}
	outPacket[0] = byte(first16 >> 8)
	outPacket[1] = byte(first16 & 0xFF)
	outPacket[2] = byte(params.CS)

	offset := headerPrefixSize
	if params.KeyIDPresent {
		copy(outPacket[offset:], params.KeyID)
		offset += len(params.KeyID)
	} else {
		outPacket[offset] = KeyIDUnusedMarker
		offset++
	}

	writeBE48(params.SeqNum, outPacket[offset:])
	offset += seqNumSize

	payloadOffset := offset
	if len(params.Payload) > 0 {
		payloadOut := outPacket[payloadOffset : payloadOffset+len(params.Payload)]
		if suiteParams.EncryptionEnabled {
			iv32 := uint32(params.SeqNum & 0xFFFFFFFF)
			if err := params.Crypto.CTR(params.Kenc, iv32, params.Payload, payloadOut); err != nil {
				return 0, err
			}
		} else {
			copy(payloadOut, params.Payload)
		}
	}

	icvOffset := payloadOffset + len(params.Payload)
	cmacInput := outPacket[:icvOffset]
	icvOut := outPacket[icvOffset : icvOffset+suiteParams.ICVSize]

	if err := params.Crypto.CMAC(params.Kmac, cmacInput, icvOut); err != nil {
		return 0, err
	}

	return totalSize, nil
}

// ProtectParams holds the input to Protect, Version pinned to Version2024.
type ProtectParams struct {
	ExternalKeyIDFlag bool
	CS                Suite
	KeyIDPresent      bool
	SeqNum            uint64
	KeyID             []byte
	Payload           []byte
	Kenc              []byte
	Kmac              []byte
	Crypto            CryptoCapability
}

// Protect serializes params into outPacket. It is equivalent to Build with
// Version fixed to Version2024, as mandated by GOST R 71252-2024.
func Protect(params ProtectParams, outPacket []byte) (int, error) {
	return Build(BuildParams{
		ExternalKeyIDFlag: params.ExternalKeyIDFlag,
		Version:           Version2024,
		CS:                params.CS,
		KeyIDPresent:      params.KeyIDPresent,
		SeqNum:            params.SeqNum,
		KeyID:             params.KeyID,
		Payload:           params.Payload,
		Kenc:              params.Kenc,
		Kmac:              params.Kmac,
		Crypto:            params.Crypto,
	}, outPacket)
}
