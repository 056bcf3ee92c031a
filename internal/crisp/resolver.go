package crisp

import "fmt"

// ResolveRequest carries the packet metadata a KeyResolver needs to look up
// session keys for an incoming packet.
type ResolveRequest struct {
	ExternalKeyIDFlag bool
	CS                Suite
	KeyIDPresent      bool
	KeyID             []byte
	SeqNum            uint64
}

// ResolveKeysFunc resolves session keys for a packet. The returned spans
// must remain valid for the duration of the UnprotectResolve call that
// invoked it.
type ResolveKeysFunc func(req ResolveRequest) (kenc, kmac []byte, err error)

// KeyResolver configures the UnprotectResolve wrapper.
type KeyResolver struct {
	ResolveKeys ResolveKeysFunc

	// AllowKeyIDUnused permits packets carrying the KeyId-unused marker
	// (0x80) to reach ResolveKeys at all. When false, such packets are
	// rejected with ErrInvalidFormat before ResolveKeys is invoked.
	AllowKeyIDUnused bool
}

// UnprotectResolve parses packet, resolves session keys via resolver, and
// then calls Unprotect with the resolved keys. It is the usual entry point
// for a receiver that keeps keys behind a lookup rather than holding them
// pinned to the call site.
func UnprotectResolve(packet []byte, resolver *KeyResolver, crypto CryptoCapability, replayWindow *ReplayWindow, outPlaintext []byte) (UnprotectResult, error) {
	var result UnprotectResult

	if resolver == nil || resolver.ResolveKeys == nil || crypto == nil {
		return result, fmt.Errorf("missing resolver or crypto capability: %w", ErrInvalidArgument)
	}

	view, err := Parse(packet)
	if err != nil {
		return result, err
	}
	if !view.KeyIDPresent && !resolver.AllowKeyIDUnused {
		return result, fmt.Errorf("key id unused but resolver disallows it: %w", ErrInvalidFormat)
	}

	req := ResolveRequest{
		ExternalKeyIDFlag: view.ExternalKeyIDFlag,
		CS:                view.CS,
		KeyIDPresent:      view.KeyIDPresent,
		KeyID:             view.KeyID,
		SeqNum:            view.SeqNum,
	}
	kenc, kmac, err := resolver.ResolveKeys(req)
	if err != nil {
		return result, err
	}

	return Unprotect(UnprotectParams{
		Packet:       packet,
		Kenc:         kenc,
		Kmac:         kmac,
		Crypto:       crypto,
		ReplayWindow: replayWindow,
	}, outPlaintext)
}
