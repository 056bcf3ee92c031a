// Package cryptoback provides crisp.CryptoCapability implementations.
//
// Neither backend implements the real MAGMA block cipher from
// GOST R 71252-2024 — no such library exists in this module's dependency
// surface. DummyBackend is a deterministic, non-cryptographic fixture
// ported from the protocol's own reference test backend, suitable for
// conformance testing. AESRefBackend is a real (if non-GOST) AES-CTR +
// CBC-MAC construction, suitable for exercising the demo daemon and CLI
// end to end without pretending it is standards-compliant.
package cryptoback
