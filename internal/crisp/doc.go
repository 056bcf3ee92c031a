// Package crisp implements the CRISP secure-datagram wire protocol core
// (GOST R 71252-2024): message parsing and building, protect/unprotect
// orchestration, and sliding-window anti-replay tracking.
//
// The package is deliberately synchronous and allocation-light: it never
// starts a goroutine and never logs. Callers that need transport,
// concurrency, or observability build it on top, the way internal/transport
// and cmd/crispd do.
package crisp
