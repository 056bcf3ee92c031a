package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/crispcore/gocrisp/internal/crisp"
	crispmetrics "github.com/crispcore/gocrisp/internal/metrics"
)

// Sentinel errors.
var (
	// ErrUnknownPeer indicates a received datagram's source address does not
	// match any configured peer.
	ErrUnknownPeer = errors.New("datagram from unknown peer")

	// ErrSocketClosed indicates an operation on a closed Transport.
	ErrSocketClosed = errors.New("transport closed")

	// ErrSeqNumExhausted indicates a peer's outgoing sequence counter has
	// reached crisp.SeqNumMax and cannot be incremented further.
	ErrSeqNumExhausted = errors.New("peer sequence number exhausted")
)

// PeerConfig describes one CRISP peer a Transport sends to and receives from.
type PeerConfig struct {
	// Name identifies the peer in logs and metrics.
	Name string

	// RemoteAddr is the peer's UDP address.
	RemoteAddr netip.AddrPort

	// Suite is the cipher suite used for outgoing datagrams to this peer.
	Suite crisp.Suite

	// KeyIDPresent and KeyID, when set, are carried in outgoing datagrams.
	// Incoming datagrams are matched to a peer by source address only;
	// their KeyId is not consulted.
	KeyIDPresent bool
	KeyID        []byte

	// Kenc and Kmac are the shared encryption and MAC keys for this peer.
	Kenc []byte
	Kmac []byte

	// ReplayWindowSize is the anti-replay window size for this peer, in
	// range [1,256].
	ReplayWindowSize int
}

// peer holds the runtime state for one configured PeerConfig.
type peer struct {
	cfg PeerConfig

	mu           sync.Mutex
	replayWindow *crisp.ReplayWindow
	nextSeqNum   uint64
}

func newPeer(cfg PeerConfig) (*peer, error) {
	rw, err := crisp.NewReplayWindow(cfg.ReplayWindowSize)
	if err != nil {
		return nil, fmt.Errorf("peer %s: replay window: %w", cfg.Name, err)
	}

	return &peer{
		cfg:          cfg,
		replayWindow: rw,
		nextSeqNum:   0,
	}, nil
}

// allocSeqNum returns the next outgoing sequence number for this peer.
func (p *peer) allocSeqNum() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nextSeqNum > crisp.SeqNumMax {
		return 0, fmt.Errorf("peer %s: %w", p.cfg.Name, ErrSeqNumExhausted)
	}
	seq := p.nextSeqNum
	p.nextSeqNum++
	return seq, nil
}

// Transport binds one local UDP socket and exchanges CRISP-protected
// datagrams with a fixed set of configured peers.
type Transport struct {
	conn    *net.UDPConn
	crypto  crisp.CryptoCapability
	logger  *slog.Logger
	metrics *crispmetrics.Collector

	mu     sync.RWMutex
	byAddr map[netip.AddrPort]*peer
	byName map[string]*peer
	closed bool
}

// NewTransport opens a UDP socket at localAddr and returns a Transport ready
// to accept peers via AddPeer.
func NewTransport(
	localAddr netip.AddrPort,
	crypto crisp.CryptoCapability,
	logger *slog.Logger,
	metrics *crispmetrics.Collector,
) (*Transport, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(localAddr))
	if err != nil {
		return nil, fmt.Errorf("listen UDP %s: %w", localAddr, err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		conn:    conn,
		crypto:  crypto,
		logger:  logger.With(slog.String("component", "transport"), slog.String("local", localAddr.String())),
		metrics: metrics,
		byAddr:  make(map[netip.AddrPort]*peer),
		byName:  make(map[string]*peer),
	}, nil
}

// AddPeer registers a peer the Transport will exchange datagrams with.
func (t *Transport) AddPeer(cfg PeerConfig) error {
	p, err := newPeer(cfg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.byAddr[cfg.RemoteAddr] = p
	t.byName[cfg.Name] = p

	return nil
}

// Send protects payload for the named peer and writes it to the socket.
func (t *Transport) Send(ctx context.Context, peerName string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transport send: %w", err)
	}

	t.mu.RLock()
	p, ok := t.byName[peerName]
	closed := t.closed
	t.mu.RUnlock()

	if closed {
		return fmt.Errorf("send to %s: %w", peerName, ErrSocketClosed)
	}
	if !ok {
		return fmt.Errorf("send to %s: %w", peerName, ErrUnknownPeer)
	}

	seq, err := p.allocSeqNum()
	if err != nil {
		return err
	}

	packet := make([]byte, crisp.MaxMessageSize)
	n, err := crisp.Protect(crisp.ProtectParams{
		CS:           p.cfg.Suite,
		KeyIDPresent: p.cfg.KeyIDPresent,
		KeyID:        p.cfg.KeyID,
		SeqNum:       seq,
		Payload:      payload,
		Kenc:         p.cfg.Kenc,
		Kmac:         p.cfg.Kmac,
		Crypto:       t.crypto,
	}, packet)
	if err != nil {
		return fmt.Errorf("protect datagram for %s: %w", peerName, err)
	}

	if _, err := t.conn.WriteToUDPAddrPort(packet[:n], p.cfg.RemoteAddr); err != nil {
		return fmt.Errorf("write datagram to %s: %w", peerName, err)
	}

	if t.metrics != nil {
		t.metrics.IncPacketsProtected(p.cfg.RemoteAddr.String())
		t.metrics.IncSuiteUsage(p.cfg.RemoteAddr.String(), p.cfg.Suite.String())
	}

	return nil
}

// Received is one datagram that passed CRISP unprotect verification.
type Received struct {
	PeerName  string
	RemoteAddr netip.AddrPort
	Plaintext []byte
}

// Recv blocks until a valid datagram arrives or ctx is cancelled. Datagrams
// from unrecognized peers or that fail CRISP verification are dropped and
// the loop continues; only context cancellation and unrecoverable socket
// errors are returned.
func (t *Transport) Recv(ctx context.Context) (Received, error) {
	buf := make([]byte, crisp.MaxMessageSize)

	// Cancelling ctx moves the read deadline into the past, which unblocks
	// a pending ReadFromUDPAddrPort.
	_ = t.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return Received{}, fmt.Errorf("transport recv: %w", err)
		}

		n, remote, err := t.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Received{}, fmt.Errorf("transport recv: %w", ctxErr)
			}
			t.mu.RLock()
			closed := t.closed
			t.mu.RUnlock()
			if closed {
				return Received{}, fmt.Errorf("transport recv: %w", ErrSocketClosed)
			}
			return Received{}, fmt.Errorf("read datagram: %w", err)
		}

		remote = netip.AddrPortFrom(remote.Addr().Unmap(), remote.Port())

		t.mu.RLock()
		p, ok := t.byAddr[remote]
		t.mu.RUnlock()

		if !ok {
			t.logger.Warn("dropping datagram from unknown peer", slog.String("remote", remote.String()))
			continue
		}

		plaintext, dropReason := t.unprotectOne(p, buf[:n])
		if dropReason != "" {
			t.logger.Warn("dropping datagram",
				slog.String("peer", p.cfg.Name),
				slog.String("reason", dropReason))
			continue
		}

		if t.metrics != nil {
			t.metrics.IncPacketsUnprotected(remote.String())
		}

		return Received{PeerName: p.cfg.Name, RemoteAddr: remote, Plaintext: plaintext}, nil
	}
}

// unprotectOne verifies and decrypts one datagram against p's keys and
// replay window. On failure it returns a short reason string (and records
// the appropriate metric) instead of an error, since Recv's loop treats
// every rejection as a drop-and-continue.
func (t *Transport) unprotectOne(p *peer, packet []byte) ([]byte, string) {
	out := make([]byte, len(packet))

	p.mu.Lock()
	result, err := crisp.Unprotect(crisp.UnprotectParams{
		Packet:       packet,
		Kenc:         p.cfg.Kenc,
		Kmac:         p.cfg.Kmac,
		Crypto:       t.crypto,
		ReplayWindow: p.replayWindow,
	}, out)
	p.mu.Unlock()

	if err != nil {
		if t.metrics != nil {
			addr := p.cfg.RemoteAddr.String()
			switch {
			case errors.Is(err, crisp.ErrCrypto):
				t.metrics.IncICVFailures(addr)
			case errors.Is(err, crisp.ErrReplay):
				t.metrics.IncReplayRejects(addr)
			default:
				t.metrics.IncFormatErrors(addr)
			}
		}
		return nil, err.Error()
	}

	return result.Plaintext, ""
}

// Close closes the underlying socket. Safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// LocalAddr returns the transport's bound local address.
func (t *Transport) LocalAddr() netip.AddrPort {
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}
