// crispd -- CRISP secure datagram daemon.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/crispcore/gocrisp/internal/config"
	"github.com/crispcore/gocrisp/internal/crisp"
	"github.com/crispcore/gocrisp/internal/cryptoback"
	crispmetrics "github.com/crispcore/gocrisp/internal/metrics"
	"github.com/crispcore/gocrisp/internal/transport"
	crispversion "github.com/crispcore/gocrisp/internal/version"
)

// errUnknownBackend indicates cfg.Crisp.Backend named a backend not
// recognized by newCryptoBackend. config.Validate should make this
// unreachable for configs loaded through config.Load.
var errUnknownBackend = errors.New("unknown crypto backend")

// errUnknownSuite indicates a suite name not recognized by parseSuite.
// config.Validate should make this unreachable for configs loaded through
// config.Load.
var errUnknownSuite = errors.New("unknown suite name")

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("crispd starting",
		slog.String("version", crispversion.Version),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.Int("peers", len(cfg.Peers)),
	)

	backend, err := newCryptoBackend(cfg.Crisp.Backend)
	if err != nil {
		logger.Error("failed to create crypto backend", slog.String("error", err.Error()))
		return 1
	}

	reg := prometheus.NewRegistry()
	collector := crispmetrics.NewCollector(reg)

	if err := runServers(cfg, backend, collector, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("crispd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("crispd stopped")
	return 0
}

// runServers sets up the metrics HTTP server and per-peer-group transports,
// running them under an errgroup with signal-aware context for graceful
// shutdown.
func runServers(
	cfg *config.Config,
	backend crisp.CryptoCapability,
	collector *crispmetrics.Collector,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
) error {
	transports, err := createTransports(cfg, backend, collector, logger)
	if err != nil {
		return fmt.Errorf("create transports: %w", err)
	}
	defer closeTransports(transports, logger)

	metricsSrv := newMetricsServer(cfg.Metrics, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	for _, tr := range transports {
		tr := tr
		g.Go(func() error {
			return recvLoop(gCtx, tr, logger)
		})
	}

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	startSIGHUPHandler(gCtx, g, configPath, logLevel, logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// recvLoop reads and logs protected datagrams from tr until ctx is
// cancelled. Verification failures (bad ICV, replay, malformed datagram)
// are dropped inside transport.Transport.Recv and never reach this loop.
func recvLoop(ctx context.Context, tr *transport.Transport, logger *slog.Logger) error {
	for {
		received, err := tr.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("transport recv: %w", err)
		}

		logger.Debug("received protected datagram",
			slog.String("peer", received.PeerName),
			slog.String("remote", received.RemoteAddr.String()),
			slog.Int("bytes", len(received.Plaintext)),
		)
	}
}

// createTransports creates one Transport per unique peer listen address and
// registers each configured peer against it.
func createTransports(
	cfg *config.Config,
	backend crisp.CryptoCapability,
	collector *crispmetrics.Collector,
	logger *slog.Logger,
) ([]*transport.Transport, error) {
	byListenAddr := make(map[string]*transport.Transport)
	var transports []*transport.Transport

	for _, pc := range cfg.Peers {
		listenAddr, err := netip.ParseAddrPort(pc.ListenAddr)
		if err != nil {
			closeTransports(transports, logger)
			return nil, fmt.Errorf("peer %s: parse listen_addr %q: %w", pc.Name, pc.ListenAddr, err)
		}

		tr, ok := byListenAddr[pc.ListenAddr]
		if !ok {
			tr, err = transport.NewTransport(listenAddr, backend, logger, collector)
			if err != nil {
				closeTransports(transports, logger)
				return nil, fmt.Errorf("listen on %s: %w", pc.ListenAddr, err)
			}
			byListenAddr[pc.ListenAddr] = tr
			transports = append(transports, tr)
			logger.Info("transport listening", slog.String("addr", pc.ListenAddr))
		}

		peerCfg, err := peerConfigFromConfig(cfg.Crisp, pc)
		if err != nil {
			closeTransports(transports, logger)
			return nil, fmt.Errorf("peer %s: %w", pc.Name, err)
		}

		if err := tr.AddPeer(peerCfg); err != nil {
			closeTransports(transports, logger)
			return nil, fmt.Errorf("add peer %s: %w", pc.Name, err)
		}
	}

	return transports, nil
}

// peerConfigFromConfig builds a transport.PeerConfig from a config.PeerConfig,
// applying CrispConfig defaults where the peer entry leaves a field empty.
func peerConfigFromConfig(defaults config.CrispConfig, pc config.PeerConfig) (transport.PeerConfig, error) {
	remoteAddr, err := pc.ResolvePeerAddr()
	if err != nil {
		return transport.PeerConfig{}, err
	}

	suiteName := pc.Suite
	if suiteName == "" {
		suiteName = defaults.Suite
	}
	suite, err := parseSuite(suiteName)
	if err != nil {
		return transport.PeerConfig{}, err
	}

	windowSize := pc.ReplayWindowSize
	if windowSize == 0 {
		windowSize = defaults.ReplayWindowSize
	}

	var keyID []byte
	if pc.KeyIDHex != "" {
		keyID, err = decodeHex(pc.KeyIDHex)
		if err != nil {
			return transport.PeerConfig{}, fmt.Errorf("decode key_id_hex: %w", err)
		}
	}

	kenc, err := decodeHex(pc.KencHex)
	if err != nil {
		return transport.PeerConfig{}, fmt.Errorf("decode kenc_hex: %w", err)
	}
	kmac, err := decodeHex(pc.KmacHex)
	if err != nil {
		return transport.PeerConfig{}, fmt.Errorf("decode kmac_hex: %w", err)
	}

	return transport.PeerConfig{
		Name:             pc.Name,
		RemoteAddr:       remoteAddr,
		Suite:            suite,
		KeyIDPresent:     len(keyID) > 0,
		KeyID:            keyID,
		Kenc:             kenc,
		Kmac:             kmac,
		ReplayWindowSize: windowSize,
	}, nil
}

// closeTransports closes all provided transports, logging any errors.
func closeTransports(transports []*transport.Transport, logger *slog.Logger) {
	for _, tr := range transports {
		if err := tr.Close(); err != nil {
			logger.Warn("failed to close transport", slog.String("error", err.Error()))
		}
	}
}

// newCryptoBackend selects a crisp.CryptoCapability implementation by name.
func newCryptoBackend(name string) (crisp.CryptoCapability, error) {
	switch name {
	case "dummy", "":
		return &cryptoback.DummyBackend{}, nil
	case "aesref":
		return &cryptoback.AESRefBackend{}, nil
	default:
		return nil, fmt.Errorf("backend %q: %w", name, errUnknownBackend)
	}
}

// parseSuite maps a suite name string to a crisp.Suite value.
func parseSuite(name string) (crisp.Suite, error) {
	switch name {
	case "CS1":
		return crisp.SuiteCS1, nil
	case "CS2":
		return crisp.SuiteCS2, nil
	case "CS3":
		return crisp.SuiteCS3, nil
	case "CS4":
		return crisp.SuiteCS4, nil
	default:
		return 0, fmt.Errorf("suite %q: %w", name, errUnknownSuite)
	}
}

// -------------------------------------------------------------------------
// SIGHUP Reload -- log level only
// -------------------------------------------------------------------------

// startSIGHUPHandler registers a goroutine that reloads the dynamic log
// level on SIGHUP. CRISP peers are fixed for the daemon's lifetime, so
// reload does not touch transports.
func startSIGHUPHandler(
	ctx context.Context,
	g *errgroup.Group,
	configPath string,
	logLevel *slog.LevelVar,
	logger *slog.Logger,
) {
	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sigHUP:
				reloadLogLevel(configPath, logLevel, logger)
			}
		}
	})
}

// reloadLogLevel reloads configuration from configPath and updates the
// dynamic log level. Errors are logged but do not stop the daemon.
func reloadLogLevel(configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	newCfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to reload configuration, keeping current settings",
			slog.String("error", err.Error()),
		)
		return
	}

	oldLevel := logLevel.Level()
	newLevel := config.ParseLogLevel(newCfg.Log.Level)
	logLevel.Set(newLevel)

	logger.Info("configuration reloaded",
		slog.String("old_log_level", oldLevel.String()),
		slog.String("new_log_level", newLevel.String()),
	)
}

// -------------------------------------------------------------------------
// Graceful Shutdown
// -------------------------------------------------------------------------

// shutdownTimeout is the maximum time to wait for the metrics server to
// drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// gracefulShutdown shuts down the metrics HTTP server. Transports are not
// touched here: each recvLoop returns once gCtx is cancelled, and the
// deferred closeTransports in runServers closes the sockets after all of
// them have returned.
func gracefulShutdown(ctx context.Context, logger *slog.Logger, metricsSrv *http.Server) error {
	logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// decodeHex decodes a hex string, returning nil for an empty input.
func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
