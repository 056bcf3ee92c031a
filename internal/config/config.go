// Package config manages the crispd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete crispd configuration.
type Config struct {
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Crisp   CrispConfig   `koanf:"crisp"`
	Peers   []PeerConfig  `koanf:"peers"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// CrispConfig holds the default CRISP protocol parameters applied to every
// declared peer unless overridden.
type CrispConfig struct {
	// Suite is the default cryptographic suite name: "CS1".."CS4".
	Suite string `koanf:"suite"`

	// ReplayWindowSize is the default anti-replay window size, in
	// sequence numbers, in range [1,256].
	ReplayWindowSize int `koanf:"replay_window_size"`

	// Backend selects the crypto capability implementation: "dummy" or
	// "aesref".
	Backend string `koanf:"backend"`
}

// PeerConfig describes one UDP peer crispd protects traffic to/from.
type PeerConfig struct {
	// Name identifies the peer in logs and metrics.
	Name string `koanf:"name"`

	// ListenAddr is the local UDP address to receive packets from Peer on.
	ListenAddr string `koanf:"listen_addr"`

	// PeerAddr is the remote UDP address to send protected packets to.
	PeerAddr string `koanf:"peer_addr"`

	// Suite overrides CrispConfig.Suite for this peer; empty inherits it.
	Suite string `koanf:"suite"`

	// KeyIDHex is the hex-encoded KeyId this peer's outgoing packets carry.
	// Empty means no KeyId (the unused marker).
	KeyIDHex string `koanf:"key_id_hex"`

	// KencHex and KmacHex are the hex-encoded encryption and MAC keys
	// shared with this peer.
	KencHex string `koanf:"kenc_hex"`
	KmacHex string `koanf:"kmac_hex"`

	// ReplayWindowSize overrides CrispConfig.ReplayWindowSize for this
	// peer; zero inherits it.
	ReplayWindowSize int `koanf:"replay_window_size"`
}

// PeerKey returns a unique identifier for the peer based on
// (listen_addr, peer_addr). Used for detecting duplicate entries.
func (pc PeerConfig) PeerKey() string {
	return pc.ListenAddr + "|" + pc.PeerAddr
}

// ResolvePeerAddr parses PeerAddr as a netip.AddrPort.
func (pc PeerConfig) ResolvePeerAddr() (netip.AddrPort, error) {
	if pc.PeerAddr == "" {
		return netip.AddrPort{}, fmt.Errorf("peer addr: %w", ErrInvalidPeerAddr)
	}
	addr, err := netip.ParseAddrPort(pc.PeerAddr)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("parse peer addr %q: %w", pc.PeerAddr, err)
	}
	return addr, nil
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Crisp: CrispConfig{
			Suite:            "CS1",
			ReplayWindowSize: 64,
			Backend:          "dummy",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for crispd configuration.
// Variables are named CRISP_<section>_<key>, e.g., CRISP_METRICS_ADDR.
const envPrefix = "CRISP_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (CRISP_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	CRISP_METRICS_ADDR  -> metrics.addr
//	CRISP_METRICS_PATH  -> metrics.path
//	CRISP_LOG_LEVEL     -> log.level
//	CRISP_LOG_FORMAT    -> log.format
//	CRISP_CRISP_SUITE   -> crisp.suite
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms CRISP_METRICS_ADDR -> metrics.addr.
// Strips the CRISP_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"metrics.addr":             defaults.Metrics.Addr,
		"metrics.path":             defaults.Metrics.Path,
		"log.level":                defaults.Log.Level,
		"log.format":               defaults.Log.Format,
		"crisp.suite":              defaults.Crisp.Suite,
		"crisp.replay_window_size": defaults.Crisp.ReplayWindowSize,
		"crisp.backend":            defaults.Crisp.Backend,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrInvalidSuiteName indicates crisp.suite (or a peer override) is not
	// one of CS1..CS4.
	ErrInvalidSuiteName = errors.New("suite must be one of CS1, CS2, CS3, CS4")

	// ErrInvalidReplayWindowSize indicates a replay window size outside [1,256].
	ErrInvalidReplayWindowSize = errors.New("replay_window_size must be in [1,256]")

	// ErrInvalidBackendName indicates crisp.backend is not a known backend.
	ErrInvalidBackendName = errors.New("backend must be one of dummy, aesref")

	// ErrInvalidPeerAddr indicates a peer has an invalid or empty peer_addr.
	ErrInvalidPeerAddr = errors.New("peer peer_addr is invalid")

	// ErrInvalidPeerListenAddr indicates a peer has an empty listen_addr.
	ErrInvalidPeerListenAddr = errors.New("peer listen_addr must not be empty")

	// ErrDuplicatePeerKey indicates two peers share the same
	// (listen_addr, peer_addr) key.
	ErrDuplicatePeerKey = errors.New("duplicate peer key")
)

// ValidSuiteNames lists the recognized suite name strings.
var ValidSuiteNames = map[string]bool{
	"CS1": true,
	"CS2": true,
	"CS3": true,
	"CS4": true,
}

// ValidBackendNames lists the recognized crypto backend name strings.
var ValidBackendNames = map[string]bool{
	"dummy":  true,
	"aesref": true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if !ValidSuiteNames[cfg.Crisp.Suite] {
		return fmt.Errorf("crisp.suite %q: %w", cfg.Crisp.Suite, ErrInvalidSuiteName)
	}
	if cfg.Crisp.ReplayWindowSize < 1 || cfg.Crisp.ReplayWindowSize > 256 {
		return fmt.Errorf("crisp.replay_window_size %d: %w", cfg.Crisp.ReplayWindowSize, ErrInvalidReplayWindowSize)
	}
	if !ValidBackendNames[cfg.Crisp.Backend] {
		return fmt.Errorf("crisp.backend %q: %w", cfg.Crisp.Backend, ErrInvalidBackendName)
	}

	return validatePeers(cfg.Peers)
}

// validatePeers checks each declarative peer entry for correctness.
func validatePeers(peers []PeerConfig) error {
	seen := make(map[string]struct{}, len(peers))

	for i, pc := range peers {
		if _, err := pc.ResolvePeerAddr(); err != nil {
			return fmt.Errorf("peers[%d]: %w: %w", i, ErrInvalidPeerAddr, err)
		}
		if pc.ListenAddr == "" {
			return fmt.Errorf("peers[%d]: %w", i, ErrInvalidPeerListenAddr)
		}
		if pc.Suite != "" && !ValidSuiteNames[pc.Suite] {
			return fmt.Errorf("peers[%d] suite %q: %w", i, pc.Suite, ErrInvalidSuiteName)
		}
		if pc.ReplayWindowSize != 0 && (pc.ReplayWindowSize < 1 || pc.ReplayWindowSize > 256) {
			return fmt.Errorf("peers[%d]: %w", i, ErrInvalidReplayWindowSize)
		}

		key := pc.PeerKey()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("peers[%d] key %q: %w", i, key, ErrDuplicatePeerKey)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
