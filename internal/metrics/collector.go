package crispmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "crisp"
	subsystem = "proto"
)

// Label names for CRISP metrics.
const (
	labelPeerAddr = "peer_addr"
	labelSuite    = "suite"
)

// -------------------------------------------------------------------------
// Collector — Prometheus CRISP Metrics
// -------------------------------------------------------------------------

// Collector holds all CRISP Prometheus metrics.
//
//   - Protect/Unprotect counters track packet volume per peer.
//   - ICVFailures counts authentication verification failures — a spike
//     here usually means a misconfigured key or an attack.
//   - ReplayRejects counts packets rejected by the anti-replay window.
//   - SuiteUsage counts protect operations per peer and configured cipher suite.
type Collector struct {
	// PacketsProtected counts packets successfully protected (encoded) per peer.
	PacketsProtected *prometheus.CounterVec

	// PacketsUnprotected counts packets successfully unprotected (decoded) per peer.
	PacketsUnprotected *prometheus.CounterVec

	// ICVFailures counts ICV verification failures per peer.
	ICVFailures *prometheus.CounterVec

	// ReplayRejects counts packets rejected by the anti-replay window per peer.
	ReplayRejects *prometheus.CounterVec

	// FormatErrors counts packets rejected for malformed encoding per peer.
	FormatErrors *prometheus.CounterVec

	// SuiteUsage counts protect operations broken down by cipher suite.
	SuiteUsage *prometheus.CounterVec
}

// NewCollector creates a Collector with all CRISP metrics registered against
// the provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
//
// All metrics are created with the "crisp_proto_" prefix (namespace_subsystem)
// to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.PacketsProtected,
		c.PacketsUnprotected,
		c.ICVFailures,
		c.ReplayRejects,
		c.FormatErrors,
		c.SuiteUsage,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	peerLabels := []string{labelPeerAddr}
	suiteLabels := []string{labelPeerAddr, labelSuite}

	return &Collector{
		PacketsProtected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_protected_total",
			Help:      "Total datagrams successfully protected.",
		}, peerLabels),

		PacketsUnprotected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_unprotected_total",
			Help:      "Total datagrams successfully unprotected.",
		}, peerLabels),

		ICVFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "icv_failures_total",
			Help:      "Total ICV verification failures.",
		}, peerLabels),

		ReplayRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "replay_rejects_total",
			Help:      "Total datagrams rejected by the anti-replay window.",
		}, peerLabels),

		FormatErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "format_errors_total",
			Help:      "Total datagrams rejected for malformed encoding.",
		}, peerLabels),

		SuiteUsage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "suite_usage_total",
			Help:      "Total protect operations broken down by cipher suite.",
		}, suiteLabels),
	}
}

// -------------------------------------------------------------------------
// Protect/Unprotect Counters
// -------------------------------------------------------------------------

// IncPacketsProtected increments the protected packets counter for the given peer.
func (c *Collector) IncPacketsProtected(peer string) {
	c.PacketsProtected.WithLabelValues(peer).Inc()
}

// IncPacketsUnprotected increments the unprotected packets counter for the given peer.
func (c *Collector) IncPacketsUnprotected(peer string) {
	c.PacketsUnprotected.WithLabelValues(peer).Inc()
}

// -------------------------------------------------------------------------
// Failure Counters
// -------------------------------------------------------------------------

// IncICVFailures increments the ICV verification failure counter for the given peer.
func (c *Collector) IncICVFailures(peer string) {
	c.ICVFailures.WithLabelValues(peer).Inc()
}

// IncReplayRejects increments the anti-replay rejection counter for the given peer.
func (c *Collector) IncReplayRejects(peer string) {
	c.ReplayRejects.WithLabelValues(peer).Inc()
}

// IncFormatErrors increments the malformed-datagram counter for the given peer.
func (c *Collector) IncFormatErrors(peer string) {
	c.FormatErrors.WithLabelValues(peer).Inc()
}

// -------------------------------------------------------------------------
// Suite Usage
// -------------------------------------------------------------------------

// IncSuiteUsage increments the suite usage counter for the given peer and suite name.
func (c *Collector) IncSuiteUsage(peer, suite string) {
	c.SuiteUsage.WithLabelValues(peer, suite).Inc()
}
