package crispmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	crispmetrics "github.com/crispcore/gocrisp/internal/metrics"
)

const testPeer = "10.0.0.1:5000"

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := crispmetrics.NewCollector(reg)

	if c.PacketsProtected == nil {
		t.Error("PacketsProtected is nil")
	}
	if c.PacketsUnprotected == nil {
		t.Error("PacketsUnprotected is nil")
	}
	if c.ICVFailures == nil {
		t.Error("ICVFailures is nil")
	}
	if c.ReplayRejects == nil {
		t.Error("ReplayRejects is nil")
	}
	if c.FormatErrors == nil {
		t.Error("FormatErrors is nil")
	}
	if c.SuiteUsage == nil {
		t.Error("SuiteUsage is nil")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	// No data yet, so families may be empty -- but registration must not panic.
	_ = families
}

func TestProtectUnprotectCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := crispmetrics.NewCollector(reg)

	c.IncPacketsProtected(testPeer)
	c.IncPacketsProtected(testPeer)
	c.IncPacketsProtected(testPeer)

	val := counterValue(t, c.PacketsProtected, testPeer)
	if val != 3 {
		t.Errorf("PacketsProtected = %v, want 3", val)
	}

	c.IncPacketsUnprotected(testPeer)
	c.IncPacketsUnprotected(testPeer)

	val = counterValue(t, c.PacketsUnprotected, testPeer)
	if val != 2 {
		t.Errorf("PacketsUnprotected = %v, want 2", val)
	}
}

func TestFailureCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := crispmetrics.NewCollector(reg)

	c.IncICVFailures(testPeer)
	val := counterValue(t, c.ICVFailures, testPeer)
	if val != 1 {
		t.Errorf("ICVFailures = %v, want 1", val)
	}

	c.IncReplayRejects(testPeer)
	c.IncReplayRejects(testPeer)
	val = counterValue(t, c.ReplayRejects, testPeer)
	if val != 2 {
		t.Errorf("ReplayRejects = %v, want 2", val)
	}

	c.IncFormatErrors(testPeer)
	val = counterValue(t, c.FormatErrors, testPeer)
	if val != 1 {
		t.Errorf("FormatErrors = %v, want 1", val)
	}
}

func TestSuiteUsage(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := crispmetrics.NewCollector(reg)

	c.IncSuiteUsage(testPeer, "CS1")
	c.IncSuiteUsage(testPeer, "CS1")
	c.IncSuiteUsage(testPeer, "CS3")

	val := counterValue(t, c.SuiteUsage, testPeer, "CS1")
	if val != 2 {
		t.Errorf("SuiteUsage(CS1) = %v, want 2", val)
	}

	val = counterValue(t, c.SuiteUsage, testPeer, "CS3")
	if val != 1 {
		t.Errorf("SuiteUsage(CS3) = %v, want 1", val)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
