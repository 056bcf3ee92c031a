package crisp_test

import (
	"errors"
	"testing"

	"github.com/crispcore/gocrisp/internal/crisp"
)

func TestReplayWindowInitRejectsOutOfRangeSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1, crisp.ReplayWindowMaxSize + 1} {
		if _, err := crisp.NewReplayWindow(size); !errors.Is(err, crisp.ErrOutOfRange) {
			t.Errorf("NewReplayWindow(%d) error = %v, want ErrOutOfRange", size, err)
		}
	}
}

func TestReplayWindowFirstSeqnumAlwaysAccepted(t *testing.T) {
	t.Parallel()

	w, err := crisp.NewReplayWindow(16)
	if err != nil {
		t.Fatalf("NewReplayWindow() error: %v", err)
	}

	accepted, err := w.CheckAndUpdate(500)
	if err != nil {
		t.Fatalf("CheckAndUpdate() error: %v", err)
	}
	if !accepted {
		t.Fatal("first seqnum through an uninitialized window must be accepted")
	}
}

func TestReplayWindowSequenceScenario(t *testing.T) {
	t.Parallel()

	// Window size 4; feed 10, 9, 8, 7, 6, 9, 11, 10 and check the exact
	// accept/reject pattern the sliding-bitmap algorithm produces: the
	// window fills in descending order, 6 falls off the back, a repeat of
	// 9 is rejected, 11 slides the window forward, and a repeat of 10,
	// still inside the window but already seen, is rejected.
	w, err := crisp.NewReplayWindow(4)
	if err != nil {
		t.Fatalf("NewReplayWindow() error: %v", err)
	}

	tests := []struct {
		seqnum       uint64
		wantAccepted bool
	}{
		{seqnum: 10, wantAccepted: true},
		{seqnum: 9, wantAccepted: true},
		{seqnum: 8, wantAccepted: true},
		{seqnum: 7, wantAccepted: true},
		{seqnum: 6, wantAccepted: false},
		{seqnum: 9, wantAccepted: false},
		{seqnum: 11, wantAccepted: true},
		{seqnum: 10, wantAccepted: false},
	}

	for _, tt := range tests {
		accepted, err := w.CheckAndUpdate(tt.seqnum)
		if err != nil {
			t.Fatalf("CheckAndUpdate(%d) error: %v", tt.seqnum, err)
		}
		if accepted != tt.wantAccepted {
			t.Errorf("CheckAndUpdate(%d) accepted = %v, want %v", tt.seqnum, accepted, tt.wantAccepted)
		}
	}
}

func TestReplayWindowRejectsSeqnumOutOfRange(t *testing.T) {
	t.Parallel()

	w, err := crisp.NewReplayWindow(8)
	if err != nil {
		t.Fatalf("NewReplayWindow() error: %v", err)
	}

	_, err = w.CheckAndUpdate(crisp.SeqNumMax + 1)
	if !errors.Is(err, crisp.ErrOutOfRange) {
		t.Fatalf("CheckAndUpdate() error = %v, want ErrOutOfRange", err)
	}
}

func TestReplayWindowLargeForwardJumpClearsWindow(t *testing.T) {
	t.Parallel()

	w, err := crisp.NewReplayWindow(4)
	if err != nil {
		t.Fatalf("NewReplayWindow() error: %v", err)
	}

	if _, err := w.CheckAndUpdate(100); err != nil {
		t.Fatalf("CheckAndUpdate() error: %v", err)
	}
	if _, err := w.CheckAndUpdate(1000); err != nil {
		t.Fatalf("CheckAndUpdate() error: %v", err)
	}

	// After a jump far beyond the window size, the old maximum is long
	// gone — a seqnum from before the jump must still be rejected.
	accepted, err := w.CheckAndUpdate(100)
	if err != nil {
		t.Fatalf("CheckAndUpdate() error: %v", err)
	}
	if accepted {
		t.Fatal("stale seqnum from before a large forward jump was accepted")
	}
}
