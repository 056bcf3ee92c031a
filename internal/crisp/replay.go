package crisp

import "fmt"

// ReplayWindowMaxSize is the maximum anti-replay window size, in sequence
// numbers.
const ReplayWindowMaxSize = 256

// ReplayWindow is a sliding anti-replay window over the 48-bit SeqNum
// space. It holds fixed storage for up to ReplayWindowMaxSize entries; the
// configured Size determines how far behind the current maximum a sequence
// number may still be accepted.
//
// ReplayWindow is not safe for concurrent use: a caller tracking multiple
// peers needs one window per peer, each guarded by its own mutex (see
// internal/transport's per-session state).
type ReplayWindow struct {
	size        int
	maxSeq      uint64
	initialized bool
	bits        [ReplayWindowMaxSize / 8]byte
}

// NewReplayWindow constructs a ReplayWindow with the given size, which must
// be in [1, ReplayWindowMaxSize].
func NewReplayWindow(size int) (*ReplayWindow, error) {
	w := &ReplayWindow{}
	if err := w.init(size); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *ReplayWindow) init(size int) error {
	if size < 1 || size > ReplayWindowMaxSize {
		return fmt.Errorf("replay window size %d: %w", size, ErrOutOfRange)
	}
	*w = ReplayWindow{size: size}
	return nil
}

func (w *ReplayWindow) getBit(index int) bool {
	byteIndex := index / 8
	mask := byte(1 << uint(index%8))
	return w.bits[byteIndex]&mask != 0
}

func (w *ReplayWindow) setBit(index int) {
	byteIndex := index / 8
	mask := byte(1 << uint(index%8))
	w.bits[byteIndex] |= mask
}

func (w *ReplayWindow) clearBit(index int) {
	byteIndex := index / 8
	mask := byte(1 << uint(index%8))
	w.bits[byteIndex] &^= mask
}

// shiftWindow advances the window by delta sequence numbers, dropping the
// oldest delta slots and zeroing the newly-opened ones at the front. It
// walks the bitmap back-to-front so that reads of the old positions happen
// before they are overwritten.
func (w *ReplayWindow) shiftWindow(delta int) {
	if delta >= w.size {
		w.bits = [ReplayWindowMaxSize / 8]byte{}
		return
	}

	for i := w.size; i > 0; i-- {
		index := i - 1
		value := false
		if index >= delta {
			value = w.getBit(index - delta)
		}
		if value {
			w.setBit(index)
		} else {
			w.clearBit(index)
		}
	}
}

// CheckAndUpdate checks seqnum against the window and, if accepted, marks
// it seen. It reports an error only for malformed input (a window whose
// size is outside [1, ReplayWindowMaxSize], such as a zero value not built
// by NewReplayWindow, or a seqnum beyond the 48-bit range) — an old or
// duplicate seqnum is a normal outcome, reported as accepted=false with a
// nil error.
func (w *ReplayWindow) CheckAndUpdate(seqnum uint64) (accepted bool, err error) {
	if w.size < 1 || w.size > ReplayWindowMaxSize {
		return false, fmt.Errorf("replay window has invalid size %d: %w", w.size, ErrInvalidArgument)
	}
	if seqnum > SeqNumMax {
		return false, fmt.Errorf("seqnum %d exceeds 48-bit range: %w", seqnum, ErrOutOfRange)
	}

	if !w.initialized {
		w.bits = [ReplayWindowMaxSize / 8]byte{}
		w.maxSeq = seqnum
		w.initialized = true
		w.setBit(0)
		return true, nil
	}

	if seqnum > w.maxSeq {
		delta := seqnum - w.maxSeq
		if delta >= uint64(w.size) {
			w.bits = [ReplayWindowMaxSize / 8]byte{}
		} else {
			w.shiftWindow(int(delta))
		}
		w.maxSeq = seqnum
		w.setBit(0)
		return true, nil
	}

	distance := w.maxSeq - seqnum
	if distance >= uint64(w.size) {
		return false, nil
	}

	if w.getBit(int(distance)) {
		return false, nil
	}
	w.setBit(int(distance))
	return true, nil
}
