package authentication

// replayWindowSize is the number of sequence numbers below the highest one seen that a
// SequenceWindow remembers. It must not exceed 64.
const replayWindowSize = 32

// SequenceWindow tracks the sequence numbers of authenticated packets and reports repeats. The
// device does not reject repeated sequence numbers; the window only exists so they can be logged.
type SequenceWindow struct {
	highest uint32
	seen    uint64 // bit i set: highest-1-i was observed
	started bool
}

// Observe records seq and returns false if seq was already observed or is too old for the window
// to tell.
func (w *SequenceWindow) Observe(seq uint32) bool {
	if !w.started {
		w.started = true
		w.highest = seq
		w.seen = 0
		return true
	}
	switch {
	case seq == w.highest:
		return false
	case seq > w.highest:
		shift := seq - w.highest
		if shift > 64 {
			w.seen = 0
		} else {
			w.seen = w.seen<<shift | 1<<(shift-1)
		}
		w.highest = seq
		return true
	default:
		age := w.highest - seq
		if age > replayWindowSize {
			return false
		}
		bit := uint64(1) << (age - 1)
		if w.seen&bit != 0 {
			return false
		}
		w.seen |= bit
		return true
	}
}

// Reset forgets all observed sequence numbers.
func (w *SequenceWindow) Reset() {
	*w = SequenceWindow{}
}
