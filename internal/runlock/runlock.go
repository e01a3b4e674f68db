package runlock

// Slot serializes a recurring job: a tick that finds the slot taken is
// skipped instead of piling up behind a slow predecessor.
type Slot struct {
	ch chan struct{}
}

func NewSlot() *Slot {
	return &Slot{ch: make(chan struct{}, 1)}
}

// TryAcquire claims the slot without blocking.
func (s *Slot) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the slot. Releasing an unheld slot is a no-op.
func (s *Slot) Release() {
	select {
	case <-s.ch:
	default:
	}
}
