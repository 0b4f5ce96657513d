package engine

import (
	"sync"

	"github.com/signalsfoundry/holo-globe/model"
)

// FrameSlot is a single-entry mailbox between the perception goroutine and
// the engine loop. The last stored frame wins; each store is stamped with a
// new sequence number so the loop classifies every frame at most once.
type FrameSlot struct {
	mu    sync.Mutex
	seq   uint64
	frame model.GestureFrame
}

// NewFrameSlot returns an empty slot.
func NewFrameSlot() *FrameSlot {
	return &FrameSlot{}
}

// Store replaces the held frame and returns its sequence number. Any Seq on
// the incoming frame is overwritten.
func (s *FrameSlot) Store(f model.GestureFrame) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	f.Seq = s.seq
	s.frame = f
	return s.seq
}

// Since returns the held frame if it is newer than seq.
func (s *FrameSlot) Since(seq uint64) (model.GestureFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == 0 || s.seq <= seq {
		return model.GestureFrame{}, false
	}
	return s.frame, true
}
