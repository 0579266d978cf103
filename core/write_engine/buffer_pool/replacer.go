package bufferpool

import (
	"fmt"
	"strings"

	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
)

// Replacer picks the frame to reuse on a miss. It sees the pool's frames by
// index and never owns them; PickVictim is always called under the pool latch.
type Replacer interface {
	// PickVictim returns an unpinned frame, or false when every frame is pinned.
	PickVictim() (FrameID, bool)
}

// ReplacerFactory builds a Replacer over a pool's frame array.
type ReplacerFactory func(frames []*Frame) Replacer

const (
	ReplacerLRU   = "lru"
	ReplacerClock = "clock"
)

// ReplacerByName maps a configured policy name to its factory.
func ReplacerByName(name string) (ReplacerFactory, error) {
	switch strings.ToLower(name) {
	case "", ReplacerLRU:
		return func(frames []*Frame) Replacer { return NewLRUReplacer(frames) }, nil
	case ReplacerClock:
		return func(frames []*Frame) Replacer { return NewClockReplacer(frames) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown replacement policy %q", flushmanager.ErrInvalidArgument, name)
	}
}

// LRUReplacer evicts the unpinned frame with the oldest unpin timestamp, lowest
// index first on ties. Empty frames carry timestamp 0 and so go first.
type LRUReplacer struct {
	frames []*Frame
}

func NewLRUReplacer(frames []*Frame) *LRUReplacer {
	return &LRUReplacer{frames: frames}
}

func (r *LRUReplacer) PickVictim() (FrameID, bool) {
	victim := FrameID(-1)
	var oldest uint64
	for i, f := range r.frames {
		if !f.NotPinned() {
			continue
		}
		if victim < 0 || f.LastUnpinnedAt() < oldest {
			victim, oldest = FrameID(i), f.LastUnpinnedAt()
		}
	}
	return victim, victim >= 0
}
