package bufferpool

// ClockReplacer approximates LRU with a rotating hand. A frame counts as
// referenced when its unpin timestamp has moved since the hand last passed it;
// a referenced frame gets one more rotation before it can be chosen. The
// reference state lives here, not in the frames.
type ClockReplacer struct {
	frames []*Frame
	seen   []uint64
	hand   int
}

func NewClockReplacer(frames []*Frame) *ClockReplacer {
	return &ClockReplacer{
		frames: frames,
		seen:   make([]uint64, len(frames)),
	}
}

func (c *ClockReplacer) PickVictim() (FrameID, bool) {
	n := len(c.frames)
	// Two sweeps: the first may only clear references.
	for step := 0; step < 2*n; step++ {
		i := c.hand
		c.hand = (c.hand + 1) % n
		f := c.frames[i]
		if !f.NotPinned() {
			continue
		}
		if !f.IsValid() {
			return FrameID(i), true
		}
		if f.LastUnpinnedAt() != c.seen[i] {
			c.seen[i] = f.LastUnpinnedAt()
			continue
		}
		return FrameID(i), true
	}
	return -1, false
}
