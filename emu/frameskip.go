package emu

// FrameSkipLevels is the number of frame-skip settings. Level n skips n of
// every 12 frames.
const FrameSkipLevels = 12

// skipTable spreads the skipped frames of each level evenly over a cycle
// of 12 frames. A 1 means the frame is not drawn.
var skipTable = [FrameSkipLevels][FrameSkipLevels]uint8{
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
	{0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 1},
	{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1},
	{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
	{0, 1, 0, 0, 1, 0, 1, 0, 0, 1, 0, 1},
	{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1},
	{0, 1, 0, 1, 1, 0, 1, 0, 1, 1, 0, 1},
	{0, 1, 1, 0, 1, 1, 0, 1, 1, 0, 1, 1},
	{0, 1, 1, 1, 0, 1, 1, 1, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 0, 1, 1, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
}

// FrameSkipper decides which frames are presented.
type FrameSkipper struct {
	level   int
	counter int
}

// SetLevel selects a skip level, clamped to [0, FrameSkipLevels).
func (f *FrameSkipper) SetLevel(level int) {
	if level < 0 {
		level = 0
	}
	if level >= FrameSkipLevels {
		level = FrameSkipLevels - 1
	}
	f.level = level
}

// Level returns the current skip level.
func (f *FrameSkipper) Level() int {
	return f.level
}

// Skip reports whether the current frame should not be drawn.
func (f *FrameSkipper) Skip() bool {
	return skipTable[f.level][f.counter] != 0
}

// Advance moves to the next frame of the cycle.
func (f *FrameSkipper) Advance() {
	f.counter = (f.counter + 1) % FrameSkipLevels
}
