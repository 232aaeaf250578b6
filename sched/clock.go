package sched

// usPerSecond is the rollover point of the sub-second counter.
const usPerSecond = 1000000

// clock is the rolling absolute time of the session. Deadlines are kept on
// the same scale as subSecond+frameOffset, so they shift down whenever
// subSecond rolls over.
type clock struct {
	seconds     uint64
	subSecond   int  // [0, usPerSecond)
	frameOffset int  // µs dispatched in the open frame
	open        bool // a frame is being dispatched or was cancelled mid-way
}

// begin opens a new frame at offset zero.
func (c *clock) begin() {
	c.frameOffset = 0
	c.open = true
}

// now returns subSecond plus the dispatched part of the open frame.
func (c *clock) now() int {
	if c.open {
		return c.subSecond + c.frameOffset
	}
	return c.subSecond
}

// commit closes the open frame and advances subSecond by us. It returns the
// number of whole seconds that rolled over.
func (c *clock) commit(us int) int {
	c.open = false
	c.subSecond += us
	rolled := 0
	for c.subSecond >= usPerSecond {
		c.subSecond -= usPerSecond
		c.seconds++
		rolled++
	}
	return rolled
}

func (c *clock) reset() {
	*c = clock{}
}
