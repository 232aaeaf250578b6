package emu

import "github.com/user-none/emncd/sched"

// SoundLatch carries bytes between the 68000 and the Z80.
//
// A command written by the 68000 is not visible to the Z80 immediately.
// It is delivered through the latch timer slot armed with zero delay,
// which cuts the 68000's slice at the write so the Z80 catches up to the
// same instant before it sees the command and its interrupt.
type SoundLatch struct {
	sched *sched.Scheduler
	irq   *z80IRQ

	command uint8 // Last delivered command
	pending bool  // Command not yet read by the Z80
	reply   uint8 // Last byte written back by the Z80
}

// NewSoundLatch creates a latch raising commands on irq.
func NewSoundLatch(irq *z80IRQ) *SoundLatch {
	return &SoundLatch{irq: irq}
}

// Write queues a command from the 68000.
func (l *SoundLatch) Write(val uint8) {
	l.sched.SetTimer(sched.TimerLatch, 0, int(val), l.deliver)
}

// deliver is the latch slot callback.
func (l *SoundLatch) deliver(param int) {
	l.command = uint8(param)
	l.pending = true
	l.irq.set(irqCommand, true)
}

// ReadCommand returns the pending command and acknowledges its interrupt.
func (l *SoundLatch) ReadCommand() uint8 {
	l.pending = false
	l.irq.set(irqCommand, false)
	return l.command
}

// Pending reports whether a delivered command has not yet been read.
func (l *SoundLatch) Pending() bool {
	return l.pending
}

// Reply returns the last byte written by the Z80.
func (l *SoundLatch) Reply() uint8 {
	return l.reply
}

// SetReply stores a byte for the 68000 to read.
func (l *SoundLatch) SetReply(val uint8) {
	l.reply = val
}

// reset clears the latch. The latch slot is left to the scheduler.
func (l *SoundLatch) reset() {
	l.command = 0
	l.pending = false
	l.reply = 0
}

// rebind reattaches the latch slot callback after a state restore.
func (l *SoundLatch) rebind() {
	l.sched.RebindRole(sched.RoleInterCPULatch, l.deliver)
}
