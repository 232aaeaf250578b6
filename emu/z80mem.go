package emu

import "github.com/user-none/go-chip-z80"

// Z80 I/O ports.
const (
	portSoundCommand = 0x00 // in: pending sound command, acknowledges it
	portTimerStatus  = 0x04 // in: timer unit status
	portTimerAddress = 0x04 // out: timer unit register select
	portTimerData    = 0x05 // out: timer unit register data
	portReply        = 0x0C // out: reply byte for the 68000
	portPSG          = 0x10 // out: PSG write
)

// Z80Memory implements z80.Bus for the sound CPU.
//
// The Z80 sees a flat 64KB RAM, shared with the 68000 through the
// $A00000 window. Peripherals are on I/O ports:
//
//	In  0x00  Sound command (reading acknowledges the command interrupt)
//	In  0x04  Timer status (bit 0 = timer A overflow, bit 1 = timer B)
//	Out 0x04  Timer register address
//	Out 0x05  Timer register data
//	Out 0x0C  Reply to the 68000
//	Out 0x10  PSG
type Z80Memory struct {
	bus    *Bus
	latch  *SoundLatch
	timers *TimerUnit
	psg    *psgStream
}

// NewZ80Memory creates a Z80Memory connected to the board peripherals.
func NewZ80Memory(bus *Bus, latch *SoundLatch, timers *TimerUnit, psg *psgStream) *Z80Memory {
	return &Z80Memory{bus: bus, latch: latch, timers: timers, psg: psg}
}

// Fetch reads an opcode byte during an M1 cycle. There is no M1-specific
// behavior on this board, so this delegates to Read.
func (m *Z80Memory) Fetch(addr uint16) uint8 {
	return m.Read(addr)
}

// Read reads a byte from Z80 RAM.
func (m *Z80Memory) Read(addr uint16) uint8 {
	return m.bus.z80RAM[addr]
}

// Write writes a byte to Z80 RAM.
func (m *Z80Memory) Write(addr uint16, val uint8) {
	m.bus.z80RAM[addr] = val
}

// In reads from an I/O port. Only the low address byte is decoded.
// Unmapped ports return 0xFF.
func (m *Z80Memory) In(port uint16) uint8 {
	switch uint8(port) {
	case portSoundCommand:
		return m.latch.ReadCommand()
	case portTimerStatus:
		return m.timers.ReadStatus()
	}
	return 0xFF
}

// Out writes to an I/O port. Only the low address byte is decoded.
func (m *Z80Memory) Out(port uint16, val uint8) {
	switch uint8(port) {
	case portTimerAddress:
		m.timers.WriteAddress(val)
	case portTimerData:
		m.timers.WriteData(val)
	case portReply:
		m.latch.SetReply(val)
	case portPSG:
		m.psg.write(val)
	}
}

// Z80 interrupt sources. They share the single INT line.
const (
	irqTimer   uint8 = 1 << iota // Timer unit overflow flag
	irqCommand                   // Sound command pending
)

// z80IRQ combines the interrupt sources onto the Z80 INT line. The line
// stays asserted while any source is active.
type z80IRQ struct {
	cpu   *z80.CPU
	lines uint8
}

// set asserts or clears one interrupt source.
func (q *z80IRQ) set(src uint8, asserted bool) {
	if asserted {
		q.lines |= src
	} else {
		q.lines &^= src
	}
	q.apply()
}

// apply drives the INT line from the current source mask.
func (q *z80IRQ) apply() {
	if q.cpu != nil {
		q.cpu.INT(q.lines != 0, 0xFF)
	}
}
