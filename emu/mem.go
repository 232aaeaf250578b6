package emu

import (
	"hash/crc32"

	"github.com/user-none/emncd/sched"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

const (
	programRAMSize = 0x200000 // 2MB program RAM, ROM image loaded at 0
	z80RAMSize     = 0x10000  // 64KB Z80 RAM
	backupRAMSize  = 0x2000   // 8KB battery-backed RAM
)

// Bus implements m68k.Bus with the board memory map.
//
// Address map (M68K view, 24-bit):
//
//	0x000000-0x1FFFFF  Program RAM (ROM image copied in at power on)
//	0x300000           Player 1 input (active low)
//	0x320000           Sound command write / Z80 reply read
//	0x340000           Player 2 input (active low)
//	0x380000           System buttons (active low)
//	0x3A0001           System control, bit 0 = Z80 reset line
//	0x3A0004           Transfer stall, frames the 68000 is held off the bus
//	0x3C0000           Raster compare line
//	0x3C0002           Current scanline (read-only)
//	0x400000-0x4001FF  Palette (256 RGB555 words)
//	0x800000-0x801FFF  Backup RAM (8KB, battery-backed)
//	0xA00000-0xA0FFFF  Z80 RAM window
//	0xE00000-0xE117FF  Framebuffer (320x224, one palette index per pixel)
type Bus struct {
	ram    [programRAMSize]byte
	z80RAM [z80RAMSize]byte
	backup [backupRAMSize]byte
	rom    []byte
	romCRC uint32

	io    *IO
	latch *SoundLatch
	video *Video

	sched *sched.Scheduler
	z80   *z80.CPU

	z80Reset    bool   // Z80 held in reset by the 68000
	stallFrames uint16 // Frames left in which only the Z80 runs
	rasterLine  uint16 // Scanline that raises the level 2 interrupt, 0 = off
}

// NewBus creates a Bus and copies the program image into program RAM.
func NewBus(rom []byte, io *IO, latch *SoundLatch, video *Video) *Bus {
	if len(rom) > programRAMSize {
		rom = rom[:programRAMSize]
	}

	bus := &Bus{
		rom:    rom,
		romCRC: crc32.ChecksumIEEE(rom),
		io:     io,
		latch:  latch,
		video:  video,
	}
	bus.powerOn()
	return bus
}

// attach connects the bus to the scheduler and the Z80 it controls.
// Called after construction due to the circular dependency between the
// CPUs and the bus.
func (b *Bus) attach(s *sched.Scheduler, cpu *z80.CPU) {
	b.sched = s
	b.z80 = cpu
}

// powerOn restores RAM to its power-on contents. Backup RAM survives.
func (b *Bus) powerOn() {
	b.ram = [programRAMSize]byte{}
	copy(b.ram[:], b.rom)
	b.z80RAM = [z80RAMSize]byte{}
	b.z80Reset = false
	b.stallFrames = 0
	b.rasterLine = 0
}

// Reset clears the board control registers. Implements m68k.Bus and is
// driven by the 68000 RESET line.
func (b *Bus) Reset() {
	b.setZ80Reset(false)
	b.stallFrames = 0
	b.rasterLine = 0
}

// GetROMCRC32 returns the CRC32 of the loaded ROM.
func (b *Bus) GetROMCRC32() uint32 {
	return b.romCRC
}

// Read implements m68k.Bus.
func (b *Bus) Read(s m68k.Size, addr uint32) uint32 {
	addr &= 0xFFFFFF // 24-bit address bus

	switch {
	case addr < programRAMSize:
		return readBE(b.ram[:], addr, s)
	case addr >= 0x300000 && addr <= 0x31FFFF:
		return readSized(s, b.io.ReadPort(portP1), 0xFF)
	case addr >= 0x320000 && addr <= 0x33FFFF:
		return readSized(s, b.latch.Reply(), 0xFF)
	case addr >= 0x340000 && addr <= 0x37FFFF:
		return readSized(s, b.io.ReadPort(portP2), 0xFF)
	case addr >= 0x380000 && addr <= 0x39FFFF:
		return readSized(s, b.io.ReadPort(portSystem), 0xFF)
	case addr >= 0x3A0000 && addr <= 0x3A001F:
		return b.readControl(s, addr)
	case addr >= 0x3C0000 && addr <= 0x3C0003:
		var line uint16
		if addr&2 == 0 {
			line = b.rasterLine
		} else if b.sched != nil {
			line = uint16(b.sched.CurrentScanline())
		}
		return readSizedAt(s, addr, byte(line>>8), byte(line))
	case addr >= 0x400000 && addr <= 0x4001FF:
		return b.video.readPalette(s, addr-0x400000)
	case addr >= 0x800000 && addr < 0x800000+backupRAMSize:
		return readBE(b.backup[:], addr-0x800000, s)
	case addr >= 0xA00000 && addr <= 0xA0FFFF:
		return readBE(b.z80RAM[:], addr-0xA00000, s)
	case addr >= 0xE00000 && addr < 0xE00000+framebufferSize:
		return readBE(b.video.vram[:], addr-0xE00000, s)
	default:
		return 0
	}
}

// Write implements m68k.Bus.
func (b *Bus) Write(s m68k.Size, addr uint32, value uint32) {
	addr &= 0xFFFFFF // 24-bit address bus

	switch {
	case addr < programRAMSize:
		writeBE(b.ram[:], addr, s, value)
	case addr >= 0x320000 && addr <= 0x33FFFF:
		// Byte writes carry the command directly; word writes put it on
		// the upper data lines.
		if s == m68k.Byte {
			b.latch.Write(byte(value))
		} else {
			b.latch.Write(byte(value >> 8))
		}
	case addr >= 0x3A0000 && addr <= 0x3A001F:
		b.writeControl(s, addr, value)
	case addr >= 0x3C0000 && addr <= 0x3C0001:
		if s == m68k.Byte {
			if addr&1 == 0 {
				b.rasterLine = b.rasterLine&0x00FF | uint16(value)<<8
			} else {
				b.rasterLine = b.rasterLine&0xFF00 | uint16(value&0xFF)
			}
		} else {
			b.rasterLine = uint16(value)
		}
	case addr >= 0x400000 && addr <= 0x4001FF:
		b.video.writePalette(s, addr-0x400000, value)
	case addr >= 0x800000 && addr < 0x800000+backupRAMSize:
		writeBE(b.backup[:], addr-0x800000, s, value)
	case addr >= 0xA00000 && addr <= 0xA0FFFF:
		writeBE(b.z80RAM[:], addr-0xA00000, s, value)
	case addr >= 0xE00000 && addr < 0xE00000+framebufferSize:
		writeBE(b.video.vram[:], addr-0xE00000, s, value)
	}
}

// readControl reads the system control block.
func (b *Bus) readControl(s m68k.Size, addr uint32) uint32 {
	switch addr & 0x1E {
	case 0x00:
		var v byte
		if b.z80Reset {
			v = 0x01
		}
		return readSizedAt(s, addr, 0, v)
	case 0x04:
		return readSizedAt(s, addr, byte(b.stallFrames>>8), byte(b.stallFrames))
	}
	return 0
}

// writeControl writes the system control block.
func (b *Bus) writeControl(s m68k.Size, addr uint32, value uint32) {
	switch addr & 0x1E {
	case 0x00:
		// The reset line lives in the low byte at $3A0001.
		if s == m68k.Byte && addr&1 == 0 {
			return
		}
		b.setZ80Reset(value&0x01 != 0)
	case 0x04:
		if s == m68k.Byte {
			if addr&1 == 0 {
				b.stallFrames = b.stallFrames&0x00FF | uint16(value)<<8
			} else {
				b.stallFrames = b.stallFrames&0xFF00 | uint16(value&0xFF)
			}
		} else {
			b.stallFrames = uint16(value)
		}
	}
}

// setZ80Reset drives the Z80 reset line. While asserted the Z80 is held
// suspended and receives no cycles; asserting also resets its registers.
func (b *Bus) setZ80Reset(asserted bool) {
	if asserted == b.z80Reset {
		return
	}
	b.z80Reset = asserted
	if b.sched != nil {
		b.sched.SetSuspended(sched.Coprocessor, sched.SuspendReset, asserted)
	}
	if asserted && b.z80 != nil {
		b.z80.Reset()
	}
}

// takeStallFrame consumes one pending transfer stall frame.
func (b *Bus) takeStallFrame() bool {
	if b.stallFrames == 0 {
		return false
	}
	b.stallFrames--
	return true
}

// HasSRAM reports whether the board has battery-backed RAM. It always does.
func (b *Bus) HasSRAM() bool {
	return true
}

// GetSRAM returns a copy of the backup RAM contents.
func (b *Bus) GetSRAM() []byte {
	out := make([]byte, backupRAMSize)
	copy(out, b.backup[:])
	return out
}

// SetSRAM loads backup RAM contents (e.g. from a save file).
func (b *Bus) SetSRAM(data []byte) {
	copy(b.backup[:], data)
}

// readBE reads from mem with big-endian byte order. Bytes past the end of
// mem read as zero.
func readBE(mem []byte, offset uint32, s m68k.Size) uint32 {
	n := uint32(1)
	switch s {
	case m68k.Word:
		n = 2
	case m68k.Long:
		n = 4
	}
	memLen := uint32(len(mem))
	var val uint32
	for i := uint32(0); i < n; i++ {
		val <<= 8
		if offset+i < memLen {
			val |= uint32(mem[offset+i])
		}
	}
	return val
}

// writeBE writes to mem with big-endian byte order. Bytes past the end of
// mem are dropped.
func writeBE(mem []byte, offset uint32, s m68k.Size, value uint32) {
	n := uint32(1)
	switch s {
	case m68k.Word:
		n = 2
	case m68k.Long:
		n = 4
	}
	memLen := uint32(len(mem))
	for i := uint32(0); i < n; i++ {
		if offset+i < memLen {
			mem[offset+i] = byte(value >> ((n - 1 - i) * 8))
		}
	}
}

// readSized returns a 2-byte value as the appropriate size.
func readSized(s m68k.Size, hi, lo byte) uint32 {
	switch s {
	case m68k.Byte:
		return uint32(hi)
	case m68k.Word:
		return uint32(hi)<<8 | uint32(lo)
	case m68k.Long:
		return uint32(hi)<<24 | uint32(lo)<<16
	}
	return 0
}

// readSizedAt is readSized for 16-bit registers, where a byte read at an
// odd address returns the low byte.
func readSizedAt(s m68k.Size, addr uint32, hi, lo byte) uint32 {
	if s == m68k.Byte && addr&1 != 0 {
		return uint32(lo)
	}
	return readSized(s, hi, lo)
}
