package emu

import (
	"testing"

	"github.com/user-none/emncd/sched"
	"github.com/user-none/go-chip-m68k"
)

func TestBus_ProgramImageLoaded(t *testing.T) {
	e := createTestEmulator()

	if got := e.bus.Read(m68k.Long, 0); got != 0x00100000 {
		t.Errorf("SSP vector: expected 0x00100000, got 0x%08X", got)
	}
	if got := e.bus.Read(m68k.Long, 4); got != 0x00000400 {
		t.Errorf("PC vector: expected 0x00000400, got 0x%08X", got)
	}
	if got := e.bus.Read(m68k.Word, 0x400); got != opBRASelf {
		t.Errorf("entry point: expected 0x%04X, got 0x%04X", opBRASelf, got)
	}
}

func TestBus_ProgramRAMSizes(t *testing.T) {
	e := createTestEmulator()

	e.bus.Write(m68k.Long, 0x1000, 0x11223344)
	if got := e.bus.Read(m68k.Word, 0x1002); got != 0x3344 {
		t.Errorf("word read: expected 0x3344, got 0x%04X", got)
	}
	if got := e.bus.Read(m68k.Byte, 0x1001); got != 0x22 {
		t.Errorf("byte read: expected 0x22, got 0x%02X", got)
	}

	// Program RAM is writable over the loaded image.
	e.bus.Write(m68k.Word, 0x400, 0x4E71)
	if got := e.bus.Read(m68k.Word, 0x400); got != 0x4E71 {
		t.Errorf("image overwrite: expected 0x4E71, got 0x%04X", got)
	}
}

func TestBus_AddressMasked(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Byte, 0xFF001000, 0x5A)
	if got := e.bus.Read(m68k.Byte, 0x001000); got != 0x5A {
		t.Errorf("24-bit mirror: expected 0x5A, got 0x%02X", got)
	}
}

func TestBus_Unmapped(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Word, 0x600000, 0xFFFF)
	if got := e.bus.Read(m68k.Word, 0x600000); got != 0 {
		t.Errorf("unmapped read: expected 0, got 0x%04X", got)
	}
}

func TestBus_InputPorts(t *testing.T) {
	e := createTestEmulator()
	e.SetInput(0, 1<<ButtonA)

	if got := e.bus.Read(m68k.Byte, 0x300000); got != 0xEF {
		t.Errorf("P1 with A held: expected 0xEF, got 0x%02X", got)
	}
	if got := e.bus.Read(m68k.Byte, 0x340000); got != 0xFF {
		t.Errorf("P2 idle: expected 0xFF, got 0x%02X", got)
	}
	if got := e.bus.Read(m68k.Byte, 0x380000); got != 0xFF {
		t.Errorf("system idle: expected 0xFF, got 0x%02X", got)
	}
}

func TestBus_LatchReply(t *testing.T) {
	e := createTestEmulator()
	e.z80Mem.Out(portReply, 0x99)

	if got := e.bus.Read(m68k.Byte, 0x320000); got != 0x99 {
		t.Errorf("reply: expected 0x99, got 0x%02X", got)
	}
}

func TestBus_LatchWordWrite(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Word, 0x320000, 0x3400)

	// Outside a frame the zero-delay slot fires on the next dispatch.
	e.RunFrame()
	if got := e.z80Mem.In(portSoundCommand); got != 0x34 {
		t.Errorf("word command: expected 0x34, got 0x%02X", got)
	}
}

func TestBus_Palette(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Word, 0x400000+2*5, 0x1234)

	if got := e.bus.Read(m68k.Word, 0x40000A); got != 0x1234 {
		t.Errorf("palette read: expected 0x1234, got 0x%04X", got)
	}
	if got := e.video.Color(5); got != 0x1234 {
		t.Errorf("palette entry: expected 0x1234, got 0x%04X", got)
	}
}

func TestBus_BackupRAM(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Word, 0x800010, 0xBEEF)

	sram := e.GetSRAM()
	if len(sram) != backupRAMSize {
		t.Fatalf("backup size: expected %d, got %d", backupRAMSize, len(sram))
	}
	if sram[0x10] != 0xBE || sram[0x11] != 0xEF {
		t.Errorf("backup RAM: expected BE EF, got %02X %02X", sram[0x10], sram[0x11])
	}

	e.SetSRAM([]byte{0x01, 0x02})
	if got := e.bus.Read(m68k.Word, 0x800000); got != 0x0102 {
		t.Errorf("loaded backup RAM: expected 0x0102, got 0x%04X", got)
	}
}

func TestBus_Z80Window(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Word, 0xA01234, 0xAA55)

	if got := e.z80Mem.Read(0x1234); got != 0xAA {
		t.Errorf("Z80 view: expected 0xAA, got 0x%02X", got)
	}
	e.z80Mem.Write(0xFFFF, 0x77)
	if got := e.bus.Read(m68k.Byte, 0xA0FFFF); got != 0x77 {
		t.Errorf("68000 view: expected 0x77, got 0x%02X", got)
	}
}

func TestBus_Framebuffer(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Long, 0xE00000, 0x01020304)

	if got := e.bus.Read(m68k.Byte, 0xE00003); got != 0x04 {
		t.Errorf("framebuffer: expected 0x04, got 0x%02X", got)
	}
	if e.video.vram[0] != 0x01 {
		t.Errorf("vram[0]: expected 0x01, got 0x%02X", e.video.vram[0])
	}
}

func TestBus_StallRegister(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Word, 0x3A0004, 0x0102)

	if got := e.bus.Read(m68k.Word, 0x3A0004); got != 0x0102 {
		t.Errorf("stall word: expected 0x0102, got 0x%04X", got)
	}
	if got := e.bus.Read(m68k.Byte, 0x3A0005); got != 0x02 {
		t.Errorf("stall low byte: expected 0x02, got 0x%02X", got)
	}

	e.bus.Write(m68k.Byte, 0x3A0004, 0)
	if e.bus.stallFrames != 0x0002 {
		t.Errorf("stall after high byte write: expected 2, got %d", e.bus.stallFrames)
	}
}

func TestBus_Z80ResetEvenByteIgnored(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Byte, 0x3A0000, 0x01)
	if e.bus.z80Reset {
		t.Error("even byte write should not drive the reset line")
	}

	e.bus.Write(m68k.Word, 0x3A0000, 0x0001)
	if !e.bus.z80Reset {
		t.Error("word write should drive the reset line")
	}
}

func TestBus_ResetLineReleases(t *testing.T) {
	e := createTestEmulator()
	e.bus.Write(m68k.Byte, 0x3A0001, 0x01)
	e.bus.Write(m68k.Word, 0x3A0004, 3)
	e.bus.Write(m68k.Word, 0x3C0000, 10)

	e.bus.Reset()

	if e.bus.z80Reset || e.bus.stallFrames != 0 || e.bus.rasterLine != 0 {
		t.Error("control registers not cleared by RESET")
	}
	if e.Scheduler().Suspended(sched.Coprocessor) != 0 {
		t.Error("Z80 still suspended after RESET")
	}
}
