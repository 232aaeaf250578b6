package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"

	"github.com/user-none/emncd/sched"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "eMNCDState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
)

// Fixed serialization sizes for inline components
const (
	busSerializeSize      = programRAMSize + z80RAMSize + backupRAMSize + 5 // RAMs + z80Reset(1) + stall(2) + raster(2)
	videoSerializeSize    = paletteSize + framebufferSize
	latchSerializeSize    = 3 // command + pending + reply
	timersSerializeSize   = 6 // addr + na(2) + nb + control + status
	irqSerializeSize      = 1
	emulatorSerializeSize = 19 // filterPrevL(8) + filterPrevR(8) + raster(1) + skip level(1) + skip counter(1)
)

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SerializeSize returns the total size in bytes needed for a save state.
// Every board carries the same memories, so the size is fixed.
func SerializeSize() int {
	return stateHeaderSize +
		m68k.SerializeSize +
		z80.SerializeSize +
		busSerializeSize +
		videoSerializeSize +
		latchSerializeSize +
		timersSerializeSize +
		irqSerializeSize +
		sn76489.SerializeSize +
		IOSerializeSize +
		sched.StateSize +
		emulatorSerializeSize
}

// SerializeSize returns the total size in bytes needed for a save state.
func (e *Emulator) SerializeSize() int {
	return SerializeSize()
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	data := make([]byte, SerializeSize())

	// Write header
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], e.bus.romCRC)

	offset := stateHeaderSize

	// M68K CPU
	if err := e.m68k.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += m68k.SerializeSize

	// Z80 CPU
	if err := e.z80.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += z80.SerializeSize

	offset = e.serializeBus(data, offset)
	offset = e.serializeVideo(data, offset)
	offset = e.serializeSound(data, offset)

	// PSG
	if err := e.psg.chip.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += sn76489.SerializeSize

	// IO
	if err := e.io.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += IOSerializeSize

	// Scheduler
	if err := e.sched.SerializeTo(data[offset:]); err != nil {
		return nil, err
	}
	offset += sched.StateSize

	e.serializeBase(data, offset)

	// Calculate and write data CRC32 (over everything after header)
	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores emulator state from a save state byte slice.
// Region is NOT restored - the current region setting is preserved.
// Timer slot callbacks are rebound to this board after the restore.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	// Validate the scheduler block up front so a bad record leaves the
	// board untouched.
	schedOffset := SerializeSize() - emulatorSerializeSize - sched.StateSize
	if err := sched.VerifyState(data[schedOffset:]); err != nil {
		return err
	}

	offset := stateHeaderSize

	// M68K CPU
	if err := e.m68k.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += m68k.SerializeSize

	// Z80 CPU
	if err := e.z80.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += z80.SerializeSize

	offset = e.deserializeBus(data, offset)
	offset = e.deserializeVideo(data, offset)
	offset = e.deserializeSound(data, offset)

	// PSG
	if err := e.psg.chip.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += sn76489.SerializeSize

	// IO
	if err := e.io.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += IOSerializeSize

	// Scheduler
	if err := e.sched.DeserializeState(data[offset:]); err != nil {
		return err
	}
	offset += sched.StateSize
	e.rebindTimers()
	e.psg.resync()

	e.deserializeBase(data, offset)
	e.irq.apply()
	e.video.Render()

	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	if len(data) < SerializeSize() {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	romCRC := binary.LittleEndian.Uint32(data[14:18])
	if romCRC != e.bus.romCRC {
		return errors.New("save state is for a different ROM")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:SerializeSize()])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

// serializeBus writes Bus state to the data buffer.
func (e *Emulator) serializeBus(data []byte, offset int) int {
	copy(data[offset:], e.bus.ram[:])
	offset += programRAMSize

	copy(data[offset:], e.bus.z80RAM[:])
	offset += z80RAMSize

	copy(data[offset:], e.bus.backup[:])
	offset += backupRAMSize

	data[offset] = boolByte(e.bus.z80Reset)
	offset++
	binary.LittleEndian.PutUint16(data[offset:], e.bus.stallFrames)
	offset += 2
	binary.LittleEndian.PutUint16(data[offset:], e.bus.rasterLine)
	offset += 2

	return offset
}

// deserializeBus reads Bus state from the data buffer. The Z80 reset
// line's suspension is part of the scheduler state and restored there.
func (e *Emulator) deserializeBus(data []byte, offset int) int {
	copy(e.bus.ram[:], data[offset:offset+programRAMSize])
	offset += programRAMSize

	copy(e.bus.z80RAM[:], data[offset:offset+z80RAMSize])
	offset += z80RAMSize

	copy(e.bus.backup[:], data[offset:offset+backupRAMSize])
	offset += backupRAMSize

	e.bus.z80Reset = data[offset] != 0
	offset++
	e.bus.stallFrames = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	e.bus.rasterLine = binary.LittleEndian.Uint16(data[offset:])
	offset += 2

	return offset
}

// serializeVideo writes the palette and framebuffer to the data buffer.
func (e *Emulator) serializeVideo(data []byte, offset int) int {
	copy(data[offset:], e.video.palette[:])
	offset += paletteSize
	copy(data[offset:], e.video.vram[:])
	offset += framebufferSize
	return offset
}

// deserializeVideo reads the palette and framebuffer from the data buffer.
func (e *Emulator) deserializeVideo(data []byte, offset int) int {
	copy(e.video.palette[:], data[offset:offset+paletteSize])
	offset += paletteSize
	copy(e.video.vram[:], data[offset:offset+framebufferSize])
	offset += framebufferSize
	return offset
}

// serializeSound writes the latch, timer unit and interrupt lines.
func (e *Emulator) serializeSound(data []byte, offset int) int {
	data[offset] = e.latch.command
	offset++
	data[offset] = boolByte(e.latch.pending)
	offset++
	data[offset] = e.latch.reply
	offset++

	data[offset] = e.timers.addr
	offset++
	binary.LittleEndian.PutUint16(data[offset:], e.timers.na)
	offset += 2
	data[offset] = e.timers.nb
	offset++
	data[offset] = e.timers.control
	offset++
	data[offset] = e.timers.status
	offset++

	data[offset] = e.irq.lines
	offset++

	return offset
}

// deserializeSound reads the latch, timer unit and interrupt lines.
func (e *Emulator) deserializeSound(data []byte, offset int) int {
	e.latch.command = data[offset]
	offset++
	e.latch.pending = data[offset] != 0
	offset++
	e.latch.reply = data[offset]
	offset++

	e.timers.addr = data[offset]
	offset++
	e.timers.na = binary.LittleEndian.Uint16(data[offset:]) & 0x3FF
	offset += 2
	e.timers.nb = data[offset]
	offset++
	e.timers.control = data[offset]
	offset++
	e.timers.status = data[offset]
	offset++

	e.irq.lines = data[offset]
	offset++

	return offset
}

// serializeBase writes Emulator inline state to the data buffer.
func (e *Emulator) serializeBase(data []byte, offset int) int {
	binary.LittleEndian.PutUint64(data[offset:], math.Float64bits(e.filterPrevL))
	offset += 8

	binary.LittleEndian.PutUint64(data[offset:], math.Float64bits(e.filterPrevR))
	offset += 8

	data[offset] = boolByte(e.raster)
	offset++
	data[offset] = uint8(e.skip.level)
	offset++
	data[offset] = uint8(e.skip.counter)
	offset++

	return offset
}

// deserializeBase reads Emulator inline state from the data buffer.
func (e *Emulator) deserializeBase(data []byte, offset int) int {
	e.filterPrevL = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	e.filterPrevR = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	e.raster = data[offset] != 0
	offset++
	e.skip.SetLevel(int(data[offset]))
	offset++
	e.skip.counter = int(data[offset]) % FrameSkipLevels
	offset++

	return offset
}
