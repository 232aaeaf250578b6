package emu

import (
	"log"
	"strconv"
	"sync/atomic"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emncd/sched"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

// Core identity reported to front-ends.
const (
	Name    = "emncd"
	Version = "0.1.0"
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Emulator)(nil)
var _ emucore.SaveStater = (*Emulator)(nil)
var _ emucore.BatterySaver = (*Emulator)(nil)
var _ emucore.MemoryInspector = (*Emulator)(nil)
var _ emucore.MemoryMapper = (*Emulator)(nil)

// Flat address boundaries for ReadMemory.
const (
	programRAMStart = 0x000000
	programRAMEnd   = programRAMStart + programRAMSize - 1
	z80RAMStart     = 0x200000
	z80RAMEnd       = z80RAMStart + z80RAMSize - 1
)

// 68000 interrupt levels.
const (
	irqVBlank = 1
	irqRaster = 2
)

// Emulator is the reference board: a 68000 and a Z80 interleaved by the
// scheduler, with the sound chip timers and the sound latch on timer
// slots.
type Emulator struct {
	m68k   *m68k.CPU
	z80    *z80.CPU
	z80Mem *Z80Memory
	bus    *Bus
	io     *IO
	video  *Video
	latch  *SoundLatch
	timers *TimerUnit
	irq    *z80IRQ
	psg    *psgStream
	sched  *sched.Scheduler
	skip   FrameSkipper

	region Region
	timing RegionTiming

	// Drive frames scanline by scanline so the raster compare interrupt
	// lands on its line.
	raster bool

	// Cleared by Stop from another goroutine to cancel the frame in flight.
	running atomic.Bool

	// Pre-allocated audio buffer for external consumption
	audioBuffer []int16

	// Low-pass filter state (persists across frames)
	filterPrevL float64
	filterPrevR float64
}

// NewEmulator creates and initializes the board with a program image.
func NewEmulator(rom []byte, region Region) (*Emulator, error) {
	if err := ValidateROM(rom); err != nil {
		return nil, err
	}

	timing := GetTimingForRegion(region)

	irq := &z80IRQ{}
	io := NewIO()
	video := NewVideo()
	latch := NewSoundLatch(irq)
	timers := NewTimerUnit(irq)
	psg := newPSGStream(timing)

	bus := NewBus(rom, io, latch, video)
	cpu := m68k.New(bus)

	z80Mem := NewZ80Memory(bus, latch, timers, psg)
	z80CPU := z80.New(z80Mem)
	irq.cpu = z80CPU

	e := &Emulator{
		m68k:        cpu,
		z80:         z80CPU,
		z80Mem:      z80Mem,
		bus:         bus,
		io:          io,
		video:       video,
		latch:       latch,
		timers:      timers,
		irq:         irq,
		psg:         psg,
		region:      region,
		timing:      timing,
		audioBuffer: make([]int16, 0, 2048),
	}
	e.running.Store(true)
	e.attachScheduler(sched.New(timing.SchedConfig(), m68kExecutor{cpu}, z80Executor{z80CPU}, e.hooks()))
	return e, nil
}

// hooks returns the frame-boundary callbacks for the scheduler.
func (e *Emulator) hooks() sched.Hooks {
	return sched.Hooks{
		FrameInterrupt:    e.vblank,
		ScanlineInterrupt: e.scanlineInterrupt,
		ShouldSkipFrame:   e.skip.Skip,
		ScreenRefresh:     e.video.Render,
		IsRunning:         e.running.Load,
	}
}

// attachScheduler points every timed component at s and binds the timer
// slot callbacks.
func (e *Emulator) attachScheduler(s *sched.Scheduler) {
	e.sched = s
	e.bus.attach(s, e.z80)
	e.latch.sched = s
	e.timers.sched = s
	e.psg.sched = s
	e.rebindTimers()
	e.psg.resync()
}

// rebindTimers attaches the callbacks of every role-bound timer slot.
func (e *Emulator) rebindTimers() {
	e.timers.rebind()
	e.latch.rebind()
}

// RunFrame executes one frame of emulation.
//
// While the 68000 is stalled by a transfer only the Z80 runs, so music
// keeps playing while the screen holds. Otherwise the frame is driven
// whole, or scanline by scanline when raster mode is on.
func (e *Emulator) RunFrame() {
	e.audioBuffer = e.audioBuffer[:0]
	e.psg.chip.ResetBuffer()

	stall := e.bus.takeStallFrame()
	var done bool
	switch {
	case stall:
		if done = e.sched.RunCoprocessorOnly(); !done {
			e.bus.stallFrames++
		}
	case e.raster:
		done = e.sched.RunScanlineFrame()
	default:
		done = e.sched.RunFrame()
	}

	if !done {
		// The frame is run again from its start, so nothing it produced
		// is kept.
		e.psg.chip.ResetBuffer()
		e.psg.resync()
		return
	}
	if !stall {
		e.skip.Advance()
	}

	e.psg.catchUp()
	e.mixAudio()
}

// vblank raises the vertical blank interrupt.
func (e *Emulator) vblank() {
	e.m68k.RequestInterrupt(irqVBlank, nil)
}

// scanlineInterrupt runs after each line in raster mode. The compare line
// raises the raster interrupt; the first line past the display raises
// vertical blank.
func (e *Emulator) scanlineInterrupt(line int) {
	if rl := int(e.bus.rasterLine); rl != 0 && line == rl {
		e.m68k.RequestInterrupt(irqRaster, nil)
	}
	if line == ScreenHeight {
		e.vblank()
	}
}

// Stop cancels the frame in flight at the next slice boundary. Frames run
// after Stop return early until Resume is called. Safe to call from any
// goroutine.
func (e *Emulator) Stop() {
	e.running.Store(false)
}

// Resume re-enables frames after Stop.
func (e *Emulator) Resume() {
	e.running.Store(true)
}

// Reset returns the board to its power-on state. Backup RAM survives.
func (e *Emulator) Reset() {
	e.sched.Reset()
	e.bus.powerOn()
	e.video.reset()
	e.latch.reset()
	e.timers.reset()
	e.irq.lines = 0
	e.irq.apply()
	e.m68k.Reset()
	e.z80.Reset()
	e.psg.chip.ResetBuffer()
	e.psg.resync()
	e.rebindTimers()
	e.filterPrevL = 0
	e.filterPrevR = 0
}

// SetInput unpacks a button bitmask and sets controller state for the given player.
func (e *Emulator) SetInput(player int, buttons uint32) {
	switch player {
	case 0:
		e.io.InputP1.Set(buttons)
	case 1:
		e.io.InputP2.Set(buttons)
	}
}

// SetP2Connected sets whether a Player 2 controller is connected.
// When disconnected, port 2 reads as all buttons released.
func (e *Emulator) SetP2Connected(connected bool) {
	e.io.InputP2.Connected = connected
}

// SetRasterDriver selects scanline-driven frames.
func (e *Emulator) SetRasterDriver(enabled bool) {
	e.raster = enabled
}

// SetFrameSkip sets the frame-skip level (0-11).
func (e *Emulator) SetFrameSkip(level int) {
	e.skip.SetLevel(level)
}

// Scheduler returns the scheduler driving the board.
func (e *Emulator) Scheduler() *sched.Scheduler {
	return e.sched
}

// GetFramebuffer returns raw RGBA pixel data for current frame.
func (e *Emulator) GetFramebuffer() []byte {
	return e.video.GetFramebuffer()
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return e.video.GetStride()
}

// GetActiveHeight returns the current active display height.
func (e *Emulator) GetActiveHeight() int {
	return ScreenHeight
}

// GetRegion returns the emulator's region setting.
func (e *Emulator) GetRegion() Region {
	return e.region
}

// GetTiming returns FPS and scanline count for the current region.
func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       e.timing.FPS,
		Scanlines: e.timing.Scanlines,
	}
}

// SetRegion updates the emulator's region configuration. The scheduler is
// rebuilt for the new frame timing with its clock, suspensions and
// pending timers carried over.
func (e *Emulator) SetRegion(region Region) {
	timing := GetTimingForRegion(region)
	if timing == e.timing {
		e.region = region
		return
	}

	state := e.sched.SerializeState()
	s := sched.New(timing.SchedConfig(), m68kExecutor{e.m68k}, z80Executor{e.z80}, e.hooks())
	if err := s.DeserializeState(state); err != nil {
		log.Printf("[emu] region change lost scheduler state: %v", err)
	}

	e.region = region
	e.timing = timing
	e.attachScheduler(s)
}

// HasSRAM returns true; the board always carries backup RAM.
func (e *Emulator) HasSRAM() bool {
	return e.bus.HasSRAM()
}

// GetSRAM returns a copy of the current backup RAM contents.
func (e *Emulator) GetSRAM() []byte {
	return e.bus.GetSRAM()
}

// SetSRAM loads backup RAM contents from a save file.
func (e *Emulator) SetSRAM(data []byte) {
	e.bus.SetSRAM(data)
}

// ReadProgramRAM reads a single byte from 68000 program RAM.
func (e *Emulator) ReadProgramRAM(addr uint32) byte {
	if addr >= programRAMSize {
		return 0
	}
	return e.bus.ram[addr]
}

// ReadZ80RAM reads a single byte from Z80 RAM.
func (e *Emulator) ReadZ80RAM(addr uint16) byte {
	return e.bus.z80RAM[addr]
}

// GetProgramRAM returns a copy of the 68000 program RAM.
func (e *Emulator) GetProgramRAM() []byte {
	out := make([]byte, programRAMSize)
	copy(out, e.bus.ram[:])
	return out
}

// SetProgramRAM writes data into the 68000 program RAM.
func (e *Emulator) SetProgramRAM(data []byte) {
	copy(e.bus.ram[:], data)
}

// GetSRAMSize returns the size of the backup RAM in bytes.
func (e *Emulator) GetSRAMSize() int {
	return backupRAMSize
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	switch key {
	case "raster_driver":
		e.SetRasterDriver(value == "true")
	case "frameskip":
		// Front-ends with only boolean options toggle half-rate drawing.
		switch value {
		case "true":
			e.SetFrameSkip(FrameSkipLevels / 2)
			return
		case "false":
			e.SetFrameSkip(0)
			return
		}
		level, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("[emu] invalid frameskip %q: %v", value, err)
			return
		}
		e.SetFrameSkip(level)
	}
}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		var b byte
		switch {
		case cur <= programRAMEnd:
			b = e.ReadProgramRAM(cur - programRAMStart)
		case cur >= z80RAMStart && cur <= z80RAMEnd:
			b = e.ReadZ80RAM(uint16(cur - z80RAMStart))
		default:
			return count
		}
		buf[i] = b
		count++
	}
	return count
}

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: programRAMSize},
		{Type: emucore.MemorySaveRAM, Size: backupRAMSize},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		return e.GetProgramRAM()
	case emucore.MemorySaveRAM:
		return e.GetSRAM()
	default:
		return nil
	}
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySystemRAM:
		e.SetProgramRAM(data)
	case emucore.MemorySaveRAM:
		e.SetSRAM(data)
	}
}
