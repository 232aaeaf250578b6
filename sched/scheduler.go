// Package sched interleaves a primary CPU and an audio coprocessor on a
// shared microsecond timeline and fires hardware timers at the simulated
// instant they fall due.
//
// Each frame is dispatched as a series of slices. A slice lasts until the
// frame (or scanline) budget runs out or the nearest timer deadline,
// whichever comes first; both CPUs advance by the slice, then due timers
// fire and the next slice is planned. A timer armed from inside a CPU's
// execution cuts that CPU's slice short, so the timer is observed at its
// true instant rather than at a slice boundary.
//
// A Scheduler is not safe for concurrent use. CPU executors, timer
// callbacks and hooks all run on the goroutine that calls RunFrame.
package sched

import "fmt"

// Config holds the fixed timing of a machine.
type Config struct {
	FrameDurationUs        int // µs dispatched by RunFrame and RunCoprocessorOnly
	Scanlines              int // scanlines dispatched by RunScanlineFrame
	UsPerScanline          int // µs per scanline
	PrimaryCyclesPerUs     int
	CoprocessorCyclesPerUs int
}

// Hooks are the frame-boundary collaborators. Nil fields fall back to
// no-ops; a nil IsRunning always reports running.
type Hooks struct {
	FrameInterrupt    func()
	ScanlineInterrupt func(line int)
	ShouldSkipFrame   func() bool
	ScreenRefresh     func()
	IsRunning         func() bool
}

// Scheduler owns the clock, both CPU contexts and the timer registry of one
// emulation session.
type Scheduler struct {
	cfg   Config
	hooks Hooks

	clock  clock
	cpus   [NumCPUs]CPU
	timers [MaxTimers]timer

	active   *CPU // CPU inside Execute, nil between executions
	left     int  // µs of frame or scanline budget not yet dispatched
	slice    int  // µs planned for the slice in flight
	scanline int  // scanline being dispatched by RunScanlineFrame, 0 otherwise
}

// New creates a scheduler for the given timing, executors and hooks.
// It panics if the configuration is unusable.
func New(cfg Config, primary, coprocessor Executor, hooks Hooks) *Scheduler {
	if cfg.FrameDurationUs <= 0 {
		panic(fmt.Sprintf("sched: frame duration %d must be positive", cfg.FrameDurationUs))
	}
	if cfg.PrimaryCyclesPerUs <= 0 || cfg.CoprocessorCyclesPerUs <= 0 {
		panic(fmt.Sprintf("sched: cycles per µs must be positive (%d, %d)",
			cfg.PrimaryCyclesPerUs, cfg.CoprocessorCyclesPerUs))
	}
	if cfg.Scanlines < 0 || cfg.UsPerScanline <= 0 {
		panic(fmt.Sprintf("sched: bad raster timing %d x %dµs", cfg.Scanlines, cfg.UsPerScanline))
	}

	s := &Scheduler{cfg: cfg}
	s.cpus[Primary] = CPU{id: Primary, exec: primary, cyclesPerUs: cfg.PrimaryCyclesPerUs}
	s.cpus[Coprocessor] = CPU{id: Coprocessor, exec: coprocessor, cyclesPerUs: cfg.CoprocessorCyclesPerUs}
	s.SetHooks(hooks)
	s.Reset()
	return s
}

// SetHooks replaces the frame-boundary hooks.
func (s *Scheduler) SetHooks(h Hooks) {
	if h.FrameInterrupt == nil {
		h.FrameInterrupt = func() {}
	}
	if h.ScanlineInterrupt == nil {
		h.ScanlineInterrupt = func(int) {}
	}
	if h.ShouldSkipFrame == nil {
		h.ShouldSkipFrame = func() bool { return false }
	}
	if h.ScreenRefresh == nil {
		h.ScreenRefresh = func() {}
	}
	if h.IsRunning == nil {
		h.IsRunning = func() bool { return true }
	}
	s.hooks = h
}

// Reset returns the session to time zero: the clock is cleared, both CPUs
// are resumed and every timer slot is disarmed and unbound.
func (s *Scheduler) Reset() {
	s.clock.reset()
	for i := range s.cpus {
		s.cpus[i].reset()
	}
	for i := range s.timers {
		s.timers[i] = timer{role: roleOf(Handle(i))}
	}
	s.active = nil
	s.left = 0
	s.slice = 0
	s.scanline = 0
}

// Config returns the timing the scheduler was created with.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// CPU returns the context of the given CPU.
func (s *Scheduler) CPU(id CPUID) *CPU {
	if id < 0 || id >= NumCPUs {
		panic(fmt.Sprintf("sched: unknown CPU %d", int(id)))
	}
	return &s.cpus[id]
}

// RunFrame dispatches one frame with both CPUs. It returns false if the
// running hook cancelled the frame part way; the frame interrupt, clock
// advance and refresh are then skipped.
func (s *Scheduler) RunFrame() bool {
	s.clock.begin()
	s.scanline = 0
	s.left = s.cfg.FrameDurationUs

	if !s.dispatch(true) {
		return false
	}

	s.hooks.FrameInterrupt()
	s.endFrame(s.cfg.FrameDurationUs)
	s.refresh()
	return true
}

// RunScanlineFrame dispatches one frame scanline by scanline, calling the
// scanline interrupt after each line. It returns false if cancelled.
func (s *Scheduler) RunScanlineFrame() bool {
	s.clock.begin()
	s.left = 0

	for s.scanline = 1; s.scanline <= s.cfg.Scanlines; s.scanline++ {
		s.left += s.cfg.UsPerScanline
		if !s.dispatch(true) {
			return false
		}
		s.hooks.ScanlineInterrupt(s.scanline)
	}
	s.scanline = s.cfg.Scanlines

	s.endFrame(s.cfg.FrameDurationUs)
	s.refresh()
	return true
}

// RunCoprocessorOnly dispatches one frame with only the coprocessor
// stepped. No interrupt or refresh hooks run. It returns false if cancelled.
func (s *Scheduler) RunCoprocessorOnly() bool {
	s.clock.begin()
	s.scanline = 0
	s.left = s.cfg.FrameDurationUs

	if !s.dispatch(false) {
		return false
	}

	s.endFrame(s.cfg.FrameDurationUs)
	return true
}

// dispatch runs slices until the pending budget is spent.
func (s *Scheduler) dispatch(withPrimary bool) bool {
	for s.left > 0 {
		now := s.clock.now()
		s.slice = s.left

		s.fireDue(now)
		s.slice = s.nextDeadline(now, s.slice)

		if withPrimary {
			s.execute(&s.cpus[Primary])
		}
		s.execute(&s.cpus[Coprocessor])

		s.clock.frameOffset += s.slice
		s.left -= s.slice

		if !s.hooks.IsRunning() {
			return false
		}
	}
	return true
}

// execute grants the current slice to cpu unless it is suspended.
func (s *Scheduler) execute(cpu *CPU) {
	if cpu.suspended != 0 {
		return
	}
	cpu.granted = s.slice * cpu.cyclesPerUs
	cpu.remaining = cpu.granted

	s.active = cpu
	cpu.exec.Execute(cpu, cpu.granted)
	s.active = nil
}

// endFrame advances the clock past a completed frame.
func (s *Scheduler) endFrame(us int) {
	if n := s.clock.commit(us); n > 0 {
		s.shiftDeadlines(n * usPerSecond)
	}
}

func (s *Scheduler) refresh() {
	if !s.hooks.ShouldSkipFrame() {
		s.hooks.ScreenRefresh()
	}
}

// AbsoluteNow returns the current time in µs on the rolling sub-second
// scale. Inside a CPU's Execute it includes the part of the slice that CPU
// has already executed.
func (s *Scheduler) AbsoluteNow() int {
	t := s.clock.now()
	if s.active != nil {
		t += s.active.elapsedUs()
	}
	return t
}

// ElapsedSeconds returns the session time in seconds. Informational only.
func (s *Scheduler) ElapsedSeconds() float64 {
	return float64(s.clock.seconds) + float64(s.AbsoluteNow())/usPerSecond
}

// Seconds returns the whole seconds elapsed since the session started.
func (s *Scheduler) Seconds() uint64 {
	return s.clock.seconds
}

// SubSecond returns the µs elapsed within the current second.
func (s *Scheduler) SubSecond() int {
	return s.clock.subSecond
}

// FrameOffset returns the µs dispatched in the current or last frame.
func (s *Scheduler) FrameOffset() int {
	return s.clock.frameOffset
}

// CurrentScanline returns the scanline being dispatched. Outside raster
// mode it is derived from the frame offset.
func (s *Scheduler) CurrentScanline() int {
	if s.scanline > 0 {
		return s.scanline
	}
	return 1 + s.clock.frameOffset/s.cfg.UsPerScanline
}

// Active returns the CPU inside Execute, or nil.
func (s *Scheduler) Active() *CPU {
	return s.active
}

// SetSuspended sets or clears one suspension reason on a CPU. A CPU with
// any reason set receives no cycles until every reason is cleared.
func (s *Scheduler) SetSuspended(id CPUID, reason SuspendReason, asserted bool) {
	cpu := s.CPU(id)
	if asserted {
		cpu.suspended |= reason
	} else {
		cpu.suspended &^= reason
	}
}

// Suspended returns the suspension bitmask of a CPU.
func (s *Scheduler) Suspended(id CPUID) SuspendReason {
	return s.CPU(id).suspended
}

// Spin suspends a CPU for us microseconds. The spin slot releases it when
// it fires; ReleaseSpin releases it early.
func (s *Scheduler) Spin(id CPUID, us int) {
	if us < 0 {
		panic(fmt.Sprintf("sched: negative spin duration %d", us))
	}
	s.spinAt(id, s.AbsoluteNow()+us)
}

// ReleaseSpin clears the spin reason on a CPU and disarms the spin slot if
// it was holding that CPU.
func (s *Scheduler) ReleaseSpin(id CPUID) {
	t := &s.timers[TimerSpin]
	if t.enabled && CPUID(t.param) == id {
		t.enabled = false
	}
	s.SetSuspended(id, SuspendSpin, false)
}

func (s *Scheduler) spinAt(id CPUID, deadline int) {
	t := &s.timers[TimerSpin]
	if t.enabled && CPUID(t.param) != id {
		// One slot holds one spin. The CPU it was holding is let go
		// rather than left suspended with nothing to wake it.
		s.SetSuspended(CPUID(t.param), SuspendSpin, false)
	}
	s.SetSuspended(id, SuspendSpin, true)

	t.enabled = true
	t.deadline = deadline
	t.param = int(id)
	t.callback = s.spinTrigger
}

// spinTrigger is the spin slot's callback.
func (s *Scheduler) spinTrigger(param int) {
	s.SetSuspended(CPUID(param), SuspendSpin, false)
}
