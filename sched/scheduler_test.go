package sched

import (
	"testing"
)

const testFrameUs = 16667

// recorder is an executor that consumes every granted cycle and records
// each grant.
type recorder struct {
	grants []int
	during func(cpu *CPU) // optional, called once per Execute before consuming
}

func (r *recorder) Execute(cpu *CPU, cycles int) {
	r.grants = append(r.grants, cycles)
	if r.during != nil {
		r.during(cpu)
	}
	if cpu.Remaining() > 0 {
		cpu.Consume(cpu.Remaining())
	}
}

func (r *recorder) total() int {
	n := 0
	for _, g := range r.grants {
		n += g
	}
	return n
}

func testConfig() Config {
	return Config{
		FrameDurationUs:        testFrameUs,
		Scanlines:              264,
		UsPerScanline:          64,
		PrimaryCyclesPerUs:     12,
		CoprocessorCyclesPerUs: 6,
	}
}

func newTestScheduler(hooks Hooks) (*Scheduler, *recorder, *recorder) {
	p := &recorder{}
	c := &recorder{}
	return New(testConfig(), p, c, hooks), p, c
}

func TestRunFrame_NoTimers(t *testing.T) {
	frameIRQs := 0
	s, p, c := newTestScheduler(Hooks{FrameInterrupt: func() { frameIRQs++ }})

	if !s.RunFrame() {
		t.Fatal("RunFrame reported cancellation")
	}

	if len(p.grants) != 1 || p.grants[0] != 200004 {
		t.Errorf("primary grants: expected [200004], got %v", p.grants)
	}
	if len(c.grants) != 1 || c.grants[0] != 100002 {
		t.Errorf("coprocessor grants: expected [100002], got %v", c.grants)
	}
	if frameIRQs != 1 {
		t.Errorf("frame interrupts: expected 1, got %d", frameIRQs)
	}
	if s.FrameOffset() != testFrameUs {
		t.Errorf("frame offset: expected %d, got %d", testFrameUs, s.FrameOffset())
	}
	if s.SubSecond() != testFrameUs {
		t.Errorf("sub-second: expected %d, got %d", testFrameUs, s.SubSecond())
	}
}

func TestRunFrame_TimerSplitsFrame(t *testing.T) {
	s, p, c := newTestScheduler(Hooks{})

	fired := 0
	var primaryCallsAtFire int
	s.SetTimer(4, 5000, 7, func(param int) {
		fired++
		primaryCallsAtFire = len(p.grants)
		if param != 7 {
			t.Errorf("param: expected 7, got %d", param)
		}
	})

	s.RunFrame()

	if fired != 1 {
		t.Fatalf("timer fired %d times, expected 1", fired)
	}
	if primaryCallsAtFire != 1 {
		t.Errorf("timer should fire before the second slice executes, primary had %d calls", primaryCallsAtFire)
	}
	want := []int{5000 * 12, 11667 * 12}
	if len(p.grants) != 2 || p.grants[0] != want[0] || p.grants[1] != want[1] {
		t.Errorf("primary grants: expected %v, got %v", want, p.grants)
	}
	if len(c.grants) != 2 || c.grants[0] != 5000*6 || c.grants[1] != 11667*6 {
		t.Errorf("coprocessor grants: expected [30000 70002], got %v", c.grants)
	}
	if s.TimerEnabled(4) {
		t.Error("timer should be disabled after firing")
	}
}

func TestRunFrame_BudgetConservation(t *testing.T) {
	s, p, _ := newTestScheduler(Hooks{})

	// A self re-arming timer every 333µs splits the frame many times.
	var rearm Callback
	rearm = func(int) { s.ArmTimer(5, 333, 0, rearm) }
	s.SetTimer(5, 333, 0, rearm)
	s.SetTimer(6, 1234, 0, func(int) {})

	for frame := 0; frame < 5; frame++ {
		p.grants = p.grants[:0]
		if !s.RunFrame() {
			t.Fatal("unexpected cancellation")
		}
		if s.FrameOffset() != testFrameUs {
			t.Errorf("frame %d: offset expected %d, got %d", frame, testFrameUs, s.FrameOffset())
		}
		if p.total() != testFrameUs*12 {
			t.Errorf("frame %d: primary cycles expected %d, got %d", frame, testFrameUs*12, p.total())
		}
	}
}

func TestRunFrame_TieBreakAscendingSlot(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})

	var order []int
	record := func(param int) { order = append(order, param) }
	s.SetTimer(6, 1000, 6, record)
	s.SetTimer(4, 1000, 4, record)
	s.SetTimer(5, 1000, 5, record)

	s.RunFrame()

	if len(order) != 3 || order[0] != 4 || order[1] != 5 || order[2] != 6 {
		t.Errorf("fire order: expected [4 5 6], got %v", order)
	}
}

func TestRunFrame_LowerSlotEnabledMidScanWaitsForNextPass(t *testing.T) {
	s, p, _ := newTestScheduler(Hooks{})

	var order []string
	s.SetTimer(5, 1000, 0, func(int) {
		order = append(order, "high")
		s.ArmTimer(4, 0, 0, func(int) {
			order = append(order, "low")
		})
	})
	s.SetTimer(6, 1000, 0, func(int) {
		order = append(order, "higher")
	})

	s.RunFrame()

	want := []string{"high", "higher", "low"}
	if len(order) != len(want) {
		t.Fatalf("fire order: expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("fire order: expected %v, got %v", want, order)
		}
	}
	if s.FrameOffset() != testFrameUs {
		t.Errorf("frame offset: expected %d, got %d", testFrameUs, s.FrameOffset())
	}
	if p.total() != testFrameUs*12 {
		t.Errorf("primary cycles: expected %d, got %d", testFrameUs*12, p.total())
	}
}

func TestRunFrame_Cancellation(t *testing.T) {
	running := true
	frameIRQs := 0
	refreshes := 0
	s, _, _ := newTestScheduler(Hooks{
		IsRunning:      func() bool { return running },
		FrameInterrupt: func() { frameIRQs++ },
		ScreenRefresh:  func() { refreshes++ },
	})
	s.SetTimer(4, 4000, 0, func(int) {})

	// Stop after the first slice.
	s.cpus[Coprocessor].exec = ExecutorFunc(func(cpu *CPU, cycles int) {
		cpu.Consume(cycles)
		running = false
	})

	if s.RunFrame() {
		t.Fatal("RunFrame should report cancellation")
	}
	if s.FrameOffset() != 4000 {
		t.Errorf("frame offset: expected 4000, got %d", s.FrameOffset())
	}
	if frameIRQs != 0 || refreshes != 0 {
		t.Errorf("hooks ran on a cancelled frame: irq=%d refresh=%d", frameIRQs, refreshes)
	}
	if s.SubSecond() != 0 {
		t.Errorf("sub-second should not advance on cancel, got %d", s.SubSecond())
	}
	if s.AbsoluteNow() != 4000 {
		t.Errorf("AbsoluteNow after cancel: expected 4000, got %d", s.AbsoluteNow())
	}
}

func TestRunFrame_SkipFrame(t *testing.T) {
	refreshes := 0
	skip := true
	s, _, _ := newTestScheduler(Hooks{
		ShouldSkipFrame: func() bool { return skip },
		ScreenRefresh:   func() { refreshes++ },
	})

	s.RunFrame()
	if refreshes != 0 {
		t.Errorf("skipped frame refreshed %d times", refreshes)
	}

	skip = false
	s.RunFrame()
	if refreshes != 1 {
		t.Errorf("refreshes: expected 1, got %d", refreshes)
	}
}

func TestRollover_Scenario(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})
	s.clock.subSecond = 995000
	s.timers[4].enabled = true
	s.timers[4].deadline = 1005000

	s.endFrame(testFrameUs)

	if s.Seconds() != 1 {
		t.Errorf("seconds: expected 1, got %d", s.Seconds())
	}
	if s.SubSecond() != 11667 {
		t.Errorf("sub-second: expected 11667, got %d", s.SubSecond())
	}
	if s.TimerDeadline(4) != 5000 {
		t.Errorf("deadline: expected 5000, got %d", s.TimerDeadline(4))
	}
}

func TestRollover_ShiftsPendingDeadline(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})
	s.clock.subSecond = 995000
	s.SetTimer(4, 25000, 0, func(int) {})
	s.timers[5].deadline = 1500000 // disabled slots keep their deadline

	s.RunFrame()

	if s.TimerDeadline(4) != 20000 {
		t.Errorf("enabled deadline: expected 20000, got %d", s.TimerDeadline(4))
	}
	if s.TimerDeadline(5) != 1500000 {
		t.Errorf("disabled deadline: expected 1500000, got %d", s.TimerDeadline(5))
	}
}

func TestRollover_Invariant(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})

	total := 0
	for frame := 0; frame < 200; frame++ {
		s.RunFrame()
		total += testFrameUs
		if s.SubSecond() < 0 || s.SubSecond() >= usPerSecond {
			t.Fatalf("frame %d: sub-second %d out of range", frame, s.SubSecond())
		}
		if s.Seconds() != uint64(total/usPerSecond) {
			t.Fatalf("frame %d: seconds expected %d, got %d", frame, total/usPerSecond, s.Seconds())
		}
		if s.SubSecond() != total%usPerSecond {
			t.Fatalf("frame %d: sub-second expected %d, got %d", frame, total%usPerSecond, s.SubSecond())
		}
	}
}

func TestRollover_TimerFiresAcrossSecondBoundary(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})
	s.clock.subSecond = 990000

	var firedAt int
	s.SetTimer(4, 20000, 0, func(int) { firedAt = s.AbsoluteNow() })

	s.RunFrame() // 990000 -> 1006667, rolls to 6667
	if firedAt != 0 {
		t.Fatalf("timer fired early at %d", firedAt)
	}
	s.RunFrame()
	if firedAt != 10000 {
		t.Errorf("timer fired at %d, expected 10000 on the new second", firedAt)
	}
}

func TestElapsedSeconds(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})
	for i := 0; i < 60; i++ {
		s.RunFrame()
	}
	got := s.ElapsedSeconds()
	if got < 1.00001 || got > 1.00003 {
		t.Errorf("elapsed seconds: expected ~1.00002, got %f", got)
	}
}

func TestAbsoluteNow_MidSlice(t *testing.T) {
	s, p, _ := newTestScheduler(Hooks{})

	var seen []int
	p.during = func(cpu *CPU) {
		cpu.Consume(1200)
		seen = append(seen, s.AbsoluteNow())
	}

	s.RunFrame()
	s.RunFrame()

	if len(seen) != 2 || seen[0] != 100 || seen[1] != testFrameUs+100 {
		t.Errorf("mid-slice times: expected [100 %d], got %v", testFrameUs+100, seen)
	}
}

func TestAbsoluteNow_BetweenFrames(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})
	s.RunFrame()
	if s.AbsoluteNow() != testFrameUs {
		t.Errorf("AbsoluteNow between frames: expected %d, got %d", testFrameUs, s.AbsoluteNow())
	}
}

func TestRunScanlineFrame(t *testing.T) {
	var lines []int
	var seenScanline []int
	frameIRQs := 0
	refreshes := 0
	s, p, _ := newTestScheduler(Hooks{})
	s.SetHooks(Hooks{
		FrameInterrupt: func() { frameIRQs++ },
		ScreenRefresh:  func() { refreshes++ },
		ScanlineInterrupt: func(line int) {
			lines = append(lines, line)
			seenScanline = append(seenScanline, s.CurrentScanline())
		},
	})

	if !s.RunScanlineFrame() {
		t.Fatal("unexpected cancellation")
	}

	if len(lines) != 264 {
		t.Fatalf("scanline interrupts: expected 264, got %d", len(lines))
	}
	for i, l := range lines {
		if l != i+1 || seenScanline[i] != i+1 {
			t.Fatalf("line %d: hook got %d, CurrentScanline %d", i+1, l, seenScanline[i])
		}
	}
	if frameIRQs != 0 {
		t.Errorf("frame interrupt should not run in raster mode, ran %d times", frameIRQs)
	}
	if refreshes != 1 {
		t.Errorf("refreshes: expected 1, got %d", refreshes)
	}
	if len(p.grants) != 264 || p.grants[0] != 64*12 {
		t.Errorf("primary: expected 264 grants of %d, got %d grants", 64*12, len(p.grants))
	}
	if s.FrameOffset() != 264*64 {
		t.Errorf("frame offset: expected %d, got %d", 264*64, s.FrameOffset())
	}
	// The clock advances by the frame duration, not the lines dispatched.
	if s.SubSecond() != testFrameUs {
		t.Errorf("sub-second: expected %d, got %d", testFrameUs, s.SubSecond())
	}
}

func TestRunScanlineFrame_SixtyFramesOneSecond(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})
	for i := 0; i < 60; i++ {
		s.RunScanlineFrame()
	}
	if s.Seconds() != 1 || s.SubSecond() != 60*testFrameUs-1000000 {
		t.Errorf("after 60 frames: expected 1s + %dµs, got %ds + %dµs",
			60*testFrameUs-1000000, s.Seconds(), s.SubSecond())
	}
}

func TestRunScanlineFrame_Cancellation(t *testing.T) {
	running := true
	var lines []int
	refreshes := 0
	s, p, _ := newTestScheduler(Hooks{})
	s.SetHooks(Hooks{
		IsRunning:     func() bool { return running },
		ScreenRefresh: func() { refreshes++ },
		ScanlineInterrupt: func(line int) {
			lines = append(lines, line)
			if line == 10 {
				running = false
			}
		},
	})

	if s.RunScanlineFrame() {
		t.Fatal("RunScanlineFrame should report cancellation")
	}
	// Line 11 is dispatched, then the running check ends the frame
	// before its scanline hook.
	if len(lines) != 10 {
		t.Errorf("scanline interrupts: expected 10, got %d", len(lines))
	}
	if len(p.grants) != 11 {
		t.Errorf("primary grants: expected 11, got %d", len(p.grants))
	}
	if refreshes != 0 {
		t.Errorf("cancelled frame refreshed %d times", refreshes)
	}
	if s.SubSecond() != 0 {
		t.Errorf("sub-second should not advance on cancel, got %d", s.SubSecond())
	}
}

func TestRunCoprocessorOnly_Cancellation(t *testing.T) {
	running := true
	s, p, c := newTestScheduler(Hooks{IsRunning: func() bool { return running }})
	s.SetTimer(4, 3000, 0, func(int) { running = false })

	if s.RunCoprocessorOnly() {
		t.Fatal("RunCoprocessorOnly should report cancellation")
	}
	// The timer fires at the start of the second slice, which still runs.
	if len(p.grants) != 0 {
		t.Errorf("primary ran %d times in coprocessor-only mode", len(p.grants))
	}
	if c.total() != testFrameUs*6 {
		t.Errorf("coprocessor cycles: expected %d, got %d", testFrameUs*6, c.total())
	}
	if s.SubSecond() != 0 {
		t.Errorf("sub-second should not advance on cancel, got %d", s.SubSecond())
	}
}

func TestRunScanlineFrame_TimerMidLine(t *testing.T) {
	s, p, _ := newTestScheduler(Hooks{})
	fired := 0
	s.SetTimer(4, 100, 0, func(int) { fired++ })

	s.RunScanlineFrame()

	if fired != 1 {
		t.Errorf("timer fired %d times, expected 1", fired)
	}
	// Line 2 (64..128µs) splits at 100µs.
	if p.grants[1] != 36*12 || p.grants[2] != 28*12 {
		t.Errorf("line 2 grants: expected [432 336], got %v", p.grants[1:3])
	}
}

func TestCurrentScanline_FrameMode(t *testing.T) {
	s, p, _ := newTestScheduler(Hooks{})
	var lines []int
	s.SetTimer(4, 640, 0, func(int) { lines = append(lines, s.CurrentScanline()) })
	p.during = func(*CPU) {}

	s.RunFrame()

	if len(lines) != 1 || lines[0] != 11 {
		t.Errorf("scanline at 640µs: expected [11], got %v", lines)
	}
}

func TestRunCoprocessorOnly(t *testing.T) {
	frameIRQs := 0
	refreshes := 0
	s, p, c := newTestScheduler(Hooks{
		FrameInterrupt:    func() { frameIRQs++ },
		ScanlineInterrupt: func(int) { frameIRQs++ },
		ScreenRefresh:     func() { refreshes++ },
	})
	fired := 0
	s.SetTimer(TimerAudioA, 8000, 0, func(int) { fired++ })

	if !s.RunCoprocessorOnly() {
		t.Fatal("unexpected cancellation")
	}

	if len(p.grants) != 0 {
		t.Errorf("primary should never run, got grants %v", p.grants)
	}
	if c.total() != testFrameUs*6 {
		t.Errorf("coprocessor cycles: expected %d, got %d", testFrameUs*6, c.total())
	}
	if fired != 1 {
		t.Errorf("timer fired %d times, expected 1", fired)
	}
	if frameIRQs != 0 || refreshes != 0 {
		t.Errorf("hooks ran in coprocessor-only mode: irq=%d refresh=%d", frameIRQs, refreshes)
	}
	if s.SubSecond() != testFrameUs {
		t.Errorf("sub-second: expected %d, got %d", testFrameUs, s.SubSecond())
	}
}

func TestReset(t *testing.T) {
	s, _, _ := newTestScheduler(Hooks{})
	s.SetTimer(4, 100, 0, func(int) {})
	s.SetSuspended(Primary, SuspendReset, true)
	s.RunFrame()

	s.Reset()

	if s.SubSecond() != 0 || s.Seconds() != 0 || s.FrameOffset() != 0 {
		t.Error("clock not cleared by Reset")
	}
	if s.Suspended(Primary) != 0 {
		t.Error("suspension not cleared by Reset")
	}
	for h := Handle(0); h < MaxTimers; h++ {
		if s.TimerEnabled(h) {
			t.Errorf("timer %d still enabled after Reset", h)
		}
		if s.TimerRole(h) != roleOf(h) {
			t.Errorf("timer %d role %v after Reset", h, s.TimerRole(h))
		}
	}
}

func TestNew_PanicsOnBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.CoprocessorCyclesPerUs = 0

	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero cycles per µs")
		}
	}()
	New(cfg, &recorder{}, &recorder{}, Hooks{})
}
