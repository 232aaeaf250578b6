package sched

import "fmt"

// Handle addresses a timer slot.
type Handle int

// Well-known timer slots. Handles from NumReservedTimers up to MaxTimers
// are free for ad-hoc use and carry RoleUnassigned.
const (
	TimerAudioA Handle = iota // sound chip timer A
	TimerAudioB               // sound chip timer B
	TimerLatch                // inter-CPU sound latch delivery
	TimerSpin                 // spin-sync release
	NumReservedTimers

	MaxTimers = 8
)

// Role identifies which callback a slot must be bound to after a restore.
type Role uint8

const (
	RoleUnassigned Role = iota
	RoleAudioTimerA
	RoleAudioTimerB
	RoleInterCPULatch
	RoleSpinSync
)

func (r Role) String() string {
	switch r {
	case RoleUnassigned:
		return "unassigned"
	case RoleAudioTimerA:
		return "audio-timer-a"
	case RoleAudioTimerB:
		return "audio-timer-b"
	case RoleInterCPULatch:
		return "inter-cpu-latch"
	case RoleSpinSync:
		return "spin-sync"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// roleOf returns the fixed role of a slot.
func roleOf(h Handle) Role {
	switch h {
	case TimerAudioA:
		return RoleAudioTimerA
	case TimerAudioB:
		return RoleAudioTimerB
	case TimerLatch:
		return RoleInterCPULatch
	case TimerSpin:
		return RoleSpinSync
	default:
		return RoleUnassigned
	}
}

// Callback is invoked when a timer fires, with the parameter it was armed with.
type Callback func(param int)

type timer struct {
	deadline int
	enabled  bool
	param    int
	role     Role
	callback Callback
}

func (s *Scheduler) slot(h Handle) *timer {
	if h < 0 || h >= MaxTimers {
		panic(fmt.Sprintf("sched: timer handle %d out of range", int(h)))
	}
	return &s.timers[h]
}

// ArmTimer schedules slot h to fire us microseconds from AbsoluteNow with
// the given parameter and callback, and enables it. When called from inside
// a CPU's Execute and the deadline falls before the end of that CPU's slice,
// the slice is cut short at the current instant.
func (s *Scheduler) ArmTimer(h Handle, us int, param int, cb Callback) {
	t := s.slot(h)
	if us < 0 {
		panic(fmt.Sprintf("sched: negative duration %d for timer %d", us, int(h)))
	}

	now := s.AbsoluteNow()
	t.deadline = now + us
	t.param = param
	t.callback = cb
	t.enabled = true

	s.preempt(now, us)
}

// SetTimer forces slot h enabled and arms it. It is the first-time arming
// entry point for callers that do not track the slot's enable state.
func (s *Scheduler) SetTimer(h Handle, us int, param int, cb Callback) {
	s.slot(h).enabled = true
	s.ArmTimer(h, us, param, cb)
}

// EnableTimer sets the enable state of slot h and returns the previous one.
// Enabling does not change the deadline.
func (s *Scheduler) EnableTimer(h Handle, enable bool) bool {
	t := s.slot(h)
	old := t.enabled
	t.enabled = enable
	return old
}

// DisableTimer disables slot h and returns whether it was enabled.
func (s *Scheduler) DisableTimer(h Handle) bool {
	return s.EnableTimer(h, false)
}

// TimerEnabled reports whether slot h is armed.
func (s *Scheduler) TimerEnabled(h Handle) bool {
	return s.slot(h).enabled
}

// TimerDeadline returns the absolute deadline of slot h.
func (s *Scheduler) TimerDeadline(h Handle) int {
	return s.slot(h).deadline
}

// TimerRole returns the fixed role of slot h.
func (s *Scheduler) TimerRole(h Handle) Role {
	return s.slot(h).role
}

// Rebind replaces the callback of slot h without touching its schedule.
func (s *Scheduler) Rebind(h Handle, cb Callback) {
	s.slot(h).callback = cb
}

// RebindRole binds cb to every slot carrying role r.
func (s *Scheduler) RebindRole(r Role, cb Callback) {
	for i := range s.timers {
		if s.timers[i].role == r {
			s.timers[i].callback = cb
		}
	}
}

// preempt truncates the active CPU's slice when a timer armed at now falls
// due us microseconds later, before that slice would otherwise end.
func (s *Scheduler) preempt(now, us int) {
	cpu := s.active
	if cpu == nil || cpu.remaining <= 0 {
		return
	}

	cyclesLeft := cpu.remaining
	timeLeft := cyclesLeft / cpu.cyclesPerUs
	if us >= timeLeft {
		return
	}

	s.slice -= timeLeft
	cpu.granted -= cyclesLeft
	cpu.remaining = 0

	// The primary already ran the full slice. Hold it until the
	// coprocessor has caught up with the time just discarded.
	if cpu.id == Coprocessor && !s.timers[TimerSpin].enabled {
		s.spinAt(Primary, now+timeLeft)
	}
}

// fireDue runs one ascending scan over the slots, firing each enabled slot
// whose deadline has passed.
func (s *Scheduler) fireDue(now int) {
	for i := range s.timers {
		t := &s.timers[i]
		if !t.enabled || t.deadline-now > 0 {
			continue
		}
		t.enabled = false
		if t.callback == nil {
			panic(fmt.Sprintf("sched: timer %d (%s) fired with no callback bound", i, t.role))
		}
		t.callback(t.param)
	}
}

// nextDeadline clamps slice to the earliest enabled deadline.
func (s *Scheduler) nextDeadline(now, slice int) int {
	for i := range s.timers {
		t := &s.timers[i]
		if !t.enabled {
			continue
		}
		if d := t.deadline - now; d < slice {
			slice = d
		}
	}
	if slice < 0 {
		slice = 0
	}
	return slice
}

// shiftDeadlines moves every enabled deadline back by us.
func (s *Scheduler) shiftDeadlines(us int) {
	for i := range s.timers {
		if s.timers[i].enabled {
			s.timers[i].deadline -= us
		}
	}
}
