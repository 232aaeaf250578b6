package emu

import "github.com/user-none/emncd/sched"

// Timer unit registers.
const (
	regTimerAHigh   = 0x24 // NA bits 9-2
	regTimerALow    = 0x25 // NA bits 1-0
	regTimerB       = 0x26 // NB
	regTimerControl = 0x27 // load, flag enable and flag reset bits
)

// Timer control bits (register $27).
const (
	ctrlLoadA   = 0x01
	ctrlLoadB   = 0x02
	ctrlEnableA = 0x04
	ctrlEnableB = 0x08
	ctrlResetA  = 0x10
	ctrlResetB  = 0x20
)

// Status bits.
const (
	statusA = 0x01
	statusB = 0x02
)

// TimerUnit is the timer block of the sound chip. Only the timers are
// modelled; each runs on a scheduler slot so an overflow interrupts the
// Z80 at the exact microsecond it happens.
//
// Timer A (10-bit) overflows every 9 * (1024 - NA) µs.
// Timer B (8-bit) overflows every 144 * (256 - NB) µs.
type TimerUnit struct {
	sched *sched.Scheduler
	irq   *z80IRQ

	addr    uint8  // Selected register
	na      uint16 // Timer A period value
	nb      uint8  // Timer B period value
	control uint8  // Load and flag-enable bits of register $27
	status  uint8  // Overflow flags
}

// NewTimerUnit creates a timer unit raising its flags on irq.
func NewTimerUnit(irq *z80IRQ) *TimerUnit {
	return &TimerUnit{irq: irq}
}

// PeriodA returns the timer A period in µs.
func (t *TimerUnit) PeriodA() int {
	return 9 * (1024 - int(t.na))
}

// PeriodB returns the timer B period in µs.
func (t *TimerUnit) PeriodB() int {
	return 144 * (256 - int(t.nb))
}

// ReadStatus returns the overflow flags.
func (t *TimerUnit) ReadStatus() uint8 {
	return t.status
}

// WriteAddress selects the register for the next data write.
func (t *TimerUnit) WriteAddress(val uint8) {
	t.addr = val
}

// WriteData writes the selected register. Period changes take effect on
// the next reload.
func (t *TimerUnit) WriteData(val uint8) {
	switch t.addr {
	case regTimerAHigh:
		t.na = t.na&0x003 | uint16(val)<<2
	case regTimerALow:
		t.na = t.na&0x3FC | uint16(val&0x03)
	case regTimerB:
		t.nb = val
	case regTimerControl:
		t.writeControl(val)
	}
}

func (t *TimerUnit) writeControl(val uint8) {
	if val&ctrlResetA != 0 {
		t.status &^= statusA
	}
	if val&ctrlResetB != 0 {
		t.status &^= statusB
	}

	// A timer that is already running keeps its phase; only a stopped
	// timer starts a fresh period.
	if val&ctrlLoadA != 0 {
		if !t.sched.EnableTimer(sched.TimerAudioA, true) {
			t.sched.ArmTimer(sched.TimerAudioA, t.PeriodA(), 0, t.expireA)
		}
	} else {
		t.sched.DisableTimer(sched.TimerAudioA)
	}

	if val&ctrlLoadB != 0 {
		if !t.sched.EnableTimer(sched.TimerAudioB, true) {
			t.sched.ArmTimer(sched.TimerAudioB, t.PeriodB(), 0, t.expireB)
		}
	} else {
		t.sched.DisableTimer(sched.TimerAudioB)
	}

	t.control = val & (ctrlLoadA | ctrlLoadB | ctrlEnableA | ctrlEnableB)
	t.updateIRQ()
}

// expireA is the timer A slot callback.
func (t *TimerUnit) expireA(int) {
	t.sched.ArmTimer(sched.TimerAudioA, t.PeriodA(), 0, t.expireA)
	if t.control&ctrlEnableA != 0 {
		t.status |= statusA
		t.updateIRQ()
	}
}

// expireB is the timer B slot callback.
func (t *TimerUnit) expireB(int) {
	t.sched.ArmTimer(sched.TimerAudioB, t.PeriodB(), 0, t.expireB)
	if t.control&ctrlEnableB != 0 {
		t.status |= statusB
		t.updateIRQ()
	}
}

func (t *TimerUnit) updateIRQ() {
	t.irq.set(irqTimer, t.status != 0)
}

// reset clears the registers. The timer slots are left to the scheduler.
func (t *TimerUnit) reset() {
	t.addr = 0
	t.na = 0
	t.nb = 0
	t.control = 0
	t.status = 0
}

// rebind reattaches the timer slot callbacks after a state restore.
func (t *TimerUnit) rebind() {
	t.sched.RebindRole(sched.RoleAudioTimerA, t.expireA)
	t.sched.RebindRole(sched.RoleAudioTimerB, t.expireB)
}
