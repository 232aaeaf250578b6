package sched

import "fmt"

// CPUID identifies one of the two fixed CPU contexts.
type CPUID int

const (
	Primary     CPUID = iota // 16-bit main CPU
	Coprocessor              // 8-bit audio CPU
	NumCPUs
)

func (id CPUID) String() string {
	switch id {
	case Primary:
		return "primary"
	case Coprocessor:
		return "coprocessor"
	default:
		return fmt.Sprintf("cpu(%d)", int(id))
	}
}

// SuspendReason is a bitmask of reasons a CPU is held off the schedule.
type SuspendReason uint32

const (
	SuspendReset SuspendReason = 1 << iota // external reset line asserted
	SuspendSpin                            // waiting for the other CPU to catch up
)

// Executor runs a CPU core for up to cycles cycles. Implementations consume
// cycles with cpu.Consume and return once cpu.Remaining() is no longer
// positive, or earlier if the core yields.
type Executor interface {
	Execute(cpu *CPU, cycles int)
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(cpu *CPU, cycles int)

// Execute calls f(cpu, cycles).
func (f ExecutorFunc) Execute(cpu *CPU, cycles int) {
	f(cpu, cycles)
}

// CPU is the scheduler's view of one processor: its executor, its live
// cycle counter and its suspension state.
type CPU struct {
	id          CPUID
	exec        Executor
	cyclesPerUs int

	granted   int // cycles handed to the executor for the current slice
	remaining int // cycles left in the current slice
	suspended SuspendReason
}

// ID returns the CPU's role.
func (c *CPU) ID() CPUID {
	return c.id
}

// CyclesPerUs returns the integer clock ratio of the CPU.
func (c *CPU) CyclesPerUs() int {
	return c.cyclesPerUs
}

// Remaining returns the cycles left in the current slice. It may go
// negative when the last instruction overran its budget.
func (c *CPU) Remaining() int {
	return c.remaining
}

// Granted returns the cycles handed out for the current slice, less any
// cycles discarded by preemption.
func (c *CPU) Granted() int {
	return c.granted
}

// Consume charges n executed cycles against the current slice.
func (c *CPU) Consume(n int) {
	c.remaining -= n
}

// Suspended returns the current suspension bitmask.
func (c *CPU) Suspended() SuspendReason {
	return c.suspended
}

// elapsedUs returns the microseconds executed so far in the current slice.
func (c *CPU) elapsedUs() int {
	return (c.granted - c.remaining) / c.cyclesPerUs
}

func (c *CPU) reset() {
	c.granted = 0
	c.remaining = 0
	c.suspended = 0
}
