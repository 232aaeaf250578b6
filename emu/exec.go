package emu

import (
	"github.com/user-none/emncd/sched"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

// m68kExecutor runs the 68000 for a scheduler slice.
//
// Instructions are stepped one at a time: a bus access that arms a timer
// zeroes the slice's remaining cycles, and the loop must see that before
// the next instruction starts.
type m68kExecutor struct {
	cpu *m68k.CPU
}

func (x m68kExecutor) Execute(ctx *sched.CPU, cycles int) {
	for ctx.Remaining() > 0 {
		// A budget of one cycle runs exactly one instruction.
		n := x.cpu.StepCycles(1)
		if n == 0 {
			// Halted (double bus fault); burn the slice.
			ctx.Consume(ctx.Remaining())
			return
		}
		ctx.Consume(n)
	}
}

// z80Executor runs the Z80 for a scheduler slice. A halted Z80 keeps
// burning cycles until an interrupt wakes it.
type z80Executor struct {
	cpu *z80.CPU
}

func (x z80Executor) Execute(ctx *sched.CPU, cycles int) {
	for ctx.Remaining() > 0 {
		ctx.Consume(x.cpu.Step())
	}
}
