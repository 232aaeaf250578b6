package emu

import emucore "github.com/user-none/eblitui/api"

// Button bit positions in the emucore button mask beyond the D-pad.
const (
	ButtonA      = 4
	ButtonB      = 5
	ButtonC      = 6
	ButtonStart  = 7
	ButtonD      = 8
	ButtonSelect = 9
)

// portID selects one of the three input ports on the main bus.
type portID int

const (
	portP1     portID = iota // $300000
	portP2                   // $340000
	portSystem               // $380000
)

// Input holds the state of one controller.
type Input struct {
	Connected bool   // true if a controller is plugged in
	buttons   uint32 // emucore button mask, 1 = pressed
}

// Set replaces the controller state with an emucore button mask.
func (inp *Input) Set(buttons uint32) {
	inp.buttons = buttons
}

// pressed reports whether the button at bit is held.
func (inp *Input) pressed(bit uint) bool {
	return inp.Connected && inp.buttons&(1<<bit) != 0
}

// IO is the board input controller. All ports are active low.
type IO struct {
	InputP1 Input
	InputP2 Input
}

// NewIO creates a new input controller with player 1 connected.
func NewIO() *IO {
	return &IO{
		InputP1: Input{Connected: true},
		InputP2: Input{Connected: true},
	}
}

// ReadPort returns the active-low value of an input port.
//
// Player ports: bit 0 Up, 1 Down, 2 Left, 3 Right, 4 A, 5 B, 6 C, 7 D.
// System port: bit 0 P1 Start, 1 P1 Select, 2 P2 Start, 3 P2 Select,
// bits 7-4 unused (high).
func (io *IO) ReadPort(p portID) byte {
	switch p {
	case portP1:
		return playerBits(&io.InputP1)
	case portP2:
		return playerBits(&io.InputP2)
	case portSystem:
		var v byte
		if io.InputP1.pressed(ButtonStart) {
			v |= 0x01
		}
		if io.InputP1.pressed(ButtonSelect) {
			v |= 0x02
		}
		if io.InputP2.pressed(ButtonStart) {
			v |= 0x04
		}
		if io.InputP2.pressed(ButtonSelect) {
			v |= 0x08
		}
		return ^v
	}
	return 0xFF
}

// playerBits packs directions and face buttons into an active-low byte.
func playerBits(inp *Input) byte {
	order := [8]uint{
		uint(emucore.ButtonUp), uint(emucore.ButtonDown), uint(emucore.ButtonLeft), uint(emucore.ButtonRight),
		ButtonA, ButtonB, ButtonC, ButtonD,
	}
	var v byte
	for i, bit := range order {
		if inp.pressed(bit) {
			v |= 1 << uint(i)
		}
	}
	return ^v
}
