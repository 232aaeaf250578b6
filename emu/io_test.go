package emu

import (
	"testing"

	emucore "github.com/user-none/eblitui/api"
)

func TestIO_PortsIdleHigh(t *testing.T) {
	io := NewIO()
	for _, p := range []portID{portP1, portP2, portSystem} {
		if got := io.ReadPort(p); got != 0xFF {
			t.Errorf("port %d idle: expected 0xFF, got 0x%02X", p, got)
		}
	}
}

func TestIO_PlayerDirections(t *testing.T) {
	io := NewIO()
	io.InputP1.Set(1<<uint(emucore.ButtonUp) | 1<<uint(emucore.ButtonRight))

	// Up is bit 0, Right is bit 3.
	if got := io.ReadPort(portP1); got != 0xF6 {
		t.Errorf("Up+Right: expected 0xF6, got 0x%02X", got)
	}
}

func TestIO_PlayerFaceButtons(t *testing.T) {
	io := NewIO()
	io.InputP2.Set(1<<ButtonA | 1<<ButtonB | 1<<ButtonC | 1<<ButtonD)

	if got := io.ReadPort(portP2); got != 0x0F {
		t.Errorf("A+B+C+D: expected 0x0F, got 0x%02X", got)
	}
	if got := io.ReadPort(portP1); got != 0xFF {
		t.Errorf("P1 affected by P2 input: got 0x%02X", got)
	}
}

func TestIO_SystemPort(t *testing.T) {
	io := NewIO()
	io.InputP1.Set(1 << ButtonStart)
	io.InputP2.Set(1 << ButtonSelect)

	// P1 Start is bit 0, P2 Select is bit 3.
	if got := io.ReadPort(portSystem); got != 0xF6 {
		t.Errorf("P1 Start + P2 Select: expected 0xF6, got 0x%02X", got)
	}
	// Start and Select do not appear on the player ports.
	if got := io.ReadPort(portP1); got != 0xFF {
		t.Errorf("P1 port with Start held: expected 0xFF, got 0x%02X", got)
	}
}

func TestIO_Port2_NoController(t *testing.T) {
	io := NewIO()
	io.InputP2.Set(1<<ButtonA | 1<<ButtonStart)
	io.InputP2.Connected = false

	if got := io.ReadPort(portP2); got != 0xFF {
		t.Errorf("disconnected P2: expected 0xFF, got 0x%02X", got)
	}
	if got := io.ReadPort(portSystem); got != 0xFF {
		t.Errorf("disconnected P2 Start: expected 0xFF, got 0x%02X", got)
	}
}

func TestIO_SerializeRoundTrip(t *testing.T) {
	io := NewIO()
	io.InputP1.Set(1 << ButtonC)
	io.InputP2.Connected = false

	buf := make([]byte, IOSerializeSize)
	if err := io.Serialize(buf); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	restored := NewIO()
	if err := restored.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if restored.ReadPort(portP1) != io.ReadPort(portP1) {
		t.Errorf("P1: expected 0x%02X, got 0x%02X", io.ReadPort(portP1), restored.ReadPort(portP1))
	}
	if restored.InputP2.Connected {
		t.Error("P2 connection state not restored")
	}
}

func TestIO_SerializeShortBuffer(t *testing.T) {
	io := NewIO()
	if err := io.Serialize(make([]byte, IOSerializeSize-1)); err == nil {
		t.Error("expected error for short buffer")
	}
	if err := io.Deserialize(make([]byte, IOSerializeSize-1)); err == nil {
		t.Error("expected error for short buffer")
	}
}
