package sched

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

const (
	stateVersion    = 1
	stateMagic      = "SCHD"
	stateHeaderSize = 10 // magic(4) + version(2) + dataCRC(4)

	// timerStateSize is deadline(4) + enabled(1) + param(4) + role(1).
	timerStateSize = 10

	// StateSize is the length of a serialized scheduler state:
	// header + seconds(8) + subSecond(4) + suspended(4 per CPU) + timers.
	StateSize = stateHeaderSize + 8 + 4 + 4*int(NumCPUs) + timerStateSize*MaxTimers
)

// SerializeState captures the clock, CPU suspension and timer schedule.
// Callbacks are not captured.
func (s *Scheduler) SerializeState() []byte {
	data := make([]byte, StateSize)
	s.serialize(data)
	return data
}

// SerializeTo writes the state into buf, which must hold StateSize bytes.
func (s *Scheduler) SerializeTo(buf []byte) error {
	if len(buf) < StateSize {
		return errors.New("scheduler state buffer too small")
	}
	s.serialize(buf)
	return nil
}

func (s *Scheduler) serialize(data []byte) {
	copy(data[0:4], stateMagic)
	binary.LittleEndian.PutUint16(data[4:6], stateVersion)

	offset := stateHeaderSize

	binary.LittleEndian.PutUint64(data[offset:], s.clock.seconds)
	offset += 8
	binary.LittleEndian.PutUint32(data[offset:], uint32(int32(s.clock.subSecond)))
	offset += 4

	for i := range s.cpus {
		binary.LittleEndian.PutUint32(data[offset:], uint32(s.cpus[i].suspended))
		offset += 4
	}

	for i := range s.timers {
		t := &s.timers[i]
		binary.LittleEndian.PutUint32(data[offset:], uint32(int32(t.deadline)))
		offset += 4
		data[offset] = boolByte(t.enabled)
		offset++
		binary.LittleEndian.PutUint32(data[offset:], uint32(int32(t.param)))
		offset += 4
		data[offset] = byte(t.role)
		offset++
	}

	binary.LittleEndian.PutUint32(data[6:10], crc32.ChecksumIEEE(data[stateHeaderSize:StateSize]))
}

// DeserializeState restores state written by SerializeState. Any frame in
// flight is abandoned. The spin slot is rebound internally; every other
// slot's callback is cleared and must be rebound with RebindRole or Rebind
// before the next frame runs.
func (s *Scheduler) DeserializeState(data []byte) error {
	if err := VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize

	// Validate roles before touching live state.
	timerBase := offset + 8 + 4 + 4*int(NumCPUs)
	for i := 0; i < MaxTimers; i++ {
		role := Role(data[timerBase+i*timerStateSize+9])
		if role != roleOf(Handle(i)) {
			return errors.New("scheduler state timer roles do not match")
		}
	}

	s.clock.reset()
	s.clock.seconds = binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	s.clock.subSecond = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4

	for i := range s.cpus {
		s.cpus[i].reset()
		s.cpus[i].suspended = SuspendReason(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
	}

	for i := range s.timers {
		t := &s.timers[i]
		t.deadline = int(int32(binary.LittleEndian.Uint32(data[offset:])))
		offset += 4
		t.enabled = data[offset] != 0
		offset++
		t.param = int(int32(binary.LittleEndian.Uint32(data[offset:])))
		offset += 4
		t.role = Role(data[offset])
		offset++
		t.callback = nil
	}

	s.active = nil
	s.left = 0
	s.slice = 0
	s.scanline = 0

	s.RebindRole(RoleSpinSync, s.spinTrigger)
	return nil
}

// VerifyState checks a serialized scheduler state without loading it.
func VerifyState(data []byte) error {
	if len(data) < StateSize {
		return errors.New("scheduler state too short")
	}
	if string(data[0:4]) != stateMagic {
		return errors.New("invalid scheduler state magic")
	}
	if binary.LittleEndian.Uint16(data[4:6]) > stateVersion {
		return errors.New("unsupported scheduler state version")
	}
	if binary.LittleEndian.Uint32(data[6:10]) != crc32.ChecksumIEEE(data[stateHeaderSize:StateSize]) {
		return errors.New("scheduler state data is corrupted")
	}
	if s := int(int32(binary.LittleEndian.Uint32(data[stateHeaderSize+8:]))); s < 0 || s >= usPerSecond {
		return errors.New("scheduler state sub-second counter out of range")
	}
	return nil
}

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
