package emu

import (
	"encoding/binary"
	"errors"
)

const (
	ioSerializeVersion = 1
	// IOSerializeSize is the total bytes needed for IO serialization.
	// version(1) + InputP1.Connected(1) + InputP1.buttons(4) +
	// InputP2.Connected(1) + InputP2.buttons(4)
	IOSerializeSize = 11
)

// Serialize writes IO state to buf. buf must be at least IOSerializeSize bytes.
func (io *IO) Serialize(buf []byte) error {
	if len(buf) < IOSerializeSize {
		return errors.New("IO serialize buffer too small")
	}

	offset := 0

	buf[offset] = ioSerializeVersion
	offset++

	for _, inp := range []*Input{&io.InputP1, &io.InputP2} {
		buf[offset] = boolByte(inp.Connected)
		offset++
		binary.LittleEndian.PutUint32(buf[offset:], inp.buttons)
		offset += 4
	}

	return nil
}

// Deserialize reads IO state from buf. buf must be at least IOSerializeSize bytes.
func (io *IO) Deserialize(buf []byte) error {
	if len(buf) < IOSerializeSize {
		return errors.New("IO deserialize buffer too small")
	}

	offset := 0

	version := buf[offset]
	offset++
	if version > ioSerializeVersion {
		return errors.New("unsupported IO state version")
	}

	for _, inp := range []*Input{&io.InputP1, &io.InputP2} {
		inp.Connected = buf[offset] != 0
		offset++
		inp.buttons = binary.LittleEndian.Uint32(buf[offset:])
		offset += 4
	}

	return nil
}
