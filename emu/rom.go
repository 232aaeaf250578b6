package emu

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	romVectorSize = 8     // SSP(4) + PC(4)
	romHeaderEnd  = 0x200 // Header occupies $100-$1FF
	systemType    = "EMNCD BOARD"
)

// ValidateROM checks that a program image can be loaded into program RAM.
// The image must at least hold the reset vectors.
func ValidateROM(rom []byte) error {
	if len(rom) < romVectorSize {
		return fmt.Errorf("ROM too short to contain reset vectors (%d bytes)", len(rom))
	}
	if len(rom) > programRAMSize {
		return fmt.Errorf("ROM too large for program RAM (%d > %d bytes)", len(rom), programRAMSize)
	}
	return nil
}

// ValidateSystemType checks that the ROM carries the board system type
// string at offset $100-$10F.
func ValidateSystemType(rom []byte) error {
	if len(rom) < 0x110 {
		return fmt.Errorf("ROM too short to contain system type header (%d bytes)", len(rom))
	}

	sysType := strings.TrimRight(string(rom[0x100:0x110]), " \x00")
	if sysType != systemType {
		return fmt.Errorf("unrecognized system type: %q", sysType)
	}
	return nil
}

// ValidateChecksum verifies the ROM header checksum at offset $18E-$18F.
// The checksum is the 16-bit sum of all big-endian words from $200 to end of ROM.
func ValidateChecksum(rom []byte) error {
	if len(rom) < romHeaderEnd {
		return fmt.Errorf("ROM too short to validate checksum (%d bytes)", len(rom))
	}

	expected := binary.BigEndian.Uint16(rom[0x18E:0x190])

	var computed uint16
	data := rom[romHeaderEnd:]
	for i := 0; i+1 < len(data); i += 2 {
		computed += binary.BigEndian.Uint16(data[i : i+2])
	}
	// Odd trailing byte treated as high byte with low byte = 0
	if len(data)%2 != 0 {
		computed += uint16(data[len(data)-1]) << 8
	}

	if computed != expected {
		return fmt.Errorf("checksum mismatch: header=%04X computed=%04X", expected, computed)
	}
	return nil
}
