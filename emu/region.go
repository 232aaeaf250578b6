package emu

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emncd/sched"
)

// Region is an alias for emucore.Region so internal code compiles unchanged.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionTiming holds timing constants for a specific region.
// Both CPUs are clocked from the same crystal, so their rates are fixed
// integer multiples of one microsecond.
type RegionTiming struct {
	FPS             int // Frames per second
	FrameDurationUs int // Microseconds dispatched per frame
	Scanlines       int // Total scanlines per frame in raster mode
	UsPerScanline   int // Microseconds per scanline
	M68KCyclesPerUs int // Motorola 68000 clock in MHz
	Z80CyclesPerUs  int // Z80 sound CPU clock in MHz
}

// NTSC timing: 68000 12 MHz, Z80 6 MHz, 264 scanlines of 64µs, 60 Hz
var NTSCTiming = RegionTiming{
	FPS:             60,
	FrameDurationUs: 16667,
	Scanlines:       264,
	UsPerScanline:   64,
	M68KCyclesPerUs: 12,
	Z80CyclesPerUs:  6,
}

// PAL timing: 68000 12 MHz, Z80 6 MHz, 312 scanlines of 64µs, 50 Hz
var PALTiming = RegionTiming{
	FPS:             50,
	FrameDurationUs: 20000,
	Scanlines:       312,
	UsPerScanline:   64,
	M68KCyclesPerUs: 12,
	Z80CyclesPerUs:  6,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// SchedConfig converts the region timing into a scheduler configuration.
func (t RegionTiming) SchedConfig() sched.Config {
	return sched.Config{
		FrameDurationUs:        t.FrameDurationUs,
		Scanlines:              t.Scanlines,
		UsPerScanline:          t.UsPerScanline,
		PrimaryCyclesPerUs:     t.M68KCyclesPerUs,
		CoprocessorCyclesPerUs: t.Z80CyclesPerUs,
	}
}

// Z80ClockHz returns the Z80 clock, which also drives the PSG.
func (t RegionTiming) Z80ClockHz() int {
	return t.Z80CyclesPerUs * 1000000
}

// DetectRegion inspects the ROM header region field at offset $1F0-$1FF
// and returns the display timing region. A header listing only 'E'
// selects PAL; anything else, including a missing header, is NTSC.
func DetectRegion(rom []byte) Region {
	if len(rom) < romHeaderEnd {
		return RegionNTSC
	}
	hasE := false
	for _, b := range rom[0x1F0:0x200] {
		switch b {
		case 'J', 'U':
			return RegionNTSC
		case 'E':
			hasE = true
		}
	}
	if hasE {
		return RegionPAL
	}
	return RegionNTSC
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}
