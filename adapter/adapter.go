package adapter

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emncd/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the board.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "emncd",
		ConsoleName:     "EMNCD Board",
		Extensions:      []string{".bin", ".rom"},
		ScreenWidth:     emu.ScreenWidth,
		MaxScreenHeight: emu.MaxScreenHeight,
		AspectRatio:     320.0 / 224.0,
		SampleRate:      48000,
		Buttons: []emucore.Button{
			{Name: "A", ID: emu.ButtonA, DefaultKey: "J", DefaultPad: "Y"},
			{Name: "B", ID: emu.ButtonB, DefaultKey: "K", DefaultPad: "B"},
			{Name: "C", ID: emu.ButtonC, DefaultKey: "L", DefaultPad: "A"},
			{Name: "D", ID: emu.ButtonD, DefaultKey: "U", DefaultPad: "X"},
			{Name: "Start", ID: emu.ButtonStart, DefaultKey: "Enter", DefaultPad: "Start"},
			{Name: "Select", ID: emu.ButtonSelect, DefaultKey: "Backspace", DefaultPad: "L1"},
		},
		Players: 2,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "raster_driver",
				Label:       "Scanline Timing",
				Description: "Run frames line by line for raster effects",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
			},
			{
				Key:         "frameskip",
				Label:       "Frame Skip",
				Description: "Draw every other frame",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
			},
		},
		DataDirName:   "emncd",
		CoreName:      emu.Name,
		CoreVersion:   emu.Version,
		SerializeSize: emu.SerializeSize(),
	}
}

// CreateEmulator creates a new emulator instance with the given ROM and region.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := emu.NewEmulator(rom, region)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DetectRegion auto-detects the region from ROM header data.
// The bool return is false since emncd uses header-based detection,
// not a ROM database lookup.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emu.DetectRegion(rom), false
}
