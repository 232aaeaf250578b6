package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/emncd/adapter"
	"github.com/user-none/emncd/emu"
)

func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadY, BitID: emu.ButtonA},
		{RetroID: libretro.JoypadB, BitID: emu.ButtonB},
		{RetroID: libretro.JoypadA, BitID: emu.ButtonC},
		{RetroID: libretro.JoypadX, BitID: emu.ButtonD},
		{RetroID: libretro.JoypadStart, BitID: emu.ButtonStart},
		{RetroID: libretro.JoypadSelect, BitID: emu.ButtonSelect},
	})
}

func main() {}
