package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	emubridge "github.com/user-none/emncd/bridge/ebiten"
	"github.com/user-none/emncd/cli"
	"github.com/user-none/emncd/emu"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (required)")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	raster := flag.Bool("raster", false, "run frames scanline by scanline")
	frameSkip := flag.Int("frameskip", 0, "frames to skip out of every 12 (0-11)")
	wavPath := flag.String("wav", "", "record audio to a WAV file")
	twoPlayer := flag.Bool("2p", true, "connect a player 2 controller")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("ROM path is required. Usage: emncd -rom <path>")
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}
	if err := emu.ValidateSystemType(romData); err != nil {
		log.Printf("Warning: %v", err)
	} else if err := emu.ValidateChecksum(romData); err != nil {
		log.Printf("Warning: %v", err)
	}

	// Determine region
	var region emu.Region
	switch strings.ToLower(*regionFlag) {
	case "auto":
		region = emu.DetectRegion(romData)
	case "ntsc":
		region = emu.RegionNTSC
	case "pal":
		region = emu.RegionPAL
	default:
		log.Fatalf("Invalid region: %s (use auto, ntsc, or pal)", *regionFlag)
	}

	e, err := emubridge.NewEmulator(romData, region)
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}

	e.SetRasterDriver(*raster)
	e.SetFrameSkip(*frameSkip)
	e.SetP2Connected(*twoPlayer)

	// Load SRAM save file if it exists
	srmPath := strings.TrimSuffix(*romPath, filepath.Ext(*romPath)) + ".srm"
	if e.HasSRAM() {
		if data, err := os.ReadFile(srmPath); err == nil {
			e.SetSRAM(data)
		}
	}

	ebiten.SetWindowSize(emu.ScreenWidth*2, emu.DefaultScreenHeight*2)
	ebiten.SetWindowTitle(emu.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(348, 348, -1, -1)
	ebiten.SetTPS(60)

	runner := cli.NewRunner(e, *wavPath)
	defer runner.Close()
	defer e.Close()

	// Save SRAM on exit
	defer func() {
		if e.HasSRAM() {
			if data := e.GetSRAM(); data != nil {
				if err := os.WriteFile(srmPath, data, 0644); err != nil {
					log.Printf("Failed to save SRAM: %v", err)
				}
			}
		}
	}()

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
