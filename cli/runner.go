// Package cli provides a command-line runner for the emulator.
// It handles input polling and runs the emulator in a window without the full UI.
package cli

import (
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	emucore "github.com/user-none/eblitui/api"
	emubridge "github.com/user-none/emncd/bridge/ebiten"
	"github.com/user-none/emncd/emu"
	"github.com/user-none/emncd/ui"
)

// ADT buffer thresholds in bytes.
const (
	adtMinBuffer = 9600
	adtMaxBuffer = 19200
)

// Runner wraps an emulator for command-line mode.
// The emulator runs on a dedicated goroutine with audio-driven timing.
// The Ebiten thread handles input polling and rendering from the shared framebuffer.
type Runner struct {
	emulator    *emubridge.Emulator
	audioPlayer *ui.AudioPlayer
	recorder    *ui.WAVRecorder

	// ADT goroutine control
	emuControl        *ui.EmuControl
	sharedInput       *ui.SharedInput
	sharedFramebuffer *ui.SharedFramebuffer
	emuDone           chan struct{}
}

// NewRunner creates a new Runner wrapping the given emulator.
// Audio initialization failure is non-fatal; the runner will work without
// sound. When wavPath is set the audio stream is also recorded there.
func NewRunner(e *emubridge.Emulator, wavPath string) *Runner {
	player, err := ui.NewAudioPlayer(1.0)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	}

	r := &Runner{
		emulator:          e,
		audioPlayer:       player,
		emuControl:        ui.NewEmuControl(),
		sharedInput:       &ui.SharedInput{},
		sharedFramebuffer: ui.NewSharedFramebuffer(),
		emuDone:           make(chan struct{}),
	}
	r.emuControl.SetFrameCancel(e.Stop, e.Resume)

	if wavPath != "" {
		rec, err := ui.NewWAVRecorder(wavPath, 48000)
		if err != nil {
			log.Printf("Warning: %v", err)
		} else if player != nil {
			r.recorder = rec
			player.SetSink(rec)
		} else {
			log.Printf("Warning: no audio device, not recording to %s", wavPath)
			rec.Close()
		}
	}

	// Start emulation goroutine
	go r.emulationLoop()

	return r
}

// Close cleans up the runner's resources.
func (r *Runner) Close() {
	// Stop emulation goroutine
	if r.emuControl != nil {
		r.emuControl.Stop()
		<-r.emuDone
	}

	if r.audioPlayer != nil {
		r.audioPlayer.SetSink(nil)
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}

	if r.recorder != nil {
		log.Printf("Recorded %d audio frames", r.recorder.Frames())
		if err := r.recorder.Close(); err != nil {
			log.Printf("Warning: %v", err)
		}
		r.recorder = nil
	}
}

// emulationLoop runs on a dedicated goroutine with ADT.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)

	timing := r.emulator.GetTiming()
	frameTime := time.Duration(float64(time.Second) / float64(timing.FPS))
	lastFrameTime := time.Now()

	for {
		if !r.emuControl.CheckPause() {
			return
		}

		// Read input from shared state
		r.emulator.SetInput(0, r.sharedInput.Read(0))
		r.emulator.SetInput(1, r.sharedInput.Read(1))

		// Run one frame
		r.emulator.RunFrame()

		// Queue audio
		if r.audioPlayer != nil {
			r.audioPlayer.QueueSamples(r.emulator.GetAudioSamples())
		}

		// Update shared framebuffer
		r.sharedFramebuffer.Update(
			r.emulator.GetFramebuffer(),
			r.emulator.GetFramebufferStride(),
			r.emulator.GetActiveHeight(),
		)

		// ADT sleep
		elapsed := time.Since(lastFrameTime)
		sleepTime := frameTime - elapsed

		if r.audioPlayer != nil {
			bufferLevel := r.audioPlayer.GetBufferLevel()
			if bufferLevel < adtMinBuffer {
				sleepTime = time.Duration(float64(sleepTime) * 0.9)
			} else if bufferLevel > adtMaxBuffer {
				sleepTime = time.Duration(float64(sleepTime) * 1.1)
			}
		}

		if sleepTime > time.Millisecond {
			time.Sleep(sleepTime)
		}

		lastFrameTime = time.Now()
	}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if !ebiten.IsFocused() {
		return nil
	}

	r.pollInputToShared()
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	pixels, stride, height := r.sharedFramebuffer.Read()
	if height == 0 {
		return
	}
	r.emulator.DrawCachedFramebuffer(screen, pixels, stride, height)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.emulator.Layout(outsideWidth, outsideHeight)
}

// Keyboard bindings for player 1.
var keyBindings = []struct {
	key ebiten.Key
	bit uint
}{
	{ebiten.KeyW, uint(emucore.ButtonUp)},
	{ebiten.KeyArrowUp, uint(emucore.ButtonUp)},
	{ebiten.KeyS, uint(emucore.ButtonDown)},
	{ebiten.KeyArrowDown, uint(emucore.ButtonDown)},
	{ebiten.KeyA, uint(emucore.ButtonLeft)},
	{ebiten.KeyArrowLeft, uint(emucore.ButtonLeft)},
	{ebiten.KeyD, uint(emucore.ButtonRight)},
	{ebiten.KeyArrowRight, uint(emucore.ButtonRight)},
	{ebiten.KeyJ, emu.ButtonA},
	{ebiten.KeyK, emu.ButtonB},
	{ebiten.KeyL, emu.ButtonC},
	{ebiten.KeyU, emu.ButtonD},
	{ebiten.KeyEnter, emu.ButtonStart},
	{ebiten.KeyBackspace, emu.ButtonSelect},
}

// Standard gamepad bindings.
var padBindings = []struct {
	button ebiten.StandardGamepadButton
	bit    uint
}{
	{ebiten.StandardGamepadButtonLeftTop, uint(emucore.ButtonUp)},
	{ebiten.StandardGamepadButtonLeftBottom, uint(emucore.ButtonDown)},
	{ebiten.StandardGamepadButtonLeftLeft, uint(emucore.ButtonLeft)},
	{ebiten.StandardGamepadButtonLeftRight, uint(emucore.ButtonRight)},
	{ebiten.StandardGamepadButtonRightLeft, emu.ButtonA},
	{ebiten.StandardGamepadButtonRightBottom, emu.ButtonB},
	{ebiten.StandardGamepadButtonRightRight, emu.ButtonC},
	{ebiten.StandardGamepadButtonRightTop, emu.ButtonD},
	{ebiten.StandardGamepadButtonCenterRight, emu.ButtonStart},
	{ebiten.StandardGamepadButtonCenterLeft, emu.ButtonSelect},
}

// pollInputToShared reads keyboard and gamepad input and writes to shared
// state. The keyboard and the first gamepad drive player 1; the second
// gamepad drives player 2.
func (r *Runner) pollInputToShared() {
	var masks [2]uint32

	for _, b := range keyBindings {
		if ebiten.IsKeyPressed(b.key) {
			masks[0] |= 1 << b.bit
		}
	}

	player := 0
	for _, id := range ebiten.AppendGamepadIDs(nil) {
		if player >= len(masks) {
			break
		}
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}

		for _, b := range padBindings {
			if ebiten.IsStandardGamepadButtonPressed(id, b.button) {
				masks[player] |= 1 << b.bit
			}
		}

		// Left analog stick (with deadzone)
		const deadzone = 0.5
		axisX := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
		axisY := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
		if axisX < -deadzone {
			masks[player] |= 1 << uint(emucore.ButtonLeft)
		}
		if axisX > deadzone {
			masks[player] |= 1 << uint(emucore.ButtonRight)
		}
		if axisY < -deadzone {
			masks[player] |= 1 << uint(emucore.ButtonUp)
		}
		if axisY > deadzone {
			masks[player] |= 1 << uint(emucore.ButtonDown)
		}
		player++
	}

	r.sharedInput.Set(0, masks[0])
	r.sharedInput.Set(1, masks[1])
}
