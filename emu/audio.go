package emu

import (
	"math"

	"github.com/user-none/emncd/sched"
	"github.com/user-none/go-chip-sn76489"
)

const (
	sampleRate    = 48000
	psgBufferSize = 1024
	psgGain       = 1898.0
	lpfCutoffHz   = 2840.0

	usPerSecond = 1000000
)

// lpfAlpha is the smoothing factor for the first-order RC low-pass filter.
// Derived from: alpha = dt / (RC + dt) where RC = 1/(2*pi*fc).
var lpfAlpha = 1.0 / (float64(sampleRate)/(2*math.Pi*lpfCutoffHz) + 1)

// psgStream keeps the PSG in step with the Z80. Before each register
// write the chip is run for the microseconds that elapsed since the last
// write, so a tone change lands at the sample it was made on rather than
// at the end of the frame.
type psgStream struct {
	chip        *sn76489.SN76489
	sched       *sched.Scheduler
	cyclesPerUs int
	syncedUs    int    // Scheduler time the chip has been run up to
	syncedSec   uint64 // Scheduler second syncedUs belongs to
}

func newPSGStream(t RegionTiming) *psgStream {
	chip := sn76489.New(t.Z80ClockHz(), sampleRate, psgBufferSize, sn76489.Sega)
	chip.SetGain(psgGain)
	return &psgStream{chip: chip, cyclesPerUs: t.Z80CyclesPerUs}
}

// write catches the chip up and then applies a register write.
func (p *psgStream) write(val uint8) {
	p.catchUp()
	p.chip.Write(val)
}

// catchUp runs the chip up to the scheduler's current time. A raster
// frame dispatches slightly more than it commits, so the target is held
// to the end of the committed frame; writes past it land on its last
// sample.
func (p *psgStream) catchUp() {
	sec := p.sched.Seconds()
	now := p.sched.AbsoluteNow()
	if end := p.sched.SubSecond() + p.sched.Config().FrameDurationUs; now > end {
		now = end
	}

	d := now - p.syncedUs + int(sec-p.syncedSec)*usPerSecond
	if d > 0 {
		p.chip.Run(d * p.cyclesPerUs)
	}
	p.syncedUs = now
	p.syncedSec = sec
}

// resync marks the chip as up to date with the start of the next frame
// without generating samples.
func (p *psgStream) resync() {
	p.syncedUs = p.sched.SubSecond()
	p.syncedSec = p.sched.Seconds()
}

// mixAudio collects the PSG output buffer into the emulator's stereo
// audio buffer. The PSG is mono, so each sample is duplicated to both
// channels.
func (e *Emulator) mixAudio() {
	psgBuf, psgCount := e.psg.chip.GetBuffer()

	for i := 0; i < psgCount; i++ {
		s := int16(clampInt32(int32(psgBuf[i]), -32768, 32767))
		e.audioBuffer = append(e.audioBuffer, s, s)
	}

	e.applyLowPass()
}

// applyLowPass applies a first-order RC low-pass filter to the audio
// buffer (fc ~= 2840 Hz, 20 dB/decade rolloff). Applied per stereo
// channel with state persisting across frames.
func (e *Emulator) applyLowPass() {
	for i := 0; i < len(e.audioBuffer); i += 2 {
		inL := float64(e.audioBuffer[i])
		inR := float64(e.audioBuffer[i+1])
		e.filterPrevL = lpfAlpha*inL + (1-lpfAlpha)*e.filterPrevL
		e.filterPrevR = lpfAlpha*inR + (1-lpfAlpha)*e.filterPrevR
		e.audioBuffer[i] = int16(math.Round(e.filterPrevL))
		e.audioBuffer[i+1] = int16(math.Round(e.filterPrevR))
	}
}

// GetAudioSamples returns accumulated audio samples as 16-bit stereo PCM.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
