package ui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWAVRecorder_WritesReadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	rec, err := NewWAVRecorder(path, audioSampleRate)
	if err != nil {
		t.Fatalf("NewWAVRecorder failed: %v", err)
	}
	if err := rec.WriteSamples([]int16{100, -100, 200, -200}); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}
	if err := rec.WriteSamples([]int16{300, -300}); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}
	if rec.Frames() != 3 {
		t.Errorf("frames: expected 3, got %d", rec.Frames())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer failed: %v", err)
	}
	if dec.SampleRate != audioSampleRate || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("format: got %dHz %d channels %d bits", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	want := []int{100, -100, 200, -200, 300, -300}
	if len(buf.Data) != len(want) {
		t.Fatalf("samples: expected %d, got %d", len(want), len(buf.Data))
	}
	for i, v := range want {
		if buf.Data[i] != v {
			t.Errorf("sample %d: expected %d, got %d", i, v, buf.Data[i])
		}
	}
}

func TestWAVRecorder_WriteAfterClose(t *testing.T) {
	rec, err := NewWAVRecorder(filepath.Join(t.TempDir(), "out.wav"), audioSampleRate)
	if err != nil {
		t.Fatalf("NewWAVRecorder failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rec.WriteSamples([]int16{1, 2}); err == nil {
		t.Error("expected error writing to a closed recorder")
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
