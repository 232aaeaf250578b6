package emu

import "github.com/user-none/go-chip-m68k"

// Screen dimensions. The board has a single fixed display mode.
const (
	ScreenWidth         = 320
	ScreenHeight        = 224
	DefaultScreenHeight = ScreenHeight
	MaxScreenHeight     = ScreenHeight

	framebufferSize = ScreenWidth * ScreenHeight
	paletteEntries  = 256
	paletteSize     = paletteEntries * 2
)

// Video holds the palette and the indexed framebuffer written by the 68000
// and converts them to RGBA on each displayed frame.
type Video struct {
	palette [paletteSize]byte     // 256 big-endian RGB555 words
	vram    [framebufferSize]byte // One palette index per pixel
	rgba    []byte                // Last rendered frame
}

// NewVideo creates a Video with a black frame.
func NewVideo() *Video {
	v := &Video{rgba: make([]byte, framebufferSize*4)}
	v.Render()
	return v
}

func (v *Video) readPalette(s m68k.Size, offset uint32) uint32 {
	return readBE(v.palette[:], offset, s)
}

func (v *Video) writePalette(s m68k.Size, offset uint32, value uint32) {
	writeBE(v.palette[:], offset, s, value)
}

// Color returns palette entry i as RGB555.
func (v *Video) Color(i uint8) uint16 {
	return uint16(v.palette[int(i)*2])<<8 | uint16(v.palette[int(i)*2+1])
}

// Render converts the indexed framebuffer to RGBA.
func (v *Video) Render() {
	var lut [paletteEntries][3]byte
	for i := range lut {
		c := v.Color(uint8(i))
		lut[i] = [3]byte{expand5(c >> 10), expand5(c >> 5), expand5(c)}
	}

	for i, idx := range v.vram {
		p := lut[idx]
		o := i * 4
		v.rgba[o] = p[0]
		v.rgba[o+1] = p[1]
		v.rgba[o+2] = p[2]
		v.rgba[o+3] = 0xFF
	}
}

// GetFramebuffer returns the last rendered frame as RGBA.
func (v *Video) GetFramebuffer() []byte {
	return v.rgba
}

// GetStride returns the bytes per framebuffer row.
func (v *Video) GetStride() int {
	return ScreenWidth * 4
}

// reset clears the palette and framebuffer.
func (v *Video) reset() {
	v.palette = [paletteSize]byte{}
	v.vram = [framebufferSize]byte{}
	v.Render()
}

// expand5 scales the low 5 bits of c to 8 bits.
func expand5(c uint16) byte {
	x := byte(c & 0x1F)
	return x<<3 | x>>2
}
