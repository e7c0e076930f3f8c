package ppu

const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Frame holds one shade (0 lightest .. 3 darkest) per pixel, row major.
type Frame [ScreenWidth * ScreenHeight]byte

// Palette maps the four shades to RGB.
type Palette [4][3]byte

var (
	// GrayPalette is a neutral four-level ramp.
	GrayPalette = Palette{{0xFF, 0xFF, 0xFF}, {0xAA, 0xAA, 0xAA}, {0x55, 0x55, 0x55}, {0x00, 0x00, 0x00}}
	// GreenPalette approximates the original DMG screen tint.
	GreenPalette = Palette{{0x9B, 0xBC, 0x0F}, {0x8B, 0xAC, 0x0F}, {0x30, 0x62, 0x30}, {0x0F, 0x38, 0x0F}}
)

// At returns the shade at (x, y).
func (f *Frame) At(x, y int) byte { return f[y*ScreenWidth+x] }

// RGBA writes the frame as 8-bit RGBA into dst, which must hold
// ScreenWidth*ScreenHeight*4 bytes, and returns it. A nil dst is allocated.
func (f *Frame) RGBA(dst []byte, pal Palette) []byte {
	if len(dst) < len(f)*4 {
		dst = make([]byte, len(f)*4)
	}
	for i, shade := range f {
		c := pal[shade&3]
		o := i * 4
		dst[o], dst[o+1], dst[o+2], dst[o+3] = c[0], c[1], c[2], 0xFF
	}
	return dst
}
