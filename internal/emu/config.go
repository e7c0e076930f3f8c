package emu

import (
	"io"
	"time"
)

// Config contains settings that affect emulation behavior.
type Config struct {
	SampleRate        int // audio output rate in Hz; 0 selects the APU default
	AudioBufferFrames int // stereo frames kept before the oldest are dropped; 0 selects the default
	// SkipBoot ignores a supplied boot ROM and starts at 0x0100 in the
	// post-boot state.
	SkipBoot bool
	// Trace receives one line per executed instruction when set.
	Trace io.Writer
	// Palette used by RGBA. The zero value picks a preset from the header.
	Palette *PaletteName
	// EmulatedRTC drives cartridge clocks from emulated cycles instead of
	// the host clock, so recordings and save states replay identically.
	EmulatedRTC bool
	// Clock overrides the host clock for cartridge RTCs. Ignored when
	// EmulatedRTC is set.
	Clock func() time.Time
}

// DefaultConfig matches what the front ends use.
func DefaultConfig() Config {
	return Config{
		SampleRate:        48000,
		AudioBufferFrames: 48000 / 5,
	}
}
