package ui

import "github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"

// Config contains window/input/audio related settings.
type Config struct {
	Title         string           // window title
	Scale         int              // integer upscaling factor
	AudioStereo   bool             // if true, output true stereo; if false, fold to mono
	AudioBufferMs int              // player buffer in ms (approx)
	Palette       *emu.PaletteName // nil keeps the header-based choice
	ROMsDir       string           // directory to browse for ROMs
	BootROM       []byte           // passed to emu.Load when switching ROMs
	Emu           emu.Config
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbemu"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.AudioBufferMs <= 0 {
		c.AudioBufferMs = 40
	}
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
	if c.Emu.SampleRate <= 0 {
		c.Emu = emu.DefaultConfig()
	}
}
