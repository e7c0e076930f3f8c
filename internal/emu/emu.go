package emu

import (
	"errors"
	"fmt"
	"io"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/apu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/joypad"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
)

// Button re-exports the joypad buttons so front ends need only this package.
type Button = joypad.Button

const (
	ButtonRight  = joypad.Right
	ButtonLeft   = joypad.Left
	ButtonUp     = joypad.Up
	ButtonDown   = joypad.Down
	ButtonA      = joypad.A
	ButtonB      = joypad.B
	ButtonSelect = joypad.Select
	ButtonStart  = joypad.Start
)

// MCyclesPerFrame is the length of one full LCD frame: 154 lines of 114
// M-cycles.
const MCyclesPerFrame = 154 * 114

// ErrNoBattery is returned by LoadSaveRAM for cartridges without battery RAM.
var ErrNoBattery = errors.New("cartridge has no battery-backed RAM")

// GameBoy owns the CPU and every memory-mapped device. Calls are synchronous
// and must not overlap.
type GameBoy struct {
	cfg    Config
	header *cart.Header
	bus    *bus.Bus
	cpu    *cpu.CPU

	palette ppu.Palette
	rgba    []byte

	frames uint64

	breakpoints map[uint16]struct{}
	// resumePC suppresses the breakpoint at PC for one StepDebug after it
	// was reported.
	resumePC  uint16
	resumeSet bool

	rec    *Recording
	recAt  uint64
	replay *replayer
}

// Load parses the ROM header, builds the matching cartridge and wires the
// machine. With a boot ROM of at least 256 bytes execution starts at 0x0000;
// otherwise the CPU and I/O registers start in the post-boot state at 0x0100.
func Load(rom, boot []byte, cfg Config) (*GameBoy, error) {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	c, err := cart.New(rom)
	if err != nil {
		return nil, err
	}
	b := bus.New(c, cfg.SampleRate, cfg.AudioBufferFrames)
	core := cpu.New(b)
	if len(boot) >= 0x100 && !cfg.SkipBoot {
		b.SetBootROM(boot)
	} else {
		core.ResetNoBoot()
		b.ApplyPostBoot()
	}

	pal := AutoPalette(h)
	if cfg.Palette != nil {
		pal = *cfg.Palette
	}
	g := &GameBoy{
		cfg:         cfg,
		header:      h,
		bus:         b,
		cpu:         core,
		palette:     pal.Colors(),
		breakpoints: make(map[uint16]struct{}),
	}
	if ck, ok := c.(cart.Clocked); ok {
		switch {
		case cfg.EmulatedRTC:
			ck.SetClock(g.emulatedSeconds)
		case cfg.Clock != nil:
			ck.SetClock(func() int64 { return cfg.Clock().Unix() })
		}
	}
	return g, nil
}

// MCyclesPerSecond is the CPU clock in M-cycles.
const MCyclesPerSecond = 4194304 / 4

func (g *GameBoy) emulatedSeconds() int64 {
	return int64(g.bus.Cycles() / MCyclesPerSecond)
}

// Header returns the parsed cartridge header.
func (g *GameBoy) Header() *cart.Header { return g.header }

// Title is the cartridge title from the header.
func (g *GameBoy) Title() string { return g.header.Title }

// Step runs one instruction or interrupt dispatch and reports whether a
// frame completed during it. The error is non-nil only once the CPU has
// locked up on an undefined opcode.
func (g *GameBoy) Step() (bool, error) {
	g.applyReplay()
	var (
		pc   uint16
		dis  string
		live = g.cfg.Trace != nil && !g.cpu.Halted() && g.cpu.Fault() == nil
	)
	if live {
		pc = g.cpu.PC
		dis, _ = cpu.Disassemble(g.bus.Peek, pc)
	}
	n, frame, err := g.cpu.Step()
	if live {
		g.trace(pc, n, dis)
	}
	if frame {
		g.frames++
	}
	return frame, err
}

func (g *GameBoy) trace(pc uint16, cycles int, dis string) {
	r := g.cpu.Registers()
	ie, iflag := g.bus.Interrupts()
	fmt.Fprintf(g.cfg.Trace, "PC=%04X OP=%02X cyc=%d A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t IF=%02X IE=%02X  %s\n",
		pc, g.bus.Peek(pc), cycles, r.A, r.F, r.B, r.C, r.D, r.E, r.H, r.L, r.SP, r.IME, iflag, ie, dis)
}

// RunFrame steps until a frame completes. With the LCD off no frame is ever
// produced, so it also returns after one frame's worth of M-cycles.
func (g *GameBoy) RunFrame() error {
	start := g.bus.Cycles()
	for {
		frame, err := g.Step()
		if err != nil {
			return err
		}
		if frame || g.bus.Cycles()-start >= MCyclesPerFrame {
			return nil
		}
	}
}

// Frames counts completed frames since load.
func (g *GameBoy) Frames() uint64 { return g.frames }

// Cycles is the number of T-cycles (4 per M-cycle) elapsed since load.
func (g *GameBoy) Cycles() uint64 { return g.bus.Cycles() * 4 }

// FrameBuffer is the most recently completed frame. It stays valid until the
// next frame completes.
func (g *GameBoy) FrameBuffer() *ppu.Frame { return g.bus.PPU().FrameBuffer() }

// RGBA converts the frame buffer with the configured palette. The returned
// slice is reused by the next call.
func (g *GameBoy) RGBA() []byte {
	g.rgba = g.FrameBuffer().RGBA(g.rgba, g.palette)
	return g.rgba
}

// SetPalette changes the palette used by RGBA.
func (g *GameBoy) SetPalette(p PaletteName) { g.palette = p.Colors() }

// DrainAudioSamples returns the stereo samples produced since the last call.
// The buffer is bounded; when it is not drained in time the oldest samples
// are dropped.
func (g *GameBoy) DrainAudioSamples() []apu.StereoSample { return g.bus.APU().DrainSamples() }

// SampleRate is the audio output rate.
func (g *GameBoy) SampleRate() int { return g.bus.APU().SampleRate() }

// DroppedSamples counts samples lost to buffer overflow.
func (g *GameBoy) DroppedSamples() uint64 { return g.bus.APU().Dropped() }

// ParseButton looks a button up by name, case-insensitively.
func ParseButton(s string) (Button, error) { return joypad.ParseButton(s) }

// Press marks a button as held. The change is visible to the next Step.
func (g *GameBoy) Press(b Button) {
	g.record(b, true)
	g.bus.Press(b)
}

func (g *GameBoy) Release(b Button) {
	g.record(b, false)
	g.bus.Release(b)
}

// Pressed returns the mask of held buttons.
func (g *GameBoy) Pressed() byte { return g.bus.Pressed() }

// SetSerialWriter receives every byte shifted out of the serial port.
// Useful for running test ROMs that report via serial.
func (g *GameBoy) SetSerialWriter(w io.Writer) { g.bus.SetSerialWriter(w) }

// HasBattery reports whether the cartridge keeps its RAM across power off.
func (g *GameBoy) HasBattery() bool {
	_, ok := g.bus.Cart().(cart.BatteryBacked)
	return ok && cart.HasBattery(g.header.CartType)
}

// SaveRAM returns a copy of the battery-backed RAM, or nil when the
// cartridge has none. File I/O is left to the caller.
func (g *GameBoy) SaveRAM() []byte {
	if !g.HasBattery() {
		return nil
	}
	return g.bus.Cart().(cart.BatteryBacked).SaveRAM()
}

// LoadSaveRAM restores battery-backed RAM written by SaveRAM.
func (g *GameBoy) LoadSaveRAM(data []byte) error {
	if !g.HasBattery() {
		return ErrNoBattery
	}
	return g.bus.Cart().(cart.BatteryBacked).LoadRAM(data)
}

// Rumble reports the motor state of rumble cartridges.
func (g *GameBoy) Rumble() bool {
	r, ok := g.bus.Cart().(cart.Rumbler)
	return ok && r.Rumble()
}
