package ppu

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

const (
	DotsPerLine   = 456
	LinesPerFrame = 154
	VisibleLines  = 144
	DotsPerFrame  = DotsPerLine * LinesPerFrame

	oamScanDots  = 80
	startupDots  = 6
	windowMaxWX  = 166
	vblankIFBit  = 0
	statIFBit    = 1
	statEnableHB = 1 << 3
	statEnableVB = 1 << 4
	statEnableOA = 1 << 5
	statEnableLY = 1 << 6
)

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT).
type InterruptRequester func(bit int)

// Mode is the value reported in STAT bits 0-1.
type Mode byte

const (
	HBlank        Mode = 0
	VBlank        Mode = 1
	OAMScan       Mode = 2
	PixelTransfer Mode = 3
)

func (m Mode) String() string {
	switch m {
	case HBlank:
		return "HBlank"
	case VBlank:
		return "VBlank"
	case OAMScan:
		return "OAMScan"
	case PixelTransfer:
		return "PixelTransfer"
	}
	return fmt.Sprintf("Mode(%d)", byte(m))
}

// State is the externally visible position of the PPU. Lines 144-153 are
// BetweenFrames; otherwise the PPU is rendering Line in Mode.
type State struct {
	BetweenFrames bool
	Line          int
	Mode          Mode
	Dot           int // dot within the line, 0..455
}

// LineTiming reports how the last completed visible line split its dots.
type LineTiming struct {
	Line   int
	Mode3  int
	HBlank int
}

// transfer is the mode 3 working state of one line.
type transfer struct {
	Startup int
	X       int
	Discard int
	Stall   int
	Pending int // sprite slot being fetched during a stall
	Fetch   fetcher
	BG      fifo
	OBJ     [8]objPixel
	OBJLen  int
	Window  bool
}

type state struct {
	VRAM [0x2000]byte
	OAM  [0xA0]byte

	LCDC, STAT, SCY, SCX, LY, LYC byte
	BGP, OBP0, OBP1, WY, WX       byte

	Mode     Mode
	LineDot  int
	StatLine bool
	OffDots  int

	WinLine     int
	WYTriggered bool
	WindowDrawn bool

	Sprites  [maxSpritesPerLine]sprite
	NSprites int
	T        transfer
	Last     LineTiming

	Back  Frame
	Front Frame
}

// PPU models VRAM/OAM, the LCD registers and the per-dot rendering pipeline.
type PPU struct {
	s   state
	req InterruptRequester
}

func New(req InterruptRequester) *PPU {
	p := &PPU{req: req}
	p.s.Mode = HBlank
	return p
}

func (p *PPU) lcdOn() bool { return p.s.LCDC&0x80 != 0 }

func (p *PPU) request(bit int) {
	if p.req != nil {
		p.req(bit)
	}
}

// State returns the current line, mode and dot.
func (p *PPU) State() State {
	return State{
		BetweenFrames: p.lcdOn() && p.s.LY >= VisibleLines,
		Line:          int(p.s.LY),
		Mode:          p.s.Mode,
		Dot:           p.s.LineDot,
	}
}

func (p *PPU) Mode() Mode { return p.s.Mode }
func (p *PPU) LY() byte   { return p.s.LY }

// LastLineTiming returns the mode 3 and HBlank lengths of the most recently
// finished visible line.
func (p *PPU) LastLineTiming() LineTiming { return p.s.Last }

// FrameBuffer returns the last completed frame. It is replaced in place at
// every frame boundary.
func (p *PPU) FrameBuffer() *Frame { return &p.s.Front }

// Tick advances the PPU by the given number of dots and reports whether a
// frame was completed.
func (p *PPU) Tick(dots int) bool {
	frame := false
	for i := 0; i < dots; i++ {
		if p.dot() {
			frame = true
		}
	}
	return frame
}

func (p *PPU) dot() bool {
	if !p.lcdOn() {
		p.s.OffDots++
		if p.s.OffDots >= DotsPerFrame {
			p.s.OffDots = 0
			return true
		}
		return false
	}
	frame := false
	switch p.s.Mode {
	case OAMScan:
		p.s.LineDot++
		if p.s.LineDot == oamScanDots {
			p.scanOAM()
			p.startTransfer()
		}
	case PixelTransfer:
		p.transferDot()
		p.s.LineDot++
		if p.s.T.X >= ScreenWidth {
			p.s.Last = LineTiming{Line: int(p.s.LY), Mode3: p.s.LineDot - oamScanDots, HBlank: DotsPerLine - p.s.LineDot}
			p.s.Mode = HBlank
		}
	case HBlank:
		p.s.LineDot++
		if p.s.LineDot == DotsPerLine {
			p.endLine()
		}
	case VBlank:
		p.s.LineDot++
		if p.s.LineDot == DotsPerLine {
			frame = p.endLine()
		}
	}
	p.updateStat()
	return frame
}

// endLine moves to the next line and reports a frame at the 153 -> 0 wrap.
func (p *PPU) endLine() bool {
	if p.s.WindowDrawn {
		p.s.WinLine++
		p.s.WindowDrawn = false
	}
	p.s.LineDot = 0
	p.s.LY++
	switch {
	case p.s.LY == VisibleLines:
		p.s.Mode = VBlank
		p.request(vblankIFBit)
		return false
	case p.s.LY >= LinesPerFrame:
		p.s.LY = 0
		p.s.Front = p.s.Back
		p.s.WinLine = 0
		p.s.WYTriggered = false
		p.beginLine()
		return true
	case p.s.LY > VisibleLines:
		return false
	}
	p.beginLine()
	return false
}

func (p *PPU) beginLine() {
	p.s.Mode = OAMScan
	if p.s.LCDC&0x20 != 0 && p.s.LY == p.s.WY {
		p.s.WYTriggered = true
	}
}

// statCondition is the OR of every enabled STAT source.
func (p *PPU) statCondition(enables byte) bool {
	if !p.lcdOn() {
		return false
	}
	switch p.s.Mode {
	case HBlank:
		if enables&statEnableHB != 0 {
			return true
		}
	case VBlank:
		if enables&statEnableVB != 0 {
			return true
		}
		// Line 144 also raises the OAM source as VBlank begins.
		if enables&statEnableOA != 0 && p.s.LY == VisibleLines && p.s.LineDot == 0 {
			return true
		}
	case OAMScan:
		if enables&statEnableOA != 0 {
			return true
		}
	}
	return enables&statEnableLY != 0 && p.s.LY == p.s.LYC
}

// updateStat requests the STAT interrupt on a rising edge of the combined
// condition only.
func (p *PPU) updateStat() {
	cond := p.statCondition(p.s.STAT)
	if cond && !p.s.StatLine {
		p.request(statIFBit)
	}
	p.s.StatLine = cond
}

func (p *PPU) statRead() byte {
	v := 0x80 | p.s.STAT&0x78
	if p.lcdOn() {
		if p.s.LY == p.s.LYC {
			v |= 0x04
		}
		v |= byte(p.s.Mode)
	}
	return v
}

func (p *PPU) vramLocked() bool { return p.lcdOn() && p.s.Mode == PixelTransfer }
func (p *PPU) oamLocked() bool {
	return p.lcdOn() && (p.s.Mode == OAMScan || p.s.Mode == PixelTransfer)
}

// OAMLocked reports whether the CPU currently sees OAM as 0xFF.
func (p *PPU) OAMLocked() bool { return p.oamLocked() }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.vramLocked() {
			return 0xFF
		}
		return p.s.VRAM[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if p.oamLocked() {
			return 0xFF
		}
		return p.s.OAM[addr-0xFE00]
	case addr == 0xFF40:
		return p.s.LCDC
	case addr == 0xFF41:
		return p.statRead()
	case addr == 0xFF42:
		return p.s.SCY
	case addr == 0xFF43:
		return p.s.SCX
	case addr == 0xFF44:
		return p.s.LY
	case addr == 0xFF45:
		return p.s.LYC
	case addr == 0xFF47:
		return p.s.BGP
	case addr == 0xFF48:
		return p.s.OBP0
	case addr == 0xFF49:
		return p.s.OBP1
	case addr == 0xFF4A:
		return p.s.WY
	case addr == 0xFF4B:
		return p.s.WX
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if !p.vramLocked() {
			p.s.VRAM[addr-0x8000] = value
		}
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if !p.oamLocked() {
			p.s.OAM[addr-0xFE00] = value
		}
	case addr == 0xFF40:
		p.writeLCDC(value)
	case addr == 0xFF41:
		if p.lcdOn() {
			// DMG writes briefly see every source enabled.
			if p.statCondition(0x78) && !p.s.StatLine {
				p.request(statIFBit)
			}
		}
		p.s.STAT = value & 0x78
		p.s.StatLine = p.statCondition(p.s.STAT)
	case addr == 0xFF42:
		p.s.SCY = value
	case addr == 0xFF43:
		p.s.SCX = value
	case addr == 0xFF44:
		// read-only
	case addr == 0xFF45:
		p.s.LYC = value
		p.updateStat()
	case addr == 0xFF47:
		p.s.BGP = value
	case addr == 0xFF48:
		p.s.OBP0 = value
	case addr == 0xFF49:
		p.s.OBP1 = value
	case addr == 0xFF4A:
		p.s.WY = value
	case addr == 0xFF4B:
		p.s.WX = value
	}
}

func (p *PPU) writeLCDC(value byte) {
	was := p.lcdOn()
	p.s.LCDC = value
	switch {
	case was && !p.lcdOn():
		p.s.LY = 0
		p.s.LineDot = 0
		p.s.Mode = HBlank
		p.s.OffDots = 0
		p.s.StatLine = false
		p.s.Front = Frame{}
		p.s.Back = Frame{}
	case !was && p.lcdOn():
		p.s.LY = 0
		p.s.LineDot = 0
		p.s.WinLine = 0
		p.s.WindowDrawn = false
		p.s.WYTriggered = false
		p.beginLine()
		p.updateStat()
	}
}

// WriteOAM stores a byte regardless of CPU locks; used by OAM DMA.
func (p *PPU) WriteOAM(i int, v byte) { p.s.OAM[i%len(p.s.OAM)] = v }

// RawVRAM returns VRAM bytes without CPU access restrictions; for debuggers.
func (p *PPU) RawVRAM(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return p.s.VRAM[addr-0x8000]
	}
	return 0xFF
}

// RawOAM returns OAM bytes without CPU access restrictions; for debuggers.
func (p *PPU) RawOAM(addr uint16) byte {
	if addr >= 0xFE00 && addr <= 0xFE9F {
		return p.s.OAM[addr-0xFE00]
	}
	return 0xFF
}

func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(p.s)
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) error {
	var s state
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	p.s = s
	return nil
}
