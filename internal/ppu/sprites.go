package ppu

import "sort"

const maxSpritesPerLine = 10

// sprite is one OAM entry selected for the current line.
type sprite struct {
	Index   byte // OAM slot 0-39
	Y, X    byte // raw OAM coordinates (screen + 16 / + 8)
	Fetched bool
}

// objPixel is one slot of the OBJ FIFO. Color 0 is transparent.
type objPixel struct {
	Color    byte
	Palette  byte // 0: OBP0, 1: OBP1
	BehindBG bool
}

func (p *PPU) spriteHeight() int {
	if p.s.LCDC&0x04 != 0 {
		return 16
	}
	return 8
}

// scanOAM selects up to ten sprites overlapping LY in OAM order, then sorts
// them by X keeping OAM order for equal X.
func (p *PPU) scanOAM() {
	h := p.spriteHeight()
	ly := int(p.s.LY) + 16
	n := 0
	for i := 0; i < 40 && n < maxSpritesPerLine; i++ {
		y := int(p.s.OAM[i*4])
		if ly >= y && ly < y+h {
			p.s.Sprites[n] = sprite{Index: byte(i), Y: byte(y), X: p.s.OAM[i*4+1]}
			n++
		}
	}
	p.s.NSprites = n
	line := p.s.Sprites[:n]
	sort.SliceStable(line, func(a, b int) bool { return line[a].X < line[b].X })
}

// nextSprite returns the first unfetched sprite whose left edge has been
// reached at LCD column x.
func (p *PPU) nextSprite(x int) int {
	for i := 0; i < p.s.NSprites; i++ {
		s := &p.s.Sprites[i]
		if !s.Fetched && int(s.X) <= x+8 {
			return i
		}
	}
	return -1
}

// spriteRow fetches the two bitplanes of the sprite's row on this line,
// already flipped horizontally when the attribute asks for it.
func (p *PPU) spriteRow(s *sprite) (lo, hi, attr byte) {
	tile := p.s.OAM[int(s.Index)*4+2]
	attr = p.s.OAM[int(s.Index)*4+3]
	h := p.spriteHeight()
	row := int(p.s.LY) + 16 - int(s.Y)
	if attr&0x40 != 0 {
		row = h - 1 - row
	}
	if h == 16 {
		tile &^= 0x01
	}
	addr := 0x8000 + uint16(tile)*16 + uint16(row)*2
	lo, hi = p.vram(addr), p.vram(addr+1)
	if attr&0x20 != 0 {
		lo, hi = reverseBits(lo), reverseBits(hi)
	}
	return lo, hi, attr
}

// mergeSprite overlays a fetched sprite onto the OBJ FIFO. Pixels left of
// column x are clipped. Opaque pixels already in the FIFO come from sprites
// with lower X or lower OAM index and keep priority.
func (p *PPU) mergeSprite(slot int, x int) {
	s := &p.s.Sprites[slot]
	s.Fetched = true
	lo, hi, attr := p.spriteRow(s)
	clip := x + 8 - int(s.X)
	if clip < 0 {
		clip = 0
	}
	t := &p.s.T
	for i := clip; i < 8; i++ {
		pos := i - clip
		if pos >= t.OBJLen {
			t.OBJ[pos] = objPixel{}
		}
		bit := 7 - i
		color := (hi>>bit&1)<<1 | lo>>bit&1
		if color == 0 || t.OBJ[pos].Color != 0 {
			continue
		}
		t.OBJ[pos] = objPixel{Color: color, Palette: attr >> 4 & 1, BehindBG: attr&0x80 != 0}
	}
	if n := 8 - clip; n > t.OBJLen {
		t.OBJLen = n
	}
}

// popOBJ shifts one pixel out of the OBJ FIFO; an empty FIFO yields
// a transparent pixel.
func (p *PPU) popOBJ() objPixel {
	t := &p.s.T
	if t.OBJLen == 0 {
		return objPixel{}
	}
	px := t.OBJ[0]
	copy(t.OBJ[:], t.OBJ[1:t.OBJLen])
	t.OBJLen--
	t.OBJ[t.OBJLen] = objPixel{}
	return px
}

func reverseBits(b byte) byte {
	b = b&0xF0>>4 | b&0x0F<<4
	b = b&0xCC>>2 | b&0x33<<2
	b = b&0xAA>>1 | b&0x55<<1
	return b
}
