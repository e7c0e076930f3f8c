package ppu

// fifo is a ring buffer of 2-bit BG/window color indices. Fields are
// exported for save states.
type fifo struct {
	Buf  [16]byte
	Head int
	Tail int
	Size int
}

func (q *fifo) Clear()   { q.Head, q.Tail, q.Size = 0, 0, 0 }
func (q *fifo) Len() int { return q.Size }
func (q *fifo) Push(ci byte) bool {
	if q.Size == len(q.Buf) {
		return false
	}
	q.Buf[q.Tail] = ci & 0x03
	q.Tail = (q.Tail + 1) % len(q.Buf)
	q.Size++
	return true
}
func (q *fifo) Pop() (byte, bool) {
	if q.Size == 0 {
		return 0, false
	}
	v := q.Buf[q.Head]
	q.Head = (q.Head + 1) % len(q.Buf)
	q.Size--
	return v, true
}

type fetchStep byte

const (
	stepTile fetchStep = iota
	stepDataLow
	stepDataHigh
	stepPush
)

// fetcher is the BG/window tile fetcher. Tile, low and high each take two
// dots; push waits until the BG FIFO is empty.
type fetcher struct {
	Step   fetchStep
	Sub    int
	TileX  int // tiles pushed so far on this line (BG) or window tiles
	Window bool
	Tile   byte
	Lo, Hi byte
	// Progress counts dots since the last push; sprite fetches wait for
	// the fetcher to get that far into the next tile.
	Progress int
}

// restart begins a new fetch from the first tile. consumed dots already
// count toward the tile-number step.
func (f *fetcher) restart(window bool, consumed int) {
	*f = fetcher{Window: window, Sub: consumed}
}

// tileMapAddr returns the tile-map address of the tile being fetched.
func (p *PPU) tileMapAddr() uint16 {
	f := &p.s.T.Fetch
	if f.Window {
		base := uint16(0x9800)
		if p.s.LCDC&0x40 != 0 {
			base = 0x9C00
		}
		return base + uint16(p.s.WinLine/8)*32 + uint16(f.TileX&31)
	}
	base := uint16(0x9800)
	if p.s.LCDC&0x08 != 0 {
		base = 0x9C00
	}
	row := uint16(p.s.LY+p.s.SCY) / 8
	col := uint16(int(p.s.SCX/8)+f.TileX) & 31
	return base + row*32 + col
}

// tileDataAddr returns the address of the low byte of the current tile row.
func (p *PPU) tileDataAddr() uint16 {
	f := &p.s.T.Fetch
	var fineY uint16
	if f.Window {
		fineY = uint16(p.s.WinLine % 8)
	} else {
		fineY = uint16((p.s.LY + p.s.SCY) % 8)
	}
	if p.s.LCDC&0x10 != 0 {
		return 0x8000 + uint16(f.Tile)*16 + fineY*2
	}
	return uint16(0x9000+int(int8(f.Tile))*16) + fineY*2
}

// stepFetcher advances the fetcher by one dot.
func (p *PPU) stepFetcher() {
	f := &p.s.T.Fetch
	f.Progress++
	switch f.Step {
	case stepTile:
		if f.Sub == 1 {
			f.Tile = p.vram(p.tileMapAddr())
		}
		p.advance(stepDataLow)
	case stepDataLow:
		if f.Sub == 1 {
			f.Lo = p.vram(p.tileDataAddr())
		}
		p.advance(stepDataHigh)
	case stepDataHigh:
		if f.Sub == 1 {
			f.Hi = p.vram(p.tileDataAddr() + 1)
		}
		p.advance(stepPush)
	case stepPush:
		q := &p.s.T.BG
		if q.Len() != 0 {
			return
		}
		for bit := 7; bit >= 0; bit-- {
			q.Push((f.Hi>>bit&1)<<1 | f.Lo>>bit&1)
		}
		f.TileX++
		f.Progress = 0
		f.Step, f.Sub = stepTile, 0
	}
}

// advance finishes a two-dot step.
func (p *PPU) advance(next fetchStep) {
	f := &p.s.T.Fetch
	f.Sub++
	if f.Sub >= 2 {
		f.Step, f.Sub = next, 0
	}
}

func (p *PPU) vram(addr uint16) byte { return p.s.VRAM[addr&0x1FFF] }
