package ppu

// startTransfer enters mode 3 for the current line.
func (p *PPU) startTransfer() {
	p.s.Mode = PixelTransfer
	p.s.T = transfer{
		Startup: startupDots,
		Discard: int(p.s.SCX & 7),
		Pending: -1,
	}
}

// transferDot runs one dot of mode 3: fetcher first, then window and
// sprite checks, then at most one pixel out of the FIFOs.
func (p *PPU) transferDot() {
	t := &p.s.T
	if t.Startup > 0 {
		t.Startup--
		return
	}
	p.stepFetcher()

	if t.Stall > 0 {
		t.Stall--
		if t.Stall == 0 {
			p.mergeSprite(t.Pending, t.X)
			t.Pending = -1
		}
		return
	}
	if t.BG.Len() == 0 {
		return
	}
	if p.windowStarts() {
		t.Window = true
		p.s.WindowDrawn = true
		t.BG.Clear()
		t.Fetch.restart(true, 1)
		t.Discard = 0
		if wx := int(p.s.WX); wx < 7 {
			t.Discard = 7 - wx
		}
		return
	}
	if t.Discard == 0 && p.s.LCDC&0x02 != 0 {
		if slot := p.nextSprite(t.X); slot >= 0 {
			waited := t.Fetch.Progress
			if waited > 5 {
				waited = 5
			}
			// The trigger dot is the first of the stall.
			t.Stall = 6 + 5 - waited - 1
			t.Pending = slot
			return
		}
	}
	p.shiftPixel()
}

func (p *PPU) windowStarts() bool {
	t := &p.s.T
	if t.Window || p.s.LCDC&0x20 == 0 || !p.s.WYTriggered {
		return false
	}
	wx := int(p.s.WX)
	return wx <= windowMaxWX && t.X+7 >= wx
}

// shiftPixel pops one BG pixel and, unless it is being discarded, mixes it
// with the OBJ FIFO and writes the shade for column X.
func (p *PPU) shiftPixel() {
	t := &p.s.T
	bg, _ := t.BG.Pop()
	if t.Discard > 0 {
		t.Discard--
		return
	}
	obj := p.popOBJ()
	if p.s.LCDC&0x01 == 0 {
		bg = 0
	}
	shade := paletteShade(p.s.BGP, bg)
	if obj.Color != 0 && p.s.LCDC&0x02 != 0 && (!obj.BehindBG || bg == 0) {
		pal := p.s.OBP0
		if obj.Palette == 1 {
			pal = p.s.OBP1
		}
		shade = paletteShade(pal, obj.Color)
	}
	if int(p.s.LY) < ScreenHeight && t.X < ScreenWidth {
		p.s.Back[int(p.s.LY)*ScreenWidth+t.X] = shade
	}
	t.X++
}

func paletteShade(pal, color byte) byte { return pal >> (color * 2) & 3 }
