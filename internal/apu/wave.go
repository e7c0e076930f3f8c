package apu

// wave is channel 3: 32 four-bit samples played from wave RAM.
type wave struct {
	NR0, NR1, NR2, NR3, NR4 byte

	On     bool
	Length lengthCounter
	Timer  int
	Pos    int  // 0..31
	Sample byte // last nibble read from RAM
	RAM    [16]byte
}

func (c *wave) period() int { return int(c.NR4&7)<<8 | int(c.NR3) }
func (c *wave) dacOn() bool { return c.NR0&0x80 != 0 }

func (c *wave) nibble(pos int) byte {
	b := c.RAM[pos>>1]
	if pos&1 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

func (c *wave) tick(tcycles int) {
	if !c.On {
		return
	}
	c.Timer -= tcycles
	for c.Timer <= 0 {
		c.Timer += (2048 - c.period()) * 2
		c.Pos = (c.Pos + 1) & 31
		c.Sample = c.nibble(c.Pos)
	}
}

func (c *wave) writeDAC(v byte) {
	c.NR0 = v
	if !c.dacOn() {
		c.On = false
	}
}

func (c *wave) trigger() {
	c.On = c.dacOn()
	c.Timer = (2048 - c.period()) * 2
	c.Pos = 0
}

// While the channel plays, CPU accesses land on the byte being read.
func (c *wave) readRAM(i int) byte {
	if c.On {
		return c.RAM[c.Pos>>1]
	}
	return c.RAM[i]
}

func (c *wave) writeRAM(i int, v byte) {
	if c.On {
		c.RAM[c.Pos>>1] = v
		return
	}
	c.RAM[i] = v
}

func (c *wave) output() float64 {
	code := c.NR2 >> 5 & 3
	if !c.On || !c.dacOn() || code == 0 {
		return 0
	}
	v := float64(c.Sample)/7.5 - 1
	return v / float64(int(1)<<(code-1))
}
