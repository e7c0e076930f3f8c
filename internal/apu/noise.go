package apu

var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// noise is channel 4, a 15-bit (or 7-bit) LFSR.
type noise struct {
	NR1, NR2, NR3, NR4 byte

	On     bool
	Length lengthCounter
	Env    envelope
	Timer  int
	LFSR   uint16
}

func (c *noise) dacOn() bool { return c.NR2&0xF8 != 0 }
func (c *noise) period() int { return noiseDivisors[c.NR3&7] << (c.NR3 >> 4) }

func (c *noise) tick(tcycles int) {
	// shift 14 and 15 stop the clock
	if !c.On || c.NR3>>4 >= 14 {
		return
	}
	c.Timer -= tcycles
	for c.Timer <= 0 {
		c.Timer += c.period()
		c.shift()
	}
}

func (c *noise) shift() {
	x := (c.LFSR ^ c.LFSR>>1) & 1
	c.LFSR = c.LFSR>>1 | x<<14
	if c.NR3&0x08 != 0 {
		c.LFSR = c.LFSR&^(1<<6) | x<<6
	}
}

func (c *noise) writeEnvelope(v byte) {
	c.NR2 = v
	if !c.dacOn() {
		c.On = false
	}
}

func (c *noise) trigger() {
	c.On = c.dacOn()
	c.Env.trigger(c.NR2)
	c.LFSR = 0x7FFF
	c.Timer = c.period()
}

func (c *noise) output() float64 {
	if !c.On || !c.dacOn() {
		return 0
	}
	amp := float64(c.Env.Volume) / 15
	if c.LFSR&1 == 0 {
		return amp
	}
	return -amp
}
