package apu

var dutyTable = [4][8]byte{
	// 12.5%, 25%, 50%, 75% (pan docs pattern)
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

// square is a pulse channel. Channel 1 additionally uses the sweep unit
// driven by NR0 (NR10); channel 2 leaves NR0 at zero.
type square struct {
	NR0, NR1, NR2, NR3, NR4 byte

	On     bool
	Length lengthCounter
	Env    envelope
	Timer  int
	Phase  int

	Shadow       uint16
	SweepTimer   byte
	SweepEnabled bool
	SweepNegUsed bool
}

func (c *square) period() int { return int(c.NR4&7)<<8 | int(c.NR3) }
func (c *square) dacOn() bool { return c.NR2&0xF8 != 0 }

func (c *square) setPeriod(f uint16) {
	c.NR3 = byte(f)
	c.NR4 = c.NR4&^0x07 | byte(f>>8)&0x07
}

func (c *square) tick(tcycles int) {
	c.Timer -= tcycles
	for c.Timer <= 0 {
		c.Timer += (2048 - c.period()) * 4
		c.Phase = (c.Phase + 1) & 7
	}
}

func (c *square) writeEnvelope(v byte) {
	c.NR2 = v
	if !c.dacOn() {
		c.On = false
	}
}

func (c *square) writeSweep(v byte) {
	wasNeg := c.NR0&0x08 != 0
	c.NR0 = v
	// Leaving negate mode after a negated calculation silences the channel.
	if wasNeg && v&0x08 == 0 && c.SweepNegUsed {
		c.On = false
	}
}

func (c *square) trigger(sweep bool) {
	c.On = c.dacOn()
	c.Timer = (2048 - c.period()) * 4
	c.Env.trigger(c.NR2)
	if !sweep {
		return
	}
	c.Shadow = uint16(c.period())
	pace, shift := c.NR0>>4&7, c.NR0&7
	c.SweepTimer = pace
	if pace == 0 {
		c.SweepTimer = 8
	}
	c.SweepEnabled = pace != 0 || shift != 0
	c.SweepNegUsed = false
	if shift != 0 && c.sweepTarget() > 2047 {
		c.On = false
	}
}

func (c *square) sweepTarget() uint16 {
	delta := c.Shadow >> (c.NR0 & 7)
	if c.NR0&0x08 != 0 {
		c.SweepNegUsed = true
		return c.Shadow - delta
	}
	return c.Shadow + delta
}

func (c *square) clockSweep() {
	if !c.SweepEnabled {
		return
	}
	if c.SweepTimer > 0 {
		c.SweepTimer--
	}
	if c.SweepTimer != 0 {
		return
	}
	pace := c.NR0 >> 4 & 7
	c.SweepTimer = pace
	if pace == 0 {
		c.SweepTimer = 8
		return
	}
	f := c.sweepTarget()
	if f > 2047 {
		c.On = false
		return
	}
	if c.NR0&7 != 0 {
		c.Shadow = f
		c.setPeriod(f)
		// second overflow check
		if c.sweepTarget() > 2047 {
			c.On = false
		}
	}
}

func (c *square) output() float64 {
	if !c.On || !c.dacOn() {
		return 0
	}
	amp := float64(c.Env.Volume) / 15
	if dutyTable[c.NR1>>6][c.Phase] != 0 {
		return amp
	}
	return -amp
}
