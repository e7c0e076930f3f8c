package cpu

// Flags helpers
const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

func (c *CPU) setZNHC(z, n, h, carry bool) {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	if carry {
		f |= flagC
	}
	c.F = f
}

func (c *CPU) carry() byte {
	if c.F&flagC != 0 {
		return 1
	}
	return 0
}

func add8(a, b, ci byte) (res byte, z, n, h, cy bool) {
	r := uint16(a) + uint16(b) + uint16(ci)
	res = byte(r)
	z = res == 0
	h = (a&0x0F)+(b&0x0F)+ci > 0x0F
	cy = r > 0xFF
	return
}

func sub8(a, b, ci byte) (res byte, z, n, h, cy bool) {
	r := int16(a) - int16(b) - int16(ci)
	res = byte(r)
	z = res == 0
	n = true
	h = a&0x0F < b&0x0F+ci
	cy = r < 0
	return
}

// alu applies one of the eight accumulator operations selected by bits 3-5
// of the opcode: ADD ADC SUB SBC AND XOR OR CP.
func (c *CPU) alu(op, v byte) {
	switch op {
	case 0:
		res, z, n, h, cy := add8(c.A, v, 0)
		c.A = res
		c.setZNHC(z, n, h, cy)
	case 1:
		res, z, n, h, cy := add8(c.A, v, c.carry())
		c.A = res
		c.setZNHC(z, n, h, cy)
	case 2:
		res, z, n, h, cy := sub8(c.A, v, 0)
		c.A = res
		c.setZNHC(z, n, h, cy)
	case 3:
		res, z, n, h, cy := sub8(c.A, v, c.carry())
		c.A = res
		c.setZNHC(z, n, h, cy)
	case 4:
		c.A &= v
		c.setZNHC(c.A == 0, false, true, false)
	case 5:
		c.A ^= v
		c.setZNHC(c.A == 0, false, false, false)
	case 6:
		c.A |= v
		c.setZNHC(c.A == 0, false, false, false)
	case 7:
		_, z, n, h, cy := sub8(c.A, v, 0)
		c.setZNHC(z, n, h, cy)
	}
}

// inc8 and dec8 leave C untouched.
func (c *CPU) inc8(v byte) byte {
	r := v + 1
	c.F = c.F&flagC | boolFlag(r == 0, flagZ) | boolFlag(v&0x0F == 0x0F, flagH)
	return r
}

func (c *CPU) dec8(v byte) byte {
	r := v - 1
	c.F = c.F&flagC | flagN | boolFlag(r == 0, flagZ) | boolFlag(v&0x0F == 0, flagH)
	return r
}

func boolFlag(b bool, f byte) byte {
	if b {
		return f
	}
	return 0
}

// addHL keeps Z and computes H from bit 11.
func (c *CPU) addHL(v uint16) {
	hl := c.getHL()
	r := uint32(hl) + uint32(v)
	c.F = c.F&flagZ | boolFlag((hl&0x0FFF)+(v&0x0FFF) > 0x0FFF, flagH) | boolFlag(r > 0xFFFF, flagC)
	c.setHL(uint16(r))
}

// addSPe computes SP+e for ADD SP,e and LD HL,SP+e. H and C come from the
// unsigned low-byte addition; Z and N are cleared.
func (c *CPU) addSPe(e byte) uint16 {
	sp := c.SP
	c.setZNHC(false, false, (sp&0x0F)+uint16(e&0x0F) > 0x0F, (sp&0xFF)+uint16(e) > 0xFF)
	return sp + uint16(int8(e))
}

func (c *CPU) daa() {
	a := c.A
	cf := c.F&flagC != 0
	if c.F&flagN == 0 {
		if cf || a > 0x99 {
			a += 0x60
			cf = true
		}
		if c.F&flagH != 0 || a&0x0F > 9 {
			a += 0x06
		}
	} else {
		if cf {
			a -= 0x60
		}
		if c.F&flagH != 0 {
			a -= 0x06
		}
	}
	c.A = a
	c.setZNHC(a == 0, c.F&flagN != 0, false, cf)
}

// rotate implements the CB 00-3F group: RLC RRC RL RR SLA SRA SWAP SRL.
func (c *CPU) rotate(op, v byte) byte {
	var out, cy byte
	switch op {
	case 0:
		cy = v >> 7
		out = v<<1 | cy
	case 1:
		cy = v & 1
		out = v>>1 | cy<<7
	case 2:
		cy = v >> 7
		out = v<<1 | c.carry()
	case 3:
		cy = v & 1
		out = v>>1 | c.carry()<<7
	case 4:
		cy = v >> 7
		out = v << 1
	case 5:
		cy = v & 1
		out = v>>1 | v&0x80
	case 6:
		out = v<<4 | v>>4
	case 7:
		cy = v & 1
		out = v >> 1
	}
	c.setZNHC(out == 0, false, false, cy == 1)
	return out
}

// cbResult applies a CB rotate, RES or SET. BIT is handled by bit.
func (c *CPU) cbResult(x, y, v byte) byte {
	switch x {
	case 0:
		return c.rotate(y, v)
	case 2:
		return v &^ (1 << y)
	default:
		return v | 1<<y
	}
}

func (c *CPU) bit(y, v byte) {
	c.F = c.F&flagC | flagH | boolFlag(v&(1<<y) == 0, flagZ)
}

// r8 indexes B C D E H L - A by the 3-bit register field; 6 is (HL) and
// never reaches these helpers.
func (c *CPU) reg(i byte) byte {
	switch i {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	}
	return c.A
}

func (c *CPU) setReg(i byte, v byte) {
	switch i {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	default:
		c.A = v
	}
}

// rr and setRR use the BC DE HL SP pairing; stack ops use AF in place of SP.
func (c *CPU) rr(p byte) uint16 {
	switch p {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	}
	return c.SP
}

func (c *CPU) setRR(p byte, v uint16) {
	switch p {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

func (c *CPU) stackRR(p byte) uint16 {
	if p == 3 {
		return c.getAF()
	}
	return c.rr(p)
}

func (c *CPU) setStackRR(p byte, v uint16) {
	if p == 3 {
		c.setAF(v)
		return
	}
	c.setRR(p, v)
}

func (c *CPU) getAF() uint16  { return uint16(c.A)<<8 | uint16(c.F&0xF0) }
func (c *CPU) setAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) & 0xF0 }
func (c *CPU) getBC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) getDE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) getHL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

// cond evaluates the NZ Z NC C field of conditional branches.
func (c *CPU) cond(cc byte) bool {
	switch cc {
	case 0:
		return c.F&flagZ == 0
	case 1:
		return c.F&flagZ != 0
	case 2:
		return c.F&flagC == 0
	}
	return c.F&flagC != 0
}
