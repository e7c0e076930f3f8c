package cpu

// ActionKind classifies what the CPU does with the bus during one M-cycle.
type ActionKind byte

const (
	Internal ActionKind = iota
	Read
	Write
)

func (k ActionKind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return "internal"
}

// BusAction is the work of one M-cycle after the opcode and operand fetches.
// Do performs the access or the internal step; the hardware is ticked once
// after it returns.
type BusAction struct {
	Kind ActionKind
	Do   func(c *CPU)
}

// Processor drains the actions of one instruction in order.
type Processor struct {
	actions []BusAction
	next    int
}

func (p *Processor) Done() bool { return p.next >= len(p.actions) }

// Len is the number of M-cycles the instruction spends after its fetches.
func (p *Processor) Len() int { return len(p.actions) }

func (p *Processor) Next() BusAction {
	a := p.actions[p.next]
	p.next++
	return a
}

// Kinds lists the action kinds in order; for tracing and tests.
func (p *Processor) Kinds() []ActionKind {
	out := make([]ActionKind, len(p.actions))
	for i, a := range p.actions {
		out[i] = a.Kind
	}
	return out
}

// opEntry describes one opcode. apply runs right after the fetches and holds
// all of the work of single-fetch instructions. Conditional branches pick
// taken or actions depending on the flags at decode time.
type opEntry struct {
	apply   func(c *CPU)
	actions []BusAction
	cond    bool
	taken   []BusAction
}

var baseOps, cbOps [256]opEntry

func init() {
	for i := 0; i < 256; i++ {
		baseOps[i] = buildOp(byte(i))
		cbOps[i] = buildCB(byte(i))
	}
}

// newProcessor performs the decode-time part of ins and returns the
// remaining M-cycles.
func newProcessor(c *CPU, ins Instruction) Processor {
	e := &baseOps[ins.Opcode]
	if ins.CB {
		e = &cbOps[ins.Opcode]
	}
	if e.cond && c.cond(ins.y()&3) {
		return Processor{actions: e.taken}
	}
	if e.apply != nil {
		e.apply(c)
	}
	return Processor{actions: e.actions}
}

func rd(f func(c *CPU)) BusAction { return BusAction{Kind: Read, Do: f} }
func wr(f func(c *CPU)) BusAction { return BusAction{Kind: Write, Do: f} }
func in(f func(c *CPU)) BusAction { return BusAction{Kind: Internal, Do: f} }

var idle = BusAction{Kind: Internal}

func seq(a ...BusAction) []BusAction { return a }

// push writes the high byte first. SP drops during the leading internal cycle.
func push(value func(c *CPU) uint16, then func(c *CPU)) []BusAction {
	return seq(
		in(func(c *CPU) {
			c.tmp16 = value(c)
			c.SP--
		}),
		wr(func(c *CPU) {
			c.bus.Write(c.SP, byte(c.tmp16>>8))
			c.SP--
		}),
		wr(func(c *CPU) {
			c.bus.Write(c.SP, byte(c.tmp16))
			if then != nil {
				then(c)
			}
		}),
	)
}

func pop(into func(c *CPU, v uint16)) []BusAction {
	return seq(
		rd(func(c *CPU) {
			c.tmp16 = uint16(c.bus.Read(c.SP))
			c.SP++
		}),
		rd(func(c *CPU) {
			c.tmp16 |= uint16(c.bus.Read(c.SP)) << 8
			c.SP++
			into(c, c.tmp16)
		}),
	)
}

func ret(extra func(c *CPU)) []BusAction {
	return append(pop(func(*CPU, uint16) {}), in(func(c *CPU) {
		c.PC = c.tmp16
		if extra != nil {
			extra(c)
		}
	}))
}

func pcValue(c *CPU) uint16 { return c.PC }

// indirect returns the address for LD (rr),A / LD A,(rr), applying HL+ and HL-.
func (c *CPU) indirect(p byte) uint16 {
	switch p {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	}
	hl := c.getHL()
	if p == 2 {
		c.setHL(hl + 1)
	} else {
		c.setHL(hl - 1)
	}
	return hl
}

func buildOp(op byte) opEntry {
	x, y, z := op>>6, op>>3&7, op&7
	switch {
	case illegal(op) || op == 0xCB:
		return opEntry{}
	case op == 0x76:
		return opEntry{apply: (*CPU).halt}
	case x == 0:
		return buildBlock0(y, z)
	case x == 1:
		switch {
		case z == 6:
			return opEntry{actions: seq(rd(func(c *CPU) { c.setReg(y, c.bus.Read(c.getHL())) }))}
		case y == 6:
			return opEntry{actions: seq(wr(func(c *CPU) { c.bus.Write(c.getHL(), c.reg(z)) }))}
		}
		return opEntry{apply: func(c *CPU) { c.setReg(y, c.reg(z)) }}
	case x == 2:
		if z == 6 {
			return opEntry{actions: seq(rd(func(c *CPU) { c.alu(y, c.bus.Read(c.getHL())) }))}
		}
		return opEntry{apply: func(c *CPU) { c.alu(y, c.reg(z)) }}
	}
	return buildBlock3(y, z)
}

func buildBlock0(y, z byte) opEntry {
	p, q := y>>1, y&1
	switch z {
	case 0:
		switch y {
		case 0:
			return opEntry{}
		case 1: // LD (a16),SP
			return opEntry{actions: seq(
				wr(func(c *CPU) { c.bus.Write(c.ins.Imm16(), byte(c.SP)) }),
				wr(func(c *CPU) { c.bus.Write(c.ins.Imm16()+1, byte(c.SP>>8)) }),
			)}
		case 2:
			return opEntry{apply: (*CPU).stop}
		case 3:
			return opEntry{actions: seq(in(jumpRelative))}
		}
		return opEntry{cond: true, taken: seq(in(jumpRelative))}
	case 1:
		if q == 0 {
			return opEntry{apply: func(c *CPU) { c.setRR(p, c.ins.Imm16()) }}
		}
		return opEntry{actions: seq(in(func(c *CPU) { c.addHL(c.rr(p)) }))}
	case 2:
		if q == 0 {
			return opEntry{actions: seq(wr(func(c *CPU) { c.bus.Write(c.indirect(p), c.A) }))}
		}
		return opEntry{actions: seq(rd(func(c *CPU) { c.A = c.bus.Read(c.indirect(p)) }))}
	case 3:
		if q == 0 {
			return opEntry{actions: seq(in(func(c *CPU) { c.setRR(p, c.rr(p)+1) }))}
		}
		return opEntry{actions: seq(in(func(c *CPU) { c.setRR(p, c.rr(p)-1) }))}
	case 4, 5:
		step := (*CPU).inc8
		if z == 5 {
			step = (*CPU).dec8
		}
		if y == 6 {
			return opEntry{actions: seq(
				rd(func(c *CPU) { c.tmp = c.bus.Read(c.getHL()) }),
				wr(func(c *CPU) { c.bus.Write(c.getHL(), step(c, c.tmp)) }),
			)}
		}
		return opEntry{apply: func(c *CPU) { c.setReg(y, step(c, c.reg(y))) }}
	case 6:
		if y == 6 {
			return opEntry{actions: seq(wr(func(c *CPU) { c.bus.Write(c.getHL(), c.ins.Imm8()) }))}
		}
		return opEntry{apply: func(c *CPU) { c.setReg(y, c.ins.Imm8()) }}
	}
	// z == 7
	switch y {
	case 0, 1, 2, 3: // RLCA RRCA RLA RRA clear Z
		return opEntry{apply: func(c *CPU) {
			c.A = c.rotate(y, c.A)
			c.F &^= flagZ
		}}
	case 4:
		return opEntry{apply: (*CPU).daa}
	case 5:
		return opEntry{apply: func(c *CPU) {
			c.A = ^c.A
			c.F = c.F&(flagZ|flagC) | flagN | flagH
		}}
	case 6:
		return opEntry{apply: func(c *CPU) { c.F = c.F&flagZ | flagC }}
	}
	return opEntry{apply: func(c *CPU) { c.F = (c.F ^ flagC) & (flagZ | flagC) }}
}

func jumpRelative(c *CPU) { c.PC += uint16(int8(c.ins.Imm8())) }
func jumpAbsolute(c *CPU) { c.PC = c.ins.Imm16() }

func buildBlock3(y, z byte) opEntry {
	p, q := y>>1, y&1
	switch z {
	case 0:
		switch y {
		case 4: // LDH (a8),A
			return opEntry{actions: seq(wr(func(c *CPU) { c.bus.Write(0xFF00|uint16(c.ins.Imm8()), c.A) }))}
		case 5: // ADD SP,e
			return opEntry{actions: seq(
				in(func(c *CPU) { c.tmp16 = c.addSPe(c.ins.Imm8()) }),
				in(func(c *CPU) { c.SP = c.tmp16 }),
			)}
		case 6: // LDH A,(a8)
			return opEntry{actions: seq(rd(func(c *CPU) { c.A = c.bus.Read(0xFF00 | uint16(c.ins.Imm8())) }))}
		case 7: // LD HL,SP+e
			return opEntry{actions: seq(in(func(c *CPU) { c.setHL(c.addSPe(c.ins.Imm8())) }))}
		}
		return opEntry{cond: true, actions: seq(idle), taken: append(seq(idle), ret(nil)...)}
	case 1:
		if q == 0 {
			return opEntry{actions: pop(func(c *CPU, v uint16) { c.setStackRR(p, v) })}
		}
		switch p {
		case 0:
			return opEntry{actions: ret(nil)}
		case 1:
			return opEntry{actions: ret(func(c *CPU) {
				c.IME = true
				c.eiDelay = 0
			})}
		case 2:
			return opEntry{apply: func(c *CPU) { c.PC = c.getHL() }}
		}
		return opEntry{actions: seq(in(func(c *CPU) { c.SP = c.getHL() }))}
	case 2:
		switch y {
		case 4:
			return opEntry{actions: seq(wr(func(c *CPU) { c.bus.Write(0xFF00|uint16(c.C), c.A) }))}
		case 5:
			return opEntry{actions: seq(wr(func(c *CPU) { c.bus.Write(c.ins.Imm16(), c.A) }))}
		case 6:
			return opEntry{actions: seq(rd(func(c *CPU) { c.A = c.bus.Read(0xFF00 | uint16(c.C)) }))}
		case 7:
			return opEntry{actions: seq(rd(func(c *CPU) { c.A = c.bus.Read(c.ins.Imm16()) }))}
		}
		return opEntry{cond: true, taken: seq(in(jumpAbsolute))}
	case 3:
		switch y {
		case 0:
			return opEntry{actions: seq(in(jumpAbsolute))}
		case 6:
			return opEntry{apply: func(c *CPU) {
				c.IME = false
				c.eiDelay = 0
			}}
		case 7:
			return opEntry{apply: func(c *CPU) {
				if c.eiDelay == 0 && !c.IME {
					c.eiDelay = 2
				}
			}}
		}
	case 4:
		return opEntry{cond: true, taken: push(pcValue, jumpAbsolute)}
	case 5:
		if q == 0 {
			return opEntry{actions: push(func(c *CPU) uint16 { return c.stackRR(p) }, nil)}
		}
		return opEntry{actions: push(pcValue, jumpAbsolute)}
	case 6:
		return opEntry{apply: func(c *CPU) { c.alu(y, c.ins.Imm8()) }}
	case 7:
		vec := uint16(y) * 8
		return opEntry{actions: push(pcValue, func(c *CPU) { c.PC = vec })}
	}
	return opEntry{}
}

func buildCB(op byte) opEntry {
	x, y, z := op>>6, op>>3&7, op&7
	if z != 6 {
		if x == 1 {
			return opEntry{apply: func(c *CPU) { c.bit(y, c.reg(z)) }}
		}
		return opEntry{apply: func(c *CPU) { c.setReg(z, c.cbResult(x, y, c.reg(z))) }}
	}
	if x == 1 {
		return opEntry{actions: seq(rd(func(c *CPU) { c.bit(y, c.bus.Read(c.getHL())) }))}
	}
	return opEntry{actions: seq(
		rd(func(c *CPU) { c.tmp = c.bus.Read(c.getHL()) }),
		wr(func(c *CPU) { c.bus.Write(c.getHL(), c.cbResult(x, y, c.tmp)) }),
	)}
}
