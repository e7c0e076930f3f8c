package cpu

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/bits"
)

const (
	interruptMask = 0x1F
	joypadIRQ     = 1 << 4
)

// Bus is what the CPU needs from the rest of the machine. Read and Write do
// not advance time; Tick advances every device by one M-cycle and reports
// whether a frame was completed during it.
type Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, v byte)
	Tick() bool
	Interrupts() (ie, iflag byte)
	AckInterrupt(bit int)
}

// CPU is the SM83 core. Every memory access and internal step costs one
// M-cycle, during which the bus ticks the rest of the hardware.
type CPU struct {
	// 8-bit registers
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	IME     bool
	halted  bool
	stopped bool
	haltBug bool
	// eiDelay counts instruction ends until EI takes effect.
	eiDelay int
	fault   error

	ins   Instruction
	proc  Processor
	tmp   byte
	tmp16 uint16
	buf   [3]byte

	bus    Bus
	cycles int
	frame  bool
}

// New creates a CPU with all registers zero and PC at 0x0000, the state the
// boot ROM starts from.
func New(b Bus) *CPU {
	return &CPU{bus: b}
}

// SetPC allows tests or a boot stub to set the program counter.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// ResetNoBoot sets registers to the DMG post-boot state.
func (c *CPU) ResetNoBoot() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.IME = false
	c.halted = false
	c.stopped = false
	c.haltBug = false
	c.eiDelay = 0
	c.fault = nil
}

// Registers is a value snapshot for debuggers.
type Registers struct {
	A, F, B, C, D, E, H, L byte
	SP, PC                 uint16
	IME                    bool
	Halted                 bool
	Stopped                bool
}

func (r Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }
func (r Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

func (r Registers) String() string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X PC=%04X IME=%v",
		r.AF(), r.BC(), r.DE(), r.HL(), r.SP, r.PC, r.IME)
}

func (c *CPU) Registers() Registers {
	return Registers{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		SP: c.SP, PC: c.PC,
		IME: c.IME, Halted: c.halted, Stopped: c.stopped,
	}
}

func (c *CPU) Halted() bool { return c.halted }

// Fault returns the error that locked the CPU, if any.
func (c *CPU) Fault() error { return c.fault }

// LastInstruction is the most recently decoded instruction.
func (c *CPU) LastInstruction() Instruction { return c.ins }

func (c *CPU) tick() {
	if c.bus.Tick() {
		c.frame = true
	}
	c.cycles++
}

func (c *CPU) pending() byte {
	ie, iflag := c.bus.Interrupts()
	return ie & iflag & interruptMask
}

// Step runs one instruction, one interrupt dispatch or one idle M-cycle
// while halted or stopped. It returns the M-cycles spent and whether a frame
// completed during them. Once an illegal opcode has been fetched every call
// idles one M-cycle and returns the same error.
func (c *CPU) Step() (cycles int, frame bool, err error) {
	c.cycles, c.frame = 0, false
	if c.fault != nil {
		c.tick()
		return c.cycles, c.frame, c.fault
	}

	if c.stopped {
		if _, iflag := c.bus.Interrupts(); iflag&joypadIRQ == 0 {
			c.tick()
			return c.cycles, c.frame, nil
		}
		c.stopped = false
	}

	pending := c.pending()
	if c.halted {
		if pending == 0 {
			c.tick()
			return c.cycles, c.frame, nil
		}
		c.halted = false
	}

	if c.IME && pending != 0 {
		c.dispatch()
		return c.cycles, c.frame, nil
	}

	err = c.execute()
	return c.cycles, c.frame, err
}

// dispatch takes five M-cycles. The vector is chosen after the high byte of
// PC is pushed, so a push that lands on IE can cancel the interrupt; PC then
// becomes 0x0000.
func (c *CPU) dispatch() {
	c.IME = false
	c.tick()
	c.tick()
	pc := c.PC
	c.SP--
	c.bus.Write(c.SP, byte(pc>>8))
	c.tick()
	if p := c.pending(); p != 0 {
		bit := bits.TrailingZeros8(p)
		c.bus.AckInterrupt(bit)
		c.PC = 0x40 + uint16(bit)*8
	} else {
		c.PC = 0x0000
	}
	c.SP--
	c.bus.Write(c.SP, byte(pc))
	c.tick()
	c.tick()
}

func (c *CPU) fetch() byte {
	v := c.bus.Read(c.PC)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.PC++
	}
	c.tick()
	return v
}

func (c *CPU) execute() error {
	start := c.PC
	op := c.fetch()
	c.buf[0] = op
	n := operandCount(op)
	if illegal(op) {
		n = 0
	}
	for i := 1; i <= n; i++ {
		c.buf[i] = c.fetch()
	}
	ins, err := Decode(c.buf[:1+n])
	if err != nil {
		c.fault = &IllegalOpcodeError{PC: start, Opcode: op}
		return c.fault
	}
	c.ins = ins
	c.proc = newProcessor(c, ins)
	for !c.proc.Done() {
		a := c.proc.Next()
		if a.Do != nil {
			a.Do(c)
		}
		c.tick()
	}
	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.IME = true
		}
	}
	return nil
}

// halt enters low-power mode. With IME clear and an interrupt already
// pending the CPU keeps running and the next opcode byte is read twice;
// directly after EI it instead returns to the HALT once the interrupt is
// serviced.
func (c *CPU) halt() {
	switch {
	case c.IME || c.pending() == 0:
		c.halted = true
	case c.eiDelay == 1:
		c.PC--
	default:
		c.haltBug = true
	}
}

func (c *CPU) stop() { c.stopped = true }

type cpuState struct {
	A, F, B, C, D, E, H, L byte
	SP, PC                 uint16
	IME, Halted, Stopped   bool
	HaltBug                bool
	EIDelay                int
	FaultPC                uint16
	FaultOp                byte
	Faulted                bool
}

func (c *CPU) SaveState() []byte {
	st := cpuState{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		SP: c.SP, PC: c.PC,
		IME: c.IME, Halted: c.halted, Stopped: c.stopped,
		HaltBug: c.haltBug, EIDelay: c.eiDelay,
	}
	if e, ok := c.fault.(*IllegalOpcodeError); ok {
		st.Faulted, st.FaultPC, st.FaultOp = true, e.PC, e.Opcode
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(st)
	return buf.Bytes()
}

func (c *CPU) LoadState(data []byte) error {
	var st cpuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("cpu state: %w", err)
	}
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = st.A, st.F, st.B, st.C, st.D, st.E, st.H, st.L
	c.SP, c.PC = st.SP, st.PC
	c.IME, c.halted, c.stopped = st.IME, st.Halted, st.Stopped
	c.haltBug, c.eiDelay = st.HaltBug, st.EIDelay
	c.fault = nil
	if st.Faulted {
		c.fault = &IllegalOpcodeError{PC: st.FaultPC, Opcode: st.FaultOp}
	}
	return nil
}
