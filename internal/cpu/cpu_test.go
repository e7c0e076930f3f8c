package cpu

import (
	"errors"
	"testing"
)

// testBus is a flat 64 KiB memory. IF lives at FF0F and IE at FFFF.
type testBus struct {
	mem     [0x10000]byte
	ticks   int
	frameAt int
}

func (b *testBus) Read(addr uint16) byte     { return b.mem[addr] }
func (b *testBus) Write(addr uint16, v byte) { b.mem[addr] = v }
func (b *testBus) Tick() bool {
	b.ticks++
	return b.frameAt != 0 && b.ticks == b.frameAt
}
func (b *testBus) Interrupts() (ie, iflag byte) { return b.mem[0xFFFF], b.mem[0xFF0F] & 0x1F }
func (b *testBus) AckInterrupt(bit int)         { b.mem[0xFF0F] &^= 1 << bit }

func newCPUWithROM(code []byte) (*CPU, *testBus) {
	b := &testBus{}
	copy(b.mem[:], code)
	c := New(b)
	c.SP = 0xFFFE
	return c, b
}

func step(t *testing.T, c *CPU) int {
	t.Helper()
	n, _, err := c.Step()
	if err != nil {
		t.Fatalf("Step at %04X: %v", c.PC, err)
	}
	return n
}

func TestCPU_NopAndPC(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x00})
	if cycles := step(t, c); cycles != 1 {
		t.Fatalf("NOP cycles got %d want 1", cycles)
	}
	if c.PC != 1 {
		t.Fatalf("PC after NOP got %#04x want 0x0001", c.PC)
	}
}

func TestCPU_NopSlide(t *testing.T) {
	c, b := newCPUWithROM(nil)
	c.PC = 0x0100
	total := 0
	for i := 0; i < 10; i++ {
		total += step(t, c)
	}
	if total != 10 || b.ticks != 10 || c.PC != 0x010A {
		t.Fatalf("10 NOPs: cycles=%d ticks=%d PC=%04X", total, b.ticks, c.PC)
	}
}

func TestCPU_LD_A_d8_And_XOR_A(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x3E, 0x12, 0xAF}) // LD A,0x12; XOR A
	step(t, c)
	if c.A != 0x12 {
		t.Fatalf("A after LD got %02x want 12", c.A)
	}
	step(t, c)
	if c.A != 0x00 {
		t.Fatalf("A after XOR got %02x want 00", c.A)
	}
	if c.F&flagZ == 0 {
		t.Fatalf("Z flag not set after XOR A")
	}
}

func TestCPU_LD_a16_A_and_LD_A_a16(t *testing.T) {
	// LD A,0x77; LD (0xC000),A; LD A,0x00; LD A,(0xC000)
	c, b := newCPUWithROM([]byte{0x3E, 0x77, 0xEA, 0x00, 0xC0, 0x3E, 0x00, 0xFA, 0x00, 0xC0})
	step(t, c)
	if n := step(t, c); n != 4 || b.mem[0xC000] != 0x77 {
		t.Fatalf("LD (a16),A: cycles=%d mem=%02X", n, b.mem[0xC000])
	}
	step(t, c)
	if n := step(t, c); n != 4 || c.A != 0x77 {
		t.Fatalf("LD A,(a16): cycles=%d A=%02X", n, c.A)
	}
}

func TestCPU_JP_and_JR(t *testing.T) {
	code := make([]byte, 0x20)
	copy(code, []byte{0xC3, 0x10, 0x00}) // JP 0x0010
	code[0x10], code[0x11] = 0x18, 0xFE  // JR -2
	c, _ := newCPUWithROM(code)
	if n := step(t, c); n != 4 || c.PC != 0x0010 {
		t.Fatalf("JP cycles=%d PC=%#04x want cycles=4 PC=0x0010", n, c.PC)
	}
	if n := step(t, c); n != 3 || c.PC != 0x0010 {
		t.Fatalf("JR -2 cycles=%d PC=%#04x", n, c.PC)
	}
}

func TestCPU_INC_B_Flags(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x04, 0x04})
	c.B = 0x0F
	c.F = flagC
	step(t, c)
	if c.B != 0x10 || c.F&flagH == 0 || c.F&flagC == 0 {
		t.Fatalf("INC B: B=%02X F=%02X", c.B, c.F)
	}
	c.B = 0xFF
	step(t, c)
	if c.B != 0x00 || c.F&flagZ == 0 {
		t.Fatalf("INC B to 0 should set Z flag, B=%02x, F=%02x", c.B, c.F)
	}
}

func TestCPU_INC_DEC_HL_Indirect(t *testing.T) {
	c, b := newCPUWithROM([]byte{0x21, 0x00, 0xC0, 0x34, 0x35, 0x35})
	b.mem[0xC000] = 0x0F
	step(t, c)
	if n := step(t, c); n != 3 || b.mem[0xC000] != 0x10 || c.F&flagH == 0 {
		t.Fatalf("INC (HL): cycles=%d mem=%02X F=%02X", n, b.mem[0xC000], c.F)
	}
	step(t, c)
	step(t, c)
	if b.mem[0xC000] != 0x0E || c.F&flagN == 0 {
		t.Fatalf("DEC (HL): mem=%02X F=%02X", b.mem[0xC000], c.F)
	}
}

func TestCPU_LD_16bit_and_LDH(t *testing.T) {
	c, b := newCPUWithROM([]byte{
		0x21, 0x00, 0xC0, // LD HL,C000
		0x36, 0x5A,       // LD (HL),5A
		0x3E, 0x00,       // LD A,00
		0xF0, 0x80,       // LDH A,(FF80)
		0xE0, 0x81,       // LDH (FF81),A
		0x0E, 0x82,       // LD C,82
		0xE2,             // LD (FF00+C),A
	})
	b.mem[0xFF80] = 0xA7
	for i := 0; i < 7; i++ {
		step(t, c)
	}
	if b.mem[0xC000] != 0x5A {
		t.Fatalf("WRAM C000 got %02x want 5A", b.mem[0xC000])
	}
	if b.mem[0xFF81] != 0xA7 || b.mem[0xFF82] != 0xA7 {
		t.Fatalf("LDH writes got %02X %02X want A7", b.mem[0xFF81], b.mem[0xFF82])
	}
}

func TestCPU_LDI_LDD(t *testing.T) {
	c, b := newCPUWithROM([]byte{0x22, 0x32, 0x2A})
	c.setHL(0xC000)
	c.A = 0x11
	step(t, c)
	step(t, c)
	if b.mem[0xC000] != 0x11 || b.mem[0xC001] != 0x11 || c.getHL() != 0xC000 {
		t.Fatalf("LD (HL+)/(HL-): mem=%02X %02X HL=%04X", b.mem[0xC000], b.mem[0xC001], c.getHL())
	}
	b.mem[0xC000] = 0x99
	step(t, c)
	if c.A != 0x99 || c.getHL() != 0xC001 {
		t.Fatalf("LD A,(HL+): A=%02X HL=%04X", c.A, c.getHL())
	}
}

func TestCPU_CALL_RET(t *testing.T) {
	code := make([]byte, 8)
	code[0], code[1], code[2] = 0xCD, 0x05, 0x00 // CALL 0005
	code[5] = 0xC9                               // RET
	c, b := newCPUWithROM(code)
	if n := step(t, c); n != 6 || c.PC != 0x0005 {
		t.Fatalf("CALL cycles=%d PC=%04X", n, c.PC)
	}
	if c.SP != 0xFFFC || b.mem[0xFFFD] != 0x00 || b.mem[0xFFFC] != 0x03 {
		t.Fatalf("CALL pushed wrong return address: SP=%04X %02X%02X", c.SP, b.mem[0xFFFD], b.mem[0xFFFC])
	}
	if n := step(t, c); c.PC != 0x0003 || n != 4 {
		t.Fatalf("RET did not return to 0003; PC=%04x cyc=%d", c.PC, n)
	}
}

func TestCPU_PushPopAndRST(t *testing.T) {
	c, b := newCPUWithROM([]byte{0xC5, 0xD1, 0xEF})
	c.setBC(0xBEEF)
	step(t, c)
	if b.mem[0xFFFD] != 0xBE || b.mem[0xFFFC] != 0xEF {
		t.Fatalf("PUSH BC stored %02X%02X", b.mem[0xFFFD], b.mem[0xFFFC])
	}
	step(t, c)
	if c.getDE() != 0xBEEF || c.SP != 0xFFFE {
		t.Fatalf("POP DE: DE=%04X SP=%04X", c.getDE(), c.SP)
	}
	if n := step(t, c); n != 4 || c.PC != 0x0028 {
		t.Fatalf("RST 28: cycles=%d PC=%04X", n, c.PC)
	}
}

func TestCPU_InterruptDispatch(t *testing.T) {
	c, b := newCPUWithROM(nil)
	c.PC = 0x0100
	c.IME = true
	b.mem[0xFFFF] = 0x05 // VBlank | Timer
	b.mem[0xFF0F] = 0x04 // Timer
	n := step(t, c)
	if n != 5 {
		t.Fatalf("expected 5 M-cycles for interrupt dispatch, got %d", n)
	}
	if c.PC != 0x0050 {
		t.Fatalf("expected PC at 0x0050 vector, got %04X", c.PC)
	}
	if c.IME {
		t.Fatal("IME should be cleared after dispatch")
	}
	if b.mem[0xFF0F]&0x04 != 0 {
		t.Fatalf("IF bit not acknowledged")
	}
	if b.mem[0xFFFD] != 0x01 || b.mem[0xFFFC] != 0x00 || c.SP != 0xFFFC {
		t.Fatalf("return address not pushed")
	}
}

func TestCPU_InterruptPriority(t *testing.T) {
	c, b := newCPUWithROM(nil)
	c.IME = true
	b.mem[0xFFFF] = 0x1F
	b.mem[0xFF0F] = 0x1A // STAT, Serial, Joypad
	step(t, c)
	if c.PC != 0x0048 || b.mem[0xFF0F] != 0x18 {
		t.Fatalf("STAT should win: PC=%04X IF=%02X", c.PC, b.mem[0xFF0F])
	}
}

func TestCPU_DispatchPushOverwritesIE(t *testing.T) {
	c, b := newCPUWithROM(nil)
	c.PC = 0x1234
	c.SP = 0x0000
	c.IME = true
	b.mem[0xFFFF] = 0x01
	b.mem[0xFF0F] = 0x01
	if n := step(t, c); n != 5 {
		t.Fatalf("dispatch took %d cycles", n)
	}
	if c.PC != 0x0000 {
		t.Fatalf("cancelled dispatch should jump to 0000, got %04X", c.PC)
	}
	if b.mem[0xFF0F] != 0x01 {
		t.Fatalf("cancelled interrupt must stay requested, IF=%02X", b.mem[0xFF0F])
	}
	if b.mem[0xFFFF] != 0x12 || b.mem[0xFFFE] != 0x34 {
		t.Fatalf("pushed bytes wrong: %02X %02X", b.mem[0xFFFF], b.mem[0xFFFE])
	}

	// The high byte keeps bit 0 set: VBlank still pending.
	c, b = newCPUWithROM(nil)
	c.PC = 0x0134
	c.SP = 0x0000
	c.IME = true
	b.mem[0xFFFF] = 0x01
	b.mem[0xFF0F] = 0x01
	step(t, c)
	if c.PC != 0x0040 {
		t.Fatalf("dispatch should proceed when IE keeps the bit, PC=%04X", c.PC)
	}
}

func TestCPU_HALT_WaitsForInterrupt(t *testing.T) {
	c, b := newCPUWithROM([]byte{0x76, 0x3C})
	if n := step(t, c); n != 1 || !c.Halted() {
		t.Fatalf("HALT: cycles=%d halted=%v", n, c.Halted())
	}
	for i := 0; i < 3; i++ {
		if n := step(t, c); n != 1 || c.PC != 1 {
			t.Fatalf("halted step: cycles=%d PC=%04X", n, c.PC)
		}
	}
	b.mem[0xFFFF] = 0x02
	b.mem[0xFF0F] = 0x02
	step(t, c)
	if c.Halted() || c.A != 1 || c.PC != 2 {
		t.Fatalf("HALT with IME=0 should wake and continue: halted=%v A=%d PC=%04X", c.Halted(), c.A, c.PC)
	}
	if b.mem[0xFF0F] != 0x02 {
		t.Fatalf("wake without IME must not acknowledge")
	}
}

func TestCPU_HALT_WithIMEDispatches(t *testing.T) {
	c, b := newCPUWithROM([]byte{0x76})
	c.IME = true
	b.mem[0xFFFF] = 0x01
	step(t, c)
	b.mem[0xFF0F] = 0x01
	if n := step(t, c); n != 5 || c.PC != 0x0040 {
		t.Fatalf("wake from HALT: cycles=%d PC=%04X", n, c.PC)
	}
	if b.mem[0xFFFC] != 0x01 {
		t.Fatalf("return address should be after HALT, got %02X", b.mem[0xFFFC])
	}
}

func TestCPU_HALT_Bug(t *testing.T) {
	code := make([]byte, 0x200)
	copy(code[0x100:], []byte{0x76, 0x3C, 0x00}) // HALT; INC A; NOP
	c, b := newCPUWithROM(code)
	c.PC = 0x0100
	b.mem[0xFFFF] = 0x04
	b.mem[0xFF0F] = 0x04
	for i := 0; i < 3; i++ {
		step(t, c)
	}
	if c.A != 2 || c.PC != 0x0102 {
		t.Fatalf("HALT bug: A=%d PC=%04X, want A=2 PC=0102", c.A, c.PC)
	}
	if c.Halted() {
		t.Fatalf("CPU must not halt with IME=0 and a pending interrupt")
	}
}

func TestCPU_EI_HALT_ReturnsToHALT(t *testing.T) {
	c, b := newCPUWithROM([]byte{0xFB, 0x76, 0x00})
	b.mem[0xFFFF] = 0x01
	b.mem[0xFF0F] = 0x01
	step(t, c) // EI
	step(t, c) // HALT
	if !c.IME || c.PC != 0x0001 {
		t.Fatalf("after EI;HALT: IME=%v PC=%04X", c.IME, c.PC)
	}
	step(t, c)
	if c.PC != 0x0040 || b.mem[0xFFFC] != 0x01 || b.mem[0xFFFD] != 0x00 {
		t.Fatalf("interrupt should return onto HALT: PC=%04X ret=%02X%02X", c.PC, b.mem[0xFFFD], b.mem[0xFFFC])
	}
}

func TestCPU_EI_DelayedEnable(t *testing.T) {
	c, b := newCPUWithROM([]byte{0xFB, 0x00, 0x00})
	b.mem[0xFFFF] = 0x01
	b.mem[0xFF0F] = 0x01
	step(t, c)
	if c.IME {
		t.Fatalf("IME should not be enabled immediately after EI")
	}
	step(t, c) // NOP runs before the interrupt
	if !c.IME || c.PC != 0x0002 {
		t.Fatalf("IME should be set after the instruction following EI: IME=%v PC=%04X", c.IME, c.PC)
	}
	if n := step(t, c); c.PC != 0x0040 || n != 5 {
		t.Fatalf("interrupt not serviced after EI delay; PC=%04X cyc=%d", c.PC, n)
	}
	if b.mem[0xFFFC] != 0x02 {
		t.Fatalf("pushed PC %02X, want 02", b.mem[0xFFFC])
	}
}

func TestCPU_EI_DI_Cancels(t *testing.T) {
	c, b := newCPUWithROM([]byte{0xFB, 0xF3, 0x00, 0x00})
	b.mem[0xFFFF] = 0x01
	b.mem[0xFF0F] = 0x01
	for i := 0; i < 3; i++ {
		step(t, c)
	}
	if c.IME || c.PC != 0x0003 {
		t.Fatalf("DI after EI should keep IME clear: IME=%v PC=%04X", c.IME, c.PC)
	}
}

func TestCPU_STOP_WaitsForJoypad(t *testing.T) {
	c, b := newCPUWithROM([]byte{0x10, 0x00, 0x00})
	if n := step(t, c); n != 2 || c.PC != 0x0002 {
		t.Fatalf("STOP cycles=%d PC=%04X", n, c.PC)
	}
	if n := step(t, c); n != 1 || c.PC != 0x0002 {
		t.Fatalf("stopped step: cycles=%d PC=%04X", n, c.PC)
	}
	b.mem[0xFF0F] = 0x01 // VBlank does not wake STOP
	step(t, c)
	if c.PC != 0x0002 {
		t.Fatalf("STOP woke on a non-joypad interrupt")
	}
	b.mem[0xFF0F] = 0x10
	step(t, c)
	if c.PC != 0x0003 {
		t.Fatalf("STOP did not wake on joypad request, PC=%04X", c.PC)
	}
}

func TestCPU_IllegalOpcodeLocksUp(t *testing.T) {
	c, b := newCPUWithROM([]byte{0xDD})
	n, _, err := c.Step()
	if !errors.Is(err, ErrIllegalOpcode) {
		t.Fatalf("got %v, want ErrIllegalOpcode", err)
	}
	var ie *IllegalOpcodeError
	if !errors.As(err, &ie) || ie.PC != 0 || ie.Opcode != 0xDD {
		t.Fatalf("error details wrong: %v", err)
	}
	if n != 1 {
		t.Fatalf("illegal fetch took %d cycles", n)
	}
	ticks := b.ticks
	n, _, err2 := c.Step()
	if err2 != err || n != 1 || b.ticks != ticks+1 || c.PC != 1 {
		t.Fatalf("locked CPU: err=%v n=%d ticks=%d PC=%04X", err2, n, b.ticks-ticks, c.PC)
	}
}

func TestCPU_FrameReported(t *testing.T) {
	c, b := newCPUWithROM([]byte{0xCD, 0x00, 0x10})
	b.frameAt = 4
	_, frame, err := c.Step()
	if err != nil || !frame {
		t.Fatalf("frame completion during CALL not reported: frame=%v err=%v", frame, err)
	}
	_, frame, _ = c.Step()
	if frame {
		t.Fatalf("frame reported twice")
	}
}

func TestCPU_DAA_AddAndSub(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x3E, 0x45, 0xC6, 0x38, 0x27, 0x3E, 0x45, 0xD6, 0x06, 0x27})
	step(t, c)
	step(t, c)
	step(t, c)
	if c.A != 0x83 || c.F != 0 {
		t.Fatalf("DAA after add got A=%02X F=%02X want 83/00", c.A, c.F)
	}
	step(t, c)
	step(t, c)
	step(t, c)
	if c.A != 0x39 || c.F&flagN == 0 {
		t.Fatalf("DAA after sub got A=%02X F=%02X", c.A, c.F)
	}
}

func TestCPU_CB_Prefix_CyclesAndBehavior(t *testing.T) {
	c, b := newCPUWithROM([]byte{
		0x21, 0x00, 0xC0, // LD HL,C000
		0x36, 0x80,       // LD (HL),80
		0xCB, 0x7E,       // BIT 7,(HL)
		0xCB, 0xBE,       // RES 7,(HL)
		0xCB, 0xC6,       // SET 0,(HL)
		0xCB, 0x00,       // RLC B
		0xCB, 0x37,       // SWAP A
	})
	step(t, c)
	step(t, c)
	if n := step(t, c); n != 3 || c.F&flagZ != 0 {
		t.Fatalf("BIT 7,(HL) cycles/Z got cyc=%d F=%02X", n, c.F)
	}
	if n := step(t, c); n != 4 || b.mem[0xC000] != 0x00 {
		t.Fatalf("RES 7,(HL) got cyc=%d mem=%02X", n, b.mem[0xC000])
	}
	if n := step(t, c); n != 4 || b.mem[0xC000] != 0x01 {
		t.Fatalf("SET 0,(HL) got cyc=%d mem=%02X", n, b.mem[0xC000])
	}
	c.B = 0x80
	if n := step(t, c); n != 2 || c.B != 0x01 || c.F&flagC == 0 {
		t.Fatalf("RLC B got cyc=%d B=%02X F=%02X", n, c.B, c.F)
	}
	c.A = 0xA5
	step(t, c)
	if c.A != 0x5A || c.F != 0 {
		t.Fatalf("SWAP A got A=%02X F=%02X", c.A, c.F)
	}
}

func TestCPU_ADD_HL_FlagsAndCarry(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x09, 0x09})
	c.setHL(0x0FFF)
	c.setBC(0x0001)
	c.F = flagZ
	if n := step(t, c); n != 2 {
		t.Fatalf("ADD HL,BC took %d cycles", n)
	}
	if c.getHL() != 0x1000 || c.F != flagZ|flagH {
		t.Fatalf("ADD HL,BC #1 HL=%04X F=%02X", c.getHL(), c.F)
	}
	c.setHL(0xFFFF)
	c.F = 0
	step(t, c)
	if c.getHL() != 0x0000 || c.F != flagH|flagC {
		t.Fatalf("ADD HL,BC #2 HL=%04X F=%02X", c.getHL(), c.F)
	}
}

func TestCPU_16bit_INC_DEC_DoNotAffectFlags(t *testing.T) {
	code := []byte{0x03, 0x0B, 0x23, 0x2B, 0x13, 0x1B, 0x33, 0x3B}
	c, _ := newCPUWithROM(code)
	c.F = 0xF0
	for range code {
		if n := step(t, c); n != 2 || c.F != 0xF0 {
			t.Fatalf("16-bit INC/DEC: cycles=%d F=%02X", n, c.F)
		}
	}
	if c.SP != 0xFFFE || c.getBC() != 0 {
		t.Fatalf("INC/DEC pairs did not cancel")
	}
}

func TestCPU_ADC_SBC_HalfCarry(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x3E, 0x0F, 0xCE, 0x00, 0x3E, 0x10, 0xDE, 0x01, 0x3E, 0x00, 0xDE, 0x01})
	c.F = flagC
	step(t, c)
	step(t, c)
	if c.A != 0x10 || c.F&flagH == 0 || c.F&flagC != 0 {
		t.Fatalf("ADC half-carry failed: A=%02X F=%02X", c.A, c.F)
	}
	step(t, c)
	step(t, c)
	if c.A != 0x0F || c.F&flagH == 0 || c.F&flagC != 0 {
		t.Fatalf("SBC half-borrow failed: A=%02X F=%02X", c.A, c.F)
	}
	step(t, c)
	step(t, c)
	if c.A != 0xFF || c.F&flagH == 0 || c.F&flagC == 0 {
		t.Fatalf("SBC borrow flags failed: A=%02X F=%02X", c.A, c.F)
	}
}

func TestCPU_LD_HL_SP_plus_r8_and_ADD_SP_r8_Flags(t *testing.T) {
	c, _ := newCPUWithROM([]byte{
		0x31, 0x0F, 0xFF, // LD SP,FF0F
		0xF8, 0xFF,       // LD HL,SP-1
		0xE8, 0x01,       // ADD SP,+1
		0xE8, 0xFE,       // ADD SP,-2
	})
	step(t, c)
	if n := step(t, c); n != 3 || c.getHL() != 0xFF0E || c.F != flagH|flagC {
		t.Fatalf("LD HL,SP-1: cycles=%d HL=%04X F=%02X", n, c.getHL(), c.F)
	}
	if n := step(t, c); n != 4 || c.SP != 0xFF10 || c.F != flagH {
		t.Fatalf("ADD SP,+1: cycles=%d SP=%04X F=%02X", n, c.SP, c.F)
	}
	step(t, c)
	if c.SP != 0xFF0E || c.F != flagC {
		t.Fatalf("ADD SP,-2 flags/SP wrong: SP=%04X F=%02X", c.SP, c.F)
	}
}

func TestCPU_LD_a16_SP(t *testing.T) {
	c, b := newCPUWithROM([]byte{0x08, 0x00, 0xC1})
	c.SP = 0xABCD
	if n := step(t, c); n != 5 || b.mem[0xC100] != 0xCD || b.mem[0xC101] != 0xAB {
		t.Fatalf("LD (a16),SP: cycles=%d mem=%02X %02X", n, b.mem[0xC100], b.mem[0xC101])
	}
}

func TestCPU_POP_AF_MasksFlagsLowNibble(t *testing.T) {
	c, b := newCPUWithROM([]byte{0xF5, 0xF1})
	c.A, c.F = 0x12, 0xF0
	step(t, c)
	b.mem[c.SP] = 0x3F
	b.mem[c.SP+1] = 0x34
	step(t, c)
	if c.A != 0x34 || c.F != 0x30 {
		t.Fatalf("POP AF: A=%02X F=%02X want 34/30", c.A, c.F)
	}
}

func TestCPU_UnprefixedRotates_ClearZ(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x07, 0x0F, 0x17, 0x1F})
	c.A = 0x00
	for i, f := range []byte{flagZ, flagZ, flagZ | flagC, flagC} {
		c.F = f
		step(t, c)
		if c.F&flagZ != 0 {
			t.Fatalf("rotate %d should clear Z, F=%02X", i, c.F)
		}
	}
}

func TestCPU_CCF_SCF_CPL_Flags(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x3E, 0x00, 0x37, 0x3F, 0x2F})
	c.F = flagZ
	step(t, c)
	step(t, c)
	if c.F != flagZ|flagC {
		t.Fatalf("SCF flags unexpected F=%02X", c.F)
	}
	step(t, c)
	if c.F != flagZ {
		t.Fatalf("CCF flags unexpected F=%02X", c.F)
	}
	step(t, c)
	if c.A != 0xFF || c.F != flagZ|flagN|flagH {
		t.Fatalf("CPL A=%02X F=%02X", c.A, c.F)
	}
}

func TestCPU_RETI_EnablesIME_AndCycles(t *testing.T) {
	code := make([]byte, 0x100)
	code[0x40] = 0xD9
	c, b := newCPUWithROM(code)
	c.PC = 0x0080
	c.IME = true
	b.mem[0xFFFF] = 0x01
	b.mem[0xFF0F] = 0x01
	if n := step(t, c); n != 5 || c.PC != 0x0040 || c.IME {
		t.Fatalf("dispatch: cyc=%d PC=%04X IME=%v", n, c.PC, c.IME)
	}
	if n := step(t, c); n != 4 || !c.IME || c.PC != 0x0080 {
		t.Fatalf("RETI: cyc=%d IME=%v PC=%04X", n, c.IME, c.PC)
	}
}

func TestCPU_LD_r_from_HL(t *testing.T) {
	var code []byte
	for _, op := range []byte{0x46, 0x4E, 0x56, 0x5E, 0x66, 0x6E, 0x7E} {
		code = append(code, 0x21, 0x00, 0xC0, op)
	}
	c, b := newCPUWithROM(code)
	b.mem[0xC000] = 0x5A
	regs := []*byte{&c.B, &c.C, &c.D, &c.E, &c.H, &c.L, &c.A}
	for i, r := range regs {
		if n := step(t, c); n != 3 || c.getHL() != 0xC000 {
			t.Fatalf("LD HL,d16 #%d: cyc=%d HL=%04X", i, n, c.getHL())
		}
		if n := step(t, c); n != 2 || *r != 0x5A {
			t.Fatalf("LD r,(HL) #%d: cyc=%d r=%02X", i, n, *r)
		}
	}
}

func TestCPU_SaveLoadState(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0xFB, 0x3E, 0x42})
	step(t, c)
	step(t, c)
	data := c.SaveState()
	d, _ := newCPUWithROM(nil)
	if err := d.LoadState(data); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if d.Registers() != c.Registers() {
		t.Fatalf("registers differ: %v vs %v", d.Registers(), c.Registers())
	}
}
