package cpu

import (
	"errors"
	"reflect"
	"testing"
)

// M-cycles per unprefixed opcode with conditions not taken. 0 marks opcodes
// checked elsewhere (STOP, HALT, CB, undefined).
var cycleTable = [256]int{
	1, 3, 2, 2, 1, 1, 2, 1, 5, 2, 2, 2, 1, 1, 2, 1,
	0, 3, 2, 2, 1, 1, 2, 1, 3, 2, 2, 2, 1, 1, 2, 1,
	2, 3, 2, 2, 1, 1, 2, 1, 2, 2, 2, 2, 1, 1, 2, 1,
	2, 3, 2, 2, 3, 3, 3, 1, 2, 2, 2, 2, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	2, 2, 2, 2, 2, 2, 0, 2, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	2, 3, 3, 4, 3, 4, 2, 4, 2, 4, 3, 0, 3, 6, 2, 4,
	2, 3, 3, 0, 3, 4, 2, 4, 2, 4, 3, 0, 3, 0, 2, 4,
	3, 3, 2, 0, 0, 4, 2, 4, 4, 1, 4, 0, 0, 0, 2, 4,
	3, 3, 2, 1, 0, 4, 2, 4, 3, 2, 4, 1, 0, 0, 2, 4,
}

func conditional(op byte) bool {
	switch op {
	case 0x20, 0x28, 0x30, 0x38,
		0xC0, 0xC8, 0xD0, 0xD8,
		0xC2, 0xCA, 0xD2, 0xDA,
		0xC4, 0xCC, 0xD4, 0xDC:
		return true
	}
	return false
}

// flagsFor returns an F value that makes the branch condition of op hold
// (taken) or fail.
func flagsFor(op byte, taken bool) byte {
	cc := op >> 3 & 3
	flag := byte(flagZ)
	if cc >= 2 {
		flag = flagC
	}
	// NZ and NC fail with their flag set, Z and C with it clear.
	set := cc&1 == 0
	if taken {
		set = !set
	}
	if set {
		return flag
	}
	return 0
}

func runOne(t *testing.T, code []byte, f byte) (*CPU, int) {
	t.Helper()
	c, _ := newCPUWithROM(nil)
	b := c.bus.(*testBus)
	copy(b.mem[0x0100:], code)
	c.PC = 0x0100
	c.F = f
	return c, step(t, c)
}

func TestCycleTableNotTaken(t *testing.T) {
	for op := 0; op < 256; op++ {
		want := cycleTable[op]
		if want == 0 {
			continue
		}
		var f byte
		if conditional(byte(op)) {
			f = flagsFor(byte(op), false)
		}
		if _, got := runOne(t, []byte{byte(op), 0, 0}, f); got != want {
			t.Errorf("opcode %02X: %d M-cycles, want %d", op, got, want)
		}
	}
}

func TestCycleTableTaken(t *testing.T) {
	want := map[byte]int{}
	for _, op := range []byte{0x20, 0x28, 0x30, 0x38} {
		want[op] = 3
	}
	for _, op := range []byte{0xC2, 0xCA, 0xD2, 0xDA} {
		want[op] = 4
	}
	for _, op := range []byte{0xC4, 0xCC, 0xD4, 0xDC} {
		want[op] = 6
	}
	for _, op := range []byte{0xC0, 0xC8, 0xD0, 0xD8} {
		want[op] = 5
	}
	for op, n := range want {
		if _, got := runOne(t, []byte{op, 0x00, 0x20}, flagsFor(op, true)); got != n {
			t.Errorf("opcode %02X taken: %d M-cycles, want %d", op, got, n)
		}
	}
}

func TestCycleTableCB(t *testing.T) {
	for op := 0; op < 256; op++ {
		want := 2
		if op&7 == 6 {
			want = 4
			if op>>6 == 1 {
				want = 3
			}
		}
		if _, got := runOne(t, []byte{0xCB, byte(op)}, 0); got != want {
			t.Errorf("CB %02X: %d M-cycles, want %d", op, got, want)
		}
	}
}

func TestBranchTargets(t *testing.T) {
	c, _ := runOne(t, []byte{0x20, 0x05}, 0)
	if c.PC != 0x0107 {
		t.Fatalf("JR NZ,+5 landed at %04X", c.PC)
	}
	c, _ = runOne(t, []byte{0xDA, 0x34, 0x12}, flagC)
	if c.PC != 0x1234 {
		t.Fatalf("JP C landed at %04X", c.PC)
	}
	c, _ = runOne(t, []byte{0xDA, 0x34, 0x12}, 0)
	if c.PC != 0x0103 {
		t.Fatalf("JP C not taken left PC at %04X", c.PC)
	}
}

func TestOperandCount(t *testing.T) {
	ones := []byte{0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E,
		0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE,
		0x18, 0x20, 0x28, 0x30, 0x38, 0xE0, 0xF0, 0xE8, 0xF8, 0xCB, 0x10}
	twos := []byte{0x01, 0x11, 0x21, 0x31, 0x08, 0xEA, 0xFA,
		0xC3, 0xC2, 0xCA, 0xD2, 0xDA, 0xCD, 0xC4, 0xCC, 0xD4, 0xDC}
	want := [256]int{}
	for _, op := range ones {
		want[op] = 1
	}
	for _, op := range twos {
		want[op] = 2
	}
	for op := 0; op < 256; op++ {
		if got := operandCount(byte(op)); got != want[op] {
			t.Fatalf("operandCount(%02X) = %d, want %d", op, got, want[op])
		}
	}
}

func TestDecode(t *testing.T) {
	ins, err := Decode([]byte{0x01, 0x34, 0x12})
	if err != nil || ins.Imm16() != 0x1234 || ins.Len != 3 || ins.CB {
		t.Fatalf("LD BC,d16: %+v %v", ins, err)
	}
	ins, err = Decode([]byte{0xCB, 0x11})
	if err != nil || !ins.CB || ins.Opcode != 0x11 || ins.Len != 2 {
		t.Fatalf("CB 11: %+v %v", ins, err)
	}
	for _, op := range []byte{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		if _, err := Decode([]byte{op}); !errors.Is(err, ErrIllegalOpcode) {
			t.Fatalf("Decode(%02X) = %v, want ErrIllegalOpcode", op, err)
		}
	}
	if _, err := Decode([]byte{0xC3, 0x00}); err == nil {
		t.Fatalf("short operand slice accepted")
	}
}

func TestProcessorShapes(t *testing.T) {
	c, _ := newCPUWithROM(nil)
	cases := []struct {
		code  []byte
		flags byte
		want  []ActionKind
	}{
		{[]byte{0x00}, 0, []ActionKind{}},
		{[]byte{0x7E}, 0, []ActionKind{Read}},
		{[]byte{0x77}, 0, []ActionKind{Write}},
		{[]byte{0x34}, 0, []ActionKind{Read, Write}},
		{[]byte{0xC5}, 0, []ActionKind{Internal, Write, Write}},
		{[]byte{0xC1}, 0, []ActionKind{Read, Read}},
		{[]byte{0xC9}, 0, []ActionKind{Read, Read, Internal}},
		{[]byte{0xCD, 0, 0}, 0, []ActionKind{Internal, Write, Write}},
		{[]byte{0xC4, 0, 0}, flagZ, []ActionKind{}},
		{[]byte{0xC0}, flagZ, []ActionKind{Internal}},
		{[]byte{0xC0}, 0, []ActionKind{Internal, Read, Read, Internal}},
		{[]byte{0x08, 0, 0}, 0, []ActionKind{Write, Write}},
		{[]byte{0xE8, 0}, 0, []ActionKind{Internal, Internal}},
		{[]byte{0xCB, 0x46}, 0, []ActionKind{Read}},
		{[]byte{0xCB, 0x86}, 0, []ActionKind{Read, Write}},
	}
	for _, tc := range cases {
		ins, err := Decode(tc.code)
		if err != nil {
			t.Fatalf("decode % X: %v", tc.code, err)
		}
		c.F = tc.flags
		c.ins = ins
		p := newProcessor(c, ins)
		if got := p.Kinds(); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("% X: actions %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestDisassemble(t *testing.T) {
	cases := []struct {
		addr uint16
		code []byte
		want string
		n    int
	}{
		{0x0000, []byte{0x00}, "NOP", 1},
		{0x0000, []byte{0x3E, 0x12}, "LD A,$12", 2},
		{0x0000, []byte{0xC3, 0x50, 0x01}, "JP $0150", 3},
		{0x0100, []byte{0x18, 0xFE}, "JR $0100", 2},
		{0x0000, []byte{0x20, 0x05}, "JR NZ,$0007", 2},
		{0x0000, []byte{0xCB, 0x7E}, "BIT 7,(HL)", 2},
		{0x0000, []byte{0xCB, 0x37}, "SWAP A", 2},
		{0x0000, []byte{0xE0, 0x80}, "LDH ($FF00+$80),A", 2},
		{0x0000, []byte{0xF8, 0xFF}, "LD HL,SP-1", 2},
		{0x0000, []byte{0xE8, 0x02}, "ADD SP,2", 2},
		{0x0000, []byte{0x22}, "LD (HL+),A", 1},
		{0x0000, []byte{0xF5}, "PUSH AF", 1},
		{0x0000, []byte{0xFF}, "RST $38", 1},
		{0x0000, []byte{0x76}, "HALT", 1},
		{0x0000, []byte{0x10, 0x00}, "STOP", 2},
		{0x0000, []byte{0x96}, "SUB (HL)", 1},
		{0x0000, []byte{0xD9}, "RETI", 1},
		{0x0000, []byte{0xD3}, "DB $D3", 1},
	}
	for _, tc := range cases {
		mem := map[uint16]byte{}
		for i, b := range tc.code {
			mem[tc.addr+uint16(i)] = b
		}
		got, n := Disassemble(func(a uint16) byte { return mem[a] }, tc.addr)
		if got != tc.want || n != tc.n {
			t.Errorf("% X: got %q/%d, want %q/%d", tc.code, got, n, tc.want, tc.n)
		}
	}
}
