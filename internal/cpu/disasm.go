package cpu

import "fmt"

var (
	r8Names    = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	r16Names   = [4]string{"BC", "DE", "HL", "SP"}
	stackNames = [4]string{"BC", "DE", "HL", "AF"}
	condNames  = [4]string{"NZ", "Z", "NC", "C"}
	aluNames   = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	rotNames   = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
	indNames   = [4]string{"(BC)", "(DE)", "(HL+)", "(HL-)"}
	accNames   = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
)

// Disassemble decodes the instruction at addr and returns its mnemonic and
// length in bytes. Relative jumps are shown with their absolute target.
func Disassemble(read func(uint16) byte, addr uint16) (string, int) {
	op := read(addr)
	n := operandCount(op)
	raw := []byte{op, 0, 0}
	for i := 1; i <= n; i++ {
		raw[i] = read(addr + uint16(i))
	}
	if illegal(op) {
		return fmt.Sprintf("DB $%02X", op), 1
	}
	ins, err := Decode(raw[:1+n])
	if err != nil {
		return fmt.Sprintf("DB $%02X", op), 1
	}
	return mnemonic(ins, addr), ins.Len
}

func mnemonic(ins Instruction, addr uint16) string {
	x, y, z, p := ins.x(), ins.y(), ins.z(), ins.p()
	d8 := fmt.Sprintf("$%02X", ins.Imm8())
	d16 := fmt.Sprintf("$%04X", ins.Imm16())
	rel := fmt.Sprintf("$%04X", addr+2+uint16(int8(ins.Imm8())))

	if ins.CB {
		switch x {
		case 0:
			return rotNames[y] + " " + r8Names[z]
		case 1:
			return fmt.Sprintf("BIT %d,%s", y, r8Names[z])
		case 2:
			return fmt.Sprintf("RES %d,%s", y, r8Names[z])
		}
		return fmt.Sprintf("SET %d,%s", y, r8Names[z])
	}

	switch x {
	case 1:
		if ins.Opcode == 0x76 {
			return "HALT"
		}
		return "LD " + r8Names[y] + "," + r8Names[z]
	case 2:
		return aluNames[y] + r8Names[z]
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				return "NOP"
			case 1:
				return "LD (" + d16 + "),SP"
			case 2:
				return "STOP"
			case 3:
				return "JR " + rel
			}
			return "JR " + condNames[y-4] + "," + rel
		case 1:
			if y&1 == 0 {
				return "LD " + r16Names[p] + "," + d16
			}
			return "ADD HL," + r16Names[p]
		case 2:
			if y&1 == 0 {
				return "LD " + indNames[p] + ",A"
			}
			return "LD A," + indNames[p]
		case 3:
			if y&1 == 0 {
				return "INC " + r16Names[p]
			}
			return "DEC " + r16Names[p]
		case 4:
			return "INC " + r8Names[y]
		case 5:
			return "DEC " + r8Names[y]
		case 6:
			return "LD " + r8Names[y] + "," + d8
		}
		return accNames[y]
	}

	switch z {
	case 0:
		switch y {
		case 4:
			return "LDH ($FF00+" + d8 + "),A"
		case 5:
			return "ADD SP," + signed(ins.Imm8())
		case 6:
			return "LDH A,($FF00+" + d8 + ")"
		case 7:
			return "LD HL,SP" + signedOffset(ins.Imm8())
		}
		return "RET " + condNames[y]
	case 1:
		if y&1 == 0 {
			return "POP " + stackNames[p]
		}
		return [4]string{"RET", "RETI", "JP HL", "LD SP,HL"}[p]
	case 2:
		switch y {
		case 4:
			return "LD ($FF00+C),A"
		case 5:
			return "LD (" + d16 + "),A"
		case 6:
			return "LD A,($FF00+C)"
		case 7:
			return "LD A,(" + d16 + ")"
		}
		return "JP " + condNames[y] + "," + d16
	case 3:
		switch y {
		case 0:
			return "JP " + d16
		case 6:
			return "DI"
		case 7:
			return "EI"
		}
	case 4:
		return "CALL " + condNames[y] + "," + d16
	case 5:
		if y&1 == 0 {
			return "PUSH " + stackNames[p]
		}
		return "CALL " + d16
	case 6:
		return aluNames[y] + d8
	case 7:
		return fmt.Sprintf("RST $%02X", y*8)
	}
	return fmt.Sprintf("DB $%02X", ins.Opcode)
}

func signed(v byte) string {
	if int8(v) < 0 {
		return fmt.Sprintf("-%d", -int(int8(v)))
	}
	return fmt.Sprintf("%d", int8(v))
}

func signedOffset(v byte) string {
	if int8(v) < 0 {
		return signed(v)
	}
	return "+" + signed(v)
}
