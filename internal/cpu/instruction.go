package cpu

import (
	"errors"
	"fmt"
)

// ErrIllegalOpcode is returned for the eleven opcodes the SM83 leaves
// undefined. Hardware locks up on them; so does the CPU here.
var ErrIllegalOpcode = errors.New("illegal opcode")

// IllegalOpcodeError records where the CPU locked up.
type IllegalOpcodeError struct {
	PC     uint16
	Opcode byte
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode %02X at %04X", e.Opcode, e.PC)
}

func (e *IllegalOpcodeError) Unwrap() error { return ErrIllegalOpcode }

// Instruction is one decoded opcode with its immediate operands. For CB
// instructions Opcode holds the byte after the prefix.
type Instruction struct {
	Opcode   byte
	CB       bool
	Operands [2]byte
	Len      int // total bytes including opcode (and prefix)
}

func (i Instruction) Imm8() byte    { return i.Operands[0] }
func (i Instruction) Imm16() uint16 { return uint16(i.Operands[1])<<8 | uint16(i.Operands[0]) }

// x, y, z, p and q are the usual opcode bit fields: xx yyy zzz, y = ppq.
func (i Instruction) x() byte { return i.Opcode >> 6 }
func (i Instruction) y() byte { return i.Opcode >> 3 & 7 }
func (i Instruction) z() byte { return i.Opcode & 7 }
func (i Instruction) p() byte { return i.Opcode >> 4 & 3 }

func illegal(op byte) bool {
	switch op {
	case 0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD:
		return true
	}
	return false
}

// operandCount is the number of immediate bytes that follow an opcode. The
// CB suffix counts as an operand; so does STOP's padding byte.
func operandCount(op byte) int {
	switch op {
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E,
		0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE,
		0x18, 0x20, 0x28, 0x30, 0x38,
		0xE0, 0xF0, 0xE8, 0xF8, 0xCB, 0x10:
		return 1
	case 0x01, 0x11, 0x21, 0x31, 0x08, 0xEA, 0xFA,
		0xC3, 0xC2, 0xCA, 0xD2, 0xDA,
		0xCD, 0xC4, 0xCC, 0xD4, 0xDC:
		return 2
	}
	return 0
}

// Decode builds an Instruction from the opcode and its operand bytes as
// fetched from memory. Extra trailing bytes are ignored.
func Decode(b []byte) (Instruction, error) {
	if len(b) == 0 {
		return Instruction{}, errors.New("decode: no opcode")
	}
	op := b[0]
	if illegal(op) {
		return Instruction{}, fmt.Errorf("decode %02X: %w", op, ErrIllegalOpcode)
	}
	n := operandCount(op)
	if len(b) < 1+n {
		return Instruction{}, fmt.Errorf("decode %02X: need %d operand bytes, have %d", op, n, len(b)-1)
	}
	if op == 0xCB {
		return Instruction{Opcode: b[1], CB: true, Len: 2}, nil
	}
	ins := Instruction{Opcode: op, Len: 1 + n}
	copy(ins.Operands[:], b[1:1+n])
	return ins, nil
}
