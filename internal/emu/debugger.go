package emu

import (
	"sort"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cpu"
)

// Registers is a snapshot of the CPU registers.
func (g *GameBoy) Registers() cpu.Registers { return g.cpu.Registers() }

// Peek reads memory without side effects or access locks.
func (g *GameBoy) Peek(addr uint16) byte { return g.bus.Peek(addr) }

// Disassemble decodes the instruction at addr and returns its text and
// length in bytes.
func (g *GameBoy) Disassemble(addr uint16) (string, int) {
	return cpu.Disassemble(g.bus.Peek, addr)
}

// DisassembleN decodes n consecutive instructions starting at addr.
func (g *GameBoy) DisassembleN(addr uint16, n int) []DisasmLine {
	out := make([]DisasmLine, 0, n)
	for i := 0; i < n; i++ {
		text, size := g.Disassemble(addr)
		line := DisasmLine{Addr: addr, Text: text}
		for j := 0; j < size; j++ {
			line.Bytes = append(line.Bytes, g.bus.Peek(addr+uint16(j)))
		}
		out = append(out, line)
		addr += uint16(size)
	}
	return out
}

// DisasmLine is one decoded instruction.
type DisasmLine struct {
	Addr  uint16
	Bytes []byte
	Text  string
}

func (g *GameBoy) AddBreakpoint(addr uint16) { g.breakpoints[addr] = struct{}{} }

func (g *GameBoy) RemoveBreakpoint(addr uint16) { delete(g.breakpoints, addr) }

// Breakpoints lists the breakpoint addresses in ascending order.
func (g *GameBoy) Breakpoints() []uint16 {
	out := make([]uint16, 0, len(g.breakpoints))
	for a := range g.breakpoints {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StepDebug checks PC against the breakpoints before executing. On a hit it
// returns hit=true without stepping; the following call executes the
// instruction at that address.
func (g *GameBoy) StepDebug() (hit, frame bool, err error) {
	pc := g.cpu.PC
	if _, ok := g.breakpoints[pc]; ok && !g.cpu.Halted() {
		if !g.resumeSet || g.resumePC != pc {
			g.resumeSet, g.resumePC = true, pc
			return true, false, nil
		}
	}
	g.resumeSet = false
	frame, err = g.Step()
	return false, frame, err
}

// Continue runs until a breakpoint is hit or the CPU faults, or until stop
// returns true. The instruction at the current PC always executes, even if
// it carries a breakpoint. stop is polled about once per frame and may be nil.
func (g *GameBoy) Continue(stop func() bool) (hit bool, err error) {
	g.resumeSet, g.resumePC = true, g.cpu.PC
	last := g.bus.Cycles()
	for {
		var frame bool
		hit, frame, err = g.StepDebug()
		if hit || err != nil {
			return hit, err
		}
		if frame || g.bus.Cycles()-last >= MCyclesPerFrame {
			last = g.bus.Cycles()
			if stop != nil && stop() {
				return false, nil
			}
		}
	}
}
