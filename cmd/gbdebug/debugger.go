package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bradleyjkemp/memviz"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
)

var errUsage = errors.New("usage")

// watcher arms an interrupt source for continue. stop is polled while the
// machine runs; release is called once continue returns.
type watcher func() (stop func() bool, release func())

type debugger struct {
	gb    *emu.GameBoy
	out   io.Writer
	watch watcher
	last  string
	cmds  map[string]command
}

type command struct {
	usage string
	run   func(args []string) error
}

func newDebugger(gb *emu.GameBoy, out io.Writer, watch watcher) *debugger {
	d := &debugger{gb: gb, out: out, watch: watch}
	d.cmds = map[string]command{
		"step":     {"step [n]", d.step},
		"continue": {"continue", d.cont},
		"break":    {"break <addr>", d.addBreak},
		"delete":   {"delete <addr>", d.delBreak},
		"breaks":   {"breaks", d.listBreaks},
		"regs":     {"regs", d.regs},
		"disasm":   {"disasm [addr] [n]", d.disasm},
		"mem":      {"mem <addr> [n]", d.mem},
		"frame":    {"frame [n]", d.frame},
		"press":    {"press <button>", d.press},
		"release":  {"release <button>", d.release},
		"graph":    {"graph <file.dot>", d.graph},
		"help":     {"help", d.help},
	}
	aliases := map[string]string{"s": "step", "c": "continue", "b": "break", "d": "delete", "r": "regs", "x": "mem", "l": "disasm"}
	for a, n := range aliases {
		d.cmds[a] = d.cmds[n]
	}
	return d
}

// exec runs one command line. An empty line repeats the previous command.
func (d *debugger) exec(line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		line = d.last
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	if name == "quit" || name == "q" {
		return true, nil
	}
	c, ok := d.cmds[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	d.last = line
	if err := c.run(fields[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return false, fmt.Errorf("usage: %s", c.usage)
		}
		return false, err
	}
	return false, nil
}

func parseAddr(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "0x"), "$")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return uint16(v), nil
}

func parseCount(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad count %q", args[i])
	}
	return n, nil
}

func (d *debugger) where() {
	pc := d.gb.Registers().PC
	text, _ := d.gb.Disassemble(pc)
	fmt.Fprintf(d.out, "%04X  %s\n", pc, text)
}

func (d *debugger) step(args []string) error {
	n, err := parseCount(args, 0, 1)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		hit, _, err := d.gb.StepDebug()
		if err != nil {
			return err
		}
		if hit {
			fmt.Fprintf(d.out, "breakpoint at %04X\n", d.gb.Registers().PC)
			break
		}
	}
	d.where()
	return nil
}

func (d *debugger) cont(args []string) error {
	stop, release := d.watch()
	hit, err := d.gb.Continue(stop)
	release()
	if err != nil {
		return err
	}
	if hit {
		fmt.Fprintf(d.out, "breakpoint at %04X\n", d.gb.Registers().PC)
	} else {
		fmt.Fprintf(d.out, "interrupted\n")
	}
	d.where()
	return nil
}

func (d *debugger) addBreak(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	a, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	d.gb.AddBreakpoint(a)
	fmt.Fprintf(d.out, "breakpoint set at %04X\n", a)
	return nil
}

func (d *debugger) delBreak(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	a, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	d.gb.RemoveBreakpoint(a)
	return nil
}

func (d *debugger) listBreaks(args []string) error {
	bps := d.gb.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(d.out, "no breakpoints")
	}
	for _, a := range bps {
		fmt.Fprintf(d.out, "%04X\n", a)
	}
	return nil
}

func (d *debugger) regs(args []string) error {
	r := d.gb.Registers()
	ie, iflag := d.gb.Peek(0xFFFF), d.gb.Peek(0xFF0F)
	fmt.Fprintf(d.out, "%s\nIF=%02X IE=%02X halted=%t frames=%d cycles=%d\n",
		r, iflag, ie, r.Halted, d.gb.Frames(), d.gb.Cycles())
	return nil
}

func (d *debugger) disasm(args []string) error {
	addr := d.gb.Registers().PC
	if len(args) > 0 {
		a, err := parseAddr(args[0])
		if err != nil {
			return err
		}
		addr = a
	}
	n, err := parseCount(args, 1, 10)
	if err != nil {
		return err
	}
	for _, l := range d.gb.DisassembleN(addr, n) {
		fmt.Fprintf(d.out, "%04X  %-9s %s\n", l.Addr, fmt.Sprintf("% X", l.Bytes), l.Text)
	}
	return nil
}

func (d *debugger) mem(args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	n, err := parseCount(args, 1, 64)
	if err != nil {
		return err
	}
	for off := 0; off < n; off += 16 {
		fmt.Fprintf(d.out, "%04X ", addr+uint16(off))
		for j := off; j < off+16 && j < n; j++ {
			fmt.Fprintf(d.out, " %02X", d.gb.Peek(addr+uint16(j)))
		}
		fmt.Fprintln(d.out)
	}
	return nil
}

func (d *debugger) frame(args []string) error {
	n, err := parseCount(args, 0, 1)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := d.gb.RunFrame(); err != nil {
			return err
		}
	}
	d.gb.DrainAudioSamples()
	d.where()
	return nil
}

func (d *debugger) press(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	b, err := emu.ParseButton(args[0])
	if err != nil {
		return err
	}
	d.gb.Press(b)
	return nil
}

func (d *debugger) release(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	b, err := emu.ParseButton(args[0])
	if err != nil {
		return err
	}
	d.gb.Release(b)
	return nil
}

// snapshot is the machine summary rendered by graph.
type snapshot struct {
	Header      *cart.Header
	Registers   cpu.Registers
	Breakpoints []uint16
	Frames      uint64
	Cycles      uint64
}

func (d *debugger) graph(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	memviz.Map(f, &snapshot{
		Header:      d.gb.Header(),
		Registers:   d.gb.Registers(),
		Breakpoints: d.gb.Breakpoints(),
		Frames:      d.gb.Frames(),
		Cycles:      d.gb.Cycles(),
	})
	fmt.Fprintf(d.out, "wrote %s\n", args[0])
	return nil
}

func (d *debugger) help(args []string) error {
	for _, n := range []string{"step", "continue", "break", "delete", "breaks", "regs", "disasm", "mem", "frame", "press", "release", "graph", "help"} {
		fmt.Fprintf(d.out, "  %s\n", d.cmds[n].usage)
	}
	fmt.Fprintln(d.out, "  quit")
	return nil
}
