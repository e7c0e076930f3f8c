package timer

import (
	"bytes"
	"encoding/gob"
)

// Register addresses.
const (
	DIV  uint16 = 0xFF04
	TIMA uint16 = 0xFF05
	TMA  uint16 = 0xFF06
	TAC  uint16 = 0xFF07
)

// Timer models the DMG divider and the TIMA counter. The divider is the upper
// byte of a free-running 16-bit counter that advances once per T-cycle; TIMA
// counts falling edges of one counter bit selected by TAC.
type Timer struct {
	s state
}

type state struct {
	Counter uint16
	TIMA    byte
	TMA     byte
	TAC     byte
	// Overflow is set for the M-cycle during which TIMA reads 0x00 after
	// wrapping; the reload from TMA happens at the start of the next tick.
	Overflow bool
	// Reloading is set for the M-cycle following the reload. TIMA writes are
	// ignored then and TMA writes go through to TIMA.
	Reloading bool
}

func New() *Timer { return &Timer{} }

// selectedBit maps TAC[1:0] to the counter bit whose falling edge clocks TIMA.
func selectedBit(tac byte) uint16 {
	switch tac & 3 {
	case 0:
		return 1 << 9 // 4096 Hz
	case 1:
		return 1 << 3 // 262144 Hz
	case 2:
		return 1 << 5 // 65536 Hz
	default:
		return 1 << 7 // 16384 Hz
	}
}

// input is the AND of the enable bit and the selected counter bit.
func (t *Timer) input() bool {
	return t.s.TAC&0x04 != 0 && t.s.Counter&selectedBit(t.s.TAC) != 0
}

func (t *Timer) increment() {
	if t.s.TIMA == 0xFF {
		t.s.TIMA = 0
		t.s.Overflow = true
		return
	}
	t.s.TIMA++
}

// Tick advances the timer by one M-cycle (four counter increments) and
// reports whether the timer interrupt must be requested.
func (t *Timer) Tick() (irq bool) {
	t.s.Reloading = false
	if t.s.Overflow {
		t.s.Overflow = false
		t.s.Reloading = true
		t.s.TIMA = t.s.TMA
		irq = true
	}
	for i := 0; i < 4; i++ {
		was := t.input()
		t.s.Counter++
		if was && !t.input() {
			t.increment()
		}
	}
	return irq
}

// Counter exposes the internal 16-bit counter; serial and audio derive their
// clocks from it.
func (t *Timer) Counter() uint16 { return t.s.Counter }

// SetCounter overrides the internal counter (post-boot state).
func (t *Timer) SetCounter(v uint16) { t.s.Counter = v }

func (t *Timer) Read(addr uint16) byte {
	switch addr {
	case DIV:
		return byte(t.s.Counter >> 8)
	case TIMA:
		return t.s.TIMA
	case TMA:
		return t.s.TMA
	case TAC:
		return 0xF8 | t.s.TAC&0x07
	}
	return 0xFF
}

func (t *Timer) Write(addr uint16, v byte) {
	switch addr {
	case DIV:
		was := t.input()
		t.s.Counter = 0
		if was {
			t.increment()
		}
	case TIMA:
		if t.s.Reloading {
			return
		}
		t.s.Overflow = false
		t.s.TIMA = v
	case TMA:
		t.s.TMA = v
		if t.s.Reloading {
			t.s.TIMA = v
		}
	case TAC:
		was := t.input()
		t.s.TAC = v & 0x07
		if was && !t.input() {
			t.increment()
		}
	}
}

func (t *Timer) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(t.s)
	return buf.Bytes()
}

func (t *Timer) LoadState(data []byte) error {
	var s state
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	t.s = s
	return nil
}
