package interrupts

// Interrupt identifies one of the five DMG interrupt sources by its IF/IE bit.
type Interrupt uint8

const (
	VBlank Interrupt = iota
	LCDStat
	Timer
	Serial
	Joypad
)

const sourceMask = 0x1F

func (i Interrupt) String() string {
	switch i {
	case VBlank:
		return "VBlank"
	case LCDStat:
		return "STAT"
	case Timer:
		return "Timer"
	case Serial:
		return "Serial"
	case Joypad:
		return "Joypad"
	}
	return "?"
}

// Vector is the fixed handler address for the interrupt.
func (i Interrupt) Vector() uint16 { return 0x40 + uint16(i)*8 }

// Controller holds the interrupt-enable (FFFF) and interrupt-flag (FF0F) registers.
type Controller struct {
	IE byte
	IF byte
}

func (c *Controller) Request(i Interrupt) { c.IF |= 1 << i }
func (c *Controller) Clear(i Interrupt)   { c.IF &^= 1 << i }

// ReadIF returns IF as the CPU sees it: the three unused bits read high.
func (c *Controller) ReadIF() byte { return 0xE0 | c.IF&sourceMask }

func (c *Controller) WriteIF(v byte) { c.IF = v & sourceMask }

// Any reports whether some interrupt is both requested and enabled,
// regardless of IME.
func (c *Controller) Any() bool { return c.IE&c.IF&sourceMask != 0 }

// Pending returns the highest-priority (lowest-numbered) interrupt that is
// both requested and enabled.
func (c *Controller) Pending() (Interrupt, bool) {
	p := c.IE & c.IF & sourceMask
	if p == 0 {
		return 0, false
	}
	for i := VBlank; i <= Joypad; i++ {
		if p&(1<<i) != 0 {
			return i, true
		}
	}
	return 0, false
}
