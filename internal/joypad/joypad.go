package joypad

import (
	"fmt"
	"strings"
)

// Button is a bit in the pressed mask. The low nibble is the d-pad, the high
// nibble the action buttons, each in P1 line order.
type Button byte

const (
	Right  Button = 1 << 0
	Left   Button = 1 << 1
	Up     Button = 1 << 2
	Down   Button = 1 << 3
	A      Button = 1 << 4
	B      Button = 1 << 5
	Select Button = 1 << 6
	Start  Button = 1 << 7
)

var names = map[Button]string{
	Right: "Right", Left: "Left", Up: "Up", Down: "Down",
	A: "A", B: "B", Select: "Select", Start: "Start",
}

func (b Button) String() string {
	if n, ok := names[b]; ok {
		return n
	}
	return "Button(?)"
}

// ParseButton looks a button up by name, case-insensitively.
func ParseButton(s string) (Button, error) {
	for b, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// Buttons lists every button in mask order.
var Buttons = []Button{Right, Left, Up, Down, A, B, Select, Start}

const (
	selectDpad    = 1 << 4
	selectButtons = 1 << 5
)

// Joypad is the P1/JOYP latch at FF00. Select bits and input lines are
// active-low.
type Joypad struct {
	sel     byte // bits 4-5 as last written
	pressed byte
}

// New returns a joypad with neither group selected.
func New() *Joypad { return &Joypad{sel: selectDpad | selectButtons} }

// lines returns the low nibble as the CPU sees it (0 = pressed).
func (j *Joypad) lines() byte {
	var low byte
	if j.sel&selectDpad == 0 {
		low |= j.pressed & 0x0F
	}
	if j.sel&selectButtons == 0 {
		low |= j.pressed >> 4
	}
	return ^low & 0x0F
}

func (j *Joypad) Read() byte { return 0xC0 | j.sel | j.lines() }

// Write updates the select bits and reports whether a selected line fell.
func (j *Joypad) Write(v byte) bool {
	before := j.lines()
	j.sel = v & (selectDpad | selectButtons)
	return before&^j.lines() != 0
}

// SetState replaces the whole pressed mask and reports whether any selected
// line went from high to low.
func (j *Joypad) SetState(mask byte) bool {
	before := j.lines()
	j.pressed = mask
	return before&^j.lines() != 0
}

func (j *Joypad) Press(b Button) bool { return j.SetState(j.pressed | byte(b)) }

func (j *Joypad) Release(b Button) { j.SetState(j.pressed &^ byte(b)) }

// Pressed returns the current pressed mask.
func (j *Joypad) Pressed() byte { return j.pressed }
