package ui

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
)

type binding struct {
	button emu.Button
	keys   []ebiten.Key
	label  string
}

// keymap is shared with the help screen.
var keymap = []binding{
	{emu.ButtonRight, []ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD}, "Right/D"},
	{emu.ButtonLeft, []ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA}, "Left/A"},
	{emu.ButtonUp, []ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW}, "Up/W"},
	{emu.ButtonDown, []ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS}, "Down/S"},
	{emu.ButtonA, []ebiten.Key{ebiten.KeyZ}, "Z"},
	{emu.ButtonB, []ebiten.Key{ebiten.KeyX}, "X"},
	{emu.ButtonSelect, []ebiten.Key{ebiten.KeyShiftRight, ebiten.KeyBackspace}, "RightShift/Backspace"},
	{emu.ButtonStart, []ebiten.Key{ebiten.KeyEnter}, "Enter"},
}

// pollButtons forwards keyboard edges to the joypad.
func pollButtons(gb *emu.GameBoy) {
	held := gb.Pressed()
	for _, b := range keymap {
		down := false
		for _, k := range b.keys {
			if ebiten.IsKeyPressed(k) {
				down = true
				break
			}
		}
		was := held&byte(b.button) != 0
		switch {
		case down && !was:
			gb.Press(b.button)
		case !down && was:
			gb.Release(b.button)
		}
	}
}
