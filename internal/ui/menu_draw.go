package ui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
)

// debug font cell size
const (
	charW = 6
	lineH = 14
)

func (a *App) drawMenu(screen *ebiten.Image) {
	switch a.menuMode {
	case "slot":
		a.drawSlotMenu(screen)
	case "rom":
		a.drawRomMenu(screen)
	case "keys":
		a.drawKeysMenu(screen)
	case "settings":
		a.drawSettingsMenu(screen)
	default:
		a.drawMainMenu(screen)
	}
}

func (a *App) drawList(screen *ebiten.Image, title string, items []string, sel, y int) {
	ebitenutil.DebugPrintAt(screen, a.truncateText(title, a.maxCharsForText(10)), 10, y)
	for i, s := range items {
		prefix := "  "
		if i == sel {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, a.truncateText(prefix+s, a.maxCharsForText(10)), 10, y+(i+1)*lineH)
	}
}

func (a *App) drawMainMenu(screen *ebiten.Image) {
	items := append([]string(nil), mainMenuItems...)
	items[0] = fmt.Sprintf("Save state (slot %d)", a.currentSlot+1)
	items[1] = fmt.Sprintf("Load state (slot %d)", a.currentSlot+1)
	a.drawList(screen, "Menu:", items, a.menuIdx, 10)
	hint := "F5: Save  F9: Load  1-4: Slot  Backspace: Back"
	ebitenutil.DebugPrintAt(screen, a.truncateText(hint, a.maxCharsForText(10)), 10, 10+(len(items)+2)*lineH)
}

func (a *App) drawSlotMenu(screen *ebiten.Image) {
	var items []string
	for i := 0; i < 4; i++ {
		state := "[empty]"
		if _, err := os.Stat(a.statePath(i)); err == nil {
			state = ""
		}
		items = append(items, fmt.Sprintf("%d %s", i+1, state))
	}
	a.drawList(screen, "Select Slot:", items, a.menuIdx, 10)
}

func (a *App) drawRomMenu(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, a.truncateText("Select ROM (Enter to load, Backspace to return)", a.maxCharsForText(10)), 10, 10)
	ebitenutil.DebugPrintAt(screen, a.truncateText("Dir: "+a.cfg.ROMsDir, a.maxCharsForText(10)), 10, 24)
	if len(a.romList) == 0 {
		ebitenutil.DebugPrintAt(screen, "No ROMs found", 10, 40)
		return
	}
	baseY := 40
	maxRows := a.menuRows(baseY)
	end := a.romOff + maxRows
	if end > len(a.romList) {
		end = len(a.romList)
	}
	for i, p := range a.romList[a.romOff:end] {
		prefix := "  "
		if a.romOff+i == a.romSel {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, a.truncateText(prefix+filepath.Base(p), a.maxCharsForText(10)), 10, baseY+i*lineH)
	}
	// scroll indicators
	if a.romOff > 0 {
		ebitenutil.DebugPrintAt(screen, "^", 2, baseY)
	}
	if end < len(a.romList) {
		ebitenutil.DebugPrintAt(screen, "v", 2, baseY+(maxRows-1)*lineH)
	}
}

func helpRows() []string {
	rows := make([]string, 0, len(keymap)+8)
	for _, b := range keymap {
		rows = append(rows, fmt.Sprintf("%s: %s", b.label, b.button))
	}
	return append(rows,
		"P: Pause",
		"N: Step frame (when paused)",
		"Tab: Fast-forward",
		"F5/F9: Save/Load state",
		"1-4: State slot",
		"F12: Screenshot",
		"Esc: Open/Close Menu",
	)
}

func (a *App) drawKeysMenu(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, a.truncateText("Keybindings (Up/Down to scroll, Backspace to return)", a.maxCharsForText(10)), 10, 10)
	rows := helpRows()
	baseY := 10 + lineH + 4
	end := a.keysOff + a.menuRows(baseY)
	if end > len(rows) {
		end = len(rows)
	}
	for i := a.keysOff; i < end; i++ {
		ebitenutil.DebugPrintAt(screen, a.truncateText(rows[i], a.maxCharsForText(10)), 10, baseY+(i-a.keysOff)*lineH)
	}
}

func (a *App) drawSettingsMenu(screen *ebiten.Image) {
	palette := emu.AutoPalette(a.gb.Header()).String() + " (auto)"
	if a.cfg.Palette != nil {
		palette = a.cfg.Palette.String()
	}
	items := []string{
		fmt.Sprintf("Scale: %dx", a.cfg.Scale),
		fmt.Sprintf("Audio: %s", map[bool]string{true: "Stereo", false: "Mono"}[a.cfg.AudioStereo]),
		"Palette: " + palette,
	}
	a.drawList(screen, "Settings (Left/Right change, Backspace: back)", items, a.menuIdx, 10)
}

func (a *App) menuRows(baseY int) int {
	rows := (a.curH - baseY) / lineH
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (a *App) maxCharsForText(x int) int {
	n := (a.curW - x) / charW
	if n < 1 {
		n = 1
	}
	return n
}

func (a *App) truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
