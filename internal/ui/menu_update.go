package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
)

var mainMenuItems = []string{"Save state", "Load state", "Select slot", "Switch ROM", "Settings", "Keybindings", "Close", "Quit"}

const settingsItems = 3 // scale, audio, palette

func (a *App) updateMenu() error {
	back := inpututil.IsKeyJustPressed(ebiten.KeyBackspace)
	switch a.menuMode {
	case "slot":
		a.updateSlotMenu(back)
	case "rom":
		a.updateRomMenu(back)
	case "keys":
		a.updateKeysMenu(back)
	case "settings":
		a.updateSettingsMenu(back)
	default:
		return a.updateMainMenu(back)
	}
	return nil
}

func moveSelection(idx, n int) int {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && idx > 0 {
		idx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && idx < n-1 {
		idx++
	}
	return idx
}

func (a *App) updateMainMenu(back bool) error {
	a.menuIdx = moveSelection(a.menuIdx, len(mainMenuItems))
	if back {
		a.showMenu = false
		return nil
	}
	if !inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		return nil
	}
	switch a.menuIdx {
	case 0:
		a.saveSlotToast(a.currentSlot)
	case 1:
		a.loadSlotToast(a.currentSlot)
	case 2:
		a.menuMode, a.menuIdx = "slot", a.currentSlot
	case 3:
		a.romList = a.findROMs()
		a.romSel, a.romOff = 0, 0
		a.menuMode = "rom"
	case 4:
		a.menuMode, a.menuIdx = "settings", 0
	case 5:
		a.menuMode, a.keysOff = "keys", 0
	case 6:
		a.showMenu = false
	case 7:
		return ebiten.Termination
	}
	return nil
}

func (a *App) updateSlotMenu(back bool) {
	a.menuIdx = moveSelection(a.menuIdx, 4)
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		a.currentSlot = a.menuIdx
		a.toast(fmt.Sprintf("Slot set to %d", a.currentSlot+1))
		a.menuMode, a.menuIdx = "main", 2
	}
	if back {
		a.menuMode, a.menuIdx = "main", 2
	}
}

func (a *App) updateRomMenu(back bool) {
	n := len(a.romList)
	if back || (n == 0 && inpututil.IsKeyJustPressed(ebiten.KeyEnter)) {
		a.menuMode, a.menuIdx = "main", 3
		return
	}
	if n == 0 {
		return
	}
	a.romSel = moveSelection(a.romSel, n)
	// keep the selection inside the visible window
	maxRows := a.menuRows(40)
	if a.romSel < a.romOff {
		a.romOff = a.romSel
	}
	if a.romSel >= a.romOff+maxRows {
		a.romOff = a.romSel - maxRows + 1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		path := a.romList[a.romSel]
		if err := a.switchROM(path); err != nil {
			a.toast("ROM load failed: " + err.Error())
		} else {
			a.toast("Loaded ROM: " + filepath.Base(path))
			a.showMenu = false
		}
		a.menuMode, a.menuIdx = "main", 0
	}
}

func (a *App) updateKeysMenu(back bool) {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.keysOff > 0 {
		a.keysOff--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.keysOff < len(helpRows())-1 {
		a.keysOff++
	}
	if back || inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		a.menuMode, a.menuIdx = "main", 5
	}
}

func (a *App) updateSettingsMenu(back bool) {
	a.menuIdx = moveSelection(a.menuIdx, settingsItems)
	left := inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft)
	right := inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) || inpututil.IsKeyJustPressed(ebiten.KeyEnter)
	switch a.menuIdx {
	case 0: // Scale
		if left && a.cfg.Scale > 1 {
			a.cfg.Scale--
			a.applyWindowSize()
		}
		if right && a.cfg.Scale < 10 {
			a.cfg.Scale++
			a.applyWindowSize()
		}
	case 1: // Audio output
		if left || right {
			a.cfg.AudioStereo = !a.cfg.AudioStereo
			a.audioSrc.setMono(!a.cfg.AudioStereo)
		}
	case 2: // Palette
		if left || right {
			p := emu.AutoPalette(a.gb.Header())
			if a.cfg.Palette != nil {
				p = *a.cfg.Palette
			}
			n := emu.PaletteName(len(emu.PaletteNames()))
			if left {
				p = (p + n - 1) % n
			} else {
				p = (p + 1) % n
			}
			a.cfg.Palette = &p
			a.gb.SetPalette(p)
			a.toast("Palette: " + p.String())
		}
	}
	if back {
		a.menuMode, a.menuIdx = "main", 4
	}
}

// findROMs lists .gb files under the configured directory.
func (a *App) findROMs() []string {
	var out []string
	_ = filepath.WalkDir(a.cfg.ROMsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".gb") {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}
