package ui

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
)

const (
	screenW = ppu.ScreenWidth
	screenH = ppu.ScreenHeight
)

type App struct {
	cfg     Config
	gb      *emu.GameBoy
	romPath string
	tex     *ebiten.Image
	shade   *ebiten.Image
	paused  bool
	fast    bool
	halted  error

	audioCtx    *audio.Context
	audioSrc    *sampleStream
	audioPlayer *audio.Player

	// overlay/menu
	showMenu    bool
	menuMode    string // "main", "slot", "rom", "keys", "settings"
	menuIdx     int
	currentSlot int
	romList     []string
	romSel      int
	romOff      int
	keysOff     int
	curW, curH  int

	toastMsg   string
	toastUntil time.Time
}

func NewApp(cfg Config, gb *emu.GameBoy, romPath string) *App {
	cfg.Defaults()
	a := &App{cfg: cfg, gb: gb, romPath: romPath, menuMode: "main"}
	if cfg.Palette != nil {
		gb.SetPalette(*cfg.Palette)
	}
	a.setTitle()
	a.applyWindowSize()
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	a.audioCtx = audio.NewContext(gb.SampleRate())
	a.audioSrc = newSampleStream(gb.SampleRate()/4, !cfg.AudioStereo)
	if p, err := a.audioCtx.NewPlayer(a.audioSrc); err == nil {
		a.audioPlayer = p
		a.audioPlayer.SetBufferSize(time.Duration(cfg.AudioBufferMs) * time.Millisecond)
		a.audioPlayer.Play()
	} else {
		log.Printf("audio disabled: %v", err)
	}
	return a
}

// GameBoy returns the running machine; it changes when a ROM is switched.
func (a *App) GameBoy() *emu.GameBoy { return a.gb }

// ROMPath is the file the running machine was loaded from.
func (a *App) ROMPath() string { return a.romPath }

func (a *App) Run() error {
	err := ebiten.RunGame(a)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (a *App) setTitle() {
	title := a.cfg.Title
	if t := a.gb.Title(); t != "" {
		title = a.cfg.Title + " - [" + t + "]"
	}
	ebiten.SetWindowTitle(title)
}

func (a *App) applyWindowSize() {
	ebiten.SetWindowSize(screenW*a.cfg.Scale, screenH*a.cfg.Scale)
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.showMenu = !a.showMenu
		a.menuMode, a.menuIdx = "main", 0
	}
	if a.showMenu {
		a.audioSrc.setMuted(true)
		return a.updateMenu()
	}
	a.audioSrc.setMuted(false)

	if !a.gb.Replaying() {
		pollButtons(a.gb)
	}

	// Pause toggle (P)
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	// Fast-forward (Tab): while held, run multiple frames per Ebiten update
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		a.saveSlotToast(a.currentSlot)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		a.loadSlotToast(a.currentSlot)
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if inpututil.IsKeyJustPressed(k) {
			a.currentSlot = i
			a.toast(fmt.Sprintf("Slot %d", i+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if name, err := a.saveScreenshot(); err != nil {
			a.toast("Screenshot failed: " + err.Error())
		} else {
			a.toast("Saved " + name)
		}
	}

	switch {
	case a.halted != nil:
	case a.paused:
		// Frame-step when paused (N)
		if inpututil.IsKeyJustPressed(ebiten.KeyN) {
			a.runFrames(1)
		}
	case a.fast:
		a.runFrames(5)
		a.audioSrc.clear()
	default:
		a.runFrames(1)
	}
	return nil
}

func (a *App) runFrames(n int) {
	for i := 0; i < n; i++ {
		if err := a.gb.RunFrame(); err != nil {
			a.halted = err
			log.Printf("emulation stopped: %v", err)
			a.toast(err.Error())
			return
		}
		a.audioSrc.push(a.gb.DrainAudioSamples())
	}
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(screenW, screenH)
	}
	a.tex.WritePixels(a.gb.RGBA())
	op := &ebiten.DrawImageOptions{}
	sx := float64(a.curW) / screenW
	sy := float64(a.curH) / screenH
	s := sx
	if sy < s {
		s = sy
	}
	op.GeoM.Scale(s, s)
	op.GeoM.Translate((float64(a.curW)-screenW*s)/2, (float64(a.curH)-screenH*s)/2)
	screen.DrawImage(a.tex, op)

	if a.showMenu {
		if a.shade == nil {
			a.shade = ebiten.NewImage(1, 1)
			a.shade.Fill(color.RGBA{0, 0, 0, 160})
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(a.curW), float64(a.curH))
		screen.DrawImage(a.shade, op)
		a.drawMenu(screen)
	}
	if a.paused && !a.showMenu {
		ebitenutil.DebugPrintAt(screen, "PAUSED", 4, 4)
	}
	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.truncateText(a.toastMsg, a.maxCharsForText(4)), 4, a.curH-18)
	}
}

func (a *App) Layout(outW, outH int) (int, int) {
	a.curW, a.curH = outW, outH
	return outW, outH
}

func basePath(romPath string) string {
	return strings.TrimSuffix(romPath, filepath.Ext(romPath))
}

func (a *App) statePath(slot int) string {
	return fmt.Sprintf("%s.ss%d", basePath(a.romPath), slot+1)
}

func (a *App) saveSlotToast(slot int) {
	if err := a.gb.SaveStateToFile(a.statePath(slot)); err != nil {
		a.toast("Save failed: " + err.Error())
		return
	}
	a.toast(fmt.Sprintf("Saved slot %d", slot+1))
}

func (a *App) loadSlotToast(slot int) {
	if _, err := os.Stat(a.statePath(slot)); err != nil {
		a.toast("Slot is empty")
		return
	}
	if err := a.gb.LoadStateFromFile(a.statePath(slot)); err != nil {
		a.toast("Load failed: " + err.Error())
		return
	}
	a.halted = nil
	a.audioSrc.clear()
	a.toast(fmt.Sprintf("Loaded slot %d", slot+1))
}

// switchROM saves the current battery RAM and replaces the machine.
func (a *App) switchROM(path string) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	gb, err := emu.Load(rom, a.cfg.BootROM, a.cfg.Emu)
	if err != nil {
		return err
	}
	if err := a.gb.SaveBatteryFile(emu.SavePath(a.romPath)); err != nil {
		log.Printf("save battery: %v", err)
	}
	if err := gb.LoadBatteryFile(emu.SavePath(path)); err != nil {
		log.Printf("load battery: %v", err)
	}
	if a.cfg.Palette != nil {
		gb.SetPalette(*a.cfg.Palette)
	}
	a.gb, a.romPath, a.halted = gb, path, nil
	a.audioSrc.clear()
	a.setTitle()
	return nil
}

func (a *App) saveScreenshot() (string, error) {
	img := &image.RGBA{
		Pix:    append([]byte(nil), a.gb.RGBA()...),
		Stride: 4 * screenW,
		Rect:   image.Rect(0, 0, screenW, screenH),
	}
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return name, png.Encode(f, img)
}
