package emu

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SavePath is where battery RAM for romPath lives: same name, .sav extension.
func SavePath(romPath string) string {
	return strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
}

// LoadBatteryFile restores battery RAM from path if the cartridge has any
// and the file exists. A missing file is not an error.
func (g *GameBoy) LoadBatteryFile(path string) error {
	if !g.HasBattery() {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := g.LoadSaveRAM(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// SaveBatteryFile writes battery RAM to path. Cartridges without a battery
// are skipped.
func (g *GameBoy) SaveBatteryFile(path string) error {
	data := g.SaveRAM()
	if len(data) == 0 {
		return nil
	}
	return os.WriteFile(path, data, 0644)
}
