package emu

import (
	"fmt"
	"strings"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
)

// PaletteName selects one of the built-in four-shade palettes.
type PaletteName int

const (
	PaletteGreen PaletteName = iota
	PaletteSepia
	PaletteBlue
	PaletteRed
	PalettePastel
	PaletteGray
)

var paletteNames = []string{"green", "sepia", "blue", "red", "pastel", "gray"}

var palettes = []ppu.Palette{
	ppu.GreenPalette,
	{{0xF8, 0xE8, 0xC8}, {0xD8, 0x90, 0x48}, {0xA8, 0x28, 0x20}, {0x30, 0x18, 0x50}},
	{{0xE0, 0xF8, 0xF8}, {0x78, 0xA8, 0xF8}, {0x30, 0x50, 0xB8}, {0x08, 0x10, 0x38}},
	{{0xF8, 0xF8, 0xF8}, {0xF8, 0x80, 0x80}, {0x98, 0x30, 0x30}, {0x28, 0x08, 0x08}},
	{{0xF8, 0xF0, 0xF8}, {0xD0, 0xB8, 0xE8}, {0x88, 0x78, 0xB8}, {0x30, 0x28, 0x48}},
	ppu.GrayPalette,
}

// PaletteNames lists the presets in PaletteName order.
func PaletteNames() []string { return append([]string(nil), paletteNames...) }

func (p PaletteName) String() string {
	if int(p) < len(paletteNames) {
		return paletteNames[p]
	}
	return fmt.Sprintf("PaletteName(%d)", int(p))
}

// Colors returns the RGB shades of the preset.
func (p PaletteName) Colors() ppu.Palette {
	if int(p) < len(palettes) {
		return palettes[p]
	}
	return ppu.GrayPalette
}

// ParsePalette looks a preset up by name, case-insensitively.
func ParsePalette(s string) (PaletteName, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range paletteNames {
		if n == s {
			return PaletteName(i), nil
		}
	}
	return 0, fmt.Errorf("unknown palette %q (want one of %s)", s, strings.Join(paletteNames, ", "))
}

// titleExact maps normalized titles to a preferred palette.
var titleExact = map[string]PaletteName{
	"TETRIS":              PaletteBlue,
	"SUPER MARIO LAND":    PaletteRed,
	"SUPER MARIO LAND 2":  PaletteRed,
	"DR. MARIO":           PalettePastel,
	"DONKEY KONG":         PaletteSepia,
	"THE LEGEND OF ZELDA": PaletteGreen,
	"ZELDA":               PaletteGreen,
	"METROID II":          PaletteRed,
	"KIRBY'S DREAM LAND":  PalettePastel,
	"WARIO LAND":          PaletteSepia,
	"POKEMON RED":         PalettePastel,
	"POKEMON BLUE":        PalettePastel,
}

type containsRule struct {
	substr  string
	palette PaletteName
}

// titleContains catches families the exact table misses.
var titleContains = []containsRule{
	{"TETRIS", PaletteBlue},
	{"MARIO", PaletteRed},
	{"ZELDA", PaletteGreen},
	{"KIRBY", PalettePastel},
	{"DONKEY KONG", PaletteSepia},
	{"METROID", PaletteRed},
	{"MEGA MAN", PaletteBlue},
	{"MEGAMAN", PaletteBlue},
	{"WARIO", PaletteSepia},
	{"POKEMON", PalettePastel},
}

// AutoPalette picks a preset from the cartridge header: a title table first,
// then a stable choice from the header checksum for Nintendo titles, green
// otherwise.
func AutoPalette(h *cart.Header) PaletteName {
	if h == nil {
		return PaletteGreen
	}
	t := strings.ToUpper(strings.TrimSpace(h.Title))
	if p, ok := titleExact[t]; ok {
		return p
	}
	for _, r := range titleContains {
		if strings.Contains(t, r.substr) {
			return r.palette
		}
	}
	nintendo := h.OldLicensee == 0x01
	if h.OldLicensee == 0x33 {
		nintendo = h.NewLicensee == "01"
	}
	if nintendo {
		return PaletteName(int(h.HeaderChecksum) % len(palettes))
	}
	return PaletteGreen
}
