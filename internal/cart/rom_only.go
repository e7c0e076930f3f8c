package cart

// ROMOnly is a 32 KiB cartridge without a controller, optionally with a
// single unbanked RAM chip (types 08/09).
type ROMOnly struct {
	banks
}

func NewROMOnly(rom []byte, ramSize int) *ROMOnly {
	c := &ROMOnly{banks{rom: rom}}
	if ramSize > 0 {
		c.ram = make([]byte, ramSize)
	}
	return c
}

func (c *ROMOnly) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		return c.readROM(0, addr)
	case addr < 0x8000:
		return c.readROM(1, addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return c.readRAM(0, addr)
	default:
		return 0xFF
	}
}

func (c *ROMOnly) Write(addr uint16, value byte) {
	if addr >= 0xA000 && addr <= 0xBFFF {
		c.writeRAM(0, addr, value)
	}
}

func (c *ROMOnly) SaveRAM() []byte           { return c.saveRAM() }
func (c *ROMOnly) LoadRAM(data []byte) error { return c.loadRAM(data) }

type romOnlyState struct{ RAM []byte }

func (c *ROMOnly) SaveState() []byte { return encodeState(romOnlyState{RAM: c.ram}) }

func (c *ROMOnly) LoadState(data []byte) error {
	var s romOnlyState
	if err := decodeState(data, &s); err != nil {
		return err
	}
	restoreRAM(c.ram, s.RAM)
	return nil
}
