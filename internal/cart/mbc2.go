package cart

const mbc2RAMSize = 512

// MBC2 has up to 16 ROM banks and 512 half-byte RAM cells built into the
// controller. Address bit 8 of a 0000-3FFF write picks the register.
type MBC2 struct {
	banks

	romBank    byte
	ramEnabled bool
}

func NewMBC2(rom []byte) *MBC2 {
	return &MBC2{banks: banks{rom: rom, ram: make([]byte, mbc2RAMSize)}, romBank: 1}
}

func (m *MBC2) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		return m.readROM(0, addr)
	case addr < 0x8000:
		return m.readROM(int(m.romBank), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		// Only the low nibble exists; the cells repeat through A000-BFFF.
		return 0xF0 | m.ram[int(addr-0xA000)%mbc2RAMSize]&0x0F
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value byte) {
	switch {
	case addr < 0x4000:
		if addr&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
			return
		}
		m.romBank = value & 0x0F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled {
			m.ram[int(addr-0xA000)%mbc2RAMSize] = value & 0x0F
		}
	}
}

func (m *MBC2) SaveRAM() []byte           { return m.saveRAM() }
func (m *MBC2) LoadRAM(data []byte) error { return m.loadRAM(data) }

type mbc2State struct {
	RAM        []byte
	ROMBank    byte
	RAMEnabled bool
}

func (m *MBC2) SaveState() []byte {
	return encodeState(mbc2State{RAM: m.ram, ROMBank: m.romBank, RAMEnabled: m.ramEnabled})
}

func (m *MBC2) LoadState(data []byte) error {
	var s mbc2State
	if err := decodeState(data, &s); err != nil {
		return err
	}
	restoreRAM(m.ram, s.RAM)
	m.romBank, m.ramEnabled = s.ROMBank, s.RAMEnabled
	return nil
}
