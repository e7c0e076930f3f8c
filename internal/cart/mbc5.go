package cart

// MBC5 supports up to 8 MiB ROM and 128 KiB RAM. Unlike MBC1/3, bank 0 can
// be mapped at 4000-7FFF. On rumble carts bit 3 of the RAM bank register
// drives the motor instead of selecting RAM.
type MBC5 struct {
	banks

	romBank    uint16 // 9 bits (0..511)
	ramBank    byte   // 0..15
	ramEnabled bool
	hasRumble  bool
	rumble     bool
}

func NewMBC5(rom []byte, ramSize int, rumble bool) *MBC5 {
	m := &MBC5{banks: banks{rom: rom}, hasRumble: rumble}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	m.romBank = 1
	return m
}

func (m *MBC5) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		return m.readROM(0, addr)
	case addr < 0x8000:
		return m.readROM(int(m.romBank), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.readRAM(int(m.ramBank), addr)
	default:
		return 0xFF
	}
}

func (m *MBC5) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x3000:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case addr < 0x4000:
		m.romBank = (m.romBank & 0x0FF) | uint16(value&0x01)<<8
	case addr < 0x6000:
		if m.hasRumble {
			m.rumble = value&0x08 != 0
			m.ramBank = value & 0x07
			return
		}
		m.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled {
			m.writeRAM(int(m.ramBank), addr, value)
		}
	}
}

// Rumble reports whether the motor is currently driven.
func (m *MBC5) Rumble() bool { return m.rumble }

func (m *MBC5) SaveRAM() []byte           { return m.saveRAM() }
func (m *MBC5) LoadRAM(data []byte) error { return m.loadRAM(data) }

type mbc5State struct {
	RAM        []byte
	RomBank    uint16
	RamBank    byte
	RamEnabled bool
	Rumble     bool
}

func (m *MBC5) SaveState() []byte {
	return encodeState(mbc5State{RAM: m.ram, RomBank: m.romBank, RamBank: m.ramBank, RamEnabled: m.ramEnabled, Rumble: m.rumble})
}

func (m *MBC5) LoadState(data []byte) error {
	var s mbc5State
	if err := decodeState(data, &s); err != nil {
		return err
	}
	restoreRAM(m.ram, s.RAM)
	m.romBank, m.ramBank, m.ramEnabled, m.rumble = s.RomBank, s.RamBank, s.RamEnabled, s.Rumble
	return nil
}
