package cart

// MBC1 implements MBC1 ROM/RAM banking: up to 2 MiB ROM and 32 KiB RAM.
type MBC1 struct {
	banks

	romBankLow5       byte // lower 5 bits of ROM bank number (0->1 remapped)
	ramBankOrRomHigh2 byte // RAM bank, or ROM bank bits 5-6
	ramEnabled        bool
	modeSelect        byte // 0: simple banking (default), 1: advanced banking
}

func NewMBC1(rom []byte, ramSize int) *MBC1 {
	m := &MBC1{banks: banks{rom: rom}}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	m.romBankLow5 = 1
	return m
}

// zeroBank is the bank mapped at 0000-3FFF; in mode 1 the upper bits apply.
func (m *MBC1) zeroBank() int {
	if m.modeSelect == 0 {
		return 0
	}
	return int(m.ramBankOrRomHigh2&0x03) << 5
}

// effectiveROMBank is the bank mapped at 4000-7FFF. Only the low five bits
// are checked for zero, so 0x20/0x40/0x60 select 0x21/0x41/0x61.
func (m *MBC1) effectiveROMBank() int {
	return int(m.romBankLow5) | int(m.ramBankOrRomHigh2&0x03)<<5
}

func (m *MBC1) ramBank() int {
	if m.modeSelect == 0 {
		return 0
	}
	return int(m.ramBankOrRomHigh2 & 0x03)
}

func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		return m.readROM(m.zeroBank(), addr)
	case addr < 0x8000:
		return m.readROM(m.effectiveROMBank(), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.readRAM(m.ramBank(), addr)
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		m.romBankLow5 = value & 0x1F
		if m.romBankLow5 == 0 {
			m.romBankLow5 = 1
		}
	case addr < 0x6000:
		m.ramBankOrRomHigh2 = value & 0x03
	case addr < 0x8000:
		m.modeSelect = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled {
			m.writeRAM(m.ramBank(), addr, value)
		}
	}
}

func (m *MBC1) SaveRAM() []byte           { return m.saveRAM() }
func (m *MBC1) LoadRAM(data []byte) error { return m.loadRAM(data) }

type mbc1State struct {
	RAM        []byte
	Low5       byte
	High2      byte
	RAMEnabled bool
	Mode       byte
}

func (m *MBC1) SaveState() []byte {
	return encodeState(mbc1State{RAM: m.ram, Low5: m.romBankLow5, High2: m.ramBankOrRomHigh2, RAMEnabled: m.ramEnabled, Mode: m.modeSelect})
}

func (m *MBC1) LoadState(data []byte) error {
	var s mbc1State
	if err := decodeState(data, &s); err != nil {
		return err
	}
	restoreRAM(m.ram, s.RAM)
	m.romBankLow5, m.ramBankOrRomHigh2, m.ramEnabled, m.modeSelect = s.Low5, s.High2, s.RAMEnabled, s.Mode
	return nil
}
