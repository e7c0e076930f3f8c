package cart

// irNoLight is what the infrared receiver reads with no partner sending.
const irNoLight = 0xC0

// HuC1 is Hudson's MBC1-like controller with an infrared port. Writing 0x0E
// to 0000-1FFF maps the IR register over A000-BFFF; any other value maps RAM,
// which is always enabled.
type HuC1 struct {
	banks

	romBank byte
	ramBank byte
	irMode  bool
	irLED   bool
}

func NewHuC1(rom []byte, ramSize int) *HuC1 {
	m := &HuC1{banks: banks{rom: rom}, romBank: 1}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *HuC1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		return m.readROM(0, addr)
	case addr < 0x8000:
		bank := int(m.romBank)
		if bank == 0 {
			bank = 1
		}
		return m.readROM(bank, addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.irMode {
			return irNoLight
		}
		return m.readRAM(int(m.ramBank), addr)
	default:
		return 0xFF
	}
}

func (m *HuC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.irMode = value == 0x0E
	case addr < 0x4000:
		m.romBank = value & 0x3F
	case addr < 0x6000:
		m.ramBank = value & 0x03
	case addr < 0x8000:
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.irMode {
			m.irLED = value&0x01 != 0
			return
		}
		m.writeRAM(int(m.ramBank), addr, value)
	}
}

// IRLED reports whether the cartridge is driving its infrared LED.
func (m *HuC1) IRLED() bool { return m.irLED }

func (m *HuC1) SaveRAM() []byte           { return m.saveRAM() }
func (m *HuC1) LoadRAM(data []byte) error { return m.loadRAM(data) }

type huc1State struct {
	RAM     []byte
	ROMBank byte
	RAMBank byte
	IRMode  bool
	IRLED   bool
}

func (m *HuC1) SaveState() []byte {
	return encodeState(huc1State{RAM: m.ram, ROMBank: m.romBank, RAMBank: m.ramBank, IRMode: m.irMode, IRLED: m.irLED})
}

func (m *HuC1) LoadState(data []byte) error {
	var s huc1State
	if err := decodeState(data, &s); err != nil {
		return err
	}
	restoreRAM(m.ram, s.RAM)
	m.romBank, m.ramBank, m.irMode, m.irLED = s.ROMBank, s.RAMBank, s.IRMode, s.IRLED
	return nil
}
