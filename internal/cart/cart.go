package cart

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// Cartridge is what the bus sees of a cartridge. Addresses are CPU addresses
// in 0000-7FFF (ROM and control registers) and A000-BFFF (external RAM).
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	// SaveState/LoadState serialize bank registers and RAM for save states.
	SaveState() []byte
	LoadState(data []byte) error
}

// BatteryBacked is implemented by cartridges whose RAM survives power off.
// SaveRAM returns a copy; the file I/O is the caller's concern.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte) error
}

// Rumbler is implemented by MBC5 rumble cartridges.
type Rumbler interface {
	Rumble() bool
}

// Clocked is implemented by cartridges with a real-time clock. now returns
// seconds on any monotonic scale.
type Clocked interface {
	SetClock(now func() int64)
}

// Kind is the controller family, fixed at load time.
type Kind int

const (
	KindROMOnly Kind = iota
	KindMBC1
	KindMBC2
	KindMBC3
	KindMBC5
	KindHuC1
)

func (k Kind) String() string {
	switch k {
	case KindROMOnly:
		return "ROM ONLY"
	case KindMBC1:
		return "MBC1"
	case KindMBC2:
		return "MBC2"
	case KindMBC3:
		return "MBC3"
	case KindMBC5:
		return "MBC5"
	case KindHuC1:
		return "HuC1"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// kindOf maps the cartridge-type byte at 0x0147 to a controller family.
func kindOf(cartType byte) (Kind, bool) {
	switch cartType {
	case 0x00, 0x08, 0x09:
		return KindROMOnly, true
	case 0x01, 0x02, 0x03:
		return KindMBC1, true
	case 0x05, 0x06:
		return KindMBC2, true
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return KindMBC3, true
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return KindMBC5, true
	case 0xFF:
		return KindHuC1, true
	}
	return 0, false
}

// New parses the header and builds the matching controller. The ROM is
// padded with 0xFF to the declared size so bank arithmetic never runs past
// the slice.
func New(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	kind, ok := kindOf(h.CartType)
	if !ok {
		return nil, &LoadError{Err: ErrUnsupportedMBC, CartType: h.CartType, Detail: h.CartTypeStr}
	}
	rom = padROM(rom, h.ROMSizeBytes)
	switch kind {
	case KindROMOnly:
		return NewROMOnly(rom, h.RAMSizeBytes), nil
	case KindMBC1:
		return NewMBC1(rom, h.RAMSizeBytes), nil
	case KindMBC2:
		return NewMBC2(rom), nil
	case KindMBC3:
		return NewMBC3(rom, h.RAMSizeBytes, h.CartType == 0x0F || h.CartType == 0x10), nil
	case KindMBC5:
		return NewMBC5(rom, h.RAMSizeBytes, h.CartType >= 0x1C), nil
	case KindHuC1:
		return NewHuC1(rom, h.RAMSizeBytes), nil
	}
	return nil, &LoadError{Err: ErrUnsupportedMBC, CartType: h.CartType}
}

// HasBattery reports whether the cartridge type keeps RAM across power off.
func HasBattery(cartType byte) bool {
	switch cartType {
	case 0x03, 0x06, 0x09, 0x0F, 0x10, 0x13, 0x1B, 0x1E, 0xFF:
		return true
	}
	return false
}

func padROM(rom []byte, declared int) []byte {
	size := declared
	if len(rom) > size {
		size = len(rom)
	}
	if size < 2*romBankSize {
		size = 2 * romBankSize
	}
	if r := size % romBankSize; r != 0 {
		size += romBankSize - r
	}
	if size == len(rom) {
		return rom
	}
	out := make([]byte, size)
	n := copy(out, rom)
	for i := n; i < size; i++ {
		out[i] = 0xFF
	}
	return out
}

// banks holds ROM and RAM and does the wrapping offset arithmetic every
// controller shares: bank numbers beyond the chip's bank count wrap.
type banks struct {
	rom []byte
	ram []byte
}

func (b *banks) romBanks() int {
	n := len(b.rom) / romBankSize
	if n == 0 {
		return 1
	}
	return n
}

func (b *banks) readROM(bank int, addr uint16) byte {
	off := (bank%b.romBanks())*romBankSize + int(addr)%romBankSize
	if off >= len(b.rom) {
		return 0xFF
	}
	return b.rom[off]
}

func (b *banks) ramOffset(bank int, addr uint16) (int, bool) {
	if len(b.ram) == 0 {
		return 0, false
	}
	n := (len(b.ram) + ramBankSize - 1) / ramBankSize
	off := (bank%n)*ramBankSize + int(addr)%ramBankSize
	// 2 KiB chips mirror inside the 8 KiB window.
	return off % len(b.ram), true
}

func (b *banks) readRAM(bank int, addr uint16) byte {
	off, ok := b.ramOffset(bank, addr)
	if !ok {
		return 0xFF
	}
	return b.ram[off]
}

func (b *banks) writeRAM(bank int, addr uint16, v byte) {
	if off, ok := b.ramOffset(bank, addr); ok {
		b.ram[off] = v
	}
}

func (b *banks) saveRAM() []byte {
	if len(b.ram) == 0 {
		return nil
	}
	return append([]byte(nil), b.ram...)
}

func (b *banks) loadRAM(data []byte) error {
	if len(data) != len(b.ram) {
		return fmt.Errorf("%w: got %d bytes want %d", ErrSaveSize, len(data), len(b.ram))
	}
	copy(b.ram, data)
	return nil
}

func encodeState(v any) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(v)
	return buf.Bytes()
}

func decodeState(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// restoreRAM copies saved RAM into place without changing its size.
func restoreRAM(dst, src []byte) {
	if len(dst) > 0 && len(src) > 0 {
		copy(dst, src)
	}
}
