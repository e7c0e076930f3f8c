package cart

import (
	"encoding/binary"
	"fmt"
	"time"
)

// nowUnix is the default clock the RTC follows, in unix seconds.
var nowUnix = func() int64 { return time.Now().Unix() }

// rtcBlockSize is the clock trailer appended to battery RAM: five live and
// five latched registers as little-endian uint32, then a unix timestamp.
const rtcBlockSize = 48

// MBC3 implements ROM/RAM banking and the optional real-time clock.
//   - 0000-1FFF: RAM and RTC enable (0x0A in low nibble)
//   - 2000-3FFF: ROM bank, 7 bits (0 maps to 1)
//   - 4000-5FFF: RAM bank 0-3, or RTC register 08-0C
//   - 6000-7FFF: writing 00 then 01 latches the clock
type MBC3 struct {
	banks

	ramEnabled bool
	romBank    byte
	sel        byte

	hasRTC                  bool
	rtcSec, rtcMin, rtcHour byte
	rtcDay                  uint16 // 9 bits
	rtcHalt, rtcCarry       bool
	latched                 [5]byte
	latchPrimed             bool
	lastRTCWallSec          int64
	now                     func() int64
}

func NewMBC3(rom []byte, ramSize int, rtc bool) *MBC3 {
	m := &MBC3{banks: banks{rom: rom}, romBank: 1, hasRTC: rtc}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	m.now = nowUnix
	m.lastRTCWallSec = m.now()
	return m
}

// SetClock replaces the time source of the RTC. The registers keep their
// value; only time elapsed on the new clock advances them.
func (m *MBC3) SetClock(now func() int64) {
	m.updateRTC()
	m.now = now
	m.lastRTCWallSec = now()
}

// updateRTC folds elapsed clock seconds into the live registers.
func (m *MBC3) updateRTC() {
	now := m.now()
	delta := now - m.lastRTCWallSec
	m.lastRTCWallSec = now
	if m.rtcHalt || delta <= 0 {
		return
	}
	total := int64(m.rtcSec) + delta
	m.rtcSec = byte(total % 60)
	total = int64(m.rtcMin) + total/60
	m.rtcMin = byte(total % 60)
	total = int64(m.rtcHour) + total/60
	m.rtcHour = byte(total % 24)
	days := int64(m.rtcDay) + total/24
	if days > 0x1FF {
		m.rtcCarry = true
	}
	m.rtcDay = uint16(days % 0x200)
}

func (m *MBC3) liveRegs() [5]byte {
	hi := byte(m.rtcDay>>8) & 0x01
	if m.rtcHalt {
		hi |= 0x40
	}
	if m.rtcCarry {
		hi |= 0x80
	}
	return [5]byte{m.rtcSec, m.rtcMin, m.rtcHour, byte(m.rtcDay), hi}
}

func (m *MBC3) setReg(reg byte, v byte) {
	switch reg {
	case 0x08:
		m.rtcSec = v & 0x3F
	case 0x09:
		m.rtcMin = v & 0x3F
	case 0x0A:
		m.rtcHour = v & 0x1F
	case 0x0B:
		m.rtcDay = m.rtcDay&0x100 | uint16(v)
	case 0x0C:
		m.rtcDay = m.rtcDay&0xFF | uint16(v&0x01)<<8
		m.rtcHalt = v&0x40 != 0
		m.rtcCarry = v&0x80 != 0
	}
}

func (m *MBC3) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		return m.readROM(0, addr)
	case addr < 0x8000:
		return m.readROM(int(m.romBank), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		switch {
		case m.sel <= 0x03:
			return m.readRAM(int(m.sel), addr)
		case m.hasRTC && m.sel >= 0x08 && m.sel <= 0x0C:
			return m.latched[m.sel-0x08]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr < 0x6000:
		m.sel = value & 0x0F
	case addr < 0x8000:
		if !m.hasRTC {
			return
		}
		if value == 0x01 && m.latchPrimed {
			m.updateRTC()
			m.latched = m.liveRegs()
		}
		m.latchPrimed = value == 0x00
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		switch {
		case m.sel <= 0x03:
			m.writeRAM(int(m.sel), addr, value)
		case m.hasRTC && m.sel >= 0x08 && m.sel <= 0x0C:
			m.updateRTC()
			m.setReg(m.sel, value)
		}
	}
}

// SaveRAM returns RAM followed, on timer carts, by the clock trailer.
func (m *MBC3) SaveRAM() []byte {
	out := m.saveRAM()
	if !m.hasRTC {
		return out
	}
	m.updateRTC()
	var blk [rtcBlockSize]byte
	live := m.liveRegs()
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint32(blk[i*4:], uint32(live[i]))
		binary.LittleEndian.PutUint32(blk[20+i*4:], uint32(m.latched[i]))
	}
	binary.LittleEndian.PutUint64(blk[40:], uint64(m.lastRTCWallSec))
	return append(out, blk[:]...)
}

// LoadRAM accepts RAM alone or RAM plus the clock trailer. Time that passed
// since the save is added on the next clock access.
func (m *MBC3) LoadRAM(data []byte) error {
	switch {
	case len(data) == len(m.ram):
		return m.loadRAM(data)
	case m.hasRTC && len(data) == len(m.ram)+rtcBlockSize:
		copy(m.ram, data)
		blk := data[len(m.ram):]
		for i := byte(0); i < 5; i++ {
			m.setReg(0x08+i, byte(binary.LittleEndian.Uint32(blk[i*4:])))
			m.latched[i] = byte(binary.LittleEndian.Uint32(blk[20+i*4:]))
		}
		m.lastRTCWallSec = int64(binary.LittleEndian.Uint64(blk[40:]))
		return nil
	}
	return fmt.Errorf("%w: got %d bytes for %d bytes of RAM", ErrSaveSize, len(data), len(m.ram))
}

type mbc3State struct {
	RAM        []byte
	RAMEnabled bool
	ROMBank    byte
	Sel        byte
	RTC        [5]byte
	Latched    [5]byte
	Primed     bool
	WallSec    int64
}

func (m *MBC3) SaveState() []byte {
	return encodeState(mbc3State{
		RAM: m.ram, RAMEnabled: m.ramEnabled, ROMBank: m.romBank, Sel: m.sel,
		RTC: m.liveRegs(), Latched: m.latched, Primed: m.latchPrimed, WallSec: m.lastRTCWallSec,
	})
}

func (m *MBC3) LoadState(data []byte) error {
	var s mbc3State
	if err := decodeState(data, &s); err != nil {
		return err
	}
	restoreRAM(m.ram, s.RAM)
	m.ramEnabled, m.romBank, m.sel = s.RAMEnabled, s.ROMBank, s.Sel
	for i := byte(0); i < 5; i++ {
		m.setReg(0x08+i, s.RTC[i])
	}
	m.latched, m.latchPrimed, m.lastRTCWallSec = s.Latched, s.Primed, s.WallSec
	return nil
}
