package bus

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/apu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/interrupts"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/joypad"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/serial"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/timer"
)

const (
	regJOYP  = 0xFF00
	regIF    = 0xFF0F
	regDMA   = 0xFF46
	regBOOT  = 0xFF50
	regIE    = 0xFFFF
	bootSize = 0x100
)

// Bus routes CPU addresses to the cartridge, memories and I/O devices and
// advances the hardware one M-cycle at a time.
type Bus struct {
	cart   cart.Cartridge
	timer  *timer.Timer
	serial *serial.Port
	joy    *joypad.Joypad
	ic     interrupts.Controller
	ppu    *ppu.PPU
	apu    *apu.APU

	wram [0x2000]byte
	hram [0x7F]byte

	boot        []byte
	bootEnabled bool

	dma    dma
	cycles uint64
}

// New wires a bus around an already constructed cartridge. The APU is
// created with the given sample rate and ring capacity (0 selects defaults).
func New(c cart.Cartridge, sampleRate, audioCapacity int) *Bus {
	b := &Bus{
		cart:   c,
		timer:  timer.New(),
		serial: serial.New(),
		joy:    joypad.New(),
		apu:    apu.New(sampleRate, audioCapacity),
	}
	b.ppu = ppu.New(func(bit int) { b.ic.Request(interrupts.Interrupt(bit)) })
	return b
}

// SetBootROM maps a 256-byte boot ROM over 0000-00FF until FF50 is written.
// A shorter image disables the overlay.
func (b *Bus) SetBootROM(data []byte) {
	if len(data) < bootSize {
		b.boot = nil
		b.bootEnabled = false
		return
	}
	b.boot = make([]byte, bootSize)
	copy(b.boot, data[:bootSize])
	b.bootEnabled = true
}

// BootEnabled reports whether the boot ROM overlay is still mapped.
func (b *Bus) BootEnabled() bool { return b.bootEnabled }

// ApplyPostBoot puts the I/O registers into the state the DMG boot ROM
// leaves behind, for starts without a boot ROM.
func (b *Bus) ApplyPostBoot() {
	b.bootEnabled = false
	b.Write(regJOYP, 0xCF)
	b.Write(timer.TIMA, 0x00)
	b.Write(timer.TMA, 0x00)
	b.Write(timer.TAC, 0x00)
	b.Write(0xFF40, 0x91)
	b.Write(0xFF42, 0x00)
	b.Write(0xFF43, 0x00)
	b.Write(0xFF45, 0x00)
	b.Write(0xFF47, 0xFC)
	b.Write(0xFF48, 0xFF)
	b.Write(0xFF49, 0xFF)
	b.Write(0xFF4A, 0x00)
	b.Write(0xFF4B, 0x00)
	b.Write(regIE, 0x00)
	b.Write(regIF, 0x01)
	b.Write(0xFF26, 0x80)
	b.Write(0xFF24, 0x77)
	b.Write(0xFF25, 0xFF)
	b.timer.SetCounter(0xABCC)
}

func (b *Bus) Cart() cart.Cartridge { return b.cart }
func (b *Bus) PPU() *ppu.PPU        { return b.ppu }
func (b *Bus) APU() *apu.APU        { return b.apu }
func (b *Bus) Timer() *timer.Timer  { return b.timer }

// Cycles is the number of M-cycles ticked since construction.
func (b *Bus) Cycles() uint64 { return b.cycles }

// SetSerialWriter receives every byte the game sends over the link port.
func (b *Bus) SetSerialWriter(w io.Writer) { b.serial.SetWriter(w) }

// SetJoypadState replaces the pressed-button mask (joypad.Button bits).
func (b *Bus) SetJoypadState(mask byte) {
	if b.joy.SetState(mask) {
		b.ic.Request(interrupts.Joypad)
	}
}

// Press and Release change one button; a selected line falling requests the
// joypad interrupt.
func (b *Bus) Press(btn joypad.Button) {
	if b.joy.Press(btn) {
		b.ic.Request(interrupts.Joypad)
	}
}

func (b *Bus) Release(btn joypad.Button) { b.joy.Release(btn) }

func (b *Bus) Pressed() byte { return b.joy.Pressed() }

// Interrupts returns IE and IF for the CPU's dispatch logic.
func (b *Bus) Interrupts() (ie, iflag byte) { return b.ic.IE, b.ic.IF }

// AckInterrupt clears the IF bit of a dispatched interrupt.
func (b *Bus) AckInterrupt(bit int) { b.ic.Clear(interrupts.Interrupt(bit)) }

func (b *Bus) oamBlocked() bool { return b.dma.Active || b.ppu.OAMLocked() }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < bootSize {
			return b.boot[addr]
		}
		return b.cart.Read(addr)
	case addr < 0xA000:
		return b.ppu.CPURead(addr)
	case addr < 0xC000:
		return b.cart.Read(addr)
	case addr < 0xE000:
		return b.wram[addr-0xC000]
	case addr < 0xFE00:
		return b.wram[addr-0xE000]
	case addr < 0xFEA0:
		if b.dma.Active {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr < 0xFF00:
		if b.oamBlocked() {
			return 0xFF
		}
		return 0x00
	case addr < 0xFF80:
		return b.readIO(addr)
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	default:
		return b.ic.IE
	}
}

func (b *Bus) readIO(addr uint16) byte {
	switch {
	case addr == regJOYP:
		return b.joy.Read()
	case addr == serial.SB || addr == serial.SC:
		return b.serial.Read(addr)
	case addr >= timer.DIV && addr <= timer.TAC:
		return b.timer.Read(addr)
	case addr == regIF:
		return b.ic.ReadIF()
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.apu.CPURead(addr)
	case addr == regDMA:
		return b.dma.Source
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.ppu.CPURead(addr)
	}
	return 0xFF
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr < 0xA000:
		b.ppu.CPUWrite(addr, value)
	case addr < 0xC000:
		b.cart.Write(addr, value)
	case addr < 0xE000:
		b.wram[addr-0xC000] = value
	case addr < 0xFE00:
		b.wram[addr-0xE000] = value
	case addr < 0xFEA0:
		if !b.dma.Active {
			b.ppu.CPUWrite(addr, value)
		}
	case addr < 0xFF00:
	case addr < 0xFF80:
		b.writeIO(addr, value)
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = value
	default:
		b.ic.IE = value
	}
}

func (b *Bus) writeIO(addr uint16, value byte) {
	switch {
	case addr == regJOYP:
		if b.joy.Write(value) {
			b.ic.Request(interrupts.Joypad)
		}
	case addr == serial.SB || addr == serial.SC:
		b.serial.Write(addr, value)
	case addr >= timer.DIV && addr <= timer.TAC:
		before := b.timer.Counter()
		b.timer.Write(addr, value)
		// A DIV reset can drop the serial clock line just like a tick does.
		if b.serial.Tick(before, b.timer.Counter()) {
			b.ic.Request(interrupts.Serial)
		}
	case addr == regIF:
		b.ic.WriteIF(value)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.apu.CPUWrite(addr, value)
	case addr == regDMA:
		b.dma.start(value)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr == regBOOT:
		if value != 0 {
			b.bootEnabled = false
		}
	}
}

// Peek reads memory the way a debugger wants it: no VRAM/OAM locks.
func (b *Bus) Peek(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr < 0xA000:
		return b.ppu.RawVRAM(addr)
	case addr >= 0xFE00 && addr < 0xFEA0:
		return b.ppu.RawOAM(addr)
	}
	return b.Read(addr)
}

// Tick advances every device by one M-cycle in a fixed order and reports
// whether the PPU completed a frame.
func (b *Bus) Tick() bool {
	before := b.timer.Counter()
	if b.timer.Tick() {
		b.ic.Request(interrupts.Timer)
	}
	after := b.timer.Counter()
	if b.serial.Tick(before, after) {
		b.ic.Request(interrupts.Serial)
	}
	frame := b.ppu.Tick(4)
	b.apu.Tick(after)
	b.stepDMA()
	b.cycles++
	return frame
}

type busState struct {
	WRAM        [0x2000]byte
	HRAM        [0x7F]byte
	IE, IF      byte
	BootEnabled bool
	DMA         dma
	Cycles      uint64
	JoySelect   byte
	JoyPressed  byte

	Cart, Timer, Serial, PPU, APU []byte
}

// SaveState captures the bus and every device behind it.
func (b *Bus) SaveState() []byte {
	st := busState{
		WRAM:        b.wram,
		HRAM:        b.hram,
		IE:          b.ic.IE,
		IF:          b.ic.IF,
		BootEnabled: b.bootEnabled,
		DMA:         b.dma,
		Cycles:      b.cycles,
		JoySelect:   b.joy.Read() & 0x30,
		JoyPressed:  b.joy.Pressed(),
		Cart:        b.cart.SaveState(),
		Timer:       b.timer.SaveState(),
		Serial:      b.serial.SaveState(),
		PPU:         b.ppu.SaveState(),
		APU:         b.apu.SaveState(),
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(st)
	return buf.Bytes()
}

// LoadState restores a snapshot from SaveState. On error the bus and its
// devices keep the state they had before the call.
func (b *Bus) LoadState(data []byte) error {
	prev := b.SaveState()
	if err := b.loadState(data); err != nil {
		_ = b.loadState(prev)
		return err
	}
	return nil
}

func (b *Bus) loadState(data []byte) error {
	var st busState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("bus state: %w", err)
	}
	if err := b.cart.LoadState(st.Cart); err != nil {
		return fmt.Errorf("cart state: %w", err)
	}
	if err := b.timer.LoadState(st.Timer); err != nil {
		return fmt.Errorf("timer state: %w", err)
	}
	if err := b.serial.LoadState(st.Serial); err != nil {
		return fmt.Errorf("serial state: %w", err)
	}
	if err := b.ppu.LoadState(st.PPU); err != nil {
		return fmt.Errorf("ppu state: %w", err)
	}
	if err := b.apu.LoadState(st.APU); err != nil {
		return fmt.Errorf("apu state: %w", err)
	}
	b.wram = st.WRAM
	b.hram = st.HRAM
	b.ic.IE, b.ic.IF = st.IE, st.IF
	b.bootEnabled = st.BootEnabled && b.boot != nil
	b.dma = st.DMA
	b.cycles = st.Cycles
	b.joy.Write(st.JoySelect)
	b.joy.SetState(st.JoyPressed)
	return nil
}
