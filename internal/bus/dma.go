package bus

const (
	dmaLength  = 160
	dmaStartup = 2
)

// dma is the OAM DMA engine. A write to FF46 starts a transfer from
// Source<<8; after the startup cycles one byte moves per M-cycle.
type dma struct {
	Source byte
	Delay  int
	Index  int
	Active bool
}

// start (re)starts a transfer. An already running copy keeps OAM locked
// through the new startup.
func (d *dma) start(src byte) {
	d.Source = src
	d.Delay = dmaStartup
	d.Index = 0
}

func (b *Bus) stepDMA() {
	d := &b.dma
	if d.Delay > 0 {
		d.Delay--
		if d.Delay == 0 {
			d.Active = true
		}
		return
	}
	if !d.Active {
		return
	}
	src := uint16(d.Source)<<8 | uint16(d.Index)
	b.ppu.WriteOAM(d.Index, b.dmaRead(src))
	d.Index++
	if d.Index == dmaLength {
		d.Active = false
	}
}

// dmaRead fetches a source byte without CPU-side locks. Sources at E000 and
// above read the WRAM echo.
func (b *Bus) dmaRead(addr uint16) byte {
	if addr >= 0xE000 {
		addr -= 0x2000
	}
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < bootSize {
			return b.boot[addr]
		}
		return b.cart.Read(addr)
	case addr < 0xA000:
		return b.ppu.RawVRAM(addr)
	case addr < 0xC000:
		return b.cart.Read(addr)
	default:
		return b.wram[addr-0xC000]
	}
}

// DMAActive reports whether an OAM DMA copy is in progress.
func (b *Bus) DMAActive() bool { return b.dma.Active }
