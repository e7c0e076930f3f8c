package serial

import (
	"bytes"
	"encoding/gob"
	"io"
)

const (
	SB uint16 = 0xFF01
	SC uint16 = 0xFF02
)

// clockBit is the timer counter bit whose falling edge shifts one bit
// (8192 Hz on internal clock).
const clockBit = 1 << 8

// Port is the serial shift register. Without a link partner every incoming
// bit is 1, so a completed transfer leaves SB at 0xFF.
type Port struct {
	s   state
	out io.Writer
}

type state struct {
	SB      byte
	SC      byte
	Active  bool
	Shifted int
}

func New() *Port { return &Port{} }

// SetWriter receives each byte as its transfer starts.
func (p *Port) SetWriter(w io.Writer) { p.out = w }

func (p *Port) Read(addr uint16) byte {
	switch addr {
	case SB:
		return p.s.SB
	case SC:
		return 0x7E | p.s.SC&0x81
	}
	return 0xFF
}

func (p *Port) Write(addr uint16, v byte) {
	switch addr {
	case SB:
		p.s.SB = v
	case SC:
		p.s.SC = v & 0x81
		if v&0x80 == 0 {
			p.s.Active = false
			return
		}
		if p.out != nil {
			_, _ = p.out.Write([]byte{p.s.SB})
		}
		// External clock waits for a partner that never clocks.
		p.s.Active = v&0x01 != 0
		p.s.Shifted = 0
	}
}

// Tick is called with the timer counter before and after every change to it,
// once per M-cycle and on DIV writes. It reports whether the serial interrupt
// must be requested.
func (p *Port) Tick(before, after uint16) bool {
	if !p.s.Active {
		return false
	}
	if before&clockBit == 0 || after&clockBit != 0 {
		return false
	}
	p.s.SB = p.s.SB<<1 | 1
	p.s.Shifted++
	if p.s.Shifted < 8 {
		return false
	}
	p.s.Active = false
	p.s.SC &^= 0x80
	return true
}

// Busy reports whether an internal-clock transfer is in progress.
func (p *Port) Busy() bool { return p.s.Active }

func (p *Port) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(p.s)
	return buf.Bytes()
}

func (p *Port) LoadState(data []byte) error {
	var s state
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	p.s = s
	return nil
}
