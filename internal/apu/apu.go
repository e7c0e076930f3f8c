package apu

import (
	"bytes"
	"encoding/gob"
)

const (
	// M-cycles per second (DMG)
	mcyclesPerSecond = 1 << 20

	defaultSampleRate = 48000
	defaultCapacity   = 16384

	// The frame sequencer steps on the falling edge of this bit of the
	// timer's internal counter (DIV bit 4), i.e. at 512 Hz.
	sequencerBit = 1 << 12
)

// lengthCounter silences a channel after a programmed number of 256 Hz clocks.
type lengthCounter struct {
	Counter int
	Enabled bool
}

func (l *lengthCounter) clock() bool {
	if !l.Enabled || l.Counter == 0 {
		return false
	}
	l.Counter--
	return l.Counter == 0
}

// control applies an NRx4 write. When the next sequencer step does not
// clock length, enabling it clocks once immediately. It reports whether
// that extra clock switched the channel off.
func (l *lengthCounter) control(enable, trigger bool, full, step int) bool {
	extra := step&1 == 1
	was := l.Enabled
	l.Enabled = enable
	off := false
	if extra && !was && enable && l.Counter > 0 {
		l.Counter--
		off = l.Counter == 0 && !trigger
	}
	if trigger && l.Counter == 0 {
		l.Counter = full
		if extra && enable {
			l.Counter--
		}
	}
	return off
}

// envelope is the volume envelope shared by the square and noise channels.
type envelope struct {
	Volume byte
	Timer  byte
}

func (e *envelope) trigger(nrx2 byte) {
	e.Volume = nrx2 >> 4
	e.Timer = nrx2 & 7
	if e.Timer == 0 {
		e.Timer = 8
	}
}

func (e *envelope) clock(nrx2 byte) {
	pace := nrx2 & 7
	if pace == 0 {
		return
	}
	if e.Timer > 0 {
		e.Timer--
	}
	if e.Timer != 0 {
		return
	}
	e.Timer = pace
	if nrx2&0x08 != 0 {
		if e.Volume < 15 {
			e.Volume++
		}
	} else if e.Volume > 0 {
		e.Volume--
	}
}

type state struct {
	Power      bool
	NR50, NR51 byte
	SeqStep    int // next frame sequencer step, 0..7
	PrevBit    bool
	SampleAcc  int

	Ch1 square
	Ch2 square
	Ch3 wave
	Ch4 noise
}

// APU is a DMG audio unit with channels 1, 2, 3, 4 implemented.
// It generates stereo 16-bit samples into a bounded ring at the given sample rate.
type APU struct {
	s    state
	rate int
	out  *Ring
}

// New returns a powered-on APU producing sampleRate frames per second into a
// ring holding capacity frames. Non-positive arguments select defaults.
func New(sampleRate, capacity int) *APU {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	a := &APU{rate: sampleRate, out: NewRing(capacity)}
	a.s.Power = true
	return a
}

func (a *APU) SampleRate() int { return a.rate }

// DrainSamples returns all buffered samples, oldest first.
func (a *APU) DrainSamples() []StereoSample { return a.out.Drain() }

// Buffered reports how many samples are waiting to be drained.
func (a *APU) Buffered() int { return a.out.Len() }

// Dropped reports how many samples were overwritten because nobody drained
// the ring in time.
func (a *APU) Dropped() uint64 { return a.out.Dropped() }

// Read-back OR masks for FF10-FF26; write-only bits read as 1.
var readMask = [0x17]byte{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // unused, NR21-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // unused, NR41-NR44
	0x00, 0x00, 0x70,             // NR50-NR52
}

func (a *APU) reg(addr uint16) byte {
	s := &a.s
	switch addr {
	case 0xFF10:
		return s.Ch1.NR0
	case 0xFF11:
		return s.Ch1.NR1
	case 0xFF12:
		return s.Ch1.NR2
	case 0xFF13:
		return s.Ch1.NR3
	case 0xFF14:
		return s.Ch1.NR4
	case 0xFF16:
		return s.Ch2.NR1
	case 0xFF17:
		return s.Ch2.NR2
	case 0xFF18:
		return s.Ch2.NR3
	case 0xFF19:
		return s.Ch2.NR4
	case 0xFF1A:
		return s.Ch3.NR0
	case 0xFF1B:
		return s.Ch3.NR1
	case 0xFF1C:
		return s.Ch3.NR2
	case 0xFF1D:
		return s.Ch3.NR3
	case 0xFF1E:
		return s.Ch3.NR4
	case 0xFF20:
		return s.Ch4.NR1
	case 0xFF21:
		return s.Ch4.NR2
	case 0xFF22:
		return s.Ch4.NR3
	case 0xFF23:
		return s.Ch4.NR4
	case 0xFF24:
		return s.NR50
	case 0xFF25:
		return s.NR51
	case 0xFF26:
		v := boolToByte(s.Power) << 7
		v |= boolToByte(s.Ch1.On)
		v |= boolToByte(s.Ch2.On) << 1
		v |= boolToByte(s.Ch3.On) << 2
		v |= boolToByte(s.Ch4.On) << 3
		return v
	}
	return 0
}

// CPURead reads an APU register or wave RAM.
func (a *APU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0xFF30 && addr <= 0xFF3F:
		return a.s.Ch3.readRAM(int(addr - 0xFF30))
	case addr >= 0xFF10 && addr <= 0xFF26:
		return a.reg(addr) | readMask[addr-0xFF10]
	}
	return 0xFF
}

// CPUWrite writes an APU register. While powered off only NR52, wave RAM
// and the length counters accept writes.
func (a *APU) CPUWrite(addr uint16, v byte) {
	s := &a.s
	switch {
	case addr >= 0xFF30 && addr <= 0xFF3F:
		s.Ch3.writeRAM(int(addr-0xFF30), v)
		return
	case addr == 0xFF26:
		a.setPower(v&0x80 != 0)
		return
	}
	if !s.Power {
		switch addr {
		case 0xFF11:
			s.Ch1.Length.Counter = 64 - int(v&0x3F)
		case 0xFF16:
			s.Ch2.Length.Counter = 64 - int(v&0x3F)
		case 0xFF1B:
			s.Ch3.Length.Counter = 256 - int(v)
		case 0xFF20:
			s.Ch4.Length.Counter = 64 - int(v&0x3F)
		}
		return
	}
	switch addr {
	case 0xFF10: // NR10 (CH1 sweep)
		s.Ch1.writeSweep(v)
	case 0xFF11: // NR11 (CH1 duty/length)
		s.Ch1.NR1 = v
		s.Ch1.Length.Counter = 64 - int(v&0x3F)
	case 0xFF12: // NR12 (CH1 envelope)
		s.Ch1.writeEnvelope(v)
	case 0xFF13: // NR13 (CH1 freq lo)
		s.Ch1.NR3 = v
	case 0xFF14: // NR14 (CH1)
		a.writeSquareControl(&s.Ch1, v, true)
	case 0xFF16: // NR21 duty/length
		s.Ch2.NR1 = v
		s.Ch2.Length.Counter = 64 - int(v&0x3F)
	case 0xFF17: // NR22 envelope
		s.Ch2.writeEnvelope(v)
	case 0xFF18: // NR23
		s.Ch2.NR3 = v
	case 0xFF19: // NR24
		a.writeSquareControl(&s.Ch2, v, false)
	case 0xFF1A: // NR30 (CH3 DAC)
		s.Ch3.writeDAC(v)
	case 0xFF1B: // NR31 (CH3 length)
		s.Ch3.NR1 = v
		s.Ch3.Length.Counter = 256 - int(v)
	case 0xFF1C: // NR32 (CH3 volume)
		s.Ch3.NR2 = v
	case 0xFF1D: // NR33 (CH3 freq lo)
		s.Ch3.NR3 = v
	case 0xFF1E: // NR34 (CH3)
		s.Ch3.NR4 = v
		trig := v&0x80 != 0
		if s.Ch3.Length.control(v&0x40 != 0, trig, 256, s.SeqStep) {
			s.Ch3.On = false
		}
		if trig {
			s.Ch3.trigger()
		}
	case 0xFF20: // NR41 (CH4 length)
		s.Ch4.NR1 = v
		s.Ch4.Length.Counter = 64 - int(v&0x3F)
	case 0xFF21: // NR42 (CH4 envelope)
		s.Ch4.writeEnvelope(v)
	case 0xFF22: // NR43 (CH4 polynomial)
		s.Ch4.NR3 = v
	case 0xFF23: // NR44 (CH4)
		s.Ch4.NR4 = v
		trig := v&0x80 != 0
		if s.Ch4.Length.control(v&0x40 != 0, trig, 64, s.SeqStep) {
			s.Ch4.On = false
		}
		if trig {
			s.Ch4.trigger()
		}
	case 0xFF24:
		s.NR50 = v
	case 0xFF25:
		s.NR51 = v
	}
}

func (a *APU) writeSquareControl(c *square, v byte, sweep bool) {
	c.NR4 = v
	trig := v&0x80 != 0
	if c.Length.control(v&0x40 != 0, trig, 64, a.s.SeqStep) {
		c.On = false
	}
	if trig {
		c.trigger(sweep)
	}
}

// setPower handles NR52 bit 7. Powering off clears every register except
// wave RAM and, on DMG, the length counters.
func (a *APU) setPower(on bool) {
	s := &a.s
	if on == s.Power {
		return
	}
	if on {
		s.Power = true
		s.SeqStep = 0
		return
	}
	l1, l2, l3, l4 := s.Ch1.Length.Counter, s.Ch2.Length.Counter, s.Ch3.Length.Counter, s.Ch4.Length.Counter
	ram := s.Ch3.RAM
	*s = state{PrevBit: s.PrevBit, SampleAcc: s.SampleAcc}
	s.Ch1.Length.Counter = l1
	s.Ch2.Length.Counter = l2
	s.Ch3.Length.Counter = l3
	s.Ch4.Length.Counter = l4
	s.Ch3.RAM = ram
}

// Tick advances the APU by one M-cycle. counter is the timer's internal
// 16-bit counter after this cycle's increment; its bit 12 drives the frame
// sequencer.
func (a *APU) Tick(counter uint16) {
	s := &a.s
	bit := counter&sequencerBit != 0
	if s.Power {
		s.Ch1.tick(4)
		s.Ch2.tick(4)
		s.Ch3.tick(4)
		s.Ch4.tick(4)
		if s.PrevBit && !bit {
			a.stepSequencer()
		}
	}
	s.PrevBit = bit

	s.SampleAcc += a.rate
	if s.SampleAcc >= mcyclesPerSecond {
		s.SampleAcc -= mcyclesPerSecond
		a.out.Push(a.mix())
	}
}

// stepSequencer runs one 512 Hz step: length on even steps, sweep on 2 and
// 6, envelope on 7.
func (a *APU) stepSequencer() {
	s := &a.s
	step := s.SeqStep
	if step&1 == 0 {
		if s.Ch1.Length.clock() {
			s.Ch1.On = false
		}
		if s.Ch2.Length.clock() {
			s.Ch2.On = false
		}
		if s.Ch3.Length.clock() {
			s.Ch3.On = false
		}
		if s.Ch4.Length.clock() {
			s.Ch4.On = false
		}
	}
	if step == 2 || step == 6 {
		s.Ch1.clockSweep()
	}
	if step == 7 {
		s.Ch1.Env.clock(s.Ch1.NR2)
		s.Ch2.Env.clock(s.Ch2.NR2)
		s.Ch4.Env.clock(s.Ch4.NR2)
	}
	s.SeqStep = (step + 1) & 7
}

// mix computes one stereo sample pair according to NR50/NR51.
func (a *APU) mix() StereoSample {
	s := &a.s
	if !s.Power {
		return StereoSample{}
	}
	ch := [4]float64{s.Ch1.output(), s.Ch2.output(), s.Ch3.output(), s.Ch4.output()}
	var l, r float64
	// Routing via NR51: lower nibble = right (SO1), upper nibble = left (SO2)
	for i, v := range ch {
		if s.NR51&(0x10<<i) != 0 {
			l += v
		}
		if s.NR51&(1<<i) != 0 {
			r += v
		}
	}
	// Master volumes via NR50: levels 0..7 scale by (n+1)/8.
	l *= float64(s.NR50>>4&7+1) / 8 / 4
	r *= float64(s.NR50&7+1) / 8 / 4
	return StereoSample{Left: toPCM(l), Right: toPCM(r)}
}

func toPCM(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

func (a *APU) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(a.s)
	return buf.Bytes()
}

func (a *APU) LoadState(data []byte) error {
	var s state
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	a.s = s
	return nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
