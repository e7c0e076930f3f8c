package apu

import "testing"

// sysClock stands in for the timer's internal counter, which advances by
// four every M-cycle.
type sysClock struct{ counter uint16 }

func (c *sysClock) run(a *APU, mcycles int) {
	for i := 0; i < mcycles; i++ {
		c.counter += 4
		a.Tick(c.counter)
	}
}

// One frame sequencer step every 2048 M-cycles when starting from zero.
const seqPeriod = 2048

func TestRingDropsOldest(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 6; i++ {
		r.Push(StereoSample{Left: int16(i), Right: int16(-i)})
	}
	if r.Len() != 4 || r.Dropped() != 2 {
		t.Fatalf("len=%d dropped=%d, want 4 and 2", r.Len(), r.Dropped())
	}
	got := r.Drain()
	for i, s := range got {
		if want := int16(i + 2); s.Left != want || s.Right != -want {
			t.Fatalf("sample %d = %+v, want %d", i, s, want)
		}
	}
	if r.Len() != 0 || r.Drain() != nil {
		t.Fatalf("drain did not empty the ring")
	}
	r.Push(StereoSample{Left: 9})
	if got := r.Drain(); len(got) != 1 || got[0].Left != 9 {
		t.Fatalf("ring unusable after drain: %+v", got)
	}
}

func TestRingPop(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 4; i++ {
		r.Push(StereoSample{Left: int16(i)})
	}
	dst := make([]StereoSample, 2)
	if n := r.Pop(dst); n != 2 || dst[0].Left != 2 || dst[1].Left != 3 {
		t.Fatalf("Pop = %d %+v", n, dst)
	}
	r.Push(StereoSample{Left: 5})
	if n := r.Pop(dst); n != 2 || dst[0].Left != 4 || dst[1].Left != 5 {
		t.Fatalf("Pop across wrap = %d %+v", n, dst)
	}
	if n := r.Pop(dst); n != 0 || r.Len() != 0 {
		t.Fatalf("Pop on empty ring = %d", n)
	}
}

func TestSampleRate(t *testing.T) {
	a := New(48000, 1<<16)
	var clk sysClock
	clk.run(a, mcyclesPerSecond)
	if n := a.Buffered(); n != 48000 {
		t.Fatalf("got %d samples for one second, want 48000", n)
	}
	if a.Dropped() != 0 {
		t.Fatalf("unexpected drops")
	}
}

func TestOverflowKeepsNewest(t *testing.T) {
	a := New(48000, 100)
	var clk sysClock
	clk.run(a, mcyclesPerSecond/16)
	if a.Buffered() != 100 {
		t.Fatalf("buffered %d, want 100", a.Buffered())
	}
	if a.Dropped() != 3000-100 {
		t.Fatalf("dropped %d, want %d", a.Dropped(), 3000-100)
	}
}

func TestRegisterReadMasks(t *testing.T) {
	a := New(0, 0)
	cases := []struct {
		addr  uint16
		write byte
		want  byte
	}{
		{0xFF10, 0x00, 0x80},
		{0xFF11, 0xC5, 0xFF},
		{0xFF11, 0x05, 0x3F},
		{0xFF12, 0xF3, 0xF3},
		{0xFF13, 0x12, 0xFF},
		{0xFF14, 0x40, 0xFF},
		{0xFF14, 0x00, 0xBF},
		{0xFF15, 0x00, 0xFF},
		{0xFF1A, 0x00, 0x7F},
		{0xFF1C, 0x20, 0xBF},
		{0xFF22, 0x5A, 0x5A},
		{0xFF24, 0x77, 0x77},
		{0xFF27, 0x00, 0xFF},
	}
	for _, c := range cases {
		a.CPUWrite(c.addr, c.write)
		if got := a.CPURead(c.addr); got != c.want {
			t.Fatalf("%04X after writing %02X reads %02X, want %02X", c.addr, c.write, got, c.want)
		}
	}
	if got := a.CPURead(0xFF26); got != 0xF0 {
		t.Fatalf("NR52 = %02X, want F0", got)
	}
}

func TestTriggerAndDAC(t *testing.T) {
	a := New(0, 0)
	a.CPUWrite(0xFF17, 0xF0)
	a.CPUWrite(0xFF19, 0x80)
	if a.CPURead(0xFF26)&0x02 == 0 {
		t.Fatalf("channel 2 not on after trigger")
	}
	a.CPUWrite(0xFF17, 0x00)
	if a.CPURead(0xFF26)&0x02 != 0 {
		t.Fatalf("DAC off did not disable channel 2")
	}
	a.CPUWrite(0xFF19, 0x80)
	if a.CPURead(0xFF26)&0x02 != 0 {
		t.Fatalf("trigger with DAC off enabled channel 2")
	}
	a.CPUWrite(0xFF1A, 0x80)
	a.CPUWrite(0xFF1E, 0x80)
	if a.CPURead(0xFF26)&0x04 == 0 {
		t.Fatalf("channel 3 not on after trigger")
	}
}

func TestLengthExpires(t *testing.T) {
	a := New(0, 0)
	var clk sysClock
	a.CPUWrite(0xFF17, 0xF0)
	a.CPUWrite(0xFF16, 0x3F) // one length clock left
	a.CPUWrite(0xFF19, 0xC0)
	clk.run(a, seqPeriod-1)
	if a.CPURead(0xFF26)&0x02 == 0 {
		t.Fatalf("channel 2 stopped early")
	}
	clk.run(a, 1)
	if a.CPURead(0xFF26)&0x02 != 0 {
		t.Fatalf("channel 2 still on after length expired")
	}
}

func TestLengthExtraClock(t *testing.T) {
	a := New(0, 0)
	a.s.SeqStep = 1
	a.CPUWrite(0xFF17, 0xF0)
	a.CPUWrite(0xFF19, 0xC0)
	if got := a.s.Ch2.Length.Counter; got != 63 {
		t.Fatalf("length after trigger on odd step = %d, want 63", got)
	}
	a.CPUWrite(0xFF19, 0x00)
	a.CPUWrite(0xFF16, 0x3F)
	a.CPUWrite(0xFF19, 0x40)
	if a.CPURead(0xFF26)&0x02 != 0 {
		t.Fatalf("extra length clock did not stop channel 2")
	}
}

func TestSweepOverflowOnTrigger(t *testing.T) {
	a := New(0, 0)
	a.CPUWrite(0xFF10, 0x01)
	a.CPUWrite(0xFF12, 0xF0)
	a.CPUWrite(0xFF13, 0xFF)
	a.CPUWrite(0xFF14, 0x87)
	if a.CPURead(0xFF26)&0x01 != 0 {
		t.Fatalf("sweep overflow at trigger should disable channel 1")
	}
}

func TestSweepUpdatesFrequency(t *testing.T) {
	a := New(0, 0)
	var clk sysClock
	a.CPUWrite(0xFF10, 0x11)
	a.CPUWrite(0xFF12, 0xF0)
	a.CPUWrite(0xFF13, 0x00)
	a.CPUWrite(0xFF14, 0x81)
	clk.run(a, 2*seqPeriod)
	if p := a.s.Ch1.period(); p != 0x100 {
		t.Fatalf("period changed before step 2: %03X", p)
	}
	clk.run(a, seqPeriod)
	if p := a.s.Ch1.period(); p != 0x180 {
		t.Fatalf("period after sweep = %03X, want 180", p)
	}
}

func TestSweepNegateClearedDisables(t *testing.T) {
	a := New(0, 0)
	a.CPUWrite(0xFF10, 0x19) // pace 1, negate, shift 1
	a.CPUWrite(0xFF12, 0xF0)
	a.CPUWrite(0xFF13, 0x00)
	a.CPUWrite(0xFF14, 0x84)
	a.CPUWrite(0xFF10, 0x11)
	if a.CPURead(0xFF26)&0x01 != 0 {
		t.Fatalf("clearing negate after a negated calculation should stop channel 1")
	}
}

func TestEnvelope(t *testing.T) {
	a := New(0, 0)
	var clk sysClock
	a.CPUWrite(0xFF17, 0x09) // volume 0, increase, pace 1
	a.CPUWrite(0xFF19, 0x80)
	clk.run(a, 7*seqPeriod)
	if v := a.s.Ch2.Env.Volume; v != 0 {
		t.Fatalf("volume changed before step 7: %d", v)
	}
	clk.run(a, seqPeriod)
	if v := a.s.Ch2.Env.Volume; v != 1 {
		t.Fatalf("volume after step 7 = %d, want 1", v)
	}
}

func TestPowerOff(t *testing.T) {
	a := New(0, 0)
	a.CPUWrite(0xFF30, 0xAB)
	a.CPUWrite(0xFF24, 0x77)
	a.CPUWrite(0xFF17, 0xF0)
	a.CPUWrite(0xFF16, 0x20)
	a.CPUWrite(0xFF19, 0x80)
	a.CPUWrite(0xFF26, 0x00)
	if got := a.CPURead(0xFF26); got != 0x70 {
		t.Fatalf("NR52 after power off = %02X, want 70", got)
	}
	if a.CPURead(0xFF24) != 0x00 || a.CPURead(0xFF17) != 0x00 {
		t.Fatalf("registers not cleared by power off")
	}
	a.CPUWrite(0xFF24, 0x77)
	if a.CPURead(0xFF24) != 0x00 {
		t.Fatalf("write accepted while powered off")
	}
	if a.CPURead(0xFF30) != 0xAB {
		t.Fatalf("wave RAM lost on power off")
	}
	if a.s.Ch2.Length.Counter != 32 {
		t.Fatalf("length counter lost on power off: %d", a.s.Ch2.Length.Counter)
	}
	a.CPUWrite(0xFF26, 0x80)
	a.CPUWrite(0xFF24, 0x77)
	if a.CPURead(0xFF24) != 0x77 {
		t.Fatalf("write rejected after power on")
	}
}

func TestMixerRouting(t *testing.T) {
	a := New(48000, 1<<16)
	var clk sysClock
	a.CPUWrite(0xFF24, 0x77)
	a.CPUWrite(0xFF25, 0x20) // channel 2 left only
	a.CPUWrite(0xFF16, 0x80)
	a.CPUWrite(0xFF17, 0xF0)
	a.CPUWrite(0xFF18, 0x00)
	a.CPUWrite(0xFF19, 0x87)
	clk.run(a, 20000)
	samples := a.DrainSamples()
	if len(samples) == 0 {
		t.Fatalf("no samples")
	}
	left := false
	for _, s := range samples {
		if s.Right != 0 {
			t.Fatalf("right channel not silent: %+v", s)
		}
		if s.Left != 0 {
			left = true
		}
	}
	if !left {
		t.Fatalf("left channel silent")
	}
}

func TestNoiseLFSR(t *testing.T) {
	c := noise{NR2: 0xF0, NR3: 0x08}
	c.trigger()
	for i := 0; i < 200; i++ {
		c.shift()
		if c.LFSR&(1<<6) != (c.LFSR>>14&1)<<6 {
			t.Fatalf("7-bit mode: bit 6 not mirroring the feedback bit")
		}
	}
	c = noise{NR2: 0xF0}
	c.trigger()
	seen := map[uint16]bool{}
	for i := 0; i < 32767; i++ {
		if seen[c.LFSR] {
			t.Fatalf("15-bit LFSR repeated after %d steps", i)
		}
		seen[c.LFSR] = true
		c.shift()
	}
	if c.LFSR != 0x7FFF {
		t.Fatalf("15-bit LFSR period is not 32767")
	}
}

func TestSaveLoadState(t *testing.T) {
	a := New(0, 0)
	var clk sysClock
	a.CPUWrite(0xFF30, 0x12)
	a.CPUWrite(0xFF17, 0xF3)
	a.CPUWrite(0xFF19, 0x80)
	clk.run(a, 5000)
	data := a.SaveState()
	b := New(0, 0)
	if err := b.LoadState(data); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	for addr := uint16(0xFF10); addr <= 0xFF3F; addr++ {
		if a.CPURead(addr) != b.CPURead(addr) {
			t.Fatalf("%04X differs after restore", addr)
		}
	}
	if b.s.Ch2.Env != a.s.Ch2.Env || b.s.SeqStep != a.s.SeqStep {
		t.Fatalf("channel state differs after restore")
	}
}
