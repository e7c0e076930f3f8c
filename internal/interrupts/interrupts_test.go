package interrupts

import "testing"

func TestPendingPriority(t *testing.T) {
	var c Controller
	if _, ok := c.Pending(); ok {
		t.Fatalf("nothing requested but Pending reported an interrupt")
	}
	c.Request(Joypad)
	c.Request(Timer)
	if _, ok := c.Pending(); ok {
		t.Fatalf("IE=0 must mask every request")
	}
	c.IE = 0xFF
	got, ok := c.Pending()
	if !ok || got != Timer {
		t.Fatalf("Pending got %v,%v want Timer,true", got, ok)
	}
	c.Clear(Timer)
	if got, _ := c.Pending(); got != Joypad {
		t.Fatalf("after clear got %v want Joypad", got)
	}
}

func TestIFReadMask(t *testing.T) {
	var c Controller
	c.WriteIF(0xFF)
	if c.IF != 0x1F {
		t.Fatalf("IF stored %02X want 1F", c.IF)
	}
	if got := c.ReadIF(); got != 0xFF {
		t.Fatalf("ReadIF got %02X want FF", got)
	}
	c.WriteIF(0x00)
	if got := c.ReadIF(); got != 0xE0 {
		t.Fatalf("ReadIF got %02X want E0", got)
	}
}

func TestVectors(t *testing.T) {
	want := map[Interrupt]uint16{VBlank: 0x40, LCDStat: 0x48, Timer: 0x50, Serial: 0x58, Joypad: 0x60}
	for i, v := range want {
		if i.Vector() != v {
			t.Fatalf("%v vector got %#04x want %#04x", i, i.Vector(), v)
		}
	}
}
