package joypad

import "testing"

func TestDefaultReadsAllReleased(t *testing.T) {
	j := New()
	if got := j.Read(); got != 0xFF {
		t.Fatalf("JOYP default got %02X want FF", got)
	}
	j.Press(A)
	if got := j.Read() & 0x0F; got != 0x0F {
		t.Fatalf("unselected groups must read high, got %X", got)
	}
}

func TestGroupSelection(t *testing.T) {
	j := New()
	j.Write(0x20) // d-pad
	j.SetState(byte(Right | Up))
	if got := j.Read() & 0x0F; got != 0x0A {
		t.Fatalf("d-pad got %X want A", got)
	}
	j.Write(0x10) // buttons
	j.SetState(byte(A | Start))
	if got := j.Read() & 0x0F; got != 0x06 {
		t.Fatalf("buttons got %X want 6", got)
	}
	if got := j.Read() & 0x30; got != 0x10 {
		t.Fatalf("select bits got %02X want 10", got)
	}
}

func TestPressRequestsInterruptOnlyWhenSelected(t *testing.T) {
	j := New()
	j.Write(0x10) // buttons only
	if j.Press(Left) {
		t.Fatalf("d-pad press with d-pad unselected raised interrupt")
	}
	if !j.Press(B) {
		t.Fatalf("B press with buttons selected did not raise interrupt")
	}
	if j.Press(B) {
		t.Fatalf("holding B must not raise a second interrupt")
	}
	j.Release(B)
	if j.Read()&0x02 == 0 {
		t.Fatalf("B line still low after release")
	}
}

func TestSelectingHeldGroupFallsLine(t *testing.T) {
	j := New()
	j.Press(Down)
	if !j.Write(0x20) {
		t.Fatalf("selecting d-pad with Down held must fall a line")
	}
}

func TestButtonString(t *testing.T) {
	if Start.String() != "Start" || Button(0).String() != "Button(?)" {
		t.Fatalf("unexpected names %q %q", Start, Button(0))
	}
}

func TestParseButton(t *testing.T) {
	for _, b := range Buttons {
		got, err := ParseButton(" " + b.String() + " ")
		if err != nil || got != b {
			t.Fatalf("ParseButton(%q) = %v, %v", b.String(), got, err)
		}
	}
	if b, err := ParseButton("select"); err != nil || b != Select {
		t.Fatalf("lower case: %v %v", b, err)
	}
	if _, err := ParseButton("turbo"); err == nil {
		t.Fatalf("expected error for unknown button")
	}
}
