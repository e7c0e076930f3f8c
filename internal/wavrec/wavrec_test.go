package wavrec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/apu"
)

func TestHeaderAndSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	r, err := Create(path, 44100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	in := []apu.StereoSample{{Left: 100, Right: -100}, {Left: 32767, Right: -32768}, {Left: 0, Right: 7}}
	if err := r.Write(in[:2]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := r.Write(in[2:]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if r.Frames() != 3 {
		t.Fatalf("frames=%d", r.Frames())
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("not a valid wav file")
	}
	if dec.SampleRate != 44100 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Fatalf("header: rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	want := []int{100, -100, 32767, -32768, 0, 7}
	if len(buf.Data) != len(want) {
		t.Fatalf("decoded %d values, want %d", len(buf.Data), len(want))
	}
	for i, v := range want {
		if buf.Data[i] != v {
			t.Fatalf("sample %d = %d, want %d", i, buf.Data[i], v)
		}
	}
}
