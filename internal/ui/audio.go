package ui

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/apu"
)

// sampleStream implements io.Reader for the ebiten audio player. Update
// pushes drained APU samples; the player goroutine reads them as 16-bit
// little-endian stereo frames.
type sampleStream struct {
	mu    sync.Mutex
	ring  *apu.Ring
	mono  bool
	muted bool
	// tmp is only touched by the reader goroutine.
	tmp []apu.StereoSample
	// stats
	underruns int
}

func newSampleStream(capacity int, mono bool) *sampleStream {
	return &sampleStream{ring: apu.NewRing(capacity), mono: mono}
}

func (s *sampleStream) push(samples []apu.StereoSample) {
	s.mu.Lock()
	for _, v := range samples {
		s.ring.Push(v)
	}
	s.mu.Unlock()
}

// clear drops buffered audio to re-sync with video.
func (s *sampleStream) clear() {
	s.mu.Lock()
	s.ring.Drain()
	s.mu.Unlock()
}

func (s *sampleStream) setMuted(m bool) {
	s.mu.Lock()
	s.muted = m
	s.mu.Unlock()
}

func (s *sampleStream) setMono(m bool) {
	s.mu.Lock()
	s.mono = m
	s.mu.Unlock()
}

func (s *sampleStream) pop(max int) ([]apu.StereoSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.muted {
		s.ring.Drain()
		return nil, s.mono
	}
	if cap(s.tmp) < max {
		s.tmp = make([]apu.StereoSample, max)
	}
	n := s.ring.Pop(s.tmp[:max])
	return s.tmp[:n], s.mono
}

func (s *sampleStream) Read(p []byte) (int, error) {
	// A buffer smaller than one frame gets silence rather than a zero read.
	if len(p) < 4 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	maxReq := len(p) / 4
	if maxReq > 2048 {
		maxReq = 2048
	}

	frames, mono := s.pop(maxReq)
	for deadline := time.Now().Add(15 * time.Millisecond); len(frames) == 0 && time.Now().Before(deadline); {
		time.Sleep(time.Millisecond)
		frames, mono = s.pop(maxReq)
	}
	if len(frames) == 0 {
		silence := 256
		if silence > maxReq {
			silence = maxReq
		}
		for i := 0; i < silence*4; i++ {
			p[i] = 0
		}
		s.underruns++
		return silence * 4, nil
	}

	for i, f := range frames {
		l, r := f.Left, f.Right
		if mono {
			m := int16((int32(l) + int32(r)) / 2)
			l, r = m, m
		}
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return len(frames) * 4, nil
}
