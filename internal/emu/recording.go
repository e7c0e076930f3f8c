package emu

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// ErrRecordingMismatch is returned when a recording was made with a
// different cartridge.
var ErrRecordingMismatch = errors.New("recording belongs to a different ROM")

// InputEvent is one press or release, stamped with the frame count since
// recording started.
type InputEvent struct {
	Frame  uint64
	Button Button
	Down   bool
}

// Recording is a replayable input log for one cartridge.
type Recording struct {
	Title          string
	GlobalChecksum uint16
	Frames         uint64
	Events         []InputEvent
}

// Save writes the recording as gob.
func (r *Recording) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(r); err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	return nil
}

// LoadRecording reads a recording written by Save.
func LoadRecording(rd io.Reader) (*Recording, error) {
	var r Recording
	if err := gob.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	return &r, nil
}

// StartRecording begins logging Press and Release calls. A recording in
// progress is discarded.
func (g *GameBoy) StartRecording() {
	g.rec = &Recording{Title: g.header.Title, GlobalChecksum: g.header.GlobalChecksum}
	g.recAt = g.frames
}

// StopRecording ends logging and returns the recording, or nil if none was
// running.
func (g *GameBoy) StopRecording() *Recording {
	r := g.rec
	if r != nil {
		r.Frames = g.frames - g.recAt
	}
	g.rec = nil
	return r
}

// IsRecording reports whether input is being logged.
func (g *GameBoy) IsRecording() bool { return g.rec != nil }

func (g *GameBoy) record(b Button, down bool) {
	if g.rec == nil {
		return
	}
	g.rec.Events = append(g.rec.Events, InputEvent{Frame: g.frames - g.recAt, Button: b, Down: down})
}

type replayer struct {
	events []InputEvent
	next   int
	start  uint64
}

// Replay feeds the recorded events back at the same frame offsets, counted
// from now. The recording must come from the loaded cartridge.
func (g *GameBoy) Replay(r *Recording) error {
	if r.Title != g.header.Title || r.GlobalChecksum != g.header.GlobalChecksum {
		return fmt.Errorf("%w: recorded %q (%04X), loaded %q (%04X)", ErrRecordingMismatch,
			r.Title, r.GlobalChecksum, g.header.Title, g.header.GlobalChecksum)
	}
	g.replay = &replayer{events: r.Events, start: g.frames}
	return nil
}

// Replaying reports whether replay events are still pending.
func (g *GameBoy) Replaying() bool { return g.replay != nil }

func (g *GameBoy) applyReplay() {
	rp := g.replay
	if rp == nil {
		return
	}
	now := g.frames - rp.start
	for rp.next < len(rp.events) && rp.events[rp.next].Frame <= now {
		ev := rp.events[rp.next]
		if ev.Down {
			g.bus.Press(ev.Button)
		} else {
			g.bus.Release(ev.Button)
		}
		rp.next++
	}
	if rp.next == len(rp.events) {
		g.replay = nil
	}
}
