package emu

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
)

type machineState struct {
	Title  string
	Bus    []byte
	CPU    []byte
	Frames uint64
}

// SaveState captures the whole machine. The layout is not stable across
// versions.
func (g *GameBoy) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(machineState{
		Title:  g.header.Title,
		Bus:    g.bus.SaveState(),
		CPU:    g.cpu.SaveState(),
		Frames: g.frames,
	})
	return buf.Bytes()
}

// LoadState restores a snapshot taken by SaveState for the same ROM. The
// machine is unchanged when it returns an error.
func (g *GameBoy) LoadState(data []byte) error {
	var s machineState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("machine state: %w", err)
	}
	if s.Title != g.header.Title {
		return fmt.Errorf("state is for %q, loaded ROM is %q", s.Title, g.header.Title)
	}
	prevBus := g.bus.SaveState()
	if err := g.bus.LoadState(s.Bus); err != nil {
		return err
	}
	if err := g.cpu.LoadState(s.CPU); err != nil {
		_ = g.bus.LoadState(prevBus)
		return err
	}
	g.frames = s.Frames
	return nil
}

func (g *GameBoy) SaveStateToFile(path string) error {
	return os.WriteFile(path, g.SaveState(), 0644)
}

func (g *GameBoy) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return g.LoadState(data)
}
