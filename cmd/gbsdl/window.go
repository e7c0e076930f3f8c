package main

import (
	"encoding/binary"
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/apu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
)

var keymap = map[sdl.Keycode]emu.Button{
	sdl.K_RIGHT:     emu.ButtonRight,
	sdl.K_LEFT:      emu.ButtonLeft,
	sdl.K_UP:        emu.ButtonUp,
	sdl.K_DOWN:      emu.ButtonDown,
	sdl.K_z:         emu.ButtonA,
	sdl.K_x:         emu.ButtonB,
	sdl.K_RSHIFT:    emu.ButtonSelect,
	sdl.K_BACKSPACE: emu.ButtonSelect,
	sdl.K_RETURN:    emu.ButtonStart,
}

// Every method must run on the main thread.
type window struct {
	win      *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	audio    sdl.AudioDeviceID
	pcm      []byte
	maxQueue uint32
}

func openWindow(title string, scale, sampleRate int) (*window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	w := &window{}
	var err error
	w.win, err = sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(ppu.ScreenWidth*scale), int32(ppu.ScreenHeight*scale), sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	w.renderer, err = sdl.CreateRenderer(w.win, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		w.win.Destroy()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	_ = w.renderer.SetLogicalSize(ppu.ScreenWidth, ppu.ScreenHeight)
	w.texture, err = w.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGBA32), sdl.TEXTUREACCESS_STREAMING,
		ppu.ScreenWidth, ppu.ScreenHeight)
	if err != nil {
		w.renderer.Destroy()
		w.win.Destroy()
		return nil, fmt.Errorf("create texture: %w", err)
	}

	spec := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  1024,
	}
	if dev, err := sdl.OpenAudioDevice("", false, &spec, nil, 0); err == nil {
		w.audio = dev
		// Cap queued audio at ~100ms so latency cannot grow without bound.
		w.maxQueue = uint32(sampleRate/10) * 4
		sdl.PauseAudioDevice(dev, false)
	}
	return w, nil
}

func (w *window) close() {
	if w.audio != 0 {
		sdl.CloseAudioDevice(w.audio)
	}
	w.texture.Destroy()
	w.renderer.Destroy()
	w.win.Destroy()
	sdl.Quit()
}

// poll drains pending events, forwarding key edges to gb. It reports false
// once the window is closed or Escape is pressed.
func (w *window) poll(gb *emu.GameBoy) bool {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			return false
		case *sdl.KeyboardEvent:
			if e.Repeat != 0 {
				continue
			}
			down := e.State == sdl.PRESSED
			if e.Keysym.Sym == sdl.K_ESCAPE && down {
				return false
			}
			b, ok := keymap[e.Keysym.Sym]
			if !ok {
				continue
			}
			if down {
				gb.Press(b)
			} else {
				gb.Release(b)
			}
		}
	}
	return true
}

func (w *window) present(rgba []byte) error {
	pix, pitch, err := w.texture.Lock(nil)
	if err != nil {
		return err
	}
	row := ppu.ScreenWidth * 4
	for y := 0; y < ppu.ScreenHeight; y++ {
		copy(pix[y*pitch:y*pitch+row], rgba[y*row:(y+1)*row])
	}
	w.texture.Unlock()
	if err := w.renderer.Clear(); err != nil {
		return err
	}
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return err
	}
	w.renderer.Present()
	return nil
}

func (w *window) queueAudio(samples []apu.StereoSample) {
	if w.audio == 0 || len(samples) == 0 || sdl.GetQueuedAudioSize(w.audio) > w.maxQueue {
		return
	}
	w.pcm = w.pcm[:0]
	for _, s := range samples {
		w.pcm = binary.LittleEndian.AppendUint16(w.pcm, uint16(s.Left))
		w.pcm = binary.LittleEndian.AppendUint16(w.pcm, uint16(s.Right))
	}
	_ = sdl.QueueAudio(w.audio, w.pcm)
}
