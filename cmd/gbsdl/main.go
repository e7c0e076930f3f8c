package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/faiface/mainthread"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
)

// framePeriod is one LCD frame at 4194304 Hz.
const framePeriod = time.Second * 70224 / 4194304

type options struct {
	rom, boot, palette string
	scale              int
	save               bool
}

func main() {
	var o options
	flag.StringVar(&o.rom, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&o.boot, "bootrom", "", "optional DMG boot ROM")
	flag.StringVar(&o.palette, "palette", "", "palette preset; empty picks one from the header")
	flag.IntVar(&o.scale, "scale", 3, "window scale")
	flag.BoolVar(&o.save, "save", true, "persist battery RAM next to the ROM")
	flag.Parse()
	if o.rom == "" {
		log.Fatal("-rom is required")
	}
	// SDL video calls must come from the main OS thread.
	mainthread.Run(func() {
		if err := run(o); err != nil {
			log.Fatal(err)
		}
	})
}

func run(o options) error {
	rom, err := os.ReadFile(o.rom)
	if err != nil {
		return err
	}
	var boot []byte
	if o.boot != "" {
		if boot, err = os.ReadFile(o.boot); err != nil {
			return err
		}
	}
	cfg := emu.DefaultConfig()
	if o.palette != "" {
		p, err := emu.ParsePalette(o.palette)
		if err != nil {
			return err
		}
		cfg.Palette = &p
	}
	gb, err := emu.Load(rom, boot, cfg)
	if err != nil {
		return err
	}
	sav := emu.SavePath(o.rom)
	if o.save {
		if err := gb.LoadBatteryFile(sav); err != nil {
			log.Printf("load save RAM: %v", err)
		}
	}

	var w *window
	if err := mainthread.CallErr(func() (err error) {
		w, err = openWindow("gbsdl - "+gb.Title(), o.scale, gb.SampleRate())
		return err
	}); err != nil {
		return err
	}
	defer mainthread.Call(w.close)

	tick := time.NewTicker(framePeriod)
	defer tick.Stop()
	running := true
	for running {
		mainthread.Call(func() { running = w.poll(gb) })
		if err := gb.RunFrame(); err != nil {
			log.Printf("emulation stopped: %v", err)
			break
		}
		samples := gb.DrainAudioSamples()
		if err := mainthread.CallErr(func() error {
			w.queueAudio(samples)
			return w.present(gb.RGBA())
		}); err != nil {
			return err
		}
		<-tick.C
	}

	if o.save {
		if err := gb.SaveBatteryFile(sav); err != nil {
			log.Printf("write save RAM: %v", err)
		}
	}
	return nil
}
