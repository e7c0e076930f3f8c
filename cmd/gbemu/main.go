package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ui"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/wavrec"
)

const statsAddr = "localhost:12600"

type CLIFlags struct {
	ROMPath string
	BootROM string
	Scale   int
	Title   string
	Trace   bool
	SaveRAM bool // persist battery RAM next to ROM (.sav)
	Palette string
	ROMsDir string
	Stats   bool

	// input log
	Record string
	Replay string

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	WAVOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&f.BootROM, "bootrom", "", "optional DMG boot ROM")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gbemu", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "CPU trace log to stderr")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")
	flag.StringVar(&f.Palette, "palette", "", "palette preset ("+strings.Join(emu.PaletteNames(), ", ")+"); empty picks one from the header")
	flag.StringVar(&f.ROMsDir, "roms", "roms", "directory listed by the ROM menu")
	flag.BoolVar(&f.Stats, "statsview", false, "serve runtime charts at "+statsAddr+"/debug/statsview")
	flag.StringVar(&f.Record, "record", "", "write an input recording to path on exit")
	flag.StringVar(&f.Replay, "replay", "", "replay an input recording")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.WAVOut, "wav", "", "write audio to a 16-bit stereo WAV file (headless)")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func runHeadless(gb *emu.GameBoy, f CLIFlags) error {
	frames := f.Frames
	if frames <= 0 {
		frames = 1
	}

	var rec *wavrec.Recorder
	if f.WAVOut != "" {
		var err error
		if rec, err = wavrec.Create(f.WAVOut, gb.SampleRate()); err != nil {
			return err
		}
	}

	start := time.Now()
	var runErr error
	for i := 0; i < frames; i++ {
		if runErr = gb.RunFrame(); runErr != nil {
			break
		}
		samples := gb.DrainAudioSamples()
		if rec != nil {
			if err := rec.Write(samples); err != nil {
				runErr = err
				break
			}
		}
	}
	dur := time.Since(start)
	if rec != nil {
		if err := rec.Close(); err != nil && runErr == nil {
			runErr = err
		} else if err == nil {
			log.Printf("wrote %s (%d sample frames)", f.WAVOut, rec.Frames())
		}
	}
	if runErr != nil {
		return runErr
	}

	fb := gb.RGBA()
	crc := crc32.ChecksumIEEE(fb)
	fps := float64(frames) / dur.Seconds()

	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x dropped=%d",
		frames, dur.Truncate(time.Millisecond), fps, crc, gb.DroppedSamples())

	if f.PNGOut != "" {
		if err := saveFramePNG(fb, ppu.ScreenWidth, ppu.ScreenHeight, f.PNGOut); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", f.PNGOut)
	}

	if f.Expect != "" {
		// normalize expected hex (allow with/without 0x, upper/lowercase)
		want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    append([]byte(nil), pix...),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func launchStats() {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(statsAddr))
		statsview.New().Start()
	}()
	log.Printf("stats server available at http://%s/debug/statsview", statsAddr)
}

func startReplay(gb *emu.GameBoy, path string) {
	fh, err := os.Open(path)
	if err != nil {
		log.Fatalf("open replay: %v", err)
	}
	defer fh.Close()
	r, err := emu.LoadRecording(fh)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}
	if err := gb.Replay(r); err != nil {
		log.Fatalf("replay: %v", err)
	}
	log.Printf("replaying %d events over %d frames", len(r.Events), r.Frames)
}

func writeRecording(gb *emu.GameBoy, path string) {
	r := gb.StopRecording()
	if r == nil {
		return
	}
	fh, err := os.Create(path)
	if err != nil {
		log.Printf("write recording: %v", err)
		return
	}
	defer fh.Close()
	if err := r.Save(fh); err != nil {
		log.Printf("write recording: %v", err)
		return
	}
	log.Printf("wrote %s (%d events)", path, len(r.Events))
}

func main() {
	f := parseFlags()
	if f.ROMPath == "" {
		log.Fatal("missing -rom")
	}
	rom := mustRead(f.ROMPath)
	boot := mustRead(f.BootROM)

	cfg := emu.DefaultConfig()
	// Input logs only replay faithfully when cartridge clocks are emulated too.
	cfg.EmulatedRTC = f.Record != "" || f.Replay != ""
	if f.Trace {
		cfg.Trace = os.Stderr
	}
	if f.Palette != "" {
		p, err := emu.ParsePalette(f.Palette)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Palette = &p
	}

	gb, err := emu.Load(rom, boot, cfg)
	if err != nil {
		log.Fatalf("load cart: %v", err)
	}
	h := gb.Header()
	log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)

	if f.Stats {
		launchStats()
	}

	// Battery RAM: load .sav if present
	savPath := emu.SavePath(f.ROMPath)
	if f.SaveRAM {
		if err := gb.LoadBatteryFile(savPath); err != nil {
			log.Printf("load save RAM: %v", err)
		}
	}

	if f.Replay != "" {
		startReplay(gb, f.Replay)
	}
	if f.Record != "" {
		gb.StartRecording()
	}

	if f.Headless {
		err := runHeadless(gb, f)
		if f.Record != "" {
			writeRecording(gb, f.Record)
		}
		if f.SaveRAM {
			if err := gb.SaveBatteryFile(savPath); err != nil {
				log.Printf("write save RAM: %v", err)
			}
		}
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	uiCfg := ui.Config{
		Title:       f.Title,
		Scale:       f.Scale,
		AudioStereo: true,
		Palette:     cfg.Palette,
		ROMsDir:     f.ROMsDir,
		BootROM:     boot,
		Emu:         cfg,
	}
	app := ui.NewApp(uiCfg, gb, f.ROMPath)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
	// The menu may have switched ROMs; persist whatever is running now.
	gb = app.GameBoy()
	if f.Record != "" {
		writeRecording(gb, f.Record)
	}
	if f.SaveRAM {
		if err := gb.SaveBatteryFile(emu.SavePath(app.ROMPath())); err != nil {
			log.Printf("write save RAM: %v", err)
		}
	}
}
