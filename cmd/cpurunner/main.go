package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
)

var (
	// Failure summary: "Failed <n> tests"
	failRe = regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
	// Test markers like "11:01"
	stageRe = regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
)

func main() {
	romPath := flag.String("rom", "", "path to ROM (.gb)")
	bootPath := flag.String("bootrom", "", "optional DMG boot ROM to run from 0x0000 until FF50 disables it")
	steps := flag.Int("steps", 5_000_000, "max CPU steps to run")
	trace := flag.Bool("trace", false, "print PC/opcodes")
	until := flag.String("until", "Passed", "stop when serial output contains this substring (case-insensitive); empty to disable")
	auto := flag.Bool("auto", false, "auto-detect 'Passed' or 'Failed N tests' in serial output and exit with code 0/1")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	traceOnFail := flag.Bool("traceOnFail", false, "when -auto detects failure, print a recent trace window (slows down)")
	traceWindow := flag.Int("traceWindow", 200, "number of recent instructions to include in 'traceOnFail' dump")
	serialWindowFlag := flag.Int("serialWindow", 8192, "number of recent serial bytes to retain for diagnostics on fail")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("-rom is required")
	}
	rom, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("read rom: %v", err)
	}
	var boot []byte
	if *bootPath != "" {
		if boot, err = os.ReadFile(*bootPath); err != nil {
			log.Fatalf("read bootrom: %v", err)
		}
	}

	cfg := emu.DefaultConfig()
	traceRing := newLineRing(0)
	if *traceOnFail && *traceWindow > 0 {
		traceRing = newLineRing(*traceWindow)
	}
	switch {
	case *trace && *traceOnFail:
		cfg.Trace = io.MultiWriter(os.Stdout, traceRing)
	case *trace:
		cfg.Trace = os.Stdout
	case *traceOnFail:
		cfg.Trace = traceRing
	}

	gb, err := emu.Load(rom, boot, cfg)
	if err != nil {
		log.Fatalf("load: %v", err)
	}

	// Stream serial to stdout and capture in-memory for pattern detection
	var ser bytes.Buffer
	serialWindow := *serialWindowFlag
	if serialWindow < 256 {
		serialWindow = 256
	}
	serRing := newByteRing(serialWindow)
	w := io.Writer(os.Stdout)
	if *until != "" || *auto {
		w = io.MultiWriter(os.Stdout, &ser, serRing)
	}
	gb.SetSerialWriter(w)

	start := time.Now()
	var deadline time.Time
	if *timeout > 0 {
		deadline = start.Add(*timeout)
	}
	done := func(n int) {
		fmt.Printf("\nDone: steps=%d cycles~=%d elapsed=%s\n", n, gb.Cycles(), time.Since(start).Truncate(time.Millisecond))
	}
	dumpTrace := func() {
		lines := traceRing.Lines()
		if len(lines) == 0 {
			return
		}
		fmt.Printf("\n--- recent trace (last %d instructions) ---\n", len(lines))
		for _, l := range lines {
			fmt.Println(l)
		}
		fmt.Printf("--- end trace ---\n")
	}

	lastStage := ""
	seen := 0
	for i := 0; i < *steps; i++ {
		if _, err := gb.Step(); err != nil {
			fmt.Printf("\nCPU stopped: %v\n", err)
			dumpTrace()
			done(i + 1)
			os.Exit(1)
		}
		if ser.Len() != seen {
			seen = ser.Len()
			s := ser.String()
			if *auto {
				if mm := stageRe.FindAllString(s, -1); len(mm) > 0 {
					lastStage = mm[len(mm)-1]
				}
				if strings.Contains(strings.ToLower(s), "passed") {
					fmt.Printf("\nDetected PASS in serial output.\n")
					if lastStage != "" {
						fmt.Printf("Last stage seen: %s\n", lastStage)
					}
					done(i + 1)
					os.Exit(0)
				}
				if m := failRe.FindStringSubmatch(s); m != nil {
					fmt.Printf("\nDetected %s in serial output.\n", m[0])
					if lastStage != "" {
						fmt.Printf("Last stage seen: %s\n", lastStage)
					}
					dumpTrace()
					if tail := serRing.Bytes(); len(tail) > 0 {
						fmt.Printf("\n--- recent serial (last %d bytes) ---\n", len(tail))
						fmt.Printf("%s", tail)
						fmt.Printf("\n--- end serial ---\n")
					}
					done(i + 1)
					os.Exit(1)
				}
			} else if *until != "" && strings.Contains(strings.ToLower(s), strings.ToLower(*until)) {
				fmt.Printf("\nDetected '%s' in serial output.\n", *until)
				done(i + 1)
				return
			}
		}
		if !deadline.IsZero() && i%4096 == 0 && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
			done(i + 1)
			os.Exit(2)
		}
	}
	done(*steps)
}
