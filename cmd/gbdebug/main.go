package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM (.gb)")
	bootPath := flag.String("bootrom", "", "optional DMG boot ROM")
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
	gb, err := emu.Load(rom, boot, emu.DefaultConfig())
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	gb.SetSerialWriter(os.Stdout)

	d := newDebugger(gb, os.Stdout, ttyWatcher)
	fmt.Printf("%s loaded; type help for commands, any key interrupts continue\n", gb.Title())
	d.where()

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("(gbdebug) ")
		if !in.Scan() {
			fmt.Println()
			return
		}
		quit, err := d.exec(in.Text())
		if err != nil {
			fmt.Println(err)
		}
		if quit {
			return
		}
	}
}
