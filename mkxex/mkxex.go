// mkxex wraps a raw 6502 binary into an Atari DOS executable (XEX).
// The binary lands at --load_addr and a trailing two byte segment
// overlays RUNAD with --start_pc so the loader jumps there once
// everything is in RAM. A start of 0 reuses the load address.
//
// The output file is named after the input with .xex appended.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmchacon/atari800/xex"
)

var (
	loadAddr = flag.Int("load_addr", 0x2000, "Address the binary loads at")
	startPC  = flag.Int("start_pc", 0x0000, "PC value RUNAD points at. 0 uses load_addr")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s --load_addr=XXXX --start_pc=XXXX <filename>", os.Args[0])
	}
	if *loadAddr < 0 || *loadAddr > 65535 {
		log.Fatal("--load_addr out of range. Must be between 0-65535")
	}
	if *startPC < 0 || *startPC > 65535 {
		log.Fatal("--start_pc out of range. Must be between 0-65535")
	}
	fn := flag.Args()[0]
	b, err := os.ReadFile(fn)
	if err != nil {
		log.Fatalf("Can't open %s - %v", fn, err)
	}
	if len(b) == 0 {
		log.Fatalf("%s is empty", fn)
	}
	if max := 65536 - *loadAddr; len(b) > max {
		log.Printf("Length %d at 0x%.4X runs past the top of memory, truncating", len(b), *loadAddr)
		b = b[:max]
	}

	start := *startPC
	if start == 0 {
		start = *loadAddr
	}
	end := *loadAddr + len(b) - 1
	fmt.Printf("Load 0x%.4X-0x%.4X run 0x%.4X\n", *loadAddr, end, start)

	out := []byte{0xFF, 0xFF}
	out = append(out, word(*loadAddr)...)
	out = append(out, word(end)...)
	out = append(out, b...)
	out = append(out, word(int(xex.RUNAD))...)
	out = append(out, word(int(xex.RUNAD)+1)...)
	out = append(out, word(start)...)

	outfn := fn + ".xex"
	if err := os.WriteFile(outfn, out, 0777); err != nil {
		log.Fatalf("Can't write %q: %v", outfn, err)
	}
}

func word(v int) []byte {
	return []byte{byte(v), byte(v >> 8)}
}
