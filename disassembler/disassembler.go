// disassembler takes a filename and load's it and then
// disassembles it to stdout starting at the first instruction.
// If the filename ends in .xex or .com (case insensitive) it will assume
// this is an Atari DOS executable, place each load segment at its load
// address and disassemble the segments in turn along with any run/init
// vectors. Any other file loads at -offset and disassembles from -start_pc.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmchacon/atari800/disassemble"
	"github.com/jmchacon/atari800/xex"
)

// flatMemory implements the RAM interface
type flatMemory struct {
	addr [65536]uint8
}

func (r *flatMemory) Read(addr uint16) uint8 {
	return r.addr[addr]
}

func (r *flatMemory) Write(addr uint16, val uint8) {}

func (r *flatMemory) PowerOn() {}

var (
	startPC = flag.Int("start_pc", 0x0000, "PC value to start disassembling. Ignored for Atari executables.")
	offset  = flag.Int("offset", 0x0000, "Offset into RAM to start loading data. All other RAM will be zero'd out. Ignored for Atari executables.")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-start_pc <PC> -offset <offset>] <filename>", os.Args[0])
	}
	fn := flag.Args()[0]

	f := &flatMemory{}
	f.PowerOn()
	b, err := os.ReadFile(fn)
	if err != nil {
		log.Fatalf("Can't open %s - %v", fn, err)
	}

	if xex.DetectType(fn) == xex.FILE_TYPE_XEX {
		res, err := xex.LoadXEX(f.addr[:], b)
		if err != nil {
			log.Fatalf("Can't load %s - %v", fn, err)
		}
		fmt.Println("Atari executable")
		if res.InitAddress != 0x0000 {
			fmt.Printf("Init: %.4X\n", res.InitAddress)
		}
		if res.RunAddress != 0x0000 {
			fmt.Printf("Run:  %.4X\n", res.RunAddress)
		}
		for _, s := range res.Segments {
			fmt.Printf("Segment %.4X-%.4X\n", s.Start, s.End)
			// Walk with a plain int since a segment can end at the top of memory
			// where the PC would rollover.
			for at := int(s.Start); at <= int(s.End); {
				dis, off := disassemble.Step(uint16(at), f)
				at += off
				fmt.Printf("%s\n", dis)
			}
		}
		return
	}

	pc := uint16(*startPC)
	max := 65536 - *offset
	if l := len(b); l > max {
		log.Printf("Length %d at offset %d too long, truncating to 64k", l, *offset)
		b = b[:max]
	}
	fmt.Printf("0x%.2X bytes at pc: %.4X\n", len(b), pc)
	copy(f.addr[*offset:], b)
	cnt := 0
	// Can't base it on PC since it may rollover so just disassemble until we run out of buffer.
	for cnt < len(b) {
		dis, off := disassemble.Step(pc, f)
		pc += uint16(off)
		cnt += off
		fmt.Printf("%s\n", dis)
	}
}
