// Package membus implements the XL/XE memory decode: 64K of RAM with the
// OS, BASIC and self test ROM overlays banked over it, the four chip
// register windows in the $D000 page, and the banking state those chips'
// port lines select. It implements memory.Bank for the CPU and exposes a
// side effect free view of the same decode for display DMA.
package membus

import (
	"errors"
	"fmt"

	"github.com/jmchacon/atari800/gtia"
	"github.com/jmchacon/atari800/memory"
	"github.com/jmchacon/atari800/pia6520"
	"github.com/jmchacon/atari800/pokey"
)

// Convention for constants:
//
// All caps - uint8/uint16 register locations/values/masks.
// Mixed case - values of other types.

const (
	kSELF_TEST_START = uint16(0x5000)
	kSELF_TEST_END   = uint16(0x5800) // Exclusive.
	kBASIC_START     = uint16(0xA000)
	kOS_START        = uint16(0xC000)
	kHW_START        = uint16(0xD000)
	kHW_END          = uint16(0xD800) // Exclusive.

	// The self test image lives inside the OS ROM under the hardware
	// window's addresses.
	kSELF_TEST_ROM_BASE = uint16(0x1000)

	kGTIA_END  = uint16(0xD100) // All window bounds exclusive.
	kGAP_END   = uint16(0xD200)
	kPOKEY_END = uint16(0xD300)
	kPIA_END   = uint16(0xD400)
	kANTIC_END = uint16(0xD500)

	kMASK_GTIA  = uint16(0x1F)
	kMASK_POKEY = uint16(0x0F)
	kMASK_PIA   = uint16(0x03)
	kMASK_ANTIC = uint16(0x0F)

	// Port B lines selecting the overlays. All enable when pulled low.
	kPORTB_OS_ROM   = uint8(0x01)
	kPORTB_BASIC    = uint8(0x02)
	kPORTB_SELFTEST = uint8(0x80)

	kRamSize      = 65536
	kOSRomSize    = 16384
	kBasicRomSize = 8192
)

// RegisterBlock is the register window surface a chip exposes to the bus.
type RegisterBlock interface {
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)
}

// Bus routes the 6502's address space to RAM, the ROM overlays and the
// chip register windows.
type Bus struct {
	ram      []uint8
	osRom    []uint8
	basicRom []uint8
	gtia     *gtia.Chip
	pokey    *pokey.Chip
	pia      *pia6520.Chip
	antic    RegisterBlock

	osRomEnabled    bool
	basicRomEnabled bool
	selfTestEnabled bool
}

// ChipDef is the definition for initializing a Bus.
type ChipDef struct {
	// Ram is the 64K backing store. The bus performs all decode over it
	// but the allocation stays with the caller (loaders poke it directly).
	Ram []uint8
	// OSRom is the 16K OS image mapped at $C000-$FFFF with the hardware
	// window punched out of it.
	OSRom []uint8
	// BasicRom is the 8K BASIC image mapped at $A000-$BFFF.
	BasicRom []uint8
	// GTIA, POKEY and PIA back their register windows.
	GTIA  *gtia.Chip
	POKEY *pokey.Chip
	PIA   *pia6520.Chip
}

// Init returns a fully initialized Bus. The ANTIC window attaches
// afterwards via ConnectANTIC since ANTIC itself initializes against the
// bus's video view.
func Init(def *ChipDef) (*Bus, error) {
	if got := len(def.Ram); got != kRamSize {
		return nil, fmt.Errorf("Ram must be %d bytes, got %d", kRamSize, got)
	}
	if got := len(def.OSRom); got != kOSRomSize {
		return nil, fmt.Errorf("OSRom must be %d bytes, got %d", kOSRomSize, got)
	}
	if got := len(def.BasicRom); got != kBasicRomSize {
		return nil, fmt.Errorf("BasicRom must be %d bytes, got %d", kBasicRomSize, got)
	}
	if def.GTIA == nil {
		return nil, errors.New("GTIA must be non-nil")
	}
	if def.POKEY == nil {
		return nil, errors.New("POKEY must be non-nil")
	}
	if def.PIA == nil {
		return nil, errors.New("PIA must be non-nil")
	}
	b := &Bus{
		ram:      def.Ram,
		osRom:    def.OSRom,
		basicRom: def.BasicRom,
		gtia:     def.GTIA,
		pokey:    def.POKEY,
		pia:      def.PIA,
	}
	b.PowerOn()
	return b, nil
}

// ConnectANTIC attaches the ANTIC register window. Reads there pull high
// until this is called.
func (b *Bus) ConnectANTIC(a RegisterBlock) {
	b.antic = a
}

// PowerOn zeroes RAM and restores boot banking. ROM images are loaned and
// never touched.
func (b *Bus) PowerOn() {
	for i := range b.ram {
		b.ram[i] = 0x00
	}
	b.Reset()
}

// Reset restores the boot banking: OS and BASIC mapped, self test off.
// The PIA's port value takes over at its first write.
func (b *Bus) Reset() {
	b.osRomEnabled = true
	b.basicRomEnabled = true
	b.selfTestEnabled = false
}

// Read implements memory.Bank, dispatching per the XL decode.
func (b *Bus) Read(addr uint16) uint8 {
	switch {
	case addr < kBASIC_START:
		if b.selfTestEnabled && addr >= kSELF_TEST_START && addr < kSELF_TEST_END {
			return b.osRom[addr-kSELF_TEST_START+kSELF_TEST_ROM_BASE]
		}
		return b.ram[addr]
	case addr < kOS_START:
		if b.basicRomEnabled {
			return b.basicRom[addr-kBASIC_START]
		}
		return b.ram[addr]
	case addr >= kHW_START && addr < kHW_END:
		return b.readIO(addr)
	default:
		// $C000-$CFFF and $D800-$FFFF share the one OS image.
		if b.osRomEnabled {
			return b.osRom[addr-kOS_START]
		}
		return b.ram[addr]
	}
}

// Write implements memory.Bank. ROM overlays never block writes: the RAM
// underneath takes every byte so software can stage data for later banked
// access. Hardware window writes dispatch to the chips.
func (b *Bus) Write(addr uint16, val uint8) {
	if addr >= kHW_START && addr < kHW_END {
		b.writeIO(addr, val)
		return
	}
	b.ram[addr] = val
}

func (b *Bus) readIO(addr uint16) uint8 {
	switch {
	case addr < kGTIA_END:
		return b.gtia.Read(addr & kMASK_GTIA)
	case addr < kGAP_END:
		// Nothing decodes between GTIA and POKEY.
		return 0xFF
	case addr < kPOKEY_END:
		return b.pokey.Read(addr & kMASK_POKEY)
	case addr < kPIA_END:
		return b.pia.Read(addr & kMASK_PIA)
	case addr < kANTIC_END:
		if b.antic == nil {
			return 0xFF
		}
		return b.antic.Read(addr & kMASK_ANTIC)
	default:
		// $D500-$D7FF is unpopulated cartridge space.
		return 0xFF
	}
}

func (b *Bus) writeIO(addr uint16, val uint8) {
	switch {
	case addr < kGTIA_END:
		b.gtia.Write(addr&kMASK_GTIA, val)
	case addr < kGAP_END:
	case addr < kPOKEY_END:
		b.pokey.Write(addr&kMASK_POKEY, val)
	case addr < kPIA_END:
		b.pia.Write(addr&kMASK_PIA, val)
		// Banking must re-derive before the next access, stale mappings
		// are never allowed past this write.
		b.updateBanking()
	case addr < kANTIC_END:
		if b.antic != nil {
			b.antic.Write(addr&kMASK_ANTIC, val)
		}
	}
}

// updateBanking re-derives the three ROM overlays from port B.
func (b *Bus) updateBanking() {
	portb := b.pia.PortB()
	b.osRomEnabled = portb&kPORTB_OS_ROM == 0
	b.basicRomEnabled = portb&kPORTB_BASIC == 0
	b.selfTestEnabled = portb&kPORTB_SELFTEST == 0
}

// VideoRead returns what display DMA sees at addr: ROM overlays apply but
// the hardware window reads as plain RAM so DMA never trips chip register
// side effects.
func (b *Bus) VideoRead(addr uint16) uint8 {
	if addr >= kHW_START && addr < kHW_END {
		return b.ram[addr]
	}
	return b.Read(addr)
}

// videoView adapts VideoRead as a read only memory.Bank.
type videoView struct {
	b *Bus
}

func (v *videoView) Read(addr uint16) uint8 {
	return v.b.VideoRead(addr)
}

// Write drops everything. Display DMA never writes.
func (v *videoView) Write(addr uint16, val uint8) {
}

func (v *videoView) PowerOn() {
}

// VideoView returns the read only view display DMA fetches through.
func (b *Bus) VideoView() memory.Bank {
	return &videoView{b}
}
