// Package gtia implements the GTIA display chip used in the Atari 8-bit
// line. It owns the color registers, the player/missile object registers,
// the collision latches, the joystick triggers and the console switches.
// Playfield rendering lives in the antic package which pulls colors from
// here while it paints scanlines.
package gtia

import (
	"fmt"
)

// TVMode is the enumeration for GTIA output mode (NTSC, PAL).
type TVMode int

const (
	TV_MODE_UNIMPLEMENTED TVMode = iota
	TV_MODE_NTSC
	TV_MODE_PAL
	TV_MODE_MAX
)

// CollisionClass picks one of the four collision latch blocks. These line
// up with the read register layout (4 registers per class, one per object).
type CollisionClass int

const (
	COLLISION_MISSILE_PLAYFIELD CollisionClass = iota
	COLLISION_PLAYER_PLAYFIELD
	COLLISION_MISSILE_PLAYER
	COLLISION_PLAYER_PLAYER
	kNUM_COLLISION_CLASSES
)

// Console switch indexes for SetConsoleKey. All 3 read back active low
// through CONSOL.
const (
	CONSOLE_START = iota
	CONSOLE_SELECT
	CONSOLE_OPTION
)

// Convention for constants:
//
// All caps - uint8 register locations/values/masks.
// Mixed case - values of other types.

const (
	kMASK_ADDR = uint16(0x1F) // GTIA decodes 5 address bits.

	kMASK_SIZEP  = uint8(0x03) // Player size uses 2 bits.
	kMASK_CONSOL = uint8(0x07) // Console switches drive 3 bits.

	kPAL_DETECT  = uint8(0x01) // PAL units read the detect bits low.
	kNTSC_DETECT = uint8(0x0F)

	kTRIGGER_OPEN = uint8(0x01) // Trigger lines idle high, pressed pulls to 0.
)

// Chip implements the register file for a GTIA including collision
// latches and console/trigger inputs.
type Chip struct {
	mode       TVMode
	colpm      [4]uint8 // Player/missile colors.
	colpf      [4]uint8 // Playfield colors.
	colbk      uint8    // Background/border color.
	hposp      [4]uint8 // Player horizontal positions.
	hposm      [4]uint8 // Missile horizontal positions.
	sizep      [4]uint8 // Player sizes (2 bits each).
	sizem      uint8    // Missile sizes (2 bits per missile).
	grafp      [4]uint8 // Player graphics patterns.
	grafm      uint8    // Missile graphics pattern.
	prior      uint8    // Priority and GTIA mode select.
	vdelay     uint8    // Vertical delay.
	gractl     uint8    // Graphics control.
	collisions [kNUM_COLLISION_CLASSES][4]uint8
	trig       [4]uint8 // Trigger lines, 1 == open.
	consol     uint8    // Console switches, active low.
}

// ChipDef is the definition for initializing a GTIA.
type ChipDef struct {
	// Mode defines the TV mode (NTSC or PAL). Besides timing handled
	// elsewhere this only changes the PAL detect register but OS ROMs key
	// their PAL/NTSC logic off it.
	Mode TVMode
}

// Init returns a fully initialized GTIA.
func Init(def *ChipDef) (*Chip, error) {
	if def.Mode <= TV_MODE_UNIMPLEMENTED || def.Mode >= TV_MODE_MAX {
		return nil, fmt.Errorf("GTIA mode is invalid: %d", def.Mode)
	}
	g := &Chip{
		mode: def.Mode,
	}
	g.PowerOn()
	return g, nil
}

// PowerOn performs a full power-on/reset for the GTIA.
func (g *Chip) PowerOn() {
	g.Reset()
}

// Reset resets the register file to the post boot state the OS expects.
// Collision latches clear, triggers and console switches read open.
func (g *Chip) Reset() {
	g.colpm = [4]uint8{0x38, 0x58, 0x88, 0xC8}
	g.colpf = [4]uint8{0x28, 0x48, 0x94, 0x46}
	g.colbk = 0x00
	g.hposp = [4]uint8{}
	g.hposm = [4]uint8{}
	g.sizep = [4]uint8{}
	g.sizem = 0x00
	g.grafp = [4]uint8{}
	g.grafm = 0x00
	g.prior = 0x00
	g.vdelay = 0x00
	g.gractl = 0x00
	for i := range g.collisions {
		g.collisions[i] = [4]uint8{}
	}
	g.trig = [4]uint8{kTRIGGER_OPEN, kTRIGGER_OPEN, kTRIGGER_OPEN, kTRIGGER_OPEN}
	g.consol = kMASK_CONSOL
}

// Constants for referencing addresses by well known conventions

const (
	// Read side definitions

	M0PF  = uint16(0x00)
	M1PF  = uint16(0x01)
	M2PF  = uint16(0x02)
	M3PF  = uint16(0x03)
	P0PF  = uint16(0x04)
	P1PF  = uint16(0x05)
	P2PF  = uint16(0x06)
	P3PF  = uint16(0x07)
	M0PL  = uint16(0x08)
	M1PL  = uint16(0x09)
	M2PL  = uint16(0x0A)
	M3PL  = uint16(0x0B)
	P0PL  = uint16(0x0C)
	P1PL  = uint16(0x0D)
	P2PL  = uint16(0x0E)
	P3PL  = uint16(0x0F)
	TRIG0 = uint16(0x10)
	TRIG1 = uint16(0x11)
	TRIG2 = uint16(0x12)
	TRIG3 = uint16(0x13)
	PAL   = uint16(0x14)

	// Write side definitions

	HPOSP0 = uint16(0x00)
	HPOSP1 = uint16(0x01)
	HPOSP2 = uint16(0x02)
	HPOSP3 = uint16(0x03)
	HPOSM0 = uint16(0x04)
	HPOSM1 = uint16(0x05)
	HPOSM2 = uint16(0x06)
	HPOSM3 = uint16(0x07)
	SIZEP0 = uint16(0x08)
	SIZEP1 = uint16(0x09)
	SIZEP2 = uint16(0x0A)
	SIZEP3 = uint16(0x0B)
	SIZEM  = uint16(0x0C)
	GRAFP0 = uint16(0x0D)
	GRAFP1 = uint16(0x0E)
	GRAFP2 = uint16(0x0F)
	GRAFP3 = uint16(0x10)
	GRAFM  = uint16(0x11)
	COLPM0 = uint16(0x12)
	COLPM1 = uint16(0x13)
	COLPM2 = uint16(0x14)
	COLPM3 = uint16(0x15)
	COLPF0 = uint16(0x16)
	COLPF1 = uint16(0x17)
	COLPF2 = uint16(0x18)
	COLPF3 = uint16(0x19)
	COLBK  = uint16(0x1A)
	PRIOR  = uint16(0x1B)
	VDELAY = uint16(0x1C)
	GRACTL = uint16(0x1D)
	HITCLR = uint16(0x1E)

	// CONSOL reads and writes at the same offset.

	CONSOL = uint16(0x1F)
)

// Read returns register values based on the given address. The address is
// masked to 5 bits internally (so aliasing across the whole GTIA window).
// Reads and writes decode separately so the read side only exposes the
// collision latches, triggers and detect bits.
func (g *Chip) Read(addr uint16) uint8 {
	// Strip to 5 bits for internal regs.
	addr &= kMASK_ADDR
	var ret uint8
	switch addr {
	case M0PF, M1PF, M2PF, M3PF:
		ret = g.collisions[COLLISION_MISSILE_PLAYFIELD][addr-M0PF]
	case P0PF, P1PF, P2PF, P3PF:
		ret = g.collisions[COLLISION_PLAYER_PLAYFIELD][addr-P0PF]
	case M0PL, M1PL, M2PL, M3PL:
		ret = g.collisions[COLLISION_MISSILE_PLAYER][addr-M0PL]
	case P0PL, P1PL, P2PL, P3PL:
		ret = g.collisions[COLLISION_PLAYER_PLAYER][addr-P0PL]
	case TRIG0, TRIG1, TRIG2, TRIG3:
		ret = g.trig[addr-TRIG0]
	case PAL:
		ret = kNTSC_DETECT
		if g.mode == TV_MODE_PAL {
			ret = kPAL_DETECT
		}
	case CONSOL:
		// Switches drive the low 3 bits, the rest pull high.
		ret = g.consol | ^kMASK_CONSOL
	default:
		// Unused read addresses pull high.
		ret = 0xFF
	}
	return ret
}

// Write stores the given value based on the given address. The address is
// masked to 5 bits internally (so aliasing across the whole GTIA window).
func (g *Chip) Write(addr uint16, val uint8) {
	// Strip to 5 bits for internal regs.
	addr &= kMASK_ADDR
	switch addr {
	case HPOSP0, HPOSP1, HPOSP2, HPOSP3:
		g.hposp[addr-HPOSP0] = val
	case HPOSM0, HPOSM1, HPOSM2, HPOSM3:
		g.hposm[addr-HPOSM0] = val
	case SIZEP0, SIZEP1, SIZEP2, SIZEP3:
		g.sizep[addr-SIZEP0] = val & kMASK_SIZEP
	case SIZEM:
		g.sizem = val
	case GRAFP0, GRAFP1, GRAFP2, GRAFP3:
		g.grafp[addr-GRAFP0] = val
	case GRAFM:
		g.grafm = val
	case COLPM0, COLPM1, COLPM2, COLPM3:
		g.colpm[addr-COLPM0] = val
	case COLPF0, COLPF1, COLPF2, COLPF3:
		g.colpf[addr-COLPF0] = val
	case COLBK:
		g.colbk = val
	case PRIOR:
		g.prior = val
	case VDELAY:
		g.vdelay = val
	case GRACTL:
		g.gractl = val
	case HITCLR:
		// Strobe. The written value is ignored and every latch clears.
		for i := range g.collisions {
			g.collisions[i] = [4]uint8{}
		}
	case CONSOL:
		// Only the speaker line is writable and there's no speaker here.
	}
}

// SetCollision ORs the given bits into the collision latch for one object
// (player/missile 0-3). Latches only clear via HITCLR.
func (g *Chip) SetCollision(class CollisionClass, object int, bits uint8) {
	if class < 0 || class >= kNUM_COLLISION_CLASSES || object < 0 || object > 3 {
		return
	}
	g.collisions[class][object] |= bits
}

// SetTrigger sets the state of one joystick trigger line (0-3). Triggers
// read active low so a pressed trigger reads 0.
func (g *Chip) SetTrigger(n int, pressed bool) {
	if n < 0 || n > 3 {
		return
	}
	g.trig[n] = kTRIGGER_OPEN
	if pressed {
		g.trig[n] = 0x00
	}
}

// SetConsoleKey sets the state of one console switch (CONSOLE_START,
// CONSOLE_SELECT, CONSOLE_OPTION). Switches read active low through CONSOL.
func (g *Chip) SetConsoleKey(key int, pressed bool) {
	if key < CONSOLE_START || key > CONSOLE_OPTION {
		return
	}
	if pressed {
		g.consol &^= 1 << uint(key)
		return
	}
	g.consol |= 1 << uint(key)
}

// BackgroundColor returns the current background/border color register.
func (g *Chip) BackgroundColor() uint8 {
	return g.colbk
}

// PlayfieldColor returns playfield color register n (0-3).
func (g *Chip) PlayfieldColor(n int) uint8 {
	return g.colpf[n&0x03]
}

// PlayerMissileColor returns player/missile color register n (0-3).
func (g *Chip) PlayerMissileColor(n int) uint8 {
	return g.colpm[n&0x03]
}
