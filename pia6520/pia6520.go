// Package pia6520 implements the PIA (6520) as wired in the Atari XL/XE
// line. Port A reads the two joystick direction nibbles, port B drives the
// ROM banking select lines. Both ports follow the DDR discipline: the
// control register picks whether the port offset addresses the data
// register or the direction register.
package pia6520

// Convention for constants:
//
// All caps - uint8 register locations/values/masks.
// Mixed case - values of other types.

const (
	kMASK_ADDR = uint16(0x03) // PIA decodes 2 address bits.

	kMASK_DATA_SELECT = uint8(0x04) // Control bit picking data (set) vs DDR (clear).

	kJOY_UP    = uint8(0x01)
	kJOY_DOWN  = uint8(0x02)
	kJOY_LEFT  = uint8(0x04)
	kJOY_RIGHT = uint8(0x08)
)

// Chip implements the two I/O ports of a 6520.
type Chip struct {
	porta uint8 // Port A data register.
	portb uint8 // Port B data register. Drives ROM banking.
	ddra  uint8 // Port A direction register, set bits are outputs.
	ddrb  uint8 // Port B direction register, set bits are outputs.
	pactl uint8
	pbctl uint8
	joy1  uint8 // Latched stick 1 directions, set == pushed.
	joy2  uint8 // Latched stick 2 directions, set == pushed.
}

// ChipDef is the definition for initializing a 6520.
type ChipDef struct {
}

// Init returns a fully initialized 6520.
func Init(def *ChipDef) (*Chip, error) {
	p := &Chip{}
	p.PowerOn()
	return p, nil
}

// PowerOn performs a full power-on/reset for the 6520.
func (p *Chip) PowerOn() {
	p.Reset()
}

// Reset returns both ports to all-input with the data registers high.
// Port B high means every ROM select line starts in its boot state.
func (p *Chip) Reset() {
	p.porta = 0xFF
	p.portb = 0xFF
	p.ddra = 0x00
	p.ddrb = 0x00
	p.pactl = 0x00
	p.pbctl = 0x00
	p.joy1 = 0x00
	p.joy2 = 0x00
}

// Constants for referencing addresses by well known conventions

const (
	PORTA = uint16(0x00)
	PORTB = uint16(0x01)
	PACTL = uint16(0x02)
	PBCTL = uint16(0x03)
)

// Read returns register values based on the given address. The address is
// masked to 2 bits internally (so aliasing across the whole PIA window).
func (p *Chip) Read(addr uint16) uint8 {
	// Strip to 2 bits for internal regs.
	addr &= kMASK_ADDR
	var ret uint8
	switch addr {
	case PORTA:
		if p.pactl&kMASK_DATA_SELECT == 0 {
			ret = p.ddra
			break
		}
		// Joystick switches read active low on the input bits. Output
		// bits read back the data register.
		in := (^p.joy1 & 0x0F) | (^p.joy2&0x0F)<<4
		ret = (in &^ p.ddra) | (p.porta & p.ddra)
	case PORTB:
		if p.pbctl&kMASK_DATA_SELECT == 0 {
			ret = p.ddrb
			break
		}
		ret = p.portb
	case PACTL:
		ret = p.pactl
	case PBCTL:
		ret = p.pbctl
	}
	return ret
}

// Write stores the given value based on the given address. The address is
// masked to 2 bits internally (so aliasing across the whole PIA window).
func (p *Chip) Write(addr uint16, val uint8) {
	// Strip to 2 bits for internal regs.
	addr &= kMASK_ADDR
	switch addr {
	case PORTA:
		if p.pactl&kMASK_DATA_SELECT == 0 {
			p.ddra = val
			break
		}
		p.porta = val
	case PORTB:
		if p.pbctl&kMASK_DATA_SELECT == 0 {
			p.ddrb = val
			break
		}
		// Bits configured as inputs hold their previous state, only
		// output bits take the write.
		p.portb = (val & p.ddrb) | (p.portb &^ p.ddrb)
	case PACTL:
		p.pactl = val
	case PBCTL:
		p.pbctl = val
	}
}

// SetJoystick1 latches the direction switches for the first stick. The
// port A low nibble reads these back active low.
func (p *Chip) SetJoystick1(up, down, left, right bool) {
	p.joy1 = joyBits(up, down, left, right)
}

// SetJoystick2 latches the direction switches for the second stick. The
// port A high nibble reads these back active low.
func (p *Chip) SetJoystick2(up, down, left, right bool) {
	p.joy2 = joyBits(up, down, left, right)
}

func joyBits(up, down, left, right bool) uint8 {
	var b uint8
	if up {
		b |= kJOY_UP
	}
	if down {
		b |= kJOY_DOWN
	}
	if left {
		b |= kJOY_LEFT
	}
	if right {
		b |= kJOY_RIGHT
	}
	return b
}

// PortB returns the current port B output byte. The memory router derives
// ROM banking from this after every PIA window write.
func (p *Chip) PortB() uint8 {
	return p.portb
}
