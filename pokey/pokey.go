// Package pokey implements the POKEY sound and keyboard chip used in the
// Atari 8-bit line. It synthesizes the four oscillator channels into a
// 16 bit PCM stream one scanline's worth at a time, runs the noise
// polynomials and the random register, latches keyboard scan codes and
// raises the timer/keyboard/break IRQ lines the OS services.
package pokey

import (
	"fmt"
	"math"
)

// Convention for constants:
//
// All caps - uint8 register locations/values/masks.
// Mixed case - values of other types.

const (
	kMASK_ADDR = uint16(0x0F) // POKEY decodes 4 address bits.

	// AUDCTL bits.

	kMASK_POLY9_SEL  = uint8(0x80) // 9 bit poly replaces the 17 bit one.
	kMASK_CH1_179    = uint8(0x40) // Channel 1 clocks at 1.79MHz.
	kMASK_CH3_179    = uint8(0x20) // Channel 3 clocks at 1.79MHz.
	kMASK_CH12_JOIN  = uint8(0x10) // Channels 1+2 form one 16 bit divider.
	kMASK_CH34_JOIN  = uint8(0x08) // Channels 3+4 form one 16 bit divider.
	kMASK_CH1_HIPASS = uint8(0x04)
	kMASK_CH2_HIPASS = uint8(0x02)
	kMASK_15KHZ      = uint8(0x01) // 15kHz base clock instead of 64kHz.

	// IRQ enable/status bits. IRQST reads active low.

	kIRQ_TIMER1 = uint8(0x01)
	kIRQ_TIMER2 = uint8(0x02)
	kIRQ_TIMER4 = uint8(0x04)
	kIRQ_SEROUT = uint8(0x08)
	kIRQ_KEY    = uint8(0x40)
	kIRQ_BREAK  = uint8(0x80)

	// AUDC fields.

	kMASK_VOLUME      = uint8(0x0F)
	kMASK_VOLUME_ONLY = uint8(0x10) // DC output, oscillator bypassed.

	kSKSTAT_KEYDOWN = uint8(0x04) // Active low key held line.

	// Poly counter widths.

	kMASK_POLY4  = uint32(0x0F)
	kMASK_POLY5  = uint32(0x1F)
	kMASK_POLY9  = uint32(0x1FF)
	kMASK_POLY17 = uint32(0x1FFFF)

	kPOT_CENTER = uint8(228) // Pot scan value for a centered paddle.

	kShiftDistortion = 5

	kDiv64 = uint32(28)  // 1.79MHz / 28 is the 64kHz base clock.
	kDiv15 = uint32(114) // 1.79MHz / 114 is the 15kHz base clock.

	kPolyCadence = 40 // Samples between polynomial advances.

	kVolumeStep = 2048 // Output units per volume step.

	kSampleRate        = 44100
	kFramesPerSecond   = 50
	kScanlinesPerFrame = 312
)

// channel is one POKEY oscillator.
type channel struct {
	audf       uint8  // Divider reload value.
	audc       uint8  // Volume/distortion control.
	divider    uint32 // Running divider counter.
	period     uint32 // Computed period, 0 parks the channel.
	output     bool   // Square wave state.
	lastOutput int16  // Previous sample for the high-pass filter.
}

func (c *channel) volume() uint8     { return c.audc & kMASK_VOLUME }
func (c *channel) distortion() uint8 { return c.audc >> kShiftDistortion }
func (c *channel) volumeOnly() bool  { return c.audc&kMASK_VOLUME_ONLY != 0 }

// Chip implements a POKEY.
type Chip struct {
	channels [4]channel

	audctl      uint8
	poly9Mode   bool
	ch1Fast     bool // Channel 1 on the 1.79MHz clock.
	ch3Fast     bool // Channel 3 on the 1.79MHz clock.
	ch12Joined  bool
	ch34Joined  bool
	ch1HighPass bool
	ch2HighPass bool
	clock15khz  bool

	// Noise polynomial counters. These run process wide (all channels
	// sample the same streams) and only reset on chip reset.
	poly4    uint32
	poly5    uint32
	poly9    uint32
	poly17   uint32
	polyStep uint32
	random   uint8

	irqen uint8
	irqst uint8 // Active low.

	kbcode uint8
	skctl  uint8
	skstat uint8 // Active low.

	pot    [8]uint8
	allpot uint8

	serout uint8
	serin  uint8

	samplesPerFrame int
	sampleIdx       int
	samples         []int16
}

// ChipDef is the definition for initializing a POKEY.
type ChipDef struct {
	// SampleRate is the audio output rate in Hz. 0 picks 44100. The per
	// frame sample count derives from this at 50 frames/s.
	SampleRate int
}

// Init returns a fully initialized POKEY.
func Init(def *ChipDef) (*Chip, error) {
	rate := def.SampleRate
	if rate == 0 {
		rate = kSampleRate
	}
	spf := rate / kFramesPerSecond
	if spf <= 0 {
		return nil, fmt.Errorf("sample rate is invalid: %d", rate)
	}
	p := &Chip{
		samplesPerFrame: spf,
		samples:         make([]int16, spf),
	}
	p.PowerOn()
	return p, nil
}

// PowerOn performs a full power-on/reset for the POKEY.
func (p *Chip) PowerOn() {
	p.Reset()
}

// Reset resets audio, interrupt, keyboard, serial and pot state. A zero
// write to SKCTL lands here too, which is how the OS resets the chip.
func (p *Chip) Reset() {
	for i := range p.channels {
		p.channels[i] = channel{period: 1}
	}

	p.audctl = 0x00
	p.poly9Mode = false
	p.ch1Fast = false
	p.ch3Fast = false
	p.ch12Joined = false
	p.ch34Joined = false
	p.ch1HighPass = false
	p.ch2HighPass = false
	p.clock15khz = false

	// Polys start all ones and free run from there.
	p.poly4 = kMASK_POLY4
	p.poly5 = kMASK_POLY5
	p.poly9 = kMASK_POLY9
	p.poly17 = kMASK_POLY17
	p.polyStep = 0
	p.random = 0xFF

	p.irqen = 0x00
	p.irqst = 0xFF

	p.kbcode = 0xFF
	p.skctl = 0x00
	p.skstat = 0xFF

	for i := range p.pot {
		p.pot[i] = kPOT_CENTER
	}
	p.allpot = 0x00

	p.serout = 0x00
	p.serin = 0x00

	p.sampleIdx = 0
	for i := range p.samples {
		p.samples[i] = 0
	}
}

// Constants for referencing addresses by well known conventions

const (
	// Read side definitions

	POT0   = uint16(0x00)
	POT1   = uint16(0x01)
	POT2   = uint16(0x02)
	POT3   = uint16(0x03)
	POT4   = uint16(0x04)
	POT5   = uint16(0x05)
	POT6   = uint16(0x06)
	POT7   = uint16(0x07)
	ALLPOT = uint16(0x08)
	KBCODE = uint16(0x09)
	RANDOM = uint16(0x0A)
	SERIN  = uint16(0x0D)
	IRQST  = uint16(0x0E)
	SKSTAT = uint16(0x0F)

	// Write side definitions

	AUDF1  = uint16(0x00)
	AUDC1  = uint16(0x01)
	AUDF2  = uint16(0x02)
	AUDC2  = uint16(0x03)
	AUDF3  = uint16(0x04)
	AUDC3  = uint16(0x05)
	AUDF4  = uint16(0x06)
	AUDC4  = uint16(0x07)
	AUDCTL = uint16(0x08)
	STIMER = uint16(0x09)
	SKREST = uint16(0x0A)
	POTGO  = uint16(0x0B)
	SEROUT = uint16(0x0D)
	IRQEN  = uint16(0x0E)
	SKCTL  = uint16(0x0F)
)

// Read returns register values based on the given address. The address is
// masked to 4 bits internally (so aliasing across the whole POKEY window).
func (p *Chip) Read(addr uint16) uint8 {
	// Strip to 4 bits for internal regs.
	addr &= kMASK_ADDR
	var ret uint8
	switch addr {
	case POT0, POT1, POT2, POT3, POT4, POT5, POT6, POT7:
		ret = p.pot[addr-POT0]
	case ALLPOT:
		ret = p.allpot
	case KBCODE:
		ret = p.kbcode
	case RANDOM:
		// Reading the random register clocks the polynomials as a side
		// effect, so back to back reads differ.
		p.advancePolynomials()
		ret = p.random
	case SERIN:
		ret = p.serin
	case IRQST:
		ret = p.irqst
	case SKSTAT:
		ret = p.skstat
	default:
		// Unused read addresses pull high.
		ret = 0xFF
	}
	return ret
}

// Write stores the given value based on the given address. The address is
// masked to 4 bits internally (so aliasing across the whole POKEY window).
func (p *Chip) Write(addr uint16, val uint8) {
	// Strip to 4 bits for internal regs.
	addr &= kMASK_ADDR
	switch addr {
	case AUDF1, AUDF2, AUDF3, AUDF4:
		p.channels[(addr-AUDF1)/2].audf = val
		p.updatePeriods()
	case AUDC1, AUDC2, AUDC3, AUDC4:
		p.channels[(addr-AUDC1)/2].audc = val
	case AUDCTL:
		p.audctl = val
		p.poly9Mode = val&kMASK_POLY9_SEL != 0
		p.ch1Fast = val&kMASK_CH1_179 != 0
		p.ch3Fast = val&kMASK_CH3_179 != 0
		p.ch12Joined = val&kMASK_CH12_JOIN != 0
		p.ch34Joined = val&kMASK_CH34_JOIN != 0
		p.ch1HighPass = val&kMASK_CH1_HIPASS != 0
		p.ch2HighPass = val&kMASK_CH2_HIPASS != 0
		p.clock15khz = val&kMASK_15KHZ != 0
		p.updatePeriods()
	case STIMER:
		// Strobe. Restart every divider from its period.
		for i := range p.channels {
			p.channels[i].divider = p.channels[i].period
		}
	case SKREST:
		// Strobe. Clears the latched serial/keyboard status bits.
		p.skstat = 0xFF
	case POTGO:
		// Strobe. Pot scans complete instantly here rather than counting
		// up over lines, so ALLPOT reads ready immediately.
		p.allpot = 0x00
	case SEROUT:
		p.serout = val
		// Nothing is wired to the serial bus so the shift register
		// drains instantly.
		if p.irqen&kIRQ_SEROUT != 0 {
			p.irqst &^= kIRQ_SEROUT
		}
	case IRQEN:
		p.irqen = val
		// Disabling an interrupt also clears its pending status. This is
		// how the OS acknowledges.
		p.irqst |= ^val
	case SKCTL:
		p.skctl = val
		if val == 0x00 {
			p.Reset()
		}
	}
}

// advancePolynomials steps the four noise polynomials one shift each and
// refreshes the random register. Taps: 4 bit x^4+x^3, 5 bit x^5+x^3,
// 9 bit x^9+x^4, 17 bit x^17+x^12.
func (p *Chip) advancePolynomials() {
	bit4 := ((p.poly4 >> 3) ^ (p.poly4 >> 2)) & 1
	p.poly4 = ((p.poly4 << 1) | bit4) & kMASK_POLY4

	bit5 := ((p.poly5 >> 4) ^ (p.poly5 >> 2)) & 1
	p.poly5 = ((p.poly5 << 1) | bit5) & kMASK_POLY5

	bit9 := ((p.poly9 >> 8) ^ (p.poly9 >> 3)) & 1
	p.poly9 = ((p.poly9 << 1) | bit9) & kMASK_POLY9

	bit17 := ((p.poly17 >> 16) ^ (p.poly17 >> 11)) & 1
	p.poly17 = ((p.poly17 << 1) | bit17) & kMASK_POLY17

	if p.poly9Mode {
		p.random = uint8(p.poly9 ^ (p.poly9 >> 1))
	} else {
		p.random = uint8(p.poly17 ^ (p.poly17 >> 1))
	}
}

// updatePeriods recomputes both channel pairs. Runs on every AUDF or
// AUDCTL write since joins and clock selects change every derived period.
func (p *Chip) updatePeriods() {
	baseDiv := kDiv64
	if p.clock15khz {
		baseDiv = kDiv15
	}
	p.updatePair(0, p.ch12Joined, p.ch1Fast, baseDiv)
	p.updatePair(2, p.ch34Joined, p.ch3Fast, baseDiv)
}

// updatePair recomputes the periods for the channel pair starting at lo.
// A joined pair runs the low channel as one 16 bit divider (low channel
// AUDF is the high byte) and parks the high channel.
func (p *Chip) updatePair(lo int, joined, fast bool, baseDiv uint32) {
	a, b := &p.channels[lo], &p.channels[lo+1]
	if joined {
		freq16 := uint32(a.audf)<<8 | uint32(b.audf)
		if fast {
			a.period = freq16 + 1
		} else {
			a.period = (freq16 + 1) * baseDiv
		}
		b.period = 0
		return
	}
	if fast {
		a.period = uint32(a.audf) + 4
	} else {
		a.period = (uint32(a.audf) + 1) * baseDiv
	}
	b.period = (uint32(b.audf) + 1) * baseDiv
}

// timerUnderflow raises the timer IRQ tied to a channel divider underflow.
// Only channels 1, 2 and 4 have IRQ lines.
func (p *Chip) timerUnderflow(ch int) {
	var mask uint8
	switch ch {
	case 0:
		mask = kIRQ_TIMER1
	case 1:
		mask = kIRQ_TIMER2
	case 3:
		mask = kIRQ_TIMER4
	default:
		return
	}
	if p.irqen&mask != 0 {
		p.irqst &^= mask
	}
}

// polyBit returns the low bit of whichever wide polynomial AUDCTL selects.
func (p *Chip) polyBit() bool {
	if p.poly9Mode {
		return p.poly9&1 != 0
	}
	return p.poly17&1 != 0
}

// generateSample runs every channel divider forward one output sample and
// mixes the results. Distortion gates the square wave against the poly
// streams per the AUDC mode table.
func (p *Chip) generateSample() int16 {
	// Polys advance on a fixed cadence, not per sample, to keep the noise
	// character close to hardware at this output rate.
	p.polyStep++
	if p.polyStep >= kPolyCadence {
		p.advancePolynomials()
		p.polyStep = 0
	}

	var mix int32
	for ch := range p.channels {
		c := &p.channels[ch]

		// A joined pair parks its high channel with period 0.
		if c.period == 0 {
			continue
		}

		// Volume only mode bypasses the oscillator for a DC level.
		if c.volumeOnly() {
			mix += int32(c.volume()) * kVolumeStep
			continue
		}

		if c.volume() == 0 {
			continue
		}

		if c.divider > 0 {
			c.divider--
		} else {
			c.divider = c.period
			c.output = !c.output
			p.timerUnderflow(ch)
		}

		out := c.output
		switch c.distortion() {
		case 0: // 5 bit and 9/17 bit polys.
			out = out && p.poly5&1 != 0 && p.polyBit()
		case 1, 3: // 5 bit poly.
			out = out && p.poly5&1 != 0
		case 2: // 5 bit and 4 bit polys.
			out = out && p.poly5&1 != 0 && p.poly4&1 != 0
		case 4: // 9/17 bit poly.
			out = out && p.polyBit()
		case 5, 7: // Pure tone.
		case 6: // 4 bit poly.
			out = out && p.poly4&1 != 0
		}

		var sample int16
		if out {
			sample = int16(c.volume()) * kVolumeStep
		}
		// High-pass on channels 1 and 2 differences against the last
		// sample. lastOutput tracks for every channel regardless so
		// toggling the filter bits mid stream behaves.
		if (ch == 0 && p.ch1HighPass) || (ch == 1 && p.ch2HighPass) {
			sample -= c.lastOutput
		}
		c.lastOutput = sample
		mix += int32(sample)
	}

	if mix > math.MaxInt16 {
		mix = math.MaxInt16
	}
	if mix < math.MinInt16 {
		mix = math.MinInt16
	}
	return int16(mix)
}

// FillBuffer synthesizes samples up to the given scanline's proportional
// share of the frame buffer. Integer rounding self corrects line to line
// and the final line always tops the buffer off completely.
func (p *Chip) FillBuffer(scanline int) {
	target := (scanline + 1) * p.samplesPerFrame / kScanlinesPerFrame
	if target > p.samplesPerFrame {
		target = p.samplesPerFrame
	}
	for p.sampleIdx < target {
		p.samples[p.sampleIdx] = p.generateSample()
		p.sampleIdx++
	}
}

// FrameSamples hands back everything synthesized since the last call and
// resets the fill index. The slice aliases the internal buffer so it is
// only valid until the next FillBuffer.
func (p *Chip) FrameSamples() []int16 {
	s := p.samples[:p.sampleIdx]
	p.sampleIdx = 0
	return s
}

// SetKeyCode latches a keyboard scan code. A press latches the code, pulls
// the SKSTAT key held line low and raises the keyboard IRQ when enabled.
// A release only releases the key held line, the code stays latched.
func (p *Chip) SetKeyCode(code uint8, pressed bool) {
	if pressed {
		p.kbcode = code
		p.skstat &^= kSKSTAT_KEYDOWN
		if p.irqen&kIRQ_KEY != 0 {
			p.irqst &^= kIRQ_KEY
		}
		return
	}
	p.skstat |= kSKSTAT_KEYDOWN
}

// SetBreakKey raises the break key IRQ when enabled. BREAK has no scan
// code, only its own IRQ line.
func (p *Chip) SetBreakKey(pressed bool) {
	if pressed && p.irqen&kIRQ_BREAK != 0 {
		p.irqst &^= kIRQ_BREAK
	}
}

// SetPaddle sets one pot input (0-7) to a raw scan value, 0 to 228.
func (p *Chip) SetPaddle(n int, val uint8) {
	if n < 0 || n >= len(p.pot) {
		return
	}
	p.pot[n] = val
}

// Raised implements irq.Sender. The line is active while any enabled
// interrupt has its (active low) status bit down.
func (p *Chip) Raised() bool {
	return p.irqst&p.irqen != p.irqen
}
