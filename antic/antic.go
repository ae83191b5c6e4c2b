// Package antic implements the display list driven video coprocessor of
// the 800XL. The orchestrator asks it once per scanline to render into a
// 320x192 RGB565 frame and advance. Display list, screen data and
// character set fetches all go through a memory.Bank (the bus's video
// view so ROM banking applies) and each fetch steals a CPU cycle which
// the orchestrator reads back through DMACycles.
package antic

import (
	"errors"
	"math"

	"github.com/jmchacon/atari800/gtia"
	"github.com/jmchacon/atari800/memory"
)

// Convention for constants:
//
// All caps - uint8/uint16 register locations/values/masks.
// Mixed case - values of other types.

const (
	kMASK_ADDR = uint16(0x0F)

	// DMACTL bits.
	kMASK_PLAYFIELD   = uint8(0x03)
	kPLAYFIELD_NONE   = uint8(0x00)
	kPLAYFIELD_NARROW = uint8(0x01)
	kPLAYFIELD_STD    = uint8(0x02)
	kPLAYFIELD_WIDE   = uint8(0x03)
	kMASK_MISSILE_DMA = uint8(0x04)
	kMASK_PLAYER_DMA  = uint8(0x08)
	kMASK_PM_1LINE    = uint8(0x10)
	kMASK_DL_DMA      = uint8(0x20)

	// CHACTL bits.
	kMASK_INVERT  = uint8(0x02)
	kMASK_REFLECT = uint8(0x04)

	// NMIEN/NMIST bits.
	kNMI_DLI    = uint8(0x80)
	kNMI_VBI    = uint8(0x40)
	kNMIST_IDLE = uint8(0x1F)

	// Display list instruction modifier bits.
	kMODE_DLI    = uint8(0x80)
	kMODE_LMS    = uint8(0x40)
	kMODE_VSCROL = uint8(0x20)
	kMODE_HSCROL = uint8(0x10)

	// Jump and wait for vertical blank. A plain 0x01 jumps without
	// suspending.
	kJVB = uint8(0x41)

	// Width and Height are the rendered frame dimensions. Front ends size
	// their output from these.
	Width  = 320
	Height = 192

	kScanlinesPerFrame = 312
	kVblankStart       = 248
	kTopBlank          = 8

	// The first scanline that lands in the frame buffer. Everything above
	// is overscan the OS pads with blank instructions.
	kFirstVisible = 32

	kSaturation = 0.5
)

/// modeSpec describes one display list mode: how many scanlines a mode
// line spans, how many bytes of screen data a standard width line
// carries and whether those bytes are character codes or raw bitmap.
type modeSpec struct {
	scanlines int
	bytes     int
	char      bool
}

// Indexed by the instruction's low nibble. Entry 0 serves the bare 0x00
// opcode which nets a single blank line, entry 1 (jump) never reaches
// the table.
var modeParams = [16]modeSpec{
	0:  {1, 0, false},
	1:  {1, 0, false},
	2:  {8, 40, true},
	3:  {10, 40, true},
	4:  {8, 40, true},
	5:  {16, 40, true},
	6:  {8, 20, true},
	7:  {16, 20, true},
	8:  {8, 10, false},
	9:  {4, 10, false},
	10: {4, 20, false},
	11: {2, 20, false},
	12: {1, 20, false},
	13: {2, 40, false},
	14: {1, 40, false},
	15: {1, 40, false},
}

// YIQ phase angle per hue nibble, in degrees. Hue 0 is grayscale and
// bypasses the angle entirely.
var hueAngles = [16]float64{
	0, 0, 30, 60, 90, 120, 150, 180, 210, 240, 270, 300, 330, 350, 360, 380,
}

// Chip implements the video coprocessor.
type Chip struct {
	ram     memory.Bank
	gtia    *gtia.Chip
	palette [256]uint16
	frame   []uint16

	// Registers.
	dmactl uint8
	chactl uint8
	dlist  uint16
	hscrol uint8
	vscrol uint8
	pmbase uint8
	chbase uint8
	nmien  uint8
	nmist  uint8

	// Display list machine state.
	scanline      int
	displayListPC uint16
	memScan       uint16
	modeLineCount int
	currentMode   uint8
	inDisplayList bool
	dliPending    bool
	vbiPending    bool
	wsyncHalt     bool

	// Current mode line decode.
	rowInMode        int
	scanLinesPerMode int
	isCharMode       bool
	bytesPerLine     int
	charsPerLine     int
	xOffset          int
	hscrolEnabled    bool
	vscrolEnabled    bool

	dmaCycles int
}

// ChipDef is the definition for initializing the chip.
type ChipDef struct {
	// Ram is the memory view display DMA reads through. It must apply
	// the same ROM banking the CPU sees (the bus's video view) since OS
	// character sets and self test screens live in ROM.
	Ram memory.Bank
	// GTIA supplies color registers per render call.
	GTIA *gtia.Chip
}

// Init returns a fully initialized chip rendering into an internal
// 320x192 RGB565 frame.
func Init(def *ChipDef) (*Chip, error) {
	if def == nil || def.Ram == nil {
		return nil, errors.New("Ram must be non-nil in def")
	}
	if def.GTIA == nil {
		return nil, errors.New("GTIA must be non-nil in def")
	}
	c := &Chip{
		ram:   def.Ram,
		gtia:  def.GTIA,
		frame: make([]uint16, Width*Height),
	}
	c.generatePalette()
	c.PowerOn()
	return c, nil
}

// generatePalette builds the RGB565 lookup for HHHHLLLL color bytes: 16
// hues approximated as YIQ phase angles at fixed saturation, 16 linear
// luminances.
func (c *Chip) generatePalette() {
	for col := 0; col < 256; col++ {
		y := float64(col&0x0F) / 15.0
		r, g, b := y, y, y
		if hue := (col >> 4) & 0x0F; hue != 0 {
			angle := hueAngles[hue] * math.Pi / 180.0
			i := kSaturation * math.Cos(angle)
			q := kSaturation * math.Sin(angle)
			r = clamp(y + 0.956*i + 0.621*q)
			g = clamp(y - 0.272*i - 0.647*q)
			b = clamp(y - 1.105*i + 1.702*q)
		}
		c.palette[col] = uint16(r*31.0)<<11 | uint16(g*63.0)<<5 | uint16(b*31.0)
	}
}

func clamp(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

// PowerOn resets the chip to power on state.
func (c *Chip) PowerOn() {
	c.Reset()
}

// Reset restores power up state. All DMA stops until the OS rewrites the
// control registers, so the frame stays black.
func (c *Chip) Reset() {
	c.dmactl = 0x00
	c.chactl = 0x00
	c.dlist = 0x0000
	c.hscrol = 0x00
	c.vscrol = 0x00
	c.pmbase = 0x00
	c.chbase = 0x00
	c.nmien = 0x00
	c.nmist = kNMIST_IDLE

	c.scanline = 0
	c.displayListPC = 0x0000
	c.memScan = 0x0000
	c.modeLineCount = 0
	c.currentMode = 0x00
	c.inDisplayList = false
	c.dliPending = false
	c.vbiPending = false
	c.wsyncHalt = false

	c.rowInMode = 0
	c.scanLinesPerMode = 0
	c.isCharMode = false
	c.bytesPerLine = 0
	c.charsPerLine = 0
	c.xOffset = 0
	c.hscrolEnabled = false
	c.vscrolEnabled = false

	c.dmaCycles = 0
	for i := range c.frame {
		c.frame[i] = 0x0000
	}
}

// Constants for referencing addresses by well known conventions.
const (
	// Read side definitions.

	VCOUNT = uint16(0x0B)
	PENH   = uint16(0x0C)
	PENV   = uint16(0x0D)
	NMIST  = uint16(0x0F)

	// Write side definitions.

	DMACTL = uint16(0x00)
	CHACTL = uint16(0x01)
	DLISTL = uint16(0x02)
	DLISTH = uint16(0x03)
	HSCROL = uint16(0x04)
	VSCROL = uint16(0x05)
	PMBASE = uint16(0x07)
	CHBASE = uint16(0x09)
	WSYNC  = uint16(0x0A)
	NMIEN  = uint16(0x0E)
	NMIRES = uint16(0x0F)
)

// Read returns the current register value per the addr requested.
func (c *Chip) Read(addr uint16) uint8 {
	// Strip to 4 bits for internal regs.
	addr &= kMASK_ADDR

	switch addr {
	case VCOUNT:
		return uint8(c.scanline >> 1)
	case PENH, PENV:
		// No light pen attached.
		return 0x00
	case NMIST:
		return c.nmist
	default:
		// Remaining addresses pull high.
		return 0xFF
	}
}

// Write takes the given address and writes the value into the right
// register.
func (c *Chip) Write(addr uint16, val uint8) {
	// Strip to 4 bits for internal regs.
	addr &= kMASK_ADDR

	switch addr {
	case DMACTL:
		c.dmactl = val
	case CHACTL:
		c.chactl = val
	case DLISTL:
		c.dlist = (c.dlist & 0xFF00) | uint16(val)
	case DLISTH:
		c.dlist = (c.dlist & 0x00FF) | uint16(val)<<8
	case HSCROL:
		c.hscrol = val & 0x0F
	case VSCROL:
		c.vscrol = val & 0x0F
	case PMBASE:
		c.pmbase = val
	case CHBASE:
		c.chbase = val
	case WSYNC:
		// The CPU stalls until this scanline ends.
		c.wsyncHalt = true
	case NMIEN:
		c.nmien = val
	case NMIRES:
		c.nmist = kNMIST_IDLE
		c.dliPending = false
		c.vbiPending = false
	}
}

// fetchDL pulls the next display list byte, advancing the list PC and
// charging one stolen cycle.
func (c *Chip) fetchDL() uint8 {
	if c.dmactl&kMASK_DL_DMA == 0x00 {
		return 0x00
	}
	b := c.ram.Read(c.displayListPC)
	c.displayListPC++
	c.dmaCycles++
	return b
}

func (c *Chip) raiseVBI() {
	if c.nmien&kNMI_VBI != 0x00 {
		c.vbiPending = true
		c.nmist |= kNMI_VBI
	}
}

// processDisplayList decodes the next instruction. Runs at most once per
// mode line since multi scanline modes hold their decode until the last
// row drew.
func (c *Chip) processDisplayList() {
	if c.dmactl&kMASK_DL_DMA == 0x00 {
		return
	}
	if c.modeLineCount != 0 {
		return
	}
	instruction := c.fetchDL()

	// DLI raises once per instruction fetch, not once per scanline of
	// the mode line it modifies.
	if instruction&kMODE_DLI != 0x00 && c.nmien&kNMI_DLI != 0x00 {
		c.dliPending = true
		c.nmist |= kNMI_DLI
	}
	c.hscrolEnabled = instruction&kMODE_HSCROL != 0x00
	c.vscrolEnabled = instruction&kMODE_VSCROL != 0x00

	mode := instruction & 0x0F

	// Blank line instructions, count one past the upper nibble's low 3
	// bits. A bare 0x00 byte instead decodes through the mode table and
	// nets a single blank line.
	if mode == 0x00 && instruction != 0x00 {
		c.modeLineCount = int((instruction>>4)&0x07) + 1
		c.currentMode = 0x00
		// Blank lines never move the memory scan counter so the
		// previous mode line's stride clears here.
		c.isCharMode = false
		c.bytesPerLine = 0
		c.rowInMode = 0
		return
	}

	// JMP/JVB: load a new display list address. JVB additionally parks
	// the machine until the frame wraps.
	if mode == 0x01 {
		lo := c.fetchDL()
		hi := c.fetchDL()
		c.displayListPC = uint16(hi)<<8 | uint16(lo)
		if instruction == kJVB {
			c.inDisplayList = false
			c.raiseVBI()
		}
		return
	}

	c.setModeLineParams(mode)
	c.currentMode = mode
	c.modeLineCount = c.scanLinesPerMode
	if instruction&kMODE_LMS != 0x00 {
		lo := c.fetchDL()
		hi := c.fetchDL()
		c.memScan = uint16(hi)<<8 | uint16(lo)
	}
}

// setModeLineParams decodes the mode table entry against the current
// playfield width. charsPerLine is what renders, bytesPerLine is how far
// memScan advances per stride: narrow playfields display fewer bytes
// than memory holds per line.
func (c *Chip) setModeLineParams(mode uint8) {
	spec := modeParams[mode&0x0F]
	c.scanLinesPerMode = spec.scanlines
	c.isCharMode = spec.char
	c.rowInMode = 0

	// Modes 6 and 7 render 20 double width characters, everything else
	// packs 8 pixels per byte.
	ppb := 8
	if mode == 0x06 || mode == 0x07 {
		ppb = 16
	}

	switch c.dmactl & kMASK_PLAYFIELD {
	case kPLAYFIELD_NARROW:
		c.charsPerLine = spec.bytes * 4 / 5
		c.bytesPerLine = spec.bytes
		c.xOffset = (Width - c.charsPerLine*ppb) / 2
	case kPLAYFIELD_STD:
		c.charsPerLine = spec.bytes
		c.bytesPerLine = spec.bytes
		c.xOffset = 0
	case kPLAYFIELD_WIDE:
		// Wide overruns the visible area and clips at the right edge.
		c.charsPerLine = spec.bytes * 6 / 5
		c.bytesPerLine = c.charsPerLine
		c.xOffset = 0
	default:
		c.charsPerLine = 0
		c.bytesPerLine = 0
		c.xOffset = 0
	}
}

// DrawScanline renders the current scanline into the frame and advances
// the mode line state. The stolen cycle counter restarts here so
// DMACycles always reports the most recently drawn scanline's fetches.
func (c *Chip) DrawScanline() {
	c.dmaCycles = 0

	if c.scanline < kTopBlank || c.scanline >= kVblankStart {
		c.drawBlankLine()
		return
	}
	if c.dmactl&kMASK_PLAYFIELD == kPLAYFIELD_NONE {
		c.drawBlankLine()
		return
	}
	if c.inDisplayList {
		c.processDisplayList()
	}
	if c.modeLineCount == 0 {
		c.drawBlankLine()
		return
	}

	c.drawModeLine()
	c.rowInMode++
	c.modeLineCount--
	// Character rows share their screen bytes across every scanline of
	// the row, bitmap rows never do.
	if c.isCharMode && c.rowInMode >= c.scanLinesPerMode {
		c.memScan += uint16(c.bytesPerLine)
	}
	if !c.isCharMode {
		c.memScan += uint16(c.bytesPerLine)
	}
}

func (c *Chip) drawModeLine() {
	switch c.currentMode {
	case 0x02, 0x03:
		c.drawTextLine()
	case 0x04, 0x05:
		c.drawColorTextLine()
	case 0x06, 0x07:
		c.drawWideTextLine()
	case 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E:
		c.drawColorBitmapLine()
	case 0x0F:
		c.drawHiresLine()
	default:
		c.drawBlankLine()
	}
}

// line returns the frame slice for the current scanline, or nil when the
// scanline sits outside the visible window. Mode state still advances
// for skipped lines, only the pixels go nowhere.
func (c *Chip) line() []uint16 {
	l := c.scanline - kFirstVisible
	if l < 0 || l >= Height {
		return nil
	}
	return c.frame[l*Width : (l+1)*Width]
}

func fill(line []uint16, color uint16) {
	for x := range line {
		line[x] = color
	}
}

// charRow rescales the row within a tall mode line back onto the 8 row
// glyph so stretched text modes still index the character set correctly.
func (c *Chip) charRow() int {
	if c.scanLinesPerMode > 8 {
		return c.rowInMode * 8 / c.scanLinesPerMode
	}
	return c.rowInMode
}

func (c *Chip) drawBlankLine() {
	line := c.line()
	if line == nil {
		return
	}
	fill(line, c.palette[c.gtia.BackgroundColor()])
}

// drawTextLine covers modes 2 and 3: text at one hue with foreground and
// background luminances split between COLPF1 and COLPF2.
func (c *Chip) drawTextLine() {
	line := c.line()
	if line == nil {
		return
	}
	bg := c.gtia.PlayfieldColor(2)
	fg := (bg & 0xF0) | (c.gtia.PlayfieldColor(1) & 0x0F)
	bgRGB := c.palette[bg]
	fgRGB := c.palette[fg]
	fill(line, bgRGB)

	row := c.charRow()
	invert := c.chactl&kMASK_INVERT != 0x00
	if c.chactl&kMASK_REFLECT != 0x00 {
		row = 7 - row
	}

	charBase := uint16(c.chbase) << 8
	x := c.xOffset
	for col := 0; col < c.charsPerLine && x < Width; col++ {
		code := c.ram.Read(c.memScan + uint16(col))
		glyph := c.ram.Read(charBase + uint16(code&0x7F)*8 + uint16(row))
		// Codes with the high bit render inverted when CHACTL asks
		// (cursor, inverse video).
		if invert && code&0x80 != 0x00 {
			glyph ^= 0xFF
		}
		for mask := uint8(0x80); mask != 0x00 && x < Width; mask >>= 1 {
			if glyph&mask != 0x00 {
				line[x] = fgRGB
			}
			x++
		}
	}
}

// drawColorTextLine covers modes 4 and 5: each glyph byte holds four 2
// bit color clocks rendered double width.
func (c *Chip) drawColorTextLine() {
	line := c.line()
	if line == nil {
		return
	}
	colors := [4]uint16{
		c.palette[c.gtia.BackgroundColor()],
		c.palette[c.gtia.PlayfieldColor(0)],
		c.palette[c.gtia.PlayfieldColor(1)],
		c.palette[c.gtia.PlayfieldColor(2)],
	}
	fill(line, colors[0])

	row := c.charRow()
	charBase := uint16(c.chbase) << 8
	x := c.xOffset
	for col := 0; col < c.charsPerLine && x+1 < Width; col++ {
		code := c.ram.Read(c.memScan + uint16(col))
		glyph := c.ram.Read(charBase + uint16(code&0x7F)*8 + uint16(row))
		for shift := 6; shift >= 0 && x+1 < Width; shift -= 2 {
			pixel := colors[(glyph>>shift)&0x03]
			line[x] = pixel
			line[x+1] = pixel
			x += 2
		}
	}
}

// drawWideTextLine covers modes 6 and 7: 20 double width characters with
// the code's top 2 bits picking one of the four playfield colors.
func (c *Chip) drawWideTextLine() {
	line := c.line()
	if line == nil {
		return
	}
	bgRGB := c.palette[c.gtia.BackgroundColor()]
	fill(line, bgRGB)

	row := c.charRow()
	charBase := uint16(c.chbase) << 8
	x := c.xOffset
	for col := 0; col < c.charsPerLine && x+1 < Width; col++ {
		code := c.ram.Read(c.memScan + uint16(col))
		fgRGB := c.palette[c.gtia.PlayfieldColor(int(code>>6))]
		glyph := c.ram.Read(charBase + uint16(code&0x3F)*8 + uint16(row))
		for mask := uint8(0x80); mask != 0x00 && x+1 < Width; mask >>= 1 {
			pixel := bgRGB
			if glyph&mask != 0x00 {
				pixel = fgRGB
			}
			line[x] = pixel
			line[x+1] = pixel
			x += 2
		}
	}
}

// drawColorBitmapLine covers modes 8 through E: four colors from 2 bit
// pixels rendered double width. The low resolution modes reuse it with
// their own byte counts from the mode table.
func (c *Chip) drawColorBitmapLine() {
	line := c.line()
	if line == nil {
		return
	}
	colors := [4]uint16{
		c.palette[c.gtia.BackgroundColor()],
		c.palette[c.gtia.PlayfieldColor(0)],
		c.palette[c.gtia.PlayfieldColor(1)],
		c.palette[c.gtia.PlayfieldColor(2)],
	}
	fill(line, colors[0])

	x := c.xOffset
	for b := 0; b < c.charsPerLine && x+1 < Width; b++ {
		data := c.ram.Read(c.memScan + uint16(b))
		for shift := 6; shift >= 0 && x+1 < Width; shift -= 2 {
			pixel := colors[(data>>shift)&0x03]
			line[x] = pixel
			line[x+1] = pixel
			x += 2
		}
	}
}

// drawHiresLine covers mode F: one bit per pixel at full width.
func (c *Chip) drawHiresLine() {
	line := c.line()
	if line == nil {
		return
	}
	bgRGB := c.palette[c.gtia.BackgroundColor()]
	fgRGB := c.palette[c.gtia.PlayfieldColor(0)]
	fill(line, bgRGB)

	x := c.xOffset
	for b := 0; b < c.charsPerLine && x < Width; b++ {
		data := c.ram.Read(c.memScan + uint16(b))
		for mask := uint8(0x80); mask != 0x00 && x < Width; mask >>= 1 {
			if data&mask != 0x00 {
				line[x] = fgRGB
			}
			x++
		}
	}
}

// NextScanline advances the scanline counter, wrapping at frame end
// which rearms the display list and raises the vertical blank interrupt.
// Any WSYNC halt releases unconditionally.
func (c *Chip) NextScanline() {
	c.scanline++
	if c.scanline >= kScanlinesPerFrame {
		c.scanline = 0
		c.displayListPC = c.dlist
		c.inDisplayList = true
		c.modeLineCount = 0
		c.rowInMode = 0
		c.raiseVBI()
	}
	// WSYNC only ever holds to the end of the current scanline.
	c.wsyncHalt = false
}

// CheckDLI reports and clears a pending display list interrupt. One shot
// so each raise triggers exactly one NMI.
func (c *Chip) CheckDLI() bool {
	d := c.dliPending
	c.dliPending = false
	return d
}

// CheckVBI reports and clears a pending vertical blank interrupt. One
// shot like CheckDLI.
func (c *Chip) CheckVBI() bool {
	v := c.vbiPending
	c.vbiPending = false
	return v
}

// WSYNCHalted reports whether a WSYNC write is holding the CPU.
func (c *Chip) WSYNCHalted() bool {
	return c.wsyncHalt
}

// DMACycles returns the cycles display list fetches stole during the
// most recently drawn scanline.
func (c *Chip) DMACycles() int {
	return c.dmaCycles
}

// Scanline returns the current scanline counter.
func (c *Chip) Scanline() int {
	return c.scanline
}

// Frame returns the 320x192 RGB565 frame buffer. The returned slice
// aliases the chip's internal buffer which the next DrawScanline
// overwrites, so sinks must copy or consume it before resuming.
func (c *Chip) Frame() []uint16 {
	return c.frame
}

// BorderColor returns the current background color as RGB565 for sinks
// that letterbox the frame.
func (c *Chip) BorderColor() uint16 {
	return c.palette[c.gtia.BackgroundColor()]
}
