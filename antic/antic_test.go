package antic

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/jmchacon/atari800/gtia"
)

type flatMemory struct {
	addr [65536]uint8
}

func (f *flatMemory) Read(addr uint16) uint8 {
	return f.addr[addr]
}

func (f *flatMemory) Write(addr uint16, val uint8) {
	f.addr[addr] = val
}

func (f *flatMemory) PowerOn() {}

func Setup(t *testing.T) (*Chip, *flatMemory, *gtia.Chip) {
	t.Helper()
	r := &flatMemory{}
	g, err := gtia.Init(&gtia.ChipDef{Mode: gtia.TV_MODE_PAL})
	if err != nil {
		t.Fatalf("can't Init gtia: %v", err)
	}
	c, err := Init(&ChipDef{
		Ram:  r,
		GTIA: g,
	})
	if err != nil {
		t.Fatalf("can't Init antic: %v", err)
	}
	return c, r, g
}

func poke(r *flatMemory, org uint16, b ...uint8) {
	for i, v := range b {
		r.addr[org+uint16(i)] = v
	}
}

func runLines(c *Chip, n int) {
	for i := 0; i < n; i++ {
		c.DrawScanline()
		c.NextScanline()
	}
}

// runFrame advances one whole frame. The wrap at the end arms the
// display list for the frame that follows.
func runFrame(c *Chip) {
	runLines(c, kScanlinesPerFrame)
}

func TestInit(t *testing.T) {
	if _, err := Init(nil); err == nil {
		t.Error("Init with nil def didn't error")
	}
	if _, err := Init(&ChipDef{}); err == nil {
		t.Error("Init with nil Ram didn't error")
	}
	if _, err := Init(&ChipDef{Ram: &flatMemory{}}); err == nil {
		t.Error("Init with nil GTIA didn't error")
	}

	c, _, _ := Setup(t)
	if got, want := len(c.Frame()), Width*Height; got != want {
		t.Errorf("frame size: got %d want %d", got, want)
	}
	for i, p := range c.Frame() {
		if p != 0x0000 {
			t.Errorf("frame not black at power on: index %d got %.4X", i, p)
			break
		}
	}

	tests := []struct {
		name string
		addr uint16
		want uint8
	}{
		{"NMIST", NMIST, 0x1F},
		{"NMISTMirror", 0x4F, 0x1F},
		{"VCOUNT", VCOUNT, 0x00},
		{"PENH", PENH, 0x00},
		{"PENV", PENV, 0x00},
		{"Unused", 0x06, 0xFF},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got, want := c.Read(test.addr), test.want; got != want {
				t.Errorf("read %.4X: got %.2X want %.2X", test.addr, got, want)
			}
		})
	}
}

func TestPalette(t *testing.T) {
	c, _, _ := Setup(t)

	tests := []struct {
		name string
		col  int
		want uint16
	}{
		{"Black", 0x00, 0x0000},
		{"White", 0x0F, 0xFFFF},
		{"Hue1Bright", 0x1F, 0xFECD},
		{"Hue1Dark", 0x10, 0x7000},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got, want := c.palette[test.col], test.want; got != want {
				t.Errorf("palette[%.2X]: got %.4X want %.4X", test.col, got, want)
			}
		})
	}

	// Hue 0 is a pure gray ramp so each luminance step must brighten.
	for lum := 1; lum < 16; lum++ {
		if c.palette[lum] <= c.palette[lum-1] {
			t.Errorf("gray ramp not increasing at %d: %.4X then %.4X", lum, c.palette[lum-1], c.palette[lum])
		}
	}
}

func TestRegisters(t *testing.T) {
	c, _, _ := Setup(t)

	c.Write(DLISTL, 0x34)
	c.Write(DLISTH, 0x12)
	if got, want := c.dlist, uint16(0x1234); got != want {
		t.Errorf("dlist assembly: got %.4X want %.4X", got, want)
	}

	c.Write(HSCROL, 0xFF)
	if got, want := c.hscrol, uint8(0x0F); got != want {
		t.Errorf("hscrol masking: got %.2X want %.2X", got, want)
	}
	c.Write(VSCROL, 0xFF)
	if got, want := c.vscrol, uint8(0x0F); got != want {
		t.Errorf("vscrol masking: got %.2X want %.2X", got, want)
	}

	c.Write(CHBASE, 0xE0)
	c.Write(PMBASE, 0x58)
	c.Write(CHACTL, 0x06)
	c.Write(NMIEN, 0xC0)
	if c.chbase != 0xE0 || c.pmbase != 0x58 || c.chactl != 0x06 || c.nmien != 0xC0 {
		t.Errorf("register stores wrong: chbase %.2X pmbase %.2X chactl %.2X nmien %.2X", c.chbase, c.pmbase, c.chactl, c.nmien)
	}

	// WSYNC holds until the next scanline boundary, no longer.
	if c.WSYNCHalted() {
		t.Error("WSYNC halted before any write")
	}
	c.Write(WSYNC, 0x00)
	if !c.WSYNCHalted() {
		t.Error("WSYNC write didn't halt")
	}
	c.NextScanline()
	if c.WSYNCHalted() {
		t.Error("WSYNC survived the scanline boundary")
	}

	// Register mirror: only the low 4 bits decode.
	c.Write(0x2A, 0x00)
	if !c.WSYNCHalted() {
		t.Error("WSYNC mirror write didn't halt")
	}
	c.NextScanline()

	// VCOUNT reports scanline/2.
	c2, _, _ := Setup(t)
	runLines(c2, 100)
	if got, want := c2.Read(VCOUNT), uint8(50); got != want {
		t.Errorf("VCOUNT: got %d want %d", got, want)
	}
	if got, want := c2.Scanline(), 100; got != want {
		t.Errorf("Scanline: got %d want %d", got, want)
	}
}

func TestNMIStatus(t *testing.T) {
	t.Run("VBIOnWrap", func(t *testing.T) {
		c, _, _ := Setup(t)
		c.Write(NMIEN, kNMI_VBI)
		runFrame(c)
		if got, want := c.Read(NMIST), uint8(0x5F); got != want {
			t.Errorf("NMIST after wrap: got %.2X want %.2X", got, want)
		}
		if !c.CheckVBI() {
			t.Error("no VBI pending after wrap")
		}
		if c.CheckVBI() {
			t.Error("VBI pending didn't clear on check")
		}
		c.Write(NMIRES, 0x00)
		if got, want := c.Read(NMIST), uint8(0x1F); got != want {
			t.Errorf("NMIST after NMIRES: got %.2X want %.2X", got, want)
		}
	})

	t.Run("VBIDisabled", func(t *testing.T) {
		c, _, _ := Setup(t)
		runFrame(c)
		if c.CheckVBI() {
			t.Error("VBI raised with NMIEN clear")
		}
		if got, want := c.Read(NMIST), uint8(0x1F); got != want {
			t.Errorf("NMIST: got %.2X want %.2X", got, want)
		}
	})

	t.Run("DLI", func(t *testing.T) {
		c, r, _ := Setup(t)
		poke(r, 0x1000, 0x80, 0x41, 0x00, 0x10)
		c.Write(DLISTL, 0x00)
		c.Write(DLISTH, 0x10)
		c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
		c.Write(NMIEN, kNMI_DLI|kNMI_VBI)
		runFrame(c)
		// Acknowledge the arming frame's VBI so only the DLI shows.
		c.Write(NMIRES, 0x00)

		runLines(c, 9)
		if !c.CheckDLI() {
			t.Error("no DLI pending after instruction fetch")
		}
		if c.CheckDLI() {
			t.Error("DLI pending didn't clear on check")
		}
		if got, want := c.Read(NMIST), uint8(0x9F); got != want {
			t.Errorf("NMIST after DLI: got %.2X want %.2X", got, want)
		}
	})

	t.Run("DLIDisabled", func(t *testing.T) {
		c, r, _ := Setup(t)
		poke(r, 0x1000, 0x80, 0x41, 0x00, 0x10)
		c.Write(DLISTL, 0x00)
		c.Write(DLISTH, 0x10)
		c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
		runFrame(c)

		runLines(c, 9)
		if c.CheckDLI() {
			t.Error("DLI raised with NMIEN clear")
		}
		if got, want := c.Read(NMIST), uint8(0x1F); got != want {
			t.Errorf("NMIST: got %.2X want %.2X", got, want)
		}
	})
}

func TestBlankLinesHoldMemScan(t *testing.T) {
	c, r, g := Setup(t)
	poke(r, 0x1000, 0x70, 0x70, 0x41, 0x00, 0x10)
	g.Write(gtia.COLBK, 0x94)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)

	got := make([]int, kScanlinesPerFrame)
	for i := 0; i < kScanlinesPerFrame; i++ {
		c.DrawScanline()
		got[i] = c.DMACycles()
		if c.memScan != 0x0000 {
			t.Fatalf("memScan moved on scanline %d: got %.4X", i, c.memScan)
		}
		c.NextScanline()
	}

	// One fetch per blank instruction, three for the JVB, silence
	// everywhere else.
	want := make([]int, kScanlinesPerFrame)
	want[8] = 1
	want[16] = 1
	want[24] = 3
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("dma cycles differ: %v", diff)
	}

	bg := c.palette[0x94]
	for i, p := range c.Frame() {
		if p != bg {
			t.Errorf("pixel %d: got %.4X want %.4X", i, p, bg)
			break
		}
	}
}

func TestBlankAfterModeLineHoldsMemScan(t *testing.T) {
	c, r, _ := Setup(t)
	// A mode line, a blank run, then a second mode line with no LMS: the
	// blanks must leave the scan where the first line ended so the second
	// continues at the next byte.
	poke(r, 0x1000, 0x42, 0x00, 0x20, 0x70, 0x02, 0x41, 0x00, 0x10)
	c.Write(CHBASE, 0x30)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)

	// First mode row spans scanlines 8-15 and strides once at the end.
	runLines(c, 16)
	if got, want := c.memScan, uint16(0x2028); got != want {
		t.Errorf("memScan after first mode row: got %.4X want %.4X", got, want)
	}
	// Eight blank lines follow on scanlines 16-23.
	runLines(c, 8)
	if got, want := c.memScan, uint16(0x2028); got != want {
		t.Errorf("memScan after blank run: got %.4X want %.4X", got, want)
	}
	// The second mode row picks up at the held address.
	runLines(c, 8)
	if got, want := c.memScan, uint16(0x2050); got != want {
		t.Errorf("memScan after second mode row: got %.4X want %.4X", got, want)
	}
}

func TestJVBResume(t *testing.T) {
	c, r, _ := Setup(t)
	poke(r, 0x1000, 0x42, 0x00, 0x20, 0x41, 0x00, 0x10)
	c.Write(CHBASE, 0x30)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)

	// Top blank region leaves the list untouched.
	runLines(c, 8)
	if !c.inDisplayList || c.memScan != 0x0000 {
		t.Errorf("list state before first fetch: inDisplayList %t memScan %.4X", c.inDisplayList, c.memScan)
	}

	// Scanline 8 fetches the LMS mode line.
	runLines(c, 1)
	if got, want := c.DMACycles(), 3; got != want {
		t.Errorf("LMS fetch cycles: got %d want %d", got, want)
	}
	if got, want := c.memScan, uint16(0x2000); got != want {
		t.Errorf("memScan after LMS: got %.4X want %.4X", got, want)
	}

	// Finish the 8 scanline character row, the stride lands once.
	runLines(c, 7)
	if got, want := c.memScan, uint16(0x2028); got != want {
		t.Errorf("memScan after mode row: got %.4X want %.4X", got, want)
	}

	// Scanline 16 fetches the JVB which parks the list until wrap.
	runLines(c, 1)
	if got, want := c.DMACycles(), 3; got != want {
		t.Errorf("JVB fetch cycles: got %d want %d", got, want)
	}
	if c.inDisplayList {
		t.Error("JVB didn't park the display list")
	}
	if got, want := c.displayListPC, uint16(0x1000); got != want {
		t.Errorf("displayListPC after JVB: got %.4X want %.4X", got, want)
	}

	// Nothing fetches for the rest of the frame.
	for i := 17; i < kScanlinesPerFrame; i++ {
		c.DrawScanline()
		if got := c.DMACycles(); got != 0 {
			t.Fatalf("scanline %d fetched %d cycles while parked", i, got)
		}
		c.NextScanline()
	}

	// Wrap rearms from the display list base.
	if got, want := c.Scanline(), 0; got != want {
		t.Errorf("scanline after wrap: got %d want %d", got, want)
	}
	if !c.inDisplayList {
		t.Error("wrap didn't rearm the display list")
	}
	if got, want := c.displayListPC, uint16(0x1000); got != want {
		t.Errorf("displayListPC after wrap: got %.4X want %.4X", got, want)
	}

	// The next frame's LMS resets memScan.
	runLines(c, 9)
	if got, want := c.memScan, uint16(0x2000); got != want {
		t.Errorf("memScan after resume: got %.4X want %.4X", got, want)
	}
}

// standardDL loads a display list that pads down to the visible window
// with blank lines, shows one mode line of screen data at 0x2000 and
// parks.
func standardDL(r *flatMemory, mode uint8) {
	poke(r, 0x1000, 0x70, 0x70, 0x70, 0x40|mode, 0x00, 0x20, 0x41, 0x00, 0x10)
}

func TestMode2Rendering(t *testing.T) {
	c, r, g := Setup(t)
	standardDL(r, 0x02)
	// Glyphs: code 1 solid, code 2 alternating.
	for row := uint16(0); row < 8; row++ {
		r.addr[0x3008+row] = 0xFF
		r.addr[0x3010+row] = 0xAA
	}
	poke(r, 0x2000, 0x01, 0x02, 0x81)
	g.Write(gtia.COLPF2, 0x94)
	g.Write(gtia.COLPF1, 0x0F)
	c.Write(CHBASE, 0x30)
	c.Write(CHACTL, kMASK_INVERT)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)
	runLines(c, 33)

	// Text renders at the playfield hue with COLPF1's luminance.
	fg := c.palette[0x9F]
	bg := c.palette[0x94]
	want := make([]uint16, Width)
	for i := range want {
		want[i] = bg
	}
	for x := 0; x < 8; x++ {
		want[x] = fg
	}
	for x := 8; x < 16; x += 2 {
		want[x] = fg
	}
	// Third column has the inverse bit so the solid glyph flips to
	// background.
	got := c.Frame()[0:Width]
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("row 0 differs: %v", diff)
	}

	// Same screen bytes replay on every scanline of the row.
	runLines(c, 7)
	if diff := deep.Equal(c.Frame()[7*Width:8*Width], want); diff != nil {
		t.Errorf("row 7 differs: %v", diff)
	}
	if got, want := c.memScan, uint16(0x2028); got != want {
		t.Errorf("memScan after mode row: got %.4X want %.4X", got, want)
	}
}

func TestMode2Reflect(t *testing.T) {
	c, r, g := Setup(t)
	standardDL(r, 0x02)
	// Only the glyph's top row carries pixels.
	r.addr[0x3008] = 0xFF
	poke(r, 0x2000, 0x01)
	g.Write(gtia.COLPF2, 0x94)
	g.Write(gtia.COLPF1, 0x0F)
	c.Write(CHBASE, 0x30)
	c.Write(CHACTL, kMASK_REFLECT)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)
	runLines(c, 40)

	fg := c.palette[0x9F]
	bg := c.palette[0x94]
	if got := c.Frame()[0*Width]; got != bg {
		t.Errorf("row 0 x 0: got %.4X want %.4X", got, bg)
	}
	if got := c.Frame()[7*Width]; got != fg {
		t.Errorf("row 7 x 0: got %.4X want %.4X", got, fg)
	}
}

func TestMode3Rescale(t *testing.T) {
	c, r, g := Setup(t)
	standardDL(r, 0x03)
	// Odd glyph rows carry pixels so the 10 scanline stretch shows
	// which rows rescale where.
	for row := uint16(1); row < 8; row += 2 {
		r.addr[0x3008+row] = 0xFF
	}
	poke(r, 0x2000, 0x01)
	g.Write(gtia.COLPF2, 0x94)
	g.Write(gtia.COLPF1, 0x0F)
	c.Write(CHBASE, 0x30)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)
	runLines(c, 42)

	fg := c.palette[0x9F]
	fgRows := map[int]bool{2: true, 4: true, 7: true, 9: true}
	for row := 0; row < 10; row++ {
		got := c.Frame()[row*Width]
		want := c.palette[0x94]
		if fgRows[row] {
			want = fg
		}
		if got != want {
			t.Errorf("row %d x 0: got %.4X want %.4X", row, got, want)
		}
	}
}

func TestMode4Colors(t *testing.T) {
	c, r, g := Setup(t)
	standardDL(r, 0x04)
	// One glyph row holding all four 2 bit pixel values.
	r.addr[0x3008] = 0x1B
	poke(r, 0x2000, 0x01)
	g.Write(gtia.COLBK, 0x02)
	g.Write(gtia.COLPF0, 0x14)
	g.Write(gtia.COLPF1, 0x26)
	g.Write(gtia.COLPF2, 0x38)
	c.Write(CHBASE, 0x30)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)
	runLines(c, 33)

	tests := []struct {
		name string
		x    int
		want uint16
	}{
		{"Pair0Background", 0, c.palette[0x02]},
		{"Pair1Playfield0", 2, c.palette[0x14]},
		{"Pair2Playfield1", 4, c.palette[0x26]},
		{"Pair3Playfield2", 6, c.palette[0x38]},
		{"NextCharBackground", 8, c.palette[0x02]},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := c.Frame()[test.x]; got != test.want {
				t.Errorf("x %d: got %.4X want %.4X", test.x, got, test.want)
			}
			// Pixels render double width.
			if got := c.Frame()[test.x+1]; got != test.want {
				t.Errorf("x %d: got %.4X want %.4X", test.x+1, got, test.want)
			}
		})
	}
}

func TestMode6ColorSelect(t *testing.T) {
	c, r, g := Setup(t)
	standardDL(r, 0x06)
	r.addr[0x3008] = 0xFF
	// Top 2 bits of the code pick the playfield color.
	poke(r, 0x2000, 0x01, 0x41, 0x81, 0xC1)
	g.Write(gtia.COLPF0, 0x14)
	g.Write(gtia.COLPF1, 0x26)
	g.Write(gtia.COLPF2, 0x38)
	g.Write(gtia.COLPF3, 0x4A)
	c.Write(CHBASE, 0x30)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)
	runLines(c, 33)

	tests := []struct {
		name string
		x    int
		want uint16
	}{
		{"Playfield0", 0, c.palette[0x14]},
		{"Playfield1", 16, c.palette[0x26]},
		{"Playfield2", 32, c.palette[0x38]},
		{"Playfield3", 48, c.palette[0x4A]},
		{"EmptyCode", 64, c.palette[0x00]},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := c.Frame()[test.x]; got != test.want {
				t.Errorf("x %d: got %.4X want %.4X", test.x, got, test.want)
			}
			if got := c.Frame()[test.x+1]; got != test.want {
				t.Errorf("x %d: got %.4X want %.4X", test.x+1, got, test.want)
			}
		})
	}
}

func TestModeFHires(t *testing.T) {
	c, r, g := Setup(t)
	standardDL(r, 0x0F)
	poke(r, 0x2000, 0xF0)
	g.Write(gtia.COLPF0, 0x0E)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)
	runLines(c, 33)

	fg := c.palette[0x0E]
	bg := c.palette[0x00]
	for x := 0; x < 4; x++ {
		if got := c.Frame()[x]; got != fg {
			t.Errorf("x %d: got %.4X want %.4X", x, got, fg)
		}
	}
	for x := 4; x < 12; x++ {
		if got := c.Frame()[x]; got != bg {
			t.Errorf("x %d: got %.4X want %.4X", x, got, bg)
		}
	}
	// Hires lines advance the scan every scanline.
	if got, want := c.memScan, uint16(0x2028); got != want {
		t.Errorf("memScan: got %.4X want %.4X", got, want)
	}
}

func TestModeDAdvancesEveryLine(t *testing.T) {
	c, r, g := Setup(t)
	standardDL(r, 0x0D)
	// First stride renders playfield 0 pairs, second playfield 1, so
	// the two scanlines of the mode line show different data.
	for i := uint16(0); i < 40; i++ {
		r.addr[0x2000+i] = 0x40
		r.addr[0x2028+i] = 0x80
	}
	g.Write(gtia.COLPF0, 0x14)
	g.Write(gtia.COLPF1, 0x26)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_STD)
	runFrame(c)
	runLines(c, 34)

	if got, want := c.Frame()[0], c.palette[0x14]; got != want {
		t.Errorf("row 0 x 0: got %.4X want %.4X", got, want)
	}
	if got, want := c.Frame()[Width], c.palette[0x26]; got != want {
		t.Errorf("row 1 x 0: got %.4X want %.4X", got, want)
	}
	if got, want := c.memScan, uint16(0x2050); got != want {
		t.Errorf("memScan: got %.4X want %.4X", got, want)
	}
}

func TestNarrowCentering(t *testing.T) {
	c, r, g := Setup(t)
	standardDL(r, 0x02)
	for row := uint16(0); row < 8; row++ {
		r.addr[0x3008+row] = 0xFF
	}
	for i := uint16(0); i < 40; i++ {
		r.addr[0x2000+i] = 0x01
	}
	g.Write(gtia.COLPF2, 0x94)
	g.Write(gtia.COLPF1, 0x0F)
	c.Write(CHBASE, 0x30)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	c.Write(DMACTL, kMASK_DL_DMA|kPLAYFIELD_NARROW)
	runFrame(c)
	runLines(c, 33)

	// Narrow shows 32 of the 40 columns centered with border on both
	// sides.
	fg := c.palette[0x9F]
	bg := c.palette[0x94]
	want := make([]uint16, Width)
	for i := range want {
		want[i] = bg
	}
	for x := 32; x < 288; x++ {
		want[x] = fg
	}
	if diff := deep.Equal(c.Frame()[0:Width], want); diff != nil {
		t.Errorf("row 0 differs: %v", diff)
	}

	// Memory still strides at the standard 40 bytes.
	runLines(c, 7)
	if got, want := c.memScan, uint16(0x2028); got != want {
		t.Errorf("memScan: got %.4X want %.4X", got, want)
	}
}

func TestDMADisabled(t *testing.T) {
	c, r, _ := Setup(t)
	standardDL(r, 0x02)
	c.Write(DLISTL, 0x00)
	c.Write(DLISTH, 0x10)
	runFrame(c)
	runLines(c, 50)

	if got := c.DMACycles(); got != 0 {
		t.Errorf("dma cycles with DMA off: got %d want 0", got)
	}
	if c.memScan != 0x0000 {
		t.Errorf("memScan moved with DMA off: got %.4X", c.memScan)
	}
	for i, p := range c.Frame() {
		if p != 0x0000 {
			t.Errorf("pixel %d: got %.4X want 0000", i, p)
			break
		}
	}
}
