// Package atari800 is the main logic for pulling together an Atari 800XL
// emulator. The actual chips are implemented in other packages and the
// logic here wires their memory mappings together and runs the scanline
// loop that keeps the CPU, video and audio in step.
package atari800

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmchacon/atari800/antic"
	"github.com/jmchacon/atari800/cpu"
	"github.com/jmchacon/atari800/disassemble"
	"github.com/jmchacon/atari800/gtia"
	"github.com/jmchacon/atari800/irq"
	"github.com/jmchacon/atari800/membus"
	"github.com/jmchacon/atari800/pia6520"
	"github.com/jmchacon/atari800/pokey"
)

// Convention for constants:
//
// All caps - uint8 register locations/values/masks.
// Mixed case - values of other types.

const (
	// A PAL machine runs 114 CPU clocks per scanline and 312 scanlines
	// per frame which works out to 50 frames/s.
	kCyclesPerScanline = 114
	kFramesPerSecond   = 50

	kTraceDepth = 64
)

// XL pulls together the chips making up an Atari 800XL.
type XL struct {
	cpu   *cpu.Chip
	bus   *membus.Bus
	antic *antic.Chip
	gtia  *gtia.Chip
	pokey *pokey.Chip
	pia   *pia6520.Chip
	irq   irq.Sender // The POKEY is the only IRQ source wired on an XL.

	joysticks [2]*Joystick
	console   *Console

	frameDone func(frame []uint16, border uint16)
	audioDone func(samples []int16)

	// nmiActive latches once an NMI is delivered and only rearms at the
	// frame wrap so a handler is never reentered mid frame.
	nmiActive bool

	debug    bool
	trace    []string
	traceIdx int

	ticker *time.Ticker

	// mu keeps the input scan (front end goroutine) and the emulation
	// loop from interleaving inside a register update.
	mu sync.Mutex
}

// XLDef defines the pieces needed to setup a basic Atari 800XL.
type XLDef struct {
	// Ram is the 64k main memory. The slice stays with the caller so
	// loaders can poke executables into it directly.
	Ram []uint8
	// OSRom is the 16k XL OS image.
	OSRom []uint8
	// BasicRom is the 8k BASIC image.
	BasicRom []uint8

	// Joysticks defines up to 2 digital sticks. Nil entries read open.
	Joysticks [2]*Joystick
	// Console defines the START/SELECT/OPTION switches. Nil reads all open.
	Console *Console

	// FrameDone is called at every frame wrap with the finished 320x192
	// RGB565 frame and the current border color. The slice is reused for
	// the next frame so sinks must consume it before returning control.
	FrameDone func(frame []uint16, border uint16)
	// AudioDone is called at every frame wrap with the frame's samples.
	// Same reuse caveat as FrameDone.
	AudioDone func(samples []int16)

	// SampleRate is the audio output rate in Hz. 0 picks the POKEY default.
	SampleRate int

	// Debug keeps a rolling disassembly of executed instructions which
	// Trace returns.
	Debug bool
	// NoPacing disables the 50Hz frame limiter. Tests and turbo loaders
	// set this to run as fast as the host allows.
	NoPacing bool
}

// Init returns an initialized and powered on Atari 800XL emulator.
func Init(def *XLDef) (*XL, error) {
	for i, j := range def.Joysticks {
		if j != nil {
			if j.Up == nil || j.Down == nil || j.Left == nil || j.Right == nil || j.Fire == nil {
				return nil, fmt.Errorf("cannot pass in a Joystick for Joystick[%d] with nil members: %#v", i, j)
			}
		}
	}
	if c := def.Console; c != nil {
		if c.Start == nil || c.Select == nil || c.Option == nil {
			return nil, fmt.Errorf("cannot pass in a Console with nil members: %#v", c)
		}
	}

	g, err := gtia.Init(&gtia.ChipDef{Mode: gtia.TV_MODE_PAL})
	if err != nil {
		return nil, fmt.Errorf("can't initialize GTIA: %v", err)
	}
	p, err := pokey.Init(&pokey.ChipDef{SampleRate: def.SampleRate})
	if err != nil {
		return nil, fmt.Errorf("can't initialize POKEY: %v", err)
	}
	pia, err := pia6520.Init(&pia6520.ChipDef{})
	if err != nil {
		return nil, fmt.Errorf("can't initialize PIA: %v", err)
	}
	bus, err := membus.Init(&membus.ChipDef{
		Ram:      def.Ram,
		OSRom:    def.OSRom,
		BasicRom: def.BasicRom,
		GTIA:     g,
		POKEY:    p,
		PIA:      pia,
	})
	if err != nil {
		return nil, fmt.Errorf("can't initialize memory bus: %v", err)
	}
	a, err := antic.Init(&antic.ChipDef{
		Ram:  bus.VideoView(),
		GTIA: g,
	})
	if err != nil {
		return nil, fmt.Errorf("can't initialize ANTIC: %v", err)
	}
	bus.ConnectANTIC(a)

	x := &XL{
		bus:       bus,
		antic:     a,
		gtia:      g,
		pokey:     p,
		pia:       pia,
		irq:       p,
		joysticks: def.Joysticks,
		console:   def.Console,
		frameDone: def.FrameDone,
		audioDone: def.AudioDone,
		debug:     def.Debug,
	}
	if def.Debug {
		x.trace = make([]string, kTraceDepth)
	}
	if !def.NoPacing {
		x.ticker = time.NewTicker(time.Second / kFramesPerSecond)
	}

	// The bus has the OS mapped at this point so the CPU boots through
	// the OS reset vector.
	c, err := cpu.Init(&cpu.ChipDef{Ram: bus})
	if err != nil {
		return nil, fmt.Errorf("can't initialize cpu: %v", err)
	}
	x.cpu = c
	return x, nil
}

// RunScanline runs the CPU for one scanline's cycle budget, routes any
// interrupts that came up and then draws the line and synthesizes its audio
// share. At the frame wrap the finished frame and samples are handed to the
// sinks and the 50Hz limiter paces out the remainder of the frame slot.
// The returned error is a CPU jam which is terminal.
func (x *XL) RunScanline() error {
	x.mu.Lock()
	wrapped, err := x.runScanline()
	x.mu.Unlock()
	if err != nil {
		return err
	}
	if wrapped {
		// Sinks run unlocked. They only read buffers the emulation side
		// won't touch again until the next FillBuffer/DrawScanline.
		if x.audioDone != nil {
			x.audioDone(x.pokey.FrameSamples())
		}
		if x.frameDone != nil {
			x.frameDone(x.antic.Frame(), x.antic.BorderColor())
		}
		if x.ticker != nil {
			<-x.ticker.C
		}
	}
	return nil
}

func (x *XL) runScanline() (bool, error) {
	// Display list fetches stole these cycles on the previous line.
	budget := kCyclesPerScanline - x.antic.DMACycles()
	for budget > 0 {
		if x.antic.WSYNCHalted() {
			// WSYNC holds the CPU to the end of the line.
			break
		}
		if x.debug {
			x.recordTrace()
		}
		cycles, err := x.cpu.Step()
		if err != nil {
			return false, err
		}
		budget -= cycles
		// NMI beats IRQ. Both ANTIC pendings are consumed either way so a
		// blocked DLI doesn't fire late in somebody else's mode line.
		if (x.antic.CheckVBI() || x.antic.CheckDLI()) && !x.nmiActive {
			x.nmiActive = true
			budget -= x.cpu.NMI()
			continue
		}
		if x.irq.Raised() {
			if c, ok := x.cpu.IRQ(); ok {
				budget -= c
			}
		}
	}

	x.antic.DrawScanline()
	x.pokey.FillBuffer(x.antic.Scanline())
	x.antic.NextScanline()

	wrapped := x.antic.Scanline() == 0
	if wrapped {
		x.nmiActive = false
	}
	return wrapped, nil
}

// Run loops RunScanline until the CPU jams.
func (x *XL) Run() error {
	for {
		if err := x.RunScanline(); err != nil {
			return err
		}
	}
}

// Reset performs a warm reset. Banking returns to the boot state and the
// CPU restarts through the OS reset vector. RAM is preserved.
func (x *XL) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.gtia.Reset()
	x.pokey.Reset()
	x.pia.Reset()
	x.antic.Reset()
	// Banking must be back in the boot state before the CPU pulls the
	// reset vector through the bus.
	x.bus.Reset()
	x.cpu.Reset()
	x.nmiActive = false
}

// SetPC points the CPU at the given address. Loaders call this with the run
// address after writing an executable into RAM.
func (x *XL) SetPC(addr uint16) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.cpu.PC = addr
}

// KeyEvent pushes one keyboard transition into the POKEY. code is the 6 bit
// matrix scan code with 0x40 added for shift and 0x80 for control.
func (x *XL) KeyEvent(code uint8, pressed bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pokey.SetKeyCode(code, pressed)
}

// BreakKey pushes the BREAK key state into the POKEY. BREAK has its own IRQ
// line rather than a scan code.
func (x *XL) BreakKey(pressed bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pokey.SetBreakKey(pressed)
}

// Trace returns the most recent disassembled instructions, oldest first.
// Only populated when Debug was set in the def.
func (x *XL) Trace() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	var out []string
	for i := 0; i < len(x.trace); i++ {
		if s := x.trace[(x.traceIdx+i)%len(x.trace)]; s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (x *XL) recordTrace() {
	// Reads ahead through the bus. Only the POKEY RANDOM register has a
	// read side effect so tracing is safe unless code executes out of the
	// POKEY window.
	dis, _ := disassemble.Step(x.cpu.PC, x.bus)
	x.trace[x.traceIdx] = dis
	x.traceIdx = (x.traceIdx + 1) % len(x.trace)
}
