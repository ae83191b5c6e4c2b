// xl boots a PAL Atari 800XL: SDL2 video scaled up from the 320x192
// frame, oto pulling the POKEY output, the host keyboard mapped onto
// the POKEY matrix and console switches on F2-F4. An executable named
// with -xex is injected once the OS has had time to boot. -term drops
// the video entirely and reads keys from the terminal instead.
package main

import (
	"flag"
	"log"
	"os"
	"sync"

	"github.com/jmchacon/atari800/antic"
	"github.com/jmchacon/atari800/atari800"
	"github.com/jmchacon/atari800/xex"
	"github.com/veandco/go-sdl2/sdl"
)

var (
	osImage    = flag.String("os_rom", "", "Path to the 16k XL OS ROM image")
	basicImage = flag.String("basic_rom", "", "Path to the 8k BASIC ROM image")
	xexFile    = flag.String("xex", "", "Path to an Atari executable to inject once the OS has booted")
	diskFile   = flag.String("disk", "", "Path to an ATR disk image to mount")
	scale      = flag.Int("scale", 2, "Window scale factor for the 320x192 frame")
	debug      = flag.Bool("debug", false, "If true keep a rolling disassembly and print it when the CPU jams")
	wavOut     = flag.String("wavout", "", "If set record the audio output to this WAV file")
	termMode   = flag.Bool("term", false, "Run without video, reading the keyboard from the terminal. Audio still plays")
	volume     = flag.Float64("volume", 1.0, "Playback volume between 0.0 and 1.0")
	joyKeys    = flag.Bool("joy_keys", false, "If true the arrow/WASD keys drive joystick 1 with left control as the trigger instead of typing")
)

const (
	// The OS needs a couple of seconds of emulated time to finish its
	// boot and open the editor before an injected executable can rely
	// on its vectors.
	kBootFrames = 150

	kSampleRate = 44100

	// Pad axis travel below this reads as centered.
	kDeadZone = 8192
)

type swtch struct {
	b bool
}

func (s *swtch) Input() bool {
	return s.b
}

func main() {
	flag.Parse()
	if *osImage == "" || *basicImage == "" {
		log.Fatalf("must supply -os_rom and -basic_rom")
	}
	if *termMode {
		runTerm()
		return
	}
	sdl.Main(runSDL)
}

// loadImages reads the ROM images and optional executable named by the
// flags.
func loadImages() (ram, osROM, basicROM, program []uint8) {
	ram = make([]uint8, 65536)
	var err error
	if osROM, err = os.ReadFile(*osImage); err != nil {
		log.Fatalf("Can't load OS ROM: %v from path: %s", err, *osImage)
	}
	if basicROM, err = os.ReadFile(*basicImage); err != nil {
		log.Fatalf("Can't load BASIC ROM: %v from path: %s", err, *basicImage)
	}
	if *xexFile != "" {
		if program, err = os.ReadFile(*xexFile); err != nil {
			log.Fatalf("Can't load executable: %v from path: %s", err, *xexFile)
		}
	}
	return ram, osROM, basicROM, program
}

func mountDisk() *xex.Disk {
	if *diskFile == "" {
		return nil
	}
	d, err := xex.MountATR(*diskFile)
	if err != nil {
		log.Fatalf("Can't mount disk: %v from path: %s", err, *diskFile)
	}
	log.Printf("Mounted %s: %d sectors of %d bytes", *diskFile, d.Sectors(), d.SectorSize())
	return d
}

// loadExecutable pokes an executable into RAM and points the CPU at its
// entry. Runs at a frame boundary so the CPU is between instructions.
func loadExecutable(a *atari800.XL, ram []uint8, name string, data []uint8) {
	res, err := xex.Load(ram, name, data)
	if err != nil {
		log.Fatalf("Can't load %s: %v", name, err)
	}
	pc := res.RunAddress
	if pc == 0 {
		pc = res.InitAddress
	}
	if pc == 0 {
		log.Printf("%s declares no entry point, leaving the OS running", name)
		return
	}
	log.Printf("Starting %s at %.4X", name, pc)
	a.SetPC(pc)
}

func runSDL() {
	var window *sdl.Window
	var renderer *sdl.Renderer
	var texture *sdl.Texture
	padPresent := false

	var wg sync.WaitGroup
	wg.Add(1)
	sdl.Do(func() {
		if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
			log.Fatalf("Can't init SDL: %v", err)
		}

		var err error
		window, err = sdl.CreateWindow("atari800xl", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(antic.Width**scale), int32(antic.Height**scale), sdl.WINDOW_SHOWN)
		if err != nil {
			log.Fatalf("Can't create window: %v", err)
		}
		renderer, err = sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
		if err != nil {
			log.Fatalf("Can't create renderer: %v", err)
		}
		// The machine renders RGB565 directly so the frame streams into
		// the texture without conversion.
		texture, err = renderer.CreateTexture(sdl.PIXELFORMAT_RGB565, sdl.TEXTUREACCESS_STREAMING, antic.Width, antic.Height)
		if err != nil {
			log.Fatalf("Can't create texture: %v", err)
		}
		if sdl.NumJoysticks() > 0 {
			sdl.JoystickEventState(sdl.ENABLE)
			if j := sdl.JoystickOpen(0); j != nil {
				log.Printf("Using joystick %s", j.Name())
				padPresent = true
			}
		}
		wg.Done()
	})

	ram, osROM, basicROM, program := loadImages()
	disk := mountDisk()

	ring, player, err := openAudio(kSampleRate, *volume)
	if err != nil {
		log.Fatalf("Can't open audio: %v", err)
	}
	var wavW *wavWriter
	if *wavOut != "" {
		if wavW, err = newWavWriter(*wavOut, kSampleRate); err != nil {
			log.Fatalf("Can't create %s: %v", *wavOut, err)
		}
	}
	wg.Wait()

	shutdown := func() {
		if wavW != nil {
			if err := wavW.close(); err != nil {
				log.Printf("Can't finalize %s: %v", *wavOut, err)
			}
		}
		player.Close()
		if disk != nil {
			disk.Close()
		}
		sdl.Do(func() {
			window.Destroy()
			sdl.Quit()
		})
		os.Exit(0)
	}

	inp := &inputState{}
	kb := &atari800.Joystick{Up: &inp.up, Down: &inp.down, Left: &inp.left, Right: &inp.right, Fire: &inp.fire}
	sticks := [2]*atari800.Joystick{kb, nil}
	if padPresent {
		// A real pad takes port 1 and the keyboard stick moves to port 2.
		pad := &atari800.Joystick{Up: &inp.padUp, Down: &inp.padDown, Left: &inp.padLeft, Right: &inp.padRight, Fire: &inp.padFire}
		sticks = [2]*atari800.Joystick{pad, kb}
	}

	pixels := make([]byte, antic.Width*antic.Height*2)
	frames := 0
	var a *atari800.XL

	a, err = atari800.Init(&atari800.XLDef{
		Ram:       ram,
		OSRom:     osROM,
		BasicRom:  basicROM,
		Joysticks: sticks,
		Console:   &atari800.Console{Start: &inp.start, Select: &inp.sel, Option: &inp.option},
		FrameDone: func(frame []uint16, border uint16) {
			for i, p := range frame {
				pixels[2*i] = uint8(p)
				pixels[2*i+1] = uint8(p >> 8)
			}
			quit := false
			sdl.Do(func() {
				if err := texture.Update(nil, pixels, antic.Width*2); err != nil {
					log.Fatalf("Can't update texture: %v", err)
				}
				renderer.Clear()
				renderer.Copy(texture, nil, nil)
				renderer.Present()
				quit = pumpEvents(a, inp)
			})
			a.ScanInputs()
			frames++
			if program != nil && frames == kBootFrames {
				loadExecutable(a, ram, *xexFile, program)
			}
			if quit {
				shutdown()
			}
		},
		AudioDone: func(samples []int16) {
			ring.push(samples)
			if wavW != nil {
				if err := wavW.write(samples); err != nil {
					log.Fatalf("Can't write %s: %v", *wavOut, err)
				}
			}
		},
		SampleRate: kSampleRate,
		Debug:      *debug,
	})
	if err != nil {
		log.Fatalf("Can't init 800XL: %v", err)
	}

	err = a.Run()
	for _, l := range a.Trace() {
		log.Printf("%s", l)
	}
	log.Fatalf("CPU jam: %v", err)
}

// pumpEvents drains the SDL queue. Returns true when the window was
// closed.
func pumpEvents(a *atari800.XL, inp *inputState) bool {
	quit := false
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev := ev.(type) {
		case *sdl.QuitEvent:
			quit = true
		case *sdl.KeyboardEvent:
			// Key repeat is the OS editor's job, not the matrix's.
			if ev.Repeat == 0 {
				handleKey(a, inp, ev)
			}
		case *sdl.JoyAxisEvent:
			switch ev.Axis {
			case 0:
				inp.padLeft.b = ev.Value < -kDeadZone
				inp.padRight.b = ev.Value > kDeadZone
			case 1:
				inp.padUp.b = ev.Value < -kDeadZone
				inp.padDown.b = ev.Value > kDeadZone
			}
		case *sdl.JoyButtonEvent:
			inp.padFire.b = ev.State == sdl.PRESSED
		}
	}
	return quit
}
