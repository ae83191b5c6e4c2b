package main

import (
	"bufio"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/jmchacon/atari800/atari800"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// cbreakTerminal switches stdin to cbreak so keys arrive unbuffered and
// unechoed. The returned function restores canonical mode.
func cbreakTerminal() (func(), error) {
	fd := os.Stdin.Fd()
	var canonical unix.Termios
	if err := termios.Tcgetattr(fd, &canonical); err != nil {
		return nil, err
	}
	cbreak := canonical
	termios.Cfmakecbreak(&cbreak)
	if err := termios.Tcsetattr(fd, termios.TCIFLUSH, &cbreak); err != nil {
		return nil, err
	}
	return func() {
		if err := termios.Tcsetattr(fd, termios.TCIFLUSH, &canonical); err != nil {
			log.Printf("Can't restore terminal attributes: %v", err)
		}
	}, nil
}

// keyLoop feeds terminal bytes into the keyboard matrix. Arrow keys
// arrive as ESC [ A..D sequences, everything else is one byte.
func keyLoop(a *atari800.XL) {
	in := bufio.NewReader(os.Stdin)
	for {
		b, err := in.ReadByte()
		if err != nil {
			return
		}
		code, ok := asciiKey(b)
		if b == 0x1B && in.Buffered() >= 2 {
			if seq, err := in.Peek(2); err == nil && seq[0] == '[' {
				switch seq[1] {
				case 'A':
					code, ok = kKeyMinus|kModCtrl, true
				case 'B':
					code, ok = kKeyEquals|kModCtrl, true
				case 'C':
					code, ok = kKeyAsterisk|kModCtrl, true
				case 'D':
					code, ok = kKeyPlus|kModCtrl, true
				default:
					ok = false
				}
				in.Discard(2)
			}
		}
		if !ok {
			continue
		}
		// Terminals never report key up so hold each key for a couple
		// of frames and then release it.
		a.KeyEvent(code, true)
		time.Sleep(40 * time.Millisecond)
		a.KeyEvent(code, false)
	}
}

// runTerm drives the machine without video. Ctrl-C quits.
func runTerm() {
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

	restore, err := cbreakTerminal()
	if err != nil {
		log.Fatalf("Can't set terminal attributes: %v", err)
	}
	cleanup := func() {
		restore()
		if wavW != nil {
			if err := wavW.close(); err != nil {
				log.Printf("Can't finalize %s: %v", *wavOut, err)
			}
		}
		player.Close()
		if disk != nil {
			disk.Close()
		}
	}

	// The terminal has to come back from cbreak even on Ctrl-C.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cleanup()
		os.Exit(0)
	}()

	frames := 0
	var a *atari800.XL
	a, err = atari800.Init(&atari800.XLDef{
		Ram:      ram,
		OSRom:    osROM,
		BasicRom: basicROM,
		FrameDone: func(frame []uint16, border uint16) {
			frames++
			if program != nil && frames == kBootFrames {
				loadExecutable(a, ram, *xexFile, program)
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

	go keyLoop(a)

	err = a.Run()
	cleanup()
	for _, l := range a.Trace() {
		log.Printf("%s", l)
	}
	log.Fatalf("CPU jam: %v", err)
}
