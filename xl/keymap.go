package main

import (
	"github.com/jmchacon/atari800/atari800"
	"github.com/veandco/go-sdl2/sdl"
)

// Scan codes composed outside the table plus the modifier bits the POKEY
// folds into KBCODE.
const (
	kKeyPlus      = uint8(0x06)
	kKeyAsterisk  = uint8(0x07)
	kKeyReturn    = uint8(0x0C)
	kKeyMinus     = uint8(0x0E)
	kKeyEquals    = uint8(0x0F)
	kKeyEsc       = uint8(0x1C)
	kKeyTab       = uint8(0x2C)
	kKeyBackspace = uint8(0x34)

	kModShift = uint8(0x40)
	kModCtrl  = uint8(0x80)
)

// inputState holds the switch states the event pump writes and ScanInputs
// hands to the chips every frame.
type inputState struct {
	up, down, left, right, fire swtch

	padUp, padDown, padLeft, padRight, padFire swtch

	start, sel, option swtch
}

// atariCodes is the keyboard matrix keyed by ASCII, letters lower case.
// Symbols a host keyboard only produces shifted carry their own modifier
// bits so the terminal path composes the same codes the SDL path does.
// [ and ] stand in for the dedicated < and > keys US layouts don't have.
var atariCodes = map[byte]uint8{
	'l': 0x00, 'j': 0x01, ';': 0x02, 'k': 0x05, '+': 0x06, '*': 0x07,
	'o': 0x08, 'p': 0x0A, 'u': 0x0B, '\r': 0x0C, 'i': 0x0D, '-': 0x0E, '=': 0x0F,
	'v': 0x10, 'c': 0x12, 'b': 0x15, 'x': 0x16, 'z': 0x17,
	'4': 0x18, '3': 0x1A, '6': 0x1B, 0x1B: 0x1C, '5': 0x1D, '2': 0x1E, '1': 0x1F,
	',': 0x20, ' ': 0x21, '.': 0x22, 'n': 0x23, 'm': 0x25, '/': 0x26, '`': 0x27,
	'r': 0x28, 'e': 0x2A, 'y': 0x2B, '\t': 0x2C, 't': 0x2D, 'w': 0x2E, 'q': 0x2F,
	'9': 0x30, '0': 0x32, '7': 0x33, 0x08: 0x34, '8': 0x35, '[': 0x36, ']': 0x37,
	'f': 0x38, 'h': 0x39, 'd': 0x3A, 'g': 0x3D, 's': 0x3E, 'a': 0x3F,

	'!': 0x1F | kModShift, '"': 0x1E | kModShift, '#': 0x1A | kModShift,
	'$': 0x18 | kModShift, '%': 0x1D | kModShift, '&': 0x1B | kModShift,
	'\'': 0x33 | kModShift, '@': 0x35 | kModShift, '(': 0x30 | kModShift,
	')': 0x32 | kModShift, ':': 0x02 | kModShift, '?': 0x26 | kModShift,
	'<': 0x36, '>': 0x37,
}

// specialCodes covers SDL keycodes with no ASCII byte. F6 plays the HELP
// key the XL added.
var specialCodes = map[sdl.Keycode]uint8{
	sdl.K_CAPSLOCK:    0x3C,
	sdl.K_F6:          0x11,
	sdl.K_KP_PLUS:     0x06,
	sdl.K_KP_MULTIPLY: 0x07,
	sdl.K_KP_MINUS:    0x0E,
	sdl.K_KP_DIVIDE:   0x26,
	sdl.K_KP_ENTER:    0x0C,
}

func lookupKey(sym sdl.Keycode) (uint8, bool) {
	if code, ok := specialCodes[sym]; ok {
		return code, true
	}
	// Printable keycodes are their ASCII values.
	if sym > 0 && sym < 128 {
		code, ok := atariCodes[byte(sym)]
		return code, ok
	}
	return 0, false
}

// handleKey turns one SDL key transition into joystick, console or POKEY
// matrix updates.
func handleKey(a *atari800.XL, inp *inputState, ev *sdl.KeyboardEvent) {
	pressed := ev.Type == sdl.KEYDOWN
	sym := ev.Keysym.Sym

	if *joyKeys {
		switch sym {
		case sdl.K_UP, sdl.K_w:
			inp.up.b = pressed
			return
		case sdl.K_DOWN, sdl.K_s:
			inp.down.b = pressed
			return
		case sdl.K_LEFT, sdl.K_a:
			inp.left.b = pressed
			return
		case sdl.K_RIGHT, sdl.K_d:
			inp.right.b = pressed
			return
		case sdl.K_LCTRL:
			inp.fire.b = pressed
			return
		}
	}

	switch sym {
	case sdl.K_F2:
		inp.option.b = pressed
		return
	case sdl.K_F3:
		inp.sel.b = pressed
		return
	case sdl.K_F4:
		inp.start.b = pressed
		return
	case sdl.K_F5:
		if pressed {
			a.Reset()
		}
		return
	case sdl.K_F7:
		a.BreakKey(pressed)
		return
	// The Atari cursor keys are control plus -, =, + and *.
	case sdl.K_UP:
		a.KeyEvent(kKeyMinus|kModCtrl, pressed)
		return
	case sdl.K_DOWN:
		a.KeyEvent(kKeyEquals|kModCtrl, pressed)
		return
	case sdl.K_LEFT:
		a.KeyEvent(kKeyPlus|kModCtrl, pressed)
		return
	case sdl.K_RIGHT:
		a.KeyEvent(kKeyAsterisk|kModCtrl, pressed)
		return
	}

	code, ok := lookupKey(sym)
	if !ok {
		return
	}
	if ev.Keysym.Mod&sdl.KMOD_SHIFT != 0 {
		code |= kModShift
	}
	// Left control doubles as the trigger under -joy_keys so only the
	// right one composes CTRL there.
	ctrl := uint16(sdl.KMOD_CTRL)
	if *joyKeys {
		ctrl = uint16(sdl.KMOD_RCTRL)
	}
	if ev.Keysym.Mod&ctrl != 0 {
		code |= kModCtrl
	}
	a.KeyEvent(code, pressed)
}

// asciiKey translates one terminal byte. Control bytes become ctrl+letter
// the way the Atari keyboard produces them.
func asciiKey(b byte) (uint8, bool) {
	switch b {
	case '\r', '\n':
		return kKeyReturn, true
	case '\t':
		return kKeyTab, true
	case 0x08, 0x7F:
		return kKeyBackspace, true
	case 0x1B:
		return kKeyEsc, true
	}
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	if b >= 1 && b <= 26 {
		code, ok := atariCodes['a'+b-1]
		if !ok {
			return 0, false
		}
		return code | kModCtrl, true
	}
	code, ok := atariCodes[b]
	return code, ok
}
