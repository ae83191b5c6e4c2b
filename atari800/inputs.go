package atari800

import (
	"github.com/jmchacon/atari800/gtia"
	"github.com/jmchacon/atari800/io"
)

// Joystick defines a classic digital joystick with 4 directions and a single
// button. For each direction true == pressed.
type Joystick struct {
	Up    io.PortIn1
	Down  io.PortIn1
	Left  io.PortIn1
	Right io.PortIn1
	Fire  io.PortIn1
}

// Console defines the START/SELECT/OPTION keys next to the keyboard.
// true == pressed, the chips invert to active low themselves.
type Console struct {
	Start  io.PortIn1
	Select io.PortIn1
	Option io.PortIn1
}

// ScanInputs samples the joystick and console sources into the chips. The
// front end calls this from its event loop so inputs update at the pump's
// cadence independent of the emulation goroutine.
func (x *XL) ScanInputs() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if j := x.joysticks[0]; j != nil {
		x.pia.SetJoystick1(j.Up.Input(), j.Down.Input(), j.Left.Input(), j.Right.Input())
		x.gtia.SetTrigger(0, j.Fire.Input())
	}
	if j := x.joysticks[1]; j != nil {
		x.pia.SetJoystick2(j.Up.Input(), j.Down.Input(), j.Left.Input(), j.Right.Input())
		x.gtia.SetTrigger(1, j.Fire.Input())
	}
	if c := x.console; c != nil {
		x.gtia.SetConsoleKey(gtia.CONSOLE_START, c.Start.Input())
		x.gtia.SetConsoleKey(gtia.CONSOLE_SELECT, c.Select.Input())
		x.gtia.SetConsoleKey(gtia.CONSOLE_OPTION, c.Option.Input())
	}
}
