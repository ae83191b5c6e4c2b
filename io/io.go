// Package io defines the basic interface for working
// with a 6502 family based input line. Implementors of I/O
// (such as the system loop feeding a 6520) sample these when input
// state is needed so input sources never couple directly to chip
// internals.
package io

// PortIn1 defines a single bit input port such as a joystick direction
// switch, a trigger or a console key.
type PortIn1 interface {
	// Input will return the current state of the switch. For anything
	// button like true == pressed.
	Input() bool
}
