// Package irq defines the basic interface for working
// with a 6502 family interrupt. A generator of interrupts (IRQ/NMI)
// implements this interface to allow the system loop to poll state
// without cross coupling component logic.
// NOTE: Even though chips make a distinction between level and edge type interrupts
//       the interface here doesn't and assumes implementors simply account for
//       this in clock cycle management.
package irq

type Sender interface {
	// Raised indicates whether the interrupt is currently held high.
	Raised() bool
}
