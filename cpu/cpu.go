// Package cpu defines the NMOS 6502 as used in the Atari 8 bit line and
// provides the methods needed to run it and interface with it for
// emulation. The chip is stepped a complete instruction at a time with
// Step returning the clock cycles consumed so a caller can drive the
// rest of the machine against a per scanline cycle budget.
package cpu

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/jmchacon/atari800/memory"
)

const (
	NMI_VECTOR   = uint16(0xFFFA)
	RESET_VECTOR = uint16(0xFFFC)
	IRQ_VECTOR   = uint16(0xFFFE)

	P_NEGATIVE  = uint8(0x80)
	P_OVERFLOW  = uint8(0x40)
	P_S1        = uint8(0x20) // Always 1
	P_B         = uint8(0x10) // Only set during BRK. Cleared on all other interrupts.
	P_DECIMAL   = uint8(0x8)
	P_INTERRUPT = uint8(0x4)
	P_ZERO      = uint8(0x2)
	P_CARRY     = uint8(0x1)
)

// Chip implements an NMOS 6502 (including the undocumented opcodes)
// run one whole instruction per Step.
type Chip struct {
	A           uint8  // Accumulator register
	X           uint8  // X register
	Y           uint8  // Y register
	S           uint8  // Stack pointer
	P           uint8  // Processor status register
	PC          uint16 // Program counter
	ram         memory.Bank
	halted      bool  // If stopped due to a halt instruction
	haltOpcode  uint8 // Opcode that caused the halt
	extraCycles int   // Penalty cycles the current instruction accumulated (page crosses, taken branches).
}

// ChipDef defines the pieces needed to initialize a 6502.
type ChipDef struct {
	// Ram is the memory map the CPU fetches and loads/stores against.
	// The caller is responsible for having powered it on already since
	// init here reads the reset vector through it.
	Ram memory.Bank
}

// A few custom error types to distinguish why the CPU stopped

// UnimplementedOpcode represents a currently unimplemented opcode in the emulator.
type UnimplementedOpcode struct {
	Opcode uint8
}

// Error implements the interface for error types.
func (e UnimplementedOpcode) Error() string {
	return fmt.Sprintf("0x%.2X is an unimplemented opcode", e.Opcode)
}

// HaltOpcode represents an opcode which halts the CPU.
type HaltOpcode struct {
	Opcode uint8
}

// Error implements the interface for error types.
func (e HaltOpcode) Error() string {
	return fmt.Sprintf("HALT(0x%.2X) executed", e.Opcode)
}

// Init will create a new 6502 and return it in powered on state.
func Init(def *ChipDef) (*Chip, error) {
	if def == nil || def.Ram == nil {
		return nil, errors.New("Ram must be non-nil in def")
	}
	p := &Chip{
		ram: def.Ram,
	}
	p.PowerOn()
	return p, nil
}

// PowerOn will reset the CPU to specific power on state. Registers are zero, stack is at 0xFD
// and P is cleared with interrupts disabled. The starting PC value is loaded from the reset
// vector.
func (p *Chip) PowerOn() {
	p.A = 0
	p.X = 0
	p.Y = 0
	p.S = 0x0
	// This bit is always set.
	p.P = P_S1
	p.Reset()
}

// Reset is similar to PowerOn except the main registers are not touched. The stack is moved
// 3 bytes as if PC/P have been pushed. Flags are not disturbed except for interrupts being disabled
// and the PC is loaded from the reset vector.
func (p *Chip) Reset() {
	// Most registers unaffected but stack acts like PC/P have been pushed so decrement by 3 bytes.
	p.S -= 3
	// Disable interrupts
	p.P |= P_INTERRUPT
	// Load PC from reset vector
	p.PC = p.readAddr(RESET_VECTOR)
	p.halted = false
	p.haltOpcode = 0x00
}

// Step runs one complete instruction and returns the clock cycles it
// consumed including any page crossing and taken branch penalties.
// An error is returned if the instruction isn't implemented or otherwise
// halts the CPU. Once halted every further Step returns the same error.
func (p *Chip) Step() (int, error) {
	// Fast path if halted. The PC won't advance. i.e. we just keep returning the same error.
	if p.halted {
		return 0, HaltOpcode{p.haltOpcode}
	}

	p.extraCycles = 0
	op := p.ram.Read(p.PC)
	p.PC++

	cycles, err := p.execute(op)
	if p.halted {
		p.haltOpcode = op
		return 0, HaltOpcode{op}
	}
	if err != nil {
		// Still consider this a halt since the chip state is now unknown.
		p.haltOpcode = op
		p.halted = true
		return 0, err
	}
	return cycles + p.extraCycles, nil
}

// NMI performs non maskable interrupt entry: PC and status (B clear) are
// pushed and the PC is loaded through NMI_VECTOR. Returns the cycles consumed.
func (p *Chip) NMI() int {
	p.interrupt(NMI_VECTOR)
	return 7
}

// IRQ performs maskable interrupt entry through IRQ_VECTOR unless
// interrupts are currently masked. The bool indicates whether entry
// happened and the int the cycles consumed.
func (p *Chip) IRQ() (int, bool) {
	if p.P&P_INTERRUPT != 0x00 {
		return 0, false
	}
	p.interrupt(IRQ_VECTOR)
	return 7, true
}

// interrupt pushes PC/P and loads the PC from the given vector.
// B is always clear in the pushed status since BRK doesn't come here.
func (p *Chip) interrupt(vector uint16) {
	p.pushStack(uint8((p.PC & 0xFF00) >> 8))
	p.pushStack(uint8(p.PC & 0xFF))
	push := (p.P | P_S1) &^ P_B
	p.pushStack(push)
	p.P |= P_INTERRUPT
	p.PC = p.readAddr(vector)
}

func (p *Chip) execute(op uint8) (int, error) {
	// Opcode matrix taken from:
	// http://wiki.nesdev.com/w/index.php/CPU_unofficial_opcodes#Games_using_unofficial_opcodes
	//
	// NOTE: The above lists 0xAB as LAX #i but we call it OAL since it has odd behavior and needs
	//       it's own code compared to other LAX. See 6502-NMOS.extra.opcodes below.
	//
	// Description of undocumented opcodes:
	//
	// http://www.ffd2.com/fridge/docs/6502-NMOS.extra.opcodes
	// http://nesdev.com/6502_cpu.txt
	//
	// Opcode descriptions/timing/etc:
	// http://obelisk.me.uk/6502/reference.html

	cycles := 0

	switch op {
	case 0x00:
		// BRK
		cycles = 7
		p.iBRK()
	case 0x01:
		// ORA (d,x)
		cycles = 6
		p.loadRegister(&p.A, p.A|p.load(p.addrIndirectX()))
	case 0x02:
		// HLT
		p.halted = true
	case 0x03:
		// SLO (d,x)
		cycles = 8
		addr := p.addrIndirectX()
		p.iSLO(p.load(addr), addr)
	case 0x04:
		// NOP d
		cycles = 3
		_ = p.load(p.addrZP())
	case 0x05:
		// ORA d
		cycles = 3
		p.loadRegister(&p.A, p.A|p.load(p.addrZP()))
	case 0x06:
		// ASL d
		cycles = 5
		addr := p.addrZP()
		p.iASL(p.load(addr), addr)
	case 0x07:
		// SLO d
		cycles = 5
		addr := p.addrZP()
		p.iSLO(p.load(addr), addr)
	case 0x08:
		// PHP
		cycles = 3
		p.iPHP()
	case 0x09:
		// ORA #i
		cycles = 2
		p.loadRegister(&p.A, p.A|p.load(p.addrImmediate()))
	case 0x0A:
		// ASL
		cycles = 2
		p.iASLAcc()
	case 0x0B:
		// ANC #i
		cycles = 2
		p.iANC(p.load(p.addrImmediate()))
	case 0x0C:
		// NOP a
		cycles = 4
		_ = p.load(p.addrAbsolute())
	case 0x0D:
		// ORA a
		cycles = 4
		p.loadRegister(&p.A, p.A|p.load(p.addrAbsolute()))
	case 0x0E:
		// ASL a
		cycles = 6
		addr := p.addrAbsolute()
		p.iASL(p.load(addr), addr)
	case 0x0F:
		// SLO a
		cycles = 6
		addr := p.addrAbsolute()
		p.iSLO(p.load(addr), addr)
	case 0x10:
		// BPL *+d
		cycles = 2
		p.branch(p.P&P_NEGATIVE == 0x00)
	case 0x11:
		// ORA (d),y
		cycles = 5
		p.loadRegister(&p.A, p.A|p.load(p.addrIndirectY(kLOAD_INSTRUCTION)))
	case 0x12:
		// HLT
		p.halted = true
	case 0x13:
		// SLO (d),y
		cycles = 8
		addr := p.addrIndirectY(kRMW_INSTRUCTION)
		p.iSLO(p.load(addr), addr)
	case 0x14:
		// NOP d,x
		cycles = 4
		_ = p.load(p.addrZPX())
	case 0x15:
		// ORA d,x
		cycles = 4
		p.loadRegister(&p.A, p.A|p.load(p.addrZPX()))
	case 0x16:
		// ASL d,x
		cycles = 6
		addr := p.addrZPX()
		p.iASL(p.load(addr), addr)
	case 0x17:
		// SLO d,x
		cycles = 6
		addr := p.addrZPX()
		p.iSLO(p.load(addr), addr)
	case 0x18:
		// CLC
		cycles = 2
		p.P &^= P_CARRY
	case 0x19:
		// ORA a,y
		cycles = 4
		p.loadRegister(&p.A, p.A|p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0x1A:
		// NOP
		cycles = 2
	case 0x1B:
		// SLO a,y
		cycles = 7
		addr := p.addrAbsoluteY(kRMW_INSTRUCTION)
		p.iSLO(p.load(addr), addr)
	case 0x1C:
		// NOP a,x
		cycles = 4
		_ = p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION))
	case 0x1D:
		// ORA a,x
		cycles = 4
		p.loadRegister(&p.A, p.A|p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION)))
	case 0x1E:
		// ASL a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iASL(p.load(addr), addr)
	case 0x1F:
		// SLO a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iSLO(p.load(addr), addr)
	case 0x20:
		// JSR a
		cycles = 6
		p.iJSR()
	case 0x21:
		// AND (d,x)
		cycles = 6
		p.loadRegister(&p.A, p.A&p.load(p.addrIndirectX()))
	case 0x22:
		// HLT
		p.halted = true
	case 0x23:
		// RLA (d,x)
		cycles = 8
		addr := p.addrIndirectX()
		p.iRLA(p.load(addr), addr)
	case 0x24:
		// BIT d
		cycles = 3
		p.iBIT(p.load(p.addrZP()))
	case 0x25:
		// AND d
		cycles = 3
		p.loadRegister(&p.A, p.A&p.load(p.addrZP()))
	case 0x26:
		// ROL d
		cycles = 5
		addr := p.addrZP()
		p.iROL(p.load(addr), addr)
	case 0x27:
		// RLA d
		cycles = 5
		addr := p.addrZP()
		p.iRLA(p.load(addr), addr)
	case 0x28:
		// PLP
		cycles = 4
		p.iPLP()
	case 0x29:
		// AND #i
		cycles = 2
		p.loadRegister(&p.A, p.A&p.load(p.addrImmediate()))
	case 0x2A:
		// ROL
		cycles = 2
		p.iROLAcc()
	case 0x2B:
		// ANC #i
		cycles = 2
		p.iANC(p.load(p.addrImmediate()))
	case 0x2C:
		// BIT a
		cycles = 4
		p.iBIT(p.load(p.addrAbsolute()))
	case 0x2D:
		// AND a
		cycles = 4
		p.loadRegister(&p.A, p.A&p.load(p.addrAbsolute()))
	case 0x2E:
		// ROL a
		cycles = 6
		addr := p.addrAbsolute()
		p.iROL(p.load(addr), addr)
	case 0x2F:
		// RLA a
		cycles = 6
		addr := p.addrAbsolute()
		p.iRLA(p.load(addr), addr)
	case 0x30:
		// BMI *+d
		cycles = 2
		p.branch(p.P&P_NEGATIVE != 0x00)
	case 0x31:
		// AND (d),y
		cycles = 5
		p.loadRegister(&p.A, p.A&p.load(p.addrIndirectY(kLOAD_INSTRUCTION)))
	case 0x32:
		// HLT
		p.halted = true
	case 0x33:
		// RLA (d),y
		cycles = 8
		addr := p.addrIndirectY(kRMW_INSTRUCTION)
		p.iRLA(p.load(addr), addr)
	case 0x34:
		// NOP d,x
		cycles = 4
		_ = p.load(p.addrZPX())
	case 0x35:
		// AND d,x
		cycles = 4
		p.loadRegister(&p.A, p.A&p.load(p.addrZPX()))
	case 0x36:
		// ROL d,x
		cycles = 6
		addr := p.addrZPX()
		p.iROL(p.load(addr), addr)
	case 0x37:
		// RLA d,x
		cycles = 6
		addr := p.addrZPX()
		p.iRLA(p.load(addr), addr)
	case 0x38:
		// SEC
		cycles = 2
		p.P |= P_CARRY
	case 0x39:
		// AND a,y
		cycles = 4
		p.loadRegister(&p.A, p.A&p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0x3A:
		// NOP
		cycles = 2
	case 0x3B:
		// RLA a,y
		cycles = 7
		addr := p.addrAbsoluteY(kRMW_INSTRUCTION)
		p.iRLA(p.load(addr), addr)
	case 0x3C:
		// NOP a,x
		cycles = 4
		_ = p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION))
	case 0x3D:
		// AND a,x
		cycles = 4
		p.loadRegister(&p.A, p.A&p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION)))
	case 0x3E:
		// ROL a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iROL(p.load(addr), addr)
	case 0x3F:
		// RLA a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iRLA(p.load(addr), addr)
	case 0x40:
		// RTI
		cycles = 6
		p.iRTI()
	case 0x41:
		// EOR (d,x)
		cycles = 6
		p.loadRegister(&p.A, p.A^p.load(p.addrIndirectX()))
	case 0x42:
		// HLT
		p.halted = true
	case 0x43:
		// SRE (d,x)
		cycles = 8
		addr := p.addrIndirectX()
		p.iSRE(p.load(addr), addr)
	case 0x44:
		// NOP d
		cycles = 3
		_ = p.load(p.addrZP())
	case 0x45:
		// EOR d
		cycles = 3
		p.loadRegister(&p.A, p.A^p.load(p.addrZP()))
	case 0x46:
		// LSR d
		cycles = 5
		addr := p.addrZP()
		p.iLSR(p.load(addr), addr)
	case 0x47:
		// SRE d
		cycles = 5
		addr := p.addrZP()
		p.iSRE(p.load(addr), addr)
	case 0x48:
		// PHA
		cycles = 3
		p.pushStack(p.A)
	case 0x49:
		// EOR #i
		cycles = 2
		p.loadRegister(&p.A, p.A^p.load(p.addrImmediate()))
	case 0x4A:
		// LSR
		cycles = 2
		p.iLSRAcc()
	case 0x4B:
		// ALR #i
		cycles = 2
		p.iALR(p.load(p.addrImmediate()))
	case 0x4C:
		// JMP a
		cycles = 3
		p.PC = p.addrAbsolute()
	case 0x4D:
		// EOR a
		cycles = 4
		p.loadRegister(&p.A, p.A^p.load(p.addrAbsolute()))
	case 0x4E:
		// LSR a
		cycles = 6
		addr := p.addrAbsolute()
		p.iLSR(p.load(addr), addr)
	case 0x4F:
		// SRE a
		cycles = 6
		addr := p.addrAbsolute()
		p.iSRE(p.load(addr), addr)
	case 0x50:
		// BVC *+d
		cycles = 2
		p.branch(p.P&P_OVERFLOW == 0x00)
	case 0x51:
		// EOR (d),y
		cycles = 5
		p.loadRegister(&p.A, p.A^p.load(p.addrIndirectY(kLOAD_INSTRUCTION)))
	case 0x52:
		// HLT
		p.halted = true
	case 0x53:
		// SRE (d),y
		cycles = 8
		addr := p.addrIndirectY(kRMW_INSTRUCTION)
		p.iSRE(p.load(addr), addr)
	case 0x54:
		// NOP d,x
		cycles = 4
		_ = p.load(p.addrZPX())
	case 0x55:
		// EOR d,x
		cycles = 4
		p.loadRegister(&p.A, p.A^p.load(p.addrZPX()))
	case 0x56:
		// LSR d,x
		cycles = 6
		addr := p.addrZPX()
		p.iLSR(p.load(addr), addr)
	case 0x57:
		// SRE d,x
		cycles = 6
		addr := p.addrZPX()
		p.iSRE(p.load(addr), addr)
	case 0x58:
		// CLI
		cycles = 2
		p.P &^= P_INTERRUPT
	case 0x59:
		// EOR a,y
		cycles = 4
		p.loadRegister(&p.A, p.A^p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0x5A:
		// NOP
		cycles = 2
	case 0x5B:
		// SRE a,y
		cycles = 7
		addr := p.addrAbsoluteY(kRMW_INSTRUCTION)
		p.iSRE(p.load(addr), addr)
	case 0x5C:
		// NOP a,x
		cycles = 4
		_ = p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION))
	case 0x5D:
		// EOR a,x
		cycles = 4
		p.loadRegister(&p.A, p.A^p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION)))
	case 0x5E:
		// LSR a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iLSR(p.load(addr), addr)
	case 0x5F:
		// SRE a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iSRE(p.load(addr), addr)
	case 0x60:
		// RTS
		cycles = 6
		p.iRTS()
	case 0x61:
		// ADC (d,x)
		cycles = 6
		p.iADC(p.load(p.addrIndirectX()))
	case 0x62:
		// HLT
		p.halted = true
	case 0x63:
		// RRA (d,x)
		cycles = 8
		addr := p.addrIndirectX()
		p.iRRA(p.load(addr), addr)
	case 0x64:
		// NOP d
		cycles = 3
		_ = p.load(p.addrZP())
	case 0x65:
		// ADC d
		cycles = 3
		p.iADC(p.load(p.addrZP()))
	case 0x66:
		// ROR d
		cycles = 5
		addr := p.addrZP()
		p.iROR(p.load(addr), addr)
	case 0x67:
		// RRA d
		cycles = 5
		addr := p.addrZP()
		p.iRRA(p.load(addr), addr)
	case 0x68:
		// PLA
		cycles = 4
		p.loadRegister(&p.A, p.popStack())
	case 0x69:
		// ADC #i
		cycles = 2
		p.iADC(p.load(p.addrImmediate()))
	case 0x6A:
		// ROR
		cycles = 2
		p.iRORAcc()
	case 0x6B:
		// ARR #i
		cycles = 2
		p.iARR(p.load(p.addrImmediate()))
	case 0x6C:
		// JMP (a)
		cycles = 5
		p.PC = p.addrIndirect()
	case 0x6D:
		// ADC a
		cycles = 4
		p.iADC(p.load(p.addrAbsolute()))
	case 0x6E:
		// ROR a
		cycles = 6
		addr := p.addrAbsolute()
		p.iROR(p.load(addr), addr)
	case 0x6F:
		// RRA a
		cycles = 6
		addr := p.addrAbsolute()
		p.iRRA(p.load(addr), addr)
	case 0x70:
		// BVS *+d
		cycles = 2
		p.branch(p.P&P_OVERFLOW != 0x00)
	case 0x71:
		// ADC (d),y
		cycles = 5
		p.iADC(p.load(p.addrIndirectY(kLOAD_INSTRUCTION)))
	case 0x72:
		// HLT
		p.halted = true
	case 0x73:
		// RRA (d),y
		cycles = 8
		addr := p.addrIndirectY(kRMW_INSTRUCTION)
		p.iRRA(p.load(addr), addr)
	case 0x74:
		// NOP d,x
		cycles = 4
		_ = p.load(p.addrZPX())
	case 0x75:
		// ADC d,x
		cycles = 4
		p.iADC(p.load(p.addrZPX()))
	case 0x76:
		// ROR d,x
		cycles = 6
		addr := p.addrZPX()
		p.iROR(p.load(addr), addr)
	case 0x77:
		// RRA d,x
		cycles = 6
		addr := p.addrZPX()
		p.iRRA(p.load(addr), addr)
	case 0x78:
		// SEI
		cycles = 2
		p.P |= P_INTERRUPT
	case 0x79:
		// ADC a,y
		cycles = 4
		p.iADC(p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0x7A:
		// NOP
		cycles = 2
	case 0x7B:
		// RRA a,y
		cycles = 7
		addr := p.addrAbsoluteY(kRMW_INSTRUCTION)
		p.iRRA(p.load(addr), addr)
	case 0x7C:
		// NOP a,x
		cycles = 4
		_ = p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION))
	case 0x7D:
		// ADC a,x
		cycles = 4
		p.iADC(p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION)))
	case 0x7E:
		// ROR a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iROR(p.load(addr), addr)
	case 0x7F:
		// RRA a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iRRA(p.load(addr), addr)
	case 0x80:
		// NOP #i
		cycles = 2
		p.addrImmediate()
	case 0x81:
		// STA (d,x)
		cycles = 6
		p.store(p.A, p.addrIndirectX())
	case 0x82:
		// NOP #i
		cycles = 2
		p.addrImmediate()
	case 0x83:
		// SAX (d,x)
		cycles = 6
		p.store(p.A&p.X, p.addrIndirectX())
	case 0x84:
		// STY d
		cycles = 3
		p.store(p.Y, p.addrZP())
	case 0x85:
		// STA d
		cycles = 3
		p.store(p.A, p.addrZP())
	case 0x86:
		// STX d
		cycles = 3
		p.store(p.X, p.addrZP())
	case 0x87:
		// SAX d
		cycles = 3
		p.store(p.A&p.X, p.addrZP())
	case 0x88:
		// DEY
		cycles = 2
		p.loadRegister(&p.Y, p.Y-1)
	case 0x89:
		// NOP #i
		cycles = 2
		p.addrImmediate()
	case 0x8A:
		// TXA
		cycles = 2
		p.loadRegister(&p.A, p.X)
	case 0x8B:
		// XAA #i
		cycles = 2
		p.iXAA(p.load(p.addrImmediate()))
	case 0x8C:
		// STY a
		cycles = 4
		p.store(p.Y, p.addrAbsolute())
	case 0x8D:
		// STA a
		cycles = 4
		p.store(p.A, p.addrAbsolute())
	case 0x8E:
		// STX a
		cycles = 4
		p.store(p.X, p.addrAbsolute())
	case 0x8F:
		// SAX a
		cycles = 4
		p.store(p.A&p.X, p.addrAbsolute())
	case 0x90:
		// BCC *+d
		cycles = 2
		p.branch(p.P&P_CARRY == 0x00)
	case 0x91:
		// STA (d),y
		cycles = 6
		p.store(p.A, p.addrIndirectY(kSTORE_INSTRUCTION))
	case 0x92:
		// HLT
		p.halted = true
	case 0x94:
		// STY d,x
		cycles = 4
		p.store(p.Y, p.addrZPX())
	case 0x95:
		// STA d,x
		cycles = 4
		p.store(p.A, p.addrZPX())
	case 0x96:
		// STX d,y
		cycles = 4
		p.store(p.X, p.addrZPY())
	case 0x97:
		// SAX d,y
		cycles = 4
		p.store(p.A&p.X, p.addrZPY())
	case 0x98:
		// TYA
		cycles = 2
		p.loadRegister(&p.A, p.Y)
	case 0x99:
		// STA a,y
		cycles = 5
		p.store(p.A, p.addrAbsoluteY(kSTORE_INSTRUCTION))
	case 0x9A:
		// TXS
		cycles = 2
		p.S = p.X
	case 0x9D:
		// STA a,x
		cycles = 5
		p.store(p.A, p.addrAbsoluteX(kSTORE_INSTRUCTION))
	case 0xA0:
		// LDY #i
		cycles = 2
		p.loadRegister(&p.Y, p.load(p.addrImmediate()))
	case 0xA1:
		// LDA (d,x)
		cycles = 6
		p.loadRegister(&p.A, p.load(p.addrIndirectX()))
	case 0xA2:
		// LDX #i
		cycles = 2
		p.loadRegister(&p.X, p.load(p.addrImmediate()))
	case 0xA3:
		// LAX (d,x)
		cycles = 6
		p.iLAX(p.load(p.addrIndirectX()))
	case 0xA4:
		// LDY d
		cycles = 3
		p.loadRegister(&p.Y, p.load(p.addrZP()))
	case 0xA5:
		// LDA d
		cycles = 3
		p.loadRegister(&p.A, p.load(p.addrZP()))
	case 0xA6:
		// LDX d
		cycles = 3
		p.loadRegister(&p.X, p.load(p.addrZP()))
	case 0xA7:
		// LAX d
		cycles = 3
		p.iLAX(p.load(p.addrZP()))
	case 0xA8:
		// TAY
		cycles = 2
		p.loadRegister(&p.Y, p.A)
	case 0xA9:
		// LDA #i
		cycles = 2
		p.loadRegister(&p.A, p.load(p.addrImmediate()))
	case 0xAA:
		// TAX
		cycles = 2
		p.loadRegister(&p.X, p.A)
	case 0xAB:
		// OAL #i
		cycles = 2
		p.iOAL(p.load(p.addrImmediate()))
	case 0xAC:
		// LDY a
		cycles = 4
		p.loadRegister(&p.Y, p.load(p.addrAbsolute()))
	case 0xAD:
		// LDA a
		cycles = 4
		p.loadRegister(&p.A, p.load(p.addrAbsolute()))
	case 0xAE:
		// LDX a
		cycles = 4
		p.loadRegister(&p.X, p.load(p.addrAbsolute()))
	case 0xAF:
		// LAX a
		cycles = 4
		p.iLAX(p.load(p.addrAbsolute()))
	case 0xB0:
		// BCS *+d
		cycles = 2
		p.branch(p.P&P_CARRY != 0x00)
	case 0xB1:
		// LDA (d),y
		cycles = 5
		p.loadRegister(&p.A, p.load(p.addrIndirectY(kLOAD_INSTRUCTION)))
	case 0xB2:
		// HLT
		p.halted = true
	case 0xB3:
		// LAX (d),y
		cycles = 5
		p.iLAX(p.load(p.addrIndirectY(kLOAD_INSTRUCTION)))
	case 0xB4:
		// LDY d,x
		cycles = 4
		p.loadRegister(&p.Y, p.load(p.addrZPX()))
	case 0xB5:
		// LDA d,x
		cycles = 4
		p.loadRegister(&p.A, p.load(p.addrZPX()))
	case 0xB6:
		// LDX d,y
		cycles = 4
		p.loadRegister(&p.X, p.load(p.addrZPY()))
	case 0xB7:
		// LAX d,y
		cycles = 4
		p.iLAX(p.load(p.addrZPY()))
	case 0xB8:
		// CLV
		cycles = 2
		p.P &^= P_OVERFLOW
	case 0xB9:
		// LDA a,y
		cycles = 4
		p.loadRegister(&p.A, p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0xBA:
		// TSX
		cycles = 2
		p.loadRegister(&p.X, p.S)
	case 0xBC:
		// LDY a,x
		cycles = 4
		p.loadRegister(&p.Y, p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION)))
	case 0xBD:
		// LDA a,x
		cycles = 4
		p.loadRegister(&p.A, p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION)))
	case 0xBE:
		// LDX a,y
		cycles = 4
		p.loadRegister(&p.X, p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0xBF:
		// LAX a,y
		cycles = 4
		p.iLAX(p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0xC0:
		// CPY #i
		cycles = 2
		p.compare(p.Y, p.load(p.addrImmediate()))
	case 0xC1:
		// CMP (d,x)
		cycles = 6
		p.compare(p.A, p.load(p.addrIndirectX()))
	case 0xC2:
		// NOP #i
		cycles = 2
		p.addrImmediate()
	case 0xC3:
		// DCP (d,x)
		cycles = 8
		addr := p.addrIndirectX()
		p.iDCP(p.load(addr), addr)
	case 0xC4:
		// CPY d
		cycles = 3
		p.compare(p.Y, p.load(p.addrZP()))
	case 0xC5:
		// CMP d
		cycles = 3
		p.compare(p.A, p.load(p.addrZP()))
	case 0xC6:
		// DEC d
		cycles = 5
		addr := p.addrZP()
		p.storeWithFlags(p.load(addr)-1, addr)
	case 0xC7:
		// DCP d
		cycles = 5
		addr := p.addrZP()
		p.iDCP(p.load(addr), addr)
	case 0xC8:
		// INY
		cycles = 2
		p.loadRegister(&p.Y, p.Y+1)
	case 0xC9:
		// CMP #i
		cycles = 2
		p.compare(p.A, p.load(p.addrImmediate()))
	case 0xCA:
		// DEX
		cycles = 2
		p.loadRegister(&p.X, p.X-1)
	case 0xCB:
		// AXS #i
		cycles = 2
		p.iAXS(p.load(p.addrImmediate()))
	case 0xCC:
		// CPY a
		cycles = 4
		p.compare(p.Y, p.load(p.addrAbsolute()))
	case 0xCD:
		// CMP a
		cycles = 4
		p.compare(p.A, p.load(p.addrAbsolute()))
	case 0xCE:
		// DEC a
		cycles = 6
		addr := p.addrAbsolute()
		p.storeWithFlags(p.load(addr)-1, addr)
	case 0xCF:
		// DCP a
		cycles = 6
		addr := p.addrAbsolute()
		p.iDCP(p.load(addr), addr)
	case 0xD0:
		// BNE *+d
		cycles = 2
		p.branch(p.P&P_ZERO == 0x00)
	case 0xD1:
		// CMP (d),y
		cycles = 5
		p.compare(p.A, p.load(p.addrIndirectY(kLOAD_INSTRUCTION)))
	case 0xD2:
		// HLT
		p.halted = true
	case 0xD3:
		// DCP (d),y
		cycles = 8
		addr := p.addrIndirectY(kRMW_INSTRUCTION)
		p.iDCP(p.load(addr), addr)
	case 0xD4:
		// NOP d,x
		cycles = 4
		_ = p.load(p.addrZPX())
	case 0xD5:
		// CMP d,x
		cycles = 4
		p.compare(p.A, p.load(p.addrZPX()))
	case 0xD6:
		// DEC d,x
		cycles = 6
		addr := p.addrZPX()
		p.storeWithFlags(p.load(addr)-1, addr)
	case 0xD7:
		// DCP d,x
		cycles = 6
		addr := p.addrZPX()
		p.iDCP(p.load(addr), addr)
	case 0xD8:
		// CLD
		cycles = 2
		p.P &^= P_DECIMAL
	case 0xD9:
		// CMP a,y
		cycles = 4
		p.compare(p.A, p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0xDA:
		// NOP
		cycles = 2
	case 0xDB:
		// DCP a,y
		cycles = 7
		addr := p.addrAbsoluteY(kRMW_INSTRUCTION)
		p.iDCP(p.load(addr), addr)
	case 0xDC:
		// NOP a,x
		cycles = 4
		_ = p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION))
	case 0xDD:
		// CMP a,x
		cycles = 4
		p.compare(p.A, p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION)))
	case 0xDE:
		// DEC a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.storeWithFlags(p.load(addr)-1, addr)
	case 0xDF:
		// DCP a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iDCP(p.load(addr), addr)
	case 0xE0:
		// CPX #i
		cycles = 2
		p.compare(p.X, p.load(p.addrImmediate()))
	case 0xE1:
		// SBC (d,x)
		cycles = 6
		p.iSBC(p.load(p.addrIndirectX()))
	case 0xE2:
		// NOP #i
		cycles = 2
		p.addrImmediate()
	case 0xE3:
		// ISC (d,x)
		cycles = 8
		addr := p.addrIndirectX()
		p.iISC(p.load(addr), addr)
	case 0xE4:
		// CPX d
		cycles = 3
		p.compare(p.X, p.load(p.addrZP()))
	case 0xE5:
		// SBC d
		cycles = 3
		p.iSBC(p.load(p.addrZP()))
	case 0xE6:
		// INC d
		cycles = 5
		addr := p.addrZP()
		p.storeWithFlags(p.load(addr)+1, addr)
	case 0xE7:
		// ISC d
		cycles = 5
		addr := p.addrZP()
		p.iISC(p.load(addr), addr)
	case 0xE8:
		// INX
		cycles = 2
		p.loadRegister(&p.X, p.X+1)
	case 0xE9:
		// SBC #i
		cycles = 2
		p.iSBC(p.load(p.addrImmediate()))
	case 0xEA:
		// NOP
		cycles = 2
	case 0xEB:
		// SBC #i
		cycles = 2
		p.iSBC(p.load(p.addrImmediate()))
	case 0xEC:
		// CPX a
		cycles = 4
		p.compare(p.X, p.load(p.addrAbsolute()))
	case 0xED:
		// SBC a
		cycles = 4
		p.iSBC(p.load(p.addrAbsolute()))
	case 0xEE:
		// INC a
		cycles = 6
		addr := p.addrAbsolute()
		p.storeWithFlags(p.load(addr)+1, addr)
	case 0xEF:
		// ISC a
		cycles = 6
		addr := p.addrAbsolute()
		p.iISC(p.load(addr), addr)
	case 0xF0:
		// BEQ *+d
		cycles = 2
		p.branch(p.P&P_ZERO != 0x00)
	case 0xF1:
		// SBC (d),y
		cycles = 5
		p.iSBC(p.load(p.addrIndirectY(kLOAD_INSTRUCTION)))
	case 0xF2:
		// HLT
		p.halted = true
	case 0xF3:
		// ISC (d),y
		cycles = 8
		addr := p.addrIndirectY(kRMW_INSTRUCTION)
		p.iISC(p.load(addr), addr)
	case 0xF4:
		// NOP d,x
		cycles = 4
		_ = p.load(p.addrZPX())
	case 0xF5:
		// SBC d,x
		cycles = 4
		p.iSBC(p.load(p.addrZPX()))
	case 0xF6:
		// INC d,x
		cycles = 6
		addr := p.addrZPX()
		p.storeWithFlags(p.load(addr)+1, addr)
	case 0xF7:
		// ISC d,x
		cycles = 6
		addr := p.addrZPX()
		p.iISC(p.load(addr), addr)
	case 0xF8:
		// SED
		cycles = 2
		p.P |= P_DECIMAL
	case 0xF9:
		// SBC a,y
		cycles = 4
		p.iSBC(p.load(p.addrAbsoluteY(kLOAD_INSTRUCTION)))
	case 0xFA:
		// NOP
		cycles = 2
	case 0xFB:
		// ISC a,y
		cycles = 7
		addr := p.addrAbsoluteY(kRMW_INSTRUCTION)
		p.iISC(p.load(addr), addr)
	case 0xFC:
		// NOP a,x
		cycles = 4
		_ = p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION))
	case 0xFD:
		// SBC a,x
		cycles = 4
		p.iSBC(p.load(p.addrAbsoluteX(kLOAD_INSTRUCTION)))
	case 0xFE:
		// INC a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.storeWithFlags(p.load(addr)+1, addr)
	case 0xFF:
		// ISC a,x
		cycles = 7
		addr := p.addrAbsoluteX(kRMW_INSTRUCTION)
		p.iISC(p.load(addr), addr)
	default:
		return 0, UnimplementedOpcode{op}
	}
	return cycles, nil
}

// zeroCheck sets the Z flag based on the register contents.
func (p *Chip) zeroCheck(reg uint8) {
	if reg == 0 {
		p.P |= P_ZERO
	} else {
		p.P &^= P_ZERO
	}
}

// negativeCheck sets the N flag based on the register contents.
func (p *Chip) negativeCheck(reg uint8) {
	if (reg & P_NEGATIVE) == 0x80 {
		p.P |= P_NEGATIVE
	} else {
		p.P &^= P_NEGATIVE
	}
}

// carryCheck sets the C flag if the result of an 8 bit ALU operation
// (passed as a 16 bit result) caused a carry out by generating a value >= 0x100.
// NOTE: normally this just means masking 0x100 but in some overflow cases for BCD
//       math the value can be 0x200 here so it's still a carry.
func (p *Chip) carryCheck(res uint16) {
	if res >= 0x100 {
		p.P |= P_CARRY
	} else {
		p.P &^= P_CARRY
	}
}

// overflowCheck sets the V flag if the result of the ALU operation
// caused a two's complement sign change.
// Taken from http://www.righto.com/2012/12/the-6502-overflow-flag-explained.html
func (p *Chip) overflowCheck(reg uint8, arg uint8, res uint8) {
	// If the originals signs differ from the end sign bit
	if (reg^res)&(arg^res)&0x80 != 0x00 {
		p.P |= P_OVERFLOW
	} else {
		p.P &^= P_OVERFLOW
	}
}

// instructionMode is an enumeration indicating the type of instruction being processed.
// The indexed addressing modes only charge the page crossing penalty on
// loads. Stores and RMW instructions have it baked into their base cycles.
type instructionMode int

const (
	kLOAD_INSTRUCTION instructionMode = iota
	kRMW_INSTRUCTION
	kSTORE_INSTRUCTION
)

// load reads the byte the given address references.
func (p *Chip) load(addr uint16) uint8 {
	return p.ram.Read(addr)
}

// readAddr reads the 16 bit little endian address stored at addr.
func (p *Chip) readAddr(addr uint16) uint16 {
	return (uint16(p.ram.Read(addr+1)) << 8) + uint16(p.ram.Read(addr))
}

// addrImmediate implements immediate mode - #i
// returning the operand address (the PC) and advancing past it.
func (p *Chip) addrImmediate() uint16 {
	addr := p.PC
	p.PC++
	return addr
}

// addrZP implements Zero page mode - d
func (p *Chip) addrZP() uint16 {
	addr := uint16(p.ram.Read(p.PC))
	p.PC++
	return addr
}

// addrZPX implements Zero page plus X mode - d,x
// The computed address wraps within the zero page.
func (p *Chip) addrZPX() uint16 {
	addr := uint16(p.ram.Read(p.PC) + p.X)
	p.PC++
	return addr
}

// addrZPY implements Zero page plus Y mode - d,y
// The computed address wraps within the zero page.
func (p *Chip) addrZPY() uint16 {
	addr := uint16(p.ram.Read(p.PC) + p.Y)
	p.PC++
	return addr
}

// addrAbsolute implements absolute mode - a
func (p *Chip) addrAbsolute() uint16 {
	addr := (uint16(p.ram.Read(p.PC+1)) << 8) + uint16(p.ram.Read(p.PC))
	p.PC += 2
	return addr
}

// addrAbsoluteX implements absolute plus X mode - a,x
// Loads pay a one cycle penalty when indexing crosses a page.
func (p *Chip) addrAbsoluteX(mode instructionMode) uint16 {
	base := p.addrAbsolute()
	addr := base + uint16(p.X)
	if mode == kLOAD_INSTRUCTION && (base&0xFF00) != (addr&0xFF00) {
		p.extraCycles++
	}
	return addr
}

// addrAbsoluteY implements absolute plus Y mode - a,y
// Loads pay a one cycle penalty when indexing crosses a page.
func (p *Chip) addrAbsoluteY(mode instructionMode) uint16 {
	base := p.addrAbsolute()
	addr := base + uint16(p.Y)
	if mode == kLOAD_INSTRUCTION && (base&0xFF00) != (addr&0xFF00) {
		p.extraCycles++
	}
	return addr
}

// addrIndirectX implements indirect plus X mode - (d,x)
// The zero page pointer wraps within the zero page.
func (p *Chip) addrIndirectX() uint16 {
	zp := p.ram.Read(p.PC) + p.X
	p.PC++
	return (uint16(p.ram.Read(uint16(zp+1))) << 8) + uint16(p.ram.Read(uint16(zp)))
}

// addrIndirectY implements indirect plus Y mode - (d),y
// Loads pay a one cycle penalty when indexing crosses a page.
func (p *Chip) addrIndirectY(mode instructionMode) uint16 {
	zp := p.ram.Read(p.PC)
	p.PC++
	base := (uint16(p.ram.Read(uint16(zp+1))) << 8) + uint16(p.ram.Read(uint16(zp)))
	addr := base + uint16(p.Y)
	if mode == kLOAD_INSTRUCTION && (base&0xFF00) != (addr&0xFF00) {
		p.extraCycles++
	}
	return addr
}

// addrIndirect implements indirect mode - (a) as used by JMP.
// The NMOS bug is reproduced: a pointer at the end of a page fetches
// its high byte from the start of that same page.
func (p *Chip) addrIndirect() uint16 {
	base := p.addrAbsolute()
	hi := (base & 0xFF00) + uint16(uint8(base&0x00FF)+1)
	return (uint16(p.ram.Read(hi)) << 8) + uint16(p.ram.Read(base))
}

// loadRegister takes the val and inserts it into the register passed in. It then does
// Z and N checks against the new value.
func (p *Chip) loadRegister(reg *uint8, val uint8) {
	*reg = val
	p.zeroCheck(*reg)
	p.negativeCheck(*reg)
}

// pushStack pushes the given byte onto the stack and adjusts the stack pointer accordingly.
func (p *Chip) pushStack(val uint8) {
	p.ram.Write(0x0100+uint16(p.S), val)
	p.S--
}

// popStack pops the top byte off the stack and adjusts the stack pointer accordingly.
func (p *Chip) popStack() uint8 {
	p.S++
	return p.ram.Read(0x0100 + uint16(p.S))
}

// branch computes the new PC for a relative branch. Taken branches cost
// one extra cycle and another if the destination is on a different page
// than the instruction following the branch.
func (p *Chip) branch(taken bool) {
	offset := p.ram.Read(p.PC)
	p.PC++
	if !taken {
		return
	}
	p.extraCycles++
	// Per http://www.6502.org/tutorials/6502opcodes.html
	// the wrong page is defined as a different page than
	// the next byte after the jump. i.e. current PC at the moment.
	addr := p.PC + uint16(int16(int8(offset)))
	if (addr & 0xFF00) != (p.PC & 0xFF00) {
		p.extraCycles++
	}
	p.PC = addr
}

// iADC implements the ADC instruction in both binary and BCD modes and
// sets all associated flags.
func (p *Chip) iADC(arg uint8) {
	// Pull the carry bit out which thankfully is the low bit so can be
	// used directly.
	carry := p.P & P_CARRY

	if (p.P & P_DECIMAL) != 0x00 {
		// BCD details - http://6502.org/tutorials/decimal_mode.html
		// Also http://nesdev.com/6502_cpu.txt but it has errors
		aL := (p.A & 0x0F) + (arg & 0x0F) + carry
		// Low nibble fixup
		if aL >= 0x0A {
			aL = ((aL + 0x06) & 0x0F) + 0x10
		}
		sum := uint16(p.A&0xF0) + uint16(arg&0xF0) + uint16(aL)
		// High nibble fixup
		if sum >= 0xA0 {
			sum += 0x60
		}
		res := uint8(sum & 0xFF)
		seq := (p.A & 0xF0) + (arg & 0xF0) + aL
		bin := p.A + arg + carry
		p.overflowCheck(p.A, arg, seq)
		p.carryCheck(sum)
		p.negativeCheck(seq)
		p.zeroCheck(bin)
		p.A = res
		return
	}

	// Otherwise do normal binary math.
	sum := p.A + arg + carry
	p.overflowCheck(p.A, arg, sum)
	// Yes, could do bit checks here like the hardware but
	// just treating as uint16 math is simpler to code.
	p.carryCheck(uint16(p.A) + uint16(arg) + uint16(carry))

	// Now set the accumulator so the other flag checks are against the result.
	p.loadRegister(&p.A, sum)
}

// iSBC implements the SBC instruction for both binary and BCD modes and sets all associated flags.
func (p *Chip) iSBC(arg uint8) {
	if (p.P & P_DECIMAL) != 0x00 {
		// Pull the carry bit out which thankfully is the low bit so can be
		// used directly.
		carry := p.P & P_CARRY

		// BCD details - http://6502.org/tutorials/decimal_mode.html
		// Also http://nesdev.com/6502_cpu.txt but it has errors
		aL := int8(p.A&0x0F) - int8(arg&0x0F) + int8(carry) - 1
		// Low nibble fixup
		if aL < 0 {
			aL = ((aL - 0x06) & 0x0F) - 0x10
		}
		sum := int16(p.A&0xF0) - int16(arg&0xF0) + int16(aL)
		// High nibble fixup
		if sum < 0x0000 {
			sum -= 0x60
		}
		res := uint8(sum & 0xFF)

		// Do normal binary math to set C,N,Z
		b := p.A + ^arg + carry
		p.overflowCheck(p.A, ^arg, b)
		p.negativeCheck(b)
		// Yes, could do bit checks here like the hardware but
		// just treating as uint16 math is simpler to code.
		p.carryCheck(uint16(p.A) + uint16(^arg) + uint16(carry))
		p.zeroCheck(b)
		p.A = res
		return
	}

	// Otherwise binary mode is just ones complement the arg and ADC.
	p.iADC(^arg)
}

// iASLAcc implements the ASL instruction directly on the accumulator.
func (p *Chip) iASLAcc() {
	p.carryCheck(uint16(p.A) << 1)
	p.loadRegister(&p.A, p.A<<1)
}

// iASL implements the ASL instruction on the given memory location.
func (p *Chip) iASL(val uint8, addr uint16) {
	new := val << 1
	p.ram.Write(addr, new)
	p.carryCheck(uint16(val) << 1)
	p.zeroCheck(new)
	p.negativeCheck(new)
}

// iLSRAcc implements the LSR instruction directly on the accumulator.
func (p *Chip) iLSRAcc() {
	// Get bit0 from A but in a 16 bit value and then shift it up into
	// the carry position
	p.carryCheck(uint16(p.A&0x01) << 8)
	p.loadRegister(&p.A, p.A>>1)
}

// iLSR implements the LSR instruction on the given memory location.
func (p *Chip) iLSR(val uint8, addr uint16) {
	new := val >> 1
	p.ram.Write(addr, new)
	p.carryCheck(uint16(val&0x01) << 8)
	p.zeroCheck(new)
	p.negativeCheck(new)
}

// iROLAcc implements the ROL instruction directly on the accumulator.
func (p *Chip) iROLAcc() {
	carry := p.P & P_CARRY
	p.carryCheck(uint16(p.A) << 1)
	p.loadRegister(&p.A, (p.A<<1)|carry)
}

// iROL implements the ROL instruction on the given memory location.
func (p *Chip) iROL(val uint8, addr uint16) {
	carry := p.P & P_CARRY
	new := (val << 1) | carry
	p.ram.Write(addr, new)
	p.carryCheck(uint16(val) << 1)
	p.zeroCheck(new)
	p.negativeCheck(new)
}

// iRORAcc implements the ROR instruction directly on the accumulator.
func (p *Chip) iRORAcc() {
	carry := (p.P & P_CARRY) << 7
	p.carryCheck(uint16(p.A&0x01) << 8)
	p.loadRegister(&p.A, (p.A>>1)|carry)
}

// iROR implements the ROR instruction on the given memory location.
func (p *Chip) iROR(val uint8, addr uint16) {
	carry := (p.P & P_CARRY) << 7
	new := (val >> 1) | carry
	p.ram.Write(addr, new)
	p.carryCheck(uint16(val&0x01) << 8)
	p.zeroCheck(new)
	p.negativeCheck(new)
}

// iBIT implements the BIT instruction for AND'ing against A
// and setting N/V from the value.
func (p *Chip) iBIT(val uint8) {
	p.zeroCheck(p.A & val)
	p.negativeCheck(val)
	// Copy V from bit 6
	if val&P_OVERFLOW != 0x00 {
		p.P |= P_OVERFLOW
	} else {
		p.P &^= P_OVERFLOW
	}
}

// compare implements the logic for all CMP/CPX/CPY instructions and
// sets flags accordingly from the results.
func (p *Chip) compare(reg uint8, val uint8) {
	p.zeroCheck(reg - val)
	p.negativeCheck(reg - val)
	// A-M done as 2's complement addition by ones complement and add 1
	// This way we get valid sign extension and a carry bit test.
	p.carryCheck(uint16(reg) + uint16(^val) + uint16(1))
}

// iBRK implements the BRK instruction. The byte after BRK is padding so
// the pushed return address skips it. B is set in the pushed status.
func (p *Chip) iBRK() {
	p.PC++
	p.pushStack(uint8((p.PC & 0xFF00) >> 8))
	p.pushStack(uint8(p.PC & 0xFF))
	p.pushStack(p.P | P_S1 | P_B)
	p.P |= P_INTERRUPT
	p.PC = p.readAddr(IRQ_VECTOR)
}

// iJSR implements the JSR instruction for jumping to a subroutine.
// NOTE: The pushed PC points at the last byte of the operand. RTS
//       handles this by adding one to the popped PC value.
func (p *Chip) iJSR() {
	addr := p.addrAbsolute()
	ret := p.PC - 1
	p.pushStack(uint8((ret & 0xFF00) >> 8))
	p.pushStack(uint8(ret & 0xFF))
	p.PC = addr
}

// iRTI implements the RTI instruction restoring P (with S1 forced on,
// B forced off) and then the PC.
func (p *Chip) iRTI() {
	p.P = (p.popStack() | P_S1) &^ P_B
	low := p.popStack()
	p.PC = (uint16(p.popStack()) << 8) + uint16(low)
}

// iRTS implements the RTS instruction and pops the PC off the stack adding one to it.
func (p *Chip) iRTS() {
	low := p.popStack()
	p.PC = (uint16(p.popStack()) << 8) + uint16(low) + 1
}

// iPHP implements the PHP instruction for pushing P onto the stack.
// NMOS always pushes with B on.
func (p *Chip) iPHP() {
	p.pushStack(p.P | P_S1 | P_B)
}

// iPLP implements the PLP instruction and pops the stack into the flags.
func (p *Chip) iPLP() {
	p.P = p.popStack()
	// The actual flags register always has S1 set to one
	p.P |= P_S1
	// And the B bit is never set in the register
	p.P &^= P_B
}

// iALR implements the undocumented opcode for ALR. This does AND #i and then LSR setting all associated flags.
func (p *Chip) iALR(arg uint8) {
	p.loadRegister(&p.A, p.A&arg)
	p.iLSRAcc()
}

// iANC implements the undocumented opcode for ANC. This does AND #i and then sets carry based on bit 7 (sign extend).
func (p *Chip) iANC(arg uint8) {
	p.loadRegister(&p.A, p.A&arg)
	p.carryCheck(uint16(p.A) << 1)
}

// iARR implements the undocumented opcode for ARR. This does AND #i and then ROR except some flags are set differently.
// Implemented as described in http://nesdev.com/6502_cpu.txt
func (p *Chip) iARR(arg uint8) {
	t := p.A & arg
	a := p.A
	p.loadRegister(&p.A, t)
	p.iRORAcc()
	// Flags are different based on BCD or not (since the ALU acts different).
	if p.P&P_DECIMAL != 0x00 {
		// If bit 6 changed state between original A and AND operation set V.
		if (t^a)&0x40 != 0x00 {
			p.P |= P_OVERFLOW
		} else {
			p.P &^= P_OVERFLOW
		}
		// Now do possible odd BCD fixups and set C
		ah := t >> 4
		al := t & 0x0F
		if (al + (al & 0x01)) > 5 {
			p.A = (p.A & 0xF0) | ((p.A + 6) & 0x0F)
		}
		if (ah + (ah & 1)) > 5 {
			p.P |= P_CARRY
			p.A += 0x60
		} else {
			p.P &^= P_CARRY
		}
		return
	}
	// C is bit 6
	p.carryCheck(uint16(p.A) << 2)
	// V is bit 5 ^ bit 6
	if ((p.A&0x40)>>6)^((p.A^0x20)>>5) != 0x00 {
		p.P |= P_OVERFLOW
	} else {
		p.P &^= P_OVERFLOW
	}
}

// iAXS implements the undocumented opcode for AXS. (A AND X) - arg (no borrow) setting all associated flags post SBC.
func (p *Chip) iAXS(arg uint8) {
	// Save A off to restore later
	a := p.A
	p.loadRegister(&p.A, p.A&p.X)
	// Carry is always set
	p.P |= P_CARRY
	// Save D & V state since it's always ignored for this but needs to keep values.
	d := p.P & P_DECIMAL
	v := p.P & P_OVERFLOW
	// Clear D so SBC never uses BCD mode (we'll reset it later from saved state).
	p.P &^= P_DECIMAL
	p.iSBC(arg)
	// Clear V now in case SBC set it so we can properly restore it below.
	p.P &^= P_OVERFLOW
	// Save A in a temp so we can load registers in the right order to set flags (based on X, not old A)
	x := p.A
	p.loadRegister(&p.A, a)
	p.loadRegister(&p.X, x)
	// Restore D & V from our initial state.
	p.P |= d | v
}

// iLAX implements the undocumented opcode for LAX. This loads A and X with the same value and sets all associated flags.
func (p *Chip) iLAX(arg uint8) {
	p.loadRegister(&p.A, arg)
	p.loadRegister(&p.X, arg)
}

// iDCP implements the undocumented opcode for DCP. This decrements the given address and then does a CMP with A setting associated flags.
func (p *Chip) iDCP(val uint8, addr uint16) {
	p.ram.Write(addr, val-1)
	p.compare(p.A, val-1)
}

// iISC implements the undocumented opcode for ISC. This increments the given address and then does an SBC setting associated flags.
func (p *Chip) iISC(val uint8, addr uint16) {
	p.ram.Write(addr, val+1)
	p.iSBC(val + 1)
}

// iSLO implements the undocumented opcode for SLO. This does an ASL on the given address and then OR's it against A. Sets flags and carry.
func (p *Chip) iSLO(val uint8, addr uint16) {
	p.ram.Write(addr, val<<1)
	p.carryCheck(uint16(val) << 1)
	p.loadRegister(&p.A, (val<<1)|p.A)
}

// iRLA implements the undocumented opcode for RLA. This does a ROL on the given address and then AND's it against A. Sets flags and carry.
func (p *Chip) iRLA(val uint8, addr uint16) {
	n := val<<1 | (p.P & P_CARRY)
	p.ram.Write(addr, n)
	p.carryCheck(uint16(val) << 1)
	p.loadRegister(&p.A, n&p.A)
}

// iSRE implements the undocumented opcode for SRE. This does a LSR on the given address and then EOR's it against A. Sets flags and carry.
func (p *Chip) iSRE(val uint8, addr uint16) {
	p.ram.Write(addr, val>>1)
	// Old bit 0 becomes carry
	p.carryCheck(uint16(val) << 8)
	p.loadRegister(&p.A, (val>>1)^p.A)
}

// iRRA implements the undocumented opcode for RRA. This does a ROR on the given address and then ADC's it against A. Sets flags and carry.
func (p *Chip) iRRA(val uint8, addr uint16) {
	n := ((p.P & P_CARRY) << 7) | val>>1
	p.ram.Write(addr, n)
	// Old bit 0 becomes carry
	p.carryCheck((uint16(val) << 8) & 0x0100)
	p.iADC(n)
}

// iXAA implements the undocumented opcode for XAA. We'll go with http://visual6502.org/wiki/index.php?title=6502_Opcode_8B_(XAA,_ANE)
// for implementation and pick 0xEE as the constant.
func (p *Chip) iXAA(arg uint8) {
	p.loadRegister(&p.A, (p.A|0xEE)&p.X&arg)
}

// iOAL implements the undocumented opcode for OAL. This one acts a bit randomly. It sometimes does XAA and sometimes
// does A=X=A&val.
func (p *Chip) iOAL(arg uint8) {
	if rand.Float32() >= 0.5 {
		p.iXAA(arg)
		return
	}
	v := p.A & arg
	p.loadRegister(&p.A, v)
	p.loadRegister(&p.X, v)
}

// store implements the STA/STX/STY instructions for storing a register in RAM.
func (p *Chip) store(val uint8, addr uint16) {
	p.ram.Write(addr, val)
}

// storeWithFlags stores the val to the given addr and also sets Z/N flags accordingly.
// Generally used to implement INC/DEC.
func (p *Chip) storeWithFlags(val uint8, addr uint16) {
	p.zeroCheck(val)
	p.negativeCheck(val)
	p.store(val, addr)
}
