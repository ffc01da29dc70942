// Package cpu implements the 6502 core used by the NES, including the
// documented instruction set and the undocumented opcodes that commercial
// and homebrew ROMs rely on.
//
// Every memory access the CPU performs goes through the Bus interface, and
// the Bus (not the CPU) owns the cycle counter: each Read/Write call ticks
// the PPU three times and the APU once before the access is dispatched. The
// CPU never "computes" cycle counts in advance; it issues exactly the bus
// accesses real hardware would issue for a given opcode and addressing mode,
// including the dummy reads/writes the 6502 performs on indexed and
// read-modify-write instructions. That is what keeps the PPU and mapper A12
// tracking dot-accurate.
package cpu

import "github.com/golang/glog"

// AddressingMode identifies how an instruction's operand is located.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

const (
	stackBase = 0x0100

	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// Bus is the memory/timing interface the CPU drives. Every Read/Write call
// is expected to advance emulated time (tick PPU/APU/mapper) by one CPU
// cycle; the CPU relies on that to get correct instruction timing for free.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// instruction describes one opcode: its mnemonic (for tracing), addressing
// mode, base cycle count and whether it writes to / read-modify-writes its
// operand (this drives which dummy bus accesses are issued).
type instruction struct {
	name    string
	mode    AddressingMode
	cycles  uint8
	isWrite bool // pure write instructions (STA/STX/STY/SAX and friends)
	isRMW   bool // read-modify-write instructions (INC, ASL, unofficial SLO...)
	exec    func(cpu *CPU, addr uint16, pageCrossed bool) uint8
}

// CPU is the 6502-family core.
type CPU struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16

	C, Z, I, D, B, V, N bool

	bus Bus

	instructions [256]*instruction

	// Interrupt lines. nmiPending is an edge latch set by the bus/PPU the
	// instant the PPU's ~15-cycle NMI delay elapses; irqLine is the
	// level-triggered aggregate (mapper IRQ OR APU IRQ) refreshed on every
	// bus tick. prevIRQInhibit mirrors the I flag as it stood *before* the
	// instruction that just ran, because CLI/SEI take effect for polling
	// purposes one instruction later than they take effect for the flag
	// itself.
	nmiPending     bool
	irqLine        bool
	prevIRQInhibit bool

	// Trace hook used by debug tooling and tests; nil in normal operation.
	onStep func(pc uint16, opcode uint8)
}

// New creates a CPU driven by the given bus. Call Reset before Step.
func New(bus Bus) *CPU {
	cpu := &CPU{bus: bus, SP: 0xFD}
	cpu.initInstructions()
	return cpu
}

// SetTraceHook installs a callback invoked before each instruction decodes,
// with the instruction's address and opcode.
func (cpu *CPU) SetTraceHook(fn func(pc uint16, opcode uint8)) {
	cpu.onStep = fn
}

// Reset performs the 6502 reset sequence: the real chip spends 7 cycles
// pretending to push the status register (but with the writes suppressed,
// i.e. three reads of the stack page) before loading PC from the reset
// vector. Every one of those phantom accesses still goes through the bus so
// PPU/APU warm up in lockstep with real hardware.
func (cpu *CPU) Reset() {
	cpu.A, cpu.X, cpu.Y = 0, 0, 0
	cpu.SP = 0xFD
	cpu.C, cpu.Z, cpu.D, cpu.V, cpu.N = false, false, false, false, false
	cpu.I = true
	cpu.B = true

	cpu.read(cpu.PC)
	cpu.read(cpu.PC)
	cpu.read(stackBase + uint16(cpu.SP))
	cpu.read(stackBase + uint16(cpu.SP-1))
	cpu.read(stackBase + uint16(cpu.SP-2))
	cpu.SP -= 3

	lo := uint16(cpu.read(resetVector))
	hi := uint16(cpu.read(resetVector + 1))
	cpu.PC = (hi << 8) | lo

	cpu.prevIRQInhibit = cpu.I
}

// SetNMI latches a pending NMI edge. Called by the bus the instant the PPU's
// internal delay countdown elapses (see ppu.Step/NMIAsserted).
func (cpu *CPU) SetNMI() {
	cpu.nmiPending = true
}

// SetIRQLine sets the level-triggered aggregate IRQ line, refreshed by the
// bus on every tick from (mapper.IRQPending() || apu.IRQPending()).
func (cpu *CPU) SetIRQLine(asserted bool) {
	cpu.irqLine = asserted
}

func (cpu *CPU) read(addr uint16) uint8    { return cpu.bus.Read(addr) }
func (cpu *CPU) write(addr uint16, v uint8) { cpu.bus.Write(addr, v) }

// Step services any pending interrupt (using the I flag as it stood before
// the previous instruction executed), then fetches, decodes and executes
// exactly one instruction. It returns the number of CPU cycles (bus
// accesses) consumed, for statistics only — timing has already happened.
func (cpu *CPU) Step() int {
	ticks := 0

	if cpu.nmiPending {
		cpu.nmiPending = false
		ticks += cpu.serviceInterrupt(nmiVector, false)
		cpu.prevIRQInhibit = cpu.I
		return ticks
	}
	if cpu.irqLine && !cpu.prevIRQInhibit {
		ticks += cpu.serviceInterrupt(irqVector, false)
		cpu.prevIRQInhibit = cpu.I
		return ticks
	}

	pc := cpu.PC
	opcode := cpu.read(cpu.PC)
	cpu.PC++
	ticks++

	if cpu.onStep != nil {
		cpu.onStep(pc, opcode)
	}

	instr := cpu.instructions[opcode]
	if instr == nil {
		glog.Warningf("cpu: unmapped opcode $%02X at $%04X, treating as 1-cycle NOP", opcode, pc)
		cpu.prevIRQInhibit = cpu.I
		return ticks
	}

	addr, pageCrossed, _ := cpu.fetchOperand(instr, opcode)
	extraCycles := instr.exec(cpu, addr, pageCrossed)
	ticks = int(instr.cycles) + int(extraCycles) // instr.cycles includes the opcode fetch
	if pageCrossed && instr.mode != Relative && !instr.isWrite && !instr.isRMW {
		ticks++ // indexed read crossing a page
	}

	cpu.prevIRQInhibit = cpu.I
	return ticks
}

// serviceInterrupt performs the 7-cycle NMI/IRQ/BRK push-and-vector sequence.
// brk indicates the instruction itself requested this (sets B=1 in the
// pushed status); NMI/IRQ push B=0.
func (cpu *CPU) serviceInterrupt(vector uint16, brk bool) int {
	cpu.read(cpu.PC) // two throwaway reads mirroring the opcode+operand fetch an instruction would do
	cpu.read(cpu.PC)
	cpu.pushWord(cpu.PC)
	status := cpu.statusByte()
	if brk {
		status |= bFlagMask
	} else {
		status &^= bFlagMask
	}
	status |= unusedMask
	cpu.push(status)
	cpu.I = true
	lo := uint16(cpu.read(vector))
	hi := uint16(cpu.read(vector + 1))
	cpu.PC = (hi << 8) | lo
	return 7
}

func (cpu *CPU) push(v uint8) {
	cpu.write(stackBase+uint16(cpu.SP), v)
	cpu.SP--
}

func (cpu *CPU) pop() uint8 {
	cpu.SP++
	return cpu.read(stackBase + uint16(cpu.SP))
}

func (cpu *CPU) pushWord(v uint16) {
	cpu.push(uint8(v >> 8))
	cpu.push(uint8(v))
}

func (cpu *CPU) popWord() uint16 {
	lo := uint16(cpu.pop())
	hi := uint16(cpu.pop())
	return (hi << 8) | lo
}

func (cpu *CPU) setZN(v uint8) {
	cpu.Z = v == 0
	cpu.N = v&nFlagMask != 0
}

func (cpu *CPU) statusByte() uint8 {
	var s uint8
	if cpu.N {
		s |= nFlagMask
	}
	if cpu.V {
		s |= vFlagMask
	}
	s |= unusedMask
	if cpu.B {
		s |= bFlagMask
	}
	if cpu.D {
		s |= dFlagMask
	}
	if cpu.I {
		s |= iFlagMask
	}
	if cpu.Z {
		s |= zFlagMask
	}
	if cpu.C {
		s |= cFlagMask
	}
	return s
}

func (cpu *CPU) setStatusByte(s uint8) {
	cpu.N = s&nFlagMask != 0
	cpu.V = s&vFlagMask != 0
	cpu.B = s&bFlagMask != 0
	cpu.D = s&dFlagMask != 0
	cpu.I = s&iFlagMask != 0
	cpu.Z = s&zFlagMask != 0
	cpu.C = s&cFlagMask != 0
}

// StatusByte and SetStatusByte expose the flag register for save states and
// debug tooling.
func (cpu *CPU) StatusByte() uint8      { return cpu.statusByte() }
func (cpu *CPU) SetStatusByte(s uint8)  { cpu.setStatusByte(s) }
func (cpu *CPU) CyclesSincePowerOn() uint64 { return 0 } // superseded by bus cycle counter; kept for API symmetry with save-state payloads that pre-date this change

// fetchOperand resolves the effective address for instr's addressing mode,
// issuing exactly the bus accesses real 6502 hardware would issue —
// including the dummy reads that indexed and read-modify-write addressing
// incur. It returns the effective address (unused for Implied/Accumulator),
// whether an index crossed a page boundary, and the count of bus accesses
// already performed (beyond the opcode fetch, which the caller counted).
func (cpu *CPU) fetchOperand(instr *instruction, opcode uint8) (addr uint16, pageCrossed bool, extra int) {
	switch instr.mode {
	case Implied, Accumulator:
		cpu.read(cpu.PC) // dummy read of next byte; PC not advanced
		return 0, false, 1

	case Immediate:
		addr = cpu.PC
		cpu.PC++
		return addr, false, 0

	case ZeroPage:
		addr = uint16(cpu.read(cpu.PC))
		cpu.PC++
		return addr, false, 1

	case ZeroPageX:
		base := cpu.read(cpu.PC)
		cpu.PC++
		cpu.read(uint16(base)) // dummy read before X is added
		return uint16(base + cpu.X), false, 2

	case ZeroPageY:
		base := cpu.read(cpu.PC)
		cpu.PC++
		cpu.read(uint16(base))
		return uint16(base + cpu.Y), false, 2

	case Relative:
		offset := int8(cpu.read(cpu.PC))
		cpu.PC++
		target := uint16(int32(cpu.PC) + int32(offset))
		return target, (cpu.PC & 0xFF00) != (target & 0xFF00), 1

	case Absolute:
		lo := uint16(cpu.read(cpu.PC))
		hi := uint16(cpu.read(cpu.PC + 1))
		cpu.PC += 2
		return (hi << 8) | lo, false, 2

	case AbsoluteX:
		return cpu.absoluteIndexed(instr, cpu.X)

	case AbsoluteY:
		return cpu.absoluteIndexed(instr, cpu.Y)

	case Indirect:
		ptrLo := uint16(cpu.read(cpu.PC))
		ptrHi := uint16(cpu.read(cpu.PC + 1))
		cpu.PC += 2
		ptr := (ptrHi << 8) | ptrLo
		lo := uint16(cpu.read(ptr))
		// The infamous page-wrap bug: if the pointer's low byte is $FF the
		// high byte is fetched from the start of the *same* page, not the
		// next one.
		var hiAddr uint16
		if ptr&0x00FF == 0x00FF {
			hiAddr = ptr & 0xFF00
		} else {
			hiAddr = ptr + 1
		}
		hi := uint16(cpu.read(hiAddr))
		return (hi << 8) | lo, false, 4

	case IndexedIndirect:
		base := cpu.read(cpu.PC)
		cpu.PC++
		cpu.read(uint16(base)) // dummy read before X is added
		ptr := base + cpu.X
		lo := uint16(cpu.read(uint16(ptr)))
		hi := uint16(cpu.read(uint16(ptr + 1)))
		return (hi << 8) | lo, false, 4

	case IndirectIndexed:
		ptr := uint16(cpu.read(cpu.PC))
		cpu.PC++
		lo := uint16(cpu.read(ptr))
		hi := uint16(cpu.read((ptr + 1) & 0x00FF))
		base := (hi << 8) | lo
		addr = base + uint16(cpu.Y)
		pageCrossed = (base & 0xFF00) != (addr & 0xFF00)
		extra = 3
		if pageCrossed || instr.isWrite || instr.isRMW {
			cpu.read((base & 0xFF00) | (addr & 0x00FF)) // dummy read at wrong page
			extra++
		}
		return addr, pageCrossed, extra

	default:
		return 0, false, 0
	}
}

func (cpu *CPU) absoluteIndexed(instr *instruction, index uint8) (uint16, bool, int) {
	lo := uint16(cpu.read(cpu.PC))
	hi := uint16(cpu.read(cpu.PC + 1))
	cpu.PC += 2
	base := (hi << 8) | lo
	addr := base + uint16(index)
	pageCrossed := (base & 0xFF00) != (addr & 0xFF00)
	extra := 2
	if pageCrossed || instr.isWrite || instr.isRMW {
		wrong := (base & 0xFF00) | (addr & 0x00FF)
		cpu.read(wrong)
		extra++
	}
	return addr, pageCrossed, extra
}
