package cpu

// This file builds the 256-entry opcode table and implements the exec
// functions of the documented 6502 instruction set; the undocumented
// opcodes (LAX, SAX, DCP, ISB, SLO, RLA, SRE, RRA, ANC, ALR, ARR, AXS/SBX,
// and the $8B "XAA" magic-constant opcode) live in opcodes_undoc.go. exec
// returns extra cycles beyond instr.cycles; only branches return nonzero
// (1 when taken, 2 when taken across a page). Step adds the page-cross
// cycle of indexed reads itself.

func (cpu *CPU) def(opcode uint8, name string, mode AddressingMode, cycles uint8, isWrite, isRMW bool, exec func(cpu *CPU, addr uint16, pageCrossed bool) uint8) {
	cpu.instructions[opcode] = &instruction{name: name, mode: mode, cycles: cycles, isWrite: isWrite, isRMW: isRMW, exec: exec}
}

// operand reads the value an instruction operates on, honoring Accumulator
// mode (which never touches the bus).
func (cpu *CPU) operand(mode AddressingMode, addr uint16) uint8 {
	if mode == Accumulator {
		return cpu.A
	}
	return cpu.read(addr)
}

// storeback writes an RMW instruction's result back, honoring Accumulator
// mode. old is the value previously read; real hardware writes it back
// unchanged before writing the new value, except when the operand lives in
// the accumulator (no bus access at all).
func (cpu *CPU) storeback(mode AddressingMode, addr uint16, old, new uint8) {
	if mode == Accumulator {
		cpu.A = new
		return
	}
	cpu.write(addr, old)
	cpu.write(addr, new)
}

func (cpu *CPU) initInstructions() {
	// --- Load/store ---
	lda := func(cpu *CPU, addr uint16, _ bool) uint8 { cpu.A = cpu.read(addr); cpu.setZN(cpu.A); return 0 }
	ldx := func(cpu *CPU, addr uint16, _ bool) uint8 { cpu.X = cpu.read(addr); cpu.setZN(cpu.X); return 0 }
	ldy := func(cpu *CPU, addr uint16, _ bool) uint8 { cpu.Y = cpu.read(addr); cpu.setZN(cpu.Y); return 0 }
	sta := func(cpu *CPU, addr uint16, _ bool) uint8 { cpu.write(addr, cpu.A); return 0 }
	stx := func(cpu *CPU, addr uint16, _ bool) uint8 { cpu.write(addr, cpu.X); return 0 }
	sty := func(cpu *CPU, addr uint16, _ bool) uint8 { cpu.write(addr, cpu.Y); return 0 }

	cpu.def(0xA9, "LDA", Immediate, 2, false, false, lda)
	cpu.def(0xA5, "LDA", ZeroPage, 3, false, false, lda)
	cpu.def(0xB5, "LDA", ZeroPageX, 4, false, false, lda)
	cpu.def(0xAD, "LDA", Absolute, 4, false, false, lda)
	cpu.def(0xBD, "LDA", AbsoluteX, 4, false, false, lda)
	cpu.def(0xB9, "LDA", AbsoluteY, 4, false, false, lda)
	cpu.def(0xA1, "LDA", IndexedIndirect, 6, false, false, lda)
	cpu.def(0xB1, "LDA", IndirectIndexed, 5, false, false, lda)

	cpu.def(0xA2, "LDX", Immediate, 2, false, false, ldx)
	cpu.def(0xA6, "LDX", ZeroPage, 3, false, false, ldx)
	cpu.def(0xB6, "LDX", ZeroPageY, 4, false, false, ldx)
	cpu.def(0xAE, "LDX", Absolute, 4, false, false, ldx)
	cpu.def(0xBE, "LDX", AbsoluteY, 4, false, false, ldx)

	cpu.def(0xA0, "LDY", Immediate, 2, false, false, ldy)
	cpu.def(0xA4, "LDY", ZeroPage, 3, false, false, ldy)
	cpu.def(0xB4, "LDY", ZeroPageX, 4, false, false, ldy)
	cpu.def(0xAC, "LDY", Absolute, 4, false, false, ldy)
	cpu.def(0xBC, "LDY", AbsoluteX, 4, false, false, ldy)

	cpu.def(0x85, "STA", ZeroPage, 3, true, false, sta)
	cpu.def(0x95, "STA", ZeroPageX, 4, true, false, sta)
	cpu.def(0x8D, "STA", Absolute, 4, true, false, sta)
	cpu.def(0x9D, "STA", AbsoluteX, 5, true, false, sta)
	cpu.def(0x99, "STA", AbsoluteY, 5, true, false, sta)
	cpu.def(0x81, "STA", IndexedIndirect, 6, true, false, sta)
	cpu.def(0x91, "STA", IndirectIndexed, 6, true, false, sta)

	cpu.def(0x86, "STX", ZeroPage, 3, true, false, stx)
	cpu.def(0x96, "STX", ZeroPageY, 4, true, false, stx)
	cpu.def(0x8E, "STX", Absolute, 4, true, false, stx)

	cpu.def(0x84, "STY", ZeroPage, 3, true, false, sty)
	cpu.def(0x94, "STY", ZeroPageX, 4, true, false, sty)
	cpu.def(0x8C, "STY", Absolute, 4, true, false, sty)

	// --- Register transfers ---
	cpu.def(0xAA, "TAX", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.X = c.A; c.setZN(c.X); return 0 })
	cpu.def(0x8A, "TXA", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.A = c.X; c.setZN(c.A); return 0 })
	cpu.def(0xA8, "TAY", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.Y = c.A; c.setZN(c.Y); return 0 })
	cpu.def(0x98, "TYA", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.A = c.Y; c.setZN(c.A); return 0 })
	cpu.def(0xBA, "TSX", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.X = c.SP; c.setZN(c.X); return 0 })
	cpu.def(0x9A, "TXS", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.SP = c.X; return 0 })

	// --- Stack ---
	cpu.def(0x48, "PHA", Implied, 3, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.push(c.A); return 0 })
	cpu.def(0x08, "PHP", Implied, 3, false, false, func(c *CPU, _ uint16, _ bool) uint8 {
		c.push(c.statusByte() | bFlagMask | unusedMask)
		return 0
	})
	cpu.def(0x68, "PLA", Implied, 4, false, false, func(c *CPU, _ uint16, _ bool) uint8 {
		c.read(stackBase + uint16(c.SP)) // dummy read before SP increments
		c.A = c.pop()
		c.setZN(c.A)
		return 0
	})
	cpu.def(0x28, "PLP", Implied, 4, false, false, func(c *CPU, _ uint16, _ bool) uint8 {
		c.read(stackBase + uint16(c.SP))
		c.setStatusByte(c.pop())
		return 0
	})

	// --- Logical / arithmetic ---
	and := func(c *CPU, addr uint16, _ bool) uint8 { c.A &= c.read(addr); c.setZN(c.A); return 0 }
	ora := func(c *CPU, addr uint16, _ bool) uint8 { c.A |= c.read(addr); c.setZN(c.A); return 0 }
	eor := func(c *CPU, addr uint16, _ bool) uint8 { c.A ^= c.read(addr); c.setZN(c.A); return 0 }
	adc := func(c *CPU, addr uint16, _ bool) uint8 { c.adcValue(c.read(addr)); return 0 }
	sbc := func(c *CPU, addr uint16, _ bool) uint8 { c.adcValue(^c.read(addr)); return 0 }

	for _, e := range []struct {
		base                                                       uint8
		name                                                       string
		imm, zp, zpx, abs, absx, absy, indx, indy                  uint8
		fn                                                         func(c *CPU, addr uint16, p bool) uint8
	}{
		{name: "AND", imm: 0x29, zp: 0x25, zpx: 0x35, abs: 0x2D, absx: 0x3D, absy: 0x39, indx: 0x21, indy: 0x31, fn: and},
		{name: "ORA", imm: 0x09, zp: 0x05, zpx: 0x15, abs: 0x0D, absx: 0x1D, absy: 0x19, indx: 0x01, indy: 0x11, fn: ora},
		{name: "EOR", imm: 0x49, zp: 0x45, zpx: 0x55, abs: 0x4D, absx: 0x5D, absy: 0x59, indx: 0x41, indy: 0x51, fn: eor},
		{name: "ADC", imm: 0x69, zp: 0x65, zpx: 0x75, abs: 0x6D, absx: 0x7D, absy: 0x79, indx: 0x61, indy: 0x71, fn: adc},
		{name: "SBC", imm: 0xE9, zp: 0xE5, zpx: 0xF5, abs: 0xED, absx: 0xFD, absy: 0xF9, indx: 0xE1, indy: 0xF1, fn: sbc},
	} {
		cpu.def(e.imm, e.name, Immediate, 2, false, false, e.fn)
		cpu.def(e.zp, e.name, ZeroPage, 3, false, false, e.fn)
		cpu.def(e.zpx, e.name, ZeroPageX, 4, false, false, e.fn)
		cpu.def(e.abs, e.name, Absolute, 4, false, false, e.fn)
		cpu.def(e.absx, e.name, AbsoluteX, 4, false, false, e.fn)
		cpu.def(e.absy, e.name, AbsoluteY, 4, false, false, e.fn)
		cpu.def(e.indx, e.name, IndexedIndirect, 6, false, false, e.fn)
		cpu.def(e.indy, e.name, IndirectIndexed, 5, false, false, e.fn)
	}
	// SBC $EB is an undocumented duplicate of $E9.
	cpu.def(0xEB, "SBC", Immediate, 2, false, false, sbc)

	cmpReg := func(reg *uint8) func(c *CPU, addr uint16, _ bool) uint8 {
		return func(c *CPU, addr uint16, _ bool) uint8 {
			v := c.read(addr)
			r := *reg - v
			c.C = *reg >= v
			c.setZN(r)
			return 0
		}
	}
	cmpA := cmpReg(&cpu.A)
	cpu.def(0xC9, "CMP", Immediate, 2, false, false, cmpA)
	cpu.def(0xC5, "CMP", ZeroPage, 3, false, false, cmpA)
	cpu.def(0xD5, "CMP", ZeroPageX, 4, false, false, cmpA)
	cpu.def(0xCD, "CMP", Absolute, 4, false, false, cmpA)
	cpu.def(0xDD, "CMP", AbsoluteX, 4, false, false, cmpA)
	cpu.def(0xD9, "CMP", AbsoluteY, 4, false, false, cmpA)
	cpu.def(0xC1, "CMP", IndexedIndirect, 6, false, false, cmpA)
	cpu.def(0xD1, "CMP", IndirectIndexed, 5, false, false, cmpA)

	cpxFn := cmpReg(&cpu.X)
	cpu.def(0xE0, "CPX", Immediate, 2, false, false, cpxFn)
	cpu.def(0xE4, "CPX", ZeroPage, 3, false, false, cpxFn)
	cpu.def(0xEC, "CPX", Absolute, 4, false, false, cpxFn)

	cpyFn := cmpReg(&cpu.Y)
	cpu.def(0xC0, "CPY", Immediate, 2, false, false, cpyFn)
	cpu.def(0xC4, "CPY", ZeroPage, 3, false, false, cpyFn)
	cpu.def(0xCC, "CPY", Absolute, 4, false, false, cpyFn)

	bit := func(c *CPU, addr uint16, _ bool) uint8 {
		v := c.read(addr)
		c.Z = (c.A & v) == 0
		c.N = v&nFlagMask != 0
		c.V = v&vFlagMask != 0
		return 0
	}
	cpu.def(0x24, "BIT", ZeroPage, 3, false, false, bit)
	cpu.def(0x2C, "BIT", Absolute, 4, false, false, bit)

	// --- Increment/decrement (RMW in memory, direct for registers) ---
	incDec := func(delta int) func(c *CPU, addr uint16, _ bool) uint8 {
		return func(c *CPU, addr uint16, _ bool) uint8 {
			old := c.read(addr)
			new := old + uint8(delta)
			c.write(addr, old)
			c.write(addr, new)
			c.setZN(new)
			return 0
		}
	}
	inc, dec := incDec(1), incDec(-1)
	cpu.def(0xE6, "INC", ZeroPage, 5, false, true, inc)
	cpu.def(0xF6, "INC", ZeroPageX, 6, false, true, inc)
	cpu.def(0xEE, "INC", Absolute, 6, false, true, inc)
	cpu.def(0xFE, "INC", AbsoluteX, 7, false, true, inc)
	cpu.def(0xC6, "DEC", ZeroPage, 5, false, true, dec)
	cpu.def(0xD6, "DEC", ZeroPageX, 6, false, true, dec)
	cpu.def(0xCE, "DEC", Absolute, 6, false, true, dec)
	cpu.def(0xDE, "DEC", AbsoluteX, 7, false, true, dec)

	cpu.def(0xE8, "INX", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.X++; c.setZN(c.X); return 0 })
	cpu.def(0xCA, "DEX", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.X--; c.setZN(c.X); return 0 })
	cpu.def(0xC8, "INY", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.Y++; c.setZN(c.Y); return 0 })
	cpu.def(0x88, "DEY", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.Y--; c.setZN(c.Y); return 0 })

	// --- Shifts/rotates ---
	cpu.defShift(0x0A, "ASL", Accumulator, 2, aslOp)
	cpu.defShift(0x06, "ASL", ZeroPage, 5, aslOp)
	cpu.defShift(0x16, "ASL", ZeroPageX, 6, aslOp)
	cpu.defShift(0x0E, "ASL", Absolute, 6, aslOp)
	cpu.defShift(0x1E, "ASL", AbsoluteX, 7, aslOp)

	cpu.defShift(0x4A, "LSR", Accumulator, 2, lsrOp)
	cpu.defShift(0x46, "LSR", ZeroPage, 5, lsrOp)
	cpu.defShift(0x56, "LSR", ZeroPageX, 6, lsrOp)
	cpu.defShift(0x4E, "LSR", Absolute, 6, lsrOp)
	cpu.defShift(0x5E, "LSR", AbsoluteX, 7, lsrOp)

	cpu.defShift(0x2A, "ROL", Accumulator, 2, rolOp)
	cpu.defShift(0x26, "ROL", ZeroPage, 5, rolOp)
	cpu.defShift(0x36, "ROL", ZeroPageX, 6, rolOp)
	cpu.defShift(0x2E, "ROL", Absolute, 6, rolOp)
	cpu.defShift(0x3E, "ROL", AbsoluteX, 7, rolOp)

	cpu.defShift(0x6A, "ROR", Accumulator, 2, rorOp)
	cpu.defShift(0x66, "ROR", ZeroPage, 5, rorOp)
	cpu.defShift(0x76, "ROR", ZeroPageX, 6, rorOp)
	cpu.defShift(0x6E, "ROR", Absolute, 6, rorOp)
	cpu.defShift(0x7E, "ROR", AbsoluteX, 7, rorOp)

	// --- Jumps/calls ---
	cpu.def(0x4C, "JMP", Absolute, 3, false, false, func(c *CPU, addr uint16, _ bool) uint8 { c.PC = addr; return 0 })
	cpu.def(0x6C, "JMP", Indirect, 5, false, false, func(c *CPU, addr uint16, _ bool) uint8 { c.PC = addr; return 0 })
	cpu.def(0x20, "JSR", Absolute, 6, false, false, func(c *CPU, addr uint16, _ bool) uint8 {
		c.read(stackBase + uint16(c.SP)) // internal delay cycle before the push
		c.pushWord(c.PC - 1)
		c.PC = addr
		return 0
	})
	cpu.def(0x60, "RTS", Implied, 6, false, false, func(c *CPU, _ uint16, _ bool) uint8 {
		c.read(stackBase + uint16(c.SP))
		c.PC = c.popWord() + 1
		c.read(c.PC)
		return 0
	})
	cpu.def(0x40, "RTI", Implied, 6, false, false, func(c *CPU, _ uint16, _ bool) uint8 {
		c.read(stackBase + uint16(c.SP))
		c.setStatusByte(c.pop())
		c.PC = c.popWord()
		return 0
	})
	cpu.def(0x00, "BRK", Implied, 7, false, false, func(c *CPU, _ uint16, _ bool) uint8 {
		c.PC++ // skip the padding byte (BRK is 2 bytes); fetchOperand's Implied dummy read already read it
		c.pushWord(c.PC)
		c.push(c.statusByte() | bFlagMask | unusedMask)
		c.I = true
		lo := uint16(c.read(irqVector))
		hi := uint16(c.read(irqVector + 1))
		c.PC = (hi << 8) | lo
		return 0
	})

	// --- Branches ---
	branch := func(cond func(c *CPU) bool) func(c *CPU, addr uint16, pageCrossed bool) uint8 {
		return func(c *CPU, addr uint16, pageCrossed bool) uint8 {
			if !cond(c) {
				return 0
			}
			c.read(c.PC) // extra cycle for the taken branch
			extra := uint8(1)
			if pageCrossed {
				c.read((c.PC & 0xFF00) | (addr & 0x00FF))
				extra++
			}
			c.PC = addr
			return extra
		}
	}
	cpu.def(0x90, "BCC", Relative, 2, false, false, branch(func(c *CPU) bool { return !c.C }))
	cpu.def(0xB0, "BCS", Relative, 2, false, false, branch(func(c *CPU) bool { return c.C }))
	cpu.def(0xF0, "BEQ", Relative, 2, false, false, branch(func(c *CPU) bool { return c.Z }))
	cpu.def(0xD0, "BNE", Relative, 2, false, false, branch(func(c *CPU) bool { return !c.Z }))
	cpu.def(0x30, "BMI", Relative, 2, false, false, branch(func(c *CPU) bool { return c.N }))
	cpu.def(0x10, "BPL", Relative, 2, false, false, branch(func(c *CPU) bool { return !c.N }))
	cpu.def(0x50, "BVC", Relative, 2, false, false, branch(func(c *CPU) bool { return !c.V }))
	cpu.def(0x70, "BVS", Relative, 2, false, false, branch(func(c *CPU) bool { return c.V }))

	// --- Flag ops ---
	cpu.def(0x18, "CLC", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.C = false; return 0 })
	cpu.def(0x38, "SEC", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.C = true; return 0 })
	cpu.def(0x58, "CLI", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.I = false; return 0 })
	cpu.def(0x78, "SEI", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.I = true; return 0 })
	cpu.def(0xB8, "CLV", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.V = false; return 0 })
	cpu.def(0xD8, "CLD", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.D = false; return 0 })
	cpu.def(0xF8, "SED", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { c.D = true; return 0 })

	cpu.def(0xEA, "NOP", Implied, 2, false, false, func(c *CPU, _ uint16, _ bool) uint8 { return 0 })

	cpu.initUndocumented()
}

// aslOp/lsrOp/rolOp/rorOp implement the shift/rotate body given the old
// value; they return the new value and mutate flags via the closures in
// defShift.
func aslOp(c *CPU, v uint8) uint8 {
	c.C = v&0x80 != 0
	return v << 1
}
func lsrOp(c *CPU, v uint8) uint8 {
	c.C = v&0x01 != 0
	return v >> 1
}
func rolOp(c *CPU, v uint8) uint8 {
	carryIn := uint8(0)
	if c.C {
		carryIn = 1
	}
	c.C = v&0x80 != 0
	return (v << 1) | carryIn
}
func rorOp(c *CPU, v uint8) uint8 {
	carryIn := uint8(0)
	if c.C {
		carryIn = 0x80
	}
	c.C = v&0x01 != 0
	return (v >> 1) | carryIn
}

// defShift registers a shift/rotate opcode for the given addressing mode,
// handling the Accumulator-vs-memory RMW distinction once for all four ops.
func (cpu *CPU) defShift(opcode uint8, name string, mode AddressingMode, cycles uint8, op func(c *CPU, v uint8) uint8) {
	cpu.def(opcode, name, mode, cycles, false, mode != Accumulator, func(c *CPU, addr uint16, _ bool) uint8 {
		old := c.operand(mode, addr)
		new := op(c, old)
		c.storeback(mode, addr, old, new)
		c.setZN(new)
		return 0
	})
}

// adcValue implements ADC's binary-mode addition (the NES 6502 has no
// decimal mode; D is tracked for status-register fidelity only). SBC calls
// this with the operand's bitwise complement.
func (cpu *CPU) adcValue(v uint8) {
	carryIn := uint16(0)
	if cpu.C {
		carryIn = 1
	}
	sum := uint16(cpu.A) + uint16(v) + carryIn
	result := uint8(sum)
	cpu.V = (cpu.A^result)&(v^result)&0x80 != 0
	cpu.C = sum > 0xFF
	cpu.A = result
	cpu.setZN(cpu.A)
}
