package cpu

// initUndocumented wires up the stable undocumented opcodes that real
// cartridges (and test ROMs such as nestest and the 6502_65C02_functional
// suite family) rely on. Unstable/magic-constant opcodes beyond XAA (SHA,
// TAS, LAS, SHX, SHY) are intentionally left unmapped: no commercial NES
// game depends on their exact behavior and their outputs vary across
// physical chip revisions.
func (cpu *CPU) initUndocumented() {
	// LAX: load A and X from memory in one shot.
	lax := func(c *CPU, addr uint16, _ bool) uint8 {
		v := c.read(addr)
		c.A, c.X = v, v
		c.setZN(v)
		return 0
	}
	cpu.def(0xA7, "LAX", ZeroPage, 3, false, false, lax)
	cpu.def(0xB7, "LAX", ZeroPageY, 4, false, false, lax)
	cpu.def(0xAF, "LAX", Absolute, 4, false, false, lax)
	cpu.def(0xBF, "LAX", AbsoluteY, 4, false, false, lax)
	cpu.def(0xA3, "LAX", IndexedIndirect, 6, false, false, lax)
	cpu.def(0xB3, "LAX", IndirectIndexed, 5, false, false, lax)

	// SAX: store A&X, flags untouched.
	sax := func(c *CPU, addr uint16, _ bool) uint8 { c.write(addr, c.A&c.X); return 0 }
	cpu.def(0x87, "SAX", ZeroPage, 3, true, false, sax)
	cpu.def(0x97, "SAX", ZeroPageY, 4, true, false, sax)
	cpu.def(0x8F, "SAX", Absolute, 4, true, false, sax)
	cpu.def(0x83, "SAX", IndexedIndirect, 6, true, false, sax)

	// DCP: DEC then CMP.
	dcp := func(c *CPU, addr uint16, _ bool) uint8 {
		old := c.read(addr)
		new := old - 1
		c.write(addr, old)
		c.write(addr, new)
		c.C = c.A >= new
		c.setZN(c.A - new)
		return 0
	}
	cpu.def(0xC7, "DCP", ZeroPage, 5, false, true, dcp)
	cpu.def(0xD7, "DCP", ZeroPageX, 6, false, true, dcp)
	cpu.def(0xCF, "DCP", Absolute, 6, false, true, dcp)
	cpu.def(0xDF, "DCP", AbsoluteX, 7, false, true, dcp)
	cpu.def(0xDB, "DCP", AbsoluteY, 7, false, true, dcp)
	cpu.def(0xC3, "DCP", IndexedIndirect, 8, false, true, dcp)
	cpu.def(0xD3, "DCP", IndirectIndexed, 8, false, true, dcp)

	// ISB (a.k.a. ISC): INC then SBC.
	isb := func(c *CPU, addr uint16, _ bool) uint8 {
		old := c.read(addr)
		new := old + 1
		c.write(addr, old)
		c.write(addr, new)
		c.adcValue(^new)
		return 0
	}
	cpu.def(0xE7, "ISB", ZeroPage, 5, false, true, isb)
	cpu.def(0xF7, "ISB", ZeroPageX, 6, false, true, isb)
	cpu.def(0xEF, "ISB", Absolute, 6, false, true, isb)
	cpu.def(0xFF, "ISB", AbsoluteX, 7, false, true, isb)
	cpu.def(0xFB, "ISB", AbsoluteY, 7, false, true, isb)
	cpu.def(0xE3, "ISB", IndexedIndirect, 8, false, true, isb)
	cpu.def(0xF3, "ISB", IndirectIndexed, 8, false, true, isb)

	// SLO: ASL then ORA.
	slo := func(c *CPU, addr uint16, _ bool) uint8 {
		old := c.read(addr)
		new := aslOp(c, old)
		c.write(addr, old)
		c.write(addr, new)
		c.A |= new
		c.setZN(c.A)
		return 0
	}
	cpu.def(0x07, "SLO", ZeroPage, 5, false, true, slo)
	cpu.def(0x17, "SLO", ZeroPageX, 6, false, true, slo)
	cpu.def(0x0F, "SLO", Absolute, 6, false, true, slo)
	cpu.def(0x1F, "SLO", AbsoluteX, 7, false, true, slo)
	cpu.def(0x1B, "SLO", AbsoluteY, 7, false, true, slo)
	cpu.def(0x03, "SLO", IndexedIndirect, 8, false, true, slo)
	cpu.def(0x13, "SLO", IndirectIndexed, 8, false, true, slo)

	// RLA: ROL then AND.
	rla := func(c *CPU, addr uint16, _ bool) uint8 {
		old := c.read(addr)
		new := rolOp(c, old)
		c.write(addr, old)
		c.write(addr, new)
		c.A &= new
		c.setZN(c.A)
		return 0
	}
	cpu.def(0x27, "RLA", ZeroPage, 5, false, true, rla)
	cpu.def(0x37, "RLA", ZeroPageX, 6, false, true, rla)
	cpu.def(0x2F, "RLA", Absolute, 6, false, true, rla)
	cpu.def(0x3F, "RLA", AbsoluteX, 7, false, true, rla)
	cpu.def(0x3B, "RLA", AbsoluteY, 7, false, true, rla)
	cpu.def(0x23, "RLA", IndexedIndirect, 8, false, true, rla)
	cpu.def(0x33, "RLA", IndirectIndexed, 8, false, true, rla)

	// SRE: LSR then EOR.
	sre := func(c *CPU, addr uint16, _ bool) uint8 {
		old := c.read(addr)
		new := lsrOp(c, old)
		c.write(addr, old)
		c.write(addr, new)
		c.A ^= new
		c.setZN(c.A)
		return 0
	}
	cpu.def(0x47, "SRE", ZeroPage, 5, false, true, sre)
	cpu.def(0x57, "SRE", ZeroPageX, 6, false, true, sre)
	cpu.def(0x4F, "SRE", Absolute, 6, false, true, sre)
	cpu.def(0x5F, "SRE", AbsoluteX, 7, false, true, sre)
	cpu.def(0x5B, "SRE", AbsoluteY, 7, false, true, sre)
	cpu.def(0x43, "SRE", IndexedIndirect, 8, false, true, sre)
	cpu.def(0x53, "SRE", IndirectIndexed, 8, false, true, sre)

	// RRA: ROR then ADC.
	rra := func(c *CPU, addr uint16, _ bool) uint8 {
		old := c.read(addr)
		new := rorOp(c, old)
		c.write(addr, old)
		c.write(addr, new)
		c.adcValue(new)
		return 0
	}
	cpu.def(0x67, "RRA", ZeroPage, 5, false, true, rra)
	cpu.def(0x77, "RRA", ZeroPageX, 6, false, true, rra)
	cpu.def(0x6F, "RRA", Absolute, 6, false, true, rra)
	cpu.def(0x7F, "RRA", AbsoluteX, 7, false, true, rra)
	cpu.def(0x7B, "RRA", AbsoluteY, 7, false, true, rra)
	cpu.def(0x63, "RRA", IndexedIndirect, 8, false, true, rra)
	cpu.def(0x73, "RRA", IndirectIndexed, 8, false, true, rra)

	// ANC: AND immediate, then copy N into C (used by some copy-protection
	// checks to test for an NMOS 6502 vs a clone).
	anc := func(c *CPU, addr uint16, _ bool) uint8 {
		c.A &= c.read(addr)
		c.setZN(c.A)
		c.C = c.N
		return 0
	}
	cpu.def(0x0B, "ANC", Immediate, 2, false, false, anc)
	cpu.def(0x2B, "ANC", Immediate, 2, false, false, anc)

	// ALR: AND immediate then LSR A.
	cpu.def(0x4B, "ALR", Immediate, 2, false, false, func(c *CPU, addr uint16, _ bool) uint8 {
		c.A &= c.read(addr)
		c.A = lsrOp(c, c.A)
		c.setZN(c.A)
		return 0
	})

	// ARR: AND immediate then ROR A, with C/V derived from the result's
	// top two bits (the textbook documented quirk of this opcode).
	cpu.def(0x6B, "ARR", Immediate, 2, false, false, func(c *CPU, addr uint16, _ bool) uint8 {
		c.A &= c.read(addr)
		carryIn := uint8(0)
		if c.C {
			carryIn = 0x80
		}
		c.A = (c.A >> 1) | carryIn
		c.setZN(c.A)
		c.C = c.A&0x40 != 0
		c.V = (c.A&0x40 != 0) != (c.A&0x20 != 0)
		return 0
	})

	// AXS (a.k.a. SBX): X = (A&X) - imm, no borrow in, sets C like CMP.
	cpu.def(0xCB, "AXS", Immediate, 2, false, false, func(c *CPU, addr uint16, _ bool) uint8 {
		v := c.read(addr)
		t := c.A & c.X
		c.C = t >= v
		c.X = t - v
		c.setZN(c.X)
		return 0
	})

	// XAA ($8B): famously unstable on real silicon; emulated here per the
	// common A = (A | magic) & X & imm approximation with magic = $EE,
	// which matches the behavior most NES-on-NMOS-6502 software expects.
	cpu.def(0x8B, "XAA", Immediate, 2, false, false, func(c *CPU, addr uint16, _ bool) uint8 {
		c.A = (c.A | 0xEE) & c.X & c.read(addr)
		c.setZN(c.A)
		return 0
	})

	// Undocumented NOPs: many addressing modes, all discard their operand.
	nop := func(c *CPU, addr uint16, _ bool) uint8 { return 0 }
	nopRead := func(c *CPU, addr uint16, _ bool) uint8 { c.read(addr); return 0 }
	for _, op := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		cpu.def(op, "NOP", Implied, 2, false, false, nop)
	}
	for _, op := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		cpu.def(op, "NOP", Immediate, 2, false, false, nopRead)
	}
	for _, op := range []uint8{0x04, 0x44, 0x64} {
		cpu.def(op, "NOP", ZeroPage, 3, false, false, nopRead)
	}
	for _, op := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		cpu.def(op, "NOP", ZeroPageX, 4, false, false, nopRead)
	}
	cpu.def(0x0C, "NOP", Absolute, 4, false, false, nopRead)
	for _, op := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		cpu.def(op, "NOP", AbsoluteX, 4, false, false, nopRead)
	}
}
