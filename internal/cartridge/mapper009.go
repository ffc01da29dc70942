package cartridge

// mapper009 is MMC2 (Punch-Out!!): two switchable 4KB CHR banks per side,
// each with a "latch" pair (selected by $FD/$FE sentinel tile fetches) used
// to flicker Mike Tyson's face between two tile sets mid-scanline. mapper010
// (MMC4) repeats the same latch logic with a 16KB PRG swap window instead of 8KB.
type mapper009 struct {
	base

	prgBank8k uint8

	chrBank0FD, chrBank0FE uint8
	chrBank1FD, chrBank1FE uint8
	latch0, latch1         bool // false selects FD set, true selects FE set

	prgBanks8k uint8
}

func newMapper009(b base) *mapper009 {
	return &mapper009{base: b, prgBanks8k: uint8(len(b.prgROM) / 0x2000)}
}

func (m *mapper009) Reset() {
	m.prgBank8k = 0
	m.latch0, m.latch1 = false, false
}

func (m *mapper009) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		return m.readSRAM(address)
	case address >= 0x8000 && address < 0xA000:
		idx := int(m.prgBank8k)*0x2000 + int(address-0x8000)
		if idx < len(m.prgROM) {
			return m.prgROM[idx]
		}
		return 0
	case address >= 0xA000:
		// last three 8KB banks are fixed
		bankFromEnd := int(m.prgBanks8k) - int((0xFFFF-address)/0x2000) - 1
		offset := int(address-0xA000) % 0x2000
		idx := bankFromEnd*0x2000 + offset
		if idx >= 0 && idx < len(m.prgROM) {
			return m.prgROM[idx]
		}
		return 0
	default:
		return 0
	}
}

func (m *mapper009) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		m.writeSRAM(address, value)
	case address >= 0xA000 && address < 0xB000:
		m.prgBank8k = value & 0x0F
	case address >= 0xB000 && address < 0xC000:
		m.chrBank0FD = value & 0x1F
	case address >= 0xC000 && address < 0xD000:
		m.chrBank0FE = value & 0x1F
	case address >= 0xD000 && address < 0xE000:
		m.chrBank1FD = value & 0x1F
	case address >= 0xE000 && address < 0xF000:
		m.chrBank1FE = value & 0x1F
	case address >= 0xF000:
		m.mirror = horizontalOrVertical(value)
	}
}

func (m *mapper009) ReadCHR(address uint16) uint8 {
	idx := m.chrIndex(address)
	if idx < len(m.chrROM) {
		v := m.chrROM[idx]
		m.latchOn(address)
		return v
	}
	m.latchOn(address)
	return 0
}

func (m *mapper009) WriteCHR(address uint16, value uint8) {
	if !m.chrRAM {
		return
	}
	idx := m.chrIndex(address)
	if idx < len(m.chrROM) {
		m.chrROM[idx] = value
	}
}

func (m *mapper009) chrIndex(address uint16) int {
	if address < 0x1000 {
		bank := m.chrBank0FD
		if m.latch0 {
			bank = m.chrBank0FE
		}
		return int(bank)*0x1000 + int(address)
	}
	bank := m.chrBank1FD
	if m.latch1 {
		bank = m.chrBank1FE
	}
	return int(bank)*0x1000 + int(address-0x1000)
}

// latchOn updates the FD/FE latches when the tile index $FD or $FE is
// fetched at the sentinel addresses MMC2/MMC4 watch.
func (m *mapper009) latchOn(address uint16) {
	switch address {
	case 0x0FD8:
		m.latch0 = false
	case 0x0FE8:
		m.latch0 = true
	case 0x1FD8, 0x1FD9, 0x1FDA, 0x1FDB, 0x1FDC, 0x1FDD, 0x1FDE, 0x1FDF:
		m.latch1 = false
	case 0x1FE8, 0x1FE9, 0x1FEA, 0x1FEB, 0x1FEC, 0x1FED, 0x1FEE, 0x1FEF:
		m.latch1 = true
	}
}
