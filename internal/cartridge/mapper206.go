package cartridge

// mapper206 is Namcot 108 (DxROM): the mapper MMC3 was derived from, with
// the same 8-register bank-select scheme but no IRQ counter and no
// mirroring control (mirroring is fixed from the header).
type mapper206 struct {
	base
	bankSelect uint8
	bankData   [8]uint8
	prgBanks8k uint8
	chrBanks1k uint16
}

func newMapper206(b base) *mapper206 {
	m := &mapper206{base: b, prgBanks8k: uint8(len(b.prgROM) / 0x2000)}
	m.chrBanks1k = uint16(len(b.chrROM) / 0x0400)
	if m.chrBanks1k == 0 {
		m.chrBanks1k = 1
	}
	return m
}

func (m *mapper206) Reset() { m.bankSelect, m.bankData = 0, [8]uint8{} }

func (m *mapper206) ReadPRG(address uint16) uint8 {
	if address < 0x8000 {
		return 0
	}
	window := (address - 0x8000) / 0x2000
	offset := (address - 0x8000) % 0x2000
	var bank uint8
	switch window {
	case 0:
		bank = m.bankData[6]
	case 1:
		bank = m.bankData[7]
	default:
		bank = m.prgBanks8k - uint8(4-window)
	}
	idx := int(bank%m.prgBanks8k)*0x2000 + int(offset)
	if idx < len(m.prgROM) {
		return m.prgROM[idx]
	}
	return 0
}

func (m *mapper206) WritePRG(address uint16, value uint8) {
	if address < 0x8000 {
		return
	}
	if address%2 == 0 {
		m.bankSelect = value & 0x07
	} else {
		m.bankData[m.bankSelect] = value
	}
}

func (m *mapper206) ReadCHR(address uint16) uint8 {
	idx := m.chrIndex(address)
	if idx < len(m.chrROM) {
		return m.chrROM[idx]
	}
	return 0
}

func (m *mapper206) WriteCHR(address uint16, value uint8) {
	if !m.chrRAM {
		return
	}
	idx := m.chrIndex(address)
	if idx < len(m.chrROM) {
		m.chrROM[idx] = value
	}
}

func (m *mapper206) chrIndex(address uint16) int {
	reg := address / 0x0400
	var bank1k uint16
	switch reg {
	case 0:
		bank1k = uint16(m.bankData[0]) &^ 1
	case 1:
		bank1k = uint16(m.bankData[0]) | 1
	case 2:
		bank1k = uint16(m.bankData[1]) &^ 1
	case 3:
		bank1k = uint16(m.bankData[1]) | 1
	case 4:
		bank1k = uint16(m.bankData[2])
	case 5:
		bank1k = uint16(m.bankData[3])
	case 6:
		bank1k = uint16(m.bankData[4])
	default:
		bank1k = uint16(m.bankData[5])
	}
	bank1k %= m.chrBanks1k
	return int(bank1k)*0x0400 + int(address%0x0400)
}
