package cartridge

import "gones/internal/memory"

// mapper071 is Camerica/Codemasters: 16KB switchable bank at $8000, fixed
// last bank at $C000, CHR is always RAM. A handful of early boards (Fire
// Hawk) also use $9000-$9FFF to select single-screen mirroring; most
// Camerica games are fixed-mirroring and ignore it, which this falls back
// to by simply not exposing a mirroring register unless written.
type mapper071 struct {
	base
	bank       uint8
	prgBanks16k uint8
	usesMirrorSelect bool
}

func newMapper071(b base) *mapper071 {
	return &mapper071{base: b, prgBanks16k: uint8(len(b.prgROM) / prgBankSize)}
}

func (m *mapper071) Reset() { m.bank = 0 }

func (m *mapper071) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x8000 && address < 0xC000:
		idx := int(m.bank)*prgBankSize + int(address-0x8000)
		if idx < len(m.prgROM) {
			return m.prgROM[idx]
		}
		return 0
	case address >= 0xC000:
		idx := int(m.prgBanks16k-1)*prgBankSize + int(address-0xC000)
		if idx < len(m.prgROM) {
			return m.prgROM[idx]
		}
		return 0
	default:
		return 0
	}
}

func (m *mapper071) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x9000 && address < 0xA000:
		m.usesMirrorSelect = true
		if value&0x10 != 0 {
			m.mirror = memory.SingleScreen1
		} else {
			m.mirror = memory.SingleScreen0
		}
	case address >= 0xC000:
		m.bank = value
	}
}

func (m *mapper071) ReadCHR(address uint16) uint8     { return m.readCHR(address) }
func (m *mapper071) WriteCHR(address uint16, v uint8) { m.writeCHR(address, v) }
