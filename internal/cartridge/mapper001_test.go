package cartridge

import (
	"testing"

	"gones/internal/memory"
)

// writeMMC1 drives the 5-bit serial shift register across five separate
// writes, one bit per write, low bit first, the way the real chip is loaded.
func writeMMC1(m *mapper001, addr uint16, value uint8) {
	for i := 0; i < 5; i++ {
		m.WritePRG(addr, (value>>i)&0x01)
	}
}

func newTestMapper001(prgBanks int) *mapper001 {
	return newMapper001(base{prgROM: make([]uint8, prgBanks*prgBankSize), chrROM: make([]uint8, 0x2000), chrRAM: true})
}

func TestMMC1ResetBitReinitializesControl(t *testing.T) {
	m := newTestMapper001(4)
	writeMMC1(m, 0x8000, 0x00) // control = 0 (one-screen mirroring, PRG mode 0): perturb state
	m.WritePRG(0x8000, 0x80)   // reset bit set
	if m.control != 0x0C {
		t.Fatalf("control after reset-bit write = $%02X, want $0C", m.control)
	}
	if m.shiftCount != 0 {
		t.Fatalf("shiftCount after reset-bit write = %d, want 0", m.shiftCount)
	}
}

func TestMMC1MirrorModeFollowsControlBits(t *testing.T) {
	m := newTestMapper001(4)
	writeMMC1(m, 0x8000, 0x02) // control bits 0-1 = 10 -> vertical
	if got := m.MirrorMode(); got != memory.Vertical {
		t.Fatalf("mirror mode = %v, want vertical", got)
	}
	writeMMC1(m, 0x8000, 0x03) // bits 0-1 = 11 -> horizontal
	if got := m.MirrorMode(); got != memory.Horizontal {
		t.Fatalf("mirror mode = %v, want horizontal", got)
	}
}

func TestMMC1PRGBankMode3FixesLastBank(t *testing.T) {
	m := newTestMapper001(4)
	m.prgROM[3*prgBankSize] = 0xAB // first byte of bank 3 (the last bank)
	// power-on control (0x0C) is already mode 3 (fix last bank at $C000,
	// switch $8000); select PRG bank 0 so $8000 reads bank 0.
	writeMMC1(m, 0xE000, 0x00)
	if got := m.ReadPRG(0xC000); got != 0xAB {
		t.Fatalf("$C000 = $%02X, want $AB (last bank fixed)", got)
	}
}
