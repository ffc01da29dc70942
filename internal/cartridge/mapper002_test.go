package cartridge

import "testing"

func TestUxROMBankSwitchAndFixedLastBank(t *testing.T) {
	m := newMapper002(base{prgROM: make([]uint8, 4*prgBankSize)})
	m.prgROM[0*prgBankSize] = 0x11
	m.prgROM[1*prgBankSize] = 0x22
	m.prgROM[3*prgBankSize] = 0x33 // last bank, always mapped at $C000

	m.WritePRG(0x8000, 1)
	if got := m.ReadPRG(0x8000); got != 0x22 {
		t.Fatalf("$8000 after switching to bank 1 = $%02X, want $22", got)
	}
	if got := m.ReadPRG(0xC000); got != 0x33 {
		t.Fatalf("$C000 = $%02X, want $33 (last bank always fixed)", got)
	}

	m.WritePRG(0x8000, 0)
	if got := m.ReadPRG(0x8000); got != 0x11 {
		t.Fatalf("$8000 after switching to bank 0 = $%02X, want $11", got)
	}
}
