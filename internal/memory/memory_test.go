package memory

import "testing"

func TestHorizontalMirroring(t *testing.T) {
	v := NewVideoMemory(Horizontal)
	v.WriteNametable(0x2000, 0xAA) // table 0
	v.WriteNametable(0x2800, 0xBB) // table 2, bank 1 (shared with table 3)

	if got := v.ReadNametable(0x2400); got != 0xAA {
		t.Fatalf("table 1 (horizontal) = $%02X, want $AA (mirrors table 0)", got)
	}
	if got := v.ReadNametable(0x2C00); got != 0xBB {
		t.Fatalf("table 3 (horizontal) = $%02X, want $BB (mirrors table 2)", got)
	}
}

func TestVerticalMirroring(t *testing.T) {
	v := NewVideoMemory(Vertical)
	v.WriteNametable(0x2000, 0xAA) // table 0
	v.WriteNametable(0x2400, 0xBB) // table 1

	if got := v.ReadNametable(0x2800); got != 0xAA {
		t.Fatalf("table 2 (vertical) = $%02X, want $AA (mirrors table 0)", got)
	}
	if got := v.ReadNametable(0x2C00); got != 0xBB {
		t.Fatalf("table 3 (vertical) = $%02X, want $BB (mirrors table 1)", got)
	}
}

func TestSingleScreenMirroring(t *testing.T) {
	v := NewVideoMemory(SingleScreen0)
	v.WriteNametable(0x2000, 0x11)
	for _, addr := range []uint16{0x2400, 0x2800, 0x2C00} {
		if got := v.ReadNametable(addr); got != 0x11 {
			t.Fatalf("single-screen-0 table at $%04X = $%02X, want $11", addr, got)
		}
	}

	v2 := NewVideoMemory(SingleScreen1)
	v2.WriteNametable(0x2400, 0x22)
	if got := v2.ReadNametable(0x2000); got != 0x22 {
		t.Fatalf("single-screen-1 table at $2000 = $%02X, want $22", got)
	}
}

func TestFourScreenDoesNotMirror(t *testing.T) {
	v := NewVideoMemory(FourScreen)
	v.WriteNametable(0x2000, 0x01)
	v.WriteNametable(0x2400, 0x02)
	v.WriteNametable(0x2800, 0x03)
	v.WriteNametable(0x2C00, 0x04)

	for addr, want := range map[uint16]uint8{0x2000: 1, 0x2400: 2, 0x2800: 3, 0x2C00: 4} {
		if got := v.ReadNametable(addr); got != want {
			t.Fatalf("four-screen table at $%04X = $%02X, want $%02X", addr, got, want)
		}
	}
}

func TestPaletteBackdropMirroring(t *testing.T) {
	v := NewVideoMemory(Horizontal)
	v.WritePalette(0x3F00, 0x0F)
	if got := v.ReadPalette(0x3F10); got != 0x0F {
		t.Fatalf("$3F10 = $%02X, want $0F (mirrors $3F00)", got)
	}
	v.WritePalette(0x3F14, 0x12)
	if got := v.ReadPalette(0x3F04); got != 0x12 {
		t.Fatalf("$3F04 = $%02X, want $12 (mirrored by $3F14)", got)
	}
}

func TestPaletteWriteMasksToSixBits(t *testing.T) {
	v := NewVideoMemory(Horizontal)
	v.WritePalette(0x3F01, 0xFF)
	if got := v.ReadPalette(0x3F01); got != 0x3F {
		t.Fatalf("palette byte = $%02X, want $3F (top two bits discarded)", got)
	}
}
