package ppu

import (
	"testing"

	"gones/internal/cartridge"
)

// minimalNROM builds the smallest valid iNES image: one 16KB PRG bank, one
// 8KB CHR bank, horizontal mirroring, mapper 0.
func minimalNROM(t *testing.T) *cartridge.Cartridge {
	t.Helper()
	data := make([]byte, 16+16*1024+8*1024)
	copy(data, []byte{'N', 'E', 'S', 0x1A})
	data[4] = 1 // 1x16KB PRG
	data[5] = 1 // 1x8KB CHR
	cart, err := cartridge.Load(data)
	if err != nil {
		t.Fatalf("loading minimal NROM image: %v", err)
	}
	return cart
}

// TestOddFrameDotSkip reproduces the NTSC "skipped cycle" on odd frames
// with rendering enabled: the pre-render scanline's dot 340 is skipped, so
// two consecutive frames from reset emit 341*262 + (341*262 - 1) dots.
func TestOddFrameDotSkip(t *testing.T) {
	cart := minimalNROM(t)
	p := New(cart.Mapper(), RegionNTSC)
	p.WriteRegister(0x2001, 0x08) // enable background rendering

	dots := 0
	startFrame := p.FrameCount()
	for p.FrameCount() < startFrame+2 {
		p.Step()
		dots++
	}
	want := 341*262 + (341*262 - 1)
	if dots != want {
		t.Fatalf("two NTSC frames emitted %d dots, want %d", dots, want)
	}
}

// TestVBlankFlagSetAndCleared checks the PPUSTATUS VBlank bit goes high at
// the documented scanline/dot and is cleared by a PPUSTATUS read.
func TestVBlankFlagSetAndCleared(t *testing.T) {
	cart := minimalNROM(t)
	p := New(cart.Mapper(), RegionNTSC)

	for i := 0; i < (241*341 + 2); i++ {
		p.Step()
	}
	status := p.ReadRegister(0x2002)
	if status&0x80 == 0 {
		t.Fatalf("VBlank flag not set after entering scanline 241")
	}
	status2 := p.ReadRegister(0x2002)
	if status2&0x80 != 0 {
		t.Fatalf("VBlank flag still set after PPUSTATUS read cleared it")
	}
}

func TestPPUDATAReadBufferedExceptPalette(t *testing.T) {
	cart := minimalNROM(t)
	p := New(cart.Mapper(), RegionNTSC)

	p.vmem.WritePalette(0x3F00, 0x21)
	p.WriteRegister(0x2006, 0x3F) // high byte of $3F00 (palette)
	p.WriteRegister(0x2006, 0x00)
	v := p.ReadRegister(0x2007)
	if v != 0x21 {
		t.Fatalf("palette PPUDATA read returned $%02X (unbuffered), want $21", v)
	}
}
