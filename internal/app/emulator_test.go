package app

import (
	"testing"

	"gones/internal/bus"
)

func minimalNROMData(fill byte) []byte {
	data := make([]byte, 16+16*1024+8*1024)
	copy(data, []byte{'N', 'E', 'S', 0x1A})
	data[4] = 1
	data[5] = 1
	data[16] = fill // perturb PRG ROM so distinct fill values get distinct CRC32s
	return data
}

func TestNewEmulatorLoadsROM(t *testing.T) {
	e, err := NewEmulator(minimalNROMData(0x00), "test.nes", bus.RegionNTSC)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	e.RunFrame()
	if e.FrameCount() != 1 {
		t.Fatalf("FrameCount = %d, want 1", e.FrameCount())
	}
}

func TestSaveStateRoundTripPreservesCPURegisters(t *testing.T) {
	e, err := NewEmulator(minimalNROMData(0x00), "test.nes", bus.RegionNTSC)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	e.RunFrame()
	e.bus.CPU.A, e.bus.CPU.X, e.bus.CPU.Y = 0x11, 0x22, 0x33

	data, err := e.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	e.bus.CPU.A, e.bus.CPU.X, e.bus.CPU.Y = 0, 0, 0
	if err := e.LoadState(data); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if e.bus.CPU.A != 0x11 || e.bus.CPU.X != 0x22 || e.bus.CPU.Y != 0x33 {
		t.Fatalf("CPU registers after LoadState = A=%02X X=%02X Y=%02X, want 11/22/33",
			e.bus.CPU.A, e.bus.CPU.X, e.bus.CPU.Y)
	}
}

func TestLoadStateRejectsWrongROM(t *testing.T) {
	e, err := NewEmulator(minimalNROMData(0xAA), "a.nes", bus.RegionNTSC)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	data, err := e.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	other, err := NewEmulator(minimalNROMData(0xBB), "b.nes", bus.RegionPAL)
	if err != nil {
		t.Fatalf("NewEmulator (other): %v", err)
	}
	if err := other.LoadState(data); err == nil {
		t.Fatalf("LoadState accepted a save state from a different ROM/region bus")
	}
}
