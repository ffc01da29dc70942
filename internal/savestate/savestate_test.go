package savestate

import "testing"

func samplePayload() Payload {
	return Payload{
		CPU:        CPUState{A: 0x12, X: 0x34, Y: 0x56, SP: 0xFD, PC: 0x8000, Status: 0x24},
		PPU:        []byte{1, 2, 3, 4, 5},
		APU:        []byte{6, 7, 8},
		Cartridge:  []byte{9, 9, 9},
		MapperSave: []byte{},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	payload := samplePayload()
	data, err := Save(0xDEADBEEF, "game.nes", 120, 1700000000, payload)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, frameCount, timestamp, err := Load(data, 0xDEADBEEF)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if frameCount != 120 {
		t.Fatalf("frameCount = %d, want 120", frameCount)
	}
	if timestamp != 1700000000 {
		t.Fatalf("timestamp = %d, want 1700000000", timestamp)
	}
	if got.CPU != payload.CPU {
		t.Fatalf("CPU state = %+v, want %+v", got.CPU, payload.CPU)
	}
	if string(got.PPU) != string(payload.PPU) || string(got.APU) != string(payload.APU) {
		t.Fatalf("PPU/APU blobs did not round-trip")
	}
}

func TestLoadRejectsMismatchedROM(t *testing.T) {
	data, err := Save(0x11111111, "a.nes", 1, 0, samplePayload())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, _, _, err := Load(data, 0x22222222); err == nil {
		t.Fatalf("Load accepted a save state whose ROM CRC32 does not match")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, _, _, err := Load([]byte("not a save state"), 0); err == nil {
		t.Fatalf("Load accepted garbage input")
	}
}
