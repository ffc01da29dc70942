package debug

import "testing"

func fakeMemory() ([]uint8, func(addr uint16) uint8) {
	mem := make([]uint8, 0x8000)
	return mem, func(addr uint16) uint8 { return mem[addr] }
}

func TestTestROMWatcherIgnoresUnarmedRegion(t *testing.T) {
	_, peek := fakeMemory()
	w := NewTestROMWatcher()
	w.Observe(peek)
	if w.Done() {
		t.Fatalf("watcher reports done before the magic bytes ever appeared")
	}
}

func TestTestROMWatcherWaitsWhileRunning(t *testing.T) {
	mem, peek := fakeMemory()
	mem[0x6001], mem[0x6002], mem[0x6003] = 0xDE, 0xB0, 0x61
	mem[0x6000] = 0x80 // still running

	w := NewTestROMWatcher()
	w.Observe(peek)
	if w.Done() {
		t.Fatalf("watcher reports done while status byte says still running")
	}
}

func TestTestROMWatcherCapturesResultAndMessage(t *testing.T) {
	mem, peek := fakeMemory()
	mem[0x6001], mem[0x6002], mem[0x6003] = 0xDE, 0xB0, 0x61
	mem[0x6000] = 0x00 // pass
	copy(mem[0x6004:], []byte("Passed\x00garbage"))

	w := NewTestROMWatcher()
	w.Observe(peek)
	if !w.Done() {
		t.Fatalf("watcher did not finish on a terminal status code")
	}
	if !w.Passed() {
		t.Fatalf("Passed() = false, want true for result code 0")
	}
	if w.Message() != "Passed" {
		t.Fatalf("Message() = %q, want %q", w.Message(), "Passed")
	}
}

func TestTestROMWatcherReportsFailureCode(t *testing.T) {
	mem, peek := fakeMemory()
	mem[0x6001], mem[0x6002], mem[0x6003] = 0xDE, 0xB0, 0x61
	mem[0x6000] = 3
	copy(mem[0x6004:], []byte("Failed #3\x00"))

	w := NewTestROMWatcher()
	w.Observe(peek)
	if w.Passed() {
		t.Fatalf("Passed() = true for a nonzero result code")
	}
	if w.Result() != 3 {
		t.Fatalf("Result() = %d, want 3", w.Result())
	}
}
