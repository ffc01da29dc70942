package cartridge

import "testing"

// risingEdge simulates the PPU settling A12 low for at least 8 dots (the
// filter window) before bringing it high once, the same shape real
// background/sprite pattern-table fetches produce once per scanline.
func risingEdge(m *mapper004) {
	for i := 0; i < 10; i++ {
		m.NotifyPPUAddressBus(0x0000) // A12 low
	}
	m.NotifyPPUAddressBus(0x1000) // A12 high
}

func TestMMC3IRQCounterClocksOnFilteredRisingEdge(t *testing.T) {
	m := newMapper004(base{prgROM: make([]uint8, 0x4000), chrROM: make([]uint8, 0x2000)})
	m.WritePRG(0xC000, 2) // IRQ latch = 2
	m.WritePRG(0xC001, 0) // force reload on next clock
	m.WritePRG(0xE001, 0) // IRQ enable

	risingEdge(m) // reload: counter = latch (2)
	if m.IRQPending() {
		t.Fatalf("IRQ pending after first reload edge, counter should be 2")
	}
	risingEdge(m) // counter: 2 -> 1
	if m.IRQPending() {
		t.Fatalf("IRQ pending with counter at 1")
	}
	risingEdge(m) // counter: 1 -> 0, enabled -> pending
	if !m.IRQPending() {
		t.Fatalf("IRQ not pending after counter reached 0 while enabled")
	}

	m.IRQClear()
	if m.IRQPending() {
		t.Fatalf("IRQClear did not clear the pending IRQ")
	}
}

// TestMMC3IRQFilterIgnoresBriefLowPulse checks the 8-cycle low-time gate:
// an A12 rising edge immediately following only a brief low pulse (as the
// PPU's own sprite-fetch phase produces) must not clock the counter.
func TestMMC3IRQFilterIgnoresBriefLowPulse(t *testing.T) {
	m := newMapper004(base{prgROM: make([]uint8, 0x4000), chrROM: make([]uint8, 0x2000)})
	m.WritePRG(0xC000, 1)
	m.WritePRG(0xC001, 0)
	m.WritePRG(0xE001, 0)

	risingEdge(m) // legitimate reload so counter starts at 1, not 0

	// Only 2 low cycles before the next rising edge: must not clock.
	m.NotifyPPUAddressBus(0x0000)
	m.NotifyPPUAddressBus(0x0000)
	m.NotifyPPUAddressBus(0x1000)
	if m.IRQPending() {
		t.Fatalf("IRQ fired on a rising edge preceded by only a brief low pulse")
	}
}
