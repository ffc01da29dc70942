package input

import "testing"

func TestControllerReadsButtonsInOrder(t *testing.T) {
	c := New()
	c.SetButtons([8]bool{true, false, false, true, false, false, false, true}) // A, Start, Right
	c.Write(1) // strobe high
	c.Write(0) // strobe low, latch snapshot

	want := []uint8{1, 0, 0, 1, 0, 0, 0, 1}
	for i, w := range want {
		if got := c.Read(); got != w {
			t.Fatalf("bit %d = %d, want %d", i, got, w)
		}
	}
}

func TestControllerExtendedReadReturnsOne(t *testing.T) {
	c := New()
	c.Write(1)
	c.Write(0)
	for i := 0; i < 8; i++ {
		c.Read()
	}
	for i := 0; i < 3; i++ {
		if got := c.Read(); got != 1 {
			t.Fatalf("extended read %d = %d, want 1 (pull-up resistor)", i, got)
		}
	}
}

func TestControllerStrobeHighAlwaysReturnsButtonA(t *testing.T) {
	c := New()
	c.SetButton(ButtonA, true)
	c.Write(1) // strobe stays high
	if got := c.Read(); got != 1 {
		t.Fatalf("read while strobe high = %d, want 1 (button A pressed)", got)
	}
	if got := c.Read(); got != 1 {
		t.Fatalf("second read while strobe high = %d, want 1 (does not advance)", got)
	}
}

func TestInputStateControllersAreIndependent(t *testing.T) {
	is := NewInputState()
	is.SetButtons1([8]bool{true, false, false, false, false, false, false, false})  // A
	is.SetButtons2([8]bool{false, true, false, false, false, false, false, false}) // B
	is.Write(0x4016, 1)
	is.Write(0x4016, 0)

	if got := is.Read(0x4016) & 0x01; got != 1 {
		t.Fatalf("controller 1 bit 0 = %d, want 1 (A pressed)", got)
	}
	if got := is.Read(0x4017) & 0x01; got != 0 {
		t.Fatalf("controller 2 bit 0 = %d, want 0 (A not pressed on pad 2)", got)
	}
}

func TestInputStateController2HasOpenBusBitSet(t *testing.T) {
	is := NewInputState()
	is.Write(0x4016, 1)
	is.Write(0x4016, 0)
	if got := is.Read(0x4017); got&0x40 == 0 {
		t.Fatalf("$4017 read = $%02X, want bit 6 set (open bus)", got)
	}
}
