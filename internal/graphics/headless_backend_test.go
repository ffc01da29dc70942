package graphics

import "testing"

func TestHeadlessBackendLifecycle(t *testing.T) {
	b := NewHeadlessBackend()
	if !b.IsHeadless() {
		t.Fatalf("IsHeadless() = false, want true")
	}
	if err := b.Initialize(Config{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := b.Initialize(Config{}); err == nil {
		t.Fatalf("Initialize a second time should fail")
	}

	win, err := b.CreateWindow("test", 256, 240)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	if w, h := win.GetSize(); w != 256 || h != 240 {
		t.Fatalf("GetSize = %d,%d want 256,240", w, h)
	}
	if win.ShouldClose() {
		t.Fatalf("ShouldClose = true immediately after creation")
	}
	if win.PollEvents() != nil {
		t.Fatalf("PollEvents on a headless window should return nil")
	}

	var frame [256 * 240]uint32
	// frameCount 1-2: below the debug-dump thresholds (31/61/120), so this
	// must not touch the filesystem.
	if err := win.RenderFrame(frame); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if err := win.RenderFrame(frame); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	if err := win.Cleanup(); err != nil {
		t.Fatalf("window Cleanup: %v", err)
	}
	if !win.ShouldClose() {
		t.Fatalf("ShouldClose = false after Cleanup")
	}
	if err := b.Cleanup(); err != nil {
		t.Fatalf("backend Cleanup: %v", err)
	}
}

func TestCreateBackendDispatchesByType(t *testing.T) {
	b, err := CreateBackend(BackendHeadless)
	if err != nil {
		t.Fatalf("CreateBackend(headless): %v", err)
	}
	if !b.IsHeadless() {
		t.Fatalf("headless backend reports IsHeadless() = false")
	}
}
