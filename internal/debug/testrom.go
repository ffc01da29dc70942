// Package debug provides developer tooling that observes the bus passively:
// test-ROM status sniffing. Nothing here
// changes emulation behavior; it only reads state a host or test can use to
// assert pass/fail without a GUI.
package debug

import "github.com/golang/glog"

const (
	statusAddr    = 0x6000
	messageAddr   = 0x6004
	magicAddr0    = 0x6001
	magic0        = 0xDE
	magic1        = 0xB0
	magic2        = 0x61

	statusRunning = 0x80
	statusReset   = 0x81
)

// TestROMWatcher implements the blargg-style convention most NES test ROMs
// use: once the three magic bytes appear at $6001-$6003, $6000 holds a
// status code (<0x80 = result code, 0x80/0x81 reserved for "still running")
// and $6004 holds a NUL-terminated ASCII message.
type TestROMWatcher struct {
	armed    bool
	done     bool
	result   uint8
	message  string
}

// NewTestROMWatcher returns a watcher; call Observe after every CPU memory
// access (read or write) targeting $6000-$7FFF.
func NewTestROMWatcher() *TestROMWatcher {
	return &TestROMWatcher{}
}

// Observe checks the signature and status area once. peek returns the
// cartridge contents at an address in $6000-$6FFF (mapper-backed PRG RAM,
// typically) without side effects.
func (w *TestROMWatcher) Observe(peek func(addr uint16) uint8) {
	if w.done {
		return
	}
	if peek(magicAddr0) != magic0 || peek(magicAddr0+1) != magic1 || peek(magicAddr0+2) != magic2 {
		return
	}
	w.armed = true
	status := peek(statusAddr)
	if status == statusRunning || status == statusReset {
		return
	}
	w.result = status
	w.message = readCString(peek, messageAddr)
	w.done = true
	glog.Infof("debug: test ROM finished, result=%d message=%q", w.result, w.message)
}

func readCString(peek func(addr uint16) uint8, start uint16) string {
	var buf []byte
	for addr := start; addr < start+0x1000; addr++ {
		b := peek(addr)
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

// Done reports whether a terminal status code has been observed.
func (w *TestROMWatcher) Done() bool { return w.done }

// Result returns the status byte once Done is true (0 conventionally means
// pass).
func (w *TestROMWatcher) Result() uint8 { return w.result }

// Message returns the ASCII status string once Done is true.
func (w *TestROMWatcher) Message() string { return w.message }

// Passed reports whether the test ROM signaled success (status code 0).
func (w *TestROMWatcher) Passed() bool { return w.done && w.result == 0 }
