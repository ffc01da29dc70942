package app

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"gones/internal/bus"
	"gones/internal/cartridge"
	"gones/internal/debug"
	"gones/internal/graphics"
	"gones/internal/savestate"
)

// Emulator wraps a Bus with the host-facing lifecycle (load ROM, run one
// frame, save/load state, expose frame buffer and audio samples) that
// cmd/gones and the graphics backends drive.
type Emulator struct {
	bus      *bus.Bus
	cart     *cartridge.Cartridge
	romName  string
	watcher  *debug.TestROMWatcher
	video    *graphics.VideoProcessor
	frameOut [256 * 240]uint32

	startedAt time.Time
	running   bool
}

// NewEmulator loads romData and constructs the bus for the given region.
func NewEmulator(romData []byte, romName string, region bus.Region) (*Emulator, error) {
	cart, err := cartridge.Load(romData)
	if err != nil {
		return nil, fmt.Errorf("app: loading ROM: %w", err)
	}
	b := bus.New(cart, region)
	return &Emulator{
		bus:     b,
		cart:    cart,
		romName: romName,
		watcher: debug.NewTestROMWatcher(),
		video:   graphics.NewVideoProcessor(1.0, 1.0, 1.0),
	}, nil
}

// SetVideoSettings updates the host-side brightness/contrast/saturation
// adjustments applied on top of the PPU's own PPUMASK color transforms.
func (e *Emulator) SetVideoSettings(brightness, contrast, saturation float32) {
	e.video.SetBrightness(brightness)
	e.video.SetContrast(contrast)
	e.video.SetSaturation(saturation)
}

// Start/Stop track wall-clock uptime for `info`/stats reporting.
func (e *Emulator) Start() { e.running = true; e.startedAt = time.Now() }
func (e *Emulator) Stop()  { e.running = false }
func (e *Emulator) IsRunning() bool { return e.running }

// Reset reinitializes CPU/PPU/APU/input to power-on state without
// reloading the ROM.
func (e *Emulator) Reset() { e.bus.Reset() }

// RunFrame advances emulation by exactly one frame and returns the
// rendered frame buffer (row-major 256x240, one 0x00RRGGBB value per
// pixel), after applying the
// PPU's grayscale/color-emphasis bits and any host display adjustments.
func (e *Emulator) RunFrame() *[256 * 240]uint32 {
	frame := e.bus.RunFrame()
	e.watcher.Observe(func(addr uint16) uint8 { return e.cart.ReadPRG(addr) })

	grayscale := e.bus.PPU.Grayscale()
	emphasis := e.bus.PPU.ColorEmphasis()
	processed := e.video.ProcessFrame(frame[:], grayscale, emphasis)
	copy(e.frameOut[:], processed)
	return &e.frameOut
}

// GetAudioSamples drains the APU's accumulated output buffer.
func (e *Emulator) GetAudioSamples() []float32 { return e.bus.APU.DrainSamples() }

// SetButtons1/SetButtons2 forward controller state for the current frame.
func (e *Emulator) SetButtons1(buttons [8]bool) { e.bus.Input.SetButtons1(buttons) }
func (e *Emulator) SetButtons2(buttons [8]bool) { e.bus.Input.SetButtons2(buttons) }

// FrameCount/CycleCount expose bus counters for stats/debug overlays.
func (e *Emulator) FrameCount() uint64 { return e.bus.PPU.FrameCount() }
func (e *Emulator) CycleCount() uint64 { return e.bus.CycleCount() }

// TestROMResult reports the blargg-style status once a test ROM finishes;
// ok is false until then.
func (e *Emulator) TestROMResult() (passed bool, message string, ok bool) {
	if !e.watcher.Done() {
		return false, "", false
	}
	return e.watcher.Passed(), e.watcher.Message(), true
}

// SaveState serializes the CPU registers, the PPU state and the mapper's
// battery-backed save data. CPU RAM, APU state and the mapper's banking and
// IRQ registers are not saved; the APU and cartridge blobs are left empty.
func (e *Emulator) SaveState() ([]byte, error) {
	ppuState := e.bus.PPU.Snapshot()
	ppuBlob, err := marshalGob(ppuState)
	if err != nil {
		return nil, fmt.Errorf("app: marshaling PPU state: %w", err)
	}
	payload := savestate.Payload{
		CPU: savestate.CPUState{
			A: e.bus.CPU.A, X: e.bus.CPU.X, Y: e.bus.CPU.Y,
			SP: e.bus.CPU.SP, PC: e.bus.CPU.PC, Status: e.bus.CPU.StatusByte(),
		},
		PPU:        ppuBlob,
		Cartridge:  nil,
		MapperSave: e.cart.Mapper().SaveData(),
	}
	return savestate.Save(e.cart.ROMCRC32(), e.romName, e.bus.PPU.FrameCount(), time.Now().Unix(), payload)
}

// LoadState restores a save state produced by SaveState, rejecting it if
// the ROM CRC32 or format version disagree.
func (e *Emulator) LoadState(data []byte) error {
	payload, _, _, err := savestate.Load(data, e.cart.ROMCRC32())
	if err != nil {
		return err
	}
	e.bus.CPU.A, e.bus.CPU.X, e.bus.CPU.Y = payload.CPU.A, payload.CPU.X, payload.CPU.Y
	e.bus.CPU.SP, e.bus.CPU.PC = payload.CPU.SP, payload.CPU.PC
	e.bus.CPU.SetStatusByte(payload.CPU.Status)

	if err := unmarshalPPUState(e.bus, payload.PPU); err != nil {
		return fmt.Errorf("app: restoring PPU state: %w", err)
	}
	if len(payload.MapperSave) > 0 {
		e.cart.Mapper().LoadSaveData(payload.MapperSave)
	}
	glog.Infof("app: loaded save state for %q", e.romName)
	return nil
}
