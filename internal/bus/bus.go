// Package bus wires the CPU, PPU, APU, cartridge and input devices together
// and is the single place that advances emulated time: every CPU memory
// access ticks the PPU three times and the APU once before the access is
// serviced, which is what keeps PPU scanline/dot position and APU sample
// timing in lockstep with the 6502 regardless of which instruction is
// running.
package bus

import (
	"github.com/golang/glog"

	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/ppu"
)

// Region selects the console timing variant: NTSC (60Hz, 262 scanlines),
// PAL (50Hz, 312 scanlines, no odd-frame skip) or Dendy (PAL-like scanline
// count, but VBlank starts at scanline 291 and the CPU runs at NTSC speed).
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
	RegionDendy
)

// Bus owns every emulated component and is the CPU's memory interface.
type Bus struct {
	CPU   *cpu.CPU
	PPU   *ppu.PPU
	APU   *apu.APU
	Input *input.InputState
	Cart  *cartridge.Cartridge

	ram [0x800]uint8

	region Region

	cycles uint64

	dmaActive   bool
	dmaPage     uint8
	dmaIndex    int
	dmaDummyCycle bool

	// OpenBus models the NES's capacitance-decay data bus: unmapped reads
	// return the last byte that was actually driven onto the bus.
	openBus uint8

	FrameComplete func()
}

// New builds a Bus around a freshly-loaded cartridge. CPU/PPU/APU are
// constructed here because they need a reference back to the bus (CPU for
// memory access, PPU/APU so the bus can drive them).
func New(cart *cartridge.Cartridge, region Region) *Bus {
	b := &Bus{
		Cart:   cart,
		Input:  input.NewInputState(),
		region: region,
	}
	b.PPU = ppu.New(cart.Mapper(), ppuRegionOf(region))
	b.APU = apu.New()
	b.CPU = cpu.New(b)
	b.PPU.SetNMICallback(b.CPU.SetNMI)
	b.Reset()
	return b
}

func ppuRegionOf(r Region) ppu.Region {
	switch r {
	case RegionPAL:
		return ppu.RegionPAL
	case RegionDendy:
		return ppu.RegionDendy
	default:
		return ppu.RegionNTSC
	}
}

// Reset restores CPU/PPU/APU/input state as if the console's reset button
// was pressed (power-on and reset differ only in a few PPU/APU details the
// ppu/apu packages handle internally).
func (b *Bus) Reset() {
	b.PPU.Reset()
	b.APU.Reset()
	b.Input.Reset()
	b.Cart.Mapper().Reset()
	b.CPU.Reset()
}

// Tick advances PPU x3 / APU x1 / mapper notifications by one CPU cycle.
// Called once per Read/Write and, for DMA/DMC stalls, once per idle cycle.
func (b *Bus) Tick() {
	b.cycles++
	for i := 0; i < 3; i++ {
		b.PPU.Step()
	}
	b.APU.Step()
	if ticker, ok := b.Cart.Mapper().(cartridge.Ticker); ok {
		ticker.Tick()
	}
	b.CPU.SetIRQLine(b.Cart.Mapper().IRQPending() || b.APU.IRQPending())
}

// CycleCount returns the number of CPU cycles elapsed since power-on;
// Emulator.CycleCount exposes it for statistics.
func (b *Bus) CycleCount() uint64 { return b.cycles }

// Read services a CPU memory access. Every call ticks time first; if an OAM
// DMA transfer is pending, it then runs the whole transfer (ticking each of
// its cycles) before the requested read is serviced.
func (b *Bus) Read(address uint16) uint8 {
	b.Tick()
	b.serviceDMA()
	return b.readNoTick(address)
}

func (b *Bus) readNoTick(address uint16) uint8 {
	var value uint8
	switch {
	case address < 0x2000:
		value = b.ram[address&0x07FF]
	case address < 0x4000:
		value = b.PPU.ReadRegister(0x2000 + (address & 0x0007))
	case address == 0x4015:
		value = b.APU.ReadStatus()
	case address == 0x4016:
		value = b.Input.Read(0x4016) | (b.openBus & 0xE0)
	case address == 0x4017:
		value = b.Input.Read(0x4017) | (b.openBus & 0xE0)
	case address < 0x4020:
		value = b.openBus
	case address >= 0x4020:
		value = b.Cart.ReadPRG(address)
	default:
		glog.Warningf("bus: unmapped read at $%04X", address)
		value = b.openBus
	}
	b.openBus = value
	return value
}

// Write services a CPU memory write.
func (b *Bus) Write(address uint16, value uint8) {
	b.Tick()
	b.serviceDMA()
	b.openBus = value
	switch {
	case address < 0x2000:
		b.ram[address&0x07FF] = value
	case address < 0x4000:
		b.PPU.WriteRegister(0x2000+(address&0x0007), value)
	case address == 0x4014:
		b.startOAMDMA(value)
	case address == 0x4016:
		b.Input.Write(address, value)
	case address < 0x4018:
		b.APU.WriteRegister(address, value)
	case address >= 0x4020:
		b.Cart.WritePRG(address, value)
	default:
		glog.Warningf("bus: unmapped write $%02X at $%04X", value, address)
	}
}

// startOAMDMA begins a 513/514-cycle OAM DMA copy from page*$100. The
// extra cycle on odd CPU-cycle starts is the well known "+1 if on an odd
// cycle" DMA alignment quirk.
func (b *Bus) startOAMDMA(page uint8) {
	b.dmaActive = true
	b.dmaPage = page
	b.dmaIndex = 0
	b.dmaDummyCycle = b.cycles%2 == 1
}

// serviceDMA runs to completion once started; OAM DMA always fully stalls
// the CPU so this is safe to call inline from Read/Write before the actual
// access the CPU requested is serviced.
func (b *Bus) serviceDMA() {
	if !b.dmaActive {
		return
	}
	if b.dmaDummyCycle {
		b.Tick()
		b.dmaDummyCycle = false
	}
	for b.dmaIndex < 512 {
		addr := (uint16(b.dmaPage) << 8) | uint16(b.dmaIndex/2)
		if b.dmaIndex%2 == 0 {
			value := b.readNoTick(addr)
			b.Tick()
			b.PPU.WriteOAMDMAByte(value)
		} else {
			b.Tick()
		}
		b.dmaIndex++
	}
	b.dmaActive = false
}

// serviceDMCFetch performs a DMC sample-byte DMA: 3 halt cycles plus the
// real read, 4 CPU cycles total (occasionally a 5th in reality, when the
// fetch lands on the same cycle as an OAM DMA read/put cycle; this emulator
// resolves DMC fetches at instruction-boundary granularity rather than
// mid-instruction, so that extra alignment cycle is not modeled).
func (b *Bus) serviceDMCFetch(addr uint16) {
	b.Tick()
	b.Tick()
	b.Tick()
	value := b.Read(addr)
	b.APU.DeliverDMCByte(value)
}

// RunFrame steps the CPU until the PPU reports a completed frame, servicing
// DMC DMA stalls (which steal 4 CPU cycles, occasionally a fifth) as they
// occur. It returns the current frame buffer.
func (b *Bus) RunFrame() *[256 * 240]uint32 {
	startFrame := b.PPU.FrameCount()
	for b.PPU.FrameCount() == startFrame {
		if addr, ok := b.APU.DMCFetchRequest(); ok {
			b.serviceDMCFetch(addr)
		}
		b.CPU.Step()
	}
	b.APU.SetExpansionAudio(b.Cart.Mapper().GetAudioOutput())
	if b.FrameComplete != nil {
		b.FrameComplete()
	}
	return b.PPU.FrameBuffer()
}

// Region reports the console timing variant this bus was built for.
func (b *Bus) Region() Region { return b.region }
