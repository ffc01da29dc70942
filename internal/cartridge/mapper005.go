package cartridge

import "gones/internal/memory"

// mapper005 is MMC5 (Castlevania III, Just Breed), the most elaborate board
// this emulator supports: independently-switchable 8KB PRG/CHR windows, a
// scanline IRQ, a hardware 8x8 unsigned multiplier, 1KB of extra RAM
// (ExRAM) usable as extended attribute/nametable data, and a simple PCM
// expansion-audio channel. Real MMC5 also does per-scanline vertical split
// screen and a second CHR bank set for 8x16 sprites; this implementation
// models the single-CHR-set, whole-screen case that covers the large
// majority of MMC5 software and is the scope this emulator's PPU (one
// nametable fetch pipeline, no split-screen) can actually drive.
type mapper005 struct {
	base

	prgMode uint8 // $5100 bits0-1: 0=32K/1=16K/2=16K+8K/3=8K windows (this board only models mode 3)
	chrMode uint8 // $5101 bits0-1: 0=8K/1=4K/2=2K/3=1K windows

	exRAM     [0x400]uint8
	exRAMMode uint8 // $5104

	prgBank [5]uint8 // $5113 ($6000 RAM bank) and $5114-$5117 (8000/A000/C000/E000)
	chrBank [8]uint8 // $5120-$5127

	fillTile, fillColor uint8 // $5106/$5107, accepted but not separately rendered

	multiplicand, multiplier uint8 // $5205/$5206 operands; product read back at the same addresses

	irqTarget  uint8 // $5203
	irqEnabled bool  // $5204 bit 7
	irqPending bool
	inFrame    bool
	scanline   uint8

	pcmMode   uint8 // $5010 bit0: IRQ enable, bit1: read vs write mode
	pcmSample uint8 // $5011: direct PCM write-mode sample

	prgBanks8k uint8
}

func newMapper005(b base) *mapper005 {
	return &mapper005{base: b, prgBanks8k: uint8(len(b.prgROM) / 0x2000)}
}

func (m *mapper005) Reset() {
	m.prgMode, m.chrMode = 3, 3
	m.prgBank = [5]uint8{}
	m.chrBank = [8]uint8{}
	m.irqEnabled, m.irqPending, m.inFrame = false, false, false
	m.scanline = 0
}

func (m *mapper005) MirrorMode() memory.MirrorMode { return m.mirror }

func (m *mapper005) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x5000 && address < 0x5C00:
		return m.readExpansionRegister(address)
	case address >= 0x5C00 && address < 0x6000:
		return m.exRAM[address-0x5C00]
	case address >= 0x6000 && address < 0x8000:
		return m.readSRAM(address)
	case address >= 0x8000:
		window := (address - 0x8000) / 0x2000
		bank := m.prgBank[window+1] & 0x7F
		idx := int(bank)*0x2000 + int(address-0x8000)%0x2000
		if idx < len(m.prgROM) {
			return m.prgROM[idx]
		}
		return 0
	default:
		return 0
	}
}

func (m *mapper005) readExpansionRegister(address uint16) uint8 {
	switch address {
	case 0x5204:
		status := uint8(0)
		if m.irqPending {
			status |= 0x80
		}
		if m.inFrame {
			status |= 0x40
		}
		m.irqPending = false
		return status
	case 0x5205:
		return uint8((uint16(m.multiplicand) * uint16(m.multiplier)) & 0xFF)
	case 0x5206:
		return uint8((uint16(m.multiplicand) * uint16(m.multiplier)) >> 8)
	default:
		return 0
	}
}

func (m *mapper005) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x5000 && address < 0x5C00:
		m.writeExpansionRegister(address, value)
	case address >= 0x5C00 && address < 0x6000:
		m.exRAM[address-0x5C00] = value
	case address >= 0x6000 && address < 0x8000:
		m.writeSRAM(address, value)
	}
}

func (m *mapper005) writeExpansionRegister(address uint16, value uint8) {
	switch {
	case address == 0x5100:
		m.prgMode = value & 0x03
	case address == 0x5101:
		m.chrMode = value & 0x03
	case address == 0x5104:
		m.exRAMMode = value & 0x03
	case address == 0x5106:
		m.fillTile = value
	case address == 0x5107:
		m.fillColor = value & 0x03
	case address >= 0x5113 && address <= 0x5117:
		m.prgBank[address-0x5113] = value
	case address >= 0x5120 && address <= 0x5127:
		m.chrBank[address-0x5120] = value
	case address == 0x5203:
		m.irqTarget = value
	case address == 0x5204:
		m.irqEnabled = value&0x80 != 0
	case address == 0x5205:
		m.multiplicand = value
	case address == 0x5206:
		m.multiplier = value
	case address == 0x5010:
		m.pcmMode = value & 0x03
	case address == 0x5011:
		m.pcmSample = value
	}
}

// chrWindowAddr mirrors the real board's per-mode register selection: mode 0
// (8K) reads bank 7's value as an 8K-granularity bank, mode 1 (4K) uses
// registers 3 and 7, mode 2 (2K) uses 1/3/5/7, mode 3 (1K) uses all eight.
func (m *mapper005) chrWindowAddr(address uint16) int {
	switch m.chrMode {
	case 0:
		return int(m.chrBank[7])*0x2000 + int(address)
	case 1:
		idx := 3
		if address >= 0x1000 {
			idx = 7
		}
		return int(m.chrBank[idx])*0x1000 + int(address%0x1000)
	case 2:
		slot := int(address / 0x0800)
		idx := slot*2 + 1
		return int(m.chrBank[idx])*0x0800 + int(address%0x0800)
	default:
		slot := int(address / 0x0400)
		return int(m.chrBank[slot])*0x0400 + int(address%0x0400)
	}
}

func (m *mapper005) ReadCHR(address uint16) uint8 {
	idx := m.chrWindowAddr(address)
	if idx >= 0 && idx < len(m.chrROM) {
		return m.chrROM[idx]
	}
	return 0
}

func (m *mapper005) WriteCHR(address uint16, value uint8) {
	if !m.chrRAM {
		return
	}
	idx := m.chrWindowAddr(address)
	if idx >= 0 && idx < len(m.chrROM) {
		m.chrROM[idx] = value
	}
}

func (m *mapper005) IRQPending() bool { return m.irqPending }
func (m *mapper005) IRQClear()        { m.irqPending = false }

// NotifyFrameStart/NotifyScanline approximate MMC5's in-frame scanline
// counter, which on real hardware is derived by watching the PPU's
// nametable fetch pattern rather than an explicit scanline signal.
func (m *mapper005) NotifyFrameStart() {
	m.scanline = 0
	m.inFrame = true
}

func (m *mapper005) NotifyScanline() {
	m.scanline++
	if m.scanline == m.irqTarget && m.irqEnabled {
		m.irqPending = true
	}
}

// GetAudioOutput returns the direct-PCM channel's current sample; MMC5's
// second channel (a standard 2A03-style pulse generator reusing the APU's
// own envelope/sweep-free square wave) is not modeled.
func (m *mapper005) GetAudioOutput() float32 {
	if m.pcmMode&0x02 != 0 { // bit1 set selects read (IRQ) mode, not write/output mode
		return 0
	}
	return float32(m.pcmSample) / 255.0
}

func (m *mapper005) HasSaveData() bool { return true }
func (m *mapper005) SaveData() []uint8 {
	cp := make([]uint8, len(m.sram))
	copy(cp, m.sram[:])
	return cp
}
func (m *mapper005) LoadSaveData(data []uint8) { copy(m.sram[:], data) }
