// Package ppu implements the NES Picture Processing Unit as a dot-by-dot
// state machine: background and sprite pixels are produced by shift
// registers fed by a fixed fetch sequence, not painted pixel-by-pixel after
// the fact, because mapper IRQ timing (MMC3's A12 filter, MMC5's scanline
// counter) depends on exactly when each PPU VRAM fetch happens.
package ppu

import (
	"github.com/golang/glog"

	"gones/internal/cartridge"
	"gones/internal/memory"
)

// Region selects scanline counts and the VBlank-start scanline.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
	RegionDendy
)

const (
	dotsPerScanline = 341
	visibleScanlines = 240
)

func (r Region) totalScanlines() int {
	switch r {
	case RegionPAL, RegionDendy:
		return 312
	default:
		return 262
	}
}

func (r Region) vblankStartScanline() int {
	switch r {
	case RegionDendy:
		return 291
	case RegionPAL:
		return 241
	default:
		return 241
	}
}

// PPU is the NES picture processing unit.
type PPU struct {
	region Region
	mapper cartridge.Mapper
	vmem   *memory.VideoMemory

	// Scroll/address registers (loopy v/t/x/w).
	v, t uint16
	x    uint8
	w    bool

	oam          [256]uint8
	secondaryOAM [32]uint8
	oamAddr      uint8

	ctrl, mask, status uint8

	// Background pipeline.
	nametableByte   uint8
	attributeByte   uint8
	patternLowByte  uint8
	patternHighByte uint8
	bgShiftLow      uint16
	bgShiftHigh     uint16
	attrShiftLow    uint16
	attrShiftHigh   uint16

	// Sprite pipeline (evaluated for the *next* scanline while the current
	// one renders, as real hardware does).
	spriteCount         int
	spritePatternsLow   [8]uint8
	spritePatternsHigh  [8]uint8
	spriteAttributes    [8]uint8
	spriteXCounters     [8]uint8
	spriteIsZero        [8]bool
	spriteZeroOnLine    bool
	spriteZeroRendering bool
	spriteOverflow      bool

	scanline int
	dot      int
	frame    uint64
	oddFrame bool

	openBus       uint8
	openBusDecay  int

	nmiOutput   bool
	nmiOccurred bool
	nmiDelay    int
	nmiCallback func()

	frameBuffer [256 * 240]uint32

	writeToggleSuppress int
}

var nesPalette = [64]uint32{
	0x626262FF, 0x001FB2FF, 0x2404C8FF, 0x5200B2FF, 0x730076FF, 0x800024FF, 0x730700FF, 0x522800FF,
	0x244500FF, 0x005700FF, 0x005C00FF, 0x005324FF, 0x003C76FF, 0x000000FF, 0x000000FF, 0x000000FF,
	0xABABABFF, 0x0D57FFFF, 0x4B30FFFF, 0x8A13FFFF, 0xBC08D6FF, 0xD21269FF, 0xC72E00FF, 0x9D5400FF,
	0x607B00FF, 0x209800FF, 0x00A300FF, 0x009942FF, 0x007DB4FF, 0x000000FF, 0x000000FF, 0x000000FF,
	0xFFFFFFFF, 0x53AEFFFF, 0x9085FFFF, 0xD365FFFF, 0xFF57FFFF, 0xFF5DCFFF, 0xFF7757FF, 0xFA9E00FF,
	0xBDC700FF, 0x7AE700FF, 0x43F611FF, 0x26EF7EFF, 0x2CD5F6FF, 0x4E4E4EFF, 0x000000FF, 0x000000FF,
	0xFFFFFFFF, 0xB6E1FFFF, 0xCED1FFFF, 0xE9C3FFFF, 0xFFBCFFFF, 0xFFBDF4FF, 0xFFC6C3FF, 0xFFD59AFF,
	0xE9E681FF, 0xCEF481FF, 0xB6FB9AFF, 0xA9FAC3FF, 0xA9F0F4FF, 0xB8B8B8FF, 0x000000FF, 0x000000FF,
}

// New constructs a PPU attached to the cartridge's mapper (for CHR/pattern
// fetches and A12 notification) with the given mirror mode and region.
func New(mapper cartridge.Mapper, region Region) *PPU {
	return &PPU{
		mapper: mapper,
		vmem:   memory.NewVideoMemory(mapper.MirrorMode()),
		region: region,
	}
}

// SetNMICallback installs the function called the instant the internal NMI
// delay countdown reaches zero; the bus wires this to cpu.SetNMI.
func (p *PPU) SetNMICallback(fn func()) { p.nmiCallback = fn }

// Reset restores power-on PPU state (VBlank clear, scroll latches clear).
func (p *PPU) Reset() {
	p.ctrl, p.mask, p.status = 0, 0, 0
	p.v, p.t, p.x = 0, 0, 0
	p.w = false
	p.scanline, p.dot = 0, 0
	p.oddFrame = false
	p.nmiOccurred, p.nmiOutput, p.nmiDelay = false, false, 0
}

func (p *PPU) FrameCount() uint64 { return p.frame }
func (p *PPU) FrameBuffer() *[256 * 240]uint32 { return &p.frameBuffer }

// ReadRegister services a CPU read of $2000-$2007 (mirrored every 8 bytes).
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address & 7 {
	case 2: // PPUSTATUS
		result := (p.status & 0xE0) | (p.openBus & 0x1F)
		p.status &^= 0x80
		p.w = false
		if p.nmiOccurred && p.scanline == p.region.vblankStartScanline() && p.dot < 2 {
			// Reading status in the same 1-2 dot window VBlank is set
			// suppresses the NMI the PPU was about to raise.
			p.nmiOccurred = false
			p.nmiDelay = 0
		}
		p.openBus = result
		return result
	case 4: // OAMDATA
		v := p.oam[p.oamAddr]
		p.openBus = v
		return v
	case 7: // PPUDATA
		return p.readPPUDATA()
	default:
		return p.openBus
	}
}

func (p *PPU) readPPUDATA() uint8 {
	addr := p.v & 0x3FFF
	var result uint8
	if addr < 0x3F00 {
		result = p.openBus
		p.openBus = p.fetchBus(addr)
	} else {
		result = p.vmem.ReadPalette(addr)
		p.openBus = p.fetchBus(addr - 0x1000) // palette reads still refresh the read buffer from the mirrored nametable
	}
	p.advanceV()
	return result
}

func (p *PPU) fetchBus(addr uint16) uint8 {
	if addr < 0x2000 {
		return p.mapper.ReadCHR(addr)
	}
	return p.vmem.ReadNametable(addr)
}

func (p *PPU) advanceV() {
	if p.ctrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v++
	}
	p.notifyAddressBus()
}

// WriteRegister services a CPU write of $2000-$2007.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	p.openBus = value
	switch address & 7 {
	case 0: // PPUCTRL
		prevNMI := p.ctrl&0x80 != 0
		p.ctrl = value
		p.t = (p.t &^ 0x0C00) | (uint16(value&0x03) << 10)
		newNMI := p.ctrl&0x80 != 0
		p.nmiOutput = newNMI
		if !prevNMI && newNMI && p.nmiOccurred {
			p.scheduleNMI()
		}
	case 1: // PPUMASK
		p.mask = value
	case 3: // OAMADDR
		p.oamAddr = value
	case 4: // OAMDATA
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 5: // PPUSCROLL
		if !p.w {
			p.t = (p.t &^ 0x001F) | uint16(value>>3)
			p.x = value & 0x07
		} else {
			p.t = (p.t &^ 0x73E0) | (uint16(value&0x07) << 12) | (uint16(value&0xF8) << 2)
		}
		p.w = !p.w
	case 6: // PPUADDR
		if !p.w {
			p.t = (p.t &^ 0xFF00) | (uint16(value&0x3F) << 8)
		} else {
			p.t = (p.t &^ 0x00FF) | uint16(value)
			p.v = p.t
			p.notifyAddressBus()
		}
		p.w = !p.w
	case 7: // PPUDATA
		addr := p.v & 0x3FFF
		if addr < 0x2000 {
			p.mapper.WriteCHR(addr, value)
		} else if addr < 0x3F00 {
			p.vmem.WriteNametable(addr, value)
		} else {
			p.vmem.WritePalette(addr, value)
		}
		p.advanceV()
	}
}

func (p *PPU) notifyAddressBus() {
	p.mapper.NotifyPPUAddressBus(p.v & 0x3FFF)
}

// WriteOAMDMAByte is called 256 times during an OAM DMA transfer.
func (p *PPU) WriteOAMDMAByte(value uint8) {
	p.oam[p.oamAddr] = value
	p.oamAddr++
}

func (p *PPU) renderingEnabled() bool { return p.mask&0x18 != 0 }

// Grayscale reports PPUMASK bit 0: the real PPU ANDs every palette index
// with $30 before the color lookup when set, collapsing the frame to the
// palette's top row (grays/blacks).
func (p *PPU) Grayscale() bool { return p.mask&0x01 != 0 }

// ColorEmphasis returns PPUMASK bits 5-7 (emphasize red/green/blue) packed
// into the low 3 bits of the result, in that order. Real NTSC hardware
// attenuates the two non-emphasized channels rather than boosting the
// emphasized one.
func (p *PPU) ColorEmphasis() uint8 { return (p.mask >> 5) & 0x07 }

// Step advances the PPU by one PPU cycle (dot). Called three times per CPU
// cycle by the bus.
func (p *PPU) Step() {
	p.tickNMI()

	visible := p.scanline < visibleScanlines
	preRender := p.scanline == p.region.totalScanlines()-1

	if (visible || preRender) && p.renderingEnabled() {
		p.renderCycle(preRender)
	}

	if p.scanline == p.region.vblankStartScanline() && p.dot == 1 {
		p.status |= 0x80
		p.nmiOccurred = true
		if p.nmiOutput {
			p.scheduleNMI()
		}
	}
	if preRender && p.dot == 1 {
		p.status &^= 0xE0
		p.nmiOccurred = false
		p.spriteOverflow = false
	}
	if preRender && p.dot == 1 {
		p.mapper.NotifyFrameStart()
	}

	p.dot++
	// NTSC skips the idle dot 340 of the pre-render line on odd frames
	// when rendering is enabled; PAL/Dendy never skip.
	if preRender && p.oddFrame && p.region == RegionNTSC && p.renderingEnabled() && p.dot == 340 {
		p.dot = 341
	}
	if p.dot > 340 {
		if visible {
			p.mapper.NotifyScanline()
		}
		p.dot = 0
		p.scanline++
		if p.scanline >= p.region.totalScanlines() {
			p.scanline = 0
			p.frame++
			p.oddFrame = !p.oddFrame
		}
	}
}

// scheduleNMI arms the ~15 PPU-cycle NMI assertion delay real hardware
// exhibits between VBlank start and the CPU actually observing the NMI
// line; a short instruction finishing before the countdown elapses is what
// produces the "delayed by one instruction" flavor described for CPU NMI
// handling, for free.
func (p *PPU) scheduleNMI() {
	if p.nmiDelay == 0 {
		p.nmiDelay = 15
	}
}

func (p *PPU) tickNMI() {
	if p.nmiDelay > 0 {
		p.nmiDelay--
		if p.nmiDelay == 0 && p.nmiOccurred && p.nmiOutput {
			if p.nmiCallback != nil {
				p.nmiCallback()
			}
		}
	}
}

func (p *PPU) renderCycle(preRender bool) {
	visibleFetch := (p.dot >= 1 && p.dot <= 256) || (p.dot >= 321 && p.dot <= 336)
	if visibleFetch {
		p.shiftBackgroundRegisters()
		switch p.dot % 8 {
		case 1:
			ntAddr := 0x2000 | (p.v & 0x0FFF)
			p.mapper.NotifyPPUAddressBus(ntAddr)
			p.nametableByte = p.fetchBus(ntAddr)
		case 3:
			attrAddr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
			p.mapper.NotifyPPUAddressBus(attrAddr)
			raw := p.fetchBus(attrAddr)
			shift := ((p.v >> 4) & 4) | (p.v & 2)
			p.attributeByte = (raw >> shift) & 0x03
		case 5:
			base := uint16(0)
			if p.ctrl&0x10 != 0 {
				base = 0x1000
			}
			fine := (p.v >> 12) & 0x07
			addr := base + uint16(p.nametableByte)*16 + fine
			p.mapper.NotifyPPUAddressBus(addr)
			p.patternLowByte = p.mapper.ReadCHR(addr)
		case 7:
			base := uint16(0)
			if p.ctrl&0x10 != 0 {
				base = 0x1000
			}
			fine := (p.v >> 12) & 0x07
			addr := base + uint16(p.nametableByte)*16 + fine + 8
			p.mapper.NotifyPPUAddressBus(addr)
			p.patternHighByte = p.mapper.ReadCHR(addr)
		case 0:
			p.loadBackgroundShiftRegisters()
			p.incrementHorizontalV()
		}
	}

	if !preRender && p.dot >= 1 && p.dot <= 256 {
		p.renderPixel()
	}

	if p.dot == 256 {
		p.incrementVerticalV()
	}
	if p.dot == 257 {
		p.copyHorizontalV()
		p.evaluateSpritesForNextLine()
	}
	if preRender && p.dot >= 280 && p.dot <= 304 {
		p.copyVerticalV()
	}
	if p.dot >= 257 && p.dot <= 320 {
		// Sprite pattern fetches happen here on real hardware; our
		// evaluator already resolved the sprite pixel data at dot 257, so
		// this window only reports one sprite pattern-table address per
		// 8-dot slot to the mapper's A12 filter: the $0000/$1000 half PPUCTRL
		// selects for 8x8 sprites, $1000 (empty-slot tile $FF) for 8x16.
		if p.dot%8 == 1 {
			spriteTable := uint16(0x1000)
			if p.ctrl&0x20 == 0 && p.ctrl&0x08 == 0 {
				spriteTable = 0
			}
			p.mapper.NotifyPPUAddressBus(spriteTable)
		}
	}
}

func (p *PPU) incrementHorizontalV() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementVerticalV() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v &^ 0x03E0) | (y << 5)
}

func (p *PPU) copyHorizontalV() {
	p.v = (p.v &^ 0x041F) | (p.t & 0x041F)
}

func (p *PPU) copyVerticalV() {
	p.v = (p.v &^ 0x7BE0) | (p.t & 0x7BE0)
}

func (p *PPU) loadBackgroundShiftRegisters() {
	p.bgShiftLow = (p.bgShiftLow & 0xFF00) | uint16(p.patternLowByte)
	p.bgShiftHigh = (p.bgShiftHigh & 0xFF00) | uint16(p.patternHighByte)
	var lo, hi uint16
	if p.attributeByte&0x01 != 0 {
		lo = 0xFF
	}
	if p.attributeByte&0x02 != 0 {
		hi = 0xFF
	}
	p.attrShiftLow = (p.attrShiftLow & 0xFF00) | lo
	p.attrShiftHigh = (p.attrShiftHigh & 0xFF00) | hi
}

func (p *PPU) shiftBackgroundRegisters() {
	p.bgShiftLow <<= 1
	p.bgShiftHigh <<= 1
	p.attrShiftLow <<= 1
	p.attrShiftHigh <<= 1
}

func (p *PPU) renderPixel() {
	x := p.dot - 1
	y := p.scanline

	bgColor, bgOpaque := p.backgroundPixel(x)
	sprColor, sprOpaque, sprPriority, isSpriteZero := p.spritePixel(x)

	if isSpriteZero && bgOpaque && sprOpaque && x != 255 && p.mask&0x18 == 0x18 {
		p.status |= 0x40 // sprite 0 hit
	}

	var final uint8
	switch {
	case !bgOpaque && !sprOpaque:
		final = p.vmem.ReadPalette(0x3F00)
	case !bgOpaque && sprOpaque:
		final = sprColor
	case bgOpaque && !sprOpaque:
		final = bgColor
	default:
		if sprPriority {
			final = bgColor
		} else {
			final = sprColor
		}
	}
	// nesPalette entries are 0xRRGGBBAA; the frame buffer holds 0x00RRGGBB.
	p.frameBuffer[y*256+x] = nesPalette[final&0x3F] >> 8
}

func (p *PPU) backgroundPixel(x int) (color uint8, opaque bool) {
	if p.mask&0x08 == 0 || (x < 8 && p.mask&0x02 == 0) {
		return 0, false
	}
	shift := 15 - uint(p.x)
	bit0 := uint8((p.bgShiftLow >> shift) & 1)
	bit1 := uint8((p.bgShiftHigh >> shift) & 1)
	pixel := (bit1 << 1) | bit0
	a0 := uint8((p.attrShiftLow >> shift) & 1)
	a1 := uint8((p.attrShiftHigh >> shift) & 1)
	attr := (a1 << 1) | a0
	if pixel == 0 {
		return p.vmem.ReadPalette(0x3F00), false
	}
	return p.vmem.ReadPalette(0x3F00 | uint16(attr)<<2 | uint16(pixel)), true
}

func (p *PPU) spritePixel(x int) (color uint8, opaque bool, lowPriority bool, isZero bool) {
	if p.mask&0x10 == 0 || (x < 8 && p.mask&0x04 == 0) {
		return 0, false, false, false
	}
	for i := 0; i < p.spriteCount; i++ {
		offset := x - int(p.spriteXCounters[i])
		if offset < 0 || offset > 7 {
			continue
		}
		attr := p.spriteAttributes[i]
		flipH := attr&0x40 != 0
		bitIdx := offset
		if !flipH {
			bitIdx = 7 - offset
		}
		lo := (p.spritePatternsLow[i] >> uint(bitIdx)) & 1
		hi := (p.spritePatternsHigh[i] >> uint(bitIdx)) & 1
		pixel := (hi << 1) | lo
		if pixel == 0 {
			continue
		}
		paletteIdx := attr & 0x03
		c := p.vmem.ReadPalette(0x3F10 | uint16(paletteIdx)<<2 | uint16(pixel))
		return c, true, attr&0x20 != 0, p.spriteIsZero[i]
	}
	return 0, false, false, false
}

// evaluateSpritesForNextLine resolves sprite data for the line that is
// about to be rendered, replicating the classic secondary-OAM overflow bug:
// once eight sprites are found, the evaluator keeps scanning OAM but reads
// through it with a buggy incrementing index, which can spuriously set the
// overflow flag against non-Y bytes.
func (p *PPU) evaluateSpritesForNextLine() {
	targetLine := p.scanline + 1
	height := 8
	if p.ctrl&0x20 != 0 {
		height = 16
	}

	count := 0
	p.spriteZeroOnLine = false
	var matched [8]int
	n := 0
	for ; n < 64 && count < 8; n++ {
		y := int(p.oam[n*4])
		if targetLine >= y && targetLine < y+height {
			matched[count] = n
			if n == 0 {
				p.spriteZeroOnLine = true
			}
			count++
		}
	}
	// Overflow detection: continue scanning with the buggy diagonal read.
	if count == 8 {
		m := 0
		for n < 64 {
			y := int(p.oam[n*4+m])
			if targetLine >= y && targetLine < y+height {
				p.spriteOverflow = true
				break
			}
			m = (m + 1) & 3
			n++
		}
	}

	p.spriteCount = count
	for i := 0; i < count; i++ {
		oamIdx := matched[i]
		y := int(p.oam[oamIdx*4])
		tile := p.oam[oamIdx*4+1]
		attr := p.oam[oamIdx*4+2]
		xpos := p.oam[oamIdx*4+3]

		row := targetLine - y
		if attr&0x80 != 0 { // flip vertical
			row = height - 1 - row
		}

		var patternAddr uint16
		if height == 16 {
			bank := uint16(tile&0x01) * 0x1000
			tileNum := uint16(tile &^ 0x01)
			if row >= 8 {
				tileNum++
				row -= 8
			}
			patternAddr = bank + tileNum*16 + uint16(row)
		} else {
			bank := uint16(0)
			if p.ctrl&0x08 != 0 {
				bank = 0x1000
			}
			patternAddr = bank + uint16(tile)*16 + uint16(row)
		}

		p.spritePatternsLow[i] = p.mapper.ReadCHR(patternAddr)
		p.spritePatternsHigh[i] = p.mapper.ReadCHR(patternAddr + 8)
		p.spriteAttributes[i] = attr
		p.spriteXCounters[i] = xpos
		p.spriteIsZero[i] = oamIdx == 0 && p.spriteZeroOnLine
	}
	if count < 8 {
		glog.V(2).Infof("ppu: scanline %d has %d sprites", targetLine, count)
	}
}

// NMIAsserted reports whether the CPU should currently see the NMI line
// low; exposed for tests and trace tooling.
func (p *PPU) NMIAsserted() bool { return p.nmiOccurred && p.nmiOutput }

// Snapshot/Restore support save states.
type State struct {
	V, T          uint16
	X             uint8
	W             bool
	OAM           [256]uint8
	Ctrl, Mask, Status uint8
	OAMAddr       uint8
	Scanline, Dot int
	Frame         uint64
	OddFrame      bool
	NMIOccurred, NMIOutput bool
	NMIDelay      int
	Nametables    [0x1000]uint8
	Palette       [32]uint8
	Mirror        memory.MirrorMode
}

func (p *PPU) Snapshot() State {
	nt, pal, mirror := p.vmem.Snapshot()
	return State{
		V: p.v, T: p.t, X: p.x, W: p.w,
		OAM: p.oam, Ctrl: p.ctrl, Mask: p.mask, Status: p.status, OAMAddr: p.oamAddr,
		Scanline: p.scanline, Dot: p.dot, Frame: p.frame, OddFrame: p.oddFrame,
		NMIOccurred: p.nmiOccurred, NMIOutput: p.nmiOutput, NMIDelay: p.nmiDelay,
		Nametables: nt, Palette: pal, Mirror: mirror,
	}
}

func (p *PPU) Restore(s State) {
	p.v, p.t, p.x, p.w = s.V, s.T, s.X, s.W
	p.oam = s.OAM
	p.ctrl, p.mask, p.status, p.oamAddr = s.Ctrl, s.Mask, s.Status, s.OAMAddr
	p.scanline, p.dot, p.frame, p.oddFrame = s.Scanline, s.Dot, s.Frame, s.OddFrame
	p.nmiOccurred, p.nmiOutput, p.nmiDelay = s.NMIOccurred, s.NMIOutput, s.NMIDelay
	p.vmem.Restore(s.Nametables, s.Palette, s.Mirror)
}
