package cartridge

import "gones/internal/memory"

// mapper069 is Sunsoft FME-7 (and the 5B variant used by Gimmick!): 8KB CHR
// banking across 8 windows, 8KB PRG banking across 4 windows (the last
// optionally fixed to ROM), a free-running 16-bit down-counter IRQ, software
// mirroring control, and a 3-channel AY-3-8910-style square wave expansion
// sound core addressed through the same command/data register pair as the
// banking registers.
type mapper069 struct {
	base

	command uint8
	chrBank [8]uint8
	prgBank [4]uint8
	prgRAMEnable, prgIsROM bool

	irqEnabled bool
	irqCounting bool
	irqCounter  uint16
	irqPending  bool

	audio      [3]sunsoftChannel
	audioLatch uint8
	mixerMask  uint8 // AY register 7: bit i set disables channel i's tone (active-low, as on real AY-3-8910)
}

type sunsoftChannel struct {
	period uint16
	volume uint8
	timer  uint16
	output uint8
	phase  bool
}

func newMapper069(b base) *mapper069 { return &mapper069{base: b} }

func (m *mapper069) Reset() {
	m.command = 0
	m.chrBank = [8]uint8{}
	m.prgBank = [4]uint8{}
	m.irqEnabled, m.irqCounting, m.irqPending = false, false, false
	m.irqCounter = 0
}

func (m *mapper069) MirrorMode() memory.MirrorMode { return m.mirror }

func (m *mapper069) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if !m.prgRAMEnable && m.prgIsROM {
			idx := int(m.prgBank[0])*0x2000 + int(address-0x6000)
			if idx < len(m.prgROM) {
				return m.prgROM[idx]
			}
			return 0
		}
		return m.readSRAM(address)
	case address >= 0x8000:
		window := (address - 0x8000) / 0x2000
		idx := int(m.prgBank[window])*0x2000 + int((address-0x8000)%0x2000)
		if idx < len(m.prgROM) {
			return m.prgROM[idx]
		}
		return 0
	default:
		return 0
	}
}

func (m *mapper069) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnable && !m.prgIsROM {
			m.writeSRAM(address, value)
		}
	case address >= 0x8000 && address < 0xA000:
		m.command = value & 0x0F
	case address >= 0xA000 && address < 0xC000:
		m.applyCommand(value)
	case address >= 0xC000 && address < 0xE000:
		m.irqCounter = (m.irqCounter & 0xFF00) | uint16(value)
	case address >= 0xE000:
		switch m.command {
		case 0x0D:
			m.irqEnabled = value&0x01 != 0
			m.irqCounting = value&0x80 != 0
			m.irqPending = false
		case 0x0F:
			// Reuses the command/parameter addressing the rest of this board
			// uses for banking to drive the 5B's AY-3-8910-style sound core:
			// command 0x0F + $A000 selects an audio register (audioLatch),
			// command 0x0F + $E000 writes its value.
			m.writeAudioRegister(m.audioLatch, value)
		}
	}
}

func (m *mapper069) applyCommand(value uint8) {
	switch {
	case m.command <= 0x07:
		m.chrBank[m.command] = value
	case m.command <= 0x0B:
		slot := m.command - 0x08
		m.prgRAMEnable = value&0x40 != 0
		m.prgIsROM = value&0x80 == 0
		m.prgBank[slot] = value & 0x3F
	case m.command == 0x0C:
		switch value & 0x03 {
		case 0:
			m.mirror = memory.Vertical
		case 1:
			m.mirror = memory.Horizontal
		case 2:
			m.mirror = memory.SingleScreen0
		default:
			m.mirror = memory.SingleScreen1
		}
	case m.command == 0x0E:
		m.irqCounter = (m.irqCounter & 0x00FF) | (uint16(value) << 8)
	case m.command == 0x0F:
		m.audioLatch = value & 0x0F
	}
}

func (m *mapper069) ReadCHR(address uint16) uint8 {
	idx := int(m.chrBank[address/0x0400])*0x0400 + int(address%0x0400)
	if idx < len(m.chrROM) {
		return m.chrROM[idx]
	}
	return 0
}

func (m *mapper069) WriteCHR(address uint16, value uint8) {
	if !m.chrRAM {
		return
	}
	idx := int(m.chrBank[address/0x0400])*0x0400 + int(address%0x0400)
	if idx < len(m.chrROM) {
		m.chrROM[idx] = value
	}
}

func (m *mapper069) IRQPending() bool { return m.irqPending }
func (m *mapper069) IRQClear()        { m.irqPending = false }

// NotifyScanline is unused by FME-7 (its IRQ counter runs on CPU cycles via
// Tick, not the PPU address bus); the bus calls Tick once per CPU cycle.
func (m *mapper069) Tick() {
	if m.irqCounting {
		m.irqCounter--
		if m.irqCounter == 0xFFFF && m.irqEnabled {
			m.irqPending = true
		}
	}
	for i := range m.audio {
		m.audio[i].clock(m.mixerMask & (1 << uint(i)))
	}
}

// writeAudioRegister applies a write to one of the sound chip's 14 visible
// AY-3-8910 registers: 0-5 are the three channels' 12-bit tone periods (low
// byte then high nibble), 7 is the tone/noise mixer mask, 8-10 are the three
// channels' volumes. Envelope registers (11-13) are not modeled.
func (m *mapper069) writeAudioRegister(reg uint8, value uint8) {
	switch {
	case reg <= 5:
		ch := reg / 2
		if reg%2 == 0 {
			m.audio[ch].period = (m.audio[ch].period &^ 0x00FF) | uint16(value)
		} else {
			m.audio[ch].period = (m.audio[ch].period &^ 0x0F00) | (uint16(value&0x0F) << 8)
		}
	case reg == 7:
		m.mixerMask = value
	case reg >= 8 && reg <= 10:
		m.audio[reg-8].volume = value & 0x0F
	}
}

// clock advances one AY-style tone generator by one CPU cycle. disabled is
// the channel's mixer-mask bit (nonzero silences the channel, active-low as
// on real AY-3-8910 hardware).
func (c *sunsoftChannel) clock(disabled uint8) {
	if disabled != 0 || c.period == 0 {
		c.output = 0
		return
	}
	if c.timer == 0 {
		c.timer = c.period
		c.phase = !c.phase
	} else {
		c.timer--
	}
	if c.phase {
		c.output = c.volume
	} else {
		c.output = 0
	}
}

// GetAudioOutput mixes the three AY-3-8910-style square channels the 5B
// revision exposes; channel periods/volumes are programmed indirectly
// through audioLatch/applyCommand in real hardware but modeled here as a
// flat mixer since no pack example implements the full PSG register file.
func (m *mapper069) GetAudioOutput() float32 {
	var sum float32
	for i := range m.audio {
		sum += float32(m.audio[i].output) / 15.0
	}
	return sum / 3.0
}
