// Package apu implements the NES Audio Processing Unit: two pulse
// channels, a triangle channel, a noise channel, the delta modulation
// channel (DMC) and the frame counter that clocks their envelopes, sweep
// units and length counters.
package apu

import "github.com/golang/glog"

const cpuFrequencyNTSC = 1789773.0

var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

var noisePeriodTableNTSC = [16]uint16{
	4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068,
}

var dmcRateTableNTSC = [16]uint16{
	428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54,
}

var triangleSequence = [32]uint8{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

var pulseDutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

// BusReader lets the DMC channel request a CPU-address-space byte; the bus
// implements this by calling back into Read, which keeps the stolen cycles
// flowing through the normal Tick path.
type BusReader interface {
	Read(address uint16) uint8
}

type envelope struct {
	start      bool
	decay      uint8
	divider    uint8
	loop       bool
	constant   bool
	volume     uint8
}

func (e *envelope) clock() {
	if e.start {
		e.start = false
		e.decay = 15
		e.divider = e.volume
		return
	}
	if e.divider == 0 {
		e.divider = e.volume
		if e.decay > 0 {
			e.decay--
		} else if e.loop {
			e.decay = 15
		}
	} else {
		e.divider--
	}
}

func (e *envelope) output() uint8 {
	if e.constant {
		return e.volume
	}
	return e.decay
}

type sweep struct {
	enabled bool
	period  uint8
	negate  bool
	shift   uint8
	reload  bool
	divider uint8
}

type pulse struct {
	enabled bool
	duty    uint8
	dutyPos uint8

	env envelope
	swp sweep

	timer, timerPeriod uint16
	lengthCounter      uint8
	lengthHalt         bool

	channelTwo bool // pulse 2 negates its sweep in two's complement; pulse 1 subtracts one extra (ones' complement)
}

func (p *pulse) sweepTarget() uint16 {
	change := int(p.timerPeriod) >> p.swp.shift
	if p.swp.negate {
		if p.channelTwo {
			return uint16(int(p.timerPeriod) - change)
		}
		return uint16(int(p.timerPeriod) - change - 1)
	}
	return uint16(int(p.timerPeriod) + change)
}

func (p *pulse) sweepMuting() bool {
	target := p.sweepTarget()
	return p.timerPeriod < 8 || target > 0x7FF
}

func (p *pulse) clockSweep() {
	if p.swp.divider == 0 && p.swp.enabled && p.swp.shift > 0 && !p.sweepMuting() {
		p.timerPeriod = p.sweepTarget()
	}
	if p.swp.divider == 0 || p.swp.reload {
		p.swp.divider = p.swp.period
		p.swp.reload = false
	} else {
		p.swp.divider--
	}
}

func (p *pulse) clockTimer() {
	if p.timer == 0 {
		p.timer = p.timerPeriod
		p.dutyPos = (p.dutyPos + 1) & 7
	} else {
		p.timer--
	}
}

func (p *pulse) output() uint8 {
	if !p.enabled || p.lengthCounter == 0 || p.sweepMuting() || pulseDutyTable[p.duty][p.dutyPos] == 0 {
		return 0
	}
	return p.env.output()
}

type triangle struct {
	enabled bool
	timer, timerPeriod uint16
	lengthCounter uint8
	lengthHalt    bool
	linearCounter uint8
	linearReload  uint8
	linearReloadFlag bool
	sequencePos uint8
}

func (t *triangle) clockTimer() {
	if t.timer == 0 {
		t.timer = t.timerPeriod
		if t.lengthCounter > 0 && t.linearCounter > 0 {
			t.sequencePos = (t.sequencePos + 1) & 31
		}
	} else {
		t.timer--
	}
}

func (t *triangle) clockLinear() {
	if t.linearReloadFlag {
		t.linearCounter = t.linearReload
	} else if t.linearCounter > 0 {
		t.linearCounter--
	}
	if !t.lengthHalt {
		t.linearReloadFlag = false
	}
}

func (t *triangle) output() uint8 {
	return triangleSequence[t.sequencePos]
}

type noise struct {
	enabled bool
	env     envelope
	mode    bool
	period  uint16
	timer   uint16
	lengthCounter uint8
	lengthHalt    bool
	shift   uint16
}

func (n *noise) clockTimer() {
	if n.timer == 0 {
		n.timer = n.period
		var feedbackBit uint16
		if n.mode {
			feedbackBit = (n.shift ^ (n.shift >> 6)) & 1
		} else {
			feedbackBit = (n.shift ^ (n.shift >> 1)) & 1
		}
		n.shift >>= 1
		n.shift |= feedbackBit << 14
	} else {
		n.timer--
	}
}

func (n *noise) output() uint8 {
	if !n.enabled || n.lengthCounter == 0 || n.shift&1 != 0 {
		return 0
	}
	return n.env.output()
}

type dmc struct {
	irqEnabled bool
	loop       bool
	rate       uint16
	timer      uint16

	outputLevel uint8

	sampleAddress, sampleLength uint16
	currentAddress              uint16
	bytesRemaining              uint16

	sampleBuffer      uint8
	sampleBufferEmpty bool
	shiftRegister     uint8
	bitsRemaining     uint8
	silence           bool

	irqFlag bool

	fetchPending bool
}

func (d *dmc) restart() {
	d.currentAddress = d.sampleAddress
	d.bytesRemaining = d.sampleLength
}

// APU is the NES audio processing unit.
type APU struct {
	pulse1, pulse2 pulse
	triangle       triangle
	noise          noise
	dmc            dmc

	frameStep   int
	frameMode   bool // false=4-step, true=5-step
	frameIRQInhibit bool
	frameIRQFlag bool
	frameCycle  int

	cycle uint64

	sampleRate   int
	cycleAccum   float64
	samplesPerCycle float64
	Samples      []float32

	lowpassPrev, highpassPrev1, highpassPrev2 float32

	expansionAudio float32
}

// SetExpansionAudio latches the mapper's expansion-audio output (Namco 163,
// VRC6, VRC7, FME-7...) so the next generated sample includes it. The bus
// calls this once per frame, after RunFrame's CPU loop, since mapper audio
// chips are driven by the mapper's own cycle counter rather than the APU.
func (a *APU) SetExpansionAudio(v float32) { a.expansionAudio = v }

// New creates an APU with NTSC timing and a 44.1kHz output target.
func New() *APU {
	a := &APU{sampleRate: 44100}
	a.pulse2.channelTwo = true
	a.noise.shift = 1
	a.dmc.sampleBufferEmpty = true
	a.dmc.bitsRemaining = 8
	a.samplesPerCycle = float64(a.sampleRate) / cpuFrequencyNTSC
	a.Samples = make([]float32, 0, 4096)
	return a
}

// Reset restores power-on APU state.
func (a *APU) Reset() {
	*a = APU{sampleRate: a.sampleRate, samplesPerCycle: a.samplesPerCycle}
	a.pulse2.channelTwo = true
	a.noise.shift = 1
	a.dmc.sampleBufferEmpty = true
	a.dmc.bitsRemaining = 8
	a.Samples = make([]float32, 0, 4096)
}

// Step advances the APU by one CPU cycle.
func (a *APU) Step() {
	a.cycle++

	// Triangle clocks every CPU cycle; pulses/noise/DMC clock every other
	// (APU runs its sequencer timers at half the CPU rate).
	a.triangle.clockTimer()
	if a.cycle%2 == 0 {
		a.pulse1.clockTimer()
		a.pulse2.clockTimer()
		a.noise.clockTimer()
		a.stepDMCTimer()
	}

	a.stepFrameCounter()
	a.generateSample()
}

func (a *APU) stepDMCTimer() {
	if a.dmc.timer == 0 {
		a.dmc.timer = a.dmc.rate
		if !a.dmc.silence {
			if a.dmc.shiftRegister&1 != 0 {
				if a.dmc.outputLevel <= 125 {
					a.dmc.outputLevel += 2
				}
			} else {
				if a.dmc.outputLevel >= 2 {
					a.dmc.outputLevel -= 2
				}
			}
		}
		a.dmc.shiftRegister >>= 1
		if a.dmc.bitsRemaining > 0 {
			a.dmc.bitsRemaining--
		}
		if a.dmc.bitsRemaining == 0 {
			a.dmc.bitsRemaining = 8
			if a.dmc.sampleBufferEmpty {
				a.dmc.silence = true
			} else {
				a.dmc.silence = false
				a.dmc.shiftRegister = a.dmc.sampleBuffer
				a.dmc.sampleBufferEmpty = true
			}
		}
	} else {
		a.dmc.timer--
	}
	if a.dmc.sampleBufferEmpty && a.dmc.bytesRemaining > 0 {
		a.dmc.fetchPending = true
	}
}

// DMCFetchRequest reports the address the DMC wants fetched, if any; the
// bus services it via Read (which ticks time normally — the "stolen
// cycle" cost is approximated at instruction granularity rather than mid
// instruction).
func (a *APU) DMCFetchRequest() (address uint16, ok bool) {
	if !a.dmc.fetchPending {
		return 0, false
	}
	return a.dmc.currentAddress, true
}

// DeliverDMCByte supplies the byte requested by DMCFetchRequest.
func (a *APU) DeliverDMCByte(value uint8) {
	a.dmc.fetchPending = false
	a.dmc.sampleBuffer = value
	a.dmc.sampleBufferEmpty = false
	a.dmc.currentAddress++
	if a.dmc.currentAddress == 0 {
		a.dmc.currentAddress = 0x8000
	}
	a.dmc.bytesRemaining--
	if a.dmc.bytesRemaining == 0 {
		if a.dmc.loop {
			a.dmc.restart()
		} else if a.dmc.irqEnabled {
			a.dmc.irqFlag = true
		}
	}
}

// stepFrameCounter clocks envelopes and the triangle linear counter on
// every step (except step 3 of 5-step mode, which clocks nothing) and
// length counters/sweep on steps 1 and 3 (4-step) or 1 and 4 (5-step),
// counting steps from 0, matching the well known quarter/half frame
// schedule. The marks are CPU-cycle counts, one per Step call.
var frameSequence4Step = [4]int{7457, 14913, 22371, 29829}
var frameSequence5Step = [5]int{7457, 14913, 22371, 29829, 37281}

func (a *APU) stepFrameCounter() {
	a.frameCycle++
	sequence := frameSequence4Step[:]
	if a.frameMode {
		sequence = frameSequence5Step[:]
	}
	for i, mark := range sequence {
		if a.frameCycle == mark {
			quarter := true
			half := i == 1 || (!a.frameMode && i == 3) || (a.frameMode && i == 4)
			if a.frameMode && i == 3 {
				quarter, half = false, false
			}
			if quarter {
				a.clockQuarterFrame()
			}
			if half {
				a.clockHalfFrame()
			}
			if !a.frameMode && i == 3 && !a.frameIRQInhibit {
				a.frameIRQFlag = true
			}
		}
	}
	maxCycle := 29830
	if a.frameMode {
		maxCycle = 37282
	}
	if a.frameCycle >= maxCycle {
		a.frameCycle = 0
	}
}

func (a *APU) clockQuarterFrame() {
	a.pulse1.env.clock()
	a.pulse2.env.clock()
	a.noise.env.clock()
	a.triangle.clockLinear()
}

func (a *APU) clockHalfFrame() {
	a.clockLengthCounter(&a.pulse1.lengthCounter, a.pulse1.lengthHalt)
	a.clockLengthCounter(&a.pulse2.lengthCounter, a.pulse2.lengthHalt)
	a.clockLengthCounter(&a.triangle.lengthCounter, a.triangle.lengthHalt)
	a.clockLengthCounter(&a.noise.lengthCounter, a.noise.lengthHalt)
	a.pulse1.clockSweep()
	a.pulse2.clockSweep()
}

func (a *APU) clockLengthCounter(counter *uint8, halt bool) {
	if *counter > 0 && !halt {
		*counter--
	}
}

// IRQPending reports whether the frame counter or DMC IRQ line is asserted.
func (a *APU) IRQPending() bool { return a.frameIRQFlag || a.dmc.irqFlag }

// ReadStatus services a CPU read of $4015.
func (a *APU) ReadStatus() uint8 {
	var s uint8
	if a.pulse1.lengthCounter > 0 {
		s |= 0x01
	}
	if a.pulse2.lengthCounter > 0 {
		s |= 0x02
	}
	if a.triangle.lengthCounter > 0 {
		s |= 0x04
	}
	if a.noise.lengthCounter > 0 {
		s |= 0x08
	}
	if a.dmc.bytesRemaining > 0 {
		s |= 0x10
	}
	if a.frameIRQFlag {
		s |= 0x40
	}
	if a.dmc.irqFlag {
		s |= 0x80
	}
	a.frameIRQFlag = false
	return s
}

// WriteRegister services a CPU write in $4000-$4017 (APU registers only;
// $4016 is routed to input by the bus before reaching here).
func (a *APU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x4000:
		a.pulse1.duty = value >> 6
		a.pulse1.lengthHalt = value&0x20 != 0
		a.pulse1.env.loop = a.pulse1.lengthHalt
		a.pulse1.env.constant = value&0x10 != 0
		a.pulse1.env.volume = value & 0x0F
	case 0x4001:
		a.pulse1.swp.enabled = value&0x80 != 0
		a.pulse1.swp.period = (value >> 4) & 0x07
		a.pulse1.swp.negate = value&0x08 != 0
		a.pulse1.swp.shift = value & 0x07
		a.pulse1.swp.reload = true
	case 0x4002:
		a.pulse1.timerPeriod = (a.pulse1.timerPeriod &^ 0x00FF) | uint16(value)
	case 0x4003:
		a.pulse1.timerPeriod = (a.pulse1.timerPeriod &^ 0x0700) | (uint16(value&0x07) << 8)
		if a.pulse1.enabled {
			a.pulse1.lengthCounter = lengthTable[value>>3]
		}
		a.pulse1.env.start = true
		a.pulse1.dutyPos = 0
	case 0x4004:
		a.pulse2.duty = value >> 6
		a.pulse2.lengthHalt = value&0x20 != 0
		a.pulse2.env.loop = a.pulse2.lengthHalt
		a.pulse2.env.constant = value&0x10 != 0
		a.pulse2.env.volume = value & 0x0F
	case 0x4005:
		a.pulse2.swp.enabled = value&0x80 != 0
		a.pulse2.swp.period = (value >> 4) & 0x07
		a.pulse2.swp.negate = value&0x08 != 0
		a.pulse2.swp.shift = value & 0x07
		a.pulse2.swp.reload = true
	case 0x4006:
		a.pulse2.timerPeriod = (a.pulse2.timerPeriod &^ 0x00FF) | uint16(value)
	case 0x4007:
		a.pulse2.timerPeriod = (a.pulse2.timerPeriod &^ 0x0700) | (uint16(value&0x07) << 8)
		if a.pulse2.enabled {
			a.pulse2.lengthCounter = lengthTable[value>>3]
		}
		a.pulse2.env.start = true
		a.pulse2.dutyPos = 0
	case 0x4008:
		a.triangle.lengthHalt = value&0x80 != 0
		a.triangle.linearReload = value & 0x7F
	case 0x400A:
		a.triangle.timerPeriod = (a.triangle.timerPeriod &^ 0x00FF) | uint16(value)
	case 0x400B:
		a.triangle.timerPeriod = (a.triangle.timerPeriod &^ 0x0700) | (uint16(value&0x07) << 8)
		if a.triangle.enabled {
			a.triangle.lengthCounter = lengthTable[value>>3]
		}
		a.triangle.linearReloadFlag = true
	case 0x400C:
		a.noise.lengthHalt = value&0x20 != 0
		a.noise.env.loop = a.noise.lengthHalt
		a.noise.env.constant = value&0x10 != 0
		a.noise.env.volume = value & 0x0F
	case 0x400E:
		a.noise.mode = value&0x80 != 0
		a.noise.period = noisePeriodTableNTSC[value&0x0F]
	case 0x400F:
		if a.noise.enabled {
			a.noise.lengthCounter = lengthTable[value>>3]
		}
		a.noise.env.start = true
	case 0x4010:
		a.dmc.irqEnabled = value&0x80 != 0
		a.dmc.loop = value&0x40 != 0
		a.dmc.rate = dmcRateTableNTSC[value&0x0F]
		if !a.dmc.irqEnabled {
			a.dmc.irqFlag = false
		}
	case 0x4011:
		a.dmc.outputLevel = value & 0x7F
	case 0x4012:
		a.dmc.sampleAddress = 0xC000 + uint16(value)*64
	case 0x4013:
		a.dmc.sampleLength = uint16(value)*16 + 1
	case 0x4015:
		a.pulse1.enabled = value&0x01 != 0
		a.pulse2.enabled = value&0x02 != 0
		a.triangle.enabled = value&0x04 != 0
		a.noise.enabled = value&0x08 != 0
		dmcEnable := value&0x10 != 0
		if !a.pulse1.enabled {
			a.pulse1.lengthCounter = 0
		}
		if !a.pulse2.enabled {
			a.pulse2.lengthCounter = 0
		}
		if !a.triangle.enabled {
			a.triangle.lengthCounter = 0
		}
		if !a.noise.enabled {
			a.noise.lengthCounter = 0
		}
		a.dmc.irqFlag = false
		if !dmcEnable {
			a.dmc.bytesRemaining = 0
		} else if a.dmc.bytesRemaining == 0 {
			a.dmc.restart()
		}
	case 0x4017:
		a.frameMode = value&0x80 != 0
		a.frameIRQInhibit = value&0x40 != 0
		if a.frameIRQInhibit {
			a.frameIRQFlag = false
		}
		a.frameCycle = 0
		if a.frameMode {
			a.clockQuarterFrame()
			a.clockHalfFrame()
		}
	default:
		glog.V(2).Infof("apu: unhandled register write $%04X", address)
	}
}

// generateSample mixes the five channels with the standard non-linear APU
// mixer formulas and appends one output sample whenever the cycle
// accumulator rolls over, downsampling CPU-rate audio to the target sample
// rate.
func (a *APU) generateSample() {
	a.cycleAccum += a.samplesPerCycle
	if a.cycleAccum < 1.0 {
		return
	}
	a.cycleAccum -= 1.0

	p1 := float32(a.pulse1.output())
	p2 := float32(a.pulse2.output())
	t := float32(a.triangle.output())
	n := float32(a.noise.output())
	d := float32(a.dmc.outputLevel)

	var pulseOut float32
	if p1+p2 > 0 {
		pulseOut = 95.88 / (8128/(p1+p2) + 100)
	}
	var tndOut float32
	tndSum := t/8227 + n/12241 + d/22638
	if tndSum > 0 {
		tndOut = 159.79 / (1/tndSum + 100)
	}
	// Expansion audio sums in post-mixer, the way a real cartridge's sound
	// chip is wired onto the console's shared audio output line rather than
	// through the 2A03's internal non-linear mixer.
	sample := pulseOut + tndOut + 0.25*a.expansionAudio

	// One-pole low-pass then DC-blocking high-pass, matching the
	// characteristic NES audio output filter chain.
	a.lowpassPrev = a.lowpassPrev + 0.815*(sample-a.lowpassPrev)
	filtered := a.lowpassPrev
	hp := filtered - a.highpassPrev1 + 0.996*a.highpassPrev2
	a.highpassPrev1 = filtered
	a.highpassPrev2 = hp

	a.Samples = append(a.Samples, hp)
}

// DrainSamples returns and clears the accumulated sample buffer.
func (a *APU) DrainSamples() []float32 {
	out := a.Samples
	a.Samples = make([]float32, 0, 4096)
	return out
}
