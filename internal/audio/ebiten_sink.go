// Package audio adapts the APU's float32 sample stream to a host audio
// backend. Two sinks are provided: EbitenSink (the default, riding on the
// same Ebitengine dependency the graphics backend already pulls in) and
// PortAudioSink (an alternate backend for the raw-GL windowing path, which
// has no audio story of its own).
package audio

import (
	"io"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const SampleRate = 44100

// Source is satisfied by *apu.APU; kept narrow so this package doesn't
// import internal/apu and create a dependency cycle with internal/bus.
type Source interface {
	DrainSamples() []float32
}

// EbitenSink streams APU samples to Ebitengine's audio context through a
// pull-based io.Reader, the same shape Ebitengine examples use for
// synthesized audio.
type EbitenSink struct {
	ctx    *audio.Context
	player *audio.Player
	source Source
	pending []byte
}

// NewEbitenSink creates a sink bound to src. ctx is typically the
// process-wide *audio.Context (Ebitengine requires exactly one).
func NewEbitenSink(ctx *audio.Context, src Source) (*EbitenSink, error) {
	s := &EbitenSink{ctx: ctx, source: src}
	player, err := ctx.NewPlayer(s)
	if err != nil {
		return nil, err
	}
	s.player = player
	return s, nil
}

// Start begins playback; call once after construction.
func (s *EbitenSink) Start() { s.player.Play() }

// Read implements io.Reader by converting newly drained float32 mono
// samples into signed 16-bit stereo PCM, the format Ebitengine's audio
// context expects.
func (s *EbitenSink) Read(p []byte) (int, error) {
	for len(s.pending) < len(p) {
		samples := s.source.DrainSamples()
		if len(samples) == 0 {
			break
		}
		for _, f := range samples {
			v := int16(clampf(f) * 32767)
			s.pending = append(s.pending, byte(v), byte(v>>8), byte(v), byte(v>>8))
		}
	}
	if len(s.pending) == 0 {
		// No samples ready yet; hand back silence rather than blocking so
		// the emulator's frame loop never stalls on audio underrun.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

var _ io.Reader = (*EbitenSink)(nil)

func clampf(f float32) float32 {
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}
