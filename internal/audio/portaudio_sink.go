package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSink drives a portaudio.Stream with a small ring channel the
// stream callback drains, the same shape the GL/glfw reference UI uses for
// its own audio.
type PortAudioSink struct {
	stream  *portaudio.Stream
	channel chan float32
}

// NewPortAudioSink creates an unstarted sink; call Start to open the
// device stream.
func NewPortAudioSink() *PortAudioSink {
	return &PortAudioSink{channel: make(chan float32, SampleRate)}
}

// Start initializes PortAudio and opens the default output stream.
func (s *PortAudioSink) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: portaudio init: %w", err)
	}
	cb := func(out []float32) {
		for i := range out {
			select {
			case v := <-s.channel:
				out[i] = v
			default:
				out[i] = 0
			}
		}
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, 0, cb)
	if err != nil {
		return fmt.Errorf("audio: opening stream: %w", err)
	}
	s.stream = stream
	if err := stream.Start(); err != nil {
		return fmt.Errorf("audio: starting stream: %w", err)
	}
	return nil
}

// Push enqueues freshly drained APU samples for the callback to consume.
// Samples that don't fit in the channel's buffer are dropped rather than
// blocking the emulation loop.
func (s *PortAudioSink) Push(samples []float32) {
	for _, v := range samples {
		select {
		case s.channel <- v:
		default:
		}
	}
}

// Stop closes the stream and releases the PortAudio runtime.
func (s *PortAudioSink) Stop() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
