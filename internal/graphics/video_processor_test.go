package graphics

import "testing"

func TestProcessFrameNoopAtDefaults(t *testing.T) {
	vp := NewVideoProcessor(1.0, 1.0, 1.0)
	frame := []uint32{0x112233, 0xAABBCC}
	out := vp.ProcessFrame(frame, false, 0)
	for i, px := range out {
		if px != frame[i] {
			t.Fatalf("pixel %d = %#x, want unchanged %#x", i, px, frame[i])
		}
	}
}

func TestProcessFrameGrayscaleCollapsesChannels(t *testing.T) {
	vp := NewVideoProcessor(1.0, 1.0, 1.0)
	frame := []uint32{0xFF0000} // pure red
	out := vp.ProcessFrame(frame, true, 0)
	r := (out[0] >> 16) & 0xFF
	g := (out[0] >> 8) & 0xFF
	b := out[0] & 0xFF
	if r != g || g != b {
		t.Fatalf("grayscale pixel has unequal channels: r=%d g=%d b=%d", r, g, b)
	}
}

func TestProcessFrameEmphasisAttenuatesOtherChannels(t *testing.T) {
	vp := NewVideoProcessor(1.0, 1.0, 1.0)
	frame := []uint32{0x808080} // neutral gray, easy to see attenuation on
	out := vp.ProcessFrame(frame, false, 0x01) // emphasize red
	r := (out[0] >> 16) & 0xFF
	g := (out[0] >> 8) & 0xFF
	b := out[0] & 0xFF
	if g >= 0x80 || b >= 0x80 {
		t.Fatalf("emphasizing red should attenuate green/blue: g=%d b=%d", g, b)
	}
	if r < 0x7E {
		t.Fatalf("emphasizing red should leave red roughly unchanged: r=%d", r)
	}
}

func TestProcessFrameBrightnessScalesChannels(t *testing.T) {
	vp := NewVideoProcessor(0.5, 1.0, 1.0)
	frame := []uint32{0x808080}
	out := vp.ProcessFrame(frame, false, 0)
	r := (out[0] >> 16) & 0xFF
	if r >= 0x80 {
		t.Fatalf("brightness 0.5 should darken the frame, got r=%d", r)
	}
}
