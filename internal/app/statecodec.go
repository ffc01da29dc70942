package app

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gones/internal/bus"
	"gones/internal/ppu"
)

// marshalGob encodes any gob-compatible value; used for the PPU snapshot,
// whose shift-register/scroll-latch internals are too numerous to hand-roll
// a binary layout for without duplicating the ppu package's own struct.
func marshalGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalPPUState(b *bus.Bus, blob []byte) error {
	var state ppu.State
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&state); err != nil {
		return fmt.Errorf("decoding PPU state: %w", err)
	}
	b.PPU.Restore(state)
	return nil
}
