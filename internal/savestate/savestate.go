// Package savestate implements the binary save-state wire format: a fixed
// header (magic, version, ROM CRC32, frame count, timestamp, ROM name)
// followed by the CPU registers and length-prefixed PPU, APU, cartridge and
// mapper-save blobs.
// Loading rejects anything whose magic, version or ROM CRC32 disagree with
// the running cartridge, so a save state can never be applied against the
// wrong ROM or a format this build doesn't understand.
package savestate

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	magic         = "VELO"
	formatVersion = 2
	romNameSize   = 256
)

// Header is the fixed-size prefix of every save state file.
type Header struct {
	Magic     [4]byte
	Version   uint32
	ROMCRC32  uint32
	FrameCount uint64
	Timestamp int64
	ROMName   [romNameSize]byte
}

// CPUState mirrors cpu.CPU's architectural registers.
type CPUState struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16
	Status  uint8
}

// Payload bundles every component's state. Callers marshal/unmarshal their
// own component state into these opaque byte blobs (PPU/APU/cartridge own
// more state than is worth duplicating field-by-field here); the CPU's
// architectural registers are stored directly since they are small and
// fixed-size.
type Payload struct {
	CPU       CPUState
	PPU       []byte
	APU       []byte
	Cartridge []byte
	MapperSave []byte
}

// Save serializes header + payload. timestamp and frameCount are supplied
// by the caller (the bus/app layer) since this package has no clock.
func Save(romCRC32 uint32, romName string, frameCount uint64, timestamp int64, payload Payload) ([]byte, error) {
	var buf bytes.Buffer
	var h Header
	copy(h.Magic[:], magic)
	h.Version = formatVersion
	h.ROMCRC32 = romCRC32
	h.FrameCount = frameCount
	h.Timestamp = timestamp
	copy(h.ROMName[:], romName)

	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("savestate: writing header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, payload.CPU); err != nil {
		return nil, fmt.Errorf("savestate: writing CPU state: %w", err)
	}
	for _, blob := range [][]byte{payload.PPU, payload.APU, payload.Cartridge, payload.MapperSave} {
		if err := writeBlob(&buf, blob); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeBlob(buf *bytes.Buffer, blob []byte) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(blob))); err != nil {
		return fmt.Errorf("savestate: writing blob length: %w", err)
	}
	if _, err := buf.Write(blob); err != nil {
		return fmt.Errorf("savestate: writing blob: %w", err)
	}
	return nil
}

func readBlob(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("savestate: reading blob length: %w", err)
	}
	blob := make([]byte, n)
	if _, err := r.Read(blob); err != nil && n > 0 {
		return nil, fmt.Errorf("savestate: truncated blob: %w", err)
	}
	return blob, nil
}

// Load validates magic/version/ROM CRC32 against the running cartridge and
// returns the deserialized payload plus the stored frame count/timestamp.
// On any mismatch it returns an error and performs no partial mutation —
// callers must not apply state from a half-read Payload.
func Load(data []byte, expectedROMCRC32 uint32) (Payload, uint64, int64, error) {
	r := bytes.NewReader(data)
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Payload{}, 0, 0, fmt.Errorf("savestate: reading header: %w", err)
	}
	if string(h.Magic[:]) != magic {
		return Payload{}, 0, 0, fmt.Errorf("savestate: bad magic %q", h.Magic)
	}
	if h.Version != formatVersion {
		return Payload{}, 0, 0, fmt.Errorf("savestate: unsupported version %d (want %d)", h.Version, formatVersion)
	}
	if h.ROMCRC32 != expectedROMCRC32 {
		return Payload{}, 0, 0, fmt.Errorf("savestate: ROM CRC32 mismatch: state is for %08X, loaded ROM is %08X", h.ROMCRC32, expectedROMCRC32)
	}

	var payload Payload
	if err := binary.Read(r, binary.LittleEndian, &payload.CPU); err != nil {
		return Payload{}, 0, 0, fmt.Errorf("savestate: reading CPU state: %w", err)
	}
	var err error
	if payload.PPU, err = readBlob(r); err != nil {
		return Payload{}, 0, 0, err
	}
	if payload.APU, err = readBlob(r); err != nil {
		return Payload{}, 0, 0, err
	}
	if payload.Cartridge, err = readBlob(r); err != nil {
		return Payload{}, 0, 0, err
	}
	if payload.MapperSave, err = readBlob(r); err != nil {
		return Payload{}, 0, 0, err
	}
	return payload, h.FrameCount, h.Timestamp, nil
}
