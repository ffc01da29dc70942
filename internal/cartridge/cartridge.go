// Package cartridge loads iNES ROM images and dispatches CPU/PPU bus
// accesses to the correct mapper board.
package cartridge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/glog"

	"gones/internal/memory"
)

const (
	headerMagic0 = 'N'
	headerMagic1 = 'E'
	headerMagic2 = 'S'
	headerMagic3 = 0x1A
	trainerSize  = 512
	prgBankSize  = 0x4000
	chrBankSize  = 0x2000
)

type iNESHeader struct {
	Magic    [4]byte
	PRGBanks uint8
	CHRBanks uint8
	Flags6   uint8
	Flags7   uint8
	Flags8   uint8
	Flags9   uint8
	Flags10  uint8
	_        [5]byte
}

// Cartridge owns the raw PRG/CHR images and the mapper that interprets
// them. It is the unit save states checkpoint ROM identity against, via
// ROMCRC32.
type Cartridge struct {
	mapper     Mapper
	mapperID   uint16
	hasBattery bool
	romCRC32   uint32
}

// Load parses an iNES (or NES 2.0, read as iNES) image and constructs the
// matching mapper. It never mutates data outside the returned Cartridge.
func Load(data []byte) (*Cartridge, error) {
	reader := bytes.NewReader(data)
	var header iNESHeader
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("cartridge: reading header: %w", err)
	}
	if header.Magic[0] != headerMagic0 || header.Magic[1] != headerMagic1 ||
		header.Magic[2] != headerMagic2 || header.Magic[3] != headerMagic3 {
		return nil, fmt.Errorf("cartridge: not an iNES image (bad magic)")
	}
	if header.PRGBanks == 0 {
		return nil, fmt.Errorf("cartridge: header declares zero PRG ROM banks")
	}

	hasTrainer := header.Flags6&0x04 != 0
	if hasTrainer {
		if _, err := io.CopyN(io.Discard, reader, trainerSize); err != nil {
			return nil, fmt.Errorf("cartridge: truncated trainer: %w", err)
		}
	}

	prgSize := int(header.PRGBanks) * prgBankSize
	prgROM := make([]uint8, prgSize)
	if _, err := io.ReadFull(reader, prgROM); err != nil {
		return nil, fmt.Errorf("cartridge: truncated PRG ROM: %w", err)
	}

	chrRAM := header.CHRBanks == 0
	chrSize := int(header.CHRBanks) * chrBankSize
	if chrRAM {
		chrSize = chrBankSize // 8KB CHR RAM is the common default
	}
	chrROM := make([]uint8, chrSize)
	if !chrRAM {
		if _, err := io.ReadFull(reader, chrROM); err != nil {
			return nil, fmt.Errorf("cartridge: truncated CHR ROM: %w", err)
		}
	}

	mapperID := uint16(header.Flags7&0xF0) | uint16(header.Flags6>>4)
	isNES20 := header.Flags7&0x0C == 0x08
	if isNES20 {
		// NES 2.0's extension byte packs the mapper number's high nibble
		// (bits 8-11) alongside the submapper number; only the mapper
		// nibble affects board selection here.
		mapperID |= uint16(header.Flags8&0x0F) << 8
	}
	mirror := memory.Horizontal
	if header.Flags6&0x01 != 0 {
		mirror = memory.Vertical
	}
	if header.Flags6&0x08 != 0 {
		mirror = memory.FourScreen
	}
	hasBattery := header.Flags6&0x02 != 0

	cart := &Cartridge{
		mapperID:   mapperID,
		hasBattery: hasBattery,
		romCRC32:   crc32.ChecksumIEEE(data),
	}
	mapper, err := createMapper(mapperID, prgROM, chrROM, chrRAM, mirror)
	if err != nil {
		return nil, err
	}
	cart.mapper = mapper
	return cart, nil
}

// Mapper returns the board handling this cartridge's bus accesses.
func (c *Cartridge) Mapper() Mapper { return c.mapper }

// MapperID returns the iNES (or NES 2.0) mapper number, for `cmd/gones info`
// and logs.
func (c *Cartridge) MapperID() uint16 { return c.mapperID }

// HasBattery reports whether PRG RAM should be persisted across runs.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// ROMCRC32 is computed once over the whole file at load time and is stored
// in save states; a save state whose CRC32 disagrees belongs to a different
// ROM and is rejected rather than loaded against the wrong cartridge.
func (c *Cartridge) ROMCRC32() uint32 { return c.romCRC32 }

func (c *Cartridge) ReadPRG(address uint16) uint8   { return c.mapper.ReadPRG(address) }
func (c *Cartridge) WritePRG(address uint16, v uint8) { c.mapper.WritePRG(address, v) }
func (c *Cartridge) ReadCHR(address uint16) uint8   { return c.mapper.ReadCHR(address) }
func (c *Cartridge) WriteCHR(address uint16, v uint8) { c.mapper.WriteCHR(address, v) }

// createMapper builds the board for a given iNES mapper number. Unsupported
// numbers fall back to NROM with a warning rather than failing the load —
// many test ROMs and homebrews declare a mapper number defensively even
// when they only use NROM-compatible behavior.
func createMapper(id uint16, prgROM, chrROM []uint8, chrRAM bool, mirror memory.MirrorMode) (Mapper, error) {
	b := base{prgROM: prgROM, chrROM: chrROM, chrRAM: chrRAM, mirror: mirror}
	switch id {
	case 0:
		return newMapper000(b), nil
	case 1:
		return newMapper001(b), nil
	case 2:
		return newMapper002(b), nil
	case 3:
		return newMapper003(b), nil
	case 4:
		return newMapper004(b), nil
	case 5:
		return newMapper005(b), nil
	case 7:
		return newMapper007(b), nil
	case 9:
		return newMapper009(b), nil
	case 10:
		return newMapper010(b), nil
	case 11:
		return newMapper011(b), nil
	case 16:
		return newMapper016(b), nil
	case 19:
		return newMapper019(b), nil
	case 20:
		return newMapper020(b), nil
	case 21, 22, 23, 25:
		return newMapper021(b), nil
	case 24, 26:
		return newMapper024(b), nil
	case 34:
		return newMapper034(b), nil
	case 66:
		return newMapper066(b), nil
	case 69:
		return newMapper069(b), nil
	case 71:
		return newMapper071(b), nil
	case 79:
		return newMapper079(b), nil
	case 85:
		return newMapper085(b), nil
	case 206:
		return newMapper206(b), nil
	default:
		glog.Warningf("cartridge: mapper %d not implemented, falling back to NROM", id)
		return newMapper000(b), nil
	}
}
