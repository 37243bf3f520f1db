package memory

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash"
)

const (
	titleAddress          = 0x134
	titleLength           = 15
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D
	headerEnd             = 0x150
)

// ErrROMTooSmall is returned for images too short to hold a cartridge header.
var ErrROMTooSmall = errors.New("ROM is too small to contain a cartridge header")

// MBCType is the memory bank controller family of a cartridge.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

func (t MBCType) String() string {
	switch t {
	case NoMBCType:
		return "ROM only"
	case MBC1Type:
		return "MBC1"
	case MBC3Type:
		return "MBC3"
	case MBC5Type:
		return "MBC5"
	}
	return "unknown"
}

// Cartridge is a ROM image plus what its header says about it.
type Cartridge struct {
	data         []byte
	id           uint64
	title        string
	cartType     uint8
	mbcType      MBCType
	ramBankCount uint8
	version      uint8
	checksumOK   bool
}

// NewCartridge creates an empty 32KB cartridge, useful only for debugging purposes.
func NewCartridge() *Cartridge {
	data := make([]byte, 2*romBankSize)
	return &Cartridge{
		data:    data,
		id:      xxhash.Sum64(data),
		title:   "(Untitled)",
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData parses the header of a ROM image. The image is copied
// and padded to a whole number of 16KB banks, at least two.
func NewCartridgeWithData(data []byte) (*Cartridge, error) {
	if len(data) < headerEnd {
		return nil, fmt.Errorf("%w: %d bytes", ErrROMTooSmall, len(data))
	}

	size := max(len(data), 2*romBankSize)
	if rem := size % romBankSize; rem != 0 {
		size += romBankSize - rem
	}
	rom := make([]byte, size)
	copy(rom, data)

	cart := &Cartridge{
		data:         rom,
		id:           xxhash.Sum64(data),
		title:        cleanTitle(data[titleAddress : titleAddress+titleLength]),
		cartType:     data[cartridgeTypeAddress],
		mbcType:      mbcTypeOf(data[cartridgeTypeAddress]),
		ramBankCount: ramBanksOf(data[ramSizeAddress]),
		version:      data[versionNumberAddress],
		checksumOK:   headerChecksum(data) == data[headerChecksumAddress],
	}
	return cart, nil
}

func mbcTypeOf(cartType uint8) MBCType {
	switch cartType {
	case 0x00, 0x08, 0x09:
		return NoMBCType
	case 0x01, 0x02, 0x03:
		return MBC1Type
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return MBC3Type
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return MBC5Type
	}
	return MBCUnknownType
}

// ramBanksOf decodes the RAM size header byte into 8KB banks. The 2KB size
// still gets a whole bank.
func ramBanksOf(code uint8) uint8 {
	switch code {
	case 0x01, 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	}
	return 0
}

func headerChecksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data[titleAddress:headerChecksumAddress] {
		sum = sum - b - 1
	}
	return sum
}

// cleanTitle turns the NUL padded header title into a printable string.
func cleanTitle(raw []byte) string {
	var sb strings.Builder
	for _, b := range raw {
		r := rune(b)
		switch {
		case r == 0:
			r = ' '
		case r > unicode.MaxASCII || !unicode.IsPrint(r):
			r = '?'
		}
		sb.WriteRune(r)
	}

	title := strings.TrimSpace(sb.String())
	if title == "" {
		return "(Untitled)"
	}
	return title
}

func (c *Cartridge) Title() string    { return c.title }
func (c *Cartridge) MBCType() MBCType { return c.mbcType }
func (c *Cartridge) Type() uint8      { return c.cartType }
func (c *Cartridge) Version() uint8   { return c.version }
func (c *Cartridge) ChecksumOK() bool { return c.checksumOK }
func (c *Cartridge) RAMBanks() uint8  { return c.ramBankCount }
func (c *Cartridge) ROMSize() int     { return len(c.data) }

// ID identifies the ROM image by the xxhash of its contents.
func (c *Cartridge) ID() uint64 { return c.id }
