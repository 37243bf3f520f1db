package memory

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// MBC is a cartridge memory bank controller. It sees the ROM area
// (0x0000-0x7FFF) and the external RAM area (0xA000-0xBFFF).
type MBC interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// readROM reads from bank 0 below 0x4000 and from bank above it. Banks past
// the end of the ROM wrap around.
func readROM(rom []uint8, bank uint32, address uint16) uint8 {
	if address < romBankSize {
		return rom[address]
	}
	offset := bank * romBankSize % uint32(len(rom))
	return rom[offset+uint32(address-romBankSize)]
}

// cartRAM is the external RAM shared by all controllers with RAM.
type cartRAM struct {
	data    []uint8
	enabled bool
	bank    uint8
}

func newCartRAM(banks uint8) cartRAM {
	return cartRAM{data: make([]uint8, uint32(banks)*ramBankSize)}
}

func (r *cartRAM) index(address uint16) uint32 {
	return (uint32(r.bank)*ramBankSize + uint32(address-0xA000)) % uint32(len(r.data))
}

func (r *cartRAM) read(address uint16) uint8 {
	if !r.enabled || len(r.data) == 0 {
		return 0xFF
	}
	return r.data[r.index(address)]
}

func (r *cartRAM) write(address uint16, value uint8) {
	if !r.enabled || len(r.data) == 0 {
		return
	}
	r.data[r.index(address)] = value
}

// setEnabled handles writes to 0x0000-0x1FFF: 0x0A in the low nibble enables
// the RAM, anything else disables it.
func (r *cartRAM) setEnabled(value uint8) {
	r.enabled = value&0x0F == 0x0A
}

// NoMBC is a plain 32KB ROM mapped at 0x0000-0x7FFF.
type NoMBC struct {
	rom []uint8
}

func NewNoMBC(rom []uint8) *NoMBC {
	return &NoMBC{rom: rom}
}

func (m *NoMBC) Read(address uint16) uint8 {
	if address >= 0x8000 {
		return 0xFF
	}
	return m.rom[address]
}

func (m *NoMBC) Write(uint16, uint8) {}

// MBC1 supports up to 2MB of ROM and 32KB of RAM. The 2 bit register at
// 0x4000 either extends the ROM bank number or selects the RAM bank,
// depending on the banking mode.
type MBC1 struct {
	rom     []uint8
	ram     cartRAM
	romBank uint8
	upper   uint8
	ramMode bool
}

func NewMBC1(rom []uint8, ramBanks uint8) *MBC1 {
	return &MBC1{rom: rom, ram: newCartRAM(ramBanks), romBank: 1}
}

func (m *MBC1) Read(address uint16) uint8 {
	if address >= 0xA000 {
		return m.ram.read(address)
	}
	return readROM(m.rom, uint32(m.upper<<5|m.romBank), address)
}

func (m *MBC1) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram.setEnabled(value)
	case address < 0x4000:
		m.romBank = value & 0x1F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address < 0x6000:
		m.upper = value & 0x03
		m.syncRAMBank()
	case address < 0x8000:
		m.ramMode = value&0x01 == 1
		m.syncRAMBank()
	case address >= 0xA000:
		m.ram.write(address, value)
	}
}

func (m *MBC1) syncRAMBank() {
	m.ram.bank = 0
	if m.ramMode {
		m.ram.bank = m.upper
	}
}

// MBC3 supports up to 2MB of ROM and 32KB of RAM. The real time clock is not
// emulated: its registers read as 0xFF.
type MBC3 struct {
	rom       []uint8
	ram       cartRAM
	romBank   uint8
	ramSelect uint8
}

func NewMBC3(rom []uint8, ramBanks uint8) *MBC3 {
	return &MBC3{rom: rom, ram: newCartRAM(ramBanks), romBank: 1}
}

func (m *MBC3) Read(address uint16) uint8 {
	if address >= 0xA000 {
		if m.ramSelect > 0x03 {
			return 0xFF
		}
		return m.ram.read(address)
	}
	return readROM(m.rom, uint32(m.romBank), address)
}

func (m *MBC3) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram.setEnabled(value)
	case address < 0x4000:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address < 0x6000:
		m.ramSelect = value
		if value <= 0x03 {
			m.ram.bank = value
		}
	case address < 0x8000:
		// RTC latch
	case address >= 0xA000:
		if m.ramSelect <= 0x03 {
			m.ram.write(address, value)
		}
	}
}

// MBC5 supports up to 8MB of ROM through a 9 bit bank number, and 128KB of
// RAM. Bank 0 can be selected in the switchable area.
type MBC5 struct {
	rom     []uint8
	ram     cartRAM
	romBank uint16
}

func NewMBC5(rom []uint8, ramBanks uint8) *MBC5 {
	return &MBC5{rom: rom, ram: newCartRAM(ramBanks), romBank: 1}
}

func (m *MBC5) Read(address uint16) uint8 {
	if address >= 0xA000 {
		return m.ram.read(address)
	}
	return readROM(m.rom, uint32(m.romBank), address)
}

func (m *MBC5) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram.setEnabled(value)
	case address < 0x3000:
		m.romBank = m.romBank&0x100 | uint16(value)
	case address < 0x4000:
		m.romBank = m.romBank&0xFF | uint16(value&0x01)<<8
	case address < 0x6000:
		m.ram.bank = value & 0x0F
	case address >= 0xA000:
		m.ram.write(address, value)
	}
}
