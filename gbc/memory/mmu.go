package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/audio"
	"github.com/valerio/go-gbc/gbc/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

const bootROMSize = 0x100

// SerialPort is a device connected to SB/SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// Option configures an MMU in New.
type Option func(*MMU)

// WithSerial connects port to the serial registers instead of the default
// capture device.
func WithSerial(port SerialPort) Option {
	return func(m *MMU) {
		m.serial = port
	}
}

// MMU allows access to all memory mapped I/O and data/registers
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	regionMap [256]memRegion

	boot       []byte
	bootMapped bool

	APU    *audio.APU
	joypad *Joypad
	serial SerialPort
	timer  Timer
}

// New creates a new memory unit with nothing in the cartridge slot.
func New(opts ...Option) *MMU {
	m := &MMU{
		memory: make([]byte, 0x10000),
		APU:    audio.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.serial == nil {
		m.serial = serial.NewCapture(func() { m.RequestInterrupt(addr.SerialInterrupt) })
	}
	m.timer.TimerInterruptHandler = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.joypad = NewJoypad(func() { m.RequestInterrupt(addr.JoypadInterrupt) })

	initRegionMap(m)
	m.Reset()
	return m
}

// NewWithCartridge creates a new memory unit with cart inserted.
func NewWithCartridge(cart *Cartridge, opts ...Option) *MMU {
	m := New(opts...)
	m.cart = cart

	switch cart.mbcType {
	case NoMBCType:
		m.mbc = NewNoMBC(cart.data)
	case MBC1Type:
		m.mbc = NewMBC1(cart.data, cart.ramBankCount)
	case MBC3Type:
		m.mbc = NewMBC3(cart.data, cart.ramBankCount)
	case MBC5Type:
		m.mbc = NewMBC5(cart.data, cart.ramBankCount)
	default:
		slog.Error("unsupported cartridge", "type", fmt.Sprintf("0x%02X", cart.cartType))
		panic(fmt.Sprintf("unsupported MBC type: 0x%02X", cart.cartType))
	}

	return m
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0xFF; i++ {
		switch {
		case i <= 0x7F:
			m.regionMap[i] = regionROM
		case i <= 0x9F:
			m.regionMap[i] = regionVRAM
		case i <= 0xBF:
			m.regionMap[i] = regionExtRAM
		case i <= 0xDF:
			m.regionMap[i] = regionWRAM
		case i <= 0xFD:
			m.regionMap[i] = regionEcho
		case i == 0xFE:
			m.regionMap[i] = regionOAM
		default:
			m.regionMap[i] = regionIO
		}
	}
}

// LoadBootROM maps a 256 byte boot ROM over 0x0000-0x00FF until the
// program writes to 0xFF50.
func (m *MMU) LoadBootROM(data []byte) error {
	if len(data) != bootROMSize {
		return fmt.Errorf("boot ROM must be %d bytes, got %d", bootROMSize, len(data))
	}
	m.boot = append([]byte(nil), data...)
	m.bootMapped = true
	return nil
}

// BootROMMapped reports whether reads below 0x100 hit the boot ROM.
func (m *MMU) BootROMMapped() bool {
	return m.bootMapped
}

// Joypad returns the keys wired to P1.
func (m *MMU) Joypad() *Joypad {
	return m.joypad
}

// Cartridge returns the inserted cartridge, nil if the slot is empty.
func (m *MMU) Cartridge() *Cartridge {
	return m.cart
}

// Reset clears RAM and IO back to their power-on values. The cartridge
// stays inserted and a loaded boot ROM is mapped again.
func (m *MMU) Reset() {
	for i := 0x8000; i < len(m.memory); i++ {
		if m.regionMap[i>>8] != regionExtRAM {
			m.memory[i] = 0
		}
	}
	m.bootMapped = m.boot != nil
	m.timer = Timer{TimerInterruptHandler: m.timer.TimerInterruptHandler}
	m.serial.Reset()
	m.joypad.Reset()
	m.APU.Reset()

	m.memory[addr.IF] = 0xE1
	m.memory[addr.LCDC] = 0x91
	m.memory[addr.STAT] = 0x85
	m.memory[addr.BGP] = 0xFC
	m.memory[addr.OBP0] = 0xFF
	m.memory[addr.OBP1] = 0xFF
	m.APU.WriteRegister(addr.NR52, 0xF1)
}

// Tick advances the timer and the serial port.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	m.serial.Tick(cycles)
}

// RequestInterrupt sets the IF bit of interrupt.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] |= interrupt.Mask()
}

// PendingInterrupts returns the requested interrupts that are also enabled.
func (m *MMU) PendingInterrupts() uint8 {
	return m.memory[addr.IE] & m.memory[addr.IF] & addr.InterruptMask
}

// AckInterrupt clears the IF bit of a serviced interrupt.
func (m *MMU) AckInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] &^= interrupt.Mask()
}

func (m *MMU) Read16(address uint16) uint16 {
	return uint16(m.Read(address+1))<<8 | uint16(m.Read(address))
}

func (m *MMU) Write16(address uint16, value uint16) {
	m.Write(address, uint8(value))
	m.Write(address+1, uint8(value>>8))
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.bootMapped && address < bootROMSize {
			return m.boot[address]
		}
		if m.mbc == nil {
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionVRAM, regionWRAM, regionOAM:
		return m.memory[address]
	case regionEcho:
		return m.memory[address-0x2000]
	case regionIO:
		switch {
		case address == addr.P1:
			return m.joypad.Read()
		case address == addr.SB || address == addr.SC:
			return m.serial.Read(address)
		case address >= addr.DIV && address <= addr.TAC:
			return m.timer.Read(address)
		case address >= addr.AudioStart && address <= addr.AudioEnd:
			return m.APU.ReadRegister(address)
		case address == addr.IF:
			// upper 3 bits are unused and always read as 1
			return m.memory[address] | 0xE0
		}
		return m.memory[address]
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.mbc == nil {
			slog.Debug("write to cartridge space with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.Write(address, value)
	case regionVRAM, regionWRAM, regionOAM:
		m.memory[address] = value
	case regionEcho:
		m.memory[address-0x2000] = value
	case regionIO:
		switch {
		case address == addr.P1:
			m.joypad.Write(value)
		case address == addr.SB || address == addr.SC:
			m.serial.Write(address, value)
		case address >= addr.DIV && address <= addr.TAC:
			m.timer.Write(address, value)
		case address >= addr.AudioStart && address <= addr.AudioEnd:
			m.APU.WriteRegister(address, value)
		case address == addr.IF:
			m.memory[address] = value | 0xE0
		case address == addr.DMA:
			m.dma(value)
		case address == addr.BootROMDisable:
			if value != 0 && m.bootMapped {
				slog.Debug("boot ROM unmapped")
				m.bootMapped = false
			}
			m.memory[address] = value
		default:
			m.memory[address] = value
		}
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

// dma copies 160 bytes from value<<8 into OAM.
func (m *MMU) dma(value byte) {
	source := uint16(value) << 8
	for i := range uint16(0xA0) {
		m.memory[addr.OAMStart+i] = m.Read(source + i)
	}
	m.memory[addr.DMA] = value
}
