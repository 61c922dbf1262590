package rf

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// RFM69 register map (the subset this project touches).
const (
	regOpMode        = 0x01
	regDataModul     = 0x02
	regBitrateMSB    = 0x03
	regBitrateLSB    = 0x04
	regFdevMSB       = 0x05
	regFdevLSB       = 0x06
	regFrfMSB        = 0x07
	regFrfMid        = 0x08
	regFrfLSB        = 0x09
	regVersion       = 0x10
	regPALevel       = 0x11
	regPacketConfig1 = 0x37
	regTestDagc      = 0x6F
)

const (
	opModeStandby = 0x04
	opModeTx      = 0x0C

	// Every RFM69 variant reports this in regVersion; anything else means
	// the wrong chip or a dead SPI bus.
	chipVersion = 0x24
)

// Carrier parameters from the RTL-SDR capture of the remote. The data pin
// gates this carrier directly, so the packet engine stays disabled.
const (
	carrierHz   = 433032000.0
	deviationHz = 22500.0
	bitrateBps  = 6400.0

	// Synthesizer step: 32 MHz crystal / 2^19.
	freqStepHz = 61.03515625
)

// synthRegisters derives the FRF, FDEV and bitrate register values from
// the carrier parameters. The quotients are fractional, so they are
// truncated at runtime the way the chip's datasheet arithmetic expects.
func synthRegisters() (frf uint32, fdev uint16, bitrate uint16) {
	step := freqStepHz
	frf = uint32(carrierHz / step)
	fdev = uint16(deviationHz / step)
	bitrate = uint16(32000000.0 / bitrateBps)
	return frf, fdev, bitrate
}

// Radio is the RFM69HCW front-end. Begin puts it into a steady
// carrier-ready state once; per-frame the transmitter only flips between
// TX and standby.
type Radio struct {
	port spi.PortCloser
	conn spi.Conn
	rst  gpio.PinOut
}

// NewRadio opens the SPI device and the reset pin. The chip is not
// touched until Begin.
func NewRadio(spiDev, resetPin string) (*Radio, error) {
	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("rf: SPI open (%s): %w", spiDev, err)
	}
	conn, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("rf: SPI connect: %w", err)
	}

	var rst gpio.PinOut
	if resetPin != "" {
		rst = gpioreg.ByName(resetPin)
		if rst == nil {
			port.Close()
			return nil, fmt.Errorf("rf: reset pin %q not found", resetPin)
		}
	}

	return &Radio{port: port, conn: conn, rst: rst}, nil
}

// Begin resets the chip, verifies its identity and configures the fixed
// carrier: frequency, deviation, bitrate, packet engine off, PA on.
// It must succeed before any transmission.
func (r *Radio) Begin() error {
	if err := r.reset(); err != nil {
		return err
	}

	version, err := r.readReg(regVersion)
	if err != nil {
		return fmt.Errorf("rf: version read: %w", err)
	}
	if version != chipVersion {
		return fmt.Errorf("rf: unexpected chip version 0x%02X (want 0x%02X)", version, chipVersion)
	}

	frf, fdev, bitrate := synthRegisters()

	steps := []struct {
		reg byte
		val byte
	}{
		{regOpMode, opModeStandby},
		{regDataModul, 0x00}, // FSK, packet shaping off
		{regFrfMSB, byte(frf >> 16)},
		{regFrfMid, byte(frf >> 8)},
		{regFrfLSB, byte(frf)},
		{regFdevMSB, byte(fdev >> 8)},
		{regFdevLSB, byte(fdev)},
		{regBitrateMSB, byte(bitrate >> 8)},
		{regBitrateLSB, byte(bitrate)},
		{regPALevel, 0x9F},       // PA1+PA2 high power, max output
		{regPacketConfig1, 0x00}, // unlimited/raw: bypass the packet engine
		{regTestDagc, 0x30},
	}
	for _, s := range steps {
		if err := r.writeReg(s.reg, s.val); err != nil {
			return fmt.Errorf("rf: write reg 0x%02X: %w", s.reg, err)
		}
	}

	log.Printf("rf: front-end ready (%.3f MHz, %.1f kHz dev, %d bps)",
		carrierHz/1e6, deviationHz/1e3, int(bitrateBps))
	return nil
}

// SetModeTx keys the carrier on.
func (r *Radio) SetModeTx() error {
	return r.writeReg(regOpMode, opModeTx)
}

// SetModeStandby drops back to standby between frames.
func (r *Radio) SetModeStandby() error {
	return r.writeReg(regOpMode, opModeStandby)
}

// Close releases the SPI port.
func (r *Radio) Close() error {
	return r.port.Close()
}

// reset performs the chip's hard-reset pulse if a reset pin is wired.
func (r *Radio) reset() error {
	if r.rst == nil {
		return nil
	}
	// Active-high reset pulse, then give the oscillator time to settle.
	if err := r.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("rf: reset pin: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := r.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("rf: reset pin: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// writeReg writes one register (address with the write bit set, then the
// value, in a single chip-select window).
func (r *Radio) writeReg(addr, value byte) error {
	return r.conn.Tx([]byte{addr | 0x80, value}, nil)
}

// readReg reads one register.
func (r *Radio) readReg(addr byte) (byte, error) {
	rx := make([]byte, 2)
	if err := r.conn.Tx([]byte{addr & 0x7F, 0x00}, rx); err != nil {
		return 0, err
	}
	return rx[1], nil
}
