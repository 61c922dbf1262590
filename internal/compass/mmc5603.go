package compass

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// MMC5603 register map (single-shot measurement path only).
const (
	regXout0     = 0x00 // 9 output bytes start here
	regStatus1   = 0x18
	regControl0  = 0x1B
	regProductID = 0x39

	productID = 0x10

	ctrlTakeMeasM   = 0x01 // trigger one magnetic measurement
	ctrlDoSet       = 0x08 // restore sensor characteristics after power-up
	statusMeasMDone = 0x40
)

// countsPerMicrotesla: 16384 counts/gauss at 20-bit resolution, 100 µT/gauss.
const countsPerMicrotesla = 163.84

// measurementOffset is the mid-scale zero of the 20-bit output.
const measurementOffset = 1 << 19

// MMC5603 is a minimal driver for the MMC5603NJ magnetometer, enough to
// take single-shot field readings for heading computation.
type MMC5603 struct {
	dev i2c.Dev
}

// NewMMC5603 probes the device on the bus and issues the initial SET
// pulse that restores the sensing film after power-up.
func NewMMC5603(bus i2c.Bus, addr uint16) (*MMC5603, error) {
	if addr == 0 {
		addr = 0x30
	}
	m := &MMC5603{dev: i2c.Dev{Bus: bus, Addr: addr}}

	id, err := m.readReg(regProductID)
	if err != nil {
		return nil, fmt.Errorf("compass: product ID read: %w", err)
	}
	if id != productID {
		return nil, fmt.Errorf("compass: unexpected product ID 0x%02X (want 0x%02X)", id, productID)
	}

	if err := m.writeReg(regControl0, ctrlDoSet); err != nil {
		return nil, fmt.Errorf("compass: SET pulse: %w", err)
	}
	time.Sleep(time.Millisecond)

	return m, nil
}

// ReadMag triggers one measurement and returns the field in µT.
func (m *MMC5603) ReadMag() (x, y, z float64, err error) {
	if err := m.writeReg(regControl0, ctrlTakeMeasM); err != nil {
		return 0, 0, 0, fmt.Errorf("compass: trigger measurement: %w", err)
	}

	// Worst-case conversion is ~8 ms; poll the done bit with a bound.
	deadline := time.Now().Add(20 * time.Millisecond)
	for {
		status, err := m.readReg(regStatus1)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("compass: status read: %w", err)
		}
		if status&statusMeasMDone != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, 0, 0, fmt.Errorf("compass: measurement timed out")
		}
		time.Sleep(time.Millisecond)
	}

	raw := make([]byte, 9)
	if err := m.dev.Tx([]byte{regXout0}, raw); err != nil {
		return 0, 0, 0, fmt.Errorf("compass: output read: %w", err)
	}

	// 20-bit outputs: two high bytes per axis, then 4 extra bits per axis
	// in the trailing bytes.
	rx := uint32(raw[0])<<12 | uint32(raw[1])<<4 | uint32(raw[6])>>4
	ry := uint32(raw[2])<<12 | uint32(raw[3])<<4 | uint32(raw[7])>>4
	rz := uint32(raw[4])<<12 | uint32(raw[5])<<4 | uint32(raw[8])>>4

	x = (float64(rx) - measurementOffset) / countsPerMicrotesla
	y = (float64(ry) - measurementOffset) / countsPerMicrotesla
	z = (float64(rz) - measurementOffset) / countsPerMicrotesla
	return x, y, z, nil
}

func (m *MMC5603) readReg(reg byte) (byte, error) {
	rx := make([]byte, 1)
	if err := m.dev.Tx([]byte{reg}, rx); err != nil {
		return 0, err
	}
	return rx[0], nil
}

func (m *MMC5603) writeReg(reg, value byte) error {
	return m.dev.Tx([]byte{reg, value}, nil)
}
