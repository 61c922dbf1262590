package compass

import (
	"math"
)

// Calibration holds hard-iron calibration for the magnetometer: min/max
// bounds gathered while the boat is rotated, and the offsets derived
// from them.
type Calibration struct {
	MinX, MinY, MinZ          float64
	MaxX, MaxY, MaxZ          float64
	OffsetX, OffsetY, OffsetZ float64
}

// UpdateBounds widens the min/max envelope with one sample.
func (c *Calibration) UpdateBounds(x, y, z float64) {
	c.MinX = math.Min(c.MinX, x)
	c.MaxX = math.Max(c.MaxX, x)
	c.MinY = math.Min(c.MinY, y)
	c.MaxY = math.Max(c.MaxY, y)
	c.MinZ = math.Min(c.MinZ, z)
	c.MaxZ = math.Max(c.MaxZ, z)
}

// ComputeOffsets derives hard-iron offsets from the gathered bounds.
func (c *Calibration) ComputeOffsets() {
	c.OffsetX = (c.MaxX + c.MinX) / 2.0
	c.OffsetY = (c.MaxY + c.MinY) / 2.0
	c.OffsetZ = (c.MaxZ + c.MinZ) / 2.0
}

// Apply removes the offsets from one sample.
func (c *Calibration) Apply(x, y, z float64) (float64, float64, float64) {
	return x - c.OffsetX, y - c.OffsetY, z - c.OffsetZ
}

// Heading converts a horizontal field vector to a compass heading in
// [0,360). The sensor is assumed to be mounted level.
func Heading(x, y float64) float64 {
	heading := math.Atan2(y, x) * 180.0 / math.Pi
	if heading < 0 {
		heading += 360.0
	}
	return heading
}

// MagReader is the field source behind a Compass. Satisfied by *MMC5603.
type MagReader interface {
	ReadMag() (x, y, z float64, err error)
}

// Compass produces calibrated headings from a magnetometer.
type Compass struct {
	dev         MagReader
	cal         Calibration
	calibrating bool
}

// New wraps a magnetometer with an empty calibration.
func New(dev MagReader) *Compass {
	return &Compass{dev: dev}
}

// ReadHeading samples the field and returns a heading in [0,360).
// While calibrating, every sample also widens the calibration bounds.
func (c *Compass) ReadHeading() (float64, error) {
	x, y, z, err := c.dev.ReadMag()
	if err != nil {
		return 0, err
	}
	if c.calibrating {
		c.cal.UpdateBounds(x, y, z)
	}
	x, y, _ = c.cal.Apply(x, y, z)
	return Heading(x, y), nil
}

// StartCalibration resets the bounds and begins gathering samples.
// The boat should be rotated through all headings while this runs.
func (c *Compass) StartCalibration() {
	c.calibrating = true
	c.cal.MinX, c.cal.MinY, c.cal.MinZ = math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
	c.cal.MaxX, c.cal.MaxY, c.cal.MaxZ = -math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64
}

// StopCalibration derives the offsets from the gathered bounds.
func (c *Compass) StopCalibration() {
	c.calibrating = false
	c.cal.ComputeOffsets()
}

// Calibrating reports whether calibration is in progress.
func (c *Compass) Calibrating() bool {
	return c.calibrating
}

// GetCalibration returns the current calibration values.
func (c *Compass) GetCalibration() Calibration {
	return c.cal
}

// SetCalibration installs previously saved calibration values.
func (c *Compass) SetCalibration(cal Calibration) {
	c.cal = cal
}
