package gps

import "time"

// dopUnknown is what receivers report when a dilution value is not
// available. A fix carrying it is treated as acceptable rather than bad.
const dopUnknown = 99.9

// Fix is a single combined GPS fix assembled from RMC/GGA/GSA sentences.
type Fix struct {
	Latitude   float64   `json:"lat"`         // decimal degrees, signed
	Longitude  float64   `json:"lon"`         // decimal degrees, signed
	Altitude   float64   `json:"alt"`         // meters above MSL
	Satellites int       `json:"satellites"`  // satellites used in solution
	HasFix     bool      `json:"has_fix"`     // receiver reports a position solution
	HDOP       float64   `json:"hdop"`        // 99.9 = unknown
	VDOP       float64   `json:"vdop"`        // 99.9 = unknown
	PDOP       float64   `json:"pdop"`        // 99.9 = unknown
	SpeedKnots float64   `json:"speed_knots"` // speed over ground
	SampleTime time.Time `json:"sample_time"`
}

// Usable reports whether the fix is good enough to steer on: a position
// solution from at least 4 satellites with HDOP under 5. An unknown HDOP
// (99.9) is accepted; only a reported-bad one disqualifies the fix.
func (f Fix) Usable() bool {
	if !f.HasFix || f.Satellites < 4 {
		return false
	}
	if f.HDOP == dopUnknown {
		return true
	}
	return f.HDOP > 0 && f.HDOP < 5.0
}
