package gps

import (
	"io"
	"math"
	"strings"
	"testing"
)

// fakePort feeds canned NMEA traffic to the reader.
type fakePort struct {
	io.Reader
}

func (f *fakePort) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakePort) Close() error                { return nil }

func newTestReader(lines ...string) *Reader {
	return &Reader{
		port: &fakePort{Reader: strings.NewReader(strings.Join(lines, "\r\n") + "\r\n")},
		fix:  Fix{HDOP: dopUnknown, VDOP: dopUnknown, PDOP: dopUnknown},
	}
}

func TestRunFoldsSentences(t *testing.T) {
	r := newTestReader(
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39",
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
	)

	// Run returns once the port is exhausted.
	if err := r.Run(); err == nil {
		t.Fatalf("Run should fail when the port closes")
	}

	fix := r.Current()
	if !fix.HasFix {
		t.Errorf("HasFix = false, want true")
	}
	if fix.Satellites != 8 {
		t.Errorf("Satellites = %d, want 8", fix.Satellites)
	}
	if math.Abs(fix.Latitude-48.1173) > 1e-4 {
		t.Errorf("Latitude = %v, want ~48.1173", fix.Latitude)
	}
	if math.Abs(fix.Longitude-11.5167) > 1e-4 {
		t.Errorf("Longitude = %v, want ~11.5167", fix.Longitude)
	}
	if fix.Altitude != 545.4 {
		t.Errorf("Altitude = %v, want 545.4", fix.Altitude)
	}
	// GSA refines the dilution values reported by GGA.
	if fix.HDOP != 1.3 {
		t.Errorf("HDOP = %v, want 1.3 (from GSA)", fix.HDOP)
	}
	if fix.PDOP != 2.5 || fix.VDOP != 2.1 {
		t.Errorf("PDOP/VDOP = %v/%v, want 2.5/2.1", fix.PDOP, fix.VDOP)
	}
	if fix.SpeedKnots != 22.4 {
		t.Errorf("SpeedKnots = %v, want 22.4", fix.SpeedKnots)
	}
	if fix.SampleTime.IsZero() {
		t.Errorf("SampleTime not stamped")
	}
}

func TestRunNoFixQuality(t *testing.T) {
	r := newTestReader(
		"$GPGGA,123520,4807.038,N,01131.000,E,0,03,9.9,545.4,M,46.9,M,,*4E",
	)
	r.Run()

	fix := r.Current()
	if fix.HasFix {
		t.Errorf("HasFix = true for fix quality 0")
	}
	if fix.Satellites != 3 {
		t.Errorf("Satellites = %d, want 3", fix.Satellites)
	}
	if fix.Usable() {
		t.Errorf("Usable() = true without a position solution")
	}
}

func TestRunDropsGarbage(t *testing.T) {
	r := newTestReader(
		"garbage before the receiver syncs",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46*00", // bad checksum
		"",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
	)
	r.Run()

	fix := r.Current()
	if !fix.HasFix || fix.Satellites != 8 {
		t.Errorf("good sentence after garbage not applied: %+v", fix)
	}
}

func TestDefaultDilutionUnknown(t *testing.T) {
	r := newTestReader()
	fix := r.Current()
	if fix.HDOP != dopUnknown || fix.VDOP != dopUnknown || fix.PDOP != dopUnknown {
		t.Errorf("fresh reader dilution = %v/%v/%v, want %v", fix.HDOP, fix.VDOP, fix.PDOP, dopUnknown)
	}
}
