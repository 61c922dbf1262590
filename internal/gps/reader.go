package gps

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// Reader owns the GPS serial port, parses NMEA sentences and keeps the
// most recent combined fix. Run blocks; callers start it on its own
// goroutine and poll Current from the control loop.
type Reader struct {
	port io.ReadWriteCloser

	mu  sync.RWMutex
	fix Fix
}

// NewReader opens the GPS serial port.
func NewReader(portName string, baudRate int) (*Reader, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("gps: open %s: %w", portName, err)
	}

	return &Reader{
		port: port,
		fix:  Fix{HDOP: dopUnknown, VDOP: dopUnknown, PDOP: dopUnknown},
	}, nil
}

// Current returns the most recent fix snapshot.
func (r *Reader) Current() Fix {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fix
}

// Close releases the serial port, which also unblocks Run.
func (r *Reader) Close() error {
	return r.port.Close()
}

// Run reads sentences until the port fails. Sentences that do not parse
// (checksum mismatch, partial line) are dropped silently and the last
// good fix is retained.
func (r *Reader) Run() error {
	reader := bufio.NewReader(r.port)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("gps: read: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// Noisy receivers produce torn lines constantly; not an event.
			continue
		}

		r.mu.Lock()
		r.apply(sentence)
		r.mu.Unlock()
	}
}

// apply folds one parsed sentence into the combined fix.
// Caller holds the write lock.
func (r *Reader) apply(sentence nmea.Sentence) {
	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		r.fix.Latitude = m.Latitude
		r.fix.Longitude = m.Longitude
		r.fix.Altitude = m.Altitude
		r.fix.Satellites = int(m.NumSatellites)
		r.fix.HasFix = m.FixQuality != "0"
		if m.HDOP > 0 {
			r.fix.HDOP = m.HDOP
		}
		r.fix.SampleTime = time.Now()

	case nmea.TypeGSA:
		m := sentence.(nmea.GSA)
		if m.PDOP > 0 {
			r.fix.PDOP = m.PDOP
		}
		if m.HDOP > 0 {
			r.fix.HDOP = m.HDOP
		}
		if m.VDOP > 0 {
			r.fix.VDOP = m.VDOP
		}

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity == "A" {
			r.fix.Latitude = m.Latitude
			r.fix.Longitude = m.Longitude
		}
		r.fix.SpeedKnots = m.Speed
		r.fix.SampleTime = time.Now()
	}
}
