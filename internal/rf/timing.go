package rf

import "time"

// PulseTiming is the PWM alphabet of the remote's protocol, in
// microseconds. The values come from an RTL-SDR capture of the original
// handset and must stay inside the receiver's tolerance window (roughly
// ±20%); they are fixed for the life of the process.
type PulseTiming struct {
	ShortHighUs     uint32
	ShortLowUs      uint32
	LongHighUs      uint32
	LongLowUs       uint32
	SyncHighUs      uint32
	SyncLowUs       uint32
	InterFrameGapUs uint32
}

// DefaultTiming matches the captured handset signal: a one bit is
// 102 µs high / 50 µs low, a zero bit the mirror image, and each frame
// opens with a 170/114 µs sync pulse. Frames repeat 50 ms apart.
var DefaultTiming = PulseTiming{
	ShortHighUs:     50,
	ShortLowUs:      102,
	LongHighUs:      102,
	LongLowUs:       50,
	SyncHighUs:      170,
	SyncLowUs:       114,
	InterFrameGapUs: 50000,
}

// InterFrameGap returns the gap between repeated frames as a Duration.
func (t PulseTiming) InterFrameGap() time.Duration {
	return time.Duration(t.InterFrameGapUs) * time.Microsecond
}
