package telemetry

import (
	"bytes"
	"log"
	"time"
)

const (
	// fragmentHeaderSize is sequence + totalFragments + 16-bit big-endian
	// length of the original unfragmented payload.
	fragmentHeaderSize = 4
	maxFragments       = 255

	// DefaultMTU is the conservative payload limit assumed after every
	// connect. RaisedMTU is the optimistic limit adopted once the link
	// has proven it can carry near-full messages.
	DefaultMTU = 20
	RaisedMTU  = 185

	// mtuUtilization: a message must fill at least this share of the
	// effective MTU before a successful send justifies raising it.
	mtuUtilization = 0.9

	// interFragmentDelay paces fragments so the receiver's reassembly
	// keeps up. Flow control only; there is no acknowledgment.
	interFragmentDelay = 30 * time.Millisecond
)

// fallbackPayload replaces any outbound payload that fails validation or
// cannot be fragmented. It must pass ValidPayload and fit DefaultMTU so
// it always goes out whole, even on a freshly reset link.
var fallbackPayload = []byte(`{"error":"status"}`)

// Framer validates and fragments outbound status payloads for a
// small-message transport. Not safe for concurrent use; it belongs to
// the control loop.
type Framer struct {
	mtu   int
	write func([]byte) error
	sleep func(time.Duration)
}

// NewFramer returns a framer that emits raw fragments through write,
// starting at the conservative MTU.
func NewFramer(write func([]byte) error) *Framer {
	return &Framer{
		mtu:   DefaultMTU,
		write: write,
		sleep: time.Sleep,
	}
}

// EffectiveMTU returns the payload size the link is currently trusted
// to deliver in one message.
func (f *Framer) EffectiveMTU() int {
	return f.mtu
}

// Reset drops back to the conservative MTU. Called on every
// disconnect/reconnect.
func (f *Framer) Reset() {
	f.mtu = DefaultMTU
}

// Send validates payload and transmits it, fragmenting when it exceeds
// the effective MTU. Invalid payloads are replaced by the fallback;
// nothing unvalidated ever reaches the transport.
func (f *Framer) Send(payload []byte) error {
	if !ValidPayload(payload) {
		log.Printf("telemetry: invalid status payload (%d bytes), sending fallback", len(payload))
		payload = fallbackPayload
	}
	return f.send(payload)
}

func (f *Framer) send(payload []byte) error {
	if len(payload) <= f.mtu {
		if err := f.write(payload); err != nil {
			return err
		}
		f.maybeRaise(len(payload))
		return nil
	}

	chunk := f.mtu - fragmentHeaderSize
	total := (len(payload) + chunk - 1) / chunk
	if total > maxFragments {
		log.Printf("telemetry: payload of %d bytes needs %d fragments (max %d), sending fallback",
			len(payload), total, maxFragments)
		return f.write(fallbackPayload)
	}

	for seq := 0; seq < total; seq++ {
		start := seq * chunk
		end := start + chunk
		if end > len(payload) {
			end = len(payload)
		}

		frag := make([]byte, 0, fragmentHeaderSize+end-start)
		frag = append(frag,
			byte(seq),
			byte(total),
			byte(len(payload)>>8),
			byte(len(payload)))
		frag = append(frag, payload[start:end]...)

		if err := f.write(frag); err != nil {
			return err
		}
		if seq < total-1 {
			f.sleep(interFragmentDelay)
		}
	}

	f.maybeRaise(f.mtu)
	return nil
}

// maybeRaise adopts the optimistic MTU after a near-full message went
// through at the current one.
func (f *Framer) maybeRaise(sent int) {
	if f.mtu >= RaisedMTU {
		return
	}
	if float64(sent) >= mtuUtilization*float64(f.mtu) {
		log.Printf("telemetry: raising effective MTU %d -> %d", f.mtu, RaisedMTU)
		f.mtu = RaisedMTU
	}
}

// ValidPayload runs the structural checks a payload must pass before
// transmission: it must look like one JSON object (balanced braces,
// quote- and escape-aware) and must not carry the "false."/"true."/
// "null." markers of a string-concatenation corruption seen upstream.
func ValidPayload(payload []byte) bool {
	if len(payload) < 2 || payload[0] != '{' || payload[len(payload)-1] != '}' {
		return false
	}

	depth := 0
	inString := false
	escaped := false
	for _, b := range payload {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	if depth != 0 || inString {
		return false
	}

	for _, marker := range [][]byte{[]byte("false."), []byte("true."), []byte("null.")} {
		if bytes.Contains(payload, marker) {
			return false
		}
	}
	return true
}
