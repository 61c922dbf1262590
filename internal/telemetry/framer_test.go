package telemetry

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

// collectingWriter records every raw message handed to the transport.
type collectingWriter struct {
	msgs [][]byte
	err  error
}

func (w *collectingWriter) write(b []byte) error {
	if w.err != nil {
		return w.err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	w.msgs = append(w.msgs, cp)
	return nil
}

func newTestFramer(w *collectingWriter) *Framer {
	f := NewFramer(w.write)
	f.sleep = func(time.Duration) {}
	return f
}

func TestValidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"minimal object", `{}`, true},
		{"simple status", `{"hasGpsFix":true,"satellites":7}`, true},
		{"nested object", `{"a":{"b":1},"c":2}`, true},
		{"braces inside strings ignored", `{"a":"}{}{","b":1}`, true},
		{"escaped quote inside string", `{"a":"say \"}\" loudly"}`, true},
		{"empty", ``, false},
		{"not an object", `[1,2,3]`, false},
		{"missing close", `{"a":1`, false},
		{"unbalanced nesting", `{"a":{"b":1}`, false},
		{"close before open", `{"a":1}}{`, false},
		{"unterminated string", `{"a":"b}`, false},
		{"false concatenation marker", `{"a":false.5}`, false},
		{"true concatenation marker", `{"a":true.0}`, false},
		{"null concatenation marker", `{"a":null.x}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidPayload([]byte(tt.payload)); got != tt.want {
				t.Errorf("ValidPayload(%q) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestFallbackIsValid(t *testing.T) {
	if !ValidPayload(fallbackPayload) {
		t.Fatalf("fallback payload must pass its own validation")
	}
	// The fallback must always go out as one whole message, even at the
	// conservative MTU right after a reconnect.
	if len(fallbackPayload) > DefaultMTU {
		t.Fatalf("fallback payload is %d bytes, exceeds the conservative MTU %d",
			len(fallbackPayload), DefaultMTU)
	}
}

// buildPayload returns a valid JSON object of exactly n bytes.
func buildPayload(t *testing.T, n int) []byte {
	t.Helper()
	pad := n - len(`{"pad":""}`)
	if pad < 0 {
		t.Fatalf("payload size %d too small", n)
	}
	p := []byte(`{"pad":"` + string(bytes.Repeat([]byte{'x'}, pad)) + `"}`)
	if len(p) != n {
		t.Fatalf("built %d bytes, want %d", len(p), n)
	}
	return p
}

func TestSendWholeWhenFits(t *testing.T) {
	w := &collectingWriter{}
	f := newTestFramer(w)

	payload := []byte(`{"a":1}`)
	if err := f.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	if !bytes.Equal(w.msgs[0], payload) {
		t.Errorf("message = %q, want %q", w.msgs[0], payload)
	}
}

func TestFragmentation(t *testing.T) {
	w := &collectingWriter{}
	f := newTestFramer(w)
	f.mtu = 185

	payload := buildPayload(t, 500)
	if err := f.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// ceil(500/181) = 3 fragments.
	if len(w.msgs) != 3 {
		t.Fatalf("fragments = %d, want 3", len(w.msgs))
	}

	var rebuilt []byte
	for i, msg := range w.msgs {
		if len(msg) > 185 {
			t.Errorf("fragment %d is %d bytes, exceeds MTU 185", i, len(msg))
		}
		if got := int(msg[0]); got != i {
			t.Errorf("fragment %d: sequence = %d", i, got)
		}
		if got := int(msg[1]); got != 3 {
			t.Errorf("fragment %d: totalFragments = %d, want 3", i, got)
		}
		if got := int(msg[2])<<8 | int(msg[3]); got != 500 {
			t.Errorf("fragment %d: totalLength = %d, want 500", i, got)
		}
		rebuilt = append(rebuilt, msg[fragmentHeaderSize:]...)
	}
	if !bytes.Equal(rebuilt, payload) {
		t.Errorf("concatenated fragments do not reconstruct the payload")
	}
}

func TestFragmentCountLimit(t *testing.T) {
	w := &collectingWriter{}
	f := newTestFramer(w)
	// chunk = 16 bytes; 256 fragments would be needed.
	payload := buildPayload(t, 16*256)

	if err := f.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1 (fallback)", len(w.msgs))
	}
	if !bytes.Equal(w.msgs[0], fallbackPayload) {
		t.Errorf("message = %q, want fallback", w.msgs[0])
	}
}

func TestInvalidPayloadReplacedByFallback(t *testing.T) {
	w := &collectingWriter{}
	f := newTestFramer(w)

	if err := f.Send([]byte(`{"broken":false.5}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) != 1 || !bytes.Equal(w.msgs[0], fallbackPayload) {
		t.Errorf("invalid payload was not replaced by the fallback")
	}
}

func TestMTUAdaptation(t *testing.T) {
	w := &collectingWriter{}
	f := newTestFramer(w)

	if got := f.EffectiveMTU(); got != DefaultMTU {
		t.Fatalf("initial MTU = %d, want %d", got, DefaultMTU)
	}

	// A tiny message is no evidence the link carries big ones.
	if err := f.Send([]byte(`{}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := f.EffectiveMTU(); got != DefaultMTU {
		t.Errorf("MTU after small send = %d, want %d", got, DefaultMTU)
	}

	// A near-full message at the conservative MTU raises it.
	if err := f.Send(buildPayload(t, DefaultMTU)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := f.EffectiveMTU(); got != RaisedMTU {
		t.Errorf("MTU after full-size send = %d, want %d", got, RaisedMTU)
	}

	// Disconnect resets to the conservative default.
	f.Reset()
	if got := f.EffectiveMTU(); got != DefaultMTU {
		t.Errorf("MTU after Reset = %d, want %d", got, DefaultMTU)
	}
}

func TestReassemblerRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		size int
		mtu  int
	}{
		{"whole message", 15, 20},
		{"two fragments", 300, 185},
		{"three fragments", 500, 185},
		{"many small fragments", 400, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &collectingWriter{}
			f := newTestFramer(w)
			f.mtu = tt.mtu

			payload := buildPayload(t, tt.size)
			if err := f.Send(payload); err != nil {
				t.Fatalf("Send: %v", err)
			}

			var r Reassembler
			var got []byte
			var done bool
			for _, msg := range w.msgs {
				got, done = r.Add(msg)
			}
			if !done {
				t.Fatalf("reassembly incomplete after %d messages", len(w.msgs))
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("reassembled payload differs from original")
			}
		})
	}
}

func TestReassemblerSequenceByteCollision(t *testing.T) {
	w := &collectingWriter{}
	f := newTestFramer(w)
	f.mtu = 20

	// Enough fragments that one carries sequence number 123 ('{'); it
	// must not be mistaken for a whole message mid-sequence.
	payload := buildPayload(t, 16*130)
	if err := f.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) != 130 {
		t.Fatalf("fragments = %d, want 130", len(w.msgs))
	}

	var r Reassembler
	var got []byte
	var done bool
	for i, msg := range w.msgs {
		got, done = r.Add(msg)
		if done && i != len(w.msgs)-1 {
			t.Fatalf("reassembly reported complete at fragment %d", i)
		}
	}
	if !done {
		t.Fatalf("reassembly incomplete")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("reassembled payload differs from original")
	}
}

func TestReassemblerDropsOutOfOrder(t *testing.T) {
	w := &collectingWriter{}
	f := newTestFramer(w)
	f.mtu = 20

	if err := f.Send(buildPayload(t, 100)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) < 3 {
		t.Fatalf("need at least 3 fragments, got %d", len(w.msgs))
	}

	var r Reassembler
	// Skip the first fragment; the rest must never complete.
	for _, msg := range w.msgs[1:] {
		if _, done := r.Add(msg); done {
			t.Fatalf("reassembly completed despite missing fragment")
		}
	}
}

func TestSendWriteError(t *testing.T) {
	w := &collectingWriter{err: fmt.Errorf("link down")}
	f := newTestFramer(w)

	if err := f.Send([]byte(`{}`)); err == nil {
		t.Errorf("Send should surface transport errors")
	}
}
