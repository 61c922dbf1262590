package rf

import (
	"reflect"
	"testing"
)

func TestEncodeFrameShape(t *testing.T) {
	enc := NewEncoder(DefaultTiming)

	for _, cmd := range []Command{SteerLeft, SteerRight} {
		code, ok := CodeFor(cmd)
		if !ok {
			t.Fatalf("CodeFor(%v) missing", cmd)
		}
		pulses := enc.Encode(code)

		if len(pulses) != 1+DataBits {
			t.Errorf("%v: frame has %d pulses, want %d (1 sync + %d data)",
				cmd, len(pulses), 1+DataBits, DataBits)
		}

		sync := pulses[0]
		if sync.HighUs != DefaultTiming.SyncHighUs || sync.LowUs != DefaultTiming.SyncLowUs {
			t.Errorf("%v: sync pulse = %+v, want %d/%d",
				cmd, sync, DefaultTiming.SyncHighUs, DefaultTiming.SyncLowUs)
		}

		// Every data pulse must be one of the two bit symbols; no other
		// widths may appear on the line.
		one := Pulse{HighUs: DefaultTiming.LongHighUs, LowUs: DefaultTiming.LongLowUs}
		zero := Pulse{HighUs: DefaultTiming.ShortHighUs, LowUs: DefaultTiming.ShortLowUs}
		for i, p := range pulses[1:] {
			if p != one && p != zero {
				t.Errorf("%v: data pulse %d = %+v, not a valid bit symbol", cmd, i, p)
			}
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	enc := NewEncoder(DefaultTiming)
	code, _ := CodeFor(SteerRight)

	first := enc.Encode(code)
	second := enc.Encode(code)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Encode is not deterministic for the same code")
	}
}

func TestEncodeBitOrder(t *testing.T) {
	enc := NewEncoder(DefaultTiming)

	// A code with only the top bit of each block set: the first data
	// pulse and the 41st must be ones, everything else zeros.
	code := Code{HighBits: 1 << 39, LowBits: 1 << 49}
	pulses := enc.Encode(code)

	one := Pulse{HighUs: DefaultTiming.LongHighUs, LowUs: DefaultTiming.LongLowUs}
	for i, p := range pulses[1:] {
		wantOne := i == 0 || i == highBitCount
		if (p == one) != wantOne {
			t.Errorf("data pulse %d: one=%v, want one=%v", i, p == one, wantOne)
		}
	}
}

func TestCommandsShareHighBlock(t *testing.T) {
	left, _ := CodeFor(SteerLeft)
	right, _ := CodeFor(SteerRight)

	if left.HighBits != right.HighBits {
		t.Errorf("LEFT and RIGHT must share the 40-bit block: %x vs %x",
			left.HighBits, right.HighBits)
	}
	// Only a short trailing suffix distinguishes the two codes.
	if left.LowBits>>15 != right.LowBits>>15 {
		t.Errorf("LEFT and RIGHT must share the prefix of the low block: %x vs %x",
			left.LowBits>>15, right.LowBits>>15)
	}
	if left.LowBits == right.LowBits {
		t.Errorf("LEFT and RIGHT codes are identical")
	}
}
