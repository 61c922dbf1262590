package rf

// Pulse is one high-then-low transition pair on the transmit line.
type Pulse struct {
	HighUs uint32
	LowUs  uint32
}

// Encoder maps a code to its pulse sequence using a fixed timing
// alphabet. It knows nothing about specific commands or hardware.
type Encoder struct {
	timing PulseTiming
}

// NewEncoder returns an encoder for the given timing alphabet.
func NewEncoder(timing PulseTiming) *Encoder {
	return &Encoder{timing: timing}
}

// Timing returns the encoder's pulse alphabet.
func (e *Encoder) Timing() PulseTiming {
	return e.timing
}

// Encode expands one 90-bit code into its frame: a sync pulse followed by
// the 40-bit block then the 50-bit block, both MSB first. The result is
// always 91 pulses and depends only on the code, never on prior calls.
func (e *Encoder) Encode(code Code) []Pulse {
	pulses := make([]Pulse, 0, 1+DataBits)
	pulses = append(pulses, Pulse{HighUs: e.timing.SyncHighUs, LowUs: e.timing.SyncLowUs})

	for i := highBitCount - 1; i >= 0; i-- {
		pulses = append(pulses, e.bitPulse(code.HighBits>>uint(i)&1 == 1))
	}
	for i := lowBitCount - 1; i >= 0; i-- {
		pulses = append(pulses, e.bitPulse(code.LowBits>>uint(i)&1 == 1))
	}

	return pulses
}

func (e *Encoder) bitPulse(bit bool) Pulse {
	if bit {
		return Pulse{HighUs: e.timing.LongHighUs, LowUs: e.timing.LongLowUs}
	}
	return Pulse{HighUs: e.timing.ShortHighUs, LowUs: e.timing.ShortLowUs}
}
