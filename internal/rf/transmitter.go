package rf

import (
	"log"
	"time"
)

// FrontEnd is the radio bring-up strategy behind the transmitter. The
// concrete *Radio drives an RFM69; tests substitute a fake.
type FrontEnd interface {
	Begin() error
	SetModeTx() error
	SetModeStandby() error
}

// Transmitter replays remote-control codes as software-timed PWM frames
// on the data line. Transmit blocks for the full duration of all frames;
// the caller owns the timing trade-off (see the control loop).
type Transmitter struct {
	enc   *Encoder
	line  Line
	radio FrontEnd
	ready bool

	sleep func(time.Duration) // inter-frame and settle delays
}

// NewTransmitter wires the encoder, data line and radio front-end
// together. Begin must succeed before Transmit does anything.
func NewTransmitter(line Line, radio FrontEnd, timing PulseTiming) *Transmitter {
	return &Transmitter{
		enc:   NewEncoder(timing),
		line:  line,
		radio: radio,
		sleep: time.Sleep,
	}
}

// Begin puts the front-end into its carrier-ready state. Failure is
// reported here, once; after a failed Begin every Transmit is a no-op.
func (t *Transmitter) Begin() error {
	if err := t.radio.Begin(); err != nil {
		return err
	}
	t.ready = true
	return nil
}

// Ready reports whether the front-end came up.
func (t *Transmitter) Ready() bool {
	return t.ready
}

// Transmit sends cmd repeatCount times (at least once), each frame
// separated by the inter-frame gap. The gap also trails the final frame.
// The call is synchronous and returns only when the line is quiet again.
func (t *Transmitter) Transmit(cmd Command, repeatCount int) {
	if !t.ready {
		return
	}
	code, ok := CodeFor(cmd)
	if !ok {
		log.Printf("rf: unknown command %d, not transmitted", cmd)
		return
	}
	if repeatCount < 1 {
		repeatCount = 1
	}

	pulses := t.enc.Encode(code)
	for i := 0; i < repeatCount; i++ {
		if err := t.sendFrame(pulses); err != nil {
			log.Printf("rf: transmit %s aborted: %v", cmd, err)
			return
		}
		t.sleep(t.enc.Timing().InterFrameGap())
	}
}

// sendFrame keys the carrier, plays one pulse sequence and unkeys. The
// carrier is never left keyed: a stuck transmitter jams the remote's
// channel, so a line failure still drops back to standby.
func (t *Transmitter) sendFrame(pulses []Pulse) error {
	if err := t.radio.SetModeTx(); err != nil {
		return err
	}
	t.sleep(time.Millisecond) // carrier settle before the sync pulse

	if err := t.playPulses(pulses); err != nil {
		t.radio.SetModeStandby()
		return err
	}

	t.sleep(2 * time.Millisecond) // let the last bit land before unkeying
	return t.radio.SetModeStandby()
}

func (t *Transmitter) playPulses(pulses []Pulse) error {
	for _, p := range pulses {
		if err := t.line.Hold(true, time.Duration(p.HighUs)*time.Microsecond); err != nil {
			return err
		}
		if err := t.line.Hold(false, time.Duration(p.LowUs)*time.Microsecond); err != nil {
			return err
		}
	}
	return nil
}
