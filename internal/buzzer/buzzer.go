package buzzer

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Note is one step of a tone sequence: a frequency in hertz held for
// DurationMs. Frequency 0 is a rest.
type Note struct {
	FreqHz     int
	DurationMs int
}

// Event jingles. The operator is usually out of sight of the display,
// so every state change the boat makes on its own gets a distinct sound.
var (
	NavigationEnabled = []Note{
		{150, 200}, {0, 50}, {200, 200}, {0, 50}, {250, 400}, {0, 100},
		{392, 150}, {523, 300},
	}
	WaypointSet = []Note{
		{800, 100}, {0, 100}, {800, 100}, {0, 50},
		{440, 150}, {523, 200}, {659, 250},
	}
	FixLost = []Note{
		{523, 300}, {0, 100}, {440, 300}, {0, 100}, {349, 300}, {0, 100},
		{150, 800}, {0, 200}, {150, 400},
	}
	FixAcquired = []Note{
		{800, 80}, {0, 120}, {800, 80}, {0, 120}, {800, 80}, {0, 220},
		{262, 150}, {330, 150}, {392, 150}, {523, 300},
	}
	Connected = []Note{
		{392, 120}, {523, 120}, {0, 80}, {659, 120}, {392, 120}, {0, 80},
		{523, 200}, {659, 300},
	}
	Disconnected = []Note{
		{330, 200}, {0, 50}, {262, 200}, {0, 100}, {200, 400}, {0, 100},
		{150, 600},
	}
	DestinationReached = []Note{
		{523, 150}, {587, 150}, {659, 150}, {0, 100},
		{523, 150}, {587, 150}, {659, 150}, {0, 100},
		{392, 200}, {523, 400},
	}
)

// Pin is the buzzer output line. Satisfied by gpio.PinOut.
type Pin interface {
	Out(l gpio.Level) error
}

// Buzzer drives a piezo element with a software-timed square wave. Play
// is asynchronous: sequences run on the buzzer's own goroutine, so a
// multi-second jingle never stalls the control loop.
type Buzzer struct {
	pin   Pin
	seqs  chan []Note
	sleep func(time.Duration)
}

// New opens the named GPIO pin, parks it low and starts the player.
func New(pinName string) (*Buzzer, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("buzzer: pin %q not found", pinName)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("buzzer: pin %q: %w", pinName, err)
	}
	return newWithPin(pin), nil
}

func newWithPin(pin Pin) *Buzzer {
	b := &Buzzer{
		pin:   pin,
		seqs:  make(chan []Note, 4),
		sleep: time.Sleep,
	}
	go b.run()
	return b
}

// Play queues one sequence. Tones are advisory: when the queue is full
// the sequence is dropped rather than making anyone wait for it.
func (b *Buzzer) Play(seq []Note) {
	select {
	case b.seqs <- seq:
	default:
	}
}

// Close stops the player once the queued sequences finish.
func (b *Buzzer) Close() {
	close(b.seqs)
}

func (b *Buzzer) run() {
	for seq := range b.seqs {
		b.play(seq)
	}
}

// play renders one sequence synchronously on the pin.
func (b *Buzzer) play(seq []Note) {
	for _, n := range seq {
		if n.FreqHz <= 0 {
			b.sleep(time.Duration(n.DurationMs) * time.Millisecond)
			continue
		}
		half := time.Second / time.Duration(2*n.FreqHz)
		cycles := n.FreqHz * n.DurationMs / 1000
		for i := 0; i < cycles; i++ {
			if err := b.pin.Out(gpio.High); err != nil {
				log.Printf("buzzer: %v", err)
				return
			}
			b.sleep(half)
			if err := b.pin.Out(gpio.Low); err != nil {
				log.Printf("buzzer: %v", err)
				return
			}
			b.sleep(half)
		}
	}
}
