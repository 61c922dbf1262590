package rf

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Line drives the radio's data pin: hold it at one logic level for a
// fixed duration. Everything above the line is timing-model-agnostic.
type Line interface {
	Hold(high bool, d time.Duration) error
}

// PinLine drives a GPIO pin with busy-wait timing. Pulse widths are tens
// of microseconds; time.Sleep rounds to scheduler granularity and would
// push them outside the receiver's tolerance window, so the hold spins
// on the monotonic clock instead.
type PinLine struct {
	pin gpio.PinOut
}

// NewPinLine opens the named GPIO pin and parks it low.
func NewPinLine(name string) (*PinLine, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("rf: data pin %q not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("rf: data pin %q: %w", name, err)
	}
	return &PinLine{pin: pin}, nil
}

// Hold sets the line level and spins until d has elapsed.
func (l *PinLine) Hold(high bool, d time.Duration) error {
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := l.pin.Out(level); err != nil {
		return err
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
	return nil
}
