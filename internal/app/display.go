package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/tidewater-labs/helmsman/internal/config"
	"github.com/tidewater-labs/helmsman/internal/telemetry"
)

// RunDisplay drives the helm-mounted SSD1306 OLED with the latest
// navigation status from the telemetry feed.
func RunDisplay() error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("display: periph host init: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("display: i2c open: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("display: init: %w", err)
	}
	log.Printf("display: SSD1306 initialized")

	var (
		mu     sync.RWMutex
		status telemetry.Status
		have   bool
	)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	var reasm telemetry.Reassembler
	token := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		payload, ok := reasm.Add(msg.Payload())
		if !ok {
			return
		}
		var s telemetry.Status
		if err := json.Unmarshal(payload, &s); err != nil {
			log.Printf("display: status unmarshal error: %v", err)
			return
		}
		mu.Lock()
		status = s
		have = true
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}

	interval := cfg.DisplayUpdateInterval
	if interval == 0 {
		interval = 500
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		mu.RLock()
		s := status
		ok := have
		mu.RUnlock()
		if err := drawStatus(dev, s, ok); err != nil {
			log.Printf("display: draw error: %v", err)
		}
	}
	return nil
}

// drawStatus renders one status frame.
func drawStatus(dev *ssd1306.Dev, s telemetry.Status, have bool) error {
	img := image1bit.NewVerticalLSB(dev.Bounds())
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	lines := []string{"HELMSMAN", "waiting for data"}
	if have {
		mode := "IDLE"
		switch {
		case s.Arrived:
			mode = "ARRIVED"
		case s.Navigating:
			mode = "NAVIGATING"
		}
		fixStr := "NO FIX"
		if s.HasGpsFix {
			fixStr = fmt.Sprintf("FIX %d sats", s.Satellites)
		}
		lines = []string{
			fmt.Sprintf("%s  %s", mode, fixStr),
			fmt.Sprintf("HDG %5.1f", s.Heading),
			fmt.Sprintf("DST %6.1f m", s.Distance),
			fmt.Sprintf("BRG %5.1f", s.Bearing),
		}
	}

	y := 13
	for _, line := range lines {
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
		y += 13
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
