package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/tidewater-labs/helmsman/internal/buzzer"
	"github.com/tidewater-labs/helmsman/internal/compass"
	"github.com/tidewater-labs/helmsman/internal/config"
	"github.com/tidewater-labs/helmsman/internal/gps"
	"github.com/tidewater-labs/helmsman/internal/nav"
	"github.com/tidewater-labs/helmsman/internal/rf"
	"github.com/tidewater-labs/helmsman/internal/telemetry"
)

// controlEvent carries one inbound link event into the control loop.
// Link callbacks only enqueue; all state lives on the loop goroutine.
type controlEvent struct {
	waypoint *nav.Waypoint
	command  string
}

// enqueue hands one event to the control loop without blocking. The MQTT
// client invokes the link callbacks from its router goroutine; stalling
// it while a transmission holds the loop would stall the whole link, so
// a full queue drops the event instead.
func enqueue(events chan<- controlEvent, ev controlEvent) bool {
	select {
	case events <- ev:
		return true
	default:
		return false
	}
}

// RunHelm wires the hardware and runs the control loop: poll link events,
// poll GPS and compass, update the navigation controller, send status.
// A steering transmission blocks the whole loop for its duration; that is
// deliberate, the pulse timing cannot tolerate preemption.
func RunHelm() error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	// ---- RF transmitter ----
	line, err := rf.NewPinLine(cfg.RFDataPin)
	if err != nil {
		return err
	}
	radio, err := rf.NewRadio(cfg.RFSPIDevice, cfg.RFResetPin)
	if err != nil {
		return err
	}
	defer radio.Close()

	tx := rf.NewTransmitter(line, radio, rf.DefaultTiming)
	if err := tx.Begin(); err != nil {
		// Reported once here; corrections become no-ops but navigation
		// state keeps computing so the operator can see what it would do.
		log.Printf("rf: front-end unavailable, steering disabled: %v", err)
	}

	// ---- GPS ----
	reader, err := gps.NewReader(cfg.GPSSerialPort, cfg.GPSBaudRate)
	if err != nil {
		return err
	}
	defer reader.Close()
	go func() {
		if err := reader.Run(); err != nil {
			log.Printf("gps: reader stopped: %v", err)
		}
	}()
	log.Printf("gps: reading %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)

	// ---- Compass ----
	bus, err := i2creg.Open(cfg.CompassI2CBus)
	if err != nil {
		return fmt.Errorf("compass: i2c open: %w", err)
	}
	defer bus.Close()
	mag, err := compass.NewMMC5603(bus, cfg.CompassI2CAddr)
	if err != nil {
		return err
	}
	cmp := compass.New(mag)
	log.Printf("compass: MMC5603 ready")

	// ---- Buzzer ----
	var bz *buzzer.Buzzer
	if cfg.BuzzerPin != "" {
		bz, err = buzzer.New(cfg.BuzzerPin)
		if err != nil {
			log.Printf("buzzer: unavailable, event tones disabled: %v", err)
			bz = nil
		}
	}
	beep := func(seq []buzzer.Note) {
		if bz != nil {
			bz.Play(seq)
		}
	}

	// ---- Navigation ----
	repeat := cfg.RFRepeat
	if repeat == 0 {
		repeat = 3
	}
	controller := nav.NewController(tx, repeat)

	// ---- Telemetry link ----
	events := make(chan controlEvent, 16)
	link := telemetry.NewLink(
		cfg.MQTTBroker, cfg.MQTTClientIDHelm,
		cfg.TopicStatus, cfg.TopicWaypoint, cfg.TopicCommand,
		telemetry.Handlers{
			OnConnect:    func() { beep(buzzer.Connected) },
			OnDisconnect: func() { beep(buzzer.Disconnected) },
			OnWaypoint: func(lat, lon float64) {
				ev := controlEvent{waypoint: &nav.Waypoint{Latitude: lat, Longitude: lon}}
				if !enqueue(events, ev) {
					log.Printf("link: event queue full, waypoint dropped")
				}
			},
			OnCommand: func(cmd string) {
				if !enqueue(events, controlEvent{command: cmd}) {
					log.Printf("link: event queue full, command %q dropped", cmd)
				}
			},
		})
	if err := link.Connect(); err != nil {
		return err
	}
	defer link.Disconnect()

	// ---- Control loop ----
	updateTick := time.NewTicker(time.Duration(cfg.UpdateInterval) * time.Millisecond)
	defer updateTick.Stop()
	statusInterval := cfg.StatusInterval
	if statusInterval == 0 {
		statusInterval = 1000
	}
	statusTick := time.NewTicker(time.Duration(statusInterval) * time.Millisecond)
	defer statusTick.Stop()

	heading := 0.0
	hadFix := false
	prevMode := nav.ModeIdle
	for {
		select {
		case ev := <-events:
			applyEvent(ev, controller, cmp, beep)

		case <-updateTick.C:
			if h, err := cmp.ReadHeading(); err != nil {
				log.Printf("compass: read error: %v", err)
			} else {
				heading = h
			}
			fix := reader.Current()
			if usable := fix.Usable(); usable != hadFix {
				if usable {
					beep(buzzer.FixAcquired)
				} else {
					beep(buzzer.FixLost)
				}
				hadFix = usable
			}
			controller.Update(fix, heading)
			if mode := controller.GetState().Mode; mode != prevMode {
				if mode == nav.ModeArrived {
					beep(buzzer.DestinationReached)
				}
				prevMode = mode
			}

		case <-statusTick.C:
			payload, err := json.Marshal(buildStatus(reader.Current(), heading, controller))
			if err != nil {
				log.Printf("status: marshal error: %v", err)
				continue
			}
			if err := link.SendStatus(payload); err != nil {
				log.Printf("status: send error: %v", err)
			}
		}
	}
}

// applyEvent executes one inbound link event on the control loop.
func applyEvent(ev controlEvent, controller *nav.Controller, cmp *compass.Compass, beep func([]buzzer.Note)) {
	if ev.waypoint != nil {
		controller.SetTarget(ev.waypoint.Latitude, ev.waypoint.Longitude)
		beep(buzzer.WaypointSet)
		return
	}
	switch ev.command {
	case telemetry.CmdNavEnable:
		controller.SetNavigationEnabled(true)
		beep(buzzer.NavigationEnabled)
		log.Printf("nav: enabled by operator")
	case telemetry.CmdNavDisable:
		controller.SetNavigationEnabled(false)
		log.Printf("nav: disabled by operator")
	case telemetry.CmdClearTarget:
		controller.ClearTarget()
	case telemetry.CmdStartCal:
		cmp.StartCalibration()
		log.Printf("compass: calibration started, rotate through all headings")
	case telemetry.CmdStopCal:
		cmp.StopCalibration()
		log.Printf("compass: calibration stopped, offsets %+v", cmp.GetCalibration())
	default:
		log.Printf("link: unknown command %q", ev.command)
	}
}

// buildStatus assembles the outbound status payload.
func buildStatus(fix gps.Fix, heading float64, controller *nav.Controller) telemetry.Status {
	st := controller.GetState()

	status := telemetry.Status{
		HasGpsFix:         fix.HasFix,
		Satellites:        fix.Satellites,
		CurrentLat:        fix.Latitude,
		CurrentLon:        fix.Longitude,
		Altitude:          fix.Altitude,
		Heading:           heading,
		Distance:          st.DistanceToTarget,
		Bearing:           st.BearingToTarget,
		Navigating:        st.Mode == nav.ModeNavigating,
		Arrived:           st.Mode == nav.ModeArrived,
		NavigationEnabled: controller.IsNavigationEnabled(),
	}
	if st.TargetSet {
		lat, lon := st.Target.Latitude, st.Target.Longitude
		status.TargetLat = &lat
		status.TargetLon = &lon
	}
	return status
}
