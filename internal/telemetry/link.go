package telemetry

import (
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handlers are the callbacks a Link owner registers at setup time. The
// link invokes them from the MQTT client's goroutines; owners that care
// about ordering should only enqueue from them.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnWaypoint   func(lat, lon float64)
	OnCommand    func(cmd string)
}

// Link is the wireless control/telemetry channel: status out (framed),
// waypoints and commands in.
type Link struct {
	client        mqtt.Client
	framer        *Framer
	statusTopic   string
	waypointTopic string
	commandTopic  string
	handlers      Handlers
}

// NewLink builds the MQTT-backed link. Nothing connects until Connect.
func NewLink(broker, clientID, statusTopic, waypointTopic, commandTopic string, h Handlers) *Link {
	l := &Link{
		statusTopic:   statusTopic,
		waypointTopic: waypointTopic,
		commandTopic:  commandTopic,
		handlers:      h,
	}
	l.framer = NewFramer(l.publish)

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(l.onConnect).
		SetConnectionLostHandler(l.onConnectionLost)

	l.client = mqtt.NewClient(opts)
	return l
}

// Connect dials the broker and waits for the first connection.
func (l *Link) Connect() error {
	if token := l.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("telemetry: connect: %w", token.Error())
	}
	return nil
}

// Disconnect closes the link.
func (l *Link) Disconnect() {
	l.client.Disconnect(250)
}

// SendStatus validates, frames and publishes one status payload.
func (l *Link) SendStatus(payload []byte) error {
	return l.framer.Send(payload)
}

// EffectiveMTU exposes the framer's current payload limit (for status
// display and tests).
func (l *Link) EffectiveMTU() int {
	return l.framer.EffectiveMTU()
}

func (l *Link) publish(b []byte) error {
	token := l.client.Publish(l.statusTopic, 0, false, b)
	token.Wait()
	return token.Error()
}

func (l *Link) onConnect(client mqtt.Client) {
	log.Printf("telemetry: link connected")
	// Fresh link, conservative assumptions.
	l.framer.Reset()

	token := client.Subscribe(l.waypointTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		lat, lon, err := ParseWaypoint(string(msg.Payload()))
		if err != nil {
			log.Printf("telemetry: %v", err)
			return
		}
		if l.handlers.OnWaypoint != nil {
			l.handlers.OnWaypoint(lat, lon)
		}
	})
	token.Wait()
	if token.Error() != nil {
		log.Printf("telemetry: waypoint subscribe error: %v", token.Error())
	}

	token = client.Subscribe(l.commandTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		cmd := strings.TrimSpace(string(msg.Payload()))
		if l.handlers.OnCommand != nil {
			l.handlers.OnCommand(cmd)
		}
	})
	token.Wait()
	if token.Error() != nil {
		log.Printf("telemetry: command subscribe error: %v", token.Error())
	}

	if l.handlers.OnConnect != nil {
		l.handlers.OnConnect()
	}
}

func (l *Link) onConnectionLost(_ mqtt.Client, err error) {
	log.Printf("telemetry: link lost: %v", err)
	l.framer.Reset()
	if l.handlers.OnDisconnect != nil {
		l.handlers.OnDisconnect()
	}
}
