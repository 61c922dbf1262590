package app

import (
	"log"
	"net/http"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/tidewater-labs/helmsman/internal/config"
	"github.com/tidewater-labs/helmsman/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	// Status is read-only; any origin may watch it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// statusConn is the watcher side of a websocket. gorilla forbids
// concurrent writers on one connection, so every write goes through the
// hub's lock.
type statusConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// statusHub holds the latest status payload and pushes updates to the
// registered websocket watchers. All writes happen under mu.
type statusHub struct {
	mu         sync.RWMutex
	lastStatus []byte
	watchers   map[statusConn]bool
}

func newStatusHub() *statusHub {
	return &statusHub{watchers: make(map[statusConn]bool)}
}

// broadcast stores the payload and pushes it to every watcher. Watchers
// whose write fails are dropped.
func (h *statusHub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastStatus = payload
	for c := range h.watchers {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.watchers, c)
			c.Close()
		}
	}
}

// add registers a watcher and sends it the latest status, if any.
func (h *statusHub) add(c statusConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.watchers[c] = true
	if h.lastStatus != nil {
		if err := c.WriteMessage(websocket.TextMessage, h.lastStatus); err != nil {
			delete(h.watchers, c)
			c.Close()
		}
	}
}

// last returns the most recent status payload, or nil before the first
// message arrives.
func (h *statusHub) last() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastStatus
}

// RunWeb serves the live status page: latest status as JSON, a websocket
// stream of updates, and static files from ./web.
func RunWeb() error {
	cfg := config.Get()
	hub := newStatusHub()

	// 1) Connect to MQTT broker and reassemble the fragmented status feed
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	var reasm telemetry.Reassembler
	token := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		payload, ok := reasm.Add(msg.Payload())
		if !ok {
			return
		}
		hub.broadcast(payload)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicStatus)

	// 2) JSON API endpoint: latest status
	http.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		payload := hub.last()
		if payload == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	})

	// 3) Websocket stream of status updates
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		hub.add(conn)
	})

	// 4) Static files from ./web as the root
	http.Handle("/", http.FileServer(http.Dir("web")))

	port := cfg.WebServerPort
	if port == 0 {
		port = 8080
	}
	addr := ":" + strconv.Itoa(port)
	log.Printf("web: listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
