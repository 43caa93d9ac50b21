// Package websocket pushes clinic events to connected users. Every
// connection is subscribed to the topics its session entitles it to; clients
// cannot choose topics themselves.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
)

const (
	EventAppointmentBooked = "appointment.booked"
	EventEmergencyLogged   = "emergency.logged"
	EventReferralReceived  = "referral.received"
	EventReportUploaded    = "report.uploaded"

	// TopicEmergencies reaches every connected doctor.
	TopicEmergencies = "emergencies"
	TopicAdmin       = "admin"
)

func DoctorTopic(doctorID string) string   { return "doctor:" + doctorID }
func PatientTopic(patientID string) string { return "patient:" + patientID }

// TopicsFor returns the topics a session receives.
func TopicsFor(s auth.Session) []string {
	switch s.Role {
	case clinic.RoleDoctor:
		return []string{DoctorTopic(s.EntityID), TopicEmergencies}
	case clinic.RolePatient:
		return []string{PatientTopic(s.EntityID)}
	case clinic.RoleAdmin:
		return []string{TopicAdmin}
	}
	return nil
}

// Event is one notification sent to subscribers of Topic.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	ID        string          `json:"id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event with data marshalled to JSON.
func NewEvent(eventType, topic, id string, data interface{}) Event {
	ev := Event{Type: eventType, Topic: topic, ID: id, Timestamp: time.Now().UTC()}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			ev.Data = raw
		}
	}
	return ev
}

// EventPublisher is what the domain services publish through.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Client is a single connection.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

// Hub tracks clients by topic. All operations are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

// Unregister removes the client and closes its Send channel. Unregistering
// twice is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
}

// Broadcast sends event to the subscribers of topic. Clients whose buffer is
// full miss the event.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn().Str("topic", topic).Int("dropped", dropped).Msg("slow websocket clients skipped")
	}
}

// Publish implements EventPublisher.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler accepts upgrades from the given origins. Requests without an
// Origin header (non-browser clients) are always accepted.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/ws", h.Connect)
}

// Connect upgrades the request and subscribes the connection to the
// session's topics. Incoming messages are read only to detect closure.
func (h *Handler) Connect(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response.
		return nil
	}

	client := &Client{
		ID:     uuid.NewString(),
		Topics: TopicsFor(sess),
		Send:   make(chan []byte, 64),
	}
	h.hub.Register(client)
	h.hub.logger.Debug().Str("client", client.ID).Str("username", sess.Username).Strs("topics", client.Topics).Msg("websocket connected")

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Notify publishes ev through p when p is set. Failures are logged only; a
// missed notification never fails the operation that caused it.
func Notify(ctx context.Context, p EventPublisher, logger zerolog.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn().Err(err).Str("event", ev.Type).Str("topic", ev.Topic).Msg("failed to publish event")
	}
}
