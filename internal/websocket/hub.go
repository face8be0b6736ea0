package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"video-voting-be/internal/pkg/events"
	"video-voting-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// outboundFrame is the wire shape of every message pushed to a client.
type outboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub tracks connected clients and their session rooms, and fans out events
// arriving on the internal event bus to the right connections.
type Hub struct {
	// Registered clients map: conn id -> client
	clients map[string]*Client

	// Session rooms: session id -> set of conn ids
	rooms map[string]map[string]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Event bus feeding outbound session events
	subscriber message.Subscriber

	// Called after a client is fully removed, so the coordination core can
	// drop the participant.
	onDisconnect func(connID string)

	logger logger.ILogger
}

func NewHub(subscriber message.Subscriber, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscriber: subscriber,
		logger:     log,
	}
}

// SetDisconnectHandler wires the disconnect callback. Must be called before Run.
func (h *Hub) SetDisconnectHandler(fn func(connID string)) {
	h.onDisconnect = fn
}

func (h *Hub) Run(ctx context.Context) {
	go h.consumeEvents(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"conn_id": client.ID})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				if client.room != "" {
					if members, ok := h.rooms[client.room]; ok {
						delete(members, client.ID)
						if len(members) == 0 {
							delete(h.rooms, client.room)
						}
					}
				}
			}
			h.mu.Unlock()

			if h.onDisconnect != nil {
				h.onDisconnect(client.ID)
			}
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"conn_id": client.ID})
		}
	}
}

// JoinRoom puts the connection into a session room. A connection belongs to at
// most one room; joining again moves it.
func (h *Hub) JoinRoom(sessionID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}

	if client.room != "" && client.room != sessionID {
		if members, ok := h.rooms[client.room]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, client.room)
			}
		}
	}

	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[string]struct{})
	}
	h.rooms[sessionID][connID] = struct{}{}
	client.room = sessionID
}

// SendToConn pushes one frame to a single connection. Slow consumers whose
// buffers are full get disconnected rather than blocking the hub.
func (h *Hub) SendToConn(connID string, data []byte) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.Send <- data:
	default:
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"conn_id": connID})
		h.unregister <- client
	}
}

// BroadcastRoom pushes one frame to every connection in a session room.
func (h *Hub) BroadcastRoom(sessionID string, data []byte) {
	h.mu.RLock()
	members := make([]string, 0, len(h.rooms[sessionID]))
	for connID := range h.rooms[sessionID] {
		members = append(members, connID)
	}
	h.mu.RUnlock()

	for _, connID := range members {
		h.SendToConn(connID, data)
	}
}

func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// consumeEvents drains the session event topic and routes each envelope to a
// single connection or a whole room.
func (h *Hub) consumeEvents(ctx context.Context) {
	msgs, err := h.subscriber.Subscribe(ctx, events.TopicSessionEvents)
	if err != nil {
		h.logger.Error("Hub", "Failed to subscribe to session events", map[string]interface{}{"error": err.Error()})
		return
	}

	for msg := range msgs {
		var env events.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			h.logger.Warn("Hub", "Malformed event envelope", map[string]interface{}{"error": err.Error()})
			msg.Ack()
			continue
		}

		frame, err := json.Marshal(outboundFrame{Event: env.Event, Data: env.Payload})
		if err != nil {
			msg.Ack()
			continue
		}

		if env.Target != "" {
			h.SendToConn(env.Target, frame)
		} else {
			h.BroadcastRoom(env.SessionID, frame)
		}
		msg.Ack()
	}
}
