package socket

import (
	"context"
	"encoding/json"
	"sync"

	"rowbook/pkg/logger"
)

const (
	HelloType           = "HELLO"            // Sent once to a newly connected page
	DocumentChangedType = "DOCUMENT_CHANGED" // The stored document was replaced
	PresenceUpdateType  = "PRESENCE_UPDATE"  // A page connected or left

	SourceSave = "save" // changed through POST /save
	SourceDisk = "disk" // changed by editing the file directly
)

type WSMessage struct {
	Type     string          `json:"type"`
	ClientID string          `json:"client_id,omitempty"`
	Source   string          `json:"source,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type Presence struct {
	Viewers int `json:"viewers"`
}

// Hub fans document change notifications out to every open page.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	mu   sync.Mutex
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan WSMessage, 16),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			h.mu.Unlock()

			hello, _ := json.Marshal(WSMessage{Type: HelloType, ClientID: client.ID})
			client.Send <- hello
			logger.Sugar.Debugf("Client %s connected", client.ID)
			h.broadcastPresenceUpdate()

		case client := <-h.Unregister:
			if h.remove(client) {
				logger.Sugar.Debugf("Client %s disconnected", client.ID)
				h.broadcastPresenceUpdate()
			}

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}
			h.send(payload)
		}
	}
}

// DocumentChanged tells every connected page that the document was replaced.
// It never blocks once the hub has stopped.
func (h *Hub) DocumentChanged(source string) {
	select {
	case h.Broadcast <- WSMessage{Type: DocumentChangedType, Source: source}:
	case <-h.done:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Clients)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Clients[client]; !ok {
		return false
	}
	delete(h.Clients, client)
	close(client.Send)
	return true
}

func (h *Hub) send(payload []byte) {
	h.mu.Lock()
	clientsToSend := make([]*Client, 0, len(h.Clients))
	for client := range h.Clients {
		clientsToSend = append(clientsToSend, client)
	}
	h.mu.Unlock()

	for _, client := range clientsToSend {
		select {
		case client.Send <- payload:
		default:
			// The client is lagging; drop it rather than block the hub.
			logger.Sugar.Warnf("Client %s's send buffer is full. Disconnecting.", client.ID)
			if h.remove(client) {
				_ = client.Conn.Close()
			}
		}
	}
}

func (h *Hub) broadcastPresenceUpdate() {
	payload, err := json.Marshal(Presence{Viewers: h.Count()})
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	msg, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, Payload: payload})
	h.send(msg)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	for client := range h.Clients {
		delete(h.Clients, client)
		close(client.Send)
	}
	h.mu.Unlock()
	close(h.done)
}
