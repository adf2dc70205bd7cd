package ws

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/yogastudio/internal/logger"
	"github.com/yogastudio/internal/model"
)

// Hub fans roster events out to connected clients. Clients receive every
// session's events until they subscribe to specific session ids.
type Hub struct {
	mu         sync.RWMutex
	clients    map[int64]map[*Client]struct{}
	total      int
	maxConns   int
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		maxConns:   maxConns,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect under the lock, close outside it.
	h.mu.Lock()
	all := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.clients = make(map[int64]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%d", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.total++
	h.mu.Unlock()
	logger.Debugf("ws client %s connected user=%d", c.id, c.userID)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	c.Close()
	logger.Debugf("ws client %s disconnected user=%d", c.id, c.userID)
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// HandleMessage dispatches incoming WebSocket messages.
func (h *Hub) HandleMessage(c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventSubscribe, EventUnsubscribe:
		if msg.SessionID <= 0 {
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "sessionId required"})
			return
		}
		sessions := c.setSubscribed(msg.SessionID, msg.Type == EventSubscribe)
		h.sendToClient(c, OutgoingMessage{Type: EventSubscribed, Payload: SubscriptionPayload{Sessions: sessions}})
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

// Publish broadcasts a roster event to every interested client. It never blocks:
// slow clients are dropped by sendToClient.
func (h *Hub) Publish(ev model.RosterEvent) {
	defer logger.DeferLogDuration("ws.Publish", time.Now())()
	out := OutgoingMessage{
		Type:    EventType(ev.Type),
		Payload: RosterPayload{SessionID: ev.SessionID, UserID: ev.UserID, Users: slices.Clone(ev.Users)},
	}
	h.mu.RLock()
	targets := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			if c.wants(ev.SessionID) {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, out)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%d", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
