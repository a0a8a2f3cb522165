package websocket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/models"
)

// Client is one company dashboard connection
type Client struct {
	CompanyID primitive.ObjectID
	Conn      *websocket.Conn
}

// Hub tracks connected company dashboards and pushes order events to them.
// A company may hold several connections (multiple tabs or devices); events
// go to all of them.
type Hub struct {
	clients    map[primitive.ObjectID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.CompanyID] == nil {
				h.clients[client.CompanyID] = make(map[*Client]bool)
			}
			h.clients[client.CompanyID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.CompanyID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					if len(conns) == 0 {
						delete(h.clients, client.CompanyID)
					}
				}
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// PublishOrderEvent pushes an order event to every connection of the order's
// company. Best effort: a company that is not connected simply misses the
// live event, the order itself is already persisted.
func (h *Hub) PublishOrderEvent(event models.OrderEvent) {
	companyID, err := primitive.ObjectIDFromHex(event.CompanyID)
	if err != nil {
		log.Printf("Invalid company id on order event %s: %v", event.OrderID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[companyID]
	if !ok {
		return
	}
	for client := range conns {
		if err := client.Conn.WriteJSON(event); err != nil {
			log.Printf("Failed to push order event to company %s: %v", event.CompanyID, err)
		}
	}
}
