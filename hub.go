package main

import (
	"log"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients and owns the shared collaborators:
// the local room registry, the cross-process room directory, accounts
// and analytics. Per-session name state lives here, not in globals.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	registry   *RoomRegistry
	directory  *RoomDirectory
	roomConfig RoomConfig
	db         *DB
	auth       *Auth
	analytics  *Analytics
}

// NewHub wires the hub to its collaborators
func NewHub(registry *RoomRegistry, directory *RoomDirectory, roomConfig RoomConfig, db *DB, analytics *Analytics) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		ipConns:    make(map[string]int),
		registry:   registry,
		directory:  directory,
		roomConfig: roomConfig,
		db:         db,
		analytics:  analytics,
	}
	if db != nil {
		h.auth = NewAuth(db)
	}
	return h
}

// CanAccept applies the per-IP and total connection caps
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

// TrackConnect counts a new connection against the limits
func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

// TrackDisconnect releases a connection slot
func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.analytics != nil {
				h.analytics.Track(EvtSessionStart, client.authPlayerID, "", "")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.leaveRoom(client)
			if h.analytics != nil {
				h.analytics.Track(EvtSessionEnd, client.authPlayerID, client.roomID, "")
			}
		}
	}
}

// leaveRoom removes a disconnecting client from its room, refreshes the
// directory, and tears the room down once empty.
func (h *Hub) leaveRoom(c *Client) {
	if c.roomID == "" {
		return
	}
	room := h.registry.GetRoom(c.roomID)
	if room == nil {
		c.roomID = ""
		return
	}

	h.recordSessionStats(c, room)

	remaining := room.RemovePlayer(c.playerID)
	if remaining == 0 {
		log.Printf("room %s empty, unregistering", c.roomID)
		h.registry.RemoveRoom(c.roomID)
		h.directory.UnregisterRoom(c.roomID)
	} else {
		h.directory.UpdateRoomMeta(room)
	}
	c.roomID = ""
	c.playerID = ""
}

// recordSessionStats persists the play session for authenticated users
func (h *Hub) recordSessionStats(c *Client, room *GameRoom) {
	if h.db == nil || c.authPlayerID == 0 {
		return
	}
	room.mu.Lock()
	p := room.players[c.playerID]
	var eaten, score int
	if p != nil {
		eaten, score = p.EatenCount, p.Score
	}
	room.mu.Unlock()
	if p == nil {
		return
	}
	if err := h.db.RecordSession(c.authPlayerID, eaten, score); err != nil {
		log.Printf("record session for player %d: %v", c.authPlayerID, err)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
