package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

// Client is one WebSocket connection. Room membership is tracked here
// (roomID/playerID) so the dispatcher can route gameplay events without
// consulting the directory on every message.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	clientID   string
	playerID   string
	roomID     string
	name       string
	remoteAddr string

	authPlayerID int64
	authUsername string

	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		clientID:   GenerateUUID(),
		remoteAddr: remoteAddr,
		msgResetAt: time.Now(),
	}
}

// SendEvent queues an enveloped event for delivery. Slow clients drop
// frames rather than stall the sender.
func (c *Client) SendEvent(event string, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("marshal %s: %v", event, err)
		return
	}
	defer func() {
		// send may be closed by the hub during disconnect
		recover()
	}()
	select {
	case c.send <- payload:
	default:
	}
}

// SendError reports a rejected action, naming the offending event
func (c *Client) SendError(event, message string) {
	c.SendEvent(MsgError, ErrorMsg{Event: event, Message: message})
}

// ReadPump reads messages from the connection until it drops
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.hub.TrackDisconnect(c.remoteAddr)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("client %s read: %v", c.clientID, err)
			}
			return
		}
		if !c.allowMessage() {
			c.SendError("", "rate limit exceeded")
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes queued messages and keepalive pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// allowMessage applies the per-connection message rate limit
func (c *Client) allowMessage() bool {
	now := time.Now()
	if now.Sub(c.msgResetAt) >= time.Second {
		c.msgCount = 0
		c.msgResetAt = now
	}
	c.msgCount++
	return c.msgCount <= maxMessagesPerSec
}

// handleMessage parses one inbound envelope and dispatches on its event
// tag. Malformed frames and unknown tags are rejected with an error
// event; the connection stays open.
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		c.SendError("", "invalid message")
		return
	}

	switch ParseEventKind(env.Event) {
	case EvSetName:
		c.handleSetName(env.Data)
	case EvQuickMatch:
		c.handleQuickMatch(env.Data)
	case EvMove:
		c.handleMove(env.Data)
	case EvSplit:
		c.handleSplit()
	case EvMerge:
		c.handleMerge()
	case EvRegister:
		c.handleRegister(env.Data)
	case EvLogin:
		c.handleLogin(env.Data)
	case EvAuth:
		c.handleAuth(env.Data)
	case EvProfile:
		c.handleProfile()
	default:
		c.SendError(env.Event, "unknown event: "+env.Event)
	}
}

// displayName returns the chosen name, assigning a random default on
// first use so a player is never nameless in a room.
func (c *Client) displayName() string {
	if c.name == "" {
		c.name = fmt.Sprintf("player%d", 100+randInt(900))
	}
	return c.name
}

func (c *Client) handleSetName(data json.RawMessage) {
	var msg SetNameMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.SendError("set_name", "invalid message")
		return
	}

	name := msg.Name
	if name == "" {
		name = fmt.Sprintf("player%d", 100+randInt(900))
	}
	if runes := []rune(name); len(runes) > MaxNameLen {
		name = string(runes[:MaxNameLen])
	}
	c.name = name

	if c.roomID != "" {
		if room := c.hub.registry.GetRoom(c.roomID); room != nil {
			room.RenamePlayer(c.playerID, name)
		}
	}
	c.SendEvent(MsgSetNameAck, SetNameAckMsg{Success: true, Name: name})
}

// handleQuickMatch places the client into the first room with free
// capacity, creating a new one when nothing qualifies. Affinity is
// bound before the room lookup so a concurrent disconnect can never
// leave the session pointing at nothing.
func (c *Client) handleQuickMatch(data json.RawMessage) {
	if c.roomID != "" {
		c.SendError("quick_match", "already in a room")
		return
	}

	if len(data) > 0 {
		var msg QuickMatchMsg
		if err := json.Unmarshal(data, &msg); err == nil && msg.Name != "" {
			if runes := []rune(msg.Name); len(runes) > MaxNameLen {
				msg.Name = string(runes[:MaxNameLen])
			}
			c.name = msg.Name
		}
	}

	cfg := c.hub.roomConfig
	dir := c.hub.directory

	if meta, ok := dir.FindAvailableRoom(cfg.MaxPlayers); ok {
		c.roomID = meta.ID
		room, err := dir.ResolveRoom(meta.ID)
		if err == nil && c.joinRoom(room) {
			return
		}
		// Remote, stale or filled up since indexed: host a fresh room
		c.roomID = ""
	}

	id := dir.NextRoomID()
	c.roomID = id
	room, err := dir.CreateRoom(id, cfg)
	if err != nil {
		c.roomID = ""
		log.Printf("client %s: create room %s: %v", c.clientID, id, err)
		c.SendError("quick_match", "failed to create room")
		return
	}
	if c.hub.analytics != nil {
		c.hub.analytics.Track(EvtRoomCreated, c.authPlayerID, id, "")
	}
	if !c.joinRoom(room) {
		c.roomID = ""
		c.SendError("quick_match", "failed to join room")
	}
}

// joinRoom adds the client to a resolved local room and reports the
// placement. Returns false if the room refused the join.
func (c *Client) joinRoom(room *GameRoom) bool {
	_, err := room.AddPlayer(c.clientID, c.displayName(), c)
	if err != nil {
		// Directory counts lag; a "free" room may be full by now
		log.Printf("client %s: join %s: %v", c.clientID, room.ID(), err)
		return false
	}

	c.playerID = c.clientID
	c.roomID = room.ID()
	c.hub.directory.UpdateRoomMeta(room)

	c.SendEvent(MsgQuickMatch, QuickMatchedMsg{
		RoomID:   room.ID(),
		PlayerID: c.playerID,
		Config:   room.Config(),
	})
	if c.hub.analytics != nil {
		c.hub.analytics.Track(EvtQuickMatch, c.authPlayerID, room.ID(), "")
	}
	return true
}

// currentRoom resolves the client's bound room for gameplay events
func (c *Client) currentRoom(event string) *GameRoom {
	if c.roomID == "" {
		c.SendError(event, "not in a room")
		return nil
	}
	room := c.hub.registry.GetRoom(c.roomID)
	if room == nil {
		c.SendError(event, "room not found")
		return nil
	}
	return room
}

func (c *Client) handleMove(data json.RawMessage) {
	var msg MoveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.SendError("player:move", "invalid message")
		return
	}
	if room := c.currentRoom("player:move"); room != nil {
		room.HandleMove(c.playerID, msg.X, msg.Y)
	}
}

func (c *Client) handleSplit() {
	if room := c.currentRoom("player:split"); room != nil {
		room.HandleSplit(c.playerID)
	}
}

func (c *Client) handleMerge() {
	if room := c.currentRoom("player:merge"); room != nil {
		room.HandleMerge(c.playerID)
	}
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		c.SendError("register", "accounts disabled")
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.SendError("register", "invalid message")
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.SendError("register", err.Error())
		return
	}
	c.authPlayerID = id
	c.authUsername = msg.Username
	c.SendEvent(MsgAuthOK, AuthOKMsg{Token: token, Username: msg.Username, PlayerID: id})
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		c.SendError("login", "accounts disabled")
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.SendError("login", "invalid message")
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password)
	if err != nil {
		c.SendError("login", err.Error())
		return
	}
	c.authPlayerID = id
	c.authUsername = msg.Username
	c.SendEvent(MsgAuthOK, AuthOKMsg{Token: token, Username: msg.Username, PlayerID: id})
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		c.SendError("auth", "accounts disabled")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.SendError("auth", "invalid message")
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.SendError("auth", err.Error())
		return
	}
	c.authPlayerID = id
	c.authUsername = username
	c.SendEvent(MsgAuthOK, AuthOKMsg{Token: msg.Token, Username: username, PlayerID: id})
}

func (c *Client) handleProfile() {
	if c.hub.db == nil || c.authPlayerID == 0 {
		c.SendError("profile", "not authenticated")
		return
	}
	stats, err := c.hub.db.GetStats(c.authPlayerID)
	if err != nil || stats == nil {
		c.SendError("profile", "profile unavailable")
		return
	}
	c.SendEvent(MsgProfileData, ProfileDataMsg{
		Username:  c.authUsername,
		Games:     stats.Games,
		Eaten:     stats.Eaten,
		BestScore: stats.BestScore,
	})
}
