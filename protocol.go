package main

import "encoding/json"

// EventKind is the closed set of inbound client events
type EventKind int

const (
	EvUnknown EventKind = iota
	EvSetName
	EvQuickMatch
	EvMove
	EvSplit
	EvMerge
	EvRegister
	EvLogin
	EvAuth
	EvProfile
)

// ParseEventKind maps a wire event tag to its kind.
// Unmapped tags parse to EvUnknown and are rejected by the dispatcher.
func ParseEventKind(tag string) EventKind {
	switch tag {
	case "set_name":
		return EvSetName
	case "quick_match":
		return EvQuickMatch
	case "player:move":
		return EvMove
	case "player:split":
		return EvSplit
	case "player:merge":
		return EvMerge
	case "register":
		return EvRegister
	case "login":
		return EvLogin
	case "auth":
		return EvAuth
	case "profile":
		return EvProfile
	}
	return EvUnknown
}

// Server -> Client event names
const (
	MsgConnected     = "connected"
	MsgSetNameAck    = "set_name"
	MsgQuickMatch    = "quick_match"
	MsgGameStart     = "game:start"
	MsgGameState     = "game:state"
	MsgPlayerJoined  = "player:joined"
	MsgPlayerLeft    = "player:left"
	MsgPlayerRenamed = "player:renamed"
	MsgPlayerEaten   = "player:eaten"
	MsgPlayerRespawn = "player:respawn"
	MsgAuthOK        = "auth_ok"
	MsgProfileData   = "profile"
	MsgError         = "error"
)

// Envelope wraps all outgoing messages
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SetNameMsg asks the server to change the display name
type SetNameMsg struct {
	Name string `json:"name"`
}

// QuickMatchMsg requests room placement; Name is optional
type QuickMatchMsg struct {
	Name string `json:"name,omitempty"`
}

// MoveMsg sets the player's target position in world coords
type MoveMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates with credentials
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes a session with a token
type AuthMsg struct {
	Token string `json:"token"`
}

// ConnectedMsg greets a new connection
type ConnectedMsg struct {
	ClientID string `json:"client_id"`
}

// SetNameAckMsg confirms a name change
type SetNameAckMsg struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
}

// QuickMatchedMsg reports successful room placement
type QuickMatchedMsg struct {
	RoomID   string     `json:"room_id"`
	PlayerID string     `json:"player_id"`
	Config   RoomConfig `json:"config"`
}

// GameStartMsg is broadcast when a room transitions to running
type GameStartMsg struct {
	Message string `json:"message"`
	Players int    `json:"players"`
}

// SplitBallState describes one split ball on the wire
type SplitBallState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
}

// PlayerState is broadcast per player each tick
type PlayerState struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Size        float64          `json:"size"`
	Color       string           `json:"color"`
	IsDead      bool             `json:"isDead"`
	IsSplitting bool             `json:"isSplitting"`
	SplitBalls  []SplitBallState `json:"splitBalls"`
	Score       int              `json:"score"`
}

// FoodState is broadcast per food item
type FoodState struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
}

// RankEntry is one leaderboard row
type RankEntry struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Score  int     `json:"score"`
	Size   float64 `json:"size"`
	Color  string  `json:"color"`
	IsDead bool    `json:"isDead"`
}

// GameStateMsg is the full room snapshot
type GameStateMsg struct {
	Players   []PlayerState `json:"players"`
	Foods     []FoodState   `json:"foods"`
	Rankings  []RankEntry   `json:"rankings"`
	Timestamp int64         `json:"timestamp"` // unix millis
}

// PlayerJoinedMsg is broadcast when a player enters a room
type PlayerJoinedMsg struct {
	Player       PlayerState `json:"player"`
	TotalPlayers int         `json:"totalPlayers"`
	Rankings     []RankEntry `json:"rankings"`
}

// PlayerLeftMsg is broadcast when a player leaves a room
type PlayerLeftMsg struct {
	PlayerID     string `json:"playerId"`
	TotalPlayers int    `json:"totalPlayers"`
}

// PlayerRenamedMsg is broadcast on name change so the leaderboard updates
type PlayerRenamedMsg struct {
	PlayerID string      `json:"playerId"`
	Name     string      `json:"name"`
	Rankings []RankEntry `json:"rankings"`
}

// PlayerEatenMsg names the victim and killer of a collision
type PlayerEatenMsg struct {
	PlayerID   string `json:"playerId"`
	KillerID   string `json:"killerId"`
	KillerName string `json:"killerName"`
}

// PlayerRespawnMsg is broadcast when a dead player comes back
type PlayerRespawnMsg struct {
	PlayerID string `json:"playerId"`
}

// AuthOKMsg confirms registration, login or token resume
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"player_id"`
}

// ProfileDataMsg carries persisted account stats
type ProfileDataMsg struct {
	Username  string `json:"username"`
	Games     int    `json:"games"`
	Eaten     int    `json:"eaten"`
	BestScore int    `json:"best_score"`
}

// ErrorMsg reports a rejected action with the offending event name
type ErrorMsg struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
