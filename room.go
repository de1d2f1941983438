package main

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	TickInterval      = 33 * time.Millisecond // ~30Hz simulation
	FoodSpawnInterval = time.Second           // at most one food per second
	FoodSearchPad     = 20.0                  // extra query radius for food lookups
	GridCellSize      = 60.0                  // ~2x largest expected entity size
	RankingsTop       = 10
)

// Room lifecycle states
const (
	StatusWaiting  = "waiting"
	StatusRunning  = "running"
	StatusFinished = "finished"
)

var (
	ErrRoomFull        = errors.New("room is full")
	ErrDuplicatePlayer = errors.New("player already in room")
)

// Broadcaster delivers one event to a single client
type Broadcaster interface {
	SendEvent(event string, data interface{})
}

// GameRoom owns one isolated simulation instance: players, food and the
// spatial grid. All state is mutated only under mu, so message handling
// and tick advancement are strictly serialized.
type GameRoom struct {
	mu      sync.Mutex
	id      string
	status  string
	config  RoomConfig
	players map[string]*Player
	foods   map[string]*Food
	grid    *SpatialGrid
	clients map[string]Broadcaster

	stop          chan struct{}
	stopped       bool
	lastFoodSpawn time.Time

	analytics *Analytics // optional, set by the registry
}

// NewGameRoom creates a room in the waiting state
func NewGameRoom(id string, config RoomConfig) *GameRoom {
	return &GameRoom{
		id:      id,
		status:  StatusWaiting,
		config:  config,
		players: make(map[string]*Player),
		foods:   make(map[string]*Food),
		grid:    NewSpatialGrid(GridCellSize, config.MapWidth, config.MapHeight),
		clients: make(map[string]Broadcaster),
		stop:    make(chan struct{}),
	}
}

// ID returns the room id
func (r *GameRoom) ID() string { return r.id }

// Config returns the room configuration
func (r *GameRoom) Config() RoomConfig { return r.config }

// Status returns the current lifecycle state
func (r *GameRoom) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// PlayerCount returns the number of players in the room
func (r *GameRoom) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Run drives the fixed-tick loop until the room finishes. The tick
// budget is a floor: a long tick is not caught up, the loop simply
// resumes at the next ticker fire.
func (r *GameRoom) Run() {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.update(time.Now()) {
				return
			}
		case <-r.stop:
			return
		}
	}
}

// Stop transitions the room to finished and releases the loop
func (r *GameRoom) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusFinished
	if !r.stopped {
		r.stopped = true
		close(r.stop)
	}
}

// start transitions waiting -> running. Caller holds mu.
func (r *GameRoom) start() {
	if r.status != StatusWaiting {
		return
	}
	r.status = StatusRunning

	for i := 0; i < r.config.FoodCount; i++ {
		f := NewFood(r.config.MapWidth, r.config.MapHeight, r.config.FoodSizeMin, r.config.FoodSizeMax)
		r.foods[f.ID] = f
	}
	r.lastFoodSpawn = time.Now()

	r.broadcast(MsgGameStart, GameStartMsg{
		Message: "game started",
		Players: len(r.players),
	})

	go r.Run()
}

// AddPlayer inserts a player at a random spawn position and registers
// its broadcaster before any join events fire, so the joiner receives
// its own player:joined and a game:start it triggers. The room
// auto-starts once the minimum player count is met; joining remains
// permitted while running, up to MaxPlayers.
func (r *GameRoom) AddPlayer(id, name string, b Broadcaster) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= r.config.MaxPlayers {
		return nil, ErrRoomFull
	}
	if _, ok := r.players[id]; ok {
		return nil, ErrDuplicatePlayer
	}

	p := NewGamePlayer(id, name, r.config.PlayerStartSize)
	p.X = randRange(p.Size, r.config.MapWidth-p.Size)
	p.Y = randRange(p.Size, r.config.MapHeight-p.Size)
	p.TargetX = p.X
	p.TargetY = p.Y
	r.players[id] = p
	if b != nil {
		r.clients[id] = b
	}

	r.broadcast(MsgPlayerJoined, PlayerJoinedMsg{
		Player:       p.ToState(),
		TotalPlayers: len(r.players),
		Rankings:     r.rankings(),
	})

	if r.status == StatusWaiting && len(r.players) >= r.config.MinPlayers {
		r.start()
	}
	return p, nil
}

// RemovePlayer drops a player from both the simulation and the client
// set, and broadcasts the departure. Returns the remaining count; the
// caller unregisters the room from the directory when it hits zero.
func (r *GameRoom) RemovePlayer(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; ok {
		delete(r.players, id)
		r.broadcast(MsgPlayerLeft, PlayerLeftMsg{
			PlayerID:     id,
			TotalPlayers: len(r.players),
		})
	}
	delete(r.clients, id)
	return len(r.players)
}

// RenamePlayer updates a display name and re-broadcasts the leaderboard
func (r *GameRoom) RenamePlayer(id, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return false
	}
	p.Name = name
	r.broadcast(MsgPlayerRenamed, PlayerRenamedMsg{
		PlayerID: id,
		Name:     name,
		Rankings: r.rankings(),
	})
	return true
}

// HandleMove sets a player's steering target. Unknown ids are no-ops.
func (r *GameRoom) HandleMove(playerID string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok || p.IsDead {
		return
	}
	p.SetTarget(x, y)
}

// HandleSplit triggers a split for the player
func (r *GameRoom) HandleSplit(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[playerID]; ok {
		p.Split(time.Now())
	}
}

// HandleMerge triggers an early merge for the player
func (r *GameRoom) HandleMerge(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[playerID]; ok {
		p.Merge()
	}
}

// update runs one tick. Returns false once the room has finished.
func (r *GameRoom) update(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusFinished {
		return false
	}

	r.updateGameState(now)
	r.checkCollisions(now)
	r.updateRespawns(now)
	r.spawnFoodIfNeeded(now)
	r.broadcastState(now)
	return true
}

// updateGameState integrates motion, forces overdue merges and drifts
// split balls toward their parents. Caller holds mu.
func (r *GameRoom) updateGameState(now time.Time) {
	speed := r.config.PlayerSpeed
	for _, p := range r.players {
		p.UpdatePosition(speed, r.config.MapWidth, r.config.MapHeight)

		if p.IsSplitting {
			if !p.MergeAt.IsZero() && !now.Before(p.MergeAt) {
				p.Merge()
			} else {
				p.DriftSplitBalls(speed)
			}
		}
	}
}

// checkCollisions rebuilds the grid and resolves food and player
// collisions. Caller holds mu.
func (r *GameRoom) checkCollisions(now time.Time) {
	r.grid.Clear()

	for _, p := range r.players {
		if p.IsDead {
			continue
		}
		r.grid.Insert(GridEntity{ID: p.ID, Kind: KindPlayer, X: p.X, Y: p.Y, Size: p.Size, Ref: p})
		for i := range p.SplitBalls {
			b := &p.SplitBalls[i]
			r.grid.Insert(GridEntity{ID: b.ID, Kind: KindSplitBall, X: b.X, Y: b.Y, Size: b.Size, Ref: b})
		}
	}
	for _, f := range r.foods {
		r.grid.Insert(GridEntity{ID: f.ID, Kind: KindFood, X: f.X, Y: f.Y, Size: f.Size, Ref: f})
	}

	r.checkFoodCollisions()
	r.checkPlayerCollisions(now)
}

// checkFoodCollisions feeds players and split balls. A split ball may
// consume at most one food per tick; food must be fully contained, not
// merely touching. Caller holds mu.
func (r *GameRoom) checkFoodCollisions() {
	for _, p := range r.players {
		if p.IsDead {
			continue
		}

		if p.IsSplitting {
			for i := range p.SplitBalls {
				ball := &p.SplitBalls[i]
				nearby := r.grid.GetNearby(ball.X, ball.Y, ball.Size+FoodSearchPad, KindFood)
				for _, e := range nearby {
					f := e.Ref.(*Food)
					if _, alive := r.foods[f.ID]; !alive {
						continue
					}
					if Swallows(ball.X, ball.Y, ball.Size, f) {
						ball.Size += f.Size * 0.2
						delete(r.foods, f.ID)
						break
					}
				}
			}
			continue
		}

		nearby := r.grid.GetNearby(p.X, p.Y, p.Size+FoodSearchPad, KindFood)
		for _, e := range nearby {
			f := e.Ref.(*Food)
			if _, alive := r.foods[f.ID]; !alive {
				continue
			}
			if Swallows(p.X, p.Y, p.Size, f) {
				p.EatFood(f)
				delete(r.foods, f.ID)
			}
		}
	}
}

// checkPlayerCollisions resolves player-versus-player eating. Each pair
// is processed once: the candidate is skipped when its id sorts before
// the current player's. Caller holds mu.
func (r *GameRoom) checkPlayerCollisions(now time.Time) {
	for _, p1 := range r.players {
		if p1.IsDead {
			continue
		}

		nearby := r.grid.GetNearby(p1.X, p1.Y, p1.Size*2, KindPlayer)
		for _, e := range nearby {
			p2 := e.Ref.(*Player)
			if p2.ID == p1.ID || p2.IsDead || p1.IsDead {
				continue
			}
			if p2.ID < p1.ID {
				continue
			}
			if CheckCollision(p1.X, p1.Y, p1.Size, p2.X, p2.Y, p2.Size) {
				r.resolvePlayerCollision(p1, p2, now)
			}
		}
	}
}

// resolvePlayerCollision applies the dominance rule: the larger player
// eats when it exceeds the other by the threshold, ties are a no-op.
// Caller holds mu.
func (r *GameRoom) resolvePlayerCollision(p1, p2 *Player, now time.Time) {
	switch {
	case Dominates(p1.Size, p2.Size):
		r.eat(p1, p2, now)
	case Dominates(p2.Size, p1.Size):
		r.eat(p2, p1, now)
	}
}

// eat applies one resolved kill: growth, death scheduling, broadcast
// and analytics. Caller holds mu.
func (r *GameRoom) eat(killer, victim *Player, now time.Time) {
	killer.EatPlayer(victim)
	victim.BeEaten(r.config.RespawnTime, now)
	r.broadcast(MsgPlayerEaten, PlayerEatenMsg{
		PlayerID:   victim.ID,
		KillerID:   killer.ID,
		KillerName: killer.Name,
	})
	if r.analytics != nil {
		r.analytics.Track(EvtPlayerEaten, killer.AuthPlayerID, r.id,
			fmt.Sprintf("killer=%s victim=%s", killer.ID, victim.ID))
	}
}

// updateRespawns revives players whose respawn deadline has passed.
// Caller holds mu.
func (r *GameRoom) updateRespawns(now time.Time) {
	for _, p := range r.players {
		if p.CanRespawn(now) {
			p.Respawn(r.config.PlayerStartSize, r.config.MapWidth, r.config.MapHeight)
			r.broadcast(MsgPlayerRespawn, PlayerRespawnMsg{PlayerID: p.ID})
		}
	}
}

// spawnFoodIfNeeded adds at most one food per elapsed second, never
// exceeding the configured ceiling. Caller holds mu.
func (r *GameRoom) spawnFoodIfNeeded(now time.Time) {
	if now.Sub(r.lastFoodSpawn) >= FoodSpawnInterval && len(r.foods) < r.config.FoodCount {
		f := NewFood(r.config.MapWidth, r.config.MapHeight, r.config.FoodSizeMin, r.config.FoodSizeMax)
		r.foods[f.ID] = f
		r.lastFoodSpawn = now
	}
}

// rankings returns the top players by score. Stable sort keeps tie
// order deterministic. Caller holds mu.
func (r *GameRoom) rankings() []RankEntry {
	ranks := make([]RankEntry, 0, len(r.players))
	for _, p := range r.players {
		ranks = append(ranks, p.ToRank())
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Score > ranks[j].Score
	})
	if len(ranks) > RankingsTop {
		ranks = ranks[:RankingsTop]
	}
	return ranks
}

// broadcastState sends the full room snapshot to every member. Caller
// holds mu.
func (r *GameRoom) broadcastState(now time.Time) {
	state := GameStateMsg{
		Players:   make([]PlayerState, 0, len(r.players)),
		Foods:     make([]FoodState, 0, len(r.foods)),
		Rankings:  r.rankings(),
		Timestamp: now.UnixMilli(),
	}
	for _, p := range r.players {
		state.Players = append(state.Players, p.ToState())
	}
	for _, f := range r.foods {
		state.Foods = append(state.Foods, f.ToState())
	}
	r.broadcast(MsgGameState, state)
}

// broadcast fans an event out to every connected client of the room.
// Sends are fire-and-forget; a slow client drops frames instead of
// stalling the loop. Caller holds mu.
func (r *GameRoom) broadcast(event string, data interface{}) {
	for _, c := range r.clients {
		c.SendEvent(event, data)
	}
}
