package main

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// captureClient records broadcast events for assertions
type captureClient struct {
	mu     sync.Mutex
	events []string
}

func (c *captureClient) SendEvent(event string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureClient) has(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == event {
			return true
		}
	}
	return false
}

// testRoomConfig keeps MinPlayers out of reach so the tick loop never
// starts and tests can drive update() by hand.
func testRoomConfig() RoomConfig {
	cfg := DefaultRoomConfig()
	cfg.MinPlayers = 99
	return cfg
}

func TestRoomCapacityAndDuplicates(t *testing.T) {
	cfg := testRoomConfig()
	cfg.MaxPlayers = 2
	r := NewGameRoom("room_1", cfg)

	if _, err := r.AddPlayer("p1", "one", nil); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if _, err := r.AddPlayer("p1", "again", nil); !errors.Is(err, ErrDuplicatePlayer) {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if _, err := r.AddPlayer("p2", "two", nil); err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if _, err := r.AddPlayer("p3", "three", nil); !errors.Is(err, ErrRoomFull) {
		t.Errorf("expected full error, got %v", err)
	}
	if r.PlayerCount() != 2 {
		t.Errorf("expected 2 players, got %d", r.PlayerCount())
	}
}

func TestRoomAutoStart(t *testing.T) {
	cfg := DefaultRoomConfig()
	cfg.MinPlayers = 2
	r := NewGameRoom("room_1", cfg)
	defer r.Stop()

	c := &captureClient{}
	r.AddPlayer("p1", "one", c)
	if r.Status() != StatusWaiting {
		t.Errorf("room started below minimum, status %s", r.Status())
	}

	r.AddPlayer("p2", "two", nil)
	if r.Status() != StatusRunning {
		t.Errorf("room did not start at minimum, status %s", r.Status())
	}
	if !c.has(MsgGameStart) {
		t.Error("game start was not broadcast")
	}
}

// The client that tips the room into running must itself receive the
// events its join produced.
func TestRoomJoinerReceivesOwnJoinAndStart(t *testing.T) {
	cfg := DefaultRoomConfig()
	cfg.MinPlayers = 1
	r := NewGameRoom("room_1", cfg)
	defer r.Stop()

	c := &captureClient{}
	if _, err := r.AddPlayer("p1", "solo", c); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if !c.has(MsgPlayerJoined) {
		t.Error("joiner did not receive its own player:joined")
	}
	if !c.has(MsgGameStart) {
		t.Error("joiner did not receive the game:start it triggered")
	}
}

func TestRoomPlayerEatsSmallerPlayer(t *testing.T) {
	r := NewGameRoom("room_1", testRoomConfig())
	c := &captureClient{}
	r.AddPlayer("p1", "big", c)
	r.AddPlayer("p2", "small", nil)

	r.mu.Lock()
	p1, p2 := r.players["p1"], r.players["p2"]
	p1.X, p1.Y, p1.Size = 500, 500, 50
	p1.TargetX, p1.TargetY = 500, 500
	p2.X, p2.Y, p2.Size = 510, 500, 30
	p2.TargetX, p2.TargetY = 510, 500
	r.mu.Unlock()

	r.update(time.Now())

	if !p2.IsDead {
		t.Error("smaller player survived a dominant overlap")
	}
	if p1.Size <= 50 {
		t.Errorf("winner did not grow, size %v", p1.Size)
	}
	if !c.has(MsgPlayerEaten) {
		t.Error("eaten event was not broadcast")
	}
}

func TestRoomNearEqualSizesDoNotEat(t *testing.T) {
	r := NewGameRoom("room_1", testRoomConfig())
	r.AddPlayer("p1", "a", nil)
	r.AddPlayer("p2", "b", nil)

	r.mu.Lock()
	p1, p2 := r.players["p1"], r.players["p2"]
	p1.X, p1.Y, p1.Size = 500, 500, 32
	p1.TargetX, p1.TargetY = 500, 500
	p2.X, p2.Y, p2.Size = 505, 500, 30
	p2.TargetX, p2.TargetY = 505, 500
	r.mu.Unlock()

	r.update(time.Now())

	if p1.IsDead || p2.IsDead {
		t.Error("near-equal players must pass through each other")
	}
}

func TestRoomPlayerSwallowsFood(t *testing.T) {
	r := NewGameRoom("room_1", testRoomConfig())
	r.AddPlayer("p1", "eater", nil)

	r.mu.Lock()
	p := r.players["p1"]
	p.X, p.Y, p.Size = 500, 500, 40
	p.TargetX, p.TargetY = 500, 500
	f := &Food{ID: "food_test", X: 505, Y: 500, Size: 10}
	r.foods[f.ID] = f
	r.mu.Unlock()

	r.update(time.Now())

	r.mu.Lock()
	_, alive := r.foods["food_test"]
	r.mu.Unlock()
	if alive {
		t.Error("contained food was not consumed")
	}
	if p.Size != 42 {
		t.Errorf("expected size 42, got %v", p.Size)
	}
	if p.Score != 10 {
		t.Errorf("expected score 10, got %d", p.Score)
	}
}

func TestRoomTouchingFoodIsNotSwallowed(t *testing.T) {
	r := NewGameRoom("room_1", testRoomConfig())
	r.AddPlayer("p1", "eater", nil)

	r.mu.Lock()
	p := r.players["p1"]
	p.X, p.Y, p.Size = 500, 500, 40
	p.TargetX, p.TargetY = 500, 500
	// Overlapping but not fully contained: dist 35 >= 40 - 10
	f := &Food{ID: "food_edge", X: 535, Y: 500, Size: 10}
	r.foods[f.ID] = f
	r.mu.Unlock()

	r.update(time.Now())

	r.mu.Lock()
	_, alive := r.foods["food_edge"]
	r.mu.Unlock()
	if !alive {
		t.Error("merely touching food was consumed")
	}
}

func TestRoomFoodReplenishRate(t *testing.T) {
	cfg := testRoomConfig()
	cfg.FoodCount = 5
	r := NewGameRoom("room_1", cfg)
	r.AddPlayer("p1", "one", nil)

	r.mu.Lock()
	r.lastFoodSpawn = time.Now().Add(-2 * time.Second)
	r.mu.Unlock()

	now := time.Now()
	r.update(now)
	r.update(now.Add(10 * time.Millisecond))

	r.mu.Lock()
	n := len(r.foods)
	r.mu.Unlock()
	if n != 1 {
		t.Errorf("expected exactly 1 food after back-to-back ticks, got %d", n)
	}
}

func TestRoomFoodCeiling(t *testing.T) {
	cfg := testRoomConfig()
	cfg.FoodCount = 3
	r := NewGameRoom("room_1", cfg)
	r.AddPlayer("p1", "one", nil)

	r.mu.Lock()
	for i := 0; i < 3; i++ {
		f := NewFood(cfg.MapWidth, cfg.MapHeight, cfg.FoodSizeMin, cfg.FoodSizeMax)
		r.foods[f.ID] = f
	}
	r.lastFoodSpawn = time.Now().Add(-5 * time.Second)
	r.mu.Unlock()

	r.update(time.Now())

	r.mu.Lock()
	n := len(r.foods)
	r.mu.Unlock()
	if n != 3 {
		t.Errorf("food exceeded ceiling: %d", n)
	}
}

func TestRoomRankingsSortedAndCapped(t *testing.T) {
	cfg := testRoomConfig()
	r := NewGameRoom("room_1", cfg)
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		r.AddPlayer(id, id, nil)
	}

	r.mu.Lock()
	score := 0
	for _, p := range r.players {
		p.Score = score
		score += 10
	}
	ranks := r.rankings()
	r.mu.Unlock()

	if len(ranks) != RankingsTop {
		t.Fatalf("expected %d rankings, got %d", RankingsTop, len(ranks))
	}
	for i := 1; i < len(ranks); i++ {
		if ranks[i].Score > ranks[i-1].Score {
			t.Errorf("rankings not descending at %d: %d > %d", i, ranks[i].Score, ranks[i-1].Score)
		}
	}
}

func TestRoomRemovePlayer(t *testing.T) {
	r := NewGameRoom("room_1", testRoomConfig())
	r.AddPlayer("p1", "one", nil)
	c := &captureClient{}
	r.AddPlayer("p2", "two", c)

	if remaining := r.RemovePlayer("p1"); remaining != 1 {
		t.Errorf("expected 1 remaining, got %d", remaining)
	}
	if !c.has(MsgPlayerLeft) {
		t.Error("departure was not broadcast")
	}
	if remaining := r.RemovePlayer("p2"); remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
	// Removing an unknown id must be harmless
	if remaining := r.RemovePlayer("ghost"); remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
}

func TestRoomRenamePlayer(t *testing.T) {
	r := NewGameRoom("room_1", testRoomConfig())
	r.AddPlayer("p1", "before", nil)

	if !r.RenamePlayer("p1", "after") {
		t.Fatal("rename refused for existing player")
	}
	r.mu.Lock()
	name := r.players["p1"].Name
	r.mu.Unlock()
	if name != "after" {
		t.Errorf("expected name after, got %s", name)
	}
	if r.RenamePlayer("ghost", "x") {
		t.Error("rename succeeded for unknown player")
	}
}

func TestRoomGameplayForUnknownPlayerIsNoop(t *testing.T) {
	r := NewGameRoom("room_1", testRoomConfig())
	r.HandleMove("ghost", 100, 100)
	r.HandleSplit("ghost")
	r.HandleMerge("ghost")
}

func TestRoomDeadPlayerIgnoresMove(t *testing.T) {
	r := NewGameRoom("room_1", testRoomConfig())
	r.AddPlayer("p1", "one", nil)

	r.mu.Lock()
	p := r.players["p1"]
	p.IsDead = true
	x, y := p.TargetX, p.TargetY
	r.mu.Unlock()

	r.HandleMove("p1", 999, 999)

	r.mu.Lock()
	moved := p.TargetX != x || p.TargetY != y
	r.mu.Unlock()
	if moved {
		t.Error("dead player accepted a move command")
	}
}

func TestRoomRespawnAfterDelay(t *testing.T) {
	cfg := testRoomConfig()
	cfg.RespawnTime = 1
	r := NewGameRoom("room_1", cfg)
	r.AddPlayer("p1", "one", nil)

	now := time.Now()
	r.mu.Lock()
	p := r.players["p1"]
	p.BeEaten(cfg.RespawnTime, now)
	r.mu.Unlock()

	r.update(now.Add(500 * time.Millisecond))
	if !p.IsDead {
		t.Fatal("player respawned early")
	}

	r.update(now.Add(1100 * time.Millisecond))
	if p.IsDead {
		t.Error("player did not respawn after the delay")
	}
}
