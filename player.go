package main

import (
	"fmt"
	"math"
	"time"
)

const (
	MoveDeadzone    = 10.0 // no movement when target closer than this
	SpeedFloor      = 0.5  // large players never drop below half speed
	SizeSpeedScale  = 300.0
	MinSplitSize    = 40.0
	SplitShrink     = 0.6
	SplitBallCount  = 2
	SplitBallOffset = 1.5 // offset from parent, in parent sizes
	SplitBallSpeed  = 1.5 // split balls chase the parent at this multiple
	AutoMergeDelay  = 5 * time.Second
	MaxNameLen      = 20
)

// ballColors is the palette shared by players and food
var ballColors = []string{
	"#f72585", "#4cc9f0", "#4361ee", "#3a0ca3",
	"#fca311", "#e63946", "#457b9d", "#1d3557", "#a8dadc",
}

func randColor() string {
	return ballColors[int(randFloat()*float64(len(ballColors)))%len(ballColors)]
}

// SplitBall is a temporary sub-entity spawned by a split. It is collided
// independently but owned by its parent player.
type SplitBall struct {
	ID    string
	X, Y  float64
	Size  float64
	Color string
}

// Player is one avatar in a room. Owned exclusively by that room's loop.
type Player struct {
	ID       string
	Name     string
	X, Y     float64
	TargetX  float64
	TargetY  float64
	VX, VY   float64
	Size     float64
	Color    string
	IsDead   bool
	Score    int
	RespawnAt time.Time

	IsSplitting bool
	SplitBalls  []SplitBall
	MergeAt     time.Time // forced merge deadline while splitting

	AuthPlayerID int64 // 0 = guest
	EatenCount   int   // players eaten this session
}

// NewGamePlayer creates a player at the origin; the room assigns a
// random spawn position on join.
func NewGamePlayer(id, name string, startSize float64) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Size:  startSize,
		Color: randColor(),
	}
}

// SetTarget updates the position the player steers toward
func (p *Player) SetTarget(x, y float64) {
	p.TargetX = x
	p.TargetY = y
}

// UpdatePosition integrates one tick of motion toward the target and
// clamps the avatar's edge inside the map.
func (p *Player) UpdatePosition(speed, mapW, mapH float64) {
	if p.IsDead {
		return
	}

	dx := p.TargetX - p.X
	dy := p.TargetY - p.Y
	dist := math.Sqrt(dx*dx + dy*dy)

	if dist > MoveDeadzone {
		// Speed attenuates as size grows, floored at half speed
		adjusted := speed * math.Max(SpeedFloor, 1-p.Size/SizeSpeedScale)
		p.VX = dx / dist * adjusted
		p.VY = dy / dist * adjusted
	} else {
		p.VX = 0
		p.VY = 0
	}

	p.X += p.VX
	p.Y += p.VY

	p.X = Clamp(p.X, p.Size, mapW-p.Size)
	p.Y = Clamp(p.Y, p.Size, mapH-p.Size)
}

// DriftSplitBalls moves each split ball toward the parent's current
// position. Balls converge at SplitBallSpeed times the base speed.
func (p *Player) DriftSplitBalls(speed float64) {
	if !p.IsSplitting {
		return
	}
	for i := range p.SplitBalls {
		ball := &p.SplitBalls[i]
		dx := p.X - ball.X
		dy := p.Y - ball.Y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist > MoveDeadzone {
			s := speed * SplitBallSpeed
			ball.X += dx / dist * s
			ball.Y += dy / dist * s
		}
	}
}

// EatFood grows the player and awards score
func (p *Player) EatFood(f *Food) {
	p.Size += f.Size * 0.2
	p.Score += int(f.Size)
}

// EatPlayer absorbs part of another player's area
func (p *Player) EatPlayer(other *Player) {
	p.Size += math.Sqrt(other.Size * other.Size * 0.5)
	p.Score += int(other.Size * 2)
	p.EatenCount++
}

// BeEaten kills the player and schedules a respawn
func (p *Player) BeEaten(respawnDelay float64, now time.Time) {
	p.IsDead = true
	p.RespawnAt = now.Add(time.Duration(respawnDelay * float64(time.Second)))
	p.IsSplitting = false
	p.SplitBalls = nil
	p.MergeAt = time.Time{}
}

// CanRespawn reports whether the respawn deadline has passed
func (p *Player) CanRespawn(now time.Time) bool {
	return p.IsDead && !now.Before(p.RespawnAt)
}

// Respawn resets the player to starting size at a random in-bounds position
func (p *Player) Respawn(startSize, mapW, mapH float64) {
	p.IsDead = false
	p.RespawnAt = time.Time{}
	p.Size = startSize
	p.X = randRange(p.Size, mapW-p.Size)
	p.Y = randRange(p.Size, mapH-p.Size)
	p.TargetX = p.X
	p.TargetY = p.Y
	p.VX = 0
	p.VY = 0
	p.Score = 0
}

// Split shrinks the parent and spawns split balls around it. Ignored
// while dead, already splitting, or below the split threshold.
func (p *Player) Split(now time.Time) bool {
	if p.IsDead || p.IsSplitting || p.Size < MinSplitSize {
		return false
	}

	p.IsSplitting = true
	p.Size *= SplitShrink

	for i := 0; i < SplitBallCount; i++ {
		angle := float64(i) / SplitBallCount * 2 * math.Pi
		dist := p.Size * SplitBallOffset
		p.SplitBalls = append(p.SplitBalls, SplitBall{
			ID:    fmt.Sprintf("%s_ball_%d", p.ID, i),
			X:     p.X + math.Cos(angle)*dist,
			Y:     p.Y + math.Sin(angle)*dist,
			Size:  p.Size,
			Color: p.Color,
		})
	}

	p.MergeAt = now.Add(AutoMergeDelay)
	return true
}

// Merge recombines the parent with its split balls, conserving area
func (p *Player) Merge() bool {
	if !p.IsSplitting || len(p.SplitBalls) == 0 {
		return false
	}

	total := p.Size * p.Size
	for _, ball := range p.SplitBalls {
		total += ball.Size * ball.Size
	}

	p.Size = math.Sqrt(total)
	p.IsSplitting = false
	p.SplitBalls = nil
	p.MergeAt = time.Time{}
	return true
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	balls := make([]SplitBallState, 0, len(p.SplitBalls))
	if p.IsSplitting {
		for _, b := range p.SplitBalls {
			balls = append(balls, SplitBallState{X: b.X, Y: b.Y, Size: b.Size, Color: b.Color})
		}
	}
	return PlayerState{
		ID:          p.ID,
		Name:        p.Name,
		X:           p.X,
		Y:           p.Y,
		Size:        p.Size,
		Color:       p.Color,
		IsDead:      p.IsDead,
		IsSplitting: p.IsSplitting,
		SplitBalls:  balls,
		Score:       p.Score,
	}
}

// ToRank converts to a leaderboard row
func (p *Player) ToRank() RankEntry {
	return RankEntry{
		ID:     p.ID,
		Name:   p.Name,
		Score:  p.Score,
		Size:   p.Size,
		Color:  p.Color,
		IsDead: p.IsDead,
	}
}
