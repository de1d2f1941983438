package main

import (
	"log"
	"sync"
)

const maxLocalRooms = 100

// RoomRegistry holds the rooms owned by this process. It is purely
// local; cross-process discovery goes through the RoomDirectory.
type RoomRegistry struct {
	mu        sync.RWMutex
	rooms     map[string]*GameRoom
	analytics *Analytics
}

// NewRoomRegistry creates an empty registry; analytics may be nil
func NewRoomRegistry(analytics *Analytics) *RoomRegistry {
	return &RoomRegistry{
		rooms:     make(map[string]*GameRoom),
		analytics: analytics,
	}
}

// CreateRoom creates and registers a room. Returns nil if the local
// limit is reached or the id already exists.
func (rr *RoomRegistry) CreateRoom(id string, config RoomConfig) *GameRoom {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if len(rr.rooms) >= maxLocalRooms {
		return nil
	}
	if _, ok := rr.rooms[id]; ok {
		return nil
	}

	room := NewGameRoom(id, config)
	room.analytics = rr.analytics
	rr.rooms[id] = room
	log.Printf("room %s created", id)
	return room
}

// GetRoom returns a locally hosted room, or nil
func (rr *RoomRegistry) GetRoom(id string) *GameRoom {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return rr.rooms[id]
}

// RemoveRoom stops a room's loop and drops it from the registry
func (rr *RoomRegistry) RemoveRoom(id string) {
	rr.mu.Lock()
	room, ok := rr.rooms[id]
	if ok {
		delete(rr.rooms, id)
	}
	rr.mu.Unlock()

	if ok {
		room.Stop()
		log.Printf("room %s destroyed", id)
	}
}

// RoomCount returns the number of locally hosted rooms
func (rr *RoomRegistry) RoomCount() int {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return len(rr.rooms)
}

// RoomIDs returns the ids of all locally hosted rooms
func (rr *RoomRegistry) RoomIDs() []string {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	ids := make([]string, 0, len(rr.rooms))
	for id := range rr.rooms {
		ids = append(ids, id)
	}
	return ids
}
