package main

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	roomMetaPrefix    = "room:meta:"
	workerRoomsPrefix = "worker:rooms:"
	roomMetaTTL       = 24 * time.Hour
)

var (
	ErrRoomUnknown = errors.New("room unknown or expired")
	ErrRoomStale   = errors.New("room metadata was stale")
	ErrRoomRemote  = errors.New("room owned by another worker")
)

var roomIDPattern = regexp.MustCompile(`^room_(\d+)`)

// RoomMeta is the non-authoritative directory record describing a room
// for discovery. Authoritative game state lives only in the owning
// process; player_count here may lag and is never trusted for
// correctness, only for candidate filtering.
type RoomMeta struct {
	ID          string `msgpack:"id"`
	WorkerID    int    `msgpack:"worker_id"`
	Status      string `msgpack:"status"`
	PlayerCount int    `msgpack:"player_count"`
	MaxPlayers  int    `msgpack:"max_players"`
	CreatedAt   int64  `msgpack:"created_at"`
}

// RoomDirectory is the cross-process room index and affinity router.
// It maps room ids to owning workers through the shared store; the
// directory only ever describes simulation state, never duplicates it.
type RoomDirectory struct {
	registry *RoomRegistry
	store    *SharedStore
	workerID int
}

// NewRoomDirectory creates a directory bound to this worker's registry
func NewRoomDirectory(registry *RoomRegistry, store *SharedStore, workerID int) *RoomDirectory {
	return &RoomDirectory{
		registry: registry,
		store:    store,
		workerID: workerID,
	}
}

// WorkerID returns this process's worker id
func (d *RoomDirectory) WorkerID() int { return d.workerID }

// CreateRoom creates a room locally and publishes it to the shared
// index. Both writes must succeed; on a store failure the local room is
// torn down again so no half-registered room survives.
func (d *RoomDirectory) CreateRoom(id string, config RoomConfig) (*GameRoom, error) {
	room := d.registry.CreateRoom(id, config)
	if room == nil {
		return nil, fmt.Errorf("cannot create room %s locally", id)
	}

	if err := d.registerRoom(room); err != nil {
		d.registry.RemoveRoom(id)
		return nil, fmt.Errorf("register room %s: %w", id, err)
	}
	return room, nil
}

// registerRoom publishes RoomMeta, adds the id to the shared index and
// to this worker's room list.
func (d *RoomDirectory) registerRoom(room *GameRoom) error {
	meta := RoomMeta{
		ID:          room.ID(),
		WorkerID:    d.workerID,
		Status:      room.Status(),
		PlayerCount: room.PlayerCount(),
		MaxPlayers:  room.Config().MaxPlayers,
		CreatedAt:   time.Now().Unix(),
	}

	if err := d.putMeta(meta); err != nil {
		return err
	}
	if err := d.store.AddRoomToIndex(room.ID()); err != nil {
		return err
	}
	d.addWorkerRoom(room.ID())
	return nil
}

// UpdateRoomMeta refreshes status and player count for an existing
// record, or re-registers the room if the record is missing.
func (d *RoomDirectory) UpdateRoomMeta(room *GameRoom) {
	meta, ok := d.GetRoomMeta(room.ID())
	if !ok {
		if err := d.registerRoom(room); err != nil {
			log.Printf("re-register room %s: %v", room.ID(), err)
		}
		return
	}

	meta.Status = room.Status()
	meta.PlayerCount = room.PlayerCount()
	if err := d.putMeta(meta); err != nil {
		log.Printf("update meta for room %s: %v", room.ID(), err)
	}
}

// UnregisterRoom removes the meta record, the index entry and the
// worker-list entry for a room.
func (d *RoomDirectory) UnregisterRoom(roomID string) {
	d.store.Delete(roomMetaPrefix + roomID)
	if err := d.store.RemoveRoomFromIndex(roomID); err != nil {
		log.Printf("remove room %s from index: %v", roomID, err)
	}
	d.removeWorkerRoom(roomID)
}

// GetRoomMeta returns the directory record for a room
func (d *RoomDirectory) GetRoomMeta(roomID string) (RoomMeta, bool) {
	raw, ok := d.store.Get(roomMetaPrefix + roomID)
	if !ok {
		return RoomMeta{}, false
	}
	var meta RoomMeta
	if err := msgpack.Unmarshal(raw, &meta); err != nil {
		return RoomMeta{}, false
	}
	return meta, true
}

// AllRooms returns the meta records of every indexed room, sorted by
// the numeric suffix of the room id so room_1 always precedes room_2.
func (d *RoomDirectory) AllRooms() []RoomMeta {
	ids, err := d.store.ListRoomIndex()
	if err != nil {
		log.Printf("list room index: %v", err)
		return nil
	}

	metas := make([]RoomMeta, 0, len(ids))
	for _, id := range ids {
		if meta, ok := d.GetRoomMeta(id); ok {
			metas = append(metas, meta)
		}
	}
	sort.Slice(metas, func(i, j int) bool {
		a, b := roomSortKey(metas[i].ID), roomSortKey(metas[j].ID)
		if a != b {
			return a < b
		}
		return metas[i].ID < metas[j].ID
	})
	return metas
}

// FindAvailableRoom returns the first room, in fill order, whose
// recorded player count is below maxPlayers. The count may be stale;
// the owning process re-checks capacity on join.
func (d *RoomDirectory) FindAvailableRoom(maxPlayers int) (RoomMeta, bool) {
	for _, meta := range d.AllRooms() {
		if meta.PlayerCount < maxPlayers {
			return meta, true
		}
	}
	return RoomMeta{}, false
}

// NextRoomID allocates the next sequential room id (room_1, room_2, …)
func (d *RoomDirectory) NextRoomID() string {
	maxIndex := 0
	for _, meta := range d.AllRooms() {
		if n := roomSortKey(meta.ID); n != unnumberedRoom && n > maxIndex {
			maxIndex = n
		}
	}
	return fmt.Sprintf("room_%d", maxIndex+1)
}

// ResolveRoom routes a join request for roomID. Success returns the
// locally hosted room. If the directory claims this worker owns the
// room but it is not here, the stale record is self-healed by
// deregistration. Rooms owned by other workers are not proxied; the
// caller falls back to creating a fresh local room.
func (d *RoomDirectory) ResolveRoom(roomID string) (*GameRoom, error) {
	meta, ok := d.GetRoomMeta(roomID)
	if !ok {
		return nil, ErrRoomUnknown
	}

	if room := d.registry.GetRoom(roomID); room != nil {
		return room, nil
	}

	if meta.WorkerID == d.workerID {
		// Stale metadata: the room should be here but is gone
		log.Printf("room %s: stale meta for this worker, deregistering", roomID)
		d.UnregisterRoom(roomID)
		return nil, ErrRoomStale
	}
	return nil, ErrRoomRemote
}

// CleanupWorkerRooms unregisters every room this worker owns. Called on
// shutdown so other processes do not route players into a dead room.
func (d *RoomDirectory) CleanupWorkerRooms() {
	for _, roomID := range d.workerRooms() {
		d.UnregisterRoom(roomID)
	}
	d.store.Delete(d.workerRoomsKey())
}

func (d *RoomDirectory) putMeta(meta RoomMeta) error {
	raw, err := msgpack.Marshal(meta)
	if err != nil {
		return err
	}
	return d.store.Set(roomMetaPrefix+meta.ID, raw, roomMetaTTL)
}

func (d *RoomDirectory) workerRoomsKey() string {
	return fmt.Sprintf("%s%d", workerRoomsPrefix, d.workerID)
}

// workerRooms reads this worker's room list. Only the owning worker
// writes its own list, so plain read-modify-write is race-free here.
func (d *RoomDirectory) workerRooms() []string {
	raw, ok := d.store.Get(d.workerRoomsKey())
	if !ok {
		return nil
	}
	var ids []string
	if err := msgpack.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

func (d *RoomDirectory) putWorkerRooms(ids []string) {
	raw, err := msgpack.Marshal(ids)
	if err != nil {
		return
	}
	if err := d.store.Set(d.workerRoomsKey(), raw, roomMetaTTL); err != nil {
		log.Printf("update worker room list: %v", err)
	}
}

func (d *RoomDirectory) addWorkerRoom(roomID string) {
	ids := d.workerRooms()
	for _, id := range ids {
		if id == roomID {
			return
		}
	}
	d.putWorkerRooms(append(ids, roomID))
}

func (d *RoomDirectory) removeWorkerRoom(roomID string) {
	ids := d.workerRooms()
	kept := ids[:0]
	for _, id := range ids {
		if id != roomID {
			kept = append(kept, id)
		}
	}
	d.putWorkerRooms(kept)
}

const unnumberedRoom = 1 << 30

// roomSortKey extracts the numeric suffix of room_N ids; rooms without
// one sort last.
func roomSortKey(roomID string) int {
	m := roomIDPattern.FindStringSubmatch(roomID)
	if m == nil {
		return unnumberedRoom
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return unnumberedRoom
	}
	return n
}
