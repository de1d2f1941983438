package main

import (
	"errors"
	"fmt"
	"testing"
)

func testDirectory(t *testing.T) (*RoomDirectory, *RoomRegistry) {
	t.Helper()
	registry := NewRoomRegistry(nil)
	dir := NewRoomDirectory(registry, testStore(t), 1)
	t.Cleanup(func() {
		for _, id := range registry.RoomIDs() {
			registry.RemoveRoom(id)
		}
	})
	return dir, registry
}

func TestDirectoryCreateAndResolve(t *testing.T) {
	dir, registry := testDirectory(t)

	room, err := dir.CreateRoom("room_1", testRoomConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if registry.GetRoom("room_1") != room {
		t.Error("room not registered locally")
	}

	meta, ok := dir.GetRoomMeta("room_1")
	if !ok {
		t.Fatal("meta not published")
	}
	if meta.WorkerID != 1 || meta.Status != StatusWaiting {
		t.Errorf("unexpected meta: %+v", meta)
	}

	resolved, err := dir.ResolveRoom("room_1")
	if err != nil || resolved != room {
		t.Errorf("resolve returned %v, %v", resolved, err)
	}
}

func TestDirectoryResolveUnknownRoom(t *testing.T) {
	dir, _ := testDirectory(t)

	if _, err := dir.ResolveRoom("room_42"); !errors.Is(err, ErrRoomUnknown) {
		t.Errorf("expected unknown error, got %v", err)
	}
}

func TestDirectoryStaleMetaSelfHeals(t *testing.T) {
	dir, registry := testDirectory(t)

	if _, err := dir.CreateRoom("room_1", testRoomConfig()); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Simulate a crash leaving metadata behind: the room disappears
	// locally but the directory record survives
	registry.RemoveRoom("room_1")

	if _, err := dir.ResolveRoom("room_1"); !errors.Is(err, ErrRoomStale) {
		t.Fatalf("expected stale error, got %v", err)
	}
	if _, ok := dir.GetRoomMeta("room_1"); ok {
		t.Error("stale meta was not deregistered")
	}
}

func TestDirectoryRemoteRoomNotProxied(t *testing.T) {
	dir, _ := testDirectory(t)

	// Publish a record owned by a different worker
	other := NewRoomDirectory(NewRoomRegistry(nil), dir.store, 2)
	room := other.registry.CreateRoom("room_7", testRoomConfig())
	if err := other.registerRoom(room); err != nil {
		t.Fatalf("register remote: %v", err)
	}
	defer other.registry.RemoveRoom("room_7")

	if _, err := dir.ResolveRoom("room_7"); !errors.Is(err, ErrRoomRemote) {
		t.Errorf("expected remote error, got %v", err)
	}
}

func TestDirectoryFindAvailableRoomFillOrder(t *testing.T) {
	dir, _ := testDirectory(t)
	cfg := testRoomConfig()
	cfg.MaxPlayers = 2

	r1, _ := dir.CreateRoom("room_1", cfg)
	dir.CreateRoom("room_2", cfg)

	meta, ok := dir.FindAvailableRoom(cfg.MaxPlayers)
	if !ok || meta.ID != "room_1" {
		t.Fatalf("expected room_1 first, got %+v ok=%v", meta, ok)
	}

	// Fill room_1; the directory must route to room_2
	r1.AddPlayer("p1", "a", nil)
	r1.AddPlayer("p2", "b", nil)
	dir.UpdateRoomMeta(r1)

	meta, ok = dir.FindAvailableRoom(cfg.MaxPlayers)
	if !ok || meta.ID != "room_2" {
		t.Errorf("expected room_2 after room_1 filled, got %+v ok=%v", meta, ok)
	}
}

func TestDirectoryNoAvailableRoom(t *testing.T) {
	dir, _ := testDirectory(t)
	cfg := testRoomConfig()
	cfg.MaxPlayers = 1

	r1, _ := dir.CreateRoom("room_1", cfg)
	r1.AddPlayer("p1", "a", nil)
	dir.UpdateRoomMeta(r1)

	if _, ok := dir.FindAvailableRoom(cfg.MaxPlayers); ok {
		t.Error("found a room when every room is full")
	}
}

func TestDirectoryNextRoomID(t *testing.T) {
	dir, _ := testDirectory(t)

	if id := dir.NextRoomID(); id != "room_1" {
		t.Errorf("expected room_1 on empty directory, got %s", id)
	}

	dir.CreateRoom("room_1", testRoomConfig())
	dir.CreateRoom("room_3", testRoomConfig())
	if id := dir.NextRoomID(); id != "room_4" {
		t.Errorf("expected room_4 after room_3, got %s", id)
	}
}

func TestDirectoryFillOrderIsNumeric(t *testing.T) {
	dir, _ := testDirectory(t)

	// room_10 must sort after room_2 despite lexicographic order
	for _, id := range []string{"room_10", "room_2", "room_1"} {
		if _, err := dir.CreateRoom(id, testRoomConfig()); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	metas := dir.AllRooms()
	want := []string{"room_1", "room_2", "room_10"}
	if len(metas) != len(want) {
		t.Fatalf("expected %d rooms, got %d", len(want), len(metas))
	}
	for i, w := range want {
		if metas[i].ID != w {
			t.Errorf("position %d: expected %s, got %s", i, w, metas[i].ID)
		}
	}
}

func TestDirectoryUnregisterRoom(t *testing.T) {
	dir, registry := testDirectory(t)

	dir.CreateRoom("room_1", testRoomConfig())
	registry.RemoveRoom("room_1")
	dir.UnregisterRoom("room_1")

	if _, ok := dir.GetRoomMeta("room_1"); ok {
		t.Error("meta survived unregister")
	}
	if len(dir.AllRooms()) != 0 {
		t.Error("index entry survived unregister")
	}
}

func TestDirectoryCleanupWorkerRooms(t *testing.T) {
	dir, registry := testDirectory(t)

	for i := 1; i <= 3; i++ {
		if _, err := dir.CreateRoom(fmt.Sprintf("room_%d", i), testRoomConfig()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	dir.CleanupWorkerRooms()
	if n := len(dir.AllRooms()); n != 0 {
		t.Errorf("%d rooms survived worker cleanup", n)
	}
	// Local rooms are torn down separately on shutdown
	for _, id := range registry.RoomIDs() {
		registry.RemoveRoom(id)
	}
}
