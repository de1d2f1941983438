package main

import (
	"log"
	"sync"
	"time"
)

// Analytics event types
const (
	EvtSessionStart = "session_start"
	EvtSessionEnd   = "session_end"
	EvtRoomCreated  = "room_created"
	EvtQuickMatch   = "quick_match"
	EvtPlayerEaten  = "player_eaten"
)

const (
	analyticsBufSize   = 1024
	analyticsBatchSize = 64
	analyticsFlushTick = 5 * time.Second
)

// AnalyticsEvent is a single trackable event
type AnalyticsEvent struct {
	Type      string
	PlayerID  int64
	RoomID    string
	Data      string
	Timestamp time.Time
}

// Analytics persists events with a batched background writer so the
// game loop never blocks on the database.
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsBufSize),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event (non-blocking; drops when the buffer is full)
func (a *Analytics) Track(evtType string, playerID int64, roomID, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		PlayerID:  playerID,
		RoomID:    roomID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Buffer full — drop rather than stall the caller
	}
}

// Close flushes pending events and stops the writer
func (a *Analytics) Close() {
	close(a.stop)
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, analyticsBatchSize)
	ticker := time.NewTicker(analyticsFlushTick)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := a.db.InsertEvents(batch); err != nil {
			log.Printf("analytics flush: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-a.events:
			batch = append(batch, e)
			if len(batch) >= analyticsBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.stop:
			// Drain whatever is still queued
			for {
				select {
				case e := <-a.events:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		}
	}
}
