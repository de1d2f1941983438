package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg := LoadServerConfig()

	addr := flag.String("addr", cfg.Addr, "listen address")
	dbPath := flag.String("db", cfg.DBPath, "sqlite database path")
	workerID := flag.Int("worker", cfg.WorkerID, "worker id for the room directory")
	flag.Parse()

	store, err := OpenSharedStore(*dbPath)
	if err != nil {
		log.Fatalf("open shared store: %v", err)
	}
	defer store.Close()

	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	analytics := NewAnalytics(db)
	registry := NewRoomRegistry(analytics)
	directory := NewRoomDirectory(registry, store, *workerID)

	hub := NewHub(registry, directory, cfg.Room, db, analytics)
	go hub.Run()

	mux := http.NewServeMux()
	SetupRoutes(mux, hub)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("worker %d listening on %s", *workerID, *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	// Pull this worker's rooms out of the directory so other processes
	// stop routing players here
	directory.CleanupWorkerRooms()
	for _, id := range registry.RoomIDs() {
		registry.RemoveRoom(id)
	}
	analytics.Close()
}
