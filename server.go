package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		// Same-host origins only; dev clients connect without Origin
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// extractIP returns the client IP without the port
func extractIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}

// SetupRoutes registers all HTTP handlers on mux
func SetupRoutes(mux *http.ServeMux, hub *Hub) {
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(hub, w, r)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"worker":  hub.directory.WorkerID(),
			"clients": hub.ClientCount(),
			"rooms":   hub.registry.RoomCount(),
		})
	})

	// Invite QR: encodes a join link for the given room as a PNG
	mux.HandleFunc("/invite", func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			http.Error(w, "missing room parameter", http.StatusBadRequest)
			return
		}
		if _, ok := hub.directory.GetRoomMeta(roomID); !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		joinURL := fmt.Sprintf("http://%s/?room=%s", r.Host, roomID)
		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "failed to generate code", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})
}

// serveWS upgrades the connection and starts the client pumps
func serveWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r.RemoteAddr)
	if !hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade from %s: %v", ip, err)
		return
	}

	hub.TrackConnect(ip)
	client := NewClient(hub, conn, ip)
	hub.register <- client

	go client.WritePump()
	go client.ReadPump()

	client.SendEvent(MsgConnected, ConnectedMsg{ClientID: client.clientID})
}
