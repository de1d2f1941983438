package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// RoomConfig holds the tunable settings for one game room
type RoomConfig struct {
	MinPlayers      int     `json:"min_players"`
	MaxPlayers      int     `json:"max_players"`
	MapWidth        float64 `json:"map_width"`
	MapHeight       float64 `json:"map_height"`
	FoodCount       int     `json:"food_count"`
	RespawnTime     float64 `json:"respawn_time"` // seconds
	PlayerStartSize float64 `json:"player_start_size"`
	PlayerSpeed     float64 `json:"player_speed"`
	FoodSizeMin     float64 `json:"food_size_min"`
	FoodSizeMax     float64 `json:"food_size_max"`
}

// DefaultRoomConfig returns the standard arena settings
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		MinPlayers:      1,
		MaxPlayers:      50,
		MapWidth:        2000,
		MapHeight:       2000,
		FoodCount:       100,
		RespawnTime:     30,
		PlayerStartSize: 30,
		PlayerSpeed:     5,
		FoodSizeMin:     5,
		FoodSizeMax:     15,
	}
}

// ServerConfig holds process-level settings
type ServerConfig struct {
	Addr     string
	DBPath   string
	WorkerID int
	Room     RoomConfig
}

// LoadServerConfig reads .env (if present) and environment overrides
// on top of the defaults. Flag values are applied afterwards in main.
func LoadServerConfig() ServerConfig {
	// Missing .env is fine, env vars may come from the environment itself
	_ = godotenv.Load()

	cfg := ServerConfig{
		Addr:     envStr("ARENA_ADDR", ":8080"),
		DBPath:   envStr("ARENA_DB", "storage/shared.db"),
		WorkerID: envInt("ARENA_WORKER_ID", os.Getpid()),
		Room:     DefaultRoomConfig(),
	}

	cfg.Room.MinPlayers = envInt("ARENA_MIN_PLAYERS", cfg.Room.MinPlayers)
	cfg.Room.MaxPlayers = envInt("ARENA_MAX_PLAYERS", cfg.Room.MaxPlayers)
	cfg.Room.MapWidth = envFloat("ARENA_MAP_WIDTH", cfg.Room.MapWidth)
	cfg.Room.MapHeight = envFloat("ARENA_MAP_HEIGHT", cfg.Room.MapHeight)
	cfg.Room.FoodCount = envInt("ARENA_FOOD_COUNT", cfg.Room.FoodCount)
	cfg.Room.RespawnTime = envFloat("ARENA_RESPAWN_TIME", cfg.Room.RespawnTime)
	cfg.Room.PlayerStartSize = envFloat("ARENA_PLAYER_START_SIZE", cfg.Room.PlayerStartSize)
	cfg.Room.PlayerSpeed = envFloat("ARENA_PLAYER_SPEED", cfg.Room.PlayerSpeed)
	cfg.Room.FoodSizeMin = envFloat("ARENA_FOOD_SIZE_MIN", cfg.Room.FoodSizeMin)
	cfg.Room.FoodSizeMax = envFloat("ARENA_FOOD_SIZE_MAX", cfg.Room.FoodSizeMax)

	return cfg
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
