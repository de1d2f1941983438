package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry      = 7 * 24 * time.Hour
	bcryptCost     = 12
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
)

var (
	ErrUserExists   = errors.New("username already taken")
	ErrBadCreds     = errors.New("invalid username or password")
	ErrInvalidToken = errors.New("invalid token")
)

// Auth issues and validates session tokens for optional accounts.
// Guests never touch this; it only backs register/login/auth events.
type Auth struct {
	db        *DB
	jwtSecret []byte
}

// NewAuth creates an Auth with a persisted HMAC secret so tokens
// survive restarts.
func NewAuth(db *DB) *Auth {
	var secret []byte
	if h := db.GetSetting("jwt_secret"); h != "" {
		if b, err := hex.DecodeString(h); err == nil {
			secret = b
		}
	}
	if len(secret) == 0 {
		secret = make([]byte, 32)
		rand.Read(secret)
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			// Tokens become restart-scoped, login still works
		}
	}
	return &Auth{db: db, jwtSecret: secret}
}

// Register creates an account and returns its id and a fresh token
func (a *Auth) Register(username, password string) (int64, string, error) {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return 0, "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return 0, "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	existing, err := a.db.GetPlayerByUsername(username)
	if err != nil {
		return 0, "", err
	}
	if existing != nil {
		return 0, "", ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, "", err
	}
	id, err := a.db.CreatePlayer(username, string(hash))
	if err != nil {
		return 0, "", err
	}

	token, err := a.generateToken(id, username)
	return id, token, err
}

// Login checks credentials and returns the account id and a token
func (a *Auth) Login(username, password string) (int64, string, error) {
	player, err := a.db.GetPlayerByUsername(username)
	if err != nil {
		return 0, "", err
	}
	if player == nil || player.PassHash == "" {
		return 0, "", ErrBadCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PassHash), []byte(password)); err != nil {
		return 0, "", ErrBadCreds
	}

	token, err := a.generateToken(player.ID, player.Username)
	return player.ID, token, err
}

// ValidateToken parses a token and returns the account id and username
func (a *Auth) ValidateToken(tokenStr string) (int64, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	name, ok := claims["name"].(string)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	return int64(sub), name, nil
}

func (a *Auth) generateToken(id int64, username string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  id,
		"name": username,
		"exp":  time.Now().Add(jwtExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}
