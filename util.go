package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateUUID returns a random UUID v4 string
func GenerateUUID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// randSrc is shared by every room loop and client handler, so the
// xorshift step advances it with a CAS loop.
var randSrc atomic.Uint64

// randFloat returns a random float64 in [0, 1)
func randFloat() float64 {
	for {
		old := randSrc.Load()
		x := old
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		if x == 0 {
			x = 1
		}
		if randSrc.CompareAndSwap(old, x) {
			return float64(x%100000) / 100000.0
		}
	}
}

// randInt returns a random int in [0, n)
func randInt(n int) int {
	if n <= 0 {
		return 0
	}
	return int(randFloat() * float64(n))
}

// randRange returns a random float64 in [lo, hi)
func randRange(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + randFloat()*(hi-lo)
}

func init() {
	// Seed from crypto/rand
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	var seed uint64
	for i, v := range b {
		seed |= uint64(v) << (uint(i) * 8)
	}
	if seed == 0 {
		seed = 1
	}
	randSrc.Store(seed)
}
