/*
Package game contains the core logic for the liar game.

This file defines the Registry, which owns the collection of live rooms. It
generates codes, mediates lookup, removes rooms whose loops have finished, and
sweeps out rooms older than the retention window.
*/
package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"liargame/internal/configs"
	"liargame/internal/pkg/logx"
	"liargame/internal/pkg/randx"
)

// createRetries bounds code generation attempts when a fresh code collides with a
// live room. With a 32^6 code space collisions are effectively theoretical.
const createRetries = 5

// roomCleanupMsg asks the Registry to drop a room whose Run loop has finished.
type roomCleanupMsg struct {
	code string
}

// Registry owns all active Room instances, keyed by room code.
type Registry struct {
	rooms map[string]*Room

	config *configs.AppConfig

	// mu protects concurrent access to the rooms map. Everything inside a room is
	// the business of that room's own goroutine.
	mu sync.RWMutex

	// cleanup receives notifications from rooms whose Run loop has finished.
	cleanup chan roomCleanupMsg

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// NewRegistry constructs a Registry and starts its cleanup and expiry-sweep loops.
func NewRegistry(cfg *configs.AppConfig) *Registry {
	registryLogger := logx.Logger().With().Str("component", "Registry").Logger()

	g := &Registry{
		rooms:    make(map[string]*Room),
		config:   cfg,
		cleanup:  make(chan roomCleanupMsg, 16),
		stopChan: make(chan struct{}),
		logger:   registryLogger,
	}

	g.wg.Add(2)
	go g.runCleanupLoop()
	go g.runSweepLoop()

	return g
}

// runCleanupLoop removes rooms whose Run loop reported completion.
func (g *Registry) runCleanupLoop() {
	defer g.wg.Done()

	for {
		select {
		case msg := <-g.cleanup:
			g.deleteRoom(msg.code)

		case <-g.stopChan:
			return
		}
	}
}

// runSweepLoop periodically removes rooms older than the configured TTL,
// regardless of activity. Rooms are short-lived sessions; anything alive past the
// retention window is abandoned.
func (g *Registry) runSweepLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sweepExpired(g.config.RoomTTL)

		case <-g.stopChan:
			return
		}
	}
}

// sweepExpired stops and removes every room whose age exceeds ttl.
func (g *Registry) sweepExpired(ttl time.Duration) {
	now := time.Now()

	g.mu.Lock()
	var expired []*Room
	for code, room := range g.rooms {
		if now.Sub(room.CreatedAt) > ttl {
			delete(g.rooms, code)
			expired = append(expired, room)
		}
	}
	g.mu.Unlock()

	for _, room := range expired {
		room.Stop()
		g.logger.Info().Str("room_code", room.Code).Msg("Room expired and removed.")
	}
}

// deleteRoom removes the given code from the map. Idempotent: the room may have
// been removed by the sweep or an explicit Remove already.
func (g *Registry) deleteRoom(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.rooms[code]; ok {
		delete(g.rooms, code)
		g.logger.Info().Str("room_code", code).Msg("Room removed.")
	}
}

// Create generates a fresh unique room code, inserts a new Lobby-state room, starts
// its loop, and returns the code.
func (g *Registry) Create() (string, error) {
	for i := 0; i < createRetries; i++ {
		code, err := randx.RoomCode()
		if err != nil {
			return "", err
		}

		g.mu.Lock()
		if _, exists := g.rooms[code]; exists {
			g.mu.Unlock()
			g.logger.Warn().Str("room_code", code).Msg("Room code collision. Retrying.")
			continue
		}

		room := newRoom(code, g.config.VoteTimeLimit, g.cleanup)
		g.rooms[code] = room
		g.mu.Unlock()

		go room.Run()

		g.logger.Info().Str("room_code", code).Msg("Room created.")
		return code, nil
	}

	return "", fmt.Errorf("failed to generate a unique room code after %d attempts", createRetries)
}

// Lookup retrieves a room by its normalized code, or nil when absent.
func (g *Registry) Lookup(code string) *Room {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.rooms[code]
}

// GetOrCreate retrieves the room at code. When absent and allowCreate is true, a
// fresh Lobby-state shell is created at that exact code; this is how a host
// re-establishes a room the registry has no memory of (e.g. after a restart).
// No prior game progress comes back with it.
func (g *Registry) GetOrCreate(code string, allowCreate bool) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if room, ok := g.rooms[code]; ok {
		return room
	}

	if !allowCreate {
		return nil
	}

	room := newRoom(code, g.config.VoteTimeLimit, g.cleanup)
	g.rooms[code] = room

	go room.Run()

	g.logger.Info().Str("room_code", code).Msg("Room re-created on join.")
	return room
}

// Remove stops the room at code and deletes it.
func (g *Registry) Remove(code string) {
	g.mu.Lock()
	room, ok := g.rooms[code]
	if ok {
		delete(g.rooms, code)
	}
	g.mu.Unlock()

	if ok {
		room.Stop()
		g.logger.Info().Str("room_code", code).Msg("Room removed explicitly.")
	}
}

// Count returns the number of live rooms, for the health endpoint.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.rooms)
}

// Shutdown stops all rooms and background loops, then waits for them to finish.
func (g *Registry) Shutdown() {
	g.logger.Info().Msg("Shutting down registry...")

	g.mu.Lock()
	for _, room := range g.rooms {
		room.Stop()
	}
	g.rooms = make(map[string]*Room)
	g.mu.Unlock()

	g.stopOnce.Do(func() { close(g.stopChan) })
	g.wg.Wait()

	g.logger.Info().Msg("Registry shutdown complete.")
}
