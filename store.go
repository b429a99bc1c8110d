package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Store holds all generated grids and play sessions in memory.
type Store struct {
	mu       sync.RWMutex
	grids    map[string]*Grid
	sessions map[string]*PlaySession
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		grids:    make(map[string]*Grid),
		sessions: make(map[string]*PlaySession),
	}
}

// SaveGrid persists a grid and returns it with a generated ID.
func (s *Store) SaveGrid(g *Grid) *Grid {
	g.ID = generateID()
	g.CreatedAt = time.Now()

	s.mu.Lock()
	s.grids[g.ID] = g
	s.mu.Unlock()

	return g
}

// GetGrid returns a grid by ID, or nil if not found.
func (s *Store) GetGrid(id string) *Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grids[id]
}

// ListGrids returns all grids, most recent first.
func (s *Store) ListGrids() []*Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Grid, 0, len(s.grids))
	for _, g := range s.grids {
		list = append(list, g)
	}
	// Sort by CreatedAt descending (simple insertion, small N).
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].CreatedAt.After(list[j-1].CreatedAt); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
	return list
}

// CreateSession creates a new play session for a given grid, with all
// cells unmarked. Returns an error if the grid does not exist.
func (s *Store) CreateSession(gridID string) (*PlaySession, error) {
	s.mu.RLock()
	grid := s.grids[gridID]
	s.mu.RUnlock()

	if grid == nil {
		return nil, fmt.Errorf("grid not found: %s", gridID)
	}

	marks := make([][]string, grid.Rows)
	for i := range marks {
		marks[i] = make([]string, grid.Cols)
	}

	session := &PlaySession{
		ID:        generateID(),
		GridID:    gridID,
		Players:   make(map[string]*Player),
		Marks:     marks,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session, nil
}

// GetSession returns a play session by ID, or nil if not found.
func (s *Store) GetSession(id string) *PlaySession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// ListSessions returns all play sessions.
func (s *Store) ListSessions() []*PlaySession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*PlaySession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	return list
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
