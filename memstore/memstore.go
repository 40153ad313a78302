// Package memstore provides an in-memory codewords.Store. It's the reference
// implementation the networked adapters approximate, and the default for
// tests and local play.
package memstore

import (
	"context"
	"sync"

	"github.com/bcspragu/Codewords"
)

// Store holds rooms in a map, keyed by room code. Safe for concurrent use.
// Rooms are deep copied on the way in and out, so callers can't reach into
// stored state.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*codewords.Room
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{rooms: make(map[string]*codewords.Room)}
}

func (s *Store) CreateRoom(ctx context.Context, rm *codewords.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[rm.Code]; ok {
		return codewords.ErrRoomExists
	}
	s.rooms[rm.Code] = rm.Clone()
	return nil
}

func (s *Store) Room(ctx context.Context, code string) (*codewords.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rm, ok := s.rooms[code]
	if !ok {
		return nil, codewords.ErrRoomNotFound
	}
	return rm.Clone(), nil
}

func (s *Store) UpdateRoom(ctx context.Context, rm *codewords.Room, fromVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rooms[rm.Code]
	if !ok {
		return codewords.ErrRoomNotFound
	}
	if cur.Version != fromVersion {
		return codewords.ErrVersionConflict
	}
	s.rooms[rm.Code] = rm.Clone()
	return nil
}
