package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"propops-service/internal/app"
)

// BoardStore is a Redis-aware implementation of app.BoardRepository.
// Notes:
//   - It still keeps a local in-memory map of boards to reuse the existing
//     in-process fan-out logic.
//   - Redis is used to mark board liveness (and could be extended to route
//     cross-instance pub/sub so dashboards on other nodes see events too).
type BoardStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	boards map[string]*app.Board
}

func NewBoardStore(client *redis.Client, ttl time.Duration) *BoardStore {
	return &BoardStore{
		client: client,
		ttl:    ttl,
		boards: make(map[string]*app.Board),
	}
}

func (s *BoardStore) GetOrCreate(propertyID string) *app.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if board, ok := s.boards[propertyID]; ok {
		return board
	}
	board := app.NewBoard(propertyID)
	s.boards[propertyID] = board
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(propertyID), "1", s.ttl).Err()
	return board
}

func (s *BoardStore) Get(propertyID string) (*app.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[propertyID]
	return board, ok
}

func (s *BoardStore) DeleteIfEmpty(propertyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[propertyID]
	if !ok {
		return
	}
	if board.IsEmpty() {
		delete(s.boards, propertyID)
		_ = s.client.Del(context.Background(), s.key(propertyID)).Err()
	}
}

func (s *BoardStore) key(propertyID string) string {
	return "ops:board:" + propertyID
}
