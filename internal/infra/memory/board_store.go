package memory

import (
	"sync"

	"propops-service/internal/app"
)

// BoardStore is an in-memory implementation of app.BoardRepository.
type BoardStore struct {
	mu     sync.RWMutex
	boards map[string]*app.Board
}

func NewBoardStore() *BoardStore {
	return &BoardStore{
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
	}
}
