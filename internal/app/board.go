package app

import (
	"sync"
	"time"

	"propops-service/internal/domain"
)

// BoardRepository abstracts how property boards are tracked (in-memory,
// Redis-marked, etc).
type BoardRepository interface {
	GetOrCreate(propertyID string) *Board
	Get(propertyID string) (*Board, bool)
	DeleteIfEmpty(propertyID string)
}

// BoardHub fans ops events out to dashboard watchers, one board per
// property. It implements Publisher for the services; events for properties
// nobody is watching are dropped.
type BoardHub struct {
	boards BoardRepository
}

func NewBoardHub(boards BoardRepository) *BoardHub {
	return &BoardHub{boards: boards}
}

// Join registers or refreshes a watcher on a property board and returns the
// resulting presence event.
func (h *BoardHub) Join(propertyID, userID, displayName string) domain.BoardEvent {
	board := h.boards.GetOrCreate(propertyID)
	return board.join(userID, displayName)
}

// Subscribe returns a channel of board events for a property. The caller
// must invoke the returned cancel function to avoid leaks.
func (h *BoardHub) Subscribe(propertyID string) (<-chan domain.BoardEvent, func(), error) {
	board, ok := h.boards.Get(propertyID)
	if !ok {
		return nil, nil, domain.ErrPropertyNotFound
	}
	ch, cancel := board.subscribe()
	return ch, cancel, nil
}

// Leave removes a watcher and drops the board once it is empty.
func (h *BoardHub) Leave(propertyID, userID string) {
	board, ok := h.boards.Get(propertyID)
	if !ok {
		return
	}
	board.leave(userID)
	if board.isEmpty() {
		h.boards.DeleteIfEmpty(propertyID)
	}
}

// Publish implements Publisher.
func (h *BoardHub) Publish(event domain.BoardEvent) {
	board, ok := h.boards.Get(event.PropertyID)
	if !ok {
		return
	}
	board.broadcast(event)
}

// Board is the in-memory fan-out state for one property.
type Board struct {
	propertyID  string
	now         func() time.Time
	mu          sync.RWMutex
	watchers    map[string]string
	subscribers map[chan domain.BoardEvent]struct{}
}

// NewBoard is exported for infrastructure layers that need to seed boards.
func NewBoard(propertyID string) *Board {
	return NewBoardWithClock(propertyID, time.Now)
}

// NewBoardWithClock is test-only for deterministic timestamps.
func NewBoardWithClock(propertyID string, now func() time.Time) *Board {
	return &Board{
		propertyID:  propertyID,
		now:         now,
		watchers:    make(map[string]string),
		subscribers: make(map[chan domain.BoardEvent]struct{}),
	}
}

func (b *Board) join(userID, displayName string) domain.BoardEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchers[userID] = displayName
	return b.broadcastLocked(domain.BoardEvent{
		PropertyID: b.propertyID,
		Kind:       "presence",
		Payload:    map[string]any{"watchers": len(b.watchers), "joined": displayName},
		At:         b.now(),
	})
}

func (b *Board) leave(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.watchers, userID)
	b.broadcastLocked(domain.BoardEvent{
		PropertyID: b.propertyID,
		Kind:       "presence",
		Payload:    map[string]any{"watchers": len(b.watchers)},
		At:         b.now(),
	})
}

func (b *Board) isEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.watchers) == 0
}

// IsEmpty reports whether the board has no watchers.
func (b *Board) IsEmpty() bool {
	return b.isEmpty()
}

func (b *Board) subscribe() (<-chan domain.BoardEvent, func()) {
	ch := make(chan domain.BoardEvent, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := domain.BoardEvent{
		PropertyID: b.propertyID,
		Kind:       "presence",
		Payload:    map[string]any{"watchers": len(b.watchers)},
		At:         b.now(),
	}
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Board) broadcast(event domain.BoardEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcastLocked(event)
}

func (b *Board) broadcastLocked(event domain.BoardEvent) domain.BoardEvent {
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest buffered event so a slow dashboard cannot
			// block the broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return event
}
