package app_test

import (
	"testing"
	"time"

	"propops-service/internal/app"
	"propops-service/internal/domain"
	"propops-service/internal/infra/memory"
)

func TestBoardSubscribeReceivesPublishedEvents(t *testing.T) {
	hub := app.NewBoardHub(memory.NewBoardStore())

	hub.Join("p1", "u1", "Alice")
	ch, cancel, err := hub.Subscribe("p1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	<-ch // initial presence snapshot

	hub.Publish(domain.BoardEvent{PropertyID: "p1", Kind: "task", At: time.Now()})

	select {
	case event := <-ch:
		if event.Kind != "task" {
			t.Fatalf("expected task event, got %s", event.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestPublishWithoutWatchersIsDropped(t *testing.T) {
	hub := app.NewBoardHub(memory.NewBoardStore())
	// Must not panic or block when nobody watches the property.
	hub.Publish(domain.BoardEvent{PropertyID: "ghost", Kind: "score"})
}

func TestLeaveDropsEmptyBoard(t *testing.T) {
	store := memory.NewBoardStore()
	hub := app.NewBoardHub(store)

	hub.Join("p1", "u1", "Alice")
	hub.Leave("p1", "u1")

	if _, ok := store.Get("p1"); ok {
		t.Fatalf("expected empty board removed")
	}
	if _, _, err := hub.Subscribe("p1"); err != domain.ErrPropertyNotFound {
		t.Fatalf("expected subscribe to fail after removal, got %v", err)
	}
}
