package app_test

import (
	"context"
	"errors"
	"testing"

	"propops-service/internal/app"
	"propops-service/internal/domain"
	"propops-service/internal/infra/memory"
)

func TestTaskTransitions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := app.NewTaskService(store, nil)

	_, _ = store.CreateTask(ctx, domain.Task{ID: "t1", ResponseID: "r1", PropertyID: "p1", Status: domain.TaskOpen})

	task, err := svc.Transition(ctx, "t1", domain.TaskInvestigating)
	if err != nil {
		t.Fatalf("open -> investigating: %v", err)
	}
	if task.Status != domain.TaskInvestigating {
		t.Fatalf("expected investigating, got %s", task.Status)
	}

	if _, err := svc.Transition(ctx, "t1", domain.TaskOpen); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected backward transition rejected, got %v", err)
	}

	if _, err := svc.Transition(ctx, "t1", domain.TaskClosed); err != nil {
		t.Fatalf("investigating -> closed: %v", err)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := app.NewTaskService(store, nil)

	_, _ = store.CreateTask(ctx, domain.Task{ID: "t1", ResponseID: "r1", Status: domain.TaskOpen})
	if _, err := svc.Transition(ctx, "t1", domain.TaskClosed); err != nil {
		t.Fatalf("open -> closed: %v", err)
	}

	if _, err := svc.Transition(ctx, "t1", domain.TaskInvestigating); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected closed to be terminal, got %v", err)
	}
	// The failed transition must not have mutated the task.
	task, err := store.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if task.Status != domain.TaskClosed {
		t.Fatalf("expected status unchanged at closed, got %s", task.Status)
	}
}

func TestListOpenExcludesClosed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := app.NewTaskService(store, nil)

	_, _ = store.CreateTask(ctx, domain.Task{ID: "t1", ResponseID: "r1", PropertyID: "p1", Status: domain.TaskOpen})
	_, _ = store.CreateTask(ctx, domain.Task{ID: "t2", ResponseID: "r2", PropertyID: "p1", Status: domain.TaskOpen})
	if _, err := svc.Transition(ctx, "t2", domain.TaskClosed); err != nil {
		t.Fatalf("close t2: %v", err)
	}

	open, err := svc.ListOpen(ctx, "p1")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || open[0].ID != "t1" {
		t.Fatalf("expected only t1 open, got %+v", open)
	}
}
