package app

import (
	"context"
	"fmt"
	"time"

	"propops-service/internal/domain"
)

// TaskService owns the follow-up task lifecycle after derivation.
type TaskService struct {
	tasks  TaskRepository
	events Publisher
	now    func() time.Time
}

func NewTaskService(tasks TaskRepository, events Publisher) *TaskService {
	if events == nil {
		events = noopPublisher{}
	}
	return &TaskService{tasks: tasks, events: events, now: time.Now}
}

// Transition moves a task along open -> investigating -> closed. Any other
// move fails with ErrInvalidTransition and leaves the task untouched.
func (s *TaskService) Transition(ctx context.Context, taskID string, next domain.TaskStatus) (domain.Task, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if !domain.ValidTaskTransition(task.Status, next) {
		return domain.Task{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, task.Status, next)
	}
	if err := s.tasks.UpdateTaskStatus(ctx, taskID, next); err != nil {
		return domain.Task{}, fmt.Errorf("transition task: %w", err)
	}
	task.Status = next
	s.events.Publish(domain.BoardEvent{
		PropertyID: task.PropertyID,
		Kind:       "task",
		Payload:    task,
		At:         s.now(),
	})
	return task, nil
}

// ListOpen returns a property's tasks that are not yet closed.
func (s *TaskService) ListOpen(ctx context.Context, propertyID string) ([]domain.Task, error) {
	return s.tasks.ListOpenByProperty(ctx, propertyID)
}
