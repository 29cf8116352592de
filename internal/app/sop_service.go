package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"propops-service/internal/domain"
	"propops-service/internal/schedule"
)

// ChecklistRepository loads SOP checklists.
type ChecklistRepository interface {
	GetChecklist(ctx context.Context, checklistID string) (domain.Checklist, error)
}

// AssignmentRepository loads recurring obligations.
type AssignmentRepository interface {
	GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error)
	ListByProperty(ctx context.Context, propertyID string) ([]domain.Assignment, error)
}

// CompletionRepository stores per-period completion instances.
// GetOrCreateCompletion is the only write path that creates a completion; it
// must behave as an upsert keyed on (assignmentID, dueDate) so that
// concurrent first-touches never produce duplicate rows. FindCompletion is a
// read-only peek used by dashboards. SaveCompletion writes items and status
// atomically.
type CompletionRepository interface {
	GetOrCreateCompletion(ctx context.Context, assignmentID string, dueDate time.Time) (domain.Completion, error)
	FindCompletion(ctx context.Context, assignmentID string, dueDate time.Time) (domain.Completion, bool, error)
	SaveCompletion(ctx context.Context, completion domain.Completion) error
}

// SOPService drives recurring obligations: current due dates, lazy completion
// instances, and the check/uncheck state machine.
type SOPService struct {
	checklists  ChecklistRepository
	assignments AssignmentRepository
	completions CompletionRepository
	events      Publisher
	now         func() time.Time
}

func NewSOPService(checklists ChecklistRepository, assignments AssignmentRepository, completions CompletionRepository, events Publisher) *SOPService {
	if events == nil {
		events = noopPublisher{}
	}
	return &SOPService{
		checklists:  checklists,
		assignments: assignments,
		completions: completions,
		events:      events,
		now:         time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *SOPService) WithClock(now func() time.Time) *SOPService {
	s.now = now
	return s
}

// DueDate returns the assignment's due date for the current period and
// whether it is already overdue.
func (s *SOPService) DueDate(ctx context.Context, assignmentID string) (time.Time, bool, error) {
	a, err := s.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return time.Time{}, false, err
	}
	now := s.now()
	due := schedule.CurrentDueDate(now, a.Frequency, a.DeadlineDay)
	return due, schedule.IsOverdue(now, due, a.DeadlineTime), nil
}

// OpenChecklist materializes the current period's completion (get-or-create)
// and returns it with one entry per checklist item, untouched items included
// as unchecked.
func (s *SOPService) OpenChecklist(ctx context.Context, assignmentID string) (domain.Completion, error) {
	a, err := s.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Completion{}, err
	}
	checklist, err := s.checklists.GetChecklist(ctx, a.ChecklistID)
	if err != nil {
		return domain.Completion{}, err
	}

	due := schedule.CurrentDueDate(s.now(), a.Frequency, a.DeadlineDay)
	completion, err := s.completions.GetOrCreateCompletion(ctx, a.ID, due)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("open checklist: %w", err)
	}
	completion.Items = mergeItems(checklist, completion.Items)
	return completion, nil
}

// ToggleItem flips one item's checked state and re-derives the completion
// status: all items checked flips the instance to completed, and unchecking
// any item afterwards reverts it to pending.
func (s *SOPService) ToggleItem(ctx context.Context, assignmentID, itemID string, checked bool, note string) (domain.Completion, error) {
	a, err := s.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Completion{}, err
	}
	checklist, err := s.checklists.GetChecklist(ctx, a.ChecklistID)
	if err != nil {
		return domain.Completion{}, err
	}
	if !checklistHasItem(checklist, itemID) {
		return domain.Completion{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	now := s.now()
	due := schedule.CurrentDueDate(now, a.Frequency, a.DeadlineDay)
	completion, err := s.completions.GetOrCreateCompletion(ctx, a.ID, due)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("toggle item: %w", err)
	}

	completion.Items = mergeItems(checklist, completion.Items)
	for i := range completion.Items {
		if completion.Items[i].ItemID != itemID {
			continue
		}
		completion.Items[i].Checked = checked
		completion.Items[i].Note = note
		if checked {
			at := now
			completion.Items[i].CheckedAt = &at
		} else {
			completion.Items[i].CheckedAt = nil
		}
	}

	applyCompletionRule(&completion, len(checklist.Items), now)

	if err := s.completions.SaveCompletion(ctx, completion); err != nil {
		return domain.Completion{}, fmt.Errorf("save completion: %w", err)
	}
	s.events.Publish(domain.BoardEvent{
		PropertyID: a.PropertyID,
		Kind:       "completion",
		Payload:    completion,
		At:         now,
	})
	return completion, nil
}

// Overview buckets a property's assignments for the current period into
// completed, pending, and overdue. It never creates completion rows; periods
// nobody has touched show up as pending (or overdue) with no instance.
type Overview struct {
	PropertyID string          `json:"propertyId"`
	Completed  []OverviewEntry `json:"completed"`
	Pending    []OverviewEntry `json:"pending"`
	Overdue    []OverviewEntry `json:"overdue"`
}

// OverviewEntry is one assignment's state in the overview.
type OverviewEntry struct {
	AssignmentID string    `json:"assignmentId"`
	ChecklistID  string    `json:"checklistId"`
	UserID       string    `json:"userId"`
	DueDate      time.Time `json:"dueDate"`
	Checked      int       `json:"checked"`
	Total        int       `json:"total"`
}

func (s *SOPService) Overview(ctx context.Context, propertyID string) (Overview, error) {
	assignments, err := s.assignments.ListByProperty(ctx, propertyID)
	if err != nil {
		return Overview{}, err
	}

	now := s.now()
	ov := Overview{PropertyID: propertyID}
	for _, a := range assignments {
		due := schedule.CurrentDueDate(now, a.Frequency, a.DeadlineDay)
		entry := OverviewEntry{
			AssignmentID: a.ID,
			ChecklistID:  a.ChecklistID,
			UserID:       a.UserID,
			DueDate:      due,
		}

		checklist, err := s.checklists.GetChecklist(ctx, a.ChecklistID)
		if err != nil {
			return Overview{}, err
		}
		entry.Total = len(checklist.Items)

		completion, found, err := s.completions.FindCompletion(ctx, a.ID, due)
		if err != nil {
			return Overview{}, err
		}
		if found {
			entry.Checked = countChecked(completion.Items)
		}

		switch {
		case found && completion.Status == domain.CompletionCompleted:
			ov.Completed = append(ov.Completed, entry)
		case schedule.IsOverdue(now, due, a.DeadlineTime):
			ov.Overdue = append(ov.Overdue, entry)
		default:
			ov.Pending = append(ov.Pending, entry)
		}
	}
	return ov, nil
}

// applyCompletionRule is the completion state machine, evaluated after every
// toggle. Re-reaching the completed state re-sets CompletedAt; that is
// deliberate and idempotent.
func applyCompletionRule(c *domain.Completion, total int, now time.Time) {
	checked := countChecked(c.Items)
	switch {
	case total > 0 && checked >= total:
		c.Status = domain.CompletionCompleted
		at := now
		c.CompletedAt = &at
	case c.Status == domain.CompletionCompleted:
		c.Status = domain.CompletionPending
		c.CompletedAt = nil
	}
}

func countChecked(items []domain.ItemCompletion) int {
	n := 0
	for _, item := range items {
		if item.Checked {
			n++
		}
	}
	return n
}

func checklistHasItem(checklist domain.Checklist, itemID string) bool {
	for _, item := range checklist.Items {
		if item.ID == itemID {
			return true
		}
	}
	return false
}

// mergeItems returns one ItemCompletion per checklist item in sort order,
// preserving any recorded state and defaulting the rest to unchecked.
func mergeItems(checklist domain.Checklist, recorded []domain.ItemCompletion) []domain.ItemCompletion {
	byID := make(map[string]domain.ItemCompletion, len(recorded))
	for _, item := range recorded {
		byID[item.ItemID] = item
	}

	items := make([]domain.ChecklistItem, len(checklist.Items))
	copy(items, checklist.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })

	merged := make([]domain.ItemCompletion, 0, len(items))
	for _, item := range items {
		if state, ok := byID[item.ID]; ok {
			merged = append(merged, state)
			continue
		}
		merged = append(merged, domain.ItemCompletion{ItemID: item.ID})
	}
	return merged
}
