// Package memory provides in-memory implementations of the app repositories,
// used by tests and by the demo mode of the server when no Postgres is
// configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"propops-service/internal/domain"
)

// Store is a mutex-guarded in-memory backing store. It honors the same
// uniqueness contracts as the Postgres schema: one completion per
// (assignmentID, dueDate) and one task per response.
type Store struct {
	mu          sync.RWMutex
	properties  map[string]domain.Property
	templates   map[string]domain.SurveyTemplate
	checklists  map[string]domain.Checklist
	assignments map[string]domain.Assignment
	submissions map[string]domain.Submission
	completions map[string]domain.Completion // keyed on assignmentID + "|" + date
	tasks       map[string]domain.Task
	taskByResp  map[string]string // responseID -> taskID
}

func NewStore() *Store {
	return &Store{
		properties:  make(map[string]domain.Property),
		templates:   make(map[string]domain.SurveyTemplate),
		checklists:  make(map[string]domain.Checklist),
		assignments: make(map[string]domain.Assignment),
		submissions: make(map[string]domain.Submission),
		completions: make(map[string]domain.Completion),
		tasks:       make(map[string]domain.Task),
		taskByResp:  make(map[string]string),
	}
}

// Seed helpers for demo data and tests.

func (s *Store) PutProperty(p domain.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = p
}

func (s *Store) PutChecklist(c domain.Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklists[c.ID] = c
}

func (s *Store) PutAssignment(a domain.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
}

func (s *Store) GetProperty(_ context.Context, propertyID string) (domain.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[propertyID]
	if !ok {
		return domain.Property{}, domain.ErrPropertyNotFound
	}
	return p, nil
}

func (s *Store) GetTemplate(_ context.Context, templateID string) (domain.SurveyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[templateID]
	if !ok {
		return domain.SurveyTemplate{}, domain.ErrTemplateNotFound
	}
	return tpl, nil
}

func (s *Store) SaveTemplate(_ context.Context, tpl domain.SurveyTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.ID] = tpl
	return nil
}

func (s *Store) DeactivateTemplate(_ context.Context, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[templateID]
	if !ok {
		return domain.ErrTemplateNotFound
	}
	tpl.Active = false
	s.templates[templateID] = tpl
	return nil
}

func (s *Store) GetChecklist(_ context.Context, checklistID string) (domain.Checklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checklists[checklistID]
	if !ok {
		return domain.Checklist{}, domain.ErrChecklistNotFound
	}
	return c, nil
}

func (s *Store) GetAssignment(_ context.Context, assignmentID string) (domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	return a, nil
}

func (s *Store) ListByProperty(_ context.Context, propertyID string) ([]domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.PropertyID == propertyID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = sub
	return nil
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[submissionID]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *Store) UpdateSubmissionStatus(_ context.Context, submissionID string, status domain.SubmissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[submissionID]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	sub.Status = status
	s.submissions[submissionID] = sub
	return nil
}

func (s *Store) CountByTemplate(_ context.Context, templateID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sub := range s.submissions {
		if sub.TemplateID == templateID {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetOrCreateCompletion(_ context.Context, assignmentID string, dueDate time.Time) (domain.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := completionKey(assignmentID, dueDate)
	if c, ok := s.completions[key]; ok {
		return c, nil
	}
	c := domain.Completion{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		DueDate:      dueDate,
		Status:       domain.CompletionPending,
	}
	s.completions[key] = c
	return c, nil
}

func (s *Store) FindCompletion(_ context.Context, assignmentID string, dueDate time.Time) (domain.Completion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.completions[completionKey(assignmentID, dueDate)]
	return c, ok, nil
}

func (s *Store) SaveCompletion(_ context.Context, completion domain.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := completionKey(completion.AssignmentID, completion.DueDate)
	if _, ok := s.completions[key]; !ok {
		return domain.ErrCompletionNotFound
	}
	s.completions[key] = completion
	return nil
}

func (s *Store) CreateTask(_ context.Context, task domain.Task) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.taskByResp[task.ResponseID]; exists {
		return false, nil
	}
	s.tasks[task.ID] = task
	s.taskByResp[task.ResponseID] = task.ID
	return true, nil
}

func (s *Store) GetTask(_ context.Context, taskID string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return task, nil
}

func (s *Store) UpdateTaskStatus(_ context.Context, taskID string, status domain.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	task.Status = status
	s.tasks[taskID] = task
	return nil
}

func (s *Store) HasClosedTask(_ context.Context, propertyID, questionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, task := range s.tasks {
		if task.PropertyID == propertyID && task.QuestionID == questionID && task.Status == domain.TaskClosed {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListOpenByProperty(_ context.Context, propertyID string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Task
	for _, task := range s.tasks {
		if task.PropertyID == propertyID && task.Status != domain.TaskClosed {
			out = append(out, task)
		}
	}
	return out, nil
}

func completionKey(assignmentID string, dueDate time.Time) string {
	return assignmentID + "|" + dueDate.Format("2006-01-02")
}
