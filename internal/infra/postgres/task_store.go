package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"propops-service/internal/domain"
)

// CreateTask inserts the task unless one already exists for the response.
// The UNIQUE response_id constraint keeps derivation at-most-once even under
// concurrent submits.
func (s *Store) CreateTask(ctx context.Context, task domain.Task) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, submission_id, response_id, question_id, property_id,
		                    title, description, status, repeat_issue, assigned_to, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (response_id) DO NOTHING`,
		task.ID, task.SubmissionID, task.ResponseID, task.QuestionID, task.PropertyID,
		task.Title, task.Description, string(task.Status), task.RepeatIssue, task.AssignedTo, task.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert task: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	var t domain.Task
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, submission_id, response_id, question_id, property_id,
		        title, description, status, repeat_issue, assigned_to, created_at
		 FROM tasks WHERE id=$1`, taskID,
	).Scan(&t.ID, &t.SubmissionID, &t.ResponseID, &t.QuestionID, &t.PropertyID,
		&t.Title, &t.Description, &status, &t.RepeatIssue, &t.AssignedTo, &t.CreatedAt)
	t.Status = domain.TaskStatus(status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("load task: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status=$2 WHERE id=$1`, taskID, string(status))
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *Store) HasClosedTask(ctx context.Context, propertyID, questionID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM tasks
		   WHERE property_id=$1 AND question_id=$2 AND status=$3
		 )`, propertyID, questionID, string(domain.TaskClosed)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("closed task lookup: %w", err)
	}
	return exists, nil
}

func (s *Store) ListOpenByProperty(ctx context.Context, propertyID string) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, submission_id, response_id, question_id, property_id,
		        title, description, status, repeat_issue, assigned_to, created_at
		 FROM tasks WHERE property_id=$1 AND status <> $2
		 ORDER BY created_at`, propertyID, string(domain.TaskClosed))
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		var status string
		if err := rows.Scan(&t.ID, &t.SubmissionID, &t.ResponseID, &t.QuestionID, &t.PropertyID,
			&t.Title, &t.Description, &status, &t.RepeatIssue, &t.AssignedTo, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = domain.TaskStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}
