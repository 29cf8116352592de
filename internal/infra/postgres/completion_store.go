package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"propops-service/internal/domain"
)

// GetOrCreateCompletion inserts a pending row for the period and re-reads.
// The UNIQUE (assignment_id, due_date) constraint plus ON CONFLICT DO
// NOTHING makes concurrent first-touches collapse into one row.
func (s *Store) GetOrCreateCompletion(ctx context.Context, assignmentID string, dueDate time.Time) (domain.Completion, error) {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO completions (id, assignment_id, due_date, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (assignment_id, due_date) DO NOTHING`,
		uuid.NewString(), assignmentID, dueDate, string(domain.CompletionPending)); err != nil {
		return domain.Completion{}, fmt.Errorf("upsert completion: %w", err)
	}

	completion, found, err := s.FindCompletion(ctx, assignmentID, dueDate)
	if err != nil {
		return domain.Completion{}, err
	}
	if !found {
		return domain.Completion{}, domain.ErrCompletionNotFound
	}
	return completion, nil
}

func (s *Store) FindCompletion(ctx context.Context, assignmentID string, dueDate time.Time) (domain.Completion, bool, error) {
	var c domain.Completion
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, assignment_id, due_date, status, completed_at
		 FROM completions WHERE assignment_id=$1 AND due_date=$2`,
		assignmentID, dueDate,
	).Scan(&c.ID, &c.AssignmentID, &c.DueDate, &status, &c.CompletedAt)
	c.Status = domain.CompletionStatus(status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Completion{}, false, nil
	}
	if err != nil {
		return domain.Completion{}, false, fmt.Errorf("load completion: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT item_id, checked, checked_at, note
		 FROM item_completions WHERE completion_id=$1`, c.ID)
	if err != nil {
		return domain.Completion{}, false, fmt.Errorf("load item completions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.ItemCompletion
		if err := rows.Scan(&item.ItemID, &item.Checked, &item.CheckedAt, &item.Note); err != nil {
			return domain.Completion{}, false, fmt.Errorf("scan item completion: %w", err)
		}
		c.Items = append(c.Items, item)
	}
	return c, true, rows.Err()
}

// SaveCompletion writes the derived status and every item state in one
// transaction.
func (s *Store) SaveCompletion(ctx context.Context, completion domain.Completion) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save completion: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE completions SET status=$2, completed_at=$3 WHERE id=$1`,
		completion.ID, string(completion.Status), completion.CompletedAt)
	if err != nil {
		return fmt.Errorf("update completion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompletionNotFound
	}

	for _, item := range completion.Items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO item_completions (completion_id, item_id, checked, checked_at, note)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (completion_id, item_id) DO UPDATE
			 SET checked=EXCLUDED.checked, checked_at=EXCLUDED.checked_at, note=EXCLUDED.note`,
			completion.ID, item.ItemID, item.Checked, item.CheckedAt, item.Note); err != nil {
			return fmt.Errorf("upsert item completion: %w", err)
		}
	}
	return tx.Commit(ctx)
}
