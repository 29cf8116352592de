// Package postgres implements the app repositories on top of a pgx pool.
// Uniqueness contracts (one completion per assignment and period, one task
// per response) live in the schema, so concurrent first-touches collapse
// into a single row instead of duplicating.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"propops-service/internal/domain"
)

// Store gives all repositories a shared pool. Multi-row writes run in a
// single transaction.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetProperty(ctx context.Context, propertyID string) (domain.Property, error) {
	var p domain.Property
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, manager_id FROM properties WHERE id=$1`, propertyID,
	).Scan(&p.ID, &p.Name, &p.ManagerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Property{}, domain.ErrPropertyNotFound
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("load property: %w", err)
	}
	return p, nil
}

func (s *Store) GetChecklist(ctx context.Context, checklistID string) (domain.Checklist, error) {
	var c domain.Checklist
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM checklists WHERE id=$1`, checklistID,
	).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Checklist{}, domain.ErrChecklistNotFound
	}
	if err != nil {
		return domain.Checklist{}, fmt.Errorf("load checklist: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, text, sort_order FROM checklist_items WHERE checklist_id=$1 ORDER BY sort_order`, checklistID)
	if err != nil {
		return domain.Checklist{}, fmt.Errorf("load checklist items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.ChecklistItem
		if err := rows.Scan(&item.ID, &item.Text, &item.SortOrder); err != nil {
			return domain.Checklist{}, fmt.Errorf("scan checklist item: %w", err)
		}
		c.Items = append(c.Items, item)
	}
	return c, rows.Err()
}

func (s *Store) GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error) {
	var a domain.Assignment
	var freq string
	err := s.pool.QueryRow(ctx,
		`SELECT id, checklist_id, user_id, property_id, frequency, deadline_time, deadline_day
		 FROM assignments WHERE id=$1`, assignmentID,
	).Scan(&a.ID, &a.ChecklistID, &a.UserID, &a.PropertyID, &freq, &a.DeadlineTime, &a.DeadlineDay)
	a.Frequency = domain.Frequency(freq)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("load assignment: %w", err)
	}
	return a, nil
}

func (s *Store) ListByProperty(ctx context.Context, propertyID string) ([]domain.Assignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, checklist_id, user_id, property_id, frequency, deadline_time, deadline_day
		 FROM assignments WHERE property_id=$1`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		var freq string
		if err := rows.Scan(&a.ID, &a.ChecklistID, &a.UserID, &a.PropertyID, &freq, &a.DeadlineTime, &a.DeadlineDay); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.Frequency = domain.Frequency(freq)
		out = append(out, a)
	}
	return out, rows.Err()
}
