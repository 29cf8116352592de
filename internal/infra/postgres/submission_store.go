package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"propops-service/internal/domain"
)

// CreateSubmission writes the submission and all of its responses in one
// transaction.
func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create submission: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO submissions (id, template_id, property_id, status, visit_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.TemplateID, sub.PropertyID, string(sub.Status), sub.VisitDate); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	for _, resp := range sub.Responses {
		if _, err := tx.Exec(ctx,
			`INSERT INTO responses (id, submission_id, question_id, score, note, issue_description)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			resp.ID, sub.ID, resp.QuestionID, resp.Score, resp.Note, resp.IssueDescription); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error) {
	var sub domain.Submission
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, template_id, property_id, status, visit_date
		 FROM submissions WHERE id=$1`, submissionID,
	).Scan(&sub.ID, &sub.TemplateID, &sub.PropertyID, &status, &sub.VisitDate)
	sub.Status = domain.SubmissionStatus(status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load submission: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, question_id, score, note, issue_description
		 FROM responses WHERE submission_id=$1`, submissionID)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load responses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(&resp.ID, &resp.QuestionID, &resp.Score, &resp.Note, &resp.IssueDescription); err != nil {
			return domain.Submission{}, fmt.Errorf("scan response: %w", err)
		}
		sub.Responses = append(sub.Responses, resp)
	}
	return sub, rows.Err()
}

func (s *Store) UpdateSubmissionStatus(ctx context.Context, submissionID string, status domain.SubmissionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions SET status=$2 WHERE id=$1`, submissionID, string(status))
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

func (s *Store) CountByTemplate(ctx context.Context, templateID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM submissions WHERE template_id=$1`, templateID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}
