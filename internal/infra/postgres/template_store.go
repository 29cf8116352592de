package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"propops-service/internal/domain"
)

func (s *Store) GetTemplate(ctx context.Context, templateID string) (domain.SurveyTemplate, error) {
	var tpl domain.SurveyTemplate
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, version, COALESCE(parent_id, ''), active
		 FROM survey_templates WHERE id=$1`, templateID,
	).Scan(&tpl.ID, &tpl.Name, &tpl.Version, &tpl.ParentID, &tpl.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SurveyTemplate{}, domain.ErrTemplateNotFound
	}
	if err != nil {
		return domain.SurveyTemplate{}, fmt.Errorf("load template: %w", err)
	}

	catIndex := make(map[string]int)
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, weight, sort_order FROM categories
		 WHERE template_id=$1 ORDER BY sort_order`, templateID)
	if err != nil {
		return domain.SurveyTemplate{}, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat domain.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Weight, &cat.SortOrder); err != nil {
			return domain.SurveyTemplate{}, fmt.Errorf("scan category: %w", err)
		}
		catIndex[cat.ID] = len(tpl.Categories)
		tpl.Categories = append(tpl.Categories, cat)
	}
	if err := rows.Err(); err != nil {
		return domain.SurveyTemplate{}, err
	}

	subIndex := make(map[string][2]int) // subcategory ID -> (category idx, subcategory idx)
	subRows, err := s.pool.Query(ctx,
		`SELECT s.id, s.category_id, s.name, s.sort_order
		 FROM subcategories s JOIN categories c ON s.category_id = c.id
		 WHERE c.template_id=$1 ORDER BY s.sort_order`, templateID)
	if err != nil {
		return domain.SurveyTemplate{}, fmt.Errorf("load subcategories: %w", err)
	}
	defer subRows.Close()
	for subRows.Next() {
		var sub domain.Subcategory
		var categoryID string
		if err := subRows.Scan(&sub.ID, &categoryID, &sub.Name, &sub.SortOrder); err != nil {
			return domain.SurveyTemplate{}, fmt.Errorf("scan subcategory: %w", err)
		}
		ci, ok := catIndex[categoryID]
		if !ok {
			continue
		}
		subIndex[sub.ID] = [2]int{ci, len(tpl.Categories[ci].Subcategories)}
		tpl.Categories[ci].Subcategories = append(tpl.Categories[ci].Subcategories, sub)
	}
	if err := subRows.Err(); err != nil {
		return domain.SurveyTemplate{}, err
	}

	qRows, err := s.pool.Query(ctx,
		`SELECT q.id, q.subcategory_id, q.text, q.scale_min, q.scale_max, q.required, q.sort_order
		 FROM questions q
		 JOIN subcategories s ON q.subcategory_id = s.id
		 JOIN categories c ON s.category_id = c.id
		 WHERE c.template_id=$1 ORDER BY q.sort_order`, templateID)
	if err != nil {
		return domain.SurveyTemplate{}, fmt.Errorf("load questions: %w", err)
	}
	defer qRows.Close()
	for qRows.Next() {
		var q domain.Question
		var subcategoryID string
		if err := qRows.Scan(&q.ID, &subcategoryID, &q.Text, &q.ScaleMin, &q.ScaleMax, &q.Required, &q.SortOrder); err != nil {
			return domain.SurveyTemplate{}, fmt.Errorf("scan question: %w", err)
		}
		pos, ok := subIndex[subcategoryID]
		if !ok {
			continue
		}
		sub := &tpl.Categories[pos[0]].Subcategories[pos[1]]
		sub.Questions = append(sub.Questions, q)
	}
	return tpl, qRows.Err()
}

// SaveTemplate replaces the whole tree in one transaction: either the new
// template, categories, subcategories, and questions all land, or none do.
func (s *Store) SaveTemplate(ctx context.Context, tpl domain.SurveyTemplate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save template: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO survey_templates (id, name, version, parent_id, active)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		 ON CONFLICT (id) DO UPDATE
		 SET name=EXCLUDED.name, version=EXCLUDED.version,
		     parent_id=EXCLUDED.parent_id, active=EXCLUDED.active`,
		tpl.ID, tpl.Name, tpl.Version, tpl.ParentID, tpl.Active); err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}

	// Cascades clean out the old subcategories and questions too.
	if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE template_id=$1`, tpl.ID); err != nil {
		return fmt.Errorf("clear template tree: %w", err)
	}

	for _, cat := range tpl.Categories {
		if _, err := tx.Exec(ctx,
			`INSERT INTO categories (id, template_id, name, weight, sort_order)
			 VALUES ($1, $2, $3, $4, $5)`,
			cat.ID, tpl.ID, cat.Name, cat.Weight, cat.SortOrder); err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		for _, sub := range cat.Subcategories {
			if _, err := tx.Exec(ctx,
				`INSERT INTO subcategories (id, category_id, name, sort_order)
				 VALUES ($1, $2, $3, $4)`,
				sub.ID, cat.ID, sub.Name, sub.SortOrder); err != nil {
				return fmt.Errorf("insert subcategory: %w", err)
			}
			for _, q := range sub.Questions {
				if _, err := tx.Exec(ctx,
					`INSERT INTO questions (id, subcategory_id, text, scale_min, scale_max, required, sort_order)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					q.ID, sub.ID, q.Text, q.ScaleMin, q.ScaleMax, q.Required, q.SortOrder); err != nil {
					return fmt.Errorf("insert question: %w", err)
				}
			}
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) DeactivateTemplate(ctx context.Context, templateID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE survey_templates SET active=FALSE WHERE id=$1`, templateID)
	if err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}
