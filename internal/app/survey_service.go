package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"propops-service/internal/domain"
	"propops-service/internal/scoring"
)

// lowScoreThreshold is the native-scale cutoff for deriving a follow-up task.
const lowScoreThreshold = 6

// TemplateRepository loads and writes survey templates. SaveTemplate writes
// the whole category/subcategory/question tree atomically.
type TemplateRepository interface {
	GetTemplate(ctx context.Context, templateID string) (domain.SurveyTemplate, error)
	SaveTemplate(ctx context.Context, tpl domain.SurveyTemplate) error
	DeactivateTemplate(ctx context.Context, templateID string) error
}

// SubmissionRepository stores submissions together with their responses.
// CreateSubmission is atomic: either the submission and all responses land,
// or nothing does.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub domain.Submission) error
	GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, submissionID string, status domain.SubmissionStatus) error
	CountByTemplate(ctx context.Context, templateID string) (int, error)
}

// TaskRepository stores derived tasks. CreateTask reports false without error
// when a task already exists for the same response, which keeps derivation
// idempotent under concurrent first-touches.
type TaskRepository interface {
	CreateTask(ctx context.Context, task domain.Task) (bool, error)
	GetTask(ctx context.Context, taskID string) (domain.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus) error
	HasClosedTask(ctx context.Context, propertyID, questionID string) (bool, error)
	ListOpenByProperty(ctx context.Context, propertyID string) ([]domain.Task, error)
}

// PropertyRepository resolves properties, mainly for manager lookups.
type PropertyRepository interface {
	GetProperty(ctx context.Context, propertyID string) (domain.Property, error)
}

// Publisher pushes events onto property boards. Implementations must not
// block; a nil publisher is replaced with a no-op.
type Publisher interface {
	Publish(event domain.BoardEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.BoardEvent) {}

// SurveyService owns the submission lifecycle: draft creation, finalization
// with scoring and task derivation, review, and template versioning.
type SurveyService struct {
	templates   TemplateRepository
	submissions SubmissionRepository
	tasks       TaskRepository
	properties  PropertyRepository
	events      Publisher
	now         func() time.Time
}

func NewSurveyService(templates TemplateRepository, submissions SubmissionRepository, tasks TaskRepository, properties PropertyRepository, events Publisher) *SurveyService {
	if events == nil {
		events = noopPublisher{}
	}
	return &SurveyService{
		templates:   templates,
		submissions: submissions,
		tasks:       tasks,
		properties:  properties,
		events:      events,
		now:         time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *SurveyService) WithClock(now func() time.Time) *SurveyService {
	s.now = now
	return s
}

// CreateDraft validates the responses against the template and stores the
// submission in draft status.
func (s *SurveyService) CreateDraft(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	tpl, err := s.templates.GetTemplate(ctx, sub.TemplateID)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := validateResponses(tpl, sub.Responses); err != nil {
		return domain.Submission{}, err
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	for i := range sub.Responses {
		if sub.Responses[i].ID == "" {
			sub.Responses[i].ID = uuid.NewString()
		}
	}
	sub.Status = domain.SubmissionDraft
	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		return domain.Submission{}, fmt.Errorf("create submission: %w", err)
	}
	return sub, nil
}

// Submit finalizes a draft: flips it to submitted, computes the score tree,
// and derives follow-up tasks from low-scoring responses. It fires exactly
// once per submission; a second call fails with ErrSubmissionNotDraft.
func (s *SurveyService) Submit(ctx context.Context, submissionID string) (scoring.ScoreTree, []domain.Task, error) {
	sub, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return scoring.ScoreTree{}, nil, err
	}
	if sub.Status != domain.SubmissionDraft {
		return scoring.ScoreTree{}, nil, domain.ErrSubmissionNotDraft
	}

	tpl, err := s.templates.GetTemplate(ctx, sub.TemplateID)
	if err != nil {
		return scoring.ScoreTree{}, nil, err
	}
	if err := validateResponses(tpl, sub.Responses); err != nil {
		return scoring.ScoreTree{}, nil, err
	}

	if err := s.submissions.UpdateSubmissionStatus(ctx, submissionID, domain.SubmissionSubmitted); err != nil {
		return scoring.ScoreTree{}, nil, fmt.Errorf("submit: %w", err)
	}

	tasks, err := s.deriveTasks(ctx, tpl, sub)
	if err != nil {
		return scoring.ScoreTree{}, nil, err
	}

	tree := scoring.Score(tpl, sub.Responses)
	s.events.Publish(domain.BoardEvent{
		PropertyID: sub.PropertyID,
		Kind:       "score",
		Payload:    tree,
		At:         s.now(),
	})
	return tree, tasks, nil
}

// Review marks a submitted submission as reviewed.
func (s *SurveyService) Review(ctx context.Context, submissionID string) error {
	sub, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Status != domain.SubmissionSubmitted {
		return domain.ErrSubmissionNotSubmitted
	}
	return s.submissions.UpdateSubmissionStatus(ctx, submissionID, domain.SubmissionReviewed)
}

// Score recomputes the score tree for a submission. Works on drafts too, for
// live preview while the form is being filled in.
func (s *SurveyService) Score(ctx context.Context, submissionID string) (scoring.ScoreTree, error) {
	sub, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return scoring.ScoreTree{}, err
	}
	tpl, err := s.templates.GetTemplate(ctx, sub.TemplateID)
	if err != nil {
		return scoring.ScoreTree{}, err
	}
	return scoring.Score(tpl, sub.Responses), nil
}

// ReplaceTemplate writes an edited template tree. A template with no
// submissions is replaced in place; one with submissions is immutable, so the
// edit lands as a new version linked via ParentID and the old version is
// deactivated.
func (s *SurveyService) ReplaceTemplate(ctx context.Context, tpl domain.SurveyTemplate) (domain.SurveyTemplate, error) {
	current, err := s.templates.GetTemplate(ctx, tpl.ID)
	if err != nil {
		return domain.SurveyTemplate{}, err
	}

	count, err := s.submissions.CountByTemplate(ctx, tpl.ID)
	if err != nil {
		return domain.SurveyTemplate{}, fmt.Errorf("count submissions: %w", err)
	}

	applyCategoryDefaults(&tpl)
	if count == 0 {
		tpl.Version = current.Version
		tpl.ParentID = current.ParentID
		tpl.Active = true
		if err := s.templates.SaveTemplate(ctx, tpl); err != nil {
			return domain.SurveyTemplate{}, fmt.Errorf("save template: %w", err)
		}
		return tpl, nil
	}

	next := tpl
	next.ID = uuid.NewString()
	next.Version = current.Version + 1
	next.ParentID = current.ID
	next.Active = true
	if err := s.templates.SaveTemplate(ctx, next); err != nil {
		return domain.SurveyTemplate{}, fmt.Errorf("save template version: %w", err)
	}
	if err := s.templates.DeactivateTemplate(ctx, current.ID); err != nil {
		return domain.SurveyTemplate{}, fmt.Errorf("deactivate template: %w", err)
	}
	return next, nil
}

// deriveTasks creates one task per response that scores at or below the
// threshold on its native scale and carries an issue description. Both
// conditions are required. The repeat flag is computed once, at creation, and
// never re-evaluated.
func (s *SurveyService) deriveTasks(ctx context.Context, tpl domain.SurveyTemplate, sub domain.Submission) ([]domain.Task, error) {
	questions := questionIndex(tpl)

	assignedTo := ""
	if prop, err := s.properties.GetProperty(ctx, sub.PropertyID); err == nil {
		assignedTo = prop.ManagerID
	}

	var created []domain.Task
	for _, resp := range sub.Responses {
		if resp.Score > lowScoreThreshold || resp.IssueDescription == "" {
			continue
		}
		q, ok := questions[resp.QuestionID]
		if !ok {
			continue
		}

		repeat, err := s.tasks.HasClosedTask(ctx, sub.PropertyID, resp.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("repeat-issue lookup: %w", err)
		}

		task := domain.Task{
			ID:           uuid.NewString(),
			SubmissionID: sub.ID,
			ResponseID:   resp.ID,
			QuestionID:   resp.QuestionID,
			PropertyID:   sub.PropertyID,
			Title:        q.Text,
			Description:  resp.IssueDescription,
			Status:       domain.TaskOpen,
			RepeatIssue:  repeat,
			AssignedTo:   assignedTo,
			CreatedAt:    s.now(),
		}
		inserted, err := s.tasks.CreateTask(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("create task: %w", err)
		}
		if !inserted {
			continue // a task for this response already exists
		}
		created = append(created, task)
		s.events.Publish(domain.BoardEvent{
			PropertyID: sub.PropertyID,
			Kind:       "task",
			Payload:    task,
			At:         s.now(),
		})
	}
	return created, nil
}

func validateResponses(tpl domain.SurveyTemplate, responses []domain.Response) error {
	questions := questionIndex(tpl)
	for _, resp := range responses {
		q, ok := questions[resp.QuestionID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, resp.QuestionID)
		}
		if resp.Score < q.ScaleMin || resp.Score > q.ScaleMax {
			return fmt.Errorf("%w: question %s score %d not in [%d,%d]",
				domain.ErrScoreOutOfRange, q.ID, resp.Score, q.ScaleMin, q.ScaleMax)
		}
	}
	return nil
}

func questionIndex(tpl domain.SurveyTemplate) map[string]domain.Question {
	idx := make(map[string]domain.Question)
	for _, cat := range tpl.Categories {
		for _, sub := range cat.Subcategories {
			for _, q := range sub.Questions {
				idx[q.ID] = q
			}
		}
	}
	return idx
}

func applyCategoryDefaults(tpl *domain.SurveyTemplate) {
	for i := range tpl.Categories {
		if tpl.Categories[i].Weight == 0 {
			tpl.Categories[i].Weight = 1
		}
	}
}
