package domain

import "errors"

var (
	// ErrTemplateNotFound indicates the survey template could not be loaded.
	ErrTemplateNotFound = errors.New("survey template not found")
	// ErrChecklistNotFound indicates the SOP checklist could not be loaded.
	ErrChecklistNotFound = errors.New("checklist not found")
	// ErrSubmissionNotFound indicates an unknown submission ID.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrAssignmentNotFound indicates an unknown assignment ID.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrCompletionNotFound indicates an unknown completion ID.
	ErrCompletionNotFound = errors.New("completion not found")
	// ErrTaskNotFound indicates an unknown task ID.
	ErrTaskNotFound = errors.New("task not found")
	// ErrPropertyNotFound indicates an unknown property ID.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrQuestionNotFound indicates a response references a question outside
	// the submission's template.
	ErrQuestionNotFound = errors.New("question not found in template")
	// ErrItemNotFound indicates a toggle references an item outside the
	// assignment's checklist.
	ErrItemNotFound = errors.New("checklist item not found")
	// ErrScoreOutOfRange indicates a response score outside the question's
	// [ScaleMin, ScaleMax] bounds.
	ErrScoreOutOfRange = errors.New("score outside question scale")
	// ErrInvalidTransition rejects task status moves outside the monotonic
	// open -> investigating -> closed machine. The task is left untouched.
	ErrInvalidTransition = errors.New("invalid task status transition")
	// ErrSubmissionNotDraft rejects finalizing a submission twice; task
	// derivation must fire exactly once.
	ErrSubmissionNotDraft = errors.New("submission is not a draft")
	// ErrSubmissionNotSubmitted rejects reviewing a submission that was never
	// finalized.
	ErrSubmissionNotSubmitted = errors.New("submission is not submitted")
)
