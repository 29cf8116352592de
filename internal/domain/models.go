package domain

import "time"

// Property is the tenant unit everything else is scoped to.
type Property struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ManagerID string `json:"managerId"` // primary manager; empty when unassigned
}

// Question is a single scored survey question. Scale bounds are per-question,
// not global.
type Question struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ScaleMin  int    `json:"scaleMin"`
	ScaleMax  int    `json:"scaleMax"`
	Required  bool   `json:"required"`
	SortOrder int    `json:"sortOrder"`
}

// Subcategory groups questions inside a category. An empty Name marks the
// "ungrouped" simple mode; it carries no scoring semantics.
type Subcategory struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	SortOrder int        `json:"sortOrder"`
	Questions []Question `json:"questions"`
}

// Category carries the only weight in the roll-up.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Weight        float64       `json:"weight"` // >= 0; storage defaults new categories to 1.0
	SortOrder     int           `json:"sortOrder"`
	Subcategories []Subcategory `json:"subcategories"`
}

// SurveyTemplate is a versioned container of categories. A template that
// already has submissions is never mutated in place: edits create a new
// version pointing back via ParentID and deactivate the old one.
type SurveyTemplate struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Version    int        `json:"version"`
	ParentID   string     `json:"parentId,omitempty"`
	Active     bool       `json:"active"`
	Categories []Category `json:"categories"`
}

// SubmissionStatus is the survey submission lifecycle.
type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionReviewed  SubmissionStatus = "reviewed"
)

// Response is one answer within a submission. Score is on the question's
// native scale, not normalized.
type Response struct {
	ID               string `json:"id"`
	QuestionID       string `json:"questionId"`
	Score            int    `json:"score"`
	Note             string `json:"note,omitempty"`
	IssueDescription string `json:"issueDescription,omitempty"`
}

// Submission owns a response set for one property visit.
type Submission struct {
	ID         string           `json:"id"`
	TemplateID string           `json:"templateId"`
	PropertyID string           `json:"propertyId"`
	Status     SubmissionStatus `json:"status"`
	VisitDate  time.Time        `json:"visitDate"`
	Responses  []Response       `json:"responses"`
}

// ChecklistItem is a single checkable SOP step.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	SortOrder int    `json:"sortOrder"`
}

// Checklist is the SOP template an assignment recurs against.
type Checklist struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items []ChecklistItem `json:"items"`
}

// Frequency is the recurrence rule of an assignment.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Assignment defines a recurring SOP obligation for one user at one property.
// DeadlineTime is "HH:MM". DeadlineDay is 0=Mon..6=Sun for weekly and a
// day-of-month for monthly; it is ignored for daily.
type Assignment struct {
	ID           string    `json:"id"`
	ChecklistID  string    `json:"checklistId"`
	UserID       string    `json:"userId"`
	PropertyID   string    `json:"propertyId"`
	Frequency    Frequency `json:"frequency"`
	DeadlineTime string    `json:"deadlineTime"`
	DeadlineDay  int       `json:"deadlineDay"`
}

// CompletionStatus is the two-state checklist instance machine.
type CompletionStatus string

const (
	CompletionPending   CompletionStatus = "pending"
	CompletionCompleted CompletionStatus = "completed"
)

// ItemCompletion records the checked state of one checklist item within a
// completion instance.
type ItemCompletion struct {
	ItemID    string     `json:"itemId"`
	Checked   bool       `json:"checked"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
	Note      string     `json:"note,omitempty"`
}

// Completion is one period's instance of an assignment, created lazily on
// first interaction. (AssignmentID, DueDate) is unique.
type Completion struct {
	ID           string           `json:"id"`
	AssignmentID string           `json:"assignmentId"`
	DueDate      time.Time        `json:"dueDate"` // date-only, midnight UTC
	Status       CompletionStatus `json:"status"`
	CompletedAt  *time.Time       `json:"completedAt,omitempty"`
	Items        []ItemCompletion `json:"items"`
}

// TaskStatus transitions are monotonic: open -> investigating -> closed.
type TaskStatus string

const (
	TaskOpen          TaskStatus = "open"
	TaskInvestigating TaskStatus = "investigating"
	TaskClosed        TaskStatus = "closed"
)

// ValidTaskTransition reports whether from -> to is allowed. Closed is
// terminal; self-transitions are rejected.
func ValidTaskTransition(from, to TaskStatus) bool {
	switch from {
	case TaskOpen:
		return to == TaskInvestigating || to == TaskClosed
	case TaskInvestigating:
		return to == TaskClosed
	default:
		return false
	}
}

// Task is a follow-up created from a low-scoring response. At most one task
// exists per response.
type Task struct {
	ID           string     `json:"id"`
	SubmissionID string     `json:"submissionId"`
	ResponseID   string     `json:"responseId"`
	QuestionID   string     `json:"questionId"`
	PropertyID   string     `json:"propertyId"`
	Title        string     `json:"title"` // question text, denormalized at creation
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	RepeatIssue  bool       `json:"repeatIssue"`
	AssignedTo   string     `json:"assignedTo,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// BoardEvent is one entry on a property's live ops feed.
type BoardEvent struct {
	PropertyID string    `json:"propertyId"`
	Kind       string    `json:"kind"` // "score", "completion", "task", "presence"
	Payload    any       `json:"payload"`
	At         time.Time `json:"at"`
}
