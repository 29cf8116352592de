package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"propops-service/internal/app"
	"propops-service/internal/domain"
)

// Handler exposes the survey, SOP, and task use cases as JSON endpoints.
type Handler struct {
	surveys *app.SurveyService
	sop     *app.SOPService
	tasks   *app.TaskService
}

func NewHandler(surveys *app.SurveyService, sop *app.SOPService, tasks *app.TaskService) *Handler {
	return &Handler{surveys: surveys, sop: sop, tasks: tasks}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /submissions", h.createSubmission)
	mux.HandleFunc("POST /submissions/{id}/submit", h.submitSubmission)
	mux.HandleFunc("POST /submissions/{id}/review", h.reviewSubmission)
	mux.HandleFunc("GET /submissions/{id}/score", h.scoreSubmission)
	mux.HandleFunc("PUT /templates/{id}", h.replaceTemplate)
	mux.HandleFunc("GET /assignments/{id}/duedate", h.assignmentDueDate)
	mux.HandleFunc("GET /assignments/{id}/checklist", h.openChecklist)
	mux.HandleFunc("POST /assignments/{id}/toggle", h.toggleItem)
	mux.HandleFunc("GET /properties/{id}/sop", h.sopOverview)
	mux.HandleFunc("GET /properties/{id}/tasks", h.listOpenTasks)
	mux.HandleFunc("POST /tasks/{id}/status", h.transitionTask)
}

type createSubmissionRequest struct {
	TemplateID string            `json:"templateId"`
	PropertyID string            `json:"propertyId"`
	VisitDate  time.Time         `json:"visitDate"`
	Responses  []domain.Response `json:"responses"`
}

func (h *Handler) createSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := h.surveys.CreateDraft(r.Context(), domain.Submission{
		TemplateID: req.TemplateID,
		PropertyID: req.PropertyID,
		VisitDate:  req.VisitDate,
		Responses:  req.Responses,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) submitSubmission(w http.ResponseWriter, r *http.Request) {
	tree, tasks, err := h.surveys.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"score": tree,
		"tasks": tasks,
	})
}

func (h *Handler) reviewSubmission(w http.ResponseWriter, r *http.Request) {
	if err := h.surveys.Review(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) scoreSubmission(w http.ResponseWriter, r *http.Request) {
	tree, err := h.surveys.Score(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) replaceTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl domain.SurveyTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tpl.ID = r.PathValue("id")
	saved, err := h.surveys.ReplaceTemplate(r.Context(), tpl)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) assignmentDueDate(w http.ResponseWriter, r *http.Request) {
	due, overdue, err := h.sop.DueDate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dueDate": due,
		"overdue": overdue,
	})
}

func (h *Handler) openChecklist(w http.ResponseWriter, r *http.Request) {
	completion, err := h.sop.OpenChecklist(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

type toggleRequest struct {
	ItemID  string `json:"itemId"`
	Checked bool   `json:"checked"`
	Note    string `json:"note"`
}

func (h *Handler) toggleItem(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	completion, err := h.sop.ToggleItem(r.Context(), r.PathValue("id"), req.ItemID, req.Checked, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

func (h *Handler) sopOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.sop.Overview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *Handler) listOpenTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListOpen(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

type transitionRequest struct {
	Status domain.TaskStatus `json:"status"`
}

func (h *Handler) transitionTask(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	task, err := h.tasks.Transition(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrChecklistNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound),
		errors.Is(err, domain.ErrAssignmentNotFound),
		errors.Is(err, domain.ErrCompletionNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrScoreOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSubmissionNotDraft),
		errors.Is(err, domain.ErrSubmissionNotSubmitted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
